package controller

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	inHttp "github.com/Alturino/storefront/internal/http"
	"github.com/Alturino/storefront/internal/otel"
	"github.com/Alturino/storefront/internal/session"
	"github.com/Alturino/storefront/user"
)

type AuthController struct {
	registry *session.Registry
}

func AttachAuthController(router *mux.Router, registry *session.Registry) {
	controller := AuthController{registry: registry}

	auth := router.PathPrefix("/auth").Subrouter()
	auth.HandleFunc("/signin", authAction(controller, "AuthController SignIn", (*user.Service).SignIn)).
		Methods(http.MethodPost)
	auth.HandleFunc("/signup", authAction(controller, "AuthController SignUp", (*user.Service).SignUp)).
		Methods(http.MethodPost)
	auth.HandleFunc("/verify-email", authAction(controller, "AuthController VerifyEmail", (*user.Service).VerifyEmail)).
		Methods(http.MethodPost)
	auth.HandleFunc("/forgot-password", authAction(controller, "AuthController ForgotPassword", (*user.Service).ForgotPassword)).
		Methods(http.MethodPost)
	auth.HandleFunc("/verify-reset-code", authAction(controller, "AuthController VerifyResetCode", (*user.Service).VerifyResetCode)).
		Methods(http.MethodPost)
	auth.HandleFunc("/reset-password", authAction(controller, "AuthController ResetPassword", (*user.Service).ResetPassword)).
		Methods(http.MethodPost)
	auth.HandleFunc("/guest", controller.ContinueAsGuest).Methods(http.MethodPost)
	auth.HandleFunc("/signout", controller.SignOut).Methods(http.MethodPost)
	auth.HandleFunc("/me", controller.Me).Methods(http.MethodGet)
}

// authAction decodes T and forwards it to one of the user service calls.
func authAction[T any](
	t AuthController,
	name string,
	call func(*user.Service, context.Context, T) (user.AuthResponse, error),
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, span := otel.Tracer.Start(r.Context(), name)
		defer span.End()

		var reqBody T
		if err := decode(r, &reqBody); err != nil {
			failWith(c, w, span, http.StatusBadRequest, err)
			return
		}
		sess, err := sessionOf(c, t.registry)
		if err != nil {
			fail(c, w, span, err)
			return
		}
		resp, err := call(sess.Auth, c, reqBody)
		if err != nil {
			fail(c, w, span, err)
			return
		}
		message := resp.Message
		if message == "" {
			message = "success"
		}
		inHttp.WriteSuccess(c, w, message, map[string]interface{}{
			"user":    resp.User,
			"isGuest": sess.User.IsGuest(),
		})
	}
}

func (t AuthController) ContinueAsGuest(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "AuthController ContinueAsGuest")
	defer span.End()

	sess, err := sessionOf(c, t.registry)
	if err != nil {
		fail(c, w, span, err)
		return
	}
	if err := sess.Auth.ContinueAsGuest(c); err != nil {
		fail(c, w, span, err)
		return
	}
	inHttp.WriteSuccess(c, w, "continuing as guest", map[string]interface{}{"isGuest": true})
}

func (t AuthController) SignOut(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "AuthController SignOut")
	defer span.End()

	sess, err := sessionOf(c, t.registry)
	if err != nil {
		fail(c, w, span, err)
		return
	}
	if err := sess.Auth.SignOut(c); err != nil {
		fail(c, w, span, err)
		return
	}
	inHttp.WriteSuccess(c, w, "successfully signed out", map[string]interface{}{})
}

func (t AuthController) Me(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "AuthController Me")
	defer span.End()

	sess, err := sessionOf(c, t.registry)
	if err != nil {
		fail(c, w, span, err)
		return
	}
	data := map[string]interface{}{
		"authenticated": sess.User.Authenticated(),
		"isGuest":       sess.User.IsGuest(),
	}
	if u, ok := sess.User.User(); ok {
		data["user"] = u
	}
	inHttp.WriteSuccess(c, w, "successfully fetched session", data)
}
