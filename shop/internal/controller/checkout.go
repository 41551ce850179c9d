package controller

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	inHttp "github.com/Alturino/storefront/internal/http"
	"github.com/Alturino/storefront/internal/log"
	"github.com/Alturino/storefront/internal/otel"
	"github.com/Alturino/storefront/internal/session"
	"github.com/Alturino/storefront/order"
)

type CheckoutController struct {
	registry *session.Registry
}

func AttachCheckoutController(router *mux.Router, registry *session.Registry) {
	controller := CheckoutController{registry: registry}

	checkout := router.PathPrefix("/checkout").Subrouter()
	checkout.HandleFunc("", controller.Snapshot).Methods(http.MethodGet)
	checkout.HandleFunc("", controller.Submit).Methods(http.MethodPost)
	checkout.HandleFunc("/finish", controller.Finish).Methods(http.MethodPost)
	checkout.HandleFunc("/reset", controller.Reset).Methods(http.MethodPost)
}

func (t CheckoutController) Snapshot(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CheckoutController Snapshot")
	defer span.End()

	sess, err := sessionOf(c, t.registry)
	if err != nil {
		fail(c, w, span, err)
		return
	}
	inHttp.WriteSuccess(c, w, "successfully fetched checkout", map[string]interface{}{
		"checkout": sess.Checkout.Snapshot(),
	})
}

func (t CheckoutController) Submit(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CheckoutController Submit")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CheckoutController Submit").
		Logger()

	logger = logger.With().Str(log.KeyProcess, "decoding request body").Logger()
	logger.Trace().Msg("decoding request body")
	shipping := order.ShippingAddress{}
	if err := decode(r, &shipping); err != nil {
		failWith(c, w, span, http.StatusBadRequest, err)
		return
	}
	logger.Trace().Msg("decoded request body")

	sess, err := sessionOf(c, t.registry)
	if err != nil {
		fail(c, w, span, err)
		return
	}

	logger = logger.With().Str(log.KeyProcess, "submitting checkout").Logger()
	c = logger.WithContext(c)
	result, err := sess.Checkout.Submit(c, shipping)
	if err != nil {
		snapshot := sess.Checkout.Snapshot()
		message := snapshot.Message
		if message == "" {
			message = err.Error()
		}
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
			"status":     "failed",
			"statusCode": statusFor(err),
			"message":    message,
			"data":       map[string]interface{}{"checkout": snapshot},
		})
		return
	}
	inHttp.WriteSuccess(c, w, "successfully created order", map[string]interface{}{
		"order":        result.Order,
		"bankDetails":  result.BankDetails,
		"orderedItems": result.OrderedItems,
	})
}

func (t CheckoutController) Finish(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CheckoutController Finish")
	defer span.End()

	sess, err := sessionOf(c, t.registry)
	if err != nil {
		fail(c, w, span, err)
		return
	}
	if err := sess.Checkout.Finish(c); err != nil {
		fail(c, w, span, err)
		return
	}
	inHttp.WriteSuccess(c, w, "successfully finished checkout", map[string]interface{}{
		"checkout": sess.Checkout.Snapshot(),
	})
}

func (t CheckoutController) Reset(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CheckoutController Reset")
	defer span.End()

	sess, err := sessionOf(c, t.registry)
	if err != nil {
		fail(c, w, span, err)
		return
	}
	if err := sess.Checkout.Reset(c); err != nil {
		fail(c, w, span, err)
		return
	}
	inHttp.WriteSuccess(c, w, "successfully reset checkout", map[string]interface{}{
		"checkout": sess.Checkout.Snapshot(),
	})
}
