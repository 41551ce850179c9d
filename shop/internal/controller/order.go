package controller

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	inHttp "github.com/Alturino/storefront/internal/http"
	"github.com/Alturino/storefront/internal/otel"
	"github.com/Alturino/storefront/internal/session"
)

type OrderController struct {
	registry *session.Registry
}

func AttachOrderController(router *mux.Router, registry *session.Registry) {
	controller := OrderController{registry: registry}

	orders := router.PathPrefix("/orders").Subrouter()
	orders.HandleFunc("/guest", controller.GuestOrders).Methods(http.MethodGet)
	orders.HandleFunc("/{transactionId}", controller.Lookup).Methods(http.MethodGet)
	orders.HandleFunc("/{transactionId}/verify", controller.VerifyPayment).Methods(http.MethodPost)
}

func (t OrderController) GuestOrders(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "OrderController GuestOrders")
	defer span.End()

	sess, err := sessionOf(c, t.registry)
	if err != nil {
		fail(c, w, span, err)
		return
	}
	inHttp.WriteSuccess(c, w, "successfully fetched guest orders", map[string]interface{}{
		"orders": sess.GuestOrders.List(),
	})
}

func (t OrderController) Lookup(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "OrderController Lookup")
	defer span.End()

	sess, err := sessionOf(c, t.registry)
	if err != nil {
		fail(c, w, span, err)
		return
	}
	o, err := sess.Tracker.Lookup(c, mux.Vars(r)["transactionId"])
	if err != nil {
		otel.RecordError(err, span)
		inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
			"status":     "failed",
			"statusCode": statusFor(err),
			"message":    sess.Tracker.View().Message,
		})
		return
	}
	inHttp.WriteSuccess(c, w, "successfully fetched order", map[string]interface{}{
		"order": o,
	})
}

func (t OrderController) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "OrderController VerifyPayment")
	defer span.End()

	test, _ := strconv.ParseBool(r.URL.Query().Get("test"))
	sess, err := sessionOf(c, t.registry)
	if err != nil {
		fail(c, w, span, err)
		return
	}
	o, err := sess.Tracker.VerifyPayment(c, mux.Vars(r)["transactionId"], test)
	if err != nil {
		fail(c, w, span, err)
		return
	}
	inHttp.WriteSuccess(c, w, "successfully verified payment", map[string]interface{}{
		"order": o,
	})
}
