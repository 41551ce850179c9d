package controller

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/Alturino/storefront/catalog"
	inHttp "github.com/Alturino/storefront/internal/http"
	"github.com/Alturino/storefront/internal/log"
	"github.com/Alturino/storefront/internal/otel"
	"github.com/Alturino/storefront/internal/session"
)

type addToCart struct {
	ProductID string `json:"productId"    validate:"required"`
	Size      string `json:"selectedSize"`
	Quantity  int    `json:"quantity"     validate:"gte=0,lte=1000"`
}

type updateQuantity struct {
	Size     string `json:"selectedSize"`
	Quantity int    `json:"quantity"`
}

type CartController struct {
	registry *session.Registry
	catalog  *catalog.Service
}

func AttachCartController(router *mux.Router, registry *session.Registry, catalogService *catalog.Service) {
	controller := CartController{registry: registry, catalog: catalogService}

	cart := router.PathPrefix("/cart").Subrouter()
	cart.HandleFunc("", controller.Summary).Methods(http.MethodGet)
	cart.HandleFunc("", controller.Add).Methods(http.MethodPost)
	cart.HandleFunc("", controller.Clear).Methods(http.MethodDelete)
	cart.HandleFunc("/reconcile", controller.Reconcile).Methods(http.MethodPost)
	cart.HandleFunc("/{productId}", controller.UpdateQuantity).Methods(http.MethodPatch)
	cart.HandleFunc("/{productId}", controller.Remove).Methods(http.MethodDelete)
}

func (t CartController) Summary(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CartController Summary")
	defer span.End()

	sess, err := sessionOf(c, t.registry)
	if err != nil {
		fail(c, w, span, err)
		return
	}
	inHttp.WriteSuccess(c, w, "successfully fetched cart", map[string]interface{}{
		"cart": sess.Cart.Summary(),
	})
}

func (t CartController) Add(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CartController Add")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartController Add").
		Logger()

	logger = logger.With().Str(log.KeyProcess, "decoding request body").Logger()
	logger.Trace().Msg("decoding request body")
	reqBody := addToCart{}
	if err := decode(r, &reqBody); err != nil {
		failWith(c, w, span, http.StatusBadRequest, err)
		return
	}
	if err := validate.StructCtx(c, reqBody); err != nil {
		failWith(c, w, span, http.StatusBadRequest, fmt.Errorf("failed validating request body with error=%w", err))
		return
	}
	logger = logger.With().
		Str(log.KeyProductID, reqBody.ProductID).
		Str(log.KeySize, reqBody.Size).
		Int(log.KeyQuantity, reqBody.Quantity).
		Logger()
	logger.Trace().Msg("decoded request body")

	sess, err := sessionOf(c, t.registry)
	if err != nil {
		fail(c, w, span, err)
		return
	}

	logger = logger.With().Str(log.KeyProcess, "fetching product").Logger()
	logger.Debug().Msg("fetching product")
	c = logger.WithContext(c)
	product, err := t.catalog.Product(c, reqBody.ProductID)
	if err != nil {
		fail(c, w, span, err)
		return
	}
	logger.Debug().Msg("fetched product")

	logger = logger.With().Str(log.KeyProcess, "adding to cart").Logger()
	c = logger.WithContext(c)
	outcome, err := sess.Cart.Add(c, product, reqBody.Size, reqBody.Quantity)
	if err != nil {
		fail(c, w, span, err)
		return
	}
	if !outcome.Accepted {
		inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
			"status":     "failed",
			"statusCode": http.StatusConflict,
			"message":    outcome.Message,
			"data":       map[string]interface{}{"outcome": outcome, "cart": sess.Cart.Summary()},
		})
		return
	}
	inHttp.WriteSuccess(c, w, "successfully added to cart", map[string]interface{}{
		"outcome": outcome,
		"cart":    sess.Cart.Summary(),
	})
}

func (t CartController) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CartController UpdateQuantity")
	defer span.End()

	productID := mux.Vars(r)["productId"]
	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartController UpdateQuantity").
		Str(log.KeyProductID, productID).
		Logger()
	c = logger.WithContext(c)

	reqBody := updateQuantity{}
	if err := decode(r, &reqBody); err != nil {
		failWith(c, w, span, http.StatusBadRequest, err)
		return
	}
	sess, err := sessionOf(c, t.registry)
	if err != nil {
		fail(c, w, span, err)
		return
	}
	outcome, err := sess.Cart.UpdateQuantity(c, productID, reqBody.Quantity, reqBody.Size)
	if err != nil {
		fail(c, w, span, err)
		return
	}
	if !outcome.Accepted {
		inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
			"status":     "failed",
			"statusCode": http.StatusConflict,
			"message":    outcome.Message,
			"data":       map[string]interface{}{"outcome": outcome, "cart": sess.Cart.Summary()},
		})
		return
	}
	inHttp.WriteSuccess(c, w, "successfully updated quantity", map[string]interface{}{
		"outcome": outcome,
		"cart":    sess.Cart.Summary(),
	})
}

func (t CartController) Remove(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CartController Remove")
	defer span.End()

	productID := mux.Vars(r)["productId"]
	size := r.URL.Query().Get("size")

	sess, err := sessionOf(c, t.registry)
	if err != nil {
		fail(c, w, span, err)
		return
	}
	removed, err := sess.Cart.Remove(c, productID, size)
	if err != nil {
		fail(c, w, span, err)
		return
	}
	inHttp.WriteSuccess(c, w, "successfully removed from cart", map[string]interface{}{
		"removed": removed,
		"cart":    sess.Cart.Summary(),
	})
}

func (t CartController) Clear(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CartController Clear")
	defer span.End()

	sess, err := sessionOf(c, t.registry)
	if err != nil {
		fail(c, w, span, err)
		return
	}
	if err := sess.Cart.Clear(c); err != nil {
		fail(c, w, span, err)
		return
	}
	inHttp.WriteSuccess(c, w, "successfully cleared cart", map[string]interface{}{
		"cart": sess.Cart.Summary(),
	})
}

// Reconcile refreshes the stock snapshot of every line from the catalog.
func (t CartController) Reconcile(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CartController Reconcile")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartController Reconcile").
		Logger()

	sess, err := sessionOf(c, t.registry)
	if err != nil {
		fail(c, w, span, err)
		return
	}

	logger = logger.With().Str(log.KeyProcess, "fetching products in cart").Logger()
	logger.Debug().Msg("fetching products in cart")
	c = logger.WithContext(c)
	seen := map[string]struct{}{}
	products := []catalog.Product{}
	for _, line := range sess.Cart.Lines() {
		if _, ok := seen[line.ProductID]; ok {
			continue
		}
		seen[line.ProductID] = struct{}{}
		product, err := t.catalog.Product(c, line.ProductID)
		if inHttp.IsNotFound(err) {
			product = catalog.Product{ID: line.ProductID}
		} else if err != nil {
			fail(c, w, span, err)
			return
		}
		products = append(products, product)
	}
	logger.Debug().Int("count", len(products)).Msg("fetched products in cart")

	events, err := sess.Cart.Reconcile(c, products)
	if err != nil {
		fail(c, w, span, err)
		return
	}
	inHttp.WriteSuccess(c, w, "successfully reconciled cart", map[string]interface{}{
		"events": events,
		"cart":   sess.Cart.Summary(),
	})
}
