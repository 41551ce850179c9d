package controller

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/Alturino/storefront/catalog"
	inHttp "github.com/Alturino/storefront/internal/http"
	"github.com/Alturino/storefront/internal/otel"
	"github.com/Alturino/storefront/internal/session"
	"github.com/Alturino/storefront/wishlist"
)

type WishlistController struct {
	registry *session.Registry
	catalog  *catalog.Service
}

func AttachWishlistController(router *mux.Router, registry *session.Registry, catalogService *catalog.Service) {
	controller := WishlistController{registry: registry, catalog: catalogService}

	wishes := router.PathPrefix("/wishlist").Subrouter()
	wishes.HandleFunc("", controller.Entries).Methods(http.MethodGet)
	wishes.HandleFunc("", controller.Add).Methods(http.MethodPost)
	wishes.HandleFunc("/{productId}", controller.Remove).Methods(http.MethodDelete)
	wishes.HandleFunc("/{productId}/move", controller.MoveToCart).Methods(http.MethodPost)
}

func (t WishlistController) Entries(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "WishlistController Entries")
	defer span.End()

	sess, err := sessionOf(c, t.registry)
	if err != nil {
		fail(c, w, span, err)
		return
	}
	inHttp.WriteSuccess(c, w, "successfully fetched wishlist", map[string]interface{}{
		"wishlist": sess.Wishlist.Entries(),
	})
}

func (t WishlistController) Add(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "WishlistController Add")
	defer span.End()

	reqBody := struct {
		ProductID string `json:"productId" validate:"required"`
	}{}
	if err := decode(r, &reqBody); err != nil {
		failWith(c, w, span, http.StatusBadRequest, err)
		return
	}
	if err := validate.StructCtx(c, reqBody); err != nil {
		failWith(c, w, span, http.StatusBadRequest, err)
		return
	}
	sess, err := sessionOf(c, t.registry)
	if err != nil {
		fail(c, w, span, err)
		return
	}
	product, err := t.catalog.Product(c, reqBody.ProductID)
	if err != nil {
		fail(c, w, span, err)
		return
	}
	added, err := sess.Wishlist.Add(c, wishlist.EntryFromProduct(product))
	if err != nil {
		fail(c, w, span, err)
		return
	}
	inHttp.WriteSuccess(c, w, "successfully added to wishlist", map[string]interface{}{
		"added":    added,
		"wishlist": sess.Wishlist.Entries(),
	})
}

func (t WishlistController) Remove(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "WishlistController Remove")
	defer span.End()

	sess, err := sessionOf(c, t.registry)
	if err != nil {
		fail(c, w, span, err)
		return
	}
	removed, err := sess.Wishlist.Remove(c, mux.Vars(r)["productId"])
	if err != nil {
		fail(c, w, span, err)
		return
	}
	inHttp.WriteSuccess(c, w, "successfully removed from wishlist", map[string]interface{}{
		"removed":  removed,
		"wishlist": sess.Wishlist.Entries(),
	})
}

func (t WishlistController) MoveToCart(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "WishlistController MoveToCart")
	defer span.End()

	sess, err := sessionOf(c, t.registry)
	if err != nil {
		fail(c, w, span, err)
		return
	}
	product, err := t.catalog.Product(c, mux.Vars(r)["productId"])
	if err != nil {
		fail(c, w, span, err)
		return
	}
	outcome, err := sess.Wishlist.MoveToCart(c, sess.Cart, product, r.URL.Query().Get("size"))
	if err != nil {
		fail(c, w, span, err)
		return
	}
	statusCode := http.StatusOK
	status := "success"
	message := "successfully moved to cart"
	if !outcome.Accepted {
		statusCode = http.StatusConflict
		status = "failed"
		message = outcome.Message
	}
	inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
		"status":     status,
		"statusCode": statusCode,
		"message":    message,
		"data": map[string]interface{}{
			"outcome":  outcome,
			"cart":     sess.Cart.Summary(),
			"wishlist": sess.Wishlist.Entries(),
		},
	})
}
