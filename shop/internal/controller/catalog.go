package controller

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/Alturino/storefront/catalog"
	inHttp "github.com/Alturino/storefront/internal/http"
	"github.com/Alturino/storefront/internal/otel"
)

type CatalogController struct {
	catalog *catalog.Service
}

func AttachCatalogController(router *mux.Router, catalogService *catalog.Service) {
	controller := CatalogController{catalog: catalogService}

	router.HandleFunc("/categories", controller.Categories).Methods(http.MethodGet)
	router.HandleFunc("/products", controller.Products).Methods(http.MethodGet)
	router.HandleFunc("/products/{productId}", controller.Product).Methods(http.MethodGet)
}

func (t CatalogController) Categories(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CatalogController Categories")
	defer span.End()

	categories, err := t.catalog.Categories(c)
	if err != nil {
		fail(c, w, span, err)
		return
	}
	inHttp.WriteSuccess(c, w, "successfully fetched categories", map[string]interface{}{
		"categories": categories,
	})
}

func (t CatalogController) Products(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CatalogController Products")
	defer span.End()

	products, err := t.catalog.Products(c, catalog.ProductFilter{
		Category: r.URL.Query().Get("category"),
		Search:   r.URL.Query().Get("search"),
	})
	if err != nil {
		fail(c, w, span, err)
		return
	}
	names := t.catalog.CategoryNames(c)
	inHttp.WriteSuccess(c, w, "successfully fetched products", map[string]interface{}{
		"products":      products,
		"categoryNames": names,
	})
}

func (t CatalogController) Product(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CatalogController Product")
	defer span.End()

	product, err := t.catalog.Product(c, mux.Vars(r)["productId"])
	if err != nil {
		fail(c, w, span, err)
		return
	}
	inHttp.WriteSuccess(c, w, "successfully fetched product", map[string]interface{}{
		"product": product,
	})
}
