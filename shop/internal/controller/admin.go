package controller

import (
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/Alturino/storefront/admin"
	"github.com/Alturino/storefront/catalog"
	inHttp "github.com/Alturino/storefront/internal/http"
	"github.com/Alturino/storefront/internal/log"
	"github.com/Alturino/storefront/internal/middleware"
	"github.com/Alturino/storefront/internal/otel"
	"github.com/Alturino/storefront/internal/session"
)

const maxUploadSize = 32 << 20

type AdminController struct {
	registry *session.Registry
}

func AttachAdminController(router *mux.Router, registry *session.Registry) {
	controller := AdminController{registry: registry}

	adminRouter := router.PathPrefix("/admin").Subrouter()
	adminRouter.Use(middleware.Auth)
	adminRouter.HandleFunc("/categories", controller.CreateCategory).Methods(http.MethodPost)
	adminRouter.HandleFunc("/categories/{categoryId}", controller.DeleteCategory).Methods(http.MethodDelete)
	adminRouter.HandleFunc("/products", controller.CreateProduct).Methods(http.MethodPost)
	adminRouter.HandleFunc("/products/{productId}", controller.DeleteProduct).Methods(http.MethodDelete)
}

// adminOf returns the session's admin service holding the bearer token of r.
func (t AdminController) adminOf(r *http.Request) (*admin.Service, error) {
	c := r.Context()
	sess, err := sessionOf(c, t.registry)
	if err != nil {
		return nil, err
	}
	token := middleware.TokenFromContext(c)
	if token != sess.Admin.Token() {
		if err := sess.Admin.SetToken(c, token); err != nil {
			return nil, err
		}
	}
	return sess.Admin, nil
}

func openFiles(headers []*multipart.FileHeader) ([]inHttp.File, func(), error) {
	files := make([]inHttp.File, 0, len(headers))
	opened := []multipart.File{}
	closeAll := func() {
		for _, f := range opened {
			f.Close()
		}
	}
	for _, header := range headers {
		f, err := header.Open()
		if err != nil {
			closeAll()
			return nil, func() {}, fmt.Errorf("failed opening file=%s with error=%w", header.Filename, err)
		}
		opened = append(opened, f)
		files = append(files, inHttp.File{Name: header.Filename, Reader: f})
	}
	return files, closeAll, nil
}

func (t AdminController) CreateCategory(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "AdminController CreateCategory")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "AdminController CreateCategory").
		Str(log.KeyProcess, "parsing multipart form").
		Logger()

	logger.Trace().Msg("parsing multipart form")
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		failWith(c, w, span, http.StatusBadRequest, fmt.Errorf("failed parsing multipart form with error=%w", err))
		return
	}
	files, closeFiles, err := openFiles(r.MultipartForm.File["image"])
	if err != nil {
		failWith(c, w, span, http.StatusBadRequest, err)
		return
	}
	defer closeFiles()
	logger.Trace().Msg("parsed multipart form")

	svc, err := t.adminOf(r.WithContext(c))
	if err != nil {
		fail(c, w, span, err)
		return
	}
	image := inHttp.File{}
	if len(files) > 0 {
		image = files[0]
	}
	category, err := svc.CreateCategory(c, admin.CategoryForm{Name: r.FormValue("name")}, image)
	if err != nil {
		fail(c, w, span, err)
		return
	}
	inHttp.WriteSuccess(c, w, "successfully created category", map[string]interface{}{
		"category": category,
	})
}

func (t AdminController) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "AdminController DeleteCategory")
	defer span.End()

	svc, err := t.adminOf(r.WithContext(c))
	if err != nil {
		fail(c, w, span, err)
		return
	}
	if err := svc.DeleteCategory(c, mux.Vars(r)["categoryId"]); err != nil {
		fail(c, w, span, err)
		return
	}
	inHttp.WriteSuccess(c, w, "successfully deleted category", map[string]interface{}{})
}

// productForm reads the upload form the same way the backend reads it.
func productForm(r *http.Request) (admin.ProductForm, error) {
	form := admin.ProductForm{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		Category:    r.FormValue("category"),
	}
	price, err := decimal.NewFromString(r.FormValue("price"))
	if err != nil {
		return admin.ProductForm{}, fmt.Errorf("failed parsing price with error=%w", err)
	}
	form.Price = price
	if v := r.FormValue("discountPrice"); v != "" {
		discount, err := decimal.NewFromString(v)
		if err != nil {
			return admin.ProductForm{}, fmt.Errorf("failed parsing discountPrice with error=%w", err)
		}
		form.DiscountedPrice = decimal.NewNullDecimal(discount)
	}
	if v := r.FormValue("stock"); v != "" {
		stock, err := strconv.Atoi(v)
		if err != nil {
			return admin.ProductForm{}, fmt.Errorf("failed parsing stock with error=%w", err)
		}
		form.Stock = stock
	}
	if v := r.FormValue("sizes"); v != "" {
		sizes := []catalog.SizeVariant{}
		if err := json.Unmarshal([]byte(v), &sizes); err != nil {
			return admin.ProductForm{}, fmt.Errorf("failed parsing sizes with error=%w", err)
		}
		form.Sizes = sizes
	}
	return form, nil
}

func (t AdminController) CreateProduct(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "AdminController CreateProduct")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "AdminController CreateProduct").
		Str(log.KeyProcess, "parsing multipart form").
		Logger()

	logger.Trace().Msg("parsing multipart form")
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		failWith(c, w, span, http.StatusBadRequest, fmt.Errorf("failed parsing multipart form with error=%w", err))
		return
	}
	form, err := productForm(r)
	if err != nil {
		failWith(c, w, span, http.StatusBadRequest, err)
		return
	}
	files, closeFiles, err := openFiles(r.MultipartForm.File["images"])
	if err != nil {
		failWith(c, w, span, http.StatusBadRequest, err)
		return
	}
	defer closeFiles()
	logger.Trace().Msg("parsed multipart form")

	svc, err := t.adminOf(r.WithContext(c))
	if err != nil {
		fail(c, w, span, err)
		return
	}
	product, err := svc.CreateProduct(c, form, files)
	if err != nil {
		fail(c, w, span, err)
		return
	}
	inHttp.WriteSuccess(c, w, "successfully created product", map[string]interface{}{
		"product": product,
	})
}

func (t AdminController) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "AdminController DeleteProduct")
	defer span.End()

	svc, err := t.adminOf(r.WithContext(c))
	if err != nil {
		fail(c, w, span, err)
		return
	}
	if err := svc.DeleteProduct(c, mux.Vars(r)["productId"]); err != nil {
		fail(c, w, span, err)
		return
	}
	inHttp.WriteSuccess(c, w, "successfully deleted product", map[string]interface{}{})
}
