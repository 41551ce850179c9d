package admin

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alturino/storefront/catalog"
	"github.com/Alturino/storefront/internal/config"
	inErrors "github.com/Alturino/storefront/internal/errors"
	inHttp "github.com/Alturino/storefront/internal/http"
	"github.com/Alturino/storefront/internal/storage"
)

func newService(t *testing.T, handler http.HandlerFunc) (*Service, storage.Storage) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	s := storage.NewMemoryStorage()
	svc, err := NewService(context.Background(), inHttp.NewClient(config.Api{BaseURL: server.URL}), s)
	require.NoError(t, err)
	return svc, s
}

func productForm() ProductForm {
	return ProductForm{
		Title:           "Shirt",
		Description:     "Cotton shirt",
		Price:           decimal.NewFromInt(25000),
		DiscountedPrice: decimal.NewNullDecimal(decimal.NewFromInt(20000)),
		Stock:           10,
		Category:        "C1",
		Sizes:           []catalog.SizeVariant{{Size: "M", Stock: 3}, {Size: "XL", Stock: 1}},
	}
}

func TestCallsWithoutTokenAreRefused(t *testing.T) {
	calls := atomic.Int32{}
	svc, _ := newService(t, func(w http.ResponseWriter, r *http.Request) { calls.Add(1) })

	err := svc.DeleteProduct(context.Background(), "P1")
	assert.ErrorIs(t, err, inErrors.ErrEmptyAuth)
	assert.Equal(t, int32(0), calls.Load())
}

func TestTokenIsPersisted(t *testing.T) {
	c := context.Background()
	svc, s := newService(t, func(w http.ResponseWriter, r *http.Request) {})
	require.NoError(t, svc.SetToken(c, " admin-token "))

	reloaded, err := NewService(c, inHttp.NewClient(config.Api{}), s)
	require.NoError(t, err)
	assert.Equal(t, "admin-token", reloaded.Token())

	require.NoError(t, reloaded.SetToken(c, ""))
	again, err := NewService(c, inHttp.NewClient(config.Api{}), s)
	require.NoError(t, err)
	assert.Empty(t, again.Token())
}

func TestCreateProductSendsMultipart(t *testing.T) {
	c := context.Background()
	svc, _ := newService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/products", r.URL.Path)
		assert.Equal(t, "Bearer admin-token", r.Header.Get(inHttp.HeaderAuthorization))
		assert.NoError(t, r.ParseMultipartForm(1<<20))

		assert.Equal(t, "Shirt", r.FormValue("title"))
		assert.Equal(t, "25000", r.FormValue("price"))
		assert.Equal(t, "20000", r.FormValue("discountPrice"))
		sizes := []catalog.SizeVariant{}
		assert.NoError(t, json.Unmarshal([]byte(r.FormValue("sizes")), &sizes))
		assert.Len(t, sizes, 2)

		files := r.MultipartForm.File["images"]
		if assert.Len(t, files, 2) {
			f, err := files[0].Open()
			assert.NoError(t, err)
			content, _ := io.ReadAll(f)
			f.Close()
			assert.Equal(t, "front", string(content))
		}

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{
			"product": map[string]any{"_id": "P9", "title": "Shirt", "price": "25000", "category": "C1"},
		})
	})
	require.NoError(t, svc.SetToken(c, "admin-token"))

	product, err := svc.CreateProduct(c, productForm(), []inHttp.File{
		{Name: "front.jpg", Reader: strings.NewReader("front")},
		{Name: "back.jpg", Reader: strings.NewReader("back")},
	})
	require.NoError(t, err)
	assert.Equal(t, "P9", product.ID)
	assert.Equal(t, "C1", product.Category.ID())
}

func TestCreateProductValidation(t *testing.T) {
	testCases := []struct {
		desc   string
		modify func(*ProductForm)
	}{
		{
			desc:   "given missing title should fail",
			modify: func(f *ProductForm) { f.Title = "" },
		},
		{
			desc:   "given zero price should fail",
			modify: func(f *ProductForm) { f.Price = decimal.Zero },
		},
		{
			desc: "given discount above price should fail",
			modify: func(f *ProductForm) {
				f.DiscountedPrice = decimal.NewNullDecimal(decimal.NewFromInt(30000))
			},
		},
		{
			desc: "given duplicated size should fail",
			modify: func(f *ProductForm) {
				f.Sizes = append(f.Sizes, catalog.SizeVariant{Size: "M", Stock: 1})
			},
		},
	}
	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			calls := atomic.Int32{}
			svc, _ := newService(t, func(w http.ResponseWriter, r *http.Request) { calls.Add(1) })
			require.NoError(t, svc.SetToken(context.Background(), "admin-token"))

			form := productForm()
			tC.modify(&form)
			_, err := svc.CreateProduct(context.Background(), form, nil)
			assert.ErrorIs(t, err, inErrors.ErrInvalidForm)
			assert.Equal(t, int32(0), calls.Load())
		})
	}
}

func TestCategoryLifecycle(t *testing.T) {
	c := context.Background()
	deleted := ""
	svc, _ := newService(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			assert.NoError(t, r.ParseMultipartForm(1<<20))
			assert.Equal(t, "Shirts", r.FormValue("name"))
			assert.Len(t, r.MultipartForm.File["image"], 1)
			json.NewEncoder(w).Encode(map[string]any{"category": map[string]any{"_id": "C1", "name": "Shirts"}})
		case http.MethodDelete:
			deleted = r.URL.Path
			w.WriteHeader(http.StatusNoContent)
		}
	})
	require.NoError(t, svc.SetToken(c, "admin-token"))

	category, err := svc.CreateCategory(c, CategoryForm{Name: "Shirts"}, inHttp.File{
		Name:   "shirts.png",
		Reader: strings.NewReader("png"),
	})
	require.NoError(t, err)
	assert.Equal(t, "C1", category.ID)

	require.NoError(t, svc.DeleteCategory(c, "C1"))
	assert.Equal(t, "/categories/C1", deleted)
}
