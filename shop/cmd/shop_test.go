package cmd

import (
	"bytes"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alturino/storefront/catalog"
	"github.com/Alturino/storefront/internal/config"
	inHttp "github.com/Alturino/storefront/internal/http"
	"github.com/Alturino/storefront/internal/session"
	"github.com/Alturino/storefront/internal/storage"
)

type envelope struct {
	Status     string          `json:"status"`
	StatusCode int             `json:"statusCode"`
	Message    string          `json:"message"`
	Data       json.RawMessage `json:"data"`
}

func fakeBackend(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/products/P1", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"product": map[string]any{
				"_id":   "P1",
				"title": "Shirt",
				"price": "25000",
				"stock": 10,
				"sizes": []map[string]any{{"size": "M", "stock": 3}},
			},
		})
	})
	mux.HandleFunc("/orders/bank-transfer", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"order": map[string]any{
				"transactionId":   "TXN001",
				"totalOrderPrice": "50000",
				"createdAt":       time.Date(2026, 10, 15, 10, 0, 0, 0, time.UTC),
			},
			"bankDetails": map[string]any{"bankName": "Khan Bank", "transactionId": "TXN001"},
		})
	})
	mux.HandleFunc("/orders/transaction/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func newShop(t *testing.T) http.Handler {
	t.Helper()
	client := inHttp.NewClient(config.Api{BaseURL: fakeBackend(t).URL})
	registry := session.NewRegistry(storage.NewMemoryStorage(), client, 0)
	return NewRouter(registry, catalog.NewService(client))
}

func call(t *testing.T, h http.Handler, sessionID, method, target string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set(inHttp.HeaderContentType, inHttp.HeaderValueJson)
	if sessionID != "" {
		req.Header.Set(inHttp.HeaderSessionID, sessionID)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	resp := envelope{}
	if rec.Header().Get(inHttp.HeaderContentType) == inHttp.HeaderValueJson {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	}
	return rec, resp
}

func TestSessionHeaderIsIssuedAndEchoed(t *testing.T) {
	h := newShop(t)

	rec, _ := call(t, h, "", http.MethodGet, "/cart", nil)
	issued := rec.Header().Get(inHttp.HeaderSessionID)
	_, err := uuid.Parse(issued)
	require.NoError(t, err)

	rec, _ = call(t, h, issued, http.MethodGet, "/cart", nil)
	assert.Equal(t, issued, rec.Header().Get(inHttp.HeaderSessionID))
}

func TestCartAndCheckoutOverHTTP(t *testing.T) {
	h := newShop(t)
	sessionID := uuid.NewString()

	rec, resp := call(t, h, sessionID, http.MethodPost, "/cart", map[string]any{
		"productId": "P1", "selectedSize": "M", "quantity": 2,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "success", resp.Status)

	rec, resp = call(t, h, sessionID, http.MethodPost, "/cart", map[string]any{
		"productId": "P1", "selectedSize": "M", "quantity": 2,
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "3 left in stock", resp.Message)

	_, resp = call(t, h, sessionID, http.MethodGet, "/cart", nil)
	summary := struct {
		Cart struct {
			TotalItems int    `json:"totalItems"`
			TotalPrice string `json:"totalPrice"`
		} `json:"cart"`
	}{}
	require.NoError(t, json.Unmarshal(resp.Data, &summary))
	assert.Equal(t, 2, summary.Cart.TotalItems)
	assert.Equal(t, "50000", summary.Cart.TotalPrice)

	rec, resp = call(t, h, sessionID, http.MethodPost, "/checkout", map[string]any{
		"fullName": "Bat Erdene",
		"email":    "bat@example.mn",
		"phone":    "99112233",
		"address":  "Peace Avenue 12",
		"city":     "Ulaanbaatar",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	placed := struct {
		Order struct {
			TransactionID string `json:"transactionId"`
		} `json:"order"`
		OrderedItems []json.RawMessage `json:"orderedItems"`
	}{}
	require.NoError(t, json.Unmarshal(resp.Data, &placed))
	assert.Equal(t, "TXN001", placed.Order.TransactionID)
	assert.Len(t, placed.OrderedItems, 1)

	_, resp = call(t, h, sessionID, http.MethodGet, "/cart", nil)
	require.NoError(t, json.Unmarshal(resp.Data, &summary))
	assert.Equal(t, 0, summary.Cart.TotalItems)

	_, resp = call(t, h, sessionID, http.MethodGet, "/orders/guest", nil)
	guests := struct {
		Orders []struct {
			TransactionID string `json:"transactionId"`
		} `json:"orders"`
	}{}
	require.NoError(t, json.Unmarshal(resp.Data, &guests))
	require.Len(t, guests.Orders, 1)
	assert.Equal(t, "TXN001", guests.Orders[0].TransactionID)

	rec, _ = call(t, h, sessionID, http.MethodPost, "/checkout", map[string]any{})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAddQuantityIsBounded(t *testing.T) {
	h := newShop(t)
	sessionID := uuid.NewString()

	rec, _ := call(t, h, sessionID, http.MethodPost, "/cart", map[string]any{
		"productId": "P1", "selectedSize": "M", "quantity": math.MaxInt64,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	_, resp := call(t, h, sessionID, http.MethodGet, "/cart", nil)
	summary := struct {
		Cart struct {
			TotalItems int `json:"totalItems"`
		} `json:"cart"`
	}{}
	require.NoError(t, json.Unmarshal(resp.Data, &summary))
	assert.Zero(t, summary.Cart.TotalItems)
}

func TestEmptyCartCheckoutIsBadRequest(t *testing.T) {
	h := newShop(t)
	rec, resp := call(t, h, uuid.NewString(), http.MethodPost, "/checkout", map[string]any{
		"fullName": "Bat", "email": "bat@example.mn", "phone": "99112233",
		"address": "Peace Avenue", "city": "Ulaanbaatar",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Your cart is empty", resp.Message)
}

func TestUnknownOrderIsNotFound(t *testing.T) {
	h := newShop(t)
	rec, resp := call(t, h, uuid.NewString(), http.MethodGet, "/orders/NOPE", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Order not found", resp.Message)
}

func TestAdminRequiresBearerToken(t *testing.T) {
	h := newShop(t)
	rec, _ := call(t, h, uuid.NewString(), http.MethodDelete, "/admin/products/P1", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMetricsAreExposed(t *testing.T) {
	h := newShop(t)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "storefront_shop_active_sessions")
}
