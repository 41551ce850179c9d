package order

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alturino/storefront/internal/config"
	inErrors "github.com/Alturino/storefront/internal/errors"
	inHttp "github.com/Alturino/storefront/internal/http"
	"github.com/Alturino/storefront/internal/storage"
)

var paidAt = time.Date(2026, 10, 1, 9, 30, 0, 0, time.UTC)

func backend(t *testing.T, calls *atomic.Int32) *inHttp.Client {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/orders/transaction/", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		switch r.URL.Path {
		case "/orders/transaction/TXN001":
			json.NewEncoder(w).Encode(map[string]any{
				"order": map[string]any{
					"transactionId": "TXN001",
					"totalPrice":    "50000",
					"isPaid":        true,
					"paidAt":        paidAt,
					"cartItems": []map[string]any{
						{"product": "P1", "title": "Shirt", "price": "25000", "quantity": 2, "selectedSize": "M"},
					},
				},
			})
		case "/orders/transaction/BROKEN":
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(map[string]any{"message": "boom"})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	mux.HandleFunc("/orders/verify-payment-test/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		json.NewEncoder(w).Encode(map[string]any{
			"transactionId": "TXN002",
			"totalPrice":    "12000",
			"isPaid":        true,
			"paidAt":        paidAt,
		})
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return inHttp.NewClient(config.Api{BaseURL: server.URL})
}

func TestLookup(t *testing.T) {
	testCases := []struct {
		desc        string
		id          string
		wantErr     error
		wantMessage string
		wantPaid    bool
	}{
		{
			desc:     "given known paid order should show it with paidAt",
			id:       "TXN001",
			wantPaid: true,
		},
		{
			desc:        "given unknown transaction id should report not found",
			id:          "NOPE",
			wantErr:     inErrors.ErrOrderNotFound,
			wantMessage: MessageNotFound,
		},
		{
			desc:        "given blank transaction id should not call backend",
			id:          "   ",
			wantErr:     inErrors.ErrOrderNotFound,
			wantMessage: MessageMissingID,
		},
	}
	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			calls := atomic.Int32{}
			tracker := NewTracker(backend(t, &calls))

			o, err := tracker.Lookup(context.Background(), tC.id)
			view := tracker.View()
			if tC.wantErr != nil {
				assert.ErrorIs(t, err, tC.wantErr)
				assert.Nil(t, view.Order)
				assert.Equal(t, tC.wantMessage, view.Message)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tC.wantPaid, o.IsPaid)
			require.NotNil(t, o.PaidAt)
			assert.True(t, paidAt.Equal(*o.PaidAt))
			assert.True(t, decimal.NewFromInt(50000).Equal(o.TotalPrice))
			require.NotNil(t, view.Order)
			assert.Empty(t, view.Message)
		})
	}
}

func TestFailedLookupClearsPreviousResult(t *testing.T) {
	calls := atomic.Int32{}
	tracker := NewTracker(backend(t, &calls))
	c := context.Background()

	_, err := tracker.Lookup(c, "TXN001")
	require.NoError(t, err)
	require.NotNil(t, tracker.View().Order)

	_, err = tracker.Lookup(c, "BROKEN")
	require.Error(t, err)
	assert.Nil(t, tracker.View().Order)
	assert.Equal(t, MessageFailedLoading, tracker.View().Message)
	assert.Equal(t, int32(2), calls.Load())
}

func TestRefreshAndDeepLink(t *testing.T) {
	calls := atomic.Int32{}
	tracker := NewTracker(backend(t, &calls))
	c := context.Background()

	view, err := tracker.FromDeepLink(c, "TXN001")
	require.NoError(t, err)
	require.NotNil(t, view.Order)

	_, err = tracker.FromDeepLink(c, "TXN001")
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())

	_, err = tracker.Refresh(c)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestVerifyPaymentReplacesDisplayedOrder(t *testing.T) {
	calls := atomic.Int32{}
	tracker := NewTracker(backend(t, &calls))

	o, err := tracker.VerifyPayment(context.Background(), "TXN002", true)
	require.NoError(t, err)
	assert.True(t, o.IsPaid)
	require.NotNil(t, tracker.View().Order)
	assert.Equal(t, "TXN002", tracker.View().Order.TransactionID)
}

func TestGuestOrders(t *testing.T) {
	c := context.Background()
	s := storage.NewMemoryStorage()
	orders, err := LoadGuestOrders(c, s)
	require.NoError(t, err)
	assert.Empty(t, orders.List())

	older := GuestOrder{TransactionID: "TXN001", CreatedAt: paidAt, TotalPrice: decimal.NewFromInt(50000)}
	newer := GuestOrder{TransactionID: "TXN002", CreatedAt: paidAt.Add(time.Hour), TotalPrice: decimal.NewFromInt(12000)}
	require.NoError(t, orders.Append(c, older))
	require.NoError(t, orders.Append(c, newer))
	require.NoError(t, orders.Append(c, older))

	reloaded, err := LoadGuestOrders(c, s)
	require.NoError(t, err)
	list := reloaded.List()
	require.Len(t, list, 2)
	assert.Equal(t, "TXN002", list[0].TransactionID)
	assert.Equal(t, "TXN001", list[1].TransactionID)
}
