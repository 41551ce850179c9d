package checkout

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alturino/storefront/cart"
	"github.com/Alturino/storefront/catalog"
	"github.com/Alturino/storefront/internal/config"
	inErrors "github.com/Alturino/storefront/internal/errors"
	inHttp "github.com/Alturino/storefront/internal/http"
	"github.com/Alturino/storefront/internal/storage"
	"github.com/Alturino/storefront/order"
	"github.com/Alturino/storefront/user"
)

var validShipping = order.ShippingAddress{
	FullName: "Bat Erdene",
	Email:    "bat@example.mn",
	Phone:    "+976 9911-2233",
	Address:  "Peace Avenue 12",
	City:     "Ulaanbaatar",
}

type fakeBackend struct {
	mu       sync.Mutex
	calls    atomic.Int32
	fail     bool
	keys     []string
	auth     []string
	received []submission
	// onOrder runs while the order request is being handled.
	onOrder func()
}

func (b *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.calls.Add(1)
	if b.onOrder != nil {
		b.onOrder()
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.keys = append(b.keys, r.Header.Get(inHttp.HeaderIdempotencyKey))
	b.auth = append(b.auth, r.Header.Get(inHttp.HeaderAuthorization))
	if b.fail {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]any{"message": "database unavailable"})
		return
	}
	body := submission{}
	json.NewDecoder(r.Body).Decode(&body)
	b.received = append(b.received, body)
	json.NewEncoder(w).Encode(map[string]any{
		"order": map[string]any{
			"transactionId":   "TXN001",
			"totalOrderPrice": body.TotalPrice.String(),
			"createdAt":       time.Date(2026, 10, 15, 10, 0, 0, 0, time.UTC),
		},
		"bankDetails": map[string]any{
			"bankName":      "Khan Bank",
			"accountNumber": "5000123456",
			"accountName":   "Storefront LLC",
			"transactionId": "TXN001",
		},
	})
}

type fixture struct {
	flow    *Flow
	cart    *cart.Store
	session *user.Session
	guests  *order.GuestOrders
	backend *fakeBackend
	client  *inHttp.Client
	storage storage.Storage
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	c := context.Background()
	backend := &fakeBackend{}
	server := httptest.NewServer(backend)
	t.Cleanup(server.Close)

	s := storage.NewMemoryStorage()
	carts, err := cart.NewStore(c, s)
	require.NoError(t, err)
	session, err := user.LoadSession(c, s)
	require.NoError(t, err)
	guests, err := order.LoadGuestOrders(c, s)
	require.NoError(t, err)

	client := inHttp.NewClient(config.Api{BaseURL: server.URL})
	return fixture{
		flow:    NewFlow(c, client, carts, session, guests, s),
		cart:    carts,
		session: session,
		guests:  guests,
		backend: backend,
		client:  client,
		storage: s,
	}
}

func fillCart(t *testing.T, carts *cart.Store) {
	t.Helper()
	shirt := catalog.Product{
		ID:    "P1",
		Title: "Shirt",
		Price: decimal.NewFromInt(25000),
		Stock: 10,
		Sizes: []catalog.SizeVariant{{Size: "M", Stock: 3}},
	}
	outcome, err := carts.Add(context.Background(), shirt, "M", 2)
	require.NoError(t, err)
	require.True(t, outcome.Accepted)
}

func TestSubmitScenario(t *testing.T) {
	f := newFixture(t)
	fillCart(t, f.cart)
	require.True(t, decimal.NewFromInt(50000).Equal(f.cart.TotalPrice()))
	before := f.cart.Lines()

	result, err := f.flow.Submit(context.Background(), validShipping)
	require.NoError(t, err)

	assert.Equal(t, "TXN001", result.Order.TransactionID)
	assert.True(t, f.cart.IsEmpty())
	assert.Equal(t, before, result.OrderedItems)
	assert.NotEmpty(t, result.OrderedItems)
	assert.Equal(t, "Khan Bank", result.BankDetails.BankName)

	snapshot := f.flow.Snapshot()
	assert.Equal(t, StateAwaitingPayment, snapshot.State)
	require.NotNil(t, snapshot.Result)

	require.Len(t, f.backend.received, 1)
	sent := f.backend.received[0]
	assert.True(t, decimal.NewFromInt(50000).Equal(sent.TotalPrice))
	require.Len(t, sent.CartItems, 1)
	assert.Equal(t, "M", sent.CartItems[0].Size)
	assert.Empty(t, sent.UserID)
	assert.Equal(t, snapshot.IdempotencyKey, f.backend.keys[0])
}

func TestSubmitRejectedBeforeNetworkCall(t *testing.T) {
	testCases := []struct {
		desc        string
		fill        bool
		shipping    order.ShippingAddress
		wantErr     error
		wantMessage string
	}{
		{
			desc:        "given empty cart should stay filling",
			shipping:    validShipping,
			wantErr:     inErrors.ErrEmptyCart,
			wantMessage: MessageEmptyCart,
		},
		{
			desc: "given missing city should ask for all fields",
			fill: true,
			shipping: func() order.ShippingAddress {
				s := validShipping
				s.City = ""
				return s
			}(),
			wantErr:     inErrors.ErrInvalidShipping,
			wantMessage: MessageMissingFields,
		},
		{
			desc: "given email without dot should reject email",
			fill: true,
			shipping: func() order.ShippingAddress {
				s := validShipping
				s.Email = "bat@example"
				return s
			}(),
			wantErr:     inErrors.ErrInvalidShipping,
			wantMessage: MessageInvalidEmail,
		},
		{
			desc: "given phone with seven digits should reject phone",
			fill: true,
			shipping: func() order.ShippingAddress {
				s := validShipping
				s.Phone = "99-11-223"
				return s
			}(),
			wantErr:     inErrors.ErrInvalidShipping,
			wantMessage: MessageInvalidPhone,
		},
	}
	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			f := newFixture(t)
			if tC.fill {
				fillCart(t, f.cart)
			}

			_, err := f.flow.Submit(context.Background(), tC.shipping)
			assert.ErrorIs(t, err, tC.wantErr)
			snapshot := f.flow.Snapshot()
			assert.Equal(t, StateFilling, snapshot.State)
			assert.Equal(t, tC.wantMessage, snapshot.Message)
			assert.Equal(t, int32(0), f.backend.calls.Load())
			assert.Equal(t, tC.fill, !f.cart.IsEmpty())
		})
	}
}

func TestFailedSubmitKeepsCartAndReusesKey(t *testing.T) {
	f := newFixture(t)
	fillCart(t, f.cart)
	f.backend.fail = true

	_, err := f.flow.Submit(context.Background(), validShipping)
	require.Error(t, err)
	assert.Equal(t, StateFilling, f.flow.Snapshot().State)
	assert.Equal(t, MessageFailed, f.flow.Snapshot().Message)
	assert.Equal(t, 2, f.cart.TotalItems())

	f.backend.fail = false
	_, err = f.flow.Submit(context.Background(), validShipping)
	require.NoError(t, err)
	require.Len(t, f.backend.keys, 2)
	assert.Equal(t, f.backend.keys[0], f.backend.keys[1])
}

func TestGuestOrderIsRemembered(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.session.ContinueAsGuest(context.Background()))
	fillCart(t, f.cart)

	_, err := f.flow.Submit(context.Background(), validShipping)
	require.NoError(t, err)

	guests := f.guests.List()
	require.Len(t, guests, 1)
	assert.Equal(t, "TXN001", guests[0].TransactionID)
	assert.Equal(t, validShipping.Email, guests[0].Email)
	assert.True(t, decimal.NewFromInt(50000).Equal(guests[0].TotalPrice))
}

func TestAuthenticatedOrderCarriesUser(t *testing.T) {
	f := newFixture(t)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte("backend-secret"))
	require.NoError(t, err)
	require.NoError(t, f.session.SignIn(context.Background(), user.User{ID: "U1"}, token))
	fillCart(t, f.cart)

	_, err = f.flow.Submit(context.Background(), validShipping)
	require.NoError(t, err)

	assert.Equal(t, "U1", f.backend.received[0].UserID)
	assert.Equal(t, "Bearer "+token, f.backend.auth[0])
	assert.Empty(t, f.guests.List())
}

func TestStateTransitions(t *testing.T) {
	f := newFixture(t)
	c := context.Background()
	assert.ErrorIs(t, f.flow.Finish(c), inErrors.ErrCheckoutState)

	fillCart(t, f.cart)
	_, err := f.flow.Submit(c, validShipping)
	require.NoError(t, err)
	key := f.flow.Snapshot().IdempotencyKey

	_, err = f.flow.Submit(c, validShipping)
	assert.ErrorIs(t, err, inErrors.ErrCheckoutState)

	require.NoError(t, f.flow.Finish(c))
	assert.Equal(t, StateDone, f.flow.Snapshot().State)

	require.NoError(t, f.flow.Reset(c))
	snapshot := f.flow.Snapshot()
	assert.Equal(t, StateFilling, snapshot.State)
	assert.Nil(t, snapshot.Result)
	assert.NotEqual(t, key, snapshot.IdempotencyKey)
}

func TestLinesAddedDuringSubmitStayInCart(t *testing.T) {
	f := newFixture(t)
	fillCart(t, f.cart)
	mug := catalog.Product{ID: "P2", Title: "Mug", Price: decimal.NewFromInt(12000), Stock: 5}
	f.backend.onOrder = func() {
		outcome, err := f.cart.Add(context.Background(), mug, "", 1)
		assert.NoError(t, err)
		assert.True(t, outcome.Accepted)
	}

	result, err := f.flow.Submit(context.Background(), validShipping)
	require.NoError(t, err)

	require.Len(t, result.OrderedItems, 1)
	require.Len(t, f.backend.received[0].CartItems, 1)
	assert.True(t, decimal.NewFromInt(50000).Equal(f.backend.received[0].TotalPrice))
	lines := f.cart.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, "P2", lines[0].ProductID)
}

func TestRejectedSubmitDoesNotDisturbSubmissionInFlight(t *testing.T) {
	f := newFixture(t)
	fillCart(t, f.cart)
	arrived := make(chan struct{})
	release := make(chan struct{})
	f.backend.onOrder = func() {
		close(arrived)
		<-release
	}

	done := make(chan error, 1)
	go func() {
		_, err := f.flow.Submit(context.Background(), validShipping)
		done <- err
	}()
	<-arrived

	invalid := validShipping
	invalid.Email = "nope"
	_, err := f.flow.Submit(context.Background(), invalid)
	assert.ErrorIs(t, err, inErrors.ErrCheckoutState)
	snapshot := f.flow.Snapshot()
	assert.Equal(t, StateSubmitting, snapshot.State)
	assert.Empty(t, snapshot.Message)

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, StateAwaitingPayment, f.flow.Snapshot().State)
	assert.Equal(t, int32(1), f.backend.calls.Load())
}

func TestPendingKeySurvivesNewFlow(t *testing.T) {
	c := context.Background()
	f := newFixture(t)
	fillCart(t, f.cart)
	f.backend.fail = true

	_, err := f.flow.Submit(c, validShipping)
	require.Error(t, err)

	f.backend.fail = false
	retry := NewFlow(c, f.client, f.cart, f.session, f.guests, f.storage)
	assert.Equal(t, f.flow.Snapshot().IdempotencyKey, retry.Snapshot().IdempotencyKey)
	_, err = retry.Submit(c, validShipping)
	require.NoError(t, err)
	require.Len(t, f.backend.keys, 2)
	assert.Equal(t, f.backend.keys[0], f.backend.keys[1])

	next := NewFlow(c, f.client, f.cart, f.session, f.guests, f.storage)
	assert.NotEqual(t, f.backend.keys[0], next.Snapshot().IdempotencyKey)
}

func TestResetDropsPendingKey(t *testing.T) {
	c := context.Background()
	f := newFixture(t)
	fillCart(t, f.cart)
	f.backend.fail = true

	_, err := f.flow.Submit(c, validShipping)
	require.Error(t, err)
	require.NoError(t, f.flow.Reset(c))

	next := NewFlow(c, f.client, f.cart, f.session, f.guests, f.storage)
	assert.NotEqual(t, f.backend.keys[0], next.Snapshot().IdempotencyKey)
}

func TestNormalizePhone(t *testing.T) {
	assert.Equal(t, "97699112233", NormalizePhone("+976 9911-2233"))
	assert.Equal(t, "", NormalizePhone("phone"))
}
