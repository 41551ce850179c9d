// Package checkout turns the cart into a bank-transfer order.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"

	"github.com/Alturino/storefront/cart"
	inErrors "github.com/Alturino/storefront/internal/errors"
	inHttp "github.com/Alturino/storefront/internal/http"
	"github.com/Alturino/storefront/internal/log"
	"github.com/Alturino/storefront/internal/metrics"
	"github.com/Alturino/storefront/internal/otel"
	"github.com/Alturino/storefront/internal/storage"
	"github.com/Alturino/storefront/order"
	"github.com/Alturino/storefront/user"
)

type State string

const (
	StateFilling         State = "filling"
	StateSubmitting      State = "submitting"
	StateAwaitingPayment State = "awaiting_payment"
	StateDone            State = "done"
)

type CreatedOrder struct {
	TransactionID   string          `json:"transactionId"`
	TotalOrderPrice decimal.Decimal `json:"totalOrderPrice"`
	CreatedAt       time.Time       `json:"createdAt"`
}

type BankDetails struct {
	BankName      string `json:"bankName"`
	AccountNumber string `json:"accountNumber"`
	AccountName   string `json:"accountName"`
	TransactionID string `json:"transactionId"`
}

// Result is what the payment instructions view shows. OrderedItems is the
// cart as it was right before it got cleared.
type Result struct {
	Order        CreatedOrder `json:"order"`
	BankDetails  BankDetails  `json:"bankDetails"`
	OrderedItems []cart.Line  `json:"orderedItems"`
}

type Snapshot struct {
	State          State   `json:"state"`
	Message        string  `json:"message,omitempty"`
	IdempotencyKey string  `json:"idempotencyKey"`
	Result         *Result `json:"result,omitempty"`
}

type submission struct {
	CartItems       []order.Item          `json:"cartItems"`
	ShippingAddress order.ShippingAddress `json:"shippingAddress"`
	TotalPrice      decimal.Decimal       `json:"totalPrice"`
	UserID          string                `json:"userId,omitempty"`
}

type Flow struct {
	client      *inHttp.Client
	storage     storage.Storage
	cart        *cart.Store
	session     *user.Session
	guestOrders *order.GuestOrders
	validate    *validator.Validate

	mu             sync.Mutex
	state          State
	message        string
	idempotencyKey string
	result         *Result
}

// NewFlow starts a checkout attempt. A key left in storage by an attempt that
// never got an answer is picked up again, so retrying from a new process
// cannot place the order twice.
func NewFlow(
	c context.Context,
	client *inHttp.Client,
	carts *cart.Store,
	session *user.Session,
	guestOrders *order.GuestOrders,
	s storage.Storage,
) *Flow {
	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CheckoutFlow NewFlow").
		Str(log.KeyProcess, "loading pending idempotency key").
		Logger()

	idempotencyKey := ""
	found, err := storage.GetJSON(c, s, storage.KeyCheckoutKey, &idempotencyKey)
	switch {
	case err != nil:
		logger.Warn().Err(err).Msg("failed loading pending idempotency key, issuing a new one")
		idempotencyKey = ""
	case found && idempotencyKey != "":
		logger.Info().Str(log.KeyIdempotencyKey, idempotencyKey).Msg("resuming pending checkout attempt")
	}
	if idempotencyKey == "" {
		idempotencyKey = uuid.NewString()
	}

	return &Flow{
		client:         client,
		storage:        s,
		cart:           carts,
		session:        session,
		guestOrders:    guestOrders,
		validate:       newValidator(),
		state:          StateFilling,
		idempotencyKey: idempotencyKey,
	}
}

func (f *Flow) Snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return Snapshot{
		State:          f.state,
		Message:        f.message,
		IdempotencyKey: f.idempotencyKey,
		Result:         f.result,
	}
}

func (f *Flow) fail(state State, message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = state
	f.message = message
}

// Submit places the order for the current cart. Validation failures and
// backend failures leave the flow in StateFilling with a message and the
// cart untouched. A retry after a failure reuses the idempotency key.
func (f *Flow) Submit(c context.Context, shipping order.ShippingAddress) (Result, error) {
	c, span := otel.Tracer.Start(c, "CheckoutFlow Submit")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CheckoutFlow Submit").
		Logger()

	logger = logger.With().Str(log.KeyProcess, "validating checkout").Logger()
	logger.Trace().Msg("validating checkout")
	summary := f.cart.Summary()
	message, invalid, outcome := "", error(nil), ""
	if len(summary.Lines) == 0 {
		message, invalid, outcome = MessageEmptyCart, inErrors.ErrEmptyCart, "empty_cart"
	} else if msg, err := validateShipping(f.validate, shipping); err != nil {
		message, invalid, outcome = msg, err, "invalid"
	}

	// The state check and every write it guards happen under one lock, so a
	// rejected call never touches an attempt that is already in flight.
	f.mu.Lock()
	if f.state != StateFilling {
		state := f.state
		f.mu.Unlock()
		err := fmt.Errorf("submit in state=%s with error=%w", state, inErrors.ErrCheckoutState)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return Result{}, err
	}
	if invalid != nil {
		f.message = message
		f.mu.Unlock()
		logger.Info().Err(invalid).Msg(message)
		metrics.CheckoutSubmissions.WithLabelValues(outcome).Inc()
		return Result{}, invalid
	}
	f.state = StateSubmitting
	f.message = ""
	idempotencyKey := f.idempotencyKey
	f.mu.Unlock()
	logger = logger.With().Str(log.KeyIdempotencyKey, idempotencyKey).Logger()
	span.SetAttributes(attribute.String(log.KeyIdempotencyKey, idempotencyKey))
	logger.Trace().Msg("validated checkout")

	logger = logger.With().Str(log.KeyProcess, "saving pending idempotency key").Logger()
	logger.Trace().Msg("saving pending idempotency key")
	if err := storage.SetJSON(c, f.storage, storage.KeyCheckoutKey, idempotencyKey); err != nil {
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
	} else {
		logger.Trace().Msg("saved pending idempotency key")
	}

	lines := summary.Lines
	body := submission{
		CartItems:       make([]order.Item, 0, len(lines)),
		ShippingAddress: shipping,
		TotalPrice:      summary.TotalPrice,
	}
	for _, line := range lines {
		body.CartItems = append(body.CartItems, order.Item{
			ProductID: line.ProductID,
			Title:     line.Title,
			Image:     line.Image,
			Price:     line.EffectiveUnitPrice(),
			Quantity:  line.Quantity,
			Size:      line.Size,
		})
	}
	token := ""
	if f.session != nil && f.session.Authenticated() {
		token = f.session.Token()
		if u, ok := f.session.User(); ok {
			body.UserID = u.ID
			logger = logger.With().Str(log.KeyUserID, u.ID).Logger()
		}
	}
	logger = logger.With().Str(log.KeyCartTotalPrice, body.TotalPrice.String()).Logger()

	logger = logger.With().Str(log.KeyProcess, "creating bank transfer order").Logger()
	logger.Info().Msg("creating bank transfer order")
	resp := struct {
		Order       CreatedOrder `json:"order"`
		BankDetails BankDetails  `json:"bankDetails"`
	}{}
	err := f.client.Do(
		c,
		inHttp.Request{
			Method: http.MethodPost,
			Path:   "/orders/bank-transfer",
			Body:   body,
			Token:  token,
			Header: map[string]string{inHttp.HeaderIdempotencyKey: idempotencyKey},
		},
		&resp,
	)
	if err != nil {
		f.fail(StateFilling, MessageFailed)
		err = fmt.Errorf("failed creating bank transfer order with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		metrics.CheckoutSubmissions.WithLabelValues(metrics.OutcomeError).Inc()
		return Result{}, err
	}
	logger = logger.With().Str(log.KeyTransactionID, resp.Order.TransactionID).Logger()
	span.SetAttributes(attribute.String(log.KeyTransactionID, resp.Order.TransactionID))
	logger.Info().Msg("created bank transfer order")

	result := Result{Order: resp.Order, BankDetails: resp.BankDetails, OrderedItems: lines}
	if result.BankDetails.TransactionID == "" {
		result.BankDetails.TransactionID = resp.Order.TransactionID
	}

	// The order exists on the backend from here on, so local failures are
	// logged but do not undo the transition.
	logger = logger.With().Str(log.KeyProcess, "removing ordered lines").Logger()
	logger.Trace().Msg("removing ordered lines")
	if err := f.cart.RemoveOrdered(c, lines); err != nil {
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
	} else {
		logger.Trace().Msg("removed ordered lines")
	}
	if err := f.storage.Delete(c, storage.KeyCheckoutKey); err != nil && !errors.Is(err, storage.ErrNotFound) {
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
	}

	if f.session == nil || !f.session.Authenticated() {
		logger = logger.With().Str(log.KeyProcess, "remembering guest order").Logger()
		logger.Trace().Msg("remembering guest order")
		createdAt := resp.Order.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now()
		}
		total := resp.Order.TotalOrderPrice
		if total.IsZero() {
			total = body.TotalPrice
		}
		err := f.guestOrders.Append(c, order.GuestOrder{
			TransactionID: resp.Order.TransactionID,
			CreatedAt:     createdAt,
			TotalPrice:    total,
			Email:         shipping.Email,
		})
		if err != nil {
			otel.RecordError(err, span)
			logger.Error().Err(err).Msg(err.Error())
		} else {
			logger.Trace().Msg("remembered guest order")
		}
	}

	f.mu.Lock()
	f.state = StateAwaitingPayment
	f.result = &result
	f.mu.Unlock()
	metrics.CheckoutSubmissions.WithLabelValues(metrics.OutcomeAccepted).Inc()

	return result, nil
}

// Finish leaves the payment instructions view.
func (f *Flow) Finish(c context.Context) error {
	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CheckoutFlow Finish").
		Logger()

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != StateAwaitingPayment {
		err := fmt.Errorf("finish in state=%s with error=%w", f.state, inErrors.ErrCheckoutState)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	f.state = StateDone
	logger.Info().Msg("finished checkout")
	return nil
}

// Reset starts a new checkout attempt with a fresh idempotency key. It is
// refused while a submission is in flight.
func (f *Flow) Reset(c context.Context) error {
	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CheckoutFlow Reset").
		Logger()

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == StateSubmitting {
		err := fmt.Errorf("reset in state=%s with error=%w", f.state, inErrors.ErrCheckoutState)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	if err := f.storage.Delete(c, storage.KeyCheckoutKey); err != nil && !errors.Is(err, storage.ErrNotFound) {
		err = fmt.Errorf("failed dropping pending idempotency key with error=%w", err)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	f.state = StateFilling
	f.message = ""
	f.result = nil
	f.idempotencyKey = uuid.NewString()
	logger.Info().Str(log.KeyIdempotencyKey, f.idempotencyKey).Msg("reset checkout")
	return nil
}
