package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	inErrors "github.com/Alturino/storefront/internal/errors"
	inHttp "github.com/Alturino/storefront/internal/http"
	"github.com/Alturino/storefront/internal/log"
	"github.com/Alturino/storefront/internal/metrics"
	"github.com/Alturino/storefront/internal/otel"
)

const (
	MessageNotFound      = "Order not found"
	MessageFailedLoading = "Failed to load order"
	MessageMissingID     = "Transaction id is required"
)

// View is what the tracking page shows: the order, or why there is none.
type View struct {
	TransactionID string `json:"transactionId"`
	Order         *Order `json:"order,omitempty"`
	Message       string `json:"message,omitempty"`
}

// Tracker looks orders up by transaction id. It never caches and never
// retries; every lookup is one request.
type Tracker struct {
	client     *inHttp.Client
	mu         sync.Mutex
	view       View
	deepLinked bool
}

func NewTracker(client *inHttp.Client) *Tracker {
	return &Tracker{client: client}
}

func (t *Tracker) View() View {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.view
}

func (t *Tracker) setView(v View) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.view = v
}

func (t *Tracker) Lookup(c context.Context, transactionID string) (Order, error) {
	transactionID = strings.TrimSpace(transactionID)
	c, span := otel.Tracer.Start(
		c,
		"OrderTracker Lookup",
		trace.WithAttributes(attribute.String(log.KeyTransactionID, transactionID)),
	)
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "OrderTracker Lookup").
		Str(log.KeyProcess, "finding order by transactionId").
		Str(log.KeyTransactionID, transactionID).
		Logger()

	if transactionID == "" {
		t.setView(View{Message: MessageMissingID})
		err := fmt.Errorf("empty transactionId with error=%w", inErrors.ErrOrderNotFound)
		logger.Info().Err(err).Msg(err.Error())
		metrics.OrderLookups.WithLabelValues(metrics.OutcomeRejected).Inc()
		return Order{}, err
	}

	logger.Info().Msg("finding order by transactionId")
	body := struct {
		Order *Order `json:"order"`
	}{}
	err := t.client.Do(
		c,
		inHttp.Request{
			Method: http.MethodGet,
			Path:   "/orders/transaction/" + url.PathEscape(transactionID),
		},
		&body,
	)
	if errors.Is(err, inErrors.ErrNotFound) || (err == nil && body.Order == nil) {
		t.setView(View{TransactionID: transactionID, Message: MessageNotFound})
		err = fmt.Errorf("transactionId=%s with error=%w", transactionID, inErrors.ErrOrderNotFound)
		otel.RecordError(err, span)
		logger.Info().Err(err).Msg(err.Error())
		metrics.OrderLookups.WithLabelValues("not_found").Inc()
		return Order{}, err
	}
	if err != nil {
		t.setView(View{TransactionID: transactionID, Message: MessageFailedLoading})
		err = fmt.Errorf("failed finding order by transactionId=%s with error=%w", transactionID, err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		metrics.OrderLookups.WithLabelValues(metrics.OutcomeError).Inc()
		return Order{}, err
	}
	t.setView(View{TransactionID: transactionID, Order: body.Order})
	logger.Info().Bool("isPaid", body.Order.IsPaid).Msg("found order by transactionId")
	metrics.OrderLookups.WithLabelValues("found").Inc()

	return *body.Order, nil
}

// Refresh repeats the last lookup.
func (t *Tracker) Refresh(c context.Context) (Order, error) {
	return t.Lookup(c, t.View().TransactionID)
}

// FromDeepLink looks transactionID up the first time it is called and
// returns the current view afterwards.
func (t *Tracker) FromDeepLink(c context.Context, transactionID string) (View, error) {
	t.mu.Lock()
	already := t.deepLinked
	t.deepLinked = true
	t.mu.Unlock()
	if already {
		return t.View(), nil
	}
	_, err := t.Lookup(c, transactionID)
	return t.View(), err
}

// VerifyPayment asks the backend to confirm the bank transfer of
// transactionID. test selects the sandbox endpoint.
func (t *Tracker) VerifyPayment(c context.Context, transactionID string, test bool) (Order, error) {
	c, span := otel.Tracer.Start(
		c,
		"OrderTracker VerifyPayment",
		trace.WithAttributes(attribute.String(log.KeyTransactionID, transactionID)),
	)
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "OrderTracker VerifyPayment").
		Str(log.KeyProcess, "verifying payment").
		Str(log.KeyTransactionID, transactionID).
		Bool("test", test).
		Logger()

	path := "/orders/verify-payment/"
	if test {
		path = "/orders/verify-payment-test/"
	}

	logger.Info().Msg("verifying payment")
	raw := json.RawMessage{}
	err := t.client.Do(
		c,
		inHttp.Request{Method: http.MethodPost, Path: path + url.PathEscape(transactionID)},
		&raw,
	)
	if err != nil {
		err = fmt.Errorf("failed verifying payment of transactionId=%s with error=%w", transactionID, err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return Order{}, err
	}

	o, err := decodeOrder(raw)
	if err != nil {
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return Order{}, err
	}
	t.setView(View{TransactionID: transactionID, Order: &o})
	logger.Info().Bool("isPaid", o.IsPaid).Msg("verified payment")

	return o, nil
}

// decodeOrder accepts both {"order": {...}} and a bare order.
func decodeOrder(raw json.RawMessage) (Order, error) {
	wrapped := struct {
		Order *Order `json:"order"`
	}{}
	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.Order != nil {
		return *wrapped.Order, nil
	}
	o := Order{}
	if err := json.Unmarshal(raw, &o); err != nil {
		return Order{}, fmt.Errorf("failed decoding order with error=%w", err)
	}
	return o, nil
}
