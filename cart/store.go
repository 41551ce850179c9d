// Package cart holds the shopper's cart: lines keyed by product and size,
// each capped by the stock snapshot taken when it was last checked.
package cart

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Alturino/storefront/catalog"
	inErrors "github.com/Alturino/storefront/internal/errors"
	"github.com/Alturino/storefront/internal/log"
	"github.com/Alturino/storefront/internal/metrics"
	"github.com/Alturino/storefront/internal/otel"
	"github.com/Alturino/storefront/internal/storage"
)

// Outcome reports whether a mutation was applied. A rejected outcome is a
// business decision, not an error: Message tells the shopper why.
type Outcome struct {
	Accepted bool   `json:"accepted"`
	Message  string `json:"message,omitempty"`
	Line     Line   `json:"line"`
}

type Store struct {
	mu        sync.Mutex
	storage   storage.Storage
	lines     []Line
	listeners []Listener
}

// NewStore loads the persisted cart before returning, so no mutation can be
// overwritten by a late hydration. A corrupt value starts an empty cart.
func NewStore(c context.Context, s storage.Storage, opts ...Option) (*Store, error) {
	c, span := otel.Tracer.Start(c, "CartStore NewStore")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartStore NewStore").
		Str(log.KeyProcess, "hydrating cart").
		Logger()

	store := &Store{storage: s, lines: []Line{}}
	for _, opt := range opts {
		opt(store)
	}

	logger.Debug().Msg("hydrating cart")
	lines := []Line{}
	found, err := storage.GetJSON(c, s, storage.KeyCart, &lines)
	if err != nil && !found {
		err = fmt.Errorf("failed hydrating cart with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	if err != nil {
		logger.Warn().Err(err).Msg("persisted cart is corrupt, starting empty")
		return store, nil
	}
	for _, l := range lines {
		if l.Quantity <= 0 || l.ProductID == "" {
			continue
		}
		if l.Quantity > l.AvailableStock {
			if l.AvailableStock <= 0 {
				logger.Warn().Object(log.KeyCartLine, l).Msg("persisted line has no stock, dropping it")
				continue
			}
			logger.Warn().Object(log.KeyCartLine, l).Msg("persisted line exceeds stock, clamping it")
			l.Quantity = l.AvailableStock
		}
		store.lines = append(store.lines, l)
	}
	logger.Debug().Int(log.KeyCartLines, len(store.lines)).Msg("hydrated cart")

	return store, nil
}

// mutate runs fn under the store lock and delivers the events it returns
// once the lock is released.
func (s *Store) mutate(c context.Context, fn func() ([]Event, error)) error {
	s.mu.Lock()
	events, err := fn()
	s.mu.Unlock()
	for _, e := range events {
		for _, l := range s.listeners {
			l(c, e)
		}
	}
	return err
}

func (s *Store) persist(c context.Context, lines []Line) error {
	if err := storage.SetJSON(c, s.storage, storage.KeyCart, lines); err != nil {
		return fmt.Errorf("failed persisting cart with error=%w", err)
	}
	return nil
}

func (s *Store) index(key Key) int {
	for i, l := range s.lines {
		if l.Key() == key {
			return i
		}
	}
	return -1
}

// match finds the line addressed by productID and size. An empty size only
// addresses the size-less line; when the product exists solely with sizes
// the caller has to say which one.
func (s *Store) match(productID, size string) (int, error) {
	i := s.index(Key{ProductID: productID, Size: size})
	if i >= 0 || size != "" {
		return i, nil
	}
	for _, l := range s.lines {
		if l.ProductID == productID {
			return -1, fmt.Errorf("productId=%s with error=%w", productID, inErrors.ErrSizeRequired)
		}
	}
	return -1, nil
}

func (s *Store) clone() []Line {
	lines := make([]Line, len(s.lines))
	copy(lines, s.lines)
	return lines
}

// Add puts quantity units of product in the cart, merging with the line of
// the same key. A quantity <= 0 adds one unit. It is rejected when the line
// would hold more than the stock for size.
func (s *Store) Add(
	c context.Context,
	product catalog.Product,
	size string,
	quantity int,
) (Outcome, error) {
	c, span := otel.Tracer.Start(
		c,
		"CartStore Add",
		trace.WithAttributes(
			attribute.String(log.KeyProductID, product.ID),
			attribute.String(log.KeySize, size),
			attribute.Int(log.KeyQuantity, quantity),
		),
	)
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartStore Add").
		Str(log.KeyProductID, product.ID).
		Str(log.KeySize, size).
		Logger()

	if quantity <= 0 {
		quantity = 1
	}
	logger = logger.With().Int(log.KeyQuantity, quantity).Logger()

	logger = logger.With().Str(log.KeyProcess, "computing available stock").Logger()
	logger.Trace().Msg("computing available stock")
	available, err := product.StockFor(size)
	if err != nil {
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		metrics.CartMutations.WithLabelValues("add", metrics.OutcomeError).Inc()
		return Outcome{}, err
	}
	logger = logger.With().Int(log.KeyAvailableStock, available).Logger()
	logger.Trace().Msg("computed available stock")

	outcome := Outcome{}
	err = s.mutate(c, func() ([]Event, error) {
		key := Key{ProductID: product.ID, Size: size}
		i := s.index(key)

		line := Line{
			ProductID:      product.ID,
			Title:          product.Title,
			Image:          product.Image(),
			UnitPrice:      product.Price,
			Size:           size,
			AvailableStock: available,
		}
		if product.DiscountedPrice.Valid && product.DiscountedPrice.Decimal.IsPositive() {
			line.DiscountedUnitPrice = product.DiscountedPrice
		}
		if i >= 0 {
			line.Quantity = s.lines[i].Quantity
		}

		logger = logger.With().Str(log.KeyProcess, "validating stock").Logger()
		if quantity > available-line.Quantity {
			if i >= 0 {
				outcome.Line = s.lines[i]
			}
			outcome.Message = stockMessage(available)
			logger.Info().Int("existingQuantity", line.Quantity).Msg(outcome.Message)
			span.AddEvent("rejected by stock limit")
			return []Event{{
				Kind:     EventStockLimited,
				Key:      key,
				Quantity: line.Quantity,
				Message:  outcome.Message,
			}}, nil
		}
		line.Quantity += quantity

		logger = logger.With().Str(log.KeyProcess, "persisting cart").Logger()
		logger.Trace().Msg("persisting cart")
		next := s.clone()
		kind := EventLineUpdated
		if i >= 0 {
			next[i] = line
		} else {
			next = append(next, line)
			kind = EventLineAdded
		}
		if err := s.persist(c, next); err != nil {
			return nil, err
		}
		s.lines = next
		logger.Info().Object(log.KeyCartLine, line).Msg("added to cart")

		outcome.Accepted = true
		outcome.Line = line
		return []Event{{Kind: kind, Key: key, Quantity: line.Quantity}}, nil
	})
	if err != nil {
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		metrics.CartMutations.WithLabelValues("add", metrics.OutcomeError).Inc()
		return Outcome{}, err
	}
	metrics.CartMutations.WithLabelValues("add", outcomeLabel(outcome)).Inc()

	return outcome, nil
}

// Remove deletes the line addressed by productID and size. Removing a line
// that is not in the cart is a no-op.
func (s *Store) Remove(c context.Context, productID, size string) (bool, error) {
	c, span := otel.Tracer.Start(
		c,
		"CartStore Remove",
		trace.WithAttributes(
			attribute.String(log.KeyProductID, productID),
			attribute.String(log.KeySize, size),
		),
	)
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartStore Remove").
		Str(log.KeyProcess, "removing line").
		Str(log.KeyProductID, productID).
		Str(log.KeySize, size).
		Logger()

	removed := false
	err := s.mutate(c, func() ([]Event, error) {
		events, err := s.removeLocked(c, productID, size)
		removed = len(events) > 0
		return events, err
	})
	if err != nil {
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		metrics.CartMutations.WithLabelValues("remove", metrics.OutcomeError).Inc()
		return false, err
	}
	if !removed {
		logger.Debug().Msg("line not in cart")
		metrics.CartMutations.WithLabelValues("remove", metrics.OutcomeNoop).Inc()
		return false, nil
	}
	logger.Info().Msg("removed line")
	metrics.CartMutations.WithLabelValues("remove", metrics.OutcomeAccepted).Inc()

	return true, nil
}

func (s *Store) removeLocked(c context.Context, productID, size string) ([]Event, error) {
	i, err := s.match(productID, size)
	if err != nil || i < 0 {
		return nil, err
	}
	removed := s.lines[i]
	next := make([]Line, 0, len(s.lines)-1)
	next = append(next, s.lines[:i]...)
	next = append(next, s.lines[i+1:]...)
	if err := s.persist(c, next); err != nil {
		return nil, err
	}
	s.lines = next
	return []Event{{
		Kind:    EventLineRemoved,
		Key:     removed.Key(),
		Message: fmt.Sprintf("%s removed from cart", removed.Title),
	}}, nil
}

// UpdateQuantity sets the quantity of an existing line. A quantity <= 0
// removes the line; a quantity above the line's stock is rejected.
func (s *Store) UpdateQuantity(
	c context.Context,
	productID string,
	quantity int,
	size string,
) (Outcome, error) {
	c, span := otel.Tracer.Start(
		c,
		"CartStore UpdateQuantity",
		trace.WithAttributes(
			attribute.String(log.KeyProductID, productID),
			attribute.String(log.KeySize, size),
			attribute.Int(log.KeyQuantity, quantity),
		),
	)
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartStore UpdateQuantity").
		Str(log.KeyProcess, "updating quantity").
		Str(log.KeyProductID, productID).
		Str(log.KeySize, size).
		Int(log.KeyQuantity, quantity).
		Logger()

	outcome := Outcome{}
	err := s.mutate(c, func() ([]Event, error) {
		if quantity <= 0 {
			logger.Debug().Msg("quantity is not positive, removing line")
			events, err := s.removeLocked(c, productID, size)
			outcome.Accepted = len(events) > 0
			return events, err
		}

		i, err := s.match(productID, size)
		if err != nil {
			return nil, err
		}
		if i < 0 {
			logger.Debug().Msg("line not in cart")
			return nil, nil
		}

		line := s.lines[i]
		if quantity > line.AvailableStock {
			outcome.Line = line
			outcome.Message = stockMessage(line.AvailableStock)
			logger.Info().Int(log.KeyAvailableStock, line.AvailableStock).Msg(outcome.Message)
			return []Event{{
				Kind:     EventStockLimited,
				Key:      line.Key(),
				Quantity: line.Quantity,
				Message:  outcome.Message,
			}}, nil
		}

		line.Quantity = quantity
		next := s.clone()
		next[i] = line
		if err := s.persist(c, next); err != nil {
			return nil, err
		}
		s.lines = next

		outcome.Accepted = true
		outcome.Line = line
		return []Event{{Kind: EventLineUpdated, Key: line.Key(), Quantity: line.Quantity}}, nil
	})
	if err != nil {
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		metrics.CartMutations.WithLabelValues("update", metrics.OutcomeError).Inc()
		return Outcome{}, err
	}
	logger.Info().Bool("accepted", outcome.Accepted).Msg("updated quantity")
	metrics.CartMutations.WithLabelValues("update", outcomeLabel(outcome)).Inc()

	return outcome, nil
}

// Reconcile refreshes the stock snapshot of every line of the given
// products. Lines holding more than the new stock are cut down to it, and
// removed when the product ran out.
func (s *Store) Reconcile(c context.Context, products []catalog.Product) ([]Event, error) {
	c, span := otel.Tracer.Start(c, "CartStore Reconcile")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartStore Reconcile").
		Str(log.KeyProcess, "reconciling stock").
		Logger()

	byID := make(map[string]catalog.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	adjusted := []Event{}
	err := s.mutate(c, func() ([]Event, error) {
		next := make([]Line, 0, len(s.lines))
		changed := false
		for _, line := range s.lines {
			product, ok := byID[line.ProductID]
			if !ok {
				next = append(next, line)
				continue
			}
			available, err := product.StockFor(line.Size)
			if err != nil {
				available = 0
			}
			if available != line.AvailableStock {
				changed = true
				line.AvailableStock = available
			}
			if line.Quantity <= available {
				next = append(next, line)
				continue
			}
			changed = true
			if available <= 0 {
				adjusted = append(adjusted, Event{
					Kind:    EventLineRemoved,
					Key:     line.Key(),
					Message: fmt.Sprintf("%s is out of stock", line.Title),
				})
				continue
			}
			line.Quantity = available
			next = append(next, line)
			adjusted = append(adjusted, Event{
				Kind:     EventStockLimited,
				Key:      line.Key(),
				Quantity: available,
				Message:  stockMessage(available),
			})
		}
		if !changed {
			return nil, nil
		}
		if err := s.persist(c, next); err != nil {
			adjusted = nil
			return nil, err
		}
		s.lines = next
		return adjusted, nil
	})
	if err != nil {
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	logger.Info().Int("adjusted", len(adjusted)).Msg("reconciled stock")

	return adjusted, nil
}

// RemoveOrdered takes the ordered quantities out of the cart. Units added to
// a line after the order snapshot stay, as do lines that were not ordered.
func (s *Store) RemoveOrdered(c context.Context, ordered []Line) error {
	c, span := otel.Tracer.Start(
		c,
		"CartStore RemoveOrdered",
		trace.WithAttributes(attribute.Int(log.KeyCartLines, len(ordered))),
	)
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartStore RemoveOrdered").
		Str(log.KeyProcess, "removing ordered lines").
		Logger()

	orderedQuantity := make(map[Key]int, len(ordered))
	for _, l := range ordered {
		orderedQuantity[l.Key()] += l.Quantity
	}

	kept := 0
	err := s.mutate(c, func() ([]Event, error) {
		next := make([]Line, 0, len(s.lines))
		events := []Event{}
		for _, line := range s.lines {
			quantity, ok := orderedQuantity[line.Key()]
			if !ok {
				next = append(next, line)
				continue
			}
			if line.Quantity > quantity {
				line.Quantity -= quantity
				next = append(next, line)
				events = append(events, Event{Kind: EventLineUpdated, Key: line.Key(), Quantity: line.Quantity})
				continue
			}
			events = append(events, Event{
				Kind:    EventLineRemoved,
				Key:     line.Key(),
				Message: fmt.Sprintf("%s removed from cart", line.Title),
			})
		}
		if err := s.persist(c, next); err != nil {
			return nil, err
		}
		s.lines = next
		kept = len(next)
		if kept == 0 {
			events = append(events, Event{Kind: EventCleared})
		}
		return events, nil
	})
	if err != nil {
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		metrics.CartMutations.WithLabelValues("clear", metrics.OutcomeError).Inc()
		return err
	}
	logger.Info().Int(log.KeyCartLines, kept).Msg("removed ordered lines")
	metrics.CartMutations.WithLabelValues("clear", metrics.OutcomeAccepted).Inc()

	return nil
}

func (s *Store) Clear(c context.Context) error {
	c, span := otel.Tracer.Start(c, "CartStore Clear")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartStore Clear").
		Str(log.KeyProcess, "clearing cart").
		Logger()

	err := s.mutate(c, func() ([]Event, error) {
		if err := s.persist(c, []Line{}); err != nil {
			return nil, err
		}
		s.lines = []Line{}
		return []Event{{Kind: EventCleared}}, nil
	})
	if err != nil {
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		metrics.CartMutations.WithLabelValues("clear", metrics.OutcomeError).Inc()
		return err
	}
	logger.Info().Msg("cleared cart")
	metrics.CartMutations.WithLabelValues("clear", metrics.OutcomeAccepted).Inc()

	return nil
}

// IsInCart reports whether the line exists. With an empty size it matches
// any line of the product.
func (s *Store) IsInCart(productID, size string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if size != "" {
		return s.index(Key{ProductID: productID, Size: size}) >= 0
	}
	for _, l := range s.lines {
		if l.ProductID == productID {
			return true
		}
	}
	return false
}

func (s *Store) Lines() []Line {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clone()
}

func (s *Store) IsEmpty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.lines) == 0
}

func (s *Store) TotalItems() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return totalItems(s.lines)
}

func (s *Store) TotalPrice() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return totalPrice(s.lines)
}

func (s *Store) Summary() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Summary{
		Lines:      s.clone(),
		TotalItems: totalItems(s.lines),
		TotalPrice: totalPrice(s.lines),
	}
}

func outcomeLabel(o Outcome) string {
	if o.Accepted {
		return metrics.OutcomeAccepted
	}
	return metrics.OutcomeRejected
}
