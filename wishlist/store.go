// Package wishlist is a persisted set of products the shopper saved for
// later. It has no quantities and no stock rules.
package wishlist

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/Alturino/storefront/cart"
	"github.com/Alturino/storefront/catalog"
	"github.com/Alturino/storefront/internal/log"
	"github.com/Alturino/storefront/internal/metrics"
	"github.com/Alturino/storefront/internal/otel"
	"github.com/Alturino/storefront/internal/storage"
)

type Entry struct {
	ProductID string          `json:"productId"`
	Title     string          `json:"title"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Image     string          `json:"image,omitempty"`
}

func EntryFromProduct(p catalog.Product) Entry {
	return Entry{
		ProductID: p.ID,
		Title:     p.Title,
		UnitPrice: p.EffectivePrice(),
		Image:     p.Image(),
	}
}

type Store struct {
	mu      sync.Mutex
	storage storage.Storage
	entries []Entry
}

func NewStore(c context.Context, s storage.Storage) (*Store, error) {
	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "WishlistStore NewStore").
		Str(log.KeyProcess, "hydrating wishlist").
		Logger()

	store := &Store{storage: s, entries: []Entry{}}
	entries := []Entry{}
	found, err := storage.GetJSON(c, s, storage.KeyWishlist, &entries)
	if err != nil && !found {
		err = fmt.Errorf("failed hydrating wishlist with error=%w", err)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	if err != nil {
		logger.Warn().Err(err).Msg("persisted wishlist is corrupt, starting empty")
		return store, nil
	}
	seen := map[string]bool{}
	for _, e := range entries {
		if e.ProductID == "" || seen[e.ProductID] {
			continue
		}
		seen[e.ProductID] = true
		store.entries = append(store.entries, e)
	}
	logger.Debug().Int(log.KeyWishlistEntries, len(store.entries)).Msg("hydrated wishlist")

	return store, nil
}

func (s *Store) indexLocked(productID string) int {
	for i, e := range s.entries {
		if e.ProductID == productID {
			return i
		}
	}
	return -1
}

func (s *Store) persistLocked(c context.Context, entries []Entry) error {
	if err := storage.SetJSON(c, s.storage, storage.KeyWishlist, entries); err != nil {
		return fmt.Errorf("failed persisting wishlist with error=%w", err)
	}
	s.entries = entries
	return nil
}

// Add inserts entry unless its product is already present. It reports
// whether the wishlist changed.
func (s *Store) Add(c context.Context, entry Entry) (bool, error) {
	c, span := otel.Tracer.Start(c, "WishlistStore Add")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "WishlistStore Add").
		Str(log.KeyProductID, entry.ProductID).
		Logger()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexLocked(entry.ProductID) >= 0 {
		logger.Debug().Msg("already in wishlist")
		return false, nil
	}
	next := append(append(make([]Entry, 0, len(s.entries)+1), s.entries...), entry)
	if err := s.persistLocked(c, next); err != nil {
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return false, err
	}
	logger.Info().Msg("added to wishlist")
	metrics.WishlistMutations.WithLabelValues("add").Inc()

	return true, nil
}

func (s *Store) Remove(c context.Context, productID string) (bool, error) {
	c, span := otel.Tracer.Start(c, "WishlistStore Remove")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "WishlistStore Remove").
		Str(log.KeyProductID, productID).
		Logger()

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(productID)
	if i < 0 {
		logger.Debug().Msg("not in wishlist")
		return false, nil
	}
	next := make([]Entry, 0, len(s.entries)-1)
	next = append(next, s.entries[:i]...)
	next = append(next, s.entries[i+1:]...)
	if err := s.persistLocked(c, next); err != nil {
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return false, err
	}
	logger.Info().Msg("removed from wishlist")
	metrics.WishlistMutations.WithLabelValues("remove").Inc()

	return true, nil
}

// Toggle removes the product when present and adds it otherwise. It returns
// the membership after the call.
func (s *Store) Toggle(c context.Context, entry Entry) (bool, error) {
	if s.Contains(entry.ProductID) {
		_, err := s.Remove(c, entry.ProductID)
		return false, err
	}
	_, err := s.Add(c, entry)
	return err == nil, err
}

func (s *Store) Contains(productID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.indexLocked(productID) >= 0
}

func (s *Store) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := make([]Entry, len(s.entries))
	copy(entries, s.entries)
	return entries
}

// MoveToCart adds product to the cart and drops it from the wishlist when
// the cart accepted it.
func (s *Store) MoveToCart(
	c context.Context,
	carts *cart.Store,
	product catalog.Product,
	size string,
) (cart.Outcome, error) {
	outcome, err := carts.Add(c, product, size, 1)
	if err != nil || !outcome.Accepted {
		return outcome, err
	}
	if _, err := s.Remove(c, product.ID); err != nil {
		return outcome, err
	}
	return outcome, nil
}
