package order

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/Alturino/storefront/internal/log"
	"github.com/Alturino/storefront/internal/storage"
)

// GuestOrder is the durable reference a guest keeps to find an order again
// without an account.
type GuestOrder struct {
	TransactionID string          `json:"transactionId"`
	CreatedAt     time.Time       `json:"createdAt"`
	TotalPrice    decimal.Decimal `json:"totalPrice"`
	Email         string          `json:"email"`
}

type GuestOrders struct {
	mu      sync.Mutex
	storage storage.Storage
	orders  []GuestOrder
}

func LoadGuestOrders(c context.Context, s storage.Storage) (*GuestOrders, error) {
	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "GuestOrders LoadGuestOrders").
		Logger()

	g := &GuestOrders{storage: s, orders: []GuestOrder{}}
	orders := []GuestOrder{}
	found, err := storage.GetJSON(c, s, storage.KeyGuestOrders, &orders)
	if err != nil && !found {
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	if err != nil {
		logger.Warn().Err(err).Msg("persisted guest orders are corrupt, starting empty")
		return g, nil
	}
	g.orders = orders
	return g, nil
}

// Append records o unless its transaction id is already known.
func (g *GuestOrders) Append(c context.Context, o GuestOrder) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, existing := range g.orders {
		if existing.TransactionID == o.TransactionID {
			return nil
		}
	}
	next := append(append(make([]GuestOrder, 0, len(g.orders)+1), g.orders...), o)
	if err := storage.SetJSON(c, g.storage, storage.KeyGuestOrders, next); err != nil {
		return fmt.Errorf("failed persisting guest orders with error=%w", err)
	}
	g.orders = next
	return nil
}

// List returns the guest orders, newest first.
func (g *GuestOrders) List() []GuestOrder {
	g.mu.Lock()
	defer g.mu.Unlock()
	orders := make([]GuestOrder, len(g.orders))
	copy(orders, g.orders)
	sort.SliceStable(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
	return orders
}
