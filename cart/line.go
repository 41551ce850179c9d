package cart

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Key identifies a line. Lines of the same product with different sizes are
// distinct; a line without a size is keyed by the product alone.
type Key struct {
	ProductID string `json:"productId"`
	Size      string `json:"size,omitempty"`
}

func (k Key) String() string {
	if k.Size == "" {
		return k.ProductID
	}
	return fmt.Sprintf("%s/%s", k.ProductID, k.Size)
}

type Line struct {
	ProductID           string              `json:"productId"`
	Title               string              `json:"title"`
	Image               string              `json:"image,omitempty"`
	UnitPrice           decimal.Decimal     `json:"unitPrice"`
	DiscountedUnitPrice decimal.NullDecimal `json:"discountedUnitPrice"`
	Quantity            int                 `json:"quantity"`
	Size                string              `json:"selectedSize,omitempty"`
	AvailableStock      int                 `json:"availableStock"`
}

func (l Line) Key() Key {
	return Key{ProductID: l.ProductID, Size: l.Size}
}

func (l Line) EffectiveUnitPrice() decimal.Decimal {
	if l.DiscountedUnitPrice.Valid {
		return l.DiscountedUnitPrice.Decimal
	}
	return l.UnitPrice
}

func (l Line) Subtotal() decimal.Decimal {
	return l.EffectiveUnitPrice().Mul(decimal.NewFromInt(int64(l.Quantity)))
}

func (l Line) MarshalZerologObject(e *zerolog.Event) {
	e.Str("productId", l.ProductID).
		Str("size", l.Size).
		Int("quantity", l.Quantity).
		Int("availableStock", l.AvailableStock).
		Str("unitPrice", l.EffectiveUnitPrice().String())
}

// Summary is the rendered view of the cart: its lines and the totals derived
// from them.
type Summary struct {
	Lines      []Line          `json:"lines"`
	TotalItems int             `json:"totalItems"`
	TotalPrice decimal.Decimal `json:"totalPrice"`
}

func totalItems(lines []Line) int {
	total := 0
	for _, l := range lines {
		total += l.Quantity
	}
	return total
}

func totalPrice(lines []Line) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

func stockMessage(available int) string {
	return fmt.Sprintf("%d left in stock", available)
}
