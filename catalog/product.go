package catalog

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	inErrors "github.com/Alturino/storefront/internal/errors"
)

// SizeVariant is one row of a product's size table.
type SizeVariant struct {
	Size  string `json:"size"  validate:"required"`
	Stock int    `json:"stock" validate:"gte=0"`
}

type Product struct {
	ID              string              `json:"_id"`
	Title           string              `json:"title"`
	Description     string              `json:"description,omitempty"`
	Price           decimal.Decimal     `json:"price"`
	DiscountedPrice decimal.NullDecimal `json:"discountPrice"`
	Stock           int                 `json:"stock"`
	Sizes           []SizeVariant       `json:"sizes,omitempty"`
	Images          []string            `json:"images,omitempty"`
	Category        CategoryRef         `json:"category"`
	CreatedAt       time.Time           `json:"createdAt,omitempty"`
}

// EffectivePrice is the discounted price when one is set, the list price
// otherwise.
func (p Product) EffectivePrice() decimal.Decimal {
	if p.DiscountedPrice.Valid && p.DiscountedPrice.Decimal.IsPositive() {
		return p.DiscountedPrice.Decimal
	}
	return p.Price
}

func (p Product) HasSizes() bool {
	return len(p.Sizes) > 0
}

// StockFor returns the stock ceiling for size, or the general stock when
// size is empty.
func (p Product) StockFor(size string) (int, error) {
	if size == "" {
		return p.Stock, nil
	}
	for _, variant := range p.Sizes {
		if variant.Size == size {
			return variant.Stock, nil
		}
	}
	return 0, fmt.Errorf("productId=%s size=%s with error=%w", p.ID, size, inErrors.ErrUnknownSize)
}

func (p Product) Image() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}
