package admin

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/Alturino/storefront/catalog"
)

type CategoryForm struct {
	Name string `json:"name" validate:"required"`
}

type ProductForm struct {
	Title           string                `json:"title"         validate:"required"`
	Description     string                `json:"description"   validate:"required"`
	Price           decimal.Decimal       `json:"price"`
	DiscountedPrice decimal.NullDecimal   `json:"discountPrice"`
	Stock           int                   `json:"stock"         validate:"gte=0"`
	Category        string                `json:"category"      validate:"required"`
	Sizes           []catalog.SizeVariant `json:"sizes"         validate:"dive"`
}

func (f ProductForm) MarshalZerologObject(e *zerolog.Event) {
	e.Str("title", f.Title).
		Str("price", f.Price.String()).
		Int("stock", f.Stock).
		Str("category", f.Category).
		Int("sizes", len(f.Sizes))
}

// check covers the rules struct tags cannot express on decimals.
func (f ProductForm) check() error {
	if !f.Price.IsPositive() {
		return fmt.Errorf("price=%s must be positive", f.Price)
	}
	if f.DiscountedPrice.Valid {
		if f.DiscountedPrice.Decimal.IsNegative() || f.DiscountedPrice.Decimal.GreaterThanOrEqual(f.Price) {
			return fmt.Errorf("discountPrice=%s must be below price=%s", f.DiscountedPrice.Decimal, f.Price)
		}
	}
	seen := map[string]struct{}{}
	for _, size := range f.Sizes {
		if size.Size == "" {
			return fmt.Errorf("size name is required")
		}
		if size.Stock < 0 {
			return fmt.Errorf("size=%s stock=%d must not be negative", size.Size, size.Stock)
		}
		if _, ok := seen[size.Size]; ok {
			return fmt.Errorf("size=%s is listed twice", size.Size)
		}
		seen[size.Size] = struct{}{}
	}
	return nil
}

// fields renders the form the way the upload endpoint reads it: scalars as
// text, sizes as a JSON array.
func (f ProductForm) fields() (map[string]string, error) {
	sizes := f.Sizes
	if sizes == nil {
		sizes = []catalog.SizeVariant{}
	}
	rawSizes, err := json.Marshal(sizes)
	if err != nil {
		return nil, fmt.Errorf("failed encoding sizes with error=%w", err)
	}
	fields := map[string]string{
		"title":       f.Title,
		"description": f.Description,
		"price":       f.Price.String(),
		"stock":       strconv.Itoa(f.Stock),
		"category":    f.Category,
		"sizes":       string(rawSizes),
	}
	if f.DiscountedPrice.Valid {
		fields["discountPrice"] = f.DiscountedPrice.Decimal.String()
	}
	return fields, nil
}
