package order

import (
	"time"

	"github.com/shopspring/decimal"
)

type Item struct {
	ProductID string          `json:"product"`
	Title     string          `json:"title"`
	Image     string          `json:"image,omitempty"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	Size      string          `json:"selectedSize,omitempty"`
}

// ShippingAddress doubles as the checkout form. Email and phone get the
// storefront's loose rules, see the checkout package.
type ShippingAddress struct {
	FullName string `json:"fullName" validate:"required"`
	Email    string `json:"email"    validate:"required,loose_email"`
	Phone    string `json:"phone"    validate:"required,phone_digits"`
	Address  string `json:"address"  validate:"required"`
	City     string `json:"city"     validate:"required"`
	Note     string `json:"note,omitempty"`
}

// Order is owned by the backend; the client only reads it.
type Order struct {
	ID              string          `json:"_id,omitempty"`
	TransactionID   string          `json:"transactionId"`
	CartItems       []Item          `json:"cartItems"`
	TotalPrice      decimal.Decimal `json:"totalPrice"`
	ShippingAddress ShippingAddress `json:"shippingAddress"`
	IsPaid          bool            `json:"isPaid"`
	IsDelivered     bool            `json:"isDelivered"`
	CreatedAt       time.Time       `json:"createdAt"`
	PaidAt          *time.Time      `json:"paidAt,omitempty"`
	DeliveredAt     *time.Time      `json:"deliveredAt,omitempty"`
}
