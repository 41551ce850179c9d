package errors

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrEmptyAuth          = errors.New("missing authorization")
	ErrTokenInvalid       = errors.New("invalid token")
	ErrUnknownSize        = errors.New("size is not available for this product")
	ErrSizeRequired       = errors.New("size is required to identify the cart line")
	ErrEmptyCart          = errors.New("cart is empty")
	ErrInvalidShipping    = errors.New("invalid shipping information")
	ErrInvalidForm        = errors.New("invalid form")
	ErrCheckoutState      = errors.New("checkout is not in a state that allows this action")
	ErrOrderNotFound      = errors.New("order not found")
	ErrMissingSessionID   = errors.New("missing session id")
	ErrUnsupportedBackend = errors.New("unsupported storage backend")
)

// APIError is a non-2xx answer from the storefront backend.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend responded statusCode=%d message=%s", e.StatusCode, e.Message)
}
