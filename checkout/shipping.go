package checkout

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	inErrors "github.com/Alturino/storefront/internal/errors"
	"github.com/Alturino/storefront/order"
)

const (
	MessageMissingFields = "Please fill in all shipping fields"
	MessageInvalidEmail  = "Please enter a valid email address"
	MessageInvalidPhone  = "Phone number must have at least 8 digits"
	MessageEmptyCart     = "Your cart is empty"
	MessageFailed        = "Failed to place order, please try again"

	minPhoneDigits = 8
)

// NormalizePhone keeps only the digits of phone.
func NormalizePhone(phone string) string {
	b := strings.Builder{}
	for _, r := range phone {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterValidation("loose_email", func(fl validator.FieldLevel) bool {
		email := fl.Field().String()
		return strings.Contains(email, "@") && strings.Contains(email, ".")
	})
	v.RegisterValidation("phone_digits", func(fl validator.FieldLevel) bool {
		return len(NormalizePhone(fl.Field().String())) >= minPhoneDigits
	})
	return v
}

// validateShipping returns the message shown next to the form and an error
// wrapping ErrInvalidShipping, or "" and nil when the form is complete.
func validateShipping(v *validator.Validate, shipping order.ShippingAddress) (string, error) {
	shipping.FullName = strings.TrimSpace(shipping.FullName)
	shipping.Address = strings.TrimSpace(shipping.Address)
	shipping.City = strings.TrimSpace(shipping.City)
	err := v.Struct(shipping)
	if err == nil {
		return "", nil
	}

	fieldErrs := validator.ValidationErrors{}
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return MessageMissingFields, fmt.Errorf("%w: %w", inErrors.ErrInvalidShipping, err)
	}
	message := MessageMissingFields
	for _, fe := range fieldErrs {
		if fe.Tag() == "required" {
			message = MessageMissingFields
			break
		}
		switch fe.Tag() {
		case "loose_email":
			message = MessageInvalidEmail
		case "phone_digits":
			message = MessageInvalidPhone
		}
	}
	return message, fmt.Errorf("%w: field=%s tag=%s", inErrors.ErrInvalidShipping, fieldErrs[0].Field(), fieldErrs[0].Tag())
}
