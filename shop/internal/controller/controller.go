// Package controller exposes the shopper stores over HTTP.
package controller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	inErrors "github.com/Alturino/storefront/internal/errors"
	inHttp "github.com/Alturino/storefront/internal/http"
	"github.com/Alturino/storefront/internal/log"
	"github.com/Alturino/storefront/internal/otel"
	"github.com/Alturino/storefront/internal/session"
)

// statusFor maps domain errors onto the status code the shopper sees.
func statusFor(err error) int {
	apiErr := &inErrors.APIError{}
	validationErrs := validator.ValidationErrors{}
	switch {
	case errors.Is(err, inErrors.ErrNotFound), errors.Is(err, inErrors.ErrOrderNotFound):
		return http.StatusNotFound
	case errors.Is(err, inErrors.ErrEmptyAuth), errors.Is(err, inErrors.ErrTokenInvalid):
		return http.StatusUnauthorized
	case errors.Is(err, inErrors.ErrCheckoutState):
		return http.StatusConflict
	case errors.Is(err, inErrors.ErrEmptyCart),
		errors.Is(err, inErrors.ErrInvalidShipping),
		errors.Is(err, inErrors.ErrInvalidForm),
		errors.Is(err, inErrors.ErrSizeRequired),
		errors.Is(err, inErrors.ErrUnknownSize),
		errors.As(err, &validationErrs):
		return http.StatusBadRequest
	case errors.As(err, &apiErr):
		if apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 {
			return apiErr.StatusCode
		}
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func fail(c context.Context, w http.ResponseWriter, span trace.Span, err error) {
	otel.RecordError(err, span)
	zerolog.Ctx(c).Error().Err(err).Msg(err.Error())
	inHttp.WriteFailed(c, w, statusFor(err), err)
}

func failWith(c context.Context, w http.ResponseWriter, span trace.Span, statusCode int, err error) {
	otel.RecordError(err, span)
	zerolog.Ctx(c).Error().Err(err).Msg(err.Error())
	inHttp.WriteFailed(c, w, statusCode, err)
}

func decode(r *http.Request, out any) error {
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		return fmt.Errorf("failed decoding request body with error=%w", err)
	}
	return nil
}

// sessionOf resolves the shopper session attached by the session middleware.
func sessionOf(c context.Context, registry *session.Registry) (*session.Session, error) {
	id := log.SessionIDFromContext(c)
	if id == "" {
		return nil, inErrors.ErrMissingSessionID
	}
	return registry.Get(c, id)
}

var validate = validator.New(validator.WithRequiredStructEnabled())
