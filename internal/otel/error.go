package otel

import (
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	inErrors "github.com/Alturino/storefront/internal/errors"
)

// RecordError attaches err to span. Missing records are expected outcomes of
// lookups and leave the span status unset.
func RecordError(err error, span trace.Span) {
	if err == nil {
		return
	}
	span.RecordError(err)

	apiErr := &inErrors.APIError{}
	if errors.As(err, &apiErr) {
		span.SetAttributes(attribute.Int("backend.status_code", apiErr.StatusCode))
	}
	if errors.Is(err, inErrors.ErrNotFound) || errors.Is(err, inErrors.ErrOrderNotFound) {
		return
	}
	span.SetStatus(codes.Error, err.Error())
}
