package middleware

import (
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	inHttp "github.com/Alturino/storefront/internal/http"
	"github.com/Alturino/storefront/internal/otel"
)

func RecoverPanic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, span := otel.Tracer.Start(r.Context(), "middleware RecoverPanic")
		defer span.End()

		logger := zerolog.Ctx(c).With().Logger()
		defer func() {
			if v := recover(); v != nil {
				err, ok := v.(error)
				if !ok {
					err = fmt.Errorf("panic: %v", v)
				}
				logger.Error().Err(err).Stack().Msg("recovered from panic")
				otel.RecordError(err, span)
				inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
					"status":     "failed",
					"statusCode": http.StatusInternalServerError,
					"message":    "Internal Server Error",
				})
			}
		}()

		next.ServeHTTP(w, r.WithContext(c))
	})
}
