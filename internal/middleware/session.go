package middleware

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	inHttp "github.com/Alturino/storefront/internal/http"
	"github.com/Alturino/storefront/internal/log"
)

// Session reads the shopper session id from X-Session-ID, issuing a new one
// when the header is missing, and echoes it back on the response.
func Session(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionID := r.Header.Get(inHttp.HeaderSessionID)
		if _, err := uuid.Parse(sessionID); err != nil {
			sessionID = uuid.NewString()
		}

		logger := zerolog.Ctx(r.Context()).With().Str(log.KeySessionID, sessionID).Logger()
		logger.Trace().Msg("attached session id")

		c := log.AttachSessionIDToContext(r.Context(), sessionID)
		c = logger.WithContext(c)
		w.Header().Set(inHttp.HeaderSessionID, sessionID)
		next.ServeHTTP(w, r.WithContext(c))
	})
}
