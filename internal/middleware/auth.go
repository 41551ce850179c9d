package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	inErrors "github.com/Alturino/storefront/internal/errors"
	inHttp "github.com/Alturino/storefront/internal/http"
	"github.com/Alturino/storefront/internal/log"
	"github.com/Alturino/storefront/user"
)

type bearerToken struct{}

func TokenFromContext(c context.Context) string {
	v, _ := c.Value(bearerToken{}).(string)
	return v
}

// Auth requires an unexpired bearer token and hands it to the handler via
// the request context.
func Auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := zerolog.Ctx(r.Context()).With().Str(log.KeyTag, "middleware Auth").Logger()
		c := logger.WithContext(r.Context())

		authorization := r.Header.Get(inHttp.HeaderAuthorization)
		token := ""
		if len(authorization) > len("bearer ") && strings.EqualFold(authorization[:len("bearer ")], "bearer ") {
			token = strings.TrimSpace(authorization[len("bearer "):])
		}
		if token == "" {
			logger.Error().Err(inErrors.ErrEmptyAuth).Msg(inErrors.ErrEmptyAuth.Error())
			inHttp.WriteFailed(c, w, http.StatusUnauthorized, inErrors.ErrEmptyAuth)
			return
		}
		if err := user.VerifyToken(c, token); err != nil {
			inHttp.WriteFailed(c, w, http.StatusUnauthorized, inErrors.ErrTokenInvalid)
			return
		}

		c = context.WithValue(c, bearerToken{}, token)
		next.ServeHTTP(w, r.WithContext(c))
	})
}
