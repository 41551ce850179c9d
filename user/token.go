package user

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	inErrors "github.com/Alturino/storefront/internal/errors"
	"github.com/Alturino/storefront/internal/log"
	"github.com/Alturino/storefront/internal/otel"
)

// ParseClaims reads the registered claims of token without checking its
// signature. Only the backend holds the signing key.
func ParseClaims(token string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// Expired reports whether token carries an exp claim at or before now.
// Tokens that are not JWTs never expire on the client side.
func Expired(token string, now time.Time) bool {
	claims, err := ParseClaims(token)
	if err != nil || claims.ExpiresAt == nil {
		return false
	}
	return !claims.ExpiresAt.After(now)
}

// VerifyToken rejects empty and expired tokens.
func VerifyToken(c context.Context, token string) error {
	c, span := otel.Tracer.Start(c, "VerifyToken")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "VerifyToken").
		Str(log.KeyProcess, "validating token").
		Logger()

	logger.Trace().Msg("validating token")
	if token == "" {
		err := inErrors.ErrEmptyAuth
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	if Expired(token, time.Now()) {
		err := fmt.Errorf("token expired with error=%w", inErrors.ErrTokenInvalid)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Trace().Msg("validated token")
	return nil
}

// IsAuthError reports whether err means the caller has to sign in again.
func IsAuthError(err error) bool {
	return errors.Is(err, inErrors.ErrEmptyAuth) || errors.Is(err, inErrors.ErrTokenInvalid)
}
