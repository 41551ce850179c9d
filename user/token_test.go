package user

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	inErrors "github.com/Alturino/storefront/internal/errors"
)

func claimsToken(t *testing.T, exp *time.Time) string {
	t.Helper()
	claims := jwt.RegisteredClaims{Subject: "U1"}
	if exp != nil {
		claims.ExpiresAt = jwt.NewNumericDate(*exp)
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)
	return token
}

func TestExpired(t *testing.T) {
	now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	future := now.Add(time.Hour)

	testCases := []struct {
		desc  string
		token string
		want  bool
	}{
		{desc: "given exp in the future should not be expired", token: claimsToken(t, &future), want: false},
		{desc: "given exp in the past should be expired", token: claimsToken(t, &past), want: true},
		{desc: "given no exp claim should not be expired", token: claimsToken(t, nil), want: false},
		{desc: "given opaque token should not be expired", token: "opaque-token", want: false},
	}
	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			assert.Equal(t, tC.want, Expired(tC.token, now))
		})
	}
}

func TestParseClaims(t *testing.T) {
	future := time.Now().Add(time.Hour)
	claims, err := ParseClaims(claimsToken(t, &future))
	require.NoError(t, err)
	assert.Equal(t, "U1", claims.Subject)

	_, err = ParseClaims("not-a-jwt")
	assert.Error(t, err)
}

func TestVerifyToken(t *testing.T) {
	c := context.Background()
	future := time.Now().Add(time.Hour)
	past := time.Now().Add(-time.Hour)

	assert.NoError(t, VerifyToken(c, claimsToken(t, &future)))

	err := VerifyToken(c, "")
	assert.ErrorIs(t, err, inErrors.ErrEmptyAuth)
	assert.True(t, IsAuthError(err))

	err = VerifyToken(c, claimsToken(t, &past))
	assert.ErrorIs(t, err, inErrors.ErrTokenInvalid)
	assert.True(t, IsAuthError(err))
}
