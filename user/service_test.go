package user

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alturino/storefront/internal/config"
	inErrors "github.com/Alturino/storefront/internal/errors"
	inHttp "github.com/Alturino/storefront/internal/http"
	"github.com/Alturino/storefront/internal/storage"
)

func signedToken(t *testing.T, expiresAt time.Time) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "U1",
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}).SignedString([]byte("backend-secret"))
	require.NoError(t, err)
	return token
}

func newService(t *testing.T, handler http.HandlerFunc) (*Service, *Session, storage.Storage) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	s := storage.NewMemoryStorage()
	session, err := LoadSession(context.Background(), s)
	require.NoError(t, err)
	client := inHttp.NewClient(config.Api{BaseURL: server.URL})
	return NewService(client, session), session, s
}

func TestSignInStoresSession(t *testing.T) {
	c := context.Background()
	token := signedToken(t, time.Now().Add(time.Hour))
	svc, session, s := newService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/signin", r.URL.Path)
		body := SignIn{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "secret-pass", body.Password)
		json.NewEncoder(w).Encode(map[string]any{
			"token": token,
			"user":  map[string]any{"_id": "U1", "name": "Bat", "email": "bat@example.mn"},
		})
	})

	resp, err := svc.SignIn(c, SignIn{Email: "bat@example.mn", Password: "secret-pass"})
	require.NoError(t, err)
	assert.Equal(t, token, resp.Token)

	u, ok := session.User()
	require.True(t, ok)
	assert.Equal(t, "U1", u.ID)
	assert.True(t, session.Authenticated())
	assert.False(t, session.IsGuest())

	reloaded, err := LoadSession(c, s)
	require.NoError(t, err)
	assert.Equal(t, token, reloaded.Token())
	assert.True(t, reloaded.Authenticated())
}

func TestInvalidRequestMakesNoCall(t *testing.T) {
	calls := atomic.Int32{}
	svc, _, _ := newService(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	})

	_, err := svc.SignIn(context.Background(), SignIn{Email: "not-an-email", Password: "x"})
	assert.Error(t, err)
	_, err = svc.ResetPassword(context.Background(), ResetPassword{Email: "a@b.mn", Code: "1", NewPassword: "123"})
	assert.Error(t, err)
	assert.Equal(t, int32(0), calls.Load())
}

func TestBackendRejection(t *testing.T) {
	svc, session, _ := newService(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"message": "wrong password"})
	})

	_, err := svc.SignIn(context.Background(), SignIn{Email: "bat@example.mn", Password: "nope"})
	apiErr := &inErrors.APIError{}
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "wrong password", apiErr.Message)
	assert.False(t, session.Authenticated())
}

func TestForgotPasswordDoesNotTouchSession(t *testing.T) {
	svc, session, _ := newService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/forgot-password", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]string{"message": "code sent"})
	})

	resp, err := svc.ForgotPassword(context.Background(), ForgotPassword{Email: "bat@example.mn"})
	require.NoError(t, err)
	assert.Equal(t, "code sent", resp.Message)
	_, ok := session.User()
	assert.False(t, ok)
}

func TestSessionTransitions(t *testing.T) {
	c := context.Background()
	s := storage.NewMemoryStorage()
	session, err := LoadSession(c, s)
	require.NoError(t, err)
	assert.False(t, session.Authenticated())

	require.NoError(t, session.SignIn(c, User{ID: "U1"}, signedToken(t, time.Now().Add(-time.Minute))))
	assert.False(t, session.Authenticated(), "expired token")

	require.NoError(t, session.SignIn(c, User{ID: "U1"}, "opaque-token"))
	assert.True(t, session.Authenticated())

	require.NoError(t, session.ContinueAsGuest(c))
	assert.True(t, session.IsGuest())
	assert.False(t, session.Authenticated())

	reloaded, err := LoadSession(c, s)
	require.NoError(t, err)
	assert.True(t, reloaded.IsGuest())

	require.NoError(t, session.SignOut(c))
	assert.False(t, session.IsGuest())
	_, ok := session.User()
	assert.False(t, ok)
}
