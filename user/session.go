package user

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Alturino/storefront/internal/log"
	"github.com/Alturino/storefront/internal/storage"
)

type User struct {
	ID         string `json:"_id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	IsVerified bool   `json:"isVerified"`
	Role       string `json:"role,omitempty"`
}

// Session is who the shopper is: signed in with a token, a guest, or
// neither yet.
type Session struct {
	mu      sync.RWMutex
	storage storage.Storage
	user    *User
	token   string
	isGuest bool
	now     func() time.Time
}

func LoadSession(c context.Context, s storage.Storage) (*Session, error) {
	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "Session LoadSession").
		Str(log.KeyProcess, "hydrating session").
		Logger()

	session := &Session{storage: s, now: time.Now}

	u := User{}
	found, err := storage.GetJSON(c, s, storage.KeyUser, &u)
	if err != nil && !found {
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	if found && err == nil && u.ID != "" {
		session.user = &u
	}
	if _, err := storage.GetJSON(c, s, storage.KeyToken, &session.token); err != nil {
		logger.Warn().Err(err).Msg("failed reading token, treating session as signed out")
		session.token = ""
	}
	if _, err := storage.GetJSON(c, s, storage.KeyIsGuest, &session.isGuest); err != nil {
		logger.Warn().Err(err).Msg("failed reading guest flag")
		session.isGuest = false
	}
	logger.Debug().
		Bool(log.KeyIsGuest, session.isGuest).
		Bool("hasToken", session.token != "").
		Msg("hydrated session")

	return session, nil
}

func (s *Session) User() (User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return User{}, false
	}
	return *s.user, true
}

func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Session) IsGuest() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isGuest
}

// Authenticated reports whether the session holds a token that has not
// expired. The signature is the backend's business; only the exp claim is
// read. Tokens that are not JWTs count as valid.
func (s *Session) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token != "" && !Expired(s.token, s.now())
}

func (s *Session) persistLocked(c context.Context) error {
	var u any
	if s.user != nil {
		u = s.user
	}
	if err := storage.SetJSON(c, s.storage, storage.KeyUser, u); err != nil {
		return fmt.Errorf("failed persisting user with error=%w", err)
	}
	if err := storage.SetJSON(c, s.storage, storage.KeyToken, s.token); err != nil {
		return fmt.Errorf("failed persisting token with error=%w", err)
	}
	if err := storage.SetJSON(c, s.storage, storage.KeyIsGuest, s.isGuest); err != nil {
		return fmt.Errorf("failed persisting guest flag with error=%w", err)
	}
	return nil
}

func (s *Session) SignIn(c context.Context, u User, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = &u
	s.token = token
	s.isGuest = false
	return s.persistLocked(c)
}

func (s *Session) ContinueAsGuest(c context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = nil
	s.token = ""
	s.isGuest = true
	return s.persistLocked(c)
}

// SignOut forgets the user and token. Cart, wishlist and guest orders stay.
func (s *Session) SignOut(c context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = nil
	s.token = ""
	s.isGuest = false
	return s.persistLocked(c)
}
