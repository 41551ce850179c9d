// Package session keeps one set of shopper stores per session id.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Alturino/storefront/admin"
	"github.com/Alturino/storefront/cart"
	"github.com/Alturino/storefront/checkout"
	inHttp "github.com/Alturino/storefront/internal/http"
	"github.com/Alturino/storefront/internal/log"
	"github.com/Alturino/storefront/internal/metrics"
	"github.com/Alturino/storefront/internal/storage"
	"github.com/Alturino/storefront/order"
	"github.com/Alturino/storefront/user"
	"github.com/Alturino/storefront/wishlist"
)

type Session struct {
	ID          string
	Cart        *cart.Store
	Wishlist    *wishlist.Store
	User        *user.Session
	Auth        *user.Service
	Checkout    *checkout.Flow
	Tracker     *order.Tracker
	GuestOrders *order.GuestOrders
	Admin       *admin.Service
}

// New builds every store of a session from s. Stores hydrate before New
// returns, so the session is never seen half loaded.
func New(c context.Context, id string, s storage.Storage, client *inHttp.Client, opts ...cart.Option) (*Session, error) {
	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "session New").
		Str(log.KeySessionID, id).
		Logger()
	c = logger.WithContext(c)

	logger = logger.With().Str(log.KeyProcess, "hydrating stores").Logger()
	logger.Debug().Msg("hydrating stores")
	carts, err := cart.NewStore(c, s, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed hydrating cart with error=%w", err)
	}
	wishes, err := wishlist.NewStore(c, s)
	if err != nil {
		return nil, fmt.Errorf("failed hydrating wishlist with error=%w", err)
	}
	u, err := user.LoadSession(c, s)
	if err != nil {
		return nil, fmt.Errorf("failed hydrating user session with error=%w", err)
	}
	guestOrders, err := order.LoadGuestOrders(c, s)
	if err != nil {
		return nil, fmt.Errorf("failed hydrating guest orders with error=%w", err)
	}
	adminService, err := admin.NewService(c, client, s)
	if err != nil {
		return nil, fmt.Errorf("failed hydrating admin token with error=%w", err)
	}
	logger.Debug().Msg("hydrated stores")

	return &Session{
		ID:          id,
		Cart:        carts,
		Wishlist:    wishes,
		User:        u,
		Auth:        user.NewService(client, u),
		Checkout:    checkout.NewFlow(c, client, carts, u, guestOrders, s),
		Tracker:     order.NewTracker(client),
		GuestOrders: guestOrders,
		Admin:       adminService,
	}, nil
}

type entry struct {
	ready    chan struct{}
	sess     *Session
	err      error
	lastSeen time.Time
}

// Registry hands out the session of an id, building it on first use from
// storage namespaced by that id. Sessions idle for longer than idleTTL are
// dropped; their state lives on in storage and is hydrated again on the next
// request. An idleTTL of zero keeps sessions for the life of the process.
type Registry struct {
	storage storage.Storage
	client  *inHttp.Client
	idleTTL time.Duration
	now     func() time.Time

	mu        sync.Mutex
	sessions  map[string]*entry
	lastSweep time.Time
}

func NewRegistry(s storage.Storage, client *inHttp.Client, idleTTL time.Duration) *Registry {
	return &Registry{
		storage:  s,
		client:   client,
		idleTTL:  idleTTL,
		now:      time.Now,
		sessions: map[string]*entry{},
	}
}

// Get returns the session of id. Building a session talks to storage, so it
// runs outside the registry lock; concurrent callers for the same id wait
// for the one build.
func (r *Registry) Get(c context.Context, id string) (*Session, error) {
	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "Registry Get").
		Str(log.KeySessionID, id).
		Logger()

	now := r.now()
	r.mu.Lock()
	r.sweepLocked(c, now)
	e, found := r.sessions[id]
	if !found {
		e = &entry{ready: make(chan struct{})}
		r.sessions[id] = e
	}
	e.lastSeen = now
	r.mu.Unlock()

	if !found {
		logger = logger.With().Str(log.KeyProcess, "building session").Logger()
		logger.Debug().Msg("building session")
		e.sess, e.err = New(c, id, storage.Namespace(r.storage, id), r.client)
		if e.err != nil {
			logger.Error().Err(e.err).Msg(e.err.Error())
			r.mu.Lock()
			if r.sessions[id] == e {
				delete(r.sessions, id)
			}
			r.mu.Unlock()
		} else {
			logger.Info().Msg("built session")
		}
		close(e.ready)
		r.mu.Lock()
		metrics.ActiveSessions.Set(float64(len(r.sessions)))
		r.mu.Unlock()
	}

	select {
	case <-e.ready:
		return e.sess, e.err
	case <-c.Done():
		return nil, c.Err()
	}
}

// sweepLocked drops idle sessions. A session with a checkout in flight is
// kept whatever its age.
func (r *Registry) sweepLocked(c context.Context, now time.Time) {
	if r.idleTTL <= 0 || now.Sub(r.lastSweep) < r.idleTTL/2 {
		return
	}
	r.lastSweep = now

	evicted := 0
	for id, e := range r.sessions {
		select {
		case <-e.ready:
		default:
			continue
		}
		if now.Sub(e.lastSeen) <= r.idleTTL {
			continue
		}
		if e.sess != nil && e.sess.Checkout.Snapshot().State == checkout.StateSubmitting {
			continue
		}
		delete(r.sessions, id)
		evicted++
	}
	if evicted > 0 {
		metrics.ActiveSessions.Set(float64(len(r.sessions)))
		zerolog.Ctx(c).Debug().
			Str(log.KeyTag, "Registry sweep").
			Int("evicted", evicted).
			Msg("evicted idle sessions")
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
