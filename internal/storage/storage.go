// Package storage is the durable client-local key-value slot the stores
// persist into. Values are opaque bytes; the stores write JSON.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	inErrors "github.com/Alturino/storefront/internal/errors"
)

const (
	KeyCart        = "cart"
	KeyWishlist    = "wishlist"
	KeyUser        = "user"
	KeyToken       = "token"
	KeyIsGuest     = "isGuest"
	KeyGuestOrders = "guestOrders"
	KeyAdminToken  = "adminToken"
	KeyCheckoutKey = "checkoutKey"
)

// ErrNotFound is returned by Get when the key was never set or was deleted.
var ErrNotFound = inErrors.ErrNotFound

type Storage interface {
	Get(c context.Context, key string) ([]byte, error)
	Set(c context.Context, key string, value []byte) error
	Delete(c context.Context, key string) error
}

// GetJSON decodes the value stored under key into out. found is false when
// the key is absent.
func GetJSON(c context.Context, s Storage, key string, out any) (found bool, err error) {
	raw, err := s.Get(c, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed getting key=%s with error=%w", key, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return true, fmt.Errorf("failed decoding key=%s with error=%w", key, err)
	}
	return true, nil
}

func SetJSON(c context.Context, s Storage, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed encoding key=%s with error=%w", key, err)
	}
	if err := s.Set(c, key, raw); err != nil {
		return fmt.Errorf("failed setting key=%s with error=%w", key, err)
	}
	return nil
}

type namespaced struct {
	prefix string
	next   Storage
}

// Namespace scopes every key of s to one shopper session.
func Namespace(s Storage, sessionID string) Storage {
	return namespaced{prefix: "session:" + sessionID + ":", next: s}
}

func (n namespaced) Get(c context.Context, key string) ([]byte, error) {
	return n.next.Get(c, n.prefix+key)
}

func (n namespaced) Set(c context.Context, key string, value []byte) error {
	return n.next.Set(c, n.prefix+key, value)
}

func (n namespaced) Delete(c context.Context, key string) error {
	return n.next.Delete(c, n.prefix+key)
}
