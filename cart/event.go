package cart

import "context"

type EventKind string

const (
	EventLineAdded    EventKind = "line_added"
	EventLineUpdated  EventKind = "line_updated"
	EventLineRemoved  EventKind = "line_removed"
	EventStockLimited EventKind = "stock_limited"
	EventCleared      EventKind = "cleared"
)

type Event struct {
	Kind     EventKind `json:"kind"`
	Key      Key       `json:"key"`
	Quantity int       `json:"quantity"`
	Message  string    `json:"message,omitempty"`
}

// Listener receives store events after the mutation that caused them has
// been persisted. Listeners run outside the store lock.
type Listener func(context.Context, Event)

type Option func(*Store)

func WithListener(l Listener) Option {
	return func(s *Store) {
		s.listeners = append(s.listeners, l)
	}
}
