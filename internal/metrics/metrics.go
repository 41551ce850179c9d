// Package metrics holds the Prometheus collectors exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CartMutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "storefront",
			Subsystem: "cart",
			Name:      "mutations_total",
			Help:      "Cart store mutations by operation and outcome.",
		},
		[]string{"operation", "outcome"},
	)

	WishlistMutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "storefront",
			Subsystem: "wishlist",
			Name:      "mutations_total",
			Help:      "Wishlist store mutations by operation.",
		},
		[]string{"operation"},
	)

	CheckoutSubmissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "storefront",
			Subsystem: "checkout",
			Name:      "submissions_total",
			Help:      "Checkout submissions by result.",
		},
		[]string{"result"},
	)

	OrderLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "storefront",
			Subsystem: "order",
			Name:      "lookups_total",
			Help:      "Order lookups by transaction id and their result.",
		},
		[]string{"result"},
	)

	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "storefront",
			Subsystem: "shop",
			Name:      "active_sessions",
			Help:      "Shopper sessions currently held by the shop server.",
		},
	)
)

const (
	OutcomeAccepted = "accepted"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
	OutcomeNoop     = "noop"
)
