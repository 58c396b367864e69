// Package metrics exposes the coordinator's and client's prometheus
// instrumentation, following the teacher's promauto-against-a-custom-
// registry pattern rather than the package-level default registry.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "secagg"

// Registry is the custom registry every metric below is registered
// against, so a process embedding this package can expose it on its own
// /metrics handler without pulling in prometheus's global default.
var Registry = prometheus.NewRegistry()

var (
	// SessionsStarted counts sessions that admitted their first
	// connection.
	SessionsStarted = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "started_total",
			Help:      "Total number of aggregation sessions started.",
		},
	)

	// SessionsCompleted counts sessions that reached a successful
	// broadcast and reset.
	SessionsCompleted = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "completed_total",
			Help:      "Total number of aggregation sessions that completed successfully.",
		},
	)

	// PhaseTransitions counts transitions into each coordinator phase.
	PhaseTransitions = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "phase_transitions_total",
			Help:      "Total number of coordinator phase transitions, labeled by the phase entered.",
		},
		[]string{"phase"},
	)

	// RoundDuration tracks the wall time spent in each round.
	RoundDuration = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "round_duration_seconds",
			Help:      "Duration of each protocol round, labeled by round name.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
		},
		[]string{"round"},
	)

	// ConnectionsAdmitted counts admitted client connections.
	ConnectionsAdmitted = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "connection",
			Name:      "admitted_total",
			Help:      "Total number of client connections admitted into a session.",
		},
	)

	// ConnectionsRejected counts connections rejected by the admission
	// cap (§4.4).
	ConnectionsRejected = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "connection",
			Name:      "rejected_total",
			Help:      "Total number of connections rejected because the session was already at threshold.",
		},
	)

	// ProtocolErrors counts dropped frames, labeled by error kind (§7).
	ProtocolErrors = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "protocol",
			Name:      "errors_total",
			Help:      "Total number of protocol errors encountered, labeled by kind.",
		},
		[]string{"kind"},
	)

	// CryptoOperations counts encrypt/decrypt calls, labeled by outcome.
	CryptoOperations = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "crypto",
			Name:      "operations_total",
			Help:      "Total number of hybrid-encryption operations, labeled by operation and outcome.",
		},
		[]string{"operation", "outcome"},
	)
)

// Handler returns the HTTP handler serving this package's registry.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
