// Package metrics exposes the service's Prometheus collectors on a dedicated registry.
package metrics

import (
	"database/sql"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Namespace for all event manager metrics
const namespace = "eventmanager"

// Registry is the Prometheus registry served on /metrics.
var Registry = prometheus.NewRegistry()

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// EventOperationsTotal counts event service calls by operation and outcome.
// outcome is "ok" or the error kind (validation, not_found, conflict, ...).
var EventOperationsTotal = promauto.With(Registry).NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "event_operations_total",
		Help:      "Total number of event operations by outcome",
	},
	[]string{"operation", "outcome"},
)

// EventOperationDuration records event service latency in seconds.
var EventOperationDuration = promauto.With(Registry).NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "event_operation_duration_seconds",
		Help:      "Event operation latency in seconds",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	},
	[]string{"operation"},
)

// CancellationEmailsTotal counts cancellation notices by result (sent|failed).
var CancellationEmailsTotal = promauto.With(Registry).NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cancellation_emails_total",
		Help:      "Total number of event cancellation emails by result",
	},
	[]string{"result"},
)

// RateLimitedTotal counts requests rejected by the rate limiter.
var RateLimitedTotal = promauto.With(Registry).NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rate_limited_requests_total",
		Help:      "Total number of requests rejected with 429",
	},
)

// RegisterDBStats exports the connection pool statistics of db.
func RegisterDBStats(db *sql.DB) error {
	return Registry.Register(collectors.NewDBStatsCollector(db, "eventmanager"))
}

// Handler serves the registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}
