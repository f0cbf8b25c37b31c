// Package metrics exposes Prometheus counters for the aggregation pipeline and
// the insights gateway.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	EventsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "howshous",
		Subsystem: "analytics",
		Name:      "events_processed_total",
		Help:      "Events that completed aggregation, by event type.",
	}, []string{"event_type"})

	EventsDeduplicated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "howshous",
		Subsystem: "analytics",
		Name:      "events_deduplicated_total",
		Help:      "Events skipped because their dedup key was already counted.",
	}, []string{"event_type"})

	EventsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "howshous",
		Subsystem: "analytics",
		Name:      "events_rejected_total",
		Help:      "Events dropped by validation, by event type ('unknown' when untyped).",
	}, []string{"event_type"})

	ModelCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "howshous",
		Subsystem: "insights",
		Name:      "model_calls_total",
		Help:      "Hosted model calls, by outcome (success|failure).",
	}, []string{"outcome"})

	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "howshous",
		Subsystem: "insights",
		Name:      "cache_hits_total",
		Help:      "Gateway replies served from the insight cache.",
	})

	Fallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "howshous",
		Subsystem: "insights",
		Name:      "fallbacks_total",
		Help:      "Gateway replies degraded to the last cached insight.",
	})

	QuotaExceeded = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "howshous",
		Subsystem: "insights",
		Name:      "quota_exceeded_total",
		Help:      "Gateway requests denied by the daily quota.",
	})
)

// Handler serves the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
