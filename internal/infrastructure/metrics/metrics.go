// Package metrics registers the Prometheus collectors of the service and
// exposes small recording helpers so callers never touch label order.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mahdygh/bookclub/internal/domain/shared"
)

// ─────────────────────────────────────────────────────────────────────────────
// Collectors
// ─────────────────────────────────────────────────────────────────────────────

var (
	eventsPublishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bookclub_events_published_total",
		Help: "Domain events published after commit",
	}, []string{"event_type"})

	eventHandlerDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bookclub_event_handler_duration_seconds",
		Help:    "Duration of event handler executions",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
	}, []string{"event_type", "outcome"})

	scoreDeltaPoints = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bookclub_score_delta_points_total",
		Help: "Absolute ledger points moved, by direction",
	}, []string{"direction"})

	jobRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bookclub_job_runs_total",
		Help: "Scheduled job runs by outcome",
	}, []string{"job", "outcome"})

	jobDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bookclub_job_duration_seconds",
		Help:    "Duration of scheduled job runs",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})

	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bookclub_http_requests_total",
		Help: "HTTP requests by route and status",
	}, []string{"method", "route", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bookclub_http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "route"})

	cacheLookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bookclub_leaderboard_cache_lookups_total",
		Help: "Leaderboard cache lookups by result",
	}, []string{"result"})

	breakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "bookclub_circuit_breaker_state",
		Help: "Circuit breaker state (0 closed, 1 open, 2 half-open)",
	}, []string{"breaker"})
)

// ─────────────────────────────────────────────────────────────────────────────
// Recorders
// ─────────────────────────────────────────────────────────────────────────────

// EventPublished counts one published event.
func EventPublished(t shared.EventType) {
	eventsPublishedTotal.WithLabelValues(string(t)).Inc()
}

// EventHandled observes one handler execution.
func EventHandled(t shared.EventType, d time.Duration, err error) {
	eventHandlerDuration.WithLabelValues(string(t), outcome(err)).Observe(d.Seconds())
}

// ScoreMoved adds a ledger delta to the up or down counter.
func ScoreMoved(delta int) {
	switch {
	case delta > 0:
		scoreDeltaPoints.WithLabelValues("up").Add(float64(delta))
	case delta < 0:
		scoreDeltaPoints.WithLabelValues("down").Add(float64(-delta))
	}
}

// JobRan records a scheduled job run.
func JobRan(job string, d time.Duration, err error) {
	jobRunsTotal.WithLabelValues(job, outcome(err)).Inc()
	jobDuration.WithLabelValues(job).Observe(d.Seconds())
}

// HTTPRequest records a served request. route is the matched route pattern,
// never the raw path.
func HTTPRequest(method, route string, status int, d time.Duration) {
	httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// CacheLookup records a leaderboard cache hit, miss or error.
func CacheLookup(result string) {
	cacheLookupsTotal.WithLabelValues(result).Inc()
}

// BreakerState sets the current state of a named breaker.
func BreakerState(name string, state int) {
	breakerState.WithLabelValues(name).Set(float64(state))
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
