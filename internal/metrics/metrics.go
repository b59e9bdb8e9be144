// Package metrics exposes Prometheus instrumentation for the availability
// engine: lock acquisition outcomes, sweep removals, reconciliation results
// and HTTP request counters.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Lock acquisition outcome labels.
const (
	LockOutcomeAcquired = "acquired"
	LockOutcomeBusy     = "busy"
	LockOutcomeTimeout  = "timeout"
)

// Sweep kind labels.
const (
	SweepKindStale = "stale"
	SweepKindOld   = "old"
)

// Rebuild outcome labels.
const (
	RebuildOutcomeSuccess          = "success"
	RebuildOutcomeRetried          = "retried"
	RebuildOutcomePermanentFailure = "permanent_failure"
)

var (
	lockAcquisitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "taskboard_lock_acquisitions_total",
		Help: "Total availability lock acquisition attempts by outcome.",
	}, []string{"outcome"})

	locksSweptTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "taskboard_locks_swept_total",
		Help: "Total availability lock rows removed by maintenance sweeps.",
	}, []string{"kind"})

	rebuildsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "taskboard_availability_rebuilds_total",
		Help: "Total availability projection rebuild attempts by outcome.",
	}, []string{"outcome"})

	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "taskboard_http_requests_total",
		Help: "Total number of HTTP requests processed.",
	}, []string{"method", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "taskboard_http_request_duration_seconds",
		Help:    "Histogram of latencies for HTTP requests.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "status"})
)

// RecordLockAcquisition counts a lock acquisition attempt by outcome.
func RecordLockAcquisition(outcome string) {
	lockAcquisitionsTotal.WithLabelValues(outcome).Inc()
}

// RecordLocksSwept counts lock rows removed by a maintenance sweep.
func RecordLocksSwept(kind string, count int64) {
	if count > 0 {
		locksSweptTotal.WithLabelValues(kind).Add(float64(count))
	}
}

// RecordRebuild counts a projection rebuild attempt by outcome.
func RecordRebuild(outcome string) {
	rebuildsTotal.WithLabelValues(outcome).Inc()
}

// Middleware records request counters and latency histograms.
func Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := strconv.Itoa(ww.Status())
			httpRequestsTotal.WithLabelValues(r.Method, status).Inc()
			httpRequestDuration.WithLabelValues(r.Method, status).
				Observe(time.Since(start).Seconds())
		})
	}
}

// Handler exposes the Prometheus metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
