// Package metrics holds the Prometheus collectors for the scoring
// engine and its HTTP surface.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "rentscope",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rentscope",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "rentscope",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	scoringBatches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rentscope",
			Subsystem: "scoring",
			Name:      "batches_total",
			Help:      "Total number of scoring batches by outcome.",
		},
		[]string{"state", "status"},
	)

	scoringBatchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "rentscope",
			Subsystem: "scoring",
			Name:      "batch_duration_seconds",
			Help:      "Duration of scoring batches.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12), // 100ms to ~3.5m
		},
		[]string{"state"},
	)

	scoringRecords = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rentscope",
			Subsystem: "scoring",
			Name:      "records_total",
			Help:      "Total number of score records produced, by result.",
		},
		[]string{"result"},
	)

	solverRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rentscope",
			Subsystem: "solver",
			Name:      "solves_total",
			Help:      "Total number of solver calls by operation and outcome.",
		},
		[]string{"operation", "status"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		scoringBatches,
		scoringBatchDuration,
		scoringRecords,
		solverRequests,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered collectors.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// RecordHTTPRequest records one handled request. The path should be the
// route template, not the raw URL, to keep label cardinality bounded.
func RecordHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequests.WithLabelValues(method, path, status).Inc()
	httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// TrackInFlight increments the in-flight gauge and returns the matching
// decrement.
func TrackInFlight() func() {
	httpInFlight.Inc()
	return httpInFlight.Dec
}

// RecordBatch records one finished scoring batch.
func RecordBatch(state string, duration time.Duration, scored, insufficient, failed int, success bool) {
	if state == "" {
		state = "unknown"
	}
	status := "completed"
	if !success {
		status = "failed"
	}
	scoringBatches.WithLabelValues(state, status).Inc()
	scoringBatchDuration.WithLabelValues(state).Observe(duration.Seconds())
	scoringRecords.WithLabelValues("scored").Add(float64(scored))
	scoringRecords.WithLabelValues("insufficient").Add(float64(insufficient))
	scoringRecords.WithLabelValues("failed").Add(float64(failed))
}

// RecordSolve records one solver call.
func RecordSolve(operation string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	solverRequests.WithLabelValues(operation, status).Inc()
}
