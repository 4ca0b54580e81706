package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/time/rate"

	"github.com/rentscope/backend/internal/api/handlers"
	"github.com/rentscope/backend/internal/metrics"
	"github.com/rentscope/backend/pkg/config"
	"github.com/rentscope/backend/pkg/logger"
)

// NewRouter creates and configures the HTTP router
func NewRouter(
	cfg *config.Config,
	log *logger.Logger,
	scores *handlers.ScoreHandler,
	aggregates *handlers.AggregateHandler,
	solver *handlers.SolverHandler,
	status *handlers.StatusHandler,
) http.Handler {
	r := mux.NewRouter()

	// Health check and metrics live outside the /api prefix
	r.HandleFunc("/health", healthCheckHandler).Methods("GET")
	if cfg.MetricsEnabled {
		r.Handle("/metrics", metrics.Handler()).Methods("GET")
	}

	// API v1
	api := r.PathPrefix("/api").Subrouter()

	// Score endpoints
	api.HandleFunc("/scores/recompute", scores.Recompute).Methods("POST")
	api.HandleFunc("/scores/{zip}", scores.GetByZIP).Methods("GET")

	// Aggregate endpoints
	api.HandleFunc("/aggregates/{geoType}/{geoKey}", aggregates.Get).Methods("GET")

	// Solver endpoints
	api.HandleFunc("/solver/cashflow", solver.CashFlowFromPrice).Methods("POST")
	api.HandleFunc("/solver/price-from-margin", solver.PriceFromMargin).Methods("POST")
	api.HandleFunc("/solver/price-from-cashflow", solver.PriceFromCashFlow).Methods("POST")
	api.HandleFunc("/solver/price-from-score", solver.PriceFromScore).Methods("POST")

	// Batch bookkeeping and source freshness
	api.HandleFunc("/batches", status.ListBatches).Methods("GET")
	api.HandleFunc("/batches/{id}", status.GetBatch).Methods("GET")
	api.HandleFunc("/status", status.GetStatus).Methods("GET")

	// Apply middleware
	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))
	if cfg.MetricsEnabled {
		r.Use(metricsMiddleware())
	}
	if cfg.Engine.RateLimitPerSecond > 0 {
		r.Use(rateLimitMiddleware(cfg.Engine.RateLimitPerSecond))
	}

	return r
}

// healthCheckHandler returns server health status
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"service": "rentscope-api",
	})
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			next.ServeHTTP(w, r)

			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"duration": time.Since(start),
			}).Debug("HTTP request")
		})
	}
}

// recoveryMiddleware recovers from panics
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("Panic recovered")

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					json.NewEncoder(w).Encode(map[string]string{
						"error": "Internal server error",
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// statusRecorder captures the response status for the metrics middleware
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (w *statusRecorder) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// metricsMiddleware records request counts and latencies. The path label
// is the route template ("/api/scores/{zip}"), not the raw URL, to keep
// metric cardinality bounded.
func metricsMiddleware() mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			done := metrics.TrackInFlight()
			defer done()

			path := r.URL.Path
			if route := mux.CurrentRoute(r); route != nil {
				if tmpl, err := route.GetPathTemplate(); err == nil {
					path = tmpl
				}
			}

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()

			next.ServeHTTP(rec, r)

			metrics.RecordHTTPRequest(r.Method, path, strconv.Itoa(rec.status), time.Since(start))
		})
	}
}

// rateLimitMiddleware rejects requests above the configured rate with
// 429. One shared limiter for the whole server, not per client.
func rateLimitMiddleware(perSecond int) mux.MiddlewareFunc {
	limiter := rate.NewLimiter(rate.Limit(perSecond), perSecond)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				json.NewEncoder(w).Encode(map[string]string{
					"error": "Too many requests",
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
