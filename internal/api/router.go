package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/time/rate"

	"github.com/wonny/voltarget/internal/api/handlers"
	"github.com/wonny/voltarget/pkg/logger"
)

// HealthCheck reports the state of one dependency
type HealthCheck func(ctx context.Context) error

// RouterOptions collects router dependencies
type RouterOptions struct {
	Backtest  *handlers.BacktestHandler
	Signal    *handlers.SignalHandler
	Checks    map[string]HealthCheck
	RateLimit float64 // requests per second for /api
	RateBurst int
	Logger    *logger.Logger
}

// NewRouter creates and configures the HTTP router
// ⭐ SSOT: 라우팅 설정은 이 함수에서만
func NewRouter(opts RouterOptions) http.Handler {
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}

	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", healthCheckHandler(opts.Checks)).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()

	// Signal endpoints
	api.HandleFunc("/signal/latest", opts.Signal.GetLatest).Methods("GET")

	// Backtest endpoints
	api.HandleFunc("/backtest", opts.Backtest.Get).Methods("GET")
	api.HandleFunc("/backtest/run", opts.Backtest.Run).Methods("POST")
	api.HandleFunc("/runs/latest", opts.Backtest.GetLatestRun).Methods("GET")

	if opts.RateLimit > 0 {
		api.Use(rateLimitMiddleware(rate.NewLimiter(rate.Limit(opts.RateLimit), max(opts.RateBurst, 1))))
	}

	// Apply middleware
	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))

	return r
}

// healthCheckHandler returns server health status; 503 when a check fails
func healthCheckHandler(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		status := http.StatusOK
		results := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				results[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			results[name] = "ok"
		}

		body := map[string]interface{}{
			"status":  "ok",
			"service": "voltarget-api",
			"checks":  results,
		}
		if status != http.StatusOK {
			body["status"] = "degraded"
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(body)
	}
}
