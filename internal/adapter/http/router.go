package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/iho/lotledger/internal/adapter/http/handler"
	"github.com/iho/lotledger/internal/adapter/http/middleware"
	"github.com/iho/lotledger/internal/domain"
	"github.com/iho/lotledger/internal/infrastructure/metrics"
	"github.com/iho/lotledger/internal/usecase"
)

// RouterConfig holds dependencies for the router. Everything except the
// handlers is optional.
type RouterConfig struct {
	LedgerHandler    *handler.LedgerHandler
	HealthHandler    *handler.HealthHandler
	Logger           zerolog.Logger
	Metrics          *metrics.Metrics
	MetricsHandler   http.Handler
	IdempotencyStore usecase.IdempotencyStore
	IdempotencyTTL   time.Duration
	RateLimiter      *middleware.RateLimiter
	TokenVerifier    middleware.TokenVerifier
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewLoggingMiddleware(cfg.Logger).Wrap)
	r.Use(middleware.Recovery(cfg.Logger))
	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
	}
	if cfg.RateLimiter != nil {
		if cfg.Metrics != nil {
			cfg.RateLimiter.OnLimited(cfg.Metrics.RateLimitHits.Inc)
		}
		r.Use(cfg.RateLimiter.Limit)
	}

	// Health endpoints
	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)

	metricsHandler := cfg.MetricsHandler
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	r.Method(http.MethodGet, "/metrics", metricsHandler)

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		if cfg.TokenVerifier != nil {
			var onFailure middleware.AuthFailureRecorder
			if cfg.Metrics != nil {
				onFailure = func(reason string) {
					cfg.Metrics.AuthFailures.WithLabelValues(reason).Inc()
				}
			}
			r.Use(middleware.AuthMiddleware(cfg.TokenVerifier, onFailure))
		}

		// Mutations
		r.Group(func(r chi.Router) {
			if cfg.TokenVerifier != nil {
				r.Use(middleware.RequireRole(domain.RoleOperator))
			}

			if cfg.IdempotencyStore != nil {
				var onReplay func()
				if cfg.Metrics != nil {
					onReplay = cfg.Metrics.IdempotentReplays.Inc
				}
				idempotencyMiddleware := middleware.NewIdempotencyMiddleware(cfg.IdempotencyStore, cfg.IdempotencyTTL, cfg.Logger, onReplay)
				r.Use(idempotencyMiddleware.Wrap)
			}

			r.Post("/deposits", cfg.LedgerHandler.Deposit)
			r.Post("/withdrawals", cfg.LedgerHandler.Withdraw)
			r.Post("/conversions", cfg.LedgerHandler.Convert)
		})

		// Reads
		r.Group(func(r chi.Router) {
			if cfg.TokenVerifier != nil {
				r.Use(middleware.RequireRole(domain.RoleViewer))
			}

			r.Get("/balances", cfg.LedgerHandler.Balances)
			r.Get("/lots", cfg.LedgerHandler.Lots)
			r.Get("/ledger/consistency", cfg.LedgerHandler.CheckConsistency)
		})
	})

	return r
}
