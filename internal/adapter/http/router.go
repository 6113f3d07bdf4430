package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/iho/rewardledger/internal/adapter/http/handler"
	"github.com/iho/rewardledger/internal/adapter/http/middleware"
	"github.com/iho/rewardledger/internal/infrastructure/metrics"
	"github.com/iho/rewardledger/internal/usecase"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	UserHandler           *handler.UserHandler
	AccountHandler        *handler.AccountHandler
	EntryHandler          *handler.EntryHandler
	TransferHandler       *handler.TransferHandler
	GatewayHandler        *handler.GatewayHandler
	RankHandler           *handler.RankHandler
	ReconciliationHandler *handler.ReconciliationHandler
	SettingsHandler       *handler.SettingsHandler
	HealthHandler         *handler.HealthHandler

	Logger zerolog.Logger
	// Metrics is optional; without it no request metrics are recorded.
	Metrics *metrics.Metrics
	// Gatherer serves /metrics when set.
	Gatherer prometheus.Gatherer
	// IdempotencyStore is optional; without it Idempotency-Key headers are
	// only checked against stored entries.
	IdempotencyStore usecase.IdempotencyStore
	IdempotencyTTL   time.Duration
	RateLimiter      *middleware.RateLimiter
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewLoggingMiddleware(cfg.Logger).Wrap)
	r.Use(middleware.Recovery(cfg.Logger))
	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
	}
	if cfg.RateLimiter != nil {
		r.Use(cfg.RateLimiter.Limit)
	}

	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)
	if cfg.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		if cfg.IdempotencyStore != nil {
			r.Use(middleware.NewIdempotencyMiddleware(cfg.IdempotencyStore, cfg.IdempotencyTTL, cfg.Logger).Wrap)
		}

		r.Route("/users", func(r chi.Router) {
			r.Post("/", cfg.UserHandler.Register)
			r.Get("/{id}", cfg.UserHandler.Get)
			r.Get("/{id}/accounts", cfg.UserHandler.ListAccounts)
			r.Post("/{id}/accounts", cfg.UserHandler.OpenAccount)
			r.Get("/{id}/ranks", cfg.RankHandler.History)
		})

		r.Route("/accounts", func(r chi.Router) {
			r.Get("/", cfg.AccountHandler.List)
			r.Get("/{id}", cfg.AccountHandler.Get)
			r.Get("/{id}/entries", cfg.AccountHandler.ListEntries)
			r.Get("/{id}/reconciliation", cfg.AccountHandler.Reconcile)
		})

		r.Route("/entries", func(r chi.Router) {
			r.Post("/", cfg.EntryHandler.Create)
			r.Get("/{id}", cfg.EntryHandler.Get)
			r.Post("/{id}/complete", cfg.EntryHandler.Complete)
			r.Post("/{id}/cancel", cfg.EntryHandler.Cancel)
			r.Post("/{id}/fail", cfg.EntryHandler.Fail)
			r.Post("/{id}/payout", cfg.EntryHandler.Payout)
			r.Post("/{id}/collect", cfg.EntryHandler.Collect)
		})

		r.Post("/transfers", cfg.TransferHandler.Create)
		r.Post("/gateways/{provider}/callback", cfg.GatewayHandler.Callback)

		r.Route("/ranks", func(r chi.Router) {
			r.Get("/", cfg.RankHandler.List)
			r.Post("/", cfg.RankHandler.Create)
		})

		r.Route("/reconciliation", func(r chi.Router) {
			r.Post("/sweep", cfg.ReconciliationHandler.Sweep)
			r.Get("/report", cfg.ReconciliationHandler.Report)
		})

		r.Route("/settings", func(r chi.Router) {
			r.Get("/rewards", cfg.SettingsHandler.GetRewards)
			r.Put("/rewards", cfg.SettingsHandler.UpdateRewards)
		})
	})

	return r
}
