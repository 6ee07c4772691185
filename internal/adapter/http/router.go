package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/AlexShrike/nexum-sub002/internal/adapter/http/handler"
	"github.com/AlexShrike/nexum-sub002/internal/adapter/http/middleware"
	"github.com/AlexShrike/nexum-sub002/internal/infrastructure/metrics"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	AccountHandler     *handler.AccountHandler
	TransactionHandler *handler.TransactionHandler
	EntryHandler       *handler.EntryHandler
	AuditHandler       *handler.AuditHandler
	ScheduleHandler    *handler.ScheduleHandler
	InterestHandler    *handler.InterestHandler
	HealthHandler      *handler.HealthHandler
	Logger             zerolog.Logger
	Metrics            *metrics.Metrics
	// Gatherer backs /metrics. Nil leaves the endpoint out.
	Gatherer prometheus.Gatherer
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger(cfg.Logger))
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.Metrics(cfg.Metrics))

	// Health endpoints
	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)
	if cfg.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/accounts", func(r chi.Router) {
			r.Post("/", cfg.AccountHandler.Create)
			r.Get("/", cfg.AccountHandler.List)
			r.Get("/{id}", cfg.AccountHandler.Get)
			r.Get("/{id}/balance", cfg.AccountHandler.Balance)
			r.Get("/{id}/entries", cfg.EntryHandler.ListByAccount)
			r.Get("/{id}/statement", cfg.EntryHandler.Statement)
			r.Post("/{id}/freeze", cfg.AccountHandler.Freeze)
			r.Post("/{id}/activate", cfg.AccountHandler.Activate)
			r.Post("/{id}/close", cfg.AccountHandler.Close)
		})

		r.Route("/transactions", func(r chi.Router) {
			r.Post("/", cfg.TransactionHandler.Submit)
			r.Get("/{id}", cfg.TransactionHandler.Get)
			r.Get("/{id}/entries", cfg.EntryHandler.ListByTransaction)
			r.Post("/{id}/reverse", cfg.TransactionHandler.Reverse)
		})

		r.Get("/audit", cfg.AuditHandler.List)
		r.Get("/audit/verify", cfg.AuditHandler.Verify)
		r.Get("/reconciliation", cfg.AuditHandler.Reconcile)

		r.Post("/schedules", cfg.ScheduleHandler.Generate)
		r.Post("/interest/accruals", cfg.InterestHandler.Accrue)
	})

	return r
}
