package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ricirt/autoblog/internal/api/handler"
	apimw "github.com/ricirt/autoblog/internal/api/middleware"
	"github.com/ricirt/autoblog/internal/domain"
	"github.com/ricirt/autoblog/internal/service"
)

// Deps collects what the HTTP surface needs from main.
type Deps struct {
	Dispatcher *service.Dispatcher
	Links      handler.EditLinker
	Defaults   domain.Options
	AdminToken string
	// HealthChecks are pinged by GET /health, keyed by dependency name.
	HealthChecks map[string]handler.HealthCheck
	Registry     prometheus.Gatherer
	Logger       *zap.Logger
}

// NewRouter wires the chi router, attaches all middleware, and registers
// every route. It is the single source of truth for the HTTP surface area.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	// --- global middleware (applied to every route) ---
	r.Use(chimw.Recoverer)            // recover panics, return 500
	r.Use(chimw.RealIP)               // trust X-Forwarded-For / X-Real-IP
	r.Use(chimw.RequestSize(1 << 20)) // 1 MB max request body
	r.Use(apimw.CorrelationID)        // X-Correlation-ID inject / echo
	r.Use(apimw.RequestLogger(d.Logger))

	// --- handler instances ---
	qh := handler.NewQueueHandler(d.Dispatcher, d.Links, d.Defaults, d.Logger)
	sh := handler.NewStatsHandler(d.Dispatcher)
	hh := handler.NewHealthHandler(d.HealthChecks)

	// --- unauthenticated routes ---
	r.Get("/health", hh.Health)
	r.Handle("/metrics", promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(apimw.BearerAuth(d.AdminToken))

		r.Post("/generate", qh.Generate)
		r.Get("/queue", qh.List)
		r.Post("/queue/{id}/retry", qh.Retry)
		r.Delete("/queue/{id}", qh.Delete)

		r.Get("/stats", sh.Stats)
	})

	return r
}
