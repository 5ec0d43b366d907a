// Package api provides the HTTP API for powdertracker.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/powdertracker/powdertracker/internal/api/handler"
	"github.com/powdertracker/powdertracker/internal/api/middleware"
	"github.com/powdertracker/powdertracker/internal/api/response"
	"github.com/powdertracker/powdertracker/internal/mountain"
	"github.com/powdertracker/powdertracker/internal/provider/resilience"
	"github.com/powdertracker/powdertracker/internal/snapshot"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version     string
	BuildTime   string
	Logger      zerolog.Logger
	ServiceName string
	Metrics     *middleware.Metrics

	// Service serves the cached batch aggregates.
	Service handler.BatchService

	// Registry backs the mountain listing and readiness probe.
	Registry mountain.Registry

	// Providers reports upstream health on /api/ops/status (optional).
	Providers *resilience.Registry

	// Subsystems are additional readiness probes (optional).
	Subsystems []handler.Subsystem

	// Snapshots enables the powder history endpoint (optional).
	Snapshots snapshot.Repository

	// RequireTLS redirects plain-HTTP requests behind the load balancer.
	RequireTLS bool

	// AllowedOrigins enables CORS for the listed origins; empty disables it.
	AllowedOrigins []string
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "powdertracker-api"
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)            // Generate/propagate request ID first
	r.Use(middleware.Tracing(serviceName)) // Distributed tracing
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware()) // HTTP metrics
	}
	r.Use(middleware.Logger(cfg.Logger))   // Structured logging
	r.Use(middleware.Recovery(cfg.Logger)) // Panic recovery
	r.Use(chimiddleware.RealIP)            // Real IP extraction
	r.Use(middleware.SecurityHeaders)      // Security headers (HSTS, CSP, etc.)
	r.Use(middleware.RequireTLS(cfg.RequireTLS))
	if len(cfg.AllowedOrigins) > 0 {
		r.Use(middleware.CORS(cfg.AllowedOrigins))
	}
	r.Use(middleware.ContentTypeJSON)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.NotFound(w, r, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, r, http.StatusMethodNotAllowed, "Method not allowed")
	})

	opsHandler := handler.NewOpsHandler(handler.OpsConfig{
		Version:    cfg.Version,
		BuildTime:  cfg.BuildTime,
		Registry:   cfg.Registry,
		Providers:  cfg.Providers,
		Subsystems: cfg.Subsystems,
		Logger:     cfg.Logger,
	})
	mountainHandler := handler.NewMountainHandler(cfg.Service, cfg.Registry, cfg.Logger)

	batchRateLimit := middleware.RateLimitByIP(middleware.BatchRateLimit)       // 60 req/min
	standardRateLimit := middleware.RateLimitByIP(middleware.StandardRateLimit) // 100 req/min

	r.Route("/api", func(r chi.Router) {
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			r.Get("/status", opsHandler.SystemStatus)
		})

		r.Route("/mountains", func(r chi.Router) {
			r.Route("/batch", func(r chi.Router) {
				r.Use(batchRateLimit)
				r.Use(middleware.NoStore)
				r.Get("/conditions", mountainHandler.BatchConditions)
				r.Get("/powder-scores", mountainHandler.BatchPowderScores)
			})

			r.Group(func(r chi.Router) {
				r.Use(standardRateLimit)
				r.Get("/", mountainHandler.ListMountains)
				r.Get("/{mountainId}", mountainHandler.GetMountain)
				if cfg.Snapshots != nil {
					historyHandler := handler.NewHistoryHandler(cfg.Snapshots, cfg.Registry, cfg.Logger)
					r.Get("/{mountainId}/powder-history", historyHandler.PowderHistory)
				}
			})
		})
	})

	return r
}
