// Package http wires the citation API's route tree and server lifecycle.
package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/turtacn/CiteScope/internal/interfaces/http/handlers"
	"github.com/turtacn/CiteScope/internal/interfaces/http/middleware"
)

// RouterConfig aggregates the handlers and middleware of the route tree.
// Nil middleware entries are skipped, which is what the tests rely on.
type RouterConfig struct {
	CitationHandler  *handlers.CitationHandler
	WorkspaceHandler *handlers.WorkspaceHandler
	HealthHandler    *handlers.HealthHandler

	AuthMiddleware      *middleware.AuthMiddleware
	ScopeMiddleware     *middleware.ScopeMiddleware
	CORSMiddleware      *middleware.CORSMiddleware
	LoggingMiddleware   *middleware.LoggingMiddleware
	RateLimitMiddleware *middleware.RateLimitMiddleware

	// MetricsHandler serves GET /metrics (promhttp); mounted outside auth.
	MetricsHandler http.Handler
}

// NewRouter builds the complete route tree.  Health and metrics are public;
// everything under /api/v1 runs through auth, scope, and rate limiting.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	if cfg.CORSMiddleware != nil {
		r.Use(cfg.CORSMiddleware.Handler)
	}
	if cfg.LoggingMiddleware != nil {
		r.Use(cfg.LoggingMiddleware.Handler)
	}

	if cfg.HealthHandler != nil {
		r.Get("/healthz", cfg.HealthHandler.Liveness)
		r.Get("/readyz", cfg.HealthHandler.Readiness)
	}
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Route("/api/v1", func(api chi.Router) {
		if cfg.AuthMiddleware != nil {
			api.Use(cfg.AuthMiddleware.Handler)
		}
		if cfg.ScopeMiddleware != nil {
			api.Use(cfg.ScopeMiddleware.Handler)
		}
		if cfg.RateLimitMiddleware != nil {
			api.Use(cfg.RateLimitMiddleware.Handler)
		}

		registerCitationRoutes(api, cfg.CitationHandler)
		registerWorkspaceRoutes(api, cfg.WorkspaceHandler)
	})

	return r
}

func registerCitationRoutes(r chi.Router, h *handlers.CitationHandler) {
	if h == nil {
		return
	}
	r.Route("/citation", func(cr chi.Router) {
		cr.Route("/jobs", func(jr chi.Router) {
			jr.Post("/", h.EnqueueJob)
			jr.Get("/", h.ListJobs)
			jr.Get("/{jobID}", h.GetJob)
		})

		cr.Get("/matches", h.TopMatches)

		cr.Route("/combined", func(cb chi.Router) {
			cb.Post("/", h.Combine)
			cb.Get("/", h.ListCombined)
			cb.Get("/{combinedID}", h.GetCombined)
		})
	})
}

func registerWorkspaceRoutes(r chi.Router, h *handlers.WorkspaceHandler) {
	if h == nil {
		return
	}
	r.Post("/workspace/{projectID}/invalidate", h.Invalidate)
}

//Personal.AI order the ending
