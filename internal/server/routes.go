package server

import (
	"github.com/go-chi/chi/v5"

	"github.com/raidlens/raidlens/internal/server/handlers"
)

// registerRoutes registers all HTTP routes
func (s *Server) registerRoutes() {
	// Health endpoints
	s.router.Get("/health", handlers.HealthHandler)
	s.router.Get("/health/live", handlers.LivenessHandler)
	s.router.Get("/health/ready", handlers.ReadinessHandler)

	// Version endpoint
	s.router.Get("/version", handlers.VersionHandler)

	// Read-only report API. Everything served here comes from the local
	// store; the server never talks to the remote service.
	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/reports/{code}/fights", handlers.ListFightsHandler)
		r.Get("/reports/{code}/fights/{fightID}/metrics", handlers.FightMetricsHandler)
		r.Get("/reports/{code}/runs", handlers.IngestRunsHandler)
		r.Get("/ratelimit", handlers.RateBudgetHandler)
	})
}
