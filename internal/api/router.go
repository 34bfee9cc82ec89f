package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/samsdev/sams-auth/internal/auth"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// Prometheus scrape endpoint (no auth, no versioned prefix)
	r.Handle("/metrics", s.metrics.Handler())

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.metricsMiddleware)
		r.Use(s.sessionMiddleware)

		// Health check (no auth required)
		r.Get("/health", s.handleHealth)

		// Auth endpoints (no auth required; login is rate-limited per IP)
		r.Post("/auth/register", s.handleRegister)
		r.Group(func(r chi.Router) {
			r.Use(s.loginLimiter.middleware)
			r.Post("/auth/login", s.handleLogin)
		})

		// Any authenticated, active user
		r.Group(func(r chi.Router) {
			r.Use(s.requirePolicy(auth.Authenticated()))

			r.Get("/auth/me", s.handleMe)

			r.Get("/staff", s.handleListStaff)
			r.Get("/staff/{id}", s.handleGetStaff)
		})

		// Admin only
		r.Group(func(r chi.Router) {
			r.Use(s.requirePolicy(auth.RequireRole(auth.RoleAdmin)))

			r.Route("/users", func(r chi.Router) {
				r.Get("/", s.handleListUsers)
				r.Post("/", s.handleCreateUser)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", s.handleGetUser)
					r.Patch("/", s.handleUpdateUser)
					r.Delete("/", s.handleDeleteUser)
					r.Put("/password", s.handleSetUserPassword)
				})
			})

			r.Post("/staff", s.handleCreateStaff)
			r.Put("/staff/{id}", s.handleUpdateStaff)
			r.Delete("/staff/{id}", s.handleDeleteStaff)

			r.Get("/audit", s.handleListAuditLogs)
		})
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}
