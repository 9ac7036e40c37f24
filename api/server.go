/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Origins from server.cors.allow_origins

ROUTE GROUPS:
  /api/commands         Slash commands
  /api/requests/*       Time-off request lifecycle
  /api/members/*        Quota queries
  /api/schedule/*       Digest preview
  /api/digest/*         Digest trigger
  /api/attendance/*     Attendance record and export
  /api/scenarios/*      Demo data (in-memory host only)
  /healthz              Liveness

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, allowOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders: []string{"Content-Disposition"},
	}))

	r.Get("/healthz", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.Post("/commands", h.Command)

		// Request routes
		r.Route("/requests", func(r chi.Router) {
			r.Post("/", h.SubmitRequest)
			r.Post("/confirm", h.ConfirmRequest)
			r.Post("/{messageID}/cancel", h.CancelRequest)
		})

		r.Get("/members/{userID}/remaining", h.GetRemaining)
		r.Get("/schedule/today", h.GetToday)
		r.Post("/digest/run", h.RunDigest)

		// Attendance routes
		r.Route("/attendance", func(r chi.Router) {
			r.Get("/today", h.GetAttendanceToday)
			r.Get("/export", h.ExportAttendance)
		})

		// Scenario routes (in-memory host only)
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
		})
	})

	return r
}
