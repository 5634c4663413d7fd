/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/activities/*     Activity catalog, registrations, invites
  /api/teams/*          Invite responses, team departure
  /api/identities/*     Per-identity registrations and inbox
  /api/notifications/*  Mark-read
  /api/scenarios/*      Demo data

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Route("/activities", func(r chi.Router) {
			r.Get("/", h.ListActivities)
			r.Post("/", h.CreateActivity)
			r.Get("/{id}", h.GetActivity)
			r.Get("/{id}/waitlist", h.GetWaitlist)
			r.Post("/{id}/registrations", h.Register)
			r.Delete("/{id}/registrations/{identity}", h.Withdraw)
			r.Post("/{id}/invites", h.Invite)
		})

		r.Route("/teams", func(r chi.Router) {
			r.Post("/{id}/respond", h.Respond)
			r.Post("/{id}/leave", h.Leave)
		})

		r.Route("/identities", func(r chi.Router) {
			r.Get("/{id}/registrations", h.IdentityRegistrations)
			r.Get("/{id}/notifications", h.ListNotifications)
			r.Get("/{id}/notifications/unread-count", h.UnreadCount)
			r.Post("/{id}/notifications/read-all", h.MarkAllNotificationsRead)
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Post("/{id}/read", h.MarkNotificationRead)
		})

		r.Route("/scenarios", func(r chi.Router) {
			r.Post("/load", h.LoadScenario)
		})
	})

	return r
}
