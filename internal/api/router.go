package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
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
	r.Use(s.rateLimitMiddleware)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Health check (no auth required)
		r.Get("/health", s.handleHealth)

		// System metrics (no auth required for basic monitoring)
		r.Get("/metrics", s.handleMetrics)

		// Auth endpoints (no auth required)
		r.Post("/auth/login", s.handleLogin)
		r.Post("/auth/refresh", s.handleRefresh)
		r.Post("/auth/logout", s.handleLogout)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Get("/auth/me", s.handleMe)

			// WS ticket requires authentication - user must be logged in to request a ticket
			r.Post("/auth/ws-ticket", s.handleWSTicket)

			// Device endpoints
			r.Route("/devices", func(r chi.Router) {
				r.Get("/", s.handleListDevices)

				r.Route("/{deviceID}", func(r chi.Router) {
					r.Get("/", s.handleGetDevice)

					r.Route("/objects", func(r chi.Router) {
						r.Get("/", s.handleListObjects)

						r.Route("/{objectID}", func(r chi.Router) {
							r.Get("/", s.handleGetObject)
							r.Get("/history", s.handleGetObjectHistory)

							// Protocol triggers need command rights
							r.Group(func(r chi.Router) {
								r.Use(s.requireCommand)
								r.Post("/read", s.handleReadObject)
								r.Post("/write", s.handleWriteObject)
								r.Post("/subscribe", s.handleSubscribeObject)
								r.Post("/unsubscribe", s.handleUnsubscribeObject)
							})
						})
					})
				})
			})

			// Discovery trigger
			r.Group(func(r chi.Router) {
				r.Use(s.requireCommand)
				r.Post("/discovery/whois", s.handleTriggerDiscovery)
			})

			// User management (admin only)
			r.Route("/users", func(r chi.Router) {
				r.Use(s.requireUserAdmin)

				r.Get("/", s.handleListUsers)
				r.Post("/", s.handleCreateUser)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", s.handleGetUser)
					r.Patch("/", s.handleUpdateUser)
					r.Delete("/", s.handleDeleteUser)
					r.Get("/sessions", s.handleListUserSessions)
					r.Delete("/sessions", s.handleRevokeUserSessions)
				})
			})

			// WebSocket (auth via ticket, validated in handler)
			r.Get("/ws", s.handleWebSocket)
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
