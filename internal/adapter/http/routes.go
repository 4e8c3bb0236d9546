package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// MountRoutes registers all API routes on the given chi router. Public
// paths (signup, login) are exempted by the auth middleware, everything
// else requires a valid access token.
func MountRoutes(r chi.Router, h *Handlers) {
	r.Route("/api/v1", func(r chi.Router) {
		// Version
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"version":"0.1.0"}`))
		})

		// Auth (public routes handled by middleware exemption)
		r.Post("/auth/signup", h.Signup)
		r.Post("/auth/login", h.Login)

		// Auth (authenticated)
		r.Post("/auth/logout", h.Logout)
		r.Get("/auth/me", h.GetCurrentUser)

		// Chat (SSE streaming agent run)
		r.Post("/chat", h.Chat)

		// Stored data
		r.Get("/memories", h.ListMemories)
		r.Get("/events", h.ListEvents)
	})
}
