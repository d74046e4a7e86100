package handlers

import "github.com/go-chi/chi/v5"

// RegisterRoutes mounts the dashboard API routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/dashboard", func(r chi.Router) {
		r.Get("/snapshot", h.HandleSnapshot)
		r.Get("/current", h.HandleCurrent)
	})
}
