package handlers

import "github.com/go-chi/chi/v5"

// RegisterRoutes mounts the snapshot API routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/snapshots", func(r chi.Router) {
		r.Post("/capture", h.HandleCapture)
		r.Get("/latest", h.HandleLatest)
	})
}
