package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all hybrid pipeline routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/hybrid", func(r chi.Router) {
		r.Post("/solve", h.HandleSolve)
		r.Get("/jobs/{jobID}", h.HandleGetJob)
	})
}
