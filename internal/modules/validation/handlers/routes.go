package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all validation run routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/runs", func(r chi.Router) {
		r.Post("/", h.HandleStartRun)
		r.Get("/", h.HandleListRuns)
		r.Get("/status", h.HandleStatus)
		r.Post("/cancel", h.HandleCancelRun)
		r.Get("/{id}", h.HandleGetRun)
	})
}
