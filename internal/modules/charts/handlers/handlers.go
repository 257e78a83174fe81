// Package handlers provides HTTP handlers for chart rendering.
package handlers

import (
	"bytes"
	"database/sql"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/qvalidate/internal/modules/charts"
)

// Handler provides HTTP handlers for chart endpoints
type Handler struct {
	service *charts.Service
	log     zerolog.Logger
}

// NewHandler creates a new charts handler
func NewHandler(service *charts.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "charts").Logger(),
	}
}

// HandleMetricsChart handles GET /api/charts/{id}/metrics
func (h *Handler) HandleMetricsChart(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		http.Error(w, "Run ID is required", http.StatusBadRequest)
		return
	}

	var buf bytes.Buffer
	if err := h.service.RenderMetrics(&buf, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			http.Error(w, "Run not found", http.StatusNotFound)
			return
		}
		h.log.Error().Err(err).Str("run_id", id).Msg("Failed to render metrics chart")
		http.Error(w, "Failed to render metrics chart", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

// HandleSpectrumChart handles GET /api/charts/{id}/spectrum/{metric}
func (h *Handler) HandleSpectrumChart(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	metric := chi.URLParam(r, "metric")
	if id == "" || metric == "" {
		http.Error(w, "Run ID and metric are required", http.StatusBadRequest)
		return
	}

	var buf bytes.Buffer
	if err := h.service.RenderSpectrum(&buf, id, metric); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			http.Error(w, "Run not found", http.StatusNotFound)
			return
		}
		h.log.Error().Err(err).Str("run_id", id).Str("metric", metric).Msg("Failed to render spectrum chart")
		http.Error(w, "Failed to render spectrum chart", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
