// Package handlers provides HTTP handlers for validation run endpoints.
package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/qvalidate/internal/modules/validation"
)

// Handler provides HTTP handlers for validation endpoints
type Handler struct {
	service *validation.Service
	log     zerolog.Logger
}

// NewHandler creates a new validation handler
func NewHandler(service *validation.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "validation").Logger(),
	}
}

// HandleStartRun handles POST /api/runs
func (h *Handler) HandleStartRun(w http.ResponseWriter, r *http.Request) {
	id, err := h.service.StartRun()
	if err != nil {
		if errors.Is(err, validation.ErrRunInProgress) {
			http.Error(w, "A validation run is already in progress", http.StatusConflict)
			return
		}
		h.log.Error().Err(err).Msg("Failed to start validation run")
		http.Error(w, "Failed to start validation run", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	if err := json.NewEncoder(w).Encode(map[string]string{"run_id": id, "status": "running"}); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode start run response")
	}
}

// HandleCancelRun handles POST /api/runs/cancel
func (h *Handler) HandleCancelRun(w http.ResponseWriter, r *http.Request) {
	if !h.service.CancelRun() {
		http.Error(w, "No validation run in progress", http.StatusConflict)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]string{"status": "cancelling"}); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode cancel response")
	}
}

// HandleGetRun handles GET /api/runs/{id}
func (h *Handler) HandleGetRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		http.Error(w, "Run ID is required", http.StatusBadRequest)
		return
	}

	run, err := h.service.GetRun(id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			http.Error(w, "Run not found", http.StatusNotFound)
			return
		}
		h.log.Error().Err(err).Str("run_id", id).Msg("Failed to load run")
		http.Error(w, "Failed to load run", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(run); err != nil {
		h.log.Error().Err(err).Str("run_id", id).Msg("Failed to encode run response")
	}
}

// HandleListRuns handles GET /api/runs
func (h *Handler) HandleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	summaries, err := h.service.ListRuns(limit)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list runs")
		http.Error(w, "Failed to list runs", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(summaries); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode runs response")
	}
}

// HandleStatus handles GET /api/runs/status
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	id, running := h.service.ActiveRun()

	response := map[string]interface{}{"running": running}
	if running {
		response["run_id"] = id
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode status response")
	}
}
