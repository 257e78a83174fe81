package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/qvalidate/internal/reliability"
)

// BackupHandlers exposes backup operations over HTTP.
type BackupHandlers struct {
	service *reliability.BackupService
	log     zerolog.Logger
}

// NewBackupHandlers creates backup handlers.
func NewBackupHandlers(service *reliability.BackupService, log zerolog.Logger) *BackupHandlers {
	return &BackupHandlers{
		service: service,
		log:     log.With().Str("handler", "backups").Logger(),
	}
}

// RegisterRoutes registers backup routes
func (h *BackupHandlers) RegisterRoutes(r chi.Router) {
	r.Route("/backups", func(r chi.Router) {
		r.Get("/", h.HandleListBackups)
		r.Post("/", h.HandleCreateBackup)
	})
}

// HandleListBackups handles GET /api/backups
func (h *BackupHandlers) HandleListBackups(w http.ResponseWriter, r *http.Request) {
	backups, err := h.service.ListBackups(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list backups")
		http.Error(w, "Failed to list backups", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(backups); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode backups response")
	}
}

// HandleCreateBackup handles POST /api/backups
func (h *BackupHandlers) HandleCreateBackup(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Backup(r.Context()); err != nil {
		h.log.Error().Err(err).Msg("Backup failed")
		http.Error(w, "Backup failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]string{"status": "completed"}); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode backup response")
	}
}
