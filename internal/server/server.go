// Package server provides the HTTP server and routing.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/aristath/qvalidate/internal/events"
	chartshandlers "github.com/aristath/qvalidate/internal/modules/charts/handlers"
	validationhandlers "github.com/aristath/qvalidate/internal/modules/validation/handlers"
	"github.com/aristath/qvalidate/internal/reliability"
)

// Config holds server configuration
type Config struct {
	Log                zerolog.Logger
	Port               int
	DataDir            string
	ValidationHandlers *validationhandlers.Handler
	ChartsHandlers     *chartshandlers.Handler
	EventBus           *events.Bus
	BackupService      *reliability.BackupService // optional
}

// Server represents the HTTP server
type Server struct {
	router         *chi.Mux
	server         *http.Server
	log            zerolog.Logger
	systemHandlers *SystemHandlers
	eventsHandler  *EventsHandler
	backupHandlers *BackupHandlers
	cfg            Config
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router:         chi.NewRouter(),
		log:            cfg.Log.With().Str("component", "server").Logger(),
		systemHandlers: NewSystemHandlers(cfg.Log, cfg.DataDir),
		eventsHandler:  NewEventsHandler(cfg.EventBus, cfg.Log),
		cfg:            cfg,
	}
	if cfg.BackupService != nil {
		s.backupHandlers = NewBackupHandlers(cfg.BackupService, cfg.Log)
	}

	s.setupMiddleware()
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
	}

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))
}

func (s *Server) setupRoutes() {
	s.router.Route("/api", func(r chi.Router) {
		s.cfg.ValidationHandlers.RegisterRoutes(r)
		s.cfg.ChartsHandlers.RegisterRoutes(r)

		r.Get("/system/status", s.systemHandlers.HandleStatus)
		r.Get("/events/ws", s.eventsHandler.ServeHTTP)

		if s.backupHandlers != nil {
			s.backupHandlers.RegisterRoutes(r)
		}
	})

	s.router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
}

// Start starts the HTTP server. It blocks until the server stops.
func (s *Server) Start() error {
	s.log.Info().Int("port", s.cfg.Port).Msg("HTTP server starting")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("HTTP server shutting down")
	return s.server.Shutdown(ctx)
}

// Router exposes the configured router, used by tests.
func (s *Server) Router() http.Handler {
	return s.router
}
