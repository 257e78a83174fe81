// Package validation owns the lifecycle of validation runs: it starts
// sweeps, feeds results through analysis, persists them, and publishes
// lifecycle events.
package validation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/qvalidate/internal/domain"
	"github.com/aristath/qvalidate/internal/events"
	"github.com/aristath/qvalidate/internal/modules/results"
	"github.com/aristath/qvalidate/internal/sweep"
)

// ErrRunInProgress is returned when a run is requested while another is
// still executing. Sweeps share the remote backend quota, so they do not
// overlap.
var ErrRunInProgress = errors.New("a validation run is already in progress")

// Sweeper runs a full parameter sweep.
type Sweeper interface {
	Run(ctx context.Context, progress sweep.ProgressFunc) domain.SweepResult
}

// Analyzer derives an analysis report from a sweep result.
type Analyzer interface {
	Analyze(result domain.SweepResult) (domain.AnalysisReport, error)
}

// Service coordinates validation runs.
type Service struct {
	sweeper  Sweeper
	analyzer Analyzer
	repo     *results.Repository
	bus      *events.Bus
	log      zerolog.Logger

	mu       sync.Mutex
	activeID string
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewService creates a validation service.
func NewService(
	sweeper Sweeper,
	analyzer Analyzer,
	repo *results.Repository,
	bus *events.Bus,
	log zerolog.Logger,
) *Service {
	return &Service{
		sweeper:  sweeper,
		analyzer: analyzer,
		repo:     repo,
		bus:      bus,
		log:      log.With().Str("service", "validation").Logger(),
	}
}

// StartRun begins a new validation run in the background and returns its ID.
// Only one run executes at a time.
func (s *Service) StartRun() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.activeID != "" {
		return "", ErrRunInProgress
	}

	id := uuid.New().String()
	ctx, cancel := context.WithCancel(context.Background())

	if err := s.repo.CreateRun(id, sweep.DefaultShots, time.Now().UTC()); err != nil {
		cancel()
		return "", fmt.Errorf("failed to record run: %w", err)
	}

	s.activeID = id
	s.cancel = cancel
	s.done = make(chan struct{})

	s.log.Info().Str("run_id", id).Msg("Validation run started")
	s.bus.Publish(events.RunStarted, id, nil)
	go s.execute(ctx, id)

	return id, nil
}

// execute drives one run to completion.
func (s *Service) execute(ctx context.Context, id string) {
	defer func() {
		s.mu.Lock()
		s.activeID = ""
		s.cancel = nil
		close(s.done)
		s.mu.Unlock()
	}()

	result := s.sweeper.Run(ctx, func(current, total int, message string) {
		s.bus.Publish(events.SweepProgress, id, events.ProgressData(current, total, message))
	})

	var report *domain.AnalysisReport
	var analysisErr error
	analyzed, err := s.analyzer.Analyze(result)
	if err != nil {
		var insufficient *domain.InsufficientDataError
		if errors.As(err, &insufficient) {
			// The sweep itself is still recorded; only the statistics are
			// withheld.
			s.log.Warn().
				Str("run_id", id).
				Int("successful", insufficient.Have).
				Msg("Too few successful entries for analysis")
		} else {
			// Unexpected analysis failures are recorded on the run so API
			// consumers can tell them apart from the too-few-points case.
			analysisErr = err
			s.log.Error().Err(err).Str("run_id", id).Msg("Analysis failed")
		}
	} else {
		report = &analyzed
	}

	if err := s.repo.CompleteRun(id, result, report); err != nil {
		s.log.Error().Err(err).Str("run_id", id).Msg("Failed to store run")
		if ferr := s.repo.FailRun(id, err.Error()); ferr != nil {
			s.log.Error().Err(ferr).Str("run_id", id).Msg("Failed to mark run failed")
		}
		s.bus.Publish(events.RunFailed, id, map[string]interface{}{"error": err.Error()})
		return
	}

	if analysisErr != nil {
		if err := s.repo.RecordAnalysisError(id, analysisErr.Error()); err != nil {
			s.log.Error().Err(err).Str("run_id", id).Msg("Failed to record analysis error")
		}
	}

	s.log.Info().
		Str("run_id", id).
		Int("entries", len(result.Entries)).
		Int("failed", result.FailedCount()).
		Bool("analyzed", report != nil).
		Msg("Validation run completed")
	s.bus.Publish(events.RunCompleted, id, map[string]interface{}{
		"entries": len(result.Entries),
		"failed":  result.FailedCount(),
	})
}

// CancelRun aborts the active run, if any. Completed sweep entries are kept.
func (s *Service) CancelRun() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel == nil {
		return false
	}
	s.cancel()
	return true
}

// ActiveRun returns the currently executing run ID, if any.
func (s *Service) ActiveRun() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeID, s.activeID != ""
}

// Wait blocks until the active run (if any) finishes. Used by shutdown and
// tests.
func (s *Service) Wait() {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done != nil {
		<-done
	}
}

// GetRun loads a stored run with entries and analysis.
func (s *Service) GetRun(id string) (*results.Run, error) {
	return s.repo.GetRun(id)
}

// ListRuns returns stored run summaries, newest first.
func (s *Service) ListRuns(limit int) ([]results.Summary, error) {
	return s.repo.ListRuns(limit)
}
