// Package results persists validation runs and their sweep entries.
package results

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/aristath/qvalidate/internal/database"
	"github.com/aristath/qvalidate/internal/domain"
)

// Run statuses.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Run is a stored validation run.
type Run struct {
	ID        string                 `json:"id"`
	Status    string                 `json:"status"`
	Shots     int                    `json:"shots"`
	StartedAt time.Time              `json:"started_at"`
	EndedAt   *time.Time             `json:"ended_at,omitempty"`
	FailCause string                 `json:"fail_cause,omitempty"`
	Result    *domain.SweepResult    `json:"result,omitempty"`
	Analysis  *domain.AnalysisReport `json:"analysis,omitempty"`
	// AnalysisError distinguishes "analysis broke" from the expected nil
	// report when too few sweep entries succeeded.
	AnalysisError string `json:"analysis_error,omitempty"`
}

// Summary is a run without entries and analysis, for listings.
type Summary struct {
	ID         string     `json:"id"`
	Status     string     `json:"status"`
	Shots      int        `json:"shots"`
	StartedAt  time.Time  `json:"started_at"`
	EndedAt    *time.Time `json:"ended_at,omitempty"`
	EntryCount int        `json:"entry_count"`
	Failed     int        `json:"failed"`
}

// Repository stores runs in the results database. Raw histograms are encoded
// as msgpack blobs; the analysis report as JSON.
type Repository struct {
	db  *database.DB
	log zerolog.Logger
}

// NewRepository creates a results repository and ensures the schema exists.
func NewRepository(db *database.DB, log zerolog.Logger) (*Repository, error) {
	r := &Repository{
		db:  db,
		log: log.With().Str("repository", "results").Logger(),
	}
	if err := r.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize results schema: %w", err)
	}
	return r, nil
}

func (r *Repository) initSchema() error {
	_, err := r.db.Conn().Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			id         TEXT PRIMARY KEY,
			status     TEXT NOT NULL,
			shots      INTEGER NOT NULL,
			started_at TEXT NOT NULL,
			ended_at   TEXT,
			fail_cause TEXT,
			analysis   TEXT,
			analysis_error TEXT
		);

		CREATE TABLE IF NOT EXISTS run_entries (
			run_id               TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			position             INTEGER NOT NULL,
			parameter            REAL NOT NULL,
			temporal_correlation REAL,
			falsification        REAL,
			beyond_quantum       REAL,
			attempts             INTEGER NOT NULL,
			failed               INTEGER NOT NULL,
			fail_cause           TEXT,
			histogram            BLOB,
			PRIMARY KEY (run_id, position)
		);

		CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at DESC);
	`)
	return err
}

// CreateRun records a new run in the running state.
func (r *Repository) CreateRun(id string, shots int, startedAt time.Time) error {
	_, err := r.db.Conn().Exec(
		`INSERT INTO runs (id, status, shots, started_at) VALUES (?, ?, ?, ?)`,
		id, StatusRunning, shots, startedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to create run %s: %w", id, err)
	}
	return nil
}

// CompleteRun stores the sweep entries and optional analysis for a run and
// marks it completed. The analysis may be nil when too few entries succeeded.
func (r *Repository) CompleteRun(id string, result domain.SweepResult, analysis *domain.AnalysisReport) error {
	tx, err := r.db.Conn().Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var analysisJSON sql.NullString
	if analysis != nil {
		encoded, err := json.Marshal(analysis)
		if err != nil {
			return fmt.Errorf("failed to encode analysis: %w", err)
		}
		analysisJSON = sql.NullString{String: string(encoded), Valid: true}
	}

	_, err = tx.Exec(
		`UPDATE runs SET status = ?, ended_at = ?, analysis = ? WHERE id = ?`,
		StatusCompleted, result.EndedAt.UTC().Format(time.RFC3339Nano), analysisJSON, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update run %s: %w", id, err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO run_entries
			(run_id, position, parameter, temporal_correlation, falsification,
			 beyond_quantum, attempts, failed, fail_cause, histogram)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare entry insert: %w", err)
	}
	defer stmt.Close()

	for i, e := range result.Entries {
		var blob []byte
		if e.Histogram != nil {
			blob, err = msgpack.Marshal(e.Histogram)
			if err != nil {
				return fmt.Errorf("failed to encode histogram for param %.3f: %w", e.Parameter, err)
			}
		}
		_, err = stmt.Exec(
			id, i, e.Parameter,
			e.Metrics.TemporalCorrelation, e.Metrics.Falsification, e.Metrics.BeyondQuantum,
			e.Attempts, boolToInt(e.Failed), e.FailCause, blob,
		)
		if err != nil {
			return fmt.Errorf("failed to insert entry %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run %s: %w", id, err)
	}

	r.log.Debug().Str("run_id", id).Int("entries", len(result.Entries)).Msg("Run stored")
	return nil
}

// FailRun marks a run as failed with a cause.
func (r *Repository) FailRun(id, cause string) error {
	_, err := r.db.Conn().Exec(
		`UPDATE runs SET status = ?, ended_at = ?, fail_cause = ? WHERE id = ?`,
		StatusFailed, time.Now().UTC().Format(time.RFC3339Nano), cause, id,
	)
	if err != nil {
		return fmt.Errorf("failed to mark run %s failed: %w", id, err)
	}
	return nil
}

// RecordAnalysisError stores why analysis produced no report for a run.
func (r *Repository) RecordAnalysisError(id, cause string) error {
	_, err := r.db.Conn().Exec(
		`UPDATE runs SET analysis_error = ? WHERE id = ?`,
		cause, id,
	)
	if err != nil {
		return fmt.Errorf("failed to record analysis error for run %s: %w", id, err)
	}
	return nil
}

// GetRun loads a run with its entries and analysis. Returns sql.ErrNoRows
// when the run does not exist.
func (r *Repository) GetRun(id string) (*Run, error) {
	row := r.db.Conn().QueryRow(
		`SELECT id, status, shots, started_at, ended_at, fail_cause, analysis, analysis_error FROM runs WHERE id = ?`, id,
	)

	var run Run
	var startedAt string
	var endedAt, failCause, analysisJSON, analysisError sql.NullString
	if err := row.Scan(&run.ID, &run.Status, &run.Shots, &startedAt, &endedAt, &failCause, &analysisJSON, &analysisError); err != nil {
		return nil, err
	}
	if analysisError.Valid {
		run.AnalysisError = analysisError.String
	}

	var err error
	run.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse started_at for run %s: %w", id, err)
	}
	if endedAt.Valid {
		t, err := time.Parse(time.RFC3339Nano, endedAt.String)
		if err != nil {
			return nil, fmt.Errorf("failed to parse ended_at for run %s: %w", id, err)
		}
		run.EndedAt = &t
	}
	if failCause.Valid {
		run.FailCause = failCause.String
	}
	if analysisJSON.Valid {
		var report domain.AnalysisReport
		if err := json.Unmarshal([]byte(analysisJSON.String), &report); err != nil {
			return nil, fmt.Errorf("failed to decode analysis for run %s: %w", id, err)
		}
		run.Analysis = &report
	}

	entries, err := r.loadEntries(id)
	if err != nil {
		return nil, err
	}
	if len(entries) > 0 {
		result := domain.SweepResult{
			Entries:   entries,
			Shots:     run.Shots,
			StartedAt: run.StartedAt,
		}
		if run.EndedAt != nil {
			result.EndedAt = *run.EndedAt
		}
		run.Result = &result
	}

	return &run, nil
}

func (r *Repository) loadEntries(runID string) ([]domain.SweepEntry, error) {
	rows, err := r.db.Conn().Query(`
		SELECT parameter, temporal_correlation, falsification, beyond_quantum,
		       attempts, failed, fail_cause, histogram
		FROM run_entries WHERE run_id = ? ORDER BY position
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries for run %s: %w", runID, err)
	}
	defer rows.Close()

	var entries []domain.SweepEntry
	for rows.Next() {
		var e domain.SweepEntry
		var failed int
		var failCause sql.NullString
		var blob []byte
		err := rows.Scan(
			&e.Parameter,
			&e.Metrics.TemporalCorrelation, &e.Metrics.Falsification, &e.Metrics.BeyondQuantum,
			&e.Attempts, &failed, &failCause, &blob,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		e.Failed = failed != 0
		if failCause.Valid {
			e.FailCause = failCause.String
		}
		if len(blob) > 0 {
			if err := msgpack.Unmarshal(blob, &e.Histogram); err != nil {
				return nil, fmt.Errorf("failed to decode histogram: %w", err)
			}
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ListRuns returns run summaries, newest first.
func (r *Repository) ListRuns(limit int) ([]Summary, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Conn().Query(`
		SELECT r.id, r.status, r.shots, r.started_at, r.ended_at,
		       COUNT(e.run_id), COALESCE(SUM(e.failed), 0)
		FROM runs r
		LEFT JOIN run_entries e ON e.run_id = r.id
		GROUP BY r.id
		ORDER BY r.started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var summaries []Summary
	for rows.Next() {
		var s Summary
		var startedAt string
		var endedAt sql.NullString
		if err := rows.Scan(&s.ID, &s.Status, &s.Shots, &startedAt, &endedAt, &s.EntryCount, &s.Failed); err != nil {
			return nil, fmt.Errorf("failed to scan run summary: %w", err)
		}
		s.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse started_at: %w", err)
		}
		if endedAt.Valid {
			t, err := time.Parse(time.RFC3339Nano, endedAt.String)
			if err != nil {
				return nil, fmt.Errorf("failed to parse ended_at: %w", err)
			}
			s.EndedAt = &t
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
