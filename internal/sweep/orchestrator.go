// Package sweep orchestrates the parameter sweep: it drives circuit
// construction, remote execution with bounded retries, and metric extraction,
// and assembles the ordered result table.
package sweep

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/qvalidate/internal/circuit"
	"github.com/aristath/qvalidate/internal/domain"
	"github.com/aristath/qvalidate/internal/metrics"
)

// Defaults for retry and parallelism.
const (
	DefaultMaxAttempts = 3
	DefaultBackoff     = 5 * time.Second
	DefaultWorkers     = 2
)

// ProgressFunc receives completion notifications as parameter points finish,
// in completion order. May be nil.
type ProgressFunc func(current, total int, message string)

// Config wires an Orchestrator. Builder, Client, and Engine are required;
// everything else falls back to package defaults.
type Config struct {
	Builder     *circuit.Builder
	Client      domain.ExecutionClient
	Engine      *metrics.Engine
	Params      []float64
	Shots       int
	MaxAttempts int
	Backoff     time.Duration
	Sleeper     domain.Sleeper
	Workers     int
	Log         zerolog.Logger
}

// Orchestrator runs validation sweeps against the execution backend.
type Orchestrator struct {
	builder     *circuit.Builder
	client      domain.ExecutionClient
	engine      *metrics.Engine
	params      []float64
	shots       int
	maxAttempts int
	backoff     time.Duration
	sleeper     domain.Sleeper
	workers     int
	log         zerolog.Logger
}

// New creates a sweep orchestrator.
func New(cfg Config) *Orchestrator {
	o := &Orchestrator{
		builder:     cfg.Builder,
		client:      cfg.Client,
		engine:      cfg.Engine,
		params:      cfg.Params,
		shots:       cfg.Shots,
		maxAttempts: cfg.MaxAttempts,
		backoff:     cfg.Backoff,
		sleeper:     cfg.Sleeper,
		workers:     cfg.Workers,
		log:         cfg.Log.With().Str("component", "sweep").Logger(),
	}
	if o.params == nil {
		o.params = DefaultParams()
	}
	if o.shots <= 0 {
		o.shots = DefaultShots
	}
	if o.maxAttempts <= 0 {
		o.maxAttempts = DefaultMaxAttempts
	}
	if o.backoff <= 0 {
		o.backoff = DefaultBackoff
	}
	if o.sleeper == nil {
		o.sleeper = domain.RealSleeper()
	}
	if o.workers <= 0 {
		o.workers = DefaultWorkers
	}
	return o
}

type job struct {
	index int
	param float64
}

type outcome struct {
	index int
	entry domain.SweepEntry
}

// Run executes the full sweep. Parameter points are independent and run on a
// bounded worker pool; entries are merged back by parameter index so the
// result order never depends on completion order. The sweep completes only
// after every parameter has either succeeded or exhausted its retries.
// Cancelling the context stops new attempts; already-completed entries are
// kept and the remaining points are recorded as failed.
func (o *Orchestrator) Run(ctx context.Context, progress ProgressFunc) domain.SweepResult {
	total := len(o.params)
	result := domain.SweepResult{
		Entries:   make([]domain.SweepEntry, total),
		Shots:     o.shots,
		StartedAt: time.Now().UTC(),
	}

	jobs := make(chan job, total)
	outcomes := make(chan outcome, total)

	workers := o.workers
	if total < workers {
		workers = total
	}

	var completed atomic.Int32
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				entry := o.runPoint(ctx, j.param)
				outcomes <- outcome{index: j.index, entry: entry}

				if progress != nil {
					progress(int(completed.Add(1)), total,
						fmt.Sprintf("parameter %.2f", j.param))
				}
			}
		}()
	}

	for i, p := range o.params {
		jobs <- job{index: i, param: p}
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(outcomes)
	}()

	for out := range outcomes {
		result.Entries[out.index] = out.entry
	}

	result.EndedAt = time.Now().UTC()
	o.log.Info().
		Int("points", total).
		Int("failed", result.FailedCount()).
		Msg("Sweep completed")
	return result
}

// runPoint executes a single parameter point with bounded retries. Only
// transient execution failures are retried; terminal failures and malformed
// histograms fail the point immediately.
func (o *Orchestrator) runPoint(ctx context.Context, param float64) domain.SweepEntry {
	entry := domain.SweepEntry{Parameter: param}
	qc := o.builder.Build(param)

	for attempt := 1; attempt <= o.maxAttempts; attempt++ {
		if ctx.Err() != nil {
			entry.Failed = true
			entry.FailCause = "sweep cancelled"
			return entry
		}

		entry.Attempts = attempt
		hist, err := o.client.Execute(ctx, qc, o.shots)
		if err == nil {
			triple, merr := o.engine.Compute(hist, o.shots)
			if merr != nil {
				// Malformed measurement data is fatal to this point, not
				// retryable.
				o.log.Error().Err(merr).Float64("param", param).Msg("Invalid histogram")
				entry.Failed = true
				entry.FailCause = merr.Error()
				return entry
			}

			entry.Metrics = triple
			entry.Histogram = hist
			o.log.Debug().
				Float64("param", param).
				Int("attempt", attempt).
				Float64("temporal_correlation", triple.TemporalCorrelation).
				Float64("falsification", triple.Falsification).
				Float64("beyond_quantum", triple.BeyondQuantum).
				Msg("Point completed")
			return entry
		}

		var execErr *domain.ExecutionError
		if errors.As(err, &execErr) && !execErr.Transient {
			o.log.Error().Err(err).Float64("param", param).Msg("Terminal execution failure")
			entry.Failed = true
			entry.FailCause = err.Error()
			return entry
		}

		o.log.Warn().
			Err(err).
			Float64("param", param).
			Int("attempt", attempt).
			Int("max_attempts", o.maxAttempts).
			Msg("Execution attempt failed")

		entry.FailCause = err.Error()
		if attempt < o.maxAttempts {
			o.sleeper.Sleep(ctx, o.backoff)
		}
	}

	entry.Failed = true
	return entry
}
