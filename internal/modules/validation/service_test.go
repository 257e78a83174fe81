package validation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/qvalidate/internal/database"
	"github.com/aristath/qvalidate/internal/domain"
	"github.com/aristath/qvalidate/internal/events"
	"github.com/aristath/qvalidate/internal/modules/results"
	"github.com/aristath/qvalidate/internal/sweep"
)

type fakeSweeper struct {
	result      domain.SweepResult
	started     chan struct{}
	startedOnce sync.Once
	release     chan struct{}
}

func (f *fakeSweeper) Run(ctx context.Context, progress sweep.ProgressFunc) domain.SweepResult {
	if f.started != nil {
		f.startedOnce.Do(func() { close(f.started) })
	}
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
		}
	}
	if progress != nil {
		for i := range f.result.Entries {
			progress(i+1, len(f.result.Entries), "point complete")
		}
	}
	return f.result
}

type fakeAnalyzer struct {
	report domain.AnalysisReport
	err    error
	calls  int
}

func (f *fakeAnalyzer) Analyze(result domain.SweepResult) (domain.AnalysisReport, error) {
	f.calls++
	return f.report, f.err
}

func sweepResult(points int) domain.SweepResult {
	started := time.Date(2026, 8, 12, 8, 0, 0, 0, time.UTC)
	result := domain.SweepResult{
		Shots:     1000,
		StartedAt: started,
		EndedAt:   started.Add(time.Minute),
	}
	for i := 0; i < points; i++ {
		result.Entries = append(result.Entries, domain.SweepEntry{
			Parameter: 0.1 + float64(i)*0.2,
			Metrics:   domain.MetricTriple{TemporalCorrelation: 1.5, Falsification: 0.8, BeyondQuantum: 0.3},
			Histogram: domain.Histogram{"00000000": 500, "11111111": 500},
			Attempts:  1,
		})
	}
	return result
}

func newTestService(t *testing.T, sweeper Sweeper, analyzer Analyzer) (*Service, *events.Bus) {
	t.Helper()
	db, err := database.New(database.Config{
		Path: "file:validation_test_" + t.Name() + "?mode=memory&cache=shared",
		Name: "validation-test",
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo, err := results.NewRepository(db, zerolog.Nop())
	require.NoError(t, err)

	bus := events.NewBus()
	return NewService(sweeper, analyzer, repo, bus, zerolog.Nop()), bus
}

func TestService_StartRunCompletes(t *testing.T) {
	sweeper := &fakeSweeper{result: sweepResult(8)}
	report := domain.AnalysisReport{}
	report.TemporalCorrelation.Trend.Slope = 0.12
	analyzer := &fakeAnalyzer{report: report}
	svc, bus := newTestService(t, sweeper, analyzer)

	eventCh, cancel := bus.Subscribe()
	defer cancel()

	id, err := svc.StartRun()
	require.NoError(t, err)
	require.NotEmpty(t, id)

	svc.Wait()

	run, err := svc.GetRun(id)
	require.NoError(t, err)
	assert.Equal(t, results.StatusCompleted, run.Status)
	assert.Len(t, run.Result.Entries, 8)
	require.NotNil(t, run.Analysis)
	assert.InDelta(t, 0.12, run.Analysis.TemporalCorrelation.Trend.Slope, 1e-12)
	assert.Equal(t, 1, analyzer.calls)

	types := drainEventTypes(eventCh)
	assert.Equal(t, events.RunStarted, types[0])
	assert.Equal(t, events.RunCompleted, types[len(types)-1])
	assert.Contains(t, types, events.SweepProgress)
}

func TestService_RejectsConcurrentRuns(t *testing.T) {
	sweeper := &fakeSweeper{
		result:  sweepResult(2),
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	svc, _ := newTestService(t, sweeper, &fakeAnalyzer{})

	id, err := svc.StartRun()
	require.NoError(t, err)
	<-sweeper.started

	_, err = svc.StartRun()
	assert.ErrorIs(t, err, ErrRunInProgress)

	active, running := svc.ActiveRun()
	assert.True(t, running)
	assert.Equal(t, id, active)

	close(sweeper.release)
	svc.Wait()

	_, running = svc.ActiveRun()
	assert.False(t, running)

	// A new run is accepted once the previous one finishes.
	_, err = svc.StartRun()
	require.NoError(t, err)
	svc.Wait()
}

func TestService_CompletesWithoutAnalysisOnInsufficientData(t *testing.T) {
	result := sweepResult(1)
	result.Entries[0].Failed = true
	result.Entries[0].FailCause = "backend unavailable"
	sweeper := &fakeSweeper{result: result}
	analyzer := &fakeAnalyzer{err: &domain.InsufficientDataError{Have: 0, Need: 2}}
	svc, _ := newTestService(t, sweeper, analyzer)

	id, err := svc.StartRun()
	require.NoError(t, err)
	svc.Wait()

	run, err := svc.GetRun(id)
	require.NoError(t, err)
	assert.Equal(t, results.StatusCompleted, run.Status)
	assert.Nil(t, run.Analysis)
	assert.Len(t, run.Result.Entries, 1)
}

func TestService_RecordsUnexpectedAnalysisError(t *testing.T) {
	sweeper := &fakeSweeper{result: sweepResult(4)}
	analyzer := &fakeAnalyzer{err: errors.New("matrix is singular")}
	svc, _ := newTestService(t, sweeper, analyzer)

	id, err := svc.StartRun()
	require.NoError(t, err)
	svc.Wait()

	run, err := svc.GetRun(id)
	require.NoError(t, err)
	assert.Equal(t, results.StatusCompleted, run.Status)
	assert.Nil(t, run.Analysis)
	assert.Equal(t, "matrix is singular", run.AnalysisError)
}

func TestService_InsufficientDataLeavesNoAnalysisError(t *testing.T) {
	result := sweepResult(1)
	result.Entries[0].Failed = true
	sweeper := &fakeSweeper{result: result}
	analyzer := &fakeAnalyzer{err: &domain.InsufficientDataError{Have: 0, Need: 2}}
	svc, _ := newTestService(t, sweeper, analyzer)

	id, err := svc.StartRun()
	require.NoError(t, err)
	svc.Wait()

	run, err := svc.GetRun(id)
	require.NoError(t, err)
	assert.Empty(t, run.AnalysisError)
}

func TestService_CancelRun(t *testing.T) {
	sweeper := &fakeSweeper{
		result:  sweepResult(1),
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	svc, _ := newTestService(t, sweeper, &fakeAnalyzer{})

	assert.False(t, svc.CancelRun(), "cancel with no active run")

	_, err := svc.StartRun()
	require.NoError(t, err)
	<-sweeper.started

	assert.True(t, svc.CancelRun())
	svc.Wait()

	_, running := svc.ActiveRun()
	assert.False(t, running)
}

func TestService_ListRuns(t *testing.T) {
	sweeper := &fakeSweeper{result: sweepResult(3)}
	svc, _ := newTestService(t, sweeper, &fakeAnalyzer{})

	id, err := svc.StartRun()
	require.NoError(t, err)
	svc.Wait()

	summaries, err := svc.ListRuns(10)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, id, summaries[0].ID)
	assert.Equal(t, 3, summaries[0].EntryCount)
}

func drainEventTypes(ch <-chan events.Event) []events.Type {
	var types []events.Type
	for {
		select {
		case evt := <-ch:
			types = append(types, evt.Type)
		default:
			return types
		}
	}
}
