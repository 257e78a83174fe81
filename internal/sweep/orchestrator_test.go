package sweep

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/qvalidate/internal/circuit"
	"github.com/aristath/qvalidate/internal/domain"
	"github.com/aristath/qvalidate/internal/metrics"
)

// fakeExecutor returns deterministic histograms and programmable failures.
type fakeExecutor struct {
	mu sync.Mutex
	// failures maps a parameter (2-decimal key) to how many transient
	// failures to inject before succeeding. Negative means fail forever.
	failures map[string]int
	terminal map[string]bool
	calls    int
}

func paramKey(p float64) string { return fmt.Sprintf("%.2f", p) }

func (f *fakeExecutor) Execute(_ context.Context, _ circuit.Circuit, shots int) (domain.Histogram, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return domain.Histogram{"00000000": shots / 2, "11111111": shots - shots/2}, nil
}

// paramExecutor routes behavior per parameter, identified by the circuit's
// phase-encoding angle.
type paramExecutor struct {
	fakeExecutor
}

func (f *paramExecutor) Execute(ctx context.Context, qc circuit.Circuit, shots int) (domain.Histogram, error) {
	// Recover the parameter from the first RZ gate: angle = param * pi * 1.
	var param float64
	for _, g := range qc.Gates {
		if g.Type == circuit.GateRZ {
			param = g.Angle / 3.141592653589793
			break
		}
	}
	key := paramKey(param)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++

	if f.terminal[key] {
		return nil, &domain.ExecutionError{Reason: "bad circuit", Transient: false}
	}
	if remaining, ok := f.failures[key]; ok && remaining != 0 {
		if remaining > 0 {
			f.failures[key] = remaining - 1
		}
		return nil, &domain.ExecutionError{Reason: "backend timeout", Transient: true}
	}
	return domain.Histogram{"00000000": shots / 2, "11111111": shots - shots/2}, nil
}

// instantSleeper records requested delays without waiting.
type instantSleeper struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *instantSleeper) Sleep(_ context.Context, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays = append(s.delays, d)
}

func newTestOrchestrator(client domain.ExecutionClient, sleeper domain.Sleeper) *Orchestrator {
	return New(Config{
		Builder: circuit.NewBuilder(),
		Client:  client,
		Engine:  metrics.NewEngine(),
		Sleeper: sleeper,
		Workers: 2,
		Log:     zerolog.Nop(),
	})
}

func TestParams(t *testing.T) {
	params := DefaultParams()

	require.Len(t, params, DefaultPoints)
	assert.InDelta(t, DefaultStart, params[0], 1e-12)
	assert.Equal(t, DefaultEnd, params[len(params)-1], "endpoint must be exact")

	for i := 1; i < len(params); i++ {
		assert.Greater(t, params[i], params[i-1], "params must be strictly increasing")
	}

	// Equal spacing
	step := params[1] - params[0]
	for i := 2; i < len(params); i++ {
		assert.InDelta(t, step, params[i]-params[i-1], 1e-9)
	}
}

func TestRun_AllPointsSucceed(t *testing.T) {
	exec := &fakeExecutor{}
	o := newTestOrchestrator(exec, &instantSleeper{})

	result := o.Run(context.Background(), nil)

	require.Len(t, result.Entries, DefaultPoints)
	assert.Equal(t, 0, result.FailedCount())
	assert.Equal(t, DefaultShots, result.Shots)

	// Entries are ordered by parameter, not completion order.
	for i, e := range result.Entries {
		assert.InDelta(t, DefaultParams()[i], e.Parameter, 1e-12)
		assert.Equal(t, 1, e.Attempts)
		assert.NotNil(t, e.Histogram)
	}
}

func TestRun_TransientFailuresAreRetriedWithBackoff(t *testing.T) {
	exec := &paramExecutor{fakeExecutor{
		failures: map[string]int{paramKey(0.1): 2}, // succeed on 3rd attempt
		terminal: map[string]bool{},
	}}
	sleeper := &instantSleeper{}
	o := newTestOrchestrator(exec, sleeper)

	result := o.Run(context.Background(), nil)

	assert.Equal(t, 0, result.FailedCount())
	assert.Equal(t, 3, result.Entries[0].Attempts)
	assert.Len(t, sleeper.delays, 2, "two retries means two backoff sleeps")
	for _, d := range sleeper.delays {
		assert.Equal(t, DefaultBackoff, d)
	}
}

func TestRun_PermanentFailuresAreRecordedNotDropped(t *testing.T) {
	exec := &paramExecutor{fakeExecutor{
		failures: map[string]int{
			paramKey(0.1): -1,
			paramKey(2.0): -1,
		},
		terminal: map[string]bool{},
	}}
	o := newTestOrchestrator(exec, &instantSleeper{})

	result := o.Run(context.Background(), nil)

	require.Len(t, result.Entries, DefaultPoints)
	assert.Equal(t, 2, result.FailedCount())
	assert.Len(t, result.Successful(), 6)

	first := result.Entries[0]
	assert.True(t, first.Failed)
	assert.Equal(t, DefaultMaxAttempts, first.Attempts)
	assert.Contains(t, first.FailCause, "backend timeout")

	last := result.Entries[len(result.Entries)-1]
	assert.True(t, last.Failed)
}

func TestRun_TerminalFailureIsNotRetried(t *testing.T) {
	exec := &paramExecutor{fakeExecutor{
		failures: map[string]int{},
		terminal: map[string]bool{paramKey(0.1): true},
	}}
	sleeper := &instantSleeper{}
	o := newTestOrchestrator(exec, sleeper)

	result := o.Run(context.Background(), nil)

	first := result.Entries[0]
	assert.True(t, first.Failed)
	assert.Equal(t, 1, first.Attempts, "terminal failures must surface immediately")
	assert.Empty(t, sleeper.delays)
}

func TestRun_ProgressReportsEveryPoint(t *testing.T) {
	exec := &fakeExecutor{}
	o := newTestOrchestrator(exec, &instantSleeper{})

	var mu sync.Mutex
	var calls []int
	result := o.Run(context.Background(), func(current, total int, message string) {
		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, DefaultPoints, total)
		assert.Contains(t, message, "parameter")
		calls = append(calls, current)
	})

	assert.Equal(t, 0, result.FailedCount())
	assert.Len(t, calls, DefaultPoints)
}

func TestRun_CancellationKeepsCompletedEntries(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	// Cancel after the first successful execution.
	var once sync.Once
	exec := &cancellingExecutor{cancel: func() { once.Do(cancel) }}
	o := New(Config{
		Builder: circuit.NewBuilder(),
		Client:  exec,
		Engine:  metrics.NewEngine(),
		Sleeper: &instantSleeper{},
		Workers: 1,
		Log:     zerolog.Nop(),
	})

	result := o.Run(ctx, nil)

	require.Len(t, result.Entries, DefaultPoints)
	assert.Len(t, result.Successful(), 1, "first point completed before cancellation")
	for _, e := range result.Entries[1:] {
		assert.True(t, e.Failed)
		assert.Equal(t, "sweep cancelled", e.FailCause)
	}
}

// cancellingExecutor succeeds once, triggering cancellation as a side effect.
type cancellingExecutor struct {
	cancel func()
}

func (c *cancellingExecutor) Execute(_ context.Context, _ circuit.Circuit, shots int) (domain.Histogram, error) {
	defer c.cancel()
	return domain.Histogram{"00000000": shots}, nil
}
