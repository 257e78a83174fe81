package domain

import (
	"context"
	"time"

	"github.com/aristath/qvalidate/internal/circuit"
)

// ExecutionClient submits a circuit to a remote quantum execution backend and
// returns the measurement histogram. Implementations are treated as opaque,
// possibly-flaky remote calls; retry policy belongs to the caller, not here.
// Failures are reported as *ExecutionError so callers can distinguish
// transient from terminal causes.
type ExecutionClient interface {
	Execute(ctx context.Context, c circuit.Circuit, shots int) (Histogram, error)
}

// Sleeper abstracts backoff delays so orchestration logic is testable without
// real wall-clock waits. The context lets a sleep be cut short by cancellation.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration)
}

// SleeperFunc adapts a function to the Sleeper interface.
type SleeperFunc func(ctx context.Context, d time.Duration)

// Sleep calls f.
func (f SleeperFunc) Sleep(ctx context.Context, d time.Duration) {
	f(ctx, d)
}

// RealSleeper sleeps on the wall clock, waking early on context cancellation.
func RealSleeper() Sleeper {
	return SleeperFunc(func(ctx context.Context, d time.Duration) {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-ctx.Done():
		case <-timer.C:
		}
	})
}
