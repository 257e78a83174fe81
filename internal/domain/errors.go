package domain

import "fmt"

// InvalidHistogramError indicates malformed or incomplete measurement data.
// It is fatal to the metric computation it occurred in and is never retried.
type InvalidHistogramError struct {
	Reason   string
	Expected int
	Got      int
}

func (e *InvalidHistogramError) Error() string {
	if e.Expected != e.Got {
		return fmt.Sprintf("invalid histogram: %s (expected %d counts, got %d)", e.Reason, e.Expected, e.Got)
	}
	return fmt.Sprintf("invalid histogram: %s", e.Reason)
}

// ExecutionError indicates a failed remote circuit execution. Transient
// failures (timeouts, backend overload, quota pressure) are retryable by the
// orchestrator; terminal failures (bad credentials, rejected circuit) are
// surfaced immediately.
type ExecutionError struct {
	Reason    string
	Transient bool
	Err       error
}

func (e *ExecutionError) Error() string {
	kind := "terminal"
	if e.Transient {
		kind = "transient"
	}
	if e.Err != nil {
		return fmt.Sprintf("execution failed (%s): %s: %v", kind, e.Reason, e.Err)
	}
	return fmt.Sprintf("execution failed (%s): %s", kind, e.Reason)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// InsufficientDataError indicates that analysis was requested on a sweep with
// too few successful entries for the statistics to be meaningful.
type InsufficientDataError struct {
	Have int
	Need int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data for analysis: have %d successful entries, need at least %d", e.Have, e.Need)
}
