// Package events provides the in-process event bus used to surface run
// lifecycle and sweep progress to streaming consumers.
package events

import "time"

// Type identifies an event category.
type Type string

const (
	// RunStarted fires when a validation run begins.
	RunStarted Type = "run_started"
	// RunCompleted fires when a validation run finishes, regardless of how
	// many sweep entries succeeded.
	RunCompleted Type = "run_completed"
	// RunFailed fires when a validation run could not be recorded.
	RunFailed Type = "run_failed"
	// SweepProgress fires as individual parameter points complete.
	SweepProgress Type = "sweep_progress"
)

// Event is a single bus message.
type Event struct {
	Type      Type                   `json:"type"`
	RunID     string                 `json:"run_id,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// ProgressData builds the payload for a SweepProgress event.
func ProgressData(current, total int, message string) map[string]interface{} {
	return map[string]interface{}{
		"current": current,
		"total":   total,
		"message": message,
	}
}
