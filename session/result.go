package session

import (
	"time"

	"github.com/sree6273/AI-meeting-summary/metrics"
	"github.com/sree6273/AI-meeting-summary/types"
)

// Outcome is the terminal classification of a session.
type Outcome string

const (
	// OutcomeCompleted indicates the backend sent the completion sentinel.
	OutcomeCompleted Outcome = "completed"
	// OutcomeFailed indicates an upload failure, a backend-reported error,
	// or a connection interruption.
	OutcomeFailed Outcome = "failed"
	// OutcomeCancelled indicates the session was cancelled locally.
	OutcomeCancelled Outcome = "cancelled"
)

// Process exit codes by outcome.
const (
	ExitCodeCompleted = 0
	ExitCodeFailed    = 1
	ExitCodeCancelled = 2
)

// ExitCode maps the outcome to its process exit code. Unknown outcomes
// map to ExitCodeFailed.
func (o Outcome) ExitCode() int {
	switch o {
	case OutcomeCompleted:
		return ExitCodeCompleted
	case OutcomeCancelled:
		return ExitCodeCancelled
	default:
		return ExitCodeFailed
	}
}

// Result is the full report of one session.
type Result struct {
	// SessionID is the locally generated session identifier.
	SessionID string `json:"session_id"`
	// Resource is the backend resource identifier from the upload, empty
	// when the upload never succeeded.
	Resource string `json:"resource,omitempty"`
	// Outcome is the terminal classification.
	Outcome Outcome `json:"outcome"`
	// State is the final stream state.
	State types.StreamState `json:"state"`
	// StartedAt is when the session began.
	StartedAt time.Time `json:"started_at"`
	// Duration is the wall-clock session duration.
	Duration time.Duration `json:"-"`
	// DurationMS is the duration in milliseconds for serialized reports.
	DurationMS int64 `json:"duration_ms"`
	// CapturePath is the capture file path when recording was enabled.
	CapturePath string `json:"capture_path,omitempty"`
	// Metrics is the session counter snapshot.
	Metrics metrics.Snapshot `json:"metrics"`
}
