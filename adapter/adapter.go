// Package adapter defines the notifier boundary for finished sessions.
//
// Adapters publish session completion notifications to downstream
// systems. The CLI owns adapter lifecycle; users provide configuration
// only. Notification failures are logged and never affect the session
// outcome.
package adapter

import "context"

// EventSchemaVersion is the notification event schema version. Bump on
// any incompatible change to SessionCompletedEvent.
const EventSchemaVersion = "0.1.0"

// EventTypeSessionCompleted is the event type carried by every
// published event.
const EventTypeSessionCompleted = "session_completed"

// SessionCompletedEvent is the payload published when a session reaches
// a terminal state, whatever the outcome.
type SessionCompletedEvent struct {
	SchemaVersion string `json:"schema_version"`
	EventType     string `json:"event_type"` // always "session_completed"
	SessionID     string `json:"session_id"`
	Media         string `json:"media"`
	Resource      string `json:"resource,omitempty"`
	Outcome       string `json:"outcome"` // completed, failed, cancelled
	Status        string `json:"status"`
	Transcript    string `json:"transcript,omitempty"`
	Summary       string `json:"summary,omitempty"`
	Decisions     string `json:"decisions,omitempty"`
	ActionItems   string `json:"action_items,omitempty"`
	Error         string `json:"error,omitempty"`
	Timestamp     string `json:"timestamp"` // ISO 8601

	// TranscriptFragments and SummaryFragments count the applied content
	// fragments, from the session metrics snapshot.
	TranscriptFragments int64 `json:"transcript_fragments"`
	SummaryFragments    int64 `json:"summary_fragments"`

	DurationMs  int64  `json:"duration_ms"`
	CapturePath string `json:"capture_path,omitempty"`
}

// Adapter publishes session completion events to a downstream system.
// Implementations must be safe for single-use per session.
type Adapter interface {
	// Publish sends a session completion event to the downstream system.
	// Must respect context cancellation and deadlines.
	Publish(ctx context.Context, event *SessionCompletedEvent) error

	// Close releases adapter resources.
	Close() error
}
