package types

// StreamState is the single externally observable record of a transcription
// session. It is owned by the session state machine and mutated only through
// its reducer; renderers hold read-only snapshots. Transcript, summary,
// decisions, and action items are append-only within a session.
type StreamState struct {
	// Status is the current human-readable progress line.
	Status string `json:"status"`
	// Transcript is the accumulated transcript text, fragments joined by a
	// single space.
	Transcript string `json:"transcript"`
	// Summary is the accumulated summary text, fragments joined by a single
	// space.
	Summary string `json:"summary"`
	// Decisions is the accumulated key-decision list, one entry per line.
	Decisions string `json:"decisions"`
	// ActionItems is the accumulated action-item list, one entry per line.
	ActionItems string `json:"actionItems"`
	// Error is the failure message. It renders as JSON null while the
	// session is healthy and is set exactly when the session ends abnormally.
	Error *string `json:"error"`
	// Processing is true from session start until the terminal transition.
	Processing bool `json:"isProcessing"`
}

// Failed reports whether the session ended abnormally.
func (s StreamState) Failed() bool {
	return s.Error != nil
}

// ErrorText returns the failure message, or "" when none is set.
func (s StreamState) ErrorText() string {
	if s.Error == nil {
		return ""
	}
	return *s.Error
}
