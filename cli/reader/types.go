// Package reader provides the read-side data access layer for the CLI.
//
// It loads capture files recorded during live sessions and derives the
// inspect and stats views from them. All operations are read-only; the
// capture file is never modified.
package reader

// InspectCaptureResponse describes a capture file's envelope: identity,
// chunk shape, and recorded outcome.
type InspectCaptureResponse struct {
	Path          string `json:"path"`
	FormatVersion int    `json:"format_version"`
	SessionID     string `json:"session_id"`
	Resource      string `json:"resource"`
	StartedAt     string `json:"started_at"`
	Chunks        int    `json:"chunks"`
	Bytes         int64  `json:"bytes"`
	Outcome       string `json:"outcome,omitempty"`
	DurationMS    int64  `json:"duration_ms,omitempty"`
	Error         string `json:"error,omitempty"`
	Truncated     bool   `json:"truncated"`
}

// CaptureStats counts what the recorded session consumed from the wire.
// Chunks are decoded exactly as the live read loop decoded them, so the
// counters reproduce the live session's metrics. Counting stops at the
// completion sentinel; bytes past it are reported as trailing.
type CaptureStats struct {
	Path                string `json:"path"`
	SessionID           string `json:"session_id"`
	Resource            string `json:"resource"`
	Chunks              int    `json:"chunks"`
	Bytes               int64  `json:"bytes"`
	FramesDecoded       int    `json:"frames_decoded"`
	FramesIgnored       int    `json:"frames_ignored"`
	MalformedRecords    int    `json:"malformed_records"`
	StatusUpdates       int    `json:"status_updates"`
	TranscriptFragments int    `json:"transcript_fragments"`
	SummaryFragments    int    `json:"summary_fragments"`
	Decisions           int    `json:"decisions"`
	ActionItems         int    `json:"action_items"`
	DoneSeen            bool   `json:"done_seen"`
	ErrorSeen           bool   `json:"error_seen"`
	TrailingBytes       int    `json:"trailing_bytes"`
}
