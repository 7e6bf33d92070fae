package session

// Phase is the controller's lifecycle phase. Phases describe where the
// controller is in its protocol; the user-visible progress lives in the
// stream state's status line.
type Phase int

const (
	// PhaseIdle means no session has started or the last one finished.
	PhaseIdle Phase = iota
	// PhaseUploading means the media file upload is in flight.
	PhaseUploading
	// PhaseStreamOpening means the upload finished and the stream request
	// is in flight.
	PhaseStreamOpening
	// PhaseReading means the read loop is consuming the stream.
	PhaseReading
	// PhaseCompleted means the session ended with the completion sentinel.
	PhaseCompleted
	// PhaseFailed means the session ended with an error.
	PhaseFailed
	// PhaseCancelled means the session was cancelled locally.
	PhaseCancelled
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseUploading:
		return "uploading"
	case PhaseStreamOpening:
		return "stream_opening"
	case PhaseReading:
		return "reading"
	case PhaseCompleted:
		return "completed"
	case PhaseFailed:
		return "failed"
	case PhaseCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}
