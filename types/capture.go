package types

// CaptureFormatVersion is the capture file format version. Bump on any
// incompatible change to the record envelope below.
const CaptureFormatVersion = 1

// CaptureRecordKind discriminates records within a capture file.
type CaptureRecordKind string

// Capture record kinds. A well-formed capture is one header, zero or more
// chunks in arrival order, and at most one trailer.
const (
	CaptureRecordHeader  CaptureRecordKind = "header"
	CaptureRecordChunk   CaptureRecordKind = "chunk"
	CaptureRecordTrailer CaptureRecordKind = "trailer"
)

// CaptureRecord is the envelope for all capture file records.
// Exactly one of Header, Chunk, or Trailer is set, matching Kind.
type CaptureRecord struct {
	// Kind is the record type discriminator.
	Kind CaptureRecordKind `msgpack:"kind"`
	// Header is set on header records.
	Header *CaptureHeader `msgpack:"header,omitempty"`
	// Chunk is set on chunk records.
	Chunk *CaptureChunk `msgpack:"chunk,omitempty"`
	// Trailer is set on trailer records.
	Trailer *CaptureTrailer `msgpack:"trailer,omitempty"`
}

// CaptureHeader identifies the recorded session. Always the first record.
type CaptureHeader struct {
	// FormatVersion is the capture format version at write time.
	FormatVersion int `msgpack:"format_version"`
	// SessionID is the recorded session's identifier.
	SessionID string `msgpack:"session_id"`
	// Resource is the backend resource the session streamed.
	Resource string `msgpack:"resource"`
	// StartedAt is the session start time in ISO 8601 UTC format.
	StartedAt string `msgpack:"started_at"`
}

// CaptureChunk is one raw transport chunk exactly as the network delivered
// it. Chunk boundaries are preserved so replays exercise the decoder the
// same way the live stream did.
type CaptureChunk struct {
	// OffsetMS is milliseconds since session start when the chunk arrived.
	OffsetMS int64 `msgpack:"offset_ms"`
	// Data is the raw chunk bytes.
	Data []byte `msgpack:"data"`
}

// CaptureTrailer records how the session ended. Absent when the recording
// process died before finalizing.
type CaptureTrailer struct {
	// Outcome is the session outcome (completed, failed, cancelled).
	Outcome string `msgpack:"outcome"`
	// DurationMS is the session duration in milliseconds.
	DurationMS int64 `msgpack:"duration_ms"`
	// Error is the failure message for failed sessions.
	Error *string `msgpack:"error,omitempty"`
}
