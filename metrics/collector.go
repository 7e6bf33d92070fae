// Package metrics provides per-session metrics collection.
//
// The Collector accumulates counters during a single session. It is a
// leaf package with no internal dependencies. Counters cover the
// transport (chunks, bytes), the wire protocol (frames, malformed
// records), and the content channels (status, transcript, summary,
// decisions, action items).
package metrics

import "sync"

// Snapshot is an immutable point-in-time view of all session counters.
// Returned by Collector.Snapshot(). Safe to read concurrently after
// creation.
type Snapshot struct {
	// Transport
	ChunksReceived int64 `json:"chunks_received"`
	BytesReceived  int64 `json:"bytes_received"`

	// Wire protocol
	FramesDecoded    int64 `json:"frames_decoded"`
	FramesIgnored    int64 `json:"frames_ignored"`
	MalformedRecords int64 `json:"malformed_records"`

	// Content channels
	StatusUpdates       int64 `json:"status_updates"`
	TranscriptFragments int64 `json:"transcript_fragments"`
	SummaryFragments    int64 `json:"summary_fragments"`
	Decisions           int64 `json:"decisions"`
	ActionItems         int64 `json:"action_items"`

	// Dimensions (informational, set at construction)
	Backend string `json:"backend,omitempty"`
	Media   string `json:"media,omitempty"`
}

// Collector accumulates counters during a single session.
// Thread-safe via sync.Mutex. All increment methods are nil-receiver safe.
type Collector struct {
	mu sync.Mutex

	// Transport
	chunksReceived int64
	bytesReceived  int64

	// Wire protocol
	framesDecoded    int64
	framesIgnored    int64
	malformedRecords int64

	// Content channels
	statusUpdates       int64
	transcriptFragments int64
	summaryFragments    int64
	decisions           int64
	actionItems         int64

	// Dimensions
	backend string
	media   string
}

// NewCollector creates a Collector with dimension labels. Both
// dimensions are informational; pass empty strings to omit them from
// snapshots.
func NewCollector(backend, media string) *Collector {
	return &Collector{
		backend: backend,
		media:   media,
	}
}

// --- Transport ---

// IncChunksReceived records one raw transport chunk.
func (c *Collector) IncChunksReceived() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.chunksReceived++
	c.mu.Unlock()
}

// AddBytesReceived records raw transport bytes.
func (c *Collector) AddBytesReceived(n int64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.bytesReceived += n
	c.mu.Unlock()
}

// --- Wire protocol ---

// IncFramesDecoded records one complete frame split out of the stream.
func (c *Collector) IncFramesDecoded() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.framesDecoded++
	c.mu.Unlock()
}

// IncFramesIgnored records a well-formed frame carrying no payload,
// such as a comment or a non-data field.
func (c *Collector) IncFramesIgnored() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.framesIgnored++
	c.mu.Unlock()
}

// IncMalformedRecords records a data frame whose body failed to parse.
func (c *Collector) IncMalformedRecords() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.malformedRecords++
	c.mu.Unlock()
}

// --- Content channels ---

// IncStatusUpdates records a status message applied to the state.
func (c *Collector) IncStatusUpdates() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.statusUpdates++
	c.mu.Unlock()
}

// IncTranscriptFragments records a transcript fragment applied to the state.
func (c *Collector) IncTranscriptFragments() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.transcriptFragments++
	c.mu.Unlock()
}

// IncSummaryFragments records a summary fragment applied to the state.
func (c *Collector) IncSummaryFragments() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.summaryFragments++
	c.mu.Unlock()
}

// IncDecisions records a key decision applied to the state.
func (c *Collector) IncDecisions() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.decisions++
	c.mu.Unlock()
}

// IncActionItems records an action item applied to the state.
func (c *Collector) IncActionItems() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.actionItems++
	c.mu.Unlock()
}

// --- Snapshot ---

// Snapshot returns an immutable point-in-time view of all counters.
// The returned Snapshot is safe to read concurrently; the Collector can
// continue to be mutated independently.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	return Snapshot{
		ChunksReceived: c.chunksReceived,
		BytesReceived:  c.bytesReceived,

		FramesDecoded:    c.framesDecoded,
		FramesIgnored:    c.framesIgnored,
		MalformedRecords: c.malformedRecords,

		StatusUpdates:       c.statusUpdates,
		TranscriptFragments: c.transcriptFragments,
		SummaryFragments:    c.summaryFragments,
		Decisions:           c.decisions,
		ActionItems:         c.actionItems,

		Backend: c.backend,
		Media:   c.media,
	}
}
