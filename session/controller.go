package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sree6273/AI-meeting-summary/iox"
	"github.com/sree6273/AI-meeting-summary/log"
	"github.com/sree6273/AI-meeting-summary/metrics"
	"github.com/sree6273/AI-meeting-summary/sse"
	"github.com/sree6273/AI-meeting-summary/types"
)

// Controller status text. StatusUploading (machine.go) covers the START
// transition; these cover the later lifecycle edges.
const (
	statusOpening   = "Upload complete. Opening analysis stream..."
	statusCancelled = "Processing cancelled."

	interruptedMessage = "connection interrupted before the stream completed"
)

// ErrSessionActive is returned by Run when a session is already in
// flight. The live session's state is untouched.
var ErrSessionActive = errors.New("a session is already in progress")

// DefaultReadBufferSize is the transport read buffer size.
const DefaultReadBufferSize = 4096

// Uploader stores a media file with the backend and returns the resource
// identifier the transcription stream is keyed by. It must complete
// before the stream is opened.
type Uploader interface {
	Upload(ctx context.Context, path string) (resource string, err error)
}

// StreamOpener opens the live transcription feed for an uploaded
// resource. The returned body is handed over unread; the caller owns
// closing it.
type StreamOpener interface {
	OpenStream(ctx context.Context, resource string) (io.ReadCloser, error)
}

// Recorder captures the raw chunk stream of a session. Implemented by
// record.Writer; nil disables capture.
type Recorder interface {
	// Begin records the session identity once the upload has produced a
	// resource. Called before any WriteChunk.
	Begin(sessionID, resource string) error
	// WriteChunk appends one raw transport chunk.
	WriteChunk(data []byte) error
	// Finalize writes the trailer once the session ends.
	Finalize(outcome string, duration time.Duration, errText string) error
	// Path returns the capture file path for the session result.
	Path() string
}

// Config configures a session controller.
type Config struct {
	// Uploader stores the media file with the backend. Required.
	Uploader Uploader
	// Opener opens the transcription stream. Required.
	Opener StreamOpener
	// Machine is the observable state machine. If nil, a fresh machine is
	// created; obtain it via Controller.Machine to subscribe renderers.
	Machine *Machine
	// Logger is the base logger. If nil, a stderr logger is created per
	// session. Session identity fields are attached either way.
	Logger *log.Logger
	// Metrics is the per-session collector. If nil, metrics are skipped
	// (all Collector methods are nil-receiver safe).
	Metrics *metrics.Collector
	// Recorder captures raw chunks. Optional.
	Recorder Recorder
	// ReadBufferSize overrides the transport read buffer. Zero means
	// DefaultReadBufferSize.
	ReadBufferSize int
}

// Controller drives one session at a time through
// IDLE -> UPLOADING -> STREAM_OPENING -> READING -> terminal.
//
// Run blocks for the whole lifecycle; Cancel may be called from any
// goroutine and is observed at the next pending read. Cleanup always
// runs: the transport is released and the machine reaches a terminal
// state exactly once per session, on every exit path.
type Controller struct {
	uploader Uploader
	opener   StreamOpener
	machine  *Machine
	logger   *log.Logger
	metrics  *metrics.Collector
	recorder Recorder
	bufSize  int

	mu     sync.Mutex
	active bool
	phase  Phase
	cancel context.CancelFunc
}

// NewController creates a controller from the config.
func NewController(cfg Config) (*Controller, error) {
	if cfg.Uploader == nil {
		return nil, errors.New("uploader is required")
	}
	if cfg.Opener == nil {
		return nil, errors.New("stream opener is required")
	}
	machine := cfg.Machine
	if machine == nil {
		machine = NewMachine()
	}
	bufSize := cfg.ReadBufferSize
	if bufSize <= 0 {
		bufSize = DefaultReadBufferSize
	}
	return &Controller{
		uploader: cfg.Uploader,
		opener:   cfg.Opener,
		machine:  machine,
		logger:   cfg.Logger,
		metrics:  cfg.Metrics,
		recorder: cfg.Recorder,
		bufSize:  bufSize,
		phase:    PhaseIdle,
	}, nil
}

// Machine returns the observable state machine for renderer subscription.
func (c *Controller) Machine() *Machine {
	return c.machine
}

// Active reports whether a session is in flight.
func (c *Controller) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// Phase returns the controller's lifecycle phase.
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Cancel signals the live session's cancellation handle. It is a no-op
// when no session is in flight. Cancellation is cooperative: the read
// loop observes it at the next suspension point and ends the session
// without an error.
func (c *Controller) Cancel() {
	c.mu.Lock()
	cancel := c.cancel
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Run executes one full session for the given media file and blocks
// until it reaches a terminal state. The outcome, final state, and
// counters are reported in the Result; session failures (upload errors,
// backend-reported errors, interruptions) are folded into the Result
// rather than returned. The error return covers contract violations
// only: a missing path or a second Run while one is active.
func (c *Controller) Run(ctx context.Context, mediaPath string) (*Result, error) {
	if mediaPath == "" {
		return nil, errors.New("media path is required")
	}

	c.mu.Lock()
	if c.active {
		c.mu.Unlock()
		return nil, ErrSessionActive
	}
	runCtx, cancel := context.WithCancel(ctx)
	c.active = true
	c.cancel = cancel
	c.mu.Unlock()

	defer func() {
		// Guarantees the transport is released even when cancellation was
		// never requested.
		cancel()
		c.mu.Lock()
		c.active = false
		c.cancel = nil
		c.mu.Unlock()
	}()

	sessionID := uuid.NewString()
	logger := c.sessionLogger(sessionID)
	start := time.Now()

	logger.Info("starting session", map[string]any{
		"media": mediaPath,
	})

	if err := c.machine.Apply(Start()); err != nil {
		return nil, fmt.Errorf("start transition rejected: %w", err)
	}

	resource, outcome := c.execute(runCtx, logger, sessionID, mediaPath)

	result := &Result{
		SessionID:  sessionID,
		Resource:   resource,
		Outcome:    outcome,
		State:      c.machine.State(),
		StartedAt:  start,
		Duration:   time.Since(start),
		DurationMS: time.Since(start).Milliseconds(),
		Metrics:    c.metrics.Snapshot(),
	}

	if c.recorder != nil {
		if err := c.recorder.Finalize(string(outcome), result.Duration, result.State.ErrorText()); err != nil {
			logger.Warn("capture finalize failed", map[string]any{
				"error": err.Error(),
			})
		}
		result.CapturePath = c.recorder.Path()
	}

	logger.Info("session finished", map[string]any{
		"outcome":  string(outcome),
		"duration": result.Duration.String(),
	})
	return result, nil
}

// sessionLogger binds session identity to the configured base logger, or
// builds a default stderr logger when none was configured.
func (c *Controller) sessionLogger(sessionID string) *log.Logger {
	if c.logger != nil {
		return c.logger.With(map[string]any{"session_id": sessionID})
	}
	return log.NewLogger(sessionID)
}

// execute walks the post-START lifecycle and returns the uploaded
// resource (when the upload got that far) and the classified outcome.
// Exactly one terminal transition has been applied when it returns.
func (c *Controller) execute(ctx context.Context, logger *log.Logger, sessionID, mediaPath string) (string, Outcome) {
	c.setPhase(PhaseUploading)
	resource, err := c.uploader.Upload(ctx, mediaPath)
	if err != nil {
		if ctx.Err() != nil {
			return "", c.finishCancelled(logger)
		}
		logger.Error("upload failed", map[string]any{
			"error": err.Error(),
		})
		return "", c.finishFailed(logger, fmt.Sprintf("upload failed: %v", err))
	}
	logger.Info("upload complete", map[string]any{
		"resource": resource,
	})
	if c.recorder != nil {
		if err := c.recorder.Begin(sessionID, resource); err != nil {
			logger.Warn("capture begin failed", map[string]any{
				"error": err.Error(),
			})
		}
	}
	c.apply(logger, UpdateStatus(statusOpening))

	c.setPhase(PhaseStreamOpening)
	body, err := c.opener.OpenStream(ctx, resource)
	if err != nil {
		if ctx.Err() != nil {
			return resource, c.finishCancelled(logger)
		}
		logger.Error("stream open failed", map[string]any{
			"error": err.Error(),
		})
		return resource, c.finishFailed(logger, fmt.Sprintf("failed to open stream: %v", err))
	}

	c.setPhase(PhaseReading)
	ro := c.readStream(ctx, body, logger)
	iox.DiscardClose(body)

	switch {
	case ro.doneSeen:
		c.apply(logger, Complete())
		c.setPhase(PhaseCompleted)
		return resource, OutcomeCompleted
	case ro.fatal:
		// ERROR transition already applied inside the read loop.
		c.setPhase(PhaseFailed)
		return resource, OutcomeFailed
	case ctx.Err() != nil:
		return resource, c.finishCancelled(logger)
	default:
		msg := interruptedMessage
		if ro.readErr != nil {
			msg = fmt.Sprintf("connection interrupted: %v", ro.readErr)
		}
		logger.Error("stream interrupted", map[string]any{
			"error": msg,
		})
		return resource, c.finishFailed(logger, msg)
	}
}

// readOutcome reports how the read loop ended.
type readOutcome struct {
	// doneSeen is true when the [DONE] sentinel arrived; any bytes still
	// buffered behind it are never processed.
	doneSeen bool
	// fatal is true when a backend ERROR payload ended the session; the
	// terminal transition has already been applied.
	fatal bool
	// readErr is the transport error that ended the loop, nil on clean
	// exhaustion.
	readErr error
}

// readStream pulls raw chunks until the sentinel, a fatal payload,
// transport exhaustion, or cancellation.
func (c *Controller) readStream(ctx context.Context, body io.Reader, logger *log.Logger) readOutcome {
	decoder := sse.NewDecoder()
	buf := make([]byte, c.bufSize)

	for {
		select {
		case <-ctx.Done():
			return readOutcome{readErr: ctx.Err()}
		default:
		}

		n, err := body.Read(buf)
		if n > 0 {
			chunk := buf[:n]
			c.metrics.IncChunksReceived()
			c.metrics.AddBytesReceived(int64(n))
			if c.recorder != nil {
				if werr := c.recorder.WriteChunk(chunk); werr != nil {
					logger.Warn("capture write failed", map[string]any{
						"error": werr.Error(),
					})
				}
			}

			for _, frame := range decoder.Feed(chunk) {
				c.metrics.IncFramesDecoded()
				msg, ierr := sse.Interpret(frame)
				if ierr != nil {
					// Malformed records are skipped; the stream continues.
					c.metrics.IncMalformedRecords()
					logger.Warn("skipping malformed record", map[string]any{
						"error": ierr.Error(),
					})
					continue
				}
				if msg == nil {
					c.metrics.IncFramesIgnored()
					continue
				}
				if msg.Done {
					logger.Info("completion sentinel received", map[string]any{
						"buffered_bytes": decoder.Buffered(),
					})
					return readOutcome{doneSeen: true}
				}
				if stop := c.applyPayload(logger, msg.Payload); stop {
					return readOutcome{fatal: true}
				}
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return readOutcome{}
			}
			if ctx.Err() != nil {
				return readOutcome{readErr: ctx.Err()}
			}
			return readOutcome{readErr: err}
		}
	}
}

// applyPayload maps one payload onto machine transitions in a fixed
// field order. Returns true when the payload was fatal; the terminal
// transition has then been applied and the rest of the payload is
// dropped.
func (c *Controller) applyPayload(logger *log.Logger, p *types.Payload) bool {
	if p.Tag == types.TagError {
		msg := p.Message
		if msg == "" {
			msg = "backend reported an error"
		}
		logger.Error("backend reported error", map[string]any{
			"message": msg,
		})
		c.apply(logger, Fail(msg))
		return true
	}

	if p.Tag == types.TagStatus && p.Message != "" {
		c.metrics.IncStatusUpdates()
		c.apply(logger, UpdateStatus(p.Message))
	}
	if p.Transcript != "" {
		c.metrics.IncTranscriptFragments()
		c.apply(logger, AppendTranscript(p.Transcript))
	}
	if p.Summary != "" {
		c.metrics.IncSummaryFragments()
		c.apply(logger, AppendSummary(p.Summary))
	}
	if p.Decision != "" {
		c.metrics.IncDecisions()
		c.apply(logger, AppendDecision(p.Decision))
	}
	if p.ActionItem != "" {
		c.metrics.IncActionItems()
		c.apply(logger, AppendActionItem(p.ActionItem))
	}
	return false
}

// apply forwards a transition and logs a contract violation instead of
// letting it escape; the controller's structure keeps this from firing
// during a well-formed session.
func (c *Controller) apply(logger *log.Logger, t Transition) {
	if err := c.machine.Apply(t); err != nil {
		logger.Error("transition rejected", map[string]any{
			"transition": t.Kind.String(),
			"error":      err.Error(),
		})
	}
}

func (c *Controller) finishCancelled(logger *log.Logger) Outcome {
	logger.Info("session cancelled", nil)
	c.apply(logger, CompleteWithStatus(statusCancelled))
	c.setPhase(PhaseCancelled)
	return OutcomeCancelled
}

func (c *Controller) finishFailed(logger *log.Logger, msg string) Outcome {
	c.apply(logger, Fail(msg))
	c.setPhase(PhaseFailed)
	return OutcomeFailed
}

func (c *Controller) setPhase(p Phase) {
	c.mu.Lock()
	c.phase = p
	c.mu.Unlock()
}
