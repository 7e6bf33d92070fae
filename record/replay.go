package record

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sree6273/AI-meeting-summary/session"
	"github.com/sree6273/AI-meeting-summary/types"
)

// Replayer feeds a recorded session back through the engine. It stands
// in for both transport collaborators: Upload returns the recorded
// resource without touching the network, and OpenStream serves the
// recorded chunks one per Read call, preserving the original chunk
// boundaries. With timing enabled, each chunk is additionally delayed
// until its recorded arrival offset.
type Replayer struct {
	header *types.CaptureHeader
	chunks []types.CaptureChunk
	timed  bool

	// sleep is swapped out in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

var (
	_ session.Uploader     = (*Replayer)(nil)
	_ session.StreamOpener = (*Replayer)(nil)
)

// NewReplayer loads a capture file into memory. The capture must carry a
// header; a missing trailer is tolerated since truncated captures should
// still replay up to the point of loss.
func NewReplayer(path string, timed bool) (*Replayer, error) {
	r, err := NewReader(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = r.Close() }()

	rep := &Replayer{
		header: r.Header(),
		timed:  timed,
		sleep:  sleepCtx,
	}
	for {
		rec, err := r.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			var ce *CaptureError
			if errors.As(err, &ce) && ce.Kind == CaptureErrorPartial {
				// Truncated tail: replay what survived.
				break
			}
			return nil, err
		}
		if rec.Kind == types.CaptureRecordChunk && rec.Chunk != nil {
			rep.chunks = append(rep.chunks, *rec.Chunk)
		}
	}
	return rep, nil
}

// Header returns the capture header.
func (r *Replayer) Header() *types.CaptureHeader {
	return r.header
}

// ChunkCount returns the number of recorded chunks.
func (r *Replayer) ChunkCount() int {
	return len(r.chunks)
}

// MaxChunkLen returns the largest recorded chunk size. Callers size
// their read buffer with it so every chunk fits in a single Read.
func (r *Replayer) MaxChunkLen() int {
	maxLen := 0
	for _, c := range r.chunks {
		if len(c.Data) > maxLen {
			maxLen = len(c.Data)
		}
	}
	return maxLen
}

// Upload returns the recorded resource.
func (r *Replayer) Upload(_ context.Context, _ string) (string, error) {
	return r.header.Resource, nil
}

// OpenStream returns a reader that serves the recorded chunks.
func (r *Replayer) OpenStream(ctx context.Context, _ string) (io.ReadCloser, error) {
	return &replayStream{
		ctx:    ctx,
		chunks: r.chunks,
		timed:  r.timed,
		start:  time.Now(),
		sleep:  r.sleep,
	}, nil
}

// replayStream hands back exactly one recorded chunk per Read call so
// the decoder sees the chunk boundaries the live network produced.
type replayStream struct {
	ctx    context.Context
	chunks []types.CaptureChunk
	next   int
	timed  bool
	start  time.Time
	sleep  func(ctx context.Context, d time.Duration) error
}

func (s *replayStream) Read(p []byte) (int, error) {
	if err := s.ctx.Err(); err != nil {
		return 0, err
	}
	if s.next >= len(s.chunks) {
		return 0, io.EOF
	}
	chunk := s.chunks[s.next]

	if s.timed {
		due := s.start.Add(time.Duration(chunk.OffsetMS) * time.Millisecond)
		if wait := time.Until(due); wait > 0 {
			if err := s.sleep(s.ctx, wait); err != nil {
				return 0, err
			}
		}
	}

	if len(chunk.Data) > len(p) {
		return 0, fmt.Errorf("recorded chunk of %d bytes exceeds read buffer of %d", len(chunk.Data), len(p))
	}
	s.next++
	return copy(p, chunk.Data), nil
}

func (s *replayStream) Close() error { return nil }

// sleepCtx sleeps for d or until ctx is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
