// Package record implements capture files: the raw chunk stream of a
// session persisted as length-prefixed msgpack records, byte-exact and
// boundary-exact, so captures replay through the same decode path as
// live traffic.
package record

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/sree6273/AI-meeting-summary/session"
	"github.com/sree6273/AI-meeting-summary/types"
)

// Record size constants.
const (
	// MaxRecordSize is the maximum encoded record size (16 MiB), including
	// the length prefix.
	MaxRecordSize = 16 * 1024 * 1024
	// MaxPayloadSize is the maximum record payload size.
	MaxPayloadSize = MaxRecordSize - LengthPrefixSize
	// LengthPrefixSize is the size of the length prefix in bytes.
	LengthPrefixSize = 4
)

// CaptureErrorKind classifies capture decoding errors.
type CaptureErrorKind int

const (
	// CaptureErrorPartial indicates a truncated record at the tail.
	CaptureErrorPartial CaptureErrorKind = iota
	// CaptureErrorTooLarge indicates a record exceeding MaxRecordSize.
	CaptureErrorTooLarge
	// CaptureErrorDecode indicates a msgpack decoding error.
	CaptureErrorDecode
	// CaptureErrorFormat indicates a structurally invalid capture, such as
	// a missing header or an unsupported format version.
	CaptureErrorFormat
)

// CaptureError represents a capture decoding error.
type CaptureError struct {
	Kind CaptureErrorKind
	Msg  string
	Err  error
}

func (e *CaptureError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *CaptureError) Unwrap() error {
	return e.Err
}

// IsCaptureError reports whether err is a CaptureError and returns it.
func IsCaptureError(err error) (*CaptureError, bool) {
	var ce *CaptureError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// Writer appends a session's raw chunk stream to a capture file.
//
// The record sequence is header, chunks in arrival order, trailer. Begin
// writes the header once the session identity is known; Finalize writes
// the trailer and closes the file. A capture missing its trailer marks a
// recording process that died mid-session.
type Writer struct {
	mu     sync.Mutex
	path   string
	f      *os.File
	buf    *bufio.Writer
	now    func() time.Time
	start  time.Time
	begun  bool
	closed bool
}

var _ session.Recorder = (*Writer)(nil)

// NewWriter creates the capture file. The header is not written until
// Begin.
func NewWriter(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create capture file: %w", err)
	}
	return &Writer{
		path: path,
		f:    f,
		buf:  bufio.NewWriter(f),
		now:  time.Now,
	}, nil
}

// Path returns the capture file path.
func (w *Writer) Path() string {
	return w.path
}

// Begin writes the header record. Chunk offsets are measured from this
// call.
func (w *Writer) Begin(sessionID, resource string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return errors.New("capture already finalized")
	}
	if w.begun {
		return errors.New("capture already begun")
	}
	w.begun = true
	w.start = w.now()
	return w.writeRecord(&types.CaptureRecord{
		Kind: types.CaptureRecordHeader,
		Header: &types.CaptureHeader{
			FormatVersion: types.CaptureFormatVersion,
			SessionID:     sessionID,
			Resource:      resource,
			StartedAt:     w.start.UTC().Format(time.RFC3339Nano),
		},
	})
}

// WriteChunk appends one raw transport chunk with its arrival offset.
func (w *Writer) WriteChunk(data []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return errors.New("capture already finalized")
	}
	if !w.begun {
		return errors.New("capture not begun")
	}
	return w.writeRecord(&types.CaptureRecord{
		Kind: types.CaptureRecordChunk,
		Chunk: &types.CaptureChunk{
			OffsetMS: w.now().Sub(w.start).Milliseconds(),
			Data:     data,
		},
	})
}

// Finalize writes the trailer, flushes, and closes the file. A capture
// finalized before Begin still gets a header so the file stays readable.
func (w *Writer) Finalize(outcome string, duration time.Duration, errText string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return errors.New("capture already finalized")
	}
	if !w.begun {
		w.begun = true
		w.start = w.now()
		if err := w.writeRecord(&types.CaptureRecord{
			Kind: types.CaptureRecordHeader,
			Header: &types.CaptureHeader{
				FormatVersion: types.CaptureFormatVersion,
				StartedAt:     w.start.UTC().Format(time.RFC3339Nano),
			},
		}); err != nil {
			return err
		}
	}

	trailer := &types.CaptureTrailer{
		Outcome:    outcome,
		DurationMS: duration.Milliseconds(),
	}
	if errText != "" {
		trailer.Error = &errText
	}
	if err := w.writeRecord(&types.CaptureRecord{
		Kind:    types.CaptureRecordTrailer,
		Trailer: trailer,
	}); err != nil {
		return err
	}
	return w.close()
}

// Close releases the file without a trailer. Safe to defer after
// Finalize; the second close is a no-op.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	return w.close()
}

func (w *Writer) close() error {
	w.closed = true
	if err := w.buf.Flush(); err != nil {
		_ = w.f.Close()
		return fmt.Errorf("flush capture: %w", err)
	}
	if err := w.f.Close(); err != nil {
		return fmt.Errorf("close capture: %w", err)
	}
	return nil
}

// writeRecord encodes one record with its length prefix. Caller holds the lock.
func (w *Writer) writeRecord(rec *types.CaptureRecord) error {
	payload, err := msgpack.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode capture record: %w", err)
	}
	if len(payload) > MaxPayloadSize {
		return &CaptureError{
			Kind: CaptureErrorTooLarge,
			Msg:  fmt.Sprintf("record size %d exceeds maximum %d", len(payload), MaxPayloadSize),
		}
	}
	var lengthBuf [LengthPrefixSize]byte
	binary.BigEndian.PutUint32(lengthBuf[:], uint32(len(payload)))
	if _, err := w.buf.Write(lengthBuf[:]); err != nil {
		return fmt.Errorf("write capture record: %w", err)
	}
	if _, err := w.buf.Write(payload); err != nil {
		return fmt.Errorf("write capture record: %w", err)
	}
	return nil
}

// Reader iterates the records of a capture file.
type Reader struct {
	f      *os.File
	buf    *bufio.Reader
	header *types.CaptureHeader
}

// NewReader opens a capture file and consumes its header record.
func NewReader(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open capture file: %w", err)
	}
	r := &Reader{f: f, buf: bufio.NewReader(f)}

	rec, err := r.readRecord()
	if err != nil {
		_ = f.Close()
		if errors.Is(err, io.EOF) {
			return nil, &CaptureError{Kind: CaptureErrorFormat, Msg: "capture file is empty"}
		}
		return nil, err
	}
	if rec.Kind != types.CaptureRecordHeader || rec.Header == nil {
		_ = f.Close()
		return nil, &CaptureError{
			Kind: CaptureErrorFormat,
			Msg:  fmt.Sprintf("capture does not start with a header record, got %q", rec.Kind),
		}
	}
	if rec.Header.FormatVersion != types.CaptureFormatVersion {
		_ = f.Close()
		return nil, &CaptureError{
			Kind: CaptureErrorFormat,
			Msg: fmt.Sprintf("unsupported capture format version %d, want %d",
				rec.Header.FormatVersion, types.CaptureFormatVersion),
		}
	}
	r.header = rec.Header
	return r, nil
}

// Header returns the capture header.
func (r *Reader) Header() *types.CaptureHeader {
	return r.header
}

// Next returns the next record after the header.
//
// Errors:
//   - io.EOF: capture ended cleanly (no more records)
//   - *CaptureError with Kind=CaptureErrorPartial: truncated tail
//   - *CaptureError with Kind=CaptureErrorTooLarge: record exceeds limit
//   - *CaptureError with Kind=CaptureErrorDecode: undecodable record
func (r *Reader) Next() (*types.CaptureRecord, error) {
	return r.readRecord()
}

// Close releases the underlying file.
func (r *Reader) Close() error {
	return r.f.Close()
}

func (r *Reader) readRecord() (*types.CaptureRecord, error) {
	var lengthBuf [LengthPrefixSize]byte
	if _, err := io.ReadFull(r.buf, lengthBuf[:]); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, &CaptureError{
			Kind: CaptureErrorPartial,
			Msg:  "failed to read length prefix",
			Err:  err,
		}
	}

	payloadSize := binary.BigEndian.Uint32(lengthBuf[:])
	if payloadSize > MaxPayloadSize {
		return nil, &CaptureError{
			Kind: CaptureErrorTooLarge,
			Msg:  fmt.Sprintf("record size %d exceeds maximum %d", payloadSize, MaxPayloadSize),
		}
	}

	payload := make([]byte, payloadSize)
	if _, err := io.ReadFull(r.buf, payload); err != nil {
		return nil, &CaptureError{
			Kind: CaptureErrorPartial,
			Msg:  "failed to read record payload",
			Err:  err,
		}
	}

	var rec types.CaptureRecord
	if err := msgpack.Unmarshal(payload, &rec); err != nil {
		return nil, &CaptureError{
			Kind: CaptureErrorDecode,
			Msg:  "failed to decode capture record",
			Err:  err,
		}
	}
	return &rec, nil
}
