// Package sse implements the wire layer of the transcription stream:
// incremental frame extraction from raw transport chunks, and
// interpretation of extracted frames into messages.
package sse

import "bytes"

// frameDelimiter ends one event-stream record: a blank line.
const frameDelimiter = "\n\n"

// Decoder reconstructs complete records from raw transport chunks whose
// boundaries carry no meaning. Chunks append to an internal buffer;
// complete frames are extracted as soon as their closing blank line has
// arrived. At any pause point the buffer holds at most one trailing
// partial frame.
//
// The buffer is byte oriented and the delimiter is ASCII; no UTF-8
// continuation byte equals '\n', so a rune split across two chunks is
// reassembled in the buffer before its frame is converted to a string.
type Decoder struct {
	buf  []byte
	scan int // next offset to search for the delimiter, never rescans
}

// NewDecoder creates an empty decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Feed appends a raw chunk and returns the complete frames it unlocked,
// in stream order. Each frame is trimmed of surrounding whitespace and
// the delimiter is consumed; all-whitespace records yield no frame. A
// frame is never returned twice. When no delimiter is found the chunk
// remainder stays buffered for the next call.
func (d *Decoder) Feed(chunk []byte) []string {
	if len(chunk) == 0 {
		return nil
	}
	d.buf = append(d.buf, chunk...)

	var frames []string
	for {
		i := bytes.Index(d.buf[d.scan:], []byte(frameDelimiter))
		if i < 0 {
			// Back up one byte so a delimiter straddling this chunk and
			// the next is still found.
			d.scan = len(d.buf)
			if d.scan > 0 {
				d.scan--
			}
			break
		}

		end := d.scan + i
		frame := string(bytes.TrimSpace(d.buf[:end]))
		d.buf = d.buf[end+len(frameDelimiter):]
		d.scan = 0
		if frame != "" {
			frames = append(frames, frame)
		}
	}

	if len(d.buf) == 0 {
		// Release the backing array between records.
		d.buf = nil
		d.scan = 0
	}
	return frames
}

// Buffered returns the number of bytes held back as a partial frame.
func (d *Decoder) Buffered() int {
	return len(d.buf)
}
