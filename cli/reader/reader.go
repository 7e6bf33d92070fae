package reader

import (
	"errors"
	"io"

	"github.com/sree6273/AI-meeting-summary/iox"
	"github.com/sree6273/AI-meeting-summary/record"
	"github.com/sree6273/AI-meeting-summary/sse"
	"github.com/sree6273/AI-meeting-summary/types"
)

// InspectCapture reads a capture file's envelope without decoding the
// stream content. Truncated files (missing trailer, or a cut-off record
// at the tail) load as far as they go and are flagged.
func InspectCapture(path string) (*InspectCaptureResponse, error) {
	r, err := record.NewReader(path)
	if err != nil {
		return nil, err
	}
	defer iox.DiscardClose(r)

	header := r.Header()
	resp := &InspectCaptureResponse{
		Path:          path,
		FormatVersion: header.FormatVersion,
		SessionID:     header.SessionID,
		Resource:      header.Resource,
		StartedAt:     header.StartedAt,
	}

	sawTrailer := false
	for {
		rec, err := r.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			if ce, ok := record.IsCaptureError(err); ok && ce.Kind == record.CaptureErrorPartial {
				resp.Truncated = true
				break
			}
			return nil, err
		}

		switch rec.Kind {
		case types.CaptureRecordChunk:
			if rec.Chunk != nil {
				resp.Chunks++
				resp.Bytes += int64(len(rec.Chunk.Data))
			}
		case types.CaptureRecordTrailer:
			if rec.Trailer != nil {
				sawTrailer = true
				resp.Outcome = rec.Trailer.Outcome
				resp.DurationMS = rec.Trailer.DurationMS
				if rec.Trailer.Error != nil {
					resp.Error = *rec.Trailer.Error
				}
			}
		}
	}

	// A capture without a trailer was never finalized.
	if !sawTrailer {
		resp.Truncated = true
	}
	return resp, nil
}

// StatsCapture feeds a capture's chunks through the stream decoder and
// counts frames the way the live read loop does: malformed records are
// skipped, non-data frames are ignored, and the completion sentinel
// stops the count. Content fields on an ERROR record are not counted,
// matching how the session discards them.
func StatsCapture(path string) (*CaptureStats, error) {
	r, err := record.NewReader(path)
	if err != nil {
		return nil, err
	}
	defer iox.DiscardClose(r)

	header := r.Header()
	stats := &CaptureStats{
		Path:      path,
		SessionID: header.SessionID,
		Resource:  header.Resource,
	}

	decoder := sse.NewDecoder()
	for {
		rec, err := r.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			if ce, ok := record.IsCaptureError(err); ok && ce.Kind == record.CaptureErrorPartial {
				break
			}
			return nil, err
		}
		if rec.Kind != types.CaptureRecordChunk || rec.Chunk == nil {
			continue
		}

		stats.Chunks++
		stats.Bytes += int64(len(rec.Chunk.Data))
		if stats.DoneSeen {
			// The live session stopped here; everything after is trailing.
			stats.TrailingBytes += len(rec.Chunk.Data)
			continue
		}

		for _, frame := range decoder.Feed(rec.Chunk.Data) {
			if stats.DoneSeen {
				continue
			}
			stats.FramesDecoded++
			msg, ierr := sse.Interpret(frame)
			if ierr != nil {
				stats.MalformedRecords++
				continue
			}
			if msg == nil {
				stats.FramesIgnored++
				continue
			}
			if msg.Done {
				stats.DoneSeen = true
				stats.TrailingBytes += decoder.Buffered()
				continue
			}
			countPayload(stats, msg.Payload)
		}
	}

	if !stats.DoneSeen {
		stats.TrailingBytes += decoder.Buffered()
	}
	return stats, nil
}

func countPayload(stats *CaptureStats, p *types.Payload) {
	if p.Tag == types.TagError {
		stats.ErrorSeen = true
		return
	}

	if p.Tag == types.TagStatus && p.Message != "" {
		stats.StatusUpdates++
	}
	if p.Transcript != "" {
		stats.TranscriptFragments++
	}
	if p.Summary != "" {
		stats.SummaryFragments++
	}
	if p.Decision != "" {
		stats.Decisions++
	}
	if p.ActionItem != "" {
		stats.ActionItems++
	}
}
