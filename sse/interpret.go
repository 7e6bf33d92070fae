package sse

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sree6273/AI-meeting-summary/types"
)

// dataPrefix marks the only record family the client consumes.
const dataPrefix = "data:"

// Message is one interpreted stream record: either the completion
// sentinel or a parsed payload, never both.
type Message struct {
	// Done is true when the record body is the [DONE] sentinel.
	Done bool
	// Payload is the parsed record body. Nil when Done is true.
	Payload *types.Payload
}

// Interpret classifies one decoded frame.
//
// Frames that do not begin with the data: prefix return (nil, nil) and
// are ignored; this covers comment and keep-alive records, which must
// never error. A data: body equal to the sentinel returns a Done
// message. Any other body must be a JSON object; a parse failure returns
// an error the caller treats as skip-with-diagnostic, not as a session
// failure. A payload with tag ERROR is a well-formed message here;
// classifying it as fatal is the session controller's concern.
func Interpret(frame string) (*Message, error) {
	if !strings.HasPrefix(frame, dataPrefix) {
		return nil, nil
	}

	body := strings.TrimSpace(frame[len(dataPrefix):])
	if body == types.DoneSentinel {
		return &Message{Done: true}, nil
	}

	if len(body) == 0 || body[0] != '{' {
		return nil, fmt.Errorf("data record body %q is not a JSON object", clip(body, 64))
	}

	var payload types.Payload
	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		return nil, fmt.Errorf("malformed data record %q: %w", clip(body, 64), err)
	}
	return &Message{Payload: &payload}, nil
}

// clip bounds diagnostic output for oversized bodies.
func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
