// Package types defines core domain types for the meeting-summary client.
//
//nolint:revive // types is a common Go package naming convention
package types

// DoneSentinel is the literal record body that signals normal stream
// completion. The backend always emits it as the final record of a
// transcription feed, including after a reported error.
const DoneSentinel = "[DONE]"

// PayloadTag classifies control records on the transcription stream.
type PayloadTag string

const (
	// TagStatus marks a human-readable progress update.
	TagStatus PayloadTag = "STATUS"
	// TagError marks a backend-reported failure. It is fatal to the session.
	TagError PayloadTag = "ERROR"
)

// Payload is the parsed JSON body of one data record on the transcription
// stream. All fields are optional and independent; a single record may
// carry any subset. Unknown fields are ignored for forward compatibility.
type Payload struct {
	// Tag classifies control records (STATUS or ERROR). Empty on content records.
	Tag PayloadTag `json:"tag,omitempty"`
	// Message is the text carried by STATUS and ERROR records.
	Message string `json:"message,omitempty"`
	// Transcript is an incremental transcript fragment.
	Transcript string `json:"transcript,omitempty"`
	// Summary is an incremental summary fragment.
	Summary string `json:"summary,omitempty"`
	// Decision is one extracted key decision.
	Decision string `json:"decision,omitempty"`
	// ActionItem is one extracted action item.
	ActionItem string `json:"action_item,omitempty"`
}

// Empty reports whether the payload carries no recognized fields.
func (p Payload) Empty() bool {
	return p.Tag == "" && p.Message == "" && p.Transcript == "" &&
		p.Summary == "" && p.Decision == "" && p.ActionItem == ""
}
