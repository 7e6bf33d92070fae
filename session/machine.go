// Package session implements the observable state machine and the
// lifecycle controller for one upload-to-completion transcription
// session.
package session

import (
	"errors"
	"sync"

	"github.com/sree6273/AI-meeting-summary/types"
)

// StatusUploading is the status text set by the START transition.
const StatusUploading = "Uploading recording..."

// Machine contract violations. The controller is structured so that none
// of these occur during a well-formed session; surfacing them as errors
// keeps a misuse from silently corrupting published state.
var (
	// ErrAlreadyProcessing is returned when START is applied to a live session.
	ErrAlreadyProcessing = errors.New("session already in progress")
	// ErrNotStarted is returned when a transition arrives before START.
	ErrNotStarted = errors.New("no session in progress")
	// ErrTerminalReached is returned when a transition arrives after the
	// terminal transition. First terminal wins; there is no second.
	ErrTerminalReached = errors.New("terminal transition already applied")
)

// TransitionKind discriminates state machine transitions.
type TransitionKind int

// Transition kinds, applied strictly in arrival order.
const (
	// TransitionStart resets to the empty processing state.
	TransitionStart TransitionKind = iota
	// TransitionUpdateStatus replaces the status line.
	TransitionUpdateStatus
	// TransitionAppendTranscript appends a transcript fragment.
	TransitionAppendTranscript
	// TransitionAppendSummary appends a summary fragment.
	TransitionAppendSummary
	// TransitionAppendDecision appends one key decision.
	TransitionAppendDecision
	// TransitionAppendActionItem appends one action item.
	TransitionAppendActionItem
	// TransitionComplete ends the session successfully. Terminal.
	TransitionComplete
	// TransitionError ends the session abnormally. Terminal.
	TransitionError
)

// String returns the transition kind name for logs and diagnostics.
func (k TransitionKind) String() string {
	switch k {
	case TransitionStart:
		return "start"
	case TransitionUpdateStatus:
		return "update_status"
	case TransitionAppendTranscript:
		return "append_transcript"
	case TransitionAppendSummary:
		return "append_summary"
	case TransitionAppendDecision:
		return "append_decision"
	case TransitionAppendActionItem:
		return "append_action_item"
	case TransitionComplete:
		return "complete"
	case TransitionError:
		return "error"
	default:
		return "unknown"
	}
}

// Transition is one state change request for the machine.
type Transition struct {
	Kind TransitionKind
	// Text is the transition argument: status text, fragment, or error
	// message depending on Kind.
	Text string
	// HasText distinguishes COMPLETE with a status override from a plain
	// COMPLETE.
	HasText bool
}

// IsTerminal reports whether the transition ends the session.
func (t Transition) IsTerminal() bool {
	return t.Kind == TransitionComplete || t.Kind == TransitionError
}

// Start resets the machine to the empty processing state.
func Start() Transition {
	return Transition{Kind: TransitionStart}
}

// UpdateStatus replaces the status line.
func UpdateStatus(text string) Transition {
	return Transition{Kind: TransitionUpdateStatus, Text: text, HasText: true}
}

// AppendTranscript appends a transcript fragment.
func AppendTranscript(text string) Transition {
	return Transition{Kind: TransitionAppendTranscript, Text: text, HasText: true}
}

// AppendSummary appends a summary fragment.
func AppendSummary(text string) Transition {
	return Transition{Kind: TransitionAppendSummary, Text: text, HasText: true}
}

// AppendDecision appends one key decision.
func AppendDecision(text string) Transition {
	return Transition{Kind: TransitionAppendDecision, Text: text, HasText: true}
}

// AppendActionItem appends one action item.
func AppendActionItem(text string) Transition {
	return Transition{Kind: TransitionAppendActionItem, Text: text, HasText: true}
}

// Complete ends the session successfully, leaving the status unchanged.
func Complete() Transition {
	return Transition{Kind: TransitionComplete}
}

// CompleteWithStatus ends the session successfully with a final status.
func CompleteWithStatus(text string) Transition {
	return Transition{Kind: TransitionComplete, Text: text, HasText: true}
}

// Fail ends the session abnormally with the given error text.
func Fail(text string) Transition {
	return Transition{Kind: TransitionError, Text: text, HasText: true}
}

// reduce is the pure transition function over published state. It never
// rejects; ordering and terminal enforcement live in Machine.Apply.
func reduce(s types.StreamState, t Transition) types.StreamState {
	switch t.Kind {
	case TransitionStart:
		return types.StreamState{Status: StatusUploading, Processing: true}
	case TransitionUpdateStatus:
		s.Status = t.Text
	case TransitionAppendTranscript:
		s.Transcript = joinFragment(s.Transcript, t.Text, " ")
	case TransitionAppendSummary:
		s.Summary = joinFragment(s.Summary, t.Text, " ")
	case TransitionAppendDecision:
		s.Decisions = joinFragment(s.Decisions, t.Text, "\n")
	case TransitionAppendActionItem:
		s.ActionItems = joinFragment(s.ActionItems, t.Text, "\n")
	case TransitionComplete:
		s.Processing = false
		if t.HasText {
			s.Status = t.Text
		}
	case TransitionError:
		s.Processing = false
		text := t.Text
		s.Error = &text
		s.Status = "error: " + t.Text
	}
	return s
}

// joinFragment appends a fragment with the given separator, omitting the
// separator while the accumulator is still empty. Chunk boundaries carry
// no whitespace of their own.
func joinFragment(cur, text, sep string) string {
	if cur == "" {
		return text
	}
	return cur + sep + text
}

// Machine owns the canonical StreamState for a session and applies
// transitions exactly in the order they are handed to it. The session
// controller is the only writer; observers read snapshots or subscribe
// for per-transition copies.
type Machine struct {
	mu        sync.RWMutex
	state     types.StreamState
	started   bool
	terminal  bool
	listeners []func(types.StreamState)
}

// NewMachine creates a machine in the empty, not-yet-started state.
func NewMachine() *Machine {
	return &Machine{}
}

// Subscribe registers a listener invoked synchronously with a state copy
// after every applied transition. Listeners survive across sessions.
func (m *Machine) Subscribe(fn func(types.StreamState)) {
	m.mu.Lock()
	m.listeners = append(m.listeners, fn)
	m.mu.Unlock()
}

// Apply validates and applies one transition.
//
// START is rejected while a session is processing; any other transition
// is rejected before the first START and after a terminal transition.
// The first terminal transition wins; a second is a contract violation
// and leaves state untouched.
func (m *Machine) Apply(t Transition) error {
	m.mu.Lock()
	if t.Kind == TransitionStart {
		if m.started && !m.terminal {
			m.mu.Unlock()
			return ErrAlreadyProcessing
		}
		m.started = true
		m.terminal = false
	} else {
		if !m.started {
			m.mu.Unlock()
			return ErrNotStarted
		}
		if m.terminal {
			m.mu.Unlock()
			return ErrTerminalReached
		}
	}

	m.state = reduce(m.state, t)
	if t.IsTerminal() {
		m.terminal = true
	}
	snapshot := m.state
	listeners := m.listeners
	m.mu.Unlock()

	for _, fn := range listeners {
		fn(snapshot)
	}
	return nil
}

// State returns a copy of the current published state.
func (m *Machine) State() types.StreamState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Terminal reports whether the current session has ended.
func (m *Machine) Terminal() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.terminal
}
