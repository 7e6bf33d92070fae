package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sree6273/AI-meeting-summary/session"
	"github.com/sree6273/AI-meeting-summary/types"
)

// stateBuffer bounds the snapshot queue between the controller's read
// loop and the view. Snapshots are cumulative, so the queue can drop
// stale entries without losing information.
const stateBuffer = 16

// transcriptTail caps how much transcript the live view keeps on screen.
const transcriptTail = 600

// LiveSession wires a running session into the live view.
type LiveSession struct {
	// Media is the media file path shown in the header.
	Media string
	// Machine is the state source the view subscribes to.
	Machine *session.Machine
	// Run starts the session and blocks until it ends.
	Run func() (*session.Result, error)
	// Cancel requests cooperative cancellation.
	Cancel func()
}

// stateUpdateMsg carries a state machine snapshot.
type stateUpdateMsg types.StreamState

// sessionDoneMsg carries the result when Run returns.
type sessionDoneMsg struct {
	result *session.Result
	err    error
}

// liveKeyMap defines key bindings for the live view. Quit requests
// cancellation while the session runs; the view exits on its own once
// the terminal state arrives.
type liveKeyMap struct {
	Cancel key.Binding
}

var liveKeys = liveKeyMap{
	Cancel: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "cancel"),
	),
}

// LiveModel is a Bubble Tea model that mirrors a session in flight.
type LiveModel struct {
	media   string
	spinner spinner.Model
	updates <-chan types.StreamState
	run     func() (*session.Result, error)
	cancel  func()

	state      types.StreamState
	result     *session.Result
	err        error
	width      int
	height     int
	cancelling bool
	done       bool
}

// NewLiveModel creates a live view model. The updates channel feeds
// state snapshots; the initial state is read from the session machine.
func NewLiveModel(s LiveSession, updates <-chan types.StreamState) LiveModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(primaryColor)

	m := LiveModel{
		media:   s.Media,
		spinner: sp,
		updates: updates,
		run:     s.Run,
		cancel:  s.Cancel,
	}
	if s.Machine != nil {
		m.state = s.Machine.State()
	}
	return m
}

// Init implements tea.Model.
func (m LiveModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.startSession(), m.waitForState())
}

// startSession runs the session in a command goroutine.
func (m LiveModel) startSession() tea.Cmd {
	run := m.run
	return func() tea.Msg {
		result, err := run()
		return sessionDoneMsg{result: result, err: err}
	}
}

// waitForState blocks for the next snapshot, then coalesces any queued
// ones so the view always renders the newest.
func (m LiveModel) waitForState() tea.Cmd {
	ch := m.updates
	return func() tea.Msg {
		st, ok := <-ch
		if !ok {
			return nil
		}
		for {
			select {
			case next, more := <-ch:
				if !more {
					return stateUpdateMsg(st)
				}
				st = next
			default:
				return stateUpdateMsg(st)
			}
		}
	}
}

// Update implements tea.Model.
func (m LiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, liveKeys.Cancel) {
			if m.done {
				return m, tea.Quit
			}
			if !m.cancelling {
				m.cancelling = true
				if m.cancel != nil {
					m.cancel()
				}
			}
			return m, nil
		}
		return m, nil

	case stateUpdateMsg:
		m.state = types.StreamState(msg)
		if m.done {
			return m, nil
		}
		return m, m.waitForState()

	case sessionDoneMsg:
		m.done = true
		m.result = msg.result
		m.err = msg.err
		if msg.result != nil {
			m.state = msg.result.State
		}
		return m, tea.Quit

	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View implements tea.Model.
func (m LiveModel) View() string {
	var b strings.Builder

	b.WriteString(TitleStyle.Render("Meeting Summary"))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("%s %s\n\n",
		LabelStyle.Render("Media:"),
		ValueStyle.Render(m.media)))

	b.WriteString(m.renderStatus())
	b.WriteString("\n")

	if m.state.Transcript != "" {
		b.WriteString(m.renderSection("Transcript", tailString(m.state.Transcript, transcriptTail)))
	}
	if m.state.Summary != "" {
		b.WriteString(m.renderSection("Summary", m.state.Summary))
	}
	if m.state.Decisions != "" {
		b.WriteString(m.renderSection("Decisions", m.state.Decisions))
	}
	if m.state.ActionItems != "" {
		b.WriteString(m.renderSection("Action Items", m.state.ActionItems))
	}

	if m.state.Error != nil {
		b.WriteString("\n")
		b.WriteString(ErrorStyle.Render("Error: " + *m.state.Error))
		b.WriteString("\n")
	}

	help := HelpStyle.Render("Press q or Ctrl+C to cancel")
	return b.String() + "\n" + help
}

func (m LiveModel) renderStatus() string {
	if m.done && m.result != nil {
		outcome := string(m.result.Outcome)
		return fmt.Sprintf("%s %s",
			LabelStyle.Render("Outcome:"),
			StateStyle(outcome).Render(outcome))
	}

	status := m.state.Status
	if status == "" {
		status = "Starting session..."
	}
	line := fmt.Sprintf("%s %s", m.spinner.View(), ValueStyle.Render(status))
	if m.cancelling {
		line += " " + WarningStyle.Render("(cancelling)")
	}
	return line
}

func (m LiveModel) renderSection(title, text string) string {
	width := m.width - 4
	if width < 20 {
		width = 76
	}
	body := lipgloss.NewStyle().Width(width).Render(text)
	return fmt.Sprintf("\n%s\n%s\n",
		LabelStyle.Render(title+":"),
		body)
}

// tailString returns the last max runes of s, with a leading ellipsis
// when truncated.
func tailString(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return "…" + string(runes[len(runes)-max:])
}

// RunLiveTUI runs the live session view. It subscribes to the session's
// machine, starts the session, and returns the session result when the
// view exits.
func RunLiveTUI(s LiveSession) (*session.Result, error) {
	updates := make(chan types.StreamState, stateBuffer)
	if s.Machine != nil {
		s.Machine.Subscribe(func(st types.StreamState) {
			// Never block the controller's read loop: evict stale
			// snapshots until the newest one fits.
			for {
				select {
				case updates <- st:
					return
				default:
				}
				select {
				case <-updates:
				default:
				}
			}
		})
	}

	model := NewLiveModel(s, updates)
	p := tea.NewProgram(model, tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		if s.Cancel != nil {
			s.Cancel()
		}
		return nil, err
	}

	m, ok := final.(LiveModel)
	if !ok {
		return nil, fmt.Errorf("unexpected model type %T", final)
	}
	return m.result, m.err
}
