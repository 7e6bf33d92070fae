package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sree6273/AI-meeting-summary/cli/reader"
)

// InspectModel is a Bubble Tea model for the capture inspect view.
type InspectModel struct {
	viewType string
	data     any
	width    int
	height   int
	quitting bool
}

// NewInspectModel creates a new inspect model.
func NewInspectModel(viewType string, data any) InspectModel {
	return InspectModel{
		viewType: viewType,
		data:     data,
	}
}

// Init implements tea.Model.
func (m InspectModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m InspectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) {
			m.quitting = true
			return m, tea.Quit
		}
	}

	return m, nil
}

// View implements tea.Model.
func (m InspectModel) View() string {
	if m.quitting {
		return ""
	}

	var content string
	switch m.viewType {
	case "inspect_capture":
		content = m.renderInspectCapture()
	default:
		content = fmt.Sprintf("Unknown view type: %s", m.viewType)
	}

	help := HelpStyle.Render("Press q or Ctrl+C to quit")
	return content + "\n" + help
}

func (m InspectModel) renderInspectCapture() string {
	data, ok := m.data.(*reader.InspectCaptureResponse)
	if !ok {
		return "Invalid data type for inspect_capture"
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render("Capture Details"))
	b.WriteString("\n\n")

	rows := [][]string{
		{"Capture", data.Path},
		{"Format", fmt.Sprintf("v%d", data.FormatVersion)},
		{"Session ID", data.SessionID},
		{"Resource", data.Resource},
		{"Started At", data.StartedAt},
		{"Chunks", fmt.Sprintf("%d", data.Chunks)},
		{"Bytes", fmt.Sprintf("%d", data.Bytes)},
	}

	if data.Truncated {
		rows = append(rows, []string{"Outcome", "(truncated, no trailer)"})
	} else {
		rows = append(rows, []string{"Outcome", data.Outcome})
		rows = append(rows, []string{"Duration", (time.Duration(data.DurationMS) * time.Millisecond).String()})
	}

	for _, row := range rows {
		label := LabelStyle.Render(row[0] + ":")
		value := row[1]
		switch row[0] {
		case "Outcome":
			if data.Truncated {
				value = WarningStyle.Render(value)
			} else {
				value = StateStyle(data.Outcome).Render(value)
			}
		default:
			value = ValueStyle.Render(value)
		}
		b.WriteString(fmt.Sprintf("%s %s\n", label, value))
	}

	if data.Error != "" {
		b.WriteString(fmt.Sprintf("%s %s\n",
			LabelStyle.Render("Error:"),
			ErrorStyle.Render(data.Error)))
	}

	return BoxStyle.Render(b.String())
}

// keyMap defines key bindings.
type keyMap struct {
	Quit key.Binding
}

var keys = keyMap{
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

// RunInspectTUI runs the inspect TUI.
func RunInspectTUI(viewType string, data any) error {
	model := NewInspectModel(viewType, data)
	p := tea.NewProgram(model, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// RenderInspectStatic renders inspect data without full TUI (for fallback).
func RenderInspectStatic(viewType string, data any) string {
	model := NewInspectModel(viewType, data)
	model.width = 80
	model.height = 24
	return lipgloss.NewStyle().Padding(1, 2).Render(model.View())
}
