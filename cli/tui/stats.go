package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sree6273/AI-meeting-summary/cli/reader"
)

// StatsModel is a Bubble Tea model for the capture stats view.
type StatsModel struct {
	viewType string
	data     any
	width    int
	height   int
	quitting bool
}

// NewStatsModel creates a new stats model.
func NewStatsModel(viewType string, data any) StatsModel {
	return StatsModel{
		viewType: viewType,
		data:     data,
	}
}

// Init implements tea.Model.
func (m StatsModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m StatsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			m.quitting = true
			return m, tea.Quit
		}
	}

	return m, nil
}

// View implements tea.Model.
func (m StatsModel) View() string {
	if m.quitting {
		return ""
	}

	var content string
	switch m.viewType {
	case "stats_capture":
		content = m.renderStatsCapture()
	default:
		content = fmt.Sprintf("Unknown view type: %s", m.viewType)
	}

	help := HelpStyle.Render("Press q or Ctrl+C to quit")
	return content + "\n" + help
}

func (m StatsModel) renderStatsCapture() string {
	data, ok := m.data.(*reader.CaptureStats)
	if !ok {
		return "Invalid data type for stats_capture"
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render("Capture Statistics"))
	b.WriteString("\n\n")

	b.WriteString(fmt.Sprintf("%s %s\n",
		LabelStyle.Render("Session ID:"),
		ValueStyle.Render(data.SessionID)))
	b.WriteString(fmt.Sprintf("%s %s\n\n",
		LabelStyle.Render("Resource:"),
		ValueStyle.Render(data.Resource)))

	// Wire-level counters
	wire := []string{
		m.renderStatBox("Chunks", data.Chunks, highlightColor),
		m.renderStatBox("Frames", data.FramesDecoded, highlightColor),
		m.renderStatBox("Ignored", data.FramesIgnored, warningColor),
		m.renderStatBox("Malformed", data.MalformedRecords, errorColor),
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, wire...))
	b.WriteString("\n")

	// Record-type counters
	records := []string{
		m.renderStatBox("Statuses", data.StatusUpdates, highlightColor),
		m.renderStatBox("Transcript", data.TranscriptFragments, successColor),
		m.renderStatBox("Summary", data.SummaryFragments, successColor),
		m.renderStatBox("Decisions", data.Decisions, successColor),
		m.renderStatBox("Actions", data.ActionItems, successColor),
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, records...))
	b.WriteString("\n")

	b.WriteString(fmt.Sprintf("%s %s\n",
		LabelStyle.Render("Done Seen:"),
		yesNoStyle(data.DoneSeen).Render(yesNo(data.DoneSeen))))

	if data.ErrorSeen {
		b.WriteString(fmt.Sprintf("%s %s\n",
			LabelStyle.Render("Error Seen:"),
			ErrorStyle.Render("yes")))
	}

	if data.TrailingBytes > 0 {
		b.WriteString(fmt.Sprintf("%s %s\n",
			LabelStyle.Render("Trailing:"),
			WarningStyle.Render(fmt.Sprintf("%d bytes", data.TrailingBytes))))
	}

	return b.String()
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func yesNoStyle(v bool) lipgloss.Style {
	if v {
		return SuccessStyle
	}
	return WarningStyle
}

func (m StatsModel) renderStatBox(label string, value int, color lipgloss.Color) string {
	boxStyle := StatBoxStyle.BorderForeground(color)

	valueStr := StatValueStyle.Foreground(color).Render(fmt.Sprintf("%d", value))
	labelStr := StatLabelStyle.Render(label)

	content := lipgloss.JoinVertical(lipgloss.Center, valueStr, labelStr)

	return boxStyle.Render(content)
}

// RunStatsTUI runs the stats TUI.
func RunStatsTUI(viewType string, data any) error {
	model := NewStatsModel(viewType, data)
	p := tea.NewProgram(model, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// RenderStatsStatic renders stats data without full TUI (for fallback).
func RenderStatsStatic(viewType string, data any) string {
	model := NewStatsModel(viewType, data)
	model.width = 80
	model.height = 24
	return lipgloss.NewStyle().Padding(1, 2).Render(model.View())
}
