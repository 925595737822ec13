// ABOUTME: Bubbletea model for the export progress screen
// ABOUTME: Tracks format, progress, stage and result and renders them with lipgloss
package ui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ExportInfo describes the export being shown
type ExportInfo struct {
	Path       string
	Codec      string
	SampleRate int
	Channels   int
	BitDepth   int
	Title      string
	Artist     string
	Album      string
}

// Model represents the TUI state
type Model struct {
	info ExportInfo

	done    int64
	total   int64
	stage   string
	result  string
	err     error
	started time.Time

	quitting bool
	finished bool
	cancel   func()

	width  int
	height int
}

// ProgressMsg reports frames written so far
type ProgressMsg struct {
	Done  int64
	Total int64
}

// StageMsg names the pipeline stage in progress
type StageMsg string

// ResultMsg ends the export; the program quits after rendering it
type ResultMsg struct {
	Result string
	Err    error
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205")).MarginBottom(1)
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
	errorStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	okStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
)

// NewModel creates a model; cancel is called once when the user quits
func NewModel(info ExportInfo, cancel func()) Model {
	return Model{
		info:    info,
		stage:   "init",
		started: time.Now(),
		cancel:  cancel,
	}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case ProgressMsg:
		m.done, m.total = msg.Done, msg.Total
		m.stage = "write"
	case StageMsg:
		m.stage = string(msg)
	case ResultMsg:
		m.result = msg.Result
		m.err = msg.Err
		m.finished = true
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		if !m.quitting && m.cancel != nil {
			m.cancel()
		}
		m.quitting = true
		if m.finished {
			return m, tea.Quit
		}
	}
	return m, nil
}

// View renders the TUI
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Resonate Edit Export"))
	b.WriteString("\n\n")

	field := func(name, value string) {
		b.WriteString(headerStyle.Render(fmt.Sprintf("%-8s", name+":")))
		b.WriteString(valueStyle.Render(value))
		b.WriteString("\n")
	}
	field("File", truncate(m.info.Path, 48))
	field("Format", fmt.Sprintf("%s %dHz %s %d-bit",
		m.info.Codec, m.info.SampleRate, channelName(m.info.Channels), m.info.BitDepth))
	if m.info.Title != "" {
		field("Title", truncate(m.info.Title, 48))
		field("Artist", truncate(m.info.Artist, 48))
		field("Album", truncate(m.info.Album, 48))
	}
	b.WriteString("\n")

	field("Stage", m.stage)
	b.WriteString(fmt.Sprintf("[%s] %3d%%  %s / %s\n",
		renderBar(m.done, m.total, 30), percent(m.done, m.total),
		formatFrames(m.done, m.info.SampleRate), formatFrames(m.total, m.info.SampleRate)))
	b.WriteString("\n")

	switch {
	case m.err != nil:
		b.WriteString(errorStyle.Render(fmt.Sprintf("%s: %v", m.result, m.err)))
	case m.finished:
		b.WriteString(okStyle.Render(fmt.Sprintf("%s in %s", m.result, time.Since(m.started).Round(time.Millisecond))))
	case m.quitting:
		b.WriteString(valueStyle.Render("Cancelling..."))
	default:
		b.WriteString(lipgloss.NewStyle().Faint(true).Render("Press 'q' or Ctrl+C to cancel"))
	}
	b.WriteString("\n")
	return b.String()
}

func percent(done, total int64) int64 {
	if total <= 0 {
		return 0
	}
	return min(100, done*100/total)
}

func renderBar(value, total int64, width int) string {
	filled := 0
	if total > 0 {
		filled = int(min(value, total) * int64(width) / total)
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

// formatFrames renders a frame count as m:ss.mmm
func formatFrames(frames int64, rate int) string {
	if rate <= 0 {
		return "0:00.000"
	}
	ms := frames * 1000 / int64(rate)
	return fmt.Sprintf("%d:%02d.%03d", ms/60000, ms/1000%60, ms%1000)
}

func truncate(s string, length int) string {
	if len(s) <= length {
		return s
	}
	return s[:length-3] + "..."
}

func channelName(channels int) string {
	switch channels {
	case 1:
		return "Mono"
	case 2:
		return "Stereo"
	}
	return fmt.Sprintf("%dch", channels)
}
