// ABOUTME: TUI lifecycle for the export progress screen
// ABOUTME: Wraps a bubbletea program fed from a buffered update channel
package ui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// ExportTUI shows one export
type ExportTUI struct {
	program *tea.Program
	updates chan tea.Msg
}

// NewExportTUI creates the TUI; cancel runs when the user quits
func NewExportTUI(info ExportInfo, cancel func()) *ExportTUI {
	return &ExportTUI{
		program: tea.NewProgram(NewModel(info, cancel), tea.WithAltScreen()),
		updates: make(chan tea.Msg, 64),
	}
}

// Run blocks until the program exits
func (t *ExportTUI) Run() error {
	go func() {
		for msg := range t.updates {
			t.program.Send(msg)
		}
	}()
	_, err := t.program.Run()
	return err
}

// Progress reports frames written; it drops updates when the screen lags
func (t *ExportTUI) Progress(done, total int64) {
	select {
	case t.updates <- ProgressMsg{Done: done, Total: total}:
	default:
	}
}

// Stage names the running pipeline stage
func (t *ExportTUI) Stage(name string) {
	t.updates <- StageMsg(name)
}

// Finish shows the result and ends the program
func (t *ExportTUI) Finish(result string, err error) {
	t.updates <- ResultMsg{Result: result, Err: err}
	close(t.updates)
}
