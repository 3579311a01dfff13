package result

import (
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"browseq/internal/runner"
	"browseq/internal/tui/styles"
)

// Model shows the outcome of a finished run.
type Model struct {
	Report runner.Report
	Err    error

	// Note is an optional status line (export or history result).
	Note string

	Width  int
	Height int
}

func NewModel(rep runner.Report, err error) Model {
	return Model{Report: rep, Err: err}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
	}
	return m, nil
}

func (m Model) View() string {
	s := strings.Builder{}
	rep := m.Report

	s.WriteString(styles.Title.Render("📊 Test Complete"))
	s.WriteString("\n\n")

	overview := fmt.Sprintf(
		"Sessions run: %d\nFailed:       %d\nElapsed:      %s",
		rep.Attempted, rep.Failed, rep.Elapsed.Round(10*time.Millisecond),
	)
	s.WriteString(styles.Box.Render(overview))
	s.WriteString("\n\n")

	switch {
	case errors.Is(m.Err, runner.ErrNoResults):
		s.WriteString(styles.Error.Render("❌ " + runner.ErrNoResults.Error()))
	case m.Err != nil:
		s.WriteString(styles.Error.Render("❌ " + m.Err.Error()))
	default:
		summary := fmt.Sprintf(
			"Successful:   %s\nAvg duration: %s",
			styles.Success.Render(fmt.Sprintf("%d", rep.Summary.Successful)),
			styles.Value.Render(fmt.Sprintf("%.2fs", rep.Summary.AvgDuration.Seconds())),
		)
		s.WriteString(styles.Box.Render(summary))
	}

	if m.Note != "" {
		s.WriteString("\n\n")
		s.WriteString(styles.Subtle.Render(m.Note))
	}

	s.WriteString("\n\n")
	s.WriteString(styles.RenderKey("q", "quit"))

	return s.String()
}
