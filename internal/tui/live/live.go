package live

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"browseq/internal/runner"
	"browseq/internal/tui/components"
	"browseq/internal/tui/styles"
)

// Model is the dashboard shown while sessions run.
type Model struct {
	Cfg      runner.Config
	Stats    runner.StatsSnapshot
	Progress progress.Model

	RateLine    components.Sparkline
	LatencyLine components.Sparkline

	StartTime     time.Time
	LastUpdate    time.Time
	LastCompleted uint64

	Width  int
	Height int
}

func NewModel(cfg runner.Config) Model {
	now := time.Now()
	return Model{
		Cfg:         cfg,
		Progress:    progress.New(progress.WithDefaultGradient()),
		RateLine:    components.NewSparkline(40, "Sessions", "/s", styles.Active),
		LatencyLine: components.NewSparkline(40, "Avg duration", "ms", styles.Warn),
		StartTime:   now,
		LastUpdate:  now,
	}
}

func (m Model) Init() tea.Cmd {
	return nil
}

// Percent is the share of sessions that reached an outcome.
func (m Model) Percent() float64 {
	if m.Stats.Total <= 0 {
		return 0
	}
	return min(float64(m.Stats.Completed())/float64(m.Stats.Total), 1.0)
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case runner.StatsSnapshot:
		now := time.Now()
		dt := max(now.Sub(m.LastUpdate).Seconds(), 0.01)

		done := msg.Completed()
		m.RateLine.Add(float64(done-m.LastCompleted) / dt)
		m.LatencyLine.Add(msg.AvgMs)

		m.Stats = msg
		m.LastCompleted = done
		m.LastUpdate = now

		return m, m.Progress.SetPercent(m.Percent())

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.Progress.Width = max(msg.Width-8, 10)

		half := max((msg.Width/2)-8, 10)
		m.RateLine.Width = half
		m.LatencyLine.Width = half
		return m, nil

	case progress.FrameMsg:
		prog, cmd := m.Progress.Update(msg)
		m.Progress = prog.(progress.Model)
		return m, cmd
	}

	return m, nil
}

func (m Model) View() string {
	s := strings.Builder{}

	s.WriteString(styles.Title.Render("🌐 " + m.Cfg.URL))
	s.WriteString("\n")
	s.WriteString(styles.Subtle.Render(fmt.Sprintf(
		"%d sessions | %d workers | elapsed %s",
		m.Cfg.NumRequests, m.Cfg.Workers, time.Since(m.StartTime).Round(time.Second),
	)))
	s.WriteString("\n\n")

	errRate := m.Stats.ErrRate
	errStyle := styles.Active
	switch {
	case errRate > 5.0:
		errStyle = styles.Error
	case errRate > 1.0:
		errStyle = styles.Warn
	}

	col1 := fmt.Sprintf("DONE: %d/%d\nINF:  %d", m.Stats.Completed(), m.Stats.Total, m.Stats.Inflight)
	col2 := fmt.Sprintf("OK:   %d\nFAIL: %d (%.1f%%)", m.Stats.Success, m.Stats.Fail, errRate)
	col3 := fmt.Sprintf("AVG:  %.0f ms\nCOOKIES: %d", m.Stats.AvgMs, m.Stats.Cookies)

	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		styles.Box.Render(col1),
		styles.Box.Render(errStyle.Render(col2)),
		styles.Box.Render(col3),
	))
	s.WriteString("\n\n")

	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		styles.Box.Render(m.RateLine.View()),
		styles.Box.Render(m.LatencyLine.View()),
	))
	s.WriteString("\n\n")

	s.WriteString(styles.Subtle.Render(fmt.Sprintf(
		"P50: %.0f ms  |  P90: %.0f ms  |  P99: %.0f ms  |  Max: %d ms",
		m.Stats.P50Ms, m.Stats.P90Ms, m.Stats.P99Ms, m.Stats.MaxMs,
	)))
	s.WriteString("\n\n")

	s.WriteString(m.Progress.View())

	return s.String()
}
