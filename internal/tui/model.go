package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"browseq/internal/browser"
	"browseq/internal/report"
	"browseq/internal/runner"
	"browseq/internal/storage"
	"browseq/internal/tui/config"
	"browseq/internal/tui/live"
	"browseq/internal/tui/result"
	"browseq/internal/tui/styles"
)

type state int

const (
	stateConfig state = iota
	stateRunning
	stateDone
)

// Deps are the collaborators a run started from the TUI uses.
type Deps struct {
	Launcher browser.Launcher
	Log      zerolog.Logger
	History  *storage.Store
}

type runDoneMsg struct {
	report runner.Report
	err    error
}

type Model struct {
	deps  Deps
	state state

	Config config.Model
	Live   live.Model
	Result result.Model

	runner  *runner.Runner
	updates runner.StatsUpdateChan
	cancel  context.CancelFunc
	pending tea.Cmd

	Width  int
	Height int
}

// NewModel opens on the configuration form, or starts the run immediately
// when autostart is set.
func NewModel(cfg runner.Config, deps Deps, autostart bool) Model {
	m := Model{
		deps:   deps,
		Config: config.NewModel(cfg),
	}
	if autostart {
		var cmd tea.Cmd
		m, cmd = m.start(cfg)
		m.pending = cmd
	}
	return m
}

func (m Model) Init() tea.Cmd {
	if m.pending != nil {
		return m.pending
	}
	return m.Config.Init()
}

func waitForUpdate(sub runner.StatsUpdateChan) tea.Cmd {
	return func() tea.Msg {
		return <-sub
	}
}

func runCmd(ctx context.Context, r *runner.Runner) tea.Cmd {
	return func() tea.Msg {
		rep, err := r.Run(ctx)
		return runDoneMsg{report: rep, err: err}
	}
}

func (m Model) start(cfg runner.Config) (Model, tea.Cmd) {
	updates := make(runner.StatsUpdateChan, 100)
	r, err := runner.NewRunner(cfg, m.deps.Launcher, updates)
	if err != nil {
		m.Config.Err = err
		return m, nil
	}
	r.Log = m.deps.Log

	ctx, cancel := context.WithCancel(context.Background())
	m.runner = r
	m.updates = updates
	m.cancel = cancel
	m.state = stateRunning
	m.Live = live.NewModel(r.Cfg)
	if m.Width > 0 {
		m.Live, _ = m.Live.Update(tea.WindowSizeMsg{Width: m.Width, Height: m.Height})
	}

	return m, tea.Batch(runCmd(ctx, r), waitForUpdate(updates))
}

func (m Model) finish(msg runDoneMsg) Model {
	m.state = stateDone
	if m.cancel != nil {
		m.cancel()
	}
	m.Result = result.NewModel(msg.report, msg.err)
	m.Result.Width, m.Result.Height = m.Width, m.Height

	var notes []string
	cfg := m.runner.Cfg
	if cfg.OutPrefix != "" && len(msg.report.Results) > 0 {
		if err := report.ExportAll(cfg, msg.report, cfg.OutPrefix); err != nil {
			notes = append(notes, fmt.Sprintf("Export failed: %v", err))
		} else {
			notes = append(notes, fmt.Sprintf("Reports saved to %s.{csv,json,_summary.json}", cfg.OutPrefix))
		}
	}
	if m.deps.History != nil {
		item := storage.NewHistoryItem(storage.NewID(), cfg, msg.report, m.runner.Stats.DurationMs(90))
		if err := m.deps.History.Save(item); err != nil {
			notes = append(notes, fmt.Sprintf("Error saving history: %v", err))
		} else {
			notes = append(notes, "History saved.")
		}
	}
	m.Result.Note = lipgloss.JoinVertical(lipgloss.Left, notes...)
	return m
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		case "q":
			if m.state != stateConfig {
				if m.cancel != nil {
					m.cancel()
				}
				return m, tea.Quit
			}
		case "esc":
			// Stop submitting; running sessions drain and the result screen follows.
			if m.state == stateRunning && m.cancel != nil {
				m.cancel()
				return m, nil
			}
		case "enter":
			if m.state == stateConfig {
				cfg, err := m.Config.GetConfig()
				if err != nil {
					m.Config.Err = err
					return m, nil
				}
				m.Config.Err = nil
				return m.start(cfg)
			}
		}

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.Live, _ = m.Live.Update(msg)
		m.Result, _ = m.Result.Update(msg)
		var cmd tea.Cmd
		m.Config, cmd = m.Config.Update(msg)
		return m, cmd

	case runner.StatsSnapshot:
		var cmd tea.Cmd
		m.Live, cmd = m.Live.Update(msg)
		if m.state == stateRunning {
			return m, tea.Batch(cmd, waitForUpdate(m.updates))
		}
		return m, cmd

	case runDoneMsg:
		return m.finish(msg), nil
	}

	var cmd tea.Cmd
	switch m.state {
	case stateConfig:
		m.Config, cmd = m.Config.Update(msg)
	case stateRunning:
		m.Live, cmd = m.Live.Update(msg)
	case stateDone:
		m.Result, cmd = m.Result.Update(msg)
	}
	return m, cmd
}

func (m Model) View() string {
	var content, help string
	switch m.state {
	case stateConfig:
		content = m.Config.View()
	case stateRunning:
		content = m.Live.View()
		help = styles.Help([2]string{"esc", "stop"}, [2]string{"q", "quit"})
	case stateDone:
		content = m.Result.View()
	}

	if help == "" {
		return content + "\n"
	}
	return lipgloss.JoinVertical(lipgloss.Left, content, "", help) + "\n"
}
