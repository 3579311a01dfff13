package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"browseq/internal/runner"
	"browseq/internal/tui/styles"
)

const (
	FieldURL = iota
	FieldSessions
	FieldWorkers
	FieldDwell
	fieldCount
)

type Field struct {
	Label string
	Input textinput.Model
}

// Model is the form that edits a run configuration before it starts.
type Model struct {
	Config runner.Config

	Fields []Field
	Focus  int
	Err    error

	Width  int
	Height int
}

func newInput(placeholder, value string, width int) textinput.Model {
	t := textinput.New()
	t.Placeholder = placeholder
	t.SetValue(value)
	t.Width = width
	return t
}

func NewModel(cfg runner.Config) Model {
	m := Model{
		Config: cfg,
		Fields: make([]Field, fieldCount),
	}

	m.Fields[FieldURL] = Field{Label: "Target URL", Input: newInput("http://localhost:8080", cfg.URL, 50)}
	m.Fields[FieldSessions] = Field{Label: "Sessions", Input: newInput("10", strconv.Itoa(cfg.NumRequests), 10)}
	m.Fields[FieldWorkers] = Field{Label: "Workers", Input: newInput("5", strconv.Itoa(cfg.Workers), 10)}
	m.Fields[FieldDwell] = Field{Label: "Dwell (ms)", Input: newInput("500", strconv.FormatInt(cfg.Pause().Milliseconds(), 10), 10)}

	m.setFocus(0)
	return m
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m *Model) setFocus(i int) {
	n := len(m.Fields)
	m.Focus = ((i % n) + n) % n
	for j := range m.Fields {
		if j == m.Focus {
			m.Fields[j].Input.Focus()
			m.Fields[j].Input.PromptStyle = styles.Active
			m.Fields[j].Input.TextStyle = styles.Active
		} else {
			m.Fields[j].Input.Blur()
			m.Fields[j].Input.PromptStyle = lipgloss.NewStyle()
			m.Fields[j].Input.TextStyle = lipgloss.NewStyle()
		}
	}
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "tab", "down":
			m.setFocus(m.Focus + 1)
			return m, nil
		case "shift+tab", "up":
			m.setFocus(m.Focus - 1)
			return m, nil
		}
	}

	cmds := make([]tea.Cmd, len(m.Fields))
	for i := range m.Fields {
		m.Fields[i].Input, cmds[i] = m.Fields[i].Input.Update(msg)
	}
	return m, tea.Batch(cmds...)
}

func (m Model) intField(i int) (int, error) {
	v := strings.TrimSpace(m.Fields[i].Input.Value())
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not a number", m.Fields[i].Label, v)
	}
	return n, nil
}

// GetConfig returns the edited configuration, validated.
func (m Model) GetConfig() (runner.Config, error) {
	c := m.Config
	c.URL = strings.TrimSpace(m.Fields[FieldURL].Input.Value())

	var err error
	if c.NumRequests, err = m.intField(FieldSessions); err != nil {
		return c, err
	}
	if c.Workers, err = m.intField(FieldWorkers); err != nil {
		return c, err
	}
	dwell, err := m.intField(FieldDwell)
	if err != nil {
		return c, err
	}
	c.DwellPause = time.Duration(dwell) * time.Millisecond
	if dwell <= 0 {
		c.DwellPause = runner.NoDwellPause
	}

	if err := c.Validate(); err != nil {
		return c, err
	}
	return c, nil
}

func (m Model) View() string {
	s := strings.Builder{}

	s.WriteString(styles.Title.Render("🛠️  Configuration"))
	s.WriteString("\n\n")

	for i := range m.Fields {
		s.WriteString(styles.Subtle.Render(m.Fields[i].Label))
		s.WriteString("\n")
		s.WriteString(m.Fields[i].Input.View())
		s.WriteString("\n\n")
	}

	if m.Err != nil {
		s.WriteString(styles.Error.Render(m.Err.Error()))
		s.WriteString("\n\n")
	}

	s.WriteString(styles.Help([2]string{"enter", "start"}, [2]string{"tab", "next field"}, [2]string{"ctrl+c", "quit"}))

	return styles.Box.Render(s.String())
}
