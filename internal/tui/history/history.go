package history

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"browseq/internal/storage"
	"browseq/internal/tui/styles"
)

// Model lists recorded runs.
type Model struct {
	Items []storage.HistoryItem
	Table table.Model

	Width  int
	Height int
}

func NewModel(items []storage.HistoryItem) Model {
	columns := []table.Column{
		{Title: "Time", Width: 20},
		{Title: "URL", Width: 34},
		{Title: "Sessions", Width: 9},
		{Title: "Workers", Width: 8},
		{Title: "OK", Width: 6},
		{Title: "Fail", Width: 6},
		{Title: "Avg (s)", Width: 8},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(12),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(styles.ColorBorder).
		BorderBottom(true).
		Bold(false)
	s.Selected = s.Selected.
		Foreground(styles.ColorText).
		Background(styles.ColorPrimary).
		Bold(false)
	t.SetStyles(s)

	m := Model{Table: t}
	m.SetItems(items)
	return m
}

// Rows converts history items to table rows.
func Rows(items []storage.HistoryItem) []table.Row {
	rows := make([]table.Row, len(items))
	for i, item := range items {
		rows[i] = table.Row{
			item.Timestamp.Local().Format(time.DateTime),
			item.Config.URL,
			fmt.Sprintf("%d", item.Summary.TotalRequests),
			fmt.Sprintf("%d", item.Config.Workers),
			fmt.Sprintf("%d", item.Summary.Success),
			fmt.Sprintf("%d", item.Summary.Fail),
			fmt.Sprintf("%.2f", item.Summary.AvgDurationMs/1000),
		}
	}
	return rows
}

func (m *Model) SetItems(items []storage.HistoryItem) {
	m.Items = items
	m.Table.SetRows(Rows(items))
}

// Selected returns the highlighted item, if any.
func (m Model) Selected() *storage.HistoryItem {
	i := m.Table.Cursor()
	if i < 0 || i >= len(m.Items) {
		return nil
	}
	return &m.Items[i]
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.Table.SetWidth(msg.Width - 4)

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.Table, cmd = m.Table.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if len(m.Items) == 0 {
		return styles.Box.Render(styles.Subtle.Render("No recorded runs yet. Run with --history to record one.")) + "\n"
	}

	footer := styles.Help([2]string{"↑/↓", "move"}, [2]string{"q", "quit"})
	if sel := m.Selected(); sel != nil {
		footer = styles.Subtle.Render(sel.ID) + "\n" + footer
	}
	return styles.Box.Render(m.Table.View()) + "\n" + footer + "\n"
}
