package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/modcat/pkg/module"
)

var listDimStyle = lipgloss.NewStyle().Foreground(colorDim)

// =============================================================================
// ModulePickerModel - Interactive module selection
// =============================================================================

// ModulePickerModel is the bubbletea model for choosing a module to resolve.
// Typing filters the list by id.
type ModulePickerModel struct {
	Modules  []*module.Record
	Filter   string
	Cursor   int
	Offset   int
	Height   int
	Selected *module.Record
}

// NewModulePickerModel creates a picker over records, one row per record.
func NewModulePickerModel(records []*module.Record) ModulePickerModel {
	return ModulePickerModel{Modules: records, Height: 15}
}

// visible returns the records matching the filter.
func (m ModulePickerModel) visible() []*module.Record {
	if m.Filter == "" {
		return m.Modules
	}
	needle := strings.ToLower(m.Filter)
	var out []*module.Record
	for _, r := range m.Modules {
		if strings.Contains(strings.ToLower(r.ID), needle) {
			out = append(out, r)
		}
	}
	return out
}

func (m ModulePickerModel) Init() tea.Cmd {
	return nil
}

func (m ModulePickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		rows := m.visible()
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyUp:
			m.moveCursor(-1, len(rows))
		case tea.KeyDown:
			m.moveCursor(1, len(rows))
		case tea.KeyEnter:
			if len(rows) == 0 {
				return m, nil
			}
			m.Selected = rows[m.Cursor]
			return m, tea.Quit
		case tea.KeyBackspace:
			if m.Filter != "" {
				m.Filter = m.Filter[:len(m.Filter)-1]
				m.Cursor, m.Offset = 0, 0
			}
		case tea.KeyRunes:
			m.Filter += string(msg.Runes)
			m.Cursor, m.Offset = 0, 0
		}
	case tea.WindowSizeMsg:
		m.Height = msg.Height - 8
		if m.Height < 5 {
			m.Height = 5
		}
	}
	return m, nil
}

func (m *ModulePickerModel) moveCursor(delta, n int) {
	next := m.Cursor + delta
	if next < 0 || next >= n {
		return
	}
	m.Cursor = next
	if m.Cursor < m.Offset {
		m.Offset = m.Cursor
	}
	if m.Cursor >= m.Offset+m.Height {
		m.Offset = m.Cursor - m.Height + 1
	}
}

func (m ModulePickerModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Select Module"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ resolve  type to filter  esc quit"))
	b.WriteString("\n")
	if m.Filter != "" {
		b.WriteString(StyleHighlight.Render("filter: " + m.Filter))
	}
	b.WriteString("\n\n")

	rows := m.visible()
	end := min(m.Offset+m.Height, len(rows))

	var cells [][]string
	for i := m.Offset; i < end; i++ {
		r := rows[i]
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		state := r.InitializationMode.String()
		if r.Installed {
			state = iconInstalled
		}
		cells = append(cells, []string{cursor, r.ID, r.Version.String(), state, r.Title})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "Module", "Version", "State", "Title").
		Rows(cells...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			idx := m.Offset + row
			if idx >= len(rows) {
				return lipgloss.NewStyle()
			}
			base := lipgloss.NewStyle()
			if rows[idx].Installed {
				base = base.Foreground(colorGreen)
			} else if col == 3 {
				base = styleOnDemand
			}
			if idx == m.Cursor {
				base = base.Bold(true)
			}
			return base
		})

	b.WriteString(t.Render())
	b.WriteString("\n\n")
	if len(rows) == 0 {
		b.WriteString(listDimStyle.Render("  no matching modules"))
	} else {
		b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.Cursor+1, len(rows))))
	}
	return b.String()
}
