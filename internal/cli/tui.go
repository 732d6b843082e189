package cli

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/figura/pkg/registry"
)

var (
	listDimStyle     = lipgloss.NewStyle().Foreground(colorDim)
	listPreviewStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(colorDim).
				Padding(0, 1)
)

// =============================================================================
// ToolListModel - Interactive tool selection
// =============================================================================

// ToolListModel is the bubbletea model for picking a tool preset. The
// highlighted tool's default input is previewed beside the table.
type ToolListModel struct {
	Tools    []registry.Tool
	Cursor   int
	Selected *registry.Tool
	Height   int
	Offset   int
}

// NewToolListModel creates a new tool list model.
func NewToolListModel(tools []registry.Tool) ToolListModel {
	return ToolListModel{Tools: tools, Height: 10}
}

func (m ToolListModel) Init() tea.Cmd {
	return nil
}

func (m ToolListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
				if m.Cursor < m.Offset {
					m.Offset = m.Cursor
				}
			}
		case "down", "j":
			if m.Cursor < len(m.Tools)-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		case "enter":
			if len(m.Tools) == 0 {
				return m, tea.Quit
			}
			t := m.Tools[m.Cursor]
			m.Selected = &t
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.Height = max(msg.Height-8, 3)
	}
	return m, nil
}

func (m ToolListModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Select Tool"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ select  q quit"))
	b.WriteString("\n\n")

	end := min(m.Offset+m.Height, len(m.Tools))
	rows := [][]string{}
	for i := m.Offset; i < end; i++ {
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		t := m.Tools[i]
		rows = append(rows, []string{cursor, t.ID, t.Title, string(t.ParserKind)})
	}

	t := toolTable(rows).StyleFunc(func(row, col int) lipgloss.Style {
		if row == -1 {
			return lipgloss.NewStyle().Foreground(colorGray).Bold(true)
		}
		if m.Offset+row == m.Cursor {
			return lipgloss.NewStyle().Foreground(colorGreen).Bold(true)
		}
		if col == 3 {
			return lipgloss.NewStyle().Foreground(colorDim)
		}
		return lipgloss.NewStyle()
	})

	left := t.Render()
	if len(m.Tools) > 0 {
		left = lipgloss.JoinHorizontal(lipgloss.Top, left, " ", toolPreview(m.Tools[m.Cursor]))
	}
	b.WriteString(left)
	b.WriteString("\n\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.Cursor+1, len(m.Tools))))

	return b.String()
}

// toolTable builds the bordered tool table shared by the list command and
// the picker.
func toolTable(rows [][]string) *table.Table {
	headers := []string{"", "ID", "Title", "Kind"}
	if len(rows) > 0 && len(rows[0]) == 5 {
		headers = []string{"", "ID", "Title", "Kind", "Tone"}
	}
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers(headers...).
		Rows(rows...)
}

// toolPreview shows a tool's tone and the first lines of its default input.
func toolPreview(t registry.Tool) string {
	lines := strings.Split(strings.TrimRight(t.DefaultInput, "\n"), "\n")
	if len(lines) > 8 {
		lines = append(lines[:8], "…")
	}
	body := toneSwatch(t.SurfaceTone) + "\n\n" + strings.Join(lines, "\n")
	if len(t.Chips) > 0 {
		body += "\n\n" + listDimStyle.Render(strings.Join(t.Chips, " · "))
	}
	return listPreviewStyle.Render(body)
}

// =============================================================================
// Helpers
// =============================================================================

func formatRelativeTime(t, now time.Time) string {
	diff := now.Sub(t)
	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	case diff < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(diff.Hours()/24))
	default:
		return t.Format("Jan 2, 2006")
	}
}
