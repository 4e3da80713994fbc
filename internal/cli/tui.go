package cli

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/stubdex/pkg/index"
	"github.com/matzehuels/stubdex/pkg/stub"
)

// List styles
var (
	listDimStyle    = lipgloss.NewStyle().Foreground(colorDim)
	listFilterStyle = lipgloss.NewStyle().Foreground(colorYellow)
)

// =============================================================================
// BrowseModel - Interactive module browser
// =============================================================================

// BrowseModel is the bubbletea model for browsing a signature database. The
// list view shows every module; enter opens a module's ancestors and
// methods.
type BrowseModel struct {
	DB      *index.Database
	All     []*stub.Module
	Modules []*stub.Module // All narrowed by Filter
	Cursor  int
	Offset  int
	Height  int

	Filter    string
	Filtering bool

	Detail       *moduleResult
	DetailOffset int
	Singleton    bool
	Err          error
}

// NewBrowseModel creates a browser over db.
func NewBrowseModel(db *index.Database) BrowseModel {
	all := db.Modules()
	return BrowseModel{
		DB:      db,
		All:     all,
		Modules: all,
		Height:  15,
	}
}

func (m BrowseModel) Init() tea.Cmd {
	return nil
}

func (m BrowseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.Filtering {
			return m.updateFilter(msg), nil
		}
		if m.Detail != nil {
			return m.updateDetail(msg)
		}
		return m.updateList(msg)
	case tea.WindowSizeMsg:
		m.Height = msg.Height - 8
		if m.Height < 5 {
			m.Height = 5
		}
	}
	return m, nil
}

func (m BrowseModel) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit
	case "/":
		m.Filtering = true
	case "up", "k":
		if m.Cursor > 0 {
			m.Cursor--
			if m.Cursor < m.Offset {
				m.Offset = m.Cursor
			}
		}
	case "down", "j":
		if m.Cursor < len(m.Modules)-1 {
			m.Cursor++
			if m.Cursor >= m.Offset+m.Height {
				m.Offset = m.Cursor - m.Height + 1
			}
		}
	case "enter":
		if len(m.Modules) == 0 {
			return m, nil
		}
		m.Singleton = false
		m.open(m.Modules[m.Cursor].Name)
	}
	return m, nil
}

func (m BrowseModel) updateFilter(msg tea.KeyMsg) BrowseModel {
	switch msg.Type {
	case tea.KeyEnter, tea.KeyEsc:
		m.Filtering = false
		return m
	case tea.KeyBackspace:
		if r := []rune(m.Filter); len(r) > 0 {
			m.Filter = string(r[:len(r)-1])
		}
	case tea.KeyRunes:
		m.Filter += string(msg.Runes)
	default:
		return m
	}
	m.applyFilter()
	return m
}

func (m BrowseModel) updateDetail(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "esc", "backspace", "left", "h":
		m.Detail = nil
		m.Err = nil
		m.DetailOffset = 0
	case "up", "k":
		if m.DetailOffset > 0 {
			m.DetailOffset--
		}
	case "down", "j":
		if m.DetailOffset < len(m.Detail.Methods)-1 {
			m.DetailOffset++
		}
	case "s":
		m.Singleton = !m.Singleton
		m.open(m.Detail.Module)
	}
	return m, nil
}

// open loads the detail view for module.
func (m *BrowseModel) open(module string) {
	res, err := describeModule(m.DB, module, lookupOpts{singleton: m.Singleton, private: true})
	m.Err = err
	m.Detail = res
	m.DetailOffset = 0
}

// applyFilter narrows the list to modules whose name contains the filter,
// case-insensitively, and resets the cursor.
func (m *BrowseModel) applyFilter() {
	m.Cursor, m.Offset = 0, 0
	if m.Filter == "" {
		m.Modules = m.All
		return
	}
	q := strings.ToLower(m.Filter)
	m.Modules = nil
	for _, mod := range m.All {
		if strings.Contains(strings.ToLower(mod.Name), q) {
			m.Modules = append(m.Modules, mod)
		}
	}
}

func (m BrowseModel) View() string {
	if m.Detail != nil {
		return m.detailView()
	}

	var b strings.Builder

	b.WriteString(StyleTitle.Render("Modules"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ open  / filter  q quit"))
	b.WriteString("\n")
	if m.Filtering || m.Filter != "" {
		b.WriteString(listFilterStyle.Render("/" + m.Filter))
		if m.Filtering {
			b.WriteString(listFilterStyle.Render("▏"))
		}
	}
	b.WriteString("\n\n")

	end := m.Offset + m.Height
	if end > len(m.Modules) {
		end = len(m.Modules)
	}

	rows := [][]string{}
	for i := m.Offset; i < end; i++ {
		mod := m.Modules[i]
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		super := mod.Superclass
		if super == "" {
			super = "—"
		}
		rows = append(rows, []string{
			cursor,
			mod.Name,
			mod.Kind.String(),
			super,
			strconv.Itoa(len(mod.Methods)),
			strconv.Itoa(len(mod.Locations)),
		})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "Module", "Kind", "Superclass", "Methods", "Files").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			base := lipgloss.NewStyle()
			if col >= 2 {
				base = base.Foreground(colorDim)
			}
			if m.Offset+row == m.Cursor {
				if col < 2 {
					return base.Foreground(colorGreen).Bold(true)
				}
				return base.Foreground(colorGray).Bold(true)
			}
			return base
		})

	b.WriteString(t.Render())
	b.WriteString("\n\n")
	pos := 0
	if len(m.Modules) > 0 {
		pos = m.Cursor + 1
	}
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", pos, len(m.Modules))))

	return b.String()
}

func (m BrowseModel) detailView() string {
	var b strings.Builder
	d := m.Detail

	title := fmt.Sprintf("%s %s", d.Kind, d.Module)
	if d.Superclass != "" {
		title += " < " + d.Superclass
	}
	b.WriteString(StyleTitle.Render(title))
	b.WriteString("\n")
	scope := "instance methods"
	if m.Singleton {
		scope = "singleton methods"
	}
	b.WriteString(listDimStyle.Render("↑/↓ scroll  s " + scope + "  esc back  q quit"))
	b.WriteString("\n\n")
	b.WriteString(StyleDim.Render("ancestors: ") + StyleValue.Render(strings.Join(d.Ancestors, " > ")))
	b.WriteString("\n\n")

	if m.Err != nil {
		b.WriteString(styleIconError.Render(m.Err.Error()))
		return b.String()
	}
	if len(d.Methods) == 0 {
		b.WriteString(listDimStyle.Render("  no " + scope))
		return b.String()
	}
	end := m.DetailOffset + m.Height
	if end > len(d.Methods) {
		end = len(d.Methods)
	}
	b.WriteString(methodTable(d.Methods[m.DetailOffset:end]))
	b.WriteString("\n\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  %s [%d-%d/%d]", scope, m.DetailOffset+1, end, len(d.Methods))))

	return b.String()
}
