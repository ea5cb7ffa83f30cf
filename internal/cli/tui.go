package cli

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/modgraph/pkg/pipeline"
	"github.com/matzehuels/modgraph/pkg/violation"
)

// List styles
var (
	listDimStyle    = lipgloss.NewStyle().Foreground(colorDim)
	detailBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorDim).Padding(0, 1)
	detailHeadStyle = lipgloss.NewStyle().Bold(true).Foreground(colorWhite)
)

// =============================================================================
// BrowserModel - Interactive violation browser
// =============================================================================

// BrowserModel is the bubbletea model of the violation browser. Tab cycles
// a rule filter; enter toggles the detail pane of the selected violation.
type BrowserModel struct {
	Report *pipeline.Report
	// Rules holds the filter choices; "" shows every rule.
	Rules   []string
	RuleIdx int
	Items   []violation.Violation
	Cursor  int
	Offset  int
	Height  int
	Detail  bool
	Width   int
}

// NewBrowserModel creates a browser over the violations of rep.
func NewBrowserModel(rep *pipeline.Report) BrowserModel {
	rules := []string{""}
	for _, v := range rep.Violations {
		if !slices.Contains(rules, v.Rule) {
			rules = append(rules, v.Rule)
		}
	}
	slices.Sort(rules[1:])
	m := BrowserModel{Report: rep, Rules: rules, Height: 15, Width: 120}
	m.filter()
	return m
}

func (m *BrowserModel) filter() {
	rule := m.Rules[m.RuleIdx]
	m.Items = nil
	for _, v := range m.Report.Violations {
		if rule == "" || v.Rule == rule {
			m.Items = append(m.Items, v)
		}
	}
	m.Cursor, m.Offset = 0, 0
}

// Selected returns the violation under the cursor.
func (m BrowserModel) Selected() (violation.Violation, bool) {
	if m.Cursor < 0 || m.Cursor >= len(m.Items) {
		return violation.Violation{}, false
	}
	return m.Items[m.Cursor], true
}

func (m BrowserModel) Init() tea.Cmd {
	return nil
}

func (m BrowserModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "esc":
			if m.Detail {
				m.Detail = false
				return m, nil
			}
			return m, tea.Quit
		case "up", "k":
			m.move(-1)
		case "down", "j":
			m.move(1)
		case "g", "home":
			m.move(-len(m.Items))
		case "G", "end":
			m.move(len(m.Items))
		case "tab":
			m.RuleIdx = (m.RuleIdx + 1) % len(m.Rules)
			m.filter()
		case "shift+tab":
			m.RuleIdx = (m.RuleIdx + len(m.Rules) - 1) % len(m.Rules)
			m.filter()
		case "enter", " ":
			m.Detail = !m.Detail
		}
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height - 8
		if m.Height < 5 {
			m.Height = 5
		}
	}
	return m, nil
}

// move shifts the cursor by delta, clamped, and scrolls it into view.
func (m *BrowserModel) move(delta int) {
	if len(m.Items) == 0 {
		return
	}
	m.Cursor = min(max(m.Cursor+delta, 0), len(m.Items)-1)
	if m.Cursor < m.Offset {
		m.Offset = m.Cursor
	}
	if m.Cursor >= m.Offset+m.Height {
		m.Offset = m.Cursor - m.Height + 1
	}
}

func (m BrowserModel) View() string {
	var b strings.Builder

	filter := "all rules"
	if r := m.Rules[m.RuleIdx]; r != "" {
		filter = r
	}
	b.WriteString(StyleTitle.Render("Violations") + "  " + StyleHighlight.Render(filter))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  tab filter  ⏎ details  q quit"))
	b.WriteString("\n\n")

	if len(m.Items) == 0 {
		b.WriteString(StyleSuccess.Render(iconSuccess + " no violations"))
		b.WriteString("\n")
		return b.String()
	}

	end := min(m.Offset+m.Height, len(m.Items))
	summaryWidth := max(m.Width-70, 30)
	rows := [][]string{}
	for i := m.Offset; i < end; i++ {
		v := m.Items[i]
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		sev := iconError
		if !v.IsError() {
			sev = iconWarning
		}
		rows = append(rows, []string{cursor, sev, v.Rule, v.Context, truncate(v.Payload.Summary(), summaryWidth)})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "", "Rule", "Context", "Summary").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			idx := m.Offset + row
			if idx >= len(m.Items) {
				return lipgloss.NewStyle()
			}
			base := lipgloss.NewStyle()
			if col == 1 {
				if m.Items[idx].IsError() {
					base = base.Foreground(colorRed)
				} else {
					base = base.Foreground(colorYellow)
				}
			}
			if idx == m.Cursor {
				return base.Bold(true).Foreground(colorCyan)
			}
			if col == 2 {
				return base.Foreground(colorGray)
			}
			return base
		})

	b.WriteString(t.Render())
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.Cursor+1, len(m.Items))))
	b.WriteString("\n")

	if v, ok := m.Selected(); ok && m.Detail {
		b.WriteString(detailBoxStyle.Render(detailView(v)))
		b.WriteString("\n")
	}
	return b.String()
}

// detailView renders the payload and patches of one violation.
func detailView(v violation.Violation) string {
	var b strings.Builder
	b.WriteString(detailHeadStyle.Render(v.String()))
	b.WriteString("\n")
	b.WriteString(StyleDim.Render(fmt.Sprintf("kind %s · severity %s", v.Kind, v.Severity)))
	b.WriteString("\n\n")
	if data, err := json.MarshalIndent(v.Payload, "", "  "); err == nil {
		b.Write(data)
		b.WriteString("\n")
	}
	for _, p := range v.Patches {
		b.WriteString("\n")
		b.WriteString(StyleHighlight.Render(p.Title))
		b.WriteString("\n")
		for _, l := range strings.Split(strings.TrimRight(p.Diff, "\n"), "\n") {
			b.WriteString(colorDiffLine(l))
			b.WriteString("\n")
		}
	}
	for _, f := range v.Fixes {
		b.WriteString(StyleSuccess.Render("fix: ") + f.Title + StyleDim.Render(" ("+f.Path+")"))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
