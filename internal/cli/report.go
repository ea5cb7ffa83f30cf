package cli

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/modgraph/pkg/pipeline"
	"github.com/matzehuels/modgraph/pkg/violation"
)

// reportOptions controls the human-readable report.
type reportOptions struct {
	// Patches prints the proposed diffs below each violation.
	Patches bool
}

// printReport renders a check report for the terminal.
func printReport(w io.Writer, rep *pipeline.Report, opts reportOptions) {
	status, statusStyle := iconFresh, styleComputed
	if rep.Cached {
		status, statusStyle = iconCached, styleCached
	}
	fmt.Fprintln(w, StyleTitle.Render("modgraph check")+"  "+
		StyleDim.Render(shortHash(rep.Fingerprint)+" · ")+statusStyle.Render(status))
	printKeyValue(w, "Run", rep.RunID)
	printKeyValue(w, "Rules", strconv.Itoa(rep.Stats.Rules))
	printKeyValue(w, "Duration", rep.Stats.Duration.Round(time.Millisecond).String())
	fmt.Fprintln(w)

	for _, v := range rep.Violations {
		printViolation(w, v, opts)
	}
	for _, f := range rep.Failures {
		if f.Skipped {
			printWarning(w, "rule %s skipped: %s", f.Rule, f.Err)
		} else {
			printError(w, "rule %s failed (%s): %s", f.Rule, f.Code, f.Err)
		}
	}
	for _, owner := range rep.Unused.Owners() {
		printWarning(w, "unused suppression %s: %s", owner, strings.Join(rep.Unused[owner], ", "))
	}
	if rep.Fixed != nil && len(rep.Fixed.Changed) > 0 {
		printSuccess(w, "applied %d fixes to %d files", rep.Fixed.Applied, len(rep.Fixed.Changed))
		for _, path := range rep.Fixed.Changed {
			printFile(w, path)
		}
	}

	if len(rep.Violations) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, ruleTable(rep.Violations))
	}
	fmt.Fprintln(w)
	if rep.HasErrors() {
		printError(w, "%s", rep.Summary())
	} else {
		printSuccess(w, "%s", rep.Summary())
	}
}

func printViolation(w io.Writer, v violation.Violation, opts reportOptions) {
	line := StyleHighlight.Render("["+v.Rule+"]") + " " + StyleValue.Render(v.Context) + ": " + v.Payload.Summary()
	if v.IsError() {
		fmt.Fprintln(w, styleIconError.Render(iconError)+" "+line)
	} else {
		fmt.Fprintln(w, styleIconWarning.Render(iconWarning)+" "+line)
	}
	if !opts.Patches {
		return
	}
	for _, p := range v.Patches {
		printDetail(w, "%s", p.Title)
		for _, l := range strings.Split(strings.TrimRight(p.Diff, "\n"), "\n") {
			fmt.Fprintln(w, "    "+colorDiffLine(l))
		}
	}
}

// colorDiffLine styles one unified diff line by its prefix.
func colorDiffLine(l string) string {
	switch {
	case strings.HasPrefix(l, "+++"), strings.HasPrefix(l, "---"):
		return StyleDim.Render(l)
	case strings.HasPrefix(l, "@@"):
		return styleDiffHunk.Render(l)
	case strings.HasPrefix(l, "+"):
		return styleDiffAdd.Render(l)
	case strings.HasPrefix(l, "-"):
		return styleDiffDel.Render(l)
	}
	return l
}

// ruleTable tabulates error and warning counts per rule.
func ruleTable(vs []violation.Violation) string {
	type counts struct{ errors, warnings int }
	byRule := map[string]*counts{}
	for _, v := range vs {
		c, ok := byRule[v.Rule]
		if !ok {
			c = &counts{}
			byRule[v.Rule] = c
		}
		if v.IsError() {
			c.errors++
		} else {
			c.warnings++
		}
	}
	var rows [][]string
	for _, rule := range slices.Sorted(maps.Keys(byRule)) {
		c := byRule[rule]
		rows = append(rows, []string{rule, strconv.Itoa(c.errors), strconv.Itoa(c.warnings)})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Rule", "Errors", "Warnings").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			base := lipgloss.NewStyle().Padding(0, 1)
			if col == 0 || row >= len(rows) {
				return base
			}
			if rows[row][col] == "0" {
				return base.Foreground(colorDim)
			}
			if col == 1 {
				return base.Foreground(colorRed)
			}
			return base.Foreground(colorYellow)
		})
	return t.Render()
}

func shortHash(s string) string {
	if len(s) > 12 {
		return s[:12]
	}
	return s
}
