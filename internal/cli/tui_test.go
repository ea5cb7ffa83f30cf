package cli

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/matzehuels/modgraph/pkg/pipeline"
	"github.com/matzehuels/modgraph/pkg/violation"
)

func browserReport() *pipeline.Report {
	backing := func(module string) violation.Violation {
		return violation.New("content-module-backing", module, violation.Backing{
			BackingKind: violation.KindNoBackingTarget, Module: module, Expected: module,
		})
	}
	dup := violation.New("duplicate-plugin-ids", "com.example.core", violation.Duplicate{
		DuplicateKind: violation.KindDuplicatePluginID, Key: "com.example.core",
	})
	return &pipeline.Report{Violations: []violation.Violation{backing("a"), backing("b"), backing("c"), dup}}
}

func press(m BrowserModel, key string) BrowserModel {
	var msg tea.KeyMsg
	switch key {
	case "tab":
		msg = tea.KeyMsg{Type: tea.KeyTab}
	case "shift+tab":
		msg = tea.KeyMsg{Type: tea.KeyShiftTab}
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		msg = tea.KeyMsg{Type: tea.KeyEsc}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
	}
	next, _ := m.Update(msg)
	return next.(BrowserModel)
}

func TestBrowserNavigation(t *testing.T) {
	m := NewBrowserModel(browserReport())
	if len(m.Items) != 4 {
		t.Fatalf("items = %d, want 4", len(m.Items))
	}

	m = press(m, "j")
	m = press(m, "j")
	if v, _ := m.Selected(); v.Context != "c" {
		t.Errorf("selected %q after two downs, want c", v.Context)
	}
	m = press(m, "G")
	if m.Cursor != 3 {
		t.Errorf("cursor after G = %d, want 3", m.Cursor)
	}
	m = press(m, "j")
	if m.Cursor != 3 {
		t.Errorf("cursor moved past the end: %d", m.Cursor)
	}
	m = press(m, "g")
	if m.Cursor != 0 {
		t.Errorf("cursor after g = %d, want 0", m.Cursor)
	}
	m = press(m, "k")
	if m.Cursor != 0 {
		t.Errorf("cursor moved before the start: %d", m.Cursor)
	}
}

func TestBrowserFilter(t *testing.T) {
	m := NewBrowserModel(browserReport())
	want := []string{"", "content-module-backing", "duplicate-plugin-ids"}
	if strings.Join(m.Rules, ",") != strings.Join(want, ",") {
		t.Fatalf("rules = %q, want %q", m.Rules, want)
	}

	m = press(m, "tab")
	if len(m.Items) != 3 {
		t.Errorf("backing filter shows %d items, want 3", len(m.Items))
	}
	m = press(m, "tab")
	if len(m.Items) != 1 || m.Items[0].Rule != "duplicate-plugin-ids" {
		t.Errorf("duplicate filter shows %v", m.Items)
	}
	m = press(m, "tab")
	if len(m.Items) != 4 {
		t.Errorf("filter did not wrap to all rules: %d items", len(m.Items))
	}
	m = press(m, "shift+tab")
	if m.Rules[m.RuleIdx] != "duplicate-plugin-ids" {
		t.Errorf("shift+tab selected %q", m.Rules[m.RuleIdx])
	}
}

func TestBrowserFilterKeepsOtherModels(t *testing.T) {
	m := NewBrowserModel(browserReport())
	press(press(m, "tab"), "tab")
	if len(m.Items) != 4 || m.Items[3].Rule != "duplicate-plugin-ids" {
		t.Errorf("filtering a copy changed the original items: %v", m.Items)
	}
}

func TestBrowserDetail(t *testing.T) {
	m := NewBrowserModel(browserReport())
	m = press(m, "enter")
	if !m.Detail {
		t.Fatal("enter did not open the detail pane")
	}
	if view := m.View(); !strings.Contains(view, "no backing target") {
		t.Errorf("detail view missing summary:\n%s", view)
	}

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	m = next.(BrowserModel)
	if m.Detail || cmd != nil {
		t.Errorf("esc should close the detail pane without quitting")
	}
	if _, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc}); cmd == nil {
		t.Error("esc without details should quit")
	}
}

func TestBrowserEmpty(t *testing.T) {
	m := NewBrowserModel(&pipeline.Report{})
	m = press(m, "j")
	if _, ok := m.Selected(); ok {
		t.Error("empty browser has a selection")
	}
	if !strings.Contains(m.View(), "no violations") {
		t.Error("empty view missing message")
	}
}

func TestBrowserResize(t *testing.T) {
	m := NewBrowserModel(browserReport())
	next, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 10})
	m = next.(BrowserModel)
	if m.Width != 80 || m.Height != 5 {
		t.Errorf("size = %dx%d, want 80x5", m.Width, m.Height)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate = %q", got)
	}
	if got := truncate("abcdefghij", 5); got != "abcd…" {
		t.Errorf("truncate = %q, want abcd…", got)
	}
}
