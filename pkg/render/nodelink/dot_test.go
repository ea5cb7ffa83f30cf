package nodelink

import (
	"context"
	"strings"
	"testing"

	"github.com/matzehuels/modgraph/pkg/graph"
)

func sampleGraph(t *testing.T) *graph.Graph {
	t.Helper()
	b := graph.NewBuilder()
	core := b.AddModule(graph.Module{Name: "core", Critical: true})
	util := b.AddModule(graph.Module{Name: "util"})
	extra := b.AddModule(graph.Module{Name: "extra"})
	b.AddModuleDep(core, util, false)
	b.AddModuleDep(core, extra, true)

	plugin := b.AddPlugin(graph.Plugin{Name: "core"})
	tests := b.AddPlugin(graph.Plugin{Name: "core-tests", Test: true})
	other := b.AddPlugin(graph.Plugin{Name: "other"})
	b.AddContent(plugin, graph.ContentEntry{Module: core, Mode: graph.LoadingRequired})
	b.AddContent(tests, graph.ContentEntry{Module: extra, AutoAdded: true})
	b.AddContent(other, graph.ContentEntry{Module: extra})
	b.AddPluginDep(tests, plugin, false)

	set := b.AddModuleSet(graph.ModuleSet{Name: "base"})
	b.AddContent(set, graph.ContentEntry{Module: util})

	ide := b.AddProduct(graph.Product{Name: "IDE"})
	b.Bundle(ide, plugin, false)
	b.Bundle(ide, tests, true)
	b.Include(ide, set)
	lite := b.AddProduct(graph.Product{Name: "Lite"})
	b.Bundle(lite, other, false)

	g, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return g
}

func TestToDOT(t *testing.T) {
	dot := ToDOT(sampleGraph(t), Options{})

	for _, want := range []string{
		`"product:IDE" [label="IDE", shape=doubleoctagon`,
		`"plugin:core-tests" [label="core-tests", shape=component, fillcolor="#fef3c7", style="filled,dashed"]`,
		`"module:core" [label="core", shape=box, style="rounded,filled", fillcolor=white, peripheries=2]`,
		`"product:IDE" -> "plugin:core";`,
		`"product:IDE" -> "plugin:core-tests" [style=dashed];`,
		`"product:IDE" -> "module-set:base";`,
		`"plugin:core" -> "module:core" [label="required"];`,
		`"plugin:core-tests" -> "module:extra" [style=dashed];`,
		`"plugin:core-tests" -> "plugin:core" [arrowhead=empty];`,
		`"module-set:base" -> "module:util";`,
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("ToDOT missing %q\n%s", want, dot)
		}
	}
	if strings.Contains(dot, `"module:core" -> "module:util"`) {
		t.Error("ToDOT drew module dependencies without Options.Dependencies")
	}
}

func TestToDOTDependencies(t *testing.T) {
	dot := ToDOT(sampleGraph(t), Options{Dependencies: true})
	for _, want := range []string{
		`"module:core" -> "module:util" [color="#9ca3af"];`,
		`"module:core" -> "module:extra" [style=dotted, color="#9ca3af"];`,
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("ToDOT missing %q\n%s", want, dot)
		}
	}
}

func TestToDOTProduct(t *testing.T) {
	g := sampleGraph(t)
	dot := ToDOT(g, Options{Product: "Lite"})
	if !strings.Contains(dot, `"product:Lite" -> "plugin:other";`) {
		t.Errorf("ToDOT(Lite) missing bundle edge\n%s", dot)
	}
	for _, absent := range []string{`"product:IDE"`, `"plugin:core"`, `"module:util"`} {
		if strings.Contains(dot, absent) {
			t.Errorf("ToDOT(Lite) contains %s", absent)
		}
	}

	if dot := ToDOT(g, Options{Product: "nope"}); strings.Contains(dot, "->") {
		t.Errorf("ToDOT(unknown product) drew edges\n%s", dot)
	}
}

func TestToDOTHighlight(t *testing.T) {
	dot := ToDOT(sampleGraph(t), Options{Highlight: []string{"util"}})
	if !strings.Contains(dot, `"module:util" [label="util", shape=box, style="rounded,filled", fillcolor=white, color="#dc2626"`) {
		t.Errorf("util not highlighted\n%s", dot)
	}
	if strings.Contains(dot, `"module:core" [label="core", shape=box, style="rounded,filled", fillcolor=white, peripheries=2, color=`) {
		t.Error("core highlighted")
	}
}

func TestNormalizeViewBox(t *testing.T) {
	in := `<svg width="100pt" height="50pt" viewBox="0.00 0.00 100.00 50.00" xmlns="http://www.w3.org/2000/svg"><g/></svg>`
	got := string(normalizeViewBox([]byte(in)))
	want := `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 100.00 50.00" width="100" height="50"><g/></svg>`
	if got != want {
		t.Errorf("normalizeViewBox() = %s, want %s", got, want)
	}

	plain := `<svg><g/></svg>`
	if got := string(normalizeViewBox([]byte(plain))); got != plain {
		t.Errorf("normalizeViewBox(no viewBox) = %s, want unchanged", got)
	}
}

func TestRenderSVG(t *testing.T) {
	svg, err := RenderSVG(context.Background(), ToDOT(sampleGraph(t), Options{}))
	if err != nil {
		t.Fatalf("RenderSVG: %v", err)
	}
	if !strings.Contains(string(svg), `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 `) {
		t.Errorf("RenderSVG output has no normalized svg header: %.200s", svg)
	}
}
