package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/modgraph/pkg/graph"
)

// Options configures node-link diagram rendering.
type Options struct {
	// Product limits the diagram to the plugins, module sets and modules of
	// one product. Empty renders the whole graph.
	Product string

	// Dependencies adds module-to-module dependency edges.
	Dependencies bool

	// Highlight names modules to draw in the error color.
	Highlight []string
}

var kindAttrs = map[graph.Kind]string{
	graph.KindProduct:   `shape=doubleoctagon, fillcolor="#dbeafe"`,
	graph.KindPlugin:    `shape=component, fillcolor="#fef3c7"`,
	graph.KindModuleSet: `shape=folder, fillcolor="#e5e7eb"`,
	graph.KindModule:    `shape=box, style="rounded,filled", fillcolor=white`,
}

// ToDOT converts a composition graph to Graphviz DOT format. Nodes and edges
// are emitted in name order so the output is stable.
func ToDOT(g *graph.Graph, opts Options) string {
	sel := selectNodes(g, opts.Product)
	hl := map[string]bool{}
	for _, name := range opts.Highlight {
		hl[name] = true
	}

	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [style=filled, fontname=\"Helvetica\", fontsize=12, margin=\"0.15,0.05\"];\n")
	buf.WriteString("  edge [fontname=\"Helvetica\", fontsize=9, color=\"#6b7280\"];\n")
	buf.WriteString("\n")

	node := func(id graph.ID, extra ...string) {
		k, _ := g.Kind(id)
		attrs := append([]string{fmt.Sprintf("label=%q", g.Name(id)), kindAttrs[k]}, extra...)
		if k == graph.KindModule && hl[g.Name(id)] {
			attrs = append(attrs, `color="#dc2626"`, `fontcolor="#dc2626"`, "penwidth=2")
		}
		fmt.Fprintf(&buf, "  %s [%s];\n", nodeID(g, id), strings.Join(attrs, ", "))
	}
	for p := range g.Products() {
		if sel.has(p.ID) {
			node(p.ID)
		}
	}
	for p := range g.Plugins() {
		if !sel.has(p.ID) {
			continue
		}
		if p.Test {
			node(p.ID, `style="filled,dashed"`)
		} else {
			node(p.ID)
		}
	}
	for s := range g.ModuleSets() {
		if sel.has(s.ID) {
			node(s.ID)
		}
	}
	for m := range g.Modules() {
		if !sel.has(m.ID) {
			continue
		}
		if m.Critical {
			node(m.ID, "peripheries=2")
		} else {
			node(m.ID)
		}
	}

	buf.WriteString("\n")
	edge := func(from, to graph.ID, attrs ...string) {
		if !sel.has(from) || !sel.has(to) {
			return
		}
		if len(attrs) == 0 {
			fmt.Fprintf(&buf, "  %s -> %s;\n", nodeID(g, from), nodeID(g, to))
			return
		}
		fmt.Fprintf(&buf, "  %s -> %s [%s];\n", nodeID(g, from), nodeID(g, to), strings.Join(attrs, ", "))
	}
	content := func(owner graph.ID, entries []graph.ContentEntry) {
		for _, e := range entries {
			var attrs []string
			if e.Mode != graph.LoadingUnset {
				attrs = append(attrs, fmt.Sprintf("label=%q", e.Mode.String()))
			}
			if e.Test || e.AutoAdded {
				attrs = append(attrs, "style=dashed")
			}
			edge(owner, e.Module, attrs...)
		}
	}
	for p := range g.Products() {
		for _, b := range g.ProductPlugins(p.ID) {
			if b.Test {
				edge(p.ID, b.Plugin, "style=dashed")
			} else {
				edge(p.ID, b.Plugin)
			}
		}
		for _, s := range g.ProductModuleSets(p.ID) {
			edge(p.ID, s)
		}
		content(p.ID, g.ProductContent(p.ID))
	}
	for p := range g.Plugins() {
		content(p.ID, g.PluginContent(p.ID))
		for _, d := range g.PluginDeps(p.ID) {
			if d.Optional {
				edge(p.ID, d.Plugin, "style=dotted", "arrowhead=empty")
			} else {
				edge(p.ID, d.Plugin, "arrowhead=empty")
			}
		}
	}
	for s := range g.ModuleSets() {
		for _, inc := range g.ModuleSetIncludes(s.ID) {
			edge(s.ID, inc)
		}
		content(s.ID, g.ModuleSetContent(s.ID))
	}
	if opts.Dependencies {
		for m := range g.Modules() {
			for _, d := range g.ModuleDeps(m.ID) {
				if d.Test {
					edge(m.ID, d.Module, "style=dotted", `color="#9ca3af"`)
				} else {
					edge(m.ID, d.Module, `color="#9ca3af"`)
				}
			}
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

// nodeID prefixes names with their kind since a plugin and a module may
// share a name.
func nodeID(g *graph.Graph, id graph.ID) string {
	k, _ := g.Kind(id)
	return strconv.Quote(k.String() + ":" + g.Name(id))
}

// selection is the set of nodes to draw; nil means all of them.
type selection map[graph.ID]bool

func (s selection) has(id graph.ID) bool {
	return s == nil || s[id]
}

func selectNodes(g *graph.Graph, product string) selection {
	if product == "" {
		return nil
	}
	p, ok := g.ProductByName(product)
	if !ok {
		return selection{}
	}
	sel := selection{p.ID: true}
	for _, b := range g.ProductPlugins(p.ID) {
		sel[b.Plugin] = true
		for _, e := range g.PluginContent(b.Plugin) {
			sel[e.Module] = true
		}
	}
	sets := slices.Clone(g.ProductModuleSets(p.ID))
	for len(sets) > 0 {
		s := sets[0]
		sets = sets[1:]
		if sel[s] {
			continue
		}
		sel[s] = true
		sets = append(sets, g.ModuleSetIncludes(s)...)
	}
	for _, c := range g.ProductModules(p.ID) {
		sel[c.Module] = true
	}
	return sel
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces Graphviz's point-sized svg header with one that
// scales to its container.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	header := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(header))
}
