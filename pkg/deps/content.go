package deps

import "github.com/matzehuels/modgraph/pkg/graph"

// Edge is a dependency of one content module on another.
type Edge struct {
	From graph.ID
	To   graph.ID
	// Test is set when the edge only exists in test scope, either as a
	// descriptor test dependency or as a test-scoped build dependency.
	Test bool
}

// PluginContentDeps collects the dependencies of every content module of a
// plugin. Production plugins contribute the production edges of their
// production content. Test plugins contribute all of their content, and for
// each module also its test edges and the test-scoped build dependencies of
// its backing targets that resolve to modules.
//
// Edges are deduplicated; a production edge wins over a test edge between
// the same pair.
func PluginContentDeps(g *graph.Graph, plugin graph.ID, model BuildModel) []Edge {
	p, ok := g.Plugin(plugin)
	if !ok {
		return nil
	}
	var out []Edge
	index := map[[2]graph.ID]int{}
	add := func(from, to graph.ID, test bool) {
		if from == to {
			return
		}
		key := [2]graph.ID{from, to}
		if i, ok := index[key]; ok {
			out[i].Test = out[i].Test && test
			return
		}
		index[key] = len(out)
		out = append(out, Edge{From: from, To: to, Test: test})
	}

	for _, e := range g.PluginContent(plugin) {
		if e.Test && !p.Test {
			continue
		}
		for _, d := range g.ModuleDeps(e.Module) {
			if d.Test && !p.Test {
				continue
			}
			add(e.Module, d.Module, d.Test)
		}
		if !p.Test || model == nil {
			continue
		}
		for _, t := range g.BackingTargets(e.Module) {
			for _, bd := range model.Dependencies(t.Name) {
				if bd.Scope != graph.ScopeTest || bd.Library {
					continue
				}
				name, ok := model.ModuleOf(bd.Target)
				if !ok {
					continue
				}
				if dep, ok := g.ModuleByName(name); ok {
					add(e.Module, dep.ID, true)
				}
			}
		}
	}
	return out
}
