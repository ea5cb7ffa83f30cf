package deps

import (
	"cmp"
	"slices"

	"github.com/matzehuels/modgraph/pkg/graph"
)

// ImplicitDeps returns the modules that the build graph requires of module
// but its descriptor does not declare: the production-scope (compile and
// runtime) module dependencies of its backing targets, minus its declared
// production dependencies. The result is sorted by name.
//
// Build units that the model cannot classify as modules, or whose module is
// not in the graph, are ignored.
func ImplicitDeps(g *graph.Graph, module graph.ID, model BuildModel) []graph.ID {
	if _, ok := g.Module(module); !ok || model == nil {
		return nil
	}
	declared := map[graph.ID]bool{module: true}
	for _, d := range g.ProductionDeps(module) {
		declared[d] = true
	}
	var out []graph.ID
	for _, t := range g.BackingTargets(module) {
		for _, bd := range model.Dependencies(t.Name) {
			if !bd.Scope.IsProduction() || bd.Library {
				continue
			}
			name, ok := model.ModuleOf(bd.Target)
			if !ok {
				continue
			}
			dep, ok := g.ModuleByName(name)
			if !ok || declared[dep.ID] {
				continue
			}
			declared[dep.ID] = true
			out = append(out, dep.ID)
		}
	}
	slices.SortFunc(out, func(a, b graph.ID) int { return cmp.Compare(g.Name(a), g.Name(b)) })
	return out
}

// LibraryDeps returns the direct library dependencies of the targets backing
// module, in declaration order. Duplicates across targets are reported once.
func LibraryDeps(g *graph.Graph, module graph.ID, model BuildModel) []BuildDep {
	if model == nil {
		return nil
	}
	var out []BuildDep
	seen := map[string]bool{}
	for _, t := range g.BackingTargets(module) {
		for _, bd := range model.Dependencies(t.Name) {
			if bd.Library && !seen[bd.Target] {
				seen[bd.Target] = true
				out = append(out, bd)
			}
		}
	}
	return out
}
