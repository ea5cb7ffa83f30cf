package validate

import (
	"context"
	"maps"
	"slices"

	"github.com/matzehuels/modgraph/pkg/graph"
	"github.com/matzehuels/modgraph/pkg/pipeline"
	"github.com/matzehuels/modgraph/pkg/violation"
)

// checkSelfContained reports production dependencies of self-contained
// module set members that resolve outside the set. Dependencies of members
// are members themselves or escapes, so checking direct edges of every
// member covers the transitive closure.
func checkSelfContained(ctx context.Context, c *pipeline.RuleContext) error {
	g := c.Graph()
	var sets []graph.ModuleSet
	for s := range g.ModuleSets() {
		if s.SelfContained {
			sets = append(sets, s)
		}
	}
	return pipeline.ForEach(ctx, c, sets, func(_ context.Context, s graph.ModuleSet) error {
		members := map[graph.ID]bool{}
		var order []graph.ID
		for _, ct := range g.ModuleSetModules(s.ID) {
			if !members[ct.Module] {
				members[ct.Module] = true
				order = append(order, ct.Module)
			}
		}
		escapes := map[string][]string{}
		for _, m := range order {
			for _, d := range g.ProductionDeps(m) {
				if members[d] || g.ModuleAllowsMissing(m, d) {
					continue
				}
				member, dep := g.Name(m), g.Name(d)
				if c.Suppressed(member, dep) || c.Suppressed(s.Name, dep) {
					continue
				}
				escapes[dep] = appendUnique(escapes[dep], member)
			}
		}
		if len(escapes) == 0 {
			return nil
		}
		for _, reqs := range escapes {
			slices.Sort(reqs)
		}
		v := violation.Violation{Context: s.Name, Payload: violation.SelfContained{Escapes: escapes}}
		v.Patches = insertion(c, graph.KindModuleSet, s.Name, inBlock(s.Name),
			calls("module", slices.Sorted(maps.Keys(escapes))), "embed escaping dependencies in "+s.Name)
		c.Report(v)
		return nil
	})
}

// checkModuleSetCycles reports every include cycle once.
func checkModuleSetCycles(_ context.Context, c *pipeline.RuleContext) error {
	g := c.Graph()
	for _, cycle := range g.ModuleSetCycles() {
		names := g.Names(cycle)
		c.Report(violation.Violation{Context: names[0], Payload: violation.Cycle{Sets: names}})
	}
	return nil
}
