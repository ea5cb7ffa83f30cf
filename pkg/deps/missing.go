package deps

import (
	"maps"
	"slices"

	"github.com/matzehuels/modgraph/pkg/graph"
)

// Missing maps a missing module name to the sorted names of the modules
// that (transitively) require it.
type Missing map[string][]string

// Names returns the missing module names in sorted order.
func (m Missing) Names() []string {
	return slices.Sorted(maps.Keys(m))
}

func (m Missing) add(dep, requester string) {
	reqs := m[dep]
	i, found := slices.BinarySearch(reqs, requester)
	if !found {
		m[dep] = slices.Insert(reqs, i, requester)
	}
}

// CollectMissing walks the production dependency closure of every module in
// modules and reports each dependency the product cannot satisfy. A
// dependency D is satisfied when
//
//   - the product allow-lists D as missing,
//   - the product makes D available (closure or bundled plugin content), or
//   - D is non-critical and some plugin, product or module set declares it.
//
// An edge whose source module allows its target to be missing is neither
// reported nor followed. Missing dependencies are attributed to the module
// whose closure reached them.
func CollectMissing(g *graph.Graph, product graph.ID, modules []graph.ID) Missing {
	out := Missing{}
	avail := g.ProductAvailable(product, false)
	if avail == nil {
		return out
	}
	for _, root := range modules {
		requester := g.Name(root)
		seen := map[graph.ID]bool{root: true}
		queue := []graph.ID{root}
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			for _, dep := range g.ProductionDeps(cur) {
				if seen[dep] || g.ModuleAllowsMissing(cur, dep) || g.ProductAllowsMissing(product, dep) {
					continue
				}
				seen[dep] = true
				queue = append(queue, dep)
				if !satisfied(g, avail, dep) {
					out.add(g.Name(dep), requester)
				}
			}
		}
	}
	return out
}

func satisfied(g *graph.Graph, avail map[graph.ID]bool, dep graph.ID) bool {
	if avail[dep] {
		return true
	}
	m, _ := g.Module(dep)
	return !m.Critical && g.HasContentSource(dep)
}
