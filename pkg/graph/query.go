package graph

import "slices"

// TransitiveDeps returns the dependency closure of module, excluding module
// itself, in breadth-first discovery order. Test edges are followed only
// when includeTest is set.
func (g *Graph) TransitiveDeps(module ID, includeTest bool) []ID {
	if _, ok := g.modules[module]; !ok {
		return nil
	}
	seen := map[ID]bool{module: true}
	queue := []ID{module}
	var out []ID
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, d := range g.modules[cur].deps {
			if d.Test && !includeTest {
				continue
			}
			if seen[d.Module] {
				continue
			}
			seen[d.Module] = true
			out = append(out, d.Module)
			queue = append(queue, d.Module)
		}
	}
	return out
}

// ProductionDeps returns the direct production dependencies of module.
func (g *Graph) ProductionDeps(module ID) []ID {
	n, ok := g.modules[module]
	if !ok {
		return nil
	}
	var out []ID
	for _, d := range n.deps {
		if !d.Test {
			out = append(out, d.Module)
		}
	}
	return out
}

// ModuleSetClosure returns set and every module set it includes, directly or
// transitively. Include cycles are tolerated; each set appears once.
func (g *Graph) ModuleSetClosure(set ID) []ID {
	if _, ok := g.sets[set]; !ok {
		return nil
	}
	seen := map[ID]bool{}
	var out []ID
	var walk func(ID)
	walk = func(id ID) {
		if seen[id] {
			return
		}
		seen[id] = true
		out = append(out, id)
		for _, inc := range g.sets[id].includes {
			walk(inc)
		}
	}
	walk(set)
	return out
}

// ModuleSetModules returns the recursive membership of a module set. A
// module reachable through several nested sets is reported once per
// declaring set.
func (g *Graph) ModuleSetModules(set ID) []Contribution {
	var out []Contribution
	for _, s := range g.ModuleSetClosure(set) {
		for _, e := range g.sets[s].content {
			out = append(out, Contribution{Module: e.Module, Mode: e.Mode, Via: s})
		}
	}
	return out
}

// ModuleSetContains reports whether module is a recursive member of set.
func (g *Graph) ModuleSetContains(set, module ID) bool {
	for _, s := range g.ModuleSetClosure(set) {
		if slices.ContainsFunc(g.sets[s].content, func(e ContentEntry) bool { return e.Module == module }) {
			return true
		}
	}
	return false
}

// ModuleSetCycles returns every module set include cycle, each as the list
// of sets along the cycle starting from its lowest-named member.
func (g *Graph) ModuleSetCycles() [][]ID {
	const (
		white = iota
		gray
		black
	)
	color := make(map[ID]int, len(g.sets))
	var stack []ID
	var cycles [][]ID
	seen := map[string]bool{}

	var visit func(ID)
	visit = func(id ID) {
		color[id] = gray
		stack = append(stack, id)
		for _, next := range g.sets[id].includes {
			switch color[next] {
			case white:
				visit(next)
			case gray:
				i := slices.Index(stack, next)
				cycle := g.rotateByName(slices.Clone(stack[i:]))
				key := ""
				for _, c := range cycle {
					key += g.Name(c) + "\x00"
				}
				if !seen[key] {
					seen[key] = true
					cycles = append(cycles, cycle)
				}
			}
		}
		stack = stack[:len(stack)-1]
		color[id] = black
	}
	for _, id := range g.setOrder {
		if color[id] == white {
			visit(id)
		}
	}
	return cycles
}

func (g *Graph) rotateByName(cycle []ID) []ID {
	low := 0
	for i, id := range cycle {
		if g.Name(id) < g.Name(cycle[low]) {
			low = i
		}
	}
	return append(cycle[low:], cycle[:low]...)
}

// ProductModules returns the module closure of a product: its direct
// content followed by the recursive membership of every included module
// set. Each included set is visited once even when reachable along several
// paths, so repeated modules in the result are genuine duplicates declared
// by different owners.
func (g *Graph) ProductModules(product ID) []Contribution {
	n, ok := g.products[product]
	if !ok {
		return nil
	}
	var out []Contribution
	for _, e := range n.content {
		out = append(out, Contribution{Module: e.Module, Mode: e.Mode, Via: NoID})
	}
	visited := map[ID]bool{}
	for _, root := range n.sets {
		for _, s := range g.ModuleSetClosure(root) {
			if visited[s] {
				continue
			}
			visited[s] = true
			for _, e := range g.sets[s].content {
				out = append(out, Contribution{Module: e.Module, Mode: e.Mode, Via: s})
			}
		}
	}
	return out
}

// ProductAvailable returns every module a product makes available at
// runtime: its module closure plus the production content of its bundled
// production plugins. With includeTest, test bundles and test content are
// counted as well.
func (g *Graph) ProductAvailable(product ID, includeTest bool) map[ID]bool {
	n, ok := g.products[product]
	if !ok {
		return nil
	}
	avail := map[ID]bool{}
	for _, c := range g.ProductModules(product) {
		avail[c.Module] = true
	}
	for _, b := range n.plugins {
		if b.Test && !includeTest {
			continue
		}
		for _, e := range g.plugins[b.Plugin].content {
			if e.Test && !includeTest {
				continue
			}
			avail[e.Module] = true
		}
	}
	return avail
}

// OwningPlugins returns the plugins declaring module as content.
func (g *Graph) OwningPlugins(module ID) []Plugin {
	n, ok := g.modules[module]
	if !ok {
		return nil
	}
	var out []Plugin
	for _, s := range n.sources {
		if s.Kind == KindPlugin && !slices.ContainsFunc(out, func(p Plugin) bool { return p.ID == s.ID }) {
			out = append(out, g.plugins[s.ID].Plugin)
		}
	}
	return out
}
