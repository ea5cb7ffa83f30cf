package validate

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/matzehuels/modgraph/pkg/deps"
	"github.com/matzehuels/modgraph/pkg/graph"
	"github.com/matzehuels/modgraph/pkg/patch"
	"github.com/matzehuels/modgraph/pkg/pipeline"
	"github.com/matzehuels/modgraph/pkg/violation"
)

// collectPluginContentDeps publishes the content dependency edges of every
// plugin.
func collectPluginContentDeps(ctx context.Context, c *pipeline.RuleContext) error {
	g := c.Graph()
	var (
		mu  sync.Mutex
		out = map[graph.ID][]deps.Edge{}
	)
	err := pipeline.ForEach(ctx, c, slices.Collect(g.Plugins()), func(_ context.Context, p graph.Plugin) error {
		edges := deps.PluginContentDeps(g, p.ID, c.Model())
		mu.Lock()
		out[p.ID] = edges
		mu.Unlock()
		return nil
	})
	if perr := pipeline.Publish(c, PluginContentDeps, out); perr != nil {
		return perr
	}
	return err
}

// collectImplicitDeps publishes the undeclared build dependencies of every
// content module.
func collectImplicitDeps(ctx context.Context, c *pipeline.RuleContext) error {
	g := c.Graph()
	var (
		mu  sync.Mutex
		out = map[graph.ID][]graph.ID{}
	)
	err := pipeline.ForEach(ctx, c, contentModules(g), func(_ context.Context, m graph.Module) error {
		implicit := deps.ImplicitDeps(g, m.ID, c.Model())
		if len(implicit) == 0 {
			return nil
		}
		mu.Lock()
		out[m.ID] = implicit
		mu.Unlock()
		return nil
	})
	if perr := pipeline.Publish(c, ImplicitDeps, out); perr != nil {
		return perr
	}
	return err
}

// checkPluginContent verifies that the dependencies of plugin content
// modules resolve and that module descriptors declare what their build
// requires.
//
// A dependency of a module in a plugin's required chain must be available
// in every product bundling the plugin. Dependencies of optional modules,
// and of modules in plugins no product bundles, only need to exist as
// content somewhere. Test plugins declared through the build DSL also
// accept dependencies that are merely backed by a build target.
func checkPluginContent(ctx context.Context, c *pipeline.RuleContext) error {
	edges, err := pipeline.Input(c, PluginContentDeps)
	if err != nil {
		return err
	}
	implicit, err := pipeline.Input(c, ImplicitDeps)
	if err != nil {
		return err
	}
	g := c.Graph()
	avail := &availability{g: g, cache: map[availKey]map[graph.ID]bool{}}
	err = pipeline.ForEach(ctx, c, slices.Collect(g.Plugins()), func(_ context.Context, p graph.Plugin) error {
		if v, ok := unresolved(c, avail, p, edges[p.ID]); ok {
			c.Report(v)
		}
		return nil
	})
	reportImplicit(c, implicit)
	return err
}

func unresolved(c *pipeline.RuleContext, avail *availability, p graph.Plugin, edges []deps.Edge) (violation.Violation, bool) {
	g := c.Graph()
	bundles := g.PluginProducts(p.ID)
	var out []violation.UnresolvedDep
	for _, e := range edges {
		if g.ModuleAllowsMissing(e.From, e.To) {
			continue
		}
		entry, _ := g.PluginContentEntry(p.ID, e.From)
		required := entry.Mode.IsStrict()

		var lacking []string
		var ok bool
		switch {
		case p.Test && p.DSL:
			ok = g.HasContentSource(e.To) || len(g.BackingTargets(e.To)) > 0
		case required && len(bundles) > 0:
			for _, b := range bundles {
				if !avail.has(b.Product, b.Test || p.Test, e.To) {
					lacking = append(lacking, g.Name(b.Product))
				}
			}
			slices.Sort(lacking)
			ok = len(lacking) == 0
		default:
			ok = g.HasContentSource(e.To)
		}
		if ok {
			continue
		}
		from, to := g.Name(e.From), g.Name(e.To)
		if c.Suppressed(from, to) || c.Suppressed(pluginOwner(p), to) {
			continue
		}
		out = append(out, violation.UnresolvedDep{Module: from, Dependency: to, Required: required, Products: lacking})
	}
	if len(out) == 0 {
		return violation.Violation{}, false
	}
	v := violation.Violation{Context: p.Name, Payload: violation.Unresolved{Deps: out}}
	v.Patches = unresolvedPatches(c, p, out)
	return v, true
}

// unresolvedPatches proposes allow-missing declarations in DSL plugins and
// additional content entries in products lacking a required dependency.
func unresolvedPatches(c *pipeline.RuleContext, p graph.Plugin, unresolved []violation.UnresolvedDep) []patch.Patch {
	var out []patch.Patch
	if p.DSL {
		byModule := map[string][]string{}
		var order []string
		for _, u := range unresolved {
			if _, ok := byModule[u.Module]; !ok {
				order = append(order, u.Module)
			}
			byModule[u.Module] = appendUnique(byModule[u.Module], u.Dependency)
		}
		for _, m := range order {
			out = append(out, insertion(c, graph.KindPlugin, p.Name, inBlock(m),
				calls("allowMissingDependencies", byModule[m]), "allow missing dependencies of "+m)...)
		}
	}
	byProduct := map[string][]string{}
	var products []string
	for _, u := range unresolved {
		for _, prod := range u.Products {
			if _, ok := byProduct[prod]; !ok {
				products = append(products, prod)
			}
			byProduct[prod] = appendUnique(byProduct[prod], u.Dependency)
		}
	}
	slices.Sort(products)
	for _, prod := range products {
		out = append(out, insertion(c, graph.KindProduct, prod, inBlock(prod),
			calls("module", byProduct[prod]), "bundle dependencies of "+p.Name+" in "+prod)...)
	}
	return out
}

// reportImplicit reports undeclared build dependencies once per module.
// Dependencies on library wrapper modules are exempt: the build adds them
// when a module references the wrapped library.
func reportImplicit(c *pipeline.RuleContext, implicit map[graph.ID][]graph.ID) {
	g := c.Graph()
	prefix := c.Options().LibraryModulePrefix
	for _, id := range sortedByName(g, implicit) {
		name := g.Name(id)
		var undeclared []string
		for _, d := range implicit[id] {
			dep, _ := g.Module(d)
			if dep.Library != "" || strings.HasPrefix(dep.Name, prefix) {
				continue
			}
			if c.Suppressed(name, dep.Name) {
				continue
			}
			undeclared = append(undeclared, dep.Name)
		}
		if len(undeclared) == 0 {
			continue
		}
		v := violation.Violation{Context: name, Payload: violation.Implicit{Module: name, Deps: undeclared}}
		v.Patches = insertion(c, graph.KindModule, name, inTag("dependencies"), moduleElements(undeclared),
			"declare build dependencies of "+name)
		c.Report(v)
	}
}

type availKey struct {
	product graph.ID
	test    bool
}

// availability memoizes [graph.Graph.ProductAvailable] across the plugins
// checked concurrently.
type availability struct {
	g     *graph.Graph
	mu    sync.Mutex
	cache map[availKey]map[graph.ID]bool
}

func (a *availability) has(product graph.ID, test bool, module graph.ID) bool {
	key := availKey{product, test}
	a.mu.Lock()
	set, ok := a.cache[key]
	if !ok {
		set = a.g.ProductAvailable(product, test)
		a.cache[key] = set
	}
	a.mu.Unlock()
	return set[module]
}
