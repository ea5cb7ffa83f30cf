package validate

import (
	"context"
	"slices"

	"github.com/matzehuels/modgraph/pkg/graph"
	"github.com/matzehuels/modgraph/pkg/pipeline"
	"github.com/matzehuels/modgraph/pkg/violation"
)

// checkPluginDependencies reports required plugin dependencies that a
// product bundling the dependent plugin does not bundle. Test bundles may
// be satisfied by test plugins; production bundles only by production ones.
func checkPluginDependencies(ctx context.Context, c *pipeline.RuleContext) error {
	g := c.Graph()
	return pipeline.ForEach(ctx, c, slices.Collect(g.Plugins()), func(_ context.Context, p graph.Plugin) error {
		bundles := g.PluginProducts(p.ID)
		for _, d := range g.PluginDeps(p.ID) {
			if d.Optional {
				continue
			}
			dep, _ := g.Plugin(d.Plugin)
			var lacking []string
			for _, b := range bundles {
				if !bundled(g, b.Product, dep.ID, b.Test || p.Test) {
					lacking = append(lacking, g.Name(b.Product))
				}
			}
			if len(lacking) == 0 || c.Suppressed(pluginOwner(p), dep.Name) {
				continue
			}
			slices.Sort(lacking)
			c.Report(violation.Violation{Context: p.Name, Payload: violation.PluginDependency{
				Plugin:     p.Name,
				Dependency: dep.Name,
				Products:   lacking,
			}})
		}
		return nil
	})
}

// bundled reports whether product bundles plugin, counting test bundles
// only when includeTest is set.
func bundled(g *graph.Graph, product, plugin graph.ID, includeTest bool) bool {
	return slices.ContainsFunc(g.ProductPlugins(product), func(b graph.Bundle) bool {
		return b.Plugin == plugin && (includeTest || !b.Test)
	})
}

// checkSuppressionKeys reports suppression owners that name no module,
// plugin or product of the graph. It does nothing while the config is being
// regenerated, since stale owners are dropped then anyway.
func checkSuppressionKeys(_ context.Context, c *pipeline.RuleContext) error {
	if c.UpdatingSuppressions() {
		c.Logger().Debug("skipped while regenerating suppressions")
		return nil
	}
	g := c.Graph()
	cfg := c.Suppressions()
	for _, owner := range cfg.Owners() {
		if knownOwner(g, owner) {
			continue
		}
		c.Report(violation.Violation{Context: owner, Payload: violation.InvalidSuppression{Owner: owner, Keys: cfg[owner]}})
	}
	return nil
}

func knownOwner(g *graph.Graph, owner string) bool {
	if _, ok := g.ModuleByName(owner); ok {
		return true
	}
	if _, ok := g.PluginByName(owner); ok {
		return true
	}
	if _, ok := g.ProductByName(owner); ok {
		return true
	}
	if _, ok := g.ModuleSetByName(owner); ok {
		return true
	}
	return len(g.PluginsByIdentifier(owner)) > 0
}
