package validate

import (
	"cmp"
	"context"
	"slices"

	"github.com/matzehuels/modgraph/pkg/graph"
	"github.com/matzehuels/modgraph/pkg/pipeline"
	"github.com/matzehuels/modgraph/pkg/violation"
)

// claims collects, per key, the plugins of one product claiming it, in
// first-claim order.
type claims struct {
	order  []string
	owners map[string][]violation.Owner
}

func newClaims() *claims {
	return &claims{owners: map[string][]violation.Owner{}}
}

func (cl *claims) add(key string, o violation.Owner) {
	list, ok := cl.owners[key]
	if !ok {
		cl.order = append(cl.order, key)
	}
	if !slices.Contains(list, o) {
		cl.owners[key] = append(list, o)
	}
}

// sortOwners puts production owners first, then orders by plugin name.
func sortOwners(owners []violation.Owner) {
	slices.SortFunc(owners, func(a, b violation.Owner) int {
		if a.Test != b.Test {
			if a.Test {
				return 1
			}
			return -1
		}
		return cmp.Compare(a.Plugin, b.Plugin)
	})
}

// crossClaimed reports whether a production claim and a test claim come
// from two different plugins. One plugin declaring a module both ways is not
// a duplicate.
func crossClaimed(owners []violation.Owner) bool {
	for _, prod := range owners {
		if prod.Test {
			continue
		}
		for _, test := range owners {
			if test.Test && test.Plugin != prod.Plugin {
				return true
			}
		}
	}
	return false
}

// checkDuplicateContent reports, per product, content modules claimed by
// both a production and a test plugin. A claim counts as test when the
// plugin is a test plugin, is bundled as a test plugin, or declares the
// module as test content.
func checkDuplicateContent(ctx context.Context, c *pipeline.RuleContext) error {
	g := c.Graph()
	return pipeline.ForEach(ctx, c, slices.Collect(g.Products()), func(_ context.Context, p graph.Product) error {
		cl := newClaims()
		for _, b := range g.ProductPlugins(p.ID) {
			pl, _ := g.Plugin(b.Plugin)
			for _, e := range g.PluginContent(pl.ID) {
				cl.add(g.Name(e.Module), violation.Owner{Plugin: pl.Name, Test: b.Test || pl.Test || e.Test})
			}
		}
		for _, module := range cl.order {
			owners := cl.owners[module]
			if !crossClaimed(owners) || c.Suppressed(p.Name, module) {
				continue
			}
			sortOwners(owners)
			c.Report(violation.Violation{Context: p.Name, Payload: violation.Duplicate{
				DuplicateKind: violation.KindDuplicateContent,
				Key:           module,
				Owners:        owners,
			}})
		}
		return nil
	})
}

// checkDuplicatePluginIDs reports, per product, descriptor identifiers
// exposed by more than one bundled plugin.
func checkDuplicatePluginIDs(ctx context.Context, c *pipeline.RuleContext) error {
	g := c.Graph()
	return pipeline.ForEach(ctx, c, slices.Collect(g.Products()), func(_ context.Context, p graph.Product) error {
		cl := newClaims()
		for _, b := range g.ProductPlugins(p.ID) {
			pl, _ := g.Plugin(b.Plugin)
			if pl.PluginID == "" {
				continue
			}
			cl.add(pl.PluginID, violation.Owner{Plugin: pl.Name, Test: b.Test || pl.Test})
		}
		for _, id := range cl.order {
			owners := cl.owners[id]
			plugins := map[string]bool{}
			for _, o := range owners {
				plugins[o.Plugin] = true
			}
			if len(plugins) < 2 || c.Suppressed(p.Name, id) {
				continue
			}
			sortOwners(owners)
			c.Report(violation.Violation{Context: p.Name, Payload: violation.Duplicate{
				DuplicateKind: violation.KindDuplicatePluginID,
				Key:           id,
				Owners:        owners,
			}})
		}
		return nil
	})
}
