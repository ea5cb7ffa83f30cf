package validate

import (
	"context"
	"slices"
	"sync"

	"github.com/matzehuels/modgraph/pkg/deps"
	"github.com/matzehuels/modgraph/pkg/graph"
	"github.com/matzehuels/modgraph/pkg/pipeline"
	"github.com/matzehuels/modgraph/pkg/violation"
)

// collectProductModules computes the module closure of every product.
func collectProductModules(ctx context.Context, c *pipeline.RuleContext) error {
	g := c.Graph()
	var (
		mu  sync.Mutex
		out = map[graph.ID][]graph.Contribution{}
	)
	err := pipeline.ForEach(ctx, c, slices.Collect(g.Products()), func(_ context.Context, p graph.Product) error {
		closure := g.ProductModules(p.ID)
		mu.Lock()
		out[p.ID] = closure
		mu.Unlock()
		return nil
	})
	if perr := pipeline.Publish(c, ProductModules, out); perr != nil {
		return perr
	}
	return err
}

// checkProductModules reports, per product, the modules its closure
// contributes more than once and the dependencies of the closure the
// product cannot satisfy.
func checkProductModules(ctx context.Context, c *pipeline.RuleContext) error {
	closures, err := pipeline.Input(c, ProductModules)
	if err != nil {
		return err
	}
	g := c.Graph()
	return pipeline.ForEach(ctx, c, slices.Collect(g.Products()), func(_ context.Context, p graph.Product) error {
		closure := closures[p.ID]
		var modules []graph.ID
		owners := map[string][]string{}
		for _, ct := range closure {
			name := g.Name(ct.Module)
			if _, seen := owners[name]; !seen {
				modules = append(modules, ct.Module)
			}
			owner := p.Name
			if ct.Via != graph.NoID {
				owner = g.Name(ct.Via)
			}
			owners[name] = append(owners[name], owner)
		}

		dups := map[string][]string{}
		for name, list := range owners {
			if len(list) > 1 && !c.Suppressed(p.Name, name) {
				slices.Sort(list)
				dups[name] = list
			}
		}
		if len(dups) > 0 {
			c.Report(violation.Violation{Context: p.Name, Payload: violation.DuplicateModules{Modules: dups}})
		}

		missing := deps.CollectMissing(g, p.ID, modules)
		for _, dep := range missing.Names() {
			kept := slices.DeleteFunc(slices.Clone(missing[dep]), func(requester string) bool {
				return c.Suppressed(requester, dep) || c.Suppressed(p.Name, dep)
			})
			if len(kept) == 0 {
				delete(missing, dep)
			} else {
				missing[dep] = kept
			}
		}
		if len(missing) == 0 {
			return nil
		}
		v := violation.Violation{Context: p.Name, Payload: violation.MissingDeps{Missing: missing}}
		v.Patches = insertion(c, graph.KindProduct, p.Name, inBlock(p.Name), calls("module", missing.Names()),
			"add missing modules to "+p.Name)
		c.Report(v)
		return nil
	})
}
