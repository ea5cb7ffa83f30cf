package validate

import (
	"context"
	"slices"

	"github.com/matzehuels/modgraph/pkg/deps"
	"github.com/matzehuels/modgraph/pkg/graph"
	"github.com/matzehuels/modgraph/pkg/patch"
	"github.com/matzehuels/modgraph/pkg/pipeline"
	"github.com/matzehuels/modgraph/pkg/violation"
)

// checkStructural reports content modules loaded in a plugin's required
// chain that depend on a sibling with a weaker loading mode. Pairs whose
// dependency was auto-added by a test plugin follow the run's auto-added
// policy.
func checkStructural(ctx context.Context, c *pipeline.RuleContext) error {
	edges, err := pipeline.Input(c, PluginContentDeps)
	if err != nil {
		return err
	}
	return pipeline.ForEach(ctx, c, slices.Collect(c.Graph().Plugins()), func(_ context.Context, p graph.Plugin) error {
		c.Report(structural(c, p, edges[p.ID])...)
		return nil
	})
}

func structural(c *pipeline.RuleContext, p graph.Plugin, edges []deps.Edge) []violation.Violation {
	g := c.Graph()
	policy := c.Options().AutoAddedPolicy
	var errs, warns []violation.Pair
	for _, e := range edges {
		from, ok := g.PluginContentEntry(p.ID, e.From)
		if !ok || !from.Mode.IsStrict() {
			continue
		}
		to, ok := g.PluginContentEntry(p.ID, e.To)
		if !ok || to.Mode.IsStrict() {
			continue
		}
		if to.AutoAdded && policy == pipeline.AutoAddedSkip {
			continue
		}
		pair := violation.Pair{
			Module:         g.Name(e.From),
			ModuleMode:     from.Mode.String(),
			Dependency:     g.Name(e.To),
			DependencyMode: to.Mode.String(),
			AutoAdded:      to.AutoAdded,
		}
		if c.Suppressed(pair.Module, pair.Dependency) {
			continue
		}
		if to.AutoAdded && policy == pipeline.AutoAddedWarn {
			warns = append(warns, pair)
		} else {
			errs = append(errs, pair)
		}
	}

	var out []violation.Violation
	for _, group := range []struct {
		pairs    []violation.Pair
		severity violation.Severity
	}{
		{errs, violation.SeverityError},
		{warns, violation.SeverityWarning},
	} {
		if len(group.pairs) == 0 {
			continue
		}
		v := violation.Violation{Context: p.Name, Severity: group.severity, Payload: violation.Structural{Pairs: group.pairs}}
		v.Patches, v.Fixes = promote(c, p, group.pairs)
		out = append(out, v)
	}
	return out
}

// promote rewrites the declarations of the weaker dependencies in the
// plugin's descriptor or build script so they load as required.
func promote(c *pipeline.RuleContext, p graph.Plugin, pairs []violation.Pair) ([]patch.Patch, []patch.Fix) {
	path, ok := c.Locate(graph.KindPlugin, p.Name)
	if !ok {
		return nil, nil
	}
	var names []string
	for _, pr := range pairs {
		names = appendUnique(names, pr.Dependency)
	}
	edit := func(content string) (string, bool, error) {
		changed := false
		for _, n := range names {
			var ok bool
			if p.DSL {
				content, ok = patch.ReplaceCall(content, "module", n, "requiredModule")
			} else {
				content, ok = patch.SetAttributeIn(content, "content", "module", "name", n, "loading", graph.LoadingRequired.String())
			}
			changed = changed || ok
		}
		return content, changed, nil
	}
	return rewrite(c, path, "load dependencies of "+p.Name+" as required", edit)
}
