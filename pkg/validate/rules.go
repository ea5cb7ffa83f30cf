package validate

import (
	"cmp"
	"context"
	"slices"

	"github.com/matzehuels/modgraph/pkg/deps"
	"github.com/matzehuels/modgraph/pkg/graph"
	"github.com/matzehuels/modgraph/pkg/pipeline"
)

// Rule names.
const (
	RuleBacking                = "content-module-backing"
	RuleProductClosure         = "product-closure"
	RuleProductDependencies    = "product-module-dependencies"
	RuleSelfContained          = "self-contained-module-sets"
	RuleModuleSetCycles        = "module-set-cycles"
	RulePluginContentCollector = "plugin-content-collector"
	RuleImplicitDeps           = "implicit-deps"
	RulePluginContentDeps      = "plugin-content-dependencies"
	RuleStructuralLoading      = "structural-loading"
	RuleLibraryModules         = "library-modules"
	RuleTestLibraryScope       = "test-library-scope"
	RuleDuplicateContent       = "duplicate-content"
	RuleDuplicatePluginIDs     = "duplicate-plugin-ids"
	RulePluginDependencies     = "plugin-dependencies"
	RuleSuppressionKeys        = "suppression-keys"
)

// Slots exchanged between rules.
var (
	// Backing maps every content module with a valid, built backing target
	// to that target.
	Backing = pipeline.NewSlot[map[graph.ID]graph.Target]("backing")

	// ProductModules maps every product to its module closure.
	ProductModules = pipeline.NewSlot[map[graph.ID][]graph.Contribution]("product-modules")

	// PluginContentDeps maps every plugin to the dependency edges of its
	// content modules.
	PluginContentDeps = pipeline.NewSlot[map[graph.ID][]deps.Edge]("plugin-content-deps")

	// ImplicitDeps maps content modules to the module dependencies their
	// build requires but their descriptor does not declare. Modules without
	// any are absent.
	ImplicitDeps = pipeline.NewSlot[map[graph.ID][]graph.ID]("implicit-deps")
)

// rule adapts a run function to [pipeline.Rule].
type rule struct {
	name     string
	requires []pipeline.SlotID
	produces []pipeline.SlotID
	run      func(ctx context.Context, c *pipeline.RuleContext) error
}

var _ pipeline.Rule = (*rule)(nil)

func (r *rule) Name() string                { return r.name }
func (r *rule) Requires() []pipeline.SlotID { return r.requires }
func (r *rule) Produces() []pipeline.SlotID { return r.produces }

func (r *rule) Run(ctx context.Context, c *pipeline.RuleContext) error {
	return r.run(ctx, c)
}

func slots(ids ...pipeline.SlotID) []pipeline.SlotID { return ids }

// DefaultRules returns a fresh instance of every rule.
func DefaultRules() []pipeline.Rule {
	return []pipeline.Rule{
		&rule{name: RuleBacking, produces: slots(Backing.ID()), run: checkBacking},
		&rule{name: RuleProductClosure, produces: slots(ProductModules.ID()), run: collectProductModules},
		&rule{name: RuleProductDependencies, requires: slots(ProductModules.ID()), run: checkProductModules},
		&rule{name: RuleSelfContained, run: checkSelfContained},
		&rule{name: RuleModuleSetCycles, run: checkModuleSetCycles},
		&rule{name: RulePluginContentCollector, produces: slots(PluginContentDeps.ID()), run: collectPluginContentDeps},
		&rule{name: RuleImplicitDeps, produces: slots(ImplicitDeps.ID()), run: collectImplicitDeps},
		&rule{name: RulePluginContentDeps, requires: slots(PluginContentDeps.ID(), ImplicitDeps.ID()), run: checkPluginContent},
		&rule{name: RuleStructuralLoading, requires: slots(PluginContentDeps.ID()), run: checkStructural},
		&rule{name: RuleLibraryModules, requires: slots(Backing.ID()), run: checkLibraryModules},
		&rule{name: RuleTestLibraryScope, requires: slots(Backing.ID()), run: checkTestLibraryScope},
		&rule{name: RuleDuplicateContent, run: checkDuplicateContent},
		&rule{name: RuleDuplicatePluginIDs, run: checkDuplicatePluginIDs},
		&rule{name: RulePluginDependencies, run: checkPluginDependencies},
		&rule{name: RuleSuppressionKeys, run: checkSuppressionKeys},
	}
}

// RuleNames returns the names of [DefaultRules] in order.
func RuleNames() []string {
	rules := DefaultRules()
	out := make([]string, len(rules))
	for i, r := range rules {
		out[i] = r.Name()
	}
	return out
}

// =============================================================================
// Shared helpers
// =============================================================================

// contentModules returns the modules declared as content by at least one
// plugin, product or module set.
func contentModules(g *graph.Graph) []graph.Module {
	var out []graph.Module
	for m := range g.Modules() {
		if g.HasContentSource(m.ID) {
			out = append(out, m)
		}
	}
	return out
}

// sortedByName returns the keys of m ordered by node name.
func sortedByName[V any](g *graph.Graph, m map[graph.ID]V) []graph.ID {
	ids := make([]graph.ID, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, func(a, b graph.ID) int { return cmp.Compare(g.Name(a), g.Name(b)) })
	return ids
}

// pluginOwner is the suppression owner of plugin-level findings.
func pluginOwner(p graph.Plugin) string {
	if p.PluginID != "" {
		return p.PluginID
	}
	return p.Name
}

// appendUnique appends s unless it is already present.
func appendUnique(list []string, s string) []string {
	if slices.Contains(list, s) {
		return list
	}
	return append(list, s)
}
