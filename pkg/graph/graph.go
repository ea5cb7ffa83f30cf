package graph

import (
	"errors"
	"iter"
	"slices"
	"strings"
)

var (
	// ErrEmptyName is recorded by the [Builder] when a node has no name.
	ErrEmptyName = errors.New("node name must not be empty")

	// ErrDuplicateName is recorded when two nodes of the same kind share a name.
	ErrDuplicateName = errors.New("duplicate node name")

	// ErrUnknownNode is recorded when an edge references an ID the builder
	// never issued.
	ErrUnknownNode = errors.New("unknown node")

	// ErrWrongKind is recorded when an edge endpoint has the wrong node kind.
	ErrWrongKind = errors.New("edge endpoint has wrong node kind")

	// ErrAlreadyBuilt is returned by [Builder.Build] on a second call.
	ErrAlreadyBuilt = errors.New("builder already built")
)

type moduleNode struct {
	Module
	deps         []ModuleDep
	dependents   []ID
	allowMissing map[ID]bool
	targets      []ID
	sources      []Source
}

type targetNode struct {
	Target
	deps    []TargetDep
	modules []ID
}

type pluginNode struct {
	Plugin
	content    []ContentEntry
	deps       []PluginDep
	dependents []ID
	products   []ProductBundle
}

type productNode struct {
	Product
	plugins      []Bundle
	sets         []ID
	content      []ContentEntry
	allowMissing map[ID]bool
}

type setNode struct {
	ModuleSet
	includes []ID
	parents  []ID
	content  []ContentEntry
	products []ID
}

// Graph is an immutable composition graph. The zero value is an empty graph;
// use a [Builder] to create populated ones.
//
// All methods are safe for concurrent use.
type Graph struct {
	kinds    []Kind // indexed by ID
	modules  map[ID]*moduleNode
	targets  map[ID]*targetNode
	plugins  map[ID]*pluginNode
	products map[ID]*productNode
	sets     map[ID]*setNode

	moduleNames  map[string]ID
	targetNames  map[string]ID
	pluginNames  map[string]ID
	pluginIDs    map[string][]ID // descriptor identifier -> plugins
	productNames map[string]ID
	setNames     map[string]ID

	// name-sorted iteration orders
	moduleOrder  []ID
	targetOrder  []ID
	pluginOrder  []ID
	productOrder []ID
	setOrder     []ID

	fingerprint string
}

// Kind returns the kind of the node with the given ID.
func (g *Graph) Kind(id ID) (Kind, bool) {
	if id < 0 || int(id) >= len(g.kinds) {
		return 0, false
	}
	return g.kinds[id], true
}

// Name returns the name of any node, or "" for an unknown ID.
func (g *Graph) Name(id ID) string {
	k, ok := g.Kind(id)
	if !ok {
		return ""
	}
	switch k {
	case KindModule:
		return g.modules[id].Name
	case KindTarget:
		return g.targets[id].Name
	case KindPlugin:
		return g.plugins[id].Name
	case KindProduct:
		return g.products[id].Name
	case KindModuleSet:
		return g.sets[id].Name
	}
	return ""
}

// Names maps IDs to names, preserving order.
func (g *Graph) Names(ids []ID) []string {
	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = g.Name(id)
	}
	return names
}

// Fingerprint returns a stable SHA-256 hex digest of the graph contents.
// Two graphs built from the same declarations share a fingerprint.
func (g *Graph) Fingerprint() string { return g.fingerprint }

// ModuleCount returns the number of modules.
func (g *Graph) ModuleCount() int { return len(g.moduleOrder) }

// PluginCount returns the number of plugins.
func (g *Graph) PluginCount() int { return len(g.pluginOrder) }

// ProductCount returns the number of products.
func (g *Graph) ProductCount() int { return len(g.productOrder) }

// =============================================================================
// Bulk iteration
// =============================================================================

// Modules yields every module in name order.
func (g *Graph) Modules() iter.Seq[Module] {
	return func(yield func(Module) bool) {
		for _, id := range g.moduleOrder {
			if !yield(g.modules[id].Module) {
				return
			}
		}
	}
}

// Targets yields every target in name order.
func (g *Graph) Targets() iter.Seq[Target] {
	return func(yield func(Target) bool) {
		for _, id := range g.targetOrder {
			if !yield(g.targets[id].Target) {
				return
			}
		}
	}
}

// Plugins yields every plugin in name order.
func (g *Graph) Plugins() iter.Seq[Plugin] {
	return func(yield func(Plugin) bool) {
		for _, id := range g.pluginOrder {
			if !yield(g.plugins[id].Plugin) {
				return
			}
		}
	}
}

// Products yields every product in name order.
func (g *Graph) Products() iter.Seq[Product] {
	return func(yield func(Product) bool) {
		for _, id := range g.productOrder {
			if !yield(g.products[id].Product) {
				return
			}
		}
	}
}

// ModuleSets yields every module set in name order.
func (g *Graph) ModuleSets() iter.Seq[ModuleSet] {
	return func(yield func(ModuleSet) bool) {
		for _, id := range g.setOrder {
			if !yield(g.sets[id].ModuleSet) {
				return
			}
		}
	}
}

// =============================================================================
// Point lookups
// =============================================================================

// Module returns the module with the given ID.
func (g *Graph) Module(id ID) (Module, bool) {
	if n, ok := g.modules[id]; ok {
		return n.Module, true
	}
	return Module{ID: NoID}, false
}

// ModuleByName returns the module with the given name.
func (g *Graph) ModuleByName(name string) (Module, bool) {
	if id, ok := g.moduleNames[name]; ok {
		return g.modules[id].Module, true
	}
	return Module{ID: NoID}, false
}

// Target returns the target with the given ID.
func (g *Graph) Target(id ID) (Target, bool) {
	if n, ok := g.targets[id]; ok {
		return n.Target, true
	}
	return Target{ID: NoID}, false
}

// TargetByName returns the target with the given name.
func (g *Graph) TargetByName(name string) (Target, bool) {
	if id, ok := g.targetNames[name]; ok {
		return g.targets[id].Target, true
	}
	return Target{ID: NoID}, false
}

// Plugin returns the plugin with the given ID.
func (g *Graph) Plugin(id ID) (Plugin, bool) {
	if n, ok := g.plugins[id]; ok {
		return n.Plugin, true
	}
	return Plugin{ID: NoID}, false
}

// PluginByName returns the plugin with the given name.
func (g *Graph) PluginByName(name string) (Plugin, bool) {
	if id, ok := g.pluginNames[name]; ok {
		return g.plugins[id].Plugin, true
	}
	return Plugin{ID: NoID}, false
}

// PluginsByIdentifier returns all plugins declaring the descriptor identifier.
// More than one result is legal in the graph; validators decide whether it is
// a conflict within a given product.
func (g *Graph) PluginsByIdentifier(pluginID string) []Plugin {
	ids := g.pluginIDs[pluginID]
	out := make([]Plugin, len(ids))
	for i, id := range ids {
		out[i] = g.plugins[id].Plugin
	}
	return out
}

// Product returns the product with the given ID.
func (g *Graph) Product(id ID) (Product, bool) {
	if n, ok := g.products[id]; ok {
		return n.Product, true
	}
	return Product{ID: NoID}, false
}

// ProductByName returns the product with the given name.
func (g *Graph) ProductByName(name string) (Product, bool) {
	if id, ok := g.productNames[name]; ok {
		return g.products[id].Product, true
	}
	return Product{ID: NoID}, false
}

// ModuleSet returns the module set with the given ID.
func (g *Graph) ModuleSet(id ID) (ModuleSet, bool) {
	if n, ok := g.sets[id]; ok {
		return n.ModuleSet, true
	}
	return ModuleSet{ID: NoID}, false
}

// ModuleSetByName returns the module set with the given name.
func (g *Graph) ModuleSetByName(name string) (ModuleSet, bool) {
	if id, ok := g.setNames[name]; ok {
		return g.sets[id].ModuleSet, true
	}
	return ModuleSet{ID: NoID}, false
}

// =============================================================================
// Neighbor traversal
// =============================================================================

// ModuleDeps returns the declared dependencies of a module, production and
// test edges alike.
func (g *Graph) ModuleDeps(id ID) []ModuleDep {
	if n, ok := g.modules[id]; ok {
		return slices.Clone(n.deps)
	}
	return nil
}

// ModuleDependents returns the modules declaring a dependency on id.
func (g *Graph) ModuleDependents(id ID) []ID {
	if n, ok := g.modules[id]; ok {
		return slices.Clone(n.dependents)
	}
	return nil
}

// HasModuleDep reports whether from declares a dependency on to.
func (g *Graph) HasModuleDep(from, to ID) bool {
	n, ok := g.modules[from]
	if !ok {
		return false
	}
	return slices.ContainsFunc(n.deps, func(d ModuleDep) bool { return d.Module == to })
}

// ModuleAllowsMissing reports whether module declares that dep may be absent.
func (g *Graph) ModuleAllowsMissing(module, dep ID) bool {
	n, ok := g.modules[module]
	return ok && n.allowMissing[dep]
}

// AllowedMissing returns the modules module declares may be absent, sorted
// by name.
func (g *Graph) AllowedMissing(module ID) []ID {
	if n, ok := g.modules[module]; ok {
		return g.sortedSet(n.allowMissing)
	}
	return nil
}

// BackingTargets returns the targets backing a module.
func (g *Graph) BackingTargets(module ID) []Target {
	n, ok := g.modules[module]
	if !ok {
		return nil
	}
	out := make([]Target, len(n.targets))
	for i, id := range n.targets {
		out[i] = g.targets[id].Target
	}
	return out
}

// TargetModules returns the modules backed by a target.
func (g *Graph) TargetModules(target ID) []Module {
	n, ok := g.targets[target]
	if !ok {
		return nil
	}
	out := make([]Module, len(n.modules))
	for i, id := range n.modules {
		out[i] = g.modules[id].Module
	}
	return out
}

// TargetDeps returns the raw build dependencies of a target.
func (g *Graph) TargetDeps(target ID) []TargetDep {
	if n, ok := g.targets[target]; ok {
		return slices.Clone(n.deps)
	}
	return nil
}

// ModuleSources returns every declaration contributing the module as content.
func (g *Graph) ModuleSources(module ID) []Source {
	if n, ok := g.modules[module]; ok {
		return slices.Clone(n.sources)
	}
	return nil
}

// HasContentSource reports whether any plugin, product or module set
// declares the module as content.
func (g *Graph) HasContentSource(module ID) bool {
	n, ok := g.modules[module]
	return ok && len(n.sources) > 0
}

// PluginContent returns the content modules of a plugin, production entries
// first, in declaration order.
func (g *Graph) PluginContent(plugin ID) []ContentEntry {
	if n, ok := g.plugins[plugin]; ok {
		return slices.Clone(n.content)
	}
	return nil
}

// PluginContentEntry returns the plugin's declaration of module.
func (g *Graph) PluginContentEntry(plugin, module ID) (ContentEntry, bool) {
	n, ok := g.plugins[plugin]
	if !ok {
		return ContentEntry{}, false
	}
	for _, e := range n.content {
		if e.Module == module {
			return e, true
		}
	}
	return ContentEntry{}, false
}

// PluginDeps returns the plugin-to-plugin dependencies of a plugin.
func (g *Graph) PluginDeps(plugin ID) []PluginDep {
	if n, ok := g.plugins[plugin]; ok {
		return slices.Clone(n.deps)
	}
	return nil
}

// PluginDependents returns the plugins depending on plugin.
func (g *Graph) PluginDependents(plugin ID) []ID {
	if n, ok := g.plugins[plugin]; ok {
		return slices.Clone(n.dependents)
	}
	return nil
}

// PluginProducts returns the products bundling a plugin.
func (g *Graph) PluginProducts(plugin ID) []ProductBundle {
	if n, ok := g.plugins[plugin]; ok {
		return slices.Clone(n.products)
	}
	return nil
}

// ProductPlugins returns the plugins bundled by a product.
func (g *Graph) ProductPlugins(product ID) []Bundle {
	if n, ok := g.products[product]; ok {
		return slices.Clone(n.plugins)
	}
	return nil
}

// ProductModuleSets returns the module sets a product includes directly.
func (g *Graph) ProductModuleSets(product ID) []ID {
	if n, ok := g.products[product]; ok {
		return slices.Clone(n.sets)
	}
	return nil
}

// ProductContent returns the content modules a product declares directly.
func (g *Graph) ProductContent(product ID) []ContentEntry {
	if n, ok := g.products[product]; ok {
		return slices.Clone(n.content)
	}
	return nil
}

// ProductAllowsMissing reports whether the product allow-lists module as
// absent.
func (g *Graph) ProductAllowsMissing(product, module ID) bool {
	n, ok := g.products[product]
	return ok && n.allowMissing[module]
}

// ProductAllowedMissing returns the modules a product allow-lists as absent,
// sorted by name.
func (g *Graph) ProductAllowedMissing(product ID) []ID {
	if n, ok := g.products[product]; ok {
		return g.sortedSet(n.allowMissing)
	}
	return nil
}

func (g *Graph) sortedSet(set map[ID]bool) []ID {
	out := make([]ID, 0, len(set))
	for id, ok := range set {
		if ok {
			out = append(out, id)
		}
	}
	slices.SortFunc(out, func(a, b ID) int { return strings.Compare(g.Name(a), g.Name(b)) })
	return out
}

// ModuleSetIncludes returns the module sets nested directly in set.
func (g *Graph) ModuleSetIncludes(set ID) []ID {
	if n, ok := g.sets[set]; ok {
		return slices.Clone(n.includes)
	}
	return nil
}

// ModuleSetParents returns the module sets that include set directly.
func (g *Graph) ModuleSetParents(set ID) []ID {
	if n, ok := g.sets[set]; ok {
		return slices.Clone(n.parents)
	}
	return nil
}

// ModuleSetProducts returns the products that include set directly.
func (g *Graph) ModuleSetProducts(set ID) []ID {
	if n, ok := g.sets[set]; ok {
		return slices.Clone(n.products)
	}
	return nil
}

// ModuleSetContent returns the modules a module set declares directly.
func (g *Graph) ModuleSetContent(set ID) []ContentEntry {
	if n, ok := g.sets[set]; ok {
		return slices.Clone(n.content)
	}
	return nil
}
