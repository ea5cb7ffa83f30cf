package graph

import (
	"cmp"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"slices"
)

// Builder assembles a [Graph]. Node constructors return the new node's [ID];
// edge methods take IDs. Problems are recorded rather than returned so a
// whole document can be loaded in one pass, and [Builder.Build] reports them
// all at once.
//
// Edges touching a node whose registration failed (ID [NoID]) are dropped;
// the registration error is already recorded.
//
// Builder is not safe for concurrent use.
type Builder struct {
	g      *Graph
	errors []error
	built  bool
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{g: &Graph{
		modules:      make(map[ID]*moduleNode),
		targets:      make(map[ID]*targetNode),
		plugins:      make(map[ID]*pluginNode),
		products:     make(map[ID]*productNode),
		sets:         make(map[ID]*setNode),
		moduleNames:  make(map[string]ID),
		targetNames:  make(map[string]ID),
		pluginNames:  make(map[string]ID),
		pluginIDs:    make(map[string][]ID),
		productNames: make(map[string]ID),
		setNames:     make(map[string]ID),
	}}
}

func (b *Builder) fail(err error) {
	b.errors = append(b.errors, err)
}

func (b *Builder) register(kind Kind, name string, index map[string]ID) ID {
	if name == "" {
		b.fail(fmt.Errorf("%s: %w", kind, ErrEmptyName))
		return NoID
	}
	if _, dup := index[name]; dup {
		b.fail(fmt.Errorf("%s %q: %w", kind, name, ErrDuplicateName))
		return NoID
	}
	id := ID(len(b.g.kinds))
	b.g.kinds = append(b.g.kinds, kind)
	index[name] = id
	return id
}

// AddModule registers a content module.
func (b *Builder) AddModule(m Module) ID {
	id := b.register(KindModule, m.Name, b.g.moduleNames)
	if id != NoID {
		m.ID = id
		b.g.modules[id] = &moduleNode{Module: m, allowMissing: map[ID]bool{}}
	}
	return id
}

// AddTarget registers a build target.
func (b *Builder) AddTarget(t Target) ID {
	id := b.register(KindTarget, t.Name, b.g.targetNames)
	if id != NoID {
		t.ID = id
		b.g.targets[id] = &targetNode{Target: t}
	}
	return id
}

// AddPlugin registers a plugin.
func (b *Builder) AddPlugin(p Plugin) ID {
	id := b.register(KindPlugin, p.Name, b.g.pluginNames)
	if id != NoID {
		p.ID = id
		b.g.plugins[id] = &pluginNode{Plugin: p}
		if p.PluginID != "" {
			b.g.pluginIDs[p.PluginID] = append(b.g.pluginIDs[p.PluginID], id)
		}
	}
	return id
}

// AddProduct registers a product.
func (b *Builder) AddProduct(p Product) ID {
	id := b.register(KindProduct, p.Name, b.g.productNames)
	if id != NoID {
		p.ID = id
		b.g.products[id] = &productNode{Product: p, allowMissing: map[ID]bool{}}
	}
	return id
}

// AddModuleSet registers a module set.
func (b *Builder) AddModuleSet(s ModuleSet) ID {
	id := b.register(KindModuleSet, s.Name, b.g.setNames)
	if id != NoID {
		s.ID = id
		b.g.sets[id] = &setNode{ModuleSet: s}
	}
	return id
}

// check validates that every id has one of the wanted kinds. It returns false
// without recording anything when an id is NoID.
func (b *Builder) check(edge string, ids []ID, kinds ...Kind) bool {
	for i, id := range ids {
		if id == NoID {
			return false
		}
		k, ok := b.g.Kind(id)
		if !ok {
			b.fail(fmt.Errorf("%s: id %d: %w", edge, id, ErrUnknownNode))
			return false
		}
		want := kinds[min(i, len(kinds)-1)]
		if k != want {
			b.fail(fmt.Errorf("%s: %q is a %s, want %s: %w", edge, b.g.Name(id), k, want, ErrWrongKind))
			return false
		}
	}
	return true
}

// AddModuleDep declares that module from depends on module to. Test edges
// apply only when the dependent is compiled for tests. Declaring the same
// edge as both production and test keeps the production edge.
func (b *Builder) AddModuleDep(from, to ID, test bool) {
	if !b.check("module dependency", []ID{from, to}, KindModule) {
		return
	}
	n := b.g.modules[from]
	if i := slices.IndexFunc(n.deps, func(d ModuleDep) bool { return d.Module == to }); i >= 0 {
		n.deps[i].Test = n.deps[i].Test && test
		return
	}
	n.deps = append(n.deps, ModuleDep{Module: to, Test: test})
	dep := b.g.modules[to]
	dep.dependents = append(dep.dependents, from)
}

// AllowMissing declares that dep may be absent wherever module is present.
func (b *Builder) AllowMissing(module, dep ID) {
	if b.check("allow-missing", []ID{module, dep}, KindModule) {
		b.g.modules[module].allowMissing[dep] = true
	}
}

// ProductAllowMissing allow-lists module as absent for one product.
func (b *Builder) ProductAllowMissing(product, module ID) {
	if b.check("product allow-missing", []ID{product, module}, KindProduct, KindModule) {
		b.g.products[product].allowMissing[module] = true
	}
}

// SetBacking records that target provides the code of module. Calling it
// twice with different targets is legal; the backing rule reports it.
func (b *Builder) SetBacking(module, target ID) {
	if !b.check("backing", []ID{module, target}, KindModule, KindTarget) {
		return
	}
	m := b.g.modules[module]
	if slices.Contains(m.targets, target) {
		return
	}
	m.targets = append(m.targets, target)
	t := b.g.targets[target]
	t.modules = append(t.modules, module)
}

// AddTargetDep records a raw build dependency between two targets.
func (b *Builder) AddTargetDep(from, to ID, scope Scope) {
	if !b.check("target dependency", []ID{from, to}, KindTarget) {
		return
	}
	n := b.g.targets[from]
	dep := TargetDep{Target: to, Scope: scope}
	if !slices.Contains(n.deps, dep) {
		n.deps = append(n.deps, dep)
	}
}

// AddContent declares entry.Module as content of owner, which must be a
// plugin, a product or a module set.
func (b *Builder) AddContent(owner ID, entry ContentEntry) {
	if owner == NoID || entry.Module == NoID {
		return
	}
	k, ok := b.g.Kind(owner)
	if !ok {
		b.fail(fmt.Errorf("content: owner id %d: %w", owner, ErrUnknownNode))
		return
	}
	if !b.check("content", []ID{entry.Module}, KindModule) {
		return
	}
	switch k {
	case KindPlugin:
		n := b.g.plugins[owner]
		n.content = append(n.content, entry)
	case KindProduct:
		n := b.g.products[owner]
		n.content = append(n.content, entry)
	case KindModuleSet:
		n := b.g.sets[owner]
		n.content = append(n.content, entry)
	default:
		b.fail(fmt.Errorf("content: %s %q cannot own content: %w", k, b.g.Name(owner), ErrWrongKind))
		return
	}
	m := b.g.modules[entry.Module]
	m.sources = append(m.sources, Source{Kind: k, ID: owner, ContentEntry: entry})
}

// AddPluginDep declares a plugin-to-plugin dependency.
func (b *Builder) AddPluginDep(from, to ID, optional bool) {
	if !b.check("plugin dependency", []ID{from, to}, KindPlugin) {
		return
	}
	n := b.g.plugins[from]
	if slices.ContainsFunc(n.deps, func(d PluginDep) bool { return d.Plugin == to }) {
		return
	}
	n.deps = append(n.deps, PluginDep{Plugin: to, Optional: optional})
	dep := b.g.plugins[to]
	dep.dependents = append(dep.dependents, from)
}

// Bundle records that product ships plugin, as a test plugin when test is set.
func (b *Builder) Bundle(product, plugin ID, test bool) {
	if !b.check("bundle", []ID{product, plugin}, KindProduct, KindPlugin) {
		return
	}
	n := b.g.products[product]
	if slices.ContainsFunc(n.plugins, func(x Bundle) bool { return x.Plugin == plugin }) {
		return
	}
	n.plugins = append(n.plugins, Bundle{Plugin: plugin, Test: test})
	p := b.g.plugins[plugin]
	p.products = append(p.products, ProductBundle{Product: product, Test: test})
}

// Include nests set into owner, which must be a product or another module set.
// Include cycles are accepted here and reported by validation.
func (b *Builder) Include(owner, set ID) {
	if owner == NoID || set == NoID {
		return
	}
	if !b.check("include", []ID{set}, KindModuleSet) {
		return
	}
	k, ok := b.g.Kind(owner)
	if !ok {
		b.fail(fmt.Errorf("include: owner id %d: %w", owner, ErrUnknownNode))
		return
	}
	s := b.g.sets[set]
	switch k {
	case KindProduct:
		n := b.g.products[owner]
		if !slices.Contains(n.sets, set) {
			n.sets = append(n.sets, set)
			s.products = append(s.products, owner)
		}
	case KindModuleSet:
		n := b.g.sets[owner]
		if !slices.Contains(n.includes, set) {
			n.includes = append(n.includes, set)
			s.parents = append(s.parents, owner)
		}
	default:
		b.fail(fmt.Errorf("include: %s %q cannot include module sets: %w", k, b.g.Name(owner), ErrWrongKind))
	}
}

// Build finalizes the graph. All recorded problems are returned joined; the
// builder cannot be used afterwards.
func (b *Builder) Build() (*Graph, error) {
	if b.built {
		return nil, ErrAlreadyBuilt
	}
	b.built = true
	if len(b.errors) > 0 {
		return nil, errors.Join(b.errors...)
	}
	g := b.g
	g.moduleOrder = sortedIDs(g.moduleNames)
	g.targetOrder = sortedIDs(g.targetNames)
	g.pluginOrder = sortedIDs(g.pluginNames)
	g.productOrder = sortedIDs(g.productNames)
	g.setOrder = sortedIDs(g.setNames)
	g.fingerprint = fingerprint(g)
	return g, nil
}

func sortedIDs(index map[string]ID) []ID {
	names := make([]string, 0, len(index))
	for name := range index {
		names = append(names, name)
	}
	slices.Sort(names)
	ids := make([]ID, len(names))
	for i, name := range names {
		ids[i] = index[name]
	}
	return ids
}

// fingerprint hashes names rather than IDs so the digest is independent of
// declaration order.
func fingerprint(g *Graph) string {
	h := sha256.New()
	entries := func(tag string, es []ContentEntry) {
		lines := make([]string, len(es))
		for i, e := range es {
			lines[i] = fmt.Sprintf("%s %s %s %t %t", tag, g.Name(e.Module), e.Mode, e.Test, e.AutoAdded)
		}
		slices.Sort(lines)
		for _, l := range lines {
			fmt.Fprintln(h, l)
		}
	}
	names := func(tag string, ids []ID) {
		ns := g.Names(ids)
		slices.Sort(ns)
		for _, n := range ns {
			fmt.Fprintln(h, tag, n)
		}
	}

	for _, id := range g.moduleOrder {
		n := g.modules[id]
		fmt.Fprintf(h, "M %s %t %s %s\n", n.Name, n.Critical, n.Descriptor, n.Library)
		deps := slices.Clone(n.deps)
		slices.SortFunc(deps, func(a, b ModuleDep) int { return cmp.Compare(g.Name(a.Module), g.Name(b.Module)) })
		for _, d := range deps {
			fmt.Fprintf(h, "d %s %t\n", g.Name(d.Module), d.Test)
		}
		allowed := make([]ID, 0, len(n.allowMissing))
		for dep := range n.allowMissing {
			allowed = append(allowed, dep)
		}
		names("a", allowed)
		names("b", n.targets)
	}
	for _, id := range g.targetOrder {
		n := g.targets[id]
		fmt.Fprintf(h, "T %s %t %s\n", n.Name, n.Library, n.BuildFile)
		lines := make([]string, len(n.deps))
		for i, d := range n.deps {
			lines[i] = g.Name(d.Target) + " " + d.Scope.String()
		}
		slices.Sort(lines)
		for _, l := range lines {
			fmt.Fprintln(h, "t", l)
		}
	}
	for _, id := range g.pluginOrder {
		n := g.plugins[id]
		fmt.Fprintf(h, "P %s %s %t %t %s\n", n.Name, n.PluginID, n.Test, n.DSL, n.Descriptor)
		entries("c", n.content)
		lines := make([]string, len(n.deps))
		for i, d := range n.deps {
			lines[i] = fmt.Sprintf("%s %t", g.Name(d.Plugin), d.Optional)
		}
		slices.Sort(lines)
		for _, l := range lines {
			fmt.Fprintln(h, "p", l)
		}
	}
	for _, id := range g.productOrder {
		n := g.products[id]
		fmt.Fprintf(h, "R %s %s\n", n.Name, n.Source)
		lines := make([]string, len(n.plugins))
		for i, bnd := range n.plugins {
			lines[i] = fmt.Sprintf("%s %t", g.Name(bnd.Plugin), bnd.Test)
		}
		slices.Sort(lines)
		for _, l := range lines {
			fmt.Fprintln(h, "u", l)
		}
		names("s", n.sets)
		entries("c", n.content)
		allowed := make([]ID, 0, len(n.allowMissing))
		for m := range n.allowMissing {
			allowed = append(allowed, m)
		}
		names("a", allowed)
	}
	for _, id := range g.setOrder {
		n := g.sets[id]
		fmt.Fprintf(h, "S %s %t %s\n", n.Name, n.SelfContained, n.Source)
		names("i", n.includes)
		entries("c", n.content)
	}
	return hex.EncodeToString(h.Sum(nil))
}
