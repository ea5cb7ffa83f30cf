package graph

import (
	"errors"
	"slices"
	"testing"
)

func TestBuilderErrors(t *testing.T) {
	tests := []struct {
		name  string
		build func(b *Builder)
		want  error
	}{
		{"empty name", func(b *Builder) { b.AddModule(Module{}) }, ErrEmptyName},
		{"duplicate module", func(b *Builder) {
			b.AddModule(Module{Name: "a"})
			b.AddModule(Module{Name: "a"})
		}, ErrDuplicateName},
		{"unknown id", func(b *Builder) {
			a := b.AddModule(Module{Name: "a"})
			b.AddModuleDep(a, ID(42), false)
		}, ErrUnknownNode},
		{"wrong kind", func(b *Builder) {
			a := b.AddModule(Module{Name: "a"})
			p := b.AddPlugin(Plugin{Name: "p"})
			b.AddModuleDep(a, p, false)
		}, ErrWrongKind},
		{"module cannot own content", func(b *Builder) {
			a := b.AddModule(Module{Name: "a"})
			c := b.AddModule(Module{Name: "c"})
			b.AddContent(a, ContentEntry{Module: c})
		}, ErrWrongKind},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBuilder()
			tt.build(b)
			_, err := b.Build()
			if !errors.Is(err, tt.want) {
				t.Errorf("Build() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestBuilderSameNameAcrossKinds(t *testing.T) {
	b := NewBuilder()
	b.AddModule(Module{Name: "x"})
	b.AddTarget(Target{Name: "x"})
	b.AddPlugin(Plugin{Name: "x"})
	if _, err := b.Build(); err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if _, err := b.Build(); !errors.Is(err, ErrAlreadyBuilt) {
		t.Errorf("second Build() error = %v, want %v", err, ErrAlreadyBuilt)
	}
}

func TestBuilderDropsEdgesOfFailedNodes(t *testing.T) {
	b := NewBuilder()
	a := b.AddModule(Module{Name: "a"})
	dup := b.AddModule(Module{Name: "a"})
	if dup != NoID {
		t.Fatalf("duplicate AddModule = %d, want NoID", dup)
	}
	b.AddModuleDep(a, dup, false)
	_, err := b.Build()
	if !errors.Is(err, ErrDuplicateName) {
		t.Fatalf("Build() error = %v, want %v", err, ErrDuplicateName)
	}
	if errors.Is(err, ErrUnknownNode) {
		t.Errorf("Build() error = %v, should not report the dropped edge", err)
	}
}

func TestLookups(t *testing.T) {
	b := NewBuilder()
	m := b.AddModule(Module{Name: "app.core", Critical: true})
	p := b.AddPlugin(Plugin{Name: "core", PluginID: "com.app.core"})
	alias := b.AddPlugin(Plugin{Name: "alias"})
	b.AddContent(p, ContentEntry{Module: m, Mode: LoadingRequired})
	g, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}

	if got, ok := g.ModuleByName("app.core"); !ok || got.ID != m || !got.Critical {
		t.Errorf("ModuleByName(%q) = %+v, %v", "app.core", got, ok)
	}
	if got, ok := g.ModuleByName("missing"); ok || got.ID != NoID {
		t.Errorf("ModuleByName(%q) = %+v, %v, want not found", "missing", got, ok)
	}
	if got := g.PluginsByIdentifier("com.app.core"); len(got) != 1 || got[0].ID != p {
		t.Errorf("PluginsByIdentifier() = %+v", got)
	}
	if got, _ := g.Plugin(alias); got.PluginID != "" {
		t.Errorf("alias PluginID = %q, want empty", got.PluginID)
	}
	if k, ok := g.Kind(p); !ok || k != KindPlugin {
		t.Errorf("Kind(%d) = %v, %v", p, k, ok)
	}
	if _, ok := g.Kind(ID(99)); ok {
		t.Errorf("Kind(99) ok = true, want false")
	}
	if g.Name(ID(99)) != "" {
		t.Errorf("Name(99) = %q, want empty", g.Name(ID(99)))
	}
	if e, ok := g.PluginContentEntry(p, m); !ok || e.Mode != LoadingRequired {
		t.Errorf("PluginContentEntry() = %+v, %v", e, ok)
	}
	srcs := g.ModuleSources(m)
	if len(srcs) != 1 || srcs[0].Kind != KindPlugin || srcs[0].ID != p {
		t.Errorf("ModuleSources() = %+v", srcs)
	}
}

func TestNeighbors(t *testing.T) {
	b := NewBuilder()
	app := b.AddModule(Module{Name: "app"})
	util := b.AddModule(Module{Name: "util"})
	kit := b.AddModule(Module{Name: "kit"})
	b.AddModuleDep(app, util, false)
	b.AddModuleDep(app, kit, true)
	b.AllowMissing(app, util)
	lib := b.AddTarget(Target{Name: "lib"})
	b.SetBacking(app, lib)
	b.SetBacking(util, lib)
	core := b.AddPlugin(Plugin{Name: "core"})
	tests := b.AddPlugin(Plugin{Name: "tests", Test: true})
	b.AddPluginDep(tests, core, true)
	ide := b.AddProduct(Product{Name: "IDE"})
	b.Bundle(ide, core, false)
	b.Bundle(ide, tests, true)
	b.ProductAllowMissing(ide, kit)
	base := b.AddModuleSet(ModuleSet{Name: "base"})
	libs := b.AddModuleSet(ModuleSet{Name: "libs"})
	b.Include(ide, base)
	b.Include(base, libs)
	g, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}

	if got := g.ModuleDeps(app); len(got) != 2 || got[1] != (ModuleDep{Module: kit, Test: true}) {
		t.Errorf("ModuleDeps(app) = %+v", got)
	}
	if got := g.ModuleDependents(util); len(got) != 1 || got[0] != app {
		t.Errorf("ModuleDependents(util) = %v", got)
	}
	if !g.HasModuleDep(app, util) || g.HasModuleDep(util, app) {
		t.Error("HasModuleDep does not follow edge direction")
	}
	if !g.ModuleAllowsMissing(app, util) || g.ModuleAllowsMissing(app, kit) {
		t.Error("ModuleAllowsMissing mismatch")
	}
	if got := g.Names(g.AllowedMissing(app)); len(got) != 1 || got[0] != "util" {
		t.Errorf("AllowedMissing(app) = %v", got)
	}
	if got := g.BackingTargets(app); len(got) != 1 || got[0].Name != "lib" {
		t.Errorf("BackingTargets(app) = %+v", got)
	}
	if got := g.TargetModules(lib); len(got) != 2 {
		t.Errorf("TargetModules(lib) = %+v", got)
	}
	if got := g.Names(g.ProductAllowedMissing(ide)); len(got) != 1 || got[0] != "kit" {
		t.Errorf("ProductAllowedMissing(IDE) = %v", got)
	}
	if got := g.PluginDeps(tests); len(got) != 1 || got[0] != (PluginDep{Plugin: core, Optional: true}) {
		t.Errorf("PluginDeps(tests) = %+v", got)
	}
	if got := g.PluginDependents(core); len(got) != 1 || got[0] != tests {
		t.Errorf("PluginDependents(core) = %v", got)
	}
	if got := g.PluginProducts(tests); len(got) != 1 || got[0] != (ProductBundle{Product: ide, Test: true}) {
		t.Errorf("PluginProducts(tests) = %+v", got)
	}
	if got := g.ProductPlugins(ide); len(got) != 2 {
		t.Errorf("ProductPlugins(IDE) = %+v", got)
	}
	if !g.ProductAllowsMissing(ide, kit) || g.ProductAllowsMissing(ide, util) {
		t.Error("ProductAllowsMissing mismatch")
	}
	if got := g.ProductModuleSets(ide); len(got) != 1 || got[0] != base {
		t.Errorf("ProductModuleSets(IDE) = %v", got)
	}
	if got := g.ModuleSetIncludes(base); len(got) != 1 || got[0] != libs {
		t.Errorf("ModuleSetIncludes(base) = %v", got)
	}
	if got := g.ModuleSetParents(libs); len(got) != 1 || got[0] != base {
		t.Errorf("ModuleSetParents(libs) = %v", got)
	}
	if got := g.ModuleSetProducts(base); len(got) != 1 || got[0] != ide {
		t.Errorf("ModuleSetProducts(base) = %v", got)
	}
	if got := g.ModuleDeps(ID(99)); got != nil {
		t.Errorf("ModuleDeps(unknown) = %v, want nil", got)
	}
}

func TestIterationOrder(t *testing.T) {
	b := NewBuilder()
	for _, n := range []string{"c", "a", "b"} {
		b.AddModule(Module{Name: n})
	}
	g, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for m := range g.Modules() {
		names = append(names, m.Name)
	}
	if want := []string{"a", "b", "c"}; !slices.Equal(names, want) {
		t.Errorf("Modules() = %v, want %v", names, want)
	}

	names = nil
	for m := range g.Modules() {
		names = append(names, m.Name)
		break
	}
	if len(names) != 1 {
		t.Errorf("Modules() early break yielded %d", len(names))
	}
}

func TestTransitiveDeps(t *testing.T) {
	b := NewBuilder()
	a := b.AddModule(Module{Name: "a"})
	c := b.AddModule(Module{Name: "c"})
	d := b.AddModule(Module{Name: "d"})
	tst := b.AddModule(Module{Name: "t"})
	b.AddModuleDep(a, c, false)
	b.AddModuleDep(c, d, false)
	b.AddModuleDep(d, a, false) // cycle
	b.AddModuleDep(c, tst, true)
	g, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}

	if got := g.Names(g.TransitiveDeps(a, false)); !slices.Equal(got, []string{"c", "d"}) {
		t.Errorf("TransitiveDeps(a, false) = %v", got)
	}
	if got := g.Names(g.TransitiveDeps(a, true)); !slices.Equal(got, []string{"c", "d", "t"}) {
		t.Errorf("TransitiveDeps(a, true) = %v", got)
	}
	if !g.HasModuleDep(c, tst) || g.HasModuleDep(tst, c) {
		t.Errorf("HasModuleDep direction wrong")
	}
	if got := g.Names(g.ProductionDeps(c)); !slices.Equal(got, []string{"d"}) {
		t.Errorf("ProductionDeps(c) = %v", got)
	}
}

func TestModuleDepProductionWins(t *testing.T) {
	b := NewBuilder()
	a := b.AddModule(Module{Name: "a"})
	c := b.AddModule(Module{Name: "c"})
	b.AddModuleDep(a, c, true)
	b.AddModuleDep(a, c, false)
	g, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}
	deps := g.ModuleDeps(a)
	if len(deps) != 1 || deps[0].Test {
		t.Errorf("ModuleDeps(a) = %+v, want one production edge", deps)
	}
	if got := g.ModuleDependents(c); !slices.Equal(got, []ID{a}) {
		t.Errorf("ModuleDependents(c) = %v", got)
	}
}

func TestProductModules(t *testing.T) {
	b := NewBuilder()
	m1 := b.AddModule(Module{Name: "m1"})
	m2 := b.AddModule(Module{Name: "m2"})
	m3 := b.AddModule(Module{Name: "m3"})
	outer := b.AddModuleSet(ModuleSet{Name: "outer"})
	inner := b.AddModuleSet(ModuleSet{Name: "inner"})
	other := b.AddModuleSet(ModuleSet{Name: "other"})
	b.Include(outer, inner)
	b.Include(other, inner) // diamond: inner reachable twice
	b.Include(inner, outer) // cycle
	b.AddContent(outer, ContentEntry{Module: m1})
	b.AddContent(inner, ContentEntry{Module: m2, Mode: LoadingRequired})
	b.AddContent(other, ContentEntry{Module: m3})

	prod := b.AddProduct(Product{Name: "IDE"})
	b.AddContent(prod, ContentEntry{Module: m1})
	b.Include(prod, outer)
	b.Include(prod, other)
	g, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}

	contribs := g.ProductModules(prod)
	count := map[ID]int{}
	for _, c := range contribs {
		count[c.Module]++
	}
	if count[m1] != 2 || count[m2] != 1 || count[m3] != 1 {
		t.Errorf("ProductModules() counts = %v, want m1:2 m2:1 m3:1", count)
	}
	// other -> inner -> outer -> m1
	if !g.ModuleSetContains(outer, m2) || !g.ModuleSetContains(other, m1) {
		t.Errorf("ModuleSetContains() misses nested members")
	}

	cycles := g.ModuleSetCycles()
	if len(cycles) != 1 {
		t.Fatalf("ModuleSetCycles() = %v, want one cycle", cycles)
	}
	if got := g.Names(cycles[0]); !slices.Equal(got, []string{"inner", "outer"}) {
		t.Errorf("cycle = %v, want [inner outer]", got)
	}
}

func TestProductAvailable(t *testing.T) {
	b := NewBuilder()
	prodMod := b.AddModule(Module{Name: "prod"})
	testMod := b.AddModule(Module{Name: "testonly"})
	direct := b.AddModule(Module{Name: "direct"})
	p := b.AddPlugin(Plugin{Name: "p"})
	tp := b.AddPlugin(Plugin{Name: "tp", Test: true})
	b.AddContent(p, ContentEntry{Module: prodMod})
	b.AddContent(tp, ContentEntry{Module: testMod})
	product := b.AddProduct(Product{Name: "IDE"})
	b.AddContent(product, ContentEntry{Module: direct})
	b.Bundle(product, p, false)
	b.Bundle(product, tp, true)
	g, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}

	avail := g.ProductAvailable(product, false)
	if !avail[prodMod] || !avail[direct] || avail[testMod] {
		t.Errorf("ProductAvailable(false) = %v", avail)
	}
	if !g.ProductAvailable(product, true)[testMod] {
		t.Errorf("ProductAvailable(true) lacks test content")
	}
	if got := g.PluginProducts(tp); len(got) != 1 || !got[0].Test {
		t.Errorf("PluginProducts(tp) = %+v", got)
	}
}

func TestFingerprintOrderIndependent(t *testing.T) {
	build := func(names ...string) string {
		b := NewBuilder()
		ids := map[string]ID{}
		for _, n := range names {
			ids[n] = b.AddModule(Module{Name: n})
		}
		b.AddModuleDep(ids["a"], ids["b"], false)
		g, err := b.Build()
		if err != nil {
			t.Fatal(err)
		}
		return g.Fingerprint()
	}
	if build("a", "b") != build("b", "a") {
		t.Errorf("Fingerprint depends on declaration order")
	}

	b := NewBuilder()
	b.AddModule(Module{Name: "a"})
	b.AddModule(Module{Name: "b"})
	g, _ := b.Build()
	if g.Fingerprint() == build("a", "b") {
		t.Errorf("Fingerprint ignores edges")
	}
}

func TestParseLoadingMode(t *testing.T) {
	tests := []struct {
		input   string
		want    LoadingMode
		wantErr bool
	}{
		{"", LoadingUnset, false},
		{"required", LoadingRequired, false},
		{"on-demand", LoadingOnDemand, false},
		{"on_demand", LoadingOnDemand, false},
		{"embedded", LoadingEmbedded, false},
		{"lazy", LoadingUnset, true},
	}
	for _, tt := range tests {
		got, err := ParseLoadingMode(tt.input)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseLoadingMode(%q) = %v, %v, want %v, wantErr %v", tt.input, got, err, tt.want, tt.wantErr)
		}
	}
}

func TestExpectedTargetName(t *testing.T) {
	tests := []struct{ in, want string }{
		{"intellij.git", "intellij.git"},
		{"intellij.git/ui", "intellij.git.ui"},
		{"a/b/c", "a.b.c"},
	}
	for _, tt := range tests {
		if got := ExpectedTargetName(tt.in); got != tt.want {
			t.Errorf("ExpectedTargetName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
