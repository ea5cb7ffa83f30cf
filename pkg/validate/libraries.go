package validate

import (
	"context"
	"strings"

	"github.com/matzehuels/modgraph/pkg/deps"
	"github.com/matzehuels/modgraph/pkg/graph"
	"github.com/matzehuels/modgraph/pkg/patch"
	"github.com/matzehuels/modgraph/pkg/pipeline"
	"github.com/matzehuels/modgraph/pkg/violation"
)

// checkLibraryModules reports modules whose build references a library
// directly although a library wrapper module exists for it. The fix
// declares the wrapper in the module descriptor.
func checkLibraryModules(ctx context.Context, c *pipeline.RuleContext) error {
	backing, err := pipeline.Input(c, Backing)
	if err != nil {
		return err
	}
	g := c.Graph()
	wrappers := libraryWrappers(g, c.Options().LibraryModulePrefix)
	return pipeline.ForEach(ctx, c, sortedByName(g, backing), func(_ context.Context, id graph.ID) error {
		m, _ := g.Module(id)
		if m.Library != "" {
			return nil
		}
		var refs []violation.LibraryRef
		for _, bd := range deps.LibraryDeps(g, id, c.Model()) {
			w, ok := wrappers[bd.Target]
			if !ok || w == m.Name || c.Suppressed(m.Name, bd.Target) {
				continue
			}
			refs = append(refs, violation.LibraryRef{Library: bd.Target, Wrapper: w})
		}
		if len(refs) == 0 {
			return nil
		}
		v := violation.Violation{Context: m.Name, Payload: violation.Library{Module: m.Name, Refs: refs}}
		if h, ok := c.Outputs().FindModule(backing[id].Name); ok {
			if path, ok := c.Outputs().DescriptorFile(h); ok {
				var names []string
				for _, r := range refs {
					names = appendUnique(names, r.Wrapper)
				}
				v.Patches, v.Fixes = insertionFix(c, path, inTag("dependencies"), moduleElements(names),
					"depend on library modules in "+m.Name)
			}
		}
		c.Report(v)
		return nil
	})
}

// libraryWrappers maps library names to the module wrapping them. Modules
// recording the library they wrap take precedence over modules merely named
// with the wrapper prefix.
func libraryWrappers(g *graph.Graph, prefix string) map[string]string {
	out := map[string]string{}
	for m := range g.Modules() {
		if lib, ok := strings.CutPrefix(m.Name, prefix); ok && m.Library == "" && lib != "" {
			out[lib] = m.Name
		}
	}
	for m := range g.Modules() {
		if m.Library != "" {
			out[m.Library] = m.Name
		}
	}
	return out
}

// checkTestLibraryScope reports modules using a test-only library outside
// test scope. The fix sets scope="TEST" on the library's order entry in the
// backing target's build file.
func checkTestLibraryScope(ctx context.Context, c *pipeline.RuleContext) error {
	backing, err := pipeline.Input(c, Backing)
	if err != nil {
		return err
	}
	opts := c.Options()
	if len(opts.TestLibraries) == 0 {
		return nil
	}
	g := c.Graph()
	return pipeline.ForEach(ctx, c, sortedByName(g, backing), func(_ context.Context, id graph.ID) error {
		m, _ := g.Module(id)
		t := backing[id]
		var libs []string
		for _, bd := range c.Model().Dependencies(t.Name) {
			if !bd.Library || bd.Scope == graph.ScopeTest || !opts.IsTestLibrary(bd.Target) {
				continue
			}
			if c.Suppressed(m.Name, bd.Target) {
				continue
			}
			libs = appendUnique(libs, bd.Target)
		}
		if len(libs) == 0 {
			return nil
		}
		v := violation.Violation{Context: m.Name, Payload: violation.TestLibrary{Module: m.Name, Libraries: libs}}
		if t.BuildFile != "" {
			edit := func(content string) (string, bool, error) {
				changed := false
				for _, lib := range libs {
					var ok bool
					content, ok = patch.SetAttribute(content, "orderEntry", "name", lib, "scope", "TEST")
					changed = changed || ok
				}
				return content, changed, nil
			}
			v.Patches, v.Fixes = rewrite(c, c.Path(t.BuildFile), "restrict test libraries of "+m.Name+" to test scope", edit)
		}
		c.Report(v)
		return nil
	})
}
