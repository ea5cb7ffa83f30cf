package deps

import (
	"path/filepath"

	"github.com/matzehuels/modgraph/pkg/graph"
)

// BuildDep is one raw build dependency of a build unit.
type BuildDep struct {
	Target  string      // name of the depended-on build unit
	Scope   graph.Scope // compile, runtime, test or provided
	Library bool        // the dependency is a third-party library, not a module
}

// BuildModel is the build-level dependency model. It enumerates the raw
// dependencies of a build unit and classifies build units as modules.
type BuildModel interface {
	// Dependencies returns the raw dependencies of a build unit, or nil for
	// an unknown unit.
	Dependencies(target string) []BuildDep
	// ModuleOf returns the content module a build unit backs.
	ModuleOf(target string) (string, bool)
}

// ModuleHandle identifies a build module resolved by [ModuleOutputs].
type ModuleHandle struct {
	Name string // build module (target) name
}

// ModuleOutputs resolves build module names to compiled outputs and files.
type ModuleOutputs interface {
	// FindModule reports whether a build module of that name exists.
	FindModule(name string) (ModuleHandle, bool)
	// DescriptorFile returns the path of the XML descriptor belonging to a
	// resolved module, or false when the module has none.
	DescriptorFile(h ModuleHandle) (string, bool)
}

// SourceLocator returns the file believed to declare a product, module set
// or plugin. It is only used to anchor patches; a failed lookup means no
// patch is offered.
type SourceLocator interface {
	Locate(kind graph.Kind, name string) (string, bool)
}

// =============================================================================
// Graph-backed collaborators
// =============================================================================

// GraphModel implements [BuildModel] over the targets recorded in a graph.
type GraphModel struct {
	G *graph.Graph
}

var _ BuildModel = GraphModel{}

// Dependencies returns the target's recorded dependencies.
func (m GraphModel) Dependencies(target string) []BuildDep {
	t, ok := m.G.TargetByName(target)
	if !ok {
		return nil
	}
	raw := m.G.TargetDeps(t.ID)
	out := make([]BuildDep, 0, len(raw))
	for _, d := range raw {
		dep, _ := m.G.Target(d.Target)
		out = append(out, BuildDep{Target: dep.Name, Scope: d.Scope, Library: dep.Library})
	}
	return out
}

// ModuleOf returns the first module backed by the target.
func (m GraphModel) ModuleOf(target string) (string, bool) {
	t, ok := m.G.TargetByName(target)
	if !ok || t.Library {
		return "", false
	}
	mods := m.G.TargetModules(t.ID)
	if len(mods) == 0 {
		return "", false
	}
	return mods[0].Name, true
}

// GraphOutputs implements [ModuleOutputs] over the graph: every non-library
// target that backs a module counts as built. Descriptor paths are resolved
// against Root.
type GraphOutputs struct {
	G    *graph.Graph
	Root string
}

var _ ModuleOutputs = GraphOutputs{}

// FindModule reports whether name is a built module target.
func (o GraphOutputs) FindModule(name string) (ModuleHandle, bool) {
	t, ok := o.G.TargetByName(name)
	if !ok || t.Library || len(o.G.TargetModules(t.ID)) == 0 {
		return ModuleHandle{}, false
	}
	return ModuleHandle{Name: name}, true
}

// DescriptorFile returns the descriptor of the first backed module that
// declares one.
func (o GraphOutputs) DescriptorFile(h ModuleHandle) (string, bool) {
	t, ok := o.G.TargetByName(h.Name)
	if !ok {
		return "", false
	}
	for _, m := range o.G.TargetModules(t.ID) {
		if m.Descriptor != "" {
			return resolve(o.Root, m.Descriptor), true
		}
	}
	return "", false
}

// GraphLocator implements [SourceLocator] from the source paths recorded on
// graph nodes, resolved against Root.
type GraphLocator struct {
	G    *graph.Graph
	Root string
}

var _ SourceLocator = GraphLocator{}

// Locate returns the declaring file of a product, module set or plugin.
func (l GraphLocator) Locate(kind graph.Kind, name string) (string, bool) {
	var path string
	switch kind {
	case graph.KindProduct:
		p, _ := l.G.ProductByName(name)
		path = p.Source
	case graph.KindModuleSet:
		s, _ := l.G.ModuleSetByName(name)
		path = s.Source
	case graph.KindPlugin:
		p, _ := l.G.PluginByName(name)
		path = p.Descriptor
	case graph.KindModule:
		m, _ := l.G.ModuleByName(name)
		path = m.Descriptor
	}
	if path == "" {
		return "", false
	}
	return resolve(l.Root, path), true
}

func resolve(root, path string) string {
	if root == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(root, path)
}
