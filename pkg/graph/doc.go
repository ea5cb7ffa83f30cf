// Package graph provides the read-only query engine over a product's
// module/plugin composition graph.
//
// # Overview
//
// A composition graph has five node kinds, each with a graph-wide unique
// [ID] and a name that is unique within its kind:
//
//   - [Module]: a content module, the unit of bundled functionality
//   - [Target]: a compiled build unit backing a module (or a library)
//   - [Plugin]: a named unit with content modules and plugin dependencies
//   - [Product]: bundles plugins, includes module sets, owns content modules
//   - [ModuleSet]: a named, optionally self-contained, group of modules
//
// Graphs are assembled once with a [Builder] and are immutable afterwards.
// Every query returns value types or fresh slices, so any number of
// goroutines may query the same [Graph] without synchronization.
//
// # Basic Usage
//
//	b := graph.NewBuilder()
//	core := b.AddModule(graph.Module{Name: "app.core", Critical: true})
//	util := b.AddModule(graph.Module{Name: "app.util"})
//	b.AddModuleDep(core, util, false)
//	g, err := b.Build()
//	if err != nil {
//	    return err
//	}
//	for m := range g.Modules() {
//	    fmt.Println(m.Name, len(g.ModuleDeps(m.ID)))
//	}
//
// # Lookups
//
// Lookups by name or ID return (value, ok). An unknown name is an ordinary,
// expected outcome and never an error.
//
// # Naming Convention
//
// A content module is backed by exactly one build target whose name is
// derived by [ExpectedTargetName]: slashes in the module name become dots.
package graph
