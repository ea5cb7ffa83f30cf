package graph_test

import (
	"fmt"

	"github.com/matzehuels/modgraph/pkg/graph"
)

func ExampleBuilder() {
	b := graph.NewBuilder()
	core := b.AddModule(graph.Module{Name: "app.core", Critical: true})
	util := b.AddModule(graph.Module{Name: "app.util"})
	b.AddModuleDep(core, util, false)

	plugin := b.AddPlugin(graph.Plugin{Name: "app", PluginID: "com.example.app"})
	b.AddContent(plugin, graph.ContentEntry{Module: core, Mode: graph.LoadingRequired})
	b.AddContent(plugin, graph.ContentEntry{Module: util})

	g, err := b.Build()
	if err != nil {
		fmt.Println(err)
		return
	}
	for m := range g.Modules() {
		fmt.Println(m.Name, "deps:", g.Names(g.ProductionDeps(m.ID)))
	}
	// Output:
	// app.core deps: [app.util]
	// app.util deps: []
}

func ExampleGraph_ProductModules() {
	b := graph.NewBuilder()
	m1 := b.AddModule(graph.Module{Name: "m1"})
	m2 := b.AddModule(graph.Module{Name: "m2"})
	set := b.AddModuleSet(graph.ModuleSet{Name: "essentials"})
	b.AddContent(set, graph.ContentEntry{Module: m2})
	product := b.AddProduct(graph.Product{Name: "IDE"})
	b.AddContent(product, graph.ContentEntry{Module: m1})
	b.Include(product, set)

	g, _ := b.Build()
	for _, c := range g.ProductModules(product) {
		via := "product"
		if c.Via != graph.NoID {
			via = g.Name(c.Via)
		}
		fmt.Println(g.Name(c.Module), "via", via)
	}
	// Output:
	// m1 via product
	// m2 via essentials
}

func ExampleGraph_ModuleByName() {
	g, _ := graph.NewBuilder().Build()
	_, ok := g.ModuleByName("nowhere")
	fmt.Println("found:", ok)
	// Output:
	// found: false
}
