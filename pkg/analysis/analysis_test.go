package analysis

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/matzehuels/modgraph/pkg/errors"
	"github.com/matzehuels/modgraph/pkg/graph"
	mgio "github.com/matzehuels/modgraph/pkg/io"
)

// sampleGraph nests libraries.core in libraries in essential, adds an
// unrelated set repeating libraries.core, and two products: IDE through
// essential and Lite through libraries.core plus a direct copy of a.
func sampleGraph(t *testing.T) *graph.Graph {
	t.Helper()
	b := graph.NewBuilder()
	mods := map[string]graph.ID{}
	for _, n := range []string{"a", "b", "c", "d", "e"} {
		mods[n] = b.AddModule(graph.Module{Name: n})
	}
	essential := b.AddModuleSet(graph.ModuleSet{Name: "essential", Source: "sets/essential.kts"})
	libraries := b.AddModuleSet(graph.ModuleSet{Name: "libraries", Source: "sets/libraries.kts"})
	core := b.AddModuleSet(graph.ModuleSet{Name: "libraries.core", Source: "sets/libraries.kts"})
	extra := b.AddModuleSet(graph.ModuleSet{Name: "extra"})
	b.Include(essential, libraries)
	b.Include(libraries, core)
	b.AddContent(essential, graph.ContentEntry{Module: mods["d"]})
	b.AddContent(libraries, graph.ContentEntry{Module: mods["c"]})
	b.AddContent(core, graph.ContentEntry{Module: mods["a"]})
	b.AddContent(core, graph.ContentEntry{Module: mods["b"]})
	b.AddContent(extra, graph.ContentEntry{Module: mods["a"]})
	b.AddContent(extra, graph.ContentEntry{Module: mods["b"]})

	plugin := b.AddPlugin(graph.Plugin{Name: "core", PluginID: "com.core"})
	b.AddContent(plugin, graph.ContentEntry{Module: mods["e"]})

	ide := b.AddProduct(graph.Product{Name: "IDE", Source: "products/ide.kts"})
	b.Bundle(ide, plugin, false)
	b.Include(ide, essential)
	b.AddContent(ide, graph.ContentEntry{Module: mods["e"]})

	lite := b.AddProduct(graph.Product{Name: "Lite"})
	b.Include(lite, core)
	b.AddContent(lite, graph.ContentEntry{Module: mods["a"]})

	g, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}
	return g
}

func TestAnalyzeFull(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	rep, err := Analyze(sampleGraph(t), Options{Now: now})
	if err != nil {
		t.Fatal(err)
	}
	if !rep.Timestamp.Equal(now) {
		t.Errorf("Timestamp = %v, want %v", rep.Timestamp, now)
	}
	if len(rep.ModuleSets) != 4 || len(rep.Products) != 2 {
		t.Fatalf("ModuleSets = %d, Products = %d", len(rep.ModuleSets), len(rep.Products))
	}
	for _, section := range []any{rep.Duplicates, rep.Composition, rep.Usage, rep.Overlap} {
		if reflect.ValueOf(section).IsNil() {
			t.Errorf("full report lacks a section: %+v", rep)
		}
	}
	if rep.Product != nil || rep.ModuleSet != nil {
		t.Errorf("full report carries single-item sections")
	}
}

func TestProductCounts(t *testing.T) {
	rep, err := Analyze(sampleGraph(t), Options{Filter: FilterProducts})
	if err != nil {
		t.Fatal(err)
	}
	want := []Product{
		{
			Name:              "IDE",
			SourceFile:        "products/ide.kts",
			Plugins:           []string{"core"},
			ModuleSets:        []string{"essential"},
			DirectModules:     []string{"e"},
			TotalModuleCount:  5,
			DirectModuleCount: 1,
			ModuleSetCount:    1,
			UniqueModuleCount: 5,
		},
		{
			Name:              "Lite",
			Plugins:           []string{},
			ModuleSets:        []string{"libraries.core"},
			DirectModules:     []string{"a"},
			TotalModuleCount:  3,
			DirectModuleCount: 1,
			ModuleSetCount:    1,
			UniqueModuleCount: 2,
		},
	}
	if !reflect.DeepEqual(rep.Products, want) {
		t.Errorf("Products =\n%+v\nwant\n%+v", rep.Products, want)
	}
	if rep.ModuleSets != nil || rep.Duplicates != nil {
		t.Errorf("filtered report carries other sections")
	}
}

func TestModuleSetFlattening(t *testing.T) {
	rep, err := Analyze(sampleGraph(t), Options{Filter: FilterModuleSet, Value: "essential"})
	if err != nil {
		t.Fatal(err)
	}
	want := &ModuleSet{
		Name:                "essential",
		SourceFile:          "sets/essential.kts",
		Modules:             []string{"d"},
		Includes:            []string{"libraries"},
		AllModulesFlattened: []string{"a", "b", "c", "d"},
	}
	if !reflect.DeepEqual(rep.ModuleSet, want) {
		t.Errorf("ModuleSet = %+v, want %+v", rep.ModuleSet, want)
	}
}

func TestHierarchy(t *testing.T) {
	rep, err := Analyze(sampleGraph(t), Options{})
	if err != nil {
		t.Fatal(err)
	}
	want := Hierarchy{Includes: []string{"libraries.core"}, IncludedBy: []string{"essential"}, ModuleCount: 1}
	if got := rep.Hierarchy["libraries"]; !reflect.DeepEqual(got, want) {
		t.Errorf("Hierarchy[libraries] = %+v, want %+v", got, want)
	}
	if got := rep.Hierarchy["extra"]; len(got.Includes) != 0 || len(got.IncludedBy) != 0 || got.ModuleCount != 2 {
		t.Errorf("Hierarchy[extra] = %+v", got)
	}
}

func TestDistributionAndUsage(t *testing.T) {
	rep, err := Analyze(sampleGraph(t), Options{})
	if err != nil {
		t.Fatal(err)
	}
	wantA := Distribution{
		InModuleSets: []string{"essential", "extra", "libraries", "libraries.core"},
		InProducts:   []string{"IDE", "Lite"},
		InPlugins:    []string{},
	}
	if got := rep.Distribution["a"]; !reflect.DeepEqual(got, wantA) {
		t.Errorf("Distribution[a] = %+v, want %+v", got, wantA)
	}
	if got := rep.Distribution["e"]; !reflect.DeepEqual(got.InPlugins, []string{"core"}) || !reflect.DeepEqual(got.InProducts, []string{"IDE"}) {
		t.Errorf("Distribution[e] = %+v", got)
	}

	usage := rep.Usage.Modules["c"]
	wantSets := []Ref{
		{Name: "essential", SourceFile: "sets/essential.kts"},
		{Name: "libraries", SourceFile: "sets/libraries.kts"},
	}
	if !reflect.DeepEqual(usage.ModuleSets, wantSets) {
		t.Errorf("Usage[c].ModuleSets = %+v, want %+v", usage.ModuleSets, wantSets)
	}
	if want := []Ref{{Name: "IDE", SourceFile: "products/ide.kts"}}; !reflect.DeepEqual(usage.Products, want) {
		t.Errorf("Usage[c].Products = %+v, want %+v", usage.Products, want)
	}
}

func TestComposition(t *testing.T) {
	rep, err := Analyze(sampleGraph(t), Options{Filter: FilterComposition})
	if err != nil {
		t.Fatal(err)
	}
	ide := rep.Composition.Products[0]
	if ide.ProductName != "IDE" {
		t.Fatalf("first product = %q, want IDE", ide.ProductName)
	}
	wantCounts := map[string]int{"plugin": 1, "module": 1, "moduleSet": 1, "nestedSet": 2}
	if !reflect.DeepEqual(ide.CompositionCounts, wantCounts) {
		t.Errorf("CompositionCounts = %v, want %v", ide.CompositionCounts, wantCounts)
	}
	if ide.TotalCompositionOperations != 5 {
		t.Errorf("TotalCompositionOperations = %d, want 5", ide.TotalCompositionOperations)
	}
	wantRefs := []SetReference{
		{Name: "essential", Path: []string{"essential"}},
		{Name: "libraries", Path: []string{"essential", "libraries"}},
		{Name: "libraries.core", Path: []string{"essential", "libraries", "libraries.core"}},
	}
	if !reflect.DeepEqual(ide.ModuleSetReferences, wantRefs) {
		t.Errorf("ModuleSetReferences = %+v, want %+v", ide.ModuleSetReferences, wantRefs)
	}
}

func TestDuplicates(t *testing.T) {
	rep, err := Analyze(sampleGraph(t), Options{Filter: FilterDuplicates})
	if err != nil {
		t.Fatal(err)
	}
	want := []MultiSetModule{
		{ModuleName: "a", AppearsInSets: []string{"extra", "libraries.core"}},
		{ModuleName: "b", AppearsInSets: []string{"extra", "libraries.core"}},
	}
	if !reflect.DeepEqual(rep.Duplicates.ModulesInMultipleSets, want) {
		t.Errorf("ModulesInMultipleSets = %+v, want %+v", rep.Duplicates.ModulesInMultipleSets, want)
	}
	// no pair shares more than five flattened modules
	if len(rep.Duplicates.SetOverlapAnalysis) != 0 {
		t.Errorf("SetOverlapAnalysis = %+v, want none", rep.Duplicates.SetOverlapAnalysis)
	}
}

func TestSetOverlapAnalysis(t *testing.T) {
	b := graph.NewBuilder()
	big := b.AddModuleSet(graph.ModuleSet{Name: "big"})
	small := b.AddModuleSet(graph.ModuleSet{Name: "small"})
	for _, n := range []string{"m1", "m2", "m3", "m4", "m5", "m6", "m7"} {
		m := b.AddModule(graph.Module{Name: n})
		b.AddContent(big, graph.ContentEntry{Module: m})
		if n != "m7" {
			b.AddContent(small, graph.ContentEntry{Module: m})
		}
	}
	g, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}
	rep, err := Analyze(g, Options{Filter: FilterDuplicates})
	if err != nil {
		t.Fatal(err)
	}
	want := []SetPair{{
		Set1:              "big",
		Set2:              "small",
		OverlapCount:      6,
		Set1TotalModules:  7,
		Set2TotalModules:  6,
		OverlapPercentage: 100,
		UniqueToSet1:      []string{"m7"},
	}}
	if !reflect.DeepEqual(rep.Duplicates.SetOverlapAnalysis, want) {
		t.Errorf("SetOverlapAnalysis = %+v, want %+v", rep.Duplicates.SetOverlapAnalysis, want)
	}
}

func TestOverlapSkipsNestedSets(t *testing.T) {
	rep, err := Analyze(sampleGraph(t), Options{})
	if err != nil {
		t.Fatal(err)
	}
	want := []SetOverlap{{
		ModuleSet1:     "extra",
		ModuleSet2:     "libraries.core",
		Relationship:   "subset",
		OverlapPercent: 100,
		SharedModules:  2,
		TotalModules1:  2,
		TotalModules2:  2,
		Recommendation: "extra is fully contained in libraries.core; consider removing extra",
	}}
	if !reflect.DeepEqual(rep.Overlap.Overlaps, want) {
		t.Errorf("Overlaps = %+v, want %+v", rep.Overlap.Overlaps, want)
	}
	if rep.Overlap.Count != 1 || rep.Overlap.MinPercent != DefaultMinOverlapPercent {
		t.Errorf("Overlap = %+v", rep.Overlap)
	}
}

func TestRecommend(t *testing.T) {
	tests := []struct {
		relationship string
		percent      int
		want         string
	}{
		{"superset", 100, "y is fully contained in x"},
		{"overlap", 85, "high overlap (85%)"},
		{"overlap", 60, "moderate overlap (60%)"},
	}
	for _, tt := range tests {
		if got := recommend("x", "y", tt.relationship, tt.percent); !strings.Contains(got, tt.want) {
			t.Errorf("recommend(%s, %d) = %q, want it to contain %q", tt.relationship, tt.percent, got, tt.want)
		}
	}
}

func TestAnalyzeErrors(t *testing.T) {
	g := sampleGraph(t)
	tests := []struct {
		name string
		opts Options
		code errors.Code
	}{
		{"unknown product", Options{Filter: FilterProduct, Value: "nope"}, errors.ErrCodeNotFound},
		{"unknown module set", Options{Filter: FilterModuleSet, Value: "nope"}, errors.ErrCodeNotFound},
		{"unknown filter", Options{Filter: "everything"}, errors.ErrCodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Analyze(g, tt.opts)
			if !errors.Is(err, tt.code) {
				t.Errorf("Analyze() error = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestEncode(t *testing.T) {
	rep, err := Analyze(sampleGraph(t), Options{Filter: FilterProduct, Value: "Lite"})
	if err != nil {
		t.Fatal(err)
	}

	data, err := rep.Encode(mgio.FormatJSON)
	if err != nil {
		t.Fatal(err)
	}
	var fromJSON map[string]any
	if err := json.Unmarshal(data, &fromJSON); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, data)
	}
	if _, ok := fromJSON["product"]; !ok {
		t.Errorf("JSON lacks product:\n%s", data)
	}
	if _, ok := fromJSON["products"]; ok {
		t.Errorf("JSON carries filtered-out products:\n%s", data)
	}

	data, err = rep.Encode(mgio.FormatYAML)
	if err != nil {
		t.Fatal(err)
	}
	var fromYAML struct {
		Product Product `yaml:"product"`
	}
	if err := yaml.Unmarshal(data, &fromYAML); err != nil {
		t.Fatalf("invalid YAML: %v\n%s", err, data)
	}
	if fromYAML.Product.UniqueModuleCount != 2 {
		t.Errorf("YAML product = %+v", fromYAML.Product)
	}

	if _, err := rep.Encode(mgio.FormatTOML); !errors.Is(err, errors.ErrCodeInvalidFormat) {
		t.Errorf("Encode(toml) error = %v, want %s", err, errors.ErrCodeInvalidFormat)
	}
}
