package analysis

import (
	"bytes"
	"cmp"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/matzehuels/modgraph/pkg/errors"
	"github.com/matzehuels/modgraph/pkg/graph"
	mgio "github.com/matzehuels/modgraph/pkg/io"
)

// Filter selects the part of the report to compute.
type Filter string

const (
	FilterAll         Filter = ""
	FilterProducts    Filter = "products"
	FilterModuleSets  Filter = "moduleSets"
	FilterComposition Filter = "composition"
	FilterDuplicates  Filter = "duplicates"
	FilterProduct     Filter = "product"   // needs Options.Value
	FilterModuleSet   Filter = "moduleSet" // needs Options.Value
)

// Filters returns the named filters, for flag completion.
func Filters() []Filter {
	return []Filter{FilterProducts, FilterModuleSets, FilterComposition, FilterDuplicates, FilterProduct, FilterModuleSet}
}

const (
	// DefaultMinOverlapPercent is the module-set overlap threshold.
	DefaultMinOverlapPercent = 50

	// minSharedModules is how many flattened modules two sets must share
	// before the duplicate analysis lists the pair.
	minSharedModules = 5

	// maxUniqueListed caps the unique-module samples of a set pair.
	maxUniqueListed = 10
)

// Options configure [Analyze].
type Options struct {
	Filter Filter
	// Value names the product or module set for FilterProduct and
	// FilterModuleSet.
	Value string
	// MinOverlapPercent defaults to DefaultMinOverlapPercent.
	MinOverlapPercent int
	// Now stamps the report; the current time when zero.
	Now time.Time
}

// =============================================================================
// Report
// =============================================================================

// Report is the composition analysis of a graph. Sections left out by the
// filter are nil.
type Report struct {
	Timestamp    time.Time               `json:"timestamp" yaml:"timestamp"`
	ModuleSets   []ModuleSet             `json:"moduleSets,omitempty" yaml:"moduleSets,omitempty"`
	Products     []Product               `json:"products,omitempty" yaml:"products,omitempty"`
	Duplicates   *Duplicates             `json:"duplicateAnalysis,omitempty" yaml:"duplicateAnalysis,omitempty"`
	Composition  *Composition            `json:"productCompositionAnalysis,omitempty" yaml:"productCompositionAnalysis,omitempty"`
	Distribution map[string]Distribution `json:"moduleDistribution,omitempty" yaml:"moduleDistribution,omitempty"`
	Hierarchy    map[string]Hierarchy    `json:"moduleSetHierarchy,omitempty" yaml:"moduleSetHierarchy,omitempty"`
	Usage        *UsageIndex             `json:"moduleUsageIndex,omitempty" yaml:"moduleUsageIndex,omitempty"`
	Overlap      *Overlap                `json:"moduleSetOverlap,omitempty" yaml:"moduleSetOverlap,omitempty"`
	Product      *Product                `json:"product,omitempty" yaml:"product,omitempty"`
	ModuleSet    *ModuleSet              `json:"moduleSet,omitempty" yaml:"moduleSet,omitempty"`
}

// Product summarizes one product.
type Product struct {
	Name          string   `json:"name" yaml:"name"`
	SourceFile    string   `json:"sourceFile,omitempty" yaml:"sourceFile,omitempty"`
	Plugins       []string `json:"plugins" yaml:"plugins"`
	ModuleSets    []string `json:"moduleSets" yaml:"moduleSets"`
	DirectModules []string `json:"directModules" yaml:"directModules"`
	// TotalModuleCount counts every contribution, so a module declared by
	// two owners counts twice. UniqueModuleCount counts distinct modules.
	TotalModuleCount  int `json:"totalModuleCount" yaml:"totalModuleCount"`
	DirectModuleCount int `json:"directModuleCount" yaml:"directModuleCount"`
	ModuleSetCount    int `json:"moduleSetCount" yaml:"moduleSetCount"`
	UniqueModuleCount int `json:"uniqueModuleCount" yaml:"uniqueModuleCount"`
}

// ModuleSet summarizes one module set.
type ModuleSet struct {
	Name                string   `json:"name" yaml:"name"`
	SourceFile          string   `json:"sourceFile,omitempty" yaml:"sourceFile,omitempty"`
	SelfContained       bool     `json:"selfContained,omitempty" yaml:"selfContained,omitempty"`
	Modules             []string `json:"modules" yaml:"modules"`
	Includes            []string `json:"includes" yaml:"includes"`
	AllModulesFlattened []string `json:"allModulesFlattened" yaml:"allModulesFlattened"`
}

// Duplicates lists repeated declarations across module sets.
type Duplicates struct {
	ModulesInMultipleSets []MultiSetModule `json:"modulesInMultipleSets" yaml:"modulesInMultipleSets"`
	SetOverlapAnalysis    []SetPair        `json:"setOverlapAnalysis" yaml:"setOverlapAnalysis"`
}

// MultiSetModule is a module declared directly by more than one set.
type MultiSetModule struct {
	ModuleName    string   `json:"moduleName" yaml:"moduleName"`
	AppearsInSets []string `json:"appearsInSets" yaml:"appearsInSets"`
}

// SetPair compares the flattened membership of two module sets.
type SetPair struct {
	Set1              string   `json:"set1" yaml:"set1"`
	Set2              string   `json:"set2" yaml:"set2"`
	OverlapCount      int      `json:"overlapCount" yaml:"overlapCount"`
	Set1TotalModules  int      `json:"set1TotalModules" yaml:"set1TotalModules"`
	Set2TotalModules  int      `json:"set2TotalModules" yaml:"set2TotalModules"`
	OverlapPercentage float64  `json:"overlapPercentage" yaml:"overlapPercentage"`
	UniqueToSet1      []string `json:"uniqueToSet1,omitempty" yaml:"uniqueToSet1,omitempty"`
	UniqueToSet2      []string `json:"uniqueToSet2,omitempty" yaml:"uniqueToSet2,omitempty"`
}

// Composition describes how each product is assembled.
type Composition struct {
	Products []ProductComposition `json:"products" yaml:"products"`
}

// ProductComposition counts the composition operations of one product.
type ProductComposition struct {
	ProductName string `json:"productName" yaml:"productName"`
	// CompositionCounts maps operation kinds (plugin, moduleSet,
	// nestedSet, module) to how often the product uses them.
	CompositionCounts          map[string]int `json:"compositionCounts" yaml:"compositionCounts"`
	TotalCompositionOperations int            `json:"totalCompositionOperations" yaml:"totalCompositionOperations"`
	ModuleSetReferences        []SetReference `json:"moduleSetReferences" yaml:"moduleSetReferences"`
}

// SetReference is a module set reached by a product, with the include path
// from the product's own module set down to it.
type SetReference struct {
	Name string   `json:"name" yaml:"name"`
	Path []string `json:"path" yaml:"path"`
}

// Distribution lists where a module is used.
type Distribution struct {
	InModuleSets []string `json:"inModuleSets" yaml:"inModuleSets"`
	InProducts   []string `json:"inProducts" yaml:"inProducts"`
	InPlugins    []string `json:"inPlugins" yaml:"inPlugins"`
}

// Hierarchy is the include structure around one module set.
type Hierarchy struct {
	Includes    []string `json:"includes" yaml:"includes"`
	IncludedBy  []string `json:"includedBy" yaml:"includedBy"`
	ModuleCount int      `json:"moduleCount" yaml:"moduleCount"`
}

// UsageIndex maps module names to the owners that reach them, with the
// files declaring those owners.
type UsageIndex struct {
	Modules map[string]Usage `json:"modules" yaml:"modules"`
}

// Usage is one module's entry in the [UsageIndex].
type Usage struct {
	ModuleSets []Ref `json:"moduleSets" yaml:"moduleSets"`
	Products   []Ref `json:"products" yaml:"products"`
}

// Ref names an owner and the file declaring it.
type Ref struct {
	Name       string `json:"name" yaml:"name"`
	SourceFile string `json:"sourceFile,omitempty" yaml:"sourceFile,omitempty"`
}

// Overlap lists module-set pairs whose direct modules overlap. Sets related
// by inclusion are skipped: sharing modules is their purpose.
type Overlap struct {
	Overlaps   []SetOverlap `json:"overlaps" yaml:"overlaps"`
	Count      int          `json:"count" yaml:"count"`
	MinPercent int          `json:"minPercent" yaml:"minPercent"`
}

// SetOverlap is one overlapping pair. OverlapPercent is the shared share
// of the union, rounded down.
type SetOverlap struct {
	ModuleSet1     string `json:"moduleSet1" yaml:"moduleSet1"`
	ModuleSet2     string `json:"moduleSet2" yaml:"moduleSet2"`
	Relationship   string `json:"relationship" yaml:"relationship"` // subset, superset or overlap
	OverlapPercent int    `json:"overlapPercent" yaml:"overlapPercent"`
	SharedModules  int    `json:"sharedModules" yaml:"sharedModules"`
	TotalModules1  int    `json:"totalModules1" yaml:"totalModules1"`
	TotalModules2  int    `json:"totalModules2" yaml:"totalModules2"`
	Recommendation string `json:"recommendation" yaml:"recommendation"`
}

// Encode serializes the report as JSON or YAML.
func (r *Report) Encode(format mgio.Format) ([]byte, error) {
	switch format {
	case mgio.FormatJSON:
		data, err := json.MarshalIndent(r, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	case mgio.FormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return nil, err
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	return nil, errors.New(errors.ErrCodeInvalidFormat, "unsupported analysis format %q", format)
}

// =============================================================================
// Analyze
// =============================================================================

// Analyze computes the sections of the report selected by opts.Filter.
func Analyze(g *graph.Graph, opts Options) (*Report, error) {
	if opts.MinOverlapPercent <= 0 {
		opts.MinOverlapPercent = DefaultMinOverlapPercent
	}
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}
	a := analyzer{g: g}
	rep := &Report{Timestamp: opts.Now.UTC()}

	switch opts.Filter {
	case FilterAll:
		rep.ModuleSets = a.moduleSets()
		rep.Products = a.products()
		rep.Duplicates = a.duplicates()
		rep.Composition = a.composition()
		rep.Distribution = a.distribution()
		rep.Hierarchy = a.hierarchy()
		rep.Usage = a.usage()
		rep.Overlap = a.overlap(opts.MinOverlapPercent)
	case FilterProducts:
		rep.Products = a.products()
	case FilterModuleSets:
		rep.ModuleSets = a.moduleSets()
	case FilterComposition:
		rep.Composition = a.composition()
	case FilterDuplicates:
		rep.Duplicates = a.duplicates()
	case FilterProduct:
		p, ok := g.ProductByName(opts.Value)
		if !ok {
			return nil, errors.New(errors.ErrCodeNotFound, "product %q not found", opts.Value)
		}
		s := a.product(p)
		rep.Product = &s
	case FilterModuleSet:
		s, ok := g.ModuleSetByName(opts.Value)
		if !ok {
			return nil, errors.New(errors.ErrCodeNotFound, "module set %q not found", opts.Value)
		}
		m := a.moduleSet(s)
		rep.ModuleSet = &m
	default:
		return nil, errors.New(errors.ErrCodeInvalidInput, "unknown filter %q", opts.Filter)
	}
	return rep, nil
}

type analyzer struct {
	g *graph.Graph
}

// names returns the sorted, deduplicated names of ids.
func (a analyzer) names(ids []graph.ID) []string {
	out := a.g.Names(ids)
	slices.Sort(out)
	return slices.Compact(out)
}

// flattened returns the sorted names of every module in the closure of set.
func (a analyzer) flattened(set graph.ID) []string {
	var ids []graph.ID
	for _, c := range a.g.ModuleSetModules(set) {
		ids = append(ids, c.Module)
	}
	return a.names(ids)
}

// direct returns the sorted names of the modules set declares itself.
func (a analyzer) direct(set graph.ID) []string {
	var ids []graph.ID
	for _, e := range a.g.ModuleSetContent(set) {
		ids = append(ids, e.Module)
	}
	return a.names(ids)
}

func (a analyzer) products() []Product {
	var out []Product
	for p := range a.g.Products() {
		out = append(out, a.product(p))
	}
	return out
}

func (a analyzer) product(p graph.Product) Product {
	var plugins, direct []graph.ID
	for _, b := range a.g.ProductPlugins(p.ID) {
		plugins = append(plugins, b.Plugin)
	}
	for _, e := range a.g.ProductContent(p.ID) {
		direct = append(direct, e.Module)
	}
	contributions := a.g.ProductModules(p.ID)
	unique := map[graph.ID]bool{}
	for _, c := range contributions {
		unique[c.Module] = true
	}
	sets := a.g.ProductModuleSets(p.ID)
	return Product{
		Name:              p.Name,
		SourceFile:        p.Source,
		Plugins:           a.names(plugins),
		ModuleSets:        a.names(sets),
		DirectModules:     a.names(direct),
		TotalModuleCount:  len(contributions),
		DirectModuleCount: len(direct),
		ModuleSetCount:    len(sets),
		UniqueModuleCount: len(unique),
	}
}

func (a analyzer) moduleSets() []ModuleSet {
	var out []ModuleSet
	for s := range a.g.ModuleSets() {
		out = append(out, a.moduleSet(s))
	}
	return out
}

func (a analyzer) moduleSet(s graph.ModuleSet) ModuleSet {
	return ModuleSet{
		Name:                s.Name,
		SourceFile:          s.Source,
		SelfContained:       s.SelfContained,
		Modules:             a.direct(s.ID),
		Includes:            a.names(a.g.ModuleSetIncludes(s.ID)),
		AllModulesFlattened: a.flattened(s.ID),
	}
}

// =============================================================================
// Duplicates and overlap
// =============================================================================

func (a analyzer) duplicates() *Duplicates {
	d := &Duplicates{ModulesInMultipleSets: []MultiSetModule{}, SetOverlapAnalysis: []SetPair{}}

	declaring := map[string][]string{}
	var sets []graph.ModuleSet
	flat := map[graph.ID][]string{}
	for s := range a.g.ModuleSets() {
		sets = append(sets, s)
		flat[s.ID] = a.flattened(s.ID)
		for _, m := range a.direct(s.ID) {
			declaring[m] = append(declaring[m], s.Name)
		}
	}
	for _, m := range sortedKeys(declaring) {
		if owners := declaring[m]; len(owners) > 1 {
			d.ModulesInMultipleSets = append(d.ModulesInMultipleSets, MultiSetModule{ModuleName: m, AppearsInSets: owners})
		}
	}

	for i, s1 := range sets {
		for _, s2 := range sets[i+1:] {
			m1, m2 := flat[s1.ID], flat[s2.ID]
			shared := intersect(m1, m2)
			if len(shared) <= minSharedModules {
				continue
			}
			d.SetOverlapAnalysis = append(d.SetOverlapAnalysis, SetPair{
				Set1:              s1.Name,
				Set2:              s2.Name,
				OverlapCount:      len(shared),
				Set1TotalModules:  len(m1),
				Set2TotalModules:  len(m2),
				OverlapPercentage: float64(len(shared)) / float64(min(len(m1), len(m2))) * 100,
				UniqueToSet1:      head(subtract(m1, m2), maxUniqueListed),
				UniqueToSet2:      head(subtract(m2, m1), maxUniqueListed),
			})
		}
	}
	return d
}

func (a analyzer) overlap(minPercent int) *Overlap {
	o := &Overlap{Overlaps: []SetOverlap{}, MinPercent: minPercent}
	var sets []graph.ModuleSet
	nested := map[graph.ID]map[graph.ID]bool{}
	for s := range a.g.ModuleSets() {
		sets = append(sets, s)
		nested[s.ID] = map[graph.ID]bool{}
		for _, n := range a.g.ModuleSetClosure(s.ID) {
			nested[s.ID][n] = true
		}
	}
	for i, s1 := range sets {
		for _, s2 := range sets[i+1:] {
			if nested[s1.ID][s2.ID] || nested[s2.ID][s1.ID] {
				continue
			}
			m1, m2 := a.direct(s1.ID), a.direct(s2.ID)
			shared := intersect(m1, m2)
			if len(shared) == 0 {
				continue
			}
			union := len(m1) + len(m2) - len(shared)
			percent := len(shared) * 100 / union
			if percent < minPercent {
				continue
			}
			relationship := "overlap"
			switch len(shared) {
			case len(m1):
				relationship = "subset"
			case len(m2):
				relationship = "superset"
			}
			o.Overlaps = append(o.Overlaps, SetOverlap{
				ModuleSet1:     s1.Name,
				ModuleSet2:     s2.Name,
				Relationship:   relationship,
				OverlapPercent: percent,
				SharedModules:  len(shared),
				TotalModules1:  len(m1),
				TotalModules2:  len(m2),
				Recommendation: recommend(s1.Name, s2.Name, relationship, percent),
			})
		}
	}
	slices.SortStableFunc(o.Overlaps, func(x, y SetOverlap) int { return cmp.Compare(y.OverlapPercent, x.OverlapPercent) })
	o.Count = len(o.Overlaps)
	return o
}

func recommend(set1, set2, relationship string, percent int) string {
	switch {
	case relationship == "subset":
		return fmt.Sprintf("%s is fully contained in %s; consider removing %s", set1, set2, set1)
	case relationship == "superset":
		return fmt.Sprintf("%s is fully contained in %s; consider removing %s", set2, set1, set2)
	case percent >= 80:
		return fmt.Sprintf("high overlap (%d%%); review whether the modules should be reorganized", percent)
	default:
		return fmt.Sprintf("moderate overlap (%d%%); consider extracting the shared modules", percent)
	}
}

// =============================================================================
// Composition, distribution, hierarchy and usage
// =============================================================================

func (a analyzer) composition() *Composition {
	c := &Composition{Products: []ProductComposition{}}
	for p := range a.g.Products() {
		counts := map[string]int{
			"plugin":    len(a.g.ProductPlugins(p.ID)),
			"module":    len(a.g.ProductContent(p.ID)),
			"moduleSet": len(a.g.ProductModuleSets(p.ID)),
		}
		refs := a.setPaths(p.ID)
		counts["nestedSet"] = len(refs) - counts["moduleSet"]
		total := 0
		for _, n := range counts {
			total += n
		}
		c.Products = append(c.Products, ProductComposition{
			ProductName:                p.Name,
			CompositionCounts:          counts,
			TotalCompositionOperations: total,
			ModuleSetReferences:        refs,
		})
	}
	return c
}

// setPaths walks the module sets reachable from product breadth first,
// recording the shortest include path to each. Sets the product includes
// directly have a path of one element.
func (a analyzer) setPaths(product graph.ID) []SetReference {
	paths := map[graph.ID][]string{}
	var queue []graph.ID
	for _, s := range a.g.ProductModuleSets(product) {
		if _, ok := paths[s]; !ok {
			paths[s] = []string{a.g.Name(s)}
			queue = append(queue, s)
		}
	}
	for len(queue) > 0 {
		s := queue[0]
		queue = queue[1:]
		for _, n := range a.g.ModuleSetIncludes(s) {
			if _, ok := paths[n]; ok {
				continue
			}
			paths[n] = append(slices.Clone(paths[s]), a.g.Name(n))
			queue = append(queue, n)
		}
	}
	out := make([]SetReference, 0, len(paths))
	for id, path := range paths {
		out = append(out, SetReference{Name: a.g.Name(id), Path: path})
	}
	slices.SortFunc(out, func(x, y SetReference) int { return cmp.Compare(x.Name, y.Name) })
	return out
}

// productModules returns the distinct module names in the closure of
// product.
func (a analyzer) productModules(product graph.ID) []string {
	var ids []graph.ID
	for _, c := range a.g.ProductModules(product) {
		ids = append(ids, c.Module)
	}
	return a.names(ids)
}

func (a analyzer) distribution() map[string]Distribution {
	out := map[string]Distribution{}
	entry := func(m string) Distribution {
		d, ok := out[m]
		if !ok {
			d = Distribution{InModuleSets: []string{}, InProducts: []string{}, InPlugins: []string{}}
		}
		return d
	}
	for s := range a.g.ModuleSets() {
		for _, m := range a.flattened(s.ID) {
			d := entry(m)
			d.InModuleSets = append(d.InModuleSets, s.Name)
			out[m] = d
		}
	}
	for p := range a.g.Products() {
		for _, m := range a.productModules(p.ID) {
			d := entry(m)
			d.InProducts = append(d.InProducts, p.Name)
			out[m] = d
		}
	}
	for p := range a.g.Plugins() {
		var ids []graph.ID
		for _, e := range a.g.PluginContent(p.ID) {
			ids = append(ids, e.Module)
		}
		for _, m := range a.names(ids) {
			d := entry(m)
			d.InPlugins = append(d.InPlugins, p.Name)
			out[m] = d
		}
	}
	return out
}

func (a analyzer) hierarchy() map[string]Hierarchy {
	out := map[string]Hierarchy{}
	for s := range a.g.ModuleSets() {
		out[s.Name] = Hierarchy{
			Includes:    a.names(a.g.ModuleSetIncludes(s.ID)),
			IncludedBy:  a.names(a.g.ModuleSetParents(s.ID)),
			ModuleCount: len(a.g.ModuleSetContent(s.ID)),
		}
	}
	return out
}

func (a analyzer) usage() *UsageIndex {
	idx := &UsageIndex{Modules: map[string]Usage{}}
	entry := func(m string) Usage {
		u, ok := idx.Modules[m]
		if !ok {
			u = Usage{ModuleSets: []Ref{}, Products: []Ref{}}
		}
		return u
	}
	for s := range a.g.ModuleSets() {
		for _, m := range a.flattened(s.ID) {
			u := entry(m)
			u.ModuleSets = append(u.ModuleSets, Ref{Name: s.Name, SourceFile: s.Source})
			idx.Modules[m] = u
		}
	}
	for p := range a.g.Products() {
		for _, m := range a.productModules(p.ID) {
			u := entry(m)
			u.Products = append(u.Products, Ref{Name: p.Name, SourceFile: p.Source})
			idx.Modules[m] = u
		}
	}
	return idx
}

// =============================================================================
// Helpers
// =============================================================================

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// intersect returns the elements of sorted a also in sorted b.
func intersect(a, b []string) []string {
	var out []string
	for _, s := range a {
		if _, ok := slices.BinarySearch(b, s); ok {
			out = append(out, s)
		}
	}
	return out
}

// subtract returns the elements of sorted a missing from sorted b.
func subtract(a, b []string) []string {
	var out []string
	for _, s := range a {
		if _, ok := slices.BinarySearch(b, s); !ok {
			out = append(out, s)
		}
	}
	return out
}

func head(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
