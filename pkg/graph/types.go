package graph

import "fmt"

// ID identifies a node. IDs are unique across all node kinds of one graph
// and stable for the lifetime of the graph.
type ID int32

// NoID is the zero-information ID returned alongside a failed lookup.
const NoID ID = -1

// Kind distinguishes the node kinds of a composition graph.
type Kind uint8

const (
	KindModule Kind = iota + 1
	KindTarget
	KindPlugin
	KindProduct
	KindModuleSet
)

// String returns the lowercase kind name used in diagnostics.
func (k Kind) String() string {
	switch k {
	case KindModule:
		return "module"
	case KindTarget:
		return "target"
	case KindPlugin:
		return "plugin"
	case KindProduct:
		return "product"
	case KindModuleSet:
		return "module-set"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// LoadingMode describes how eagerly a content module is activated relative
// to the plugin, product or module set that declares it.
type LoadingMode uint8

const (
	// LoadingUnset means the owner declared no explicit mode.
	LoadingUnset LoadingMode = iota
	LoadingOptional
	LoadingOnDemand
	LoadingRequired
	LoadingEmbedded
)

var loadingNames = map[LoadingMode]string{
	LoadingUnset:    "",
	LoadingOptional: "optional",
	LoadingOnDemand: "on-demand",
	LoadingRequired: "required",
	LoadingEmbedded: "embedded",
}

// String returns the descriptor attribute value for the mode ("" when unset).
func (m LoadingMode) String() string { return loadingNames[m] }

// IsStrict reports whether the mode forces the module to load with its owner
// (required or embedded).
func (m LoadingMode) IsStrict() bool {
	return m == LoadingRequired || m == LoadingEmbedded
}

// ParseLoadingMode parses a descriptor attribute value. Both "on-demand" and
// "on_demand" are accepted; the empty string yields [LoadingUnset].
func ParseLoadingMode(s string) (LoadingMode, error) {
	switch s {
	case "":
		return LoadingUnset, nil
	case "optional":
		return LoadingOptional, nil
	case "on-demand", "on_demand":
		return LoadingOnDemand, nil
	case "required":
		return LoadingRequired, nil
	case "embedded":
		return LoadingEmbedded, nil
	}
	return LoadingUnset, fmt.Errorf("unknown loading mode %q", s)
}

// Scope is the build scope of a raw target dependency.
type Scope uint8

const (
	ScopeCompile Scope = iota
	ScopeRuntime
	ScopeTest
	ScopeProvided
)

var scopeNames = map[Scope]string{
	ScopeCompile:  "compile",
	ScopeRuntime:  "runtime",
	ScopeTest:     "test",
	ScopeProvided: "provided",
}

// String returns the lowercase scope name.
func (s Scope) String() string { return scopeNames[s] }

// IsProduction reports whether the dependency is on the production runtime
// classpath (compile or runtime scope).
func (s Scope) IsProduction() bool {
	return s == ScopeCompile || s == ScopeRuntime
}

// ParseScope parses a scope name; the empty string means compile.
func ParseScope(s string) (Scope, error) {
	switch s {
	case "", "compile":
		return ScopeCompile, nil
	case "runtime":
		return ScopeRuntime, nil
	case "test":
		return ScopeTest, nil
	case "provided":
		return ScopeProvided, nil
	}
	return ScopeCompile, fmt.Errorf("unknown scope %q", s)
}

// Module is a value view of a content module.
type Module struct {
	ID   ID
	Name string
	// Critical modules make missing dependencies fatal; for non-critical
	// ones it is enough that a dependency exists in some content source.
	Critical bool
	// Descriptor is the path of the module's XML descriptor, if known.
	Descriptor string
	// Library is set for generated library modules and names the library
	// the module wraps.
	Library string
}

// Target is a value view of a compiled build unit.
type Target struct {
	ID        ID
	Name      string
	Library   bool   // third-party library rather than a module target
	BuildFile string // build configuration file declaring the target's dependencies
}

// Plugin is a value view of a plugin.
type Plugin struct {
	ID   ID
	Name string
	// PluginID is the descriptor identifier; aliases may have none.
	PluginID   string
	Test       bool
	DSL        bool // declared through the build DSL rather than an XML descriptor
	Descriptor string
}

// Product is a value view of a product.
type Product struct {
	ID     ID
	Name   string
	Source string // file declaring the product, used to anchor patches
}

// ModuleSet is a value view of a module set.
type ModuleSet struct {
	ID            ID
	Name          string
	SelfContained bool
	Source        string
}

// ModuleDep is a declared module-to-module dependency edge.
type ModuleDep struct {
	Module ID
	Test   bool
}

// TargetDep is a raw build dependency of a target.
type TargetDep struct {
	Target ID
	Scope  Scope
}

// ContentEntry is a content-module declaration by a plugin, product or
// module set.
type ContentEntry struct {
	Module ID
	Mode   LoadingMode
	Test   bool
	// AutoAdded marks entries that were added implicitly while following a
	// test plugin's dependency chain.
	AutoAdded bool
}

// PluginDep is a plugin-to-plugin dependency edge.
type PluginDep struct {
	Plugin   ID
	Optional bool
}

// Bundle is a product-to-plugin bundling edge.
type Bundle struct {
	Plugin ID
	Test   bool
}

// ProductBundle is the reverse view of a [Bundle] from a plugin's side.
type ProductBundle struct {
	Product ID
	Test    bool
}

// Source is one declaration that contributes a module as content.
type Source struct {
	Kind Kind // KindPlugin, KindProduct or KindModuleSet
	ID   ID
	ContentEntry
}

// Contribution is one path through which a module reaches a product's
// module closure.
type Contribution struct {
	Module ID
	Mode   LoadingMode
	// Via is the module set that contributed the module, or NoID for
	// direct product content.
	Via ID
}
