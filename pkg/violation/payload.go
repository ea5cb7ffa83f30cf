package violation

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Payload carries the kind-specific details of a violation. The set of
// payload types is closed; each type reports the kinds it may be used with.
type Payload interface {
	// Kind returns the violation kind the payload belongs to.
	Kind() Kind
	// Summary renders the payload as a short human-readable sentence.
	Summary() string
	isPayload()
}

// Backing reports a content module whose backing target is absent, ambiguous,
// misnamed or not built.
type Backing struct {
	BackingKind Kind     `json:"-"`
	Module      string   `json:"module"`
	Expected    string   `json:"expected"`
	Targets     []string `json:"targets,omitempty"`
}

func (p Backing) Kind() Kind { return p.BackingKind }
func (Backing) isPayload() {}

func (p Backing) Summary() string {
	switch p.BackingKind {
	case KindNoBackingTarget:
		return fmt.Sprintf("module %s has no backing target (expected %s)", p.Module, p.Expected)
	case KindMultipleBackingTargets:
		return fmt.Sprintf("module %s has %d backing targets: %s", p.Module, len(p.Targets), strings.Join(p.Targets, ", "))
	case KindMismatchedBackingTarget:
		return fmt.Sprintf("module %s is backed by %s, expected %s", p.Module, strings.Join(p.Targets, ", "), p.Expected)
	default:
		return fmt.Sprintf("build module %s of module %s does not resolve", p.Expected, p.Module)
	}
}

// MissingDeps maps each missing module to the modules requiring it.
type MissingDeps struct {
	Missing map[string][]string `json:"missing"`
}

func (MissingDeps) Kind() Kind { return KindMissingDependencies }
func (MissingDeps) isPayload() {}

func (p MissingDeps) Summary() string {
	return fmt.Sprintf("%d missing dependencies: %s", len(p.Missing), strings.Join(sortedKeys(p.Missing), ", "))
}

// DuplicateModules lists modules contributed more than once to a product,
// with the contributing owners.
type DuplicateModules struct {
	Modules map[string][]string `json:"modules"`
}

func (DuplicateModules) Kind() Kind { return KindDuplicateModule }
func (DuplicateModules) isPayload() {}

func (p DuplicateModules) Summary() string {
	return fmt.Sprintf("modules contributed more than once: %s", strings.Join(sortedKeys(p.Modules), ", "))
}

// Owner is a plugin claiming a module or identifier.
type Owner struct {
	Plugin string `json:"plugin"`
	Test   bool   `json:"test"`
}

func (o Owner) String() string {
	if o.Test {
		return o.Plugin + " (test)"
	}
	return o.Plugin + " (prod)"
}

// Duplicate reports a module or plugin identifier claimed by both a
// production and a test plugin of one product.
type Duplicate struct {
	DuplicateKind Kind    `json:"-"`
	Key           string  `json:"key"`
	Owners        []Owner `json:"owners"`
}

func (p Duplicate) Kind() Kind { return p.DuplicateKind }
func (Duplicate) isPayload() {}

func (p Duplicate) Summary() string {
	owners := make([]string, len(p.Owners))
	for i, o := range p.Owners {
		owners[i] = o.String()
	}
	what := "module"
	if p.DuplicateKind == KindDuplicatePluginID {
		what = "plugin id"
	}
	return fmt.Sprintf("%s %s claimed by %s", what, p.Key, strings.Join(owners, ", "))
}

// UnresolvedDep is one content-module dependency that does not resolve.
type UnresolvedDep struct {
	Module     string   `json:"module"`
	Dependency string   `json:"dependency"`
	Required   bool     `json:"required"`           // dependent loads in the required chain
	Products   []string `json:"products,omitempty"` // bundling products lacking the dependency
}

// Unresolved reports content-module dependencies of a plugin that do not
// resolve.
type Unresolved struct {
	Deps []UnresolvedDep `json:"deps"`
}

func (Unresolved) Kind() Kind { return KindUnresolvedContentDependency }
func (Unresolved) isPayload() {}

func (p Unresolved) Summary() string {
	parts := make([]string, len(p.Deps))
	for i, d := range p.Deps {
		parts[i] = d.Module + " -> " + d.Dependency
		if len(d.Products) > 0 {
			parts[i] += " in " + strings.Join(d.Products, ", ")
		}
	}
	return "unresolved content dependencies: " + strings.Join(parts, "; ")
}

// Implicit reports build dependencies a module's descriptor does not declare.
type Implicit struct {
	Module string   `json:"module"`
	Deps   []string `json:"deps"`
}

func (Implicit) Kind() Kind { return KindUndeclaredDependency }
func (Implicit) isPayload() {}

func (p Implicit) Summary() string {
	return fmt.Sprintf("module %s depends on undeclared %s", p.Module, strings.Join(p.Deps, ", "))
}

// Pair is a structural loading violation between two content modules of
// one plugin.
type Pair struct {
	Module         string `json:"module"`
	ModuleMode     string `json:"moduleMode"`
	Dependency     string `json:"dependency"`
	DependencyMode string `json:"dependencyMode"`
	AutoAdded      bool   `json:"autoAdded,omitempty"`
}

// Structural reports required modules depending on weaker siblings.
type Structural struct {
	Pairs []Pair `json:"pairs"`
}

func (Structural) Kind() Kind { return KindStructuralLoading }
func (Structural) isPayload() {}

func (p Structural) Summary() string {
	parts := make([]string, len(p.Pairs))
	for i, pr := range p.Pairs {
		mode := pr.DependencyMode
		if mode == "" {
			mode = "unset"
		}
		parts[i] = fmt.Sprintf("%s (%s) -> %s (%s)", pr.Module, pr.ModuleMode, pr.Dependency, mode)
	}
	return "weaker loading dependencies: " + strings.Join(parts, "; ")
}

// SelfContained maps each escaping dependency of a self-contained module
// set to the members requiring it.
type SelfContained struct {
	Escapes map[string][]string `json:"escapes"`
}

func (SelfContained) Kind() Kind { return KindSelfContainedEscape }
func (SelfContained) isPayload() {}

func (p SelfContained) Summary() string {
	return "dependencies outside the set: " + strings.Join(sortedKeys(p.Escapes), ", ")
}

// Cycle reports a module set include cycle.
type Cycle struct {
	Sets []string `json:"sets"`
}

func (Cycle) Kind() Kind { return KindModuleSetCycle }
func (Cycle) isPayload() {}

func (p Cycle) Summary() string {
	if len(p.Sets) == 0 {
		return "include cycle"
	}
	return "include cycle: " + strings.Join(append(slices.Clone(p.Sets), p.Sets[0]), " -> ")
}

// LibraryRef is a direct library reference and the library module that
// should be used instead.
type LibraryRef struct {
	Library string `json:"library"`
	Wrapper string `json:"wrapper"`
}

// Library reports direct library references of a module.
type Library struct {
	Module string       `json:"module"`
	Refs   []LibraryRef `json:"refs"`
}

func (Library) Kind() Kind { return KindLibraryReference }
func (Library) isPayload() {}

func (p Library) Summary() string {
	libs := make([]string, len(p.Refs))
	for i, r := range p.Refs {
		libs[i] = r.Library + " (use " + r.Wrapper + ")"
	}
	return fmt.Sprintf("module %s references libraries directly: %s", p.Module, strings.Join(libs, ", "))
}

// TestLibrary reports test-only libraries used outside test scope.
type TestLibrary struct {
	Module    string   `json:"module"`
	Libraries []string `json:"libraries"`
}

func (TestLibrary) Kind() Kind { return KindTestLibraryScope }
func (TestLibrary) isPayload() {}

func (p TestLibrary) Summary() string {
	return fmt.Sprintf("module %s uses test libraries outside test scope: %s", p.Module, strings.Join(p.Libraries, ", "))
}

// InvalidSuppression reports a suppression entry whose owner no longer names
// a module or plugin.
type InvalidSuppression struct {
	Owner string   `json:"owner"`
	Keys  []string `json:"keys,omitempty"`
}

func (InvalidSuppression) Kind() Kind { return KindInvalidSuppressionKey }
func (InvalidSuppression) isPayload() {}

func (p InvalidSuppression) Summary() string {
	return fmt.Sprintf("suppression owner %s names no module or plugin", p.Owner)
}

// PluginDependency reports a plugin dependency that is not satisfied.
type PluginDependency struct {
	Plugin     string   `json:"plugin"`
	Dependency string   `json:"dependency"`
	Optional   bool     `json:"optional,omitempty"`
	Products   []string `json:"products,omitempty"`
}

func (PluginDependency) Kind() Kind { return KindMissingPluginDependency }
func (PluginDependency) isPayload() {}

func (p PluginDependency) Summary() string {
	if len(p.Products) == 0 {
		return fmt.Sprintf("plugin %s depends on unknown plugin %s", p.Plugin, p.Dependency)
	}
	return fmt.Sprintf("plugin %s depends on %s, not bundled in %s", p.Plugin, p.Dependency, strings.Join(p.Products, ", "))
}

func decodePayload(kind Kind, raw json.RawMessage) (Payload, error) {
	var (
		p   Payload
		err error
	)
	switch kind {
	case KindNoBackingTarget, KindMultipleBackingTargets, KindMismatchedBackingTarget, KindMissingBuildModule:
		var b Backing
		err = json.Unmarshal(raw, &b)
		b.BackingKind = kind
		p = b
	case KindMissingDependencies:
		p, err = decode[MissingDeps](raw)
	case KindDuplicateModule:
		p, err = decode[DuplicateModules](raw)
	case KindDuplicateContent, KindDuplicatePluginID:
		var d Duplicate
		err = json.Unmarshal(raw, &d)
		d.DuplicateKind = kind
		p = d
	case KindUnresolvedContentDependency:
		p, err = decode[Unresolved](raw)
	case KindUndeclaredDependency:
		p, err = decode[Implicit](raw)
	case KindStructuralLoading:
		p, err = decode[Structural](raw)
	case KindSelfContainedEscape:
		p, err = decode[SelfContained](raw)
	case KindModuleSetCycle:
		p, err = decode[Cycle](raw)
	case KindLibraryReference:
		p, err = decode[Library](raw)
	case KindTestLibraryScope:
		p, err = decode[TestLibrary](raw)
	case KindInvalidSuppressionKey:
		p, err = decode[InvalidSuppression](raw)
	case KindMissingPluginDependency:
		p, err = decode[PluginDependency](raw)
	default:
		return nil, fmt.Errorf("unknown violation kind %q", kind)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", kind, err)
	}
	return p, nil
}

func decode[T Payload](raw json.RawMessage) (Payload, error) {
	var v T
	err := json.Unmarshal(raw, &v)
	return v, err
}

func sortedKeys(m map[string][]string) []string {
	return slices.Sorted(maps.Keys(m))
}
