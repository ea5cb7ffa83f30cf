package violation

import (
	"cmp"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/matzehuels/modgraph/pkg/patch"
)

// Kind identifies the kind of a violation and, with it, its payload type.
type Kind string

const (
	KindNoBackingTarget             Kind = "no-backing-target"
	KindMultipleBackingTargets      Kind = "multiple-backing-targets"
	KindMismatchedBackingTarget     Kind = "mismatched-backing-target"
	KindMissingBuildModule          Kind = "missing-build-module"
	KindMissingDependencies         Kind = "missing-dependencies"
	KindDuplicateModule             Kind = "duplicate-module"
	KindDuplicateContent            Kind = "duplicate-content"
	KindDuplicatePluginID           Kind = "duplicate-plugin-id"
	KindUnresolvedContentDependency Kind = "unresolved-content-dependency"
	KindUndeclaredDependency        Kind = "undeclared-dependency"
	KindStructuralLoading           Kind = "structural-loading"
	KindSelfContainedEscape         Kind = "self-contained-escape"
	KindModuleSetCycle              Kind = "module-set-cycle"
	KindLibraryReference            Kind = "library-reference"
	KindTestLibraryScope            Kind = "test-library-scope"
	KindInvalidSuppressionKey       Kind = "invalid-suppression-key"
	KindMissingPluginDependency     Kind = "missing-plugin-dependency"
)

// Severity grades a violation. Only errors fail a check run.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Violation is one structured finding of a rule.
type Violation struct {
	Rule     string        // rule that raised the violation
	Context  string        // product, plugin, module set or module name
	Kind     Kind          // determines the Payload type
	Severity Severity      // defaults to error
	Payload  Payload       // kind-specific details
	Patches  []patch.Patch // proposed diffs, possibly none
	Fixes    []patch.Fix   // in-place rewrites applied by auto-fix
}

// New returns an error-severity violation.
func New(rule, context string, p Payload) Violation {
	return Violation{Rule: rule, Context: context, Kind: p.Kind(), Severity: SeverityError, Payload: p}
}

// String renders the violation on one line.
func (v Violation) String() string {
	return fmt.Sprintf("[%s] %s: %s", v.Rule, v.Context, v.Payload.Summary())
}

// IsError reports whether the violation fails a check run.
func (v Violation) IsError() bool { return v.Severity != SeverityWarning }

// Sort orders violations by rule, context, kind and summary.
func Sort(vs []Violation) {
	slices.SortStableFunc(vs, func(a, b Violation) int {
		return cmp.Or(
			cmp.Compare(a.Rule, b.Rule),
			cmp.Compare(a.Context, b.Context),
			cmp.Compare(a.Kind, b.Kind),
			cmp.Compare(a.Payload.Summary(), b.Payload.Summary()),
		)
	})
}

// Fixes collects the fixes of all violations in order.
func Fixes(vs []Violation) []patch.Fix {
	var out []patch.Fix
	for _, v := range vs {
		out = append(out, v.Fixes...)
	}
	return out
}

// =============================================================================
// JSON
// =============================================================================

type envelope struct {
	Rule     string          `json:"rule"`
	Context  string          `json:"context"`
	Kind     Kind            `json:"kind"`
	Severity Severity        `json:"severity"`
	Summary  string          `json:"summary,omitempty"`
	Payload  json.RawMessage `json:"payload"`
	Patches  []patch.Patch   `json:"patches,omitempty"`
	Fixes    []patch.Fix     `json:"fixes,omitempty"`
}

// MarshalJSON encodes the violation with its payload discriminated by kind.
func (v Violation) MarshalJSON() ([]byte, error) {
	raw, err := json.Marshal(v.Payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{
		Rule:     v.Rule,
		Context:  v.Context,
		Kind:     v.Kind,
		Severity: v.Severity,
		Summary:  v.Payload.Summary(),
		Payload:  raw,
		Patches:  v.Patches,
		Fixes:    v.Fixes,
	})
}

// UnmarshalJSON decodes a violation encoded by MarshalJSON. Fix edits are
// not serializable; decoded fixes keep only their path and title.
func (v *Violation) UnmarshalJSON(data []byte) error {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	p, err := decodePayload(env.Kind, env.Payload)
	if err != nil {
		return err
	}
	*v = Violation{
		Rule:     env.Rule,
		Context:  env.Context,
		Kind:     env.Kind,
		Severity: env.Severity,
		Payload:  p,
		Patches:  env.Patches,
		Fixes:    env.Fixes,
	}
	return nil
}
