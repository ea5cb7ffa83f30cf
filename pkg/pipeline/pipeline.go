package pipeline

import (
	"fmt"
	"io"
	"runtime"
	"slices"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/modgraph/pkg/cache"
	"github.com/matzehuels/modgraph/pkg/errors"
	"github.com/matzehuels/modgraph/pkg/patch"
	"github.com/matzehuels/modgraph/pkg/suppress"
	"github.com/matzehuels/modgraph/pkg/violation"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and library callers
// =============================================================================

const (
	// DefaultLibraryModulePrefix is the name prefix of generated library
	// wrapper modules.
	DefaultLibraryModulePrefix = "intellij.libraries."

	// DefaultAutoAddedPolicy decides how structural violations caused by
	// auto-added test dependencies are treated.
	DefaultAutoAddedPolicy = AutoAddedSkip
)

// DefaultWorkers bounds per-rule fan-out when Options.Workers is zero.
var DefaultWorkers = runtime.GOMAXPROCS(0)

// AutoAddedPolicy controls structural loading violations whose dependency
// entry was added implicitly by a test plugin's dependency chain.
type AutoAddedPolicy string

const (
	// AutoAddedSkip drops such violations.
	AutoAddedSkip AutoAddedPolicy = "skip"
	// AutoAddedWarn reports them with warning severity.
	AutoAddedWarn AutoAddedPolicy = "warn"
	// AutoAddedReport reports them as errors like any other pair.
	AutoAddedReport AutoAddedPolicy = "report"
)

// ValidAutoAddedPolicies is the set of supported policies.
var ValidAutoAddedPolicies = map[AutoAddedPolicy]bool{
	AutoAddedSkip:   true,
	AutoAddedWarn:   true,
	AutoAddedReport: true,
}

// ValidateAutoAddedPolicy checks that a policy is valid.
func ValidateAutoAddedPolicy(p AutoAddedPolicy) error {
	if !ValidAutoAddedPolicies[p] {
		return errors.New(errors.ErrCodeInvalidInput, "invalid auto-added policy: %q (must be one of: skip, warn, report)", p)
	}
	return nil
}

// =============================================================================
// Options - Run Configuration
// =============================================================================

// Options contains all configuration of a validation run. Nothing is read
// from global state.
type Options struct {
	// UpdateSuppressions regenerates the suppression config: nothing is
	// suppressed and every match is recorded.
	UpdateSuppressions bool `json:"update_suppressions,omitempty"`
	// AutoFix applies the in-place fixes of unsuppressed violations after
	// all rules have run.
	AutoFix         bool            `json:"auto_fix,omitempty"`
	AutoAddedPolicy AutoAddedPolicy `json:"auto_added_policy,omitempty"`
	// Workers bounds the concurrent tasks a rule fans out to.
	Workers int `json:"workers,omitempty"`
	// TestLibraries lists libraries that production code must not use;
	// modules may only depend on them in test scope.
	TestLibraries []string `json:"test_libraries,omitempty"`
	// LibraryModulePrefix is the name prefix of library wrapper modules.
	LibraryModulePrefix string `json:"library_module_prefix,omitempty"`
	// Rules restricts the run to the named rules and their producers.
	Rules []string `json:"rules,omitempty"`
	// Refresh bypasses the report cache lookup.
	Refresh bool `json:"refresh,omitempty"`

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool `json:"-"`
}

// ValidateAndSetDefaults checks the options and applies defaults.
// This method is idempotent - calling it multiple times has the same effect as calling it once.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if o.AutoAddedPolicy == "" {
		o.AutoAddedPolicy = DefaultAutoAddedPolicy
	}
	if err := ValidateAutoAddedPolicy(o.AutoAddedPolicy); err != nil {
		return err
	}
	if o.Workers < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "workers must not be negative, got %d", o.Workers)
	}
	if o.Workers == 0 {
		o.Workers = DefaultWorkers
	}
	if o.LibraryModulePrefix == "" {
		o.LibraryModulePrefix = DefaultLibraryModulePrefix
	}
	for _, r := range o.Rules {
		if err := errors.ValidateRuleName(r); err != nil {
			return err
		}
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	o.validated = true
	return nil
}

// IsTestLibrary reports whether name is restricted to test scope.
func (o *Options) IsTestLibrary(name string) bool {
	return slices.Contains(o.TestLibraries, name)
}

// Cacheable reports whether a run with these options may be served from or
// stored in the report cache. Runs with side effects never are.
func (o *Options) Cacheable() bool {
	return !o.AutoFix && !o.UpdateSuppressions
}

// ReportKeyOpts returns cache key options for a run of the given rules.
func (o *Options) ReportKeyOpts(rules []string, env *Env, version string) cache.ReportKeyOpts {
	libs := slices.Clone(o.TestLibraries)
	slices.Sort(libs)
	var supp []byte
	if env.Suppressions != nil {
		supp, _ = suppress.Marshal(env.Suppressions, suppress.FormatJSON)
	}
	return cache.ReportKeyOpts{
		Rules:               rules,
		AutoAddedPolicy:     string(o.AutoAddedPolicy),
		TestLibraries:       libs,
		LibraryModulePrefix: o.LibraryModulePrefix,
		Suppressions:        cache.Hash(supp),
		Sources:             env.Sources,
		Version:             version,
	}
}

// =============================================================================
// Report
// =============================================================================

// Report is the outcome of a validation run.
type Report struct {
	RunID       string `json:"run_id"`
	Fingerprint string `json:"fingerprint"`
	// Violations are sorted by rule, context and kind.
	Violations []violation.Violation `json:"violations"`
	Failures   []RuleFailure         `json:"failures,omitempty"`
	Usages     []suppress.Usage      `json:"suppression_usages,omitempty"`
	// Unused holds configured suppressions that matched nothing.
	Unused suppress.Config `json:"unused_suppressions,omitempty"`
	// Regenerated is the replacement suppression config (update mode only).
	Regenerated suppress.Config `json:"regenerated_suppressions,omitempty"`
	// Fixed summarizes the auto-fix phase, when it ran.
	Fixed  *patch.Result `json:"fixed,omitempty"`
	Stats  Stats         `json:"stats"`
	Cached bool          `json:"cached,omitempty"`
}

// Stats contains run statistics.
type Stats struct {
	Rules         int                      `json:"rules"`
	Errors        int                      `json:"errors"`
	Warnings      int                      `json:"warnings"`
	Duration      time.Duration            `json:"duration"`
	RuleDurations map[string]time.Duration `json:"rule_durations,omitempty"`
}

// HasErrors reports whether the run should fail: an error-severity
// violation remains or a rule could not complete.
func (r *Report) HasErrors() bool {
	return r.Stats.Errors > 0 || len(r.Failures) > 0
}

// Counts returns the number of violations per rule.
func (r *Report) Counts() map[string]int {
	out := map[string]int{}
	for _, v := range r.Violations {
		out[v.Rule]++
	}
	return out
}

// Summary renders a one-line summary of the report.
func (r *Report) Summary() string {
	return fmt.Sprintf("%d errors, %d warnings, %d rule failures (%d rules in %s)",
		r.Stats.Errors, r.Stats.Warnings, len(r.Failures), r.Stats.Rules, r.Stats.Duration.Round(time.Millisecond))
}
