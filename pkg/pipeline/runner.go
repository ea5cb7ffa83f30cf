package pipeline

import (
	"cmp"
	"context"
	"encoding/json"
	"io"
	"slices"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/matzehuels/modgraph/pkg/buildinfo"
	"github.com/matzehuels/modgraph/pkg/cache"
	"github.com/matzehuels/modgraph/pkg/errors"
	"github.com/matzehuels/modgraph/pkg/observability"
	"github.com/matzehuels/modgraph/pkg/patch"
	"github.com/matzehuels/modgraph/pkg/suppress"
	"github.com/matzehuels/modgraph/pkg/violation"
)

// FixRule is the rule name under which auto-fix failures are reported.
const FixRule = "auto-fix"

// Runner encapsulates validation runs with report caching.
//
// The Runner is stateless except for the cache and logger - it doesn't
// store reports. Multiple goroutines can safely use the same Runner with
// different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
// If logger is nil, log output is discarded.
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Check runs the given rules against env.Graph.
//
// The returned error is reserved for invalid input: bad options, an unknown
// rule name or an inconsistent rule set. Everything that goes wrong inside
// rules is part of the report.
func (r *Runner) Check(ctx context.Context, env Env, rules []Rule, opts Options) (*Report, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	if env.Graph == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "graph is required")
	}
	env.setDefaults()

	selected, err := Select(rules, opts.Rules)
	if err != nil {
		return nil, err
	}
	plan, err := NewPlan(selected)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(selected))
	for i, rule := range selected {
		names[i] = rule.Name()
	}
	slices.Sort(names)

	key := r.Keyer.ReportKey(env.Graph.Fingerprint(), opts.ReportKeyOpts(names, &env, buildinfo.Short()))
	if opts.Cacheable() && !opts.Refresh {
		if rep, ok := r.cached(ctx, key); ok {
			opts.Logger.Info("report loaded from cache", "run_id", rep.RunID, "violations", len(rep.Violations))
			return rep, nil
		}
	}

	rep := r.run(ctx, &env, plan, &opts)

	if opts.Cacheable() && len(rep.Failures) == 0 {
		if data, err := json.Marshal(rep); err == nil {
			if err := r.Cache.Set(ctx, key, data, cache.DefaultTTL); err != nil {
				opts.Logger.Warn("cannot store report", "err", err)
			}
		}
	}
	return rep, nil
}

func (r *Runner) cached(ctx context.Context, key string) (*Report, bool) {
	data, hit, err := r.Cache.Get(ctx, key)
	if err != nil {
		r.Logger.Warn("report cache unavailable", "err", err)
		return nil, false
	}
	if !hit {
		return nil, false
	}
	var rep Report
	if err := json.Unmarshal(data, &rep); err != nil {
		r.Logger.Debug("discarding unreadable cached report", "err", err)
		return nil, false
	}
	rep.Cached = true
	return &rep, true
}

func (r *Runner) run(ctx context.Context, env *Env, plan *Plan, opts *Options) *Report {
	runID := uuid.NewString()
	start := time.Now()
	ctx, span := observability.Tracer().Start(ctx, "modgraph.Check",
		trace.WithAttributes(
			attribute.String("modgraph.run_id", runID),
			attribute.String("modgraph.fingerprint", env.Graph.Fingerprint()),
			attribute.Int("modgraph.rules", len(plan.rules)),
		))
	defer span.End()

	logger := opts.Logger.With("run_id", runID[:8])
	logger.Info("validation started", "rules", len(plan.rules), "modules", env.Graph.ModuleCount(), "plugins", env.Graph.PluginCount(), "products", env.Graph.ProductCount())
	observability.Run().OnRunStart(ctx, runID, len(plan.rules))

	matcher := suppress.NewMatcher(env.Suppressions, opts.UpdateSuppressions)
	x := &execution{
		runID:   runID,
		env:     env,
		opts:    opts,
		slots:   newSlotStore(),
		sink:    newSink(),
		matcher: matcher,
		logger:  logger,
	}
	x.execute(ctx, plan)

	rep := &Report{
		RunID:       runID,
		Fingerprint: env.Graph.Fingerprint(),
		Violations:  x.sink.violations,
		Failures:    x.sink.failures,
		Usages:      matcher.Usages(),
		Unused:      matcher.Unused(),
	}
	if rep.Violations == nil {
		rep.Violations = []violation.Violation{}
	}
	if opts.UpdateSuppressions {
		rep.Regenerated = matcher.Regenerate()
	}
	violation.Sort(rep.Violations)
	slices.SortFunc(rep.Failures, func(a, b RuleFailure) int { return cmp.Compare(a.Rule, b.Rule) })

	if opts.AutoFix {
		r.fix(ctx, rep, opts, logger)
	}

	for _, v := range rep.Violations {
		if v.IsError() {
			rep.Stats.Errors++
		} else {
			rep.Stats.Warnings++
		}
	}
	rep.Stats.Rules = len(plan.rules)
	rep.Stats.RuleDurations = x.sink.durations
	rep.Stats.Duration = time.Since(start)

	observability.Run().OnRunComplete(ctx, runID, len(rep.Violations), len(rep.Failures), rep.Stats.Duration)
	span.SetAttributes(
		attribute.Int("modgraph.violations", len(rep.Violations)),
		attribute.Int("modgraph.failures", len(rep.Failures)),
	)
	if len(rep.Failures) > 0 {
		span.SetStatus(codes.Error, "rule failures")
	} else {
		span.SetStatus(codes.Ok, "")
	}
	logger.Info("validation completed",
		"errors", rep.Stats.Errors,
		"warnings", rep.Stats.Warnings,
		"failures", len(rep.Failures),
		"duration", rep.Stats.Duration)
	return rep
}

// fix runs the auto-fix phase over the fixes of the reported violations.
// Suppressed violations were never reported, so their fixes never run.
func (r *Runner) fix(ctx context.Context, rep *Report, opts *Options, logger *log.Logger) {
	fixes := violation.Fixes(rep.Violations)
	if len(fixes) == 0 {
		return
	}
	fixer := &patch.Fixer{Workers: opts.Workers, Logger: logger}
	res, err := fixer.Apply(ctx, fixes)
	rep.Fixed = &res
	if err != nil {
		logger.Error("auto-fix failed", "err", err)
		rep.Failures = append(rep.Failures, RuleFailure{Rule: FixRule, Code: errors.ErrCodePatchFailed, Err: err.Error()})
	}
	logger.Info("auto-fix applied", "files", len(res.Changed), "edits", res.Applied)
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
