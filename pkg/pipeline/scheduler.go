package pipeline

import (
	"context"
	stderrors "errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/modgraph/pkg/errors"
	"github.com/matzehuels/modgraph/pkg/observability"
	"github.com/matzehuels/modgraph/pkg/suppress"
	"github.com/matzehuels/modgraph/pkg/violation"
)

// RuleFailure is a run-level anomaly: a rule that failed, panicked, or was
// skipped because a slot it requires was never published.
type RuleFailure struct {
	Rule    string      `json:"rule"`
	Code    errors.Code `json:"code"`
	Err     string      `json:"error"`
	Skipped bool        `json:"skipped,omitempty"`
}

// sink aggregates the results of concurrently running rules.
type sink struct {
	mu         sync.Mutex
	violations []violation.Violation
	failures   []RuleFailure
	durations  map[string]time.Duration
}

func newSink() *sink {
	return &sink{durations: map[string]time.Duration{}}
}

func (s *sink) add(vs ...violation.Violation) {
	s.mu.Lock()
	s.violations = append(s.violations, vs...)
	s.mu.Unlock()
}

func (s *sink) fail(f RuleFailure) {
	s.mu.Lock()
	s.failures = append(s.failures, f)
	s.mu.Unlock()
}

func (s *sink) timing(rule string, d time.Duration) {
	s.mu.Lock()
	s.durations[rule] = d
	s.mu.Unlock()
}

// execution is the shared state of one scheduled run.
type execution struct {
	runID   string
	env     *Env
	opts    *Options
	slots   *slotStore
	sink    *sink
	matcher *suppress.Matcher
	logger  *log.Logger
}

// execute runs every rule of the plan on its own goroutine. A rule starts
// once all rules it waits for have finished; when one of its required slots
// was not published it is skipped and recorded as a failure.
func (x *execution) execute(ctx context.Context, plan *Plan) {
	done := make([]chan struct{}, len(plan.rules))
	for i := range done {
		done[i] = make(chan struct{})
	}
	var wg sync.WaitGroup
	for i, rule := range plan.rules {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer close(done[i])
			for _, j := range plan.waits[i] {
				<-done[j]
			}
			for _, s := range rule.Requires() {
				if _, ok := x.slots.get(s); !ok {
					x.logger.Warn("rule skipped", "rule", rule.Name(), "slot", s)
					x.sink.fail(RuleFailure{
						Rule:    rule.Name(),
						Code:    errors.ErrCodeUnknownSlot,
						Err:     fmt.Sprintf("required slot %q was not published", s),
						Skipped: true,
					})
					return
				}
			}
			x.runRule(ctx, rule)
		}()
	}
	wg.Wait()
}

func (x *execution) runRule(ctx context.Context, rule Rule) {
	name := rule.Name()
	ctx, span := observability.Tracer().Start(ctx, "rule."+name,
		trace.WithAttributes(
			attribute.String("modgraph.rule", name),
			attribute.String("modgraph.run_id", x.runID),
		))
	defer span.End()
	observability.Run().OnRuleStart(ctx, x.runID, name)

	rc := x.newContext(rule)
	start := time.Now()
	err := safeCall(func() error { return rule.Run(ctx, rc) })
	if err == nil {
		err = x.checkProduced(rule)
	}
	duration := time.Since(start)
	n := int(rc.reported.Load())
	x.sink.timing(name, duration)
	observability.Run().OnRuleComplete(ctx, x.runID, name, n, duration, err)
	span.SetAttributes(attribute.Int("modgraph.violations", n))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		rc.logger.Error("rule failed", "err", err, "duration", duration)
		x.sink.fail(RuleFailure{Rule: name, Code: failureCode(err), Err: err.Error()})
		return
	}
	span.SetStatus(codes.Ok, "")
	rc.logger.Debug("rule completed", "violations", n, "duration", duration)
}

func (x *execution) newContext(rule Rule) *RuleContext {
	rc := &RuleContext{
		rule:     rule.Name(),
		runID:    x.runID,
		env:      x.env,
		opts:     x.opts,
		slots:    x.slots,
		sink:     x.sink,
		matcher:  x.matcher,
		logger:   x.logger.With("rule", rule.Name()),
		requires: map[SlotID]bool{},
		produces: map[SlotID]bool{},
	}
	for _, s := range rule.Requires() {
		rc.requires[s] = true
	}
	for _, s := range rule.Produces() {
		rc.produces[s] = true
	}
	return rc
}

func (x *execution) checkProduced(rule Rule) error {
	for _, s := range rule.Produces() {
		if _, ok := x.slots.get(s); !ok {
			return errors.New(errors.ErrCodeRuleFailed, "rule completed without publishing slot %q", s)
		}
	}
	return nil
}

func failureCode(err error) errors.Code {
	var pe *errors.PanicError
	if stderrors.As(err, &pe) {
		return pe.Code()
	}
	if code := errors.GetCode(err); code != "" {
		return code
	}
	return errors.ErrCodeRuleFailed
}

// safeCall runs fn and converts a panic into an [errors.PanicError].
func safeCall(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &errors.PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return fn()
}

// =============================================================================
// Fan-out
// =============================================================================

// ForEach calls fn for every item on at most Options.Workers goroutines and
// waits for all calls to return. A failing or panicking call does not stop
// the others; all errors are returned joined.
func ForEach[T any](ctx context.Context, c *RuleContext, items []T, fn func(ctx context.Context, item T) error) error {
	var g errgroup.Group
	g.SetLimit(c.opts.Workers)
	var (
		mu   sync.Mutex
		errs []error
	)
	for _, item := range items {
		g.Go(func() error {
			if err := safeCall(func() error { return fn(ctx, item) }); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return stderrors.Join(errs...)
}
