package validate

import (
	"context"
	"slices"
	"sync"

	"github.com/matzehuels/modgraph/pkg/graph"
	"github.com/matzehuels/modgraph/pkg/pipeline"
	"github.com/matzehuels/modgraph/pkg/violation"
)

// checkBacking verifies that every content module is backed by exactly one
// target named after the module, and that the build produced it. Modules
// passing all checks are published to [Backing].
func checkBacking(ctx context.Context, c *pipeline.RuleContext) error {
	var (
		mu  sync.Mutex
		out = map[graph.ID]graph.Target{}
	)
	err := pipeline.ForEach(ctx, c, contentModules(c.Graph()), func(_ context.Context, m graph.Module) error {
		t, problem := backingOf(c, m)
		if problem != nil {
			if !c.Suppressed(m.Name, string(problem.BackingKind)) {
				c.Report(violation.Violation{Context: m.Name, Payload: *problem})
			}
			return nil
		}
		mu.Lock()
		out[m.ID] = t
		mu.Unlock()
		return nil
	})
	if perr := pipeline.Publish(c, Backing, out); perr != nil {
		return perr
	}
	return err
}

func backingOf(c *pipeline.RuleContext, m graph.Module) (graph.Target, *violation.Backing) {
	expected := graph.ExpectedTargetName(m.Name)
	targets := c.Graph().BackingTargets(m.ID)
	problem := &violation.Backing{Module: m.Name, Expected: expected}
	switch {
	case len(targets) == 0:
		problem.BackingKind = violation.KindNoBackingTarget
	case len(targets) > 1:
		problem.BackingKind = violation.KindMultipleBackingTargets
		for _, t := range targets {
			problem.Targets = append(problem.Targets, t.Name)
		}
		slices.Sort(problem.Targets)
	case targets[0].Name != expected:
		problem.BackingKind = violation.KindMismatchedBackingTarget
		problem.Targets = []string{targets[0].Name}
	default:
		if _, ok := c.Outputs().FindModule(targets[0].Name); !ok {
			problem.BackingKind = violation.KindMissingBuildModule
			return graph.Target{}, problem
		}
		return targets[0], nil
	}
	return graph.Target{}, problem
}
