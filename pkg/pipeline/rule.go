package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/modgraph/pkg/deps"
	"github.com/matzehuels/modgraph/pkg/graph"
	"github.com/matzehuels/modgraph/pkg/suppress"
	"github.com/matzehuels/modgraph/pkg/violation"
)

// Rule is one validator. Rules only read the graph; they communicate with
// each other through slots and report findings through the [RuleContext].
type Rule interface {
	// Name is the kebab-case rule identifier used in reports and filters.
	Name() string
	// Requires lists the slots that must be published before Run starts.
	Requires() []SlotID
	// Produces lists the slots Run publishes. Each must be published
	// exactly once, even when the rule has nothing to report.
	Produces() []SlotID
	// Run validates the graph. A returned error (or a panic) is reported as
	// a rule failure; violations reported before it are kept.
	Run(ctx context.Context, c *RuleContext) error
}

// Env carries the graph and the external collaborators of a run. Nil
// collaborators default to the graph-backed implementations in package deps.
type Env struct {
	Graph        *graph.Graph
	Model        deps.BuildModel
	Outputs      deps.ModuleOutputs
	Locator      deps.SourceLocator
	Suppressions suppress.Config
	// Root resolves relative descriptor, source and build file paths.
	Root string
	// ReadFile reads descriptor and source files for patch generation
	// (default: os.ReadFile).
	ReadFile func(path string) ([]byte, error)
	// Sources is an optional digest of the files patches are computed from.
	// It is part of the report cache key.
	Sources string
}

func (e *Env) setDefaults() {
	if e.Model == nil {
		e.Model = deps.GraphModel{G: e.Graph}
	}
	if e.Outputs == nil {
		e.Outputs = deps.GraphOutputs{G: e.Graph, Root: e.Root}
	}
	if e.Locator == nil {
		e.Locator = deps.GraphLocator{G: e.Graph, Root: e.Root}
	}
	if e.ReadFile == nil {
		e.ReadFile = os.ReadFile
	}
}

// RuleContext is the view of a run handed to one rule. It is safe for use
// from the goroutines the rule starts.
type RuleContext struct {
	rule     string
	runID    string
	env      *Env
	opts     *Options
	slots    *slotStore
	sink     *sink
	matcher  *suppress.Matcher
	logger   *log.Logger
	requires map[SlotID]bool
	produces map[SlotID]bool
	reported atomic.Int64
}

// Graph returns the graph under validation.
func (c *RuleContext) Graph() *graph.Graph { return c.env.Graph }

// Model returns the build dependency model.
func (c *RuleContext) Model() deps.BuildModel { return c.env.Model }

// Outputs returns the module output resolver.
func (c *RuleContext) Outputs() deps.ModuleOutputs { return c.env.Outputs }

// Options returns the run options.
func (c *RuleContext) Options() *Options { return c.opts }

// Logger returns a logger tagged with the rule name.
func (c *RuleContext) Logger() *log.Logger { return c.logger }

// RunID returns the identifier of the current run.
func (c *RuleContext) RunID() string { return c.runID }

// Suppressed reports whether the finding identified by owner and key is
// suppressed, recording the match as a suppression usage.
func (c *RuleContext) Suppressed(owner, key string) bool {
	return c.matcher.Suppressed(c.rule, owner, key)
}

// UpdatingSuppressions reports whether the run regenerates the suppression
// config instead of applying it.
func (c *RuleContext) UpdatingSuppressions() bool { return c.matcher.UpdateMode() }

// Suppressions returns the suppression config of the run.
func (c *RuleContext) Suppressions() suppress.Config { return c.matcher.Config() }

// Report adds violations to the run. Rule, Kind and Severity default to
// the reporting rule, the payload kind and error.
func (c *RuleContext) Report(vs ...violation.Violation) {
	for i := range vs {
		if vs[i].Rule == "" {
			vs[i].Rule = c.rule
		}
		if vs[i].Kind == "" && vs[i].Payload != nil {
			vs[i].Kind = vs[i].Payload.Kind()
		}
		if vs[i].Severity == "" {
			vs[i].Severity = violation.SeverityError
		}
	}
	c.reported.Add(int64(len(vs)))
	c.sink.add(vs...)
}

// Locate returns the file declaring a product, module set, plugin or module.
func (c *RuleContext) Locate(kind graph.Kind, name string) (string, bool) {
	return c.env.Locator.Locate(kind, name)
}

// Path resolves a path recorded in the graph against the run's root.
func (c *RuleContext) Path(p string) string {
	if c.env.Root == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.env.Root, p)
}

// ReadFile returns the content of a descriptor or source file. Failures are
// logged and reported as absent: callers offer no patch in that case.
func (c *RuleContext) ReadFile(path string) (string, bool) {
	data, err := c.env.ReadFile(path)
	if err != nil {
		c.logger.Debug("cannot read file for patch", "path", path, "err", err)
		return "", false
	}
	return string(data), true
}
