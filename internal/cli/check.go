package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/matzehuels/modgraph/pkg/errors"
	"github.com/matzehuels/modgraph/pkg/graph"
	mgio "github.com/matzehuels/modgraph/pkg/io"
	"github.com/matzehuels/modgraph/pkg/observability"
	"github.com/matzehuels/modgraph/pkg/pipeline"
	"github.com/matzehuels/modgraph/pkg/suppress"
	"github.com/matzehuels/modgraph/pkg/validate"
)

// =============================================================================
// Flags
// =============================================================================

// runFlags configure a validation run; shared by check and browse.
type runFlags struct {
	cacheFlags
	root          string
	suppressions  string
	autoAdded     string
	rules         []string
	testLibraries []string
	workers       int
	refresh       bool
}

func addRunFlags(cmd *cobra.Command, f *runFlags) {
	fl := cmd.Flags()
	fl.StringVar(&f.root, "root", "", "directory relative descriptor and build file paths resolve against (default: the graph file's directory)")
	fl.StringVar(&f.suppressions, "suppressions", "", "suppression config (.toml, .yaml or .json)")
	fl.StringVar(&f.autoAdded, "auto-added", string(pipeline.DefaultAutoAddedPolicy), "structural violations from auto-added test dependencies: skip, warn or report")
	fl.StringSliceVar(&f.rules, "rules", nil, "run only these rules (and the rules they depend on)")
	fl.StringSliceVar(&f.testLibraries, "test-libraries", nil, "libraries production code may only use in test scope")
	fl.IntVar(&f.workers, "workers", 0, "concurrent tasks per rule (default: GOMAXPROCS)")
	fl.BoolVar(&f.refresh, "refresh", false, "ignore cached reports")
	fl.BoolVar(&f.noCache, "no-cache", false, "disable the report cache")
	fl.StringVar(&f.redisAddr, "redis-addr", "", "shared Redis report cache, host:port or redis:// URL (env "+redisAddrEnv+")")

	_ = cmd.RegisterFlagCompletionFunc("auto-added", cobra.FixedCompletions(
		[]string{"skip", "warn", "report"}, cobra.ShellCompDirectiveNoFileComp))
	_ = cmd.RegisterFlagCompletionFunc("rules", cobra.FixedCompletions(
		validate.RuleNames(), cobra.ShellCompDirectiveNoFileComp))
}

type checkFlags struct {
	runFlags
	updateSuppressions bool
	fix                bool
	json               bool
	showPatches        bool
}

// =============================================================================
// Command
// =============================================================================

// checkCommand creates the check command.
func (c *CLI) checkCommand() *cobra.Command {
	var flags checkFlags

	cmd := &cobra.Command{
		Use:   "check <graph>",
		Short: "Validate a composition graph",
		Long: `Validate a composition graph document and report violations.

The exit status is 1 when error-severity violations or rule failures remain.
With --update-suppressions the suppression file is rewritten to the entries
still needed; with --fix descriptor and build file fixes are applied in place.`,
		Example: `  modgraph check graph.yaml
  modgraph check graph.yaml --suppressions suppressions.toml --show-patches
  modgraph check graph.toml --rules product-closure --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if flags.updateSuppressions && flags.suppressions == "" {
				return errors.New(errors.ErrCodeInvalidInput, "--update-suppressions requires --suppressions")
			}
			res, err := c.check(cmd.Context(), args[0], flags.runFlags, pipeline.Options{
				UpdateSuppressions: flags.updateSuppressions,
				AutoFix:            flags.fix,
			}, !flags.json)
			if err != nil {
				return err
			}
			rep := res.report

			out := cmd.OutOrStdout()
			if flags.json {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(rep); err != nil {
					return fmt.Errorf("encode report: %w", err)
				}
			} else {
				printReport(out, rep, reportOptions{Patches: flags.showPatches})
			}

			if flags.updateSuppressions {
				if err := suppress.Save(flags.suppressions, rep.Regenerated); err != nil {
					return fmt.Errorf("save suppressions: %w", err)
				}
				if !flags.json {
					printSuccess(out, "rewrote suppressions (%d owners)", len(rep.Regenerated))
					printFile(out, flags.suppressions)
				}
			}
			if rep.HasErrors() {
				return ErrCheckFailed
			}
			return nil
		},
	}

	addRunFlags(cmd, &flags.runFlags)
	cmd.Flags().BoolVar(&flags.updateSuppressions, "update-suppressions", false, "regenerate the suppression file instead of applying it")
	cmd.Flags().BoolVar(&flags.fix, "fix", false, "apply in-place fixes for unsuppressed violations")
	cmd.Flags().BoolVar(&flags.json, "json", false, "print the report as JSON")
	cmd.Flags().BoolVar(&flags.showPatches, "show-patches", false, "print proposed patches below each violation")

	return cmd
}

// checkResult is the outcome of [CLI.check].
type checkResult struct {
	graph  *graph.Graph
	report *pipeline.Report
}

// check loads the graph and suppressions and runs the default rule set.
// A spinner tracks rule progress when interactive is set and stderr is a
// terminal.
func (c *CLI) check(ctx context.Context, path string, flags runFlags, opts pipeline.Options, interactive bool) (*checkResult, error) {
	prog := newProgress(c.Logger)

	g, err := mgio.Import(path)
	if err != nil {
		return nil, err
	}
	root := flags.root
	if root == "" {
		root = filepath.Dir(path)
	}

	var supp suppress.Config
	if flags.suppressions != "" {
		if supp, err = suppress.Load(flags.suppressions); err != nil {
			return nil, err
		}
	}

	runner, closeCache, err := c.newRunner(ctx, flags.cacheFlags, root)
	if err != nil {
		return nil, err
	}
	defer closeCache()

	opts.AutoAddedPolicy = pipeline.AutoAddedPolicy(flags.autoAdded)
	opts.Rules = flags.rules
	opts.TestLibraries = flags.testLibraries
	opts.Workers = flags.workers
	opts.Refresh = flags.refresh
	opts.Logger = c.Logger

	env := pipeline.Env{
		Graph:        g,
		Suppressions: supp,
		Root:         root,
		Sources:      sourcesDigest(g, root),
	}

	if interactive && isTerminal(os.Stderr) {
		spinner := newSpinnerWithContext(ctx, os.Stderr, "Checking...")
		prev := observability.Run()
		observability.SetRunHooks(newRuleProgress(spinner))
		spinner.Start()
		defer func() {
			spinner.Stop()
			observability.SetRunHooks(prev)
		}()
	}

	rep, err := runner.Check(ctx, env, validate.DefaultRules(), opts)
	if err != nil {
		return nil, err
	}
	prog.done("check completed", "violations", len(rep.Violations), "failures", len(rep.Failures), "cached", rep.Cached)
	return &checkResult{graph: g, report: rep}, nil
}
