package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/modgraph/pkg/analysis"
	"github.com/matzehuels/modgraph/pkg/errors"
	mgio "github.com/matzehuels/modgraph/pkg/io"
)

// analyzeOpts holds the command-line flags for the analyze command.
type analyzeOpts struct {
	filter     string
	value      string
	format     string
	output     string
	minOverlap int
}

// analyzeCommand creates the analyze command, which reports how products and
// module sets are composed.
func (c *CLI) analyzeCommand() *cobra.Command {
	opts := analyzeOpts{format: string(mgio.FormatJSON), minOverlap: analysis.DefaultMinOverlapPercent}

	cmd := &cobra.Command{
		Use:   "analyze <graph>",
		Short: "Report product and module set composition",
		Long: `Analyze the composition of a graph: product module counts, module set
hierarchy and flattened membership, module usage, duplicate declarations and
overlapping module sets.

--filter narrows the output to one section (products, moduleSets,
composition, duplicates) or to one item (product, moduleSet) named by --name.`,
		Example: `  modgraph analyze graph.yaml
  modgraph analyze graph.yaml --filter composition
  modgraph analyze graph.yaml --filter product --name IDE --format yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := analysis.Filter(opts.filter)
			if (filter == analysis.FilterProduct || filter == analysis.FilterModuleSet) && opts.value == "" {
				return errors.New(errors.ErrCodeInvalidInput, "--filter %s requires --name", filter)
			}
			prog := newProgress(c.Logger)

			g, err := mgio.Import(args[0])
			if err != nil {
				return err
			}
			rep, err := analysis.Analyze(g, analysis.Options{
				Filter:            filter,
				Value:             opts.value,
				MinOverlapPercent: opts.minOverlap,
			})
			if err != nil {
				return err
			}
			data, err := rep.Encode(mgio.Format(opts.format))
			if err != nil {
				return err
			}

			if opts.output == "" {
				_, err := cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(opts.output, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", opts.output, err)
			}
			prog.done("analysis written", "filter", opts.filter, "bytes", len(data))
			printFile(cmd.ErrOrStderr(), opts.output)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.filter, "filter", "", "report section: products, moduleSets, composition, duplicates, product or moduleSet")
	cmd.Flags().StringVar(&opts.value, "name", "", "product or module set name for --filter product|moduleSet")
	cmd.Flags().StringVarP(&opts.format, "format", "f", opts.format, "output format: json or yaml")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default: stdout)")
	cmd.Flags().IntVar(&opts.minOverlap, "min-overlap", opts.minOverlap, "minimum module set overlap in percent")

	filters := make([]string, 0, len(analysis.Filters()))
	for _, f := range analysis.Filters() {
		filters = append(filters, string(f))
	}
	_ = cmd.RegisterFlagCompletionFunc("filter", cobra.FixedCompletions(filters, cobra.ShellCompDirectiveNoFileComp))
	_ = cmd.RegisterFlagCompletionFunc("format", cobra.FixedCompletions(
		[]string{string(mgio.FormatJSON), string(mgio.FormatYAML)}, cobra.ShellCompDirectiveNoFileComp))

	return cmd
}
