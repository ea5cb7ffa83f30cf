package cli

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/modgraph/pkg/errors"
	"github.com/matzehuels/modgraph/pkg/graph"
	mgio "github.com/matzehuels/modgraph/pkg/io"
	"github.com/matzehuels/modgraph/pkg/render/nodelink"
)

const (
	formatDOT = "dot"
	formatSVG = "svg"
)

var graphFormats = []string{formatDOT, formatSVG, string(mgio.FormatYAML), string(mgio.FormatTOML), string(mgio.FormatJSON)}

// graphOpts holds the command-line flags for the graph command.
type graphOpts struct {
	output    string   // output file path; stdout when empty
	format    string   // dot, svg or a document format
	product   string   // restrict the diagram to one product
	deps      bool     // draw module dependency edges
	highlight []string // modules drawn in the error color
}

// graphCommand creates the graph command, which renders a composition graph
// as a node-link diagram or converts it to another document format.
func (c *CLI) graphCommand() *cobra.Command {
	opts := graphOpts{format: formatDOT}

	cmd := &cobra.Command{
		Use:   "graph <graph>",
		Short: "Render or convert a composition graph",
		Example: `  modgraph graph graph.yaml > graph.dot
  modgraph graph graph.yaml --format svg --product ide -o ide.svg
  modgraph graph graph.yaml --format toml -o graph.toml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(graphFormats, opts.format) {
				return errors.New(errors.ErrCodeInvalidFormat, "unknown format %q (want %s)", opts.format, strings.Join(graphFormats, ", "))
			}
			prog := newProgress(c.Logger)

			g, err := mgio.Import(args[0])
			if err != nil {
				return err
			}
			if opts.product != "" {
				if _, ok := g.ProductByName(opts.product); !ok {
					return errors.New(errors.ErrCodeNotFound, "unknown product %q", opts.product)
				}
			}

			data, err := renderGraph(cmd, g, opts)
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
			prog.done("graph written", "format", opts.format, "bytes", len(data))
			printFile(cmd.ErrOrStderr(), opts.output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default: stdout)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", opts.format, "output format: "+strings.Join(graphFormats, ", "))
	cmd.Flags().StringVar(&opts.product, "product", "", "only draw the closure of this product")
	cmd.Flags().BoolVar(&opts.deps, "deps", false, "draw module dependency edges")
	cmd.Flags().StringSliceVar(&opts.highlight, "highlight", nil, "modules to highlight")

	_ = cmd.RegisterFlagCompletionFunc("format", cobra.FixedCompletions(graphFormats, cobra.ShellCompDirectiveNoFileComp))

	return cmd
}

// renderGraph produces the bytes of g in the requested format.
func renderGraph(cmd *cobra.Command, g *graph.Graph, opts graphOpts) ([]byte, error) {
	switch opts.format {
	case formatDOT, formatSVG:
		dot := nodelink.ToDOT(g, nodelink.Options{
			Product:      opts.product,
			Dependencies: opts.deps,
			Highlight:    opts.highlight,
		})
		if opts.format == formatDOT {
			return []byte(dot), nil
		}
		return nodelink.RenderSVG(cmd.Context(), dot)
	default:
		return mgio.Encode(mgio.FromGraph(g), mgio.Format(opts.format))
	}
}
