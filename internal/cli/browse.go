package cli

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/matzehuels/modgraph/pkg/pipeline"
)

// browseCommand creates the interactive violation browser.
func (c *CLI) browseCommand() *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "browse <graph>",
		Short: "Browse the violations of a graph interactively",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := c.check(cmd.Context(), args[0], flags, pipeline.Options{}, true)
			if err != nil {
				return err
			}
			p := tea.NewProgram(NewBrowserModel(res.report), tea.WithContext(cmd.Context()), tea.WithAltScreen())
			if _, err := p.Run(); err != nil {
				return fmt.Errorf("browser: %w", err)
			}
			return nil
		},
	}

	addRunFlags(cmd, &flags)
	return cmd
}
