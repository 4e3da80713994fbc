package cli

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

// browseCommand creates the browse command.
func (c *CLI) browseCommand() *cobra.Command {
	var source sourceOpts

	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Browse modules and methods interactively",
		Long: `Open a terminal browser over a signature database. Type / to filter modules,
enter to see a module's ancestors and methods, s to switch between instance
and singleton methods.

Examples:
  stubdex browse
  stubdex browse --from stubs/rubystubs34`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := c.openDatabase(cmd.Context(), &source)
			if err != nil {
				return err
			}
			p := tea.NewProgram(NewBrowseModel(db), tea.WithAltScreen(), tea.WithContext(cmd.Context()))
			_, err = p.Run()
			return err
		},
	}

	source.register(cmd)
	return cmd
}
