package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/stubdex/pkg/corpus"
	"github.com/matzehuels/stubdex/pkg/errors"
	"github.com/matzehuels/stubdex/pkg/store"
)

// runsCommand creates the runs command, which lists saved runs.
func (c *CLI) runsCommand() *cobra.Command {
	var (
		dbPath string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List the runs saved in the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withStore(dbPath, func(s *store.Store) error {
				runs, err := s.Runs(cmd.Context())
				if err != nil {
					return err
				}
				if asJSON {
					if runs == nil {
						runs = []store.Run{}
					}
					return writeJSON(cmd.OutOrStdout(), runs)
				}
				printRuns(cmd.OutOrStdout(), runs)
				return nil
			})
		},
	}

	cmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database (default $STUBDEX_DB, then stubdex.db)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	cmd.AddCommand(c.runsPruneCommand(&dbPath))

	return cmd
}

// runsPruneCommand creates the "runs prune" subcommand.
func (c *CLI) runsPruneCommand(dbPath *string) *cobra.Command {
	var keep int

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete all but the newest runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if keep < 0 {
				return errors.New(errors.ErrCodeInvalidInput, "--keep must not be negative")
			}
			return c.withStore(*dbPath, func(s *store.Store) error {
				n, err := s.Prune(cmd.Context(), keep)
				if err != nil {
					return err
				}
				printSuccess("Deleted %d runs", n)
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&keep, "keep", 1, "number of runs to keep")
	return cmd
}

func (c *CLI) withStore(flag string, fn func(*store.Store) error) error {
	s, err := store.Open(corpus.ResolveDB(flag, c.Env, nil))
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(s)
}

func printRuns(w io.Writer, runs []store.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, StyleDim.Render("no runs"))
		return
	}
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		rows = append(rows, []string{
			r.ID,
			r.Name,
			r.RubyVersion,
			r.Created.Local().Format("2006-01-02 15:04:05"),
			strconv.Itoa(r.Stats.Modules),
			strconv.Itoa(r.Stats.Methods + r.Stats.SingletonMethods),
		})
	}
	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Run", "Name", "Ruby", "Created", "Modules", "Methods").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == -1:
				return headerStyle
			case row == 0 && col == 0:
				return lipgloss.NewStyle().Foreground(colorGreen)
			case col == 0:
				return lipgloss.NewStyle().Foreground(colorCyan)
			}
			return lipgloss.NewStyle().Foreground(colorWhite)
		})
	fmt.Fprintln(w, t.Render())
}

