package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/matzehuels/stubdex/pkg/errors"
	"github.com/matzehuels/stubdex/pkg/index"
)

// searchCommand creates the search command.
func (c *CLI) searchCommand() *cobra.Command {
	var (
		source sourceOpts
		limit  int
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search module and method names",
		Long: `Search module names and method keys, case-insensitively. Exact matches are
listed first, then prefix matches, then substring matches.

Examples:
  stubdex search each_slice
  stubdex search "Array#" --limit 100
  stubdex search File. --from stubs/rubystubs34 --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := errors.ValidateSearchQuery(args[0]); err != nil {
				return err
			}
			if limit < 0 {
				return errors.New(errors.ErrCodeInvalidInput, "--limit must not be negative")
			}
			db, err := c.openDatabase(cmd.Context(), &source)
			if err != nil {
				return err
			}
			matches := db.Search(args[0], limit)
			if asJSON {
				if matches == nil {
					matches = []index.Match{}
				}
				return writeJSON(cmd.OutOrStdout(), matches)
			}
			printMatches(cmd.OutOrStdout(), matches)
			return nil
		},
	}

	source.register(cmd)
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum results (0 for all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")

	return cmd
}

func printMatches(w io.Writer, matches []index.Match) {
	if len(matches) == 0 {
		fmt.Fprintln(w, StyleDim.Render("no matches"))
		return
	}
	for _, m := range matches {
		kind := "method"
		if m.Method == "" {
			kind = "module"
		}
		fmt.Fprintf(w, "%s  %s\n", StyleHighlight.Render(fmt.Sprintf("%-48s", m.Key)), StyleDim.Render(kind+", "+m.Rank.String()))
	}
}
