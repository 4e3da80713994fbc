package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/stubdex/pkg/buildinfo"
	"github.com/matzehuels/stubdex/pkg/errors"
	pkgio "github.com/matzehuels/stubdex/pkg/io"
)

// exportCommand creates the export command.
func (c *CLI) exportCommand() *cobra.Command {
	var (
		source sourceOpts
		output string
		format string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a signature database as stubdex/v1 JSON or YAML",
		Long: `Write a signature database as a stubdex/v1 document. Exports can be read back
by every command through --from, and serve as lint references.

Examples:
  stubdex export -o rubystubs34.json
  stubdex export --from stubs/rubystubs34 -o rubystubs34.yaml
  stubdex export --run 3f2a --format yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if format == "" {
				format = "json"
				if output != "" && pkgio.IsYAML(output) {
					format = "yaml"
				}
			}
			if format != "json" && format != "yaml" {
				return errors.New(errors.ErrCodeInvalidFormat, "unknown format %q (want json or yaml)", format)
			}

			db, meta, err := c.openSource(cmd.Context(), &source)
			if err != nil {
				return err
			}
			meta.Generator = generator()
			if meta.Generated.IsZero() {
				meta.Generated = time.Now()
			}

			if output == "" {
				if format == "yaml" {
					return pkgio.WriteYAML(db, meta, cmd.OutOrStdout())
				}
				return pkgio.WriteJSON(db, meta, cmd.OutOrStdout())
			}
			if (format == "yaml") != pkgio.IsYAML(output) {
				return errors.New(errors.ErrCodeInvalidPath, "output %s does not match format %s", output, format)
			}
			if err := pkgio.Export(db, meta, output); err != nil {
				return err
			}
			printSuccess("Exported %d modules", db.Len())
			printFile(output)
			return nil
		},
	}

	source.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (.json, .yaml or .yml); stdout when empty")
	cmd.Flags().StringVar(&format, "format", "", "json or yaml (default: from the output extension, then json)")

	return cmd
}

func generator() string {
	return appName + " " + buildinfo.Version
}
