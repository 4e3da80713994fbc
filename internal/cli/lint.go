package cli

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/matzehuels/stubdex/pkg/errors"
	"github.com/matzehuels/stubdex/pkg/index"
	"github.com/matzehuels/stubdex/pkg/lint"
	"github.com/matzehuels/stubdex/pkg/pipeline"
)

// lintOpts holds the command-line flags for the lint command. Empty values
// fall back to the corpus [lint] table.
type lintOpts struct {
	reference   string
	format      string
	failOn      string
	minSeverity string
	disable     []string
	externals   []string
	jobs        int
	noCache     bool
	listRules   bool
}

// lintCommand creates the lint command.
func (c *CLI) lintCommand() *cobra.Command {
	var opts lintOpts

	cmd := &cobra.Command{
		Use:   "lint [dir|corpus.toml]",
		Short: "Check a stub corpus for errors and inconsistencies",
		Long: `Index a corpus and check it: syntax errors, conflicting or duplicate
declarations, method bodies, constant placeholders, missing docs, and
undefined ancestors. With a reference database (a corpus, export or
database run), signatures are also compared against it.

The command fails when any finding reaches --fail-on.

Examples:
  stubdex lint stubs/rubystubs34
  stubdex lint stubs/rubystubs34 --reference rubystubs33.json
  stubdex lint --disable undocumented --format json
  stubdex lint --rules`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.listRules {
				printRules(cmd.OutOrStdout())
				return nil
			}
			return c.runLint(cmd.Context(), cmd.OutOrStdout(), argOrEmpty(args, 0), opts)
		},
	}

	cmd.Flags().StringVar(&opts.reference, "reference", "", "reference corpus, export or database (default: corpus setting)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "output format: text, json")
	cmd.Flags().StringVar(&opts.failOn, "fail-on", "", "fail when a finding has this severity or higher (default: corpus setting, then error)")
	cmd.Flags().StringVar(&opts.minSeverity, "min-severity", "info", "hide findings below this severity")
	cmd.Flags().StringSliceVar(&opts.disable, "disable", nil, "rules to skip (adds to the corpus setting)")
	cmd.Flags().StringSliceVar(&opts.externals, "externals", nil, "ancestor names defined outside the corpus")
	cmd.Flags().IntVarP(&opts.jobs, "jobs", "j", 0, "parse workers")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the parse cache")
	cmd.Flags().BoolVar(&opts.listRules, "rules", false, "list the available rules and exit")

	return cmd
}

func (c *CLI) runLint(ctx context.Context, w io.Writer, path string, opts lintOpts) error {
	if opts.format != "text" && opts.format != "json" {
		return errors.New(errors.ErrCodeInvalidFormat, "unknown format %q (want text or json)", opts.format)
	}
	cfg, err := loadCorpus(path)
	if err != nil {
		return err
	}

	failOn := opts.failOn
	if failOn == "" {
		failOn = cfg.Lint.FailOn
	}
	if failOn == "" {
		failOn = lint.Error.String()
	}
	threshold, err := lint.ParseSeverity(failOn)
	if err != nil {
		return err
	}
	minSeverity, err := lint.ParseSeverity(opts.minSeverity)
	if err != nil {
		return err
	}
	disable := append(append([]string(nil), cfg.Lint.Disable...), opts.disable...)
	for _, name := range disable {
		if !lint.IsRule(name) {
			return errors.New(errors.ErrCodeInvalidInput, "unknown rule %q; see stubdex lint --rules", name)
		}
	}

	popts := pipeline.Options{Jobs: opts.jobs}
	runner := c.newRunner(ctx, opts.noCache, cfg.Name)
	defer runner.Close()

	res, err := runner.Index(ctx, cfg, popts)
	if err != nil {
		return err
	}
	var ref *index.Database
	if opts.reference != "" {
		ref, err = runner.LoadDatabase(ctx, opts.reference, popts)
	} else {
		ref, err = runner.Reference(ctx, cfg, popts)
	}
	if err != nil {
		return fmt.Errorf("load reference: %w", err)
	}

	report := lint.Run(res.Database, lint.Options{
		Disable:     disable,
		MinSeverity: minSeverity,
		Externals:   append(append([]string(nil), cfg.Lint.Externals...), opts.externals...),
		Reference:   ref,
	})

	if opts.format == "json" {
		if err := writeJSON(w, report); err != nil {
			return err
		}
	} else {
		printReport(w, report)
	}
	if report.Failed(threshold) {
		return fmt.Errorf("lint failed: %s", report.Summary())
	}
	return nil
}

func printReport(w io.Writer, r *lint.Report) {
	for _, f := range r.Findings {
		sev := f.Severity.String()
		switch f.Severity {
		case lint.Error:
			sev = styleIconError.Render(sev)
		case lint.Warning:
			sev = StyleWarning.Render(sev)
		default:
			sev = StyleDim.Render(sev)
		}
		fmt.Fprintf(w, "%s: %s: %s %s\n", StyleValue.Render(f.Location.String()), sev, f.Message, StyleDim.Render("["+f.Rule+"]"))
	}
	if len(r.Findings) > 0 {
		fmt.Fprintln(w)
	}

	counts := r.ByRule()
	rules := make([]string, 0, len(counts))
	for rule := range counts {
		rules = append(rules, rule)
	}
	sort.Strings(rules)
	for _, rule := range rules {
		fmt.Fprintf(w, "  %s %s\n", StyleDim.Render(fmt.Sprintf("%-20s", rule)), StyleNumber.Render(fmt.Sprint(counts[rule])))
	}
	fmt.Fprintln(w, StyleTitle.Render(r.Summary()))
}

func printRules(w io.Writer) {
	for _, r := range lint.Rules() {
		note := ""
		if r.NeedsReference {
			note = StyleDim.Render(" (needs --reference)")
		}
		fmt.Fprintf(w, "%s %s %s%s\n",
			StyleHighlight.Render(fmt.Sprintf("%-20s", r.Name)),
			StyleDim.Render(fmt.Sprintf("%-8s", r.Severity)),
			r.Description, note)
	}
}
