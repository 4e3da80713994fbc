package cli

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/stubdex/pkg/corpus"
	"github.com/matzehuels/stubdex/pkg/index"
	pkgio "github.com/matzehuels/stubdex/pkg/io"
	"github.com/matzehuels/stubdex/pkg/pipeline"
	"github.com/matzehuels/stubdex/pkg/store"
)

// indexOpts holds the command-line flags for the index command.
type indexOpts struct {
	db      string // SQLite database path
	noDB    bool   // skip writing the database
	export  string // optional JSON/YAML export path
	keep    int    // runs to keep in the database, 0 keeps all
	jobs    int    // parse workers
	noCache bool   // ignore and skip the parse cache
	refresh bool   // re-parse every file but refresh the cache
}

// indexCommand creates the index command.
func (c *CLI) indexCommand() *cobra.Command {
	var opts indexOpts

	cmd := &cobra.Command{
		Use:   "index [dir|corpus.toml]",
		Short: "Parse a stub corpus and save its signature database",
		Long: `Parse every stub file of a corpus, merge reopened classes, and save the
result as a new run in a SQLite database. The corpus is a directory (optionally
holding a corpus.toml) or the path of a corpus.toml.

Examples:
  stubdex index stubs/rubystubs34
  stubdex index stubs/rubystubs34 --export rubystubs34.json
  stubdex index corpus.toml --db /tmp/stubs.db --keep 5`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runIndex(cmd.Context(), argOrEmpty(args, 0), opts)
		},
	}

	cmd.Flags().StringVar(&opts.db, "db", "", "SQLite database (default: corpus setting, $STUBDEX_DB, stubdex.db)")
	cmd.Flags().BoolVar(&opts.noDB, "no-db", false, "do not write the database")
	cmd.Flags().StringVarP(&opts.export, "export", "o", "", "also export to a .json or .yaml file")
	cmd.Flags().IntVar(&opts.keep, "keep", 0, "keep only the newest N runs in the database (0 keeps all)")
	cmd.Flags().IntVarP(&opts.jobs, "jobs", "j", 0, "parse workers (default: corpus setting, then GOMAXPROCS)")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the parse cache")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "re-parse every file and refresh the cache")

	return cmd
}

func (c *CLI) runIndex(ctx context.Context, path string, opts indexOpts) error {
	if opts.keep < 0 {
		return fmt.Errorf("--keep must not be negative")
	}
	cfg, err := loadCorpus(path)
	if err != nil {
		return err
	}

	res, err := c.indexCorpus(ctx, cfg, pipeline.Options{Jobs: opts.jobs, Refresh: opts.refresh}, opts.noCache)
	if err != nil {
		return err
	}
	printIndexResult(res)

	meta := pkgio.Meta{Name: cfg.Name, RubyVersion: cfg.RubyVersion, Generator: generator(), Generated: time.Now()}
	if !opts.noDB {
		dbPath := corpus.ResolveDB(opts.db, c.Env, cfg)
		run, err := saveRun(ctx, dbPath, res.Database, cfg, opts.keep)
		if err != nil {
			return err
		}
		printSuccess("Saved run %s", StyleHighlight.Render(run.ID))
		printFile(dbPath)
	}
	if opts.export != "" {
		if err := pkgio.Export(res.Database, meta, opts.export); err != nil {
			return err
		}
		printSuccess("Exported database")
		printFile(opts.export)
	}
	if !opts.noDB {
		printNextStep("Look up a method", "stubdex lookup Array each")
	}
	return nil
}

// indexCorpus runs the pipeline with a spinner.
func (c *CLI) indexCorpus(ctx context.Context, cfg *corpus.Config, opts pipeline.Options, noCache bool) (*pipeline.Result, error) {
	runner := c.newRunner(ctx, noCache, cfg.Name)
	defer runner.Close()

	spinner := newSpinner(ctx, fmt.Sprintf("Indexing %s...", cfg.Name))
	opts.OnFile = func(string, bool) { spinner.Tick() }
	spinner.Start()
	prog := newProgress(c.Logger)
	res, err := runner.Index(ctx, cfg, opts)
	spinner.Stop()
	if err != nil {
		return nil, err
	}
	prog.done("indexed corpus", "corpus", cfg.Name, "files", res.Stats.Files)
	return res, nil
}

// saveRun writes db as a new run and prunes old runs when keep > 0.
func saveRun(ctx context.Context, path string, db *index.Database, cfg *corpus.Config, keep int) (*store.Run, error) {
	s, err := store.Open(path)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	run, err := s.Save(ctx, db, store.SaveOptions{Name: cfg.Name, RubyVersion: cfg.RubyVersion})
	if err != nil {
		return nil, err
	}
	if keep > 0 {
		n, err := s.Prune(ctx, keep)
		if err != nil {
			return nil, err
		}
		loggerFromContext(ctx).Debug("pruned runs", "deleted", n, "kept", keep)
	}
	return run, nil
}

func printIndexResult(res *pipeline.Result) {
	stats := res.Database.Stats()
	title := res.Config.Name
	if res.Config.RubyVersion != "" {
		title += " (ruby " + res.Config.RubyVersion + ")"
	}
	printSuccess("Indexed %s", StyleTitle.Render(title))
	printStats(stats.Files, stats.Modules, stats.Methods+stats.SingletonMethods, res.Stats.Cached)
	printKeyValue("classes", strconv.Itoa(stats.Classes))
	printKeyValue("constants", strconv.Itoa(stats.Constants))
	printKeyValue("documented", fmt.Sprintf("%d / %d", stats.Documented, stats.Methods+stats.SingletonMethods))
	if stats.SyntaxErrors > 0 {
		printWarning("%d syntax errors; run `stubdex lint` for details", stats.SyntaxErrors)
	}
	if stats.Conflicts > 0 {
		printWarning("%d conflicting declarations", stats.Conflicts)
	}
}
