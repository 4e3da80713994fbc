package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/stubdex/pkg/corpus"
	"github.com/matzehuels/stubdex/pkg/lint"
	"github.com/matzehuels/stubdex/pkg/pipeline"
	"github.com/matzehuels/stubdex/pkg/watch"
)

type watchOpts struct {
	save     bool
	db       string
	keep     int
	lint     bool
	jobs     int
	debounce time.Duration
}

// watchCommand creates the watch command.
func (c *CLI) watchCommand() *cobra.Command {
	var opts watchOpts

	cmd := &cobra.Command{
		Use:   "watch [dir|corpus.toml]",
		Short: "Re-index a corpus whenever its files change",
		Long: `Index a corpus, then watch it and re-index after every batch of changes.
Unchanged files are served from the parse cache, so a re-index only parses
what was edited.

Examples:
  stubdex watch stubs/rubystubs34 --lint
  stubdex watch --save --keep 10`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runWatch(cmd.Context(), argOrEmpty(args, 0), opts)
		},
	}

	cmd.Flags().BoolVar(&opts.save, "save", false, "save every re-index as a run in the database")
	cmd.Flags().StringVar(&opts.db, "db", "", "SQLite database for --save")
	cmd.Flags().IntVar(&opts.keep, "keep", 5, "runs to keep with --save (0 keeps all)")
	cmd.Flags().BoolVar(&opts.lint, "lint", false, "print a lint summary after every re-index")
	cmd.Flags().IntVarP(&opts.jobs, "jobs", "j", 0, "parse workers")
	cmd.Flags().DurationVar(&opts.debounce, "debounce", watch.DefaultDebounce, "quiet period before re-indexing")

	return cmd
}

func (c *CLI) runWatch(ctx context.Context, path string, opts watchOpts) error {
	cfg, err := loadCorpus(path)
	if err != nil {
		return err
	}
	popts := pipeline.Options{Jobs: opts.jobs}
	dbPath := corpus.ResolveDB(opts.db, c.Env, cfg)

	onIndex := func(ctx context.Context, res *pipeline.Result) error {
		printIndexResult(res)
		if opts.lint {
			report := lint.Run(res.Database, lint.Options{
				Disable:   cfg.Lint.Disable,
				Externals: cfg.Lint.Externals,
			})
			printInfo("lint: %s", report.Summary())
		}
		if opts.save {
			run, err := saveRun(ctx, dbPath, res.Database, cfg, opts.keep)
			if err != nil {
				return err
			}
			printDetail("saved run %s to %s", run.ID, dbPath)
		}
		return nil
	}

	res, err := c.indexCorpus(ctx, cfg, popts, false)
	if err != nil {
		return err
	}
	if err := onIndex(ctx, res); err != nil {
		return err
	}
	printInfo("Watching %s (ctrl+c to stop)", cfg.RootDir())
	return c.watchCorpus(ctx, cfg, popts, opts.debounce, onIndex)
}

// watchCorpus re-indexes cfg after every batch of changes and hands the
// result to onIndex. Index failures are logged and the watch goes on; an
// error from onIndex stops it.
func (c *CLI) watchCorpus(ctx context.Context, cfg *corpus.Config, popts pipeline.Options, debounce time.Duration, onIndex func(context.Context, *pipeline.Result) error) error {
	w, err := watch.New(watch.Config{Corpus: cfg, Debounce: debounce, Logger: c.Logger})
	if err != nil {
		return err
	}
	defer w.Close()

	runner := c.newRunner(ctx, false, cfg.Name)
	defer runner.Close()

	return w.Run(ctx, func(ctx context.Context, changes []watch.Change) error {
		for _, ch := range changes {
			c.Logger.Debug("changed", "path", ch.Path, "op", ch.Op)
		}
		c.Logger.Info("files changed, re-indexing", "count", len(changes))

		prog := newProgress(c.Logger)
		res, err := runner.Index(ctx, cfg, popts)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.Logger.Error("re-index failed", "error", err)
			return nil
		}
		prog.done("re-indexed corpus", "files", res.Stats.Files)
		return onIndex(ctx, res)
	})
}
