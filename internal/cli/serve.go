package cli

import (
	"context"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/stubdex/pkg/errors"
	"github.com/matzehuels/stubdex/pkg/index"
	"github.com/matzehuels/stubdex/pkg/observability"
	"github.com/matzehuels/stubdex/pkg/pipeline"
	"github.com/matzehuels/stubdex/pkg/server"
)

type serveOpts struct {
	source    sourceOpts
	addr      string
	cacheSize int
	watch     bool
	noMetrics bool
}

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var opts serveOpts

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve lookups over HTTP",
		Long: `Serve a signature database as a read-only JSON API:

  GET /healthz
  GET /api/v1/stats
  GET /api/v1/modules[?kind=class|module]
  GET /api/v1/modules/{name}
  GET /api/v1/modules/{name}/ancestors
  GET /api/v1/lookup?module=Array&method=each[&singleton=true&inherit=false]
  GET /api/v1/search?q=each&limit=20
  GET /metrics

With --watch, the source must be a corpus; it is re-indexed on change and
the served database replaced atomically.

Examples:
  stubdex serve
  stubdex serve --from stubs/rubystubs34 --watch --addr :8372`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), opts)
		},
	}

	opts.source.register(cmd)
	cmd.Flags().StringVar(&opts.addr, "addr", "", "listen address (default $STUBDEX_ADDR, then "+server.DefaultAddr+")")
	cmd.Flags().IntVar(&opts.cacheSize, "cache-size", server.DefaultCacheSize, "cached responses")
	cmd.Flags().BoolVarP(&opts.watch, "watch", "w", false, "re-index the corpus on change")
	cmd.Flags().BoolVar(&opts.noMetrics, "no-metrics", false, "disable /metrics")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, opts serveOpts) error {
	addr := opts.addr
	if addr == "" {
		addr = c.Env.Addr
	}
	if addr == "" {
		addr = server.DefaultAddr
	}

	cfg := server.Config{Addr: addr, CacheSize: opts.cacheSize, Logger: c.Logger}
	if !opts.noMetrics {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		metrics := observability.NewPrometheus(reg)
		observability.SetIndexHooks(metrics)
		observability.SetCacheHooks(metrics)
		observability.SetHTTPHooks(metrics)
		defer observability.Reset()
		cfg.Gatherer = reg
	}

	if !opts.watch {
		db, meta, err := c.openSource(ctx, &opts.source)
		if err != nil {
			return err
		}
		cfg.Name = meta.Name
		return c.serve(ctx, db, cfg, nil)
	}

	if opts.source.from == "" || isDatabase(opts.source.from) {
		return errors.New(errors.ErrCodeInvalidInput, "--watch needs --from pointing at a corpus directory or corpus.toml")
	}
	if info, err := os.Stat(opts.source.from); err == nil && !info.IsDir() && !hasExt(opts.source.from, ".toml") {
		return errors.New(errors.ErrCodeInvalidInput, "--watch cannot follow an export: %s", opts.source.from)
	}
	corpusCfg, err := loadCorpus(opts.source.from)
	if err != nil {
		return err
	}
	popts := pipeline.Options{Jobs: opts.source.jobs}
	res, err := c.indexCorpus(ctx, corpusCfg, popts, opts.source.noCache)
	if err != nil {
		return err
	}
	cfg.Name = corpusCfg.Name

	return c.serve(ctx, res.Database, cfg, func(ctx context.Context, srv *server.Server) error {
		return c.watchCorpus(ctx, corpusCfg, popts, 0, func(_ context.Context, res *pipeline.Result) error {
			srv.Swap(res.Database)
			return nil
		})
	})
}

// serve runs the server and, when given, a background task that may swap
// its database. Either one failing stops both.
func (c *CLI) serve(ctx context.Context, db *index.Database, cfg server.Config, background func(context.Context, *server.Server) error) error {
	srv, err := server.New(db, cfg)
	if err != nil {
		return err
	}
	printSuccess("Serving %s on %s", StyleHighlight.Render(cfg.Name), StyleLink.Render("http://"+cfg.Addr))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.ListenAndServe(ctx) })
	if background != nil {
		g.Go(func() error { return background(ctx, srv) })
	}
	return g.Wait()
}
