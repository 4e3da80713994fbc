package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/stubdex/pkg/buildinfo"
	"github.com/matzehuels/stubdex/pkg/cache"
	"github.com/matzehuels/stubdex/pkg/corpus"
	"github.com/matzehuels/stubdex/pkg/pipeline"
)

const appName = "stubdex"

// Log levels for [New].
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
	// Env is read from the process environment and .env when the root
	// command runs.
	Env corpus.Env
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// applyLogLevel sets the level from --verbose, then STUBDEX_LOG_LEVEL.
func (c *CLI) applyLogLevel(verbose bool) error {
	switch {
	case verbose:
		c.SetLogLevel(LogDebug)
	case c.Env.LogLevel != "":
		level, err := log.ParseLevel(c.Env.LogLevel)
		if err != nil {
			return fmt.Errorf("%s: %w", corpus.EnvLogLevel, err)
		}
		c.SetLogLevel(level)
	}
	return nil
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	var verbose bool
	root := &cobra.Command{
		Use:   appName,
		Short: "stubdex indexes Ruby stub corpora into a signature database",
		Long: `stubdex parses Ruby standard-library stub files (class and module declarations
with documented method signatures) into a signature database, checks the stubs
for consistency, and answers lookups from the command line, a TUI or HTTP.`,
		Version:       buildinfo.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			c.Env = corpus.LoadEnv()
			if err := c.applyLogLevel(verbose); err != nil {
				return err
			}
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(c.indexCommand())
	root.AddCommand(c.lookupCommand())
	root.AddCommand(c.searchCommand())
	root.AddCommand(c.lintCommand())
	root.AddCommand(c.exportCommand())
	root.AddCommand(c.graphCommand())
	root.AddCommand(c.runsCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.watchCommand())
	root.AddCommand(c.browseCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner for CLI use. Cache keys are scoped by
// corpus name when one is given.
func (c *CLI) newRunner(ctx context.Context, noCache bool, scope string) *pipeline.Runner {
	var keyer cache.Keyer
	if scope != "" {
		keyer = cache.NewScopedKeyer(nil, scope+":")
	}
	return pipeline.NewRunner(c.newCache(ctx, noCache), keyer, c.Logger)
}

// newCache picks the cache backend: Redis when STUBDEX_REDIS_ADDR is set,
// otherwise the file cache. Backend failures degrade to no caching.
func (c *CLI) newCache(ctx context.Context, noCache bool) cache.Cache {
	if noCache {
		return cache.NewNullCache()
	}
	if c.Env.RedisAddr != "" {
		rc, err := cache.NewRedisCache(ctx, cache.RedisConfig{Addr: c.Env.RedisAddr})
		if err == nil {
			c.Logger.Debug("using redis cache", "addr", c.Env.RedisAddr)
			return rc
		}
		c.Logger.Warn("redis unavailable, falling back to file cache", "addr", c.Env.RedisAddr, "error", err)
	}
	dir, err := c.Env.ResolveCacheDir()
	if err != nil {
		c.Logger.Warn("cache disabled", "error", err)
		return cache.NewNullCache()
	}
	fc, err := cache.NewFileCache(dir)
	if err != nil {
		c.Logger.Warn("cache disabled", "dir", dir, "error", err)
		return cache.NewNullCache()
	}
	return fc
}

// =============================================================================
// Helpers
// =============================================================================

// loadCorpus loads the corpus at path, defaulting to the working directory.
func loadCorpus(path string) (*corpus.Config, error) {
	if path == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		path = wd
	}
	return corpus.Load(path)
}

func argOrEmpty(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}

// hasExt reports whether path has extension ext, ignoring case.
func hasExt(path, ext string) bool {
	return strings.EqualFold(filepath.Ext(path), ext)
}
