package pipeline

import (
	"context"
	stderrors "errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/stubdex/pkg/cache"
	"github.com/matzehuels/stubdex/pkg/corpus"
	"github.com/matzehuels/stubdex/pkg/errors"
	"github.com/matzehuels/stubdex/pkg/index"
	"github.com/matzehuels/stubdex/pkg/observability"
	"github.com/matzehuels/stubdex/pkg/parser"
	"github.com/matzehuels/stubdex/pkg/stub"
)

// Runner indexes corpora with caching.
//
// The Runner holds no per-run state. Multiple goroutines can share one
// Runner and index different corpora concurrently.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{Cache: c, Keyer: keyer, Logger: logger}
}

// parsed is the outcome of one file.
type parsed struct {
	file    *stub.File
	cached  bool
	skipped bool
}

// Index discovers, parses and merges the files of cfg.
func (r *Runner) Index(ctx context.Context, cfg *corpus.Config, opts Options) (res *Result, err error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	hooks := observability.Index()
	start := time.Now()
	res = &Result{Config: cfg, Database: index.New()}
	defer func() {
		modules, methods := 0, 0
		if err == nil {
			s := res.Database.Stats()
			modules, methods = s.Modules, s.Methods+s.SingletonMethods
		}
		hooks.OnIndexComplete(ctx, cfg.Name, modules, methods, time.Since(start), err)
	}()

	files, err := cfg.Discover()
	if err != nil {
		return nil, err
	}
	res.Stats.DiscoverTime = time.Since(start)
	res.Stats.Jobs = opts.jobs(cfg)
	hooks.OnIndexStart(ctx, cfg.Name, len(files))
	r.Logger.Debug("discovered files", "corpus", cfg.Name, "files", len(files), "jobs", res.Stats.Jobs)

	parseStart := time.Now()
	results, err := r.parseAll(ctx, cfg.RootDir(), files, opts, res.Stats.Jobs)
	if err != nil {
		return nil, err
	}
	res.Stats.ParseTime = time.Since(parseStart)

	mergeStart := time.Now()
	for i, p := range results {
		if p.skipped {
			res.Stats.Skipped++
			continue
		}
		if p.cached {
			res.Stats.Cached++
		}
		res.Stats.SyntaxErrors += len(p.file.Errors)
		res.Database.Add(p.file)
		res.Files = append(res.Files, files[i])
	}
	res.Stats.Files = len(res.Files)
	res.Stats.MergeTime = time.Since(mergeStart)

	r.Logger.Info("indexed corpus",
		"corpus", describe(cfg),
		"files", res.Stats.Files,
		"cached", res.Stats.Cached,
		"modules", res.Database.Len(),
		"duration", res.Stats.Total())
	return res, nil
}

// parseAll parses files on jobs workers. Each worker owns its parsers;
// results keep the order of files.
func (r *Runner) parseAll(ctx context.Context, root string, files []string, opts Options, jobs int) ([]parsed, error) {
	results := make([]parsed, len(files))
	work := make(chan int)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(work)
		for i := range files {
			select {
			case work <- i:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})
	for range min(jobs, max(len(files), 1)) {
		parsers := make([]parser.Parser, 0, len(opts.parsers()))
		for _, newParser := range opts.parsers() {
			parsers = append(parsers, newParser())
		}
		g.Go(func() error {
			for i := range work {
				p, err := r.parseOne(ctx, parsers, root, files[i], opts.Refresh)
				if err != nil {
					return err
				}
				if opts.OnFile != nil && !p.skipped {
					opts.OnFile(files[i], p.cached)
				}
				results[i] = p
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (r *Runner) parseOne(ctx context.Context, parsers []parser.Parser, root, rel string, refresh bool) (parsed, error) {
	if err := ctx.Err(); err != nil {
		return parsed{}, err
	}
	p, err := parser.Detect(rel, parsers...)
	if err != nil {
		r.Logger.Warn("skipping file", "path", rel, "reason", err)
		return parsed{skipped: true}, nil
	}

	start := time.Now()
	f, cached, err := r.ParseFile(ctx, p, root, filepath.Join(root, filepath.FromSlash(rel)), refresh)
	observability.Index().OnFileParsed(ctx, rel, cached, time.Since(start), err)
	if err != nil {
		return parsed{}, err
	}
	if len(f.Errors) > 0 {
		r.Logger.Debug("syntax errors", "path", rel, "count", len(f.Errors))
	}
	return parsed{file: f, cached: cached}, nil
}

// ParseFile parses the file at path with p, consulting the cache first
// unless refresh is set. The returned file's Path is relative to root. The
// boolean reports whether the result came from the cache.
func (r *Runner) ParseFile(ctx context.Context, p parser.Parser, root, path string, refresh bool) (*stub.File, bool, error) {
	src, hash, rel, err := parser.ReadFile(root, path)
	if err != nil {
		return nil, false, err
	}
	key := r.Keyer.ParseKey(cache.ParseKeyOpts{
		Parser:  p.Type(),
		Version: p.Version(),
		Path:    rel,
		Hash:    hash,
	})
	hooks := observability.Cache()

	if !refresh {
		var f stub.File
		err := cache.GetJSON(ctx, r.Cache, key, &f)
		switch {
		case err == nil:
			hooks.OnCacheHit(ctx, "parse")
			return &f, true, nil
		case stderrors.Is(err, cache.ErrCacheMiss):
			hooks.OnCacheMiss(ctx, "parse")
		default:
			r.Logger.Warn("cache read failed", "path", rel, "error", err)
		}
	}

	f, err := p.Parse(ctx, rel, src)
	if err != nil {
		return nil, false, errors.Wrap(errors.ErrCodeParse, err, "parse %s", rel)
	}
	f.Hash = hash

	if err := cache.SetJSON(ctx, r.Cache, key, f, cache.TTLParse); err != nil {
		r.Logger.Warn("cache write failed", "path", rel, "error", err)
	} else {
		hooks.OnCacheSet(ctx, "parse", len(src))
	}
	return f, false, nil
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

func describe(cfg *corpus.Config) string {
	if cfg.RubyVersion == "" {
		return cfg.Name
	}
	return fmt.Sprintf("%s (ruby %s)", cfg.Name, cfg.RubyVersion)
}
