// Package pipeline turns a stub corpus into a signature database.
//
// The same pipeline backs the CLI, the HTTP server and watch mode:
//
//  1. Discover: expand the corpus include/exclude globs
//  2. Parse: read and parse each file on a bounded worker pool, reusing
//     cached parse results for unchanged files
//  3. Merge: add the parsed files to an [index.Database] in path order
//
// Parse results are merged in path order whatever the worker count, so two
// runs over the same files always produce the same database.
//
// # Usage
//
//	runner := pipeline.NewRunner(fileCache, nil, logger)
//	cfg, _ := corpus.Load("stubs/rubystubs34")
//	res, err := runner.Index(ctx, cfg, pipeline.Options{Jobs: 8})
//	if err != nil {
//	    return err
//	}
//	fmt.Println(res.Database.Stats().Methods)
package pipeline

import (
	"runtime"
	"time"

	"github.com/matzehuels/stubdex/pkg/corpus"
	"github.com/matzehuels/stubdex/pkg/errors"
	"github.com/matzehuels/stubdex/pkg/index"
	"github.com/matzehuels/stubdex/pkg/parser"
	"github.com/matzehuels/stubdex/pkg/parser/ruby"
)

// MaxJobs bounds the parse worker count.
const MaxJobs = 256

// Options controls a single index run.
type Options struct {
	// Jobs is the number of parse workers. Zero uses the corpus setting, then
	// GOMAXPROCS.
	Jobs int

	// Refresh ignores cached parse results. Fresh results are still written.
	Refresh bool

	// Parsers creates the parsers each worker uses. Defaults to Ruby only.
	Parsers []parser.Factory

	// OnFile is called from the parse workers after each file is parsed.
	// It must be safe for concurrent use.
	OnFile func(rel string, cached bool)
}

// Result is the outcome of an index run.
type Result struct {
	Config   *corpus.Config
	Database *index.Database
	// Files are the parsed files relative to the corpus root, in merge order.
	Files []string
	Stats Stats
}

// Stats describes an index run.
type Stats struct {
	Files        int
	Cached       int
	Skipped      int
	SyntaxErrors int
	Jobs         int
	DiscoverTime time.Duration
	ParseTime    time.Duration
	MergeTime    time.Duration
}

// Total returns the wall time of the run.
func (s Stats) Total() time.Duration {
	return s.DiscoverTime + s.ParseTime + s.MergeTime
}

func (o Options) jobs(cfg *corpus.Config) int {
	n := o.Jobs
	if n == 0 && cfg != nil {
		n = cfg.Index.Jobs
	}
	if n <= 0 {
		n = runtime.GOMAXPROCS(0)
	}
	return min(n, MaxJobs)
}

func (o Options) parsers() []parser.Factory {
	if len(o.Parsers) == 0 {
		return []parser.Factory{ruby.Factory}
	}
	return o.Parsers
}

func (o Options) validate() error {
	if o.Jobs < 0 || o.Jobs > MaxJobs {
		return errors.New(errors.ErrCodeInvalidInput, "jobs must be between 0 and %d, got %d", MaxJobs, o.Jobs)
	}
	return nil
}
