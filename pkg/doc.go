// Package pkg provides the core libraries for stubdex, a signature database
// for Ruby standard-library stub corpora.
//
// # Overview
//
// A stub corpus is a tree of Ruby files that declare classes, modules and
// documented method signatures without implementations:
//
//	class File < IO
//	  # Opens the file named by path.
//	  def self.open(path, mode = "r", *rest, **opts, &block) end
//
//	  SEPARATOR = _
//	end
//
// stubdex parses such a corpus, merges classes that are reopened across
// files, and answers "which signature does Array#map resolve to?" the way
// Ruby's method lookup would, without ever running Ruby.
//
// # Architecture
//
// The typical data flow:
//
//	corpus.toml + *.rb
//	         ↓
//	    [corpus] (discover files)
//	         ↓
//	    [parser/ruby] (tree-sitter, one parser per worker)
//	         ↓
//	    [index] (merge, ancestors, lookup, search)
//	         ↓
//	    [lint] / [store] / [io] / [hierarchy] / [server]
//
// [pipeline] wires the first three steps together with a parse cache and a
// bounded worker pool, and is what every entry point calls.
//
// # Quick Start
//
//	cfg, _ := corpus.Load("stubs/rubystubs34")
//	runner := pipeline.NewRunner(nil, nil, nil)
//	res, _ := runner.Index(ctx, cfg, pipeline.Options{})
//
//	r, _ := res.Database.Lookup("Array", "map", index.LookupOptions{Inherited: true})
//	fmt.Println(r.Key(), r.Method.Signature()) // Enumerable#map def map
//
// # Main Packages
//
// [stub] - The data model: modules, methods, parameters, constants, files.
//
// [parser] - The parser interface and detection; [parser/ruby] implements it
// with smacker/go-tree-sitter.
//
// [index] - The in-memory signature database: merge, duplicate and conflict
// records, ancestor linearization, dispatch chains, lookup and search.
//
// [lint] - Consistency rules over a database, optionally against a
// reference database.
//
// [hierarchy] - The ancestry graph with DOT and SVG output.
//
// ## Infrastructure
//
// [corpus] - corpus.toml loading, validation, file discovery and
// environment settings.
//
// [cache] - Parse and artifact caching: file, memory, Redis and null
// backends behind one interface.
//
// [store] - SQLite persistence of indexed runs, including the resolved
// dispatch chains used for lookups without loading a whole run.
//
// [io] - The stubdex/v1 JSON and YAML interchange format.
//
// [watch] - fsnotify-based change batches for re-indexing.
//
// [server] - The read-only HTTP API.
//
// [observability] - Hooks for index, cache and HTTP events, with a
// Prometheus implementation.
//
// # Testing
//
//	go test ./pkg/...                    # All tests
//	go test ./pkg/index/...              # Specific package
//
// [corpus]: https://pkg.go.dev/github.com/matzehuels/stubdex/pkg/corpus
// [parser]: https://pkg.go.dev/github.com/matzehuels/stubdex/pkg/parser
// [parser/ruby]: https://pkg.go.dev/github.com/matzehuels/stubdex/pkg/parser/ruby
// [stub]: https://pkg.go.dev/github.com/matzehuels/stubdex/pkg/stub
// [index]: https://pkg.go.dev/github.com/matzehuels/stubdex/pkg/index
// [lint]: https://pkg.go.dev/github.com/matzehuels/stubdex/pkg/lint
// [hierarchy]: https://pkg.go.dev/github.com/matzehuels/stubdex/pkg/hierarchy
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/stubdex/pkg/pipeline
// [cache]: https://pkg.go.dev/github.com/matzehuels/stubdex/pkg/cache
// [store]: https://pkg.go.dev/github.com/matzehuels/stubdex/pkg/store
// [io]: https://pkg.go.dev/github.com/matzehuels/stubdex/pkg/io
// [watch]: https://pkg.go.dev/github.com/matzehuels/stubdex/pkg/watch
// [server]: https://pkg.go.dev/github.com/matzehuels/stubdex/pkg/server
// [observability]: https://pkg.go.dev/github.com/matzehuels/stubdex/pkg/observability
package pkg
