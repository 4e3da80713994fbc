package cli

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/stubdex/pkg/corpus"
	"github.com/matzehuels/stubdex/pkg/index"
	pkgio "github.com/matzehuels/stubdex/pkg/io"
	"github.com/matzehuels/stubdex/pkg/pipeline"
	"github.com/matzehuels/stubdex/pkg/store"
)

// sourceOpts selects the database a read command works on: a corpus
// directory or corpus.toml (indexed on the fly), a stubdex/v1 export, or a
// run in a SQLite database.
type sourceOpts struct {
	from    string // corpus, export or database path
	db      string // SQLite database path
	run     string // run ID, newest when empty
	jobs    int
	noCache bool
}

func (o *sourceOpts) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.from, "from", "", "corpus directory, corpus.toml, export (.json/.yaml) or database (.db)")
	cmd.Flags().StringVar(&o.db, "db", "", "SQLite database (default $STUBDEX_DB, then stubdex.db)")
	cmd.Flags().StringVar(&o.run, "run", "", "run ID in the database (default newest)")
	cmd.Flags().IntVarP(&o.jobs, "jobs", "j", 0, "parse workers when indexing a corpus (default GOMAXPROCS)")
	cmd.Flags().BoolVar(&o.noCache, "no-cache", false, "do not use cached parse results")
}

// isDatabase reports whether path names a SQLite database file.
func isDatabase(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return true
	}
	return false
}

// databasePath returns the SQLite database the options point at, or "" when
// they name a corpus or export instead.
func (o *sourceOpts) databasePath(env corpus.Env) string {
	switch {
	case o.from != "" && isDatabase(o.from):
		return o.from
	case o.from != "":
		return ""
	}
	return corpus.ResolveDB(o.db, env, nil)
}

// openDatabase loads the selected database.
func (c *CLI) openDatabase(ctx context.Context, o *sourceOpts) (*index.Database, error) {
	db, _, err := c.openSource(ctx, o)
	return db, err
}

// openSource loads the selected database along with its name and Ruby
// version.
func (c *CLI) openSource(ctx context.Context, o *sourceOpts) (*index.Database, pkgio.Meta, error) {
	if path := o.databasePath(c.Env); path != "" {
		s, err := store.Open(path)
		if err != nil {
			return nil, pkgio.Meta{}, err
		}
		defer s.Close()
		db, run, err := s.Load(ctx, o.run)
		if err != nil {
			return nil, pkgio.Meta{}, err
		}
		c.Logger.Debug("loaded run", "db", path, "run", run.ID, "name", run.Name)
		return db, pkgio.Meta{Name: run.Name, RubyVersion: run.RubyVersion, Generated: run.Created}, nil
	}

	if info, err := os.Stat(o.from); err == nil && !info.IsDir() && !hasExt(o.from, ".toml") {
		return pkgio.Import(o.from)
	}

	cfg, err := loadCorpus(o.from)
	if err != nil {
		return nil, pkgio.Meta{}, err
	}
	runner := c.newRunner(ctx, o.noCache, cfg.Name)
	defer runner.Close()
	res, err := runner.Index(ctx, cfg, pipeline.Options{Jobs: o.jobs})
	if err != nil {
		return nil, pkgio.Meta{}, err
	}
	return res.Database, pkgio.Meta{Name: cfg.Name, RubyVersion: cfg.RubyVersion}, nil
}
