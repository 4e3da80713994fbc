package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/matzehuels/stubdex/pkg/corpus"
	"github.com/matzehuels/stubdex/pkg/errors"
	"github.com/matzehuels/stubdex/pkg/index"
	pkgio "github.com/matzehuels/stubdex/pkg/io"
)

// LoadDatabase opens path as a signature database: a stubdex/v1 export
// (JSON or YAML) is imported, anything else is indexed as a corpus.
func (r *Runner) LoadDatabase(ctx context.Context, path string, opts Options) (*index.Database, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "open %s", path)
	}
	if !info.IsDir() && !isCorpusFile(path) {
		db, meta, err := pkgio.Import(path)
		if err != nil {
			return nil, err
		}
		r.Logger.Debug("imported database", "path", path, "name", meta.Name, "modules", db.Len())
		return db, nil
	}
	cfg, err := corpus.Load(path)
	if err != nil {
		return nil, err
	}
	res, err := r.Index(ctx, cfg, opts)
	if err != nil {
		return nil, err
	}
	return res.Database, nil
}

// Reference loads the reference database configured for cfg, or returns
// nil when none is set.
func (r *Runner) Reference(ctx context.Context, cfg *corpus.Config, opts Options) (*index.Database, error) {
	path := cfg.ReferencePath()
	if path == "" {
		return nil, nil
	}
	return r.LoadDatabase(ctx, path, opts)
}

func isCorpusFile(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}
