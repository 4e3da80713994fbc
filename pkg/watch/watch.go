// Package watch reports changes to the files of a stub corpus.
//
// A [Watcher] subscribes to every directory below the corpus root with
// fsnotify, drops events for paths the corpus does not include, and
// delivers the rest in debounced batches: an editor saving several files,
// or writing one file in several steps, produces a single batch.
package watch

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"

	"github.com/matzehuels/stubdex/pkg/corpus"
	"github.com/matzehuels/stubdex/pkg/errors"
)

// DefaultDebounce is the quiet period before a batch is delivered.
const DefaultDebounce = 200 * time.Millisecond

// Op is the kind of change to a file.
type Op string

const (
	OpCreate Op = "create"
	OpModify Op = "modify"
	OpDelete Op = "delete"
)

// Change is a change to one corpus file. Path is relative to the corpus
// root, slash-separated.
type Change struct {
	Path string
	Op   Op
}

// Config configures a Watcher.
type Config struct {
	Corpus   *corpus.Config
	Debounce time.Duration
	Logger   *log.Logger
}

// Watcher watches a corpus for changes.
type Watcher struct {
	cfg    *corpus.Config
	root   string
	delay  time.Duration
	fsw    *fsnotify.Watcher
	logger *log.Logger

	mu      sync.Mutex
	pending map[string]Op
}

// New creates a watcher and subscribes to the corpus directories. Changes
// made after New returns are reported by [Watcher.Run].
func New(cfg Config) (*Watcher, error) {
	if cfg.Corpus == nil {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "watch: no corpus")
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "create watcher")
	}
	w := &Watcher{
		cfg:     cfg.Corpus,
		root:    cfg.Corpus.RootDir(),
		delay:   cfg.Debounce,
		fsw:     fsw,
		logger:  cfg.Logger,
		pending: make(map[string]Op),
	}
	if w.delay <= 0 {
		w.delay = DefaultDebounce
	}
	if w.logger == nil {
		w.logger = log.Default()
	}
	if err := w.addTree(w.root); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

// addTree watches dir and every directory below it, skipping hidden ones.
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return errors.Wrap(errors.ErrCodeInvalidPath, err, "watch %s", dir)
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			w.logger.Warn("cannot watch directory", "path", path, "error", err)
			return nil
		}
		w.logger.Debug("watching", "path", path)
		return nil
	})
}

// Run delivers batches of changes to fn until ctx is done. It returns
// nil on cancellation and otherwise the first error from fn or fsnotify.
func (w *Watcher) Run(ctx context.Context, fn func(context.Context, []Change) error) error {
	timer := time.NewTimer(w.delay)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if w.handle(ev) {
				timer.Reset(w.delay)
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watch error", "error", err)

		case <-timer.C:
			batch := w.flush()
			if len(batch) == 0 {
				continue
			}
			if err := fn(ctx, batch); err != nil {
				return err
			}
		}
	}
}

// handle records ev and reports whether it concerns the corpus.
func (w *Watcher) handle(ev fsnotify.Event) bool {
	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			_ = w.addTree(ev.Name)
			return false
		}
	}

	rel, err := filepath.Rel(w.root, ev.Name)
	if err != nil || strings.HasPrefix(rel, "..") {
		return false
	}
	rel = filepath.ToSlash(rel)
	if !w.cfg.Matches(rel) {
		return false
	}

	var op Op
	switch {
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		op = OpDelete
	case ev.Has(fsnotify.Create):
		op = OpCreate
	case ev.Has(fsnotify.Write):
		op = OpModify
	default:
		return false
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending[rel] = merge(w.pending[rel], op)
	return true
}

// merge folds a new operation into the pending one for the same path.
func merge(prev, next Op) Op {
	switch {
	case prev == OpCreate && next == OpModify:
		return OpCreate
	case prev == OpDelete && next == OpCreate:
		return OpModify
	}
	return next
}

func (w *Watcher) flush() []Change {
	w.mu.Lock()
	defer w.mu.Unlock()

	batch := make([]Change, 0, len(w.pending))
	for path, op := range w.pending {
		batch = append(batch, Change{Path: path, Op: op})
	}
	clear(w.pending)
	sort.Slice(batch, func(i, j int) bool { return batch[i].Path < batch[j].Path })
	return batch
}
