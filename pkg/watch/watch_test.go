package watch

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/stubdex/pkg/corpus"
)

func newWatcher(t *testing.T) (*Watcher, string) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "core"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "core", "array.rb"), []byte("class Array\nend\n"), 0o644))

	w, err := New(Config{
		Corpus:   corpus.Default(dir),
		Debounce: 50 * time.Millisecond,
		Logger:   log.NewWithOptions(io.Discard, log.Options{}),
	})
	require.NoError(t, err)
	t.Cleanup(func() { w.Close() })
	return w, dir
}

func run(t *testing.T, w *Watcher) <-chan []Change {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	batches := make(chan []Change, 16)
	go func() {
		_ = w.Run(ctx, func(_ context.Context, batch []Change) error {
			batches <- batch
			return nil
		})
	}()
	return batches
}

// await collects batches until one mentions path.
func await(t *testing.T, batches <-chan []Change, path string) Change {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case batch := <-batches:
			for _, c := range batch {
				if c.Path == path {
					return c
				}
			}
		case <-deadline:
			t.Fatalf("no change for %s", path)
		}
	}
}

func TestWatcherReportsCorpusFiles(t *testing.T) {
	w, dir := newWatcher(t)
	batches := run(t, w)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "core", "hash.rb"), []byte("class Hash\nend\n"), 0o644))

	c := await(t, batches, "core/hash.rb")
	assert.Equal(t, OpCreate, c.Op)

	require.NoError(t, os.Remove(filepath.Join(dir, "core", "array.rb")))
	c = await(t, batches, "core/array.rb")
	assert.Equal(t, OpDelete, c.Op)
}

func TestWatcherNewDirectory(t *testing.T) {
	w, dir := newWatcher(t)
	batches := run(t, w)

	sub := filepath.Join(dir, "stdlib")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	// Give the watcher time to subscribe to the new directory.
	time.Sleep(200 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(sub, "set.rb"), []byte("class Set\nend\n"), 0o644))

	await(t, batches, "stdlib/set.rb")
}

func TestHandleFilters(t *testing.T) {
	w, dir := newWatcher(t)
	assert.False(t, w.handle(fsnotify.Event{Name: filepath.Join(dir, "README.md"), Op: fsnotify.Write}))
	assert.False(t, w.handle(fsnotify.Event{Name: filepath.Join(filepath.Dir(dir), "other.rb"), Op: fsnotify.Write}))
	assert.True(t, w.handle(fsnotify.Event{Name: filepath.Join(dir, "core", "array.rb"), Op: fsnotify.Write}))
	assert.True(t, w.handle(fsnotify.Event{Name: filepath.Join(dir, "core", "array.rb"), Op: fsnotify.Remove}))
	assert.Equal(t, []Change{{Path: "core/array.rb", Op: OpDelete}}, w.flush())
	assert.Empty(t, w.flush())
}

func TestMerge(t *testing.T) {
	tests := []struct {
		prev, next, want Op
	}{
		{"", OpModify, OpModify},
		{OpCreate, OpModify, OpCreate},
		{OpDelete, OpCreate, OpModify},
		{OpModify, OpDelete, OpDelete},
		{OpCreate, OpDelete, OpDelete},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, merge(tt.prev, tt.next), "merge(%q, %q)", tt.prev, tt.next)
	}
}

func TestNewErrors(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)

	_, err = New(Config{Corpus: corpus.Default(filepath.Join(t.TempDir(), "missing"))})
	assert.Error(t, err)
}
