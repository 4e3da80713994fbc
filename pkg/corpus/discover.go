package corpus

import (
	"os"
	"path"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/matzehuels/stubdex/pkg/errors"
)

// Discover returns the corpus files matched by Include and not by Exclude,
// as slash-separated paths relative to the root, sorted.
func (c *Config) Discover() ([]string, error) {
	root := c.RootDir()
	info, err := os.Stat(root)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "corpus root %s", root)
	}
	if !info.IsDir() {
		return nil, errors.New(errors.ErrCodeInvalidPath, "corpus root %s is not a directory", root)
	}

	fsys := os.DirFS(root)
	seen := make(map[string]bool)
	var files []string
	for _, pattern := range c.Include {
		matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "include %q", pattern)
		}
		for _, m := range matches {
			if seen[m] || c.excluded(m) {
				continue
			}
			seen[m] = true
			files = append(files, m)
		}
	}
	sort.Strings(files)
	return files, nil
}

// Matches reports whether rel, a path relative to the root, belongs to the
// corpus.
func (c *Config) Matches(rel string) bool {
	rel = path.Clean(filepath.ToSlash(rel))
	if c.excluded(rel) {
		return false
	}
	for _, pattern := range c.Include {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}

func (c *Config) excluded(rel string) bool {
	for _, pattern := range c.Exclude {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}
