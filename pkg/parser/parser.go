package parser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/matzehuels/stubdex/pkg/cache"
	"github.com/matzehuels/stubdex/pkg/errors"
	"github.com/matzehuels/stubdex/pkg/stub"
)

// Parser reads declarations from stub source files.
type Parser interface {
	// Parse parses src, read from path, into a stub file. Syntax errors are
	// reported in File.Errors; the returned error is reserved for failures
	// such as cancellation.
	Parse(ctx context.Context, path string, src []byte) (*stub.File, error)
	// Supports reports whether this parser handles the given filename.
	Supports(filename string) bool
	// Type returns the parser type identifier (e.g., "ruby").
	Type() string
	// Version changes whenever the parser's output for the same input changes.
	// Cached parse results are keyed by it.
	Version() string
}

// Factory creates a fresh parser.
type Factory func() Parser

// Detect finds a parser that supports the given file path.
// Returns an error if no parser matches.
func Detect(path string, parsers ...Parser) (Parser, error) {
	name := filepath.Base(path)
	for _, p := range parsers {
		if p.Supports(name) {
			return p, nil
		}
	}
	return nil, errors.New(errors.ErrCodeUnsupported, "unsupported stub file: %s", name)
}

// ReadFile reads path and returns its content, its hash and its path relative
// to root (slash-separated). A path outside root keeps its original form.
func ReadFile(root, path string) (src []byte, hash, rel string, err error) {
	src, err = os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", "", errors.Wrap(errors.ErrCodeFileNotFound, err, "read %s", path)
		}
		return nil, "", "", fmt.Errorf("read %s: %w", path, err)
	}
	return src, cache.Hash(src), RelPath(root, path), nil
}

// RelPath returns path relative to root in slash form, or path itself when it
// does not live below root.
func RelPath(root, path string) string {
	if root == "" {
		return filepath.ToSlash(path)
	}
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == ".." || len(rel) > 2 && rel[:3] == ".."+string(filepath.Separator) {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

// ParseFile reads path, hashes it and parses it with p. The file's Path is
// relative to root.
func ParseFile(ctx context.Context, p Parser, root, path string) (*stub.File, error) {
	src, hash, rel, err := ReadFile(root, path)
	if err != nil {
		return nil, err
	}
	f, err := p.Parse(ctx, rel, src)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeParse, err, "parse %s", rel)
	}
	f.Hash = hash
	return f, nil
}
