// Package ruby parses Ruby stub files with the tree-sitter Ruby grammar.
//
// The parser walks class, module and method definitions and records what a
// stub declares: signatures, visibility, constants, ancestry, aliases,
// attribute accessors and the documentation comment above each declaration.
// It never evaluates code. Calls other than the handful of declaration
// keywords it understands (private, include, attr_reader, ...) are ignored.
package ruby

import (
	"context"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/ruby"

	"github.com/matzehuels/stubdex/pkg/parser"
	"github.com/matzehuels/stubdex/pkg/stub"
)

// Version identifies the extraction rules. Bump it when the output for an
// unchanged file changes, so cached results are invalidated.
const Version = "4"

// Parser extracts stub declarations from Ruby source.
// It is not safe for concurrent use.
type Parser struct {
	ts *sitter.Parser
}

// New creates a Ruby stub parser.
func New() *Parser {
	p := sitter.NewParser()
	p.SetLanguage(ruby.GetLanguage())
	return &Parser{ts: p}
}

// Factory returns New as a [parser.Factory].
func Factory() parser.Parser { return New() }

var _ parser.Parser = (*Parser)(nil)

func (p *Parser) Type() string    { return "ruby" }
func (p *Parser) Version() string { return Version }

// Supports reports whether filename is a Ruby source file.
func (p *Parser) Supports(filename string) bool {
	return strings.EqualFold(filepath.Ext(filename), ".rb")
}

// Parse parses src into a stub file. Syntax errors never fail the parse: they
// are recorded in File.Errors and the declarations the grammar recovered are
// kept.
func (p *Parser) Parse(ctx context.Context, path string, src []byte) (*stub.File, error) {
	tree, err := p.ts.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	root := tree.RootNode()
	w := &walker{
		src:     src,
		path:    path,
		modules: make(map[string]*stub.Module),
	}
	w.block(namedChildren(root), w.topLevel(), -1)

	f := &stub.File{Path: path, Modules: w.order}
	if root.HasError() {
		f.Errors = syntaxErrors(root, src)
	}
	return f, nil
}
