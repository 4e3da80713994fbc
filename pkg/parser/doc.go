// Package parser turns stub source files into the [stub.File] data model.
//
// # Parsers
//
// A [Parser] handles one source format, chosen by filename with [Detect] the
// same way manifest files are matched to their readers:
//
//	p, err := parser.Detect(path, ruby.New())
//	f, err := parser.ParseFile(ctx, p, root, path)
//
// The Ruby implementation lives in the [ruby] subpackage and is built on
// tree-sitter, so files with syntax errors still yield the declarations the
// grammar could recover.
//
// Parsers are not safe for concurrent use. Callers that parse in parallel
// create one parser per worker with a [Factory].
//
// [ruby]: github.com/matzehuels/stubdex/pkg/parser/ruby
package parser
