// Package stub defines the data model for Ruby standard-library stub files.
//
// # Overview
//
// A stub corpus is a collection of Ruby source files containing only declarations:
// classes, modules, method signatures with empty bodies and constants assigned the
// placeholder `_`. Editor tooling reads these files to offer completion and hover
// documentation for the built-in classes.
//
// This package holds the parsed form of such a corpus:
//
//   - [Module]: a class or module with ancestry, constants and methods
//   - [Method]: a signature (name, [Param] list, visibility, singleton flag, doc)
//   - [Constant]: a named placeholder value
//   - [File]: the declarations found in one stub file plus its syntax errors
//
// # Keys
//
// Methods are addressed with Ruby's documentation notation: instance methods use `#`
// and singleton methods use `.`:
//
//	Array#each
//	File.open
//	IO::Buffer#get_value
//
// [Method.Key] renders this form and [ParseKey] reverses it.
//
// # Rendering
//
// [Param.String] and [Method.Signature] render Ruby syntax, so a parsed signature
// can be compared textually with a reference signature:
//
//	def self.open(path, mode = "r", *rest, **opts, &block)
//
// Entities are static. Parsers create them and the signature database merges them,
// nothing else mutates them.
package stub
