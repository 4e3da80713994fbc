// Package io reads and writes signature databases in the stubdex/v1
// interchange format.
//
// # Overview
//
// A document is a complete snapshot of an [index.Database]: the merged
// modules, the per-file records, and the duplicate and conflict lists that
// the lint rules report on. Importing a document restores the database
// without re-parsing the corpus, so lookups and lint runs behave exactly as
// they did on the indexed original.
//
// # JSON Format
//
//	{
//	  "format": "stubdex/v1",
//	  "name": "rubystubs34",
//	  "ruby_version": "3.4",
//	  "generator": "stubdex 0.3.0",
//	  "generated": "2026-01-02T15:04:05Z",
//	  "stats": {"files": 2, "modules": 3, ...},
//	  "files": [
//	    {"path": "core/array.rb", "hash": "9f86d0...", "modules": ["Array"]}
//	  ],
//	  "modules": [
//	    {
//	      "name": "Array",
//	      "kind": "class",
//	      "superclass": "Object",
//	      "includes": ["Enumerable"],
//	      "methods": [
//	        {"name": "each", "visibility": "public",
//	         "params": [{"name": "block", "kind": "block"}],
//	         "location": {"file": "core/array.rb", "line": 12}}
//	      ]
//	    }
//	  ]
//	}
//
// Modules are sorted by name and files keep corpus order, so exporting the
// same database twice yields identical bytes apart from the generated
// timestamp.
//
// # YAML
//
// [WriteYAML] renders the same document in block-style YAML for review and
// diffing. [ReadYAML] accepts it back, so either encoding can seed a server
// or a lint run.
//
// # Validation
//
// Readers reject documents whose format tag is not [Format] and modules whose
// names are not valid constant paths; both surface as
// [errors.ErrCodeInvalidFormat].
//
// [errors.ErrCodeInvalidFormat]: github.com/matzehuels/stubdex/pkg/errors.ErrCodeInvalidFormat
package io
