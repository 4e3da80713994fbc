// Package index provides the in-memory signature database for a stub corpus.
//
// # Overview
//
// A [Database] merges the [stub.File] values produced by the parser into one
// table of modules keyed by qualified name. A class reopened in several files
// becomes a single module whose methods and constants are the union of all
// declarations and whose locations list every file that touched it.
//
// # Duplicates and Conflicts
//
// When the same method (module, name, singleton flag) or constant is declared
// twice, the first declaration stays authoritative and the second is
// recorded:
//
//   - [Duplicate]: the declarations are identical
//   - [Conflict]: the signatures or values differ, or a module is reopened
//     with a different kind or superclass
//
// The lint package turns both into findings.
//
// # Lookup
//
// [Database.Lookup] resolves a method the way Ruby's method dispatch would,
// walking the linearized ancestors returned by [Database.Ancestors]:
// prepended modules, the module itself, included modules, then the
// superclass chain. Singleton lookups walk each class's singleton methods
// and the modules it extends.
//
// # Concurrency
//
// All methods are safe for concurrent use. Returned modules and methods point
// into the database and must be treated as read-only.
package index
