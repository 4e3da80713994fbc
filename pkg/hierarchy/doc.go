// Package hierarchy builds the ancestry graph of a stub corpus.
//
// # Overview
//
// Nodes are classes and modules; edges point from a module to an ancestor
// and carry the relation that introduced it:
//
//   - [Superclass]: `class File < IO`
//   - [Include], [Extend], [Prepend]: mixins
//
// Names that do not resolve to a module in the corpus appear as external
// nodes so the graph shows what the corpus depends on.
//
// # Usage
//
//	g, err := hierarchy.Build(db, hierarchy.Options{Root: "File"})
//	dot := hierarchy.ToDOT(g, hierarchy.DOTOptions{})
//	svg, err := hierarchy.RenderSVG(ctx, dot)
//
// With a Root, the graph is limited to the root, its ancestors and its
// descendants.
//
// # Cycles
//
// Ruby rejects cyclic ancestry, so [Graph.Validate] returning
// [ErrGraphHasCycle] means the corpus declares something Ruby would not
// load.
package hierarchy
