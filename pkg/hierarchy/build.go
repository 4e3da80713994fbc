package hierarchy

import (
	"fmt"

	"github.com/matzehuels/stubdex/pkg/index"
	"github.com/matzehuels/stubdex/pkg/stub"
)

// Options configures [Build].
type Options struct {
	// Root limits the graph to one module's ancestors and descendants.
	Root string
	// SkipMixins drops include/extend/prepend edges, leaving the class tree.
	SkipMixins bool
	// SkipExternals drops names that are not declared in the corpus.
	SkipExternals bool
}

// Build creates the ancestry graph of db.
func Build(db *index.Database, opts Options) (*Graph, error) {
	if opts.Root != "" {
		if _, ok := db.Module(opts.Root); !ok {
			return nil, fmt.Errorf("%w: %s", index.ErrModuleNotFound, opts.Root)
		}
	}

	g := New()
	modules := db.Modules()
	for _, m := range modules {
		kind := NodeModule
		if m.IsClass() {
			kind = NodeClass
		}
		if err := g.AddNode(Node{ID: m.Name, Kind: kind, Methods: len(m.Methods)}); err != nil {
			return nil, err
		}
	}

	link := func(m *stub.Module, name string, rel Relation) error {
		target, ok := db.ResolveName(name, m.Name)
		if !ok {
			if opts.SkipExternals {
				return nil
			}
			if _, exists := g.Node(target); !exists {
				if err := g.AddNode(Node{ID: target, Kind: NodeExternal}); err != nil {
					return err
				}
			}
		}
		return g.AddEdge(Edge{From: m.Name, To: target, Relation: rel})
	}

	for _, m := range modules {
		if m.IsClass() {
			// The chain holds resolved names, including the implicit Object.
			if chain, _ := db.Superclasses(m.Name); len(chain) > 1 {
				if err := link(m, stub.Separator+chain[1], Superclass); err != nil {
					return nil, err
				}
			}
		}
		if opts.SkipMixins {
			continue
		}
		for _, rel := range []struct {
			names []string
			rel   Relation
		}{{m.Includes, Include}, {m.Extends, Extend}, {m.Prepends, Prepend}} {
			for _, name := range rel.names {
				if err := link(m, name, rel.rel); err != nil {
					return nil, err
				}
			}
		}
	}

	if opts.Root != "" {
		g = g.Subgraph(opts.Root)
	}
	return g, nil
}
