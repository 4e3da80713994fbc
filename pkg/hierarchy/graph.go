package hierarchy

import (
	"errors"
	"slices"
	"sort"
)

var (
	// ErrInvalidNodeID is returned by [Graph.AddNode] when the node ID is empty.
	ErrInvalidNodeID = errors.New("node ID must not be empty")

	// ErrDuplicateNodeID is returned by [Graph.AddNode] when a node with the
	// same ID already exists.
	ErrDuplicateNodeID = errors.New("duplicate node ID")

	// ErrUnknownSourceNode is returned by [Graph.AddEdge] when the From node
	// does not exist.
	ErrUnknownSourceNode = errors.New("unknown source node")

	// ErrUnknownTargetNode is returned by [Graph.AddEdge] when the To node
	// does not exist.
	ErrUnknownTargetNode = errors.New("unknown target node")

	// ErrGraphHasCycle is returned by [Graph.Validate] when the ancestry
	// contains a cycle.
	ErrGraphHasCycle = errors.New("graph contains a cycle")
)

// NodeKind classifies graph nodes.
type NodeKind int

const (
	NodeClass NodeKind = iota
	NodeModule
	// NodeExternal is a name referenced by the corpus but not declared in it.
	NodeExternal
)

func (k NodeKind) String() string {
	switch k {
	case NodeClass:
		return "class"
	case NodeModule:
		return "module"
	default:
		return "external"
	}
}

// Relation is the kind of ancestry an edge represents.
type Relation int

const (
	Superclass Relation = iota
	Include
	Extend
	Prepend
)

func (r Relation) String() string {
	switch r {
	case Superclass:
		return "superclass"
	case Include:
		return "include"
	case Extend:
		return "extend"
	default:
		return "prepend"
	}
}

// Node is a class, module or external name.
type Node struct {
	ID      string
	Kind    NodeKind
	Methods int // number of methods declared, 0 for externals
}

// Edge points from a module to one of its ancestors.
type Edge struct {
	From     string
	To       string
	Relation Relation
}

// Graph is a directed ancestry graph.
type Graph struct {
	nodes    map[string]*Node
	edges    []Edge
	outgoing map[string][]string
	incoming map[string][]string
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		nodes:    make(map[string]*Node),
		outgoing: make(map[string][]string),
		incoming: make(map[string][]string),
	}
}

// AddNode adds n to the graph.
func (g *Graph) AddNode(n Node) error {
	if n.ID == "" {
		return ErrInvalidNodeID
	}
	if _, ok := g.nodes[n.ID]; ok {
		return ErrDuplicateNodeID
	}
	g.nodes[n.ID] = &n
	return nil
}

// AddEdge adds e to the graph. Both endpoints must exist. Adding the same
// edge twice is a no-op.
func (g *Graph) AddEdge(e Edge) error {
	if _, ok := g.nodes[e.From]; !ok {
		return ErrUnknownSourceNode
	}
	if _, ok := g.nodes[e.To]; !ok {
		return ErrUnknownTargetNode
	}
	if slices.Contains(g.edges, e) {
		return nil
	}
	g.edges = append(g.edges, e)
	if !slices.Contains(g.outgoing[e.From], e.To) {
		g.outgoing[e.From] = append(g.outgoing[e.From], e.To)
		g.incoming[e.To] = append(g.incoming[e.To], e.From)
	}
	return nil
}

// Node returns the node with the given ID.
func (g *Graph) Node(id string) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Nodes returns all nodes sorted by ID.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Edges returns all edges in insertion order.
func (g *Graph) Edges() []Edge {
	return slices.Clone(g.edges)
}

// Parents returns the direct ancestors of id.
func (g *Graph) Parents(id string) []string { return slices.Clone(g.outgoing[id]) }

// Children returns the modules that list id as a direct ancestor.
func (g *Graph) Children(id string) []string { return slices.Clone(g.incoming[id]) }

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int { return len(g.edges) }

// Validate reports ErrGraphHasCycle when the ancestry is cyclic.
func (g *Graph) Validate() error {
	const (
		white = iota
		gray
		black
	)

	color := make(map[string]int, len(g.nodes))
	var hasCycle bool

	var dfs func(id string)
	dfs = func(id string) {
		color[id] = gray
		for _, parent := range g.outgoing[id] {
			switch color[parent] {
			case white:
				dfs(parent)
			case gray:
				hasCycle = true
			}
			if hasCycle {
				return
			}
		}
		color[id] = black
	}

	for _, n := range g.Nodes() {
		if color[n.ID] == white {
			dfs(n.ID)
			if hasCycle {
				return ErrGraphHasCycle
			}
		}
	}
	return nil
}

// Subgraph returns the graph restricted to root, its ancestors and its
// descendants.
func (g *Graph) Subgraph(root string) *Graph {
	keep := map[string]bool{root: true}
	walk := func(adj map[string][]string) {
		stack := []string{root}
		for len(stack) > 0 {
			id := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			for _, next := range adj[id] {
				if !keep[next] {
					keep[next] = true
					stack = append(stack, next)
				}
			}
		}
	}
	walk(g.outgoing)
	walk(g.incoming)

	sub := New()
	for _, n := range g.Nodes() {
		if keep[n.ID] {
			_ = sub.AddNode(*n)
		}
	}
	for _, e := range g.edges {
		if keep[e.From] && keep[e.To] {
			_ = sub.AddEdge(e)
		}
	}
	return sub
}
