package hierarchy

import (
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/matzehuels/stubdex/pkg/index"
	"github.com/matzehuels/stubdex/pkg/stub"
)

func testDB() *index.Database {
	mods := []*stub.Module{
		{Name: "BasicObject", Kind: stub.KindClass},
		{Name: "Object", Kind: stub.KindClass, Includes: []string{"Kernel"}},
		{Name: "Kernel", Kind: stub.KindModule},
		{Name: "Enumerable", Kind: stub.KindModule},
		{Name: "IO", Kind: stub.KindClass, Includes: []string{"Enumerable"}, Methods: []stub.Method{{Name: "read"}}},
		{Name: "File", Kind: stub.KindClass, Superclass: "IO", Extends: []string{"Forwardable"}},
		{Name: "Array", Kind: stub.KindClass, Includes: []string{"Enumerable"}},
	}
	return index.FromFiles(&stub.File{Path: "core.rb", Modules: mods})
}

func TestBuild(t *testing.T) {
	g, err := Build(testDB(), Options{})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if g.NodeCount() != 8 {
		t.Errorf("NodeCount() = %d, want 8 (7 modules + Forwardable)", g.NodeCount())
	}
	if n, ok := g.Node("Forwardable"); !ok || n.Kind != NodeExternal {
		t.Errorf("Forwardable = %+v, want external", n)
	}
	if !slices.Equal(g.Parents("File"), []string{"IO", "Forwardable"}) {
		t.Errorf("Parents(File) = %v", g.Parents("File"))
	}
	if !slices.Equal(g.Parents("IO"), []string{"Object", "Enumerable"}) {
		t.Errorf("Parents(IO) = %v", g.Parents("IO"))
	}
	if !slices.Equal(g.Parents("Object"), []string{"BasicObject", "Kernel"}) {
		t.Errorf("Parents(Object) = %v", g.Parents("Object"))
	}
	if len(g.Parents("BasicObject")) != 0 {
		t.Errorf("Parents(BasicObject) = %v", g.Parents("BasicObject"))
	}
	children := g.Children("Enumerable")
	slices.Sort(children)
	if !slices.Equal(children, []string{"Array", "IO"}) {
		t.Errorf("Children(Enumerable) = %v", children)
	}
	if err := g.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestBuildOptions(t *testing.T) {
	db := testDB()

	g, err := Build(db, Options{Root: "IO"})
	if err != nil {
		t.Fatal(err)
	}
	var ids []string
	for _, n := range g.Nodes() {
		ids = append(ids, n.ID)
	}
	want := []string{"BasicObject", "Enumerable", "File", "IO", "Kernel", "Object"}
	if !slices.Equal(ids, want) {
		t.Errorf("Root=IO nodes = %v, want %v", ids, want)
	}

	g, err = Build(db, Options{SkipMixins: true, SkipExternals: true})
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range g.Edges() {
		if e.Relation != Superclass {
			t.Errorf("unexpected mixin edge %+v", e)
		}
	}
	if _, ok := g.Node("Forwardable"); ok {
		t.Error("externals should be skipped")
	}

	if _, err := Build(db, Options{Root: "Nope"}); !errors.Is(err, index.ErrModuleNotFound) {
		t.Errorf("Build(Root=Nope) error = %v", err)
	}
}

func TestValidateCycle(t *testing.T) {
	g := New()
	for _, id := range []string{"A", "B", "C"} {
		if err := g.AddNode(Node{ID: id, Kind: NodeModule}); err != nil {
			t.Fatal(err)
		}
	}
	_ = g.AddEdge(Edge{From: "A", To: "B", Relation: Include})
	_ = g.AddEdge(Edge{From: "B", To: "C", Relation: Include})
	if err := g.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	_ = g.AddEdge(Edge{From: "C", To: "A", Relation: Include})
	if err := g.Validate(); !errors.Is(err, ErrGraphHasCycle) {
		t.Errorf("Validate() error = %v, want ErrGraphHasCycle", err)
	}
}

func TestGraphErrors(t *testing.T) {
	g := New()
	if err := g.AddNode(Node{}); !errors.Is(err, ErrInvalidNodeID) {
		t.Errorf("AddNode(empty) = %v", err)
	}
	_ = g.AddNode(Node{ID: "A"})
	if err := g.AddNode(Node{ID: "A"}); !errors.Is(err, ErrDuplicateNodeID) {
		t.Errorf("AddNode(dup) = %v", err)
	}
	if err := g.AddEdge(Edge{From: "X", To: "A"}); !errors.Is(err, ErrUnknownSourceNode) {
		t.Errorf("AddEdge(unknown from) = %v", err)
	}
	if err := g.AddEdge(Edge{From: "A", To: "X"}); !errors.Is(err, ErrUnknownTargetNode) {
		t.Errorf("AddEdge(unknown to) = %v", err)
	}
	_ = g.AddNode(Node{ID: "B"})
	_ = g.AddEdge(Edge{From: "A", To: "B"})
	_ = g.AddEdge(Edge{From: "A", To: "B"})
	if g.EdgeCount() != 1 {
		t.Errorf("EdgeCount() = %d after duplicate edge", g.EdgeCount())
	}
}

func TestToDOT(t *testing.T) {
	g, err := Build(testDB(), Options{Root: "File"})
	if err != nil {
		t.Fatal(err)
	}
	dot := ToDOT(g, DOTOptions{Detailed: true})

	for _, want := range []string{
		"digraph hierarchy {",
		"rankdir=BT;",
		`"File" -> "IO";`,
		`"File" -> "Forwardable" [style=dotted, label="extend"];`,
		`"IO" -> "Enumerable" [style=dashed, label="include"];`,
		`"Kernel" [label="Kernel\nmodule, 0 methods", shape=ellipse`,
		`"IO" [label="IO\nclass, 1 methods"]`,
		`"Forwardable" [label="Forwardable", style="rounded,filled,dashed"`,
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("DOT missing %q:\n%s", want, dot)
		}
	}
}

func TestNormalizeViewBox(t *testing.T) {
	in := []byte(`<svg width="62pt" height="44pt" viewBox="0.00 0.00 62.00 44.00" xmlns="http://www.w3.org/2000/svg"><g/></svg>`)
	out := string(normalizeViewBox(in))
	if !strings.HasPrefix(out, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 62.00 44.00" width="62" height="44">`) {
		t.Errorf("normalizeViewBox() = %s", out)
	}
	if got := normalizeViewBox([]byte("<svg>")); string(got) != "<svg>" {
		t.Errorf("svg without viewBox changed: %s", got)
	}
}
