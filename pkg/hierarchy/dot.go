package hierarchy

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"
)

// DOTOptions configures [ToDOT].
type DOTOptions struct {
	// Detailed adds the node kind and method count to labels.
	Detailed bool
}

var edgeStyle = map[Relation]string{
	Include: "dashed",
	Extend:  "dotted",
	Prepend: "bold",
}

var nodeAttrs = map[NodeKind][]string{
	NodeModule:   {"shape=ellipse", `fontname="Helvetica-Oblique"`},
	NodeExternal: {`style="rounded,filled,dashed"`, "fillcolor=lightgrey"},
}

// ToDOT writes the graph as Graphviz DOT with ancestors above their
// descendants. Superclass edges are solid; mixin edges are styled and
// labelled by relation.
func ToDOT(g *Graph, opts DOTOptions) string {
	var b strings.Builder
	b.WriteString("digraph hierarchy {\n")
	b.WriteString("  rankdir=BT;\n  bgcolor=\"transparent\";\n  ranksep=0.5;\n  nodesep=0.3;\n")
	b.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n\n")

	for _, n := range g.Nodes() {
		attrs := append([]string{"label=" + strconv.Quote(nodeLabel(n, opts.Detailed))}, nodeAttrs[n.Kind]...)
		fmt.Fprintf(&b, "  %q [%s];\n", n.ID, strings.Join(attrs, ", "))
	}
	b.WriteString("\n")
	for _, e := range g.Edges() {
		if style, ok := edgeStyle[e.Relation]; ok {
			fmt.Fprintf(&b, "  %q -> %q [style=%s, label=%q];\n", e.From, e.To, style, e.Relation)
			continue
		}
		fmt.Fprintf(&b, "  %q -> %q;\n", e.From, e.To)
	}
	b.WriteString("}\n")
	return b.String()
}

func nodeLabel(n *Node, detailed bool) string {
	if !detailed || n.Kind == NodeExternal {
		return n.ID
	}
	return fmt.Sprintf("%s\n%s, %d methods", n.ID, n.Kind, n.Methods)
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces Graphviz's point-based svg header with one that
// scales to its container.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	header := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(header))
}
