package ruby

import (
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/matzehuels/stubdex/pkg/stub"
)

func namedChildren(n *sitter.Node) []*sitter.Node {
	if n == nil {
		return nil
	}
	count := int(n.NamedChildCount())
	out := make([]*sitter.Node, 0, count)
	for i := 0; i < count; i++ {
		out = append(out, n.NamedChild(i))
	}
	return out
}

func sameNode(a, b *sitter.Node) bool {
	return a.StartByte() == b.StartByte() && a.EndByte() == b.EndByte() && a.Type() == b.Type()
}

// bodyNodes returns the statements and comments of a definition, skipping
// the header fields. Grammar versions differ in whether the body is wrapped
// in a body_statement node; both shapes are flattened.
func bodyNodes(n *sitter.Node, fields ...string) []*sitter.Node {
	var header []*sitter.Node
	for _, f := range fields {
		if c := n.ChildByFieldName(f); c != nil {
			header = append(header, c)
		}
	}

	var out []*sitter.Node
next:
	for _, c := range namedChildren(n) {
		for _, h := range header {
			if sameNode(c, h) {
				continue next
			}
		}
		if c.Type() == "body_statement" {
			out = append(out, namedChildren(c)...)
			continue
		}
		out = append(out, c)
	}
	return out
}

// hasBody reports whether a method body holds anything beyond the `_`
// placeholder.
func hasBody(nodes []*sitter.Node, src []byte) bool {
	var stmts []*sitter.Node
	for _, n := range nodes {
		if n.Type() != "comment" {
			stmts = append(stmts, n)
		}
	}
	switch len(stmts) {
	case 0:
		return false
	case 1:
		return !(stmts[0].Type() == "identifier" && stmts[0].Content(src) == stub.PlaceholderValue)
	default:
		return true
	}
}

func arguments(call *sitter.Node) []*sitter.Node {
	var out []*sitter.Node
	for _, a := range namedChildren(call.ChildByFieldName("arguments")) {
		if a.Type() != "comment" {
			out = append(out, a)
		}
	}
	return out
}

// constantNames returns the constant arguments of include/extend/prepend.
func constantNames(args []*sitter.Node, src []byte) []string {
	var out []string
	for _, a := range args {
		switch a.Type() {
		case "constant", "scope_resolution":
			out = append(out, strings.TrimPrefix(a.Content(src), stub.Separator))
		}
	}
	return out
}

// symbolNames returns method names given as symbols, strings or %i arrays.
func symbolNames(args []*sitter.Node, src []byte) []string {
	var out []string
	for _, a := range args {
		switch a.Type() {
		case "simple_symbol", "delimited_symbol", "string", "bare_symbol", "bare_string":
			if s := symbolText(a.Content(src)); s != "" {
				out = append(out, s)
			}
		case "array":
			out = append(out, symbolNames(namedChildren(a), src)...)
		}
	}
	return out
}

// params converts a method_parameters node into stub parameters.
func params(n *sitter.Node, src []byte) []stub.Param {
	if n == nil {
		return nil
	}
	var out []stub.Param
	afterRest := false
	field := func(c *sitter.Node, name string) string {
		if f := c.ChildByFieldName(name); f != nil {
			return f.Content(src)
		}
		return ""
	}

	for _, c := range namedChildren(n) {
		var p stub.Param
		switch c.Type() {
		case "comment":
			continue
		case "identifier":
			p = stub.Param{Name: c.Content(src), Kind: stub.ParamRequired}
			if afterRest {
				p.Kind = stub.ParamPost
			}
		case "optional_parameter":
			p = stub.Param{Name: field(c, "name"), Kind: stub.ParamOptional, Default: field(c, "value")}
		case "splat_parameter":
			p = stub.Param{Name: field(c, "name"), Kind: stub.ParamRest}
			afterRest = true
		case "hash_splat_parameter":
			p = stub.Param{Name: field(c, "name"), Kind: stub.ParamKeywordRest}
		case "hash_splat_nil":
			p = stub.Param{Kind: stub.ParamNoKeywords}
		case "block_parameter":
			p = stub.Param{Name: field(c, "name"), Kind: stub.ParamBlock}
		case "keyword_parameter":
			p = stub.Param{Name: field(c, "name"), Kind: stub.ParamKeywordRequired}
			if v := field(c, "value"); v != "" {
				p.Kind = stub.ParamKeyword
				p.Default = v
			}
		case "forward_parameter":
			p = stub.Param{Kind: stub.ParamForward}
		case "destructured_parameter":
			p = stub.Param{Name: c.Content(src), Kind: stub.ParamDestructured}
		default:
			p = stub.Param{Name: c.Content(src), Kind: stub.ParamRequired}
		}
		out = append(out, p)
	}
	return out
}

// docRun collects a contiguous run of comment lines.
type docRun struct {
	lines []string
	end   int
}

func (d *docRun) add(n *sitter.Node, src []byte) {
	start := int(n.StartPoint().Row)
	if len(d.lines) > 0 && start != d.end+1 {
		d.lines = nil
	}
	d.lines = append(d.lines, commentLines(n.Content(src))...)

	end := n.EndPoint()
	d.end = int(end.Row)
	if end.Column == 0 && end.Row > n.StartPoint().Row {
		d.end--
	}
}

// take returns the run as documentation when it ends on the line before row,
// and resets it either way.
func (d *docRun) take(row int) string {
	defer func() { d.lines = nil }()
	if len(d.lines) == 0 || row != d.end+1 {
		return ""
	}
	return strings.Trim(strings.Join(d.lines, "\n"), "\n")
}

// commentLines strips comment syntax: `#` plus one space, or the
// =begin/=end delimiters of a block comment.
func commentLines(text string) []string {
	if strings.HasPrefix(text, "=begin") {
		lines := strings.Split(strings.TrimRight(text, "\r\n"), "\n")
		lines = lines[1:]
		if n := len(lines); n > 0 && strings.HasPrefix(lines[n-1], "=end") {
			lines = lines[:n-1]
		}
		for i, l := range lines {
			lines[i] = strings.TrimRight(l, " \t\r")
		}
		return lines
	}
	s := strings.TrimPrefix(text, "#")
	s = strings.TrimPrefix(s, " ")
	return []string{strings.TrimRight(s, " \t\r")}
}

// syntaxErrors reports every ERROR and missing node in the tree. Error
// subtrees are reported once, at their outermost node.
func syntaxErrors(root *sitter.Node, src []byte) []stub.SyntaxError {
	var errs []stub.SyntaxError
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		pos := n.StartPoint()
		switch {
		case n.IsMissing():
			errs = append(errs, stub.SyntaxError{
				Line:    int(pos.Row) + 1,
				Column:  int(pos.Column) + 1,
				Message: fmt.Sprintf("missing %q", n.Type()),
			})
			return
		case n.Type() == "ERROR":
			errs = append(errs, stub.SyntaxError{
				Line:    int(pos.Row) + 1,
				Column:  int(pos.Column) + 1,
				Message: fmt.Sprintf("unexpected %q", snippet(n.Content(src))),
			})
			return
		case !n.HasError():
			return
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
		}
	}
	walk(root)
	return errs
}

func snippet(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimSpace(s)
	if len(s) > 40 {
		s = s[:40] + "..."
	}
	return s
}
