package lint

import (
	"fmt"
	"strings"

	"github.com/matzehuels/stubdex/pkg/index"
	"github.com/matzehuels/stubdex/pkg/stub"
)

// Rule describes a lint rule.
type Rule struct {
	Name           string   `json:"name"`
	Severity       Severity `json:"severity"`
	Description    string   `json:"description"`
	NeedsReference bool     `json:"needs_reference,omitempty"`

	check func(*checkContext) []Finding
}

type checkContext struct {
	db        *index.Database
	opts      Options
	externals map[string]bool
}

var rules = []Rule{
	{Name: "syntax", Severity: Error, Description: "file is not valid Ruby", check: checkSyntax},
	{Name: "conflict", Severity: Error, Description: "declaration conflicts with an earlier one", check: checkConflicts},
	{Name: "duplicate", Severity: Warning, Description: "declaration repeats an earlier one", check: checkDuplicates},
	{Name: "body", Severity: Error, Description: "stub method carries executable code", check: checkBodies},
	{Name: "placeholder", Severity: Warning, Description: "constant is not assigned the _ placeholder", check: checkPlaceholders},
	{Name: "undocumented", Severity: Info, Description: "non-private method has no documentation comment", check: checkUndocumented},
	{Name: "unknown-ancestor", Severity: Warning, Description: "superclass or mixin is not defined in the corpus", check: checkAncestors},
	{Name: "signature-mismatch", Severity: Error, Description: "signature differs from the reference", NeedsReference: true, check: checkSignatures},
	{Name: "missing", Severity: Warning, Description: "reference method or module is absent from the corpus", NeedsReference: true, check: checkMissing},
}

// Rules returns the available rules in the order they run.
func Rules() []Rule {
	return append([]Rule(nil), rules...)
}

// IsRule reports whether name is a known rule.
func IsRule(name string) bool {
	for _, r := range rules {
		if r.Name == name {
			return true
		}
	}
	return false
}

func checkSyntax(c *checkContext) []Finding {
	var out []Finding
	for _, f := range c.db.Files() {
		for _, e := range f.Errors {
			out = append(out, Finding{
				Location: stub.Location{File: f.Path, Line: e.Line},
				Message:  fmt.Sprintf("column %d: %s", e.Column, e.Message),
			})
		}
	}
	return out
}

func checkConflicts(c *checkContext) []Finding {
	var out []Finding
	for _, cf := range c.db.Conflicts() {
		msg := fmt.Sprintf("%s: %s (first declared at %s)", cf.Key, cf.Reason, cf.First)
		if cf.Want != "" || cf.Got != "" {
			msg += fmt.Sprintf(": want %q, got %q", cf.Want, cf.Got)
		}
		out = append(out, Finding{Location: cf.Second, Key: cf.Key, Message: msg})
	}
	return out
}

func checkDuplicates(c *checkContext) []Finding {
	var out []Finding
	for _, d := range c.db.Duplicates() {
		out = append(out, Finding{
			Location: d.Second,
			Key:      d.Key,
			Message:  fmt.Sprintf("%s already declared at %s", d.Key, d.First),
		})
	}
	return out
}

func checkBodies(c *checkContext) []Finding {
	var out []Finding
	eachMethod(c.db, func(m *stub.Module, meth *stub.Method) {
		if meth.HasBody {
			out = append(out, Finding{
				Location: meth.Location,
				Key:      meth.Key(m.Name),
				Message:  fmt.Sprintf("%s has a method body; stubs declare signatures only", meth.Key(m.Name)),
			})
		}
	})
	return out
}

func checkPlaceholders(c *checkContext) []Finding {
	var out []Finding
	for _, m := range c.db.Modules() {
		for _, k := range m.Constants {
			if !k.IsPlaceholder() {
				key := stub.QualifiedName(m.Name, k.Name)
				out = append(out, Finding{
					Location: k.Location,
					Key:      key,
					Message:  fmt.Sprintf("%s is assigned %s, want %s", key, snippet(k.Value), stub.PlaceholderValue),
				})
			}
		}
	}
	return out
}

func checkUndocumented(c *checkContext) []Finding {
	var out []Finding
	eachMethod(c.db, func(m *stub.Module, meth *stub.Method) {
		if meth.Doc != "" || meth.Visibility == stub.Private {
			return
		}
		out = append(out, Finding{
			Location: meth.Location,
			Key:      meth.Key(m.Name),
			Message:  fmt.Sprintf("%s has no documentation comment", meth.Key(m.Name)),
		})
	})
	return out
}

func checkAncestors(c *checkContext) []Finding {
	var out []Finding
	for _, m := range c.db.Modules() {
		refs := []struct {
			kind  string
			names []string
		}{
			{"superclass", []string{m.Superclass}},
			{"include", m.Includes},
			{"extend", m.Extends},
			{"prepend", m.Prepends},
		}
		for _, ref := range refs {
			for _, name := range ref.names {
				if name == "" {
					continue
				}
				resolved, ok := c.db.ResolveName(name, m.Name)
				if ok || c.externals[resolved] || c.externals[name] {
					continue
				}
				out = append(out, Finding{
					Location: firstLocation(m),
					Key:      m.Name,
					Message:  fmt.Sprintf("%s: %s %s is not defined in the corpus", m.Name, ref.kind, name),
				})
			}
		}
	}
	return out
}

func checkSignatures(c *checkContext) []Finding {
	var out []Finding
	ref := c.opts.Reference
	eachMethod(c.db, func(m *stub.Module, meth *stub.Method) {
		rm, ok := ref.Module(m.Name)
		if !ok {
			return
		}
		want, ok := rm.Method(meth.Name, meth.Singleton)
		if !ok || Compatible(want, meth) {
			return
		}
		out = append(out, Finding{
			Location: meth.Location,
			Key:      meth.Key(m.Name),
			Message:  fmt.Sprintf("%s: want (%s), got (%s)", meth.Key(m.Name), want.ParamList(), meth.ParamList()),
		})
	})
	return out
}

func checkMissing(c *checkContext) []Finding {
	var out []Finding
	for _, rm := range c.opts.Reference.Modules() {
		m, ok := c.db.Module(rm.Name)
		if !ok {
			out = append(out, Finding{
				Key:     rm.Name,
				Message: fmt.Sprintf("%s %s is not declared", rm.Kind, rm.Name),
			})
			continue
		}
		for i := range rm.Methods {
			want := &rm.Methods[i]
			if want.Visibility == stub.Private {
				continue
			}
			if _, ok := m.Method(want.Name, want.Singleton); !ok {
				out = append(out, Finding{
					Location: firstLocation(m),
					Key:      want.Key(m.Name),
					Message:  fmt.Sprintf("%s is not declared", want.Key(m.Name)),
				})
			}
		}
	}
	return out
}

// Compatible reports whether got matches the reference signature want.
// Parameter kinds must agree position by position; names only matter for
// keyword parameters, since positional names are not part of the call
// interface.
func Compatible(want, got *stub.Method) bool {
	if len(want.Params) != len(got.Params) {
		return false
	}
	for i, w := range want.Params {
		g := got.Params[i]
		if w.Kind != g.Kind {
			return false
		}
		switch w.Kind {
		case stub.ParamKeyword, stub.ParamKeywordRequired:
			if w.Name != g.Name {
				return false
			}
		}
	}
	return true
}

func eachMethod(db *index.Database, fn func(*stub.Module, *stub.Method)) {
	for _, m := range db.Modules() {
		for i := range m.Methods {
			fn(m, &m.Methods[i])
		}
	}
}

func firstLocation(m *stub.Module) stub.Location {
	if len(m.Locations) == 0 {
		return stub.Location{}
	}
	return m.Locations[0]
}

func snippet(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i] + "..."
	}
	if len(s) > 40 {
		s = s[:40] + "..."
	}
	return s
}
