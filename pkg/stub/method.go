package stub

import (
	"fmt"
	"strings"
)

// ParamKind classifies a method parameter.
type ParamKind int

const (
	ParamRequired        ParamKind = iota // a
	ParamOptional                         // a = 1
	ParamRest                             // *a
	ParamPost                             // required parameter after a rest parameter
	ParamKeywordRequired                  // k:
	ParamKeyword                          // k: 1
	ParamKeywordRest                      // **o
	ParamNoKeywords                       // **nil
	ParamBlock                            // &b
	ParamForward                          // ...
	ParamDestructured                     // (a, b)
)

var paramKindNames = map[ParamKind]string{
	ParamRequired:        "req",
	ParamOptional:        "opt",
	ParamRest:            "rest",
	ParamPost:            "post",
	ParamKeywordRequired: "keyreq",
	ParamKeyword:         "key",
	ParamKeywordRest:     "keyrest",
	ParamNoKeywords:      "nokey",
	ParamBlock:           "block",
	ParamForward:         "forward",
	ParamDestructured:    "destructured",
}

// String returns the short name Ruby's Method#parameters uses for the kind.
func (k ParamKind) String() string {
	if s, ok := paramKindNames[k]; ok {
		return s
	}
	return "unknown"
}

// ParseParamKind converts a short kind name back into a ParamKind.
func ParseParamKind(s string) (ParamKind, error) {
	for k, name := range paramKindNames {
		if name == s {
			return k, nil
		}
	}
	return ParamRequired, fmt.Errorf("unknown parameter kind %q", s)
}

// Positional reports whether the parameter consumes positional arguments.
func (k ParamKind) Positional() bool {
	switch k {
	case ParamRequired, ParamOptional, ParamRest, ParamPost, ParamDestructured:
		return true
	}
	return false
}

// Param is a single parameter of a method signature.
type Param struct {
	Name    string    `json:"name,omitempty"`
	Kind    ParamKind `json:"kind"`
	Default string    `json:"default,omitempty"`
}

// String renders the parameter in Ruby syntax.
func (p Param) String() string {
	switch p.Kind {
	case ParamOptional:
		return p.Name + " = " + p.Default
	case ParamRest:
		return "*" + p.Name
	case ParamKeywordRequired:
		return p.Name + ":"
	case ParamKeyword:
		return p.Name + ": " + p.Default
	case ParamKeywordRest:
		return "**" + p.Name
	case ParamNoKeywords:
		return "**nil"
	case ParamBlock:
		return "&" + p.Name
	case ParamForward:
		return "..."
	default:
		return p.Name
	}
}

// Method is a method signature declared in a stub.
type Method struct {
	Name       string     `json:"name"`
	Params     []Param    `json:"params,omitempty"`
	Visibility Visibility `json:"visibility"`
	Singleton  bool       `json:"singleton,omitempty"`
	Doc        string     `json:"doc,omitempty"`
	AliasOf    string     `json:"alias_of,omitempty"`
	Attribute  bool       `json:"attribute,omitempty"`
	HasBody    bool       `json:"has_body,omitempty"`
	Location   Location   `json:"location"`
}

// Key returns the lookup key for the method within module, e.g. "Array#each"
// or "File.open".
func (m *Method) Key(module string) string {
	return MethodKey(module, m.Name, m.Singleton)
}

// MethodKey builds a lookup key from its parts.
func MethodKey(module, name string, singleton bool) string {
	if singleton {
		return module + "." + name
	}
	return module + "#" + name
}

// ParseKey splits "Array#each" or "File.open" into its parts. A key without a
// method separator names a module only.
func ParseKey(key string) (module, method string, singleton bool) {
	if i := strings.LastIndex(key, "#"); i > 0 {
		return key[:i], key[i+1:], false
	}
	// Module names never contain dots, so the first dot after the last
	// namespace separator starts the method name.
	start := strings.LastIndex(key, Separator)
	if start < 0 {
		start = 0
	} else {
		start += len(Separator)
	}
	if i := strings.Index(key[start:], "."); i > 0 {
		i += start
		return key[:i], key[i+1:], true
	}
	return key, "", false
}

// ParamList renders the parameter list without parentheses.
func (m *Method) ParamList() string {
	parts := make([]string, len(m.Params))
	for i, p := range m.Params {
		parts[i] = p.String()
	}
	return strings.Join(parts, ", ")
}

// Signature renders the method as a Ruby def line without the body.
func (m *Method) Signature() string {
	var b strings.Builder
	b.WriteString("def ")
	if m.Singleton {
		b.WriteString("self.")
	}
	b.WriteString(m.Name)
	if len(m.Params) > 0 {
		b.WriteString("(")
		b.WriteString(m.ParamList())
		b.WriteString(")")
	}
	return b.String()
}

// SameSignature reports whether two declarations have identical parameter lists.
func (m *Method) SameSignature(other *Method) bool {
	if m.Name != other.Name || m.Singleton != other.Singleton || len(m.Params) != len(other.Params) {
		return false
	}
	for i := range m.Params {
		if m.Params[i] != other.Params[i] {
			return false
		}
	}
	return true
}

// Arity returns the minimum and maximum number of positional arguments the
// method accepts. max is -1 when unbounded.
func (m *Method) Arity() (min, max int) {
	for _, p := range m.Params {
		switch p.Kind {
		case ParamRequired, ParamPost, ParamDestructured:
			min++
			if max >= 0 {
				max++
			}
		case ParamOptional:
			if max >= 0 {
				max++
			}
		case ParamRest, ParamForward:
			max = -1
		}
	}
	return min, max
}

// IsOperator reports whether the method name is an operator such as "[]" or "<=>".
func (m *Method) IsOperator() bool {
	if m.Name == "" {
		return false
	}
	c := m.Name[0]
	return !(c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c >= 0x80)
}
