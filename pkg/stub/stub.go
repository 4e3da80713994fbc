package stub

import (
	"fmt"
	"strings"
)

// PlaceholderValue is the value stub constants are assigned.
const PlaceholderValue = "_"

// Separator joins namespace segments of a qualified constant path.
const Separator = "::"

// Kind distinguishes classes from modules.
type Kind int

const (
	KindClass Kind = iota
	KindModule
)

// String returns the Ruby keyword for the kind.
func (k Kind) String() string {
	switch k {
	case KindClass:
		return "class"
	case KindModule:
		return "module"
	default:
		return "unknown"
	}
}

// ParseKind converts "class" or "module" into a Kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "class":
		return KindClass, nil
	case "module":
		return KindModule, nil
	default:
		return KindClass, fmt.Errorf("unknown kind %q", s)
	}
}

// Visibility is a method's Ruby visibility.
type Visibility int

const (
	Public Visibility = iota
	Protected
	Private
)

// String returns the Ruby keyword for the visibility.
func (v Visibility) String() string {
	switch v {
	case Public:
		return "public"
	case Protected:
		return "protected"
	case Private:
		return "private"
	default:
		return "unknown"
	}
}

// ParseVisibility converts a visibility keyword into a Visibility.
func ParseVisibility(s string) (Visibility, error) {
	switch s {
	case "public", "":
		return Public, nil
	case "protected":
		return Protected, nil
	case "private":
		return Private, nil
	default:
		return Public, fmt.Errorf("unknown visibility %q", s)
	}
}

// Location points at a declaration in a stub file. Line is 1-based.
type Location struct {
	File string `json:"file"`
	Line int    `json:"line"`
}

// String renders the location as file:line.
func (l Location) String() string {
	if l.File == "" {
		return fmt.Sprintf("line %d", l.Line)
	}
	return fmt.Sprintf("%s:%d", l.File, l.Line)
}

// Constant is a named constant declared in a stub.
type Constant struct {
	Name     string   `json:"name"`
	Value    string   `json:"value"`
	Doc      string   `json:"doc,omitempty"`
	Location Location `json:"location"`
}

// IsPlaceholder reports whether the constant is assigned the `_` placeholder.
func (c Constant) IsPlaceholder() bool {
	return strings.TrimSpace(c.Value) == PlaceholderValue
}

// Module is a class or module declaration. Name is fully qualified.
type Module struct {
	Name       string     `json:"name"`
	Kind       Kind       `json:"kind"`
	Superclass string     `json:"superclass,omitempty"`
	Includes   []string   `json:"includes,omitempty"`
	Extends    []string   `json:"extends,omitempty"`
	Prepends   []string   `json:"prepends,omitempty"`
	Doc        string     `json:"doc,omitempty"`
	Constants  []Constant `json:"constants,omitempty"`
	Methods    []Method   `json:"methods,omitempty"`
	Locations  []Location `json:"locations,omitempty"`
}

// IsClass reports whether the module was declared with `class`.
func (m *Module) IsClass() bool { return m.Kind == KindClass }

// Method returns the method with the given name and singleton flag.
func (m *Module) Method(name string, singleton bool) (*Method, bool) {
	for i := range m.Methods {
		if m.Methods[i].Name == name && m.Methods[i].Singleton == singleton {
			return &m.Methods[i], true
		}
	}
	return nil, false
}

// Constant returns the constant with the given name.
func (m *Module) Constant(name string) (*Constant, bool) {
	for i := range m.Constants {
		if m.Constants[i].Name == name {
			return &m.Constants[i], true
		}
	}
	return nil, false
}

// Namespace returns the enclosing namespace of the module ("" at top level).
func (m *Module) Namespace() string {
	ns, _ := SplitName(m.Name)
	return ns
}

// BaseName returns the last segment of the qualified name.
func (m *Module) BaseName() string {
	_, base := SplitName(m.Name)
	return base
}

// SyntaxError is a parse error recovered by the parser. Line and Column are 1-based.
type SyntaxError struct {
	Line    int    `json:"line"`
	Column  int    `json:"column"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e SyntaxError) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Line, e.Column, e.Message)
}

// File holds the declarations found in a single stub file.
type File struct {
	Path    string        `json:"path"`
	Hash    string        `json:"hash"`
	Modules []*Module     `json:"modules"`
	Errors  []SyntaxError `json:"errors,omitempty"`
}

// Valid reports whether the file parsed without syntax errors.
func (f *File) Valid() bool { return len(f.Errors) == 0 }

// Module returns the module with the given qualified name declared in the file.
func (f *File) Module(name string) (*Module, bool) {
	for _, m := range f.Modules {
		if m.Name == name {
			return m, true
		}
	}
	return nil, false
}

// QualifiedName joins a namespace and a constant path. A name starting with `::`
// is absolute and ignores the namespace.
func QualifiedName(namespace, name string) string {
	if strings.HasPrefix(name, Separator) {
		return strings.TrimPrefix(name, Separator)
	}
	if namespace == "" {
		return name
	}
	return namespace + Separator + name
}

// SplitName splits a qualified name into its namespace and last segment.
func SplitName(name string) (namespace, base string) {
	i := strings.LastIndex(name, Separator)
	if i < 0 {
		return "", name
	}
	return name[:i], name[i+len(Separator):]
}
