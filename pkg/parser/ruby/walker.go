package ruby

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/matzehuels/stubdex/pkg/stub"
)

// walker accumulates the modules declared in one file.
type walker struct {
	src     []byte
	path    string
	modules map[string]*stub.Module
	order   []*stub.Module
}

// scope is the lexical state of a class, module or singleton class body.
type scope struct {
	module     *stub.Module // nil at top level until something is declared there
	namespace  string       // qualified name used for nested definitions
	singleton  bool         // inside class << self
	visibility stub.Visibility
	moduleFunc bool
	overrides  []override
}

// override is a visibility change applied by name when the body closes,
// e.g. `private :a, :b` or `module_function :x`.
type override struct {
	name       string
	singleton  bool
	visibility stub.Visibility
	moduleFunc bool
}

// topLevel methods are private methods of Object.
func (w *walker) topLevel() *scope {
	return &scope{visibility: stub.Private}
}

func (w *walker) loc(n *sitter.Node) stub.Location {
	return stub.Location{File: w.path, Line: int(n.StartPoint().Row) + 1}
}

func (w *walker) text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return n.Content(w.src)
}

// open returns the module entry for a declaration. Reopening with the same
// kind and a compatible superclass reuses the entry; anything else creates a
// second entry so the database can report the mismatch.
func (w *walker) open(name string, kind stub.Kind, superclass string, loc stub.Location) *stub.Module {
	if m, ok := w.modules[name]; ok && m.Kind == kind &&
		(superclass == "" || m.Superclass == "" || m.Superclass == superclass) {
		if m.Superclass == "" {
			m.Superclass = superclass
		}
		m.Locations = append(m.Locations, loc)
		return m
	}
	m := &stub.Module{
		Name:       name,
		Kind:       kind,
		Superclass: superclass,
		Locations:  []stub.Location{loc},
	}
	w.modules[name] = m
	w.order = append(w.order, m)
	return m
}

// target returns the module declarations in sc attach to, creating Object for
// top-level declarations.
func (w *walker) target(sc *scope, n *sitter.Node) *stub.Module {
	if sc.module == nil {
		sc.module = w.open("Object", stub.KindClass, "", w.loc(n))
	}
	return sc.module
}

// block walks the statements of a body and applies its pending visibility
// overrides. Comments on headerRow trail the opening line and are not docs.
func (w *walker) block(nodes []*sitter.Node, sc *scope, headerRow int) {
	var doc docRun
	lastRow := headerRow
	for _, n := range nodes {
		if n.Type() == "comment" {
			if int(n.StartPoint().Row) == lastRow {
				continue
			}
			doc.add(n, w.src)
			continue
		}
		text := doc.take(int(n.StartPoint().Row))
		if n.Type() == "ERROR" {
			w.block(namedChildren(n), sc, lastRow)
		} else {
			w.statement(n, sc, text)
		}
		lastRow = int(n.EndPoint().Row)
	}
	w.apply(sc)
}

func (w *walker) statement(n *sitter.Node, sc *scope, doc string) {
	switch n.Type() {
	case "class":
		w.class(n, sc, doc)
	case "module":
		w.module(n, sc, doc)
	case "singleton_class":
		w.singletonClass(n, sc)
	case "method":
		w.method(n, sc, doc, false)
	case "singleton_method":
		if w.isSelf(sc, n.ChildByFieldName("object")) {
			w.method(n, sc, doc, true)
		}
	case "identifier":
		w.keyword(w.text(n), sc)
	case "call", "method_call":
		w.call(n, sc, doc)
	case "alias":
		w.alias(n, sc, doc)
	case "assignment":
		w.constant(n, sc, doc)
	}
}

func (w *walker) class(n *sitter.Node, sc *scope, doc string) {
	name := stub.QualifiedName(sc.namespace, w.text(n.ChildByFieldName("name")))
	var super string
	if s := n.ChildByFieldName("superclass"); s != nil && s.NamedChildCount() > 0 {
		super = superName(s.NamedChild(0), w.src)
	}
	m := w.open(name, stub.KindClass, super, w.loc(n))
	if m.Doc == "" {
		m.Doc = doc
	}
	w.block(bodyNodes(n, "name", "superclass"), &scope{module: m, namespace: name}, int(n.StartPoint().Row))
}

func (w *walker) module(n *sitter.Node, sc *scope, doc string) {
	name := stub.QualifiedName(sc.namespace, w.text(n.ChildByFieldName("name")))
	m := w.open(name, stub.KindModule, "", w.loc(n))
	if m.Doc == "" {
		m.Doc = doc
	}
	w.block(bodyNodes(n, "name"), &scope{module: m, namespace: name}, int(n.StartPoint().Row))
}

func (w *walker) singletonClass(n *sitter.Node, sc *scope) {
	if !w.isSelf(sc, n.ChildByFieldName("value")) {
		return
	}
	inner := &scope{
		module:    w.target(sc, n),
		namespace: sc.namespace,
		singleton: true,
	}
	w.block(bodyNodes(n, "value"), inner, int(n.StartPoint().Row))
}

// isSelf reports whether a receiver names the module being declared: self,
// or the module's own constant as in `def Foo.x` or `class << Foo`.
func (w *walker) isSelf(sc *scope, n *sitter.Node) bool {
	recv := strings.TrimPrefix(w.text(n), stub.Separator)
	if recv == "self" {
		return true
	}
	if sc.module == nil || sc.singleton || recv == "" {
		return false
	}
	name := sc.module.Name
	base := name
	if i := strings.LastIndex(name, stub.Separator); i >= 0 {
		base = name[i+len(stub.Separator):]
	}
	return recv == name || recv == base
}

// method records a def and returns its name.
func (w *walker) method(n *sitter.Node, sc *scope, doc string, selfDef bool) string {
	name := w.text(n.ChildByFieldName("name"))
	m := stub.Method{
		Name:       name,
		Params:     params(n.ChildByFieldName("parameters"), w.src),
		Visibility: sc.visibility,
		Singleton:  sc.singleton || selfDef,
		Doc:        doc,
		HasBody:    hasBody(bodyNodes(n, "name", "parameters", "object"), w.src),
		Location:   w.loc(n),
	}
	// Section visibility does not apply to `def self.x` in a class body.
	if selfDef && !sc.singleton {
		m.Visibility = stub.Public
	}
	// initialize and friends are always private.
	if !m.Singleton && isAlwaysPrivate(name) {
		m.Visibility = stub.Private
	}

	mod := w.target(sc, n)
	if sc.moduleFunc && !m.Singleton {
		m.Visibility = stub.Private
		single := m
		single.Visibility = stub.Public
		single.Singleton = true
		mod.Methods = append(mod.Methods, m, single)
		return name
	}
	mod.Methods = append(mod.Methods, m)
	return name
}

// keyword handles bare visibility keywords on their own line.
func (w *walker) keyword(word string, sc *scope) {
	switch word {
	case "public", "protected", "private":
		v, _ := stub.ParseVisibility(word)
		sc.visibility = v
		sc.moduleFunc = false
	case "module_function":
		sc.moduleFunc = true
	}
}

func (w *walker) call(n *sitter.Node, sc *scope, doc string) {
	if n.ChildByFieldName("receiver") != nil {
		return
	}
	name := w.text(n.ChildByFieldName("method"))
	args := arguments(n)

	switch name {
	case "public", "protected", "private":
		v, _ := stub.ParseVisibility(name)
		if len(args) == 0 {
			w.keyword(name, sc)
			return
		}
		for _, target := range w.targets(args, sc, doc) {
			sc.overrides = append(sc.overrides, override{name: target, singleton: sc.singleton, visibility: v})
		}
	case "module_function":
		if len(args) == 0 {
			w.keyword(name, sc)
			return
		}
		for _, target := range w.targets(args, sc, doc) {
			sc.overrides = append(sc.overrides, override{name: target, moduleFunc: true})
		}
	case "private_class_method", "public_class_method":
		v := stub.Private
		if name == "public_class_method" {
			v = stub.Public
		}
		for _, target := range w.targets(args, sc, doc) {
			sc.overrides = append(sc.overrides, override{name: target, singleton: true, visibility: v})
		}
	case "include", "extend", "prepend":
		mod := w.target(sc, n)
		names := constantNames(args, w.src)
		switch {
		case name == "extend" || (name == "include" && sc.singleton):
			mod.Extends = append(mod.Extends, names...)
		case name == "include":
			mod.Includes = append(mod.Includes, names...)
		default:
			mod.Prepends = append(mod.Prepends, names...)
		}
	case "alias_method":
		names := symbolNames(args, w.src)
		if len(names) == 2 {
			w.addAlias(n, sc, doc, names[0], names[1])
		}
	case "attr_reader", "attr_writer", "attr_accessor", "attr":
		w.attributes(n, sc, doc, name, symbolNames(args, w.src))
	default:
		// Decorators such as `ruby2_keywords def foo(*args)`.
		for _, a := range args {
			if a.Type() == "method" {
				w.method(a, sc, doc, false)
			}
		}
	}
}

// targets returns the method names a visibility call applies to, recording
// any inline definitions (`private def x`) on the way.
func (w *walker) targets(args []*sitter.Node, sc *scope, doc string) []string {
	var names []string
	for _, a := range args {
		switch a.Type() {
		case "method":
			names = append(names, w.method(a, sc, doc, false))
		case "singleton_method":
			if w.isSelf(sc, a.ChildByFieldName("object")) {
				names = append(names, w.method(a, sc, doc, true))
			}
		default:
			names = append(names, symbolNames([]*sitter.Node{a}, w.src)...)
		}
	}
	return names
}

func (w *walker) alias(n *sitter.Node, sc *scope, doc string) {
	newName := symbolText(w.text(n.ChildByFieldName("name")))
	oldName := symbolText(w.text(n.ChildByFieldName("alias")))
	if newName == "" || oldName == "" {
		return
	}
	w.addAlias(n, sc, doc, newName, oldName)
}

func (w *walker) addAlias(n *sitter.Node, sc *scope, doc, newName, oldName string) {
	mod := w.target(sc, n)
	m := stub.Method{
		Name:       newName,
		AliasOf:    oldName,
		Visibility: sc.visibility,
		Singleton:  sc.singleton,
		Doc:        doc,
		Location:   w.loc(n),
	}
	if orig, ok := mod.Method(oldName, sc.singleton); ok {
		m.Params = append([]stub.Param(nil), orig.Params...)
		m.Visibility = pendingVisibility(sc, oldName, orig.Visibility)
		if m.Doc == "" {
			m.Doc = orig.Doc
		}
	}
	mod.Methods = append(mod.Methods, m)
}

// pendingVisibility returns the visibility name will have once the scope's
// queued overrides are applied. An alias copies it at the point of aliasing.
func pendingVisibility(sc *scope, name string, v stub.Visibility) stub.Visibility {
	for _, ov := range sc.overrides {
		if ov.name != name {
			continue
		}
		switch {
		case ov.moduleFunc && !sc.singleton:
			v = stub.Private
		case !ov.moduleFunc && ov.singleton == sc.singleton:
			v = ov.visibility
		}
	}
	return v
}

func (w *walker) attributes(n *sitter.Node, sc *scope, doc, kind string, names []string) {
	mod := w.target(sc, n)
	for _, name := range names {
		base := stub.Method{
			Visibility: sc.visibility,
			Singleton:  sc.singleton,
			Doc:        doc,
			Attribute:  true,
			Location:   w.loc(n),
		}
		if kind != "attr_writer" {
			r := base
			r.Name = name
			mod.Methods = append(mod.Methods, r)
		}
		if kind == "attr_writer" || kind == "attr_accessor" {
			wr := base
			wr.Name = name + "="
			wr.Params = []stub.Param{{Name: "value", Kind: stub.ParamRequired}}
			mod.Methods = append(mod.Methods, wr)
		}
	}
}

func (w *walker) constant(n *sitter.Node, sc *scope, doc string) {
	left := n.ChildByFieldName("left")
	if left == nil || left.Type() != "constant" {
		return
	}
	mod := w.target(sc, n)
	mod.Constants = append(mod.Constants, stub.Constant{
		Name:     w.text(left),
		Value:    w.text(n.ChildByFieldName("right")),
		Doc:      doc,
		Location: w.loc(n),
	})
}

// apply resolves the scope's pending visibility overrides.
func (w *walker) apply(sc *scope) {
	if sc.module == nil || len(sc.overrides) == 0 {
		return
	}
	mod := sc.module
	for _, ov := range sc.overrides {
		var copies []stub.Method
		for i := range mod.Methods {
			m := &mod.Methods[i]
			if m.Name != ov.name {
				continue
			}
			if ov.moduleFunc {
				if m.Singleton {
					continue
				}
				m.Visibility = stub.Private
				if _, ok := mod.Method(m.Name, true); !ok {
					single := *m
					single.Singleton = true
					single.Visibility = stub.Public
					copies = append(copies, single)
				}
				continue
			}
			if m.Singleton == ov.singleton {
				m.Visibility = ov.visibility
			}
		}
		mod.Methods = append(mod.Methods, copies...)
	}
	sc.overrides = nil
}

func isAlwaysPrivate(name string) bool {
	switch name {
	case "initialize", "initialize_copy", "initialize_clone", "initialize_dup", "respond_to_missing?":
		return true
	}
	return false
}

// superName extracts the constant a superclass expression refers to.
// `Struct.new(:a)` resolves to Struct.
func superName(n *sitter.Node, src []byte) string {
	switch n.Type() {
	case "call", "method_call":
		if r := n.ChildByFieldName("receiver"); r != nil {
			return superName(r, src)
		}
	}
	return strings.TrimPrefix(n.Content(src), stub.Separator)
}

// symbolText strips the symbol or string syntax from a method name.
func symbolText(s string) string {
	s = strings.TrimPrefix(s, ":")
	return strings.Trim(s, `"'`)
}
