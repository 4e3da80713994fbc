package index

import (
	"fmt"

	"github.com/matzehuels/stubdex/pkg/stub"
)

// ResolveName resolves a constant reference made inside module from using
// Ruby's lexical rules: from's own namespace first, then each enclosing
// namespace, then the top level. It reports false when nothing matches.
func (db *Database) ResolveName(name, from string) (string, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.resolve(name, from)
}

func (db *Database) resolve(name, from string) (string, bool) {
	if name == "" {
		return "", false
	}
	ns := from
	for {
		candidate := stub.QualifiedName(ns, name)
		if _, ok := db.modules[candidate]; ok {
			return candidate, true
		}
		if ns == "" {
			return stub.QualifiedName("", name), false
		}
		ns, _ = stub.SplitName(ns)
	}
}

// superclass returns the resolved superclass of m, applying the implicit
// Object and BasicObject parents when those classes are in the database.
func (db *Database) superclass(m *stub.Module) string {
	if !m.IsClass() {
		return ""
	}
	if m.Superclass != "" {
		name, _ := db.resolve(m.Superclass, m.Name)
		return name
	}
	var implicit string
	switch m.Name {
	case "BasicObject":
		return ""
	case "Object":
		implicit = "BasicObject"
	default:
		implicit = "Object"
	}
	if _, ok := db.modules[implicit]; ok {
		return implicit
	}
	return ""
}

// Superclasses returns the superclass chain of a class, starting with the
// class itself.
func (db *Database) Superclasses(name string) ([]string, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	if _, ok := db.modules[name]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrModuleNotFound, name)
	}
	return db.superclasses(name), nil
}

func (db *Database) superclasses(name string) []string {
	var chain []string
	seen := make(map[string]bool)
	for name != "" && !seen[name] {
		seen[name] = true
		chain = append(chain, name)
		m, ok := db.modules[name]
		if !ok {
			break
		}
		name = db.superclass(m)
	}
	return chain
}

// Ancestors returns the linearized ancestors of a module: prepended modules
// (last prepended first), the module itself, included modules (last included
// first, each expanded with its own ancestry), then the ancestors of the
// superclass. An include of a module the superclass already has is skipped,
// so the module keeps its place below the superclass. Names that do not
// resolve to a module in the database are listed but not expanded. Each
// module appears once, at its first position.
func (db *Database) Ancestors(name string) ([]string, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	if _, ok := db.modules[name]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrModuleNotFound, name)
	}
	return db.ancestors(name), nil
}

// ancestors builds the chain from the root class down so every level knows
// what its superclass already contributes.
func (db *Database) ancestors(name string) []string {
	chain := db.superclasses(name)
	inherited := make(map[string]bool)
	var out []string
	for i := len(chain) - 1; i >= 0; i-- {
		var own []string
		db.linearize(chain[i], true, make(map[string]bool), inherited, &own)
		for _, a := range own {
			inherited[a] = true
		}
		out = append(own, out...)
	}
	return dedupe(out)
}

// linearize expands one level of the chain. Includes already present in
// inherited are skipped; prepends always take effect.
func (db *Database) linearize(name string, force bool, entered, inherited map[string]bool, out *[]string) {
	if entered[name] || (inherited[name] && !force) {
		return
	}
	entered[name] = true

	m, ok := db.modules[name]
	if !ok {
		*out = append(*out, name)
		return
	}
	for i := len(m.Prepends) - 1; i >= 0; i-- {
		p, _ := db.resolve(m.Prepends[i], m.Name)
		db.linearize(p, true, entered, inherited, out)
	}
	*out = append(*out, name)
	for i := len(m.Includes) - 1; i >= 0; i-- {
		inc, _ := db.resolve(m.Includes[i], m.Name)
		db.linearize(inc, false, entered, inherited, out)
	}
}

func dedupe(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := names[:0]
	for _, n := range names {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	return out
}

// LookupOptions controls method resolution.
type LookupOptions struct {
	Singleton bool // resolve a singleton (class-level) method
	Inherited bool // walk ancestors instead of the module alone
}

// Resolution is the result of a method lookup.
type Resolution struct {
	Module string       `json:"module"` // module the lookup started from
	Owner  *stub.Module `json:"-"`      // module declaring the method
	Method *stub.Method `json:"method"`
}

// Key returns the key of the resolved method under its owner.
func (r *Resolution) Key() string {
	return r.Method.Key(r.Owner.Name)
}

// Inherited reports whether the method was found on an ancestor.
func (r *Resolution) Inherited() bool {
	return r.Owner.Name != r.Module
}

// Lookup resolves method on module.
func (db *Database) Lookup(module, method string, opts LookupOptions) (*Resolution, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	m, ok := db.modules[module]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrModuleNotFound, module)
	}
	notFound := fmt.Errorf("%w: %s", ErrMethodNotFound, stub.MethodKey(module, method, opts.Singleton))

	if !opts.Inherited {
		if meth, ok := m.Method(method, opts.Singleton); ok {
			return &Resolution{Module: module, Owner: m, Method: meth}, nil
		}
		return nil, notFound
	}

	for _, step := range db.dispatchChain(m, opts.Singleton) {
		owner, ok := db.modules[step.Module]
		if !ok {
			continue
		}
		if meth, ok := owner.Method(method, step.Singleton); ok {
			return &Resolution{Module: module, Owner: owner, Method: meth}, nil
		}
	}
	return nil, notFound
}

// Step is one stop on a dispatch chain: the instance or singleton methods
// of a module.
type Step struct {
	Module    string `json:"module"`
	Singleton bool   `json:"singleton,omitempty"`
}

// DispatchChain returns the order in which method lookups on module visit
// its ancestors.
func (db *Database) DispatchChain(module string, singleton bool) ([]Step, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	m, ok := db.modules[module]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrModuleNotFound, module)
	}
	return db.dispatchChain(m, singleton), nil
}

// dispatchChain lists where Ruby would look for a method. For singleton
// lookups that is each class's singleton methods followed by the modules it
// extends, then the instance methods of Class (or Module for modules).
func (db *Database) dispatchChain(m *stub.Module, singleton bool) []Step {
	var steps []Step
	if !singleton {
		for _, a := range db.ancestors(m.Name) {
			steps = append(steps, Step{Module: a})
		}
		return steps
	}

	chain := []string{m.Name}
	if m.IsClass() {
		chain = db.superclasses(m.Name)
	}
	seen := make(map[string]bool)
	for _, name := range chain {
		steps = append(steps, Step{Module: name, Singleton: true})
		k, ok := db.modules[name]
		if !ok {
			continue
		}
		for i := len(k.Extends) - 1; i >= 0; i-- {
			ext, _ := db.resolve(k.Extends[i], k.Name)
			for _, a := range db.ancestors(ext) {
				if !seen[a] {
					seen[a] = true
					steps = append(steps, Step{Module: a})
				}
			}
		}
	}

	meta := "Module"
	if m.IsClass() {
		meta = "Class"
	}
	if _, ok := db.modules[meta]; ok {
		for _, a := range db.ancestors(meta) {
			if !seen[a] {
				seen[a] = true
				steps = append(steps, Step{Module: a})
			}
		}
	}
	return steps
}

// Methods returns the methods callable on module: its own and, when
// inherited is set, those of its ancestors not overridden closer to it.
// Results are in dispatch order.
func (db *Database) Methods(module string, singleton, inherited bool) ([]Resolution, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	m, ok := db.modules[module]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrModuleNotFound, module)
	}
	steps := []Step{{Module: module, Singleton: singleton}}
	if inherited {
		steps = db.dispatchChain(m, singleton)
	}

	var out []Resolution
	seen := make(map[string]bool)
	for _, step := range steps {
		owner, ok := db.modules[step.Module]
		if !ok {
			continue
		}
		for i := range owner.Methods {
			meth := &owner.Methods[i]
			if meth.Singleton != step.Singleton || seen[meth.Name] {
				continue
			}
			seen[meth.Name] = true
			out = append(out, Resolution{Module: module, Owner: owner, Method: meth})
		}
	}
	return out, nil
}
