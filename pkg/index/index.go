package index

import (
	"fmt"
	"sort"
	"sync"

	"github.com/matzehuels/stubdex/pkg/errors"
	"github.com/matzehuels/stubdex/pkg/stub"
)

var (
	// ErrModuleNotFound is returned when a module name is not in the database.
	ErrModuleNotFound = errors.New(errors.ErrCodeModuleNotFound, "module not found")

	// ErrMethodNotFound is returned by [Database.Lookup] when neither the module
	// nor any of its ancestors declares the method.
	ErrMethodNotFound = errors.New(errors.ErrCodeMethodNotFound, "method not found")
)

// Duplicate records an identical redeclaration.
type Duplicate struct {
	Key    string        `json:"key"`
	First  stub.Location `json:"first"`
	Second stub.Location `json:"second"`
}

// Conflict records a redeclaration that disagrees with the first one.
type Conflict struct {
	Key    string        `json:"key"`
	Reason string        `json:"reason"`
	First  stub.Location `json:"first"`
	Second stub.Location `json:"second"`
	Want   string        `json:"want,omitempty"` // first declaration, rendered
	Got    string        `json:"got,omitempty"`  // conflicting declaration, rendered
}

// FileRecord summarizes a file added to the database.
type FileRecord struct {
	Path    string             `json:"path"`
	Hash    string             `json:"hash"`
	Modules []string           `json:"modules,omitempty"`
	Errors  []stub.SyntaxError `json:"errors,omitempty"`
}

// Database is the merged signature table of a corpus.
type Database struct {
	mu         sync.RWMutex
	modules    map[string]*stub.Module
	files      []FileRecord
	duplicates []Duplicate
	conflicts  []Conflict
}

// New creates an empty database.
func New() *Database {
	return &Database{modules: make(map[string]*stub.Module)}
}

// FromFiles builds a database from files, added in order.
func FromFiles(files ...*stub.File) *Database {
	db := New()
	for _, f := range files {
		db.Add(f)
	}
	return db
}

// Add merges the declarations of f into the database. The file itself is not
// retained or modified.
func (db *Database) Add(f *stub.File) {
	db.mu.Lock()
	defer db.mu.Unlock()

	rec := FileRecord{Path: f.Path, Hash: f.Hash, Errors: append([]stub.SyntaxError(nil), f.Errors...)}
	for _, m := range f.Modules {
		rec.Modules = append(rec.Modules, m.Name)
		db.merge(m)
	}
	db.files = append(db.files, rec)
}

func (db *Database) merge(m *stub.Module) {
	cur, ok := db.modules[m.Name]
	if !ok {
		cur = &stub.Module{
			Name:       m.Name,
			Kind:       m.Kind,
			Superclass: m.Superclass,
			Doc:        m.Doc,
		}
		db.modules[m.Name] = cur
	} else {
		db.mergeHeader(cur, m)
	}

	cur.Includes = appendUnique(cur.Includes, m.Includes...)
	cur.Extends = appendUnique(cur.Extends, m.Extends...)
	cur.Prepends = appendUnique(cur.Prepends, m.Prepends...)
	cur.Locations = append(cur.Locations, m.Locations...)

	for _, meth := range m.Methods {
		prev, exists := cur.Method(meth.Name, meth.Singleton)
		if !exists {
			cur.Methods = append(cur.Methods, cloneMethod(meth))
			continue
		}
		key := meth.Key(cur.Name)
		if prev.SameSignature(&meth) {
			db.duplicates = append(db.duplicates, Duplicate{Key: key, First: prev.Location, Second: meth.Location})
			continue
		}
		db.conflicts = append(db.conflicts, Conflict{
			Key:    key,
			Reason: "signature mismatch",
			First:  prev.Location,
			Second: meth.Location,
			Want:   prev.Signature(),
			Got:    meth.Signature(),
		})
	}

	for _, c := range m.Constants {
		prev, exists := cur.Constant(c.Name)
		if !exists {
			cur.Constants = append(cur.Constants, c)
			continue
		}
		key := stub.QualifiedName(cur.Name, c.Name)
		if prev.Value == c.Value {
			db.duplicates = append(db.duplicates, Duplicate{Key: key, First: prev.Location, Second: c.Location})
			continue
		}
		db.conflicts = append(db.conflicts, Conflict{
			Key:    key,
			Reason: "value mismatch",
			First:  prev.Location,
			Second: c.Location,
			Want:   prev.Value,
			Got:    c.Value,
		})
	}
}

// mergeHeader reconciles kind, superclass and doc of a reopened module.
func (db *Database) mergeHeader(cur, m *stub.Module) {
	first, second := firstLocation(cur), firstLocation(m)
	if cur.Kind != m.Kind {
		db.conflicts = append(db.conflicts, Conflict{
			Key:    cur.Name,
			Reason: fmt.Sprintf("reopened as %s, first declared as %s", m.Kind, cur.Kind),
			First:  first,
			Second: second,
			Want:   cur.Kind.String(),
			Got:    m.Kind.String(),
		})
	}
	switch {
	case cur.Superclass == "":
		cur.Superclass = m.Superclass
	case m.Superclass != "" && m.Superclass != cur.Superclass:
		db.conflicts = append(db.conflicts, Conflict{
			Key:    cur.Name,
			Reason: "superclass mismatch",
			First:  first,
			Second: second,
			Want:   cur.Superclass,
			Got:    m.Superclass,
		})
	}
	if cur.Doc == "" {
		cur.Doc = m.Doc
	}
}

func firstLocation(m *stub.Module) stub.Location {
	if len(m.Locations) == 0 {
		return stub.Location{}
	}
	return m.Locations[0]
}

func cloneMethod(m stub.Method) stub.Method {
	m.Params = append([]stub.Param(nil), m.Params...)
	return m
}

func appendUnique(dst []string, src ...string) []string {
	for _, s := range src {
		found := false
		for _, d := range dst {
			if d == s {
				found = true
				break
			}
		}
		if !found {
			dst = append(dst, s)
		}
	}
	return dst
}

// Module returns the merged module with the given qualified name.
func (db *Database) Module(name string) (*stub.Module, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	m, ok := db.modules[name]
	return m, ok
}

// Modules returns all modules sorted by name.
func (db *Database) Modules() []*stub.Module {
	db.mu.RLock()
	defer db.mu.RUnlock()
	out := make([]*stub.Module, 0, len(db.modules))
	for _, m := range db.modules {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Keys returns the lookup keys of every method, sorted.
func (db *Database) Keys() []string {
	db.mu.RLock()
	defer db.mu.RUnlock()
	var keys []string
	for _, m := range db.modules {
		for i := range m.Methods {
			keys = append(keys, m.Methods[i].Key(m.Name))
		}
	}
	sort.Strings(keys)
	return keys
}

// Files returns the files added to the database, in the order they were added.
func (db *Database) Files() []FileRecord {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return append([]FileRecord(nil), db.files...)
}

// Duplicates returns the identical redeclarations seen while merging.
func (db *Database) Duplicates() []Duplicate {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return append([]Duplicate(nil), db.duplicates...)
}

// Conflicts returns the conflicting redeclarations seen while merging.
func (db *Database) Conflicts() []Conflict {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return append([]Conflict(nil), db.conflicts...)
}

// Len returns the number of modules.
func (db *Database) Len() int {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return len(db.modules)
}

// Stats summarizes the database contents.
type Stats struct {
	Files            int `json:"files"`
	Modules          int `json:"modules"`
	Classes          int `json:"classes"`
	Methods          int `json:"methods"`
	SingletonMethods int `json:"singleton_methods"`
	Documented       int `json:"documented"`
	Constants        int `json:"constants"`
	SyntaxErrors     int `json:"syntax_errors"`
	Duplicates       int `json:"duplicates"`
	Conflicts        int `json:"conflicts"`
}

// Stats counts the database contents.
func (db *Database) Stats() Stats {
	db.mu.RLock()
	defer db.mu.RUnlock()

	s := Stats{
		Files:      len(db.files),
		Modules:    len(db.modules),
		Duplicates: len(db.duplicates),
		Conflicts:  len(db.conflicts),
	}
	for _, f := range db.files {
		s.SyntaxErrors += len(f.Errors)
	}
	for _, m := range db.modules {
		if m.IsClass() {
			s.Classes++
		}
		s.Constants += len(m.Constants)
		for i := range m.Methods {
			s.Methods++
			if m.Methods[i].Singleton {
				s.SingletonMethods++
			}
			if m.Methods[i].Doc != "" {
				s.Documented++
			}
		}
	}
	return s
}
