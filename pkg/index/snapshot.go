package index

import (
	"sort"

	"github.com/matzehuels/stubdex/pkg/stub"
)

// Snapshot is the serializable state of a database.
type Snapshot struct {
	Files      []FileRecord   `json:"files"`
	Modules    []*stub.Module `json:"modules"`
	Duplicates []Duplicate    `json:"duplicates,omitempty"`
	Conflicts  []Conflict     `json:"conflicts,omitempty"`
}

// Snapshot captures the database contents. Modules are sorted by name and
// shared with the database, so they must not be modified.
func (db *Database) Snapshot() Snapshot {
	db.mu.RLock()
	defer db.mu.RUnlock()

	mods := make([]*stub.Module, 0, len(db.modules))
	for _, m := range db.modules {
		mods = append(mods, m)
	}
	sort.Slice(mods, func(i, j int) bool { return mods[i].Name < mods[j].Name })
	return Snapshot{
		Files:      append([]FileRecord(nil), db.files...),
		Modules:    mods,
		Duplicates: append([]Duplicate(nil), db.duplicates...),
		Conflicts:  append([]Conflict(nil), db.conflicts...),
	}
}

// Restore rebuilds a database from a snapshot without re-merging: modules are
// taken as already merged. A module name appearing twice keeps the first entry.
func Restore(s Snapshot) *Database {
	db := New()
	db.files = append(db.files, s.Files...)
	db.duplicates = append(db.duplicates, s.Duplicates...)
	db.conflicts = append(db.conflicts, s.Conflicts...)
	for _, m := range s.Modules {
		if _, ok := db.modules[m.Name]; !ok {
			db.modules[m.Name] = m
		}
	}
	return db
}
