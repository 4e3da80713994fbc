package store

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"

	"github.com/matzehuels/stubdex/pkg/errors"
	"github.com/matzehuels/stubdex/pkg/index"
	"github.com/matzehuels/stubdex/pkg/stub"
)

// Load restores the database saved as run id, or the newest run when id is
// empty.
func (s *Store) Load(ctx context.Context, id string) (*index.Database, *Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, err := s.resolveRun(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	snap, err := s.loadSnapshot(ctx, run.ID)
	if err != nil {
		return nil, nil, errors.Wrap(errors.ErrCodeStorage, err, "load run %s", run.ID)
	}
	return index.Restore(*snap), run, nil
}

func (s *Store) loadSnapshot(ctx context.Context, runID string) (*index.Snapshot, error) {
	var snap index.Snapshot
	var filesJSON string
	var dupJSON, conflictJSON sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT files_json, duplicates_json, conflicts_json FROM runs WHERE id = ?
	`, runID).Scan(&filesJSON, &dupJSON, &conflictJSON)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(filesJSON), &snap.Files); err != nil {
		return nil, fmt.Errorf("files: %w", err)
	}
	if dupJSON.Valid {
		if err := json.Unmarshal([]byte(dupJSON.String), &snap.Duplicates); err != nil {
			return nil, fmt.Errorf("duplicates: %w", err)
		}
	}
	if conflictJSON.Valid {
		if err := json.Unmarshal([]byte(conflictJSON.String), &snap.Conflicts); err != nil {
			return nil, fmt.Errorf("conflicts: %w", err)
		}
	}

	// Each query is drained before the next; the pool holds one connection.
	byName, err := s.loadModules(ctx, runID, &snap)
	if err != nil {
		return nil, err
	}
	if err := s.loadLocations(ctx, runID, byName); err != nil {
		return nil, err
	}
	if err := s.loadMethods(ctx, runID, byName); err != nil {
		return nil, err
	}
	if err := s.loadConstants(ctx, runID, byName); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (s *Store) loadModules(ctx context.Context, runID string, snap *index.Snapshot) (map[string]*stub.Module, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, kind, superclass, doc, includes_json, extends_json, prepends_json
		FROM modules WHERE run_id = ? ORDER BY name
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("modules: %w", err)
	}
	defer rows.Close()

	byName := make(map[string]*stub.Module)
	for rows.Next() {
		var (
			m                stub.Module
			kind             string
			super, doc       sql.NullString
			inc, ext, prepen sql.NullString
		)
		if err := rows.Scan(&m.Name, &kind, &super, &doc, &inc, &ext, &prepen); err != nil {
			return nil, fmt.Errorf("modules: %w", err)
		}
		if m.Kind, err = stub.ParseKind(kind); err != nil {
			return nil, fmt.Errorf("module %s: %w", m.Name, err)
		}
		m.Superclass = super.String
		m.Doc = doc.String
		for _, list := range []struct {
			raw sql.NullString
			dst *[]string
		}{{inc, &m.Includes}, {ext, &m.Extends}, {prepen, &m.Prepends}} {
			if list.raw.Valid {
				if err := json.Unmarshal([]byte(list.raw.String), list.dst); err != nil {
					return nil, fmt.Errorf("module %s: %w", m.Name, err)
				}
			}
		}
		mod := &m
		byName[m.Name] = mod
		snap.Modules = append(snap.Modules, mod)
	}
	return byName, rows.Err()
}

func (s *Store) loadLocations(ctx context.Context, runID string, byName map[string]*stub.Module) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT module, file, line FROM module_files WHERE run_id = ? ORDER BY module, position
	`, runID)
	if err != nil {
		return fmt.Errorf("module files: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var module string
		var loc stub.Location
		if err := rows.Scan(&module, &loc.File, &loc.Line); err != nil {
			return fmt.Errorf("module files: %w", err)
		}
		if m, ok := byName[module]; ok {
			m.Locations = append(m.Locations, loc)
		}
	}
	return rows.Err()
}

const methodColumns = `name, singleton, visibility, params_json, doc, alias_of, attribute, has_body, file, line`

func scanMethod(row scanner, extra ...any) (stub.Method, error) {
	var (
		meth                          stub.Method
		singleton, attribute, hasBody int
		visibility                    string
		params, doc, alias            sql.NullString
	)
	dest := append(extra, &meth.Name, &singleton, &visibility, &params, &doc, &alias,
		&attribute, &hasBody, &meth.Location.File, &meth.Location.Line)
	if err := row.Scan(dest...); err != nil {
		return meth, err
	}
	var err error
	if meth.Visibility, err = stub.ParseVisibility(visibility); err != nil {
		return meth, fmt.Errorf("method %s: %w", meth.Name, err)
	}
	if params.Valid {
		if err := json.Unmarshal([]byte(params.String), &meth.Params); err != nil {
			return meth, fmt.Errorf("method %s: %w", meth.Name, err)
		}
	}
	meth.Singleton = singleton != 0
	meth.Attribute = attribute != 0
	meth.HasBody = hasBody != 0
	meth.Doc = doc.String
	meth.AliasOf = alias.String
	return meth, nil
}

func (s *Store) loadMethods(ctx context.Context, runID string, byName map[string]*stub.Module) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT module, `+methodColumns+` FROM methods WHERE run_id = ? ORDER BY module, position
	`, runID)
	if err != nil {
		return fmt.Errorf("methods: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var module string
		meth, err := scanMethod(rows, &module)
		if err != nil {
			return fmt.Errorf("methods: %w", err)
		}
		if m, ok := byName[module]; ok {
			m.Methods = append(m.Methods, meth)
		}
	}
	return rows.Err()
}

func (s *Store) loadConstants(ctx context.Context, runID string, byName map[string]*stub.Module) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT module, name, value, doc, file, line FROM constants WHERE run_id = ? ORDER BY module, position
	`, runID)
	if err != nil {
		return fmt.Errorf("constants: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var module string
		var c stub.Constant
		var doc sql.NullString
		if err := rows.Scan(&module, &c.Name, &c.Value, &doc, &c.Location.File, &c.Location.Line); err != nil {
			return fmt.Errorf("constants: %w", err)
		}
		c.Doc = doc.String
		if m, ok := byName[module]; ok {
			m.Constants = append(m.Constants, c)
		}
	}
	return rows.Err()
}

// MethodRecord is a method found by [Store.LookupMethod].
type MethodRecord struct {
	RunID  string      `json:"run_id"`
	Module string      `json:"module"` // module the lookup started from
	Owner  string      `json:"owner"`  // module declaring the method
	Method stub.Method `json:"method"`
}

// Key returns the key of the method under its owner.
func (r *MethodRecord) Key() string { return r.Method.Key(r.Owner) }

// LookupMethod resolves method on module within run id (the newest run when
// empty), following the stored dispatch chain.
func (s *Store) LookupMethod(ctx context.Context, id, module, method string, singleton bool) (*MethodRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, err := s.resolveRun(ctx, id)
	if err != nil {
		return nil, err
	}

	var exists int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM modules WHERE run_id = ? AND name = ?`, run.ID, module,
	).Scan(&exists); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "lookup %s", module)
	}
	if exists == 0 {
		return nil, fmt.Errorf("%w: %s", index.ErrModuleNotFound, module)
	}

	rec := &MethodRecord{RunID: run.ID, Module: module}
	row := s.db.QueryRowContext(ctx, `
		SELECT a.owner, m.name, m.singleton, m.visibility, m.params_json, m.doc, m.alias_of,
			m.attribute, m.has_body, m.file, m.line
		FROM ancestry a
		JOIN methods m ON m.run_id = a.run_id AND m.module = a.owner
			AND m.singleton = a.owner_singleton AND m.name = ?
		WHERE a.run_id = ? AND a.module = ? AND a.singleton = ?
		ORDER BY a.position, m.position
		LIMIT 1
	`, method, run.ID, module, boolInt(singleton))
	rec.Method, err = scanMethod(row, &rec.Owner)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", index.ErrMethodNotFound, stub.MethodKey(module, method, singleton))
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "lookup %s", stub.MethodKey(module, method, singleton))
	}
	return rec, nil
}
