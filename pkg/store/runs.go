package store

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/stubdex/pkg/errors"
	"github.com/matzehuels/stubdex/pkg/index"
	"github.com/matzehuels/stubdex/pkg/stub"
)

// ErrRunNotFound is returned when a run ID does not exist or the store holds
// no runs at all.
var ErrRunNotFound = errors.New(errors.ErrCodeNotFound, "run not found")

// Run describes one saved database.
type Run struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	RubyVersion string      `json:"ruby_version"`
	Created     time.Time   `json:"created"`
	Stats       index.Stats `json:"stats"`
}

// SaveOptions labels a saved run.
type SaveOptions struct {
	Name        string
	RubyVersion string
}

// Save writes db as a new run and returns it.
func (s *Store) Save(ctx context.Context, db *index.Database, opts SaveOptions) (*Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := db.Snapshot()
	run := &Run{
		ID:          uuid.NewString(),
		Name:        opts.Name,
		RubyVersion: opts.RubyVersion,
		Created:     time.Now().UTC(),
		Stats:       db.Stats(),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "begin")
	}
	defer tx.Rollback()

	if err := insertRun(ctx, tx, run, snap); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "save run %s", run.ID)
	}
	for _, m := range snap.Modules {
		if err := insertModule(ctx, tx, run.ID, m); err != nil {
			return nil, errors.Wrap(errors.ErrCodeStorage, err, "save module %s", m.Name)
		}
		for _, singleton := range []bool{false, true} {
			steps, err := db.DispatchChain(m.Name, singleton)
			if err != nil {
				return nil, errors.Wrap(errors.ErrCodeStorage, err, "dispatch chain of %s", m.Name)
			}
			if err := insertChain(ctx, tx, run.ID, m.Name, singleton, steps); err != nil {
				return nil, errors.Wrap(errors.ErrCodeStorage, err, "save ancestry of %s", m.Name)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "commit run %s", run.ID)
	}
	return run, nil
}

func insertRun(ctx context.Context, tx *sql.Tx, run *Run, snap index.Snapshot) error {
	statsJSON, err := json.Marshal(run.Stats)
	if err != nil {
		return err
	}
	filesJSON, err := json.Marshal(snap.Files)
	if err != nil {
		return err
	}
	dupJSON, err := json.Marshal(snap.Duplicates)
	if err != nil {
		return err
	}
	conflictJSON, err := json.Marshal(snap.Conflicts)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, name, ruby_version, created_at, stats_json, files_json, duplicates_json, conflicts_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.Name, run.RubyVersion, run.Created.UnixNano(), statsJSON, filesJSON, dupJSON, conflictJSON)
	return err
}

func insertModule(ctx context.Context, tx *sql.Tx, runID string, m *stub.Module) error {
	incJSON, _ := json.Marshal(m.Includes)
	extJSON, _ := json.Marshal(m.Extends)
	preJSON, _ := json.Marshal(m.Prepends)

	_, err := tx.ExecContext(ctx, `
		INSERT INTO modules (run_id, name, kind, superclass, doc, includes_json, extends_json, prepends_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, runID, m.Name, m.Kind.String(), m.Superclass, m.Doc, incJSON, extJSON, preJSON)
	if err != nil {
		return err
	}

	for i, loc := range m.Locations {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO module_files (run_id, module, position, file, line) VALUES (?, ?, ?, ?, ?)
		`, runID, m.Name, i, loc.File, loc.Line); err != nil {
			return err
		}
	}

	for i, meth := range m.Methods {
		paramsJSON, err := json.Marshal(meth.Params)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO methods (run_id, module, position, name, singleton, visibility, params_json,
				doc, alias_of, attribute, has_body, file, line)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, runID, m.Name, i, meth.Name, boolInt(meth.Singleton), meth.Visibility.String(), paramsJSON,
			meth.Doc, meth.AliasOf, boolInt(meth.Attribute), boolInt(meth.HasBody),
			meth.Location.File, meth.Location.Line); err != nil {
			return err
		}
	}

	for i, c := range m.Constants {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO constants (run_id, module, position, name, value, doc, file, line)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, runID, m.Name, i, c.Name, c.Value, c.Doc, c.Location.File, c.Location.Line); err != nil {
			return err
		}
	}
	return nil
}

func insertChain(ctx context.Context, tx *sql.Tx, runID, module string, singleton bool, steps []index.Step) error {
	for i, step := range steps {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO ancestry (run_id, module, singleton, position, owner, owner_singleton)
			VALUES (?, ?, ?, ?, ?, ?)
		`, runID, module, boolInt(singleton), i, step.Module, boolInt(step.Singleton)); err != nil {
			return err
		}
	}
	return nil
}

// Runs lists the saved runs, newest first.
func (s *Store) Runs(ctx context.Context) ([]Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, ruby_version, created_at, stats_json FROM runs
		ORDER BY created_at DESC, rowid DESC
	`)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "list runs")
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeStorage, err, "scan run")
		}
		out = append(out, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "list runs")
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var (
		run       Run
		created   int64
		statsJSON string
	)
	if err := row.Scan(&run.ID, &run.Name, &run.RubyVersion, &created, &statsJSON); err != nil {
		return nil, err
	}
	run.Created = time.Unix(0, created).UTC()
	if err := json.Unmarshal([]byte(statsJSON), &run.Stats); err != nil {
		return nil, fmt.Errorf("stats: %w", err)
	}
	return &run, nil
}

// resolveRun returns the run with the given ID, or the newest run when id
// is empty. Callers hold the lock.
func (s *Store) resolveRun(ctx context.Context, id string) (*Run, error) {
	query := `SELECT id, name, ruby_version, created_at, stats_json FROM runs WHERE id = ?`
	args := []any{id}
	if id == "" {
		query = `SELECT id, name, ruby_version, created_at, stats_json FROM runs ORDER BY created_at DESC, rowid DESC LIMIT 1`
		args = nil
	}
	run, err := scanRun(s.db.QueryRowContext(ctx, query, args...))
	if stderrors.Is(err, sql.ErrNoRows) {
		if id == "" {
			return nil, fmt.Errorf("%w: store is empty", ErrRunNotFound)
		}
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "load run %s", id)
	}
	return run, nil
}

// Prune deletes all but the newest keep runs and reports how many were
// removed.
func (s *Store) Prune(ctx context.Context, keep int) (int, error) {
	if keep < 0 {
		keep = 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		DELETE FROM runs WHERE id NOT IN (
			SELECT id FROM runs ORDER BY created_at DESC, rowid DESC LIMIT ?
		)
	`, keep)
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeStorage, err, "prune runs")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeStorage, err, "prune runs")
	}
	return int(n), nil
}
