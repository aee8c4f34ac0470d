// Package store persists simulation runs and their per-step image entropies
// in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// ErrRunNotFound is returned for an unknown run id.
var ErrRunNotFound = errors.New("run not found")

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// Run describes one batch simulation.
type Run struct {
	ID        string
	Rule      string
	Height    int
	Width     int
	Batch     int
	Steps     int
	Seed      int64
	CreatedAt time.Time
}

// StepEntropies holds the entropy of every image after one step.
type StepEntropies struct {
	Step   int
	Values []float64 // indexed by image
}

// Store is a SQLite database of runs.
type Store struct {
	db   *sql.DB
	path string
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	rule TEXT NOT NULL,
	height INTEGER NOT NULL,
	width INTEGER NOT NULL,
	batch INTEGER NOT NULL,
	steps INTEGER NOT NULL,
	seed INTEGER NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS entropies (
	run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	step INTEGER NOT NULL,
	image INTEGER NOT NULL,
	value REAL NOT NULL,
	PRIMARY KEY (run_id, step, image)
);
CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);
`

// Open opens or creates the database at path, creating parent directories.
func Open(ctx context.Context, path string) (*Store, error) {
	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// one connection keeps an in-memory database alive and serialises writers
	db.SetMaxOpenConns(1)

	s := &Store{db: db, path: path}
	if err := s.initialize(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initialize(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	return nil
}

// Path returns the database location.
func (s *Store) Path() string { return s.path }

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateRun inserts r, assigning an id and creation time when unset.
func (s *Store) CreateRun(ctx context.Context, r Run) (Run, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, rule, height, width, batch, steps, seed, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Rule, r.Height, r.Width, r.Batch, r.Steps, r.Seed, r.CreatedAt.UnixNano())
	if err != nil {
		return Run{}, fmt.Errorf("failed to create run: %w", err)
	}
	return r, nil
}

// Run returns the run with the given id.
func (s *Store) Run(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, rule, height, width, batch, steps, seed, created_at FROM runs WHERE id = ?`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return r, err
}

// Runs lists every run, oldest first.
func (s *Store) Runs(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, rule, height, width, batch, steps, seed, created_at FROM runs ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (Run, error) {
	var r Run
	var created int64
	if err := sc.Scan(&r.ID, &r.Rule, &r.Height, &r.Width, &r.Batch, &r.Steps, &r.Seed, &created); err != nil {
		return Run{}, err
	}
	r.CreatedAt = time.Unix(0, created).UTC()
	return r, nil
}

// AppendEntropies records the entropy of every image after step. Writing the
// same step again replaces it.
func (s *Store) AppendEntropies(ctx context.Context, runID string, step int, values []float64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var one int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM runs WHERE id = ?`, runID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM entropies WHERE run_id = ? AND step = ?`, runID, step); err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO entropies (run_id, step, image, value) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i, v := range values {
		if _, err := stmt.ExecContext(ctx, runID, step, i, v); err != nil {
			return fmt.Errorf("failed to store step %d image %d: %w", step, i, err)
		}
	}
	return tx.Commit()
}

// Entropies returns the recorded entropies of a run ordered by step.
func (s *Store) Entropies(ctx context.Context, runID string) ([]StepEntropies, error) {
	if _, err := s.Run(ctx, runID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT step, image, value FROM entropies WHERE run_id = ? ORDER BY step, image`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []StepEntropies
	for rows.Next() {
		var step, image int
		var v float64
		if err := rows.Scan(&step, &image, &v); err != nil {
			return nil, err
		}
		if len(out) == 0 || out[len(out)-1].Step != step {
			out = append(out, StepEntropies{Step: step})
		}
		cur := &out[len(out)-1]
		for len(cur.Values) < image {
			cur.Values = append(cur.Values, 0)
		}
		cur.Values = append(cur.Values, v)
	}
	return out, rows.Err()
}

// DeleteRun removes a run and its entropies.
func (s *Store) DeleteRun(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}
