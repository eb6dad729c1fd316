// Package sqlite stores result tables in a SQLite database, one row per
// execution holding the table's JSON form.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/aretw0/solsim/pkg/ports"
	"github.com/aretw0/solsim/pkg/results"
)

const schema = `
CREATE TABLE IF NOT EXISTS results (
    execution_id TEXT PRIMARY KEY,
    runs INTEGER NOT NULL,
    steps_per_run INTEGER NOT NULL,
    columns TEXT NOT NULL,
    body TEXT NOT NULL,
    saved_at TEXT NOT NULL
);
`

// Store implements ports.ResultStore on SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path. ":memory:" keeps it
// in memory.
func Open(ctx context.Context, path string) (*Store, error) {
	dsn := path
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// single writer; also keeps one shared :memory: database
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Save inserts or replaces the table of an execution.
func (s *Store) Save(ctx context.Context, executionID string, table *results.Table) error {
	if executionID == "" {
		return fmt.Errorf("executionID cannot be empty")
	}
	body, err := table.MarshalJSON()
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	columns := fmt.Sprint(table.Columns())

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO results (execution_id, runs, steps_per_run, columns, body, saved_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(execution_id) DO UPDATE SET
			runs = excluded.runs,
			steps_per_run = excluded.steps_per_run,
			columns = excluded.columns,
			body = excluded.body,
			saved_at = excluded.saved_at`,
		executionID, table.Runs(), table.StepsPerRun(), columns, string(body), time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to save results: %w", err)
	}
	return nil
}

// Load retrieves a table.
func (s *Store) Load(ctx context.Context, executionID string) (*results.Table, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `SELECT body FROM results WHERE execution_id = ?`, executionID).Scan(&body)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ports.ErrResultsNotFound
		}
		return nil, fmt.Errorf("failed to load results: %w", err)
	}

	table := &results.Table{}
	if err := table.UnmarshalJSON([]byte(body)); err != nil {
		return nil, fmt.Errorf("failed to unmarshal results: %w", err)
	}
	return table, nil
}

// Delete removes a table.
func (s *Store) Delete(ctx context.Context, executionID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM results WHERE execution_id = ?`, executionID); err != nil {
		return fmt.Errorf("failed to delete results: %w", err)
	}
	return nil
}

// List returns the stored execution IDs, most recently saved first.
func (s *Store) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT execution_id FROM results ORDER BY saved_at DESC, execution_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan execution id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
