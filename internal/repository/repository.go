package repository

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Repository persists completed runs so a restarted dashboard can serve the
// last snapshot before its first refresh finishes.
type Repository struct {
	db *sql.DB
}

func New(ctx context.Context, path string) (*Repository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// one connection: an in-memory database is per connection, and writes
	// are serialized by SQLite anyway
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if err := RunSchema(ctx, db, schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("run schema: %w", err)
	}
	return &Repository{db: db}, nil
}

// RunSchema executes schema SQL. Safe to call repeatedly; the schema uses
// IF NOT EXISTS.
func RunSchema(ctx context.Context, db *sql.DB, schema string) error {
	_, err := db.ExecContext(ctx, schema)
	return err
}

const schemaSQL = `CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    generation INTEGER NOT NULL,
    status TEXT NOT NULL,
    malformed INTEGER NOT NULL DEFAULT 0,
    error TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL,
    completed_at TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS records (
    run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    position INTEGER NOT NULL,
    title TEXT NOT NULL,
    row_key TEXT NOT NULL,
    tags TEXT NOT NULL,
    status_key TEXT NOT NULL,
    status TEXT NOT NULL,
    line INTEGER NOT NULL,
    PRIMARY KEY (run_id, position)
);

CREATE INDEX IF NOT EXISTS runs_completed ON runs(status, generation);`

func (r *Repository) Close() error {
	return r.db.Close()
}
