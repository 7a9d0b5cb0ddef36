package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/APerson241/pending-subs/internal/model"
	"github.com/APerson241/pending-subs/internal/store"
)

// SaveRun writes run and its records, replacing any earlier copy.
func (r *Repository) SaveRun(ctx context.Context, run *model.Run) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	_, err = tx.ExecContext(ctx, `INSERT INTO runs (id, generation, status, malformed, error, created_at, updated_at, completed_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    generation = excluded.generation,
    status = excluded.status,
    malformed = excluded.malformed,
    error = excluded.error,
    updated_at = excluded.updated_at,
    completed_at = excluded.completed_at`,
		run.ID, int64(run.Generation), string(run.Status), run.Malformed, run.Error,
		formatTime(run.CreatedAt), formatTime(run.UpdatedAt), formatTime(run.CompletedAt))
	if err != nil {
		return fmt.Errorf("upsert run: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM records WHERE run_id = ?`, run.ID); err != nil {
		return fmt.Errorf("clear records: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO records (run_id, position, title, row_key, tags, status_key, status, line)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i, rec := range run.Records {
		_, err := stmt.ExecContext(ctx, run.ID, i, rec.Title, rec.RowKey,
			strings.Join(rec.Tags.Sorted(), ","), rec.StatusKey, string(rec.Status), rec.Line)
		if err != nil {
			return fmt.Errorf("insert record %q: %w", rec.Title, err)
		}
	}
	return tx.Commit()
}

func (r *Repository) GetRun(ctx context.Context, id string) (*model.Run, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, generation, status, malformed, error, created_at, updated_at, completed_at
FROM runs WHERE id = ?`, id)
	return r.loadRun(ctx, row)
}

// LatestRun returns the completed run with the highest generation.
func (r *Repository) LatestRun(ctx context.Context) (*model.Run, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, generation, status, malformed, error, created_at, updated_at, completed_at
FROM runs WHERE status = ? ORDER BY generation DESC LIMIT 1`, string(model.RunStatusCompleted))
	return r.loadRun(ctx, row)
}

func (r *Repository) loadRun(ctx context.Context, row *sql.Row) (*model.Run, error) {
	var (
		run                             model.Run
		gen                             int64
		status                          string
		created, updated, completedText string
	)
	err := row.Scan(&run.ID, &gen, &status, &run.Malformed, &run.Error, &created, &updated, &completedText)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrRunNotFound
		}
		return nil, err
	}
	run.Generation = uint64(gen)
	run.Status = model.RunStatus(status)
	run.CreatedAt = parseTime(created)
	run.UpdatedAt = parseTime(updated)
	run.CompletedAt = parseTime(completedText)

	rows, err := r.db.QueryContext(ctx, `SELECT title, row_key, tags, status_key, status, line
FROM records WHERE run_id = ? ORDER BY position`, run.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var rec model.Record
		var tags, recStatus string
		if err := rows.Scan(&rec.Title, &rec.RowKey, &tags, &rec.StatusKey, &recStatus, &rec.Line); err != nil {
			return nil, err
		}
		rec.Status = model.Status(recStatus)
		rec.Tags = model.TagSet{}
		if tags != "" {
			rec.Tags = model.NewTagSet(strings.Split(tags, ",")...)
		}
		run.Records = append(run.Records, rec)
	}
	return &run, rows.Err()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
