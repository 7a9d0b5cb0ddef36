package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/APerson241/pending-subs/internal/model"
	"github.com/APerson241/pending-subs/internal/store"
)

// RunRepository persists finished runs across restarts.
type RunRepository interface {
	SaveRun(ctx context.Context, run *model.Run) error
	GetRun(ctx context.Context, id string) (*model.Run, error)
	LatestRun(ctx context.Context) (*model.Run, error)
}

// SnapshotWriter saves a finished run to the in-memory store and, when a
// repository is configured, to disk. Disk failures are logged, not returned:
// the dashboard keeps working from memory.
type SnapshotWriter struct {
	Runs      *store.RunStore
	Snapshots RunRepository
	Logger    *zap.Logger
}

func NewSnapshotWriter(runs *store.RunStore, snapshots RunRepository, logger *zap.Logger) *SnapshotWriter {
	return &SnapshotWriter{Runs: runs, Snapshots: snapshots, Logger: logger}
}

func (w *SnapshotWriter) WriteRun(ctx context.Context, run *model.Run) error {
	if err := w.Runs.SaveRun(run); err != nil {
		return err
	}
	if w.Snapshots == nil || run.Status != model.RunStatusCompleted {
		return nil
	}
	if err := w.Snapshots.SaveRun(ctx, run); err != nil {
		w.Logger.Warn("failed to persist run snapshot", zap.String("run", run.ID), zap.Error(err))
	}
	return nil
}
