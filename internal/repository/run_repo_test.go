package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/APerson241/pending-subs/internal/model"
	"github.com/APerson241/pending-subs/internal/store"
)

func newRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := New(context.Background(), filepath.Join(t.TempDir(), "subs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func sampleRun(id string, gen uint64, status model.RunStatus) *model.Run {
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	return &model.Run{
		ID:         id,
		Generation: gen,
		Status:     status,
		Malformed:  1,
		Records: []model.Record{
			{Title: "Draft:Foo", RowKey: "Draft:Foo", Tags: model.NewTagSet("nc", "ns"), StatusKey: "1", Status: model.StatusPending, Line: 2},
			{Title: "Draft:Bar Baz", RowKey: "Draft:Bar-Baz", Tags: model.TagSet{}, StatusKey: "2", Status: model.StatusUnknown, Line: 3},
		},
		CreatedAt:   now,
		UpdatedAt:   now,
		CompletedAt: now.Add(time.Minute),
	}
}

func TestSaveAndGetRun(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	run := sampleRun("r1", 1, model.RunStatusCompleted)

	require.NoError(t, repo.SaveRun(ctx, run))
	got, err := repo.GetRun(ctx, "r1")
	require.NoError(t, err)

	if diff := cmp.Diff(run, got); diff != "" {
		t.Errorf("GetRun() mismatch (-want +got):\n%s", diff)
	}
}

func TestSaveRunReplacesRecords(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	run := sampleRun("r1", 1, model.RunStatusRunning)
	require.NoError(t, repo.SaveRun(ctx, run))

	run.Status = model.RunStatusCompleted
	run.Records = run.Records[:1]
	require.NoError(t, repo.SaveRun(ctx, run))

	got, err := repo.GetRun(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusCompleted, got.Status)
	assert.Len(t, got.Records, 1)
}

func TestLatestRun(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	_, err := repo.LatestRun(ctx)
	assert.ErrorIs(t, err, store.ErrRunNotFound)

	require.NoError(t, repo.SaveRun(ctx, sampleRun("a", 1, model.RunStatusCompleted)))
	require.NoError(t, repo.SaveRun(ctx, sampleRun("b", 2, model.RunStatusCompleted)))
	require.NoError(t, repo.SaveRun(ctx, sampleRun("c", 3, model.RunStatusFailed)))

	latest, err := repo.LatestRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, "b", latest.ID)
	assert.Len(t, latest.Records, 2)
}

func TestGetRunMissing(t *testing.T) {
	_, err := newRepo(t).GetRun(context.Background(), "nope")
	assert.ErrorIs(t, err, store.ErrRunNotFound)
}

func TestInMemoryDatabase(t *testing.T) {
	repo, err := New(context.Background(), ":memory:")
	require.NoError(t, err)
	defer repo.Close()

	require.NoError(t, repo.SaveRun(context.Background(), sampleRun("m", 1, model.RunStatusCompleted)))
	_, err = repo.LatestRun(context.Background())
	assert.NoError(t, err)
}
