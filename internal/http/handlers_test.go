package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/APerson241/pending-subs/internal/model"
	"github.com/APerson241/pending-subs/internal/service"
	"github.com/APerson241/pending-subs/internal/store"
)

type stubPipeline struct {
	records   []model.Record
	runs      *store.RunStore
	submitted int
	gotTags   model.TagSet
	gotQuery  string
}

func newStub() *stubPipeline {
	return &stubPipeline{
		records: []model.Record{
			{Title: "Draft:Alpha", RowKey: model.RowKey("Draft:Alpha"), Tags: model.NewTagSet("nc"), Status: model.StatusPending},
			{Title: "Draft:Beta", RowKey: model.RowKey("Draft:Beta"), Tags: model.NewTagSet("nu"), Status: model.StatusReviewed},
		},
		runs: store.NewRunStore(5),
	}
}

func (p *stubPipeline) View(required model.TagSet, query string) service.View {
	p.gotTags, p.gotQuery = required, query
	var shown []model.Record
	for _, rec := range p.records {
		if rec.Tags.ContainsAll(required) {
			shown = append(shown, rec)
		}
	}
	return service.View{
		Generation:  3,
		RunID:       "run-3",
		Total:       len(p.records),
		Records:     shown,
		GeneratedAt: time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC),
	}
}

func (p *stubPipeline) Submit(ctx context.Context) *model.Run {
	p.submitted++
	run := &model.Run{ID: "run-new", Generation: 4, Status: model.RunStatusPending}
	p.runs.CreateRun(run)
	return run
}

func (p *stubPipeline) GetRun(ctx context.Context, id string) (*model.Run, error) {
	return p.runs.GetRun(id)
}
func (p *stubPipeline) LatestRun() (*model.Run, error) { return p.runs.LatestCompleted() }
func (p *stubPipeline) ListRuns() []*model.Run         { return p.runs.List() }

func serve(t *testing.T, p Pipeline, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	srv := NewServer(p, "", zaptest.NewLogger(t))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestDashboard(t *testing.T) {
	p := newStub()
	rec := serve(t, p, http.MethodGet, "/?tag=copyvio&q=alpha")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	body := rec.Body.String()
	assert.True(t, strings.HasPrefix(body, "<!DOCTYPE html>"))
	assert.Contains(t, body, `id="result"`)
	assert.Contains(t, body, `id="`+model.StatusCellID("Draft:Alpha")+`"`)
	assert.NotContains(t, body, "Draft:Beta")
	assert.Contains(t, body, "There are 2 submissions; 1 matches the selected filters.")

	assert.True(t, p.gotTags.Has("nc"))
	assert.Equal(t, "alpha", p.gotQuery)
}

func TestDashboardRejectsUnknownTag(t *testing.T) {
	rec := serve(t, newStub(), http.MethodGet, "/?tag=bogus")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "bogus")
}

func TestRecordsJSON(t *testing.T) {
	rec := serve(t, newStub(), http.MethodGet, "/api/records?tag=nu")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var view service.View
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&view))
	assert.Equal(t, 2, view.Total)
	require.Len(t, view.Records, 1)
	assert.Equal(t, "Draft:Beta", view.Records[0].Title)
	assert.Equal(t, model.StatusReviewed, view.Records[0].Status)
	assert.True(t, view.Records[0].Tags.Has("nu"))
}

func TestRefreshAndRuns(t *testing.T) {
	p := newStub()
	srv := NewServer(p, "", zaptest.NewLogger(t))

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/refresh", nil))
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, 1, p.submitted)

	var run model.Run
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&run))
	assert.Equal(t, "run-new", run.ID)
	assert.Equal(t, model.RunStatusPending, run.Status)

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/runs/run-new", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/runs/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/runs/latest", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code, "nothing has completed yet")

	require.NoError(t, p.runs.UpdateRunStatus("run-new", model.RunStatusCompleted, ""))
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/runs/latest", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/runs", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var runs []model.Run
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&runs))
	assert.Len(t, runs, 1)
}

func TestRefreshRequiresPost(t *testing.T) {
	rec := serve(t, newStub(), http.MethodGet, "/refresh")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHealth(t *testing.T) {
	rec := serve(t, newStub(), http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok\n", rec.Body.String())
}

func TestUnknownPath(t *testing.T) {
	rec := serve(t, newStub(), http.MethodGet, "/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
