package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/APerson241/pending-subs/internal/afc"
	"github.com/APerson241/pending-subs/internal/model"
	"github.com/APerson241/pending-subs/internal/render"
	"github.com/APerson241/pending-subs/internal/store"
)

// filters reads the repeatable tag parameter and the title query.
func filters(r *http.Request) (model.TagSet, string, error) {
	q := r.URL.Query()
	required, err := afc.ParseRequired(q["tag"])
	if err != nil {
		return nil, "", err
	}
	return required, q.Get("q"), nil
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	required, query, err := filters(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	view := s.pipeline.View(required, query)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	err = render.Page(w, render.PageData{
		Records:     view.Records,
		Total:       view.Total,
		Required:    required,
		Query:       query,
		GeneratedAt: view.GeneratedAt,
		Error:       view.Error,
		ArticleBase: s.articleBase,
	})
	if err != nil {
		s.logger.Warn("render dashboard", zap.Error(err))
	}
}

func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	required, query, err := filters(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, s.pipeline.View(required, query))
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.pipeline.ListRuns())
}

func (s *Server) handleLatestRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.pipeline.LatestRun()
	if err != nil {
		s.runError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		http.Error(w, "run ID is required", http.StatusBadRequest)
		return
	}
	run, err := s.pipeline.GetRun(r.Context(), id)
	if err != nil {
		s.runError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	run := s.pipeline.Submit(r.Context())
	s.logger.Info("refresh requested", zap.String("run", run.ID), zap.Uint64("generation", run.Generation))
	writeJSON(w, http.StatusAccepted, run)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Server) runError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrRunNotFound) {
		http.Error(w, "run not found", http.StatusNotFound)
		return
	}
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
