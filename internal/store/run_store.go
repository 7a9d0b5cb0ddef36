package store

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/APerson241/pending-subs/internal/model"
)

var ErrRunNotFound = errors.New("run not found")

// RunStore keeps pipeline runs in memory, bounded to the most recent ones.
type RunStore struct {
	runs  map[string]*model.Run
	limit int
	mu    sync.RWMutex
}

func NewRunStore(limit int) *RunStore {
	if limit <= 0 {
		limit = 20
	}
	return &RunStore{
		runs:  make(map[string]*model.Run),
		limit: limit,
	}
}

func (s *RunStore) CreateRun(run *model.Run) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	run.CreatedAt = now
	run.UpdatedAt = now
	s.runs[run.ID] = cloneRun(run)
	s.evictLocked()
}

// SaveRun replaces the stored copy of run.
func (s *RunStore) SaveRun(run *model.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.runs[run.ID]; !ok {
		return ErrRunNotFound
	}
	run.UpdatedAt = time.Now()
	s.runs[run.ID] = cloneRun(run)
	return nil
}

// PutRun stores a run as-is, e.g. one restored from a snapshot.
func (s *RunStore) PutRun(run *model.Run) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[run.ID] = cloneRun(run)
	s.evictLocked()
}

func (s *RunStore) GetRun(id string) (*model.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[id]
	if !ok {
		return nil, ErrRunNotFound
	}
	return cloneRun(run), nil
}

func (s *RunStore) UpdateRunStatus(id string, status model.RunStatus, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	run, ok := s.runs[id]
	if !ok {
		return ErrRunNotFound
	}
	run.Status = status
	run.Error = errMsg
	run.UpdatedAt = time.Now()
	if status == model.RunStatusCompleted || status == model.RunStatusFailed {
		run.CompletedAt = run.UpdatedAt
	}
	return nil
}

// LatestCompleted returns the completed run with the highest generation.
func (s *RunStore) LatestCompleted() (*model.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var best *model.Run
	for _, run := range s.runs {
		if run.Status != model.RunStatusCompleted {
			continue
		}
		if best == nil || run.Generation > best.Generation {
			best = run
		}
	}
	if best == nil {
		return nil, ErrRunNotFound
	}
	return cloneRun(best), nil
}

// List returns runs newest generation first.
func (s *RunStore) List() []*model.Run {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*model.Run, 0, len(s.runs))
	for _, run := range s.runs {
		out = append(out, cloneRun(run))
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Generation > out[b].Generation })
	return out
}

func (s *RunStore) evictLocked() {
	for len(s.runs) > s.limit {
		var oldest *model.Run
		for _, run := range s.runs {
			if oldest == nil || run.Generation < oldest.Generation {
				oldest = run
			}
		}
		delete(s.runs, oldest.ID)
	}
}

func cloneRun(run *model.Run) *model.Run {
	c := *run
	c.Records = append([]model.Record(nil), run.Records...)
	return &c
}
