package service

import (
	"time"

	"github.com/APerson241/pending-subs/internal/model"
	"github.com/APerson241/pending-subs/internal/search"
)

// View is the filtered dashboard state.
type View struct {
	Generation  uint64         `json:"generation"`
	RunID       string         `json:"run_id,omitempty"`
	Total       int            `json:"total"`
	Records     []model.Record `json:"records"`
	GeneratedAt time.Time      `json:"generated_at"`
	Error       string         `json:"error,omitempty"`
}

// View filters the board: a record is shown iff it carries every required
// tag and, when query has searchable terms, its title matches every term.
// Searched views are ordered best match first; otherwise board order holds.
func (s *PipelineService) View(required model.TagSet, query string) View {
	snap := s.board.Snapshot()

	candidates := snap.Records
	if len(search.Tokenize(query)) > 0 {
		byKey := make(map[string]model.Record, len(snap.Records))
		for _, rec := range snap.Records {
			byKey[rec.RowKey] = rec
		}
		results := s.index.Search(query)
		candidates = make([]model.Record, 0, len(results))
		for _, r := range results {
			if rec, ok := byKey[r.Key]; ok {
				candidates = append(candidates, rec)
			}
		}
	}

	shown := make([]model.Record, 0, len(candidates))
	for _, rec := range candidates {
		if rec.Tags.ContainsAll(required) {
			shown = append(shown, rec)
		}
	}
	return View{
		Generation:  snap.Generation,
		RunID:       snap.RunID,
		Total:       len(snap.Records),
		Records:     shown,
		GeneratedAt: snap.GeneratedAt,
		Error:       snap.Error,
	}
}
