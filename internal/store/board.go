package store

import (
	"sync"
	"time"

	"github.com/APerson241/pending-subs/internal/model"
)

// Board is the live view the dashboard renders. It holds the records of one
// generation and accepts status updates only for that generation.
type Board struct {
	mu          sync.RWMutex
	generation  uint64
	runID       string
	records     []model.Record
	index       map[string]int // row key -> position in records
	generatedAt time.Time
	lastError   string
}

type Snapshot struct {
	Generation  uint64
	RunID       string
	Records     []model.Record
	GeneratedAt time.Time
	Error       string
}

func NewBoard() *Board {
	return &Board{index: make(map[string]int)}
}

// Reset installs the records of a new generation. An older generation than
// the one on the board is refused.
func (b *Board) Reset(generation uint64, runID string, records []model.Record, generatedAt time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if generation < b.generation {
		return false
	}
	b.generation = generation
	b.runID = runID
	b.records = append([]model.Record(nil), records...)
	b.index = make(map[string]int, len(records))
	for i, rec := range b.records {
		b.index[rec.RowKey] = i
	}
	b.generatedAt = generatedAt
	b.lastError = ""
	return true
}

// Observe applies one record's status. Updates from another generation, for
// unknown rows, or for rows already resolved are dropped.
func (b *Board) Observe(generation uint64, rec model.Record) {
	b.Apply(generation, rec.RowKey, rec.Status)
}

// Apply reports whether the update was taken.
func (b *Board) Apply(generation uint64, rowKey string, status model.Status) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if generation != b.generation {
		return false
	}
	i, ok := b.index[rowKey]
	if !ok || b.records[i].Status != model.StatusUnknown {
		return false
	}
	b.records[i].Status = status
	return true
}

// SetError records a failure of the given generation's run. The board's
// rows and generation are left alone, so a run still reconciling them
// keeps going.
func (b *Board) SetError(generation uint64, msg string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if generation < b.generation {
		return
	}
	b.lastError = msg
}

// Generation is the generation of the rows on the board. Only Reset moves it.
func (b *Board) Generation() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.generation
}

func (b *Board) Snapshot() Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return Snapshot{
		Generation:  b.generation,
		RunID:       b.runID,
		Records:     append([]model.Record(nil), b.records...),
		GeneratedAt: b.generatedAt,
		Error:       b.lastError,
	}
}
