package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/APerson241/pending-subs/internal/afc"
	"github.com/APerson241/pending-subs/internal/model"
	"github.com/APerson241/pending-subs/internal/reconcile"
	"github.com/APerson241/pending-subs/internal/search"
	"github.com/APerson241/pending-subs/internal/store"
	"github.com/APerson241/pending-subs/internal/wiki"
)

// ErrSuperseded means a newer run started before this one finished; its
// results were discarded.
var ErrSuperseded = errors.New("run superseded by a newer generation")

type Options struct {
	StatsPage       string
	PendingCategory string
	Sentinel        string
	ExcludedTitles  []string
	BatchSize       int
	MaxConcurrent   int
}

// PipelineService runs fetch -> parse -> reconcile and publishes the result
// to the board the dashboard reads.
type PipelineService struct {
	fetcher    wiki.Fetcher
	parser     *afc.Parser
	reconciler *reconcile.Reconciler
	runs       *store.RunStore
	board      *store.Board
	index      *search.Index
	writer     *SnapshotWriter
	snapshots  RunRepository
	statsPage  string
	logger     *zap.Logger

	// issued numbers runs as they start; the live generation is the board's,
	// which only moves when a run publishes its rows.
	issued atomic.Uint64
	wg     sync.WaitGroup
}

func NewPipelineService(fetcher wiki.Fetcher, opts Options, runs *store.RunStore, board *store.Board,
	index *search.Index, snapshots RunRepository, logger *zap.Logger) *PipelineService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &PipelineService{
		fetcher:   fetcher,
		parser:    afc.New(afc.Options{Sentinel: opts.Sentinel, ExcludedTitles: opts.ExcludedTitles}),
		runs:      runs,
		board:     board,
		index:     index,
		writer:    NewSnapshotWriter(runs, snapshots, logger),
		snapshots: snapshots,
		statsPage: opts.StatsPage,
		logger:    logger,
	}
	s.reconciler = reconcile.New(fetcher, reconcile.Options{
		BatchSize:       opts.BatchSize,
		MaxConcurrent:   opts.MaxConcurrent,
		PendingCategory: opts.PendingCategory,
		Observer:        board,
		Current:         board.Generation,
	}, logger)
	return s
}

// Run executes one full pipeline synchronously. Only records carrying every
// required tag are looked up; pass nil to keep all of them.
func (s *PipelineService) Run(ctx context.Context, required model.TagSet) (*model.Run, error) {
	run := s.newRun()
	return s.execute(ctx, run, required)
}

// Submit starts a pipeline run in the background and returns it in its
// PENDING state. The run outlives the caller's context.
func (s *PipelineService) Submit(ctx context.Context) *model.Run {
	run := s.newRun()
	pending, _ := s.runs.GetRun(run.ID)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		_, _ = s.execute(context.WithoutCancel(ctx), run, nil)
	}()
	return pending
}

// Wait blocks until every submitted run has finished.
func (s *PipelineService) Wait() {
	s.wg.Wait()
}

// Schedule reruns the pipeline every interval until ctx is done.
func (s *PipelineService) Schedule(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Run(ctx, nil); err != nil {
				s.logger.Warn("scheduled refresh failed", zap.Error(err))
			}
		}
	}
}

// Restore loads the last persisted run onto the board, if there is one.
func (s *PipelineService) Restore(ctx context.Context) error {
	if s.snapshots == nil {
		return nil
	}
	run, err := s.snapshots.LatestRun(ctx)
	if errors.Is(err, store.ErrRunNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}

	// keep generations increasing past the restored one
	for {
		cur := s.issued.Load()
		if cur >= run.Generation || s.issued.CompareAndSwap(cur, run.Generation) {
			break
		}
	}
	s.runs.PutRun(run)
	s.publish(run.Generation, run.ID, run.Records, run.CompletedAt)
	s.logger.Info("restored snapshot",
		zap.String("run", run.ID),
		zap.Uint64("generation", run.Generation),
		zap.Int("records", len(run.Records)))
	return nil
}

// GetRun looks in memory first, then in the snapshot store for completed
// runs that have been evicted.
func (s *PipelineService) GetRun(ctx context.Context, id string) (*model.Run, error) {
	run, err := s.runs.GetRun(id)
	if err == nil || !errors.Is(err, store.ErrRunNotFound) || s.snapshots == nil {
		return run, err
	}
	return s.snapshots.GetRun(ctx, id)
}

func (s *PipelineService) LatestRun() (*model.Run, error) {
	return s.runs.LatestCompleted()
}

func (s *PipelineService) ListRuns() []*model.Run {
	return s.runs.List()
}

func (s *PipelineService) newRun() *model.Run {
	run := &model.Run{
		ID:         uuid.New().String(),
		Generation: s.issued.Add(1),
		Status:     model.RunStatusPending,
	}
	s.runs.CreateRun(run)
	return run
}

func (s *PipelineService) execute(ctx context.Context, run *model.Run, required model.TagSet) (*model.Run, error) {
	log := s.logger.With(zap.String("run", run.ID), zap.Uint64("generation", run.Generation))
	if err := s.runs.UpdateRunStatus(run.ID, model.RunStatusRunning, ""); err != nil {
		return nil, err
	}
	run.Status = model.RunStatusRunning

	text, err := wiki.FetchPageText(ctx, s.fetcher, s.statsPage)
	if err != nil {
		return s.fail(ctx, run, fmt.Errorf("fetch %s: %w", s.statsPage, err))
	}

	parsed := s.parser.Parse(text, required)
	run.Malformed = len(parsed.Malformed)
	if run.Malformed > 0 {
		lines := make([]int, 0, len(parsed.Malformed))
		for _, m := range parsed.Malformed {
			lines = append(lines, m.Line)
		}
		log.Warn("skipped malformed rows", zap.Int("count", run.Malformed), zap.Ints("lines", lines))
	}
	log.Info("parsed statistics page",
		zap.Int("candidates", parsed.Candidates),
		zap.Int("records", len(parsed.Records)),
		zap.Int("excluded", parsed.Excluded))

	if !s.publish(run.Generation, run.ID, parsed.Records, time.Now()) {
		return s.fail(ctx, run, ErrSuperseded)
	}

	report := s.reconciler.Reconcile(ctx, run.Generation, parsed.Records)
	run.Records = report.Records
	if s.board.Generation() != run.Generation {
		return s.fail(ctx, run, ErrSuperseded)
	}

	run.Status = model.RunStatusCompleted
	run.CompletedAt = time.Now()
	if err := s.writer.WriteRun(ctx, run); err != nil {
		return nil, err
	}
	counts := run.Counts()
	log.Info("run completed",
		zap.Int("pending", counts[model.StatusPending]),
		zap.Int("reviewed", counts[model.StatusReviewed]),
		zap.Int("unknown", counts[model.StatusUnknown]),
		zap.Int("failed_batches", report.Failed()))
	return run, nil
}

func (s *PipelineService) fail(ctx context.Context, run *model.Run, err error) (*model.Run, error) {
	s.logger.Error("run failed", zap.String("run", run.ID), zap.Error(err))
	run.Status = model.RunStatusFailed
	run.Error = err.Error()
	run.CompletedAt = time.Now()
	if !errors.Is(err, ErrSuperseded) {
		s.board.SetError(run.Generation, err.Error())
	}
	if werr := s.writer.WriteRun(ctx, run); werr != nil {
		s.logger.Warn("failed to record run failure", zap.Error(werr))
	}
	return run, err
}

func (s *PipelineService) publish(generation uint64, runID string, records []model.Record, at time.Time) bool {
	if !s.board.Reset(generation, runID, records, at) {
		return false
	}
	docs := make([]search.Document, len(records))
	for i, rec := range records {
		docs[i] = search.Document{Key: rec.RowKey, Text: rec.Title}
	}
	s.index.Rebuild(docs)
	return true
}
