// Package reconcile merges follow-up status lookups back into parsed
// records, one API call per contiguous batch.
package reconcile

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/APerson241/pending-subs/internal/model"
	"github.com/APerson241/pending-subs/internal/wiki"
)

const DefaultBatchSize = 50

// ErrStale marks a batch whose response arrived after its generation was
// superseded. Its records are left Unknown.
var ErrStale = errors.New("reconcile: generation superseded")

// Observer receives each status as soon as its batch is merged.
type Observer interface {
	Observe(generation uint64, rec model.Record)
}

type ObserverFunc func(generation uint64, rec model.Record)

func (f ObserverFunc) Observe(generation uint64, rec model.Record) { f(generation, rec) }

type Options struct {
	BatchSize       int
	MaxConcurrent   int // 0 dispatches every batch at once
	PendingCategory string

	// Observer, if set, is told about every merged record.
	Observer Observer
	// Current, if set, reports the live generation. Batches answering for
	// another generation are discarded.
	Current func() uint64
}

type Reconciler struct {
	fetcher wiki.Fetcher
	opts    Options
	logger  *zap.Logger
}

// Span is the half-open index range [Lo, Hi) of one batch.
type Span struct {
	Lo, Hi int
}

func (s Span) Len() int { return s.Hi - s.Lo }

type BatchResult struct {
	Index int
	Span  Span
	Err   error

	Matched    int
	Pending    int
	Unmatched  []string // titles no returned page matched
	Unexpected int      // returned pages with no record in this batch
}

type Report struct {
	Generation uint64
	Records    []model.Record
	Batches    []BatchResult
}

// Failed returns the number of batches that ended in error.
func (r *Report) Failed() int {
	n := 0
	for _, b := range r.Batches {
		if b.Err != nil {
			n++
		}
	}
	return n
}

func New(fetcher wiki.Fetcher, opts Options, logger *zap.Logger) *Reconciler {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{fetcher: fetcher, opts: opts, logger: logger}
}

// Partition splits n items into contiguous spans of at most size.
func Partition(n, size int) []Span {
	if n <= 0 || size <= 0 {
		return nil
	}
	spans := make([]Span, 0, (n+size-1)/size)
	for lo := 0; lo < n; lo += size {
		hi := lo + size
		if hi > n {
			hi = n
		}
		spans = append(spans, Span{Lo: lo, Hi: hi})
	}
	return spans
}

// Reconcile resolves the status of every record. The input slice is not
// modified; the report carries a copy with statuses set. A failed batch
// leaves its own records Unknown and never affects the others.
func (r *Reconciler) Reconcile(ctx context.Context, generation uint64, records []model.Record) *Report {
	out := make([]model.Record, len(records))
	copy(out, records)
	for i := range out {
		out[i].Status = model.StatusUnknown
	}

	spans := Partition(len(out), r.opts.BatchSize)
	results := make([]BatchResult, len(spans))

	// Goroutines always return nil so one failure cannot cancel siblings.
	var g errgroup.Group
	if r.opts.MaxConcurrent > 0 {
		g.SetLimit(r.opts.MaxConcurrent)
	}
	for i, sp := range spans {
		g.Go(func() error {
			results[i] = r.runBatch(ctx, generation, i, sp, out[sp.Lo:sp.Hi])
			return nil
		})
	}
	_ = g.Wait()

	report := &Report{Generation: generation, Records: out, Batches: results}
	r.logger.Info("reconcile finished",
		zap.Uint64("generation", generation),
		zap.Int("records", len(out)),
		zap.Int("batches", len(spans)),
		zap.Int("failed_batches", report.Failed()))
	return report
}

// runBatch writes only into batch, which no other goroutine touches.
func (r *Reconciler) runBatch(ctx context.Context, generation uint64, index int, span Span, batch []model.Record) BatchResult {
	res := BatchResult{Index: index, Span: span}
	log := r.logger.With(
		zap.Uint64("generation", generation),
		zap.Int("batch", index),
		zap.Int("lo", span.Lo),
		zap.Int("hi", span.Hi))

	keys := make([]string, len(batch))
	titles := make([]string, len(batch))
	for i, rec := range batch {
		keys[i] = rec.StatusKey
		titles[i] = model.NormalizeTitle(rec.Title)
	}
	pending := newOutstanding(titles)

	resp, err := r.fetcher.Fetch(ctx, wiki.StatusQuery(keys, r.opts.PendingCategory))
	if err != nil {
		log.Warn("status batch failed", zap.Error(err))
		res.Err = err
		res.Unmatched = pending.Remaining()
		return res
	}
	pages, err := resp.Pages()
	if err != nil {
		log.Warn("status batch returned no pages", zap.Error(err))
		res.Err = err
		res.Unmatched = pending.Remaining()
		return res
	}
	if r.opts.Current != nil && r.opts.Current() != generation {
		log.Info("discarding stale status batch")
		res.Err = fmt.Errorf("%w: batch %d of generation %d", ErrStale, index, generation)
		res.Unmatched = pending.Remaining()
		return res
	}

	for _, page := range pages {
		i, ok := pending.Take(model.NormalizeTitle(page.Title))
		if !ok {
			log.Debug("no matching record for page", zap.String("title", page.Title))
			res.Unexpected++
			continue
		}
		if page.InCategory(r.opts.PendingCategory) {
			batch[i].Status = model.StatusPending
			res.Pending++
		} else {
			batch[i].Status = model.StatusReviewed
		}
		res.Matched++
		if r.opts.Observer != nil {
			r.opts.Observer.Observe(generation, batch[i])
		}
	}

	if pending.Len() > 0 {
		res.Unmatched = pending.Remaining()
		log.Info("records left unmatched", zap.Strings("titles", res.Unmatched))
	}
	return res
}
