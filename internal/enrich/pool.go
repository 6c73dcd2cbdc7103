package enrich

import (
	"context"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/docuchat/backend/internal/metrics"
	"github.com/docuchat/backend/internal/retrieval"
	"github.com/docuchat/backend/pkg/logger"
)

// FailedSummary is the sentinel surfaced for documents whose summary could
// not be produced in time. Enrichment failure is data, never a stream abort.
const FailedSummary = "Summary generation failed"

type Status int

const (
	StatusCached Status = iota
	StatusGenerated
	StatusFailed
	StatusTimedOut
)

func (s Status) String() string {
	switch s {
	case StatusCached:
		return "cached"
	case StatusGenerated:
		return "generated"
	case StatusFailed:
		return "failed"
	case StatusTimedOut:
		return "timeout"
	default:
		return "unknown"
	}
}

// Outcome is the per-document enrichment result. Failed outcomes carry the
// sentinel text in Summary.
type Outcome struct {
	DocID   string
	Summary string
	Status  Status
}

func (o Outcome) Failed() bool {
	return o.Status == StatusFailed || o.Status == StatusTimedOut
}

type Generator interface {
	Summarize(ctx context.Context, content string) (string, error)
}

// SummaryStore is the durable summary field on each document.
type SummaryStore interface {
	GetSummary(ctx context.Context, index, docID string) (string, error)
	PutSummary(ctx context.Context, index, docID, summary string) error
}

// Cache is an optional look-aside layer in front of the store.
type Cache interface {
	GetSummary(ctx context.Context, docID string) (string, bool, error)
	SetSummary(ctx context.Context, docID, summary string) error
}

// Pool generates document summaries on bounded worker pools, one batch per
// request. Workers check the cache layers before invoking the generator and
// persist fresh summaries before reporting them.
type Pool struct {
	gen        Generator
	store      SummaryStore
	cache      Cache
	index      string
	maxWorkers int
}

func NewPool(gen Generator, store SummaryStore, cache Cache, index string, maxWorkers int) *Pool {
	if maxWorkers <= 0 {
		maxWorkers = 5
	}
	return &Pool{
		gen:        gen,
		store:      store,
		cache:      cache,
		index:      index,
		maxWorkers: maxWorkers,
	}
}

// Batch tracks one dispatched enrichment run.
type Batch struct {
	docIDs  []string
	results chan Outcome
	workers *ants.Pool
}

// Dispatch starts enrichment for the batch on min(len(docs), maxWorkers)
// workers and returns immediately; results are collected with Wait.
func (p *Pool) Dispatch(ctx context.Context, docs []retrieval.Document) *Batch {
	b := &Batch{
		docIDs:  make([]string, len(docs)),
		results: make(chan Outcome, len(docs)),
	}
	for i, doc := range docs {
		b.docIDs[i] = doc.ID
	}

	if len(docs) == 0 {
		close(b.results)
		return b
	}

	size := len(docs)
	if size > p.maxWorkers {
		size = p.maxWorkers
	}

	workers, err := ants.NewPool(size)
	if err != nil {
		logger.Error("Failed to create enrichment pool", zap.Error(err))
		for _, doc := range docs {
			b.results <- Outcome{DocID: doc.ID, Summary: FailedSummary, Status: StatusFailed}
		}
		close(b.results)
		return b
	}
	b.workers = workers

	var wg sync.WaitGroup
	for _, doc := range docs {
		doc := doc
		wg.Add(1)
		submitErr := workers.Submit(func() {
			defer wg.Done()
			b.results <- p.enrichOne(ctx, doc)
		})
		if submitErr != nil {
			wg.Done()
			b.results <- Outcome{DocID: doc.ID, Summary: FailedSummary, Status: StatusFailed}
		}
	}

	go func() {
		wg.Wait()
		close(b.results)
	}()

	return b
}

// Wait collects outcomes until all workers finish or the ceiling elapses.
// Documents still pending at the deadline get the timeout sentinel.
func (b *Batch) Wait(timeout time.Duration) map[string]Outcome {
	defer func() {
		if b.workers != nil {
			b.workers.Release()
		}
	}()

	outcomes := make(map[string]Outcome, len(b.docIDs))
	for _, id := range b.docIDs {
		outcomes[id] = Outcome{DocID: id, Summary: FailedSummary, Status: StatusTimedOut}
	}

	if len(b.docIDs) == 0 {
		return outcomes
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	collected := 0
	for collected < len(b.docIDs) {
		select {
		case outcome, ok := <-b.results:
			if !ok {
				return outcomes
			}
			outcomes[outcome.DocID] = outcome
			metrics.EnrichmentOutcomes.WithLabelValues(outcome.Status.String()).Inc()
			collected++
		case <-timer.C:
			logger.Warn("Enrichment wait ceiling reached",
				zap.Int("pending", len(b.docIDs)-collected),
			)
			return outcomes
		}
	}

	return outcomes
}

func (p *Pool) enrichOne(ctx context.Context, doc retrieval.Document) (outcome Outcome) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Enrichment worker panicked", zap.Any("panic", r), zap.String("doc_id", doc.ID))
			outcome = Outcome{DocID: doc.ID, Summary: FailedSummary, Status: StatusFailed}
		}
	}()

	if ctx.Err() != nil {
		return Outcome{DocID: doc.ID, Summary: FailedSummary, Status: StatusFailed}
	}

	// The retrieval hit already carries the stored summary when one exists.
	if doc.Summary != "" {
		return Outcome{DocID: doc.ID, Summary: doc.Summary, Status: StatusCached}
	}

	if p.cache != nil {
		if cached, ok, err := p.cache.GetSummary(ctx, doc.ID); err == nil && ok && cached != "" {
			metrics.CacheHits.WithLabelValues("summary").Inc()
			return Outcome{DocID: doc.ID, Summary: cached, Status: StatusCached}
		}
		metrics.CacheMisses.WithLabelValues("summary").Inc()
	}

	if stored, err := p.store.GetSummary(ctx, p.index, doc.ID); err == nil && stored != "" {
		return Outcome{DocID: doc.ID, Summary: stored, Status: StatusCached}
	}

	summary, err := p.gen.Summarize(ctx, doc.Content)
	if err != nil {
		logger.Warn("Summary generation failed",
			zap.String("doc_id", doc.ID),
			zap.Error(err),
		)
		return Outcome{DocID: doc.ID, Summary: FailedSummary, Status: StatusFailed}
	}

	if err := p.store.PutSummary(ctx, p.index, doc.ID, summary); err != nil {
		logger.Warn("Failed to persist summary",
			zap.String("doc_id", doc.ID),
			zap.Error(err),
		)
	}

	if p.cache != nil {
		if err := p.cache.SetSummary(ctx, doc.ID, summary); err != nil {
			logger.Debug("Failed to cache summary", zap.String("doc_id", doc.ID), zap.Error(err))
		}
	}

	return Outcome{DocID: doc.ID, Summary: summary, Status: StatusGenerated}
}
