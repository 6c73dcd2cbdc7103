package enrich

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docuchat/backend/internal/retrieval"
)

type stubGenerator struct {
	mu      sync.Mutex
	calls   int
	summary string
	err     error
	block   chan struct{}
}

func (g *stubGenerator) Summarize(ctx context.Context, _ string) (string, error) {
	g.mu.Lock()
	g.calls++
	g.mu.Unlock()

	if g.block != nil {
		select {
		case <-g.block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if g.err != nil {
		return "", g.err
	}
	return g.summary, nil
}

func (g *stubGenerator) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

type stubStore struct {
	mu     sync.Mutex
	stored map[string]string
	puts   map[string]string
	getErr error
}

func (s *stubStore) GetSummary(_ context.Context, _, docID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return "", s.getErr
	}
	return s.stored[docID], nil
}

func (s *stubStore) PutSummary(_ context.Context, _, docID, summary string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.puts == nil {
		s.puts = make(map[string]string)
	}
	s.puts[docID] = summary
	return nil
}

type stubCache struct {
	mu      sync.Mutex
	entries map[string]string
	sets    map[string]string
}

func (c *stubCache) GetSummary(_ context.Context, docID string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[docID]
	return v, ok, nil
}

func (c *stubCache) SetSummary(_ context.Context, docID, summary string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sets == nil {
		c.sets = make(map[string]string)
	}
	c.sets[docID] = summary
	return nil
}

func doc(id, content, summary string) retrieval.Document {
	return retrieval.Document{ID: id, Content: content, Summary: summary}
}

func TestDispatchUsesHitSummary(t *testing.T) {
	gen := &stubGenerator{summary: "fresh"}
	pool := NewPool(gen, &stubStore{}, nil, "idx", 2)

	batch := pool.Dispatch(context.Background(), []retrieval.Document{
		doc("d1", "content", "already summarized"),
	})
	outcomes := batch.Wait(time.Second)

	require.Contains(t, outcomes, "d1")
	assert.Equal(t, "already summarized", outcomes["d1"].Summary)
	assert.Equal(t, StatusCached, outcomes["d1"].Status)
	assert.Zero(t, gen.callCount())
}

func TestDispatchChecksStoreBeforeGenerating(t *testing.T) {
	gen := &stubGenerator{summary: "fresh"}
	store := &stubStore{stored: map[string]string{"d1": "from the index"}}
	pool := NewPool(gen, store, nil, "idx", 2)

	outcomes := pool.Dispatch(context.Background(), []retrieval.Document{
		doc("d1", "content", ""),
	}).Wait(time.Second)

	assert.Equal(t, "from the index", outcomes["d1"].Summary)
	assert.Equal(t, StatusCached, outcomes["d1"].Status)
	assert.Zero(t, gen.callCount())
}

func TestDispatchGeneratesAndPersists(t *testing.T) {
	gen := &stubGenerator{summary: "fresh"}
	store := &stubStore{}
	cache := &stubCache{}
	pool := NewPool(gen, store, cache, "idx", 2)

	outcomes := pool.Dispatch(context.Background(), []retrieval.Document{
		doc("d1", "content", ""),
	}).Wait(time.Second)

	assert.Equal(t, "fresh", outcomes["d1"].Summary)
	assert.Equal(t, StatusGenerated, outcomes["d1"].Status)
	assert.Equal(t, 1, gen.callCount())
	assert.Equal(t, "fresh", store.puts["d1"])
	assert.Equal(t, "fresh", cache.sets["d1"])
}

func TestDispatchCacheHitSkipsStoreAndGenerator(t *testing.T) {
	gen := &stubGenerator{summary: "fresh"}
	store := &stubStore{getErr: errors.New("store should not be called")}
	cache := &stubCache{entries: map[string]string{"d1": "cached"}}
	pool := NewPool(gen, store, cache, "idx", 2)

	outcomes := pool.Dispatch(context.Background(), []retrieval.Document{
		doc("d1", "content", ""),
	}).Wait(time.Second)

	assert.Equal(t, "cached", outcomes["d1"].Summary)
	assert.Equal(t, StatusCached, outcomes["d1"].Status)
	assert.Zero(t, gen.callCount())
}

func TestDispatchGeneratorFailureYieldsSentinel(t *testing.T) {
	gen := &stubGenerator{err: errors.New("model unavailable")}
	pool := NewPool(gen, &stubStore{}, nil, "idx", 2)

	outcomes := pool.Dispatch(context.Background(), []retrieval.Document{
		doc("d1", "content", ""),
		doc("d2", "content", "kept"),
	}).Wait(time.Second)

	assert.Equal(t, FailedSummary, outcomes["d1"].Summary)
	assert.Equal(t, StatusFailed, outcomes["d1"].Status)
	assert.True(t, outcomes["d1"].Failed())

	// One document failing never poisons the rest of the batch.
	assert.Equal(t, "kept", outcomes["d2"].Summary)
	assert.False(t, outcomes["d2"].Failed())
}

func TestWaitTimesOutWithSentinel(t *testing.T) {
	gen := &stubGenerator{summary: "late", block: make(chan struct{})}
	defer close(gen.block)

	pool := NewPool(gen, &stubStore{}, nil, "idx", 2)

	outcomes := pool.Dispatch(context.Background(), []retrieval.Document{
		doc("d1", "content", ""),
	}).Wait(50 * time.Millisecond)

	require.Contains(t, outcomes, "d1")
	assert.Equal(t, FailedSummary, outcomes["d1"].Summary)
	assert.Equal(t, StatusTimedOut, outcomes["d1"].Status)
	assert.True(t, outcomes["d1"].Failed())
}

func TestDispatchEmptyBatch(t *testing.T) {
	pool := NewPool(&stubGenerator{}, &stubStore{}, nil, "idx", 2)

	outcomes := pool.Dispatch(context.Background(), nil).Wait(time.Second)

	assert.Empty(t, outcomes)
}

func TestDispatchCancelledContext(t *testing.T) {
	gen := &stubGenerator{summary: "fresh"}
	pool := NewPool(gen, &stubStore{}, nil, "idx", 2)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcomes := pool.Dispatch(ctx, []retrieval.Document{
		doc("d1", "content", ""),
	}).Wait(time.Second)

	assert.Equal(t, FailedSummary, outcomes["d1"].Summary)
	assert.Equal(t, StatusFailed, outcomes["d1"].Status)
}
