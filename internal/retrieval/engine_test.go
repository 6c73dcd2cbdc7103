package retrieval

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docuchat/backend/internal/search/elastic"
)

type fakeSearcher struct {
	result   *elastic.SearchResult
	err      error
	lastBody map[string]interface{}
}

func (f *fakeSearcher) Search(_ context.Context, _ string, body map[string]interface{}) (*elastic.SearchResult, error) {
	f.lastBody = body
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func hit(id string, score float64, source map[string]interface{}) elastic.HitEnvelope {
	return elastic.HitEnvelope{ID: id, Score: score, Source: source}
}

func resultWith(hits ...elastic.HitEnvelope) *elastic.SearchResult {
	r := &elastic.SearchResult{}
	r.Hits.Total.Value = len(hits)
	r.Hits.Hits = hits
	return r
}

func TestRetrieveMapsHits(t *testing.T) {
	store := &fakeSearcher{result: resultWith(
		hit("d1", 12.0, map[string]interface{}{
			"name":       "runbook.md",
			"title":      "Printer Runbook",
			"body":       "Power cycle the printer.",
			"url":        "https://kb.example.com/d1",
			"category":   "hardware",
			"updated_at": "2026-01-10T00:00:00Z",
			"summary":    "How to reset printers.",
		}),
	)}

	engine := NewEngine(store, "search-internal")
	docs, err := engine.Retrieve(context.Background(), "printer reset")

	require.NoError(t, err)
	require.Len(t, docs, 1)

	doc := docs[0]
	assert.Equal(t, "d1", doc.ID)
	assert.Equal(t, 12.0, doc.Score)
	assert.Equal(t, "Printer Runbook", doc.DisplayName())
	assert.Equal(t, "Power cycle the printer.", doc.Content)
	assert.Equal(t, "How to reset printers.", doc.Summary)
	assert.Equal(t, "hardware", doc.Category)
}

func TestRetrieveDeduplicatesKeepingFirst(t *testing.T) {
	store := &fakeSearcher{result: resultWith(
		hit("d1", 9.0, map[string]interface{}{"body": "first copy"}),
		hit("d2", 7.0, map[string]interface{}{"body": "other"}),
		hit("d1", 6.5, map[string]interface{}{"body": "second copy"}),
	)}

	engine := NewEngine(store, "search-internal")
	docs, err := engine.Retrieve(context.Background(), "anything")

	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "d1", docs[0].ID)
	assert.Equal(t, "first copy", docs[0].Content)
	assert.Equal(t, "d2", docs[1].ID)
}

func TestRetrieveCapsResults(t *testing.T) {
	hits := make([]elastic.HitEnvelope, 8)
	for i := range hits {
		hits[i] = hit(fmt.Sprintf("d%d", i), float64(10-i), map[string]interface{}{"body": "text"})
	}

	store := &fakeSearcher{result: resultWith(hits...)}
	engine := NewEngine(store, "search-internal")

	docs, err := engine.Retrieve(context.Background(), "anything")

	require.NoError(t, err)
	assert.Len(t, docs, 5)
}

func TestRetrieveContentFallbackChain(t *testing.T) {
	tests := []struct {
		name   string
		source map[string]interface{}
		want   string
	}{
		{"body wins", map[string]interface{}{"body": "b", "content": "c", "description": "d"}, "b"},
		{"content next", map[string]interface{}{"content": "c", "description": "d"}, "c"},
		{"description next", map[string]interface{}{"description": "d", "name": "n"}, "d"},
		{"name last", map[string]interface{}{"name": "n"}, "n"},
		{"nothing", map[string]interface{}{}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeSearcher{result: resultWith(hit("d1", 1.0, tt.source))}
			engine := NewEngine(store, "search-internal")

			docs, err := engine.Retrieve(context.Background(), "q")

			require.NoError(t, err)
			require.Len(t, docs, 1)
			assert.Equal(t, tt.want, docs[0].Content)
		})
	}
}

func TestRetrieveWrapsStoreFailure(t *testing.T) {
	cause := errors.New("connection refused")
	store := &fakeSearcher{err: cause}
	engine := NewEngine(store, "search-internal")

	_, err := engine.Retrieve(context.Background(), "anything")

	require.Error(t, err)
	var storeErr *StoreError
	require.ErrorAs(t, err, &storeErr)
	assert.ErrorIs(t, err, cause)
}

func TestRetrieveQueryShape(t *testing.T) {
	store := &fakeSearcher{result: resultWith()}
	engine := NewEngine(store, "search-internal")

	_, err := engine.Retrieve(context.Background(), "vpn setup")
	require.NoError(t, err)

	body := store.lastBody
	require.NotNil(t, body)
	assert.Equal(t, maxResults, body["size"])

	boolQuery := body["query"].(map[string]interface{})["bool"].(map[string]interface{})
	assert.Equal(t, 1, boolQuery["minimum_should_match"])

	should := boolQuery["should"].([]interface{})
	require.NotEmpty(t, should)

	phrase := should[0].(map[string]interface{})["match_phrase"].(map[string]interface{})["body"].(map[string]interface{})
	assert.Equal(t, "vpn setup", phrase["query"])
	assert.Equal(t, boostPhrase, phrase["boost"])

	rescore := body["rescore"].(map[string]interface{})
	assert.Equal(t, rescoreWindow, rescore["window_size"])
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "Title", Document{Title: "Title", Name: "name"}.DisplayName())
	assert.Equal(t, "name", Document{Name: "name"}.DisplayName())
	assert.Equal(t, "Unknown", Document{}.DisplayName())
}
