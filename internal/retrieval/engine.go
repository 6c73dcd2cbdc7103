package retrieval

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/docuchat/backend/internal/search/elastic"
	"github.com/docuchat/backend/pkg/logger"
)

// maxResults caps how many documents one question retrieves.
const maxResults = 5

// Relative boost ordering is the contract here: name/title/summary carry the
// highest weight, then phrase > exact (all terms) > stemmed > plain body.
// The absolute values are relevance tuning.
const (
	boostNameField    = 5.0
	boostTitleField   = 5.0
	boostSummaryField = 5.0
	boostPhrase       = 4.0
	boostExact        = 3.0
	boostStem         = 2.0
	boostDescription  = 1.5
	boostBody         = 1.0

	rescoreWindow = 10
)

// Document is one retrieved hit with the fields the streaming protocol
// exposes. Content is resolved through the fallback chain at retrieval time.
type Document struct {
	ID        string
	Score     float64
	Name      string
	Title     string
	URL       string
	Category  string
	UpdatedAt string
	Content   string
	Summary   string
}

// DisplayName prefers the title field over the generic file name.
func (d Document) DisplayName() string {
	if d.Title != "" {
		return d.Title
	}
	if d.Name != "" {
		return d.Name
	}
	return "Unknown"
}

// StoreError marks a relevance store outage or query failure. The caller
// degrades to an apology message instead of crashing the stream.
type StoreError struct {
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("relevance store failure: %v", e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

type Searcher interface {
	Search(ctx context.Context, index string, body map[string]interface{}) (*elastic.SearchResult, error)
}

type Engine struct {
	store Searcher
	index string
}

func NewEngine(store Searcher, index string) *Engine {
	return &Engine{
		store: store,
		index: index,
	}
}

// Retrieve executes the weighted multi-field query and returns at most
// maxResults documents, deduplicated by id (first occurrence wins; the
// store returns hits already sorted by score).
func (e *Engine) Retrieve(ctx context.Context, query string) ([]Document, error) {
	body := buildQuery(query)

	result, err := e.store.Search(ctx, e.index, body)
	if err != nil {
		return nil, &StoreError{Err: err}
	}

	seen := make(map[string]bool, len(result.Hits.Hits))
	docs := make([]Document, 0, maxResults)

	for _, hit := range result.Hits.Hits {
		if seen[hit.ID] {
			continue
		}
		seen[hit.ID] = true

		docs = append(docs, Document{
			ID:        hit.ID,
			Score:     hit.Score,
			Name:      stringField(hit.Source, "name"),
			Title:     stringField(hit.Source, "title"),
			URL:       stringField(hit.Source, "url"),
			Category:  stringField(hit.Source, "category"),
			UpdatedAt: stringField(hit.Source, "updated_at"),
			Content:   contentFor(hit.Source),
			Summary:   stringField(hit.Source, "summary"),
		})

		if len(docs) == maxResults {
			break
		}
	}

	logger.Debug("Documents retrieved",
		zap.String("query", query),
		zap.Int("count", len(docs)),
	)

	return docs, nil
}

func buildQuery(query string) map[string]interface{} {
	return map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must": []interface{}{
					map[string]interface{}{
						"bool": map[string]interface{}{
							"should": []interface{}{
								existsClause("body"),
								existsClause("content"),
								existsClause("description"),
							},
							"minimum_should_match": 1,
						},
					},
				},
				"should": []interface{}{
					map[string]interface{}{
						"match_phrase": map[string]interface{}{
							"body": map[string]interface{}{
								"query": query,
								"boost": boostPhrase,
							},
						},
					},
					matchClause("name", query, boostNameField),
					matchClause("title", query, boostTitleField),
					matchClause("summary", query, boostSummaryField),
					map[string]interface{}{
						"match": map[string]interface{}{
							"body": map[string]interface{}{
								"query":    query,
								"operator": "and",
								"boost":    boostExact,
							},
						},
					},
					matchClause("body.stem", query, boostStem),
					matchClause("description", query, boostDescription),
					matchClause("body", query, boostBody),
				},
				"minimum_should_match": 1,
			},
		},
		"size": maxResults,
		"rescore": map[string]interface{}{
			"window_size": rescoreWindow,
			"query": map[string]interface{}{
				"rescore_query": map[string]interface{}{
					"function_score": map[string]interface{}{
						"functions": []interface{}{
							map[string]interface{}{
								"gauss": map[string]interface{}{
									"updated_at": map[string]interface{}{
										"origin": "now",
										"scale":  "90d",
										"decay":  0.5,
									},
								},
							},
						},
					},
				},
				"query_weight":         1.0,
				"rescore_query_weight": 1.5,
			},
		},
	}
}

func existsClause(field string) map[string]interface{} {
	return map[string]interface{}{
		"exists": map[string]interface{}{
			"field": field,
		},
	}
}

func matchClause(field, query string, boost float64) map[string]interface{} {
	return map[string]interface{}{
		"match": map[string]interface{}{
			field: map[string]interface{}{
				"query": query,
				"boost": boost,
			},
		},
	}
}

// contentFor selects the passage text: primary body, then the alternate
// content field, then description, then the display name as a last resort.
func contentFor(source map[string]interface{}) string {
	for _, field := range []string{"body", "content", "description", "name"} {
		if v := stringField(source, field); v != "" {
			return v
		}
	}
	return ""
}

func stringField(source map[string]interface{}, field string) string {
	if source == nil {
		return ""
	}
	v, ok := source[field].(string)
	if !ok {
		return ""
	}
	return v
}
