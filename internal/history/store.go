package history

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/docuchat/backend/internal/search/elastic"
	"github.com/docuchat/backend/pkg/logger"
)

const (
	RoleHuman = "human"
	RoleAI    = "ai"
)

// Turn is one utterance in a session. Turns are append-only and never
// edited; position is the append order.
type Turn struct {
	Role    string
	Content string
}

type Indexer interface {
	IndexExists(ctx context.Context, index string) (bool, error)
	CreateIndex(ctx context.Context, index string, mapping map[string]interface{}) error
	Search(ctx context.Context, index string, body map[string]interface{}) (*elastic.SearchResult, error)
	IndexDocument(ctx context.Context, index string, doc map[string]interface{}, waitForRefresh bool) error
}

// Store keeps per-session turn logs in a dedicated index, provisioning the
// schema lazily on first access. Provisioning happens once per store, not
// per session.
type Store struct {
	es    Indexer
	index string

	mu          sync.Mutex
	provisioned bool
}

func NewStore(es Indexer, index string) *Store {
	return &Store{
		es:    es,
		index: index,
	}
}

func (s *Store) Load(ctx context.Context, sessionID string) ([]Turn, error) {
	if err := s.ensureIndex(ctx); err != nil {
		return nil, err
	}

	body := map[string]interface{}{
		"query": map[string]interface{}{
			"term": map[string]interface{}{
				"session_id": sessionID,
			},
		},
		"sort": []interface{}{
			map[string]interface{}{"ord": "asc"},
		},
		"size": 200,
	}

	result, err := s.es.Search(ctx, s.index, body)
	if err != nil {
		return nil, fmt.Errorf("failed to load chat history: %w", err)
	}

	turns := make([]Turn, 0, len(result.Hits.Hits))
	for _, hit := range result.Hits.Hits {
		role, _ := hit.Source["role"].(string)
		content, _ := hit.Source["content"].(string)
		turns = append(turns, Turn{Role: role, Content: content})
	}

	logger.Debug("Chat history loaded",
		zap.String("session_id", sessionID),
		zap.Int("turns", len(turns)),
	)

	return turns, nil
}

func (s *Store) Append(ctx context.Context, sessionID string, turns []Turn) error {
	if err := s.ensureIndex(ctx); err != nil {
		return err
	}

	// ord is the global sort key; turns appended together get consecutive
	// values so human/ai ordering within an exchange is stable.
	base := time.Now().UnixNano()
	createdAt := time.Now().UTC().Format(time.RFC3339)

	for i, turn := range turns {
		doc := map[string]interface{}{
			"session_id": sessionID,
			"role":       turn.Role,
			"content":    turn.Content,
			"ord":        base + int64(i),
			"created_at": createdAt,
		}

		waitForRefresh := i == len(turns)-1
		if err := s.es.IndexDocument(ctx, s.index, doc, waitForRefresh); err != nil {
			return fmt.Errorf("failed to append chat history: %w", err)
		}
	}

	return nil
}

// IndexMapping is the chat history index schema. The provisioning command
// uses it to create the index ahead of time; the store falls back to it on
// first access.
func IndexMapping() map[string]interface{} {
	return map[string]interface{}{
		"mappings": map[string]interface{}{
			"properties": map[string]interface{}{
				"session_id": map[string]interface{}{"type": "keyword"},
				"role":       map[string]interface{}{"type": "keyword"},
				"content":    map[string]interface{}{"type": "text"},
				"ord":        map[string]interface{}{"type": "long"},
				"created_at": map[string]interface{}{"type": "date"},
			},
		},
	}
}

func (s *Store) ensureIndex(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.provisioned {
		return nil
	}

	exists, err := s.es.IndexExists(ctx, s.index)
	if err != nil {
		return fmt.Errorf("failed to check chat history index: %w", err)
	}

	if !exists {
		if err := s.es.CreateIndex(ctx, s.index, IndexMapping()); err != nil {
			return fmt.Errorf("failed to create chat history index: %w", err)
		}
	}

	s.provisioned = true
	return nil
}
