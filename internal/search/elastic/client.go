package elastic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/elastic/go-elasticsearch/v8"
	"go.uber.org/zap"

	"github.com/docuchat/backend/pkg/config"
	"github.com/docuchat/backend/pkg/logger"
)

// Client is a thin wrapper over the official Elasticsearch client exposing
// the operations the pipeline needs: relevance search, the per-document
// summary field, and index administration for the provisioning command and
// the chat history store.
type Client struct {
	es *elasticsearch.Client
}

type SearchResult struct {
	Hits struct {
		Total struct {
			Value int `json:"value"`
		} `json:"total"`
		Hits []HitEnvelope `json:"hits"`
	} `json:"hits"`
}

type HitEnvelope struct {
	ID     string                 `json:"_id"`
	Score  float64                `json:"_score"`
	Source map[string]interface{} `json:"_source"`
}

func NewClient(cfg config.ElasticsearchConfig) (*Client, error) {
	esCfg := elasticsearch.Config{
		Addresses:     cfg.Addresses,
		CloudID:       cfg.CloudID,
		APIKey:        cfg.APIKey,
		Username:      cfg.Username,
		Password:      cfg.Password,
		MaxRetries:    cfg.MaxRetries,
		RetryOnStatus: []int{429, 502, 503, 504},
	}
	if cfg.CloudID != "" {
		esCfg.Addresses = nil
	}

	es, err := elasticsearch.NewClient(esCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}

	logger.Info("Elasticsearch client initialized",
		zap.Strings("addresses", cfg.Addresses),
		zap.Int("max_retries", cfg.MaxRetries),
	)

	return &Client{es: es}, nil
}

func (c *Client) Search(ctx context.Context, index string, body map[string]interface{}) (*SearchResult, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search body: %w", err)
	}

	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(index),
		c.es.Search.WithBody(bytes.NewReader(payload)),
	)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("search returned status %s: %s", res.Status(), readBody(res.Body))
	}

	var result SearchResult
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	return &result, nil
}

// GetSummary returns the stored summary for a document, or "" when the
// document or the field is absent. Absence is not an error.
func (c *Client) GetSummary(ctx context.Context, index, docID string) (string, error) {
	res, err := c.es.Get(
		index, docID,
		c.es.Get.WithContext(ctx),
		c.es.Get.WithSourceIncludes("summary"),
	)
	if err != nil {
		return "", fmt.Errorf("get request failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == 404 {
		return "", nil
	}
	if res.IsError() {
		return "", fmt.Errorf("get returned status %s", res.Status())
	}

	var doc struct {
		Source struct {
			Summary string `json:"summary"`
		} `json:"_source"`
	}
	if err := json.NewDecoder(res.Body).Decode(&doc); err != nil {
		return "", fmt.Errorf("failed to decode get response: %w", err)
	}

	return doc.Source.Summary, nil
}

// PutSummary persists a generated summary onto the document. Last writer
// wins; summaries are idempotent derivatives of fixed document content.
func (c *Client) PutSummary(ctx context.Context, index, docID, summary string) error {
	body := map[string]interface{}{
		"doc": map[string]interface{}{
			"summary": summary,
		},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal summary update: %w", err)
	}

	res, err := c.es.Update(
		index, docID, bytes.NewReader(payload),
		c.es.Update.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("update request failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("update returned status %s: %s", res.Status(), readBody(res.Body))
	}

	logger.Debug("Summary stored", zap.String("doc_id", docID))
	return nil
}

// ClearSummary removes the summary field so it is regenerated on the next
// search that retrieves the document.
func (c *Client) ClearSummary(ctx context.Context, index, docID string) error {
	body := map[string]interface{}{
		"script": map[string]interface{}{
			"source": "ctx._source.remove('summary')",
			"lang":   "painless",
		},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal summary removal: %w", err)
	}

	res, err := c.es.Update(
		index, docID, bytes.NewReader(payload),
		c.es.Update.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("update request failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("update returned status %s: %s", res.Status(), readBody(res.Body))
	}

	return nil
}

func (c *Client) IndexExists(ctx context.Context, index string) (bool, error) {
	res, err := c.es.Indices.Exists(
		[]string{index},
		c.es.Indices.Exists.WithContext(ctx),
	)
	if err != nil {
		return false, fmt.Errorf("exists request failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == 404 {
		return false, nil
	}
	if res.IsError() {
		return false, fmt.Errorf("exists returned status %s", res.Status())
	}
	return true, nil
}

func (c *Client) CreateIndex(ctx context.Context, index string, mapping map[string]interface{}) error {
	payload, err := json.Marshal(mapping)
	if err != nil {
		return fmt.Errorf("failed to marshal index mapping: %w", err)
	}

	res, err := c.es.Indices.Create(
		index,
		c.es.Indices.Create.WithContext(ctx),
		c.es.Indices.Create.WithBody(bytes.NewReader(payload)),
	)
	if err != nil {
		return fmt.Errorf("create index request failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("create index returned status %s: %s", res.Status(), readBody(res.Body))
	}

	logger.Info("Index created", zap.String("index", index))
	return nil
}

func (c *Client) PutMapping(ctx context.Context, index string, properties map[string]interface{}) error {
	payload, err := json.Marshal(map[string]interface{}{"properties": properties})
	if err != nil {
		return fmt.Errorf("failed to marshal mapping: %w", err)
	}

	res, err := c.es.Indices.PutMapping(
		[]string{index},
		bytes.NewReader(payload),
		c.es.Indices.PutMapping.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("put mapping request failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("put mapping returned status %s: %s", res.Status(), readBody(res.Body))
	}

	logger.Info("Mapping updated", zap.String("index", index))
	return nil
}

// IndexDocument appends a document. With waitForRefresh the document is
// visible to searches before the call returns; the chat history store
// relies on this for read-your-writes.
func (c *Client) IndexDocument(ctx context.Context, index string, doc map[string]interface{}, waitForRefresh bool) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}

	refresh := "false"
	if waitForRefresh {
		refresh = "wait_for"
	}

	res, err := c.es.Index(
		index,
		bytes.NewReader(payload),
		c.es.Index.WithContext(ctx),
		c.es.Index.WithRefresh(refresh),
	)
	if err != nil {
		return fmt.Errorf("index request failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("index returned status %s: %s", res.Status(), readBody(res.Body))
	}

	return nil
}

func readBody(r io.Reader) string {
	b, err := io.ReadAll(io.LimitReader(r, 2048))
	if err != nil {
		return ""
	}
	return string(b)
}
