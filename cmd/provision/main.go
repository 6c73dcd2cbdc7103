package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/docuchat/backend/internal/history"
	"github.com/docuchat/backend/internal/search/elastic"
	"github.com/docuchat/backend/pkg/config"
	appLogger "github.com/docuchat/backend/pkg/logger"
)

// provision prepares the Elasticsearch indices the server expects: the
// document index with stemmed subfields for relevance search, and the chat
// history index. With -clear-summaries it instead strips stored summaries so
// they are regenerated on the next retrieval.
func main() {
	clearSummaries := flag.Bool("clear-summaries", false, "remove stored summaries instead of provisioning")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	err = appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	esClient, err := elastic.NewClient(cfg.Elasticsearch)
	if err != nil {
		appLogger.Fatal("Failed to create Elasticsearch client", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if *clearSummaries {
		if err := runClearSummaries(ctx, esClient, cfg.Elasticsearch.Index); err != nil {
			appLogger.Fatal("Failed to clear summaries", zap.Error(err))
		}
		return
	}

	if err := runProvision(ctx, esClient, cfg.Elasticsearch.Index, cfg.Elasticsearch.ChatHistoryIndex); err != nil {
		appLogger.Fatal("Provisioning failed", zap.Error(err))
	}

	appLogger.Info("Provisioning complete")
}

func runProvision(ctx context.Context, es *elastic.Client, docIndex, historyIndex string) error {
	exists, err := es.IndexExists(ctx, docIndex)
	if err != nil {
		return err
	}

	if !exists {
		if err := es.CreateIndex(ctx, docIndex, documentIndexMapping()); err != nil {
			return err
		}
	} else {
		// Live indices predate the summary workflow; make sure the field is
		// mapped before the server starts writing it.
		if err := es.PutMapping(ctx, docIndex, summaryProperties()); err != nil {
			return err
		}
	}

	historyExists, err := es.IndexExists(ctx, historyIndex)
	if err != nil {
		return err
	}
	if !historyExists {
		if err := es.CreateIndex(ctx, historyIndex, history.IndexMapping()); err != nil {
			return err
		}
	}

	return nil
}

func runClearSummaries(ctx context.Context, es *elastic.Client, index string) error {
	body := map[string]interface{}{
		"query": map[string]interface{}{
			"exists": map[string]interface{}{
				"field": "summary",
			},
		},
		"size":    500,
		"_source": false,
	}

	result, err := es.Search(ctx, index, body)
	if err != nil {
		return err
	}

	cleared := 0
	for _, hit := range result.Hits.Hits {
		if err := es.ClearSummary(ctx, index, hit.ID); err != nil {
			appLogger.Warn("Failed to clear summary",
				zap.String("doc_id", hit.ID),
				zap.Error(err),
			)
			continue
		}
		cleared++
	}

	appLogger.Info("Summaries cleared",
		zap.Int("cleared", cleared),
		zap.Int("matched", result.Hits.Total.Value),
	)
	return nil
}

func documentIndexMapping() map[string]interface{} {
	return map[string]interface{}{
		"mappings": map[string]interface{}{
			"properties": map[string]interface{}{
				"name": map[string]interface{}{
					"type": "text",
					"fields": map[string]interface{}{
						"keyword": map[string]interface{}{"type": "keyword", "ignore_above": 2048},
					},
				},
				"title": map[string]interface{}{"type": "text"},
				"body": map[string]interface{}{
					"type": "text",
					"fields": map[string]interface{}{
						"stem": map[string]interface{}{"type": "text", "analyzer": "english"},
					},
				},
				"content":     map[string]interface{}{"type": "text"},
				"description": map[string]interface{}{"type": "text"},
				"summary":     map[string]interface{}{"type": "text"},
				"url":         map[string]interface{}{"type": "keyword"},
				"category":    map[string]interface{}{"type": "keyword"},
				"updated_at":  map[string]interface{}{"type": "date"},
			},
		},
	}
}

func summaryProperties() map[string]interface{} {
	return map[string]interface{}{
		"summary": map[string]interface{}{"type": "text"},
	}
}
