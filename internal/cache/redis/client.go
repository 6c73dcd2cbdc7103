package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/docuchat/backend/pkg/logger"
)

// Client is a look-aside cache for document summaries, sitting in front of
// the summary field on the index. Misses fall through to the index; the
// durable copy always lives on the document.
type Client struct {
	client *redis.Client
	ttl    time.Duration
}

func NewClient(host string, port int, password string, db int, ttl time.Duration) (*Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	})

	ctx := context.Background()
	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("Redis client initialized", zap.String("addr", fmt.Sprintf("%s:%d", host, port)))

	return &Client{client: client, ttl: ttl}, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

func (c *Client) GetSummary(ctx context.Context, docID string) (string, bool, error) {
	val, err := c.client.Get(ctx, summaryKey(docID)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get cached summary: %w", err)
	}
	return val, true, nil
}

func (c *Client) SetSummary(ctx context.Context, docID, summary string) error {
	if err := c.client.Set(ctx, summaryKey(docID), summary, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache summary: %w", err)
	}
	return nil
}

func summaryKey(docID string) string {
	return fmt.Sprintf("summary:%s", docID)
}
