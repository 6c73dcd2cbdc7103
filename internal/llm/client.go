package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/docuchat/backend/pkg/circuitbreaker"
	"github.com/docuchat/backend/pkg/logger"
	"github.com/docuchat/backend/pkg/retry"
)

// Client wraps the OpenAI chat API behind the two invocation modes the
// pipeline needs: a single completion and a token stream. Retries and the
// circuit breaker live here, not in the orchestration layer.
type Client struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
	timeout     time.Duration
	cb          *circuitbreaker.CircuitBreaker
	retryConfig retry.Config
}

type CompletionRequest struct {
	Prompt      string
	Temperature float32
	MaxTokens   int
}

type CompletionResponse struct {
	Content string
	Usage   Usage
}

type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// CompletionStream is a pull-based token stream. Recv returns io.EOF when
// generation is finished. TraceID identifies the invocation for feedback
// correlation and stays stable for the stream's lifetime.
type CompletionStream interface {
	TraceID() string
	Recv() (string, error)
	Close() error
}

func NewClient(apiKey, model string, temperature float32, maxTokens, timeoutSec int) *Client {
	client := openai.NewClient(apiKey)

	cb := circuitbreaker.NewCircuitBreaker("llm", circuitbreaker.Config{
		MaxRequests:      5,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Logger:           logger.GetLogger(),
	})

	retryConfig := retry.Config{
		MaxAttempts:    3,
		InitialDelay:   500 * time.Millisecond,
		MaxDelay:       5 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.1,
		Logger:         logger.GetLogger(),
	}

	if timeoutSec == 0 {
		timeoutSec = 60
	}

	logger.Info("LLM client initialized", zap.String("model", model))

	return &Client{
		client:      client,
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
		timeout:     time.Duration(timeoutSec) * time.Second,
		cb:          cb,
		retryConfig: retryConfig,
	}
}

func (c *Client) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = c.maxTokens
	}

	var result *CompletionResponse

	err := c.cb.Execute(ctx, func() error {
		return retry.Do(ctx, c.retryConfig, func() error {
			resp, err := c.client.CreateChatCompletion(
				ctx,
				openai.ChatCompletionRequest{
					Model: c.model,
					Messages: []openai.ChatCompletionMessage{
						{
							Role:    openai.ChatMessageRoleUser,
							Content: req.Prompt,
						},
					},
					Temperature: req.Temperature,
					MaxTokens:   maxTokens,
				},
			)

			if err != nil {
				return fmt.Errorf("failed to create completion: %w", err)
			}

			if len(resp.Choices) == 0 {
				return fmt.Errorf("completion returned no choices")
			}

			logger.Debug("LLM completion generated",
				zap.Int("prompt_tokens", resp.Usage.PromptTokens),
				zap.Int("completion_tokens", resp.Usage.CompletionTokens),
			)

			result = &CompletionResponse{
				Content: resp.Choices[0].Message.Content,
				Usage: Usage{
					PromptTokens:     resp.Usage.PromptTokens,
					CompletionTokens: resp.Usage.CompletionTokens,
					TotalTokens:      resp.Usage.TotalTokens,
				},
			}

			return nil
		})
	})

	if err != nil {
		return nil, err
	}

	return result, nil
}

// Stream opens a streaming completion. No retry here: a stream that dies
// midway cannot be transparently restarted without replaying tokens. The
// stream itself carries no deadline; callers that need one wrap ctx.
func (c *Client) Stream(ctx context.Context, req CompletionRequest) (CompletionStream, error) {
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = c.maxTokens
	}

	var stream *openai.ChatCompletionStream

	err := c.cb.Execute(ctx, func() error {
		var err error
		stream, err = c.client.CreateChatCompletionStream(
			ctx,
			openai.ChatCompletionRequest{
				Model: c.model,
				Messages: []openai.ChatCompletionMessage{
					{
						Role:    openai.ChatMessageRoleUser,
						Content: req.Prompt,
					},
				},
				Temperature: req.Temperature,
				MaxTokens:   maxTokens,
				Stream:      true,
			},
		)
		if err != nil {
			return fmt.Errorf("failed to open completion stream: %w", err)
		}
		return nil
	})

	if err != nil {
		return nil, err
	}

	trace := uuid.New().String()
	logger.Debug("LLM stream opened", zap.String("trace_id", trace))

	return &chatCompletionStream{traceID: trace, stream: stream}, nil
}

// Summarize produces the dense ~150-word document summary used for source
// enrichment.
func (c *Client) Summarize(ctx context.Context, content string) (string, error) {
	prompt := fmt.Sprintf(summaryTemplate, content)

	resp, err := c.Complete(ctx, CompletionRequest{
		Prompt:      prompt,
		Temperature: 0.3,
		MaxTokens:   300,
	})

	if err != nil {
		return "", fmt.Errorf("failed to summarize: %w", err)
	}

	logger.Debug("Document summarized", zap.Int("summary_length", len(resp.Content)))

	return resp.Content, nil
}

type chatCompletionStream struct {
	traceID string
	stream  *openai.ChatCompletionStream
}

func (s *chatCompletionStream) TraceID() string {
	return s.traceID
}

func (s *chatCompletionStream) Recv() (string, error) {
	resp, err := s.stream.Recv()
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Delta.Content, nil
}

func (s *chatCompletionStream) Close() error {
	return s.stream.Close()
}
