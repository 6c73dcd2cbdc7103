package chat

import (
	"context"
	"fmt"

	"github.com/docuchat/backend/internal/history"
	"github.com/docuchat/backend/internal/llm"
)

// Generator is the answer-generation capability the pipeline consumes.
type Generator interface {
	Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error)
	Stream(ctx context.Context, req llm.CompletionRequest) (llm.CompletionStream, error)
}

// Condenser rewrites a follow-up question into a standalone one using the
// session's prior turns.
type Condenser struct {
	gen Generator
}

func NewCondenser(gen Generator) *Condenser {
	return &Condenser{gen: gen}
}

// Condense returns the question unchanged without a model call when there
// is no history. Generator failure is fatal for the request.
func (c *Condenser) Condense(ctx context.Context, question string, turns []history.Turn) (string, error) {
	if len(turns) == 0 {
		return question, nil
	}

	resp, err := c.gen.Complete(ctx, llm.CompletionRequest{
		Prompt: renderCondensePrompt(question, turns),
	})
	if err != nil {
		return "", fmt.Errorf("question condensation failed: %w", err)
	}

	return resp.Content, nil
}
