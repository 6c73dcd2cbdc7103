package chat

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docuchat/backend/internal/history"
	"github.com/docuchat/backend/internal/llm"
)

type fakeGenerator struct {
	completeCalls int
	lastPrompt    string
	response      string
	err           error

	stream    llm.CompletionStream
	streamErr error
}

func (f *fakeGenerator) Complete(_ context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	f.completeCalls++
	f.lastPrompt = req.Prompt
	if f.err != nil {
		return nil, f.err
	}
	return &llm.CompletionResponse{Content: f.response}, nil
}

func (f *fakeGenerator) Stream(_ context.Context, _ llm.CompletionRequest) (llm.CompletionStream, error) {
	if f.streamErr != nil {
		return nil, f.streamErr
	}
	return f.stream, nil
}

func TestCondenseSkipsModelWithoutHistory(t *testing.T) {
	gen := &fakeGenerator{response: "should not be used"}
	condenser := NewCondenser(gen)

	got, err := condenser.Condense(context.Background(), "Work at Home Troubleshooting", nil)

	require.NoError(t, err)
	assert.Equal(t, "Work at Home Troubleshooting", got)
	assert.Zero(t, gen.completeCalls)
}

func TestCondenseUsesHistory(t *testing.T) {
	gen := &fakeGenerator{response: "How do I reset the office printer?"}
	condenser := NewCondenser(gen)

	turns := []history.Turn{
		{Role: history.RoleHuman, Content: "Tell me about the office printer"},
		{Role: history.RoleAI, Content: "It is an HP LaserJet on floor 2."},
	}

	got, err := condenser.Condense(context.Background(), "how do I reset it?", turns)

	require.NoError(t, err)
	assert.Equal(t, "How do I reset the office printer?", got)
	assert.Equal(t, 1, gen.completeCalls)
	assert.Contains(t, gen.lastPrompt, "Tell me about the office printer")
	assert.Contains(t, gen.lastPrompt, "It is an HP LaserJet on floor 2.")
	assert.Contains(t, gen.lastPrompt, "Follow Up Question: how do I reset it?")
	assert.Contains(t, gen.lastPrompt, "Standalone question:")
}

func TestCondenseGeneratorFailureIsFatal(t *testing.T) {
	cause := errors.New("model unavailable")
	gen := &fakeGenerator{err: cause}
	condenser := NewCondenser(gen)

	_, err := condenser.Condense(context.Background(), "follow up", []history.Turn{
		{Role: history.RoleHuman, Content: "earlier question"},
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
}
