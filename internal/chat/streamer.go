package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/docuchat/backend/internal/enrich"
	"github.com/docuchat/backend/internal/history"
	"github.com/docuchat/backend/internal/llm"
	"github.com/docuchat/backend/internal/metrics"
	"github.com/docuchat/backend/internal/retrieval"
	"github.com/docuchat/backend/pkg/logger"
)

const apologyMessage = "I'm sorry, I wasn't able to search the knowledge base just now. Please try your question again in a moment."

type HistoryStore interface {
	Load(ctx context.Context, sessionID string) ([]history.Turn, error)
	Append(ctx context.Context, sessionID string, turns []history.Turn) error
}

// EmitFunc delivers one event to the client. A returned error means the
// client is gone; the streamer stops and cancels outstanding work.
type EmitFunc func(Event) error

// Streamer sequences one question through the pipeline: history load,
// condensation, retrieval, provisional sources, concurrent answer streaming
// and summary enrichment, final sources, history append.
type Streamer struct {
	history   HistoryStore
	gen       Generator
	condenser *Condenser
	engine    *retrieval.Engine
	pool      *enrich.Pool
	waitLimit time.Duration
}

func NewStreamer(hist HistoryStore, gen Generator, engine *retrieval.Engine, pool *enrich.Pool, waitTimeoutSec int) *Streamer {
	if waitTimeoutSec <= 0 {
		waitTimeoutSec = 30
	}
	return &Streamer{
		history:   hist,
		gen:       gen,
		condenser: NewCondenser(gen),
		engine:    engine,
		pool:      pool,
		waitLimit: time.Duration(waitTimeoutSec) * time.Second,
	}
}

// Ask runs one exchange. Emitted event order is part of the wire contract:
// session id, provisional sources in rank order, trace id, answer chunks,
// done marker, final sources in rank order.
func (s *Streamer) Ask(ctx context.Context, question, sessionID string, emit EmitFunc) error {
	started := time.Now()

	// A failed emit cancels the request context so in-flight enrichment
	// workers stop instead of idling after the client disconnected.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := emit(SessionEvent(sessionID)); err != nil {
		return err
	}

	turns, err := s.history.Load(ctx, sessionID)
	if err != nil {
		metrics.ChatRequestsTotal.WithLabelValues("history_error").Inc()
		return fmt.Errorf("failed to load session history: %w", err)
	}

	condensed, err := s.condenser.Condense(ctx, question, turns)
	if err != nil {
		metrics.ChatRequestsTotal.WithLabelValues("condense_error").Inc()
		return err
	}

	logger.Debug("Question condensed",
		zap.String("session_id", sessionID),
		zap.String("condensed", condensed),
	)

	docs, err := s.engine.Retrieve(ctx, condensed)
	if err != nil {
		var storeErr *retrieval.StoreError
		if errors.As(err, &storeErr) {
			logger.Error("Retrieval failed, degrading",
				zap.String("session_id", sessionID),
				zap.Error(err),
			)
			metrics.ChatRequestsTotal.WithLabelValues("retrieval_error").Inc()
			if err := emit(ChunkEvent(apologyMessage)); err != nil {
				return err
			}
			return emit(DoneEvent())
		}
		return err
	}

	metrics.RetrievedDocuments.Observe(float64(len(docs)))

	confidences := retrieval.ScoreConfidence(relevanceScores(docs))
	for _, c := range confidences {
		metrics.ConfidenceScore.Observe(float64(c))
	}

	for i, doc := range docs {
		if err := emit(SourceEvent(provisionalRecord(doc, confidences[i]))); err != nil {
			return err
		}
	}

	batch := s.pool.Dispatch(ctx, docs)

	stream, err := s.gen.Stream(ctx, llm.CompletionRequest{
		Prompt: renderAnswerPrompt(question, docs, turns),
	})
	if err != nil {
		metrics.ChatRequestsTotal.WithLabelValues("generation_error").Inc()
		return fmt.Errorf("failed to open answer stream: %w", err)
	}
	defer stream.Close()

	if err := emit(TraceEvent(stream.TraceID())); err != nil {
		return err
	}

	var answer strings.Builder
	for {
		token, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			metrics.ChatRequestsTotal.WithLabelValues("generation_error").Inc()
			return fmt.Errorf("answer stream failed: %w", err)
		}
		if token == "" {
			continue
		}

		answer.WriteString(token)

		// The transport is line-oriented; embedded line breaks would split
		// one token across frames.
		if err := emit(ChunkEvent(collapseNewlines(token))); err != nil {
			return err
		}
	}

	if err := emit(DoneEvent()); err != nil {
		return err
	}

	outcomes := batch.Wait(s.waitLimit)

	for i, doc := range docs {
		if err := emit(SourceEvent(finalRecord(doc, confidences[i], outcomes[doc.ID]))); err != nil {
			return err
		}
	}

	err = s.history.Append(ctx, sessionID, []history.Turn{
		{Role: history.RoleHuman, Content: question},
		{Role: history.RoleAI, Content: answer.String()},
	})
	if err != nil {
		metrics.ChatRequestsTotal.WithLabelValues("history_error").Inc()
		return fmt.Errorf("failed to append session history: %w", err)
	}

	metrics.ChatRequestsTotal.WithLabelValues("ok").Inc()
	metrics.StreamDuration.Observe(time.Since(started).Seconds())

	return nil
}

func provisionalRecord(doc retrieval.Document, confidence int) SourceRecord {
	return SourceRecord{
		Name:        doc.DisplayName(),
		Summary:     "",
		PageContent: doc.Content,
		URL:         doc.URL,
		Category:    doc.Category,
		Confidence:  confidence,
		UpdatedAt:   doc.UpdatedAt,
		Loading:     true,
	}
}

func finalRecord(doc retrieval.Document, confidence int, outcome enrich.Outcome) SourceRecord {
	return SourceRecord{
		Name:        doc.DisplayName(),
		Summary:     outcome.Summary,
		PageContent: outcome.Summary,
		URL:         doc.URL,
		Category:    doc.Category,
		Confidence:  confidence,
		UpdatedAt:   doc.UpdatedAt,
		Loading:     false,
		Enhanced:    !outcome.Failed(),
		Error:       outcome.Failed(),
	}
}

func relevanceScores(docs []retrieval.Document) []float64 {
	scores := make([]float64, len(docs))
	for i, doc := range docs {
		scores[i] = doc.Score
	}
	return scores
}

func collapseNewlines(token string) string {
	return strings.ReplaceAll(token, "\n", " ")
}
