package feedback

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/docuchat/backend/pkg/logger"
)

// Forwarder relays answer feedback to an external analytics service.
// Forwarding is best-effort: failures are logged and never surfaced to the
// caller's response.
type Forwarder struct {
	analyticsURL string
	httpClient   *http.Client
}

type vote struct {
	TraceID string `json:"trace_id"`
	Value   int    `json:"value"`
}

func NewForwarder(analyticsURL string, timeoutSec int) *Forwarder {
	if timeoutSec <= 0 {
		timeoutSec = 5
	}
	return &Forwarder{
		analyticsURL: analyticsURL,
		httpClient: &http.Client{
			Timeout: time.Duration(timeoutSec) * time.Second,
		},
	}
}

func (f *Forwarder) Forward(ctx context.Context, traceID string, value int) error {
	if f.analyticsURL == "" {
		return nil
	}

	payload, err := json.Marshal(vote{TraceID: traceID, Value: value})
	if err != nil {
		return fmt.Errorf("failed to marshal feedback: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.analyticsURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build feedback request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to forward feedback: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("feedback forwarding returned status %d", resp.StatusCode)
	}

	logger.Debug("Feedback forwarded", zap.String("trace_id", traceID), zap.Int("value", value))
	return nil
}
