package chat

import (
	"encoding/json"
	"fmt"
)

// Wire tags for the line-oriented streaming protocol. Clients match on
// these prefixes inside SSE data lines.
const (
	sessionTag = "[SESSION_ID]"
	traceTag   = "[TRACE_ID]"
	sourceTag  = "[SOURCE]"
	doneTag    = "[DONE]"
)

type EventType int

const (
	EventSessionID EventType = iota
	EventTraceID
	EventSource
	EventChunk
	EventDone
)

// SourceRecord is the JSON payload of a [SOURCE] event. Each document is
// announced twice: provisionally (loading=true, no summary) before the
// answer, and finally (loading=false, resolved summary and confidence)
// after [DONE].
type SourceRecord struct {
	Name        string `json:"name"`
	Summary     string `json:"summary"`
	PageContent string `json:"page_content"`
	URL         string `json:"url"`
	Category    string `json:"category"`
	Confidence  int    `json:"confidence"`
	UpdatedAt   string `json:"updated_at"`
	Loading     bool   `json:"loading"`
	Enhanced    bool   `json:"enhanced,omitempty"`
	Error       bool   `json:"error,omitempty"`
}

// Event is one element of the response stream. All serialization goes
// through Encode; call sites never build protocol strings themselves.
type Event struct {
	Type   EventType
	Text   string
	Source *SourceRecord
}

func SessionEvent(id string) Event {
	return Event{Type: EventSessionID, Text: id}
}

func TraceEvent(id string) Event {
	return Event{Type: EventTraceID, Text: id}
}

func SourceEvent(record SourceRecord) Event {
	return Event{Type: EventSource, Source: &record}
}

func ChunkEvent(text string) Event {
	return Event{Type: EventChunk, Text: text}
}

func DoneEvent() Event {
	return Event{Type: EventDone}
}

// Encode renders the event as one SSE frame: a "data: " prefixed line
// terminated by a blank line.
func (e Event) Encode() (string, error) {
	switch e.Type {
	case EventSessionID:
		return fmt.Sprintf("data: %s %s\n\n", sessionTag, e.Text), nil
	case EventTraceID:
		return fmt.Sprintf("data: %s %s\n\n", traceTag, e.Text), nil
	case EventSource:
		payload, err := json.Marshal(e.Source)
		if err != nil {
			return "", fmt.Errorf("failed to marshal source record: %w", err)
		}
		return fmt.Sprintf("data: %s %s\n\n", sourceTag, payload), nil
	case EventChunk:
		return fmt.Sprintf("data: %s\n\n", e.Text), nil
	case EventDone:
		return fmt.Sprintf("data: %s\n\n", doneTag), nil
	default:
		return "", fmt.Errorf("unknown event type %d", e.Type)
	}
}
