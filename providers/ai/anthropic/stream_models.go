package anthropic

import (
	"encoding/json"
	"fmt"
)

/*
	ANTHROPIC SSE STREAMING - WIRE TYPES

	Anthropic streaming uses SSE with "event:" lines to identify event types,
	followed by "data:" lines containing JSON payloads. The SSEScanner only
	processes "data:" lines, so the "type" field inside the JSON payload
	discriminates events.

	Event lifecycle:
	  message_start → content_block_start → content_block_delta → content_block_stop →
	  message_delta → message_stop
*/

// anthropicStreamEvent is the top-level envelope for all Anthropic SSE events.
// The Type field discriminates which optional fields are populated.
type anthropicStreamEvent struct {
	Type         string                `json:"type"`                    // Event discriminator
	Message      *anthropicResponse    `json:"message,omitempty"`       // For "message_start"
	Index        int                   `json:"index,omitempty"`         // For content_block_start/delta/stop
	ContentBlock *responseContentBlock `json:"content_block,omitempty"` // For "content_block_start"
	Delta        *streamDelta          `json:"delta,omitempty"`         // For "content_block_delta" and "message_delta"
	Usage        *anthropicUsage       `json:"usage,omitempty"`         // For "message_delta"
	Error        *anthropicStreamError `json:"error,omitempty"`         // For "error" events
}

// streamDelta carries incremental content within a content_block_delta or
// message_delta event. The Type field discriminates the kind of delta:
//   - "text_delta": Text is populated
//   - "thinking_delta": Thinking is populated
//   - "input_json_delta": PartialJSON is populated (tool call arguments)
//   - "citations_delta": Citation is populated
//   - (no type on message_delta): StopReason is populated
type streamDelta struct {
	Type        string            `json:"type,omitempty"`
	Text        string            `json:"text,omitempty"`
	Thinking    string            `json:"thinking,omitempty"`
	PartialJSON string            `json:"partial_json,omitempty"`
	Citation    *responseCitation `json:"citation,omitempty"`
	StopReason  string            `json:"stop_reason,omitempty"`
}

// anthropicStreamError represents an error event in the Anthropic SSE stream.
type anthropicStreamError struct {
	Type    string `json:"type"`    // e.g. "overloaded_error", "api_error"
	Message string `json:"message"` // Human-readable error description
}

// unmarshalStreamEvent parses a JSON payload string into an
// anthropicStreamEvent. Returns an error if the JSON is invalid or the type
// field is missing.
func unmarshalStreamEvent(payload string) (*anthropicStreamEvent, error) {
	var event anthropicStreamEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		return nil, err
	}
	if event.Type == "" {
		return nil, fmt.Errorf("missing type field in stream event")
	}
	return &event, nil
}
