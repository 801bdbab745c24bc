package ai

import (
	"iter"
	"strings"
)

// ChunkType identifies the kind of delta carried by a DeltaChunk.
type ChunkType string

const (
	// ChunkText indicates a text content delta.
	ChunkText ChunkType = "text"
	// ChunkReasoning indicates a reasoning/thinking content delta.
	ChunkReasoning ChunkType = "reasoning"
	// ChunkToolCall indicates an incremental tool call delta (name or arguments fragment).
	ChunkToolCall ChunkType = "tool_call"
	// ChunkCitation carries a citation attached to already-streamed text.
	ChunkCitation ChunkType = "citation"
	// ChunkDone signals that the stream has finished normally. Exactly one
	// terminal Done or Error chunk is emitted per stream.
	ChunkDone ChunkType = "done"
	// ChunkError signals an error that terminated the stream.
	ChunkError ChunkType = "error"
)

// ToolCallDelta represents an incremental update to a tool call being
// streamed. Index identifies which call is being updated (there may be
// several in one round). ID and Name are only present on the first fragment
// for a given index; later fragments carry only Arguments pieces.
type ToolCallDelta struct {
	Index     int    `json:"index"`
	ID        string `json:"id,omitempty"`
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"` // incremental JSON fragment
}

// DeltaChunk is a single incremental unit of a streamed response. Each chunk
// carries exactly one payload, identified by Type. Chunks are delivered in
// the exact order received from the provider; consumers concatenate Text
// payloads in receipt order to reconstruct the full text.
type DeltaChunk struct {
	Type         ChunkType      `json:"type"`
	Text         string         `json:"text,omitempty"`
	Reasoning    string         `json:"reasoning,omitempty"`
	ToolCall     *ToolCallDelta `json:"tool_call,omitempty"`
	Citation     *Citation      `json:"citation,omitempty"`
	FinishReason FinishReason   `json:"finish_reason,omitempty"` // on ChunkDone
	Usage        *Usage         `json:"usage,omitempty"`         // on ChunkDone, when the provider reported it
	Error        string         `json:"error,omitempty"`         // on ChunkError
}

// ChatStream wraps a streaming iterator and provides accumulation of chunks
// into a final CompletionResult. It supports range-based iteration for
// real-time forwarding and a Collect() convenience for callers who want the
// complete response.
//
// Callers must consume the stream, either by iterating with Iter() (breaking
// out early is fine) or by calling Collect(). The underlying provider may
// hold an open HTTP response body that is only released when the iterator
// completes or is abandoned via a loop break.
type ChatStream struct {
	iterator iter.Seq2[DeltaChunk, error]
}

// NewChatStream creates a ChatStream from a raw iterator. The iterator yields
// DeltaChunk values with a nil error for normal deltas, and may yield a
// non-nil error to signal a mid-stream failure.
func NewChatStream(iterator iter.Seq2[DeltaChunk, error]) *ChatStream {
	return &ChatStream{iterator: iterator}
}

// NewSingleChunkStream wraps a synchronous CompletionResult as a short stream:
// one text chunk carrying the full message text, any tool call and reasoning
// payloads the result held, then a done chunk. This is the fallback used when
// a model does not support streaming, so callers never need to know which
// path was taken.
func NewSingleChunkStream(result *CompletionResult) *ChatStream {
	iteratorFunc := func(yield func(DeltaChunk, error) bool) {
		choice := result.First()
		if choice == nil {
			yield(DeltaChunk{Type: ChunkDone, FinishReason: FinishStop, Usage: result.Usage}, nil)
			return
		}

		if choice.Message.ReasoningText != "" {
			if !yield(DeltaChunk{Type: ChunkReasoning, Reasoning: choice.Message.ReasoningText}, nil) {
				return
			}
		}

		// The full text always goes out as exactly one chunk, even when empty,
		// so the fallback shape is predictable for consumers.
		if !yield(DeltaChunk{Type: ChunkText, Text: choice.Message.Text}, nil) {
			return
		}

		for index, toolCall := range choice.Message.ToolCalls {
			if !yield(DeltaChunk{
				Type: ChunkToolCall,
				ToolCall: &ToolCallDelta{
					Index:     index,
					ID:        toolCall.ID,
					Name:      toolCall.Function.Name,
					Arguments: toolCall.Function.Arguments,
				},
			}, nil) {
				return
			}
		}

		for i := range choice.Message.Citations {
			if !yield(DeltaChunk{Type: ChunkCitation, Citation: &choice.Message.Citations[i]}, nil) {
				return
			}
		}

		yield(DeltaChunk{Type: ChunkDone, FinishReason: choice.FinishReason, Usage: result.Usage}, nil)
	}

	return NewChatStream(iteratorFunc)
}

// Iter returns the underlying iterator for use with range-over-func loops.
//
// Example:
//
//	for chunk, err := range stream.Iter() {
//	    if err != nil { handle error }
//	    fmt.Print(chunk.Text)
//	}
func (stream *ChatStream) Iter() iter.Seq2[DeltaChunk, error] {
	return stream.iterator
}

// Collect consumes the entire stream and returns the accumulated
// CompletionResult. Any mid-stream error terminates collection and returns
// the partial result alongside the error, so text already received is not
// discarded.
func (stream *ChatStream) Collect() (*CompletionResult, error) {
	var text, reasoning strings.Builder
	var citations []Citation
	var usage *Usage
	finishReason := FinishStop
	var builders []*toolCallBuilder

	for chunk, err := range stream.iterator {
		if err != nil {
			return assembleResult(text.String(), reasoning.String(), builders, citations, usage, finishReason), err
		}

		switch chunk.Type {
		case ChunkText:
			text.WriteString(chunk.Text)

		case ChunkReasoning:
			reasoning.WriteString(chunk.Reasoning)

		case ChunkToolCall:
			if chunk.ToolCall != nil {
				builders = accumulateToolCallDelta(builders, chunk.ToolCall)
			}

		case ChunkCitation:
			if chunk.Citation != nil {
				citations = append(citations, *chunk.Citation)
			}

		case ChunkDone:
			finishReason = chunk.FinishReason
			if chunk.Usage != nil {
				usage = chunk.Usage
			}

		case ChunkError:
			// Error chunks are informational; the terminating error arrives
			// through the iterator's error channel.
		}
	}

	return assembleResult(text.String(), reasoning.String(), builders, citations, usage, finishReason), nil
}

func assembleResult(text, reasoning string, builders []*toolCallBuilder, citations []Citation, usage *Usage, finishReason FinishReason) *CompletionResult {
	message := AssistantMessage{
		Role:          RoleAssistant,
		Text:          text,
		ReasoningText: reasoning,
		Citations:     citations,
	}

	for _, builder := range builders {
		message.ToolCalls = append(message.ToolCalls, ToolCall{
			ID:   builder.id,
			Type: "function",
			Function: ToolCallFunction{
				Name:      builder.name,
				Arguments: builder.arguments.String(),
			},
		})
	}

	if len(message.ToolCalls) > 0 && finishReason == FinishStop {
		finishReason = FinishToolCalls
	}

	return &CompletionResult{
		Choices: []Choice{{Index: 0, Message: message, FinishReason: finishReason}},
		Usage:   usage,
	}
}

// toolCallBuilder accumulates incremental tool call deltas into a complete ToolCall.
type toolCallBuilder struct {
	id        string
	name      string
	arguments strings.Builder
}

// accumulateToolCallDelta merges a ToolCallDelta into the running builder
// list, growing it when new indices appear.
func accumulateToolCallDelta(builders []*toolCallBuilder, delta *ToolCallDelta) []*toolCallBuilder {
	for len(builders) <= delta.Index {
		builders = append(builders, &toolCallBuilder{})
	}

	builder := builders[delta.Index]

	if delta.ID != "" {
		builder.id = delta.ID
	}
	if delta.Name != "" {
		builder.name = delta.Name
	}
	if delta.Arguments != "" {
		builder.arguments.WriteString(delta.Arguments)
	}

	return builders
}
