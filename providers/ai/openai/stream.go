package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/minechat/llmbridge/internal/utils"
	"github.com/minechat/llmbridge/providers/ai"
)

// responsesStreamEvent is the envelope for Responses API SSE payloads. The
// Type field names the event; only the fields relevant to that type are set.
type responsesStreamEvent struct {
	Type        string                  `json:"type"`
	Delta       string                  `json:"delta,omitempty"`
	OutputIndex int                     `json:"output_index,omitempty"`
	Item        *outputItem             `json:"item,omitempty"`
	Annotation  *annotation             `json:"annotation,omitempty"`
	Response    *responseCreateResponse `json:"response,omitempty"`
	Message     string                  `json:"message,omitempty"`
	Code        string                  `json:"code,omitempty"`
}

// Stream implements [ai.StreamProvider] using the Responses API with
// stream=true.
//
// The API emits typed events rather than bare deltas. Text, reasoning summary,
// and function-call-argument deltas map one-to-one onto canonical chunks.
// Function call headers (id and name) arrive in response.output_item.added
// before any argument fragments; the translator assigns tool call indices in
// arrival order and keys argument fragments by output index. Lifecycle and
// progress events carry nothing caller-visible and are consumed silently.
func (p *ResponsesProvider) Stream(ctx context.Context, request ai.ChatRequest) (*ai.ChatStream, error) {
	apiKey := p.resolveKey(request)
	if apiKey == "" {
		return nil, &ai.ProviderError{
			Provider: ai.ProviderOpenAI,
			Kind:     ai.ErrorKindAuth,
			Message:  "OPENAI_API_KEY is not set",
		}
	}

	openaiReq := requestToResponses(request)
	openaiReq.Stream = true

	streamURL := p.baseURL + responsesEndpoint

	httpResponse, err := utils.DoPostStream(ctx, p.client, streamURL, apiKey, openaiReq)
	if err != nil {
		return nil, ai.ClassifyError(ai.ProviderOpenAI, err)
	}

	sseScanner := utils.NewSSEScanner(httpResponse.Body)

	iteratorFunc := func(yield func(ai.DeltaChunk, error) bool) {
		defer utils.CloseWithLog(httpResponse.Body, streamURL)

		// Maps a Responses output index to the canonical tool call index, since
		// message and reasoning items interleave with function calls.
		toolIndexByOutput := map[int]int{}
		nextToolIndex := 0

		for {
			if ctx.Err() != nil {
				yield(ai.DeltaChunk{Type: ai.ChunkError, Error: ctx.Err().Error()}, ctx.Err())
				return
			}

			payload, sseErr := sseScanner.Next()
			if sseErr == io.EOF {
				// Normal termination goes through response.completed; an EOF
				// without it means the stream was cut short.
				truncated := fmt.Errorf("stream ended before response.completed")
				yield(ai.DeltaChunk{Type: ai.ChunkError, Error: truncated.Error()}, truncated)
				return
			}
			if sseErr != nil {
				readErr := fmt.Errorf("SSE read error: %w", sseErr)
				yield(ai.DeltaChunk{Type: ai.ChunkError, Error: readErr.Error()}, readErr)
				return
			}

			var event responsesStreamEvent
			if parseErr := json.Unmarshal([]byte(payload), &event); parseErr != nil {
				wrapped := fmt.Errorf("failed to parse streaming event: %w", parseErr)
				yield(ai.DeltaChunk{Type: ai.ChunkError, Error: wrapped.Error()}, wrapped)
				return
			}

			switch event.Type {
			case "response.output_text.delta":
				if !yield(ai.DeltaChunk{Type: ai.ChunkText, Text: event.Delta}, nil) {
					return
				}

			case "response.reasoning_summary_text.delta":
				if !yield(ai.DeltaChunk{Type: ai.ChunkReasoning, Reasoning: event.Delta}, nil) {
					return
				}

			case "response.output_item.added":
				if event.Item == nil || event.Item.Type != "function_call" {
					continue
				}
				toolIndex := nextToolIndex
				nextToolIndex++
				toolIndexByOutput[event.OutputIndex] = toolIndex
				if !yield(ai.DeltaChunk{
					Type: ai.ChunkToolCall,
					ToolCall: &ai.ToolCallDelta{
						Index: toolIndex,
						ID:    event.Item.CallID,
						Name:  event.Item.Name,
					},
				}, nil) {
					return
				}

			case "response.function_call_arguments.delta":
				toolIndex, known := toolIndexByOutput[event.OutputIndex]
				if !known {
					// Arguments without a preceding header; start a fresh call
					// so the fragment is not lost.
					toolIndex = nextToolIndex
					nextToolIndex++
					toolIndexByOutput[event.OutputIndex] = toolIndex
				}
				if !yield(ai.DeltaChunk{
					Type:     ai.ChunkToolCall,
					ToolCall: &ai.ToolCallDelta{Index: toolIndex, Arguments: event.Delta},
				}, nil) {
					return
				}

			case "response.output_text.annotation.added":
				if event.Annotation == nil || event.Annotation.Type != "url_citation" {
					continue
				}
				if !yield(ai.DeltaChunk{
					Type: ai.ChunkCitation,
					Citation: &ai.Citation{
						Title:      event.Annotation.Title,
						URL:        event.Annotation.URL,
						StartIndex: event.Annotation.StartIndex,
						EndIndex:   event.Annotation.EndIndex,
					},
				}, nil) {
					return
				}

			case "response.completed":
				done := ai.DeltaChunk{Type: ai.ChunkDone, FinishReason: ai.FinishStop}
				if event.Response != nil {
					final := responsesToResult(*event.Response)
					if choice := final.First(); choice != nil {
						done.FinishReason = choice.FinishReason
					}
					done.Usage = final.Usage
				}
				yield(done, nil)
				return

			case "response.failed", "error":
				message := event.Message
				if message == "" && event.Response != nil && event.Response.Error != nil {
					message = event.Response.Error.Message
				}
				if message == "" {
					message = "response failed"
				}
				streamErr := &ai.ProviderError{
					Provider: ai.ProviderOpenAI,
					Kind:     ai.ErrorKindUnavailable,
					Message:  message,
				}
				yield(ai.DeltaChunk{Type: ai.ChunkError, Error: streamErr.Message}, streamErr)
				return

			default:
				// Lifecycle and progress events (response.created,
				// response.in_progress, response.output_item.done,
				// response.content_part.*, response.*.done) carry no deltas.
			}
		}
	}

	return ai.NewChatStream(iteratorFunc), nil
}
