package anthropic

import (
	"context"
	"fmt"
	"io"

	"github.com/minechat/llmbridge/internal/utils"
	"github.com/minechat/llmbridge/providers/ai"
)

// Stream implements [ai.StreamProvider] for Anthropic's Messages API. It sends
// a streaming request (stream=true) and returns an [ai.ChatStream] that yields
// incremental deltas as SSE events arrive.
//
// Pre-stream errors (missing API key, non-2xx HTTP response, network failure)
// are returned immediately as a non-nil error. Mid-stream errors (the
// Anthropic "error" event, SSE parse failures) are yielded through the
// iterator and terminate it.
func (p *Provider) Stream(ctx context.Context, request ai.ChatRequest) (*ai.ChatStream, error) {
	apiKey := p.resolveKey(request)
	if apiKey == "" {
		return nil, &ai.ProviderError{
			Provider: ai.ProviderAnthropic,
			Kind:     ai.ErrorKindAuth,
			Message:  "ANTHROPIC_API_KEY is not set",
		}
	}

	anthropicReq, err := requestToAnthropic(request)
	if err != nil {
		return nil, ai.ClassifyError(ai.ProviderAnthropic, err)
	}
	anthropicReq.Stream = true

	streamURL := p.baseURL + messagesEndpoint

	// Pass empty apiKey so DoPostStream does not inject a Bearer token;
	// Anthropic authenticates via x-api-key (set inside buildHeaders).
	httpResponse, err := utils.DoPostStream(ctx, p.client, streamURL, "", anthropicReq,
		buildHeaders(apiKey, len(anthropicReq.MCPServers) > 0)...)
	if err != nil {
		return nil, ai.ClassifyError(ai.ProviderAnthropic, err)
	}

	sseScanner := utils.NewSSEScanner(httpResponse.Body)

	// iteratorFunc reads SSE events and converts them to canonical DeltaChunk
	// values. It maintains per-stream state for tool call indexing, usage
	// accumulation, and the finish reason captured from message_delta.
	iteratorFunc := func(yield func(ai.DeltaChunk, error) bool) {
		defer utils.CloseWithLog(httpResponse.Body, streamURL)

		// toolCallCounter is incremented on each content_block_start of type
		// "tool_use"; toolCallCounter-1 is the index of the open block during
		// its input_json_delta events.
		toolCallCounter := 0

		// Token counts are spread across events (message_start carries input
		// tokens, message_delta carries output tokens) so they are accumulated
		// and attached to the terminal done chunk.
		var usage ai.Usage
		sawToolCall := false
		finishReason := ai.FinishStop

		for {
			// Respect context cancellation between SSE reads.
			if ctx.Err() != nil {
				yield(ai.DeltaChunk{Type: ai.ChunkError, Error: ctx.Err().Error()}, ctx.Err())
				return
			}

			payload, sseErr := sseScanner.Next()
			if sseErr == io.EOF {
				// message_stop emits the done chunk and returns on the normal
				// path; reaching EOF first means the stream was cut short.
				truncatedErr := &ai.ProviderError{
					Provider: ai.ProviderAnthropic,
					Kind:     ai.ErrorKindUnavailable,
					Message:  "stream ended before message_stop",
				}
				yield(ai.DeltaChunk{Type: ai.ChunkError, Error: truncatedErr.Message}, truncatedErr)
				return
			}
			if sseErr != nil {
				readErr := fmt.Errorf("SSE read error: %w", sseErr)
				yield(ai.DeltaChunk{Type: ai.ChunkError, Error: readErr.Error()}, readErr)
				return
			}

			event, parseErr := unmarshalStreamEvent(payload)
			if parseErr != nil {
				wrapped := fmt.Errorf("failed to parse stream event: %w", parseErr)
				yield(ai.DeltaChunk{Type: ai.ChunkError, Error: wrapped.Error()}, wrapped)
				return
			}

			switch event.Type {

			case "message_start":
				// Initial usage snapshot: input tokens plus any prompt-cache
				// counters. Output tokens are always 0 here.
				if event.Message != nil {
					usage.PromptTokens = event.Message.Usage.InputTokens
					usage.CachedTokens = event.Message.Usage.CacheCreationInputTokens + event.Message.Usage.CacheReadInputTokens
				}

			case "content_block_start":
				// For tool_use blocks the ID and Name only appear here, not on
				// the subsequent input_json_delta events, so the header chunk
				// goes out immediately.
				if event.ContentBlock == nil {
					continue
				}
				if event.ContentBlock.Type == "tool_use" {
					sawToolCall = true
					if !yield(ai.DeltaChunk{
						Type: ai.ChunkToolCall,
						ToolCall: &ai.ToolCallDelta{
							Index: toolCallCounter,
							ID:    event.ContentBlock.ID,
							Name:  event.ContentBlock.Name,
						},
					}, nil) {
						return
					}
					toolCallCounter++
				}

			case "content_block_delta":
				if event.Delta == nil {
					continue
				}

				switch event.Delta.Type {
				case "text_delta":
					if event.Delta.Text != "" {
						if !yield(ai.DeltaChunk{Type: ai.ChunkText, Text: event.Delta.Text}, nil) {
							return
						}
					}

				case "thinking_delta":
					if event.Delta.Thinking != "" {
						if !yield(ai.DeltaChunk{Type: ai.ChunkReasoning, Reasoning: event.Delta.Thinking}, nil) {
							return
						}
					}

				case "input_json_delta":
					if event.Delta.PartialJSON != "" {
						if !yield(ai.DeltaChunk{
							Type: ai.ChunkToolCall,
							ToolCall: &ai.ToolCallDelta{
								Index:     toolCallCounter - 1,
								Arguments: event.Delta.PartialJSON,
							},
						}, nil) {
							return
						}
					}

				case "citations_delta":
					if event.Delta.Citation != nil {
						if !yield(ai.DeltaChunk{
							Type: ai.ChunkCitation,
							Citation: &ai.Citation{
								Title:      event.Delta.Citation.Title,
								URL:        event.Delta.Citation.URL,
								StartIndex: event.Delta.Citation.StartCharIndex,
								EndIndex:   event.Delta.Citation.EndCharIndex,
							},
						}, nil) {
							return
						}
					}
				}

			case "message_delta":
				// message_delta carries the stop reason and the output token
				// count. Both are held until message_stop.
				if event.Delta != nil && event.Delta.StopReason != "" {
					finishReason = mapStreamStopReason(event.Delta.StopReason, sawToolCall)
				}
				if event.Usage != nil {
					usage.CompletionTokens = event.Usage.OutputTokens
				}

			case "message_stop":
				usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens
				yield(ai.DeltaChunk{Type: ai.ChunkDone, FinishReason: finishReason, Usage: &usage}, nil)
				return

			case "error":
				message := "stream error"
				if event.Error != nil {
					message = event.Error.Message
				}
				streamErr := &ai.ProviderError{
					Provider: ai.ProviderAnthropic,
					Kind:     ai.ErrorKindUnavailable,
					Message:  message,
				}
				yield(ai.DeltaChunk{Type: ai.ChunkError, Error: message}, streamErr)
				return

			case "ping", "content_block_stop":
				// Liveness and bookkeeping events; consumed without forwarding.
			}
		}
	}

	return ai.NewChatStream(iteratorFunc), nil
}

// mapStreamStopReason mirrors mapStopReason for the streaming path, where the
// assembled message is not available; sawToolCall substitutes for inspecting
// the content blocks.
func mapStreamStopReason(stopReason string, sawToolCall bool) ai.FinishReason {
	switch stopReason {
	case "max_tokens":
		return ai.FinishLength
	case "tool_use", "mcp_tool_use":
		return ai.FinishToolCalls
	case "refusal":
		return ai.FinishContentFilter
	default:
		if sawToolCall {
			return ai.FinishToolCalls
		}
		return ai.FinishStop
	}
}
