package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/minechat/llmbridge/internal/utils"
	"github.com/minechat/llmbridge/providers/ai"
)

// chatStreamChunk is one Chat Completions SSE payload. Streams terminate with
// a literal [DONE] sentinel, which the SSE scanner surfaces as io.EOF.
type chatStreamChunk struct {
	ID      string             `json:"id"`
	Model   string             `json:"model"`
	Choices []chatStreamChoice `json:"choices"`
	Usage   *chatUsage         `json:"usage,omitempty"`
}

type chatStreamChoice struct {
	Index        int             `json:"index"`
	Delta        chatStreamDelta `json:"delta"`
	FinishReason string          `json:"finish_reason"`
}

type chatStreamDelta struct {
	Content   string              `json:"content,omitempty"`
	ToolCalls []chatToolCallDelta `json:"tool_calls,omitempty"`
}

// chatToolCallDelta is an incremental tool call fragment. ID and the function
// name appear only on the first fragment for a given index.
type chatToolCallDelta struct {
	Index    int    `json:"index"`
	ID       string `json:"id,omitempty"`
	Function struct {
		Name      string `json:"name,omitempty"`
		Arguments string `json:"arguments,omitempty"`
	} `json:"function"`
}

// Stream implements [ai.StreamProvider] over the Chat Completions API. The
// delta format maps almost directly onto canonical chunks; usage arrives on a
// final chunk with empty choices because stream_options.include_usage is set.
func (p *ChatProvider) Stream(ctx context.Context, request ai.ChatRequest) (*ai.ChatStream, error) {
	apiKey := p.resolveKey(request)
	if apiKey == "" {
		return nil, p.missingKeyError()
	}

	chatReq, err := requestToChat(request, p.reduced)
	if err != nil {
		return nil, ai.ClassifyError(p.id, err)
	}
	chatReq.Stream = true
	chatReq.StreamOptions = &streamOptions{IncludeUsage: true}

	streamURL := p.baseURL + chatCompletionsEndpoint

	httpResponse, err := utils.DoPostStream(ctx, p.client, streamURL, apiKey, chatReq)
	if err != nil {
		return nil, ai.ClassifyError(p.id, err)
	}

	sseScanner := utils.NewSSEScanner(httpResponse.Body)

	iteratorFunc := func(yield func(ai.DeltaChunk, error) bool) {
		defer utils.CloseWithLog(httpResponse.Body, streamURL)

		finishReason := ai.FinishStop
		sawToolCall := false
		var usage *ai.Usage

		for {
			if ctx.Err() != nil {
				yield(ai.DeltaChunk{Type: ai.ChunkError, Error: ctx.Err().Error()}, ctx.Err())
				return
			}

			payload, sseErr := sseScanner.Next()
			if sseErr == io.EOF {
				if sawToolCall && finishReason == ai.FinishStop {
					finishReason = ai.FinishToolCalls
				}
				yield(ai.DeltaChunk{Type: ai.ChunkDone, FinishReason: finishReason, Usage: usage}, nil)
				return
			}
			if sseErr != nil {
				readErr := fmt.Errorf("SSE read error: %w", sseErr)
				yield(ai.DeltaChunk{Type: ai.ChunkError, Error: readErr.Error()}, readErr)
				return
			}

			var chunk chatStreamChunk
			if parseErr := json.Unmarshal([]byte(payload), &chunk); parseErr != nil {
				wrapped := fmt.Errorf("failed to parse streaming chunk: %w", parseErr)
				yield(ai.DeltaChunk{Type: ai.ChunkError, Error: wrapped.Error()}, wrapped)
				return
			}

			if chunk.Usage != nil {
				usage = &ai.Usage{
					PromptTokens:     chunk.Usage.PromptTokens,
					CompletionTokens: chunk.Usage.CompletionTokens,
					TotalTokens:      chunk.Usage.TotalTokens,
				}
			}

			if len(chunk.Choices) == 0 {
				continue
			}
			choice := chunk.Choices[0]

			if choice.FinishReason != "" {
				finishReason = mapChatFinishReason(choice.FinishReason, sawToolCall)
			}

			if choice.Delta.Content != "" {
				if !yield(ai.DeltaChunk{Type: ai.ChunkText, Text: choice.Delta.Content}, nil) {
					return
				}
			}

			for _, toolDelta := range choice.Delta.ToolCalls {
				sawToolCall = true
				if !yield(ai.DeltaChunk{
					Type: ai.ChunkToolCall,
					ToolCall: &ai.ToolCallDelta{
						Index:     toolDelta.Index,
						ID:        toolDelta.ID,
						Name:      toolDelta.Function.Name,
						Arguments: toolDelta.Function.Arguments,
					},
				}, nil) {
					return
				}
			}
		}
	}

	return ai.NewChatStream(iteratorFunc), nil
}
