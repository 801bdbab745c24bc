package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/minechat/llmbridge/internal/utils"
	"github.com/minechat/llmbridge/providers/ai"
)

// Stream implements [ai.StreamProvider] using the streamGenerateContent
// endpoint with alt=sse.
//
// Each Gemini SSE event carries a generateContentResponse whose parts hold
// only the new text since the previous event, so every part is forwarded
// directly as a delta.
func (p *Provider) Stream(ctx context.Context, request ai.ChatRequest) (*ai.ChatStream, error) {
	apiKey := p.resolveKey(request)
	if apiKey == "" {
		return nil, &ai.ProviderError{
			Provider: ai.ProviderGoogle,
			Kind:     ai.ErrorKindAuth,
			Message:  "GEMINI_API_KEY is not set",
		}
	}

	streamURL := fmt.Sprintf("%s/models/%s:streamGenerateContent?alt=sse", p.baseURL, request.Model)

	geminiReq := requestToGemini(request)

	httpResponse, err := utils.DoPostStream(
		ctx,
		p.client,
		streamURL,
		"",
		geminiReq,
		utils.HeaderOption{Key: "x-goog-api-key", Value: apiKey},
	)
	if err != nil {
		return nil, ai.ClassifyError(ai.ProviderGoogle, err)
	}

	sseScanner := utils.NewSSEScanner(httpResponse.Body)

	iteratorFunc := func(yield func(ai.DeltaChunk, error) bool) {
		defer utils.CloseWithLog(httpResponse.Body, streamURL)

		toolCallIndex := 0

		finishReason := ai.FinishStop
		var usage ai.Usage
		sawToolCall := false

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
				yield(ai.DeltaChunk{Type: ai.ChunkDone, FinishReason: finishReason, Usage: &usage}, nil)
				return
			}
			if sseErr != nil {
				readErr := fmt.Errorf("SSE read error: %w", sseErr)
				yield(ai.DeltaChunk{Type: ai.ChunkError, Error: readErr.Error()}, readErr)
				return
			}

			var chunk generateContentResponse
			if parseErr := json.Unmarshal([]byte(payload), &chunk); parseErr != nil {
				wrapped := fmt.Errorf("failed to parse streaming chunk: %w", parseErr)
				yield(ai.DeltaChunk{Type: ai.ChunkError, Error: wrapped.Error()}, wrapped)
				return
			}

			if chunk.UsageMetadata != nil {
				usage.PromptTokens = chunk.UsageMetadata.PromptTokenCount
				usage.CompletionTokens = chunk.UsageMetadata.CandidatesTokenCount
				usage.TotalTokens = chunk.UsageMetadata.TotalTokenCount
				usage.ReasoningTokens = chunk.UsageMetadata.ThoughtsTokenCount
			}

			if len(chunk.Candidates) == 0 {
				continue
			}
			candidate := chunk.Candidates[0]

			if candidate.FinishReason != "" {
				finishReason = mapFinishReason(candidate.FinishReason)
			}
			if candidate.Content == nil {
				continue
			}

			for _, candidatePart := range candidate.Content.Parts {
				if candidatePart.Text != "" {
					if candidatePart.Thought {
						if !yield(ai.DeltaChunk{Type: ai.ChunkReasoning, Reasoning: candidatePart.Text}, nil) {
							return
						}
					} else {
						if !yield(ai.DeltaChunk{Type: ai.ChunkText, Text: candidatePart.Text}, nil) {
							return
						}
					}
				}

				// Function calls arrive whole, not incrementally; each one is
				// forwarded as a single complete delta.
				if candidatePart.FunctionCall != nil {
					sawToolCall = true
					if !yield(ai.DeltaChunk{
						Type: ai.ChunkToolCall,
						ToolCall: &ai.ToolCallDelta{
							Index:     toolCallIndex,
							ID:        fmt.Sprintf("call_%d", toolCallIndex),
							Name:      candidatePart.FunctionCall.Name,
							Arguments: string(candidatePart.FunctionCall.Args),
						},
					}, nil) {
						return
					}
					toolCallIndex++
				}
			}
		}
	}

	return ai.NewChatStream(iteratorFunc), nil
}
