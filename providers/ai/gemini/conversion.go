package gemini

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/minechat/llmbridge/core/modelcaps"
	"github.com/minechat/llmbridge/internal/utils"
	"github.com/minechat/llmbridge/providers/ai"
)

// requestToGemini converts an ai.ChatRequest to the Gemini wire format.
// System messages are hoisted to systemInstruction; the rest map onto
// user/model contents in order.
func requestToGemini(request ai.ChatRequest) generateContentRequest {
	req := generateContentRequest{}

	var systemParts []part
	var conversational []ai.Message
	for _, msg := range request.Messages {
		if msg.Role == ai.RoleSystem {
			if msg.Text != "" {
				systemParts = append(systemParts, part{Text: msg.Text})
			}
			continue
		}
		conversational = append(conversational, msg)
	}
	if len(systemParts) > 0 {
		req.SystemInstruction = &systemInstruction{Parts: systemParts}
	}

	req.Contents = buildContents(conversational)
	req.GenerationConfig = buildGenerationConfig(request.Options, request.Model)
	req.Tools = buildTools(request.Tools)

	return req
}

// buildContents converts canonical messages into Gemini content blocks.
// Gemini has no tool role; tool results become user-role functionResponse parts.
func buildContents(messages []ai.Message) []content {
	var contents []content

	for _, msg := range messages {
		switch msg.Role {
		case ai.RoleUser:
			contents = append(contents, content{Role: "user", Parts: userParts(msg)})

		case ai.RoleAssistant:
			block := content{Role: "model"}
			if msg.Text != "" {
				block.Parts = append(block.Parts, part{Text: msg.Text})
			}
			for _, toolCall := range msg.ToolCalls {
				block.Parts = append(block.Parts, part{
					FunctionCall: &functionCall{
						Name: toolCall.Function.Name,
						Args: argumentsToJSON(toolCall.Function.Arguments),
					},
				})
			}
			if len(block.Parts) > 0 {
				contents = append(contents, block)
			}

		case ai.RoleTool:
			block := content{Role: "user"}
			for _, result := range msg.ToolResults {
				block.Parts = append(block.Parts, part{
					FunctionResponse: &functionResponse{
						Name:     result.Name,
						Response: toolResultToJSON(result),
					},
				})
			}
			if len(block.Parts) > 0 {
				contents = append(contents, block)
			}
		}
	}

	return contents
}

// userParts builds the part list for a user turn: text, then inline images,
// then direct-mode files as inline data. Other file modes are excluded from
// the message body.
func userParts(msg ai.Message) []part {
	var parts []part

	if msg.Text != "" || (len(msg.Images) == 0 && len(msg.Files) == 0) {
		parts = append(parts, part{Text: msg.Text})
	}

	for _, image := range msg.Images {
		parts = append(parts, part{
			InlineData: &inlineData{MimeType: image.MimeType, Data: image.Data},
		})
	}

	for _, file := range msg.Files {
		if file.Mode != ai.FileModeDirect {
			continue
		}
		parts = append(parts, part{
			FileData: &fileData{MimeType: file.MimeType, FileURI: file.Handle},
		})
	}

	return parts
}

// argumentsToJSON converts a tool call argument string into a JSON object.
func argumentsToJSON(arguments string) json.RawMessage {
	trimmed := strings.TrimSpace(arguments)
	if trimmed == "" || !json.Valid([]byte(trimmed)) {
		return json.RawMessage(`{}`)
	}
	return json.RawMessage(trimmed)
}

// toolResultToJSON wraps a tool result for the functionResponse part. Gemini
// expects a JSON object; plain strings are wrapped under a content key.
func toolResultToJSON(result ai.ToolResult) json.RawMessage {
	payload := map[string]string{"content": result.Content}
	if result.IsError {
		payload["error"] = result.Content
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return json.RawMessage(`{}`)
	}
	return encoded
}

// buildGenerationConfig maps canonical options onto Gemini generation
// parameters, including the numeric thinking budget derived from the
// reasoning effort table.
func buildGenerationConfig(options ai.Options, model string) *generationConfig {
	cfg := &generationConfig{}

	maxTokens := modelcaps.DefaultMaxOutputTokens
	if options.MaxOutputTokens > 0 {
		maxTokens = options.MaxOutputTokens
	}
	cfg.MaxOutputTokens = utils.Ptr(maxTokens)

	if options.Temperature != nil {
		cfg.Temperature = options.Temperature
	} else if !modelcaps.FixedTemperature(model) {
		cfg.Temperature = utils.Ptr(modelcaps.DefaultTemperature)
	}

	if options.ThinkingEnabled {
		cfg.ThinkingConfig = &thinkingConfig{
			ThinkingBudget:  utils.Ptr(modelcaps.GeminiThinkingBudget(options.ReasoningEffort)),
			IncludeThoughts: options.ReasoningSummary != ai.SummaryHidden,
		}
	}

	return cfg
}

// buildTools maps canonical descriptors onto Gemini tool entries. Function
// declarations are collected into a single entry; web search and code
// execution map to their built-in tools. Retrieval, remote servers, and image
// generation have no Gemini equivalent here and are omitted.
func buildTools(descriptors []ai.ToolDescriptor) []tool {
	var tools []tool
	var declarations []functionDeclaration

	for _, descriptor := range descriptors {
		switch descriptor.Kind {
		case ai.ToolKindFunction:
			declaration := functionDeclaration{
				Name:        descriptor.Function.Name,
				Description: descriptor.Function.Description,
			}
			if descriptor.Function.Parameters != nil {
				if schemaBytes, err := json.Marshal(descriptor.Function.Parameters); err == nil {
					declaration.Parameters = schemaBytes
				}
			}
			declarations = append(declarations, declaration)

		case ai.ToolKindWebSearch:
			tools = append(tools, tool{GoogleSearch: &googleSearchTool{}})

		case ai.ToolKindCodeExecution:
			tools = append(tools, tool{CodeExecution: &codeExecutionTool{}})
		}
	}

	if len(declarations) > 0 {
		tools = append(tools, tool{FunctionDeclarations: declarations})
	}

	return tools
}

// responseToResult converts a generateContentResponse to the canonical
// CompletionResult. Only the first candidate is mapped; Gemini returns one in
// practice.
func responseToResult(response generateContentResponse) *ai.CompletionResult {
	result := &ai.CompletionResult{
		ID:       response.ResponseID,
		Model:    response.ModelVersion,
		Provider: ai.ProviderGoogle,
		// Gemini does not report usage reliably; zero values instead of failing.
		Usage: &ai.Usage{},
	}

	if response.UsageMetadata != nil {
		result.Usage.PromptTokens = response.UsageMetadata.PromptTokenCount
		result.Usage.CompletionTokens = response.UsageMetadata.CandidatesTokenCount
		result.Usage.TotalTokens = response.UsageMetadata.TotalTokenCount
		result.Usage.ReasoningTokens = response.UsageMetadata.ThoughtsTokenCount
	}

	message := ai.AssistantMessage{Role: ai.RoleAssistant}
	finishReason := ai.FinishStop

	if len(response.Candidates) > 0 {
		candidate := response.Candidates[0]

		var textParts []string
		var reasoningParts []string
		toolCallIndex := 0

		if candidate.Content != nil {
			for _, p := range candidate.Content.Parts {
				if p.Text != "" {
					if p.Thought {
						reasoningParts = append(reasoningParts, p.Text)
					} else {
						textParts = append(textParts, p.Text)
					}
				}
				if p.FunctionCall != nil {
					message.ToolCalls = append(message.ToolCalls, ai.ToolCall{
						// Gemini does not assign call ids; synthesize stable ones
						// so tool results can be correlated by index.
						ID:   fmt.Sprintf("call_%d", toolCallIndex),
						Type: "function",
						Function: ai.ToolCallFunction{
							Name:      p.FunctionCall.Name,
							Arguments: string(p.FunctionCall.Args),
						},
					})
					toolCallIndex++
				}
			}
		}

		message.Text = strings.Join(textParts, "\n")
		message.ReasoningText = strings.Join(reasoningParts, "\n")

		if candidate.CitationMetadata != nil {
			for _, source := range candidate.CitationMetadata.CitationSources {
				message.Citations = append(message.Citations, ai.Citation{
					URL:        source.URI,
					StartIndex: source.StartIndex,
					EndIndex:   source.EndIndex,
				})
			}
		}

		finishReason = mapFinishReason(candidate.FinishReason)
		if len(message.ToolCalls) > 0 {
			finishReason = ai.FinishToolCalls
		}
	}

	result.Choices = []ai.Choice{{Index: 0, Message: message, FinishReason: finishReason}}
	return result
}

// mapFinishReason converts a Gemini finishReason to the canonical enum.
func mapFinishReason(geminiReason string) ai.FinishReason {
	switch geminiReason {
	case "STOP", "":
		return ai.FinishStop
	case "MAX_TOKENS":
		return ai.FinishLength
	case "SAFETY", "RECITATION", "BLOCKLIST", "PROHIBITED_CONTENT":
		return ai.FinishContentFilter
	default:
		return ai.FinishStop
	}
}
