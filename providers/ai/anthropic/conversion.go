package anthropic

import (
	"encoding/json"
	"strings"

	"github.com/minechat/llmbridge/core/modelcaps"
	"github.com/minechat/llmbridge/providers/ai"
)

// requestToAnthropic converts an ai.ChatRequest into an anthropicRequest ready
// to POST to the Messages API. System messages are hoisted to the top-level
// system field; remaining messages keep their order.
func requestToAnthropic(request ai.ChatRequest) (anthropicRequest, error) {
	req := anthropicRequest{
		Model:  request.Model,
		Stream: request.Options.Stream,
	}

	// --- System prompt ---
	// The canonical form keeps system turns inline; Anthropic wants them in a
	// dedicated field. Multiple system turns are joined in order.
	var systemParts []string
	var conversational []ai.Message
	for _, msg := range request.Messages {
		if msg.Role == ai.RoleSystem {
			if msg.Text != "" {
				systemParts = append(systemParts, msg.Text)
			}
			continue
		}
		conversational = append(conversational, msg)
	}
	req.System = strings.Join(systemParts, "\n\n")
	req.Messages = buildMessages(conversational)

	// --- Generation options ---
	// Anthropic requires max_tokens on every request.
	maxTokens := modelcaps.DefaultMaxOutputTokens
	if request.Options.MaxOutputTokens > 0 {
		maxTokens = request.Options.MaxOutputTokens
	}
	req.MaxTokens = maxTokens

	if request.Options.Temperature != nil {
		req.Temperature = request.Options.Temperature
	} else {
		defaultTemp := modelcaps.DefaultTemperature
		req.Temperature = &defaultTemp
	}

	if request.Options.ThinkingEnabled {
		req.Thinking = &anthropicThinkingConfig{
			Type:         "enabled",
			BudgetTokens: modelcaps.AnthropicThinkingBudget,
		}
		// Anthropic rejects a custom temperature while thinking is enabled.
		req.Temperature = nil
	}

	// --- Tools ---
	req.Tools, req.MCPServers = buildTools(request.Tools)

	return req, nil
}

// buildMessages converts canonical messages into Anthropic message objects.
//
// Anthropic requires strictly alternating user/assistant turns. Consecutive
// tool-result messages are therefore merged into a single user message with
// multiple tool_result content blocks, which is the only layout the API
// accepts.
func buildMessages(messages []ai.Message) []anthropicMessage {
	var result []anthropicMessage

	for _, msg := range messages {
		switch msg.Role {
		case ai.RoleUser:
			result = append(result, anthropicMessage{
				Role:    "user",
				Content: userContentBlocks(msg),
			})

		case ai.RoleAssistant:
			assistantMsg := anthropicMessage{Role: "assistant"}

			if msg.Text != "" {
				assistantMsg.Content = append(assistantMsg.Content, anthropicContentBlock{
					Type: "text",
					Text: msg.Text,
				})
			}

			// Tool calls round-trip as tool_use blocks so the model can
			// correlate the tool results on the next turn.
			for _, toolCall := range msg.ToolCalls {
				assistantMsg.Content = append(assistantMsg.Content, anthropicContentBlock{
					Type:  "tool_use",
					ID:    toolCall.ID,
					Name:  toolCall.Function.Name,
					Input: toolArguments(toolCall.Function.Arguments),
				})
			}

			if len(assistantMsg.Content) > 0 {
				result = append(result, assistantMsg)
			}

		case ai.RoleTool:
			for _, toolResult := range msg.ToolResults {
				block := anthropicContentBlock{
					Type:      "tool_result",
					ToolUseID: toolResult.CallID,
					Content:   marshalToolResultContent(toolResult.Content),
					IsError:   toolResult.IsError,
				}

				// Merge consecutive tool results into a single user message.
				// Anthropic forbids two consecutive user turns.
				if len(result) > 0 && isAllToolResults(result[len(result)-1]) {
					result[len(result)-1].Content = append(result[len(result)-1].Content, block)
				} else {
					result = append(result, anthropicMessage{
						Role:    "user",
						Content: []anthropicContentBlock{block},
					})
				}
			}
		}
	}

	return result
}

// userContentBlocks builds the content block array for a user turn: text
// first, then images as base64 sources, then direct-mode files as documents.
// Files in code_execution or retrieval mode are excluded here; they surface
// through tool configuration instead of the message body.
func userContentBlocks(msg ai.Message) []anthropicContentBlock {
	var blocks []anthropicContentBlock

	if msg.Text != "" || (len(msg.Images) == 0 && len(msg.Files) == 0) {
		blocks = append(blocks, anthropicContentBlock{Type: "text", Text: msg.Text})
	}

	for _, image := range msg.Images {
		blocks = append(blocks, anthropicContentBlock{
			Type: "image",
			Source: &anthropicSource{
				Type:      "base64",
				MediaType: image.MimeType,
				Data:      image.Data,
			},
		})
	}

	for _, file := range msg.Files {
		if file.Mode != ai.FileModeDirect {
			continue
		}
		blocks = append(blocks, anthropicContentBlock{
			Type: "document",
			Source: &anthropicSource{
				Type:      "base64",
				MediaType: file.MimeType,
				Data:      file.Handle,
			},
		})
	}

	return blocks
}

// toolArguments converts a tool call's argument string into the JSON object
// Anthropic expects. An empty or invalid argument string becomes an empty
// object rather than a malformed request.
func toolArguments(arguments string) json.RawMessage {
	trimmed := strings.TrimSpace(arguments)
	if trimmed == "" || !json.Valid([]byte(trimmed)) {
		return json.RawMessage(`{}`)
	}
	return json.RawMessage(trimmed)
}

// marshalToolResultContent wraps a tool result string as a JSON value.
func marshalToolResultContent(content string) json.RawMessage {
	encoded, err := json.Marshal(content)
	if err != nil {
		return json.RawMessage(`""`)
	}
	return encoded
}

// isAllToolResults reports whether every content block in msg is a
// tool_result block, identifying it as a mergeable tool-result turn.
func isAllToolResults(msg anthropicMessage) bool {
	if msg.Role != "user" || len(msg.Content) == 0 {
		return false
	}
	for _, block := range msg.Content {
		if block.Type != "tool_result" {
			return false
		}
	}
	return true
}

// buildTools maps the canonical tool descriptors onto Anthropic tool objects
// and MCP server declarations. Variants Anthropic has no equivalent for
// (retrieval, image generation) are omitted; descriptor validation upstream
// already rejected anything that cannot be safely dropped.
func buildTools(descriptors []ai.ToolDescriptor) ([]anthropicTool, []anthropicMCPServer) {
	var tools []anthropicTool
	var servers []anthropicMCPServer

	for _, descriptor := range descriptors {
		switch descriptor.Kind {
		case ai.ToolKindFunction:
			tool := anthropicTool{
				Name:        descriptor.Function.Name,
				Description: descriptor.Function.Description,
			}
			if descriptor.Function.Parameters != nil {
				if schemaBytes, err := json.Marshal(descriptor.Function.Parameters); err == nil {
					tool.InputSchema = schemaBytes
				}
			}
			if tool.InputSchema == nil {
				// Anthropic requires input_schema; send an empty object schema
				// when no parameters are defined so the request remains valid.
				tool.InputSchema = json.RawMessage(`{"type":"object","properties":{}}`)
			}
			tools = append(tools, tool)

		case ai.ToolKindWebSearch:
			tool := anthropicTool{
				Type: "web_search_20250305",
				Name: "web_search",
			}
			if descriptor.WebSearch.Location != "" {
				tool.UserLocation = &anthropicLocation{Type: "approximate", City: descriptor.WebSearch.Location}
			}
			tools = append(tools, tool)

		case ai.ToolKindCodeExecution:
			tools = append(tools, anthropicTool{
				Type: "code_execution_20250522",
				Name: "code_execution",
			})

		case ai.ToolKindRemoteServer:
			server := anthropicMCPServer{
				Type: "url",
				URL:  descriptor.RemoteServer.URL,
				Name: descriptor.RemoteServer.Label,
			}
			if len(descriptor.RemoteServer.AllowedTools) > 0 {
				server.ToolConfiguration = &anthropicMCPToolConf{
					Enabled:      true,
					AllowedTools: descriptor.RemoteServer.AllowedTools,
				}
			}
			servers = append(servers, server)
		}
	}

	return tools, servers
}

// responseToResult converts an Anthropic Messages API response to the
// canonical CompletionResult.
//
// Multiple text blocks are joined with newlines into a single Text string;
// thinking blocks are similarly joined into ReasoningText. Unknown block
// types are silently skipped for forward-compatibility.
func responseToResult(response anthropicResponse) *ai.CompletionResult {
	message := ai.AssistantMessage{Role: ai.RoleAssistant}

	var textParts []string
	var reasoningParts []string

	for _, block := range response.Content {
		switch block.Type {
		case "text":
			textParts = append(textParts, block.Text)
			for _, citation := range block.Citations {
				message.Citations = append(message.Citations, ai.Citation{
					Title:      citation.Title,
					URL:        citation.URL,
					StartIndex: citation.StartCharIndex,
					EndIndex:   citation.EndCharIndex,
				})
			}

		case "thinking":
			reasoningParts = append(reasoningParts, block.Thinking)

		case "tool_use":
			message.ToolCalls = append(message.ToolCalls, ai.ToolCall{
				ID:   block.ID,
				Type: "function",
				Function: ai.ToolCallFunction{
					Name:      block.Name,
					Arguments: string(block.Input),
				},
			})

		case "mcp_tool_use":
			message.MCPCalls = append(message.MCPCalls, ai.MCPCall{
				ID:          block.ID,
				ServerLabel: block.ServerName,
				Name:        block.Name,
				Arguments:   string(block.Input),
			})

		case "mcp_tool_result":
			attachMCPResult(message.MCPCalls, block)
		}
	}

	message.Text = strings.Join(textParts, "\n")
	message.ReasoningText = strings.Join(reasoningParts, "\n")

	finishReason := mapStopReason(response.StopReason, message)

	return &ai.CompletionResult{
		ID:       response.ID,
		Model:    response.Model,
		Provider: ai.ProviderAnthropic,
		Choices: []ai.Choice{{
			Index:        0,
			Message:      message,
			FinishReason: finishReason,
		}},
		Usage: &ai.Usage{
			PromptTokens:     response.Usage.InputTokens,
			CompletionTokens: response.Usage.OutputTokens,
			TotalTokens:      response.Usage.InputTokens + response.Usage.OutputTokens,
			CachedTokens:     response.Usage.CacheCreationInputTokens + response.Usage.CacheReadInputTokens,
		},
	}
}

// attachMCPResult pairs an mcp_tool_result block with the mcp_tool_use entry
// it answers, matched by tool_use_id against the recorded call id.
func attachMCPResult(calls []ai.MCPCall, block responseContentBlock) {
	var output strings.Builder
	for _, content := range block.ToolContent {
		if content.Type == "text" {
			output.WriteString(content.Text)
		}
	}

	for i := range calls {
		if calls[i].ID == block.ToolUseID {
			calls[i].Output = output.String()
			calls[i].IsError = block.IsError
			return
		}
	}
}

// mapStopReason converts an Anthropic stop_reason value to the canonical
// finish reason. mcp_tool_use maps to tool_calls; the MCP interaction detail
// lives in the message's MCPCalls, with mcp_error reserved for failed calls.
func mapStopReason(stopReason string, message ai.AssistantMessage) ai.FinishReason {
	for _, call := range message.MCPCalls {
		if call.IsError {
			return ai.FinishMCPError
		}
	}

	switch stopReason {
	case "end_turn", "stop_sequence", "":
		return ai.FinishStop
	case "max_tokens":
		return ai.FinishLength
	case "tool_use", "mcp_tool_use":
		return ai.FinishToolCalls
	case "refusal":
		return ai.FinishContentFilter
	default:
		return ai.FinishStop
	}
}
