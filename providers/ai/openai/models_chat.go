package openai

import (
	"fmt"
	"strings"

	"github.com/minechat/llmbridge/core/modelcaps"
	"github.com/minechat/llmbridge/internal/jsonschema"
	"github.com/minechat/llmbridge/internal/utils"
	"github.com/minechat/llmbridge/providers/ai"
)

/*
	CHAT COMPLETIONS API - INPUT
*/

// chatCompletionRequest is the request body for /v1/chat/completions. Both
// token limit fields are declared; requestToChat sets exactly one of them
// based on the model family.
type chatCompletionRequest struct {
	Model               string         `json:"model"`
	Messages            []chatMessage  `json:"messages"`
	MaxTokens           *int           `json:"max_tokens,omitempty"`
	MaxCompletionTokens *int           `json:"max_completion_tokens,omitempty"`
	Temperature         *float64       `json:"temperature,omitempty"`
	Stream              bool           `json:"stream,omitempty"`
	StreamOptions       *streamOptions `json:"stream_options,omitempty"`
	Tools               []chatTool     `json:"tools,omitempty"`
}

type streamOptions struct {
	IncludeUsage bool `json:"include_usage"`
}

// chatMessage is one Chat Completions turn. Content is a string for plain
// text and a []chatContentPart for multimodal turns.
type chatMessage struct {
	Role       string         `json:"role"`
	Content    any            `json:"content,omitempty"`
	ToolCalls  []chatToolCall `json:"tool_calls,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
}

type chatContentPart struct {
	Type     string        `json:"type"` // "text", "image_url"
	Text     string        `json:"text,omitempty"`
	ImageURL *chatImageURL `json:"image_url,omitempty"`
}

type chatImageURL struct {
	URL string `json:"url"` // data URI for inline images
}

type chatTool struct {
	Type     string          `json:"type"` // "function"
	Function chatFunctionDef `json:"function"`
}

type chatFunctionDef struct {
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	Parameters  *jsonschema.Schema `json:"parameters,omitempty"`
	Strict      bool               `json:"strict,omitempty"`
}

type chatToolCall struct {
	ID       string           `json:"id"`
	Type     string           `json:"type"` // "function"
	Function chatToolFunction `json:"function"`
}

type chatToolFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

/*
	CHAT COMPLETIONS API - OUTPUT
*/

type chatCompletionResponse struct {
	ID      string       `json:"id"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
	Usage   *chatUsage   `json:"usage,omitempty"`
}

type chatChoice struct {
	Index        int                 `json:"index"`
	Message      chatResponseMessage `json:"message"`
	FinishReason string              `json:"finish_reason"`
}

type chatResponseMessage struct {
	Role      string         `json:"role"`
	Content   string         `json:"content"`
	ToolCalls []chatToolCall `json:"tool_calls,omitempty"`
}

type chatUsage struct {
	PromptTokens        int `json:"prompt_tokens"`
	CompletionTokens    int `json:"completion_tokens"`
	TotalTokens         int `json:"total_tokens"`
	PromptTokensDetails *struct {
		CachedTokens int `json:"cached_tokens"`
	} `json:"prompt_tokens_details,omitempty"`
	CompletionTokensDetails *struct {
		ReasoningTokens int `json:"reasoning_tokens"`
	} `json:"completion_tokens_details,omitempty"`
}

/*
	CONVERSION - REQUEST
*/

// requestToChat converts an ai.ChatRequest into the Chat Completions format.
//
// In reduced mode (OpenAI-compatible endpoints) only plain text is accepted:
// tool descriptors, images, and file attachments fail validation up front,
// since silently dropping them would change what the model sees. Full mode
// carries images and function tools but none of the Responses-only natives.
func requestToChat(request ai.ChatRequest, reduced bool) (chatCompletionRequest, error) {
	if reduced {
		if len(request.Tools) > 0 {
			return chatCompletionRequest{}, ai.NewValidationError("tools are not supported on openai_compatible endpoints")
		}
		for _, msg := range request.Messages {
			if len(msg.Images) > 0 || len(msg.Files) > 0 {
				return chatCompletionRequest{}, ai.NewValidationError("multimodal attachments are not supported on openai_compatible endpoints")
			}
		}
	}

	req := chatCompletionRequest{
		Model:  request.Model,
		Stream: request.Options.Stream,
	}
	if req.Stream {
		req.StreamOptions = &streamOptions{IncludeUsage: true}
	}

	stripSystem := modelcaps.RejectsSystemRole(request.Model)

	for _, msg := range request.Messages {
		switch msg.Role {
		case ai.RoleSystem:
			if stripSystem {
				continue
			}
			req.Messages = append(req.Messages, chatMessage{Role: "system", Content: msg.Text})

		case ai.RoleUser:
			req.Messages = append(req.Messages, chatMessage{Role: "user", Content: chatUserContent(msg)})

		case ai.RoleAssistant:
			chatMsg := chatMessage{Role: "assistant"}
			if msg.Text != "" {
				chatMsg.Content = msg.Text
			}
			for _, toolCall := range msg.ToolCalls {
				chatMsg.ToolCalls = append(chatMsg.ToolCalls, chatToolCall{
					ID:   toolCall.ID,
					Type: "function",
					Function: chatToolFunction{
						Name:      toolCall.Function.Name,
						Arguments: toolCall.Function.Arguments,
					},
				})
			}
			req.Messages = append(req.Messages, chatMsg)

		case ai.RoleTool:
			// Chat Completions wants one tool-role message per result.
			for _, result := range msg.ToolResults {
				req.Messages = append(req.Messages, chatMessage{
					Role:       "tool",
					Content:    result.Content,
					ToolCallID: result.CallID,
				})
			}
		}
	}

	maxTokens := request.Options.MaxOutputTokens
	if maxTokens <= 0 {
		maxTokens = modelcaps.DefaultMaxOutputTokens
	}
	provider := ai.ProviderOpenAI
	if reduced {
		provider = ai.ProviderOpenAICompatible
	}
	switch modelcaps.TokenLimitParam(provider, request.Model, modelcaps.VariantChat) {
	case "max_completion_tokens":
		req.MaxCompletionTokens = utils.Ptr(maxTokens)
	default:
		req.MaxTokens = utils.Ptr(maxTokens)
	}

	if !modelcaps.FixedTemperature(request.Model) {
		if request.Options.Temperature != nil {
			req.Temperature = request.Options.Temperature
		} else {
			req.Temperature = utils.Ptr(modelcaps.DefaultTemperature)
		}
	}

	for _, descriptor := range request.Tools {
		// Only function tools exist on this surface; native tool descriptors
		// are Responses-only and are omitted here.
		if descriptor.Kind != ai.ToolKindFunction {
			continue
		}
		req.Tools = append(req.Tools, chatTool{
			Type: "function",
			Function: chatFunctionDef{
				Name:        descriptor.Function.Name,
				Description: descriptor.Function.Description,
				Parameters:  descriptor.Function.Parameters,
				Strict:      descriptor.Function.Strict,
			},
		})
	}

	return req, nil
}

// chatUserContent renders a user message as a plain string when possible and
// as a content part array when it carries images.
func chatUserContent(msg ai.Message) any {
	if len(msg.Images) == 0 {
		return msg.Text
	}

	var parts []chatContentPart
	if msg.Text != "" {
		parts = append(parts, chatContentPart{Type: "text", Text: msg.Text})
	}
	for _, image := range msg.Images {
		parts = append(parts, chatContentPart{
			Type:     "image_url",
			ImageURL: &chatImageURL{URL: fmt.Sprintf("data:%s;base64,%s", image.MimeType, image.Data)},
		})
	}
	return parts
}

/*
	CONVERSION - RESPONSE
*/

// chatToResult normalizes a Chat Completions response.
func chatToResult(response chatCompletionResponse, provider ai.ProviderID) *ai.CompletionResult {
	result := &ai.CompletionResult{
		ID:       response.ID,
		Model:    response.Model,
		Provider: provider,
	}

	for _, choice := range response.Choices {
		message := ai.AssistantMessage{
			Role: ai.RoleAssistant,
			Text: choice.Message.Content,
		}
		for _, toolCall := range choice.Message.ToolCalls {
			message.ToolCalls = append(message.ToolCalls, ai.ToolCall{
				ID:   toolCall.ID,
				Type: "function",
				Function: ai.ToolCallFunction{
					Name:      toolCall.Function.Name,
					Arguments: toolCall.Function.Arguments,
				},
			})
		}

		result.Choices = append(result.Choices, ai.Choice{
			Index:        choice.Index,
			Message:      message,
			FinishReason: mapChatFinishReason(choice.FinishReason, len(message.ToolCalls) > 0),
		})
	}

	if response.Usage != nil {
		usage := &ai.Usage{
			PromptTokens:     response.Usage.PromptTokens,
			CompletionTokens: response.Usage.CompletionTokens,
			TotalTokens:      response.Usage.TotalTokens,
		}
		if response.Usage.PromptTokensDetails != nil {
			usage.CachedTokens = response.Usage.PromptTokensDetails.CachedTokens
		}
		if response.Usage.CompletionTokensDetails != nil {
			usage.ReasoningTokens = response.Usage.CompletionTokensDetails.ReasoningTokens
		}
		result.Usage = usage
	}

	return result
}

// mapChatFinishReason maps the Chat Completions finish_reason vocabulary onto
// the canonical set. Some compatible endpoints report "stop" even when the
// message carries tool calls, so their presence wins.
func mapChatFinishReason(reason string, hasToolCalls bool) ai.FinishReason {
	if hasToolCalls {
		return ai.FinishToolCalls
	}
	switch strings.ToLower(reason) {
	case "stop", "":
		return ai.FinishStop
	case "length":
		return ai.FinishLength
	case "tool_calls", "function_call":
		return ai.FinishToolCalls
	case "content_filter":
		return ai.FinishContentFilter
	default:
		return ai.FinishStop
	}
}
