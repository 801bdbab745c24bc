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
	RESPONSES API - INPUT
*/

// responseCreateRequest is the request body for the /v1/responses endpoint.
type responseCreateRequest struct {
	Model              string           `json:"model"`
	Input              []inputItem      `json:"input"`
	Instructions       string           `json:"instructions,omitempty"`
	PreviousResponseID string           `json:"previous_response_id,omitempty"`
	Temperature        *float64         `json:"temperature,omitempty"`
	MaxOutputTokens    *int             `json:"max_output_tokens,omitempty"`
	Stream             bool             `json:"stream,omitempty"`
	Reasoning          *reasoningConfig `json:"reasoning,omitempty"`
	Tools              []responseTool   `json:"tools,omitempty"`
}

// inputItem is a discriminated union over the input array entries.
//   - Type="message" (or empty): Role + Content
//   - Type="function_call": CallID, Name, Arguments (round-trip of a model call)
//   - Type="function_call_output": CallID, Output (executed tool result)
type inputItem struct {
	Type      string        `json:"type,omitempty"`
	Role      string        `json:"role,omitempty"` // "user", "assistant"
	Content   []contentItem `json:"content,omitempty"`
	CallID    string        `json:"call_id,omitempty"`
	Name      string        `json:"name,omitempty"`
	Arguments string        `json:"arguments,omitempty"`
	Output    string        `json:"output,omitempty"`
}

// contentItem is one multimodal content part.
type contentItem struct {
	Type     string `json:"type"` // "input_text", "input_image", "input_file", "output_text"
	Text     string `json:"text,omitempty"`
	ImageURL string `json:"image_url,omitempty"` // data URI for inline images
	FileID   string `json:"file_id,omitempty"`   // provider file handle
}

// reasoningConfig enables reasoning on capable models.
type reasoningConfig struct {
	Effort  string `json:"effort,omitempty"`  // "minimal", "low", "medium", "high"
	Summary string `json:"summary,omitempty"` // "auto", "detailed"
}

// responseTool is a discriminated union over the Responses API tool objects.
type responseTool struct {
	Type string `json:"type"` // "function", "web_search", "file_search", "code_interpreter", "mcp", "image_generation"

	// For function calling
	Name        string             `json:"name,omitempty"`
	Description string             `json:"description,omitempty"`
	Parameters  *jsonschema.Schema `json:"parameters,omitempty"`
	Strict      bool               `json:"strict,omitempty"`

	// For web_search
	UserLocation *searchLocation `json:"user_location,omitempty"`
	ContextSize  string          `json:"search_context_size,omitempty"`

	// For file_search
	VectorStoreIDs []string `json:"vector_store_ids,omitempty"`

	// For code_interpreter
	Container *containerConfig `json:"container,omitempty"`

	// For mcp
	ServerLabel     string   `json:"server_label,omitempty"`
	ServerURL       string   `json:"server_url,omitempty"`
	AllowedTools    []string `json:"allowed_tools,omitempty"`
	RequireApproval any      `json:"require_approval,omitempty"` // "always", "never", or per-tool object

	// For image_generation
	Size       string `json:"size,omitempty"`
	Quality    string `json:"quality,omitempty"`
	Background string `json:"background,omitempty"`
}

// searchLocation scopes web search results.
type searchLocation struct {
	Type string `json:"type"` // "approximate"
	City string `json:"city,omitempty"`
}

// containerConfig configures the code interpreter sandbox.
type containerConfig struct {
	Type    string   `json:"type"` // "auto"
	FileIDs []string `json:"file_ids,omitempty"`
}

/*
	RESPONSES API - OUTPUT
*/

// responseCreateResponse is the body returned by /v1/responses.
type responseCreateResponse struct {
	ID                string             `json:"id"`
	Object            string             `json:"object"` // "response"
	Model             string             `json:"model"`
	Status            string             `json:"status"` // "completed", "incomplete", "failed"
	Output            []outputItem       `json:"output"`
	Usage             *usageDetails      `json:"usage,omitempty"`
	IncompleteDetails *incompleteDetails `json:"incomplete_details,omitempty"`
	Error             *errorDetails      `json:"error,omitempty"`
}

// outputItem is one element of the output array. The Type field discriminates:
// "message", "reasoning", "function_call", "image_generation_call",
// "mcp_call", "mcp_list_tools", "mcp_approval_request", plus built-in tool
// call markers (web_search_call, code_interpreter_call) that carry no
// caller-visible payload. Order within the array is not guaranteed; the
// normalizer scans everything.
type outputItem struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Role    string          `json:"role,omitempty"` // "assistant" for message items
	Status  string          `json:"status,omitempty"`
	Content []contentOutput `json:"content,omitempty"`
	Summary []summaryItem   `json:"summary,omitempty"` // reasoning summaries

	// For function_call, mcp_call, mcp_approval_request
	Name      string `json:"name,omitempty"`
	CallID    string `json:"call_id,omitempty"`
	Arguments string `json:"arguments,omitempty"`

	// For mcp_call / mcp_approval_request
	ServerLabel string  `json:"server_label,omitempty"`
	Output      string  `json:"output,omitempty"`
	Error       *string `json:"error,omitempty"`

	// For image_generation_call
	Result string `json:"result,omitempty"` // base64 image payload
}

// contentOutput is one content part of a message output item.
type contentOutput struct {
	Type        string       `json:"type"` // "output_text", "refusal"
	Text        string       `json:"text,omitempty"`
	Refusal     string       `json:"refusal,omitempty"`
	Annotations []annotation `json:"annotations,omitempty"`
}

// annotation is a citation attached to output text.
type annotation struct {
	Type       string `json:"type"` // "url_citation"
	Title      string `json:"title,omitempty"`
	URL        string `json:"url,omitempty"`
	StartIndex int    `json:"start_index,omitempty"`
	EndIndex   int    `json:"end_index,omitempty"`
}

// summaryItem is one reasoning summary segment.
type summaryItem struct {
	Type string `json:"type"` // "summary_text"
	Text string `json:"text,omitempty"`
}

// usageDetails reports token consumption.
type usageDetails struct {
	InputTokens        int `json:"input_tokens"`
	OutputTokens       int `json:"output_tokens"`
	TotalTokens        int `json:"total_tokens"`
	InputTokensDetails *struct {
		CachedTokens int `json:"cached_tokens"`
	} `json:"input_tokens_details,omitempty"`
	OutputTokensDetails *struct {
		ReasoningTokens int `json:"reasoning_tokens"`
	} `json:"output_tokens_details,omitempty"`
}

// incompleteDetails explains an "incomplete" status.
type incompleteDetails struct {
	Reason string `json:"reason"` // "max_output_tokens", "content_filter"
}

// errorDetails is the failure payload on status "failed".
type errorDetails struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code"`
}

/*
	CONVERSION - REQUEST
*/

// requestToResponses converts an ai.ChatRequest into the Responses API
// format. System messages are hoisted into the instructions field; assistant
// tool calls and their results become function_call / function_call_output
// items so multi-round tool history round-trips.
func requestToResponses(request ai.ChatRequest) responseCreateRequest {
	req := responseCreateRequest{
		Model:              request.Model,
		Stream:             request.Options.Stream,
		PreviousResponseID: request.Options.PreviousResponseID,
	}

	var instructionParts []string
	var codeFileIDs []string

	for _, msg := range request.Messages {
		switch msg.Role {
		case ai.RoleSystem:
			if msg.Text != "" {
				instructionParts = append(instructionParts, msg.Text)
			}

		case ai.RoleUser:
			item := inputItem{Role: "user"}
			if msg.Text != "" || (len(msg.Images) == 0 && len(msg.Files) == 0) {
				item.Content = append(item.Content, contentItem{Type: "input_text", Text: msg.Text})
			}
			for _, image := range msg.Images {
				item.Content = append(item.Content, contentItem{
					Type:     "input_image",
					ImageURL: fmt.Sprintf("data:%s;base64,%s", image.MimeType, image.Data),
				})
			}
			for _, file := range msg.Files {
				switch file.Mode {
				case ai.FileModeDirect:
					item.Content = append(item.Content, contentItem{Type: "input_file", FileID: file.Handle})
				case ai.FileModeCodeExecution:
					// Declared on the code interpreter container, not the message.
					codeFileIDs = append(codeFileIDs, file.Handle)
				}
				// Retrieval-mode files reach the model through a RetrievalTool's
				// vector stores; nothing to inline here.
			}
			req.Input = append(req.Input, item)

		case ai.RoleAssistant:
			if msg.Text != "" {
				req.Input = append(req.Input, inputItem{
					Role:    "assistant",
					Content: []contentItem{{Type: "output_text", Text: msg.Text}},
				})
			}
			for _, toolCall := range msg.ToolCalls {
				req.Input = append(req.Input, inputItem{
					Type:      "function_call",
					CallID:    toolCall.ID,
					Name:      toolCall.Function.Name,
					Arguments: toolCall.Function.Arguments,
				})
			}

		case ai.RoleTool:
			for _, result := range msg.ToolResults {
				req.Input = append(req.Input, inputItem{
					Type:   "function_call_output",
					CallID: result.CallID,
					Output: result.Content,
				})
			}
		}
	}

	req.Instructions = strings.Join(instructionParts, "\n\n")

	if request.Options.MaxOutputTokens > 0 {
		req.MaxOutputTokens = utils.Ptr(request.Options.MaxOutputTokens)
	} else {
		req.MaxOutputTokens = utils.Ptr(modelcaps.DefaultMaxOutputTokens)
	}

	if !modelcaps.FixedTemperature(request.Model) {
		if request.Options.Temperature != nil {
			req.Temperature = request.Options.Temperature
		} else {
			req.Temperature = utils.Ptr(modelcaps.DefaultTemperature)
		}
	}

	if request.Options.ThinkingEnabled || modelcaps.IsReasoningModel(request.Model) {
		req.Reasoning = buildReasoningConfig(request.Options)
	}

	req.Tools = buildResponsesTools(request.Tools, codeFileIDs)

	return req
}

// buildReasoningConfig maps canonical reasoning options onto the Responses
// API reasoning object. The effort vocabulary comes from the modelcaps table
// so drift stays in one place.
func buildReasoningConfig(options ai.Options) *reasoningConfig {
	cfg := &reasoningConfig{
		Effort: modelcaps.EffortString(modelcaps.VariantResponses, options.ReasoningEffort),
	}

	switch options.ReasoningSummary {
	case ai.SummaryDetailed:
		cfg.Summary = "detailed"
	case ai.SummaryHidden:
		// No summary requested; leave the field empty.
	default:
		cfg.Summary = "auto"
	}

	return cfg
}

// buildResponsesTools maps canonical descriptors onto Responses API tools.
// Every descriptor variant has a native equivalent here, which is why openai
// routes through this API by default. codeFileIDs carries the handles of
// code-execution-mode file attachments onto the interpreter container.
func buildResponsesTools(descriptors []ai.ToolDescriptor, codeFileIDs []string) []responseTool {
	var tools []responseTool
	codeInterpreterAdded := false

	for _, descriptor := range descriptors {
		switch descriptor.Kind {
		case ai.ToolKindFunction:
			tools = append(tools, responseTool{
				Type:        "function",
				Name:        descriptor.Function.Name,
				Description: descriptor.Function.Description,
				Parameters:  descriptor.Function.Parameters,
				Strict:      descriptor.Function.Strict,
			})

		case ai.ToolKindWebSearch:
			tool := responseTool{Type: "web_search"}
			if descriptor.WebSearch.Location != "" {
				tool.UserLocation = &searchLocation{Type: "approximate", City: descriptor.WebSearch.Location}
			}
			tool.ContextSize = descriptor.WebSearch.ContextSize
			tools = append(tools, tool)

		case ai.ToolKindCodeExecution:
			tools = append(tools, responseTool{
				Type:      "code_interpreter",
				Container: &containerConfig{Type: "auto", FileIDs: codeFileIDs},
			})
			codeInterpreterAdded = true

		case ai.ToolKindRetrieval:
			tools = append(tools, responseTool{
				Type:           "file_search",
				VectorStoreIDs: descriptor.Retrieval.StoreIDs,
			})

		case ai.ToolKindRemoteServer:
			tools = append(tools, responseTool{
				Type:            "mcp",
				ServerLabel:     descriptor.RemoteServer.Label,
				ServerURL:       descriptor.RemoteServer.URL,
				AllowedTools:    descriptor.RemoteServer.AllowedTools,
				RequireApproval: approvalValue(descriptor.RemoteServer.Approval),
			})

		case ai.ToolKindImageGeneration:
			tools = append(tools, responseTool{
				Type:       "image_generation",
				Size:       descriptor.ImageGeneration.Size,
				Quality:    descriptor.ImageGeneration.Quality,
				Background: descriptor.ImageGeneration.Background,
			})
		}
	}

	// Code-execution files without an explicit CodeExecution descriptor still
	// need a sandbox to land in.
	if len(codeFileIDs) > 0 && !codeInterpreterAdded {
		tools = append(tools, responseTool{
			Type:      "code_interpreter",
			Container: &containerConfig{Type: "auto", FileIDs: codeFileIDs},
		})
	}

	return tools
}

// approvalValue converts the canonical approval policy to the wire value.
// per_tool defers to the server default by omitting the field.
func approvalValue(policy ai.ApprovalPolicy) any {
	switch policy {
	case ai.ApprovalAlways:
		return "always"
	case ai.ApprovalNever:
		return "never"
	default:
		return nil
	}
}

/*
	CONVERSION - RESPONSE
*/

// responsesToResult collapses a Responses API output array into the canonical
// CompletionResult. The array mixes message, reasoning, function call, image
// generation, and MCP items in no guaranteed order, so the whole array is
// scanned and merged.
func responsesToResult(response responseCreateResponse) *ai.CompletionResult {
	message := ai.AssistantMessage{Role: ai.RoleAssistant}

	var textParts []string
	var reasoningParts []string
	sawRefusal := false
	approvalRequired := false
	mcpErrored := false

	for _, item := range response.Output {
		switch item.Type {
		case "message":
			for _, content := range item.Content {
				switch content.Type {
				case "output_text":
					textParts = append(textParts, content.Text)
					for _, ann := range content.Annotations {
						if ann.Type == "url_citation" {
							message.Citations = append(message.Citations, ai.Citation{
								Title:      ann.Title,
								URL:        ann.URL,
								StartIndex: ann.StartIndex,
								EndIndex:   ann.EndIndex,
							})
						}
					}
				case "refusal":
					sawRefusal = true
					textParts = append(textParts, content.Refusal)
				}
			}

		case "reasoning":
			for _, summary := range item.Summary {
				if summary.Text != "" {
					reasoningParts = append(reasoningParts, summary.Text)
				}
			}

		case "function_call":
			message.ToolCalls = append(message.ToolCalls, ai.ToolCall{
				ID:   item.CallID,
				Type: "function",
				Function: ai.ToolCallFunction{
					Name:      item.Name,
					Arguments: item.Arguments,
				},
			})

		case "image_generation_call":
			message.ImageGenerations = append(message.ImageGenerations, ai.ImageGeneration{
				ID:     item.ID,
				Data:   item.Result,
				Format: "png",
			})

		case "mcp_call":
			call := ai.MCPCall{
				ID:          item.ID,
				ServerLabel: item.ServerLabel,
				Name:        item.Name,
				Arguments:   item.Arguments,
				Output:      item.Output,
			}
			if item.Error != nil && *item.Error != "" {
				call.IsError = true
				mcpErrored = true
			}
			message.MCPCalls = append(message.MCPCalls, call)

		case "mcp_approval_request":
			approvalRequired = true
			message.MCPCalls = append(message.MCPCalls, ai.MCPCall{
				ID:                item.ID,
				ServerLabel:       item.ServerLabel,
				Name:              item.Name,
				Arguments:         item.Arguments,
				ApprovalRequestID: item.ID,
			})

		case "mcp_list_tools", "web_search_call", "code_interpreter_call", "file_search_call":
			// Tool progress markers; nothing caller-visible to merge.
		}
	}

	message.Text = strings.Join(textParts, "\n")
	message.ReasoningText = strings.Join(reasoningParts, "\n")

	finishReason := responsesFinishReason(response, message, approvalRequired, mcpErrored, sawRefusal)

	result := &ai.CompletionResult{
		ID:       response.ID,
		Model:    response.Model,
		Provider: ai.ProviderOpenAI,
		Choices: []ai.Choice{{
			Index:        0,
			Message:      message,
			FinishReason: finishReason,
		}},
	}

	if response.Usage != nil {
		usage := &ai.Usage{
			PromptTokens:     response.Usage.InputTokens,
			CompletionTokens: response.Usage.OutputTokens,
			TotalTokens:      response.Usage.TotalTokens,
		}
		if response.Usage.InputTokensDetails != nil {
			usage.CachedTokens = response.Usage.InputTokensDetails.CachedTokens
		}
		if response.Usage.OutputTokensDetails != nil {
			usage.ReasoningTokens = response.Usage.OutputTokensDetails.ReasoningTokens
		}
		result.Usage = usage
	}

	return result
}

// responsesFinishReason derives the canonical finish reason. An MCP approval
// request takes priority over plain tool calls; an errored MCP call beats
// both. Incomplete responses map through incomplete_details.
func responsesFinishReason(response responseCreateResponse, message ai.AssistantMessage, approvalRequired, mcpErrored, sawRefusal bool) ai.FinishReason {
	switch {
	case approvalRequired:
		return ai.FinishApprovalRequired
	case mcpErrored:
		return ai.FinishMCPError
	case len(message.ToolCalls) > 0:
		return ai.FinishToolCalls
	case sawRefusal:
		return ai.FinishContentFilter
	}

	if response.Status == "incomplete" && response.IncompleteDetails != nil {
		switch response.IncompleteDetails.Reason {
		case "max_output_tokens":
			return ai.FinishLength
		case "content_filter":
			return ai.FinishContentFilter
		}
	}

	return ai.FinishStop
}
