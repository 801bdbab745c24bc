package ai

import (
	"encoding/json"
	"strings"

	"github.com/minechat/llmbridge/internal/jsonschema"
)

/*
	##### PROVIDER INPUT #####
*/

// ProviderID identifies one of the supported upstream back-ends.
type ProviderID string

const (
	ProviderOpenAI           ProviderID = "openai"
	ProviderAnthropic        ProviderID = "anthropic"
	ProviderGoogle           ProviderID = "google"
	ProviderOpenAICompatible ProviderID = "openai_compatible"
)

// MessageRole represents the role of a message; compatible with string.
type MessageRole string

const (
	RoleSystem    MessageRole = "system"    // System instructions/configuration
	RoleUser      MessageRole = "user"      // End-user message
	RoleAssistant MessageRole = "assistant" // Model response
	RoleTool      MessageRole = "tool"      // Tool/function output
)

// ChatRequest represents a single completion request in the canonical format.
// System messages stay inside Messages; each provider's request normalizer
// hoists them to whatever field that API expects (instructions, system,
// system_instruction) or strips them for model families that reject them.
type ChatRequest struct {
	Model    string           `json:"model"`
	Messages []Message        `json:"messages"`
	Tools    []ToolDescriptor `json:"tools,omitempty"`
	Options  Options          `json:"options"`
}

// Message is the provider-agnostic representation of one chat turn.
// Images and Files are only meaningful for user/assistant roles.
// ToolResults is only meaningful for role=tool.
type Message struct {
	Role MessageRole `json:"role"`
	Text string      `json:"text,omitempty"`

	// Multimodal attachments
	Images []ImageAttachment `json:"images,omitempty"`
	Files  []FileAttachment  `json:"files,omitempty"`

	// ToolCalls is set on assistant messages that requested tool execution.
	// It must be round-tripped back to the provider on the next turn so the
	// model can correlate tool results with its own calls.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`

	// ToolResults carries executed tool outputs, ordered by original call index.
	ToolResults []ToolResult `json:"tool_results,omitempty"`
}

// ImageAttachment is an inline image carried as base64 data plus its MIME type.
type ImageAttachment struct {
	Data     string `json:"data"` // base64, no data-URI prefix
	MimeType string `json:"mime_type"`
}

// FileMode selects how a file attachment is surfaced to the provider.
type FileMode string

const (
	// FileModeDirect inlines a provider file reference into the message body.
	FileModeDirect FileMode = "direct"
	// FileModeCodeExecution makes the file available to the provider's code
	// execution sandbox instead of the message body.
	FileModeCodeExecution FileMode = "code_execution"
	// FileModeRetrieval indexes the file for retrieval search instead of the
	// message body.
	FileModeRetrieval FileMode = "retrieval"
)

// FileAttachment references a file previously uploaded out-of-band.
// Handle is the provider-native file id returned by the upload collaborator;
// the adapter never uploads bytes itself.
type FileAttachment struct {
	Handle   string   `json:"handle"`
	MimeType string   `json:"mime_type"`
	Mode     FileMode `json:"mode"`
}

// Options holds the generation parameters shared by all providers.
type Options struct {
	Stream           bool             `json:"stream,omitempty"`
	ThinkingEnabled  bool             `json:"thinking_enabled,omitempty"`
	ReasoningEffort  ReasoningEffort  `json:"reasoning_effort,omitempty"`
	ReasoningSummary SummaryVerbosity `json:"reasoning_summary,omitempty"`
	MaxOutputTokens  int              `json:"max_output_tokens,omitempty"`

	// Temperature is ignored for model families that fix it (gpt-5, o-family).
	// nil means "use the adapter default" (0.7, matching the legacy backend).
	Temperature *float64 `json:"temperature,omitempty"`

	// PreviousResponseID enables server-side conversation continuation for
	// providers that support it (OpenAI Responses API multi-turn image generation).
	PreviousResponseID string `json:"previous_response_id,omitempty"`

	// APIKey overrides the provider's configured credential for this call.
	// The chat client is bring-your-own-key; each request may carry its own.
	APIKey string `json:"-"`
}

// ReasoningEffort is the canonical thinking-effort level. Each provider maps
// it onto its own vocabulary (string efforts, token budgets).
type ReasoningEffort string

const (
	EffortMinimal ReasoningEffort = "minimal"
	EffortLow     ReasoningEffort = "low"
	EffortMedium  ReasoningEffort = "medium"
	EffortHigh    ReasoningEffort = "high"
)

// SummaryVerbosity controls how much of the reasoning trace is surfaced.
type SummaryVerbosity string

const (
	SummaryAuto     SummaryVerbosity = "auto"
	SummaryHidden   SummaryVerbosity = "hidden"
	SummaryDetailed SummaryVerbosity = "detailed"
)

/*
	##### PROVIDER OUTPUT #####
*/

// FinishReason is the closed set of canonical completion outcomes.
type FinishReason string

const (
	FinishStop             FinishReason = "stop"
	FinishLength           FinishReason = "length"
	FinishToolCalls        FinishReason = "tool_calls"
	FinishApprovalRequired FinishReason = "approval_required"
	FinishMCPError         FinishReason = "mcp_error"
	FinishContentFilter    FinishReason = "content_filter"
)

// CompletionResult is the canonical response shape every provider converges on.
// Callers never branch on provider after normalization.
type CompletionResult struct {
	ID       string     `json:"id"`
	Model    string     `json:"model,omitempty"`
	Provider ProviderID `json:"provider,omitempty"`
	Choices  []Choice   `json:"choices"`
	Usage    *Usage     `json:"usage,omitempty"`
}

// Choice is one candidate completion. Exactly one choice is populated in
// current usage; the list form exists for wire compatibility.
type Choice struct {
	Index        int              `json:"index"`
	Message      AssistantMessage `json:"message"`
	FinishReason FinishReason     `json:"finish_reason"`
}

// AssistantMessage is the normalized model output inside a Choice.
type AssistantMessage struct {
	Role             MessageRole       `json:"role"`
	Text             string            `json:"text"`
	ToolCalls        []ToolCall        `json:"tool_calls,omitempty"`
	ReasoningText    string            `json:"reasoning_text,omitempty"`
	Citations        []Citation        `json:"citations,omitempty"`
	ImageGenerations []ImageGeneration `json:"image_generations,omitempty"`
	MCPCalls         []MCPCall         `json:"mcp_calls,omitempty"`
}

// Citation is a source reference attached to generated text.
type Citation struct {
	Title      string `json:"title,omitempty"`
	URL        string `json:"url,omitempty"`
	StartIndex int    `json:"start_index,omitempty"`
	EndIndex   int    `json:"end_index,omitempty"`
}

// ImageGeneration is one generated image returned by an image-generation tool call.
type ImageGeneration struct {
	ID     string `json:"id,omitempty"`
	Data   string `json:"data"` // base64
	Format string `json:"format,omitempty"`
}

// MCPCall records one remote-tool-server interaction surfaced by the provider.
type MCPCall struct {
	ID                string `json:"id,omitempty"`
	ServerLabel       string `json:"server_label,omitempty"`
	Name              string `json:"name,omitempty"`
	Arguments         string `json:"arguments,omitempty"`
	Output            string `json:"output,omitempty"`
	IsError           bool   `json:"is_error,omitempty"`
	ApprovalRequestID string `json:"approval_request_id,omitempty"`
}

// Usage reports token consumption for a single request.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens,omitempty"`
	CompletionTokens int `json:"completion_tokens,omitempty"`
	TotalTokens      int `json:"total_tokens,omitempty"`

	// Extended token metrics
	ReasoningTokens int `json:"reasoning_tokens,omitempty"`
	CachedTokens    int `json:"cached_tokens,omitempty"`
}

// First returns the first populated choice, or nil when the result is empty.
func (r *CompletionResult) First() *Choice {
	if r == nil || len(r.Choices) == 0 {
		return nil
	}
	return &r.Choices[0]
}

// PendingToolCalls returns the tool calls awaiting execution on the first
// choice, or nil when the completion is terminal.
func (r *CompletionResult) PendingToolCalls() []ToolCall {
	choice := r.First()
	if choice == nil {
		return nil
	}
	return choice.Message.ToolCalls
}

/*
	##### TOOL CALLING #####
*/

// ToolCall represents a function/tool call request from the model.
type ToolCall struct {
	ID       string           `json:"id,omitempty"` // Unique identifier for this call
	Type     string           `json:"type"`         // "function"
	Function ToolCallFunction `json:"function"`
}

type ToolCallFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"` // JSON string
}

// ToolResult is one executed tool output, keyed by the originating call id.
// A failed execution still produces a ToolResult (IsError=true, Content holds
// the error string) so a single failing tool never aborts a round.
type ToolResult struct {
	CallID  string `json:"call_id"`
	Name    string `json:"name,omitempty"`
	Content string `json:"content"`
	IsError bool   `json:"is_error,omitempty"`
}

/*
	##### TOOL DESCRIPTORS #####
*/

// ToolKind discriminates the ToolDescriptor union.
type ToolKind string

const (
	ToolKindFunction        ToolKind = "function"
	ToolKindWebSearch       ToolKind = "web_search"
	ToolKindCodeExecution   ToolKind = "code_execution"
	ToolKindRetrieval       ToolKind = "retrieval"
	ToolKindRemoteServer    ToolKind = "remote_server"
	ToolKindImageGeneration ToolKind = "image_generation"
)

// ToolDescriptor is the provider-agnostic representation of an invocable
// capability. Exactly one variant field, selected by Kind, is non-nil.
// Variants a given provider does not support are silently omitted from the
// request, except where omission would break caller intent (see Validate).
type ToolDescriptor struct {
	Kind ToolKind `json:"kind"`

	Function        *FunctionTool        `json:"function,omitempty"`
	WebSearch       *WebSearchTool       `json:"web_search,omitempty"`
	CodeExecution   *CodeExecutionTool   `json:"code_execution,omitempty"`
	Retrieval       *RetrievalTool       `json:"retrieval,omitempty"`
	RemoteServer    *RemoteServerTool    `json:"remote_server,omitempty"`
	ImageGeneration *ImageGenerationTool `json:"image_generation,omitempty"`
}

// FunctionTool describes a caller-executed function with a JSON Schema contract.
type FunctionTool struct {
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	Parameters  *jsonschema.Schema `json:"parameters,omitempty"`
	Strict      bool               `json:"strict,omitempty"`
}

// WebSearchTool enables the provider's native web search capability.
type WebSearchTool struct {
	Location    string `json:"location,omitempty"`
	ContextSize string `json:"context_size,omitempty"` // "low", "medium", "high"
}

// CodeExecutionTool enables the provider's code execution sandbox.
type CodeExecutionTool struct{}

// RetrievalTool enables retrieval search over previously indexed stores.
type RetrievalTool struct {
	StoreIDs []string `json:"store_ids"`
}

// ApprovalPolicy controls when remote-server tool invocations require caller approval.
type ApprovalPolicy string

const (
	ApprovalAlways  ApprovalPolicy = "always"
	ApprovalNever   ApprovalPolicy = "never"
	ApprovalPerTool ApprovalPolicy = "per_tool"
)

// RemoteServerTool declares a remote MCP tool server the provider may call natively.
type RemoteServerTool struct {
	Label        string         `json:"label"`
	URL          string         `json:"url"`
	AllowedTools []string       `json:"allowed_tools,omitempty"`
	Approval     ApprovalPolicy `json:"approval,omitempty"`
}

// ImageGenerationTool enables native image generation.
type ImageGenerationTool struct {
	Size       string `json:"size,omitempty"`
	Quality    string `json:"quality,omitempty"`
	Background string `json:"background,omitempty"`
}

// Validate checks the descriptor's internal consistency. It fails fast, before
// any network call, when the variant field does not match Kind or when a
// remote server URL uses an insecure transport (providers mandate HTTPS for
// remote tool servers; sending the URL anyway would silently break the caller).
func (d ToolDescriptor) Validate() error {
	switch d.Kind {
	case ToolKindFunction:
		if d.Function == nil {
			return NewValidationError("function tool descriptor has no function definition")
		}
		if d.Function.Name == "" {
			return NewValidationError("function tool descriptor has an empty name")
		}
	case ToolKindWebSearch:
		if d.WebSearch == nil {
			return NewValidationError("web_search tool descriptor has no configuration")
		}
	case ToolKindCodeExecution:
		if d.CodeExecution == nil {
			return NewValidationError("code_execution tool descriptor has no configuration")
		}
	case ToolKindRetrieval:
		if d.Retrieval == nil || len(d.Retrieval.StoreIDs) == 0 {
			return NewValidationError("retrieval tool descriptor has no store ids")
		}
	case ToolKindRemoteServer:
		if d.RemoteServer == nil || d.RemoteServer.URL == "" {
			return NewValidationError("remote_server tool descriptor has no URL")
		}
		if !strings.HasPrefix(strings.ToLower(d.RemoteServer.URL), "https://") {
			return NewValidationError("remote_server URL must use https: " + d.RemoteServer.URL)
		}
	case ToolKindImageGeneration:
		if d.ImageGeneration == nil {
			return NewValidationError("image_generation tool descriptor has no configuration")
		}
	default:
		return NewValidationError("unknown tool kind: " + string(d.Kind))
	}
	return nil
}

// ValidateTools validates every descriptor in the slice, returning the first failure.
func ValidateTools(tools []ToolDescriptor) error {
	for _, tool := range tools {
		if err := tool.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ExecutionResult is the standardized outcome returned by a tool executor.
type ExecutionResult struct {
	Success bool   `json:"success"`
	Result  string `json:"result,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Content returns the payload that should be fed back to the model: the result
// on success, or the error string on failure. Failures are data, not errors,
// so one failing tool never terminates a conversation.
func (r ExecutionResult) Content() string {
	if r.Success {
		return r.Result
	}
	if r.Error != "" {
		return "error: " + r.Error
	}
	return "error: tool execution failed"
}

// ToJSON converts the ExecutionResult to a JSON string.
func (r ExecutionResult) ToJSON() (string, error) {
	encoded, err := json.Marshal(r)
	if err != nil {
		return "", err
	}
	return string(encoded), nil
}
