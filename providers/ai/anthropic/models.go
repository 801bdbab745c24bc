package anthropic

import "encoding/json"

/*
	ANTHROPIC MESSAGES API - REQUEST TYPES
*/

// anthropicRequest represents the request body for Anthropic's Messages API.
type anthropicRequest struct {
	Model       string                   `json:"model"`
	Messages    []anthropicMessage       `json:"messages"`
	System      string                   `json:"system,omitempty"`
	MaxTokens   int                      `json:"max_tokens"` // Required by Anthropic on every request
	Temperature *float64                 `json:"temperature,omitempty"`
	Tools       []anthropicTool          `json:"tools,omitempty"`
	MCPServers  []anthropicMCPServer     `json:"mcp_servers,omitempty"`
	Stream      bool                     `json:"stream,omitempty"`
	Thinking    *anthropicThinkingConfig `json:"thinking,omitempty"`
}

// anthropicThinkingConfig enables extended thinking with an explicit token
// budget. Anthropic requires the budget whenever thinking is enabled.
type anthropicThinkingConfig struct {
	Type         string `json:"type"` // "enabled"
	BudgetTokens int    `json:"budget_tokens"`
}

// anthropicMessage represents a single message in the conversation.
type anthropicMessage struct {
	Role    string                  `json:"role"`    // "user" or "assistant"
	Content []anthropicContentBlock `json:"content"` // Array of content blocks
}

// anthropicContentBlock is a discriminated union via the Type field.
// Depending on Type, different fields are populated:
//   - "text": Text
//   - "image": Source
//   - "document": Source
//   - "tool_use": ID, Name, Input
//   - "tool_result": ToolUseID, Content, IsError
//   - "thinking": Thinking
type anthropicContentBlock struct {
	Type      string           `json:"type"`
	Text      string           `json:"text,omitempty"`
	Source    *anthropicSource `json:"source,omitempty"`      // For image and document types
	ID        string           `json:"id,omitempty"`          // For tool_use
	Name      string           `json:"name,omitempty"`        // For tool_use
	Input     json.RawMessage  `json:"input,omitempty"`       // For tool_use (arbitrary JSON)
	ToolUseID string           `json:"tool_use_id,omitempty"` // For tool_result
	Content   json.RawMessage  `json:"content,omitempty"`     // For tool_result (string or content blocks)
	IsError   bool             `json:"is_error,omitempty"`    // For tool_result
	Thinking  string           `json:"thinking,omitempty"`    // For thinking blocks
}

// anthropicSource represents a media source carried inline as base64.
type anthropicSource struct {
	Type      string `json:"type"` // "base64"
	MediaType string `json:"media_type,omitempty"`
	Data      string `json:"data,omitempty"`
}

// anthropicTool is a discriminated union over caller-defined functions and
// Anthropic server tools.
//   - Function tools: Name, Description, InputSchema (Type empty)
//   - Web search: Type="web_search_20250305", Name="web_search", UserLocation
//   - Code execution: Type="code_execution_20250522", Name="code_execution"
type anthropicTool struct {
	Type         string             `json:"type,omitempty"`
	Name         string             `json:"name"`
	Description  string             `json:"description,omitempty"`
	InputSchema  json.RawMessage    `json:"input_schema,omitempty"`
	UserLocation *anthropicLocation `json:"user_location,omitempty"`
}

// anthropicLocation scopes web search results to an approximate location.
type anthropicLocation struct {
	Type string `json:"type"` // "approximate"
	City string `json:"city,omitempty"`
}

// anthropicMCPServer declares a remote MCP server via Anthropic's connector.
type anthropicMCPServer struct {
	Type              string                `json:"type"` // "url"
	URL               string                `json:"url"`
	Name              string                `json:"name"`
	ToolConfiguration *anthropicMCPToolConf `json:"tool_configuration,omitempty"`
}

// anthropicMCPToolConf restricts which tools a remote server may expose.
type anthropicMCPToolConf struct {
	Enabled      bool     `json:"enabled"`
	AllowedTools []string `json:"allowed_tools,omitempty"`
}

/*
	ANTHROPIC MESSAGES API - RESPONSE TYPES
*/

// anthropicResponse represents the response from Anthropic's Messages API.
type anthropicResponse struct {
	ID         string                 `json:"id"`
	Type       string                 `json:"type"` // "message"
	Role       string                 `json:"role"` // "assistant"
	Content    []responseContentBlock `json:"content"`
	Model      string                 `json:"model"`
	StopReason string                 `json:"stop_reason"`
	Usage      anthropicUsage         `json:"usage"`
}

// responseContentBlock represents a content block in the response. The Type
// field discriminates between text, thinking, tool_use, mcp_tool_use, and
// mcp_tool_result blocks. Unknown type values are silently ignored during
// conversion for forward-compatibility.
type responseContentBlock struct {
	Type        string              `json:"type"`
	Text        string              `json:"text,omitempty"`      // For type="text"
	Citations   []responseCitation  `json:"citations,omitempty"` // For type="text"
	Thinking    string              `json:"thinking,omitempty"`  // For type="thinking"
	ID          string              `json:"id,omitempty"`        // For tool_use / mcp_tool_use
	Name        string              `json:"name,omitempty"`      // For tool_use / mcp_tool_use
	Input       json.RawMessage     `json:"input,omitempty"`     // For tool_use / mcp_tool_use
	ServerName  string              `json:"server_name,omitempty"`
	ToolUseID   string              `json:"tool_use_id,omitempty"` // For mcp_tool_result
	IsError     bool                `json:"is_error,omitempty"`    // For mcp_tool_result
	ToolContent []mcpResultContent  `json:"content,omitempty"`     // For mcp_tool_result
}

// mcpResultContent is one output block inside an mcp_tool_result.
type mcpResultContent struct {
	Type string `json:"type"` // "text"
	Text string `json:"text,omitempty"`
}

// responseCitation is a source reference attached to a text block.
type responseCitation struct {
	Type           string `json:"type"`
	URL            string `json:"url,omitempty"`
	Title          string `json:"title,omitempty"`
	StartCharIndex int    `json:"start_char_index,omitempty"`
	EndCharIndex   int    `json:"end_char_index,omitempty"`
}

// anthropicUsage reports token consumption for a single request.
type anthropicUsage struct {
	InputTokens              int `json:"input_tokens"`
	OutputTokens             int `json:"output_tokens"`
	CacheCreationInputTokens int `json:"cache_creation_input_tokens,omitempty"`
	CacheReadInputTokens     int `json:"cache_read_input_tokens,omitempty"`
}
