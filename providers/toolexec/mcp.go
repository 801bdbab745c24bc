package toolexec

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/minechat/llmbridge/providers/ai"
)

// mcpCallTimeout bounds one remote tool invocation.
const mcpCallTimeout = 30 * time.Second

// MCPClient executes tool calls against an external MCP server over JSON-RPC
// 2.0 (tools/call method). It satisfies the tool loop's Executor interface,
// so a conversation can be wired to remote tools the same way as to the
// built-in registry.
type MCPClient struct {
	endpoint string
	client   *http.Client
	timeout  time.Duration
	nextID   atomic.Int64
}

// NewMCPClient returns a client for the MCP server at endpoint.
func NewMCPClient(endpoint string) *MCPClient {
	return &MCPClient{
		endpoint: endpoint,
		client:   &http.Client{},
		timeout:  mcpCallTimeout,
	}
}

// WithHttpClient replaces the default HTTP client.
func (c *MCPClient) WithHttpClient(client *http.Client) *MCPClient {
	c.client = client
	return c
}

type mcpRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int64         `json:"id"`
	Method  string        `json:"method"`
	Params  mcpCallParams `json:"params"`
}

type mcpCallParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

type mcpResponse struct {
	Result *mcpCallResult `json:"result,omitempty"`
	Error  *mcpError      `json:"error,omitempty"`
}

type mcpCallResult struct {
	Content []mcpContent `json:"content"`
	IsError bool         `json:"isError,omitempty"`
}

type mcpContent struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type mcpError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Execute forwards one tool call as a tools/call request. Server-reported
// failures (JSON-RPC errors and isError results) come back as unsuccessful
// ExecutionResults, matching the built-in registry's contract.
func (c *MCPClient) Execute(ctx context.Context, call ai.ToolCall) ai.ExecutionResult {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	arguments := json.RawMessage(call.Function.Arguments)
	if len(arguments) == 0 || !json.Valid(arguments) {
		arguments = json.RawMessage(`{}`)
	}

	body, err := json.Marshal(mcpRequest{
		JSONRPC: "2.0",
		ID:      c.nextID.Add(1),
		Method:  "tools/call",
		Params:  mcpCallParams{Name: call.Function.Name, Arguments: arguments},
	})
	if err != nil {
		return ai.ExecutionResult{Success: false, Error: fmt.Sprintf("failed to encode request: %v", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return ai.ExecutionResult{Success: false, Error: fmt.Sprintf("invalid endpoint: %v", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return ai.ExecutionResult{Success: false, Error: fmt.Sprintf("mcp call failed: %v", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ai.ExecutionResult{Success: false, Error: fmt.Sprintf("mcp server returned status %d", resp.StatusCode)}
	}

	responseBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return ai.ExecutionResult{Success: false, Error: fmt.Sprintf("failed to read mcp response: %v", err)}
	}

	var rpcResponse mcpResponse
	if err := json.Unmarshal(responseBody, &rpcResponse); err != nil {
		return ai.ExecutionResult{Success: false, Error: fmt.Sprintf("invalid mcp response: %v", err)}
	}

	if rpcResponse.Error != nil {
		return ai.ExecutionResult{Success: false, Error: fmt.Sprintf("mcp error %d: %s", rpcResponse.Error.Code, rpcResponse.Error.Message)}
	}
	if rpcResponse.Result == nil {
		return ai.ExecutionResult{Success: false, Error: "mcp response carried neither result nor error"}
	}

	text := flattenMCPContent(rpcResponse.Result.Content)
	if rpcResponse.Result.IsError {
		return ai.ExecutionResult{Success: false, Error: text}
	}
	return ai.ExecutionResult{Success: true, Result: text}
}

// flattenMCPContent joins the text segments of a tools/call result. Non-text
// segments are skipped; MCP servers may return rich content the model cannot
// consume through a tool result string.
func flattenMCPContent(content []mcpContent) string {
	var parts []string
	for _, segment := range content {
		if segment.Type == "text" && segment.Text != "" {
			parts = append(parts, segment.Text)
		}
	}
	return strings.Join(parts, "\n")
}
