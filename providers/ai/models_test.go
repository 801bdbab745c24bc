package ai

import (
	"errors"
	"strings"
	"testing"
)

func TestToolDescriptorValidate(t *testing.T) {
	tests := []struct {
		name       string
		descriptor ToolDescriptor
		wantErr    string
	}{
		{
			name:       "valid function",
			descriptor: ToolDescriptor{Kind: ToolKindFunction, Function: &FunctionTool{Name: "get_weather"}},
		},
		{
			name:       "function without definition",
			descriptor: ToolDescriptor{Kind: ToolKindFunction},
			wantErr:    "no function definition",
		},
		{
			name:       "function with empty name",
			descriptor: ToolDescriptor{Kind: ToolKindFunction, Function: &FunctionTool{}},
			wantErr:    "empty name",
		},
		{
			name:       "valid web search",
			descriptor: ToolDescriptor{Kind: ToolKindWebSearch, WebSearch: &WebSearchTool{}},
		},
		{
			name:       "retrieval without stores",
			descriptor: ToolDescriptor{Kind: ToolKindRetrieval, Retrieval: &RetrievalTool{}},
			wantErr:    "no store ids",
		},
		{
			name: "valid remote server",
			descriptor: ToolDescriptor{Kind: ToolKindRemoteServer, RemoteServer: &RemoteServerTool{
				Label: "docs", URL: "https://mcp.example.com",
			}},
		},
		{
			name: "insecure remote server",
			descriptor: ToolDescriptor{Kind: ToolKindRemoteServer, RemoteServer: &RemoteServerTool{
				Label: "docs", URL: "http://mcp.example.com",
			}},
			wantErr: "must use https",
		},
		{
			name:       "unknown kind",
			descriptor: ToolDescriptor{Kind: ToolKind("telepathy")},
			wantErr:    "unknown tool kind",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.descriptor.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidateTools_ReturnsFirstFailure(t *testing.T) {
	tools := []ToolDescriptor{
		{Kind: ToolKindFunction, Function: &FunctionTool{Name: "ok"}},
		{Kind: ToolKindRemoteServer, RemoteServer: &RemoteServerTool{URL: "http://insecure"}},
	}

	err := ValidateTools(tools)
	if err == nil || !strings.Contains(err.Error(), "https") {
		t.Fatalf("expected https validation failure, got %v", err)
	}

	var providerErr *ProviderError
	if !errors.As(err, &providerErr) || providerErr.Kind != ErrorKindValidation {
		t.Fatalf("expected validation kind, got %v", err)
	}
	if providerErr.Retryable() {
		t.Error("validation errors must not be retryable")
	}
}

func TestCompletionResultAccessors(t *testing.T) {
	var nilResult *CompletionResult
	if nilResult.First() != nil {
		t.Error("expected nil choice on nil result")
	}
	if nilResult.PendingToolCalls() != nil {
		t.Error("expected nil pending calls on nil result")
	}

	empty := &CompletionResult{}
	if empty.First() != nil {
		t.Error("expected nil choice on empty result")
	}

	withCalls := &CompletionResult{Choices: []Choice{{
		Message: AssistantMessage{ToolCalls: []ToolCall{{ID: "call_1"}}},
	}}}
	if calls := withCalls.PendingToolCalls(); len(calls) != 1 || calls[0].ID != "call_1" {
		t.Errorf("unexpected pending calls: %+v", calls)
	}
}

func TestExecutionResultContent(t *testing.T) {
	tests := []struct {
		name   string
		result ExecutionResult
		want   string
	}{
		{"success", ExecutionResult{Success: true, Result: `{"ok":true}`}, `{"ok":true}`},
		{"failure", ExecutionResult{Error: "division by zero"}, "error: division by zero"},
		{"failure without message", ExecutionResult{}, "error: tool execution failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.result.Content(); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}
