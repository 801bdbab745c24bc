package openai

import (
	"testing"

	"github.com/minechat/llmbridge/internal/utils"
	"github.com/minechat/llmbridge/providers/ai"
)

func TestRequestToResponses_InstructionsHoist(t *testing.T) {
	req := requestToResponses(ai.ChatRequest{
		Model: "gpt-4o",
		Messages: []ai.Message{
			{Role: ai.RoleSystem, Text: "Be terse."},
			{Role: ai.RoleSystem, Text: "Answer in English."},
			{Role: ai.RoleUser, Text: "hello"},
		},
	})

	if req.Instructions != "Be terse.\n\nAnswer in English." {
		t.Errorf("expected joined instructions, got %q", req.Instructions)
	}
	if len(req.Input) != 1 {
		t.Fatalf("expected 1 input item, got %d", len(req.Input))
	}
	if req.Input[0].Role != "user" || req.Input[0].Content[0].Text != "hello" {
		t.Errorf("unexpected input item: %+v", req.Input[0])
	}
}

func TestRequestToResponses_ToolHistoryRoundTrip(t *testing.T) {
	req := requestToResponses(ai.ChatRequest{
		Model: "gpt-4o",
		Messages: []ai.Message{
			{Role: ai.RoleUser, Text: "what time is it?"},
			{Role: ai.RoleAssistant, ToolCalls: []ai.ToolCall{
				{ID: "call_abc", Type: "function", Function: ai.ToolCallFunction{Name: "get_current_time", Arguments: `{"timezone":"UTC"}`}},
			}},
			{Role: ai.RoleTool, ToolResults: []ai.ToolResult{
				{CallID: "call_abc", Name: "get_current_time", Content: "12:00 UTC"},
			}},
		},
	})

	if len(req.Input) != 3 {
		t.Fatalf("expected 3 input items, got %d", len(req.Input))
	}

	call := req.Input[1]
	if call.Type != "function_call" || call.CallID != "call_abc" || call.Name != "get_current_time" {
		t.Errorf("unexpected function_call item: %+v", call)
	}

	output := req.Input[2]
	if output.Type != "function_call_output" || output.CallID != "call_abc" || output.Output != "12:00 UTC" {
		t.Errorf("unexpected function_call_output item: %+v", output)
	}
}

func TestRequestToResponses_Defaults(t *testing.T) {
	req := requestToResponses(ai.ChatRequest{
		Model:    "gpt-4o",
		Messages: []ai.Message{{Role: ai.RoleUser, Text: "hi"}},
	})

	if req.MaxOutputTokens == nil || *req.MaxOutputTokens != 4000 {
		t.Errorf("expected default max tokens, got %v", req.MaxOutputTokens)
	}
	if req.Temperature == nil || *req.Temperature != 0.7 {
		t.Errorf("expected default temperature, got %v", req.Temperature)
	}
	if req.Reasoning != nil {
		t.Errorf("expected no reasoning config for gpt-4o without thinking, got %+v", req.Reasoning)
	}
}

func TestRequestToResponses_FixedTemperatureOmitted(t *testing.T) {
	req := requestToResponses(ai.ChatRequest{
		Model:    "gpt-5",
		Messages: []ai.Message{{Role: ai.RoleUser, Text: "hi"}},
		Options:  ai.Options{Temperature: utils.Ptr(0.2)},
	})

	if req.Temperature != nil {
		t.Errorf("expected temperature omitted for gpt-5, got %v", *req.Temperature)
	}
	if req.Reasoning == nil || req.Reasoning.Effort != "medium" {
		t.Errorf("expected reasoning config defaulted for reasoning family, got %+v", req.Reasoning)
	}
}

func TestRequestToResponses_ReasoningConfig(t *testing.T) {
	req := requestToResponses(ai.ChatRequest{
		Model:    "gpt-4o",
		Messages: []ai.Message{{Role: ai.RoleUser, Text: "hi"}},
		Options: ai.Options{
			ThinkingEnabled:  true,
			ReasoningEffort:  ai.EffortMinimal,
			ReasoningSummary: ai.SummaryDetailed,
		},
	})

	if req.Reasoning == nil {
		t.Fatal("expected reasoning config")
	}
	// Responses is the one surface where "minimal" goes through untranslated.
	if req.Reasoning.Effort != "minimal" {
		t.Errorf("expected minimal effort, got %q", req.Reasoning.Effort)
	}
	if req.Reasoning.Summary != "detailed" {
		t.Errorf("expected detailed summary, got %q", req.Reasoning.Summary)
	}
}

func TestBuildResponsesTools_AllVariants(t *testing.T) {
	tools := buildResponsesTools([]ai.ToolDescriptor{
		{Kind: ai.ToolKindFunction, Function: &ai.FunctionTool{Name: "calculate", Strict: true}},
		{Kind: ai.ToolKindWebSearch, WebSearch: &ai.WebSearchTool{Location: "Oslo"}},
		{Kind: ai.ToolKindCodeExecution, CodeExecution: &ai.CodeExecutionTool{}},
		{Kind: ai.ToolKindRetrieval, Retrieval: &ai.RetrievalTool{StoreIDs: []string{"vs_1"}}},
		{Kind: ai.ToolKindRemoteServer, RemoteServer: &ai.RemoteServerTool{Label: "docs", URL: "https://mcp.example.com", Approval: ai.ApprovalNever}},
		{Kind: ai.ToolKindImageGeneration, ImageGeneration: &ai.ImageGenerationTool{Size: "1024x1024"}},
	}, []string{"file_1"})

	if len(tools) != 6 {
		t.Fatalf("expected 6 tools, got %d", len(tools))
	}
	if tools[0].Type != "function" || tools[0].Name != "calculate" || !tools[0].Strict {
		t.Errorf("unexpected function tool: %+v", tools[0])
	}
	if tools[1].Type != "web_search" || tools[1].UserLocation == nil || tools[1].UserLocation.City != "Oslo" {
		t.Errorf("unexpected web search tool: %+v", tools[1])
	}
	if tools[2].Type != "code_interpreter" || tools[2].Container == nil || tools[2].Container.FileIDs[0] != "file_1" {
		t.Errorf("expected code file attached to interpreter container, got %+v", tools[2])
	}
	if tools[3].Type != "file_search" || tools[3].VectorStoreIDs[0] != "vs_1" {
		t.Errorf("unexpected file search tool: %+v", tools[3])
	}
	if tools[4].Type != "mcp" || tools[4].ServerLabel != "docs" || tools[4].RequireApproval != "never" {
		t.Errorf("unexpected mcp tool: %+v", tools[4])
	}
	if tools[5].Type != "image_generation" || tools[5].Size != "1024x1024" {
		t.Errorf("unexpected image generation tool: %+v", tools[5])
	}
}

func TestBuildResponsesTools_ImplicitInterpreterForCodeFiles(t *testing.T) {
	tools := buildResponsesTools(nil, []string{"file_9"})

	if len(tools) != 1 || tools[0].Type != "code_interpreter" {
		t.Fatalf("expected implicit code interpreter, got %+v", tools)
	}
	if tools[0].Container.FileIDs[0] != "file_9" {
		t.Errorf("expected file attached, got %+v", tools[0].Container)
	}
}

func TestResponsesToResult_TextAndCitations(t *testing.T) {
	result := responsesToResult(responseCreateResponse{
		ID:     "resp_1",
		Model:  "gpt-4o",
		Status: "completed",
		Output: []outputItem{
			{Type: "reasoning", Summary: []summaryItem{{Type: "summary_text", Text: "thinking about it"}}},
			{Type: "message", Role: "assistant", Content: []contentOutput{{
				Type: "output_text",
				Text: "4",
				Annotations: []annotation{
					{Type: "url_citation", Title: "Math", URL: "https://example.com/math"},
				},
			}}},
		},
		Usage: &usageDetails{InputTokens: 10, OutputTokens: 2, TotalTokens: 12},
	})

	choice := result.First()
	if choice.Message.Text != "4" {
		t.Errorf("expected text 4, got %q", choice.Message.Text)
	}
	if choice.Message.ReasoningText != "thinking about it" {
		t.Errorf("expected reasoning summary, got %q", choice.Message.ReasoningText)
	}
	if len(choice.Message.Citations) != 1 || choice.Message.Citations[0].URL != "https://example.com/math" {
		t.Errorf("expected citation, got %+v", choice.Message.Citations)
	}
	if choice.FinishReason != ai.FinishStop {
		t.Errorf("expected stop, got %q", choice.FinishReason)
	}
	if result.Usage == nil || result.Usage.TotalTokens != 12 {
		t.Errorf("expected usage, got %+v", result.Usage)
	}
}

func TestResponsesToResult_FunctionCall(t *testing.T) {
	result := responsesToResult(responseCreateResponse{
		Status: "completed",
		Output: []outputItem{
			{Type: "function_call", CallID: "call_1", Name: "get_weather", Arguments: `{"city":"Oslo"}`},
		},
	})

	calls := result.PendingToolCalls()
	if len(calls) != 1 || calls[0].ID != "call_1" || calls[0].Function.Name != "get_weather" {
		t.Fatalf("expected one tool call, got %+v", calls)
	}
	if result.Choices[0].FinishReason != ai.FinishToolCalls {
		t.Errorf("expected tool_calls, got %q", result.Choices[0].FinishReason)
	}
}

func TestResponsesToResult_ApprovalBeatsToolCalls(t *testing.T) {
	result := responsesToResult(responseCreateResponse{
		Status: "completed",
		Output: []outputItem{
			{Type: "function_call", CallID: "call_1", Name: "calculate", Arguments: "{}"},
			{Type: "mcp_approval_request", ID: "mcpr_1", ServerLabel: "docs", Name: "search"},
		},
	})

	choice := result.First()
	if choice.FinishReason != ai.FinishApprovalRequired {
		t.Errorf("expected approval_required to win, got %q", choice.FinishReason)
	}
	if len(choice.Message.MCPCalls) != 1 || choice.Message.MCPCalls[0].ApprovalRequestID != "mcpr_1" {
		t.Errorf("expected approval request surfaced, got %+v", choice.Message.MCPCalls)
	}
}

func TestResponsesToResult_MCPError(t *testing.T) {
	errText := "tool crashed"
	result := responsesToResult(responseCreateResponse{
		Status: "completed",
		Output: []outputItem{
			{Type: "message", Content: []contentOutput{{Type: "output_text", Text: "partial"}}},
			{Type: "mcp_call", ID: "mcpc_1", ServerLabel: "docs", Name: "search", Error: &errText},
		},
	})

	choice := result.First()
	if choice.FinishReason != ai.FinishMCPError {
		t.Errorf("expected mcp_error, got %q", choice.FinishReason)
	}
	if !choice.Message.MCPCalls[0].IsError {
		t.Error("expected MCP call flagged as error")
	}
	if choice.Message.Text != "partial" {
		t.Errorf("expected partial text preserved, got %q", choice.Message.Text)
	}
}

func TestResponsesToResult_ImageGenerationOnly(t *testing.T) {
	result := responsesToResult(responseCreateResponse{
		Status: "completed",
		Output: []outputItem{
			{Type: "image_generation_call", ID: "ig_1", Result: "aGVsbG8="},
		},
	})

	choice := result.First()
	if choice == nil {
		t.Fatal("expected a choice even without a message item")
	}
	if len(choice.Message.ImageGenerations) != 1 || choice.Message.ImageGenerations[0].Data != "aGVsbG8=" {
		t.Errorf("expected image payload, got %+v", choice.Message.ImageGenerations)
	}
	if choice.Message.Text != "" {
		t.Errorf("expected empty text, got %q", choice.Message.Text)
	}
	if choice.FinishReason != ai.FinishStop {
		t.Errorf("expected stop, got %q", choice.FinishReason)
	}
}

func TestResponsesToResult_IncompleteMaxTokens(t *testing.T) {
	result := responsesToResult(responseCreateResponse{
		Status:            "incomplete",
		IncompleteDetails: &incompleteDetails{Reason: "max_output_tokens"},
		Output: []outputItem{
			{Type: "message", Content: []contentOutput{{Type: "output_text", Text: "truncat"}}},
		},
	})

	if result.Choices[0].FinishReason != ai.FinishLength {
		t.Errorf("expected length, got %q", result.Choices[0].FinishReason)
	}
}
