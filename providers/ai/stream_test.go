package ai

import (
	"errors"
	"testing"
)

func chunkStream(chunks []DeltaChunk, terminal error) *ChatStream {
	return NewChatStream(func(yield func(DeltaChunk, error) bool) {
		for _, chunk := range chunks {
			if !yield(chunk, nil) {
				return
			}
		}
		if terminal != nil {
			yield(DeltaChunk{}, terminal)
		}
	})
}

func TestCollect_AssemblesTextAndUsage(t *testing.T) {
	stream := chunkStream([]DeltaChunk{
		{Type: ChunkReasoning, Reasoning: "thinking "},
		{Type: ChunkReasoning, Reasoning: "harder"},
		{Type: ChunkText, Text: "Hel"},
		{Type: ChunkText, Text: "lo"},
		{Type: ChunkCitation, Citation: &Citation{URL: "https://example.com"}},
		{Type: ChunkDone, FinishReason: FinishStop, Usage: &Usage{TotalTokens: 9}},
	}, nil)

	result, err := stream.Collect()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	choice := result.First()
	if choice.Message.Text != "Hello" {
		t.Errorf("expected accumulated text, got %q", choice.Message.Text)
	}
	if choice.Message.ReasoningText != "thinking harder" {
		t.Errorf("expected accumulated reasoning, got %q", choice.Message.ReasoningText)
	}
	if len(choice.Message.Citations) != 1 || choice.Message.Citations[0].URL != "https://example.com" {
		t.Errorf("unexpected citations: %+v", choice.Message.Citations)
	}
	if choice.FinishReason != FinishStop {
		t.Errorf("expected stop finish, got %q", choice.FinishReason)
	}
	if result.Usage == nil || result.Usage.TotalTokens != 9 {
		t.Errorf("unexpected usage: %+v", result.Usage)
	}
}

func TestCollect_ReassemblesToolCalls(t *testing.T) {
	stream := chunkStream([]DeltaChunk{
		{Type: ChunkToolCall, ToolCall: &ToolCallDelta{Index: 0, ID: "call_1", Name: "get_weather"}},
		{Type: ChunkToolCall, ToolCall: &ToolCallDelta{Index: 0, Arguments: `{"city":`}},
		{Type: ChunkToolCall, ToolCall: &ToolCallDelta{Index: 1, ID: "call_2", Name: "calculate", Arguments: `{"a":1}`}},
		{Type: ChunkToolCall, ToolCall: &ToolCallDelta{Index: 0, Arguments: `"Oslo"}`}},
		{Type: ChunkDone, FinishReason: FinishToolCalls},
	}, nil)

	result, err := stream.Collect()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	calls := result.PendingToolCalls()
	if len(calls) != 2 {
		t.Fatalf("expected 2 reassembled calls, got %d", len(calls))
	}
	if calls[0].ID != "call_1" || calls[0].Function.Arguments != `{"city":"Oslo"}` {
		t.Errorf("unexpected first call: %+v", calls[0])
	}
	if calls[1].Function.Name != "calculate" || calls[1].Function.Arguments != `{"a":1}` {
		t.Errorf("unexpected second call: %+v", calls[1])
	}
}

func TestCollect_PromotesFinishReasonForToolCalls(t *testing.T) {
	// Some back-ends report a plain stop even when the turn requested tools.
	stream := chunkStream([]DeltaChunk{
		{Type: ChunkToolCall, ToolCall: &ToolCallDelta{Index: 0, ID: "call_1", Name: "get_weather", Arguments: `{}`}},
		{Type: ChunkDone, FinishReason: FinishStop},
	}, nil)

	result, err := stream.Collect()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.First().FinishReason != FinishToolCalls {
		t.Errorf("expected finish promoted to tool_calls, got %q", result.First().FinishReason)
	}
}

func TestCollect_KeepsPartialResultOnError(t *testing.T) {
	terminal := errors.New("connection dropped")
	stream := chunkStream([]DeltaChunk{
		{Type: ChunkText, Text: "partial answer"},
	}, terminal)

	result, err := stream.Collect()
	if !errors.Is(err, terminal) {
		t.Fatalf("expected terminal error, got %v", err)
	}
	if result == nil || result.First().Message.Text != "partial answer" {
		t.Errorf("expected partial text preserved, got %+v", result)
	}
}

func TestNewSingleChunkStream(t *testing.T) {
	result := &CompletionResult{
		Choices: []Choice{{
			Message: AssistantMessage{
				Role:          RoleAssistant,
				Text:          "The answer is 4.",
				ReasoningText: "2+2",
				ToolCalls: []ToolCall{
					{ID: "call_1", Type: "function", Function: ToolCallFunction{Name: "calculate", Arguments: `{}`}},
				},
				Citations: []Citation{{URL: "https://example.com"}},
			},
			FinishReason: FinishToolCalls,
		}},
		Usage: &Usage{TotalTokens: 12},
	}

	var types []ChunkType
	var textChunks int
	var done DeltaChunk
	for chunk, err := range NewSingleChunkStream(result).Iter() {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		types = append(types, chunk.Type)
		if chunk.Type == ChunkText {
			textChunks++
		}
		if chunk.Type == ChunkDone {
			done = chunk
		}
	}

	want := []ChunkType{ChunkReasoning, ChunkText, ChunkToolCall, ChunkCitation, ChunkDone}
	if len(types) != len(want) {
		t.Fatalf("expected %v, got %v", want, types)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, types)
		}
	}
	if textChunks != 1 {
		t.Errorf("expected exactly one text chunk, got %d", textChunks)
	}
	if done.FinishReason != FinishToolCalls || done.Usage == nil || done.Usage.TotalTokens != 12 {
		t.Errorf("unexpected done chunk: %+v", done)
	}
}

func TestNewSingleChunkStream_EmptyResult(t *testing.T) {
	var chunks []DeltaChunk
	for chunk, err := range NewSingleChunkStream(&CompletionResult{}).Iter() {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		chunks = append(chunks, chunk)
	}

	if len(chunks) != 1 || chunks[0].Type != ChunkDone || chunks[0].FinishReason != FinishStop {
		t.Errorf("expected lone done chunk, got %+v", chunks)
	}
}
