package gemini

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/minechat/llmbridge/providers/ai"
)

func newStreamServer(t *testing.T, events string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("x-goog-api-key"); got != "test-key" {
			t.Errorf("expected x-goog-api-key header, got %q", got)
		}
		if !strings.Contains(r.URL.String(), "streamGenerateContent") || r.URL.Query().Get("alt") != "sse" {
			t.Errorf("unexpected stream URL: %s", r.URL.String())
		}
		w.Header().Set("Content-Type", "text/event-stream")
		w.Write([]byte(events))
	}))
}

func TestStream_IncrementalTextDeltas(t *testing.T) {
	// Each Gemini event carries only the text produced since the previous
	// event; concatenating the forwarded deltas must rebuild the full answer.
	events := "" +
		"data: {\"candidates\":[{\"content\":{\"role\":\"model\",\"parts\":[{\"text\":\"Hel\"}]}}]}\n\n" +
		"data: {\"candidates\":[{\"content\":{\"role\":\"model\",\"parts\":[{\"text\":\"lo wor\"}]}}]}\n\n" +
		"data: {\"candidates\":[{\"content\":{\"role\":\"model\",\"parts\":[{\"text\":\"ld\"}]},\"finishReason\":\"STOP\"}],\"usageMetadata\":{\"promptTokenCount\":3,\"candidatesTokenCount\":2,\"totalTokenCount\":5}}\n\n"

	server := newStreamServer(t, events)
	defer server.Close()

	provider := New()
	provider.WithAPIKey("test-key").WithBaseURL(server.URL).WithHttpClient(server.Client())

	stream, err := provider.Stream(context.Background(), ai.ChatRequest{
		Model:    "gemini-2.0-flash",
		Messages: []ai.Message{{Role: ai.RoleUser, Text: "greet the world"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var deltas []string
	var finish ai.FinishReason
	for chunk, chunkErr := range stream.Iter() {
		if chunkErr != nil {
			t.Fatalf("unexpected stream error: %v", chunkErr)
		}
		switch chunk.Type {
		case ai.ChunkText:
			deltas = append(deltas, chunk.Text)
		case ai.ChunkDone:
			finish = chunk.FinishReason
			if chunk.Usage == nil || chunk.Usage.TotalTokens != 5 {
				t.Errorf("expected usage forwarded on done, got %+v", chunk.Usage)
			}
		}
	}

	if strings.Join(deltas, "") != "Hello world" {
		t.Errorf("expected reconstructed text, got %q from %v", strings.Join(deltas, ""), deltas)
	}
	if len(deltas) != 3 {
		t.Errorf("expected 3 incremental deltas, got %d", len(deltas))
	}
	if finish != ai.FinishStop {
		t.Errorf("expected stop, got %q", finish)
	}
}

func TestStream_FunctionCallChunk(t *testing.T) {
	events := "" +
		"data: {\"candidates\":[{\"content\":{\"role\":\"model\",\"parts\":[{\"functionCall\":{\"name\":\"get_weather\",\"args\":{\"city\":\"Oslo\"}}}]},\"finishReason\":\"STOP\"}]}\n\n"

	server := newStreamServer(t, events)
	defer server.Close()

	provider := New()
	provider.WithAPIKey("test-key").WithBaseURL(server.URL).WithHttpClient(server.Client())

	stream, err := provider.Stream(context.Background(), ai.ChatRequest{
		Model:    "gemini-2.0-flash",
		Messages: []ai.Message{{Role: ai.RoleUser, Text: "weather in oslo"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result, err := stream.Collect()
	if err != nil {
		t.Fatalf("unexpected collect error: %v", err)
	}

	calls := result.PendingToolCalls()
	if len(calls) != 1 || calls[0].Function.Name != "get_weather" {
		t.Fatalf("expected one tool call, got %+v", calls)
	}
	if result.Choices[0].FinishReason != ai.FinishToolCalls {
		t.Errorf("expected tool_calls promotion, got %q", result.Choices[0].FinishReason)
	}
}
