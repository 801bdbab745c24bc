package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/minechat/llmbridge/providers/ai"
)

func TestComplete_Responses(t *testing.T) {
	var captured responseCreateRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("expected Bearer auth, got %q", got)
		}
		if r.URL.Path != "/responses" {
			t.Errorf("expected /responses path, got %q", r.URL.Path)
		}

		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &captured); err != nil {
			t.Errorf("request body not valid JSON: %v", err)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "resp_1",
			"object": "response",
			"model": "gpt-4o",
			"status": "completed",
			"output": [
				{"type": "message", "role": "assistant", "content": [{"type": "output_text", "text": "4"}]}
			],
			"usage": {"input_tokens": 12, "output_tokens": 1, "total_tokens": 13}
		}`))
	}))
	defer server.Close()

	provider := New()
	provider.WithAPIKey("test-key").WithBaseURL(server.URL).WithHttpClient(server.Client())

	result, err := provider.Complete(context.Background(), ai.ChatRequest{
		Model: "gpt-4o",
		Messages: []ai.Message{
			{Role: ai.RoleSystem, Text: "You are a calculator."},
			{Role: ai.RoleUser, Text: "2+2"},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if captured.Instructions != "You are a calculator." {
		t.Errorf("expected instructions hoisted on the wire, got %q", captured.Instructions)
	}
	if captured.Stream {
		t.Error("expected stream=false on Complete")
	}

	choice := result.First()
	if choice == nil || choice.Message.Text != "4" {
		t.Fatalf("expected text 4, got %+v", result)
	}
	if choice.FinishReason != ai.FinishStop {
		t.Errorf("expected stop, got %q", choice.FinishReason)
	}
	if result.Usage == nil || result.Usage.TotalTokens != 13 {
		t.Errorf("expected usage, got %+v", result.Usage)
	}
}

func TestComplete_MissingKey(t *testing.T) {
	provider := New()
	provider.WithAPIKey("").WithBaseURL("http://localhost:0")

	_, err := provider.Complete(context.Background(), ai.ChatRequest{
		Model:    "gpt-4o",
		Messages: []ai.Message{{Role: ai.RoleUser, Text: "hi"}},
	})

	var providerErr *ai.ProviderError
	if !errors.As(err, &providerErr) || providerErr.Kind != ai.ErrorKindAuth {
		t.Fatalf("expected auth error before any network call, got %v", err)
	}
	if providerErr.Retryable() {
		t.Error("auth errors must not be retryable")
	}
}

func TestComplete_PerRequestKeyOverride(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer request-key" {
			t.Errorf("expected per-request key, got %q", got)
		}
		w.Write([]byte(`{"id":"resp_1","status":"completed","output":[]}`))
	}))
	defer server.Close()

	provider := New()
	provider.WithAPIKey("configured-key").WithBaseURL(server.URL).WithHttpClient(server.Client())

	_, err := provider.Complete(context.Background(), ai.ChatRequest{
		Model:    "gpt-4o",
		Messages: []ai.Message{{Role: ai.RoleUser, Text: "hi"}},
		Options:  ai.Options{APIKey: "request-key"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestComplete_AuthStatusClassified(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"Incorrect API key provided"}}`))
	}))
	defer server.Close()

	provider := New()
	provider.WithAPIKey("bad-key").WithBaseURL(server.URL).WithHttpClient(server.Client())

	_, err := provider.Complete(context.Background(), ai.ChatRequest{
		Model:    "gpt-4o",
		Messages: []ai.Message{{Role: ai.RoleUser, Text: "hi"}},
	})

	var providerErr *ai.ProviderError
	if !errors.As(err, &providerErr) || providerErr.Kind != ai.ErrorKindAuth {
		t.Fatalf("expected auth classification for 401, got %v", err)
	}
	if providerErr.StatusCode != 401 {
		t.Errorf("expected status 401, got %d", providerErr.StatusCode)
	}
}

func TestComplete_Chat(t *testing.T) {
	var captured chatCompletionRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("expected /chat/completions path, got %q", r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &captured); err != nil {
			t.Errorf("request body not valid JSON: %v", err)
		}

		w.Write([]byte(`{
			"id": "chatcmpl_1",
			"model": "gpt-4o-mini",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "4"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 9, "completion_tokens": 1, "total_tokens": 10}
		}`))
	}))
	defer server.Close()

	provider := NewChat()
	provider.WithAPIKey("test-key").WithBaseURL(server.URL).WithHttpClient(server.Client())

	result, err := provider.Complete(context.Background(), ai.ChatRequest{
		Model:    "gpt-4o-mini",
		Messages: []ai.Message{{Role: ai.RoleUser, Text: "2+2"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if captured.Model != "gpt-4o-mini" || captured.Stream {
		t.Errorf("unexpected wire request: %+v", captured)
	}
	if result.First().Message.Text != "4" || result.First().FinishReason != ai.FinishStop {
		t.Errorf("unexpected result: %+v", result.First())
	}
}

func TestComplete_CompatibleReducedMode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"id": "cmpl_1",
			"model": "llama-3.1-70b",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "hello"}, "finish_reason": "stop"}]
		}`))
	}))
	defer server.Close()

	provider := NewCompatible(server.URL)
	provider.WithAPIKey("local-key").WithHttpClient(server.Client())

	result, err := provider.Complete(context.Background(), ai.ChatRequest{
		Model:    "llama-3.1-70b",
		Messages: []ai.Message{{Role: ai.RoleUser, Text: "hi"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Provider != ai.ProviderOpenAICompatible {
		t.Errorf("expected openai_compatible provider id, got %q", result.Provider)
	}

	// The same endpoint must reject tool-bearing requests before the network.
	_, err = provider.Complete(context.Background(), ai.ChatRequest{
		Model:    "llama-3.1-70b",
		Messages: []ai.Message{{Role: ai.RoleUser, Text: "hi"}},
		Tools: []ai.ToolDescriptor{
			{Kind: ai.ToolKindFunction, Function: &ai.FunctionTool{Name: "calculate"}},
		},
	})
	var providerErr *ai.ProviderError
	if !errors.As(err, &providerErr) || providerErr.Kind != ai.ErrorKindValidation {
		t.Fatalf("expected validation error for tools in reduced mode, got %v", err)
	}
}
