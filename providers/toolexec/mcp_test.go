package toolexec

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestMCPClient_Execute(t *testing.T) {
	var captured mcpRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &captured); err != nil {
			t.Errorf("request not valid JSON-RPC: %v", err)
		}
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":{"content":[{"type":"text","text":"search results here"}]}}`))
	}))
	defer server.Close()

	client := NewMCPClient(server.URL).WithHttpClient(server.Client())

	result := client.Execute(context.Background(), call("search_docs", `{"query":"streaming"}`))
	if !result.Success {
		t.Fatalf("unexpected failure: %s", result.Error)
	}
	if result.Result != "search results here" {
		t.Errorf("unexpected result: %q", result.Result)
	}

	if captured.JSONRPC != "2.0" || captured.Method != "tools/call" {
		t.Errorf("unexpected envelope: %+v", captured)
	}
	if captured.Params.Name != "search_docs" || string(captured.Params.Arguments) != `{"query":"streaming"}` {
		t.Errorf("unexpected params: %+v", captured.Params)
	}
}

func TestMCPClient_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"error":{"code":-32601,"message":"method not found"}}`))
	}))
	defer server.Close()

	client := NewMCPClient(server.URL).WithHttpClient(server.Client())

	result := client.Execute(context.Background(), call("missing_tool", `{}`))
	if result.Success {
		t.Fatal("expected failure")
	}
	if !strings.Contains(result.Error, "method not found") {
		t.Errorf("unexpected error: %s", result.Error)
	}
}

func TestMCPClient_ToolReportedError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":{"isError":true,"content":[{"type":"text","text":"index unavailable"}]}}`))
	}))
	defer server.Close()

	client := NewMCPClient(server.URL).WithHttpClient(server.Client())

	result := client.Execute(context.Background(), call("search_docs", `{}`))
	if result.Success {
		t.Fatal("expected failure for isError result")
	}
	if result.Error != "index unavailable" {
		t.Errorf("unexpected error: %s", result.Error)
	}
}

func TestMCPClient_InvalidArgumentsDefaultToEmptyObject(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var req mcpRequest
		if err := json.Unmarshal(body, &req); err != nil {
			t.Errorf("request not valid JSON: %v", err)
		}
		if string(req.Params.Arguments) != "{}" {
			t.Errorf("expected empty object arguments, got %s", req.Params.Arguments)
		}
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":{"content":[{"type":"text","text":"ok"}]}}`))
	}))
	defer server.Close()

	client := NewMCPClient(server.URL).WithHttpClient(server.Client())

	result := client.Execute(context.Background(), call("search_docs", "not json at all"))
	if !result.Success {
		t.Fatalf("unexpected failure: %s", result.Error)
	}
}
