package server

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/minechat/llmbridge/providers/ai"
)

// completionRequest is the wire shape accepted by the completion and stream
// endpoints. The api_key field lets callers bring their own credential per
// request; it is copied into the canonical options and never echoed back.
type completionRequest struct {
	Provider string              `json:"provider"`
	Model    string              `json:"model"`
	Messages []ai.Message        `json:"messages"`
	Tools    []ai.ToolDescriptor `json:"tools,omitempty"`
	Options  ai.Options          `json:"options"`
	APIKey   string              `json:"api_key,omitempty"`

	// UseBuiltinTools attaches the server's built-in toolset and routes the
	// request through the tool-calling loop.
	UseBuiltinTools bool `json:"use_builtin_tools,omitempty"`
}

// completionResponse wraps the canonical result. Messages is populated only
// for tool-loop requests and carries the extended conversation history.
type completionResponse struct {
	Result   *ai.CompletionResult `json:"result"`
	Messages []ai.Message         `json:"messages,omitempty"`
}

func parseProvider(name string) (ai.ProviderID, error) {
	switch ai.ProviderID(name) {
	case ai.ProviderOpenAI, ai.ProviderAnthropic, ai.ProviderGoogle, ai.ProviderOpenAICompatible:
		return ai.ProviderID(name), nil
	default:
		return "", fmt.Errorf("unknown provider %q", name)
	}
}

// toChatRequest validates the wire request and converts it to the canonical
// form the orchestrator accepts.
func (r completionRequest) toChatRequest() (ai.ProviderID, ai.ChatRequest, error) {
	provider, err := parseProvider(r.Provider)
	if err != nil {
		return "", ai.ChatRequest{}, requestError{
			Status:  http.StatusBadRequest,
			Message: err.Error(),
			Type:    "invalid_request_error",
		}
	}

	if r.Model == "" {
		return "", ai.ChatRequest{}, requestError{
			Status:  http.StatusBadRequest,
			Message: "model is required",
			Type:    "invalid_request_error",
		}
	}
	if len(r.Messages) == 0 {
		return "", ai.ChatRequest{}, requestError{
			Status:  http.StatusBadRequest,
			Message: "messages must not be empty",
			Type:    "invalid_request_error",
		}
	}

	options := r.Options
	options.APIKey = r.APIKey

	return provider, ai.ChatRequest{
		Model:    r.Model,
		Messages: r.Messages,
		Tools:    r.Tools,
		Options:  options,
	}, nil
}

func (s *Server) handleCompletion(c echo.Context) error {
	var req completionRequest
	if err := decodeRequestBody(c, &req); err != nil {
		return err
	}

	provider, chatReq, err := req.toChatRequest()
	if err != nil {
		return err
	}

	ctx := c.Request().Context()

	if req.UseBuiltinTools {
		chatReq.Tools = append(chatReq.Tools, s.builtinTools...)

		result, messages, err := s.toolRunner.Run(ctx, provider, chatReq)
		if err != nil {
			return toHTTPError(err)
		}
		return c.JSON(http.StatusOK, completionResponse{Result: result, Messages: messages})
	}

	result, err := s.completer.Complete(ctx, provider, chatReq)
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, completionResponse{Result: result})
}

func (s *Server) handleStream(c echo.Context) error {
	var req completionRequest
	if err := decodeRequestBody(c, &req); err != nil {
		return err
	}

	provider, chatReq, err := req.toChatRequest()
	if err != nil {
		return err
	}
	chatReq.Options.Stream = true

	ctx := c.Request().Context()

	stream, err := s.completer.Stream(ctx, provider, chatReq)
	if err != nil {
		return toHTTPError(err)
	}

	writer := c.Response().Writer
	flusher, ok := writer.(http.Flusher)
	if !ok {
		slog.Error("http writer does not support flushing")
		return requestError{
			Status:  http.StatusInternalServerError,
			Message: "server does not support streaming responses",
			Type:    "server_error",
		}
	}

	header := c.Response().Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")

	c.Response().WriteHeader(http.StatusOK)

	for chunk, err := range stream.Iter() {
		if err != nil {
			// Headers are already out, so the failure rides the stream as a
			// terminal error chunk instead of an HTTP status.
			errorChunk := ai.DeltaChunk{
				Type:  ai.ChunkError,
				Error: ai.ClassifyError("", err).UserMessage(),
			}
			if writeErr := writeSSEEvent(writer, string(ai.ChunkError), errorChunk); writeErr != nil {
				slog.Error("failed to write SSE error event", "err", writeErr)
			}
			flusher.Flush()
			return nil
		}

		if err := writeSSEEvent(writer, string(chunk.Type), chunk); err != nil {
			slog.Error("failed to write SSE event", "type", chunk.Type, "err", err)
			return nil
		}
		flusher.Flush()
	}

	return nil
}

func (s *Server) handleProviders(c echo.Context) error {
	catalog := s.completer.Providers(c.Request().Context())
	return c.JSON(http.StatusOK, map[string]any{"providers": catalog})
}
