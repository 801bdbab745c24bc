// Package server exposes the completion adapter over HTTP: a synchronous
// completion endpoint, an SSE streaming endpoint, and a provider catalog.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/minechat/llmbridge/internal/config"
	"github.com/minechat/llmbridge/providers/ai"
)

const (
	maxBodyBytes        = 1 << 20 // 1 MiB
	shutdownGracePeriod = 10 * time.Second
	readTimeout         = 30 * time.Second
	idleTimeout         = 120 * time.Second
)

// Completer is the orchestrator-shaped dependency handlers dispatch through.
type Completer interface {
	Complete(ctx context.Context, provider ai.ProviderID, request ai.ChatRequest) (*ai.CompletionResult, error)
	Stream(ctx context.Context, provider ai.ProviderID, request ai.ChatRequest) (*ai.ChatStream, error)
	Providers(ctx context.Context) map[string][]string
}

// ToolRunner drives the tool-calling loop for requests that opt into the
// built-in toolset.
type ToolRunner interface {
	Run(ctx context.Context, provider ai.ProviderID, request ai.ChatRequest) (*ai.CompletionResult, []ai.Message, error)
}

// Server is the HTTP front end over the orchestrator and tool loop.
type Server struct {
	cfg          config.Config
	completer    Completer
	toolRunner   ToolRunner
	builtinTools []ai.ToolDescriptor
	app          *echo.Echo
	address      string
}

// New constructs an HTTP server wired with routing and middleware. The
// builtinTools descriptors are attached to requests that set
// use_builtin_tools.
func New(cfg config.Config, completer Completer, toolRunner ToolRunner, builtinTools []ai.ToolDescriptor) (*Server, error) {
	if completer == nil {
		return nil, errors.New("completer must not be nil")
	}
	if toolRunner == nil {
		return nil, errors.New("tool runner must not be nil")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = jsonErrorHandler

	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogLatency: true,
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			slog.Info("request",
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency_ms", v.Latency.Milliseconds(),
				"error", v.Error,
			)
			return nil
		},
	}))

	srv := &Server{
		cfg:          cfg,
		completer:    completer,
		toolRunner:   toolRunner,
		builtinTools: builtinTools,
		app:          e,
		address:      fmt.Sprintf(":%d", cfg.Server.Port),
	}

	srv.registerRoutes()

	return srv, nil
}

// Run starts the HTTP server and blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	slog.Info("starting server", "addr", s.address)

	// Streaming responses stay open as long as the upstream model keeps
	// talking, so no write timeout is set.
	httpServer := &http.Server{
		Addr:        s.address,
		Handler:     s.app,
		ReadTimeout: readTimeout,
		IdleTimeout: idleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.app.StartServer(httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
		defer cancel()
		if err := s.app.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		slog.Info("server shutdown complete")
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Server) registerRoutes() {
	s.app.GET("/health", s.handleHealth)
	s.app.POST("/v1/chat/completion", s.handleCompletion)
	s.app.POST("/v1/chat/stream", s.handleStream)
	s.app.GET("/v1/providers", s.handleProviders)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func decodeRequestBody[T any](c echo.Context, target *T) error {
	req := c.Request()
	defer req.Body.Close()

	req.Body = http.MaxBytesReader(c.Response(), req.Body, maxBodyBytes)

	decoder := json.NewDecoder(req.Body)
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, io.EOF) {
			return requestError{
				Status:  http.StatusBadRequest,
				Message: "request body is required",
				Type:    "invalid_request_error",
			}
		}
		return requestError{
			Status:  http.StatusBadRequest,
			Message: fmt.Sprintf("invalid JSON payload: %v", err),
			Type:    "invalid_request_error",
		}
	}

	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return requestError{
			Status:  http.StatusBadRequest,
			Message: "request body must contain a single JSON object",
			Type:    "invalid_request_error",
		}
	}
	return nil
}

type requestError struct {
	Status  int
	Message string
	Type    string
}

func (e requestError) Error() string {
	return e.Message
}

type errorBody struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func writeError(c echo.Context, status int, message, errType string) error {
	var payload errorBody
	payload.Error.Message = message
	payload.Error.Type = errType
	return c.JSON(status, payload)
}

func jsonErrorHandler(err error, c echo.Context) {
	var reqErr requestError
	if errors.As(err, &reqErr) {
		_ = writeError(c, reqErr.Status, reqErr.Message, reqErr.Type)
		return
	}

	var echoErr *echo.HTTPError
	if errors.As(err, &echoErr) {
		_ = writeError(c, echoErr.Code, fmt.Sprintf("%v", echoErr.Message), "invalid_request_error")
		return
	}

	_ = writeError(c, http.StatusInternalServerError, "internal server error", "server_error")
}

// toHTTPError maps dispatch failures onto HTTP statuses. Provider error kinds
// carry their own status semantics; anything unclassified reads as a bad
// gateway.
func toHTTPError(err error) error {
	var reqErr requestError
	if errors.As(err, &reqErr) {
		return reqErr
	}

	var providerErr *ai.ProviderError
	if errors.As(err, &providerErr) {
		return requestError{
			Status:  statusForKind(providerErr.Kind),
			Message: providerErr.UserMessage(),
			Type:    string(providerErr.Kind),
		}
	}

	return requestError{
		Status:  http.StatusBadGateway,
		Message: "upstream provider error",
		Type:    "upstream_error",
	}
}

func statusForKind(kind ai.ErrorKind) int {
	switch kind {
	case ai.ErrorKindValidation:
		return http.StatusBadRequest
	case ai.ErrorKindAuth:
		return http.StatusUnauthorized
	case ai.ErrorKindRateLimit:
		return http.StatusTooManyRequests
	case ai.ErrorKindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func writeSSEEvent(w io.Writer, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal SSE payload: %w", err)
	}
	if _, err := fmt.Fprintf(w, "event: %s\n", event); err != nil {
		return fmt.Errorf("write SSE event name: %w", err)
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return fmt.Errorf("write SSE data: %w", err)
	}
	return nil
}
