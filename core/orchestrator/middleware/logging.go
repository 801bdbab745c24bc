package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/minechat/llmbridge/internal/utils"
	"github.com/minechat/llmbridge/providers/ai"
)

// LogLevel controls how much request detail the logging middleware emits.
type LogLevel int

const (
	// LogMinimal logs failures only.
	LogMinimal LogLevel = iota
	// LogStandard logs one line per call with model, duration, and token usage.
	LogStandard
	// LogVerbose additionally logs truncated request and response payloads.
	LogVerbose
)

// Logging emits structured call logs. It is the outermost layer in the
// standard chain so durations include retries and backoff.
type Logging struct {
	logger *slog.Logger
	level  LogLevel
}

// NewLogging returns a Logging middleware writing to logger (slog.Default
// when nil).
func NewLogging(logger *slog.Logger, level LogLevel) *Logging {
	if logger == nil {
		logger = slog.Default()
	}
	return &Logging{logger: logger, level: level}
}

func (l *Logging) WrapSend(next SendFunc) SendFunc {
	return func(ctx context.Context, request ai.ChatRequest) (*ai.CompletionResult, error) {
		start := time.Now()

		if l.level >= LogVerbose {
			l.logger.DebugContext(ctx, "completion request",
				"model", request.Model,
				"payload", utils.TruncateString(utils.JSONToString(request), 2000))
		}

		result, err := next(ctx, request)
		elapsed := time.Since(start)

		if err != nil {
			l.logger.ErrorContext(ctx, "completion failed",
				"model", request.Model,
				"duration_ms", elapsed.Milliseconds(),
				"error", err.Error())
			return nil, err
		}

		if l.level >= LogStandard {
			attrs := []any{
				"model", request.Model,
				"duration_ms", elapsed.Milliseconds(),
			}
			if result.Usage != nil {
				attrs = append(attrs, "total_tokens", result.Usage.TotalTokens)
			}
			if choice := result.First(); choice != nil {
				attrs = append(attrs, "finish_reason", string(choice.FinishReason))
			}
			l.logger.InfoContext(ctx, "completion succeeded", attrs...)
		}
		if l.level >= LogVerbose {
			l.logger.DebugContext(ctx, "completion response",
				"model", request.Model,
				"payload", utils.TruncateString(utils.JSONToString(result), 2000))
		}

		return result, nil
	}
}

func (l *Logging) WrapStream(next StreamFunc) StreamFunc {
	return func(ctx context.Context, request ai.ChatRequest) (*ai.ChatStream, error) {
		start := time.Now()

		stream, err := next(ctx, request)
		if err != nil {
			l.logger.ErrorContext(ctx, "stream failed to start",
				"model", request.Model,
				"duration_ms", time.Since(start).Milliseconds(),
				"error", err.Error())
			return nil, err
		}

		if l.level >= LogStandard {
			l.logger.InfoContext(ctx, "stream started", "model", request.Model)
		}

		return stream, nil
	}
}
