// Package middleware provides the composable layers the orchestrator wraps
// around provider calls: per-attempt timeouts, bounded retries, and request
// logging. Layers are provider-agnostic; they see only the canonical request
// and result shapes.
package middleware

import (
	"context"

	"github.com/minechat/llmbridge/providers/ai"
)

// SendFunc is the synchronous completion call signature that middleware wraps.
type SendFunc func(ctx context.Context, request ai.ChatRequest) (*ai.CompletionResult, error)

// StreamFunc is the streaming call signature that middleware wraps. Middleware
// applies to stream establishment; chunks flow through untouched.
type StreamFunc func(ctx context.Context, request ai.ChatRequest) (*ai.ChatStream, error)

// Middleware wraps both call shapes. Implementations must be safe for
// concurrent use; one instance serves all requests.
type Middleware interface {
	WrapSend(next SendFunc) SendFunc
	WrapStream(next StreamFunc) StreamFunc
}

// ChainSend composes middlewares around base. The first middleware listed
// becomes the outermost layer, so ChainSend(call, logging, retry, timeout)
// logs once per request, retries inside that, and times out each attempt.
func ChainSend(base SendFunc, middlewares ...Middleware) SendFunc {
	wrapped := base
	for i := len(middlewares) - 1; i >= 0; i-- {
		wrapped = middlewares[i].WrapSend(wrapped)
	}
	return wrapped
}

// ChainStream composes middlewares around base with the same ordering rule as
// ChainSend.
func ChainStream(base StreamFunc, middlewares ...Middleware) StreamFunc {
	wrapped := base
	for i := len(middlewares) - 1; i >= 0; i-- {
		wrapped = middlewares[i].WrapStream(wrapped)
	}
	return wrapped
}
