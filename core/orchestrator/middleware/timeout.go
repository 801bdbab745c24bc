package middleware

import (
	"context"
	"time"

	"github.com/minechat/llmbridge/providers/ai"
)

// Timeout bounds each attempt with a deadline. It sits inside Retry in the
// standard chain, so a timed-out attempt can still be retried.
type Timeout struct {
	duration time.Duration
}

// NewTimeout returns a Timeout middleware applying the given per-attempt
// deadline. A non-positive duration disables the deadline.
func NewTimeout(duration time.Duration) *Timeout {
	return &Timeout{duration: duration}
}

func (t *Timeout) WrapSend(next SendFunc) SendFunc {
	return func(ctx context.Context, request ai.ChatRequest) (*ai.CompletionResult, error) {
		if t.duration <= 0 {
			return next(ctx, request)
		}
		ctx, cancel := context.WithTimeout(ctx, t.duration)
		defer cancel()
		return next(ctx, request)
	}
}

// WrapStream applies the deadline to the whole stream, not just its
// establishment. The cancel func must outlive this call, so it is deferred
// into the returned iterator and fires when consumption ends.
func (t *Timeout) WrapStream(next StreamFunc) StreamFunc {
	return func(ctx context.Context, request ai.ChatRequest) (*ai.ChatStream, error) {
		if t.duration <= 0 {
			return next(ctx, request)
		}

		ctx, cancel := context.WithTimeout(ctx, t.duration)

		stream, err := next(ctx, request)
		if err != nil {
			cancel()
			return nil, err
		}

		wrapped := func(yield func(ai.DeltaChunk, error) bool) {
			defer cancel()
			for chunk, chunkErr := range stream.Iter() {
				if !yield(chunk, chunkErr) {
					return
				}
			}
		}

		return ai.NewChatStream(wrapped), nil
	}
}
