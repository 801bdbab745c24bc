package middleware

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/minechat/llmbridge/providers/ai"
)

// DefaultMaxRetries is the number of re-attempts after the initial call, so
// the default worst case is three attempts total.
const DefaultMaxRetries = 2

// ErrRetryExhausted marks failures where every allowed attempt was consumed.
// The last provider error is wrapped alongside it and remains reachable via
// errors.As.
var ErrRetryExhausted = errors.New("retry attempts exhausted")

// Retry re-attempts failed calls with exponential backoff. Only failures a
// *ai.ProviderError reports as retryable are re-attempted; auth and validation
// errors surface immediately. Unclassified errors are treated as transient.
type Retry struct {
	maxRetries int
	backoff    func(attempt int) time.Duration
}

// NewRetry returns a Retry with maxRetries re-attempts. Negative values fall
// back to DefaultMaxRetries.
func NewRetry(maxRetries int) *Retry {
	if maxRetries < 0 {
		maxRetries = DefaultMaxRetries
	}
	return &Retry{
		maxRetries: maxRetries,
		backoff: func(attempt int) time.Duration {
			return time.Duration(1<<attempt) * time.Second
		},
	}
}

// WithBackoff replaces the backoff schedule. Tests inject a zero delay.
func (r *Retry) WithBackoff(backoff func(attempt int) time.Duration) *Retry {
	r.backoff = backoff
	return r
}

func (r *Retry) WrapSend(next SendFunc) SendFunc {
	return func(ctx context.Context, request ai.ChatRequest) (*ai.CompletionResult, error) {
		result, err := retryLoop(ctx, r, func(attemptCtx context.Context) (*ai.CompletionResult, error) {
			return next(attemptCtx, request)
		})
		return result, err
	}
}

// WrapStream retries stream establishment only. Once chunks are flowing a
// failure cannot be retried without replaying already-delivered output.
func (r *Retry) WrapStream(next StreamFunc) StreamFunc {
	return func(ctx context.Context, request ai.ChatRequest) (*ai.ChatStream, error) {
		stream, err := retryLoop(ctx, r, func(attemptCtx context.Context) (*ai.ChatStream, error) {
			return next(attemptCtx, request)
		})
		return stream, err
	}
}

func retryLoop[T any](ctx context.Context, r *Retry, call func(context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		if attempt > 0 {
			if waitErr := sleepContext(ctx, r.backoff(attempt-1)); waitErr != nil {
				return zero, waitErr
			}
		}

		result, err := call(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !isRetryable(err) {
			return zero, err
		}
		// The outer context being done means the caller gave up, not the
		// attempt timing out; stop re-attempting.
		if ctx.Err() != nil {
			return zero, lastErr
		}
	}

	return zero, fmt.Errorf("%w after %d attempts: %w", ErrRetryExhausted, r.maxRetries+1, lastErr)
}

func isRetryable(err error) bool {
	var providerErr *ai.ProviderError
	if errors.As(err, &providerErr) {
		return providerErr.Retryable()
	}
	return true
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
