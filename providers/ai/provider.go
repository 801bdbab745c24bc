package ai

import (
	"context"
	"net/http"
)

// Provider is the core interface every back-end client implements. It covers
// the full lifecycle of a single request: authentication, endpoint
// configuration, dispatch, and normalization of the response into the
// canonical [CompletionResult]. Use [StreamProvider] in addition when the
// back-end supports streaming.
type Provider interface {
	// Complete sends a chat request and returns the normalized result.
	// Failures are returned as *ProviderError so the orchestrator can decide
	// retryability without string matching.
	Complete(ctx context.Context, request ChatRequest) (*CompletionResult, error)

	// WithAPIKey sets the credential used for authenticating requests.
	WithAPIKey(apiKey string) Provider

	// WithBaseURL overrides the default base URL for API requests.
	WithBaseURL(baseURL string) Provider

	// WithHttpClient sets the HTTP client used for outbound requests.
	WithHttpClient(httpClient *http.Client) Provider
}

// StreamProvider is an optional interface for providers that support
// streaming responses. Callers detect support via type assertion:
// provider.(StreamProvider). If the provider does not implement this
// interface, the orchestrator falls back to a synchronous Complete wrapped in
// a single-chunk stream.
type StreamProvider interface {
	Provider

	// Stream sends a chat request and returns a ChatStream that yields
	// incremental delta chunks as they arrive. Pre-stream errors (auth, bad
	// request, network) are returned as a normal error. Mid-stream errors are
	// yielded through the iterator and terminate it.
	Stream(ctx context.Context, request ChatRequest) (*ChatStream, error)
}
