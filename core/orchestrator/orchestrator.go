// Package orchestrator dispatches canonical chat requests to the right
// provider client and wraps every call in the standard middleware chain:
// logging around retries around per-attempt timeouts. It is the only layer
// that decides retryability and streaming fallback; providers below it just
// classify errors, and callers above it never branch on provider.
package orchestrator

import (
	"context"
	"log/slog"
	"time"

	"github.com/minechat/llmbridge/core/modelcaps"
	"github.com/minechat/llmbridge/core/orchestrator/middleware"
	"github.com/minechat/llmbridge/providers/ai"
)

// Config tunes the orchestrator's middleware chain.
type Config struct {
	// MaxRetries is the number of re-attempts after a failed call. Negative
	// values use the middleware default.
	MaxRetries int
	// LogLevel selects logging verbosity.
	LogLevel middleware.LogLevel
	// Logger receives call logs; slog.Default when nil.
	Logger *slog.Logger
	// Backoff overrides the retry backoff schedule. Nil keeps the default
	// exponential schedule; tests inject a zero delay.
	Backoff func(attempt int) time.Duration
}

// Orchestrator routes requests through the registry and middleware chain.
type Orchestrator struct {
	caps     *modelcaps.Loader
	registry *Registry
	retry    *middleware.Retry
	logging  *middleware.Logging
}

// New builds an Orchestrator over the given capability loader and registry.
func New(caps *modelcaps.Loader, registry *Registry, config Config) *Orchestrator {
	retry := middleware.NewRetry(config.MaxRetries)
	if config.Backoff != nil {
		retry.WithBackoff(config.Backoff)
	}

	return &Orchestrator{
		caps:     caps,
		registry: registry,
		retry:    retry,
		logging:  middleware.NewLogging(config.Logger, config.LogLevel),
	}
}

// resolve validates the request, looks up model capabilities, and picks the
// provider client for the route.
func (o *Orchestrator) resolve(ctx context.Context, provider ai.ProviderID, request ai.ChatRequest) (ai.Provider, modelcaps.ModelInfo, error) {
	if err := ai.ValidateTools(request.Tools); err != nil {
		return nil, modelcaps.ModelInfo{}, err
	}

	info := o.caps.Lookup(ctx, provider, request.Model)

	client, err := o.registry.Resolve(provider, modelcaps.Variant(info.APIType))
	if err != nil {
		return nil, modelcaps.ModelInfo{}, err
	}

	return client, info, nil
}

// Complete dispatches a synchronous completion through the middleware chain.
func (o *Orchestrator) Complete(ctx context.Context, provider ai.ProviderID, request ai.ChatRequest) (*ai.CompletionResult, error) {
	client, info, err := o.resolve(ctx, provider, request)
	if err != nil {
		return nil, err
	}

	send := middleware.ChainSend(
		client.Complete,
		o.logging,
		o.retry,
		middleware.NewTimeout(info.Timeout),
	)

	return send(ctx, request)
}

// Stream dispatches a streaming completion. Models the capability table marks
// as non-streaming, and providers without stream support, degrade to a
// synchronous Complete wrapped in a single-chunk stream; callers observe the
// same chunk contract either way.
func (o *Orchestrator) Stream(ctx context.Context, provider ai.ProviderID, request ai.ChatRequest) (*ai.ChatStream, error) {
	client, info, err := o.resolve(ctx, provider, request)
	if err != nil {
		return nil, err
	}

	streamClient, canStream := client.(ai.StreamProvider)
	if !info.SupportsStreaming || !canStream {
		send := middleware.ChainSend(
			client.Complete,
			o.logging,
			o.retry,
			middleware.NewTimeout(info.Timeout),
		)
		result, err := send(ctx, request)
		if err != nil {
			return nil, err
		}
		return ai.NewSingleChunkStream(result), nil
	}

	stream := middleware.ChainStream(
		streamClient.Stream,
		o.logging,
		o.retry,
		middleware.NewTimeout(info.Timeout),
	)

	return stream(ctx, request)
}

// Providers returns the catalog of known providers and models for the
// discovery endpoint.
func (o *Orchestrator) Providers(ctx context.Context) map[string][]string {
	return o.caps.Catalog(ctx)
}
