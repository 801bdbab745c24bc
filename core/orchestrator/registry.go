package orchestrator

import (
	"fmt"

	"github.com/minechat/llmbridge/core/modelcaps"
	"github.com/minechat/llmbridge/providers/ai"
	"github.com/minechat/llmbridge/providers/ai/anthropic"
	"github.com/minechat/llmbridge/providers/ai/gemini"
	"github.com/minechat/llmbridge/providers/ai/openai"
)

// routeKey selects a provider client by back-end and API surface. The same
// provider id can own several surfaces (openai has responses and chat), which
// is why dispatch keys on the pair and not the provider alone.
type routeKey struct {
	provider ai.ProviderID
	variant  modelcaps.Variant
}

// Registry maps (provider, variant) pairs to provider clients. Adding a
// back-end means one Register call; no dispatch code changes.
type Registry struct {
	routes map[routeKey]ai.Provider
}

// NewRegistry returns an empty registry. Most callers want
// [DefaultRegistry] instead.
func NewRegistry() *Registry {
	return &Registry{routes: map[routeKey]ai.Provider{}}
}

// DefaultRegistry wires the shipped provider clients. compatibleBaseURL is
// the OpenAI-compatible endpoint to target; when empty that route is left
// unregistered and requests to it fail with a validation error.
func DefaultRegistry(compatibleBaseURL string) *Registry {
	registry := NewRegistry()

	registry.Register(ai.ProviderOpenAI, modelcaps.VariantResponses, openai.New())
	registry.Register(ai.ProviderOpenAI, modelcaps.VariantChat, openai.NewChat())
	registry.Register(ai.ProviderAnthropic, modelcaps.VariantMessages, anthropic.New())
	registry.Register(ai.ProviderGoogle, modelcaps.VariantGenerateContent, gemini.New())

	if compatibleBaseURL != "" {
		registry.Register(ai.ProviderOpenAICompatible, modelcaps.VariantChat, openai.NewCompatible(compatibleBaseURL))
	}

	return registry
}

// Register binds a provider client to a (provider, variant) route, replacing
// any existing binding. Provider clients must be safe for concurrent use.
func (r *Registry) Register(provider ai.ProviderID, variant modelcaps.Variant, client ai.Provider) {
	r.routes[routeKey{provider: provider, variant: variant}] = client
}

// Resolve returns the client bound to the route, or a validation error when
// nothing is registered for it.
func (r *Registry) Resolve(provider ai.ProviderID, variant modelcaps.Variant) (ai.Provider, error) {
	client, ok := r.routes[routeKey{provider: provider, variant: variant}]
	if !ok {
		return nil, ai.NewValidationError(fmt.Sprintf("no provider registered for %s/%s", provider, variant))
	}
	return client, nil
}
