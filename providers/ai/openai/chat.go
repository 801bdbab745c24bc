package openai

import (
	"context"
	"net/http"
	"os"

	"github.com/minechat/llmbridge/internal/utils"
	"github.com/minechat/llmbridge/providers/ai"
)

// ChatProvider implements [ai.Provider] and [ai.StreamProvider] on top of the
// Chat Completions API. It serves two routes: legacy openai models pinned to
// this surface by the capability table, and arbitrary OpenAI-compatible
// endpoints in reduced mode (plain text only, no tools or attachments).
type ChatProvider struct {
	id      ai.ProviderID
	apiKey  string
	baseURL string
	client  *http.Client
	reduced bool
}

// NewChat returns a ChatProvider for api.openai.com, initialized from
// OPENAI_API_KEY and OPENAI_API_BASE_URL.
func NewChat() *ChatProvider {
	baseURL := os.Getenv("OPENAI_API_BASE_URL")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &ChatProvider{
		id:      ai.ProviderOpenAI,
		apiKey:  os.Getenv("OPENAI_API_KEY"),
		baseURL: baseURL,
		client:  &http.Client{},
	}
}

// NewCompatible returns a reduced-mode ChatProvider for an OpenAI-compatible
// endpoint. The base URL is mandatory and caller-supplied; there is no
// sensible default for third-party servers. The credential comes from
// OPENAI_COMPATIBLE_API_KEY or per-request options.
func NewCompatible(baseURL string) *ChatProvider {
	return &ChatProvider{
		id:      ai.ProviderOpenAICompatible,
		apiKey:  os.Getenv("OPENAI_COMPATIBLE_API_KEY"),
		baseURL: baseURL,
		client:  &http.Client{},
		reduced: true,
	}
}

// WithAPIKey sets the API key and returns the provider so calls can be chained.
func (p *ChatProvider) WithAPIKey(apiKey string) ai.Provider {
	p.apiKey = apiKey
	return p
}

// WithBaseURL overrides the API base URL and returns the provider so calls
// can be chained.
func (p *ChatProvider) WithBaseURL(baseURL string) ai.Provider {
	p.baseURL = baseURL
	return p
}

// WithHttpClient replaces the default [http.Client] and returns the provider
// so calls can be chained.
func (p *ChatProvider) WithHttpClient(httpClient *http.Client) ai.Provider {
	p.client = httpClient
	return p
}

func (p *ChatProvider) resolveKey(request ai.ChatRequest) string {
	if request.Options.APIKey != "" {
		return request.Options.APIKey
	}
	return p.apiKey
}

func (p *ChatProvider) missingKeyError() *ai.ProviderError {
	message := "OPENAI_API_KEY is not set"
	if p.reduced {
		message = "no API key configured for the openai_compatible endpoint"
	}
	return &ai.ProviderError{Provider: p.id, Kind: ai.ErrorKindAuth, Message: message}
}

// Complete implements [ai.Provider] over the Chat Completions API.
func (p *ChatProvider) Complete(ctx context.Context, request ai.ChatRequest) (*ai.CompletionResult, error) {
	apiKey := p.resolveKey(request)
	if apiKey == "" {
		return nil, p.missingKeyError()
	}

	chatReq, err := requestToChat(request, p.reduced)
	if err != nil {
		return nil, ai.ClassifyError(p.id, err)
	}
	chatReq.Stream = false
	chatReq.StreamOptions = nil

	_, resp, err := utils.DoPostSync[chatCompletionResponse](
		ctx,
		p.client,
		p.baseURL+chatCompletionsEndpoint,
		apiKey,
		chatReq,
	)
	if err != nil {
		return nil, ai.ClassifyError(p.id, err)
	}

	result := chatToResult(*resp, p.id)
	if result.Model == "" {
		result.Model = request.Model
	}

	return result, nil
}
