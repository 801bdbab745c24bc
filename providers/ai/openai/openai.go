package openai

import (
	"context"
	"net/http"
	"os"

	"github.com/minechat/llmbridge/internal/utils"
	"github.com/minechat/llmbridge/providers/ai"
)

const (
	// defaultBaseURL is the canonical base URL for OpenAI's APIs.
	defaultBaseURL = "https://api.openai.com/v1"

	// responsesEndpoint is the path for the Responses API.
	responsesEndpoint = "/responses"

	// chatCompletionsEndpoint is the path for the legacy Chat Completions API.
	chatCompletionsEndpoint = "/chat/completions"
)

// ResponsesProvider implements [ai.Provider] and [ai.StreamProvider] on top of
// OpenAI's Responses API. This is the default route for openai models; the
// Responses API is the only surface that exposes reasoning summaries, native
// web search, code interpreter, MCP servers, and image generation together.
type ResponsesProvider struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// New returns a ResponsesProvider initialized from environment variables. It
// reads OPENAI_API_KEY for authentication and OPENAI_API_BASE_URL for the
// endpoint base (defaulting to https://api.openai.com/v1 when unset).
func New() *ResponsesProvider {
	baseURL := os.Getenv("OPENAI_API_BASE_URL")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &ResponsesProvider{
		apiKey:  os.Getenv("OPENAI_API_KEY"),
		baseURL: baseURL,
		client:  &http.Client{},
	}
}

// WithAPIKey sets the API key used for authenticating requests and returns the
// provider so calls can be chained. It overrides the value read from OPENAI_API_KEY.
func (p *ResponsesProvider) WithAPIKey(apiKey string) ai.Provider {
	p.apiKey = apiKey
	return p
}

// WithBaseURL overrides the API base URL and returns the provider so calls can
// be chained.
func (p *ResponsesProvider) WithBaseURL(baseURL string) ai.Provider {
	p.baseURL = baseURL
	return p
}

// WithHttpClient replaces the default [http.Client] used for API calls and
// returns the provider so calls can be chained.
func (p *ResponsesProvider) WithHttpClient(httpClient *http.Client) ai.Provider {
	p.client = httpClient
	return p
}

// resolveKey prefers the per-request credential over the configured one.
func (p *ResponsesProvider) resolveKey(request ai.ChatRequest) string {
	if request.Options.APIKey != "" {
		return request.Options.APIKey
	}
	return p.apiKey
}

// Complete implements [ai.Provider] by sending a synchronous request to the
// Responses API and normalizing the mixed output array.
func (p *ResponsesProvider) Complete(ctx context.Context, request ai.ChatRequest) (*ai.CompletionResult, error) {
	apiKey := p.resolveKey(request)
	if apiKey == "" {
		return nil, &ai.ProviderError{
			Provider: ai.ProviderOpenAI,
			Kind:     ai.ErrorKindAuth,
			Message:  "OPENAI_API_KEY is not set",
		}
	}

	openaiReq := requestToResponses(request)
	openaiReq.Stream = false

	_, resp, err := utils.DoPostSync[responseCreateResponse](
		ctx,
		p.client,
		p.baseURL+responsesEndpoint,
		apiKey,
		openaiReq,
	)
	if err != nil {
		return nil, ai.ClassifyError(ai.ProviderOpenAI, err)
	}

	if resp.Error != nil {
		return nil, &ai.ProviderError{
			Provider: ai.ProviderOpenAI,
			Kind:     ai.ErrorKindUnavailable,
			Message:  resp.Error.Message,
		}
	}

	result := responsesToResult(*resp)
	if result.Model == "" {
		result.Model = request.Model
	}

	return result, nil
}
