package gemini

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/minechat/llmbridge/internal/utils"
	"github.com/minechat/llmbridge/providers/ai"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Provider implements [ai.Provider] and [ai.StreamProvider] for Google's
// Gemini generateContent API.
type Provider struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// New creates a Gemini provider initialized from environment variables:
// GEMINI_API_KEY for authentication and GEMINI_API_BASE_URL for the endpoint
// base (optional, defaults to Google's public API).
func New() *Provider {
	baseURL := os.Getenv("GEMINI_API_BASE_URL")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &Provider{
		apiKey:  os.Getenv("GEMINI_API_KEY"),
		baseURL: baseURL,
		client:  &http.Client{},
	}
}

// WithAPIKey sets the API key for the provider.
func (p *Provider) WithAPIKey(apiKey string) ai.Provider {
	p.apiKey = apiKey
	return p
}

// WithBaseURL sets the base URL for the API.
func (p *Provider) WithBaseURL(baseURL string) ai.Provider {
	p.baseURL = baseURL
	return p
}

// WithHttpClient sets a custom HTTP client.
func (p *Provider) WithHttpClient(httpClient *http.Client) ai.Provider {
	p.client = httpClient
	return p
}

func (p *Provider) resolveKey(request ai.ChatRequest) string {
	if request.Options.APIKey != "" {
		return request.Options.APIKey
	}
	return p.apiKey
}

// Complete implements [ai.Provider] by calling generateContent and returning
// the normalized result.
func (p *Provider) Complete(ctx context.Context, request ai.ChatRequest) (*ai.CompletionResult, error) {
	apiKey := p.resolveKey(request)
	if apiKey == "" {
		return nil, &ai.ProviderError{
			Provider: ai.ProviderGoogle,
			Kind:     ai.ErrorKindAuth,
			Message:  "GEMINI_API_KEY is not set",
		}
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", p.baseURL, request.Model)

	geminiReq := requestToGemini(request)

	// Gemini authenticates via x-goog-api-key, not a Bearer token.
	_, resp, err := utils.DoPostSync[generateContentResponse](
		ctx,
		p.client,
		url,
		"",
		geminiReq,
		utils.HeaderOption{Key: "x-goog-api-key", Value: apiKey},
	)
	if err != nil {
		return nil, ai.ClassifyError(ai.ProviderGoogle, err)
	}

	result := responseToResult(*resp)
	if result.Model == "" {
		result.Model = request.Model
	}

	return result, nil
}
