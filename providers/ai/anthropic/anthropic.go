package anthropic

import (
	"context"
	"net/http"
	"os"

	"github.com/minechat/llmbridge/internal/utils"
	"github.com/minechat/llmbridge/providers/ai"
)

const (
	// defaultBaseURL is the canonical base URL for Anthropic's Messages API.
	defaultBaseURL = "https://api.anthropic.com/v1"

	// messagesEndpoint is the path for the Messages API endpoint.
	messagesEndpoint = "/messages"

	// anthropicVersion is the required anthropic-version header value.
	// Anthropic uses this to version-lock response formats independently of the URL.
	anthropicVersion = "2023-06-01"

	// mcpBetaHeader must accompany requests that declare mcp_servers.
	mcpBetaHeader = "mcp-client-2025-04-04"
)

// Provider implements [ai.Provider] and [ai.StreamProvider] for Anthropic's
// Messages API. Use [New] to construct a ready-to-use instance.
type Provider struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// New returns a Provider initialized from environment variables. It reads
// ANTHROPIC_API_KEY for authentication and ANTHROPIC_API_BASE_URL for the
// endpoint base (defaulting to https://api.anthropic.com/v1 when unset). Use
// [Provider.WithAPIKey] and [Provider.WithBaseURL] to override after
// construction.
func New() *Provider {
	baseURL := os.Getenv("ANTHROPIC_API_BASE_URL")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &Provider{
		apiKey:  os.Getenv("ANTHROPIC_API_KEY"),
		baseURL: baseURL,
		client:  &http.Client{},
	}
}

// WithAPIKey sets the API key used for authenticating requests and returns the
// provider so calls can be chained. It overrides the value read from ANTHROPIC_API_KEY.
func (p *Provider) WithAPIKey(apiKey string) ai.Provider {
	p.apiKey = apiKey
	return p
}

// WithBaseURL overrides the API base URL and returns the provider so calls can
// be chained. Use this when targeting a proxy or local testing endpoint.
func (p *Provider) WithBaseURL(baseURL string) ai.Provider {
	p.baseURL = baseURL
	return p
}

// WithHttpClient replaces the default [http.Client] used for API calls and
// returns the provider so calls can be chained. Useful for injecting custom
// timeouts, transport layers, or test doubles.
func (p *Provider) WithHttpClient(httpClient *http.Client) ai.Provider {
	p.client = httpClient
	return p
}

// resolveKey prefers the per-request credential over the configured one.
// The chat client is bring-your-own-key, so most calls carry their own.
func (p *Provider) resolveKey(request ai.ChatRequest) string {
	if request.Options.APIKey != "" {
		return request.Options.APIKey
	}
	return p.apiKey
}

// buildHeaders constructs the HTTP headers required for every Anthropic
// request. x-api-key carries the credential (Anthropic does not use Bearer
// tokens) and anthropic-version pins the wire format. The MCP beta header is
// added only when the request declares remote servers.
func buildHeaders(apiKey string, hasMCPServers bool) []utils.HeaderOption {
	headers := []utils.HeaderOption{
		{Key: "x-api-key", Value: apiKey},
		{Key: "anthropic-version", Value: anthropicVersion},
	}
	if hasMCPServers {
		headers = append(headers, utils.HeaderOption{Key: "anthropic-beta", Value: mcpBetaHeader})
	}
	return headers
}

// Complete implements [ai.Provider] by sending a synchronous chat request to
// Anthropic's Messages API and returning the normalized result.
func (p *Provider) Complete(ctx context.Context, request ai.ChatRequest) (*ai.CompletionResult, error) {
	apiKey := p.resolveKey(request)
	if apiKey == "" {
		return nil, &ai.ProviderError{
			Provider: ai.ProviderAnthropic,
			Kind:     ai.ErrorKindAuth,
			Message:  "ANTHROPIC_API_KEY is not set",
		}
	}

	anthropicReq, err := requestToAnthropic(request)
	if err != nil {
		return nil, ai.ClassifyError(ai.ProviderAnthropic, err)
	}

	// Pass empty apiKey so DoPostSync does not inject a Bearer token;
	// Anthropic authenticates via x-api-key instead.
	_, resp, err := utils.DoPostSync[anthropicResponse](
		ctx,
		p.client,
		p.baseURL+messagesEndpoint,
		"",
		anthropicReq,
		buildHeaders(apiKey, len(anthropicReq.MCPServers) > 0)...,
	)
	if err != nil {
		return nil, ai.ClassifyError(ai.ProviderAnthropic, err)
	}

	result := responseToResult(*resp)

	// Anthropic usually echoes the model name; fall back to the request model
	// so callers always have a non-empty Model field.
	if result.Model == "" {
		result.Model = request.Model
	}

	return result, nil
}
