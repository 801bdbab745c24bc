package modelcaps

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/minechat/llmbridge/providers/ai"
)

// Variant identifies which API surface of a provider a request goes through.
type Variant string

const (
	// VariantResponses is the OpenAI Responses API, the primary OpenAI route.
	VariantResponses Variant = "responses"
	// VariantChat is the legacy OpenAI Chat Completions API, also used for
	// openai_compatible endpoints.
	VariantChat Variant = "chat_completions"
	// VariantMessages is the Anthropic Messages API.
	VariantMessages Variant = "messages"
	// VariantGenerateContent is the Gemini generateContent API.
	VariantGenerateContent Variant = "generate_content"
)

const (
	// DefaultTimeout applies to ordinary completion calls.
	DefaultTimeout = 60 * time.Second
	// ExtendedTimeout applies to reasoning models and all Responses API calls,
	// where reasoning traces add latency.
	ExtendedTimeout = 180 * time.Second
)

// Capabilities is one model's entry in the remote capability source.
type Capabilities struct {
	APIType           string `json:"api_type"`
	SupportsStreaming bool   `json:"supports_streaming"`
}

// Table maps provider id to model id to capabilities. It is treated as
// immutable once assigned.
type Table map[string]map[string]Capabilities

// ModelInfo is the resolved capability view the orchestrator consumes.
type ModelInfo struct {
	APIType           string
	SupportsStreaming bool
	IsReasoning       bool
	IsMultimodal      bool
	Timeout           time.Duration
}

// Loader fetches and memoizes the capability table. The zero value is not
// usable; construct with NewLoader. A Loader with an empty URL serves the
// fallback table directly, which is the mode unit tests and offline
// deployments use.
type Loader struct {
	url    string
	client *http.Client
	group  singleflight.Group
	cached atomic.Pointer[Table]
}

// NewLoader creates a Loader that fetches the table from sourceURL using
// client (http.DefaultClient when nil).
func NewLoader(sourceURL string, client *http.Client) *Loader {
	if client == nil {
		client = http.DefaultClient
	}
	return &Loader{url: sourceURL, client: client}
}

// Table returns the capability table, fetching it on first use. Concurrent
// first calls share a single fetch. Fetch failures are logged and the
// fallback table is cached in their place; the process keeps the table it
// got until restart.
func (loader *Loader) Table(ctx context.Context) Table {
	if cached := loader.cached.Load(); cached != nil {
		return *cached
	}

	result, _, _ := loader.group.Do("capability-table", func() (any, error) {
		// Double check under the flight; another goroutine may have stored
		// the table between our Load and Do.
		if cached := loader.cached.Load(); cached != nil {
			return *cached, nil
		}

		table := loader.fetch(ctx)
		loader.cached.Store(&table)
		return table, nil
	})

	return result.(Table)
}

func (loader *Loader) fetch(ctx context.Context) Table {
	if loader.url == "" {
		return FallbackTable()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, loader.url, nil)
	if err != nil {
		slog.Warn("capability table request failed, using fallback", "error", err.Error())
		return FallbackTable()
	}

	res, err := loader.client.Do(req)
	if err != nil {
		slog.Warn("capability table fetch failed, using fallback", "url", loader.url, "error", err.Error())
		return FallbackTable()
	}
	defer func() {
		if closeErr := res.Body.Close(); closeErr != nil {
			slog.Warn("failed to close capability table body", "error", closeErr.Error())
		}
	}()

	if res.StatusCode != http.StatusOK {
		slog.Warn("capability table fetch returned non-200, using fallback", "url", loader.url, "status", res.StatusCode)
		return FallbackTable()
	}

	body, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		slog.Warn("capability table read failed, using fallback", "error", err.Error())
		return FallbackTable()
	}

	var table Table
	if err := json.Unmarshal(body, &table); err != nil {
		slog.Warn("capability table decode failed, using fallback", "error", err.Error())
		return FallbackTable()
	}

	slog.Debug("capability table loaded", "url", loader.url, "providers", len(table))
	return table
}

// Lookup resolves the capability view for one (provider, model) pair. Models
// absent from the table get permissive defaults (streaming on, default API
// type for the provider) so new model releases work before the table catches
// up.
func (loader *Loader) Lookup(ctx context.Context, provider ai.ProviderID, model string) ModelInfo {
	table := loader.Table(ctx)

	info := ModelInfo{
		APIType:           defaultAPIType(provider),
		SupportsStreaming: true,
		IsReasoning:       IsReasoningModel(model),
		IsMultimodal:      IsMultimodalModel(model),
	}

	if models, ok := table[string(provider)]; ok {
		if caps, ok := models[model]; ok {
			info.SupportsStreaming = caps.SupportsStreaming
			if caps.APIType != "" {
				info.APIType = caps.APIType
			}
		}
	}

	info.Timeout = timeoutFor(provider, info)
	return info
}

// Catalog returns the provider to model-list view served by the providers
// endpoint, with model ids sorted for stable output.
func (loader *Loader) Catalog(ctx context.Context) map[string][]string {
	table := loader.Table(ctx)

	catalog := make(map[string][]string, len(table))
	for provider, models := range table {
		ids := make([]string, 0, len(models))
		for model := range models {
			ids = append(ids, model)
		}
		sort.Strings(ids)
		catalog[provider] = ids
	}
	return catalog
}

func timeoutFor(provider ai.ProviderID, info ModelInfo) time.Duration {
	if info.IsReasoning {
		return ExtendedTimeout
	}
	if provider == ai.ProviderOpenAI && info.APIType == string(VariantResponses) {
		return ExtendedTimeout
	}
	return DefaultTimeout
}

func defaultAPIType(provider ai.ProviderID) string {
	switch provider {
	case ai.ProviderOpenAI:
		return string(VariantResponses)
	case ai.ProviderAnthropic:
		return string(VariantMessages)
	case ai.ProviderGoogle:
		return string(VariantGenerateContent)
	case ai.ProviderOpenAICompatible:
		return string(VariantChat)
	default:
		return string(VariantChat)
	}
}

// reasoningFamilies are model-id prefixes that produce reasoning traces and
// therefore get the extended timeout.
var reasoningFamilies = []string{"o1", "o3", "o4", "gpt-5", "deepseek-r"}

// IsReasoningModel reports whether the model family produces reasoning traces.
func IsReasoningModel(model string) bool {
	lowered := strings.ToLower(model)
	for _, family := range reasoningFamilies {
		if strings.HasPrefix(lowered, family) {
			return true
		}
	}
	return strings.Contains(lowered, "thinking")
}

// multimodalFamilies are model-id prefixes that accept image input.
var multimodalFamilies = []string{
	"gpt-4o", "gpt-4.1", "gpt-4-turbo", "gpt-5", "chatgpt-4o",
	"o3", "o4",
	"claude-3", "claude-opus", "claude-sonnet", "claude-haiku",
	"gemini-",
}

// IsMultimodalModel reports whether the model family accepts image input.
func IsMultimodalModel(model string) bool {
	lowered := strings.ToLower(model)
	for _, family := range multimodalFamilies {
		if strings.HasPrefix(lowered, family) {
			return true
		}
	}
	return false
}

// FallbackTable is the hard-coded minimal table used when the remote source
// is unavailable. It covers the model families the chat client ships with.
func FallbackTable() Table {
	return Table{
		string(ai.ProviderOpenAI): {
			"gpt-4o":      {APIType: string(VariantResponses), SupportsStreaming: true},
			"gpt-4o-mini": {APIType: string(VariantResponses), SupportsStreaming: true},
			"gpt-4.1":     {APIType: string(VariantResponses), SupportsStreaming: true},
			"gpt-5":       {APIType: string(VariantResponses), SupportsStreaming: true},
			"gpt-5-mini":  {APIType: string(VariantResponses), SupportsStreaming: true},
			"o3":          {APIType: string(VariantResponses), SupportsStreaming: true},
			"o4-mini":     {APIType: string(VariantResponses), SupportsStreaming: true},
			"o1":          {APIType: string(VariantResponses), SupportsStreaming: false},
		},
		string(ai.ProviderAnthropic): {
			"claude-3-5-sonnet-20241022": {APIType: string(VariantMessages), SupportsStreaming: true},
			"claude-3-5-haiku-20241022":  {APIType: string(VariantMessages), SupportsStreaming: true},
			"claude-sonnet-4-20250514":   {APIType: string(VariantMessages), SupportsStreaming: true},
			"claude-opus-4-20250514":     {APIType: string(VariantMessages), SupportsStreaming: true},
		},
		string(ai.ProviderGoogle): {
			"gemini-2.0-flash":     {APIType: string(VariantGenerateContent), SupportsStreaming: true},
			"gemini-2.5-flash":     {APIType: string(VariantGenerateContent), SupportsStreaming: true},
			"gemini-2.5-pro":       {APIType: string(VariantGenerateContent), SupportsStreaming: true},
			"gemini-1.5-pro":       {APIType: string(VariantGenerateContent), SupportsStreaming: true},
		},
	}
}
