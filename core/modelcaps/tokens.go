package modelcaps

import (
	"strings"

	"github.com/minechat/llmbridge/providers/ai"
)

const (
	// DefaultMaxOutputTokens is applied when the caller does not set a limit.
	DefaultMaxOutputTokens = 4000
	// DefaultTemperature is applied when the caller does not set one and the
	// model family does not fix it.
	DefaultTemperature = 0.7
	// AnthropicThinkingBudget is the fixed reasoning token budget sent when
	// thinking is enabled. Anthropic requires an explicit budget; it is not
	// user-configurable here.
	AnthropicThinkingBudget = 10000
)

// completionTokensFamilies are model-id prefixes that reject max_tokens on
// Chat Completions and require max_completion_tokens instead. The same
// families fix temperature at the provider default.
var completionTokensFamilies = []string{"o1", "o3", "o4", "gpt-5"}

// TokenLimitParam returns the wire name of the output token limit field for
// one (provider, model, variant) combination. The mapping is table-driven so
// new model families change exactly one place.
func TokenLimitParam(provider ai.ProviderID, model string, variant Variant) string {
	switch provider {
	case ai.ProviderOpenAI, ai.ProviderOpenAICompatible:
		if variant == VariantResponses {
			return "max_output_tokens"
		}
		if UsesCompletionTokensParam(model) {
			return "max_completion_tokens"
		}
		return "max_tokens"

	case ai.ProviderAnthropic:
		return "max_tokens"

	case ai.ProviderGoogle:
		return "maxOutputTokens"

	default:
		return "max_tokens"
	}
}

// UsesCompletionTokensParam reports whether the model family requires the
// max_completion_tokens parameter on Chat Completions.
func UsesCompletionTokensParam(model string) bool {
	return matchesFamily(model, completionTokensFamilies)
}

// FixedTemperature reports whether the model family rejects a custom
// temperature. Requests to these families omit the field entirely.
func FixedTemperature(model string) bool {
	return matchesFamily(model, completionTokensFamilies)
}

// RejectsSystemRole reports whether the model family rejects system turns on
// Chat Completions. Requests to these families drop system messages.
func RejectsSystemRole(model string) bool {
	return matchesFamily(model, []string{"o1"})
}

func matchesFamily(model string, families []string) bool {
	lowered := strings.ToLower(model)
	for _, family := range families {
		if strings.HasPrefix(lowered, family) {
			return true
		}
	}
	return false
}

// EffortString maps the canonical reasoning effort onto the wire string a
// variant expects. The Responses API accepts "minimal"; everywhere else the
// lowest tier is "low". Provider vocabulary drifts over time, so this stays
// table-shaped.
func EffortString(variant Variant, effort ai.ReasoningEffort) string {
	if effort == ai.EffortMinimal && variant != VariantResponses {
		return string(ai.EffortLow)
	}
	if effort == "" {
		return string(ai.EffortMedium)
	}
	return string(effort)
}

// geminiThinkingBudgets maps reasoning effort to Gemini's numeric thinking
// token budget.
var geminiThinkingBudgets = map[ai.ReasoningEffort]int{
	ai.EffortMinimal: 1024,
	ai.EffortLow:     1024,
	ai.EffortMedium:  8192,
	ai.EffortHigh:    24576,
}

// GeminiThinkingBudget returns the thinking token budget for the given
// effort, defaulting to the medium tier.
func GeminiThinkingBudget(effort ai.ReasoningEffort) int {
	if budget, ok := geminiThinkingBudgets[effort]; ok {
		return budget
	}
	return geminiThinkingBudgets[ai.EffortMedium]
}
