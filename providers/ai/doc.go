// Package ai defines the canonical, provider-agnostic contract shared by all
// back-end adapters: the chat message model, the tool descriptor union,
// generation options, the normalized CompletionResult, the DeltaChunk stream
// vocabulary, and the typed ProviderError taxonomy.
//
// Provider packages (openai, anthropic, gemini) translate between these types
// and each API's wire format; the orchestrator consumes only this package, so
// callers never branch on provider after normalization.
package ai
