// Package openai implements ai.Provider and ai.StreamProvider for OpenAI.
//
// Two API surfaces live here. ResponsesProvider speaks the Responses API and
// is the primary route: it carries reasoning, native tools, MCP servers, and
// image generation. ChatProvider speaks legacy Chat Completions and doubles,
// in reduced mode, as the adapter for OpenAI-compatible endpoints (plain text
// only, caller-supplied base URL).
package openai
