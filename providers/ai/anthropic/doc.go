// Package anthropic implements ai.Provider and ai.StreamProvider for
// Anthropic's Messages API.
//
// The request normalizer hoists system messages into the top-level system
// field, merges consecutive tool results into single user turns (the API
// rejects consecutive user messages), and maps thinking mode onto a fixed
// token budget. The response normalizer collapses the content block array
// (text, thinking, tool_use, mcp_tool_use, mcp_tool_result) into the
// canonical CompletionResult.
package anthropic
