// Package toolexec provides the built-in tool executor used by the tool-call
// loop: a registry of local function tools (time, arithmetic, mock weather,
// web fetch) plus a JSON-RPC bridge to external MCP tool servers. Tool
// failures are reported inside the ExecutionResult so the loop can feed them
// back to the model as data.
package toolexec
