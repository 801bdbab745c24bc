// Package gemini implements ai.Provider and ai.StreamProvider for Google's
// Gemini generateContent API.
//
// The request normalizer hoists system messages to system_instruction, maps
// roles onto user/model, inlines images as inlineData parts, and derives a
// numeric thinking token budget from the canonical reasoning effort. Gemini
// does not report token usage reliably; usage fields default to zero rather
// than failing.
package gemini
