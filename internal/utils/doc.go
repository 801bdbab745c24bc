// Package utils provides small shared helpers for the provider clients:
// generic JSON-over-HTTP POST helpers (sync and streaming), an SSE scanner,
// lenient string-to-type parsing with JSON repair, and string utilities.
//
// This package must stay free of imports from the ai package so that the
// error classification layer can inspect HTTPError without a cycle.
package utils
