// Package modelcaps maintains the model capability table: which API variant a
// model speaks, whether it supports streaming, whether it is a reasoning
// model, and the per-call timeout it deserves.
//
// The table is fetched once per process from a remote JSON source and
// memoized; concurrent first loads are deduplicated via singleflight. When
// the source is unreachable a hard-coded fallback table keeps the adapter
// working instead of failing closed.
//
// The package also owns the model-family mapping tables that would otherwise
// drift across call sites: token-limit parameter names, reasoning effort wire
// strings, thinking token budgets, and fixed-temperature detection.
package modelcaps
