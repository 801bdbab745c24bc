// Package jsonschema provides a minimal JSON Schema representation and
// reflection-based generation for function tool parameter definitions.
//
// The Schema type round-trips the subset of JSON Schema that provider APIs
// accept for tool parameters. GenerateJSONSchema builds a schema from a Go
// struct, honoring json tags plus a jsonschema tag for descriptions, enums,
// and required overrides.
package jsonschema
