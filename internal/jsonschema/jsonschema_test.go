package jsonschema

import (
	"testing"
)

type weatherParams struct {
	City    string   `json:"city" jsonschema:"description=City name"`
	Days    int      `json:"days,omitempty"`
	Unit    string   `json:"unit,omitempty" jsonschema:"enum=celsius,enum=fahrenheit"`
	Verbose *bool    `json:"verbose,omitempty"`
	Tags    []string `json:"tags,omitempty"`
	skipped string   //nolint:unused // exercises unexported-field skipping
}

func TestGenerateJSONSchema_Struct(t *testing.T) {
	schema, err := GenerateJSONSchema[weatherParams]()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if schema.Type != "object" {
		t.Errorf("expected object type, got %q", schema.Type)
	}
	if len(schema.Properties) != 5 {
		t.Errorf("expected 5 properties, got %d: %v", len(schema.Properties), schema.Properties)
	}

	city := schema.Properties["city"]
	if city == nil || city.Type != "string" {
		t.Fatalf("expected string city schema, got %+v", city)
	}
	if city.Description != "City name" {
		t.Errorf("expected description from tag, got %q", city.Description)
	}

	unit := schema.Properties["unit"]
	if unit == nil || len(unit.Enum) != 2 {
		t.Fatalf("expected 2 enum values, got %+v", unit)
	}

	tags := schema.Properties["tags"]
	if tags == nil || tags.Type != "array" || tags.Items == nil || tags.Items.Type != "string" {
		t.Errorf("expected string array schema for tags, got %+v", tags)
	}

	if len(schema.Required) != 1 || schema.Required[0] != "city" {
		t.Errorf("expected only city required, got %v", schema.Required)
	}
}

func TestGenerateJSONSchema_RequiredRules(t *testing.T) {
	type params struct {
		Mandatory string  `json:"mandatory"`
		Optional  string  `json:"optional,omitempty"`
		Pointer   *int    `json:"pointer"`
		Forced    *string `json:"forced,omitempty" jsonschema:"required"`
	}

	schema, err := GenerateJSONSchema[params]()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := map[string]bool{"mandatory": true, "forced": true}
	if len(schema.Required) != len(want) {
		t.Fatalf("expected required %v, got %v", want, schema.Required)
	}
	for _, name := range schema.Required {
		if !want[name] {
			t.Errorf("unexpected required field %q", name)
		}
	}
}

func TestGenerateJSONSchema_NestedStruct(t *testing.T) {
	type location struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	}
	type params struct {
		Where location `json:"where"`
	}

	schema, err := GenerateJSONSchema[params]()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	where := schema.Properties["where"]
	if where == nil || where.Type != "object" {
		t.Fatalf("expected nested object schema, got %+v", where)
	}
	if where.Properties["lat"] == nil || where.Properties["lat"].Type != "number" {
		t.Errorf("expected number lat schema, got %+v", where.Properties["lat"])
	}
}

func TestGenerateJSONSchema_RejectsNonStruct(t *testing.T) {
	if _, err := GenerateJSONSchema[string](); err == nil {
		t.Error("expected error for non-struct type")
	}
}

type recursiveNode struct {
	Children []recursiveNode `json:"children"`
}

func TestGenerateJSONSchema_RejectsRecursion(t *testing.T) {
	if _, err := GenerateJSONSchema[recursiveNode](); err == nil {
		t.Error("expected error for recursive type")
	}
}
