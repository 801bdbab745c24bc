package jsonschema

import (
	"fmt"
	"reflect"
	"strings"
)

// Schema represents the structure of JSON Schema used for defining tool
// arguments. It follows the JSON Schema standard, supporting the types,
// properties, and validation rules that provider APIs accept in function
// tool definitions.
type Schema struct {
	// Type specifies the data type (e.g., "object", "array", "string", "number")
	Type        string   `json:"type,omitempty"`
	Description string   `json:"description,omitempty"`
	Required    []string `json:"required,omitempty"`
	// Properties of the arguments, each with its own schema
	Properties map[string]*Schema `json:"properties,omitempty"`
	// For array types, defines the schema of items in the array
	Items *Schema `json:"items,omitempty"`
	// AdditionalProperties controls whether properties not defined in Properties are allowed
	AdditionalProperties any `json:"additionalProperties,omitempty"`
	// Default value for the parameter
	Default any `json:"default,omitempty"`
	// Enum contains the list of allowed values for the parameter
	Enum []any `json:"enum,omitempty"`
}

// GenerateJSONSchema generates a JSON schema for the struct type T.
//
// Field names come from json tags; fields tagged json:"-" are skipped.
// A field is required unless it is a pointer or carries omitempty. The
// jsonschema tag customizes individual fields:
//
//	type Args struct {
//	    City string `json:"city" jsonschema:"description=City name,required"`
//	    Unit string `json:"unit,omitempty" jsonschema:"enum=celsius,enum=fahrenheit"`
//	}
//
// Recursive struct types are rejected with an error; tool argument schemas
// are expected to be finite trees.
func GenerateJSONSchema[T any]() (*Schema, error) {
	t := reflect.TypeFor[T]()
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("schema generation requires a struct type, got %s", t.Kind())
	}
	return structSchema(t, map[reflect.Type]bool{})
}

func structSchema(t reflect.Type, inProgress map[reflect.Type]bool) (*Schema, error) {
	if inProgress[t] {
		return nil, fmt.Errorf("recursive type %s is not supported in tool schemas", t)
	}
	inProgress[t] = true
	defer delete(inProgress, t)

	schema := &Schema{Type: "object", Properties: map[string]*Schema{}}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		jsonTag := field.Tag.Get("json")
		if jsonTag == "-" {
			continue
		}

		fieldName := field.Name
		isOmitEmpty := false
		if jsonTag != "" {
			name, opts, _ := strings.Cut(jsonTag, ",")
			if name != "" {
				fieldName = name
			}
			isOmitEmpty = strings.Contains(opts, "omitempty")
		}

		fieldSchema, err := fieldSchema(field.Type, inProgress)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", fieldName, err)
		}

		requiredByTag, err := applySchemaTag(field.Tag.Get("jsonschema"), fieldSchema)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", fieldName, err)
		}

		schema.Properties[fieldName] = fieldSchema

		if requiredByTag || (field.Type.Kind() != reflect.Ptr && !isOmitEmpty) {
			schema.Required = append(schema.Required, fieldName)
		}
	}

	return schema, nil
}

func fieldSchema(t reflect.Type, inProgress map[reflect.Type]bool) (*Schema, error) {
	switch t.Kind() {
	case reflect.Ptr:
		return fieldSchema(t.Elem(), inProgress)

	case reflect.String:
		return &Schema{Type: "string"}, nil

	case reflect.Bool:
		return &Schema{Type: "boolean"}, nil

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return &Schema{Type: "integer"}, nil

	case reflect.Float32, reflect.Float64:
		return &Schema{Type: "number"}, nil

	case reflect.Slice, reflect.Array:
		items, err := fieldSchema(t.Elem(), inProgress)
		if err != nil {
			return nil, err
		}
		return &Schema{Type: "array", Items: items}, nil

	case reflect.Map:
		if t.Key().Kind() != reflect.String {
			return nil, fmt.Errorf("map keys must be strings, got %s", t.Key().Kind())
		}
		values, err := fieldSchema(t.Elem(), inProgress)
		if err != nil {
			return nil, err
		}
		return &Schema{Type: "object", AdditionalProperties: values}, nil

	case reflect.Struct:
		return structSchema(t, inProgress)

	case reflect.Interface:
		// any maps to an unconstrained schema
		return &Schema{}, nil

	default:
		return nil, fmt.Errorf("unsupported type %s", t.Kind())
	}
}

// applySchemaTag applies a jsonschema struct tag to the generated field
// schema. Supported directives: description=..., enum=..., default=...,
// required. Reports whether the tag explicitly marked the field required.
func applySchemaTag(tag string, schema *Schema) (bool, error) {
	if tag == "" {
		return false, nil
	}

	required := false
	for _, directive := range strings.Split(tag, ",") {
		key, value, hasValue := strings.Cut(directive, "=")
		switch key {
		case "":
			continue
		case "required":
			required = true
		case "description":
			schema.Description = value
		case "default":
			schema.Default = value
		case "enum":
			if !hasValue {
				return false, fmt.Errorf("enum directive requires a value")
			}
			schema.Enum = append(schema.Enum, value)
		default:
			return false, fmt.Errorf("unknown jsonschema directive %q", key)
		}
	}

	return required, nil
}
