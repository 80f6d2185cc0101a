// Package schema describes and checks the shape of configuration documents
// with a subset of JSON Schema.
//
// Schemas are plain data: they can be built in Go with Builder, parsed from a
// JSON Schema document with Parse, and exported again with JSON. A Validator
// checks a document tree against one schema and reports every failure with
// the JSON Pointer of the offending value.
package schema

import (
	"fmt"

	"github.com/goccy/go-json"
)

// Draft is the JSON Schema dialect written by JSON.
const Draft = "https://json-schema.org/draft/2020-12/schema"

// Schema is a JSON Schema definition.
type Schema struct {
	ID            string `json:"$id,omitempty"`
	SchemaVersion string `json:"$schema,omitempty"`
	Title         string `json:"title,omitempty"`
	Description   string `json:"description,omitempty"`

	// Type is the JSON type (string, integer, number, boolean, array, object, null).
	Type SchemaType `json:"type,omitempty"`

	// Properties defines object properties (for type: object).
	Properties map[string]*Schema `json:"properties,omitempty"`

	// AdditionalProperties controls whether undeclared properties are
	// allowed. Nil means allowed.
	AdditionalProperties *bool `json:"additionalProperties,omitempty"`

	// Required lists required property names.
	Required []string `json:"required,omitempty"`

	// Items defines the schema for array elements.
	Items *Schema `json:"items,omitempty"`

	Enum  []any `json:"enum,omitempty"`
	Const any   `json:"const,omitempty"`

	MinLength *int   `json:"minLength,omitempty"`
	Pattern   string `json:"pattern,omitempty"`

	// AnyOf requires at least one schema to match.
	AnyOf []*Schema `json:"anyOf,omitempty"`

	// OneOf requires exactly one schema to match.
	OneOf []*Schema `json:"oneOf,omitempty"`
}

// SchemaType represents JSON Schema type(s): a single type name or a list.
// An empty SchemaType accepts any type.
type SchemaType []string

// UnmarshalJSON handles both single type and array of types.
func (t *SchemaType) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		if single == "" {
			*t = nil
			return nil
		}
		*t = SchemaType{single}
		return nil
	}

	var arr []string
	if err := json.Unmarshal(data, &arr); err != nil {
		return fmt.Errorf("type must be string or array of strings: %w", err)
	}
	*t = arr
	return nil
}

// MarshalJSON outputs single type as string, multiple as array.
func (t SchemaType) MarshalJSON() ([]byte, error) {
	if len(t) == 1 {
		return json.Marshal(t[0])
	}
	return json.Marshal([]string(t))
}

// Is checks if the schema type includes the given type.
func (t SchemaType) Is(typ string) bool {
	for _, st := range t {
		if st == typ {
			return true
		}
	}
	return false
}

// IsEmpty returns true if no types are defined.
func (t SchemaType) IsEmpty() bool {
	return len(t) == 0
}

func (t SchemaType) String() string {
	if len(t) == 1 {
		return t[0]
	}
	return fmt.Sprintf("%v", []string(t))
}

// Parse reads a JSON Schema document, such as one written by JSON. Keywords
// outside the supported subset are ignored.
func Parse(data []byte) (*Schema, error) {
	s := &Schema{}
	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("failed to parse schema: %w", err)
	}
	return s, nil
}

// JSON renders the schema as an indented JSON Schema document.
func (s *Schema) JSON() ([]byte, error) {
	out, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	return append(out, '\n'), nil
}

// Property returns the schema of a direct property, or nil.
func (s *Schema) Property(name string) *Schema {
	if s == nil || s.Properties == nil {
		return nil
	}
	return s.Properties[name]
}

// IsRequired checks if a property is required.
func (s *Schema) IsRequired(name string) bool {
	for _, req := range s.Required {
		if req == name {
			return true
		}
	}
	return false
}

// AllowsAdditionalProperties returns whether additional properties are allowed.
func (s *Schema) AllowsAdditionalProperties() bool {
	if s.AdditionalProperties == nil {
		return true
	}
	return *s.AdditionalProperties
}
