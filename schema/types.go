package schema

// Common type constants for JSON Schema.
const (
	TypeNameString  = "string"
	TypeNameNumber  = "number"
	TypeNameInteger = "integer"
	TypeNameBoolean = "boolean"
	TypeNameArray   = "array"
	TypeNameObject  = "object"
	TypeNameNull    = "null"
)

// Builder provides a fluent API for constructing schemas.
type Builder struct {
	schema *Schema
}

// NewBuilder creates a new schema builder.
func NewBuilder() *Builder {
	return &Builder{
		schema: &Schema{},
	}
}

// Build returns the constructed schema.
func (b *Builder) Build() *Schema {
	return b.schema
}

// ID sets the schema ID and marks the schema as a top-level document.
func (b *Builder) ID(id string) *Builder {
	b.schema.ID = id
	b.schema.SchemaVersion = Draft
	return b
}

// Title sets the schema title.
func (b *Builder) Title(title string) *Builder {
	b.schema.Title = title
	return b
}

// Description sets the schema description.
func (b *Builder) Description(desc string) *Builder {
	b.schema.Description = desc
	return b
}

// Type sets the schema type.
func (b *Builder) Type(types ...string) *Builder {
	b.schema.Type = SchemaType(types)
	return b
}

// Enum sets allowed values.
func (b *Builder) Enum(values ...any) *Builder {
	b.schema.Enum = values
	return b
}

// Const sets a constant required value.
func (b *Builder) Const(value any) *Builder {
	b.schema.Const = value
	return b
}

// MinLength sets the minimum string length.
func (b *Builder) MinLength(n int) *Builder {
	b.schema.MinLength = &n
	return b
}

// Pattern sets a regex pattern for strings.
func (b *Builder) Pattern(pattern string) *Builder {
	b.schema.Pattern = pattern
	return b
}

// Property adds an object property.
func (b *Builder) Property(name string, schema *Schema) *Builder {
	if b.schema.Properties == nil {
		b.schema.Properties = make(map[string]*Schema)
	}
	b.schema.Properties[name] = schema
	return b
}

// Required adds required property names.
func (b *Builder) Required(names ...string) *Builder {
	b.schema.Required = append(b.schema.Required, names...)
	return b
}

// AdditionalProperties sets whether undeclared properties are allowed.
func (b *Builder) AdditionalProperties(allowed bool) *Builder {
	b.schema.AdditionalProperties = &allowed
	return b
}

// Closed is AdditionalProperties(false).
func (b *Builder) Closed() *Builder {
	return b.AdditionalProperties(false)
}

// Items sets the schema for array elements.
func (b *Builder) Items(schema *Schema) *Builder {
	b.schema.Items = schema
	return b
}

// AnyOf sets schemas where at least one must match.
func (b *Builder) AnyOf(schemas ...*Schema) *Builder {
	b.schema.AnyOf = schemas
	return b
}

// OneOf sets schemas where exactly one must match.
func (b *Builder) OneOf(schemas ...*Schema) *Builder {
	b.schema.OneOf = schemas
	return b
}

// Helper functions for common schema patterns.

// String creates a string schema.
func String() *Builder {
	return NewBuilder().Type(TypeNameString)
}

// Integer creates an integer schema.
func Integer() *Builder {
	return NewBuilder().Type(TypeNameInteger)
}

// Boolean creates a boolean schema.
func Boolean() *Builder {
	return NewBuilder().Type(TypeNameBoolean)
}

// Object creates an object schema.
func Object() *Builder {
	return NewBuilder().Type(TypeNameObject)
}

// Array creates an array schema with the given item schema.
func Array(items *Schema) *Builder {
	return NewBuilder().Type(TypeNameArray).Items(items)
}

// OneOf creates an untyped schema matching exactly one of schemas.
func OneOf(schemas ...*Schema) *Builder {
	return NewBuilder().OneOf(schemas...)
}

// AnyOf creates an untyped schema matching at least one of schemas.
func AnyOf(schemas ...*Schema) *Builder {
	return NewBuilder().AnyOf(schemas...)
}
