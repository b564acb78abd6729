package structured

import (
	"encoding/json"
	"slices"
)

// SchemaType represents JSON Schema types.
type SchemaType string

const (
	TypeString  SchemaType = "string"
	TypeNumber  SchemaType = "number"
	TypeInteger SchemaType = "integer"
	TypeBoolean SchemaType = "boolean"
	TypeNull    SchemaType = "null"
	TypeObject  SchemaType = "object"
	TypeArray   SchemaType = "array"
)

// JSONSchema is the subset of JSON Schema the validator understands.
type JSONSchema struct {
	Title string     `json:"title,omitempty"`
	Type  SchemaType `json:"type,omitempty"`

	// Object properties
	Properties           map[string]*JSONSchema `json:"properties,omitempty"`
	Required             []string               `json:"required,omitempty"`
	AdditionalProperties *bool                  `json:"additionalProperties,omitempty"`

	// Array items
	Items       *JSONSchema `json:"items,omitempty"`
	MinItems    *int        `json:"minItems,omitempty"`
	MaxItems    *int        `json:"maxItems,omitempty"`
	UniqueItems *bool       `json:"uniqueItems,omitempty"`

	// Enum and const
	Enum  []any `json:"enum,omitempty"`
	Const any   `json:"const,omitempty"`

	// String constraints
	MinLength *int   `json:"minLength,omitempty"`
	MaxLength *int   `json:"maxLength,omitempty"`
	Pattern   string `json:"pattern,omitempty"`
}

// NewObjectSchema creates a new object schema.
func NewObjectSchema() *JSONSchema {
	return &JSONSchema{
		Type:       TypeObject,
		Properties: make(map[string]*JSONSchema),
	}
}

// NewArraySchema creates a new array schema with the specified items schema.
func NewArraySchema(items *JSONSchema) *JSONSchema {
	return &JSONSchema{
		Type:  TypeArray,
		Items: items,
	}
}

// NewStringSchema creates a new string schema.
func NewStringSchema() *JSONSchema {
	return &JSONSchema{Type: TypeString}
}

// NewBooleanSchema creates a new boolean schema.
func NewBooleanSchema() *JSONSchema {
	return &JSONSchema{Type: TypeBoolean}
}

// NewEnumSchema creates a string schema restricted to values.
func NewEnumSchema(values ...string) *JSONSchema {
	enum := make([]any, len(values))
	for i, v := range values {
		enum[i] = v
	}
	return &JSONSchema{Type: TypeString, Enum: enum}
}

// NewTextSchema 非空字符串（至少包含一个非空白字符）
func NewTextSchema() *JSONSchema {
	return NewStringSchema().WithMinLength(1).WithPattern(`\S`)
}

// NewTextListSchema is an array of non-blank strings with min..max entries.
// max <= 0 means unbounded.
func NewTextListSchema(min, max int) *JSONSchema {
	s := NewArraySchema(NewTextSchema())
	switch {
	case max > 0 && min == max:
		return s.WithExactItems(min)
	case max > 0:
		s.WithMaxItems(max)
	}
	return s.WithMinItems(min)
}

// WithTitle sets the title and returns the schema for chaining.
func (s *JSONSchema) WithTitle(title string) *JSONSchema {
	s.Title = title
	return s
}

// AddProperty adds a property to an object schema.
func (s *JSONSchema) AddProperty(name string, prop *JSONSchema) *JSONSchema {
	if s.Properties == nil {
		s.Properties = make(map[string]*JSONSchema)
	}
	s.Properties[name] = prop
	return s
}

// AddRequired adds required field names to an object schema.
func (s *JSONSchema) AddRequired(names ...string) *JSONSchema {
	s.Required = append(s.Required, names...)
	return s
}

// AddRequiredProperty adds a property and marks it required.
func (s *JSONSchema) AddRequiredProperty(name string, prop *JSONSchema) *JSONSchema {
	return s.AddProperty(name, prop).AddRequired(name)
}

func (s *JSONSchema) WithMinLength(min int) *JSONSchema {
	s.MinLength = &min
	return s
}

func (s *JSONSchema) WithMaxLength(max int) *JSONSchema {
	s.MaxLength = &max
	return s
}

func (s *JSONSchema) WithPattern(pattern string) *JSONSchema {
	s.Pattern = pattern
	return s
}

func (s *JSONSchema) WithMinItems(min int) *JSONSchema {
	s.MinItems = &min
	return s
}

func (s *JSONSchema) WithMaxItems(max int) *JSONSchema {
	s.MaxItems = &max
	return s
}

// WithExactItems pins the array length.
func (s *JSONSchema) WithExactItems(n int) *JSONSchema {
	return s.WithMinItems(n).WithMaxItems(n)
}

func (s *JSONSchema) WithUniqueItems(unique bool) *JSONSchema {
	s.UniqueItems = &unique
	return s
}

// WithAdditionalProperties sets the additionalProperties constraint.
func (s *JSONSchema) WithAdditionalProperties(allowed bool) *JSONSchema {
	s.AdditionalProperties = &allowed
	return s
}

// WithConst sets the const value.
func (s *JSONSchema) WithConst(value any) *JSONSchema {
	s.Const = value
	return s
}

// ToJSON 序列化 schema，作为 ChatRequest.ResponseSchema 发给 Provider
func (s *JSONSchema) ToJSON() ([]byte, error) {
	return json.Marshal(s)
}

// IsRequired checks if a property is required.
func (s *JSONSchema) IsRequired(name string) bool {
	return slices.Contains(s.Required, name)
}
