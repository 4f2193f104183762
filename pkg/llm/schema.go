package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

type Type string

const (
	TypeObject  Type = "OBJECT"
	TypeArray   Type = "ARRAY"
	TypeString  Type = "STRING"
	TypeInteger Type = "INTEGER"
	TypeNumber  Type = "NUMBER"
	TypeBoolean Type = "BOOLEAN"
)

// Schema is the OpenAPI subset understood by Gemini's responseSchema.
// Name is local only and never serialized.
type Schema struct {
	Name        string             `json:"-"`
	Type        Type               `json:"type"`
	Format      string             `json:"format,omitempty"`
	Description string             `json:"description,omitempty"`
	Enum        []string           `json:"enum,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Required    []string           `json:"required,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
}

func String(description string) *Schema {
	return &Schema{Type: TypeString, Description: description}
}

func Integer(description string) *Schema {
	return &Schema{Type: TypeInteger, Description: description}
}

func Boolean(description string) *Schema {
	return &Schema{Type: TypeBoolean, Description: description}
}

func Enum(description string, values ...string) *Schema {
	return &Schema{Type: TypeString, Format: "enum", Description: description, Enum: values}
}

func ArrayOf(items *Schema, description string) *Schema {
	return &Schema{Type: TypeArray, Items: items, Description: description}
}

// Object builds a named object schema; required lists the mandatory keys.
func Object(name string, properties map[string]*Schema, required ...string) *Schema {
	return &Schema{Name: name, Type: TypeObject, Properties: properties, Required: required}
}

// JSONSchema renders the schema in lowercase JSON Schema form, as Ollama's
// format field expects.
func (s *Schema) JSONSchema() map[string]any {
	out := map[string]any{"type": strings.ToLower(string(s.Type))}
	if s.Description != "" {
		out["description"] = s.Description
	}
	if len(s.Enum) > 0 {
		out["enum"] = s.Enum
	}
	if len(s.Properties) > 0 {
		props := make(map[string]any, len(s.Properties))
		for k, v := range s.Properties {
			props[k] = v.JSONSchema()
		}
		out["properties"] = props
	}
	if len(s.Required) > 0 {
		out["required"] = s.Required
	}
	if s.Items != nil {
		out["items"] = s.Items.JSONSchema()
	}
	return out
}

// Validate checks a value produced by json.Unmarshal into `any`.
// Properties not declared by the schema are ignored.
func (s *Schema) Validate(v any) error {
	return s.validate("$", v)
}

func (s *Schema) validate(path string, v any) error {
	switch s.Type {
	case TypeObject:
		obj, ok := v.(map[string]any)
		if !ok {
			return mismatch(path, s.Type, v)
		}
		for _, key := range s.Required {
			if val, present := obj[key]; !present || val == nil {
				return fmt.Errorf("%s.%s: required field missing", path, key)
			}
		}
		for key, prop := range s.Properties {
			val, present := obj[key]
			if !present || val == nil {
				continue
			}
			if err := prop.validate(path+"."+key, val); err != nil {
				return err
			}
		}
	case TypeArray:
		arr, ok := v.([]any)
		if !ok {
			return mismatch(path, s.Type, v)
		}
		if s.Items == nil {
			return nil
		}
		for i, item := range arr {
			if err := s.Items.validate(fmt.Sprintf("%s[%d]", path, i), item); err != nil {
				return err
			}
		}
	case TypeString:
		str, ok := v.(string)
		if !ok {
			return mismatch(path, s.Type, v)
		}
		if len(s.Enum) > 0 && !contains(s.Enum, str) {
			return fmt.Errorf("%s: %q is not one of %v", path, str, s.Enum)
		}
	case TypeInteger:
		n, ok := v.(float64)
		if !ok || n != math.Trunc(n) {
			return mismatch(path, s.Type, v)
		}
	case TypeNumber:
		if _, ok := v.(float64); !ok {
			return mismatch(path, s.Type, v)
		}
	case TypeBoolean:
		if _, ok := v.(bool); !ok {
			return mismatch(path, s.Type, v)
		}
	default:
		return fmt.Errorf("%s: unsupported schema type %q", path, s.Type)
	}
	return nil
}

func mismatch(path string, want Type, got any) error {
	return fmt.Errorf("%s: expected %s, got %s", path, want, jsonKind(got))
}

func jsonKind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "boolean"
	}
	return fmt.Sprintf("%T", v)
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

// Decode parses resp as JSON, validates it against schema and unmarshals it
// into out. Every failure wraps ErrSchemaMismatch.
func Decode(resp *Response, schema *Schema, out any) error {
	if resp == nil {
		return fmt.Errorf("%w: empty response", ErrSchemaMismatch)
	}
	raw := stripCodeFence(resp.Text)
	if len(raw) == 0 {
		return fmt.Errorf("%w: empty response", ErrSchemaMismatch)
	}

	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return fmt.Errorf("%w: invalid JSON: %v", ErrSchemaMismatch, err)
	}
	if schema != nil {
		if err := schema.Validate(generic); err != nil {
			return fmt.Errorf("%w: %v", ErrSchemaMismatch, err)
		}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: %v", ErrSchemaMismatch, err)
	}
	return nil
}

// stripCodeFence removes a ```json ... ``` wrapper some models add.
func stripCodeFence(text string) []byte {
	b := bytes.TrimSpace([]byte(text))
	b = bytes.TrimPrefix(b, []byte("```json"))
	b = bytes.TrimPrefix(b, []byte("```"))
	b = bytes.TrimSuffix(b, []byte("```"))
	return bytes.TrimSpace(b)
}
