// Package schema declares tool argument schemas and validates raw arguments against them.
package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// Type is the JSON kind a field accepts.
type Type string

const (
	TypeString  Type = "string"
	TypeNumber  Type = "number"
	TypeInteger Type = "integer"
	TypeBoolean Type = "boolean"
	TypeObject  Type = "object"
	TypeArray   Type = "array"
)

// Known reports whether t is one of the supported field types.
func (t Type) Known() bool {
	switch t {
	case TypeString, TypeNumber, TypeInteger, TypeBoolean, TypeObject, TypeArray:
		return true
	}
	return false
}

// Field declares one named argument.
type Field struct {
	Name        string
	Type        Type
	Required    bool
	Default     interface{}
	Description string
}

// Schema is an ordered list of fields. Order decides the order of reported violations.
type Schema struct {
	Fields []Field
}

// New builds a schema from fields.
func New(fields ...Field) Schema {
	return Schema{Fields: fields}
}

// Check verifies the schema itself: unique names, known types, defaults of the declared type.
func (s Schema) Check() error {
	seen := make(map[string]bool, len(s.Fields))
	for _, f := range s.Fields {
		if f.Name == "" {
			return fmt.Errorf("schema field with empty name")
		}
		if seen[f.Name] {
			return fmt.Errorf("duplicate schema field %q", f.Name)
		}
		seen[f.Name] = true
		if !f.Type.Known() {
			return fmt.Errorf("field %q: unknown type %q", f.Name, f.Type)
		}
		if f.Default != nil {
			if _, ok := conform(f.Type, normalize(f.Default)); !ok {
				return fmt.Errorf("field %q: default %v is not of type %s", f.Name, f.Default, f.Type)
			}
		}
	}
	return nil
}

// JSONSchema renders the schema as a JSON Schema object for tools/list.
func (s Schema) JSONSchema() map[string]interface{} {
	props := make(map[string]interface{}, len(s.Fields))
	var required []string
	for _, f := range s.Fields {
		p := map[string]interface{}{"type": string(f.Type)}
		if f.Description != "" {
			p["description"] = f.Description
		}
		if f.Default != nil {
			p["default"] = f.Default
		}
		props[f.Name] = p
		if f.Required {
			required = append(required, f.Name)
		}
	}
	out := map[string]interface{}{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		out["required"] = required
	}
	return out
}

// FieldError is a single violation.
type FieldError struct {
	Field  string
	Reason string
}

func (e FieldError) String() string {
	return fmt.Sprintf("field %q %s", e.Field, e.Reason)
}

// ValidationError lists every field that failed validation.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.String())
	}
	return "Invalid arguments: " + strings.Join(parts, "; ")
}

// FieldNames returns the names of the offending fields.
func (e *ValidationError) FieldNames() []string {
	names := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		names = append(names, f.Field)
	}
	return names
}

// Validate checks raw against the schema and returns typed, defaulted arguments.
// Keys not declared by the schema are dropped. A present null counts as absent.
// The returned error, if any, is a *ValidationError.
func (s Schema) Validate(raw map[string]interface{}) (Args, error) {
	args := make(Args, len(s.Fields))
	var verr ValidationError

	for _, f := range s.Fields {
		v, present := raw[f.Name]
		if present && v == nil {
			present = false
		}
		if !present {
			switch {
			case f.Default != nil:
				d, _ := conform(f.Type, normalize(f.Default))
				args[f.Name] = copyValue(d)
			case f.Required:
				verr.Fields = append(verr.Fields, FieldError{Field: f.Name, Reason: "is required"})
			}
			continue
		}
		cv, ok := conform(f.Type, normalize(v))
		if !ok {
			verr.Fields = append(verr.Fields, FieldError{
				Field:  f.Name,
				Reason: fmt.Sprintf("must be %s, got %s", f.Type, kindOf(v)),
			})
			continue
		}
		args[f.Name] = cv
	}

	if len(verr.Fields) > 0 {
		return nil, &verr
	}
	return args, nil
}

// normalize maps Go-native values (as produced by YAML or literals) onto the
// JSON decoder's representation.
func normalize(v interface{}) interface{} {
	switch x := v.(type) {
	case int:
		return float64(x)
	case int32:
		return float64(x)
	case int64:
		return float64(x)
	case uint:
		return float64(x)
	case uint64:
		return float64(x)
	case float32:
		return float64(x)
	case json.Number:
		if f, err := x.Float64(); err == nil {
			return f
		}
		return x.String()
	case map[interface{}]interface{}:
		m := make(map[string]interface{}, len(x))
		for k, val := range x {
			m[fmt.Sprint(k)] = normalize(val)
		}
		return m
	case []interface{}:
		out := make([]interface{}, len(x))
		for i, val := range x {
			out[i] = normalize(val)
		}
		return out
	}
	return v
}

func conform(t Type, v interface{}) (interface{}, bool) {
	switch t {
	case TypeString:
		s, ok := v.(string)
		return s, ok
	case TypeNumber:
		f, ok := v.(float64)
		return f, ok
	case TypeInteger:
		f, ok := v.(float64)
		if !ok || f != math.Trunc(f) || math.IsInf(f, 0) {
			return nil, false
		}
		return int64(f), true
	case TypeBoolean:
		b, ok := v.(bool)
		return b, ok
	case TypeObject:
		m, ok := v.(map[string]interface{})
		return m, ok
	case TypeArray:
		a, ok := v.([]interface{})
		return a, ok
	}
	return nil, false
}

func kindOf(v interface{}) string {
	switch normalize(v).(type) {
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "boolean"
	case map[string]interface{}:
		return "object"
	case []interface{}:
		return "array"
	}
	return fmt.Sprintf("%T", v)
}

func copyValue(v interface{}) interface{} {
	switch x := v.(type) {
	case map[string]interface{}:
		m := make(map[string]interface{}, len(x))
		for k, val := range x {
			m[k] = copyValue(val)
		}
		return m
	case []interface{}:
		out := make([]interface{}, len(x))
		for i, val := range x {
			out[i] = copyValue(val)
		}
		return out
	}
	return v
}
