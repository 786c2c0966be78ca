package domain

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// FieldKind is the JSON shape a custom field must have.
type FieldKind string

const (
	FieldKindString  FieldKind = "string"
	FieldKindNumber  FieldKind = "number"
	FieldKindBoolean FieldKind = "boolean"
	FieldKindObject  FieldKind = "object"
	FieldKindArray   FieldKind = "array"
)

// FieldSpec declares one custom field. Declarations are written as the kind
// name, with a trailing "?" for optional fields ("string", "number?").
type FieldSpec struct {
	Kind     FieldKind
	Optional bool
}

// FieldSchema maps custom field names to their declaration.
type FieldSchema map[string]FieldSpec

// ParseFieldSchema builds a schema from deployment configuration.
func ParseFieldSchema(decl map[string]string) (FieldSchema, error) {
	schema := make(FieldSchema, len(decl))
	for name, raw := range decl {
		if strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("custom field with empty name")
		}
		if IsReservedField(name) {
			return nil, fmt.Errorf("custom field %q collides with a built-in attribute", name)
		}
		spec := FieldSpec{}
		kind := strings.TrimSpace(raw)
		if strings.HasSuffix(kind, "?") {
			spec.Optional = true
			kind = strings.TrimSuffix(kind, "?")
		}
		switch FieldKind(kind) {
		case FieldKindString, FieldKindNumber, FieldKindBoolean, FieldKindObject, FieldKindArray:
			spec.Kind = FieldKind(kind)
		default:
			return nil, fmt.Errorf("custom field %q has unsupported type %q", name, raw)
		}
		schema[name] = spec
	}
	return schema, nil
}

// Names returns the declared field names in a stable order.
func (s FieldSchema) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Check validates value against the declaration of name.
// present is false when the field was not sent at all.
func (s FieldSchema) Check(name string, value any, present bool) error {
	spec, ok := s[name]
	if !ok {
		return fmt.Errorf("field %q is not allowed", name)
	}
	if !present {
		if spec.Optional {
			return nil
		}
		return fmt.Errorf("field %q is required", name)
	}
	if value == nil {
		if spec.Optional {
			return nil
		}
		return fmt.Errorf("field %q must not be null", name)
	}
	if !matchesKind(spec.Kind, value) {
		return fmt.Errorf("field %q must be of type %s", name, spec.Kind)
	}
	return nil
}

func matchesKind(kind FieldKind, value any) bool {
	switch kind {
	case FieldKindString:
		_, ok := value.(string)
		return ok
	case FieldKindNumber:
		switch value.(type) {
		case json.Number, float64, float32, int, int32, int64:
			return true
		}
		return false
	case FieldKindBoolean:
		_, ok := value.(bool)
		return ok
	case FieldKindObject:
		_, ok := value.(map[string]any)
		return ok
	case FieldKindArray:
		_, ok := value.([]any)
		return ok
	}
	return false
}
