package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFieldSchema(t *testing.T) {
	schema, err := ParseFieldSchema(map[string]string{
		"description": "string",
		"order":       "number?",
	})
	require.NoError(t, err)
	assert.Equal(t, FieldSpec{Kind: FieldKindString}, schema["description"])
	assert.Equal(t, FieldSpec{Kind: FieldKindNumber, Optional: true}, schema["order"])
	assert.Equal(t, []string{"description", "order"}, schema.Names())

	_, err = ParseFieldSchema(map[string]string{"x": "date"})
	assert.Error(t, err)

	_, err = ParseFieldSchema(map[string]string{"path": "string"})
	assert.Error(t, err)
}

func TestFieldSchemaCheck(t *testing.T) {
	schema, err := ParseFieldSchema(map[string]string{
		"type2":   "string",
		"order":   "number?",
		"flags":   "array?",
		"meta":    "object?",
		"visible": "boolean?",
	})
	require.NoError(t, err)

	assert.NoError(t, schema.Check("type2", "x", true))
	assert.Error(t, schema.Check("type2", 132.0, true))
	assert.Error(t, schema.Check("type2", nil, false))
	assert.NoError(t, schema.Check("order", nil, false))
	assert.NoError(t, schema.Check("order", 1.0, true))
	assert.Error(t, schema.Check("order", "1", true))
	assert.NoError(t, schema.Check("flags", []any{"a"}, true))
	assert.NoError(t, schema.Check("meta", map[string]any{"a": 1.0}, true))
	assert.NoError(t, schema.Check("visible", true, true))
	assert.Error(t, schema.Check("unknown", "x", true))
}
