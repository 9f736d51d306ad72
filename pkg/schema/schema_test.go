package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestTypes(t *testing.T) {
	tests := []struct {
		typ  Type
		name string
		ok   []any
		bad  []any
	}{
		{String(), "string", []any{"", "x"}, []any{1, true, nil}},
		{Int(), "int", []any{1, int64(2), float64(3)}, []any{1.5, "1", nil}},
		{Float(), "float", []any{1.5, 2, float32(1)}, []any{"1", true}},
		{Bool(), "bool", []any{true, false}, []any{0, "true"}},
		{Map(), "map", []any{map[string]any{}}, []any{[]any{}, "x"}},
		{Any(), "any", []any{nil, 1, "x"}, nil},
		{Slice(String()), "[string]", []any{[]any{"a"}, []string{"b"}, []any{}}, []any{[]any{1}, "a"}},
		{Optional(Int()), "int?", []any{nil, 3}, []any{"3"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.name, tt.typ.Name())
			for _, v := range tt.ok {
				assert.NoError(t, tt.typ.Validate(v), "%#v", v)
			}
			for _, v := range tt.bad {
				assert.Error(t, tt.typ.Validate(v), "%#v", v)
			}

			parsed, err := ParseType(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.typ, parsed)
		})
	}
}

func TestOptionalIsIdempotent(t *testing.T) {
	assert.Equal(t, "string?", Optional(Optional(String())).Name())
	assert.True(t, IsOptional(Optional(String())))
	assert.False(t, IsOptional(String()))
}

func TestParseType_Unsupported(t *testing.T) {
	for _, s := range []string{"", "uuid", "[]", "[uuid]", "?"} {
		_, err := ParseType(s)
		assert.Error(t, err, s)
	}
}

func TestValidate(t *testing.T) {
	s := Schema{
		"model_name":  String(),
		"temperature": Optional(Float()),
		"max_tokens":  Int(),
	}

	assert.NoError(t, Validate(s, map[string]any{"model_name": "m", "max_tokens": 10, "extra": true}))
	assert.NoError(t, Validate(s, map[string]any{"model_name": "m", "max_tokens": 10, "temperature": nil}))
	assert.NoError(t, Validate(nil, map[string]any{"anything": 1}))

	err := Validate(s, map[string]any{"model_name": 3, "temperature": "hot"})
	require.Error(t, err)
	errs := ValidationErrors(err)
	require.Len(t, errs, 3)
	// key order
	assert.Equal(t, "max_tokens", errs[0].(*ValidationError).Key)
	assert.Equal(t, "required", errs[0].(*ValidationError).Reason)
	assert.Equal(t, "model_name", errs[1].(*ValidationError).Key)
	assert.Equal(t, "temperature", errs[2].(*ValidationError).Key)
	assert.Contains(t, err.Error(), "3 invalid props")
}

func TestCheck(t *testing.T) {
	assert.NoError(t, Schema{"a": String()}.Check())
	assert.Error(t, Schema{"": String()}.Check())
	assert.Error(t, Schema{"a": nil}.Check())
}

func TestFill(t *testing.T) {
	got := Fill(map[string]any{"a": 1}, map[string]any{"a": 0, "b": 2})
	assert.Equal(t, map[string]any{"a": 1, "b": 2}, got)
}

func TestSerialization(t *testing.T) {
	s := Schema{"name": String(), "tags": Optional(Slice(String()))}

	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"string","tags":"[string]?"}`, string(data))

	var back Schema
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, s, back)

	y, err := yaml.Marshal(s)
	require.NoError(t, err)
	var fromYAML Schema
	require.NoError(t, yaml.Unmarshal(y, &fromYAML))
	assert.Equal(t, s, fromYAML)

	assert.Error(t, json.Unmarshal([]byte(`{"x":"uuid"}`), &back))
}
