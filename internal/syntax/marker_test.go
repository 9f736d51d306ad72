package syntax

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseMarker(t *testing.T) {
	tests := []struct {
		name   string
		line   string
		ok     bool
		marker string
		qual   string
		args   map[string]string
	}{
		{name: "bare", line: "//@node", ok: true, marker: "node", qual: "node"},
		{name: "qualified", line: "//@holon.workflow", ok: true, marker: "workflow", qual: "holon.workflow"},
		{name: "call style", line: `//@node(type="llm.model", id="spec:x", label="GPT")`, ok: true, marker: "node", qual: "node",
			args: map[string]string{"type": "llm.model", "id": "spec:x", "label": "GPT"}},
		{name: "empty call", line: "//@node()", ok: true, marker: "node", qual: "node", args: map[string]string{}},
		{name: "numeric arg", line: "//@dsl.node(retries=3)", ok: true, marker: "node", qual: "dsl.node", args: map[string]string{"retries": "3"}},
		{name: "plain comment", line: "// node", ok: false},
		{name: "spaced marker", line: "// @node", ok: false},
		{name: "broken args", line: `//@node(type=)`, ok: false},
		{name: "unclosed", line: `//@node(type="x"`, ok: false},
		{name: "bad name", line: "//@9node", ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, ok := ParseMarker(tt.line)
			assert.Equal(t, tt.ok, ok)
			if !tt.ok {
				return
			}
			assert.Equal(t, tt.marker, m.Name)
			assert.Equal(t, tt.qual, m.Qualified)
			assert.Equal(t, tt.args, m.Args)
		})
	}
}

func TestSnakeCase(t *testing.T) {
	for in, want := range map[string]string{
		"ModelName":  "model_name",
		"APIKey":     "api_key",
		"MaxTokens2": "max_tokens2",
		"X":          "x",
		"HTTPServer": "http_server",
	} {
		assert.Equal(t, want, SnakeCase(in), in)
	}
}
