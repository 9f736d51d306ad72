package dto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_AddLink(t *testing.T) {
	var req AddLinkRequest
	err := Decode(map[string]any{
		"file":           "flows/main.go",
		"workflow_name":  "main",
		"source_node_id": "spec:llm",
		"source_port":    "out",
		"target_node_id": "spec:agent",
		"target_port":    "llm",
	}, &req)
	require.NoError(t, err)
	require.NoError(t, req.Validate())

	assert.Equal(t, "flows/main.go", req.File)
	l := req.Link()
	assert.Equal(t, "spec:llm", l.Source)
	assert.Equal(t, "llm", l.TargetPort)
}

func TestDecode_WrongType(t *testing.T) {
	var req RenameNodeRequest
	err := Decode(map[string]any{"old_name": 3}, &req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid params")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		req  interface{ Validate() error }
		err  string
	}{
		{"spec node without type", AddSpecNodeRequest{NodeID: "spec:x"}, "node_type is required"},
		{"spec node", AddSpecNodeRequest{NodeType: "llm.model"}, ""},
		{"link missing one", AddLinkRequest{WorkflowName: "main", SourceNodeID: "a", SourcePort: "out", TargetNodeID: "b"}, "target_port is required"},
		{"link missing many", AddLinkRequest{WorkflowName: "main"}, "missing required fields: [source_node_id source_port target_node_id target_port]"},
		{"patch spec without id", PatchSpecNodeRequest{SetLabel: true}, "node_id is required"},
		{"patch spec", PatchSpecNodeRequest{NodeID: "spec:x", SetLabel: true}, ""},
		{"rename", RenameNodeRequest{OldName: "a"}, "new_name is required"},
		{"delete", DeleteNodeRequest{}, "node_id is required"},
		{"patch body", PatchNodeRequest{NodeName: "add", NewFunctionCode: "func add() {}"}, ""},
		{"credentials without map", CredentialsRequest{Provider: "openai"}, "credentials must be an object"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.err == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.err)
		})
	}
}

func TestSpecPatch(t *testing.T) {
	p := PatchSpecNodeRequest{NodeID: "spec:x", NodeType: "llm.model", SetNodeType: true, Props: map[string]any{"a": 1}}.SpecPatch()
	assert.True(t, p.SetType)
	assert.Equal(t, "llm.model", p.Type)
	assert.False(t, p.SetProps)
}

func TestExecuteRequest_Workflow(t *testing.T) {
	assert.Equal(t, "main", ExecuteRequest{}.Workflow())
	assert.Equal(t, "other", ExecuteRequest{WorkflowName: "other"}.Workflow())
}
