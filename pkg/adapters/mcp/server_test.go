package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/holon"
	"github.com/aretw0/holon/pkg/adapters/memory"
)

const flow = `package flows

//@node
func add(x, y int) int { return x + y }

//@workflow
func main(n int) int {
	return add(n, 1)
}
`

func newServer(t *testing.T) (*Server, *memory.Store) {
	t.Helper()
	store := memory.NewStoreFrom(map[string]string{"main.go": flow})
	eng, err := holon.New("", holon.WithSourceStore(store))
	require.NoError(t, err)
	return NewServer(eng, "main.go"), store
}

func call(t *testing.T, s *Server, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	for _, tool := range s.tools {
		if tool.Tool.Name != name {
			continue
		}
		var req mcp.CallToolRequest
		req.Params.Name = name
		req.Params.Arguments = args
		res, err := tool.Handler(context.Background(), req)
		require.NoError(t, err)
		return res
	}
	t.Fatalf("tool %s not registered", name)
	return nil
}

func text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	tc, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", res.Content[0])
	return tc.Text
}

func decode(t *testing.T, res *mcp.CallToolResult, v any) {
	t.Helper()
	require.False(t, res.IsError, text(t, res))
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), v))
}

func TestTools_Registered(t *testing.T) {
	s, _ := newServer(t)
	var names []string
	for _, tool := range s.tools {
		names = append(names, tool.Tool.Name)
	}
	assert.ElementsMatch(t, []string{
		"list_sources", "get_graph", "lint", "rename_node", "add_declarative_node",
		"add_link", "patch_declarative_node", "patch_callable_body", "delete_node", "run_workflow",
	}, names)
}

func TestListSourcesAndGraph(t *testing.T) {
	s, _ := newServer(t)

	var names []string
	decode(t, call(t, s, "list_sources", nil), &names)
	assert.Equal(t, []string{"main.go"}, names)

	var g struct {
		Nodes []struct {
			ID string `json:"id"`
		} `json:"nodes"`
	}
	decode(t, call(t, s, "get_graph", nil), &g)
	require.Len(t, g.Nodes, 2)
	assert.Equal(t, "node:add", g.Nodes[0].ID)

	res := call(t, s, "get_graph", map[string]any{"file": "missing.go"})
	assert.True(t, res.IsError)
}

func TestLint(t *testing.T) {
	s, _ := newServer(t)
	var issues []map[string]any
	decode(t, call(t, s, "lint", nil), &issues)
	assert.Empty(t, issues)
}

func TestEditTools(t *testing.T) {
	s, store := newServer(t)

	var out map[string]string
	decode(t, call(t, s, "add_declarative_node", map[string]any{
		"node_id":   "spec:llm",
		"node_type": "llm.model",
		"props":     map[string]any{"model": "gpt-4o"},
	}), &out)
	assert.Equal(t, "spec:llm", out["node_id"])
	assert.Contains(t, out["source"], `"gpt-4o"`)

	decode(t, call(t, s, "rename_node", map[string]any{"old_name": "add", "new_name": "inc"}), &out)
	assert.Contains(t, out["source"], "return inc(n, 1)")

	stored, err := store.Load(context.Background(), "main.go")
	require.NoError(t, err)
	assert.Equal(t, out["source"], string(stored))

	res := call(t, s, "delete_node", map[string]any{})
	assert.True(t, res.IsError)
	assert.Contains(t, text(t, res), "node_id is required")

	res = call(t, s, "patch_callable_body", map[string]any{"node_name": "ghost", "new_function_code": "func ghost() {}"})
	assert.True(t, res.IsError)
	assert.Contains(t, text(t, res), "patch_callable_body failed")
}

func TestRunWorkflow(t *testing.T) {
	s, _ := newServer(t)

	res := call(t, s, "run_workflow", map[string]any{"args": map[string]any{"n": 41}})
	require.False(t, res.IsError, text(t, res))

	run, ok := res.StructuredContent.(RunResponse)
	require.True(t, ok, "structured content is %T", res.StructuredContent)
	assert.Equal(t, 42, run.Output)
	assert.Equal(t, "completed", string(run.Result.Phase))

	res = call(t, s, "run_workflow", map[string]any{"workflow_name": "nope"})
	assert.True(t, res.IsError)
}

func TestReadSource(t *testing.T) {
	s, _ := newServer(t)
	var req mcp.ReadResourceRequest
	req.Params.URI = SourceURIPrefix + "main.go"

	contents, err := s.readSource(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, contents, 1)
	assert.Equal(t, flow, contents[0].(mcp.TextResourceContents).Text)
}
