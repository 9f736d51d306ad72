package tui

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/holon/pkg/domain"
	"github.com/aretw0/holon/pkg/extract"
	"github.com/aretw0/holon/pkg/registry"
)

func TestGraphMarkdown(t *testing.T) {
	g := domain.Graph{
		Nodes: []domain.Node{
			{ID: "node:add", Name: "add", Role: domain.RoleStep},
			{ID: "spec:mem", Role: domain.RoleDeclarative, NodeType: "memory.buffer", Ports: []domain.Port{
				{Name: "messages", Input: true},
				{Name: "memory"},
			}},
		},
		Edges: []domain.Edge{
			{Source: "spec:mem", SourcePort: "memory", Target: "node:add", TargetPort: "x", Kind: domain.EdgeLink},
		},
	}

	md := GraphMarkdown("main.go", g)
	assert.Contains(t, md, "# main.go")
	assert.Contains(t, md, "## Nodes (2)")
	assert.Contains(t, md, "| `node:add` | callable-step | - | - |")
	assert.Contains(t, md, "| `spec:mem` | declarative-node | memory.buffer | in:messages, out:memory |")
	assert.Contains(t, md, "| `spec:mem.memory` | `node:add.x` | explicit-link |")
}

func TestGraphMarkdown_Empty(t *testing.T) {
	md := GraphMarkdown("empty.go", domain.Graph{})
	assert.Contains(t, md, "## Nodes (0)\n\n_none_")
	assert.Contains(t, md, "## Edges (0)\n\n_none_")
}

func TestIssuesMarkdown(t *testing.T) {
	assert.Equal(t, "**No issues found.**\n", IssuesMarkdown(nil))

	md := IssuesMarkdown([]extract.Issue{
		{Kind: extract.IssueUnusedStep, NodeID: "node:x", Line: 4, Message: "step x is never called"},
		{Kind: extract.IssueDanglingLink, Message: "a | b"},
	})
	assert.Contains(t, md, "**2 issue(s) found.**")
	assert.Contains(t, md, "| 4 | unused_step | node:x | step x is never called |")
	assert.Contains(t, md, `| - | dangling_link | - | a \| b |`)
}

func TestNewRenderer_PlainWhenNotTerminal(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "out")
	require.NoError(t, err)
	defer f.Close()

	out, err := NewRenderer(f)("# title")
	require.NoError(t, err)
	assert.Equal(t, "# title", out)
}

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	PrintBanner(&buf, "v1.2.3")
	assert.Contains(t, buf.String(), "v1.2.3")
	assert.Contains(t, buf.String(), "|_| |_|")
}

func TestTypesMarkdown(t *testing.T) {
	md := TypesMarkdown(registry.Builtins())
	assert.Contains(t, md, "| `memory.buffer` | max_messages: int? | out:output | no |")
	assert.Contains(t, md, "| `holon.template` | fallback: any?, template: string | in:input, in:llm, in:memory, out:output | yes |")

	assert.Contains(t, TypesMarkdown(nil), "_none_")
}
