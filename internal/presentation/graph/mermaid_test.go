package graph_test

import (
	"strings"
	"testing"

	"github.com/aretw0/holon/internal/presentation/graph"
	"github.com/aretw0/holon/pkg/domain"
	"github.com/aretw0/holon/pkg/dsl"
	"github.com/aretw0/holon/pkg/extract"
)

func TestGenerateMermaid(t *testing.T) {
	tests := []struct {
		name     string
		graph    domain.Graph
		overlay  *graph.GraphOverlay
		contains []string
		excludes []string
	}{
		{
			name: "Role Shapes",
			graph: domain.Graph{Nodes: []domain.Node{
				{ID: "node:add", Name: "add", Role: domain.RoleStep},
				{ID: "workflow:main", Name: "main", Role: domain.RoleWorkflow},
				{ID: "spec:llm.model:a1", Name: "spec:llm.model:a1", Role: domain.RoleDeclarative, NodeType: "llm.model", Label: "Model"},
			}},
			contains: []string{
				`node__add["add"]`,
				`workflow__main(["main"])`,
				`spec__llm_model__a1[/"Model <br/> <i>llm.model</i>"/]`,
			},
			excludes: []string{"start"},
		},
		{
			name: "Declarative Without Label",
			graph: domain.Graph{Nodes: []domain.Node{
				{ID: "spec:x", Role: domain.RoleDeclarative, NodeType: "holon.props"},
			}},
			contains: []string{`spec__x[/"spec:x <br/> <i>holon.props</i>"/]`},
		},
		{
			name: "Edges",
			graph: domain.Graph{
				Nodes: []domain.Node{
					{ID: "workflow:main", Name: "main", Role: domain.RoleWorkflow},
					{ID: "node:a", Name: "a", Role: domain.RoleStep},
					{ID: "node:b", Name: "b", Role: domain.RoleStep},
				},
				Edges: []domain.Edge{
					domain.CallEdge("workflow:main", "node:a"),
					{Source: "node:a", SourcePort: "out", Target: "node:b", TargetPort: "in", Kind: domain.EdgeLink},
					{Source: domain.StartNodeID, SourcePort: "input", Target: "node:a", TargetPort: "x", Kind: domain.EdgeLink},
				},
			},
			contains: []string{
				`workflow__main --> node__a`,
				`node__a -. "out → in" .-> node__b`,
				`at_start(("start"))`,
				`at_start -. "input → x" .-> node__a`,
			},
		},
		{
			name: "Overlay",
			graph: domain.Graph{Nodes: []domain.Node{
				{ID: "node:a", Name: "a", Role: domain.RoleStep},
				{ID: "node:b", Name: "b", Role: domain.RoleStep},
			}},
			overlay: graph.OverlayFromResult(&domain.RunResult{
				Order:      []string{"node:a", "node:a", "node:b"},
				FailedNode: "node:b",
			}),
			contains: []string{
				"classDef executed",
				"class node__a executed;",
				"class node__b failed;",
			},
			excludes: []string{"class node__b executed;"},
		},
		{
			name: "Built Graph",
			graph: dsl.New().
				Workflow("chat", "ask").
				Step("ask").
				Spec("spec:mem", "memory.buffer").Label("Memory").Prop("max_messages", 5).Done().
				Link("spec:mem", "output", "node:ask", "memory").
				Graph(),
			contains: []string{
				`workflow__chat(["chat"])`,
				`workflow__chat --> node__ask`,
				`spec__mem[/"Memory <br/> <i>memory.buffer</i>"/]`,
				`spec__mem -. "output → memory" .-> node__ask`,
			},
			excludes: []string{"at_start"},
		},
		{
			name: "Label Escaping",
			graph: domain.Graph{Nodes: []domain.Node{
				{ID: "spec:q", Role: domain.RoleDeclarative, NodeType: "holon.props", Label: `say "hi"`},
			}},
			contains: []string{`say 'hi'`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := graph.GenerateMermaid(tt.graph, tt.overlay)
			if !strings.HasPrefix(got, "graph TD\n") {
				t.Errorf("GenerateMermaid() missing header:\n%v", got)
			}
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("GenerateMermaid() = \n%v\nWant substring: %v", got, want)
				}
			}
			for _, unwanted := range tt.excludes {
				if strings.Contains(got, unwanted) {
					t.Errorf("GenerateMermaid() = \n%v\nUnexpected substring: %v", got, unwanted)
				}
			}
		})
	}
}

func TestGenerateMermaid_FromSource(t *testing.T) {
	src := []byte(`package flows

//@node
func add(x, y int) int { return x + y }

//@workflow
func main() int {
	return add(1, 2)
}
`)
	g, err := extract.Extract(src)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	got := graph.GenerateMermaid(g, nil)
	for _, want := range []string{`node__add["add"]`, `workflow__main(["main"])`, "workflow__main --> node__add"} {
		if !strings.Contains(got, want) {
			t.Errorf("GenerateMermaid() = \n%v\nWant substring: %v", got, want)
		}
	}
	if strings.Contains(got, "Overlay") {
		t.Errorf("GenerateMermaid() without overlay rendered overlay styles")
	}
}
