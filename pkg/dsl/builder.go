package dsl

import (
	"fmt"

	"github.com/aretw0/holon/pkg/domain"
)

// Builder manages the graph construction.
// Nodes keep insertion order, like extracted graphs do.
type Builder struct {
	order []string
	nodes map[string]*NodeBuilder
	edges []domain.Edge
	seen  map[domain.Edge]bool
}

// New creates a new graph builder.
func New() *Builder {
	return &Builder{
		nodes: make(map[string]*NodeBuilder),
		seen:  make(map[domain.Edge]bool),
	}
}

// Add creates a new node in the graph.
// If the node already exists, it returns the existing builder.
func (b *Builder) Add(id string) *NodeBuilder {
	if nb, ok := b.nodes[id]; ok {
		return nb
	}
	nb := &NodeBuilder{
		node:    domain.Node{ID: id, Name: id},
		builder: b,
	}
	b.nodes[id] = nb
	b.order = append(b.order, id)
	return nb
}

// Step adds a callable step named name.
func (b *Builder) Step(name string) *Builder {
	nb := b.Add(domain.StepID(name))
	nb.node.Name = name
	nb.node.Role = domain.RoleStep
	return b
}

// Workflow adds a workflow entry and implicit call edges to the named steps.
func (b *Builder) Workflow(name string, calls ...string) *Builder {
	nb := b.Add(domain.WorkflowID(name))
	nb.node.Name = name
	nb.node.Role = domain.RoleWorkflow
	for _, step := range calls {
		b.edge(domain.CallEdge(nb.node.ID, domain.StepID(step)))
	}
	return b
}

// Spec adds a declarative node and returns its builder for further configuration.
func (b *Builder) Spec(id, nodeType string) *NodeBuilder {
	nb := b.Add(id)
	nb.node.Role = domain.RoleDeclarative
	nb.node.NodeType = nodeType
	return nb
}

// Link adds an explicit port link.
func (b *Builder) Link(source, sourcePort, target, targetPort string) *Builder {
	b.edge(domain.LinkEdge(source, sourcePort, target, targetPort))
	return b
}

func (b *Builder) edge(e domain.Edge) {
	if b.seen[e] {
		return
	}
	b.seen[e] = true
	b.edges = append(b.edges, e)
}

// Graph returns the graph built so far without validating it.
func (b *Builder) Graph() domain.Graph {
	g := domain.Graph{
		Nodes: make([]domain.Node, 0, len(b.order)),
		Edges: append([]domain.Edge(nil), b.edges...),
	}
	for _, id := range b.order {
		g.Nodes = append(g.Nodes, b.nodes[id].Build())
	}
	return g
}

// Build returns the graph, failing if it breaks a structural invariant.
func (b *Builder) Build() (domain.Graph, error) {
	g := b.Graph()
	if err := g.Validate(); err != nil {
		return domain.Graph{}, fmt.Errorf("invalid graph: %w", err)
	}
	return g, nil
}
