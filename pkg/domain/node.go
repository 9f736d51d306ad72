package domain

// Role classifies what a Node was declared as. Exactly one role per node.
type Role string

const (
	// RoleStep is a function annotated as a node. It runs when the graph executes.
	RoleStep Role = "callable-step"
	// RoleWorkflow is a function annotated as a workflow. It orchestrates steps.
	RoleWorkflow Role = "workflow-entry"
	// RoleDeclarative is a node described only by a type id and literal properties.
	RoleDeclarative Role = "declarative-node"
)

// PortKind tags what flows through a port.
type PortKind string

const (
	PortData    PortKind = "data"
	PortControl PortKind = "control"
	PortModel   PortKind = "llm"
	PortMemory  PortKind = "memory"
	PortTools   PortKind = "tools"
)

// Port is a named connection point on a declarative node.
type Port struct {
	Name     string   `json:"name" yaml:"name"`
	Kind     PortKind `json:"kind" yaml:"kind"`
	Input    bool     `json:"input" yaml:"input"`
	Multiple bool     `json:"multiple" yaml:"multiple"`
}

// Node represents a declaration in the graph.
// Label, NodeType, Props and Ports are only populated for declarative nodes.
type Node struct {
	ID       string         `json:"id" yaml:"id"`
	Name     string         `json:"name" yaml:"name"`
	Role     Role           `json:"role" yaml:"role"`
	Label    string         `json:"label,omitempty" yaml:"label,omitempty"`
	NodeType string         `json:"node_type,omitempty" yaml:"node_type,omitempty"`
	Props    map[string]any `json:"props,omitempty" yaml:"props,omitempty"`
	Ports    []Port         `json:"ports,omitempty" yaml:"ports,omitempty"`
}

// IsExecutable reports whether the node is a callable step.
// Declarative nodes can also be executable; that depends on their registered type.
func (n Node) IsExecutable() bool {
	return n.Role == RoleStep
}
