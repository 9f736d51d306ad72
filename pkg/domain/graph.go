package domain

import "fmt"

// Graph is the ordered set of nodes and edges described by one source buffer.
// Order is declaration order and is part of the contract.
type Graph struct {
	Nodes []Node `json:"nodes" yaml:"nodes"`
	Edges []Edge `json:"edges" yaml:"edges"`
}

// Node looks up a node by id.
func (g Graph) Node(id string) (Node, bool) {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// Has reports whether id names a node of the graph or the start pseudo-node.
func (g Graph) Has(id string) bool {
	if id == StartNodeID {
		return true
	}
	_, ok := g.Node(id)
	return ok
}

// NodesByRole returns the nodes with the given role, in graph order.
func (g Graph) NodesByRole(role Role) []Node {
	var out []Node
	for _, n := range g.Nodes {
		if n.Role == role {
			out = append(out, n)
		}
	}
	return out
}

// Links returns the explicit-link edges, in graph order.
func (g Graph) Links() []Edge {
	var out []Edge
	for _, e := range g.Edges {
		if e.Kind == EdgeLink {
			out = append(out, e)
		}
	}
	return out
}

// CallsFrom returns the ids of the steps invoked by the given workflow id.
func (g Graph) CallsFrom(workflowID string) []string {
	var out []string
	for _, e := range g.Edges {
		if e.Kind == EdgeCall && e.Source == workflowID {
			out = append(out, e.Target)
		}
	}
	return out
}

// Validate checks the structural invariants of the graph.
func (g Graph) Validate() error {
	seen := make(map[string]bool, len(g.Nodes))
	for _, n := range g.Nodes {
		if n.ID == "" {
			return fmt.Errorf("node %q has an empty id", n.Name)
		}
		if seen[n.ID] {
			return fmt.Errorf("%w: %s", ErrDuplicateNode, n.ID)
		}
		seen[n.ID] = true

		switch n.Role {
		case RoleDeclarative:
			if n.NodeType == "" {
				return fmt.Errorf("declarative node %s has no type", n.ID)
			}
		case RoleStep, RoleWorkflow:
			if n.NodeType != "" || n.Label != "" || n.Props != nil || n.Ports != nil {
				return fmt.Errorf("callable node %s carries declarative fields", n.ID)
			}
		default:
			return fmt.Errorf("node %s has unknown role %q", n.ID, n.Role)
		}
	}

	for _, e := range g.Edges {
		if !g.Has(e.Source) || !g.Has(e.Target) {
			return fmt.Errorf("edge %s -> %s references an unknown node", e.Source, e.Target)
		}
		if (e.SourcePort == "") != (e.TargetPort == "") {
			return fmt.Errorf("edge %s -> %s has only one port", e.Source, e.Target)
		}
	}
	return nil
}
