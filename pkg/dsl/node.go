package dsl

import "github.com/aretw0/holon/pkg/domain"

// NodeBuilder provides a fluent API for configuring a declarative node.
type NodeBuilder struct {
	node    domain.Node
	builder *Builder
}

// Label sets the display label.
func (n *NodeBuilder) Label(label string) *NodeBuilder {
	n.node.Label = label
	return n
}

// Prop sets one literal property.
func (n *NodeBuilder) Prop(key string, value any) *NodeBuilder {
	if n.node.Props == nil {
		n.node.Props = make(map[string]any)
	}
	n.node.Props[key] = value
	return n
}

// Props merges a property mapping into the node.
func (n *NodeBuilder) Props(props Props) *NodeBuilder {
	for k, v := range props {
		n.Prop(k, v)
	}
	return n
}

// Ports declares the node's connection points.
func (n *NodeBuilder) Ports(ports ...domain.Port) *NodeBuilder {
	n.node.Ports = append(n.node.Ports, ports...)
	return n
}

// Done returns to the graph builder.
func (n *NodeBuilder) Done() *Builder {
	return n.builder
}

// Build returns the underlying domain.Node.
func (n *NodeBuilder) Build() domain.Node {
	out := n.node
	if n.node.Props != nil {
		out.Props = make(map[string]any, len(n.node.Props))
		for k, v := range n.node.Props {
			out.Props[k] = v
		}
	}
	return out
}
