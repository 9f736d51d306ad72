package runtime

import "slices"

// Connection wires an output port of one node to an input port of another.
type Connection struct {
	SourceNode string
	SourcePort string
	TargetNode string
	TargetPort string
}

type portKey struct{ node, port string }

// PortRegistry records the connections of one run and the values produced
// on each port so far.
type PortRegistry struct {
	conns  []Connection
	values map[portKey]any
}

func NewPortRegistry() *PortRegistry {
	return &PortRegistry{values: make(map[portKey]any)}
}

// AddConnection registers a connection. Duplicates are ignored.
func (r *PortRegistry) AddConnection(c Connection) {
	if !slices.Contains(r.conns, c) {
		r.conns = append(r.conns, c)
	}
}

// Connections returns the registered connections in insertion order.
func (r *PortRegistry) Connections() []Connection {
	return slices.Clone(r.conns)
}

// Set stores the value of a port. A later Set on the same port replaces it.
func (r *PortRegistry) Set(node, port string, v any) {
	r.values[portKey{node, port}] = v
}

// Get returns the value of a port, if produced.
func (r *PortRegistry) Get(node, port string) (any, bool) {
	v, ok := r.values[portKey{node, port}]
	return v, ok
}

// InputsFor collects the values reaching node's input ports. Connections
// whose source value has not been produced are left out. When several
// connections feed one port the last one wins, except for ports listed in
// multiple, which receive every value in connection order.
func (r *PortRegistry) InputsFor(node string, multiple ...string) map[string]any {
	in := make(map[string]any)
	for _, c := range r.conns {
		if c.TargetNode != node {
			continue
		}
		v, ok := r.Get(c.SourceNode, c.SourcePort)
		if !ok {
			continue
		}
		if slices.Contains(multiple, c.TargetPort) {
			list, _ := in[c.TargetPort].([]any)
			in[c.TargetPort] = append(list, v)
			continue
		}
		in[c.TargetPort] = v
	}
	return in
}

// Dependencies returns the distinct source nodes feeding node.
func (r *PortRegistry) Dependencies(node string) []string {
	var out []string
	for _, c := range r.conns {
		if c.TargetNode == node && !slices.Contains(out, c.SourceNode) {
			out = append(out, c.SourceNode)
		}
	}
	return out
}

// Dependents returns the distinct nodes fed by node.
func (r *PortRegistry) Dependents(node string) []string {
	var out []string
	for _, c := range r.conns {
		if c.SourceNode == node && !slices.Contains(out, c.TargetNode) {
			out = append(out, c.TargetNode)
		}
	}
	return out
}

// Reset drops every connection and value.
func (r *PortRegistry) Reset() {
	r.conns = nil
	clear(r.values)
}
