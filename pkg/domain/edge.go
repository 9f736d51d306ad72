package domain

// EdgeKind distinguishes inferred call edges from declared port links.
type EdgeKind string

const (
	// EdgeCall means the target step is invoked from the source workflow body.
	EdgeCall EdgeKind = "implicit-call"
	// EdgeLink is an explicit wiring statement naming both ports.
	EdgeLink EdgeKind = "explicit-link"
)

// Edge is a directed link between two node ids.
// SourcePort and TargetPort are both set for links and both empty for calls.
type Edge struct {
	Source     string   `json:"source" yaml:"source"`
	Target     string   `json:"target" yaml:"target"`
	SourcePort string   `json:"source_port,omitempty" yaml:"source_port,omitempty"`
	TargetPort string   `json:"target_port,omitempty" yaml:"target_port,omitempty"`
	Kind       EdgeKind `json:"kind" yaml:"kind"`
}

// CallEdge builds an implicit call edge.
func CallEdge(source, target string) Edge {
	return Edge{Source: source, Target: target, Kind: EdgeCall}
}

// LinkEdge builds an explicit port link.
func LinkEdge(source, sourcePort, target, targetPort string) Edge {
	return Edge{
		Source:     source,
		SourcePort: sourcePort,
		Target:     target,
		TargetPort: targetPort,
		Kind:       EdgeLink,
	}
}
