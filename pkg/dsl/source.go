package dsl

// Props is the literal property mapping of a declarative node.
// Values must be literals for the extractor to pick them up.
type Props map[string]any

// Decl describes a declarative node in a workflow file.
type Decl struct {
	ID    string
	Type  string
	Label string
	Props Props
}

// Spec declares a declarative node. It returns d unchanged; the graph is
// read from the call site, not from the value.
func Spec(d Decl) Decl { return d }

// Link wires sourcePort of source to targetPort of target.
// It has no runtime effect and must be called with string literals.
func Link(source, sourcePort, target, targetPort string) {}

// Marker names recognized in `//@` annotations.
const (
	MarkerNode     = "node"
	MarkerWorkflow = "workflow"
)

// Import path workflow files use for this package.
const ImportPath = "github.com/aretw0/holon/pkg/dsl"
