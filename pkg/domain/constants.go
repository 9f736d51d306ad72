package domain

import "strings"

// Id prefixes used when deriving node ids from declarations.
const (
	StepPrefix     = "node:"
	WorkflowPrefix = "workflow:"
	SpecPrefix     = "spec:"

	// StartNodeID is the pseudo-node standing for the workflow's own entry point.
	// Its ports carry the run arguments, keyed by name.
	StartNodeID = "@start"

	// OutputPort is the port every node publishes its primary value on.
	OutputPort = "output"
)

// StepID returns the node id of a callable step.
func StepID(name string) string { return StepPrefix + name }

// WorkflowID returns the node id of a workflow entry.
func WorkflowID(name string) string { return WorkflowPrefix + name }

// SpecID derives the id of a class-shaped declarative node.
func SpecID(nodeType, name string) string { return SpecPrefix + nodeType + ":" + name }

// SplitID splits a callable id into its prefix and name.
// Returns ok=false for ids that are not step or workflow ids.
func SplitID(id string) (role Role, name string, ok bool) {
	switch {
	case strings.HasPrefix(id, StepPrefix):
		return RoleStep, strings.TrimPrefix(id, StepPrefix), true
	case strings.HasPrefix(id, WorkflowPrefix):
		return RoleWorkflow, strings.TrimPrefix(id, WorkflowPrefix), true
	}
	return "", "", false
}
