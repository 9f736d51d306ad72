package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrSyntaxInvalid is returned when source text does not parse.
	ErrSyntaxInvalid = errors.New("syntax invalid")

	// ErrTargetNotFound is returned when an edit references a missing name or id.
	ErrTargetNotFound = errors.New("target not found")

	// ErrInvalidReplacement is returned when replacement text is not exactly one declaration.
	ErrInvalidReplacement = errors.New("invalid replacement")

	// ErrResolutionMissing is returned when no resolver is registered for a type.
	ErrResolutionMissing = errors.New("no resolver for type")

	// ErrExecutionFailure is returned when a step fails during a run.
	ErrExecutionFailure = errors.New("execution failed")

	// ErrNotAWorkflow is returned when the requested entry point is not workflow-annotated.
	ErrNotAWorkflow = errors.New("not a workflow")

	// ErrCycleDetected is returned when the executable nodes depend on each other in a loop.
	ErrCycleDetected = errors.New("dependency cycle detected")

	// ErrDuplicateNode is returned when two nodes would share an id.
	ErrDuplicateNode = errors.New("duplicate node id")

	// ErrInvalidName is returned when a new name is not a valid identifier.
	ErrInvalidName = errors.New("invalid name")

	// ErrSameName is returned when a rename would not change anything.
	ErrSameName = errors.New("old and new name must differ")

	// ErrBindingMissing is returned when a callable step has no live implementation.
	ErrBindingMissing = errors.New("no binding for step")

	// ErrSourceNotFound is returned by source stores for unknown names.
	ErrSourceNotFound = errors.New("source not found")

	// ErrCredentialsNotFound is returned by credential stores for unknown providers.
	ErrCredentialsNotFound = errors.New("credentials not found")

	// ErrLockTimeout is returned when a distributed lock could not be acquired in time.
	ErrLockTimeout = errors.New("lock acquisition timeout")
)

// SyntaxError wraps a parser failure.
type SyntaxError struct {
	Err error
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%v: %v", ErrSyntaxInvalid, e.Err)
}

func (e *SyntaxError) Unwrap() []error { return []error{ErrSyntaxInvalid, e.Err} }

// NotFoundError names what could not be located.
type NotFoundError struct {
	Kind string // e.g. "step", "workflow", "declarative node"
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Kind, e.Name, ErrTargetNotFound)
}

func (e *NotFoundError) Unwrap() error { return ErrTargetNotFound }

// ResolutionError is returned by the type registry for unknown types.
// Known lists the registered type ids at the time of the lookup.
type ResolutionError struct {
	Type  string
	Known []string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("%v %q (registered: %s)", ErrResolutionMissing, e.Type, strings.Join(e.Known, ", "))
}

func (e *ResolutionError) Unwrap() error { return ErrResolutionMissing }

// ExecutionError attaches the failing node id to a step failure.
type ExecutionError struct {
	NodeID string
	Err    error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("node %s: %v", e.NodeID, e.Err)
}

func (e *ExecutionError) Unwrap() []error { return []error{ErrExecutionFailure, e.Err} }

// CycleError lists the nodes that could not be ordered.
type CycleError struct {
	Remaining []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("%v among %s", ErrCycleDetected, strings.Join(e.Remaining, ", "))
}

func (e *CycleError) Unwrap() error { return ErrCycleDetected }
