package domain

import "time"

// Phase is the state of one execution run.
type Phase string

const (
	PhaseIdle                  Phase = "idle"
	PhaseConnectionsRegistered Phase = "connections_registered"
	PhaseSpecsResolved         Phase = "specs_resolved"
	PhaseOrdered               Phase = "ordered"
	PhaseRunning               Phase = "running"
	PhaseCompleted             Phase = "completed"
	PhaseFailed                Phase = "failed"
)

// Terminal reports whether no further transition is possible.
func (p Phase) Terminal() bool {
	return p == PhaseCompleted || p == PhaseFailed
}

// Status is the outcome of one executed node.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// TraceEntry records what happened to one node during a run.
type TraceEntry struct {
	NodeID   string        `json:"node_id"`
	Status   Status        `json:"status"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration_ns"`
}

// RunResult is what an execution run hands back, whether or not it succeeded.
type RunResult struct {
	Output     any          `json:"output"`
	Order      []string     `json:"order"`
	Trace      []TraceEntry `json:"trace"`
	Phase      Phase        `json:"phase"`
	FailedNode string       `json:"failed_node,omitempty"`
	Error      string       `json:"error,omitempty"`
}

// Succeeded reports whether the run completed.
func (r *RunResult) Succeeded() bool {
	return r != nil && r.Phase == PhaseCompleted
}
