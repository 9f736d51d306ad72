package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventPhase      EventType = "phase"
	EventStepStart  EventType = "step_start"
	EventStepFinish EventType = "step_finish"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	RunID     string    `json:"run_id"`
}

// PhaseEvent reports a state-machine transition of a run.
type PhaseEvent struct {
	EventBase
	From Phase `json:"from"`
	To   Phase `json:"to"`
}

// StepEvent reports one node starting or finishing.
type StepEvent struct {
	EventBase
	NodeID   string        `json:"node_id"`
	Role     Role          `json:"role"`
	NodeType string        `json:"node_type,omitempty"`
	Status   Status        `json:"status,omitempty"`
	Duration time.Duration `json:"duration,omitempty"`
	Err      error         `json:"-"`
}

// LifecycleHooks defines callbacks for engine observability.
// Nil hooks are skipped.
type LifecycleHooks struct {
	OnPhase      func(context.Context, *PhaseEvent)
	OnStepStart  func(context.Context, *StepEvent)
	OnStepFinish func(context.Context, *StepEvent)
}

// Merge returns hooks calling h first and then other.
func (h LifecycleHooks) Merge(other LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnPhase:      chain(h.OnPhase, other.OnPhase),
		OnStepStart:  chain(h.OnStepStart, other.OnStepStart),
		OnStepFinish: chain(h.OnStepFinish, other.OnStepFinish),
	}
}

func chain[E any](a, b func(context.Context, E)) func(context.Context, E) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e E) {
		a(ctx, e)
		b(ctx, e)
	}
}
