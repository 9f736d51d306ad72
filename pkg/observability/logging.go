package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/holon/pkg/domain"
)

// LogHooks returns lifecycle hooks writing one structured line per phase
// change and per finished node.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnPhase: func(ctx context.Context, e *domain.PhaseEvent) {
			level := slog.LevelDebug
			if e.To == domain.PhaseFailed {
				level = slog.LevelWarn
			}
			logger.Log(ctx, level, "run_phase", "run_id", e.RunID, "from", e.From, "to", e.To)
		},
		OnStepFinish: func(ctx context.Context, e *domain.StepEvent) {
			attrs := []any{
				"run_id", e.RunID,
				"node_id", e.NodeID,
				"role", e.Role,
				"status", e.Status,
				"duration", e.Duration,
			}
			if e.NodeType != "" {
				attrs = append(attrs, "node_type", e.NodeType)
			}
			if e.Err != nil {
				logger.ErrorContext(ctx, "step_failed", append(attrs, "error", e.Err)...)
				return
			}
			logger.InfoContext(ctx, "step_finished", attrs...)
		},
	}
}
