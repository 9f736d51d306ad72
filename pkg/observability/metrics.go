package observability

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aretw0/holon/pkg/domain"
)

// Metrics holds the collectors fed by engine hooks.
type Metrics struct {
	Runs         *prometheus.CounterVec
	Steps        *prometheus.CounterVec
	StepDuration *prometheus.HistogramVec
	Running      prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "holon_runs_total",
				Help: "Workflow runs by final phase.",
			},
			[]string{"phase"},
		),
		Steps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "holon_steps_total",
				Help: "Executed nodes by role and status.",
			},
			[]string{"role", "status"},
		),
		StepDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "holon_step_duration_seconds",
				Help:    "Duration of executed nodes.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"role"},
		),
		Running: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "holon_runs_in_progress",
			Help: "Runs currently executing nodes.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Runs, m.Steps, m.StepDuration, m.Running)
	}
	return m
}

// Hooks returns lifecycle hooks recording into m.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnPhase: func(_ context.Context, e *domain.PhaseEvent) {
			switch {
			case e.To == domain.PhaseRunning:
				m.Running.Inc()
			case e.To.Terminal():
				if e.From == domain.PhaseRunning {
					m.Running.Dec()
				}
				m.Runs.WithLabelValues(string(e.To)).Inc()
			}
		},
		OnStepFinish: func(_ context.Context, e *domain.StepEvent) {
			m.Steps.WithLabelValues(string(e.Role), string(e.Status)).Inc()
			m.StepDuration.WithLabelValues(string(e.Role)).Observe(e.Duration.Seconds())
		},
	}
}
