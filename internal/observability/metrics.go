// Package observability exposes prometheus collectors for agent runs.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics implements the domain Recorder over prometheus counters.
type Metrics struct {
	runsStarted     prometheus.Counter
	runsFinished    *prometheus.CounterVec
	modelTurns      prometheus.Counter
	toolInvocations *prometheus.CounterVec
}

// NewMetrics registers the agent collectors on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		runsStarted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "vibe",
			Name:      "runs_started_total",
			Help:      "Agent workflow runs started.",
		}),
		runsFinished: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vibe",
			Name:      "runs_finished_total",
			Help:      "Agent workflow runs finished, by outcome type.",
		}, []string{"outcome"}),
		modelTurns: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "vibe",
			Name:      "model_turns_total",
			Help:      "Model turns taken across all runs.",
		}),
		toolInvocations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vibe",
			Name:      "tool_invocations_total",
			Help:      "Tool calls dispatched, by tool name.",
		}, []string{"tool"}),
	}
}

func (m *Metrics) RunStarted() { m.runsStarted.Inc() }

func (m *Metrics) RunFinished(outcome string) { m.runsFinished.WithLabelValues(outcome).Inc() }

func (m *Metrics) ModelTurn() { m.modelTurns.Inc() }

func (m *Metrics) ToolInvocation(name string) { m.toolInvocations.WithLabelValues(name).Inc() }
