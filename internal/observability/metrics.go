package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics provides a centralized interface for collecting runtime metrics.
//
// The metrics system is built on Prometheus and tracks:
//   - Tool execution patterns and latencies
//   - LLM round-trip counts and token consumption
//   - Agent lifecycle (spawned, completed, by terminal state)
//   - Background shell counts
type Metrics struct {
	// ToolExecutionCounter counts tool invocations.
	// Labels: tool_name, status (success|error)
	ToolExecutionCounter *prometheus.CounterVec

	// ToolExecutionDuration measures tool execution time in seconds.
	// Labels: tool_name
	ToolExecutionDuration *prometheus.HistogramVec

	// LLMRequestCounter counts LLM round-trips.
	// Labels: model, status (success|error)
	LLMRequestCounter *prometheus.CounterVec

	// LLMTokensUsed tracks token consumption.
	// Labels: model
	LLMTokensUsed *prometheus.CounterVec

	// AgentsSpawned counts agents by type.
	// Labels: agent_type
	AgentsSpawned *prometheus.CounterVec

	// AgentsCompleted counts agents reaching a terminal state.
	// Labels: agent_type, state (completed|failed|cancelled)
	AgentsCompleted *prometheus.CounterVec

	// RunningAgents is a gauge of agents currently executing.
	RunningAgents prometheus.Gauge

	// RunningShells is a gauge of live background shells.
	RunningShells prometheus.Gauge

	registry *prometheus.Registry
}

// NewMetrics creates a metrics set on its own registry so tests can run in
// parallel without hitting prometheus' default-registry duplicate checks.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		ToolExecutionCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "foundry_tool_executions_total",
			Help: "Tool invocations by tool and outcome.",
		}, []string{"tool_name", "status"}),
		ToolExecutionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "foundry_tool_execution_seconds",
			Help:    "Tool execution latency in seconds.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
		}, []string{"tool_name"}),
		LLMRequestCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "foundry_llm_requests_total",
			Help: "LLM round-trips by model and outcome.",
		}, []string{"model", "status"}),
		LLMTokensUsed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "foundry_llm_tokens_total",
			Help: "Tokens consumed by model.",
		}, []string{"model"}),
		AgentsSpawned: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "foundry_agents_spawned_total",
			Help: "Agents spawned by type.",
		}, []string{"agent_type"}),
		AgentsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "foundry_agents_completed_total",
			Help: "Agents reaching a terminal state.",
		}, []string{"agent_type", "state"}),
		RunningAgents: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "foundry_running_agents",
			Help: "Agents currently executing.",
		}),
		RunningShells: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "foundry_running_shells",
			Help: "Live background shells.",
		}),
		registry: reg,
	}

	reg.MustRegister(
		m.ToolExecutionCounter,
		m.ToolExecutionDuration,
		m.LLMRequestCounter,
		m.LLMTokensUsed,
		m.AgentsSpawned,
		m.AgentsCompleted,
		m.RunningAgents,
		m.RunningShells,
	)

	return m
}

// Registry returns the prometheus registry backing this metrics set.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
