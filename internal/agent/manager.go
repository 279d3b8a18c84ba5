package agent

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/haasonsaas/foundry/internal/infra"
	"github.com/haasonsaas/foundry/internal/observability"
)

// DefaultMaxConcurrent is the scheduler's default concurrency cap.
const DefaultMaxConcurrent = 5

// SpawnSpec names one agent to start in a parallel batch.
type SpawnSpec struct {
	Type string
	Task string
}

// Stats summarizes the manager's live and historical agents.
type Stats struct {
	ByState    map[State]int `json:"by_state"`
	TotalUsage ResourceUsage `json:"total_usage"`
	Total      int           `json:"total"`
}

// scheduled pairs an agent with its running task.
type scheduled struct {
	agent  *Agent
	cancel context.CancelFunc
	done   chan struct{}
}

// Manager owns the set of live and historical agents, schedules execution
// under a concurrency cap, and aggregates results. Every agent's execution
// phase is gated by one counting semaphore: spawned agents beyond the cap
// queue for a slot.
type Manager struct {
	executor *Executor
	types    *TypeRegistry
	logger   *slog.Logger
	metrics  *observability.Metrics

	maxConcurrent int

	mu        sync.Mutex
	agents    map[string]*Agent
	tasks     map[string]*scheduled
	callbacks []func(*Agent)
	sem       *infra.Semaphore
}

// NewManager creates a manager. maxConcurrent <= 0 selects the default.
func NewManager(executor *Executor, types *TypeRegistry, maxConcurrent int, logger *slog.Logger, metrics *observability.Metrics) *Manager {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrent
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		executor:      executor,
		types:         types,
		logger:        logger.With("component", "agent_manager"),
		metrics:       metrics,
		maxConcurrent: maxConcurrent,
		agents:        make(map[string]*Agent),
		tasks:         make(map[string]*scheduled),
	}
}

// semaphore returns the gate, creating it on first use.
func (m *Manager) semaphore() *infra.Semaphore {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sem == nil {
		m.sem = infra.NewSemaphore(m.maxConcurrent)
	}
	return m.sem
}

// Spawn resolves the type, builds the agent, and schedules it. With wait set
// the call blocks until the agent terminates.
func (m *Manager) Spawn(ctx context.Context, typeName, task string, config *Config, agentCtx *Context, wait bool) *Agent {
	def := m.types.Lookup(typeName)

	var cfg Config
	if config != nil {
		cfg = *config
	} else {
		cfg = m.types.ConfigForType(typeName)
	}
	if cfg.AgentType == "" {
		cfg.AgentType = def.Name
	}
	if cfg.Prompt == "" {
		cfg.Prompt = def.Prompt
	}
	if cfg.Tools == nil {
		cfg.Tools = def.Tools
	}
	if (cfg.Limits == ResourceLimits{}) {
		cfg.Limits = def.Limits
	}

	var actx Context
	if agentCtx != nil {
		actx = *agentCtx
	}

	a := New(uuid.NewString(), task, cfg, actx)

	taskCtx, cancel := context.WithCancel(context.Background())
	sc := &scheduled{agent: a, cancel: cancel, done: make(chan struct{})}

	m.mu.Lock()
	m.agents[a.ID] = a
	m.tasks[a.ID] = sc
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.AgentsSpawned.WithLabelValues(cfg.AgentType).Inc()
	}
	m.logger.Debug("agent spawned", "agent", a.ID, "type", cfg.AgentType, "wait", wait)

	go m.run(taskCtx, sc)

	if wait {
		<-sc.done
	}
	return a
}

// SpawnParallel starts the given agents without waiting and returns handles
// in input order. The semaphore keeps at most maxConcurrent executing.
func (m *Manager) SpawnParallel(ctx context.Context, specs []SpawnSpec) []*Agent {
	agents := make([]*Agent, 0, len(specs))
	for _, spec := range specs {
		agents = append(agents, m.Spawn(ctx, spec.Type, spec.Task, nil, nil, false))
	}
	return agents
}

// run is the scheduled task: acquire a slot, execute, release, notify.
func (m *Manager) run(ctx context.Context, sc *scheduled) {
	defer close(sc.done)

	a := sc.agent
	sem := m.semaphore()
	if err := sem.Acquire(ctx); err != nil {
		// Cancelled while queued for a slot.
		m.settleUnscheduled(a)
		m.notify(a)
		return
	}
	defer sem.Release()

	if m.metrics != nil {
		m.metrics.RunningAgents.Inc()
		defer m.metrics.RunningAgents.Dec()
	}

	m.executor.Execute(ctx, a)

	if m.metrics != nil {
		m.metrics.AgentsCompleted.WithLabelValues(a.Config.AgentType, string(a.State())).Inc()
	}
	m.notify(a)
}

// settleUnscheduled finalizes an agent whose task was cancelled before it
// ever acquired an execution slot.
func (m *Manager) settleUnscheduled(a *Agent) {
	a.setResult(&Result{
		Success:   false,
		Error:     "cancelled",
		Usage:     a.Usage(),
		Metadata:  map[string]any{"cancelled": true},
		Timestamp: time.Now(),
	})
	if err := a.transition(StateCancelled); err != nil {
		m.logger.Warn("cancel transition rejected", "agent", a.ID, "error", err)
	}
	if m.metrics != nil {
		m.metrics.AgentsCompleted.WithLabelValues(a.Config.AgentType, string(StateCancelled)).Inc()
	}
}

// notify invokes completion callbacks; a panicking callback is logged and
// contained.
func (m *Manager) notify(a *Agent) {
	m.mu.Lock()
	callbacks := make([]func(*Agent), len(m.callbacks))
	copy(callbacks, m.callbacks)
	m.mu.Unlock()

	for _, cb := range callbacks {
		func() {
			defer func() {
				if r := recover(); r != nil {
					m.logger.Error("completion callback panicked", "agent", a.ID, "panic", r)
				}
			}()
			cb(a)
		}()
	}
}

// OnComplete registers a callback invoked after each agent terminates.
func (m *Manager) OnComplete(cb func(*Agent)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callbacks = append(m.callbacks, cb)
}

// Get returns an agent by id.
func (m *Manager) Get(id string) (*Agent, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.agents[id]
	return a, ok
}

// List returns every known agent.
func (m *Manager) List() []*Agent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Agent, 0, len(m.agents))
	for _, a := range m.agents {
		out = append(out, a)
	}
	return out
}

// Wait blocks until the agent terminates or ctx is done, then returns the
// agent's recorded result, which is nil if ctx ended first and the agent
// has not finished. Unknown ids return nil, false.
func (m *Manager) Wait(ctx context.Context, id string) (*Result, bool) {
	m.mu.Lock()
	sc, ok := m.tasks[id]
	a, haveAgent := m.agents[id]
	m.mu.Unlock()

	if !haveAgent {
		return nil, false
	}
	if ok {
		select {
		case <-sc.done:
		case <-ctx.Done():
			return a.Result(), true
		}
	}
	return a.Result(), true
}

// WaitAll awaits the given agents (or all known when ids is nil) and
// aggregates their results in iteration order. Individual failures are
// recorded in the aggregate, never propagated.
func (m *Manager) WaitAll(ctx context.Context, ids []string) *AggregatedResult {
	if ids == nil {
		m.mu.Lock()
		ids = make([]string, 0, len(m.agents))
		for id := range m.agents {
			ids = append(ids, id)
		}
		m.mu.Unlock()
	}

	results := make([]*Result, 0, len(ids))
	for _, id := range ids {
		result, ok := m.Wait(ctx, id)
		if !ok {
			continue
		}
		results = append(results, result)
	}
	return Aggregate(results)
}

// Cancel requests cancellation of an agent: the cooperative flag is set and
// the scheduled task's context is cancelled so a blocked LLM or tool call
// unwinds. Returns true iff the id is known; repeated calls are idempotent.
func (m *Manager) Cancel(id string) bool {
	m.mu.Lock()
	a, ok := m.agents[id]
	sc := m.tasks[id]
	m.mu.Unlock()

	if !ok {
		return false
	}
	a.Cancel()
	if sc != nil {
		sc.cancel()
	}
	m.logger.Debug("agent cancel requested", "agent", a.ID, "state", string(a.State()))
	return true
}

// CancelAll cancels every known agent and returns the count.
func (m *Manager) CancelAll() int {
	m.mu.Lock()
	ids := make([]string, 0, len(m.agents))
	for id := range m.agents {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	for _, id := range ids {
		m.Cancel(id)
	}
	return len(ids)
}

// GetStats returns counts by state and summed usage across known agents.
func (m *Manager) GetStats() Stats {
	stats := Stats{ByState: make(map[State]int)}
	for _, a := range m.List() {
		stats.ByState[a.State()]++
		stats.TotalUsage.Add(a.Usage())
		stats.Total++
	}
	return stats
}

// CleanupCompleted removes terminal agents from the live maps and returns
// how many were removed.
func (m *Manager) CleanupCompleted() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, a := range m.agents {
		if a.State().Terminal() {
			delete(m.agents, id)
			delete(m.tasks, id)
			removed++
		}
	}
	return removed
}
