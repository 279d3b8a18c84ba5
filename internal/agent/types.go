// Package agent implements the agent model and the concurrent execution
// machinery around it: the inner LLM+tool loop and the semaphore-gated
// manager that schedules subagents.
package agent

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// State is the lifecycle state of an agent. Legal transitions:
// pending -> running -> {completed, failed, cancelled}, and
// pending -> cancelled. Terminal states are sticky.
type State string

const (
	StatePending   State = "pending"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
	StateCancelled State = "cancelled"
)

// Terminal reports whether the state is final.
func (s State) Terminal() bool {
	switch s {
	case StateCompleted, StateFailed, StateCancelled:
		return true
	}
	return false
}

// ResourceLimits bounds one agent run. All fields must be strictly positive.
type ResourceLimits struct {
	MaxTokens      int     `json:"max_tokens"`
	MaxTimeSeconds float64 `json:"max_time_seconds"`
	MaxToolCalls   int     `json:"max_tool_calls"`
	MaxIterations  int     `json:"max_iterations"`
}

// DefaultLimits returns the stock budget applied when a config carries none.
func DefaultLimits() ResourceLimits {
	return ResourceLimits{
		MaxTokens:      100_000,
		MaxTimeSeconds: 300,
		MaxToolCalls:   50,
		MaxIterations:  20,
	}
}

// Validate rejects non-positive limits.
func (l ResourceLimits) Validate() error {
	if l.MaxTokens <= 0 {
		return fmt.Errorf("max_tokens must be positive")
	}
	if l.MaxTimeSeconds <= 0 {
		return fmt.Errorf("max_time_seconds must be positive")
	}
	if l.MaxToolCalls <= 0 {
		return fmt.Errorf("max_tool_calls must be positive")
	}
	if l.MaxIterations <= 0 {
		return fmt.Errorf("max_iterations must be positive")
	}
	return nil
}

// ResourceUsage accumulates the bounded resources plus wall time and cost.
// Fields only grow during a run.
type ResourceUsage struct {
	TokensUsed  int     `json:"tokens_used"`
	TimeSeconds float64 `json:"time_seconds"`
	ToolCalls   int     `json:"tool_calls"`
	Iterations  int     `json:"iterations"`
	CostUSD     float64 `json:"cost_usd"`
}

// Exceeds returns the name of the first exhausted limit, or "" when the
// usage is within budget.
func (u ResourceUsage) Exceeds(l ResourceLimits) string {
	if u.TokensUsed >= l.MaxTokens {
		return "max_tokens"
	}
	if u.TimeSeconds >= l.MaxTimeSeconds {
		return "max_time_seconds"
	}
	if u.ToolCalls >= l.MaxToolCalls {
		return "max_tool_calls"
	}
	if u.Iterations >= l.MaxIterations {
		return "max_iterations"
	}
	return ""
}

// Add merges another usage snapshot into this one.
func (u *ResourceUsage) Add(other ResourceUsage) {
	u.TokensUsed += other.TokensUsed
	u.TimeSeconds += other.TimeSeconds
	u.ToolCalls += other.ToolCalls
	u.Iterations += other.Iterations
	u.CostUSD += other.CostUSD
}

// Config selects the agent variant and its execution envelope.
type Config struct {
	// AgentType is the type tag (explore, plan, code-review, general).
	AgentType string `json:"agent_type"`

	// Description is a short human-readable purpose.
	Description string `json:"description,omitempty"`

	// Prompt is appended to the system message for this run.
	Prompt string `json:"prompt,omitempty"`

	// Tools restricts the tool set by name; nil means all registered tools.
	Tools []string `json:"tools,omitempty"`

	// InheritContext includes a summary of the parent's recent messages.
	InheritContext bool `json:"inherit_context"`

	// Limits is the resource budget for the run.
	Limits ResourceLimits `json:"limits"`

	// Model overrides the default model when non-empty.
	Model string `json:"model,omitempty"`
}

// Context carries the environment an agent runs in.
type Context struct {
	// ParentMessages is the parent conversation, used when the config asks
	// for context inheritance.
	ParentMessages []Message `json:"parent_messages,omitempty"`

	// WorkingDir scopes filesystem and shell effects.
	WorkingDir string `json:"working_dir,omitempty"`

	// Environment overrides process environment variables for shells.
	Environment map[string]string `json:"environment,omitempty"`

	// Metadata carries free-form facts.
	Metadata map[string]any `json:"metadata,omitempty"`

	// ParentAgentID identifies the spawning agent, if any.
	ParentAgentID string `json:"parent_agent_id,omitempty"`
}

// Message is one turn in an agent conversation.
// Role is one of system, user, assistant, tool.
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	Name       string     `json:"name,omitempty"`
}

// ToolCall is a tool invocation requested by the model.
type ToolCall struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// Result is the outcome of one agent run.
type Result struct {
	Success   bool           `json:"success"`
	Output    string         `json:"output"`
	Data      map[string]any `json:"data,omitempty"`
	Error     string         `json:"error,omitempty"`
	Usage     ResourceUsage  `json:"usage"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// ToJSON serializes the result.
func (r *Result) ToJSON() ([]byte, error) {
	return json.Marshal(r)
}

// ResultFromJSON deserializes a result previously produced by ToJSON.
func ResultFromJSON(data []byte) (*Result, error) {
	var r Result
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode agent result: %w", err)
	}
	return &r, nil
}

// AggregatedResult combines the results of several agents with derived
// totals.
type AggregatedResult struct {
	Results          []*Result `json:"results"`
	TotalTokens      int       `json:"total_tokens"`
	TotalTimeSeconds float64   `json:"total_time_seconds"`
	TotalToolCalls   int       `json:"total_tool_calls"`
	SuccessCount     int       `json:"success_count"`
	FailureCount     int       `json:"failure_count"`
}

// Aggregate builds an AggregatedResult preserving input order.
func Aggregate(results []*Result) *AggregatedResult {
	agg := &AggregatedResult{Results: results}
	for _, r := range results {
		if r == nil {
			agg.FailureCount++
			continue
		}
		agg.TotalTokens += r.Usage.TokensUsed
		agg.TotalTimeSeconds += r.Usage.TimeSeconds
		agg.TotalToolCalls += r.Usage.ToolCalls
		if r.Success {
			agg.SuccessCount++
		} else {
			agg.FailureCount++
		}
	}
	return agg
}

// Agent is one autonomous conversation loop, run to completion on a single
// task. All mutable state is guarded; once a terminal state is reached the
// result and usage are frozen.
type Agent struct {
	ID      string
	Task    string
	Config  Config
	Context Context

	mu          sync.Mutex
	state       State
	usage       ResourceUsage
	messages    []Message
	result      *Result
	cancelled   bool
	createdAt   time.Time
	startedAt   time.Time
	completedAt time.Time
}

// New creates a pending agent.
func New(id, task string, config Config, agentCtx Context) *Agent {
	return &Agent{
		ID:        id,
		Task:      task,
		Config:    config,
		Context:   agentCtx,
		state:     StatePending,
		createdAt: time.Now(),
	}
}

// State returns the current lifecycle state.
func (a *Agent) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// transition moves the agent along a legal edge. Illegal transitions return
// an error and leave the agent untouched; they indicate a scheduler bug.
func (a *Agent) transition(to State) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	from := a.state
	legal := false
	switch {
	case from == StatePending && (to == StateRunning || to == StateCancelled):
		legal = true
	case from == StateRunning && to.Terminal():
		legal = true
	}
	if !legal {
		return fmt.Errorf("illegal agent state transition %s -> %s", from, to)
	}

	a.state = to
	switch to {
	case StateRunning:
		a.startedAt = time.Now()
	case StateCompleted, StateFailed, StateCancelled:
		a.completedAt = time.Now()
	}
	return nil
}

// Cancel sets the cooperative cancellation flag. Idempotent; terminal agents
// keep their result.
func (a *Agent) Cancel() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cancelled = true
}

// Cancelled reports whether cancellation was requested.
func (a *Agent) Cancelled() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cancelled
}

// Usage returns a snapshot of the accumulated usage.
func (a *Agent) Usage() ResourceUsage {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.usage
}

// updateUsage applies fn to the usage under the lock. No-op once terminal.
func (a *Agent) updateUsage(fn func(*ResourceUsage)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state.Terminal() {
		return
	}
	fn(&a.usage)
}

// appendMessages adds to the conversation.
func (a *Agent) appendMessages(msgs ...Message) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.messages = append(a.messages, msgs...)
}

// Messages returns a copy of the conversation so far.
func (a *Agent) Messages() []Message {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Message, len(a.messages))
	copy(out, a.messages)
	return out
}

// Result returns the final result, nil while the agent is live. The result
// is populated before the terminal state becomes observable.
func (a *Agent) Result() *Result {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.result
}

// setResult stores the final result exactly once.
func (a *Agent) setResult(r *Result) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.result != nil {
		return
	}
	a.result = r
}

// CreatedAt returns the creation timestamp.
func (a *Agent) CreatedAt() time.Time { return a.createdAt }

// StartedAt returns when execution began, zero if never started.
func (a *Agent) StartedAt() time.Time {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.startedAt
}

// CompletedAt returns when the agent reached a terminal state.
func (a *Agent) CompletedAt() time.Time {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.completedAt
}
