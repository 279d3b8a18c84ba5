package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/haasonsaas/foundry/internal/observability"
)

// DefaultMaxHistory bounds the in-memory execution history.
const DefaultMaxHistory = 256

// Execution records one tool call for observability.
type Execution struct {
	ToolName    string
	Args        map[string]any
	Context     *ExecContext
	Result      *Result
	StartedAt   time.Time
	CompletedAt time.Time
}

// Duration returns the wall time of the call.
func (e Execution) Duration() time.Duration {
	return e.CompletedAt.Sub(e.StartedAt)
}

// Executor validates arguments, applies the per-call deadline from the
// execution context, and converts every failure mode (validation, timeout,
// tool error, panic) into a Result. Callers never see a Go error from a
// tool body.
type Executor struct {
	registry *Registry
	logger   *slog.Logger
	metrics  *observability.Metrics

	mu         sync.Mutex
	history    []Execution
	maxHistory int
}

// NewExecutor creates an executor over the registry. metrics may be nil.
func NewExecutor(registry *Registry, logger *slog.Logger, metrics *observability.Metrics) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		registry:   registry,
		logger:     logger.With("component", "tool_executor"),
		metrics:    metrics,
		maxHistory: DefaultMaxHistory,
	}
}

// Execute runs the named tool with args under ec. The returned result is
// never nil.
func (e *Executor) Execute(ctx context.Context, ec *ExecContext, name string, args map[string]any) *Result {
	started := time.Now()

	tool, ok := e.registry.Get(name)
	if !ok {
		result := Errorf("Tool not found: %s", name)
		e.record(name, args, ec, result, started)
		return result
	}

	desc := tool.Descriptor()
	if err := ValidateArgs(desc, args); err != nil {
		result := Errorf("Invalid arguments for %s: %v", name, err)
		e.record(name, args, ec, result, started)
		return result
	}

	if ec == nil {
		ec = NewExecContext("")
	}
	timeout := ec.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	result := e.invoke(ctx, ec, tool, args, timeout)
	e.record(name, args, ec, result, started)

	status := "success"
	if result.IsError {
		status = "error"
	}
	if e.metrics != nil {
		e.metrics.ToolExecutionCounter.WithLabelValues(name, status).Inc()
		e.metrics.ToolExecutionDuration.WithLabelValues(name).Observe(time.Since(started).Seconds())
	}
	e.logger.Debug("tool executed",
		"tool", name,
		"status", status,
		"duration_ms", time.Since(started).Milliseconds())

	return result
}

// invoke runs the tool body under the deadline. The body runs in its own
// goroutine so a stuck tool cannot wedge the caller; a late result is
// discarded.
func (e *Executor) invoke(ctx context.Context, ec *ExecContext, tool Tool, args map[string]any, timeout time.Duration) *Result {
	toolCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type bodyResult struct {
		result *Result
		err    error
	}
	resultCh := make(chan bodyResult, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				select {
				case resultCh <- bodyResult{err: fmt.Errorf("tool panicked: %v", r)}:
				default:
				}
			}
		}()
		result, err := tool.Execute(toolCtx, ec, args)
		select {
		case resultCh <- bodyResult{result: result, err: err}:
		default:
			e.logger.Warn("tool completed after deadline, result discarded",
				"tool", tool.Descriptor().Name)
		}
	}()

	select {
	case <-toolCtx.Done():
		if errors.Is(toolCtx.Err(), context.DeadlineExceeded) {
			return Errorf("timed out after %dms", timeout.Milliseconds()).
				WithMeta("timeout_ms", timeout.Milliseconds())
		}
		return Errorf("tool execution canceled")
	case br := <-resultCh:
		if br.err != nil {
			return Errorf("%v", br.err)
		}
		if br.result == nil {
			return Errorf("tool returned no result")
		}
		return br.result
	}
}

func (e *Executor) record(name string, args map[string]any, ec *ExecContext, result *Result, started time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.history = append(e.history, Execution{
		ToolName:    name,
		Args:        args,
		Context:     ec,
		Result:      result,
		StartedAt:   started,
		CompletedAt: time.Now(),
	})
	if len(e.history) > e.maxHistory {
		e.history = e.history[len(e.history)-e.maxHistory:]
	}
}

// History returns a snapshot of recorded executions, oldest first.
func (e *Executor) History() []Execution {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Execution, len(e.history))
	copy(out, e.history)
	return out
}

// ClearHistory drops the recorded executions.
func (e *Executor) ClearHistory() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.history = nil
}
