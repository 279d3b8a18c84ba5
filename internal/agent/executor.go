package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/haasonsaas/foundry/internal/observability"
	"github.com/haasonsaas/foundry/internal/tools"
	"github.com/haasonsaas/foundry/internal/tools/toolconv"
)

const (
	// parentSummaryMessages is how many trailing parent messages are
	// summarized when a config inherits context.
	parentSummaryMessages = 5

	// parentSummaryChars truncates each summarized message.
	parentSummaryChars = 200
)

// Executor drives one agent's inner loop: LLM round-trips interleaved with
// tool execution, bounded by the agent's resource limits and interrupted by
// cooperative cancellation.
type Executor struct {
	provider Provider
	registry *tools.Registry
	toolExec *tools.Executor
	logger   *slog.Logger
	metrics  *observability.Metrics

	// DefaultModel is used when the agent config carries no override.
	DefaultModel string
}

// NewExecutor creates an executor. metrics may be nil.
func NewExecutor(provider Provider, registry *tools.Registry, toolExec *tools.Executor, logger *slog.Logger, metrics *observability.Metrics) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		provider: provider,
		registry: registry,
		toolExec: toolExec,
		logger:   logger.With("component", "agent_executor"),
		metrics:  metrics,
	}
}

// Execute runs the agent to completion and returns its result. The result
// is stored on the agent and the terminal state is set before returning;
// Execute never returns a Go error; every failure mode lands in the result.
func (e *Executor) Execute(ctx context.Context, a *Agent) *Result {
	if err := a.transition(StateRunning); err != nil {
		// Pending -> cancelled before we got scheduled.
		if a.State() == StateCancelled {
			result := e.cancelledResult(a, "")
			a.setResult(result)
			return result
		}
		result := e.failResult(a, "", err.Error())
		a.setResult(result)
		e.finish(a, result)
		return result
	}

	a.appendMessages(e.initialMessages(a)...)

	var result *Result
	func() {
		defer func() {
			if r := recover(); r != nil {
				result = e.failResult(a, "", fmt.Sprintf("panic: %v", r))
			}
		}()
		result = e.runLoop(ctx, a)
	}()
	a.setResult(result)
	e.finish(a, result)
	return result
}

// runLoop drives the conversation: limit check, cancellation check, LLM
// round-trip, tool dispatch, until the model emits a final text turn.
func (e *Executor) runLoop(ctx context.Context, a *Agent) *Result {
	start := time.Now()
	model := a.Config.Model
	if model == "" {
		model = e.DefaultModel
	}

	filtered := e.registry.Filter(a.Config.Tools)
	schemas := toolconv.ToOpenAITools(filtered)

	var output strings.Builder

	for {
		a.updateUsage(func(u *ResourceUsage) {
			u.TimeSeconds = time.Since(start).Seconds()
		})

		if name := a.Usage().Exceeds(a.Config.Limits); name != "" {
			return e.failResult(a, output.String(), "Resource limit exceeded: "+name)
		}
		if a.Cancelled() || ctx.Err() != nil {
			return e.cancelledResult(a, output.String())
		}

		// Iterations count attempts: increment before the call so a
		// completed round-trip is always accounted for.
		a.updateUsage(func(u *ResourceUsage) { u.Iterations++ })

		completion, err := e.provider.Complete(ctx, a.Messages(), schemas, model)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return e.cancelledResult(a, output.String())
			}
			if e.metrics != nil {
				e.metrics.LLMRequestCounter.WithLabelValues(model, "error").Inc()
			}
			return e.failResult(a, output.String(), err.Error())
		}
		a.updateUsage(func(u *ResourceUsage) {
			u.TokensUsed += completion.Usage.TotalTokens
		})
		if e.metrics != nil {
			e.metrics.LLMRequestCounter.WithLabelValues(model, "success").Inc()
			e.metrics.LLMTokensUsed.WithLabelValues(model).Add(float64(completion.Usage.TotalTokens))
		}

		if len(completion.ToolCalls) > 0 {
			a.appendMessages(Message{
				Role:      "assistant",
				Content:   completion.Content,
				ToolCalls: completion.ToolCalls,
			})
			if completion.Content != "" {
				output.WriteString(completion.Content)
			}
			e.dispatchToolCalls(ctx, a, completion.ToolCalls)
			continue
		}

		if completion.Content != "" {
			output.WriteString(completion.Content)
		}
		a.appendMessages(Message{Role: "assistant", Content: completion.Content})
		return e.successResult(a, output.String())
	}
}

// dispatchToolCalls runs the model's tool calls in order and appends one
// tool-role message per call, success or failure, before the next
// round-trip.
func (e *Executor) dispatchToolCalls(ctx context.Context, a *Agent, calls []ToolCall) {
	for _, call := range calls {
		a.updateUsage(func(u *ResourceUsage) { u.ToolCalls++ })

		var content string
		if !e.registry.Exists(call.Name) {
			content = "Tool not found: " + call.Name
		} else {
			ec := e.execContext(a)
			result := e.toolExec.Execute(ctx, ec, call.Name, call.Arguments)
			content = result.Content
		}

		a.appendMessages(Message{
			Role:       "tool",
			Content:    content,
			ToolCallID: call.ID,
			Name:       call.Name,
		})
	}
}

func (e *Executor) execContext(a *Agent) *tools.ExecContext {
	ec := tools.NewExecContext(a.Context.WorkingDir)
	ec.AgentID = a.ID
	return ec
}

// initialMessages composes the system prompt, the optional parent-context
// summary, and the user message carrying the task verbatim.
func (e *Executor) initialMessages(a *Agent) []Message {
	var system strings.Builder
	fmt.Fprintf(&system, "You are a %s agent.\n\nTask: %s", a.Config.AgentType, a.Task)
	if a.Config.Prompt != "" {
		system.WriteString("\n\n")
		system.WriteString(a.Config.Prompt)
	}
	system.WriteString("\n\nWhen the task is done, finish with a summary of what you did and found.")

	msgs := []Message{{Role: "system", Content: system.String()}}

	if a.Config.InheritContext && len(a.Context.ParentMessages) > 0 {
		msgs = append(msgs, Message{
			Role:    "system",
			Content: "Parent context summary:\n" + summarizeMessages(a.Context.ParentMessages),
		})
	}

	msgs = append(msgs, Message{Role: "user", Content: a.Task})
	return msgs
}

// summarizeMessages condenses the trailing parent messages into a short
// plain-text digest.
func summarizeMessages(msgs []Message) string {
	if len(msgs) > parentSummaryMessages {
		msgs = msgs[len(msgs)-parentSummaryMessages:]
	}
	lines := make([]string, 0, len(msgs))
	for _, m := range msgs {
		content := m.Content
		if len(content) > parentSummaryChars {
			content = content[:parentSummaryChars] + "..."
		}
		lines = append(lines, fmt.Sprintf("[%s] %s", m.Role, content))
	}
	return strings.Join(lines, "\n")
}

func (e *Executor) successResult(a *Agent, output string) *Result {
	return &Result{
		Success:   true,
		Output:    output,
		Usage:     a.Usage(),
		Timestamp: time.Now(),
	}
}

func (e *Executor) failResult(a *Agent, output, errMsg string) *Result {
	return &Result{
		Success:   false,
		Output:    output,
		Error:     errMsg,
		Usage:     a.Usage(),
		Timestamp: time.Now(),
	}
}

func (e *Executor) cancelledResult(a *Agent, output string) *Result {
	return &Result{
		Success:   false,
		Output:    output,
		Error:     "cancelled",
		Usage:     a.Usage(),
		Metadata:  map[string]any{"cancelled": true},
		Timestamp: time.Now(),
	}
}

// finish stamps the terminal state matching the result.
func (e *Executor) finish(a *Agent, result *Result) {
	var state State
	switch {
	case result.Success:
		state = StateCompleted
	case result.Metadata != nil && result.Metadata["cancelled"] == true:
		state = StateCancelled
	default:
		state = StateFailed
	}
	if err := a.transition(state); err != nil {
		e.logger.Warn("agent terminal transition rejected", "agent", a.ID, "state", state, "error", err)
	}
	e.logger.Debug("agent finished",
		"agent", a.ID,
		"type", a.Config.AgentType,
		"state", string(state),
		"iterations", a.Usage().Iterations,
		"tokens", a.Usage().TokensUsed)
}
