package agent

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/haasonsaas/foundry/internal/tools"
)

// scriptedProvider replays a fixed sequence of completions.
type scriptedProvider struct {
	mu      sync.Mutex
	script  []*Completion
	calls   int
	fail    error
	delay   time.Duration
	lastMsg []Message
}

func (p *scriptedProvider) Complete(ctx context.Context, messages []Message, toolSchemas []openai.Tool, model string) (*Completion, error) {
	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastMsg = messages
	if p.fail != nil {
		return nil, p.fail
	}
	if p.calls >= len(p.script) {
		return &Completion{Content: "done", Usage: Usage{TotalTokens: 1}}, nil
	}
	c := p.script[p.calls]
	p.calls++
	return c, nil
}

func (p *scriptedProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// echoTool records invocations and echoes its text argument.
type echoTool struct {
	mu    sync.Mutex
	seen  []string
	sleep time.Duration
}

func (e *echoTool) Descriptor() tools.Descriptor {
	return tools.Descriptor{
		Name:        "echo",
		Description: "Echo text",
		Category:    tools.CategoryOther,
		Params: []tools.Param{
			{Name: "text", Type: tools.TypeString, Required: true},
		},
	}
}

func (e *echoTool) Execute(ctx context.Context, ec *tools.ExecContext, args map[string]any) (*tools.Result, error) {
	if e.sleep > 0 {
		select {
		case <-time.After(e.sleep):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	text, _ := args["text"].(string)
	e.mu.Lock()
	e.seen = append(e.seen, text)
	e.mu.Unlock()
	return tools.Ok("echo: " + text), nil
}

func newAgentFixture(t *testing.T, provider Provider, toolSet ...tools.Tool) *Executor {
	t.Helper()
	registry := tools.NewRegistry()
	for _, tool := range toolSet {
		if err := registry.Register(tool); err != nil {
			t.Fatalf("register: %v", err)
		}
	}
	toolExec := tools.NewExecutor(registry, nil, nil)
	return NewExecutor(provider, registry, toolExec, nil, nil)
}

func limitedConfig(mutate func(*ResourceLimits)) Config {
	limits := DefaultLimits()
	if mutate != nil {
		mutate(&limits)
	}
	return Config{AgentType: "general", Limits: limits}
}

func TestExecutor_FinalTextCompletes(t *testing.T) {
	provider := &scriptedProvider{script: []*Completion{
		{Content: "the answer", Usage: Usage{TotalTokens: 7}},
	}}
	e := newAgentFixture(t, provider)

	a := New("t1", "answer me", limitedConfig(nil), Context{})
	result := e.Execute(context.Background(), a)

	if !result.Success {
		t.Fatalf("failed: %s", result.Error)
	}
	if result.Output != "the answer" {
		t.Errorf("output = %q", result.Output)
	}
	if a.State() != StateCompleted {
		t.Errorf("state = %s", a.State())
	}
	if a.Result() == nil || a.CompletedAt().IsZero() {
		t.Error("terminal invariant violated: result or completedAt missing")
	}
	usage := a.Usage()
	if usage.TokensUsed != 7 || usage.Iterations != 1 {
		t.Errorf("usage = %+v", usage)
	}
}

func TestExecutor_InitialMessages(t *testing.T) {
	provider := &scriptedProvider{}
	e := newAgentFixture(t, provider)

	parent := []Message{
		{Role: "user", Content: "earlier question"},
		{Role: "assistant", Content: strings.Repeat("long ", 100)},
	}
	cfg := limitedConfig(nil)
	cfg.AgentType = "explore"
	cfg.Prompt = "Look around."
	cfg.InheritContext = true

	a := New("t2", "map the repo", cfg, Context{ParentMessages: parent})
	e.Execute(context.Background(), a)

	msgs := a.Messages()
	if len(msgs) < 3 {
		t.Fatalf("only %d messages", len(msgs))
	}
	if msgs[0].Role != "system" || !strings.Contains(msgs[0].Content, "You are a explore agent.") {
		t.Errorf("system message wrong: %q", msgs[0].Content)
	}
	if !strings.Contains(msgs[0].Content, "Look around.") {
		t.Error("prompt addendum missing")
	}
	if msgs[1].Role != "system" || !strings.HasPrefix(msgs[1].Content, "Parent context summary:\n") {
		t.Errorf("parent summary missing: %q", msgs[1].Content)
	}
	// Each summarized message is truncated.
	if len(msgs[1].Content) > 600 {
		t.Errorf("summary too long: %d chars", len(msgs[1].Content))
	}
	if msgs[2].Role != "user" || msgs[2].Content != "map the repo" {
		t.Errorf("user message wrong: %+v", msgs[2])
	}
}

func TestExecutor_ToolCallLoop(t *testing.T) {
	provider := &scriptedProvider{script: []*Completion{
		{
			ToolCalls: []ToolCall{
				{ID: "c1", Name: "echo", Arguments: map[string]any{"text": "first"}},
				{ID: "c2", Name: "echo", Arguments: map[string]any{"text": "second"}},
			},
			Usage: Usage{TotalTokens: 5},
		},
		{Content: "finished", Usage: Usage{TotalTokens: 5}},
	}}
	echo := &echoTool{}
	e := newAgentFixture(t, provider, echo)

	a := New("t3", "use tools", limitedConfig(nil), Context{})
	result := e.Execute(context.Background(), a)

	if !result.Success || result.Output != "finished" {
		t.Fatalf("result = %+v", result)
	}
	if got := strings.Join(echo.seen, ","); got != "first,second" {
		t.Errorf("tool call order = %s", got)
	}

	usage := a.Usage()
	if usage.ToolCalls != 2 || usage.Iterations != 2 || usage.TokensUsed != 10 {
		t.Errorf("usage = %+v", usage)
	}

	// Tool messages appear in call order, before the final round-trip.
	msgs := a.Messages()
	var toolMsgs []Message
	for _, m := range msgs {
		if m.Role == "tool" {
			toolMsgs = append(toolMsgs, m)
		}
	}
	if len(toolMsgs) != 2 {
		t.Fatalf("%d tool messages", len(toolMsgs))
	}
	if toolMsgs[0].ToolCallID != "c1" || toolMsgs[1].ToolCallID != "c2" {
		t.Error("tool message order wrong")
	}
	if !strings.Contains(toolMsgs[0].Content, "echo: first") {
		t.Errorf("tool result content = %q", toolMsgs[0].Content)
	}
}

func TestExecutor_UnknownToolBecomesMessage(t *testing.T) {
	provider := &scriptedProvider{script: []*Completion{
		{ToolCalls: []ToolCall{{ID: "c1", Name: "ghost", Arguments: map[string]any{}}}},
		{Content: "recovered"},
	}}
	e := newAgentFixture(t, provider)

	a := New("t4", "task", limitedConfig(nil), Context{})
	result := e.Execute(context.Background(), a)

	if !result.Success {
		t.Fatalf("agent failed: %s", result.Error)
	}
	found := false
	for _, m := range a.Messages() {
		if m.Role == "tool" && m.Content == "Tool not found: ghost" {
			found = true
		}
	}
	if !found {
		t.Error("missing 'Tool not found: ghost' tool message")
	}
	if a.Usage().ToolCalls != 1 {
		t.Errorf("tool calls = %d, want 1 (unknown tools still count)", a.Usage().ToolCalls)
	}
}

func TestExecutor_TokenLimitAbort(t *testing.T) {
	provider := &scriptedProvider{script: []*Completion{
		{
			Content:   "working on it",
			ToolCalls: []ToolCall{{ID: "c1", Name: "echo", Arguments: map[string]any{"text": "x"}}},
			Usage:     Usage{TotalTokens: 2000},
		},
		{Content: "never reached"},
	}}
	e := newAgentFixture(t, provider, &echoTool{})

	cfg := limitedConfig(func(l *ResourceLimits) { l.MaxTokens = 1000 })
	a := New("t5", "task", cfg, Context{})
	result := e.Execute(context.Background(), a)

	if result.Success {
		t.Fatal("expected failure")
	}
	if !strings.Contains(result.Error, "Resource limit exceeded: max_tokens") {
		t.Errorf("error = %q", result.Error)
	}
	if a.State() != StateFailed {
		t.Errorf("state = %s, want failed", a.State())
	}
	// Partial output preserved.
	if !strings.Contains(result.Output, "working on it") {
		t.Errorf("partial output lost: %q", result.Output)
	}
}

func TestExecutor_IterationLimit(t *testing.T) {
	// Provider always asks for another tool call, so only the iteration
	// budget stops the loop.
	loopingProvider := providerFunc(func(ctx context.Context, messages []Message, schemas []openai.Tool, model string) (*Completion, error) {
		return &Completion{
			ToolCalls: []ToolCall{{ID: "x", Name: "echo", Arguments: map[string]any{"text": "again"}}},
			Usage:     Usage{TotalTokens: 1},
		}, nil
	})
	e := newAgentFixture(t, loopingProvider, &echoTool{})

	cfg := limitedConfig(func(l *ResourceLimits) { l.MaxIterations = 3 })
	a := New("t6", "task", cfg, Context{})
	result := e.Execute(context.Background(), a)

	if result.Success {
		t.Fatal("expected failure")
	}
	if !strings.Contains(result.Error, "Resource limit exceeded: max_iterations") {
		t.Errorf("error = %q", result.Error)
	}
	// Iterations count attempts: the third call runs, the fourth is refused.
	if a.Usage().Iterations != 3 {
		t.Errorf("iterations = %d, want 3", a.Usage().Iterations)
	}
}

type providerFunc func(ctx context.Context, messages []Message, toolSchemas []openai.Tool, model string) (*Completion, error)

func (f providerFunc) Complete(ctx context.Context, messages []Message, toolSchemas []openai.Tool, model string) (*Completion, error) {
	return f(ctx, messages, toolSchemas, model)
}

func TestExecutor_ProviderErrorFails(t *testing.T) {
	provider := &scriptedProvider{fail: fmt.Errorf("upstream 500")}
	e := newAgentFixture(t, provider)

	a := New("t7", "task", limitedConfig(nil), Context{})
	result := e.Execute(context.Background(), a)

	if result.Success || !strings.Contains(result.Error, "upstream 500") {
		t.Errorf("result = %+v", result)
	}
	if a.State() != StateFailed {
		t.Errorf("state = %s", a.State())
	}
}

func TestExecutor_CancellationFlag(t *testing.T) {
	provider := &scriptedProvider{script: []*Completion{
		{ToolCalls: []ToolCall{{ID: "c1", Name: "echo", Arguments: map[string]any{"text": "x"}}}},
		{Content: "never"},
	}}
	e := newAgentFixture(t, provider, &echoTool{})

	a := New("t8", "task", limitedConfig(nil), Context{})
	a.Cancel() // flag set before the loop starts

	result := e.Execute(context.Background(), a)
	if result.Success {
		t.Fatal("expected cancellation")
	}
	if a.State() != StateCancelled {
		t.Errorf("state = %s, want cancelled", a.State())
	}
	if provider.callCount() != 0 {
		t.Error("LLM called despite pre-set cancellation flag")
	}
}

func TestExecutor_ContextCancellationMidCall(t *testing.T) {
	provider := &scriptedProvider{delay: 5 * time.Second}
	e := newAgentFixture(t, provider)

	ctx, cancel := context.WithCancel(context.Background())
	a := New("t9", "task", limitedConfig(nil), Context{})

	done := make(chan *Result, 1)
	go func() { done <- e.Execute(ctx, a) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case result := <-done:
		if result.Success {
			t.Error("expected cancelled result")
		}
		if a.State() != StateCancelled {
			t.Errorf("state = %s, want cancelled", a.State())
		}
	case <-time.After(3 * time.Second):
		t.Fatal("executor did not unwind on context cancellation")
	}
}
