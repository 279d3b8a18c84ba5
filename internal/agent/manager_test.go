package agent

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/haasonsaas/foundry/internal/tools"
)

// slowProvider holds each completion open for a fixed delay so concurrency
// is observable.
type slowProvider struct {
	delay   time.Duration
	running int64
	peak    int64
}

func (p *slowProvider) Complete(ctx context.Context, messages []Message, toolSchemas []openai.Tool, model string) (*Completion, error) {
	n := atomic.AddInt64(&p.running, 1)
	for {
		peak := atomic.LoadInt64(&p.peak)
		if n <= peak || atomic.CompareAndSwapInt64(&p.peak, peak, n) {
			break
		}
	}
	defer atomic.AddInt64(&p.running, -1)

	select {
	case <-time.After(p.delay):
		return &Completion{Content: "done", Usage: Usage{TotalTokens: 1}}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func newManagerFixture(t *testing.T, provider Provider, maxConcurrent int) *Manager {
	t.Helper()
	registry := tools.NewRegistry()
	toolExec := tools.NewExecutor(registry, nil, nil)
	executor := NewExecutor(provider, registry, toolExec, nil, nil)
	return NewManager(executor, NewTypeRegistry(), maxConcurrent, nil, nil)
}

func TestManager_SpawnWait(t *testing.T) {
	m := newManagerFixture(t, &slowProvider{delay: 10 * time.Millisecond}, 2)

	a := m.Spawn(context.Background(), "explore", "look around", nil, nil, true)
	if a.State() != StateCompleted {
		t.Fatalf("state = %s", a.State())
	}
	if a.Config.AgentType != "explore" {
		t.Errorf("agent type = %s", a.Config.AgentType)
	}

	result, ok := m.Wait(context.Background(), a.ID)
	if !ok || result == nil || !result.Success {
		t.Errorf("Wait = %+v, %v", result, ok)
	}
}

func TestManager_UnknownTypeFallsBack(t *testing.T) {
	m := newManagerFixture(t, &slowProvider{delay: time.Millisecond}, 2)
	a := m.Spawn(context.Background(), "sorcerer", "task", nil, nil, true)
	if a.Config.AgentType != GeneralType {
		t.Errorf("agent type = %s, want %s", a.Config.AgentType, GeneralType)
	}
}

func TestManager_ConcurrencyCap(t *testing.T) {
	provider := &slowProvider{delay: 100 * time.Millisecond}
	m := newManagerFixture(t, provider, 2)

	specs := make([]SpawnSpec, 5)
	for i := range specs {
		specs[i] = SpawnSpec{Type: "explore", Task: "task"}
	}
	agents := m.SpawnParallel(context.Background(), specs)
	if len(agents) != 5 {
		t.Fatalf("%d agents", len(agents))
	}

	// Observe running states while the batch drains.
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		running := 0
		for _, a := range agents {
			if a.State() == StateRunning {
				running++
			}
		}
		if running > 2 {
			t.Fatalf("%d agents running, cap is 2", running)
		}
		done := 0
		for _, a := range agents {
			if a.State().Terminal() {
				done++
			}
		}
		if done == 5 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	if p := atomic.LoadInt64(&provider.peak); p > 2 {
		t.Errorf("provider peak concurrency %d exceeds cap", p)
	}
}

func TestManager_WaitAllOrder(t *testing.T) {
	m := newManagerFixture(t, &slowProvider{delay: 10 * time.Millisecond}, 2)

	agents := m.SpawnParallel(context.Background(), []SpawnSpec{
		{Type: "explore", Task: "A"},
		{Type: "explore", Task: "B"},
		{Type: "explore", Task: "C"},
	})

	ids := make([]string, len(agents))
	for i, a := range agents {
		ids[i] = a.ID
	}

	agg := m.WaitAll(context.Background(), ids)
	if len(agg.Results) != 3 {
		t.Fatalf("%d results", len(agg.Results))
	}
	if agg.SuccessCount != 3 || agg.FailureCount != 0 {
		t.Errorf("counts %d/%d", agg.SuccessCount, agg.FailureCount)
	}
	if agg.TotalTokens != 3 {
		t.Errorf("total tokens = %d", agg.TotalTokens)
	}
}

func TestManager_CancelAllThenWaitAll(t *testing.T) {
	m := newManagerFixture(t, &slowProvider{delay: 10 * time.Second}, 2)

	m.SpawnParallel(context.Background(), []SpawnSpec{
		{Type: "general", Task: "1"},
		{Type: "general", Task: "2"},
		{Type: "general", Task: "3"},
		{Type: "general", Task: "4"},
	})

	time.Sleep(50 * time.Millisecond)
	if n := m.CancelAll(); n != 4 {
		t.Errorf("CancelAll = %d, want 4", n)
	}

	done := make(chan *AggregatedResult, 1)
	go func() { done <- m.WaitAll(context.Background(), nil) }()

	select {
	case agg := <-done:
		if agg.SuccessCount != 0 {
			t.Errorf("%d successes after cancel_all", agg.SuccessCount)
		}
		for _, r := range agg.Results {
			if r == nil {
				t.Error("nil result after cancellation")
			} else if r.Success {
				t.Error("cancelled agent reported success")
			}
		}
	case <-time.After(5 * time.Second):
		t.Fatal("wait_all did not terminate in bounded time after cancel_all")
	}

	for _, a := range m.List() {
		if a.State() != StateCancelled {
			t.Errorf("agent %s state = %s, want cancelled", a.ID, a.State())
		}
		if a.Result() == nil || a.CompletedAt().IsZero() {
			t.Error("terminal agent missing result or completedAt")
		}
	}
}

func TestManager_CancelIdempotent(t *testing.T) {
	m := newManagerFixture(t, &slowProvider{delay: time.Millisecond}, 2)

	a := m.Spawn(context.Background(), "general", "task", nil, nil, true)

	if !m.Cancel(a.ID) {
		t.Error("Cancel returned false for known agent")
	}
	if !m.Cancel(a.ID) {
		t.Error("second Cancel returned false")
	}
	// Terminal state is sticky: cancelling a completed agent keeps its result.
	if a.State() != StateCompleted {
		t.Errorf("state changed to %s", a.State())
	}
	if result := a.Result(); result == nil || !result.Success {
		t.Error("result mutated by late cancel")
	}

	if m.Cancel("unknown-id") {
		t.Error("Cancel returned true for unknown id")
	}
}

func TestManager_StatsAndCleanup(t *testing.T) {
	m := newManagerFixture(t, &slowProvider{delay: time.Millisecond}, 2)

	m.Spawn(context.Background(), "general", "a", nil, nil, true)
	m.Spawn(context.Background(), "general", "b", nil, nil, true)

	stats := m.GetStats()
	if stats.Total != 2 || stats.ByState[StateCompleted] != 2 {
		t.Errorf("stats = %+v", stats)
	}
	if stats.TotalUsage.TokensUsed != 2 {
		t.Errorf("total tokens = %d", stats.TotalUsage.TokensUsed)
	}

	if removed := m.CleanupCompleted(); removed != 2 {
		t.Errorf("CleanupCompleted = %d", removed)
	}
	if len(m.List()) != 0 {
		t.Error("agents survived cleanup")
	}
}

func TestManager_OnComplete(t *testing.T) {
	m := newManagerFixture(t, &slowProvider{delay: time.Millisecond}, 2)

	var mu sync.Mutex
	var completed []string
	m.OnComplete(func(a *Agent) {
		mu.Lock()
		completed = append(completed, a.ID)
		mu.Unlock()
	})
	// A panicking callback must not break anything.
	m.OnComplete(func(a *Agent) { panic("rude callback") })

	a := m.Spawn(context.Background(), "general", "task", nil, nil, true)

	deadline := time.Now().Add(2 * time.Second)
	for {
		mu.Lock()
		n := len(completed)
		mu.Unlock()
		if n > 0 || time.Now().After(deadline) {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(completed) != 1 || completed[0] != a.ID {
		t.Errorf("callbacks = %v", completed)
	}
}
