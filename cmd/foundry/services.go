package main

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/haasonsaas/foundry/internal/agent"
	"github.com/haasonsaas/foundry/internal/commands"
	"github.com/haasonsaas/foundry/internal/config"
	"github.com/haasonsaas/foundry/internal/infra"
	"github.com/haasonsaas/foundry/internal/observability"
	"github.com/haasonsaas/foundry/internal/shell"
	"github.com/haasonsaas/foundry/internal/tools"
	execTools "github.com/haasonsaas/foundry/internal/tools/exec"
	"github.com/haasonsaas/foundry/internal/tools/files"
	"github.com/haasonsaas/foundry/internal/tools/task"
	"github.com/haasonsaas/foundry/internal/tools/web"
)

// services is the single wiring point: one instance per process, threaded
// explicitly instead of package-level singletons so tests can build as many
// as they like.
type services struct {
	cfg      *config.Config
	logger   *slog.Logger
	metrics  *observability.Metrics
	shells   *shell.Manager
	tools    *tools.Registry
	toolExec *tools.Executor
	agents   *agent.Manager
	types    *agent.TypeRegistry
	cmdReg   *commands.Registry
	cmdExec  *commands.Executor
	sessions *memorySessions
}

// newServices wires the full stack over the given provider.
func newServices(cfg *config.Config, provider agent.Provider, logger *slog.Logger) (*services, error) {
	metrics := observability.NewMetrics()

	shells := shell.NewManager(logger, metrics)

	registry := tools.NewRegistry()
	toolExec := tools.NewExecutor(registry, logger, metrics)

	types := agent.NewTypeRegistry()
	agentExec := agent.NewExecutor(provider, registry, toolExec, logger, metrics)
	agentExec.DefaultModel = cfg.Model
	agents := agent.NewManager(agentExec, types, cfg.MaxConcurrentAgents, logger, metrics)

	toolSet := []tools.Tool{
		files.NewReadTool(),
		files.NewWriteTool(),
		files.NewListTool(),
		execTools.NewBashTool(shells),
		execTools.NewBashOutputTool(shells),
		execTools.NewKillShellTool(shells),
		web.NewFetchTool(nil, infra.NewByteCache(0, 0)),
		task.NewSpawnTool(agents),
		task.NewStatusTool(agents),
		task.NewCancelTool(agents),
		task.NewWaitTool(agents),
	}
	for _, t := range toolSet {
		if err := registry.Register(t); err != nil {
			return nil, err
		}
	}

	cmdReg := commands.NewRegistry(logger)
	commands.RegisterBuiltins(cmdReg)
	cmdExec := commands.NewExecutor(cmdReg, logger)

	return &services{
		cfg:      cfg,
		logger:   logger,
		metrics:  metrics,
		shells:   shells,
		tools:    registry,
		toolExec: toolExec,
		agents:   agents,
		types:    types,
		cmdReg:   cmdReg,
		cmdExec:  cmdExec,
		sessions: newMemorySessions(),
	}, nil
}

// commandContext builds the capability bundle handed to command handlers.
func (s *services) commandContext(provider agent.Provider, print func(string)) *commands.Context {
	return &commands.Context{
		Sessions: s.sessions,
		Config:   s.cfg,
		Provider: provider,
		Print:    print,
		Agents:   s.agents,
		Shells:   s.shells,
		Tools:    s.tools,
		ToolExec: s.toolExec,
	}
}

// shutdown stops everything the REPL started.
func (s *services) shutdown() {
	s.agents.CancelAll()
	s.shells.KillAll()
}

// memorySessions is the in-memory session store behind /session. Durable
// session storage is a separate subsystem; the execution core persists
// nothing.
type memorySessions struct {
	mu       sync.Mutex
	sessions []commands.SessionInfo
}

func newMemorySessions() *memorySessions {
	return &memorySessions{}
}

func (m *memorySessions) List() []commands.SessionInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]commands.SessionInfo, len(m.sessions))
	copy(out, m.sessions)
	return out
}

func (m *memorySessions) Get(id string) (commands.SessionInfo, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		if s.ID == id {
			return s, true
		}
	}
	return commands.SessionInfo{}, false
}

func (m *memorySessions) Create(title string) commands.SessionInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := commands.SessionInfo{
		ID:        uuid.NewString()[:8],
		Title:     title,
		CreatedAt: time.Now(),
	}
	m.sessions = append(m.sessions, s)
	return s
}
