// Command foundry is an interactive coding assistant: a line-oriented REPL
// where slash-prefixed lines run control commands and everything else
// becomes a task for an LLM agent with tools.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/haasonsaas/foundry/internal/agent"
	"github.com/haasonsaas/foundry/internal/agent/providers"
	"github.com/haasonsaas/foundry/internal/commands"
	"github.com/haasonsaas/foundry/internal/config"
	"github.com/haasonsaas/foundry/internal/observability"
)

var version = "dev"

func main() {
	if err := rootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCommand() *cobra.Command {
	var configPath string
	var logLevel string

	root := &cobra.Command{
		Use:           "foundry",
		Short:         "AI coding assistant",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runREPL(configPath, logLevel)
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "foundry.yaml", "config file path")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log level")

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("foundry " + version)
		},
	})

	return root
}

func runREPL(configPath, logLevel string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}

	logger := observability.NewLogger(observability.LogConfig{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})

	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is not set")
	}
	provider := providers.NewOpenAIProvider(apiKey, cfg.Model)

	svc, err := newServices(cfg, provider, logger)
	if err != nil {
		return err
	}
	defer svc.shutdown()

	print := func(s string) { fmt.Println(s) }
	cmdCtx := svc.commandContext(provider, print)

	fmt.Printf("foundry %s - model %s. Type /help for commands.\n", version, cfg.Model)

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := scanner.Text()
		if line == "" {
			continue
		}

		if commands.IsCommand(line) {
			result := svc.cmdExec.Execute(context.Background(), line, cmdCtx)
			if !result.Success {
				print("error: " + result.Error)
				continue
			}
			if result.Output != "" {
				print(result.Output)
			}
			if action, ok := result.Data["action"].(string); ok && action == "exit" {
				return nil
			}
			continue
		}

		runTurn(svc, line, print)
	}
	return scanner.Err()
}

// runTurn executes one user turn as a waited general agent.
func runTurn(svc *services, line string, print func(string)) {
	actx := &agent.Context{WorkingDir: svc.cfg.Workspace}
	a := svc.agents.Spawn(context.Background(), agent.GeneralType, line, nil, actx, true)

	result := a.Result()
	switch {
	case result == nil:
		print("error: agent produced no result")
	case result.Success:
		print(result.Output)
	default:
		print("error: " + result.Error)
		if result.Output != "" {
			print(result.Output)
		}
	}
}
