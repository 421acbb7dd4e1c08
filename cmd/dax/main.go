// Package main provides the CLI entry point for dax, a terminal coding
// agent that streams LLM completions through a tool-use loop governed
// by a per-project policy gate.
//
// # Basic Usage
//
// Run one turn against the current directory:
//
//	dax run "add input validation to the signup handler"
//
// Run read-only planning (no write tools execute):
//
//	dax run --mode plan "outline the refactor"
//
// Inspect accumulated project memory:
//
//	dax status
//
// # Environment Variables
//
//   - DAX_API_URL: base URL for the control CLI
//   - DAX_TUI: force the TUI backend
//   - DAX_TUI_ALLOW_PIPE: allow the TUI to run against a non-TTY
//   - DAX_POLICY: default generation policy (safe|balanced|aggressive)
//   - ANTHROPIC_API_KEY / OPENAI_API_KEY: provider credentials
//
// Grounded on the teacher's cmd/nexus/main.go command-tree shape
// (buildRootCmd + one buildXCmd per subcommand).
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/daxcore/dax/internal/agent"
	"github.com/daxcore/dax/internal/config"
	"github.com/daxcore/dax/internal/llm"
	"github.com/daxcore/dax/internal/observability"
	"github.com/daxcore/dax/internal/pm"
	"github.com/daxcore/dax/internal/providers"
	"github.com/daxcore/dax/internal/providers/anthropic"
	"github.com/daxcore/dax/internal/providers/openai"
	"github.com/daxcore/dax/internal/stream"
	"github.com/daxcore/dax/internal/telemetry"
	"github.com/daxcore/dax/internal/tools/example"
	"github.com/daxcore/dax/pkg/models"
)

// Build information, populated by ldflags.
var (
	version = "dev"
	commit  = "none"
)

var (
	configPath string
	workDir    string
	mode       string
	policyName string
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := buildRootCmd().Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "dax",
		Short:        "dax - a terminal coding agent",
		Version:      fmt.Sprintf("%s (commit %s)", version, commit),
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "dax.yaml", "path to dax config file")
	root.PersistentFlags().StringVar(&workDir, "project-dir", ".", "project working directory")
	root.PersistentFlags().StringVar(&mode, "mode", "build", "agent mode: build|plan")
	root.PersistentFlags().StringVar(&policyName, "policy", "", "generation policy override (safe|balanced|aggressive)")

	root.AddCommand(buildRunCmd(), buildStatusCmd())
	return root
}

func buildRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run [prompt]",
		Short: "Run one agent turn against the project directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			return runTurn(ctx, args[0])
		},
	}
}

func buildStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show accumulated project memory for the project directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return showStatus(cmd.Context())
		},
	}
}

func projectID() string {
	return pm.DeriveProjectID(workDir, "")
}

func loadApp(ctx context.Context) (*config.Config, *pm.SQLStore, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	dbPath := cfg.PM.DatabasePath
	if dbPath == "" {
		dbPath = "dax.db"
	}
	store, err := pm.Open(dbPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open pm store: %w", err)
	}
	return cfg, store, nil
}

func buildProvider(cfg *config.Config) (llm.Provider, error) {
	for _, p := range cfg.Providers {
		switch p.Name {
		case "anthropic":
			key := p.APIKey
			if key == "" {
				key = os.Getenv("ANTHROPIC_API_KEY")
			}
			return anthropic.New(anthropic.Config{APIKey: key, BaseURL: p.BaseURL, DefaultModel: p.Model})
		case "openai":
			key := p.APIKey
			if key == "" {
				key = os.Getenv("OPENAI_API_KEY")
			}
			return openai.New(key)
		}
	}
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		return anthropic.New(anthropic.Config{APIKey: key})
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		return openai.New(key)
	}
	return nil, fmt.Errorf("no provider configured: set ANTHROPIC_API_KEY or OPENAI_API_KEY")
}

func runTurn(ctx context.Context, prompt string) error {
	cfg, store, err := loadApp(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	logger := observability.NewLogger(observability.LogConfig{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})

	provider, err := buildProvider(cfg)
	if err != nil {
		return err
	}

	policy, err := cfg.ResolvePolicy(policyName)
	if err != nil {
		return err
	}

	orchestrator := providers.NewFailoverOrchestrator(provider, providers.DefaultFailoverConfig())
	bus := telemetry.NewBus(telemetry.DefaultCapacity)
	coordinator := stream.New(orchestrator, bus)

	registry := agent.NewToolRegistry()
	registry.Register(example.ReadFileTool{WorkDir: workDir})
	registry.Register(example.WriteFileTool{WorkDir: workDir})

	loop := agent.New(coordinator, registry, store, agent.DefaultConfig())
	loop.Bus = bus

	agentMode := agent.ModeBuild
	if mode == "plan" {
		agentMode = agent.ModePlan
	}

	result, err := loop.RunTurn(ctx, projectID(), agent.PromptConfig{Mode: agentMode}, nil, prompt, stream.Options{
		Temperature: policy.Temperature,
		MaxTokens:   policy.MaxTokens,
		Tools:       registry.FunctionTools(),
	})
	if err != nil {
		logger.Error(ctx, "turn failed", "error", err)
		return err
	}

	for _, msg := range result.Messages {
		if msg.Role == models.RoleAssistant && msg.Content != "" {
			fmt.Println(msg.Content)
		}
	}
	fmt.Fprintf(os.Stderr, "status: %s\n", result.Status)
	return nil
}

func showStatus(ctx context.Context) error {
	_, store, err := loadApp(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	state, err := store.Load(ctx, projectID())
	if err != nil {
		return err
	}
	fmt.Printf("project: %s\n", projectID())
	fmt.Printf("charter: %s\n", state.Charter)
	fmt.Printf("recent outcomes: %d\n", len(state.RecentOutcomes))
	return nil
}
