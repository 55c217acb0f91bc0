// Command agentcore runs the bounded reason-act agent loop (spec 4.2)
// over a single channel, following the teacher's cobra-based CLI shape
// (root command + version/run subcommands, ldflags-injected version
// metadata) scaled down from the teacher's multi-channel gateway CLI to
// this repo's console-only scope.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/haasonsaas/agentcore/internal/agent"
	"github.com/haasonsaas/agentcore/internal/agent/providers"
	"github.com/haasonsaas/agentcore/internal/channels"
	"github.com/haasonsaas/agentcore/internal/config"
	"github.com/haasonsaas/agentcore/internal/eventloop"
	"github.com/haasonsaas/agentcore/internal/observability"
	"github.com/haasonsaas/agentcore/internal/sessions"
	"github.com/haasonsaas/agentcore/internal/tools/files"
	"github.com/haasonsaas/agentcore/internal/tools/vector"
	"github.com/haasonsaas/agentcore/pkg/models"
)

// version, commit and date are injected at build time via:
//
//	go build -ldflags "-X main.version=v1.0.0 -X main.commit=$(git rev-parse HEAD) -X main.date=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := buildRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:     "agentcore",
		Short:   "Bounded reason-act agent loop over a single provider and console",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	}
	root.PersistentFlags().StringVar(&configPath, "config", "agentcore.yaml", "path to the configuration file")

	root.AddCommand(buildRunCmd(&configPath))
	return root
}

func buildRunCmd(configPath *string) *cobra.Command {
	var sessionID string
	var workspace string
	var sessionDir string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the agent loop against stdin/stdout",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAgent(cmd.Context(), *configPath, sessionID, workspace, sessionDir)
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "local", "session ID to load/persist history under")
	cmd.Flags().StringVar(&workspace, "workspace", ".", "workspace root for file tools")
	cmd.Flags().StringVar(&sessionDir, "session-dir", ".agentcore/sessions", "directory for persisted session files")
	return cmd
}

func runAgent(ctx context.Context, configPath, sessionID, workspace, sessionDir string) error {
	logger := slog.Default()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	provider, err := buildProvider(cfg)
	if err != nil {
		return err
	}

	registry := agent.NewToolRegistry()
	registry.Register(files.NewReadTool(files.Config{Workspace: workspace}))
	registry.Register(files.NewWriteTool(files.Config{Workspace: workspace}))
	registry.Register(files.NewEditTool(files.Config{Workspace: workspace}))
	registry.Register(files.NewApplyPatchTool(files.Config{Workspace: workspace}))

	store := vector.NewMemoryStore()
	registry.Register(vector.NewUpsertTool(store))
	registry.Register(vector.NewSearchTool(store))

	sessionStore, err := sessions.NewFileStore(sessionDir)
	if err != nil {
		return fmt.Errorf("open session store: %w", err)
	}

	observers := []observability.Observer{
		observability.NewLogObserver(observability.NewLogger(observability.LogConfig{})),
		observability.NewPrometheusObserver(),
	}
	if cfg.Observability.Verbose {
		observers = append(observers, observability.NewVerboseObserver(os.Stdout))
	}
	if cfg.Observability.OTelEndpoint != "" {
		otelCfg := observability.DefaultOTelConfig()
		otelCfg.Endpoint = cfg.Observability.OTelEndpoint
		observers = append(observers, observability.NewOTelObserver(otelCfg, nil))
	}
	observer := observability.NewMultiObserver(observers...)

	loopCfg := agent.DefaultLoopConfig()
	loopCfg.MaxChatHistory = cfg.Agents.MaxChatHistory
	loopCfg.LoadChatHistory = cfg.Agents.LoadChatHistory
	loopCfg.DisableRag = cfg.Agents.DisableRag
	loopCfg.Logger = logger

	agentLoop := agent.NewLoop(sessionID, provider, registry, loopCfg)
	agentLoop.SetObserver(observer)
	agentLoop.SetSessionStore(sessionStore)

	console := channels.NewConsoleAdapter(os.Stdin, os.Stdout, "console:"+sessionID)
	channelRegistry := channels.NewRegistry()
	channelRegistry.Register(console)

	outbound, _ := channelRegistry.GetOutbound(console.Type())

	el := eventloop.New(eventloop.Config{Logger: logger})
	el.SetTaskHandler(func(ctx context.Context, task models.Task) error {
		reply, err := agentLoop.Run(ctx, string(task.Data))
		if err != nil {
			logger.Error("agent run failed", "error", err)
			return err
		}
		agentLoop.IndexConversation(ctx)
		return outbound.Send(ctx, &models.Message{Content: reply})
	})
	agentLoop.SetShutdownSignal(el)

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := agentLoop.Init(runCtx); err != nil {
		return fmt.Errorf("init agent loop: %w", err)
	}
	if err := channelRegistry.StartAll(runCtx); err != nil {
		return fmt.Errorf("start channels: %w", err)
	}

	go el.Run(runCtx)
	go func() {
		for msg := range channelRegistry.AggregateMessages(runCtx) {
			if err := el.SubmitTask(msg.ID, []byte(msg.Content), string(console.Type())); err != nil {
				logger.Error("submit task failed", "error", err)
			}
		}
		el.RequestShutdown()
	}()

	<-runCtx.Done()
	stopErr := channelRegistry.StopAll(context.Background())
	if err := observer.Flush(); err != nil {
		logger.Error("observer flush failed", "error", err)
	}
	return stopErr
}

// buildProvider picks the configured provider as primary, and — when a
// second provider's key is also configured — wraps it in a
// FailoverOrchestrator so transient errors (rate limits, server errors)
// fall over to the secondary rather than ending the run.
func buildProvider(cfg config.Config) (agent.LLMProvider, error) {
	var primary, secondary agent.LLMProvider

	if key := cfg.ProviderAPIKey("anthropic"); key != "" {
		primary = providers.NewAnthropicProvider(key, "", cfg.Agents.Model)
	}
	if key := cfg.ProviderAPIKey("openai"); key != "" {
		openaiProvider := providers.NewOpenAIProvider(key, "")
		if primary == nil {
			primary = openaiProvider
		} else {
			secondary = openaiProvider
		}
	}

	if primary == nil {
		return nil, fmt.Errorf("no provider API key configured (set providers.anthropic.apiKey or providers.openai.apiKey)")
	}
	if secondary == nil {
		return primary, nil
	}

	orchestrator := agent.NewFailoverOrchestrator(primary, nil)
	orchestrator.AddProvider(secondary)
	return orchestrator, nil
}
