// Package cli wires configuration, providers, storage, and the
// orchestrator together for the command-line entry points.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/kimmiai/kimmi/agent"
	"github.com/kimmiai/kimmi/api"
	"github.com/kimmiai/kimmi/chain"
	"github.com/kimmiai/kimmi/config"
	"github.com/kimmiai/kimmi/llm"
	"github.com/kimmiai/kimmi/model"
	"github.com/kimmiai/kimmi/storage"
	"github.com/kimmiai/kimmi/tools"
)

// Options carries settings shared across commands.
type Options struct {
	Provider string
	Model    string
	Memory   string // "file" or "sqlite"
	Verbose  bool
}

// Run executes one agent turn for the given prompt and prints the result.
func Run(ctx context.Context, prompt string, opts Options) error {
	orch, settings, err := buildOrchestrator(opts)
	if err != nil {
		return err
	}

	turn, err := orch.Run(ctx, prompt)
	if err != nil {
		return fmt.Errorf("agent run failed: %w", err)
	}

	logTurn(settings, turn)
	printTurn(turn, opts.Verbose)
	return nil
}

// Ideate runs the content ideation pipeline and prints the result.
func Ideate(ctx context.Context, input chain.Input, opts Options) error {
	orch, settings, err := buildOrchestrator(opts)
	if err != nil {
		return err
	}

	turn, err := orch.RunContentPipeline(ctx, input)
	if err != nil {
		return fmt.Errorf("content pipeline failed: %w", err)
	}

	logTurn(settings, turn)
	printTurn(turn, opts.Verbose)
	return nil
}

// Serve starts the HTTP API on the given address.
func Serve(ctx context.Context, addr string, opts Options) error {
	orch, _, err := buildOrchestrator(opts)
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	server := api.NewServer(orch, logger)

	logger.Info("listening", "addr", addr)
	httpServer := &http.Server{Addr: addr, Handler: server}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		return httpServer.Shutdown(context.Background())
	case err := <-errCh:
		return err
	}
}

// ListTools prints the built-in tool catalog.
func ListTools(verbose bool) error {
	settings := config.MustNew("openrouter")
	registry, err := tools.WithDefaults(settings.Paths.DataDir)
	if err != nil {
		return err
	}

	for _, meta := range registry.List() {
		fmt.Println(meta.String())
		if verbose {
			for _, p := range meta.Parameters {
				required := "optional"
				if p.Required {
					required = "required"
				}
				fmt.Printf("  - %s (%s, %s): %s\n", p.Name, p.ParamType, required, p.Description)
			}
		}
	}
	return nil
}

func buildOrchestrator(opts Options) (*agent.Orchestrator, config.Settings, error) {
	provider := opts.Provider
	if provider == "" {
		provider = "openrouter"
	}

	settings, err := config.New(provider)
	if err != nil {
		return nil, config.Settings{}, err
	}
	if opts.Model != "" {
		settings.LLM.Model = opts.Model
	}

	providerType, err := llm.ParseProviderType(settings.LLM.Provider)
	if err != nil {
		return nil, config.Settings{}, err
	}

	lm, err := llm.NewProviderBuilder(providerType).
		Model(settings.LLM.Model).
		MaxTokens(settings.LLM.MaxTokens).
		Temperature(float32(settings.LLM.Temperature)).
		FromEnv()
	if err != nil {
		return nil, config.Settings{}, err
	}

	memory, err := openMemory(opts.Memory, settings)
	if err != nil {
		return nil, config.Settings{}, err
	}

	registry, err := tools.WithDefaults(settings.Paths.DataDir)
	if err != nil {
		return nil, config.Settings{}, err
	}

	orch := agent.New(agent.Config{
		SystemPrompt:      settings.Agent.SystemPrompt,
		MaxToolIterations: settings.Agent.MaxToolIterations,
	}, memory, registry, lm)

	orch.WithContentChain(chain.New(lm, settings.Agent.ChainMaxAttempts))

	if settings.Features.PostHooks {
		hooks, err := buildHooks(settings)
		if err != nil {
			return nil, config.Settings{}, err
		}
		orch.WithHooks(hooks...)
	}

	return orch, settings, nil
}

func openMemory(kind string, settings config.Settings) (model.Memory, error) {
	switch kind {
	case "", "file":
		return storage.OpenFileStore(settings.Paths.MemoryFile)
	case "sqlite":
		return storage.OpenSqlite(settings.Paths.DataDir + "/kimmi.db")
	default:
		return nil, fmt.Errorf("unknown memory backend: %q", kind)
	}
}

// buildHooks assembles post-turn hooks according to feature flags. Turn
// artifacts are written by logTurn on the command paths, never by a hook,
// so each turn produces exactly one artifact.
func buildHooks(settings config.Settings) ([]agent.Hook, error) {
	var hooks []agent.Hook

	bank := tools.NewMemoryBankTool(settings.Paths.DataDir)
	hooks = append(hooks, func(ctx context.Context, turn model.Turn) error {
		_, err := bank.Execute(ctx, map[string]any{
			"action": "append",
			"entry":  turn.AssistantMessage.Content,
		})
		return err
	})

	return hooks, nil
}

// logTurn writes the single artifact for a completed turn, covering both
// free-form and pipeline turns.
func logTurn(settings config.Settings, turn model.Turn) {
	if !settings.Features.TurnLogging {
		return
	}
	turnLogger, err := storage.NewTurnLogger(settings.Paths.TurnLogDir)
	if err != nil {
		slog.Warn("turn logging disabled", "error", err)
		return
	}
	if _, err := turnLogger.Log(turn); err != nil {
		slog.Warn("failed to log turn", "error", err)
	}
}

func printTurn(turn model.Turn, verbose bool) {
	fmt.Println(turn.AssistantMessage.Content)

	if verbose && len(turn.ToolResults) > 0 {
		fmt.Println("\nTool results:")
		for _, result := range turn.ToolResults {
			encoded, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				continue
			}
			fmt.Println(string(encoded))
		}
	}
	if turn.Exhausted {
		fmt.Fprintln(os.Stderr, "note: tool iteration budget exhausted before a final answer")
	}
}
