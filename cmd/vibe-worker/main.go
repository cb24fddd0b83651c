// vibe-worker runs the durable agent workflow behind an HTTP trigger API.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/AAsriyan/vibe/internal/agent/app"
	"github.com/AAsriyan/vibe/internal/agent/domain"
	vibeerrors "github.com/AAsriyan/vibe/internal/errors"
	"github.com/AAsriyan/vibe/internal/infra/llm"
	"github.com/AAsriyan/vibe/internal/infra/messagestore"
	"github.com/AAsriyan/vibe/internal/infra/sandbox"
	"github.com/AAsriyan/vibe/internal/observability"
	"github.com/AAsriyan/vibe/internal/server"
	"github.com/AAsriyan/vibe/internal/shared/config"
	"github.com/AAsriyan/vibe/internal/shared/logging"
	"github.com/AAsriyan/vibe/internal/workflow"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:     "vibe-worker",
		Short:   "Durable agent workflow worker",
		Version: version,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file")

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the trigger API and workflow workers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg)
		},
	}
	root.AddCommand(serve)
	return root
}

func runServe(ctx context.Context, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := logging.NewComponentLogger("vibe-worker")
	banner(cfg)

	if cfg.Database.URL == "" {
		return errors.New("database.url is required (set VIBE_DATABASE_URL)")
	}
	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	messages := messagestore.New(pool)
	if err := messages.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensure message schema: %w", err)
	}
	checkpoints := workflow.NewPostgresStore(pool)
	if err := checkpoints.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensure checkpoint schema: %w", err)
	}

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)

	baseLLM := llm.NewOpenAIClient(llm.Config{
		BaseURL:     cfg.LLM.BaseURL,
		APIKey:      cfg.LLM.APIKey,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout,
	})
	loopLLM := llm.NewRetryClient(baseLLM, vibeerrors.DefaultRetryConfig())
	finalizerLLM, err := llm.NewCachingClient(loopLLM, cfg.LLM.CacheSize)
	if err != nil {
		return fmt.Errorf("build caching client: %w", err)
	}

	sandboxClient := sandbox.NewClient(sandbox.Config{
		BaseURL: cfg.Sandbox.BaseURL,
		APIKey:  cfg.Sandbox.APIKey,
	})

	wf, err := domain.NewCodeAgentWorkflow(domain.WorkflowDeps{
		LLM:          loopLLM,
		FinalizerLLM: finalizerLLM,
		Sandbox:      sandboxClient,
		Messages:     messages,
		Checkpoints:  checkpoints,
		Retry:        vibeerrors.DefaultRetryConfig(),
		Metrics:      metrics,
		Logger:       logger,
	}, domain.WorkflowConfig{
		SandboxImage:   cfg.Sandbox.Image,
		SandboxTimeout: cfg.Sandbox.Timeout,
		AppPort:        cfg.Sandbox.AppPort,
		MaxIterations:  cfg.Agent.MaxIterations,
		ContextLimit:   cfg.Agent.ContextLimit,
	})
	if err != nil {
		return err
	}

	dispatcher := app.NewDispatcher(wf, cfg.Worker.Count, cfg.Worker.QueueSize, logger)
	api := server.New(messages, dispatcher, registry, logger)

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return dispatcher.Run(ctx)
	})
	group.Go(func() error {
		logger.Info("HTTP server listening on %s", cfg.Server.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("Shutdown complete")
	return nil
}

func banner(cfg *config.Config) {
	color.Cyan("vibe-worker %s", version)
	color.White("  model:   %s", cfg.LLM.Model)
	color.White("  sandbox: %s (image %s)", cfg.Sandbox.BaseURL, cfg.Sandbox.Image)
	color.White("  workers: %d", cfg.Worker.Count)
}
