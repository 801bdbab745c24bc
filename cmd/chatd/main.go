// Package main runs chatd, the HTTP front end of the completion adapter.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/joho/godotenv/autoload"

	"github.com/minechat/llmbridge/core/modelcaps"
	"github.com/minechat/llmbridge/core/orchestrator"
	"github.com/minechat/llmbridge/core/orchestrator/middleware"
	"github.com/minechat/llmbridge/core/toolloop"
	"github.com/minechat/llmbridge/internal/config"
	"github.com/minechat/llmbridge/internal/server"
	"github.com/minechat/llmbridge/providers/toolexec"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file (defaults apply when omitted)")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			slog.Error("failed to load configuration", "error", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	setupLogger(cfg.Logging.Level)

	caps := modelcaps.NewLoader(cfg.Capabilities.SourceURL, nil)
	registry := orchestrator.DefaultRegistry(cfg.Compatible.BaseURL)

	orch := orchestrator.New(caps, registry, orchestrator.Config{
		MaxRetries: cfg.Retry.MaxRetries,
		LogLevel:   logLevel(cfg.Logging.Level),
	})

	tools := toolexec.NewRegistry()
	runner := toolloop.New(orch, tools)

	srv, err := server.New(cfg, orch, runner, tools.Descriptors())
	if err != nil {
		slog.Error("failed to build server", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx); err != nil {
		slog.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func setupLogger(level string) {
	slogLevel := slog.LevelInfo
	if level == "verbose" {
		slogLevel = slog.LevelDebug
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slogLevel})
	slog.SetDefault(slog.New(handler))
}

func logLevel(level string) middleware.LogLevel {
	switch level {
	case "minimal":
		return middleware.LogMinimal
	case "verbose":
		return middleware.LogVerbose
	default:
		return middleware.LogStandard
	}
}
