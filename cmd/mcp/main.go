package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	mcpadapter "github.com/kirillkom/civil-registry-forms/internal/adapters/mcp"
	"github.com/kirillkom/civil-registry-forms/internal/bootstrap"
	"github.com/kirillkom/civil-registry-forms/internal/config"
	"github.com/kirillkom/civil-registry-forms/internal/observability/logging"
)

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLoggerTo(os.Stderr, "mcp", cfg.LogLevel)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	srv, err := mcpadapter.NewServer(&mcpadapter.Ports{
		Binder:   app.BindUC,
		Scorer:   app.ScoreUC,
		Comparer: app.CompareUC,
		Linter:   app.LintUC,
		Rescorer: app.RescoreUC,
	}, logger)
	if err != nil {
		logger.Error("mcp_server_init_failed", "error", err)
		os.Exit(1)
	}

	logger.Info("mcp_serving_stdio", "tools", srv.Tools())
	if err := srv.ServeStdio(); err != nil {
		logger.Error("mcp_server_failed", "error", err)
		os.Exit(1)
	}
}
