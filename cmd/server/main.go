package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/laocai-wudi/chunmpre.cn/internal/app"
	"github.com/laocai-wudi/chunmpre.cn/internal/config"
	"github.com/laocai-wudi/chunmpre.cn/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log := logger.New(app.ServiceName, cfg.LogLevel)
	log.Info("starting catalog service",
		slog.String("environment", cfg.Environment),
		slog.String("storage", cfg.StorageDriver),
		slog.Int("http_port", cfg.HTTPPort),
	)

	application, err := app.NewApp(cfg, log)
	if err != nil {
		log.Error("failed to initialize application", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := application.Run(ctx); err != nil {
		log.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log.Info("catalog service stopped")
}
