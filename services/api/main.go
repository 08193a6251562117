package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/hidrolab/telemetria/internal/logging"
	"github.com/hidrolab/telemetria/services/api/config"
	"github.com/hidrolab/telemetria/services/api/db"
	httpserver "github.com/hidrolab/telemetria/services/api/http"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "api failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, err := db.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("db connection error: %w", err)
	}
	defer store.Close()

	srv := httpserver.New(cfg, store, logger)
	logger.Info("REST API listening", zap.String("addr", cfg.ListenAddr()))

	return srv.Run(ctx)
}
