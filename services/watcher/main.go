package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hidrolab/telemetria/internal/logging"
	"github.com/hidrolab/telemetria/services/watcher/internal/config"
)

type appKey struct{}

// app is filled in by setup before any subcommand runs.
type app struct {
	cfg    config.Config
	logger *zap.Logger
}

var rootCmd = &cobra.Command{
	Use:   "watcher",
	Short: "Datalogger ingestion for water-quality stations",
	Long: `watcher pulls datalogger export files from the station FTP server,
maps them onto the canonical reading schema and upserts them into the store.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	a := fromContext(cmd.Context())
	a.cfg = cfg
	a.logger = logger
	return nil
}

func fromContext(ctx context.Context) *app {
	return ctx.Value(appKey{}).(*app)
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "watcher failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{logger: zap.NewNop()}
	err := rootCmd.ExecuteContext(context.WithValue(ctx, appKey{}, a))
	_ = a.logger.Sync()
	return err
}
