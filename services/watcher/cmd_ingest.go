package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hidrolab/telemetria/services/watcher/internal/config"
	"github.com/hidrolab/telemetria/services/watcher/internal/dat"
	"github.com/hidrolab/telemetria/services/watcher/internal/ftpsource"
	"github.com/hidrolab/telemetria/services/watcher/internal/pipeline"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Run one ingestion pass over the remote directory",
	Long: `Connects to the FTP server, lists candidate export files and upserts
their readings. Per-file problems are logged and skipped; the command only
fails when the run cannot proceed at all.`,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().Bool("dry-run", false, "parse everything but write nothing")
	ingestCmd.Flags().Bool("skip-unchanged", false, "skip files whose size and mtime match the ledger")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, _ []string) error {
	a := fromContext(cmd.Context())
	cfg := a.cfg
	if v, _ := cmd.Flags().GetBool("dry-run"); v {
		cfg.DryRun = true
	}
	if v, _ := cmd.Flags().GetBool("skip-unchanged"); v {
		cfg.SkipUnchanged = true
	}
	if err := cfg.RequireFTP(); err != nil {
		return err
	}

	aliases := dat.DefaultAliases()
	if cfg.AliasesFile != "" {
		var err error
		if aliases, err = dat.LoadAliases(cfg.AliasesFile); err != nil {
			return err
		}
	}

	store, err := openBackend(cmd.Context(), cfg, a.logger)
	if err != nil {
		return err
	}
	defer store.Close()

	p := pipeline.New(ftpDialer(cfg), store, store, store, pipeline.Options{
		Parser: dat.NewParser(aliases, cfg.Location),
		Retry: pipeline.RetryPolicy{
			MaxRetries: cfg.ConnectRetries,
			Initial:    cfg.RetryInitial,
			Max:        cfg.RetryMax,
		},
		SkipUnchanged: cfg.SkipUnchanged,
		DryRun:        cfg.DryRun,
	}, a.logger)

	summary, err := p.Run(cmd.Context())
	if err != nil {
		return fmt.Errorf("ingest run %s: %w", summary.RunID, err)
	}
	if summary.Failed() > 0 {
		a.logger.Warn("run finished with failed files", zap.Int("files_failed", summary.Failed()))
	}
	return nil
}

func ftpDialer(cfg config.Config) pipeline.Dialer {
	fc := ftpsource.Config{
		Host:        cfg.FTPHost,
		Port:        cfg.FTPPort,
		User:        cfg.FTPUser,
		Password:    cfg.FTPPassword,
		RootDir:     cfg.FTPRemoteDir,
		Timeout:     cfg.ConnectTimeout,
		DisableEPSV: cfg.DisableEPSV,
	}
	return func(ctx context.Context) (pipeline.Source, error) {
		c, err := ftpsource.Dial(ctx, fc)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
}
