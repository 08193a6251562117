package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hidrolab/telemetria/services/watcher/internal/config"
	"github.com/hidrolab/telemetria/services/watcher/internal/db"
	"github.com/hidrolab/telemetria/services/watcher/internal/litestore"
	"github.com/hidrolab/telemetria/services/watcher/internal/models"
	"github.com/hidrolab/telemetria/services/watcher/internal/pipeline"
)

// backend is what the subcommands need from a store driver.
type backend interface {
	pipeline.StationDirectory
	pipeline.ReadingStore
	pipeline.Ledger
	CreateStation(ctx context.Context, st *models.Station) error
	ListStations(ctx context.Context) ([]models.Station, error)
	Migrate(ctx context.Context) error
	Close() error
}

type pgBackend struct {
	*db.Store
	url    string
	logger *zap.Logger
}

func (b pgBackend) Migrate(context.Context) error {
	return db.Migrate(b.url, b.logger)
}

func (b pgBackend) Close() error {
	b.Store.Close()
	return nil
}

type sqliteBackend struct {
	*litestore.Store
	logger *zap.Logger
}

func (b sqliteBackend) Migrate(ctx context.Context) error {
	return b.Store.Migrate(ctx, b.logger)
}

func openBackend(ctx context.Context, cfg config.Config, logger *zap.Logger) (backend, error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		s, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return pgBackend{Store: s, url: cfg.DatabaseURL, logger: logger}, nil
	case config.DriverSQLite:
		s, err := litestore.Open(cfg.SQLitePath, cfg.StoreDebug)
		if err != nil {
			return nil, fmt.Errorf("open sqlite %s: %w", cfg.SQLitePath, err)
		}
		return sqliteBackend{Store: s, logger: logger}, nil
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.StoreDriver)
	}
}
