// Package migrations holds the SQLite schema. File names carry the migration
// version, so new steps go in new files.
package migrations

import (
	"context"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
	"go.uber.org/zap"
)

var Migrations = migrate.NewMigrations()

// Run applies all pending migrations.
func Run(ctx context.Context, db *bun.DB, logger *zap.Logger) error {
	migrator := migrate.NewMigrator(db, Migrations)

	if err := migrator.Init(ctx); err != nil {
		return err
	}

	group, err := migrator.Migrate(ctx)
	if err != nil {
		return err
	}

	if group.IsZero() {
		logger.Info("sqlite schema up to date")
		return nil
	}
	logger.Info("sqlite schema migrated", zap.String("group", group.String()))
	return nil
}
