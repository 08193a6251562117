package migrations

import (
	"context"

	"github.com/uptrace/bun"

	"github.com/hidrolab/telemetria/services/watcher/internal/models"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		if _, err := db.NewCreateTable().Model((*models.Station)(nil)).IfNotExists().Exec(ctx); err != nil {
			return err
		}
		if _, err := db.NewCreateTable().
			Model((*models.Reading)(nil)).
			IfNotExists().
			ForeignKey(`("station_id") REFERENCES "stations" ("id") ON DELETE CASCADE`).
			Exec(ctx); err != nil {
			return err
		}
		_, err := db.NewCreateTable().Model((*models.IngestedFile)(nil)).IfNotExists().Exec(ctx)
		return err
	}, func(ctx context.Context, db *bun.DB) error {
		modelsList := []interface{}{
			(*models.IngestedFile)(nil),
			(*models.Reading)(nil),
			(*models.Station)(nil),
		}
		for _, model := range modelsList {
			if _, err := db.NewDropTable().Model(model).IfExists().Exec(ctx); err != nil {
				return err
			}
		}
		return nil
	})
}
