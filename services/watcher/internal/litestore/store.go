// Package litestore is the SQLite backend, used for local runs and offline
// stations.
package litestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/extra/bundebug"
	"go.uber.org/zap"

	"github.com/hidrolab/telemetria/services/watcher/internal/litestore/migrations"
	"github.com/hidrolab/telemetria/services/watcher/internal/models"
)

// upsertChunk caps rows per INSERT so statements stay reasonably sized.
const upsertChunk = 500

// Store implements the station directory, reading store and ledger on SQLite.
type Store struct {
	db *bun.DB
}

// Open opens the database at path with WAL and foreign keys enabled.
func Open(path string, debug bool) (*Store, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, path)
	if err != nil {
		return nil, err
	}
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())

	if debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}

	if _, err := db.Exec(`
        PRAGMA journal_mode = WAL;
        PRAGMA synchronous = NORMAL;
        PRAGMA foreign_keys = ON;
    `); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate creates or upgrades the schema.
func (s *Store) Migrate(ctx context.Context, logger *zap.Logger) error {
	return migrations.Run(ctx, s.db, logger)
}

// FindByCode returns models.ErrStationNotFound for unknown codes.
func (s *Store) FindByCode(ctx context.Context, code string) (*models.Station, error) {
	st := new(models.Station)
	err := s.db.NewSelect().Model(st).Where("code = ?", code).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrStationNotFound
	}
	if err != nil {
		return nil, err
	}
	return st, nil
}

// CreateStation inserts st and fills in its ID.
func (s *Store) CreateStation(ctx context.Context, st *models.Station) error {
	if st.CreatedAt.IsZero() {
		st.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.NewInsert().Model(st).Exec(ctx)
	return err
}

// ListStations returns all stations ordered by code.
func (s *Store) ListStations(ctx context.Context) ([]models.Station, error) {
	var stations []models.Station
	err := s.db.NewSelect().Model(&stations).Order("code ASC").Scan(ctx)
	return stations, err
}

// UpsertBatch writes readings in one transaction. On a natural key conflict
// only policy.UpdateColumns are overwritten.
func (s *Store) UpsertBatch(ctx context.Context, readings []models.Reading, policy models.ConflictPolicy) (int, error) {
	if err := policy.Validate(); err != nil {
		return 0, err
	}
	if len(readings) == 0 {
		return 0, nil
	}

	rows := make([]models.Reading, len(readings))
	copy(rows, readings)
	now := time.Now().UTC()
	for i := range rows {
		rows[i].ID = 0
		if rows[i].IngestedAt.IsZero() {
			rows[i].IngestedAt = now
		}
	}

	action := "DO UPDATE"
	if len(policy.UpdateColumns) == 0 {
		action = "DO NOTHING"
	}
	conflict := fmt.Sprintf("CONFLICT (%s) %s", strings.Join(policy.KeyColumns, ", "), action)

	written := 0
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for start := 0; start < len(rows); start += upsertChunk {
			chunk := rows[start:min(start+upsertChunk, len(rows))]

			q := tx.NewInsert().Model(&chunk).On(conflict).Returning("NULL")
			for _, col := range policy.UpdateColumns {
				q = q.Set(fmt.Sprintf("%s = EXCLUDED.%s", col, col))
			}

			res, err := q.Exec(ctx)
			if err != nil {
				return fmt.Errorf("upsert readings: %w", err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return err
			}
			written += int(n)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return written, nil
}

// ReadingsByStation returns every reading of a station in ascending time.
func (s *Store) ReadingsByStation(ctx context.Context, stationID int64) ([]models.Reading, error) {
	var readings []models.Reading
	err := s.db.NewSelect().
		Model(&readings).
		Where("station_id = ?", stationID).
		Order("ts ASC", "record_id ASC").
		Scan(ctx)
	return readings, err
}

// LookupFile returns nil, nil when name was never recorded.
func (s *Store) LookupFile(ctx context.Context, name string) (*models.IngestedFile, error) {
	f := new(models.IngestedFile)
	err := s.db.NewSelect().Model(f).Where("name = ?", name).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}

// RecordFile inserts or refreshes the ledger row for f.Name.
func (s *Store) RecordFile(ctx context.Context, f models.IngestedFile) error {
	if f.IngestedAt.IsZero() {
		f.IngestedAt = time.Now().UTC()
	}
	_, err := s.db.NewInsert().
		Model(&f).
		On("CONFLICT (name) DO UPDATE").
		Set("size = EXCLUDED.size").
		Set("modified_at = EXCLUDED.modified_at").
		Set("records = EXCLUDED.records").
		Set("ingested_at = EXCLUDED.ingested_at").
		Exec(ctx)
	return err
}
