// Package db is the Postgres backend of the watcher.
package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hidrolab/telemetria/services/watcher/internal/models"
)

// Store implements the station directory, reading store and ledger on a
// pgx pool.
type Store struct {
	pool *pgxpool.Pool
}

// Connect opens and pings a pool.
func Connect(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if cfg.MaxConns == 0 || cfg.MaxConns > 8 {
		cfg.MaxConns = 8
	}
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Close releases the pool.
func (s *Store) Close() {
	s.pool.Close()
}

const stationColumns = `id, code, name, project_id, min_oxygen, min_battery, latitude, longitude, created_at`

func scanStation(row pgx.Row) (*models.Station, error) {
	var st models.Station
	err := row.Scan(&st.ID, &st.Code, &st.Name, &st.ProjectID, &st.MinOxygen, &st.MinBattery, &st.Latitude, &st.Longitude, &st.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// FindByCode returns models.ErrStationNotFound for unknown codes.
func (s *Store) FindByCode(ctx context.Context, code string) (*models.Station, error) {
	st, err := scanStation(s.pool.QueryRow(ctx, `SELECT `+stationColumns+` FROM stations WHERE code = $1`, code))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrStationNotFound
	}
	return st, err
}

// CreateStation inserts st and fills in its ID and creation time.
func (s *Store) CreateStation(ctx context.Context, st *models.Station) error {
	return s.pool.QueryRow(ctx, `
INSERT INTO stations (code, name, project_id, min_oxygen, min_battery, latitude, longitude)
VALUES ($1,$2,$3,$4,$5,$6,$7)
RETURNING id, created_at`,
		st.Code, st.Name, st.ProjectID, st.MinOxygen, st.MinBattery, st.Latitude, st.Longitude,
	).Scan(&st.ID, &st.CreatedAt)
}

// ListStations returns all stations ordered by code.
func (s *Store) ListStations(ctx context.Context) ([]models.Station, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+stationColumns+` FROM stations ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Station
	for rows.Next() {
		st, err := scanStation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *st)
	}
	return out, rows.Err()
}

// upsertSQL renders the insert statement for policy. Columns must already be
// validated.
func upsertSQL(policy models.ConflictPolicy) string {
	cols := models.ReadingColumns()
	placeholders := make([]string, len(cols))
	for i := range cols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO readings (%s)\nVALUES (%s)\nON CONFLICT (%s) ",
		strings.Join(cols, ", "), strings.Join(placeholders, ","), strings.Join(policy.KeyColumns, ", "))
	if len(policy.UpdateColumns) == 0 {
		b.WriteString("DO NOTHING")
		return b.String()
	}
	b.WriteString("DO UPDATE\nSET ")
	for _, col := range policy.UpdateColumns {
		fmt.Fprintf(&b, "%s = EXCLUDED.%s,\n    ", col, col)
	}
	b.WriteString("updated_at = NOW()")
	return b.String()
}

// UpsertBatch writes readings in one transaction and returns the number of
// rows inserted or updated.
func (s *Store) UpsertBatch(ctx context.Context, readings []models.Reading, policy models.ConflictPolicy) (int, error) {
	if err := policy.Validate(); err != nil {
		return 0, err
	}
	if len(readings) == 0 {
		return 0, nil
	}
	query := upsertSQL(policy)

	written := 0
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for i := range readings {
			batch.Queue(query, readings[i].ColumnValues()...)
		}

		res := tx.SendBatch(ctx, batch)
		for range readings {
			tag, err := res.Exec()
			if err != nil {
				res.Close()
				return fmt.Errorf("upsert readings: %w", err)
			}
			written += int(tag.RowsAffected())
		}
		return res.Close()
	})
	if err != nil {
		return 0, err
	}
	return written, nil
}

// ReadingsByStation returns every reading of a station in ascending time.
func (s *Store) ReadingsByStation(ctx context.Context, stationID int64) ([]models.Reading, error) {
	rows, err := s.pool.Query(ctx, `
SELECT id, `+strings.Join(models.ReadingColumns(), ", ")+`, ingested_at
FROM readings
WHERE station_id = $1
ORDER BY ts, record_id`, stationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Reading
	for rows.Next() {
		var r models.Reading
		dest := append([]any{&r.ID}, r.ColumnPointers()...)
		dest = append(dest, &r.IngestedAt)
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// LookupFile returns nil, nil when name was never recorded.
func (s *Store) LookupFile(ctx context.Context, name string) (*models.IngestedFile, error) {
	var f models.IngestedFile
	var mod *time.Time
	err := s.pool.QueryRow(ctx, `SELECT name, size, modified_at, records, ingested_at FROM ingested_files WHERE name = $1`, name).
		Scan(&f.Name, &f.Size, &mod, &f.Records, &f.IngestedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if mod != nil {
		f.ModifiedAt = *mod
	}
	return &f, nil
}

// RecordFile inserts or refreshes the ledger row for f.Name.
func (s *Store) RecordFile(ctx context.Context, f models.IngestedFile) error {
	var mod *time.Time
	if !f.ModifiedAt.IsZero() {
		mod = &f.ModifiedAt
	}
	_, err := s.pool.Exec(ctx, `
INSERT INTO ingested_files (name, size, modified_at, records, ingested_at)
VALUES ($1,$2,$3,$4,NOW())
ON CONFLICT (name) DO UPDATE
SET size = EXCLUDED.size,
    modified_at = EXCLUDED.modified_at,
    records = EXCLUDED.records,
    ingested_at = NOW()`, f.Name, f.Size, mod, f.Records)
	return err
}
