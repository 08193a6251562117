package db

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store wraps database access helpers.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a Store backed by a pgx pool.
func New(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &Store{pool: pool}, nil
}

// Close releases the pool resources.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Station represents a registered station.
type Station struct {
	ID         int64     `json:"id"`
	Code       string    `json:"code"`
	Name       string    `json:"name"`
	ProjectID  *int64    `json:"project_id,omitempty"`
	MinOxygen  float64   `json:"min_oxygen"`
	MinBattery float64   `json:"min_battery"`
	Latitude   *float64  `json:"latitude,omitempty"`
	Longitude  *float64  `json:"longitude,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

const stationSelect = `
    SELECT id, code, name, project_id, min_oxygen, min_battery, latitude, longitude, created_at
    FROM stations
`

func scanStation(row pgx.Row, st *Station) error {
	return row.Scan(
		&st.ID,
		&st.Code,
		&st.Name,
		&st.ProjectID,
		&st.MinOxygen,
		&st.MinBattery,
		&st.Latitude,
		&st.Longitude,
		&st.CreatedAt,
	)
}

// ListStations returns all stations ordered by code.
func (s *Store) ListStations(ctx context.Context) ([]Station, error) {
	rows, err := s.pool.Query(ctx, stationSelect+" ORDER BY code")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stations := make([]Station, 0)
	for rows.Next() {
		var st Station
		if err := scanStation(rows, &st); err != nil {
			return nil, err
		}
		stations = append(stations, st)
	}
	return stations, rows.Err()
}

// GetStation returns nil, nil when no station has the code.
func (s *Store) GetStation(ctx context.Context, code string) (*Station, error) {
	var st Station
	err := scanStation(s.pool.QueryRow(ctx, stationSelect+" WHERE code = $1", code), &st)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// Reading is one row of the readings table as served to charts.
type Reading struct {
	StationID       int64      `json:"station_id"`
	Timestamp       time.Time  `json:"ts"`
	RecordID        int        `json:"record_id"`
	BatteryVoltage  *float64   `json:"bateria_voltaje"`
	PanelTemp       *float64   `json:"ptemp_c"`
	DissolvedOxygen *float64   `json:"oxigeno_disuelto"`
	OxygenMax       *float64   `json:"oxigeno_max"`
	OxygenMaxAt     *time.Time `json:"oxigeno_tmax"`
	OxygenPercent   *float64   `json:"porcentaje_oxigeno"`
	OxygenPressure  *float64   `json:"presion_oxigeno"`
	WaterTemp       *float64   `json:"temperatura_agua"`
	Conductivity    *float64   `json:"conductividad"`
	Salinity        *float64   `json:"salinidad"`
	SalinityMax     *float64   `json:"salinidad_max"`
	SalinityMaxAt   *time.Time `json:"salinidad_tmax"`
	DissolvedSolids *float64   `json:"solidos_disueltos"`
	Density         *float64   `json:"densidad"`
	PH              *float64   `json:"ph"`
	PHMax           *float64   `json:"ph_max"`
	PHMaxAt         *time.Time `json:"ph_tmax"`
	ORP             *float64   `json:"orp"`
}

func (r *Reading) scanTargets() []any {
	return []any{
		&r.StationID, &r.Timestamp, &r.RecordID,
		&r.BatteryVoltage, &r.PanelTemp,
		&r.DissolvedOxygen, &r.OxygenMax, &r.OxygenMaxAt, &r.OxygenPercent, &r.OxygenPressure,
		&r.WaterTemp, &r.Conductivity,
		&r.Salinity, &r.SalinityMax, &r.SalinityMaxAt,
		&r.DissolvedSolids, &r.Density,
		&r.PH, &r.PHMax, &r.PHMaxAt,
		&r.ORP,
	}
}

const readingColumns = `station_id, ts, record_id, bateria_voltaje, ptemp_c,
    oxigeno_disuelto, oxigeno_max, oxigeno_tmax, porcentaje_oxigeno, presion_oxigeno,
    temperatura_agua, conductividad, salinidad, salinidad_max, salinidad_tmax,
    solidos_disueltos, densidad, ph, ph_max, ph_tmax, orp`

// ReadingQuery holds filters for retrieving readings.
type ReadingQuery struct {
	StationID int64
	Limit     int
	Since     *time.Time
	Until     *time.Time
	// Ascending orders oldest first; the default is newest first.
	Ascending bool
}

// FetchReadings returns readings of one station matching q.
func (s *Store) FetchReadings(ctx context.Context, q ReadingQuery) ([]Reading, error) {
	args := []any{q.StationID}
	clause := ""
	argPos := 2
	if q.Since != nil {
		clause += " AND ts >= $" + strconv.Itoa(argPos)
		args = append(args, *q.Since)
		argPos++
	}
	if q.Until != nil {
		clause += " AND ts <= $" + strconv.Itoa(argPos)
		args = append(args, *q.Until)
		argPos++
	}
	order := " ORDER BY ts DESC, record_id DESC"
	if q.Ascending {
		order = " ORDER BY ts ASC, record_id ASC"
	}
	limit := ""
	if q.Limit > 0 {
		limit = " LIMIT $" + strconv.Itoa(argPos)
		args = append(args, q.Limit)
	}

	sql := "SELECT " + readingColumns + " FROM readings WHERE station_id = $1" + clause + order + limit
	return s.queryReadings(ctx, sql, args...)
}

const latestReadingsSQL = `
    SELECT DISTINCT ON (station_id) ` + readingColumns + `
    FROM readings
    ORDER BY station_id, ts DESC, record_id DESC
`

// LatestReadings returns the newest reading of every station.
func (s *Store) LatestReadings(ctx context.Context) ([]Reading, error) {
	return s.queryReadings(ctx, latestReadingsSQL)
}

func (s *Store) queryReadings(ctx context.Context, sql string, args ...any) ([]Reading, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	readings := make([]Reading, 0)
	for rows.Next() {
		var r Reading
		if err := rows.Scan(r.scanTargets()...); err != nil {
			return nil, err
		}
		readings = append(readings, r)
	}
	return readings, rows.Err()
}
