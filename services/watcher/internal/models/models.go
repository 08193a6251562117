package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

// ErrStationNotFound is returned by station directories when no station
// carries the requested external code.
var ErrStationNotFound = errors.New("station not found")

// Station is one physical sensor deployment. Read-only to the pipeline.
type Station struct {
	bun.BaseModel `bun:"table:stations,alias:s"`

	ID         int64     `bun:"id,pk,autoincrement" json:"id"`
	Code       string    `bun:"code,unique,notnull" json:"code"`
	Name       string    `bun:"name,notnull" json:"name"`
	ProjectID  *int64    `bun:"project_id" json:"project_id,omitempty"`
	MinOxygen  float64   `bun:"min_oxygen,notnull,default:4.0" json:"min_oxygen"`
	MinBattery float64   `bun:"min_battery,notnull,default:11.5" json:"min_battery"`
	Latitude   *float64  `bun:"latitude" json:"latitude,omitempty"`
	Longitude  *float64  `bun:"longitude" json:"longitude,omitempty"`
	CreatedAt  time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
}

// Reading is one timestamped sample from one station. The triple
// (StationID, Timestamp, RecordID) is the natural key.
type Reading struct {
	bun.BaseModel `bun:"table:readings,alias:r"`

	ID        int64     `bun:"id,pk,autoincrement"`
	StationID int64     `bun:"station_id,notnull,unique:readings_natural_key"`
	Timestamp time.Time `bun:"ts,notnull,unique:readings_natural_key"`
	RecordID  int       `bun:"record_id,notnull,unique:readings_natural_key"`

	BatteryVoltage     *float64   `bun:"bateria_voltaje"`
	PanelTemp          *float64   `bun:"ptemp_c"`
	DissolvedOxygen    *float64   `bun:"oxigeno_disuelto"`
	OxygenMax          *float64   `bun:"oxigeno_max"`
	OxygenMaxAt        *time.Time `bun:"oxigeno_tmax"`
	OxygenPercent      *float64   `bun:"porcentaje_oxigeno"`
	OxygenPressure     *float64   `bun:"presion_oxigeno"`
	WaterTemp          *float64   `bun:"temperatura_agua"`
	Conductivity       *float64   `bun:"conductividad"`
	Salinity           *float64   `bun:"salinidad"`
	SalinityMax        *float64   `bun:"salinidad_max"`
	SalinityMaxAt      *time.Time `bun:"salinidad_tmax"`
	DissolvedSolids    *float64   `bun:"solidos_disueltos"`
	Density            *float64   `bun:"densidad"`
	PH                 *float64   `bun:"ph"`
	PHMax              *float64   `bun:"ph_max"`
	PHMaxAt            *time.Time `bun:"ph_tmax"`
	OxidationReduction *float64   `bun:"orp"`

	IngestedAt time.Time `bun:"ingested_at,nullzero,notnull,default:current_timestamp"`
}

// NaturalKey identifies a reading for deduplication.
type NaturalKey struct {
	StationID int64
	Timestamp int64
	RecordID  int
}

// Key returns the natural key of r. Timestamps compare as instants.
func (r *Reading) Key() NaturalKey {
	return NaturalKey{StationID: r.StationID, Timestamp: r.Timestamp.UnixNano(), RecordID: r.RecordID}
}

// RemoteFile describes one entry of the remote directory listing. Size and
// ModTime are zero when the server only supports bare name listings.
type RemoteFile struct {
	Name    string
	Size    uint64
	ModTime time.Time
}

// IngestedFile is the ledger row written after a file has been committed.
type IngestedFile struct {
	bun.BaseModel `bun:"table:ingested_files,alias:f"`

	Name       string    `bun:"name,pk"`
	Size       int64     `bun:"size,notnull"`
	ModifiedAt time.Time `bun:"modified_at"`
	Records    int       `bun:"records,notnull"`
	IngestedAt time.Time `bun:"ingested_at,nullzero,notnull,default:current_timestamp"`
}

// Matches reports whether the ledger row describes the same remote content.
// Listings without size or time information never match.
func (f *IngestedFile) Matches(rf RemoteFile) bool {
	if rf.Size == 0 || rf.ModTime.IsZero() {
		return false
	}
	return f.Name == rf.Name && f.Size == int64(rf.Size) && f.ModifiedAt.Equal(rf.ModTime)
}

// ConflictPolicy describes how a batch upsert resolves natural key conflicts.
type ConflictPolicy struct {
	KeyColumns    []string
	UpdateColumns []string
}

// Validate checks that every column is a known readings column. Column names
// are interpolated into SQL, so stores must call this before building queries.
func (p ConflictPolicy) Validate() error {
	if len(p.KeyColumns) == 0 {
		return errors.New("conflict policy: no key columns")
	}
	for _, col := range append(append([]string(nil), p.KeyColumns...), p.UpdateColumns...) {
		if !IsReadingColumn(col) {
			return fmt.Errorf("conflict policy: unknown column %q", col)
		}
	}
	return nil
}
