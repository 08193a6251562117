package pipeline

import (
	"context"

	"github.com/hidrolab/telemetria/services/watcher/internal/models"
)

// ReadingStore persists readings with insert-or-update semantics on the
// natural key. One call is one atomic batch.
type ReadingStore interface {
	UpsertBatch(ctx context.Context, readings []models.Reading, policy models.ConflictPolicy) (int, error)
}

// DefaultPolicy keys on (station, timestamp, record id) and refreshes only the
// fields loggers correct on retransmission.
func DefaultPolicy() models.ConflictPolicy {
	return models.ConflictPolicy{
		KeyColumns: []string{
			models.ColumnStationID,
			models.ColumnTimestamp,
			models.FieldRecordID.String(),
		},
		UpdateColumns: []string{
			models.FieldBatteryVoltage.String(),
			models.FieldDissolvedOxygen.String(),
			models.FieldWaterTemp.String(),
			models.FieldPH.String(),
			models.FieldConductivity.String(),
		},
	}
}

// Committer flushes one file's readings into the store.
type Committer struct {
	store  ReadingStore
	policy models.ConflictPolicy
}

// NewCommitter returns a committer using DefaultPolicy.
func NewCommitter(store ReadingStore) *Committer {
	return &Committer{store: store, policy: DefaultPolicy()}
}

// Commit deduplicates readings by natural key (last occurrence wins, first
// position kept) and upserts them in one batch. An empty list performs no
// store operation and returns 0.
func (c *Committer) Commit(ctx context.Context, readings []models.Reading) (int, error) {
	batch := Dedupe(readings)
	if len(batch) == 0 {
		return 0, nil
	}
	return c.store.UpsertBatch(ctx, batch, c.policy)
}

// Dedupe collapses readings sharing a natural key.
func Dedupe(readings []models.Reading) []models.Reading {
	if len(readings) == 0 {
		return nil
	}
	pos := make(map[models.NaturalKey]int, len(readings))
	out := make([]models.Reading, 0, len(readings))
	for _, r := range readings {
		key := r.Key()
		if i, ok := pos[key]; ok {
			out[i] = r
			continue
		}
		pos[key] = len(out)
		out = append(out, r)
	}
	return out
}
