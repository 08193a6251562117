package litestore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hidrolab/telemetria/services/watcher/internal/models"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "telemetria.db"), false)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background(), zap.NewNop()))
	return s
}

func fptr(v float64) *float64 { return &v }

func testPolicy() models.ConflictPolicy {
	return models.ConflictPolicy{
		KeyColumns:    []string{"station_id", "ts", "record_id"},
		UpdateColumns: []string{"bateria_voltaje", "oxigeno_disuelto", "temperatura_agua", "ph", "conductividad"},
	}
}

func TestMigrateIsRepeatable(t *testing.T) {
	s := openTestStore(t)
	assert.NoError(t, s.Migrate(context.Background(), zap.NewNop()))
}

func TestStations(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	_, err := s.FindByCode(ctx, "21738")
	assert.ErrorIs(t, err, models.ErrStationNotFound)

	require.NoError(t, s.CreateStation(ctx, &models.Station{Code: "21738", Name: "Laguna FAO", MinOxygen: 4, MinBattery: 11.5}))
	require.NoError(t, s.CreateStation(ctx, &models.Station{Code: "10020", Name: "Represa Norte", MinOxygen: 4, MinBattery: 11.5}))

	st, err := s.FindByCode(ctx, "21738")
	require.NoError(t, err)
	assert.NotZero(t, st.ID)
	assert.Equal(t, "Laguna FAO", st.Name)

	list, err := s.ListStations(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "10020", list[0].Code)

	assert.Error(t, s.CreateStation(ctx, &models.Station{Code: "21738", Name: "dup"}))
}

func TestUpsertBatchUpdatesAllowlistOnly(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	st := &models.Station{Code: "21738", Name: "Laguna FAO", MinOxygen: 4, MinBattery: 11.5}
	require.NoError(t, s.CreateStation(ctx, st))

	ts := time.Date(2025, 12, 26, 10, 0, 0, 0, time.UTC)
	batch := []models.Reading{
		{StationID: st.ID, Timestamp: ts, RecordID: 1, DissolvedOxygen: fptr(7.10), PanelTemp: fptr(24.0)},
		{StationID: st.ID, Timestamp: ts.Add(10 * time.Minute), RecordID: 2, DissolvedOxygen: fptr(7.05)},
	}
	n, err := s.UpsertBatch(ctx, batch, testPolicy())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	batch[0].DissolvedOxygen = fptr(6.80)
	batch[0].PanelTemp = fptr(30.0)
	n, err = s.UpsertBatch(ctx, batch[:1], testPolicy())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := s.ReadingsByStation(ctx, st.ID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, ts.Equal(got[0].Timestamp))
	assert.Equal(t, 1, got[0].RecordID)
	require.NotNil(t, got[0].DissolvedOxygen)
	assert.Equal(t, 6.80, *got[0].DissolvedOxygen)
	require.NotNil(t, got[0].PanelTemp)
	assert.Equal(t, 24.0, *got[0].PanelTemp)
	assert.Nil(t, got[1].PanelTemp)
}

func TestUpsertBatchRejectsUnknownColumns(t *testing.T) {
	s := openTestStore(t)
	policy := testPolicy()
	policy.UpdateColumns = append(policy.UpdateColumns, "ph; DROP TABLE readings")

	_, err := s.UpsertBatch(context.Background(), []models.Reading{{StationID: 1}}, policy)
	assert.Error(t, err)
}

func TestUpsertBatchIsAtomic(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	st := &models.Station{Code: "21738", Name: "Laguna FAO"}
	require.NoError(t, s.CreateStation(ctx, st))

	ts := time.Date(2025, 12, 26, 10, 0, 0, 0, time.UTC)
	rows := make([]models.Reading, upsertChunk+1)
	for i := range rows {
		rows[i] = models.Reading{StationID: st.ID, Timestamp: ts.Add(time.Duration(i) * time.Minute), RecordID: i}
	}
	// Unknown station violates the foreign key in the second chunk.
	rows[upsertChunk].StationID = st.ID + 100

	_, err := s.UpsertBatch(ctx, rows, testPolicy())
	require.Error(t, err)

	got, err := s.ReadingsByStation(ctx, st.ID)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestLedger(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	f, err := s.LookupFile(ctx, "H_FAO_21738.dat")
	require.NoError(t, err)
	assert.Nil(t, f)

	mod := time.Date(2025, 12, 26, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.RecordFile(ctx, models.IngestedFile{Name: "H_FAO_21738.dat", Size: 10, ModifiedAt: mod, Records: 3}))
	require.NoError(t, s.RecordFile(ctx, models.IngestedFile{Name: "H_FAO_21738.dat", Size: 20, ModifiedAt: mod, Records: 5}))

	f, err = s.LookupFile(ctx, "H_FAO_21738.dat")
	require.NoError(t, err)
	require.NotNil(t, f)
	assert.Equal(t, int64(20), f.Size)
	assert.Equal(t, 5, f.Records)
	assert.True(t, f.Matches(models.RemoteFile{Name: "H_FAO_21738.dat", Size: 20, ModTime: mod}))
}
