package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hidrolab/telemetria/services/watcher/internal/ftpsource"
	"github.com/hidrolab/telemetria/services/watcher/internal/litestore"
	"github.com/hidrolab/telemetria/services/watcher/internal/models"
)

const sampleFile = "\"TIMESTAMP\",\"RECORD\",\"BattV_avg\",\"PTemp_C_avg\",\"COxigeno_dis_avg\",\"pH_avg\"\r\n" +
	"\"TS\",\"RN\",\"Volts\",\"Deg C\",\"mg/L\",\"pH\"\r\n" +
	"\"2025-12-26 10:00:00\",1,12.6,24.1,7.10,8.05\r\n" +
	"\"2025-12-26 10:10:00\",2,12.6,24.3,7.05,8.04\r\n" +
	"\"2025-12-26 10:20:00\",3,12.5,24.6,6.98,8.02\r\n"

type fakeSource struct {
	files      []models.RemoteFile
	payloads   map[string][]byte
	fetchErrs  map[string]error
	listErr    error
	fetched    []string
	closeCalls int
}

func (f *fakeSource) List(context.Context) ([]models.RemoteFile, error) {
	return f.files, f.listErr
}

func (f *fakeSource) Fetch(_ context.Context, name string) ([]byte, error) {
	f.fetched = append(f.fetched, name)
	if err := f.fetchErrs[name]; err != nil {
		return nil, err
	}
	return f.payloads[name], nil
}

func (f *fakeSource) Close() error {
	f.closeCalls++
	return nil
}

func (f *fakeSource) add(name, body string) {
	if f.payloads == nil {
		f.payloads = map[string][]byte{}
	}
	f.payloads[name] = []byte(body)
	f.files = append(f.files, models.RemoteFile{
		Name:    name,
		Size:    uint64(len(body)),
		ModTime: time.Date(2025, 12, 26, 12, 0, 0, 0, time.UTC),
	})
}

func dialer(src *fakeSource) Dialer {
	return func(context.Context) (Source, error) { return src, nil }
}

type countingStore struct {
	ReadingStore
	calls int
}

func (c *countingStore) UpsertBatch(ctx context.Context, readings []models.Reading, policy models.ConflictPolicy) (int, error) {
	c.calls++
	return c.ReadingStore.UpsertBatch(ctx, readings, policy)
}

func newStore(t *testing.T) (*litestore.Store, *models.Station) {
	t.Helper()
	ctx := context.Background()
	s, err := litestore.Open(filepath.Join(t.TempDir(), "pipeline.db"), false)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(ctx, zap.NewNop()))

	st := &models.Station{Code: "21738", Name: "Laguna FAO", MinOxygen: 4, MinBattery: 11.5}
	require.NoError(t, s.CreateStation(ctx, st))
	return s, st
}

func newPipeline(src Dialer, store *litestore.Store, opts Options) *Pipeline {
	return New(src, store, store, store, opts, zap.NewNop())
}

func TestRunCommitsAndIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store, st := newStore(t)
	src := &fakeSource{}
	src.add("H_FAO_21738.dat", sampleFile)

	p := newPipeline(dialer(src), store, Options{})

	summary, err := p.Run(ctx)
	require.NoError(t, err)
	require.Len(t, summary.Files, 1)
	assert.Equal(t, StatusCommitted, summary.Files[0].Status)
	assert.Equal(t, 3, summary.Files[0].Written)
	assert.Equal(t, 1, summary.Files[0].Ignored)
	assert.Equal(t, 1, summary.Processed())
	assert.Equal(t, 1, src.closeCalls)

	summary, err = p.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, StatusCommitted, summary.Files[0].Status)

	got, err := store.ReadingsByStation(ctx, st.ID)
	require.NoError(t, err)
	require.Len(t, got, 3)
	require.NotNil(t, got[0].PH)
	assert.Equal(t, 8.05, *got[0].PH)
	assert.Equal(t, 1, got[0].RecordID)
}

func TestReingestUpdatesAllowlistedFields(t *testing.T) {
	ctx := context.Background()
	store, st := newStore(t)
	src := &fakeSource{}
	src.add("H_FAO_21738.dat", sampleFile)
	p := newPipeline(dialer(src), store, Options{})

	_, err := p.Run(ctx)
	require.NoError(t, err)

	src.payloads["H_FAO_21738.dat"] = []byte("\"TIMESTAMP\",\"RECORD\",\"BattV_avg\",\"PTemp_C_avg\",\"COxigeno_dis_avg\",\"pH_avg\"\r\n" +
		"\"2025-12-26 10:00:00\",1,12.6,99.9,6.50,8.05\r\n")
	_, err = p.Run(ctx)
	require.NoError(t, err)

	got, err := store.ReadingsByStation(ctx, st.ID)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.True(t, time.Date(2025, 12, 26, 10, 0, 0, 0, time.UTC).Equal(got[0].Timestamp))
	assert.Equal(t, 1, got[0].RecordID)
	assert.Equal(t, 6.50, *got[0].DissolvedOxygen)
	assert.Equal(t, 24.1, *got[0].PanelTemp)
}

func TestRunIsolatesPerFileFailures(t *testing.T) {
	ctx := context.Background()
	store, st := newStore(t)
	src := &fakeSource{fetchErrs: map[string]error{"H_FAO_21738.dat": errors.New("550 transfer aborted")}}
	src.add("H_FAO_21738.dat", sampleFile)
	src.add("H_FAO_99999.dat", sampleFile)
	src.add("H_.dat", sampleFile)

	counting := &countingStore{ReadingStore: store}
	p := New(dialer(src), store, counting, store, Options{}, zap.NewNop())

	summary, err := p.Run(ctx)
	require.NoError(t, err)
	require.Len(t, summary.Files, 3)

	byName := map[string]FileResult{}
	for _, f := range summary.Files {
		byName[f.Name] = f
	}

	fetchFailed := byName["H_FAO_21738.dat"]
	assert.Equal(t, StatusFailed, fetchFailed.Status)
	require.NotNil(t, fetchFailed.Err)
	assert.Equal(t, KindFetch, fetchFailed.Err.Kind)

	unknown := byName["H_FAO_99999.dat"]
	assert.Equal(t, StatusUnresolvable, unknown.Status)
	assert.ErrorIs(t, unknown.Err, models.ErrStationNotFound)
	assert.Equal(t, "99999", unknown.StationCode)

	noCode := byName["H_.dat"]
	assert.Equal(t, StatusUnresolvable, noCode.Status)
	assert.Equal(t, KindUnresolvable, noCode.Err.Kind)

	assert.Equal(t, 0, counting.calls)
	assert.Equal(t, 1, summary.Failed())
	assert.Equal(t, 2, summary.Skipped())
	assert.NotContains(t, src.fetched, "H_FAO_99999.dat")

	got, err := store.ReadingsByStation(ctx, st.ID)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRunEmptyFiles(t *testing.T) {
	ctx := context.Background()
	store, _ := newStore(t)
	src := &fakeSource{}
	src.add("H_FAO_21738.dat", "")

	counting := &countingStore{ReadingStore: store}
	p := New(dialer(src), store, counting, store, Options{}, zap.NewNop())

	summary, err := p.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, StatusEmpty, summary.Files[0].Status)
	assert.Equal(t, KindEmpty, summary.Files[0].Err.Kind)

	src.payloads["H_FAO_21738.dat"] = []byte("\"TIMESTAMP\",\"RECORD\"\r\n\"2025-12-26 xx\",1\r\n")
	summary, err = p.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, StatusEmpty, summary.Files[0].Status)
	assert.Equal(t, 1, summary.Files[0].Rejected)
	assert.Equal(t, 0, counting.calls)
}

func TestRunDryRunWritesNothing(t *testing.T) {
	ctx := context.Background()
	store, st := newStore(t)
	src := &fakeSource{}
	src.add("H_FAO_21738.dat", sampleFile)

	p := newPipeline(dialer(src), store, Options{DryRun: true})
	summary, err := p.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, StatusDryRun, summary.Files[0].Status)
	assert.Equal(t, 3, summary.Files[0].Parsed)
	assert.Zero(t, summary.RecordsWritten())

	got, err := store.ReadingsByStation(ctx, st.ID)
	require.NoError(t, err)
	assert.Empty(t, got)

	f, err := store.LookupFile(ctx, "H_FAO_21738.dat")
	require.NoError(t, err)
	assert.Nil(t, f)
}

func TestRunSkipsUnchangedFiles(t *testing.T) {
	ctx := context.Background()
	store, _ := newStore(t)
	src := &fakeSource{}
	src.add("H_FAO_21738.dat", sampleFile)

	p := newPipeline(dialer(src), store, Options{SkipUnchanged: true})
	_, err := p.Run(ctx)
	require.NoError(t, err)
	require.Len(t, src.fetched, 1)

	summary, err := p.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, StatusUnchanged, summary.Files[0].Status)
	assert.Len(t, src.fetched, 1)

	src.files[0].Size++
	summary, err = p.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, StatusCommitted, summary.Files[0].Status)
	assert.Len(t, src.fetched, 2)
}

func TestRunAuthFailureIsFatalAndNotRetried(t *testing.T) {
	store, _ := newStore(t)
	attempts := 0
	dial := func(context.Context) (Source, error) {
		attempts++
		return nil, ftpsource.ErrAuth
	}

	p := newPipeline(dial, store, Options{Retry: RetryPolicy{MaxRetries: 3, Initial: time.Millisecond, Max: time.Millisecond}})
	summary, err := p.Run(context.Background())
	require.Error(t, err)
	assert.True(t, IsFatal(err))
	assert.ErrorIs(t, err, ftpsource.ErrAuth)
	assert.Equal(t, 1, attempts)
	assert.Empty(t, summary.Files)
}

func TestRunRetriesTransientDialErrors(t *testing.T) {
	store, _ := newStore(t)
	src := &fakeSource{}
	src.add("H_FAO_21738.dat", sampleFile)

	attempts := 0
	dial := func(context.Context) (Source, error) {
		attempts++
		if attempts < 3 {
			return nil, errors.New("connection refused")
		}
		return src, nil
	}

	p := newPipeline(dial, store, Options{Retry: RetryPolicy{MaxRetries: 3, Initial: time.Millisecond, Max: 2 * time.Millisecond}})
	summary, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, 1, summary.Processed())
}

func TestRunGivesUpAfterMaxRetries(t *testing.T) {
	store, _ := newStore(t)
	attempts := 0
	dial := func(context.Context) (Source, error) {
		attempts++
		return nil, errors.New("connection refused")
	}

	p := newPipeline(dial, store, Options{Retry: RetryPolicy{MaxRetries: 2, Initial: time.Millisecond, Max: time.Millisecond}})
	_, err := p.Run(context.Background())
	require.Error(t, err)
	assert.True(t, IsFatal(err))
	assert.Equal(t, 3, attempts)
}

func TestRunListFailureIsFatal(t *testing.T) {
	store, _ := newStore(t)
	src := &fakeSource{listErr: errors.New("425 can't open data connection")}

	p := newPipeline(dialer(src), store, Options{})
	_, err := p.Run(context.Background())
	require.Error(t, err)
	assert.True(t, IsFatal(err))
	assert.Equal(t, 1, src.closeCalls)
}

func TestCommitEmptyDoesNotTouchStore(t *testing.T) {
	counting := &countingStore{}
	n, err := NewCommitter(counting).Commit(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, counting.calls)
}

func TestDedupeLastOccurrenceWins(t *testing.T) {
	ts := time.Date(2025, 12, 26, 10, 0, 0, 0, time.UTC)
	a, b := 7.0, 6.0
	out := Dedupe([]models.Reading{
		{StationID: 1, Timestamp: ts, RecordID: 1, DissolvedOxygen: &a},
		{StationID: 1, Timestamp: ts, RecordID: 2},
		{StationID: 1, Timestamp: ts.In(time.FixedZone("COT", -5*3600)), RecordID: 1, DissolvedOxygen: &b},
	})
	require.Len(t, out, 2)
	assert.Equal(t, 1, out[0].RecordID)
	assert.Equal(t, 6.0, *out[0].DissolvedOxygen)
	assert.Equal(t, 2, out[1].RecordID)
}
