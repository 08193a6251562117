package db

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildSeries(t *testing.T) {
	ts := time.Date(2025, 12, 26, 10, 0, 0, 0, time.UTC)
	o1, o2, ph := 7.1, 6.9, 8.05
	series := BuildSeries([]Reading{
		{Timestamp: ts, DissolvedOxygen: &o1, PH: &ph},
		{Timestamp: ts.Add(10 * time.Minute), DissolvedOxygen: &o2},
	})

	require.Len(t, series, len(SeriesNames))
	assert.Equal(t, []Point{
		{float64(ts.UnixMilli()), 7.1},
		{float64(ts.Add(10 * time.Minute).UnixMilli()), 6.9},
	}, series["oxigeno_mg"])
	assert.Len(t, series["ph"], 1)
	assert.Empty(t, series["orp"])
	assert.NotNil(t, series["orp"])
}
