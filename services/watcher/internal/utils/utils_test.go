package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStationCodeFromFilename(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		want     string
		ok       bool
	}{
		{name: "typical", filename: "H_Gabinete_FAO_21738.dat", want: "21738", ok: true},
		{name: "two segments", filename: "H_21738.dat", want: "21738", ok: true},
		{name: "no underscore", filename: "datos.dat", ok: false},
		{name: "empty trailing token", filename: "H_FAO_.dat", ok: false},
		{name: "blank trailing token", filename: "H_FAO_ .dat", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := StationCodeFromFilename(tt.filename)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeLatin1(t *testing.T) {
	// 0xB0 is the degree sign, 0xF1 is ñ.
	got, err := DecodeLatin1([]byte{'T', 0xB0, 'C', ' ', 'a', 0xF1, 'o'})
	require.NoError(t, err)
	assert.Equal(t, "T°C año", got)
}

func TestSplitLines(t *testing.T) {
	assert.Nil(t, SplitLines(""))
	assert.Equal(t, []string{"a", "b", "c", "", "d"}, SplitLines("a\r\nb\rc\n\nd\n"))
	assert.Equal(t, []string{"only"}, SplitLines("only"))
}

func TestValuePtrString(t *testing.T) {
	v := 12.5
	assert.Equal(t, "null", ValuePtrString(nil))
	assert.Equal(t, "12.500", ValuePtrString(&v))

	ts := time.Date(2025, 12, 26, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "null", TimePtrString(nil))
	assert.Equal(t, "2025-12-26T12:00:00Z", TimePtrString(&ts))
}
