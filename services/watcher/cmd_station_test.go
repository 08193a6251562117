package main

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStationFromFlags(t *testing.T) {
	cmd := &cobra.Command{}
	addStationFlags(cmd)
	require.NoError(t, cmd.Flags().Parse([]string{"--code", "21738", "--name", "Laguna FAO", "--lat", "6.25"}))

	st, err := stationFromFlags(cmd)
	require.NoError(t, err)
	assert.Equal(t, "21738", st.Code)
	assert.Equal(t, 4.0, st.MinOxygen)
	assert.Equal(t, 11.5, st.MinBattery)
	require.NotNil(t, st.Latitude)
	assert.Equal(t, 6.25, *st.Latitude)
	assert.Nil(t, st.Longitude)
	assert.Nil(t, st.ProjectID)
}

func TestStationFromFlagsRequiresCode(t *testing.T) {
	cmd := &cobra.Command{}
	addStationFlags(cmd)
	require.NoError(t, cmd.Flags().Parse([]string{"--name", "Laguna FAO"}))

	_, err := stationFromFlags(cmd)
	assert.Error(t, err)
}
