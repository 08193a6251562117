package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := FromEnv(env(map[string]string{"DATABASE_URL": "postgres://localhost/telemetria"}))
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.ListenAddr())
	assert.Equal(t, 200, cfg.DefaultLimit)
	assert.Equal(t, 7, cfg.DefaultDays)
	assert.Empty(t, cfg.BearerToken)
}

func TestFromEnvPortPrecedence(t *testing.T) {
	cfg, err := FromEnv(env(map[string]string{
		"DATABASE_URL": "postgres://localhost/telemetria",
		"PORT":         "9000",
		"API_PORT":     "9100",
	}))
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Port)
}

func TestFromEnvInvalid(t *testing.T) {
	_, err := FromEnv(env(map[string]string{}))
	assert.Error(t, err)

	for _, key := range []string{"PORT", "API_DEFAULT_LIMIT", "API_DEFAULT_DAYS"} {
		_, err := FromEnv(env(map[string]string{"DATABASE_URL": "x", key: "-3"}))
		assert.Error(t, err, key)
	}
}

func TestFromEnvFallsBackToAPIPort(t *testing.T) {
	cfg, err := FromEnv(env(map[string]string{"DATABASE_URL": "x", "API_PORT": "9100"}))
	require.NoError(t, err)
	assert.Equal(t, ":9100", cfg.ListenAddr())
}
