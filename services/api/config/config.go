package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds environment-driven settings for the REST API.
type Config struct {
	DatabaseURL  string
	Port         int
	BearerToken  string
	DefaultLimit int
	DefaultDays  int
	LogLevel     string
	LogFormat    string
}

// Load reads configuration from environment variables (optionally .env).
func Load() (Config, error) {
	_ = godotenv.Load() // ignore missing file
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function.
func FromEnv(getenv func(string) string) (Config, error) {
	cfg := Config{
		Port:         8080,
		DefaultLimit: 200,
		DefaultDays:  7,
		LogLevel:     "info",
		LogFormat:    "json",
	}

	cfg.DatabaseURL = getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return cfg, errors.New("DATABASE_URL is required")
	}

	var err error
	if cfg.Port, err = positiveInt(getenv, cfg.Port, "PORT", "API_PORT"); err != nil {
		return cfg, err
	}
	if cfg.DefaultLimit, err = positiveInt(getenv, cfg.DefaultLimit, "API_DEFAULT_LIMIT"); err != nil {
		return cfg, err
	}
	if cfg.DefaultDays, err = positiveInt(getenv, cfg.DefaultDays, "API_DEFAULT_DAYS"); err != nil {
		return cfg, err
	}

	cfg.BearerToken = getenv("API_BEARER_TOKEN")

	if v := getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	if v := getenv("LOG_FORMAT"); v != "" {
		cfg.LogFormat = strings.ToLower(v)
	}

	return cfg, nil
}

// ListenAddr returns the host:port string for the HTTP server.
func (c Config) ListenAddr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// positiveInt reads the first non-empty key, in order. Missing keys keep def.
func positiveInt(getenv func(string) string, def int, keys ...string) (int, error) {
	for _, key := range keys {
		raw := strings.TrimSpace(getenv(key))
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return def, fmt.Errorf("invalid %s: %q", key, raw)
		}
		return n, nil
	}
	return def, nil
}
