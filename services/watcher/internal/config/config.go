package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // INGEST_TIMEZONE must resolve on hosts without zoneinfo

	"github.com/joho/godotenv"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

const (
	defaultFTPPort        = 21
	defaultRemoteDir      = "/"
	defaultConnectTimeout = 10 * time.Second
	defaultConnectRetries = 3
	defaultRetryInitial   = 1 * time.Second
	defaultRetryMax       = 30 * time.Second
	defaultSQLitePath     = "telemetria.db"
	defaultTimezone       = "UTC"
	defaultLogLevel       = "info"
	defaultLogFormat      = "json"
)

// Config holds runtime configuration for the watcher service.
type Config struct {
	FTPHost        string
	FTPPort        int
	FTPUser        string
	FTPPassword    string
	FTPRemoteDir   string
	ConnectTimeout time.Duration
	DisableEPSV    bool
	ConnectRetries int
	RetryInitial   time.Duration
	RetryMax       time.Duration

	StoreDriver string
	DatabaseURL string
	SQLitePath  string
	StoreDebug  bool

	Location        *time.Location
	AliasesFile     string
	SkipUnchanged   bool
	DryRun          bool
	StationDataRoot string

	LogLevel  string
	LogFormat string
}

// Load reads configuration from environment variables (optionally .env).
func Load() (Config, error) {
	_ = godotenv.Load(".env")
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function. The FTP host is only
// required by commands that connect, so it is validated by RequireFTP.
func FromEnv(getenv func(string) string) (Config, error) {
	get := func(key string) string { return strings.TrimSpace(getenv(key)) }

	cfg := Config{
		FTPPort:        defaultFTPPort,
		FTPRemoteDir:   defaultRemoteDir,
		ConnectTimeout: defaultConnectTimeout,
		ConnectRetries: defaultConnectRetries,
		RetryInitial:   defaultRetryInitial,
		RetryMax:       defaultRetryMax,
		StoreDriver:    DriverPostgres,
		SQLitePath:     defaultSQLitePath,
		LogLevel:       defaultLogLevel,
		LogFormat:      defaultLogFormat,
	}

	cfg.FTPHost = get("FTP_HOST")
	cfg.FTPUser = get("FTP_USER")
	cfg.FTPPassword = getenv("FTP_PASS")
	if v := get("FTP_REMOTE_DIR"); v != "" {
		cfg.FTPRemoteDir = v
	}

	if v := get("FTP_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port <= 0 || port > 65535 {
			return cfg, fmt.Errorf("invalid FTP_PORT: %s", v)
		}
		cfg.FTPPort = port
	}

	var err error
	if cfg.ConnectTimeout, err = duration(get, "FTP_CONNECT_TIMEOUT", cfg.ConnectTimeout); err != nil {
		return cfg, err
	}
	if cfg.RetryInitial, err = duration(get, "FTP_RETRY_INITIAL", cfg.RetryInitial); err != nil {
		return cfg, err
	}
	if cfg.RetryMax, err = duration(get, "FTP_RETRY_MAX", cfg.RetryMax); err != nil {
		return cfg, err
	}

	if v := get("FTP_CONNECT_RETRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return cfg, fmt.Errorf("invalid FTP_CONNECT_RETRIES: %s", v)
		}
		cfg.ConnectRetries = n
	}

	cfg.DisableEPSV = flag(get("FTP_DISABLE_EPSV"))

	if v := get("STORE_DRIVER"); v != "" {
		cfg.StoreDriver = strings.ToLower(v)
	}
	cfg.DatabaseURL = get("DATABASE_URL")
	if v := get("SQLITE_PATH"); v != "" {
		cfg.SQLitePath = v
	}
	cfg.StoreDebug = flag(get("STORE_DEBUG"))

	switch cfg.StoreDriver {
	case DriverPostgres:
		if cfg.DatabaseURL == "" {
			return cfg, errors.New("DATABASE_URL is required")
		}
	case DriverSQLite:
	default:
		return cfg, fmt.Errorf("invalid STORE_DRIVER: %s", cfg.StoreDriver)
	}

	tz := get("INGEST_TIMEZONE")
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return cfg, fmt.Errorf("invalid INGEST_TIMEZONE: %w", err)
	}
	cfg.Location = loc

	cfg.AliasesFile = get("INGEST_ALIASES_FILE")
	cfg.SkipUnchanged = flag(get("INGEST_SKIP_UNCHANGED"))
	cfg.DryRun = flag(get("DRY_RUN"))
	cfg.StationDataRoot = get("STATION_DATA_ROOT")

	if v := get("LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	if v := get("LOG_FORMAT"); v != "" {
		cfg.LogFormat = strings.ToLower(v)
	}

	return cfg, nil
}

// RequireFTP validates the settings needed to reach the remote store.
func (c Config) RequireFTP() error {
	if c.FTPHost == "" {
		return errors.New("FTP_HOST is required")
	}
	return nil
}

func duration(get func(string) string, key string, def time.Duration) (time.Duration, error) {
	v := get(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func flag(v string) bool {
	return v == "1" || strings.EqualFold(v, "true")
}
