// Package config loads process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Registry sources.
const (
	RegistryStatic   = "static"
	RegistryPostgres = "postgres"
)

// Cache backends.
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// Snapshot stores.
const (
	SnapshotNone     = "none"
	SnapshotPostgres = "postgres"
)

// Config is the configuration shared by the API server and the worker.
type Config struct {
	Port        string
	Environment string

	TelemetryEnabled bool
	OTLPEndpoint     string
	TraceSampleRatio float64

	// RegistrySource selects where mountains are loaded from.
	RegistrySource string

	// CacheBackend selects the batch cache store.
	CacheBackend  string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	BatchCacheTTL time.Duration

	UpstreamUserAgent string
	UpstreamTimeout   time.Duration
	SNOTELBaseURL     string
	NOAABaseURL       string
	OpenMeteoBaseURL  string

	// SnapshotInterval is how often the worker stores a powder score snapshot.
	SnapshotInterval time.Duration

	// SnapshotStore selects where snapshots are kept; none disables history.
	SnapshotStore     string
	SnapshotRetention time.Duration

	PubSubProjectID    string
	PubSubSubscription string

	// RequireTLS redirects or rejects requests forwarded over plain HTTP.
	RequireTLS bool

	// CORSAllowedOrigins lists web origins allowed to read the API.
	CORSAllowedOrigins []string
}

// Load reads an optional .env file and then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds a Config from the environment with defaults applied.
func FromEnv() (*Config, error) {
	cfg := &Config{
		Port:               getenvDefault("APP_PORT", "8080"),
		Environment:        getenvDefault("APP_ENV", "development"),
		TelemetryEnabled:   os.Getenv("OTEL_ENABLED") == "true",
		OTLPEndpoint:       getenvDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		RegistrySource:     strings.ToLower(getenvDefault("REGISTRY_SOURCE", RegistryStatic)),
		CacheBackend:       strings.ToLower(getenvDefault("CACHE_BACKEND", CacheMemory)),
		RedisAddr:          getenvDefault("REDIS_ADDR", "localhost:6379"),
		RedisPassword:      os.Getenv("REDIS_PASSWORD"),
		UpstreamUserAgent:  getenvDefault("UPSTREAM_USER_AGENT", "powdertracker/1.0 (ops@powdertracker.app)"),
		SNOTELBaseURL:      os.Getenv("SNOTEL_BASE_URL"),
		NOAABaseURL:        os.Getenv("NOAA_BASE_URL"),
		OpenMeteoBaseURL:   os.Getenv("OPENMETEO_BASE_URL"),
		SnapshotStore:      strings.ToLower(getenvDefault("SNAPSHOT_STORE", SnapshotNone)),
		PubSubProjectID:    os.Getenv("PUBSUB_PROJECT_ID"),
		PubSubSubscription: getenvDefault("PUBSUB_SUBSCRIPTION", "powdertracker-worker"),
		RequireTLS:         os.Getenv("REQUIRE_TLS") == "true",
		CORSAllowedOrigins: splitList(getenvDefault("CORS_ALLOWED_ORIGINS", "*")),
	}

	var err error

	if cfg.RedisDB, err = getenvInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.BatchCacheTTL, err = getenvDuration("BATCH_CACHE_TTL", 300*time.Second); err != nil {
		return nil, err
	}
	if cfg.UpstreamTimeout, err = getenvDuration("UPSTREAM_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.SnapshotInterval, err = getenvDuration("SNAPSHOT_INTERVAL", 15*time.Minute); err != nil {
		return nil, err
	}

	if cfg.SnapshotRetention, err = getenvDuration("SNAPSHOT_RETENTION", 30*24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.TraceSampleRatio, err = getenvFloat("OTEL_SAMPLE_RATIO", 1); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks enumerated and positive settings.
func (c *Config) Validate() error {
	switch c.RegistrySource {
	case RegistryStatic, RegistryPostgres:
	default:
		return fmt.Errorf("invalid REGISTRY_SOURCE %q: want %s or %s", c.RegistrySource, RegistryStatic, RegistryPostgres)
	}

	switch c.CacheBackend {
	case CacheMemory, CacheRedis:
	default:
		return fmt.Errorf("invalid CACHE_BACKEND %q: want %s or %s", c.CacheBackend, CacheMemory, CacheRedis)
	}

	switch c.SnapshotStore {
	case SnapshotNone, SnapshotPostgres:
	default:
		return fmt.Errorf("invalid SNAPSHOT_STORE %q: want %s or %s", c.SnapshotStore, SnapshotNone, SnapshotPostgres)
	}

	if c.BatchCacheTTL <= 0 {
		return errors.New("BATCH_CACHE_TTL must be positive")
	}
	if c.UpstreamTimeout <= 0 {
		return errors.New("UPSTREAM_TIMEOUT must be positive")
	}
	if c.SnapshotInterval < time.Minute {
		return errors.New("SNAPSHOT_INTERVAL must be at least 1m")
	}
	if c.TraceSampleRatio < 0 || c.TraceSampleRatio > 1 {
		return errors.New("OTEL_SAMPLE_RATIO must be between 0 and 1")
	}

	return nil
}

// RequiresDatabase reports whether any component is backed by Postgres.
func (c *Config) RequiresDatabase() bool {
	return c.RegistrySource == RegistryPostgres || c.SnapshotStore == SnapshotPostgres
}

// IsProduction reports whether the service runs in production.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getenvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getenvFloat(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
