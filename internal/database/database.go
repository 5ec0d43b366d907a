// Package database opens the PostgreSQL pool that backs the mountain
// registry and snapshot history.
package database

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrInvalidConfig is returned for malformed DB_* settings.
var ErrInvalidConfig = errors.New("invalid database config")

// Config holds database connection configuration.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string

	// ApplicationName is reported in pg_stat_activity.
	ApplicationName string

	MaxConns          int32
	MinConns          int32
	ConnMaxLifetime   time.Duration
	ConnectTimeout    time.Duration
	HealthCheckPeriod time.Duration
}

// ConfigFromEnv reads DB_* variables. Unset variables take local
// development defaults; malformed ones are reported.
func ConfigFromEnv() (Config, error) {
	cfg := Config{
		Host:            envOr("DB_HOST", "localhost"),
		User:            envOr("DB_USER", "powdertracker"),
		Password:        envOr("DB_PASSWORD", "localdev"),
		Database:        envOr("DB_NAME", "powdertracker"),
		SSLMode:         envOr("DB_SSL_MODE", "disable"),
		ApplicationName: envOr("DB_APPLICATION_NAME", "powdertracker"),
	}

	var errs []error
	cfg.Port = int(envInt(&errs, "DB_PORT", 5432))
	cfg.MaxConns = int32(envInt(&errs, "DB_MAX_CONNS", 10)) //nolint:gosec // range checked below
	cfg.MinConns = int32(envInt(&errs, "DB_MIN_CONNS", 2))  //nolint:gosec // range checked below
	cfg.ConnMaxLifetime = envDuration(&errs, "DB_CONN_MAX_LIFETIME", 30*time.Minute)
	cfg.ConnectTimeout = envDuration(&errs, "DB_CONNECT_TIMEOUT", 10*time.Second)
	cfg.HealthCheckPeriod = envDuration(&errs, "DB_HEALTH_CHECK_PERIOD", time.Minute)

	if err := errors.Join(errs...); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks pool bounds and the port.
func (c Config) Validate() error {
	switch {
	case c.Port <= 0 || c.Port > 65535:
		return fmt.Errorf("%w: port %d out of range", ErrInvalidConfig, c.Port)
	case c.MaxConns <= 0:
		return fmt.Errorf("%w: DB_MAX_CONNS must be positive", ErrInvalidConfig)
	case c.MinConns < 0 || c.MinConns > c.MaxConns:
		return fmt.Errorf("%w: DB_MIN_CONNS must be between 0 and DB_MAX_CONNS", ErrInvalidConfig)
	}
	return nil
}

// ConnectionString returns the PostgreSQL connection URL with credentials escaped.
func (c Config) ConnectionString() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:   "/" + c.Database,
	}

	q := url.Values{}
	q.Set("sslmode", c.SSLMode)
	if c.ApplicationName != "" {
		q.Set("application_name", c.ApplicationName)
	}
	if c.ConnectTimeout > 0 {
		q.Set("connect_timeout", strconv.Itoa(int(c.ConnectTimeout.Seconds())))
	}
	u.RawQuery = q.Encode()

	return u.String()
}

// Connect opens the pool and pings it once. The pool is closed again when
// the ping fails.
func Connect(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}

	poolConfig.MaxConns = cfg.MaxConns
	poolConfig.MinConns = cfg.MinConns
	poolConfig.MaxConnLifetime = cfg.ConnMaxLifetime
	if cfg.HealthCheckPeriod > 0 {
		poolConfig.HealthCheckPeriod = cfg.HealthCheckPeriod
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(errs *[]error, key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 32)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%w: %s=%q", ErrInvalidConfig, key, v))
		return fallback
	}
	return n
}

func envDuration(errs *[]error, key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		*errs = append(*errs, fmt.Errorf("%w: %s=%q", ErrInvalidConfig, key, v))
		return fallback
	}
	return d
}
