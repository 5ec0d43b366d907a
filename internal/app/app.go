// Package app wires the components shared by the API server and the worker.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"

	"github.com/powdertracker/powdertracker/internal/api/handler"
	"github.com/powdertracker/powdertracker/internal/cache"
	"github.com/powdertracker/powdertracker/internal/conditions"
	"github.com/powdertracker/powdertracker/internal/conditions/noaa"
	"github.com/powdertracker/powdertracker/internal/conditions/openmeteo"
	"github.com/powdertracker/powdertracker/internal/conditions/snotel"
	"github.com/powdertracker/powdertracker/internal/config"
	"github.com/powdertracker/powdertracker/internal/database"
	"github.com/powdertracker/powdertracker/internal/mountain"
	"github.com/powdertracker/powdertracker/internal/provider/resilience"
	"github.com/powdertracker/powdertracker/internal/snapshot"
	"github.com/powdertracker/powdertracker/internal/telemetry"
)

// App holds the wired components.
type App struct {
	Registry   mountain.Registry
	Providers  *resilience.Registry
	Service    *conditions.Service
	Snapshots  snapshot.Repository // nil when history is disabled
	Subsystems []handler.Subsystem

	pool   *pgxpool.Pool
	redis  *cache.RedisStore
	logger zerolog.Logger
}

// New connects the configured backends and builds the conditions service.
// Call Close to release connections.
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*App, error) {
	a := &App{
		Providers: resilience.NewRegistry(),
		logger:    log,
	}

	if cfg.RequiresDatabase() {
		dbConfig, err := database.ConfigFromEnv()
		if err != nil {
			return nil, err
		}
		pool, err := database.Connect(ctx, dbConfig)
		if err != nil {
			return nil, fmt.Errorf("connecting to database: %w", err)
		}
		a.pool = pool
		a.Subsystems = append(a.Subsystems, handler.Subsystem{Name: "database", Check: pool.Ping})
		log.Info().
			Str("host", dbConfig.Host).
			Int("port", dbConfig.Port).
			Str("database", dbConfig.Database).
			Msg("database connected")
	}

	registry, err := a.buildRegistry(cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Registry = registry

	store, err := a.buildStore(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	metrics, err := telemetry.NewProviderMetrics()
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("creating provider metrics: %w", err)
	}

	aggregator := conditions.NewAggregator(conditions.AggregatorConfig{
		Registry: registry,
		Telemetry: snotel.NewClient(snotel.ClientConfig{
			BaseURL:    cfg.SNOTELBaseURL,
			HTTPClient: a.upstreamClient(cfg, snotel.ProviderName),
			Metrics:    metrics,
			Logger:     log.With().Str("provider", snotel.ProviderName).Logger(),
		}),
		Grid: noaa.NewClient(noaa.ClientConfig{
			BaseURL:    cfg.NOAABaseURL,
			HTTPClient: a.upstreamClient(cfg, noaa.ProviderName),
			Metrics:    metrics,
			Logger:     log.With().Str("provider", noaa.ProviderName).Logger(),
		}),
		Fallback: openmeteo.NewClient(openmeteo.ClientConfig{
			BaseURL:    cfg.OpenMeteoBaseURL,
			HTTPClient: a.upstreamClient(cfg, openmeteo.ProviderName),
			Metrics:    metrics,
			Logger:     log.With().Str("provider", openmeteo.ProviderName).Logger(),
		}),
		Logger: log,
	})

	a.Service = conditions.NewService(conditions.ServiceConfig{
		Aggregator: aggregator,
		Cache: cache.New(cache.Config{
			Store:   store,
			Metrics: metrics,
			Logger:  log,
		}),
		TTL:    cfg.BatchCacheTTL,
		Logger: log,
	})

	if cfg.SnapshotStore == config.SnapshotPostgres {
		a.Snapshots = snapshot.NewPostgresRepository(a.pool)
	}

	return a, nil
}

func (a *App) buildRegistry(cfg *config.Config) (mountain.Registry, error) {
	if cfg.RegistrySource == config.RegistryPostgres {
		a.logger.Info().Msg("loading mountains from postgres")
		return mountain.NewPostgresRegistry(a.pool), nil
	}

	registry, err := mountain.NewStaticRegistry(mountain.DefaultCatalog())
	if err != nil {
		return nil, fmt.Errorf("loading built-in catalog: %w", err)
	}
	a.logger.Info().Int("mountains", len(mountain.DefaultCatalog())).Msg("loaded built-in mountain catalog")
	return registry, nil
}

func (a *App) buildStore(ctx context.Context, cfg *config.Config) (cache.Store, error) {
	if cfg.CacheBackend != config.CacheRedis {
		return cache.NewMemoryStore(cache.MemoryStoreConfig{}), nil
	}

	store, err := cache.NewRedisStore(ctx, cache.RedisStoreConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		return nil, err
	}
	a.redis = store
	a.Subsystems = append(a.Subsystems, handler.Subsystem{Name: "cache", Check: store.Ping})
	a.logger.Info().Str("addr", cfg.RedisAddr).Msg("redis cache connected")
	return store, nil
}

// upstreamClient builds a resilient client registered for health reporting.
func (a *App) upstreamClient(cfg *config.Config, name string) *resilience.Client {
	clientCfg := resilience.DefaultClientConfig(name)
	clientCfg.Timeout = cfg.UpstreamTimeout
	clientCfg.UserAgent = cfg.UpstreamUserAgent
	clientCfg.Registry = a.Providers

	breaker := resilience.DefaultCircuitBreakerConfig(name)
	breaker.OnStateChange = func(name string, from, to gobreaker.State) {
		a.logger.Warn().
			Str("provider", name).
			Str("from", from.String()).
			Str("to", to.String()).
			Msg("circuit breaker state changed")
	}
	clientCfg.CircuitBreaker = &breaker

	return resilience.NewClient(clientCfg)
}

// Close releases backend connections.
func (a *App) Close() {
	var errs []error
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.pool != nil {
		a.pool.Close()
	}
	if err := errors.Join(errs...); err != nil {
		a.logger.Error().Err(err).Msg("closing backends")
	}
}

// ShutdownTimeout bounds graceful shutdown of both processes.
const ShutdownTimeout = 30 * time.Second
