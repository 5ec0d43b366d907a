// Package main provides the entrypoint for the powdertracker background worker.
//
// The worker keeps the shared batch cache warm, records powder-score
// snapshots and optionally serves job messages from Pub/Sub. It exposes
// health endpoints for the container platform.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/powdertracker/powdertracker/internal/api/handler"
	"github.com/powdertracker/powdertracker/internal/api/middleware"
	"github.com/powdertracker/powdertracker/internal/api/response"
	"github.com/powdertracker/powdertracker/internal/app"
	"github.com/powdertracker/powdertracker/internal/config"
	"github.com/powdertracker/powdertracker/internal/telemetry"
	"github.com/powdertracker/powdertracker/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "powdertracker-worker"

	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting powdertracker worker")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		Enabled:        cfg.TelemetryEnabled,
		SampleRatio:    cfg.TraceSampleRatio,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	components, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Error().Err(err).Msg("failed to wire components")
		return
	}
	defer components.Close()

	refreshCfg := worker.DefaultRefreshConfig()
	refreshCfg.Interval = cfg.SnapshotInterval
	refreshCfg.Retention = cfg.SnapshotRetention
	refreshCfg.RecordSnapshots = components.Snapshots != nil

	job := worker.NewRefreshJob(worker.RefreshJobConfig{
		Config:    refreshCfg,
		Service:   components.Service,
		Snapshots: components.Snapshots,
		Logger:    log.With().Str("component", "refresh").Logger(),
	})
	dispatcher := worker.NewDispatcher(job, components.Providers, log)

	scheduler := worker.NewScheduler(job, log)
	if err := scheduler.Start(ctx); err != nil {
		log.Error().Err(err).Msg("failed to start scheduler")
		return
	}
	defer scheduler.Stop()

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           healthRouter(components, dispatcher, job, log),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("addr", server.Addr).Msg("health server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if cfg.PubSubProjectID != "" {
		subscriber, err := worker.NewSubscriber(ctx, worker.PubSubConfig{
			ProjectID:        cfg.PubSubProjectID,
			SubscriptionName: cfg.PubSubSubscription,
			Dispatcher:       dispatcher,
			Logger:           log.With().Str("component", "pubsub").Logger(),
		})
		if err != nil {
			log.Error().Err(err).Msg("failed to create pubsub handler")
			return
		}
		defer subscriber.Close()

		g.Go(func() error {
			return subscriber.Start(gctx)
		})
	} else {
		log.Info().Msg("PUBSUB_PROJECT_ID not set, running scheduler only")
	}

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down worker")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), app.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("worker stopped with error")
		return
	}

	log.Info().Msg("worker stopped")
}

func healthRouter(components *app.App, dispatcher *worker.Dispatcher, job *worker.RefreshJob, log zerolog.Logger) http.Handler {
	ops := handler.NewOpsHandler(handler.OpsConfig{
		Version:    Version,
		BuildTime:  BuildTime,
		Registry:   components.Registry,
		Providers:  components.Providers,
		Subsystems: components.Subsystems,
		Logger:     log,
	})

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(log))
	r.Use(middleware.ContentTypeJSON)

	r.Get("/health", ops.HealthCheck)
	r.Get("/ready", func(w http.ResponseWriter, r *http.Request) {
		if err := dispatcher.HealthCheck(); err != nil {
			response.ServiceUnavailable(w, r, err.Error())
			return
		}
		ops.ReadinessCheck(w, r)
	})
	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, r, http.StatusOK, job.MetricsSnapshot())
	})

	return r
}
