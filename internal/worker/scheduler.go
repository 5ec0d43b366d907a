package worker

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog"
)

// Scheduler runs the refresh job on a fixed interval.
type Scheduler struct {
	scheduler *gocron.Scheduler
	job       *RefreshJob
	interval  time.Duration
	logger    zerolog.Logger
}

// NewScheduler creates a new Scheduler for job.
func NewScheduler(job *RefreshJob, logger zerolog.Logger) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()

	return &Scheduler{
		scheduler: s,
		job:       job,
		interval:  job.config.Interval,
		logger:    logger,
	}
}

// Start schedules the refresh job, runs it once immediately and starts the
// scheduler. Runs are bound to ctx.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.scheduler.Every(s.interval).Do(func() {
		if ctx.Err() != nil {
			return
		}
		if _, err := s.job.Run(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("scheduled refresh failed")
		}
	})
	if err != nil {
		return err
	}

	s.logger.Info().Dur("interval", s.interval).Msg("refresh scheduler started")
	s.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}
