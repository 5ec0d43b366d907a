package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/powdertracker/powdertracker/internal/conditions"
	"github.com/powdertracker/powdertracker/internal/snapshot"
)

// BatchRefresher rebuilds the batch aggregates and replaces their cache entries.
type BatchRefresher interface {
	RefreshConditions(ctx context.Context) (*conditions.ConditionsBatch, error)
	RefreshPowderScores(ctx context.Context) (*conditions.PowderScoreBatch, error)
}

var _ BatchRefresher = (*conditions.Service)(nil)

// RefreshJob refreshes the batch caches and records powder-score snapshots.
type RefreshJob struct {
	config    RefreshConfig
	service   BatchRefresher
	snapshots snapshot.Repository
	logger    zerolog.Logger
	now       func() time.Time

	// runMu serializes runs triggered by the scheduler and by Pub/Sub.
	runMu sync.Mutex

	metrics *RefreshMetrics
}

// RefreshMetrics tracks refresh job statistics.
type RefreshMetrics struct {
	mu sync.RWMutex

	TotalRuns       int64
	FailedRuns      int64
	SnapshotsStored int64
	SnapshotsPruned int64
	MountainErrors  int64

	LastRunAt       time.Time
	LastRunDuration time.Duration
	LastError       string
}

// RefreshJobConfig holds configuration for creating a RefreshJob.
type RefreshJobConfig struct {
	Config RefreshConfig

	// Service rebuilds the batches (required).
	Service BatchRefresher

	// Snapshots stores powder-score history (optional).
	Snapshots snapshot.Repository

	Logger zerolog.Logger
	Now    func() time.Time
}

// NewRefreshJob creates a new refresh job.
func NewRefreshJob(cfg RefreshJobConfig) *RefreshJob {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &RefreshJob{
		config:    cfg.Config.withDefaults(),
		service:   cfg.Service,
		snapshots: cfg.Snapshots,
		logger:    cfg.Logger,
		now:       now,
		metrics:   &RefreshMetrics{},
	}
}

// RefreshResult contains the result of a refresh run.
type RefreshResult struct {
	StartTime      time.Time
	EndTime        time.Time
	Duration       time.Duration
	Mountains      int
	MountainErrors int
	SnapshotID     string
	Pruned         int64
}

// Run refreshes both batches, stores a snapshot and prunes old ones.
// A failed conditions refresh or prune is logged and does not fail the run.
func (j *RefreshJob) Run(ctx context.Context) (*RefreshResult, error) {
	j.runMu.Lock()
	defer j.runMu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, j.config.Timeout)
	defer cancel()

	result := &RefreshResult{StartTime: j.now()}

	j.logger.Info().Msg("starting refresh job")

	err := j.run(ctx, result)

	result.EndTime = j.now()
	result.Duration = result.EndTime.Sub(result.StartTime)
	j.updateMetrics(result, err)

	if err != nil {
		j.logger.Error().Err(err).Dur("duration", result.Duration).Msg("refresh job failed")
		return result, err
	}

	j.logger.Info().
		Dur("duration", result.Duration).
		Int("mountains", result.Mountains).
		Int("mountain_errors", result.MountainErrors).
		Str("snapshot_id", result.SnapshotID).
		Int64("pruned", result.Pruned).
		Msg("refresh job completed")

	return result, nil
}

func (j *RefreshJob) run(ctx context.Context, result *RefreshResult) error {
	if j.service == nil {
		return errors.New("refresh job has no batch service")
	}

	scores, err := j.service.RefreshPowderScores(ctx)
	if err != nil {
		return fmt.Errorf("refreshing powder scores: %w", err)
	}
	result.Mountains = scores.Count
	for _, s := range scores.Scores {
		if s.Error {
			result.MountainErrors++
		}
	}

	if j.config.RefreshConditions {
		if _, err := j.service.RefreshConditions(ctx); err != nil {
			j.logger.Warn().Err(err).Msg("conditions refresh failed")
		}
	}

	if !j.config.RecordSnapshots || j.snapshots == nil {
		return nil
	}

	snap := snapshot.FromBatch(scores)
	if err := j.snapshots.Save(ctx, snap); err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}
	result.SnapshotID = snap.ID

	if j.config.Retention > 0 {
		pruned, err := j.snapshots.Prune(ctx, j.now().Add(-j.config.Retention))
		if err != nil {
			j.logger.Warn().Err(err).Msg("snapshot prune failed")
		}
		result.Pruned = pruned
	}

	return nil
}

func (j *RefreshJob) updateMetrics(result *RefreshResult, err error) {
	j.metrics.mu.Lock()
	defer j.metrics.mu.Unlock()

	j.metrics.TotalRuns++
	j.metrics.LastRunAt = result.EndTime
	j.metrics.LastRunDuration = result.Duration
	j.metrics.MountainErrors += int64(result.MountainErrors)
	j.metrics.SnapshotsPruned += result.Pruned
	if result.SnapshotID != "" {
		j.metrics.SnapshotsStored++
	}
	if err != nil {
		j.metrics.FailedRuns++
		j.metrics.LastError = err.Error()
	} else {
		j.metrics.LastError = ""
	}
}

// GetMetrics returns a copy of the current metrics.
func (j *RefreshJob) GetMetrics() RefreshMetrics {
	j.metrics.mu.RLock()
	defer j.metrics.mu.RUnlock()

	return RefreshMetrics{
		TotalRuns:       j.metrics.TotalRuns,
		FailedRuns:      j.metrics.FailedRuns,
		SnapshotsStored: j.metrics.SnapshotsStored,
		SnapshotsPruned: j.metrics.SnapshotsPruned,
		MountainErrors:  j.metrics.MountainErrors,
		LastRunAt:       j.metrics.LastRunAt,
		LastRunDuration: j.metrics.LastRunDuration,
		LastError:       j.metrics.LastError,
	}
}

// MetricsSnapshot returns the current metrics as a map for logging.
func (j *RefreshJob) MetricsSnapshot() map[string]any {
	m := j.GetMetrics()
	return map[string]any{
		"total_runs":        m.TotalRuns,
		"failed_runs":       m.FailedRuns,
		"snapshots_stored":  m.SnapshotsStored,
		"snapshots_pruned":  m.SnapshotsPruned,
		"mountain_errors":   m.MountainErrors,
		"last_run_at":       m.LastRunAt,
		"last_run_duration": m.LastRunDuration.String(),
		"last_error":        m.LastError,
	}
}
