// Package worker runs the powdertracker background jobs: periodic batch
// refreshes that warm the shared cache and record powder-score snapshots.
package worker

import (
	"time"
)

// RefreshConfig holds configuration for the refresh job.
type RefreshConfig struct {
	// Interval is how often the scheduler runs the job.
	// Default: 30 minutes
	Interval time.Duration

	// Timeout bounds a single run.
	// Default: 2 minutes
	Timeout time.Duration

	// Retention is how long snapshots are kept before pruning.
	// Zero disables pruning. Default: 30 days
	Retention time.Duration

	// RefreshConditions also rebuilds the conditions batch.
	// Default: true
	RefreshConditions bool

	// RecordSnapshots stores each powder-score batch.
	// Default: true
	RecordSnapshots bool
}

// DefaultRefreshConfig returns the default refresh configuration.
func DefaultRefreshConfig() RefreshConfig {
	return RefreshConfig{
		Interval:          30 * time.Minute,
		Timeout:           2 * time.Minute,
		Retention:         30 * 24 * time.Hour,
		RefreshConditions: true,
		RecordSnapshots:   true,
	}
}

// withDefaults fills zero durations from DefaultRefreshConfig.
func (c RefreshConfig) withDefaults() RefreshConfig {
	def := DefaultRefreshConfig()
	if c.Interval <= 0 {
		c.Interval = def.Interval
	}
	if c.Timeout <= 0 {
		c.Timeout = def.Timeout
	}
	return c
}
