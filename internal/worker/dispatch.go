package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/powdertracker/powdertracker/internal/provider/resilience"
)

// Job types accepted on the worker subscription.
const (
	JobTypeConditionsSnapshot = "conditions_snapshot"
	JobTypeHealthCheck        = "health_check"
)

// Dispatch errors.
var (
	ErrMalformedJob   = errors.New("malformed job message")
	ErrUnknownJobType = errors.New("unknown job type")
	ErrUnhealthy      = errors.New("providers unhealthy")
)

// JobMessage is the body of a worker job message.
type JobMessage struct {
	JobType string `json:"job_type"`
}

// Dispatcher runs the job a message asks for.
type Dispatcher struct {
	refreshJob *RefreshJob
	providers  *resilience.Registry
	logger     zerolog.Logger
}

// NewDispatcher creates a new Dispatcher. providers may be nil, in which case
// health checks always pass.
func NewDispatcher(refreshJob *RefreshJob, providers *resilience.Registry, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		refreshJob: refreshJob,
		providers:  providers,
		logger:     logger,
	}
}

// Dispatch decodes data and runs the matching job.
func (d *Dispatcher) Dispatch(ctx context.Context, data []byte) (string, error) {
	var msg JobMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedJob, err)
	}

	switch msg.JobType {
	case JobTypeConditionsSnapshot:
		_, err := d.refreshJob.Run(ctx)
		return msg.JobType, err
	case JobTypeHealthCheck:
		return msg.JobType, d.HealthCheck()
	default:
		return msg.JobType, fmt.Errorf("%w: %q", ErrUnknownJobType, msg.JobType)
	}
}

// HealthCheck fails when any upstream provider's circuit is open.
func (d *Dispatcher) HealthCheck() error {
	if d.providers == nil {
		return nil
	}

	if open := d.providers.OpenCircuits(); len(open) > 0 {
		return fmt.Errorf("%w: open circuits: %s", ErrUnhealthy, strings.Join(open, ", "))
	}

	d.logger.Debug().Int("providers", d.providers.ProviderCount()).Msg("health check passed")
	return nil
}
