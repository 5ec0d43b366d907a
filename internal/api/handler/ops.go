package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/powdertracker/powdertracker/internal/api/models"
	"github.com/powdertracker/powdertracker/internal/api/response"
	"github.com/powdertracker/powdertracker/internal/mountain"
	"github.com/powdertracker/powdertracker/internal/provider/resilience"
)

// readinessTimeout bounds each dependency probe.
const readinessTimeout = 2 * time.Second

// Subsystem is a named dependency probed by the readiness and status endpoints.
type Subsystem struct {
	Name  string
	Check func(ctx context.Context) error
}

// OpsConfig holds configuration for the OpsHandler.
type OpsConfig struct {
	Version   string
	BuildTime string

	// Registry must be readable for the service to be ready.
	Registry mountain.Registry

	// Providers reports upstream circuit breaker health (optional).
	Providers *resilience.Registry

	// Subsystems are extra dependencies such as the shared cache or database.
	Subsystems []Subsystem

	Logger zerolog.Logger
	Now    func() time.Time
}

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	version    string
	buildTime  string
	registry   mountain.Registry
	providers  *resilience.Registry
	subsystems []Subsystem
	logger     zerolog.Logger
	now        func() time.Time
}

// NewOpsHandler creates a new OpsHandler.
func NewOpsHandler(cfg OpsConfig) *OpsHandler {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &OpsHandler{
		version:    cfg.Version,
		buildTime:  cfg.BuildTime,
		registry:   cfg.Registry,
		providers:  cfg.Providers,
		subsystems: cfg.Subsystems,
		logger:     cfg.Logger,
		now:        now,
	}
}

// HealthCheck handles GET /api/ops/health - liveness check.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(h.now()),
		Details: map[string]any{
			"version":   h.version,
			"buildTime": h.buildTime,
		},
	}
	response.JSON(w, r, http.StatusOK, health)
}

// ReadinessCheck handles GET /api/ops/ready. The service is ready once the
// mountain registry and every configured subsystem answer.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	subsystems := h.checkSubsystems(r.Context())

	status := models.HealthStatusOK
	details := make(map[string]any, len(subsystems))
	for _, s := range subsystems {
		details[s.Name] = s.Status
		if s.Status != models.HealthStatusOK {
			status = models.HealthStatusFail
		}
	}

	health := models.Health{
		Status:  status,
		Time:    models.Timestamp(h.now()),
		Details: details,
	}

	if status != models.HealthStatusOK {
		response.JSON(w, r, http.StatusServiceUnavailable, health)
		return
	}
	response.JSON(w, r, http.StatusOK, health)
}

// SystemStatus handles GET /api/ops/status - provider and subsystem status.
// Open circuits degrade the service rather than fail it, since every
// mountain can still be served from its remaining sources.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	status := models.SystemStatus{
		Status:     models.HealthStatusOK,
		Time:       models.Timestamp(h.now()),
		Subsystems: h.checkSubsystems(r.Context()),
		Providers:  h.providerStatuses(),
	}

	for _, s := range status.Subsystems {
		if s.Status != models.HealthStatusOK {
			status.Status = models.HealthStatusFail
		}
	}
	if status.Status == models.HealthStatusOK {
		for _, p := range status.Providers {
			if p.Status != models.HealthStatusOK {
				status.Status = models.HealthStatusDegraded
			}
		}
	}

	response.JSON(w, r, http.StatusOK, status)
}

func (h *OpsHandler) checkSubsystems(ctx context.Context) []models.SubsystemStatus {
	checks := make([]Subsystem, 0, len(h.subsystems)+1)
	if h.registry != nil {
		checks = append(checks, Subsystem{
			Name: "registry",
			Check: func(ctx context.Context) error {
				_, err := h.registry.List(ctx)
				return err
			},
		})
	}
	checks = append(checks, h.subsystems...)

	out := make([]models.SubsystemStatus, 0, len(checks))
	for _, c := range checks {
		probeCtx, cancel := context.WithTimeout(ctx, readinessTimeout)
		err := c.Check(probeCtx)
		cancel()

		s := models.SubsystemStatus{Name: c.Name, Status: models.HealthStatusOK}
		if err != nil {
			h.logger.Warn().Err(err).Str("subsystem", c.Name).Msg("subsystem check failed")
			detail := err.Error()
			s.Status = models.HealthStatusFail
			s.Detail = &detail
		}
		out = append(out, s)
	}
	return out
}

func (h *OpsHandler) providerStatuses() []models.ProviderStatus {
	if h.providers == nil {
		return []models.ProviderStatus{}
	}

	all := h.providers.GetAllHealth()
	out := make([]models.ProviderStatus, 0, len(all))
	for _, p := range all {
		s := models.ProviderStatus{
			Provider:            p.Name,
			Status:              models.HealthStatusOK,
			CircuitState:        p.CircuitState.String(),
			ConsecutiveFailures: p.Counts.ConsecutiveFailures,
			Requests:            p.Requests,
			Failures:            p.Failures,
			LastSuccessAt:       timestampPtr(p.LastSuccessAt),
			LastFailureAt:       timestampPtr(p.LastFailureAt),
		}
		switch {
		case p.IsUnhealthy():
			s.Status = models.HealthStatusFail
		case p.IsDegraded():
			s.Status = models.HealthStatusDegraded
		}
		if p.LastError != "" {
			msg := p.LastError
			s.Message = &msg
		}
		out = append(out, s)
	}
	return out
}

func timestampPtr(t *time.Time) *models.Timestamp {
	if t == nil {
		return nil
	}
	ts := models.Timestamp(*t)
	return &ts
}
