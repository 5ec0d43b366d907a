package telemetry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/powdertracker/powdertracker/internal/telemetry"
)

func TestInit_Disabled(t *testing.T) {
	ctx := context.Background()

	provider, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:  "powdertracker-test",
		OTLPEndpoint: "localhost:4317",
		Enabled:      false,
	})
	require.NoError(t, err)

	assert.Nil(t, provider.TracerProvider)
	assert.Nil(t, provider.MeterProvider)
	assert.NoError(t, provider.Shutdown(ctx))
}

func TestProvider_Shutdown_NilProviders(t *testing.T) {
	provider := &telemetry.Provider{}
	assert.NoError(t, provider.Shutdown(context.Background()))
}

func TestSampler(t *testing.T) {
	always := sdktrace.ParentBased(sdktrace.AlwaysSample()).Description()

	assert.Equal(t, always, telemetry.Sampler(0).Description())
	assert.Equal(t, always, telemetry.Sampler(1).Description())
	assert.Equal(t, always, telemetry.Sampler(-3).Description())
	assert.Contains(t, telemetry.Sampler(0.25).Description(), "TraceIDRatioBased{0.25}")
}

func TestProviderMetrics_RecordsWithoutPanicking(t *testing.T) {
	metrics, err := telemetry.NewProviderMetrics()
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		metrics.RecordRequest("snotel", "history", 120*time.Millisecond, nil)
		metrics.RecordRequest("noaa", "forecast", time.Second, errors.New("boom"))
		metrics.RecordCacheHit("mountains:batch:conditions")
		metrics.RecordCacheMiss("mountains:batch:conditions")
	})
}

func TestProviderMetrics_NilIsNoop(t *testing.T) {
	var metrics *telemetry.ProviderMetrics

	assert.NotPanics(t, func() {
		metrics.RecordRequest("openmeteo", "daily", time.Second, nil)
		metrics.RecordCacheHit("k")
		metrics.RecordCacheMiss("k")
	})
}
