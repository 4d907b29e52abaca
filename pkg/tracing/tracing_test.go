package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestEnabled(t *testing.T) {
	t.Setenv(EnvEndpoint, "")
	assert.False(t, Enabled())

	t.Setenv(EnvEndpoint, "http://localhost:4318")
	assert.True(t, Enabled())
}

func TestSetup_RegistersGlobalProvider(t *testing.T) {
	t.Setenv(EnvEndpoint, "http://localhost:4318")
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	tp, err := Setup(context.Background(), "browserguard-test")
	require.NoError(t, err)
	assert.Same(t, tp, otel.GetTracerProvider())

	// Nothing was exported, so shutdown does not need the collector.
	require.NoError(t, tp.Shutdown(context.Background()))
}
