package telemetry_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"github.com/MrJamesThe3rd/stockroom/internal/telemetry"
)

func TestSetupWithoutEndpoint(t *testing.T) {
	shutdown, err := telemetry.Setup(context.Background(), telemetry.Config{ServiceName: "stockroom"})
	require.NoError(t, err)
	require.NotNil(t, shutdown)

	assert.Contains(t, otel.GetTextMapPropagator().Fields(), "traceparent")
	assert.NoError(t, shutdown(context.Background()))
}

func TestSetupWithEndpoint(t *testing.T) {
	ctx := context.Background()

	// Exporters connect lazily, so setup succeeds without a collector.
	shutdown, err := telemetry.Setup(ctx, telemetry.Config{
		Endpoint:    "127.0.0.1:4318",
		ServiceName: "stockroom",
		Insecure:    true,
	})
	require.NoError(t, err)

	_, span := otel.Tracer("test").Start(ctx, "probe")
	assert.True(t, span.SpanContext().IsValid())
	span.End()

	ctx, cancel := context.WithCancel(ctx)
	cancel()

	// Flushing to an absent collector fails; only the call shape matters here.
	_ = shutdown(ctx)
}
