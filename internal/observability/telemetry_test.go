package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestInitTelemetryDescribesRun(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	exp := tracetest.NewInMemoryExporter()
	shutdown, err := InitTelemetry(context.Background(), TelemetryOptions{
		Seed:           42,
		RecordsBackend: "badger",
		StageSource:    "catalog+generated",
		Autopilot:      true,
		Exporter:       exp,
	})
	require.NoError(t, err)

	_, span := otel.Tracer("test").Start(context.Background(), "stage 0")
	span.End()

	spans := exp.GetSpans()
	require.Len(t, spans, 1)
	attrs := map[attribute.Key]attribute.Value{}
	for _, kv := range spans[0].Resource.Attributes() {
		attrs[kv.Key] = kv.Value
	}
	assert.Equal(t, "cube-runner", attrs["service.name"].AsString())
	assert.Equal(t, int64(42), attrs[AttrSeed].AsInt64())
	assert.Equal(t, "badger", attrs[AttrRecordsBackend].AsString())
	assert.Equal(t, "catalog+generated", attrs[AttrStageSource].AsString())
	assert.True(t, attrs[AttrAutopilot].AsBool())

	require.NoError(t, shutdown(context.Background()))
}
