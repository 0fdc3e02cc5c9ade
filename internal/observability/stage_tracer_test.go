package observability

import (
	"testing"

	"github.com/annel0/cube-runner/internal/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestStageTracerSpans(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	bus := event.NewBus()
	stage := 2
	st := NewStageTracer(bus, tp, func() int { return stage })
	defer st.Close()

	bus.Emit(event.FirstPickableStarted{ID: 1, StartLineZ: 3})
	bus.Emit(event.ItemPicked{ItemID: 5})
	bus.Emit(event.StageCleared{Stage: 2, Time: 4.5, Items: 1})

	stage = 3
	bus.Emit(event.FirstPickableStarted{ID: 1, StartLineZ: 11})
	bus.Emit(event.BeginGameover{Stage: 3, Reason: "no-pickable"})
	// Без открытого спана конец игры ничего не пишет
	bus.Emit(event.BeginGameover{Stage: 3, Reason: "fall-all"})

	spans := rec.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "stage 2", spans[0].Name())
	assert.Equal(t, codes.Ok, spans[0].Status().Code)
	require.Len(t, spans[0].Events(), 1)
	assert.Equal(t, "item-picked", spans[0].Events()[0].Name)

	assert.Equal(t, "stage 3", spans[1].Name())
	assert.Equal(t, codes.Error, spans[1].Status().Code)
	assert.Equal(t, "no-pickable", spans[1].Status().Description)
}
