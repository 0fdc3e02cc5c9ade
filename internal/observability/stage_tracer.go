package observability

import (
	"context"
	"fmt"

	"github.com/annel0/cube-runner/internal/event"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// StageTracer открывает спан на каждый этап: от пересечения стартовой линии
// до StageCleared или конца игры. Вызывается из горутины симуляции.
type StageTracer struct {
	tracer trace.Tracer
	span   trace.Span
	stage  func() int
	subs   []event.Subscription
}

// NewStageTracer подписывает трассировку этапов на шину; stage сообщает номер текущего этапа
func NewStageTracer(bus *event.Bus, tp trace.TracerProvider, stage func() int) *StageTracer {
	st := &StageTracer{tracer: tp.Tracer("github.com/annel0/cube-runner/stage"), stage: stage}
	st.subs = append(st.subs,
		event.On(bus, st.onStarted),
		event.On(bus, st.onItem),
		event.On(bus, st.onCleared),
		event.On(bus, st.onGameover),
	)
	return st
}

func (st *StageTracer) onStarted(ev event.FirstPickableStarted) {
	st.end()
	index := st.stage()
	_, st.span = st.tracer.Start(context.Background(), fmt.Sprintf("stage %d", index),
		trace.WithAttributes(
			attribute.Int("stage.index", index),
			attribute.Int("stage.start_line_z", ev.StartLineZ),
		))
}

func (st *StageTracer) onItem(ev event.ItemPicked) {
	if st.span != nil {
		st.span.AddEvent("item-picked", trace.WithAttributes(attribute.Int("item.id", int(ev.ItemID))))
	}
}

func (st *StageTracer) onCleared(ev event.StageCleared) {
	if st.span == nil {
		return
	}
	st.span.SetAttributes(
		attribute.Float64("stage.time", ev.Time),
		attribute.Int("stage.items", ev.Items),
		attribute.Int("stage.cubes", ev.Cubes),
	)
	st.span.SetStatus(codes.Ok, "")
	st.end()
}

func (st *StageTracer) onGameover(ev event.BeginGameover) {
	if st.span == nil {
		return
	}
	st.span.SetStatus(codes.Error, ev.Reason)
	st.end()
}

func (st *StageTracer) end() {
	if st.span != nil {
		st.span.End()
		st.span = nil
	}
}

// Close завершает открытый спан и отписывается от шины
func (st *StageTracer) Close() {
	st.end()
	for _, s := range st.subs {
		s.Unsubscribe()
	}
}
