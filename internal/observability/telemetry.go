// Package observability настраивает трассировку OpenTelemetry и пишет спаны этапов.
package observability

import (
	"context"
	"time"

	"github.com/annel0/cube-runner/internal/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
)

// Ключи атрибутов ресурса симуляции
const (
	AttrSeed           = attribute.Key("cube.seed")
	AttrRecordsBackend = attribute.Key("cube.records.backend")
	AttrStageSource    = attribute.Key("cube.stages.source")
	AttrAutopilot      = attribute.Key("cube.autopilot")
)

// TelemetryOptions описывает запуск симуляции в атрибутах ресурса,
// чтобы трассы разных сидов и хранилищ можно было различить
type TelemetryOptions struct {
	ServiceName    string
	ServiceVersion string
	Seed           int64
	RecordsBackend string
	StageSource    string // catalog | generated | catalog+generated
	Autopilot      bool

	// Exporter заменяет OTLP HTTP и экспортирует синхронно (тесты)
	Exporter trace.SpanExporter
}

func (o TelemetryOptions) attributes() []attribute.KeyValue {
	name := o.ServiceName
	if name == "" {
		name = "cube-runner"
	}
	attrs := []attribute.KeyValue{
		semconv.ServiceName(name),
		AttrSeed.Int64(o.Seed),
		AttrAutopilot.Bool(o.Autopilot),
	}
	if o.ServiceVersion != "" {
		attrs = append(attrs, semconv.ServiceVersion(o.ServiceVersion))
	}
	if o.RecordsBackend != "" {
		attrs = append(attrs, AttrRecordsBackend.String(o.RecordsBackend))
	}
	if o.StageSource != "" {
		attrs = append(attrs, AttrStageSource.String(o.StageSource))
	}
	return attrs
}

// InitTelemetry настраивает экспорт спанов и устанавливает глобальный TracerProvider.
// Возвращает функцию shutdown, которую нужно вызвать при завершении приложения.
func InitTelemetry(ctx context.Context, opts TelemetryOptions) (func(context.Context) error, error) {
	res, err := resource.New(ctx, resource.WithAttributes(opts.attributes()...))
	if err != nil {
		return nil, err
	}

	var export trace.TracerProviderOption
	if opts.Exporter != nil {
		export = trace.WithSyncer(opts.Exporter)
	} else {
		// OTLP HTTP (по умолчанию localhost:4318, OTEL_EXPORTER_OTLP_ENDPOINT)
		exp, err := otlptracehttp.New(ctx)
		if err != nil {
			return nil, err
		}
		export = trace.WithBatcher(exp)
	}

	tp := trace.NewTracerProvider(export, trace.WithResource(res))
	otel.SetTracerProvider(tp)
	logging.Info("📡 OpenTelemetry инициализирован (seed=%d, рекорды=%s, участки=%s)",
		opts.Seed, opts.RecordsBackend, opts.StageSource)

	shutdown := func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return tp.Shutdown(ctx)
	}
	return shutdown, nil
}
