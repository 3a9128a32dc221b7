// Package telemetry wires OpenTelemetry tracing around the simulation's two
// hot control loops — VirtualInfrastructure.Tick and ArrivalHandler.Tick —
// per the teacher's TracingConfig shape (internal/observability in nova).
// When tracing is disabled the returned tracer is the otel no-op
// implementation, so call sites never need a nil check.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/oriys/vcsim/internal/config"
)

// tracerName is the instrumentation name of the tracer Setup returns.
const tracerName = "github.com/oriys/vcsim/internal/telemetry"

// Shutdown flushes and stops the tracer provider. A no-op when tracing was
// never enabled.
type Shutdown func(context.Context) error

// Setup configures global tracing from cfg and returns a tracer plus a
// shutdown function. With cfg.Enabled == false, it installs nothing and
// returns the global no-op tracer.
func Setup(ctx context.Context, cfg config.TracingConfig) (trace.Tracer, Shutdown, error) {
	if !cfg.Enabled {
		return otel.Tracer(tracerName), func(context.Context) error { return nil }, nil
	}

	exp, err := buildExporter(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("telemetry: build exporter: %w", err)
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(attribute.String("service.name", serviceName(cfg))),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("telemetry: resource: %w", err)
	}

	ratio := cfg.SampleRate
	if ratio <= 0 {
		ratio = 1.0
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(ratio)),
	)
	otel.SetTracerProvider(tp)

	return tp.Tracer(tracerName), tp.Shutdown, nil
}

func serviceName(cfg config.TracingConfig) string {
	if cfg.ServiceName == "" {
		return "vcsim"
	}
	return cfg.ServiceName
}

func buildExporter(ctx context.Context, cfg config.TracingConfig) (sdktrace.SpanExporter, error) {
	switch cfg.Exporter {
	case "otlp-http":
		opts := []otlptracehttp.Option{}
		if cfg.Endpoint != "" {
			opts = append(opts, otlptracehttp.WithEndpoint(cfg.Endpoint))
		}
		return otlptracehttp.New(ctx, opts...)
	default:
		return stdouttrace.New(stdouttrace.WithPrettyPrint())
	}
}
