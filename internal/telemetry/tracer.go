// Package telemetry provides OpenTelemetry tracing initialization.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/scangate/scangate/internal/gate"
)

// InitTracer sets up an OTLP trace exporter. If endpoint is empty, returns a
// noop tracer and a no-op shutdown function.
func InitTracer(ctx context.Context, endpoint, serviceName, serviceVersion string) (trace.Tracer, func(context.Context) error, error) {
	if endpoint == "" {
		t := noop.NewTracerProvider().Tracer(serviceName)
		return t, func(context.Context) error { return nil }, nil
	}

	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("creating OTLP exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(serviceVersion),
		),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("creating resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	tracer := tp.Tracer(serviceName)
	return tracer, tp.Shutdown, nil
}

// RecordVerdict annotates a span with the outcome of a gate evaluation.
func RecordVerdict(span trace.Span, v gate.Verdict) {
	span.SetAttributes(
		attribute.Bool("scangate.passed", v.Passed),
		attribute.Int("scangate.failures", len(v.Failures)),
		attribute.Int("scangate.warnings", len(v.Warnings)),
		attribute.Int("scangate.ignored", v.Ignored),
	)
}
