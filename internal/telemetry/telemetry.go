package telemetry

import (
	"context"
	"io"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.20.0"
	"go.opentelemetry.io/otel/trace"
)

// ServiceName names the tracer and the OpenTelemetry resource.
const ServiceName = "apmac"

// Version is reported as the service version on every span.
var Version = "0.3.0"

// Tracer returns the tracer used by the MAC services. Until InitTracer runs
// it is the global no-op tracer.
func Tracer() trace.Tracer {
	return otel.Tracer(ServiceName)
}

// TracerOptions configures InitTracer.
type TracerOptions struct {
	// Writer receives one JSON document per span.
	Writer io.Writer
	// SampleRatio is the fraction of root spans kept. Zero keeps none,
	// anything at or above one keeps all.
	SampleRatio float64
	// Sync exports each span as it ends instead of batching.
	Sync bool
}

// InitTracer installs a tracer provider that exports to opts.Writer and
// returns its shutdown function.
func InitTracer(opts TracerOptions) (func(context.Context) error, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(opts.Writer))
	if err != nil {
		return nil, err
	}

	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			semconv.ServiceName(ServiceName),
			semconv.ServiceVersion(Version),
		),
	)
	if err != nil {
		return nil, err
	}

	export := sdktrace.WithBatcher(exporter)
	if opts.Sync {
		export = sdktrace.WithSyncer(exporter)
	}
	tp := sdktrace.NewTracerProvider(
		export,
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(opts.SampleRatio))),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	return tp.Shutdown, nil
}
