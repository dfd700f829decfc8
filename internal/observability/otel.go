package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

type TracerOptions struct {
	ServiceName string
	Env         string
	Endpoint    string
	Enabled     bool
	// SampleRatio applies to root spans only; inbound sampled parents are kept.
	// Zero means sample everything.
	SampleRatio float64
}

var noopShutdown = func(context.Context) error { return nil }

// InitTracer installs W3C propagation and, when enabled, a global provider
// exporting over OTLP/gRPC. The returned shutdown flushes pending spans.
func InitTracer(ctx context.Context, opts TracerOptions) (func(context.Context) error, error) {
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	if !opts.Enabled {
		return noopShutdown, nil
	}

	endpoint := opts.Endpoint
	if endpoint == "" {
		endpoint = "localhost:4317"
	}

	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("otlp exporter for %s: %w", endpoint, err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(opts.ServiceName),
			semconv.DeploymentEnvironment(opts.Env),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("tracer resource: %w", err)
	}

	sampler := sdktrace.AlwaysSample()
	if opts.SampleRatio > 0 && opts.SampleRatio < 1 {
		sampler = sdktrace.TraceIDRatioBased(opts.SampleRatio)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(2*time.Second)),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sampler)),
	)
	otel.SetTracerProvider(provider)

	return provider.Shutdown, nil
}
