package rmtrace

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	stdouttrace "go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

// Config controls how a real Telemetry provider is constructed, trimmed to
// tracing only since metrics exposition is out of this module's scope. The
// pool tracing decorator needs a genuine span to propagate submission-time
// context into the worker goroutine.
type Config struct {
	ServiceName string
	// Enabled, when true, makes New build an SDK provider that writes
	// pretty-printed spans to stdout (cmd/rmdemo's -trace flag); when false,
	// New returns the no-op Telemetry.
	Enabled bool
}

// DefaultConfig returns sensible defaults: tracing enabled, pretty-printed
// spans, suitable for local runs and tests.
func DefaultConfig() Config {
	return Config{ServiceName: "tablet-server-resource-manager", Enabled: true}
}

type provider struct {
	tracerProvider *sdktrace.TracerProvider
	tracer         trace.Tracer
}

// New constructs a Telemetry backed by the OpenTelemetry SDK. If cfg.Enabled
// is false it returns NewNoop() instead.
func New(cfg Config) (Telemetry, error) {
	if !cfg.Enabled {
		return NewNoop(), nil
	}

	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("rmtrace: creating exporter: %w", err)
	}

	res, err := sdkresource.Merge(
		sdkresource.Default(),
		sdkresource.NewSchemaless(semconv.ServiceNameKey.String(cfg.ServiceName)),
	)
	if err != nil {
		return nil, fmt.Errorf("rmtrace: building resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)

	return &provider{
		tracerProvider: tp,
		tracer:         tp.Tracer(cfg.ServiceName),
	}, nil
}

func (p *provider) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return p.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func (p *provider) Shutdown(ctx context.Context) error {
	return p.tracerProvider.Shutdown(ctx)
}
