// Package rmtrace provides a thin abstraction over OpenTelemetry tracing for
// the resource manager. Components record spans through the Telemetry
// interface rather than importing the OpenTelemetry API directly, trimmed to
// what the pool tracing decorator (see pkg/respool) actually needs: starting
// a span at submission time and carrying its context into the worker
// goroutine.
package rmtrace

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Telemetry is the capability the rest of the module depends on.
type Telemetry interface {
	// StartSpan begins a span named name, returning a context carrying it.
	// Submission-time callers pass the returned context across goroutine
	// boundaries so the worker can end the span once the task runs.
	StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span)

	// Shutdown flushes and releases any exporter resources.
	Shutdown(ctx context.Context) error
}

// NoopTelemetry discards all spans. It is the default when no provider is
// configured, and is what tests use to exercise real components without
// standing up an exporter.
type NoopTelemetry struct{}

// NewNoop returns a no-op Telemetry.
func NewNoop() Telemetry { return noopInstance }

var noopInstance Telemetry = &NoopTelemetry{}

func (n *NoopTelemetry) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return ctx, trace.SpanFromContext(ctx)
}

func (n *NoopTelemetry) Shutdown(ctx context.Context) error { return nil }

// Common attribute keys used by the pool tracing decorator.
const (
	AttrPool     = "pool.name"
	AttrActivity = "activity"
	AttrTablet   = "tablet.id"
)
