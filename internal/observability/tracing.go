package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// Tracer wraps an OpenTelemetry TracerProvider scoped to one CLI run,
// grounded on the teacher's internal/observability/tracing.go Tracer.
// Trimmed relative to the teacher: no OTLP gRPC exporter is wired,
// since this spec has no collector endpoint to ship spans to — see
// DESIGN.md for the dropped-dependency note. Spans are still created
// and ended normally; a caller that wants export can attach its own
// sdktrace.SpanProcessor through NewTracer's variadic processors
// parameter.
type Tracer struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
}

// TraceConfig configures the resource attributes attached to every span.
type TraceConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
}

// NewTracer builds a Tracer and returns a shutdown func to flush and
// release the underlying provider on exit.
func NewTracer(cfg TraceConfig, processors ...sdktrace.SpanProcessor) (*Tracer, func(context.Context) error) {
	if cfg.ServiceName == "" {
		cfg.ServiceName = "dax"
	}

	res, _ := resource.Merge(resource.Default(), resource.NewSchemaless(
		attribute.String("service.name", cfg.ServiceName),
		attribute.String("service.version", cfg.ServiceVersion),
		attribute.String("deployment.environment", cfg.Environment),
	))

	opts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}
	for _, p := range processors {
		opts = append(opts, sdktrace.WithSpanProcessor(p))
	}

	provider := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(provider)

	return &Tracer{provider: provider, tracer: provider.Tracer("dax")}, provider.Shutdown
}

// StartSpan opens a span named for the agent-loop or stream-coordinator
// operation it wraps (e.g. "agent.run_turn", "stream.chat_stream").
func (t *Tracer) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// RecordError marks span as failed and attaches err, mirroring the
// teacher's span-error convention (codes.Error + span.RecordError).
func RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
