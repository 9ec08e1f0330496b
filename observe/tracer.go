package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/jonwraymond/datahealth/health"
)

// Backend describes a probed backend for telemetry purposes.
type Backend struct {
	Name   string // Checker name, e.g. "postgres" (required)
	System string // db.system value, e.g. "postgresql" or "redis"
	Target string // host:port with credentials removed
}

// SpanName returns the span name for probes of this backend.
// Format: probe.<name>
func (b Backend) SpanName() string {
	return "probe." + b.Name
}

func (b Backend) attributes() []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("backend.name", b.Name),
	}
	if b.System != "" {
		attrs = append(attrs, attribute.String("db.system", b.System))
	}
	if b.Target != "" {
		attrs = append(attrs, attribute.String("server.address", b.Target))
	}
	return attrs
}

// Tracer wraps OpenTelemetry tracing with probe span management.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: EndSpan must be best-effort and must not panic.
type Tracer interface {
	// StartSpan starts a new span for a probe.
	StartSpan(ctx context.Context, b Backend) (context.Context, trace.Span)

	// EndSpan ends the span, recording the probe outcome.
	EndSpan(span trace.Span, result health.Result)
}

type tracerImpl struct {
	tracer trace.Tracer
}

// NewTracer creates a Tracer wrapping the given OpenTelemetry tracer.
func NewTracer(t trace.Tracer) Tracer {
	return &tracerImpl{tracer: t}
}

// StartSpan starts a client span carrying the backend attributes.
func (t *tracerImpl) StartSpan(ctx context.Context, b Backend) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, b.SpanName(),
		trace.WithAttributes(b.attributes()...),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}

// EndSpan records status and response time, then ends the span.
// Only unhealthy results mark the span as failed.
func (t *tracerImpl) EndSpan(span trace.Span, result health.Result) {
	span.SetAttributes(
		attribute.String("probe.status", result.Status.String()),
		attribute.Float64("probe.response_time_ms", result.ResponseTimeMS()),
	)
	if result.Status == health.StatusUnhealthy {
		msg := result.Message
		if result.Error != nil {
			span.RecordError(result.Error)
			msg = result.Error.Error()
		}
		span.SetStatus(codes.Error, msg)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

type noopTracer struct {
	noop trace.Tracer
}

func newNoopTracer() Tracer {
	return &noopTracer{
		noop: tracenoop.NewTracerProvider().Tracer("noop"),
	}
}

func (t *noopTracer) StartSpan(ctx context.Context, b Backend) (context.Context, trace.Span) {
	return t.noop.Start(ctx, b.SpanName())
}

func (t *noopTracer) EndSpan(span trace.Span, result health.Result) {
	span.End()
}
