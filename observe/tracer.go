package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// SpanPrefix prefixes every span and metric name.
const SpanPrefix = "artifactcache"

// OpMeta identifies a cache operation for telemetry purposes.
type OpMeta struct {
	Kind string // artifact kind: metadata, suggestions, epoch
	Op   string // read, write, refresh, invalidate, publish
	Key  string // cache key (optional)
}

// SpanName returns the deterministic span name for this operation.
// Format: artifactcache.<kind>.<op>
func (m OpMeta) SpanName() string {
	return SpanPrefix + "." + m.Kind + "." + m.Op
}

// Outcome classifies the result of a cache operation.
type Outcome string

const (
	OutcomeHit   Outcome = "hit"   // valid entry returned
	OutcomeMiss  Outcome = "miss"  // no entry stored
	OutcomeStale Outcome = "stale" // entry failed validation and was deleted
	OutcomeOK    Outcome = "ok"    // write, refresh or invalidate completed
	OutcomeSkip  Outcome = "skip"  // deliberate no-op
	OutcomeError Outcome = "error" // store failure
)

// Tracer wraps OpenTelemetry tracing with cache-operation spans.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: EndSpan must be best-effort and must not panic.
type Tracer interface {
	// StartSpan starts a span for a cache operation.
	StartSpan(ctx context.Context, meta OpMeta) (context.Context, trace.Span)

	// EndSpan ends the span, recording the outcome and any error.
	EndSpan(span trace.Span, outcome Outcome, err error)
}

type tracerImpl struct {
	tracer trace.Tracer
}

// NewTracer wraps an OpenTelemetry tracer. A nil tracer yields a no-op Tracer.
func NewTracer(t trace.Tracer) Tracer {
	if t == nil {
		t = tracenoop.NewTracerProvider().Tracer("noop")
	}
	return &tracerImpl{tracer: t}
}

func (t *tracerImpl) StartSpan(ctx context.Context, meta OpMeta) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{
		attribute.String("cache.kind", meta.Kind),
		attribute.String("cache.op", meta.Op),
	}
	if meta.Key != "" {
		attrs = append(attrs, attribute.String("cache.key", meta.Key))
	}

	return t.tracer.Start(ctx, meta.SpanName(),
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}

func (t *tracerImpl) EndSpan(span trace.Span, outcome Outcome, err error) {
	span.SetAttributes(attribute.String("cache.outcome", string(outcome)))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
