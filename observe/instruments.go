package observe

import (
	"context"
	"time"
)

// Instruments bundles tracing, metrics and logging for cache operations.
//
// Contract:
// - Concurrency: safe for concurrent use.
// - Errors: errors returned by tracked functions are recorded and propagated unchanged.
type Instruments struct {
	tracer  Tracer
	metrics Metrics
	logger  Logger
}

// NewInstruments creates Instruments from explicit components. Nil components
// are replaced with no-ops.
func NewInstruments(tracer Tracer, metrics Metrics, logger Logger) *Instruments {
	if tracer == nil {
		tracer = NewTracer(nil)
	}
	if metrics == nil {
		metrics, _ = NewMetrics(nil)
	}
	if logger == nil {
		logger = NopLogger()
	}
	return &Instruments{tracer: tracer, metrics: metrics, logger: logger}
}

// InstrumentsFromObserver creates Instruments backed by obs.
func InstrumentsFromObserver(obs Observer) (*Instruments, error) {
	if obs == nil {
		return nil, ErrNilObserver
	}
	metrics, err := NewMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}
	return NewInstruments(NewTracer(obs.Tracer()), metrics, obs.Logger()), nil
}

// NopInstruments returns Instruments that record nothing.
func NopInstruments() *Instruments {
	return NewInstruments(nil, nil, nil)
}

// Logger returns the bundled logger.
func (i *Instruments) Logger() Logger {
	return i.logger
}

// Track runs fn inside a span and records its outcome and duration.
// A non-nil error from fn always records OutcomeError.
func (i *Instruments) Track(ctx context.Context, meta OpMeta, fn func(context.Context) (Outcome, error)) error {
	ctx, span := i.tracer.StartSpan(ctx, meta)
	start := time.Now()

	outcome, err := fn(ctx)
	if err != nil {
		outcome = OutcomeError
	}
	duration := time.Since(start)

	i.tracer.EndSpan(span, outcome, err)
	i.metrics.RecordOperation(ctx, meta, outcome, duration)

	fields := []Field{
		{Key: "kind", Value: meta.Kind},
		{Key: "op", Value: meta.Op},
		{Key: "outcome", Value: string(outcome)},
		{Key: "duration_ms", Value: float64(duration.Microseconds()) / 1000},
	}
	if meta.Key != "" {
		fields = append(fields, Field{Key: "key", Value: meta.Key})
	}
	if err != nil {
		fields = append(fields, Field{Key: "error", Value: err})
		i.logger.Warn(ctx, "cache operation failed", fields...)
	} else {
		i.logger.Debug(ctx, "cache operation", fields...)
	}

	return err
}

// Invalidated records a stale entry that was deleted.
func (i *Instruments) Invalidated(ctx context.Context, kind, key, reason string) {
	i.metrics.RecordInvalidation(ctx, kind, reason)
	i.logger.Debug(ctx, "cache entry invalidated",
		Field{Key: "kind", Value: kind},
		Field{Key: "key", Value: key},
		Field{Key: "reason", Value: reason},
	)
}
