package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// Metric names.
const (
	MetricOperations    = SpanPrefix + ".operations"
	MetricInvalidations = SpanPrefix + ".invalidations"
	MetricDuration      = SpanPrefix + ".operation.duration_ms"
)

// Metrics records cache operation metrics.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordOperation records one cache operation and its duration.
	RecordOperation(ctx context.Context, meta OpMeta, outcome Outcome, duration time.Duration)

	// RecordInvalidation records an entry deleted because it was stale.
	RecordInvalidation(ctx context.Context, kind, reason string)
}

type metricsImpl struct {
	operations    metric.Int64Counter
	invalidations metric.Int64Counter
	duration      metric.Float64Histogram
}

// NewMetrics creates Metrics on meter. A nil meter yields no-op instruments.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	if meter == nil {
		meter = noop.NewMeterProvider().Meter("noop")
	}

	operations, err := meter.Int64Counter(
		MetricOperations,
		metric.WithDescription("Cache operations by kind, operation and outcome"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, err
	}

	invalidations, err := meter.Int64Counter(
		MetricInvalidations,
		metric.WithDescription("Cache entries deleted because they failed validation"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		return nil, err
	}

	duration, err := meter.Float64Histogram(
		MetricDuration,
		metric.WithDescription("Cache operation duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		operations:    operations,
		invalidations: invalidations,
		duration:      duration,
	}, nil
}

func (m *metricsImpl) RecordOperation(ctx context.Context, meta OpMeta, outcome Outcome, duration time.Duration) {
	opt := metric.WithAttributes(
		attribute.String("kind", meta.Kind),
		attribute.String("op", meta.Op),
		attribute.String("outcome", string(outcome)),
	)
	m.operations.Add(ctx, 1, opt)
	m.duration.Record(ctx, float64(duration.Microseconds())/1000, opt)
}

func (m *metricsImpl) RecordInvalidation(ctx context.Context, kind, reason string) {
	m.invalidations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("reason", reason),
	))
}
