package observe

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

type testInstruments struct {
	*Instruments
	spans  *tracetest.SpanRecorder
	reader *sdkmetric.ManualReader
	logs   *bytes.Buffer
}

func newTestInstruments(t *testing.T) testInstruments {
	t.Helper()

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	metrics, err := NewMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	logger, err := NewLoggerWithWriter("debug", &buf)
	if err != nil {
		t.Fatal(err)
	}

	return testInstruments{
		Instruments: NewInstruments(NewTracer(tp.Tracer("test")), metrics, logger),
		spans:       recorder,
		reader:      reader,
		logs:        &buf,
	}
}

func TestInstruments_TrackSuccess(t *testing.T) {
	ti := newTestInstruments(t)
	meta := OpMeta{Kind: "metadata", Op: "read", Key: "doc_1_metadata"}

	err := ti.Track(context.Background(), meta, func(ctx context.Context) (Outcome, error) {
		return OutcomeHit, nil
	})
	if err != nil {
		t.Fatalf("Track = %v", err)
	}

	if n := len(ti.spans.Ended()); n != 1 {
		t.Errorf("spans = %d, want 1", n)
	}
	ops := findMetric(collect(t, ti.reader), MetricOperations)
	if ops == nil || sumFor(t, ops, "outcome", "hit") != 1 {
		t.Error("hit not recorded")
	}
	if !strings.Contains(ti.logs.String(), `"outcome":"hit"`) {
		t.Errorf("log missing outcome: %s", ti.logs.String())
	}
}

func TestInstruments_TrackErrorPropagatesUnchanged(t *testing.T) {
	ti := newTestInstruments(t)
	sentinel := errors.New("redis: connection refused")

	err := ti.Track(context.Background(), OpMeta{Kind: "metadata", Op: "write"}, func(ctx context.Context) (Outcome, error) {
		return OutcomeOK, sentinel
	})
	if err != sentinel {
		t.Fatalf("Track err = %v, want the original error", err)
	}

	ops := findMetric(collect(t, ti.reader), MetricOperations)
	if ops == nil || sumFor(t, ops, "outcome", "error") != 1 {
		t.Error("error outcome not recorded")
	}
	if !strings.Contains(ti.logs.String(), "cache operation failed") {
		t.Errorf("expected warn log, got: %s", ti.logs.String())
	}
}

func TestInstruments_TrackPassesSpanContext(t *testing.T) {
	ti := newTestInstruments(t)

	_ = ti.Track(context.Background(), OpMeta{Kind: "k", Op: "o"}, func(ctx context.Context) (Outcome, error) {
		_, child := ti.tracer.StartSpan(ctx, OpMeta{Kind: "k", Op: "child"})
		ti.tracer.EndSpan(child, OutcomeOK, nil)
		return OutcomeOK, nil
	})

	spans := ti.spans.Ended()
	if len(spans) != 2 {
		t.Fatalf("spans = %d, want 2", len(spans))
	}
	child, parent := spans[0], spans[1]
	if child.Parent().SpanID() != parent.SpanContext().SpanID() {
		t.Error("child span is not parented to the tracked span")
	}
}

func TestInstruments_Invalidated(t *testing.T) {
	ti := newTestInstruments(t)

	ti.Invalidated(context.Background(), "suggestions", "doc_3_suggest", "epoch_changed")

	inv := findMetric(collect(t, ti.reader), MetricInvalidations)
	if inv == nil || sumFor(t, inv, "kind", "suggestions") != 1 {
		t.Error("invalidation not recorded")
	}
	if !strings.Contains(ti.logs.String(), "doc_3_suggest") {
		t.Errorf("log missing key: %s", ti.logs.String())
	}
}

func TestInstrumentsFromObserver(t *testing.T) {
	if _, err := InstrumentsFromObserver(nil); !errors.Is(err, ErrNilObserver) {
		t.Errorf("err = %v, want ErrNilObserver", err)
	}

	obs, err := NewObserver(context.Background(), Config{ServiceName: "test"})
	if err != nil {
		t.Fatal(err)
	}
	inst, err := InstrumentsFromObserver(obs)
	if err != nil || inst == nil {
		t.Fatalf("InstrumentsFromObserver = (%v, %v)", inst, err)
	}
}

func TestNopInstruments(t *testing.T) {
	inst := NopInstruments()
	err := inst.Track(context.Background(), OpMeta{Kind: "k", Op: "o"}, func(context.Context) (Outcome, error) {
		return OutcomeMiss, nil
	})
	if err != nil {
		t.Errorf("Track = %v", err)
	}
	inst.Invalidated(context.Background(), "k", "key", "reason")
	if inst.Logger() == nil {
		t.Error("Logger() returned nil")
	}
}
