// Package exporters builds the OpenTelemetry exporters selected in configuration.
package exporters

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// ErrEndpointNotConfigured indicates an OTLP exporter was selected without an endpoint.
var ErrEndpointNotConfigured = errors.New("exporters: endpoint not configured")

// Options selects and configures an exporter.
type Options struct {
	// Name is one of otlp, prometheus (metrics only), stdout, none.
	Name string

	// Endpoint is the OTLP gRPC endpoint (host:port). When empty the
	// standard OTEL_EXPORTER_OTLP_* environment variables are consulted.
	Endpoint string

	// Writer receives stdout exporter output. Default: os.Stdout
	Writer io.Writer
}

func (o Options) writer() io.Writer {
	if o.Writer != nil {
		return o.Writer
	}
	return os.Stdout
}

func otlpEndpoint(explicit, signalEnv string) string {
	if explicit != "" {
		return explicit
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		return v
	}
	return os.Getenv(signalEnv)
}

// NewTracingExporter creates a span exporter.
// Supported exporters: stdout, otlp, none
func NewTracingExporter(ctx context.Context, opts Options) (sdktrace.SpanExporter, error) {
	switch opts.Name {
	case "stdout":
		return stdouttrace.New(stdouttrace.WithWriter(opts.writer()))

	case "otlp":
		endpoint := otlpEndpoint(opts.Endpoint, "OTEL_EXPORTER_OTLP_TRACES_ENDPOINT")
		if endpoint == "" {
			return nil, fmt.Errorf("%w: set tracing.endpoint or OTEL_EXPORTER_OTLP_ENDPOINT", ErrEndpointNotConfigured)
		}
		if opts.Endpoint != "" {
			return otlptracegrpc.New(ctx, otlptracegrpc.WithEndpoint(opts.Endpoint))
		}
		return otlptracegrpc.New(ctx)

	case "none", "":
		return stdouttrace.New(stdouttrace.WithWriter(io.Discard))

	default:
		return nil, fmt.Errorf("unknown exporter: %q", opts.Name)
	}
}

// NewMetricsReader creates a metrics reader.
// Supported exporters: stdout, otlp, prometheus, none
func NewMetricsReader(ctx context.Context, opts Options) (sdkmetric.Reader, error) {
	switch opts.Name {
	case "stdout":
		exp, err := stdoutmetric.New(stdoutmetric.WithWriter(opts.writer()))
		if err != nil {
			return nil, fmt.Errorf("failed to create stdout metrics exporter: %w", err)
		}
		return sdkmetric.NewPeriodicReader(exp), nil

	case "otlp":
		endpoint := otlpEndpoint(opts.Endpoint, "OTEL_EXPORTER_OTLP_METRICS_ENDPOINT")
		if endpoint == "" {
			return nil, fmt.Errorf("%w: set metrics.endpoint or OTEL_EXPORTER_OTLP_ENDPOINT", ErrEndpointNotConfigured)
		}
		var grpcOpts []otlpmetricgrpc.Option
		if opts.Endpoint != "" {
			grpcOpts = append(grpcOpts, otlpmetricgrpc.WithEndpoint(opts.Endpoint))
		}
		exp, err := otlpmetricgrpc.New(ctx, grpcOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP metrics exporter: %w", err)
		}
		return sdkmetric.NewPeriodicReader(exp), nil

	case "prometheus":
		// Registers with the default Prometheus registerer, served by promhttp.
		exp, err := prometheus.New()
		if err != nil {
			return nil, fmt.Errorf("failed to create Prometheus exporter: %w", err)
		}
		return exp, nil

	case "none", "":
		return sdkmetric.NewManualReader(), nil

	default:
		return nil, fmt.Errorf("unknown metrics exporter: %q", opts.Name)
	}
}
