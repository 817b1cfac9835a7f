// Package observe provides telemetry for the artifact caches.
//
// It wires OpenTelemetry tracing and metrics (otlp, prometheus or stdout
// exporters) and a zap-backed structured Logger, and bundles them into
// Instruments that record every cache operation as a span, a lookup
// counter sample and a duration sample.
//
// Everything defaults to no-op implementations so that callers which do not
// configure telemetry pay nothing for it.
package observe
