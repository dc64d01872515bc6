// Package instrumentation provides OpenTelemetry-based metrics and tracing
// for the document viewer.
//
// The Provider wires a meter provider (prometheus, otlp or stdout exporter)
// and an optional tracer provider (otlp or stdout exporter), both configured
// from environment variables. The Metrics recorder exposes typed recording
// methods for the handful of metrics this service emits; all methods are
// safe to call on a zero-value recorder, which makes instrumentation
// optional for callers.
package instrumentation
