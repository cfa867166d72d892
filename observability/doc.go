// Package observability provides OpenTelemetry tracing and metrics for
// convoy runs.
//
// Each run stage (resolve, locate, gather, bundle, gate, publish) is traced
// as a span, and the meter records run outcomes, stage durations, retry
// attempts, and publish destinations.
package observability
