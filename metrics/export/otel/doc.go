// Package otel exports goGuard metrics as OpenTelemetry observable
// instruments.
//
// Callers own the MeterProvider and pass in a Meter. A single callback reads
// the engine snapshot on each collection; the latency histogram is exposed
// as one cumulative gauge per bucket.
package otel
