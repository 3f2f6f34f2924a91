// Package otel publishes farmAuth engine metrics through an OpenTelemetry
// Meter.
//
// [New] registers one Int64ObservableCounter per engine counter and one
// Int64ObservableGauge per latency bucket. A single callback reads
// [farmAuth.Engine.MetricsSnapshot] on every collection.
//
// # What this package must NOT do
//
//   - Own the MeterProvider; callers supply the Meter.
//   - Mutate engine state.
package otel
