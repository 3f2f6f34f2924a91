// Package prometheus renders farmAuth engine metrics in the Prometheus text
// exposition format.
//
// [New] wraps an engine; [Exporter.Handler] is meant to be mounted at /metrics.
// Counters are named farmauth_*_total and the two latency histograms are
// farmauth_login_latency_seconds and farmauth_decide_latency_seconds.
//
// # What this package must NOT do
//
//   - Register anything in a global Prometheus registry.
//   - Mutate engine state.
package prometheus
