// Package internal groups the implementation packages behind the farmAuth
// engine.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher and Sink implementations)
//   - metrics: lock-free counters and latency histograms
//   - rate: fixed-window attempt counting over Redis or an in-process LRU
//
// # What this package must NOT do
//
//   - Export types that appear in the public farmAuth API except through
//     aliases in the root package.
package internal
