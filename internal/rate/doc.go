// Package rate implements the fixed-window attempt limiter that guards login and
// registration.
//
// # Window semantics
//
// Each key owns one window. The first attempt creates it with Count=1; later
// attempts increment Count until now-WindowStart exceeds the window, at which
// point the counter starts over at 1. Nothing decays in between, so this is a
// fixed-window limiter, not a leaky bucket. An attempt is allowed while
// Count <= MaxAttempts.
//
// Key layout (the Redis store adds its own prefix):
//   - login:id:<email>     login per account
//   - login:ip:<ip>        login per client IP
//   - register:id:<email>  registration per email
//   - register:ip:<ip>     registration per client IP
//
// # Storage
//
// [CounterStore] abstracts the counters. [MemoryStore] keeps them in a bounded
// expirable LRU guarded by striped per-key mutexes. [RedisStore] uses INCR with a
// PEXPIRE on the first hit so several processes share one budget.
//
// # What this package must NOT do
//
//   - Call the credential verifier or know what an attempt is for.
//   - Return errors from Allow. Store failures go to Config.OnStoreError and are
//     resolved by Config.FailOpen.
//   - Be imported outside the farmAuth module.
package rate
