package rate

import (
	"context"
	"time"
)

// Counter is the state of one fixed window.
type Counter struct {
	Count       int64
	WindowStart time.Time
}

// CounterStore persists counters. Increment must be atomic per key: concurrent
// callers for the same key never lose an update. Calls for different keys must
// not serialize against each other.
type CounterStore interface {
	// Get returns the counter for key. ok is false when no window is open.
	Get(ctx context.Context, key string) (c Counter, ok bool, err error)
	// Increment records one attempt. It opens a new window with Count=1 when
	// none exists or the current one is older than window.
	Increment(ctx context.Context, key string, window time.Duration) (Counter, error)
	Reset(ctx context.Context, key string) error
}
