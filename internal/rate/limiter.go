package rate

import (
	"context"
	"errors"
	"time"
)

// Config is one limiter policy.
type Config struct {
	// MaxAttempts is the number of attempts allowed per window.
	MaxAttempts int
	Window      time.Duration
	// FailOpen allows attempts when the store fails. When false a store failure
	// denies the attempt.
	FailOpen bool
	// OnStoreError observes store failures. It may be nil.
	OnStoreError func(key string, err error)
}

// Limiter applies a fixed-window [Config] to keys in a [CounterStore]. It is
// safe for concurrent use.
type Limiter struct {
	store  CounterStore
	config Config
}

// New returns a Limiter over store.
func New(store CounterStore, cfg Config) (*Limiter, error) {
	if store == nil {
		return nil, errors.New("rate: counter store is required")
	}
	if cfg.MaxAttempts <= 0 {
		return nil, errors.New("rate: MaxAttempts must be > 0")
	}
	if cfg.Window <= 0 {
		return nil, errors.New("rate: Window must be > 0")
	}
	return &Limiter{store: store, config: cfg}, nil
}

// Allow records an attempt for key and reports whether it is within budget. The
// first attempt in a window is always allowed. Every call counts, including
// rejected ones, so a caller hammering a closed window stays closed until the
// window ends.
func (l *Limiter) Allow(ctx context.Context, key string) bool {
	c, err := l.store.Increment(ctx, key, l.config.Window)
	if err != nil {
		l.storeError(key, err)
		return l.config.FailOpen
	}
	return c.Count <= int64(l.config.MaxAttempts)
}

// Reset closes the window for key.
func (l *Limiter) Reset(ctx context.Context, key string) error {
	if err := l.store.Reset(ctx, key); err != nil {
		l.storeError(key, err)
		return err
	}
	return nil
}

// Attempts returns the last recorded count for key, which may belong to a window
// that has already ended. Store failures read as zero.
func (l *Limiter) Attempts(ctx context.Context, key string) int64 {
	c, ok, err := l.store.Get(ctx, key)
	if err != nil {
		l.storeError(key, err)
		return 0
	}
	if !ok {
		return 0
	}
	return c.Count
}

// Window returns the configured window length.
func (l *Limiter) Window() time.Duration {
	return l.config.Window
}

func (l *Limiter) storeError(key string, err error) {
	if l.config.OnStoreError != nil {
		l.config.OnStoreError(key, err)
	}
}
