package rate

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	stripeCount          = 64
	defaultMemoryMaxKeys = 100_000
	defaultRetention     = time.Hour
)

// MemoryConfig sizes a [MemoryStore].
type MemoryConfig struct {
	// MaxKeys bounds the number of counters. When full, the least recently used
	// counter is dropped only if its window has ended; otherwise Increment on a
	// new key fails with ErrStoreFull and the limiter's FailOpen policy decides.
	MaxKeys int
	// Retention is how long an untouched counter is kept. It must be at least the
	// longest window passed to Increment, otherwise windows end early.
	Retention time.Duration
	// Now overrides the clock used for window arithmetic.
	Now func() time.Time
}

// MemoryStore is an in-process [CounterStore]. A counter whose window is still
// open is never evicted to make room for another key.
type MemoryStore struct {
	cache   *lru.LRU[string, memoryEntry]
	stripes [stripeCount]sync.Mutex
	// insertMu serialises the capacity check with the insert.
	insertMu sync.Mutex
	maxKeys  int
	now      func() time.Time
}

type memoryEntry struct {
	counter Counter
	window  time.Duration
}

// NewMemoryStore returns a MemoryStore. Zero fields take defaults.
func NewMemoryStore(cfg MemoryConfig) *MemoryStore {
	if cfg.MaxKeys <= 0 {
		cfg.MaxKeys = defaultMemoryMaxKeys
	}
	if cfg.Retention <= 0 {
		cfg.Retention = defaultRetention
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &MemoryStore{
		cache:   lru.NewLRU[string, memoryEntry](cfg.MaxKeys, nil, cfg.Retention),
		maxKeys: cfg.MaxKeys,
		now:     now,
	}
}

func (s *MemoryStore) Get(_ context.Context, key string) (Counter, bool, error) {
	e, ok := s.cache.Get(key)
	return e.counter, ok, nil
}

func (s *MemoryStore) Increment(_ context.Context, key string, window time.Duration) (Counter, error) {
	mu := s.stripe(key)
	mu.Lock()
	defer mu.Unlock()

	now := s.now()
	e, ok := s.cache.Get(key)
	c := e.counter
	if !ok || now.Sub(c.WindowStart) > window {
		c = Counter{Count: 1, WindowStart: now}
	} else {
		c.Count++
	}
	if err := s.put(key, memoryEntry{counter: c, window: window}, now); err != nil {
		return Counter{}, err
	}

	return c, nil
}

func (s *MemoryStore) put(key string, e memoryEntry, now time.Time) error {
	s.insertMu.Lock()
	defer s.insertMu.Unlock()

	if !s.cache.Contains(key) && s.cache.Len() >= s.maxKeys {
		oldKey, old, ok := s.cache.GetOldest()
		if !ok || now.Sub(old.counter.WindowStart) <= old.window {
			return ErrStoreFull
		}
		s.cache.Remove(oldKey)
	}
	s.cache.Add(key, e)
	return nil
}

func (s *MemoryStore) Reset(_ context.Context, key string) error {
	mu := s.stripe(key)
	mu.Lock()
	s.cache.Remove(key)
	mu.Unlock()
	return nil
}

// Len returns the number of live counters.
func (s *MemoryStore) Len() int {
	return s.cache.Len()
}

func (s *MemoryStore) stripe(key string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return &s.stripes[h.Sum32()%stripeCount]
}
