package rate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces counter keys.
const DefaultRedisPrefix = "farmauth:rl:"

// RedisStore is a [CounterStore] shared by every process using the same Redis.
// The window start is derived from the key's remaining TTL.
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
	now    func() time.Time
}

// NewRedisStore returns a RedisStore. An empty prefix selects DefaultRedisPrefix;
// a nil now selects time.Now.
func NewRedisStore(client redis.UniversalClient, prefix string, now func() time.Time) *RedisStore {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	if now == nil {
		now = time.Now
	}
	return &RedisStore{redis: client, prefix: prefix, now: now}
}

// Get reports the current count. WindowStart is left zero because the window
// length is not stored in Redis.
func (s *RedisStore) Get(ctx context.Context, key string) (Counter, bool, error) {
	count, err := s.redis.Get(ctx, s.prefix+key).Int64()
	if errors.Is(err, redis.Nil) {
		return Counter{}, false, nil
	}
	if err != nil {
		return Counter{}, false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return Counter{Count: count}, true, nil
}

// Increment runs INCR and PTTL in one transaction, then sets the expiry when the
// key was just created or has no TTL.
func (s *RedisStore) Increment(ctx context.Context, key string, window time.Duration) (Counter, error) {
	k := s.prefix + key

	var incrCmd *redis.IntCmd
	var ttlCmd *redis.DurationCmd
	_, err := s.redis.TxPipelined(ctx, func(p redis.Pipeliner) error {
		incrCmd = p.Incr(ctx, k)
		ttlCmd = p.PTTL(ctx, k)
		return nil
	})
	if err != nil {
		return Counter{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	count := incrCmd.Val()
	ttl := ttlCmd.Val()
	now := s.now()

	if count == 1 || ttl < 0 {
		if err := s.redis.PExpire(ctx, k, window).Err(); err != nil {
			return Counter{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		return Counter{Count: count, WindowStart: now}, nil
	}

	return Counter{Count: count, WindowStart: now.Add(ttl - window)}, nil
}

func (s *RedisStore) Reset(ctx context.Context, key string) error {
	if err := s.redis.Del(ctx, s.prefix+key).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}
