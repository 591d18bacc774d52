package cache

import (
	"context"
	"crypto/rand"
	"math/big"
	"time"
)

// NullCacheValue marks a cached empty result
const NullCacheValue = "$NULL$"

// GetWithCached implements cache-aside with empty-value caching.
// Cache read and write failures degrade to calling fn; errors from fn are never cached.
//
// Example:
//
//	cases, err := GetWithCached(ctx, c, "judge:problem:42:cases", time.Minute, 5*time.Second,
//		func(v []TestCase) bool { return len(v) == 0 },
//		marshalCases, unmarshalCases,
//		func(ctx context.Context) ([]TestCase, error) { return client.Fetch(ctx, "42") })
func GetWithCached[T any](
	ctx context.Context,
	cache Cache,
	key string,
	ttl time.Duration,
	emptyTTL time.Duration,
	isEmpty func(T) bool,
	marshal func(T) (string, error),
	unmarshal func(string) (T, error),
	fn func(context.Context) (T, error),
) (T, error) {
	var zero T

	if cached, err := cache.Get(ctx, key); err == nil && cached != "" {
		if cached == NullCacheValue {
			return zero, nil
		}
		if value, err := unmarshal(cached); err == nil {
			return value, nil
		}
	}

	data, err := fn(ctx)
	if err != nil {
		return zero, err
	}

	if isEmpty(data) {
		if emptyTTL > 0 {
			_ = cache.Set(ctx, key, NullCacheValue, emptyTTL)
		}
		return data, nil
	}

	if encoded, err := marshal(data); err == nil {
		_ = cache.Set(ctx, key, encoded, JitterTTL(ttl))
	}
	return data, nil
}

// JitterTTL shortens ttl by up to 10% so keys written together do not expire together.
func JitterTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return ttl
	}
	maxJitter := int64(ttl / 10)
	if maxJitter <= 0 {
		return ttl
	}
	n, err := rand.Int(rand.Reader, big.NewInt(maxJitter+1))
	if err != nil {
		return ttl
	}
	return ttl - time.Duration(n.Int64())
}
