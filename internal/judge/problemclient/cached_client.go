package problemclient

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"codejudge/internal/common/cache"
	"codejudge/internal/judge/model"
)

const (
	problemCacheKeyFmt = "judge:problem:%s:cases"
	defaultCacheTTL    = time.Minute
	defaultEmptyTTL    = 5 * time.Second
)

// Source provides hidden test cases for a problem.
type Source interface {
	GetTestCases(ctx context.Context, problemID, cookie string) ([]model.TestCase, error)
}

// CachedClient puts a Redis cache-aside layer in front of a Source.
// Lookup failures are not cached, so a newly created problem is visible at once.
type CachedClient struct {
	next     Source
	cache    cache.Cache
	ttl      time.Duration
	emptyTTL time.Duration
}

// NewCachedClient wraps next. A zero ttl uses the default.
func NewCachedClient(next Source, c cache.Cache, ttl time.Duration) (*CachedClient, error) {
	if next == nil {
		return nil, fmt.Errorf("problem source is required")
	}
	if c == nil {
		return nil, fmt.Errorf("cache is required")
	}
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &CachedClient{next: next, cache: c, ttl: ttl, emptyTTL: defaultEmptyTTL}, nil
}

// GetTestCases returns cached test cases or loads them from the wrapped source.
func (c *CachedClient) GetTestCases(ctx context.Context, problemID, cookie string) ([]model.TestCase, error) {
	key := fmt.Sprintf(problemCacheKeyFmt, problemID)
	return cache.GetWithCached(ctx, c.cache, key, c.ttl, c.emptyTTL,
		func(cases []model.TestCase) bool { return len(cases) == 0 },
		marshalCases,
		unmarshalCases,
		func(ctx context.Context) ([]model.TestCase, error) {
			return c.next.GetTestCases(ctx, problemID, cookie)
		},
	)
}

func marshalCases(cases []model.TestCase) (string, error) {
	data, err := json.Marshal(cases)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func unmarshalCases(data string) ([]model.TestCase, error) {
	var cases []model.TestCase
	if err := json.Unmarshal([]byte(data), &cases); err != nil {
		return nil, err
	}
	return cases, nil
}
