package middleware

import (
	"context"
	"fmt"
	"time"

	"codejudge/internal/common/cache"
	pkgerrors "codejudge/pkg/errors"
	"codejudge/pkg/utils/logger"
	"codejudge/pkg/utils/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const rateKeyFmt = "judge:rate:ip:%s:%s"

// RateLimitConfig is a per-client-IP fixed window.
type RateLimitConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Window       time.Duration `yaml:"window"`
	IPMax        int           `yaml:"ipMax"`
	RedisTimeout time.Duration `yaml:"redisTimeout"`
}

// FixedWindowLimiter counts hits per key in Redis.
type FixedWindowLimiter struct {
	cache        cache.Cache
	redisTimeout time.Duration
}

// NewFixedWindowLimiter creates a limiter. A zero timeout means 200ms.
func NewFixedWindowLimiter(c cache.Cache, redisTimeout time.Duration) *FixedWindowLimiter {
	if redisTimeout <= 0 {
		redisTimeout = 200 * time.Millisecond
	}
	return &FixedWindowLimiter{cache: c, redisTimeout: redisTimeout}
}

// Allow records one hit for key and fails with TooManyRequests past max.
func (l *FixedWindowLimiter) Allow(ctx context.Context, key string, max int, window time.Duration) error {
	if l == nil || l.cache == nil {
		return pkgerrors.New(pkgerrors.ServiceUnavailable).WithMessage("rate limit cache is unavailable")
	}
	if max <= 0 || window <= 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, l.redisTimeout)
	defer cancel()

	acquired, err := l.cache.SetNX(ctx, key, 1, window)
	if err != nil {
		return pkgerrors.Wrapf(err, pkgerrors.CacheError, "rate limit check failed")
	}
	count := int64(1)
	if !acquired {
		count, err = l.cache.Incr(ctx, key)
		if err != nil {
			return pkgerrors.Wrapf(err, pkgerrors.CacheError, "rate limit check failed")
		}
		// A key left without expiry would block the client forever.
		if ttl, ttlErr := l.cache.TTL(ctx, key); ttlErr == nil && ttl < 0 {
			_ = l.cache.Expire(ctx, key, window)
		}
	}
	if count > int64(max) {
		return pkgerrors.New(pkgerrors.TooManyRequests)
	}
	return nil
}

// RateLimit limits routeKey per client IP. Limiter errors other than
// TooManyRequests let the request through.
func RateLimit(limiter *FixedWindowLimiter, routeKey string, cfg RateLimitConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil || !cfg.Enabled || cfg.IPMax <= 0 {
			c.Next()
			return
		}
		key := fmt.Sprintf(rateKeyFmt, c.ClientIP(), routeKey)
		if err := limiter.Allow(c.Request.Context(), key, cfg.IPMax, cfg.Window); err != nil {
			if pkgerrors.Is(err, pkgerrors.TooManyRequests) {
				response.AbortWithError(c, err)
				return
			}
			logger.Warn(c.Request.Context(), "rate limit skipped", zap.String("route", routeKey), zap.Error(err))
		}
		c.Next()
	}
}
