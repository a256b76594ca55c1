package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kursadbilgin/hme-generator/internal/ratelimit"
	goredis "github.com/redis/go-redis/v9"
)

const keyPrefix = "hme:ratelimit"

var allowScript = goredis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("EXPIRE", KEYS[1], ARGV[2])
end
if current > tonumber(ARGV[1]) then
  return 0
end
return 1
`)

var _ ratelimit.WindowLimiter = (*RedisWindowLimiter)(nil)

// RedisWindowLimiter is a fixed-window creation counter shared by every
// generator process that uses the same account.
type RedisWindowLimiter struct {
	client *goredis.Client
	limit  int64
	window time.Duration
	now    func() time.Time
	script *goredis.Script
}

func NewRedisWindowLimiter(client *goredis.Client, limit int, window time.Duration) (*RedisWindowLimiter, error) {
	return newRedisWindowLimiter(client, int64(limit), window, time.Now)
}

func newRedisWindowLimiter(
	client *goredis.Client,
	limit int64,
	window time.Duration,
	nowFn func() time.Time,
) (*RedisWindowLimiter, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("window limit must be positive (got %d)", limit)
	}
	if window < time.Second {
		return nil, fmt.Errorf("window must be at least 1s (got %s)", window)
	}
	if nowFn == nil {
		nowFn = time.Now
	}

	return &RedisWindowLimiter{
		client: client,
		limit:  limit,
		window: window,
		now:    nowFn,
		script: allowScript,
	}, nil
}

func (r *RedisWindowLimiter) Allow(ctx context.Context, account string) (bool, error) {
	if r == nil || r.client == nil || r.script == nil {
		return false, fmt.Errorf("rate limiter is not initialized")
	}

	normalizedAccount := strings.ToLower(strings.TrimSpace(account))
	if normalizedAccount == "" {
		return false, fmt.Errorf("account is required")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	windowSeconds := int64(r.window / time.Second)
	bucket := r.now().UTC().Unix() / windowSeconds
	key := fmt.Sprintf("%s:%s:%d", keyPrefix, normalizedAccount, bucket)

	result, err := r.script.Run(ctx, r.client, []string{key}, r.limit, windowSeconds).Int()
	if err != nil {
		return false, fmt.Errorf("failed to evaluate rate limit: %w", err)
	}

	return result == 1, nil
}
