// Package ratelimit bounds chat relay usage per client per hour.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var incrWithTTLScript = redis.NewScript(`
local c = redis.call("INCR", KEYS[1])
if c == 1 then
  redis.call("EXPIRE", KEYS[1], ARGV[1])
end
return c
`)

type Limiter struct {
	redis *redis.Client
	limit int64
}

func New(rdb *redis.Client, limit int64) *Limiter {
	return &Limiter{redis: rdb, limit: limit}
}

// Allow counts one request for the client against the current hourly
// window. used is the count after this request; resetAt is the window
// boundary.
func (l *Limiter) Allow(ctx context.Context, client string, now time.Time) (allowed bool, used int64, resetAt time.Time, err error) {
	windowStart := now.UTC().Truncate(time.Hour)
	windowEnd := windowStart.Add(time.Hour)
	ttl := int64(windowEnd.Sub(now.UTC()).Seconds())
	if ttl < 1 {
		ttl = 1
	}

	key := fmt.Sprintf("toolhub:ratelimit:%s:%s", client, windowStart.Format("2006010215"))
	res, err := incrWithTTLScript.Run(ctx, l.redis, []string{key}, ttl).Int64()
	if err != nil {
		return false, 0, time.Time{}, fmt.Errorf("rate limit script: %w", err)
	}
	return res <= l.limit, res, windowEnd, nil
}
