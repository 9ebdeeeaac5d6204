// Package redislimiter implements a fixed-window rate limiter on Redis,
// shared across instances. Counters live under the key the caller
// supplies with the window length appended, so a changed window starts a
// fresh counter.
package redislimiter

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limit configures a named bucket: at most Limit hits per Window.
type Limit struct {
	Limit  int
	Window time.Duration
}

// Limiter counts hits with INCR and a TTL set on first hit.
type Limiter struct {
	rdb    *redis.Client
	limits map[string]Limit
}

func New(rdb *redis.Client, limits map[string]Limit) *Limiter {
	return &Limiter{rdb: rdb, limits: limits}
}

// AllowNamed reports whether one more hit on key is within bucket's
// limit. Errors are returned to the caller, which is expected to fail
// open so a Redis outage does not lock everyone out.
func (l *Limiter) AllowNamed(bucket, key string) (bool, error) {
	lim, ok := l.limits[bucket]
	if !ok {
		lim, ok = l.limits["default"]
		if !ok {
			return true, nil
		}
	}
	if lim.Limit <= 0 || lim.Window <= 0 {
		return true, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	rkey := fmt.Sprintf("%s:w%d", key, int64(lim.Window.Seconds()))
	pipe := l.rdb.TxPipeline()
	incr := pipe.Incr(ctx, rkey)
	pipe.ExpireNX(ctx, rkey, lim.Window)
	if _, err := pipe.Exec(ctx); err != nil {
		return true, err
	}
	return incr.Val() <= int64(lim.Limit), nil
}
