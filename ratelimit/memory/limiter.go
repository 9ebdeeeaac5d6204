// Package memorylimiter implements a fixed-window rate limiter held in
// process memory. It is only suitable for single-process deployments;
// multi-instance setups should use the Redis limiter instead.
package memorylimiter

import (
	"sync"
	"time"
)

// Limit configures a named bucket: at most Limit hits per Window.
type Limit struct {
	Limit  int
	Window time.Duration
}

type window struct {
	count int
	start time.Time
}

// Limiter counts hits per (bucket, key) in fixed windows.
type Limiter struct {
	mu      sync.Mutex
	limits  map[string]Limit
	windows map[string]window
}

// New builds a limiter from per-bucket limits. A bucket with no entry
// falls back to the "default" entry; with no default either, the bucket
// is unlimited.
func New(limits map[string]Limit) *Limiter {
	return &Limiter{
		limits:  limits,
		windows: make(map[string]window),
	}
}

// AllowNamed reports whether one more hit on key is within bucket's
// limit. The error return exists to satisfy the adapter interface; the
// in-memory limiter never fails.
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
	now := time.Now()
	l.mu.Lock()
	defer l.mu.Unlock()
	w, ok := l.windows[key]
	if !ok || now.Sub(w.start) >= lim.Window {
		l.windows[key] = window{count: 1, start: now}
		return true, nil
	}
	if w.count >= lim.Limit {
		return false, nil
	}
	w.count++
	l.windows[key] = w
	return true, nil
}
