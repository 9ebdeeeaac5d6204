package coursehttp

import (
	"net/http"
	"strings"
	"time"

	memorylimiter "github.com/open-rails/coursekit/ratelimit/memory"
	redislimiter "github.com/open-rails/coursekit/ratelimit/redis"
)

// RateLimiter is the minimal interface handlers consult before doing any
// work. Implementations live in ratelimit/memory and ratelimit/redis.
type RateLimiter interface {
	AllowNamed(bucket string, key string) (bool, error)
}

// Limit configures a named rate limit bucket.
type Limit struct {
	Limit  int
	Window time.Duration
}

// DefaultRateLimits returns the built-in per-endpoint limits, enforced
// per client IP. Hosts can override via WithRateLimiter.
func DefaultRateLimits() map[string]Limit {
	return map[string]Limit{
		"default": {Limit: 120, Window: time.Minute},

		RLLogin:           {Limit: 20, Window: time.Hour},
		RLAdminLogin:      {Limit: 20, Window: time.Hour},
		RLLogout:          {Limit: 60, Window: 10 * time.Minute},
		RLMagicLinkReq:    {Limit: 6, Window: 10 * time.Minute},
		RLMagicLinkRedeem: {Limit: 20, Window: 10 * time.Minute},

		RLPasswordResetRequest: {Limit: 6, Window: 10 * time.Minute},
		RLPasswordResetConfirm: {Limit: 10, Window: 10 * time.Minute},
		RLUserPasswordChange:   {Limit: 6, Window: time.Hour},

		RLUserMe:      {Limit: 120, Window: time.Minute},
		RLUserCourses: {Limit: 120, Window: time.Minute},

		RLCheckout:        {Limit: 30, Window: 10 * time.Minute},
		RLPaymentsConfirm: {Limit: 120, Window: time.Minute},

		RLAdminOps: {Limit: 600, Window: time.Hour},
	}
}

func ToMemoryLimits(in map[string]Limit) map[string]memorylimiter.Limit {
	out := make(map[string]memorylimiter.Limit, len(in))
	for k, v := range in {
		out[k] = memorylimiter.Limit{Limit: v.Limit, Window: v.Window}
	}
	return out
}

func ToRedisLimits(in map[string]Limit) map[string]redislimiter.Limit {
	out := make(map[string]redislimiter.Limit, len(in))
	for k, v := range in {
		out[k] = redislimiter.Limit{Limit: v.Limit, Window: v.Window}
	}
	return out
}

// allow applies the per-IP limit for bucket, failing open on limiter
// errors and on requests with no usable client IP.
func (s *Service) allow(r *http.Request, bucket string) bool {
	if s == nil || s.rl == nil {
		return true
	}
	ipFn := s.clientIP
	if ipFn == nil {
		ipFn = DefaultClientIP()
	}
	ip := ipFn(r)
	if strings.TrimSpace(ip) == "" {
		return true
	}
	ok, err := s.rl.AllowNamed(bucket, "course:"+bucket+":ip:"+ip)
	if err != nil {
		return true
	}
	return ok
}
