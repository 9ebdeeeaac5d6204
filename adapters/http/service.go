package coursehttp

import (
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	core "github.com/open-rails/coursekit/core"
	memorylimiter "github.com/open-rails/coursekit/ratelimit/memory"
	redislimiter "github.com/open-rails/coursekit/ratelimit/redis"
)

// Service wraps core.Service with net/http mounting helpers.
type Service struct {
	svc      *core.Service
	rl       RateLimiter
	clientIP ClientIPFunc
}

// NewService wraps a core service for HTTP mounting. The in-memory
// limiter is the default; multi-instance deployments should swap in the
// Redis limiter via WithRedis or WithRateLimiter.
func NewService(cfg core.Config) *Service {
	return &Service{
		svc:      core.NewFromConfig(cfg),
		rl:       memorylimiter.New(ToMemoryLimits(DefaultRateLimits())),
		clientIP: DefaultClientIP(),
	}
}

// WrapService mounts an already-built core service.
func WrapService(svc *core.Service) *Service {
	return &Service{
		svc:      svc,
		rl:       memorylimiter.New(ToMemoryLimits(DefaultRateLimits())),
		clientIP: DefaultClientIP(),
	}
}

func (s *Service) WithPostgres(pg *pgxpool.Pool) *Service { s.svc.WithPostgres(pg); return s }
func (s *Service) WithEmailSender(es core.EmailSender) *Service {
	s.svc.WithEmailSender(es)
	return s
}
func (s *Service) WithCheckoutProvider(p core.CheckoutProvider) *Service {
	s.svc.WithCheckoutProvider(p)
	return s
}
func (s *Service) WithRedis(rd *redis.Client) *Service {
	if rd != nil {
		s.rl = redislimiter.New(rd, ToRedisLimits(DefaultRateLimits()))
	}
	return s
}
func (s *Service) WithRateLimiter(rl RateLimiter) *Service { s.rl = rl; return s }
func (s *Service) DisableRateLimiter() *Service            { s.rl = nil; return s }
func (s *Service) WithClientIPFunc(fn ClientIPFunc) *Service {
	if fn == nil {
		fn = DefaultClientIP()
	}
	s.clientIP = fn
	return s
}

func (s *Service) Core() *core.Service { return s.svc }

// APIHandler returns the JSON API routes under /api/*, wrapped in CORS.
// Method-qualified patterns answer 405 for wrong verbs on their own.
func (s *Service) APIHandler() http.Handler {
	mux := http.NewServeMux()

	// Credentials + sessions
	mux.Handle("POST /api/login", http.HandlerFunc(s.handleLoginPOST))
	mux.Handle("DELETE /api/logout", http.HandlerFunc(s.handleLogoutDELETE))
	mux.Handle("POST /api/magic-link/request", http.HandlerFunc(s.handleMagicLinkRequestPOST))
	mux.Handle("POST /api/magic-link/redeem", http.HandlerFunc(s.handleMagicLinkRedeemPOST))
	mux.Handle("POST /api/password/reset/request", http.HandlerFunc(s.handlePasswordResetRequestPOST))
	mux.Handle("POST /api/password/reset/confirm", http.HandlerFunc(s.handlePasswordResetConfirmPOST))

	// Admin credentials
	mux.Handle("POST /api/admin/login", http.HandlerFunc(s.handleAdminLoginPOST))
	mux.Handle("POST /api/admin/password/reset/request", http.HandlerFunc(s.handleAdminPasswordResetRequestPOST))
	mux.Handle("POST /api/admin/password/reset/confirm", http.HandlerFunc(s.handleAdminPasswordResetConfirmPOST))

	// Payment provider callback
	mux.Handle("POST /api/payments/confirm", http.HandlerFunc(s.handlePaymentsConfirmPOST))

	user := requireUser(s.svc)
	mux.Handle("GET /api/user/me", user(http.HandlerFunc(s.handleUserMeGET)))
	mux.Handle("GET /api/user/courses", user(http.HandlerFunc(s.handleUserCoursesGET)))
	mux.Handle("POST /api/user/password", user(http.HandlerFunc(s.handleUserPasswordPOST)))
	mux.Handle("POST /api/checkout", user(http.HandlerFunc(s.handleCheckoutPOST)))

	admin := requireAdmin(s.svc)
	mux.Handle("POST /api/admin/password", admin(http.HandlerFunc(s.handleAdminPasswordPOST)))
	mux.Handle("POST /api/admin/users/toggle-active", admin(http.HandlerFunc(s.handleAdminUserToggleActivePOST)))
	mux.Handle("POST /api/admin/users/set-password", admin(http.HandlerFunc(s.handleAdminUserSetPasswordPOST)))
	mux.Handle("POST /api/admin/grants/course", admin(http.HandlerFunc(s.handleAdminGrantCoursePOST)))
	mux.Handle("POST /api/admin/grants/product", admin(http.HandlerFunc(s.handleAdminGrantProductPOST)))
	mux.Handle("POST /api/admin/magic-link/send", admin(http.HandlerFunc(s.handleAdminMagicLinkSendPOST)))

	return withCORS(mux)
}
