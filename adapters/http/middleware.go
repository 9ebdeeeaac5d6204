package coursehttp

import (
	"context"
	"net/http"

	core "github.com/open-rails/coursekit/core"
)

type ctxKey int

const principalKey ctxKey = iota

// PrincipalFromContext returns the resolved principal attached by the
// auth middleware.
func PrincipalFromContext(ctx context.Context) (*core.Principal, bool) {
	p, ok := ctx.Value(principalKey).(*core.Principal)
	return p, ok
}

// requireUser resolves the bearer token and admits only user sessions.
// Resolve is the single place session validity is decided; the
// middleware just routes its verdict.
func requireUser(svc *core.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, err := svc.Resolve(r.Context(), bearerToken(r.Header.Get("Authorization")))
			if err != nil {
				unauthorized(w, "unauthorized")
				return
			}
			if p.Kind != core.PrincipalUser || p.User == nil {
				forbidden(w, "forbidden")
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), principalKey, p)))
		})
	}
}

// requireAdmin is requireUser for admin sessions.
func requireAdmin(svc *core.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, err := svc.Resolve(r.Context(), bearerToken(r.Header.Get("Authorization")))
			if err != nil {
				unauthorized(w, "unauthorized")
				return
			}
			if p.Kind != core.PrincipalAdmin || p.Admin == nil {
				forbidden(w, "forbidden")
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), principalKey, p)))
		})
	}
}

// withCORS answers pre-flight requests and stamps the permissive headers
// the storefront frontend expects. The API is bearer-token based, so the
// wildcard origin does not expose cookie-bearing endpoints.
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
		h.Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
