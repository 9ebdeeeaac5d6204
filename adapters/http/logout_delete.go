package coursehttp

import "net/http"

// Logout is deliberately unauthenticated: revoking is idempotent and a
// missing or already-revoked token still answers 200 so a client can
// always clear its local state.
func (s *Service) handleLogoutDELETE(w http.ResponseWriter, r *http.Request) {
	if !s.allow(r, RLLogout) {
		tooMany(w)
		return
	}
	if err := s.svc.RevokeSession(r.Context(), bearerToken(r.Header.Get("Authorization"))); err != nil {
		respondErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}
