package coursehttp

import "net/http"

func (s *Service) handleUserPasswordPOST(w http.ResponseWriter, r *http.Request) {
	if !s.allow(r, RLUserPasswordChange) {
		tooMany(w)
		return
	}
	p, ok := PrincipalFromContext(r.Context())
	if !ok || p.User == nil {
		unauthorized(w, "unauthorized")
		return
	}
	var req struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid_request")
		return
	}
	if err := s.svc.ChangeUserPassword(r.Context(), p.User.ID, req.CurrentPassword, req.NewPassword, bearerToken(r.Header.Get("Authorization"))); err != nil {
		respondErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}
