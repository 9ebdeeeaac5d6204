package coursehttp

import (
	"net/http"
	"strings"
)

func (s *Service) handleAdminUserToggleActivePOST(w http.ResponseWriter, r *http.Request) {
	if !s.allow(r, RLAdminOps) {
		tooMany(w)
		return
	}
	var req struct {
		UserID string `json:"user_id"`
		Active bool   `json:"active"`
	}
	if err := decodeJSON(r, &req); err != nil || strings.TrimSpace(req.UserID) == "" {
		badRequest(w, "invalid_request")
		return
	}
	if err := s.svc.SetUserActive(r.Context(), req.UserID, req.Active); err != nil {
		respondErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "active": req.Active})
}

func (s *Service) handleAdminUserSetPasswordPOST(w http.ResponseWriter, r *http.Request) {
	if !s.allow(r, RLAdminOps) {
		tooMany(w)
		return
	}
	var req struct {
		UserID      string `json:"user_id"`
		NewPassword string `json:"new_password"`
	}
	if err := decodeJSON(r, &req); err != nil || strings.TrimSpace(req.UserID) == "" {
		badRequest(w, "invalid_request")
		return
	}
	if err := s.svc.AdminSetUserPassword(r.Context(), req.UserID, req.NewPassword); err != nil {
		respondErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}
