package coursehttp

import (
	"net/http"
	"strings"
)

func (s *Service) handlePasswordResetRequestPOST(w http.ResponseWriter, r *http.Request) {
	if !s.allow(r, RLPasswordResetRequest) {
		tooMany(w)
		return
	}
	var req struct {
		Email string `json:"email"`
	}
	if err := decodeJSON(r, &req); err != nil || strings.TrimSpace(req.Email) == "" {
		badRequest(w, "invalid_request")
		return
	}
	// Same 202 for known and unknown emails.
	if err := s.svc.RequestPasswordReset(r.Context(), req.Email); err != nil {
		respondErr(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"ok": true})
}

func (s *Service) handlePasswordResetConfirmPOST(w http.ResponseWriter, r *http.Request) {
	if !s.allow(r, RLPasswordResetConfirm) {
		tooMany(w)
		return
	}
	var req struct {
		Token       string `json:"token"`
		NewPassword string `json:"new_password"`
	}
	if err := decodeJSON(r, &req); err != nil || strings.TrimSpace(req.Token) == "" {
		badRequest(w, "invalid_request")
		return
	}
	if err := s.svc.ConfirmPasswordReset(r.Context(), req.Token, req.NewPassword); err != nil {
		respondErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Service) handleAdminPasswordResetRequestPOST(w http.ResponseWriter, r *http.Request) {
	if !s.allow(r, RLPasswordResetRequest) {
		tooMany(w)
		return
	}
	var req struct {
		Email string `json:"email"`
	}
	if err := decodeJSON(r, &req); err != nil || strings.TrimSpace(req.Email) == "" {
		badRequest(w, "invalid_request")
		return
	}
	if err := s.svc.RequestAdminPasswordReset(r.Context(), req.Email); err != nil {
		respondErr(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"ok": true})
}

func (s *Service) handleAdminPasswordResetConfirmPOST(w http.ResponseWriter, r *http.Request) {
	if !s.allow(r, RLPasswordResetConfirm) {
		tooMany(w)
		return
	}
	var req struct {
		Token       string `json:"token"`
		NewPassword string `json:"new_password"`
	}
	if err := decodeJSON(r, &req); err != nil || strings.TrimSpace(req.Token) == "" {
		badRequest(w, "invalid_request")
		return
	}
	if err := s.svc.ConfirmAdminPasswordReset(r.Context(), req.Token, req.NewPassword); err != nil {
		respondErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}
