package coursehttp

import (
	"net/http"
	"strings"
	"time"
)

type sessionResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (s *Service) handleLoginPOST(w http.ResponseWriter, r *http.Request) {
	if !s.allow(r, RLLogin) {
		tooMany(w)
		return
	}
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil || strings.TrimSpace(req.Email) == "" || req.Password == "" {
		badRequest(w, "invalid_request")
		return
	}
	token, exp, _, err := s.svc.LoginUser(r.Context(), req.Email, req.Password, s.clientMeta(r))
	if err != nil {
		respondErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{Token: token, ExpiresAt: exp})
}

func (s *Service) handleAdminLoginPOST(w http.ResponseWriter, r *http.Request) {
	if !s.allow(r, RLAdminLogin) {
		tooMany(w)
		return
	}
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil || strings.TrimSpace(req.Email) == "" || req.Password == "" {
		badRequest(w, "invalid_request")
		return
	}
	token, exp, _, err := s.svc.LoginAdmin(r.Context(), req.Email, req.Password, s.clientMeta(r))
	if err != nil {
		respondErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{Token: token, ExpiresAt: exp})
}
