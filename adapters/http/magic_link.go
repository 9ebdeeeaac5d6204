package coursehttp

import (
	"net/http"
	"strings"
)

// The request endpoint always answers 202 with the same body. Whether
// the email mapped to an account must not be observable from outside.
func (s *Service) handleMagicLinkRequestPOST(w http.ResponseWriter, r *http.Request) {
	if !s.allow(r, RLMagicLinkReq) {
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
	if err := s.svc.RequestMagicLink(r.Context(), req.Email); err != nil {
		respondErr(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"ok": true})
}

func (s *Service) handleMagicLinkRedeemPOST(w http.ResponseWriter, r *http.Request) {
	if !s.allow(r, RLMagicLinkRedeem) {
		tooMany(w)
		return
	}
	var req struct {
		Token string `json:"token"`
	}
	if err := decodeJSON(r, &req); err != nil || strings.TrimSpace(req.Token) == "" {
		badRequest(w, "invalid_request")
		return
	}
	token, exp, _, err := s.svc.RedeemMagicLink(r.Context(), req.Token, s.clientMeta(r))
	if err != nil {
		respondErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{Token: token, ExpiresAt: exp})
}

func (s *Service) handleAdminMagicLinkSendPOST(w http.ResponseWriter, r *http.Request) {
	if !s.allow(r, RLAdminOps) {
		tooMany(w)
		return
	}
	var req struct {
		Email    string `json:"email"`
		FullName string `json:"full_name"`
	}
	if err := decodeJSON(r, &req); err != nil || strings.TrimSpace(req.Email) == "" {
		badRequest(w, "invalid_request")
		return
	}
	if err := s.svc.SendMagicLink(r.Context(), req.Email, req.FullName); err != nil {
		respondErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}
