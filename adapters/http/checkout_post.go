package coursehttp

import (
	"net/http"
	"strings"
)

func (s *Service) handleCheckoutPOST(w http.ResponseWriter, r *http.Request) {
	if !s.allow(r, RLCheckout) {
		tooMany(w)
		return
	}
	p, ok := PrincipalFromContext(r.Context())
	if !ok || p.User == nil {
		unauthorized(w, "unauthorized")
		return
	}
	var req struct {
		ProductID string `json:"product_id"`
		Provider  string `json:"provider"`
	}
	if err := decodeJSON(r, &req); err != nil || strings.TrimSpace(req.ProductID) == "" {
		badRequest(w, "invalid_request")
		return
	}
	provider := strings.TrimSpace(req.Provider)
	if provider == "" {
		provider = "stripe"
	}
	res, err := s.svc.CreateCheckout(r.Context(), p.User, req.ProductID, provider)
	if err != nil {
		respondErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"order_ref":    res.OrderRef,
		"redirect_url": res.RedirectURL,
	})
}
