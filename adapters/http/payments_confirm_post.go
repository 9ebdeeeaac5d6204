package coursehttp

import (
	"net/http"
	"strings"
)

// handlePaymentsConfirmPOST is the payment provider callback. It is safe
// to replay: a purchase already completed answers 200 with
// already_confirmed set.
func (s *Service) handlePaymentsConfirmPOST(w http.ResponseWriter, r *http.Request) {
	if !s.allow(r, RLPaymentsConfirm) {
		tooMany(w)
		return
	}
	var req struct {
		OrderRef  string `json:"order_ref"`
		UserID    string `json:"user_id"`
		ProductID string `json:"product_id"`
		Provider  string `json:"provider"`
	}
	if err := decodeJSON(r, &req); err != nil || strings.TrimSpace(req.OrderRef) == "" {
		badRequest(w, "invalid_request")
		return
	}
	userID, productID := strings.TrimSpace(req.UserID), strings.TrimSpace(req.ProductID)
	if userID == "" || productID == "" {
		// Callbacks that only carry the order reference resolve the
		// purchase from the pending row recorded at checkout.
		var err error
		userID, productID, err = s.svc.FindPurchaseByOrderRef(r.Context(), req.OrderRef)
		if err != nil {
			respondErr(w, err)
			return
		}
	}
	provider := strings.TrimSpace(req.Provider)
	if provider == "" {
		provider = "stripe"
	}
	res, err := s.svc.ConfirmPurchase(r.Context(), userID, productID, req.OrderRef, provider)
	if err != nil {
		respondErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":                true,
		"purchase_id":       res.PurchaseID,
		"already_confirmed": res.AlreadyConfirmed,
	})
}
