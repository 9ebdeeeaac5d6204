package coursehttp

import (
	"errors"
	"net/http"
	"strings"

	core "github.com/open-rails/coursekit/core"
)

func (s *Service) handleAdminGrantCoursePOST(w http.ResponseWriter, r *http.Request) {
	if !s.allow(r, RLAdminOps) {
		tooMany(w)
		return
	}
	var req struct {
		UserID   string `json:"user_id"`
		CourseID string `json:"course_id"`
	}
	if err := decodeJSON(r, &req); err != nil ||
		strings.TrimSpace(req.UserID) == "" || strings.TrimSpace(req.CourseID) == "" {
		badRequest(w, "invalid_request")
		return
	}
	if err := s.svc.GrantCourseAccess(r.Context(), req.UserID, req.CourseID); err != nil {
		respondErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Service) handleAdminGrantProductPOST(w http.ResponseWriter, r *http.Request) {
	if !s.allow(r, RLAdminOps) {
		tooMany(w)
		return
	}
	var req struct {
		UserID    string `json:"user_id"`
		ProductID string `json:"product_id"`
	}
	if err := decodeJSON(r, &req); err != nil ||
		strings.TrimSpace(req.UserID) == "" || strings.TrimSpace(req.ProductID) == "" {
		badRequest(w, "invalid_request")
		return
	}
	err := s.svc.GrantProductAccess(r.Context(), req.UserID, req.ProductID, core.ProviderAdminGranted)
	if errors.Is(err, core.ErrAlreadyGranted) {
		// Granting something already owned is fine from the dashboard.
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "already_granted": true})
		return
	}
	if err != nil {
		respondErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}
