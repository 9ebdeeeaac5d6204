package coursehttp

import (
	"net/http"
	"time"
)

type userMeResponse struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	FullName    string     `json:"full_name"`
	HasPassword bool       `json:"has_password"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

func (s *Service) handleUserMeGET(w http.ResponseWriter, r *http.Request) {
	if !s.allow(r, RLUserMe) {
		tooMany(w)
		return
	}
	p, ok := PrincipalFromContext(r.Context())
	if !ok || p.User == nil {
		unauthorized(w, "unauthorized")
		return
	}
	u := p.User
	writeJSON(w, http.StatusOK, userMeResponse{
		ID:          u.ID,
		Email:       u.Email,
		FullName:    u.FullName,
		HasPassword: u.PasswordHash != nil,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
	})
}
