package coursehttp

import (
	"net/http"
	"time"
)

type courseItem struct {
	CourseID  string    `json:"course_id"`
	Title     string    `json:"title"`
	GrantedAt time.Time `json:"granted_at"`
}

func (s *Service) handleUserCoursesGET(w http.ResponseWriter, r *http.Request) {
	if !s.allow(r, RLUserCourses) {
		tooMany(w)
		return
	}
	p, ok := PrincipalFromContext(r.Context())
	if !ok || p.User == nil {
		unauthorized(w, "unauthorized")
		return
	}
	list, err := s.svc.ListUserCourses(r.Context(), p.User.ID)
	if err != nil {
		respondErr(w, err)
		return
	}
	items := make([]courseItem, 0, len(list))
	for _, e := range list {
		items = append(items, courseItem{
			CourseID:  e.CourseID,
			Title:     e.CourseTitle,
			GrantedAt: e.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"courses": items})
}
