package handler

import (
	"net/http"

	"github.com/bettingtipspro/tracker/internal/domain"
	"github.com/bettingtipspro/tracker/internal/service"
)

// ProfileHandler serves the signed-in user's profile.
type ProfileHandler struct {
	profileSvc *service.ProfileService
}

// NewProfileHandler creates a ProfileHandler.
func NewProfileHandler(profileSvc *service.ProfileService) *ProfileHandler {
	return &ProfileHandler{profileSvc: profileSvc}
}

// Get handles GET /auth/profile.
func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}
	p, err := h.profileSvc.GetOrCreate(r.Context(), sess.UserID)
	if err != nil {
		RespondError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, p)
}

// Update handles PUT /auth/profile.
func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}
	var input domain.ProfileUpdate
	if err := DecodeJSON(w, r, &input); err != nil {
		RespondError(w, r, err)
		return
	}
	p, err := h.profileSvc.Update(r.Context(), sess.UserID, input)
	if err != nil {
		RespondError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, p)
}
