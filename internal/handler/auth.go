package handler

import (
	"net"
	"net/http"

	"github.com/bettingtipspro/tracker/internal/auth"
	"github.com/bettingtipspro/tracker/internal/domain"
	"github.com/bettingtipspro/tracker/internal/service"
)

// AuthHandler handles sign-up, sign-in, sign-out and password resets.
type AuthHandler struct {
	authSvc *service.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authSvc *service.AuthService) *AuthHandler {
	return &AuthHandler{authSvc: authSvc}
}

// SignUp handles POST /auth/signup.
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var input service.Credentials
	if err := DecodeJSON(w, r, &input); err != nil {
		RespondError(w, r, err)
		return
	}

	result, err := h.authSvc.SignUp(r.Context(), input)
	if err != nil {
		RespondError(w, r, err)
		return
	}

	RespondJSON(w, http.StatusCreated, result)
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var input service.Credentials
	if err := DecodeJSON(w, r, &input); err != nil {
		RespondError(w, r, err)
		return
	}

	result, err := h.authSvc.SignIn(r.Context(), input, clientIP(r))
	if err != nil {
		RespondError(w, r, err)
		return
	}

	RespondJSON(w, http.StatusOK, result)
}

// Logout handles POST /auth/logout.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}
	if err := h.authSvc.SignOut(r.Context(), sess); err != nil {
		RespondError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, nil)
}

type resetRequest struct {
	Email string `json:"email"`
}

// RequestPasswordReset handles POST /auth/password-reset.
func (h *AuthHandler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var input resetRequest
	if err := DecodeJSON(w, r, &input); err != nil {
		RespondError(w, r, err)
		return
	}
	if err := h.authSvc.RequestPasswordReset(r.Context(), input.Email); err != nil {
		RespondError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusAccepted, map[string]string{
		"message": "Si un compte existe pour cet email, un lien de réinitialisation a été envoyé.",
	})
}

type resetConfirm struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

// ConfirmPasswordReset handles POST /auth/password-reset/confirm.
func (h *AuthHandler) ConfirmPasswordReset(w http.ResponseWriter, r *http.Request) {
	var input resetConfirm
	if err := DecodeJSON(w, r, &input); err != nil {
		RespondError(w, r, err)
		return
	}
	if err := h.authSvc.ConfirmPasswordReset(r.Context(), input.Token, input.Password); err != nil {
		RespondError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]string{"message": "Mot de passe mis à jour"})
}

// requireSession returns the authenticated session or writes a 401.
func requireSession(w http.ResponseWriter, r *http.Request) (*auth.Session, bool) {
	sess := auth.SessionFromContext(r.Context())
	if sess == nil {
		RespondError(w, r, domain.ErrUnauthorized(""))
		return nil, false
	}
	return sess, true
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
