package handler

import (
	"net/http"

	"github.com/zerotrust/platform/internal/auth"
	"github.com/zerotrust/platform/internal/domain"
	"github.com/zerotrust/platform/internal/service"
)

// CodePolicyBlocked is returned when the policy engine blocks a verified login.
const CodePolicyBlocked = "POLICY_BLOCKED"

// AuthHandler handles registration, OTP, and session endpoints.
type AuthHandler struct {
	authSvc *service.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authSvc *service.AuthService) *AuthHandler {
	return &AuthHandler{authSvc: authSvc}
}

// Client builds the service client context from the request.
func Client(r *http.Request) service.ClientContext {
	return service.ClientContext{
		IP:          ClientIP(r),
		UserAgent:   r.UserAgent(),
		Fingerprint: r.Header.Get(FingerprintHeader),
	}
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var input service.RegisterInput
	if err := DecodeJSON(r, &input); err != nil {
		RespondBadBody(w)
		return
	}

	result, err := h.authSvc.Register(r.Context(), Client(r), input)
	if err != nil {
		RespondError(w, err)
		return
	}

	RespondJSON(w, http.StatusCreated, result)
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var input service.LoginInput
	if err := DecodeJSON(r, &input); err != nil {
		RespondBadBody(w)
		return
	}

	result, err := h.authSvc.Login(r.Context(), Client(r), input)
	if err != nil {
		RespondError(w, err)
		return
	}

	RespondJSON(w, http.StatusOK, result)
}

// VerifyOTP handles POST /auth/otp/verify. The device fingerprint is echoed in
// the response header so the client can persist it.
func (h *AuthHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var input service.VerifyInput
	if err := DecodeJSON(r, &input); err != nil {
		RespondBadBody(w)
		return
	}

	result, err := h.authSvc.VerifyOTP(r.Context(), Client(r), input)
	if err != nil {
		RespondError(w, err)
		return
	}

	w.Header().Set(FingerprintHeader, result.Fingerprint)
	if result.Token == "" {
		RespondJSON(w, http.StatusForbidden, map[string]interface{}{
			"code":    CodePolicyBlocked,
			"message": "access blocked by policy",
			"policy":  result.Policy,
		})
		return
	}
	RespondJSON(w, http.StatusOK, result)
}

// ResendOTP handles POST /auth/otp/resend.
func (h *AuthHandler) ResendOTP(w http.ResponseWriter, r *http.Request) {
	var input service.ResendInput
	if err := DecodeJSON(r, &input); err != nil {
		RespondBadBody(w)
		return
	}

	result, err := h.authSvc.ResendOTP(r.Context(), Client(r), input)
	if err != nil {
		RespondError(w, err)
		return
	}

	RespondJSON(w, http.StatusOK, result)
}

// Logout handles POST /auth/logout.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	session := auth.SessionFromContext(r.Context())
	if session == nil {
		RespondError(w, domain.ErrUnauthorized("no session"))
		return
	}
	if err := h.authSvc.Logout(r.Context(), Client(r), session); err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusNoContent, nil)
}

// Me handles GET /me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	session := auth.SessionFromContext(r.Context())
	if session == nil {
		RespondError(w, domain.ErrUnauthorized("no session"))
		return
	}
	view, err := h.authSvc.CurrentSession(r.Context(), session)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, view)
}

// RequestDeviceApproval handles POST /devices/me/approval-request.
func (h *AuthHandler) RequestDeviceApproval(w http.ResponseWriter, r *http.Request) {
	session := auth.SessionFromContext(r.Context())
	if session == nil {
		RespondError(w, domain.ErrUnauthorized("no session"))
		return
	}
	dev, err := h.authSvc.RequestDeviceApproval(r.Context(), Client(r), session)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusAccepted, dev)
}
