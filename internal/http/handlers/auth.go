package handlers

import (
	"net/http"

	apierrors "github.com/pribylovaa/go-site-generator/internal/errors"
	"github.com/pribylovaa/go-site-generator/internal/ratelimit"
	"github.com/pribylovaa/go-site-generator/internal/service"
)

// VerifyCaptcha — POST /v1/captcha/verify. Отклонённый токен — 400
// с success=false, как у провайдера.
func (h *Handlers) VerifyCaptcha(w http.ResponseWriter, r *http.Request) {
	var in captchaRequest
	if err := decodeStrict(w, r, &in); err != nil {
		apierrors.WriteError(w, r, errInvalidBody)
		return
	}

	ok, err := h.svc.VerifyCaptcha(r.Context(), in.Token, ratelimit.ClientIP(r, h.trustProxy))
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	status := http.StatusOK
	if !ok {
		status = http.StatusBadRequest
	}

	writeJSON(w, status, captchaResponse{Success: ok})
}

// RegisterUser — POST /v1/auth/register.
func (h *Handlers) RegisterUser(w http.ResponseWriter, r *http.Request) {
	var in registerRequest
	if err := decodeStrict(w, r, &in); err != nil {
		apierrors.WriteError(w, r, errInvalidBody)
		return
	}

	tp, uid, err := h.svc.RegisterUser(r.Context(), service.RegisterInput{
		Email:        in.Email,
		Password:     in.Password,
		CaptchaToken: in.CaptchaToken,
		RemoteIP:     ratelimit.ClientIP(r, h.trustProxy),
	})
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, tokenPairFromModel(tp, uid.String()))
}

// LoginUser — POST /v1/auth/login.
func (h *Handlers) LoginUser(w http.ResponseWriter, r *http.Request) {
	var in loginRequest
	if err := decodeStrict(w, r, &in); err != nil {
		apierrors.WriteError(w, r, errInvalidBody)
		return
	}

	tp, uid, err := h.svc.LoginUser(r.Context(), in.Email, in.Password)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, tokenPairFromModel(tp, uid.String()))
}

// RefreshToken — POST /v1/auth/refresh.
func (h *Handlers) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var in refreshRequest
	if err := decodeStrict(w, r, &in); err != nil {
		apierrors.WriteError(w, r, errInvalidBody)
		return
	}

	tp, uid, err := h.svc.RefreshToken(r.Context(), in.RefreshToken)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, tokenPairFromModel(tp, uid.String()))
}

// Logout — POST /v1/auth/logout.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	var in refreshRequest
	if err := decodeStrict(w, r, &in); err != nil {
		apierrors.WriteError(w, r, errInvalidBody)
		return
	}

	if err := h.svc.RevokeToken(r.Context(), in.RefreshToken); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ChangePassword — PUT /v1/auth/password.
func (h *Handlers) ChangePassword(w http.ResponseWriter, r *http.Request) {
	uid, ok := currentUser(w, r)
	if !ok {
		return
	}

	var in changePasswordRequest
	if err := decodeStrict(w, r, &in); err != nil {
		apierrors.WriteError(w, r, errInvalidBody)
		return
	}

	if err := h.svc.ChangePassword(r.Context(), uid, in.OldPassword, in.NewPassword); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
