package handlers

import (
	"net/http"

	apierrors "github.com/pribylovaa/go-site-generator/internal/errors"
	"github.com/pribylovaa/go-site-generator/internal/service"
)

// GetProfile — GET /v1/profile.
func (h *Handlers) GetProfile(w http.ResponseWriter, r *http.Request) {
	uid, ok := currentUser(w, r)
	if !ok {
		return
	}

	p, err := h.svc.Profile(r.Context(), uid)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, profileFromModel(p))
}

// GenerateAvatar — POST /v1/profile/avatar/generate.
func (h *Handlers) GenerateAvatar(w http.ResponseWriter, r *http.Request) {
	uid, ok := currentUser(w, r)
	if !ok {
		return
	}

	var in avatarRequest
	if err := decodeStrict(w, r, &in); err != nil {
		apierrors.WriteError(w, r, errInvalidBody)
		return
	}

	prompt, err := promptString(in.Prompt)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	url, err := h.svc.GenerateAvatar(r.Context(), uid, service.AvatarInput{Prompt: prompt, Style: in.Style})
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, avatarResponse{AvatarURL: url})
}

// AvatarPresign — POST /v1/profile/avatar/presign.
func (h *Handlers) AvatarPresign(w http.ResponseWriter, r *http.Request) {
	uid, ok := currentUser(w, r)
	if !ok {
		return
	}

	var in presignRequest
	if err := decodeStrict(w, r, &in); err != nil {
		apierrors.WriteError(w, r, errInvalidBody)
		return
	}

	info, err := h.svc.AvatarUploadURL(r.Context(), uid, in.ContentType, in.ContentLength)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, presignFromInfo(info))
}

// AvatarConfirm — POST /v1/profile/avatar/confirm.
func (h *Handlers) AvatarConfirm(w http.ResponseWriter, r *http.Request) {
	uid, ok := currentUser(w, r)
	if !ok {
		return
	}

	var in avatarConfirmRequest
	if err := decodeStrict(w, r, &in); err != nil {
		apierrors.WriteError(w, r, errInvalidBody)
		return
	}

	p, err := h.svc.ConfirmAvatarUpload(r.Context(), uid, in.AvatarKey)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, profileFromModel(p))
}
