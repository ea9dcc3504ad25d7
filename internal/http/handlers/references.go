package handlers

import (
	"net/http"

	apierrors "github.com/pribylovaa/go-site-generator/internal/errors"
)

// ReferencePresign — POST /v1/references/presign.
func (h *Handlers) ReferencePresign(w http.ResponseWriter, r *http.Request) {
	uid, ok := currentUser(w, r)
	if !ok {
		return
	}

	var in presignRequest
	if err := decodeStrict(w, r, &in); err != nil {
		apierrors.WriteError(w, r, errInvalidBody)
		return
	}

	info, err := h.svc.ReferenceUploadURL(r.Context(), uid, in.ContentType, in.ContentLength)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, presignFromInfo(info))
}

// ReferenceConfirm — POST /v1/references/confirm.
func (h *Handlers) ReferenceConfirm(w http.ResponseWriter, r *http.Request) {
	uid, ok := currentUser(w, r)
	if !ok {
		return
	}

	var in referenceConfirmRequest
	if err := decodeStrict(w, r, &in); err != nil {
		apierrors.WriteError(w, r, errInvalidBody)
		return
	}

	ref, err := h.svc.ConfirmReferenceUpload(r.Context(), uid, in.Key)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, uploadedReferenceResponse{Key: ref.Key, URL: ref.URL, Kind: string(ref.Kind)})
}

// ReferencePreview — POST /v1/references/preview.
func (h *Handlers) ReferencePreview(w http.ResponseWriter, r *http.Request) {
	var in previewRequest
	if err := decodeStrict(w, r, &in); err != nil {
		apierrors.WriteError(w, r, errInvalidBody)
		return
	}

	sum, err := h.svc.PreviewReference(r.Context(), in.URL)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, previewResponse{
		URL:         sum.URL,
		Title:       sum.Title,
		Description: sum.Description,
		Excerpt:     sum.Excerpt,
	})
}
