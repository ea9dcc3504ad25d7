package handlers

import (
	"net/http"

	apierrors "github.com/pribylovaa/go-site-generator/internal/errors"
	"github.com/pribylovaa/go-site-generator/internal/models"
	"github.com/pribylovaa/go-site-generator/internal/service"
)

// promptString: отсутствующий prompt — пустая строка (сервис ответит
// "Please provide a valid prompt"), не-строка — ErrPromptMalformed.
func promptString(v any) (string, error) {
	switch p := v.(type) {
	case nil:
		return "", nil
	case string:
		return p, nil
	default:
		return "", service.ErrPromptMalformed
	}
}

// Generate — POST /v1/generate.
func (h *Handlers) Generate(w http.ResponseWriter, r *http.Request) {
	var in generateRequest
	if err := decodeStrict(w, r, &in); err != nil {
		apierrors.WriteError(w, r, service.ErrPromptMalformed)
		return
	}

	prompt, err := promptString(in.Prompt)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	refs := make([]models.Reference, 0, len(in.References))
	for _, ref := range in.References {
		refs = append(refs, models.Reference{
			Kind:  models.ReferenceKind(ref.Kind),
			URL:   ref.URL,
			Name:  ref.Name,
			Usage: models.ReferenceUsage(ref.Usage),
		})
	}

	html, err := h.svc.GenerateWebsite(r.Context(), service.GenerateInput{Prompt: prompt, References: refs})
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, generateResponse{HTML: html})
}

// EnhancePrompt — POST /v1/prompts/enhance.
func (h *Handlers) EnhancePrompt(w http.ResponseWriter, r *http.Request) {
	var in promptRequest
	if err := decodeStrict(w, r, &in); err != nil {
		apierrors.WriteError(w, r, service.ErrPromptMalformed)
		return
	}

	prompt, err := promptString(in.Prompt)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	out, err := h.svc.EnhancePrompt(r.Context(), prompt)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, enhanceResponse{EnhancedPrompt: out})
}
