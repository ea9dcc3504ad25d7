package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/pribylovaa/go-site-generator/internal/errors"
)

// StartConversation — POST /v1/conversations.
func (h *Handlers) StartConversation(w http.ResponseWriter, r *http.Request) {
	uid, ok := currentUser(w, r)
	if !ok {
		return
	}

	conv, err := h.svc.StartConversation(r.Context(), uid)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, conversationFromModel(conv))
}

// GetConversation — GET /v1/conversations/{id}.
func (h *Handlers) GetConversation(w http.ResponseWriter, r *http.Request) {
	uid, ok := currentUser(w, r)
	if !ok {
		return
	}

	conv, err := h.svc.Conversation(r.Context(), uid, chi.URLParam(r, "id"))
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, conversationFromModel(conv))
}

// SendMessage — POST /v1/conversations/{id}/messages.
func (h *Handlers) SendMessage(w http.ResponseWriter, r *http.Request) {
	uid, ok := currentUser(w, r)
	if !ok {
		return
	}

	var in messageRequest
	if err := decodeStrict(w, r, &in); err != nil {
		apierrors.WriteError(w, r, errInvalidBody)
		return
	}

	reply, err := h.svc.SendMessage(r.Context(), uid, chi.URLParam(r, "id"), in.Content)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, replyResponse{
		Response:         reply.Response,
		ReadyToGenerate:  reply.ReadyToGenerate,
		GenerationPrompt: reply.GenerationPrompt,
	})
}
