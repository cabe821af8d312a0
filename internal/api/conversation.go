package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"showdesk/internal/db"
	"showdesk/internal/models"
)

type ConversationHandler struct {
	convos *db.ConversationRepository
}

func NewConversationHandler(convos *db.ConversationRepository) *ConversationHandler {
	return &ConversationHandler{convos: convos}
}

// GET /api/v1/events/{eventID}/conversation
func (h *ConversationHandler) Get(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventID")

	conv, err := h.convos.Get(r.Context(), eventID)
	if err != nil {
		slog.Error("error loading conversation", "error", err, "event_id", eventID)
		internalError(w)
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

// PATCH /api/v1/events/{eventID}/conversation
func (h *ConversationHandler) Patch(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventID")

	var patch models.ConversationPatch
	if err := decodeAndValidate(r.Body, &patch); err != nil {
		badRequest(w, err.Error())
		return
	}

	conv, err := h.convos.Patch(r.Context(), eventID, patch)
	if err != nil {
		slog.Error("error patching conversation", "error", err, "event_id", eventID)
		internalError(w)
		return
	}
	writeJSON(w, http.StatusOK, conv)
}
