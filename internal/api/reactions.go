package api

import (
	"errors"
	"log/slog"
	"net/http"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"

	"showdesk/internal/constants"
	"showdesk/internal/db"
	"showdesk/internal/models"
	"showdesk/internal/reactions"
)

type ReactionHandler struct {
	reactions *db.ReactionRepository
	messages  *db.MessageRepository
}

func NewReactionHandler(reactionRepo *db.ReactionRepository, messages *db.MessageRepository) *ReactionHandler {
	return &ReactionHandler{
		reactions: reactionRepo,
		messages:  messages,
	}
}

type toggleReactionRequest struct {
	Emoji string `json:"emoji" validate:"required"`
}

type toggleReactionResponse struct {
	Reactions       []models.Reaction        `json:"reactions"`
	ReactionSummary []models.ReactionSummary `json:"reactionSummary"`
}

// POST /api/v1/messages/{messageID}/reactions
func (h *ReactionHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	messageID := chi.URLParam(r, "messageID")
	staffID := GetStaffID(r)

	var req toggleReactionRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	if utf8.RuneCountInString(req.Emoji) > constants.MaxEmojiLength {
		badRequest(w, "Emoji payload is too long")
		return
	}

	if _, err := h.messages.FindByID(r.Context(), messageID); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			notFound(w, "Message not found")
			return
		}
		slog.Error("error loading message for reaction", "error", err, "message_id", messageID)
		internalError(w)
		return
	}

	if _, err := h.reactions.Toggle(r.Context(), messageID, staffID, req.Emoji); err != nil {
		slog.Error("error toggling reaction", "error", err, "message_id", messageID)
		internalError(w)
		return
	}

	rows, err := h.reactions.ListByMessage(r.Context(), messageID)
	if err != nil {
		slog.Error("error listing reactions", "error", err, "message_id", messageID)
		internalError(w)
		return
	}

	writeJSON(w, http.StatusOK, toggleReactionResponse{
		Reactions:       rows,
		ReactionSummary: reactions.Summarize(rows, staffID),
	})
}
