package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"showdesk/internal/constants"
	"showdesk/internal/db"
	"showdesk/internal/translate"
)

type TranslateHandler struct {
	messages   *db.MessageRepository
	translator translate.Translator
}

func NewTranslateHandler(messages *db.MessageRepository, translator translate.Translator) *TranslateHandler {
	return &TranslateHandler{
		messages:   messages,
		translator: translator,
	}
}

type translateRequest struct {
	TargetLanguage string `json:"targetLanguage" validate:"required,max=16"`
}

// POST /api/v1/messages/{messageID}/translate
func (h *TranslateHandler) Translate(w http.ResponseWriter, r *http.Request) {
	messageID := chi.URLParam(r, "messageID")

	var req translateRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	msg, err := h.messages.FindByID(r.Context(), messageID)
	if errors.Is(err, db.ErrNotFound) {
		notFound(w, "Message not found")
		return
	}
	if err != nil {
		slog.Error("error loading message for translation", "error", err, "message_id", messageID)
		internalError(w)
		return
	}

	result, err := h.translator.Translate(r.Context(), msg.BodyText, req.TargetLanguage)
	if errors.Is(err, translate.ErrNotConfigured) {
		writeError(w, http.StatusBadGateway, constants.ErrCodeTranslationFailed, "Translation service is not configured")
		return
	}
	if err != nil {
		slog.Error("error translating message", "error", err, "message_id", messageID)
		writeError(w, http.StatusBadGateway, constants.ErrCodeTranslationFailed, "Translation service failed")
		return
	}

	writeJSON(w, http.StatusOK, result)
}
