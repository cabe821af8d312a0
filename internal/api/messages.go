package api

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/microcosm-cc/bluemonday"

	"showdesk/internal/constants"
	"showdesk/internal/db"
	"showdesk/internal/mediaurl"
	"showdesk/internal/mention"
	"showdesk/internal/models"
	"showdesk/internal/reactions"
)

var bodyPolicy = bluemonday.StrictPolicy()

type MessageHandler struct {
	messages *db.MessageRepository
	convos   *db.ConversationRepository
	staff    *db.StaffRepository
	blobs    *db.BlobRepository
}

func NewMessageHandler(
	messages *db.MessageRepository,
	convos *db.ConversationRepository,
	staff *db.StaffRepository,
	blobs *db.BlobRepository,
) *MessageHandler {
	return &MessageHandler{
		messages: messages,
		convos:   convos,
		staff:    staff,
		blobs:    blobs,
	}
}

type listMessagesResponse struct {
	Messages     []*models.Message    `json:"messages"`
	Conversation *models.Conversation `json:"conversation"`
}

// GET /api/v1/events/{eventID}/messages
func (h *MessageHandler) List(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventID")

	limit, ok := parseListLimit(w, r)
	if !ok {
		return
	}

	messages, err := h.messages.ListByEvent(r.Context(), eventID, limit)
	if err != nil {
		slog.Error("error listing messages", "error", err, "event_id", eventID)
		internalError(w)
		return
	}

	currentUserID := GetStaffID(r)
	for _, msg := range messages {
		msg.ReactionSummary = reactions.Summarize(msg.Reactions, currentUserID)
	}

	conv, err := h.convos.Get(r.Context(), eventID)
	if err != nil {
		slog.Error("error loading conversation", "error", err, "event_id", eventID)
		internalError(w)
		return
	}

	writeJSON(w, http.StatusOK, listMessagesResponse{
		Messages:     messages,
		Conversation: conv,
	})
}

type sendMessageRequest struct {
	ClientMessageID string              `json:"clientMessageId" validate:"required,uuid4"`
	BodyText        string              `json:"bodyText"`
	LanguageHint    string              `json:"languageHint" validate:"omitempty,max=16"`
	Mentions        []models.Mention    `json:"mentions" validate:"omitempty"`
	Attachments     []models.Attachment `json:"attachments" validate:"omitempty,dive"`
}

// POST /api/v1/events/{eventID}/messages
func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventID")
	staffID := GetStaffID(r)

	var req sendMessageRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	body := sanitizeBody(req.BodyText)
	if body == "" && len(req.Attachments) == 0 {
		writeError(w, http.StatusBadRequest, constants.ErrCodeEmptyMessage, "Message has no text and no attachments")
		return
	}
	if utf8.RuneCountInString(body) > constants.MessageBodyMaxChars {
		writeError(w, http.StatusBadRequest, constants.ErrCodeMessageTooLong,
			fmt.Sprintf("Message exceeds %d characters", constants.MessageBodyMaxChars))
		return
	}
	if len(req.Attachments) > constants.MaxAttachmentsPerMessage {
		writeError(w, http.StatusBadRequest, constants.ErrCodeAttachmentInvalid,
			fmt.Sprintf("At most %d attachments per message", constants.MaxAttachmentsPerMessage))
		return
	}

	blobIDs := make([]string, 0, len(req.Attachments))
	for _, att := range req.Attachments {
		blobID, ok := mediaurl.ParseBlobID(att.URL)
		if !ok {
			writeError(w, http.StatusBadRequest, constants.ErrCodeAttachmentInvalid, "Attachment URL is not a stored upload")
			return
		}
		if _, err := h.blobs.GetByID(r.Context(), blobID); err != nil {
			writeError(w, http.StatusBadRequest, constants.ErrCodeAttachmentInvalid, "Attachment upload not found")
			return
		}
		blobIDs = append(blobIDs, blobID)
	}

	// Mentions are resolved server side against the current roster, so a
	// stale or hand-crafted client mention list cannot ping anyone.
	roster, err := h.buildRoster(r.Context())
	if err != nil {
		slog.Error("error building mention roster", "error", err)
		internalError(w)
		return
	}

	msg := &models.Message{
		ClientMessageID: req.ClientMessageID,
		EventID:         eventID,
		AuthorUserID:    staffID,
		BodyText:        body,
		Type:            models.MessageTypeUser,
		LanguageHint:    strings.TrimSpace(req.LanguageHint),
		Mentions:        mention.Parse(body, roster),
		Attachments:     req.Attachments,
	}

	stored, err := h.messages.Create(r.Context(), msg)
	if err != nil {
		slog.Error("error storing message", "error", err, "event_id", eventID)
		internalError(w)
		return
	}

	if err := h.blobs.MarkAttached(r.Context(), blobIDs); err != nil {
		slog.Warn("error marking attachments claimed", "error", err, "message_id", stored.ID)
	}

	stored.ReactionSummary = reactions.Summarize(stored.Reactions, staffID)
	writeJSON(w, http.StatusCreated, stored)
}

func (h *MessageHandler) buildRoster(ctx context.Context) (*mention.Roster, error) {
	members, err := h.staff.List(ctx)
	if err != nil {
		return nil, err
	}
	roleKeys, err := h.staff.RoleKeys(ctx)
	if err != nil {
		return nil, err
	}

	staff := make([]models.StaffMember, 0, len(members))
	for _, m := range members {
		staff = append(staff, *m)
	}
	return mention.NewRoster(staff, roleKeys), nil
}

func parseListLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	limitStr := strings.TrimSpace(r.URL.Query().Get("limit"))
	if limitStr == "" {
		return defaultMessageListLimit, true
	}

	limit, err := strconv.Atoi(limitStr)
	if err != nil {
		badRequest(w, "Query parameter 'limit' must be an integer")
		return 0, false
	}
	if limit <= 0 || limit > constants.MessageHistoryMaxLimit {
		badRequest(w, fmt.Sprintf("Query parameter 'limit' must be between 1 and %d", constants.MessageHistoryMaxLimit))
		return 0, false
	}
	return limit, true
}

const defaultMessageListLimit = 50

// sanitizeBody strips markup, unescapes entities the sanitizer introduced,
// normalizes line endings and trims surrounding whitespace.
func sanitizeBody(body string) string {
	body = bodyPolicy.Sanitize(body)
	body = html.UnescapeString(body)
	body = strings.ReplaceAll(body, "\r\n", "\n")
	body = strings.ReplaceAll(body, "\r", "\n")
	return strings.TrimSpace(body)
}
