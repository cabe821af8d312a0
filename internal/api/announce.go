package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"showdesk/internal/constants"
	"showdesk/internal/db"
	"showdesk/internal/models"

	"github.com/google/uuid"
)

// Announcer pushes an announcement out to the configured distribution list.
type Announcer interface {
	SendAnnouncement(recipients []string, subject, body string) error
}

type AnnounceHandler struct {
	messages     *db.MessageRepository
	announcer    Announcer
	announceList []string
}

// announcer is nil when no relay is configured; announcements then only
// land in the show channel.
func NewAnnounceHandler(messages *db.MessageRepository, announcer Announcer, announceList []string) *AnnounceHandler {
	return &AnnounceHandler{
		messages:     messages,
		announcer:    announcer,
		announceList: announceList,
	}
}

type announceRequest struct {
	Subject string `json:"subject" validate:"required,max=200"`
	Body    string `json:"body" validate:"required,max=4000"`
}

type announceResponse struct {
	Message *models.Message `json:"message"`
	Relayed bool            `json:"relayed"`
}

// POST /api/v1/events/{eventID}/announce
//
// The announcement always lands in the show channel as a critical system
// message. Relay delivery happens after the insert; a relay failure is
// reported but never loses the in-channel copy.
func (h *AnnounceHandler) Announce(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventID")
	staffID := GetStaffID(r)

	var req announceRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	body := sanitizeBody(req.Subject + "\n\n" + req.Body)

	msg := &models.Message{
		ClientMessageID: uuid.NewString(),
		EventID:         eventID,
		AuthorUserID:    staffID,
		BodyText:        body,
		Type:            models.MessageTypeSystemCritical,
	}

	stored, err := h.messages.Create(r.Context(), msg)
	if err != nil {
		slog.Error("error storing announcement", "error", err, "event_id", eventID)
		internalError(w)
		return
	}

	if h.announcer == nil || len(h.announceList) == 0 {
		writeJSON(w, http.StatusCreated, announceResponse{Message: stored, Relayed: false})
		return
	}

	if err := h.announcer.SendAnnouncement(h.announceList, req.Subject, req.Body); err != nil {
		slog.Error("error relaying announcement", "error", err, "event_id", eventID)
		writeError(w, http.StatusBadGateway, constants.ErrCodeRelayFailed,
			"Announcement posted to the channel but relay delivery failed")
		return
	}

	writeJSON(w, http.StatusCreated, announceResponse{Message: stored, Relayed: true})
}
