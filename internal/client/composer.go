package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"showdesk/internal/mention"
	"showdesk/internal/models"
	"showdesk/internal/outbox"
	"showdesk/internal/reactions"
	"showdesk/internal/store"
)

// ErrEmptyMessage is returned when a send has neither body text nor
// attachments. No state is touched in that case.
var ErrEmptyMessage = errors.New("message has no body text and no attachments")

// ErrUnknownMessage is returned by Retry for a clientMessageId the outbox has
// never seen.
var ErrUnknownMessage = errors.New("no outbox entry for client message id")

// Composer builds and sends messages for one event's show channel. Every send
// gets a clientMessageId exactly once; retries, whether user-initiated or via
// the reconnect sweep, reuse it.
type Composer struct {
	api     API
	store   *store.Store
	outbox  *outbox.Queue
	eventID string
	author  models.StaffMember

	mu     sync.Mutex
	roster *mention.Roster

	now   func() time.Time
	newID func() string
}

func NewComposer(api API, msgStore *store.Store, queue *outbox.Queue, eventID string, author models.StaffMember) *Composer {
	return &Composer{
		api:     api,
		store:   msgStore,
		outbox:  queue,
		eventID: eventID,
		author:  author,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// SetRoster installs the mention resolution tables, typically after fetching
// the event roster. Safe to call while sends are in flight.
func (c *Composer) SetRoster(roster *mention.Roster) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.roster = roster
}

func (c *Composer) currentRoster() *mention.Roster {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.roster
}

// Send composes a message: sanitizes the body, parses mentions, inserts an
// optimistic entry, enqueues it, and pushes it to the server. The returned
// clientMessageId identifies the message through its whole lifecycle.
func (c *Composer) Send(ctx context.Context, body, languageHint string, attachments []models.Attachment) (string, error) {
	body = sanitizeBody(body)
	if body == "" && len(attachments) == 0 {
		return "", ErrEmptyMessage
	}

	clientID := c.newID()
	mentions := mention.Parse(body, c.currentRoster())

	c.store.Merge([]models.Message{{
		ClientMessageID: clientID,
		EventID:         c.eventID,
		AuthorUserID:    c.author.ID,
		AuthorName:      c.author.DisplayName,
		BodyText:        body,
		Type:            models.MessageTypeUser,
		LanguageHint:    languageHint,
		Attachments:     attachments,
		Mentions:        mentions,
		CreatedAt:       c.now(),
		DeliveryState:   models.DeliverySending,
	}})

	c.outbox.Upsert(outbox.Entry{
		ClientMessageID: clientID,
		BodyText:        body,
		Attachments:     attachments,
		LanguageHint:    languageHint,
		State:           models.DeliverySending,
	})

	return clientID, c.deliver(ctx, clientID, SendRequest{
		ClientMessageID: clientID,
		BodyText:        body,
		LanguageHint:    languageHint,
		Mentions:        mentions,
		Attachments:     attachments,
	})
}

// Retry resends a previously failed (or any known) message under its
// original clientMessageId.
func (c *Composer) Retry(ctx context.Context, clientMessageID string) error {
	entry, ok := c.outbox.Get(clientMessageID)
	if !ok {
		return ErrUnknownMessage
	}

	c.outbox.MarkSending(clientMessageID)
	c.store.Merge([]models.Message{{
		ClientMessageID: clientMessageID,
		DeliveryState:   models.DeliverySending,
	}})

	return c.deliver(ctx, clientMessageID, SendRequest{
		ClientMessageID: clientMessageID,
		BodyText:        entry.BodyText,
		LanguageHint:    entry.LanguageHint,
		Mentions:        mention.Parse(entry.BodyText, c.currentRoster()),
		Attachments:     entry.Attachments,
	})
}

func (c *Composer) deliver(ctx context.Context, clientID string, req SendRequest) error {
	confirmed, err := c.api.SendMessage(ctx, c.eventID, req)
	if err != nil {
		c.outbox.MarkFailed(clientID, err.Error())
		c.store.Merge([]models.Message{{
			ClientMessageID: clientID,
			DeliveryState:   models.DeliveryFailed,
			ErrorMessage:    err.Error(),
		}})
		return fmt.Errorf("sending message: %w", err)
	}

	c.outbox.MarkSent(clientID)
	merged := *confirmed
	merged.DeliveryState = models.DeliverySent
	c.store.Merge([]models.Message{merged})
	return nil
}

// RunConnectivityRetry resends every failed outbox entry each time the
// signal reports the connection coming back. Each entry is fire-and-forget:
// a failure re-marks it failed and the next sweep picks it up again.
func (c *Composer) RunConnectivityRetry(ctx context.Context, signal ConnectivitySignal) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-signal.Online():
			c.retryFailed(ctx)
		}
	}
}

func (c *Composer) retryFailed(ctx context.Context) {
	for _, entry := range c.outbox.Failed() {
		if err := c.Retry(ctx, entry.ClientMessageID); err != nil {
			slog.Warn("resend after reconnect failed",
				"component", "composer",
				"client_message_id", entry.ClientMessageID,
				"error", err,
			)
		}
	}
}

// ToggleReaction flips the caller's reaction on a confirmed message and
// merges the server's raw rows plus a locally derived summary back into the
// store.
func (c *Composer) ToggleReaction(ctx context.Context, messageID, emoji string) error {
	result, err := c.api.ToggleReaction(ctx, messageID, emoji)
	if err != nil {
		return fmt.Errorf("toggling reaction: %w", err)
	}

	summary := result.ReactionSummary
	if summary == nil {
		summary = reactions.Summarize(result.Reactions, c.author.ID)
	}

	c.store.Merge([]models.Message{{
		ID:              messageID,
		Reactions:       result.Reactions,
		ReactionSummary: summary,
	}})
	return nil
}

// UploadAttachments pushes each file to the server ahead of the message that
// will reference them. Any failure aborts the whole batch so the composer
// text stays intact for a retry.
func (c *Composer) UploadAttachments(ctx context.Context, files []AttachmentUpload) ([]models.Attachment, error) {
	uploaded := make([]models.Attachment, 0, len(files))
	for _, f := range files {
		att, err := c.api.UploadAttachment(ctx, f.Data, UploadMeta{Name: f.Name})
		if err != nil {
			return nil, fmt.Errorf("uploading attachment %q: %w", f.Name, err)
		}
		uploaded = append(uploaded, *att)
	}
	return uploaded, nil
}

// AttachmentUpload is one file queued in the composer.
type AttachmentUpload struct {
	Name string
	Data io.Reader
}

// sanitizeBody trims surrounding whitespace and strips carriage returns.
func sanitizeBody(body string) string {
	return strings.TrimSpace(strings.ReplaceAll(body, "\r", ""))
}
