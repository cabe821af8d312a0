// Package client is the during-show messaging core: the server contract, the
// message composer, the poll-based conversation sync, and the reconnect
// retry sweep. It owns no UI; a front end renders store snapshots and calls
// into the composer.
package client

import (
	"context"
	"io"

	"showdesk/internal/models"
)

type ListOptions struct {
	Limit int
}

type ListResult struct {
	Messages     []models.Message     `json:"messages"`
	Conversation *models.Conversation `json:"conversation,omitempty"`
}

// SendRequest is the send-message payload. Safe to submit twice with the
// same ClientMessageID; the server answers with the already-stored row.
type SendRequest struct {
	ClientMessageID string              `json:"clientMessageId"`
	BodyText        string              `json:"bodyText"`
	LanguageHint    string              `json:"languageHint,omitempty"`
	Mentions        []models.Mention    `json:"mentions,omitempty"`
	Attachments     []models.Attachment `json:"attachments,omitempty"`
}

type ReactionResult struct {
	Reactions       []models.Reaction        `json:"reactions"`
	ReactionSummary []models.ReactionSummary `json:"reactionSummary,omitempty"`
}

type Translation struct {
	TargetLanguage string `json:"targetLanguage"`
	Translation    string `json:"translation"`
}

type UploadMeta struct {
	Name string
}

// API is the transport-agnostic server surface the core depends on. HTTPClient
// implements it against the showdesk REST API; tests substitute fakes.
type API interface {
	ListMessages(ctx context.Context, eventID string, opts ListOptions) (*ListResult, error)
	SendMessage(ctx context.Context, eventID string, req SendRequest) (*models.Message, error)
	ToggleReaction(ctx context.Context, messageID, emoji string) (*ReactionResult, error)
	GetConversation(ctx context.Context, eventID string) (*models.Conversation, error)
	SaveConversation(ctx context.Context, eventID string, patch models.ConversationPatch) (*models.Conversation, error)
	TranslateMessage(ctx context.Context, messageID, targetLanguage string) (*Translation, error)
	UploadAttachment(ctx context.Context, src io.Reader, meta UploadMeta) (*models.Attachment, error)
}
