package models

import (
	"strings"
	"time"
)

type MessageType string

const (
	MessageTypeUser           MessageType = "user"
	MessageTypeSystem         MessageType = "system"
	MessageTypeSystemCritical MessageType = "system_critical"
)

type DeliveryState string

const (
	DeliverySending DeliveryState = "sending"
	DeliverySent    DeliveryState = "sent"
	DeliveryFailed  DeliveryState = "failed"
)

type MentionType string

const (
	MentionTypeUser MentionType = "user"
	MentionTypeRole MentionType = "role"
)

// Mention is a resolved @token inside a message body. Exactly one of
// MentionedUserID / MentionedRoleKey is set depending on Type.
type Mention struct {
	Token            string      `json:"token"`
	Type             MentionType `json:"type"`
	MentionedUserID  string      `json:"mentionedUserId,omitempty"`
	MentionedRoleKey string      `json:"mentionedRoleKey,omitempty"`
}

type Attachment struct {
	URL      string `json:"url"`
	Name     string `json:"name"`
	MimeType string `json:"mimeType"`
	Size     int64  `json:"size"`
}

// Reaction is one raw per-user reaction row as stored by the server.
type Reaction struct {
	Emoji  string `json:"emoji"`
	UserID string `json:"userId"`
}

// ReactionSummary is the derived per-emoji aggregate shown next to a message.
type ReactionSummary struct {
	Emoji                string `json:"emoji"`
	Count                int    `json:"count"`
	ReactedByCurrentUser bool   `json:"reactedByCurrentUser"`
}

// Message is one entry in a show conversation. ID is empty until the server
// has confirmed the message; ClientMessageID is assigned once at composition
// time and never changes, including across retries.
type Message struct {
	ID              string            `json:"id,omitempty"`
	ClientMessageID string            `json:"clientMessageId"`
	EventID         string            `json:"eventId"`
	AuthorUserID    string            `json:"authorUserId"`
	AuthorName      string            `json:"authorName"`
	BodyText        string            `json:"bodyText"`
	Type            MessageType       `json:"messageType"`
	LanguageHint    string            `json:"languageHint,omitempty"`
	Attachments     []Attachment      `json:"attachments,omitempty"`
	Mentions        []Mention         `json:"mentions,omitempty"`
	Reactions       []Reaction        `json:"reactions,omitempty"`
	ReactionSummary []ReactionSummary `json:"reactionSummary,omitempty"`
	CreatedAt       time.Time         `json:"createdAt"`
	DeliveryState   DeliveryState     `json:"deliveryState,omitempty"`
	ErrorMessage    string            `json:"errorMessage,omitempty"`
}

// Confirmed reports whether the server has acknowledged the message.
func (m *Message) Confirmed() bool {
	return m.ID != ""
}

// IsSystem reports whether the message was produced by ops tooling rather
// than typed by a person.
func (m *Message) IsSystem() bool {
	return m.Type == MessageTypeSystem || m.Type == MessageTypeSystemCritical
}

// MentionsUser reports whether the message mentions the user directly or via
// one of the role keys the user holds.
func (m *Message) MentionsUser(userID string, heldRoleKeys []string) bool {
	for _, mention := range m.Mentions {
		switch mention.Type {
		case MentionTypeUser:
			if mention.MentionedUserID == userID {
				return true
			}
		case MentionTypeRole:
			for _, key := range heldRoleKeys {
				if strings.EqualFold(mention.MentionedRoleKey, key) {
					return true
				}
			}
		}
	}
	return false
}
