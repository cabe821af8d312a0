// Package store holds the in-memory message list for one conversation view.
// It merges optimistic local entries with server-confirmed rows by stable
// identity, so a poll response arriving at any time (including out of order)
// can never duplicate a message.
package store

import (
	"sort"
	"sync"

	"showdesk/internal/models"
)

type entry struct {
	msg models.Message
	seq int
}

type Store struct {
	mu      sync.Mutex
	entries []entry
	nextSeq int
}

func New() *Store {
	return &Store{}
}

// Merge folds incoming rows into the list. Each row is matched first by
// server id, then by clientMessageId; on a match the incoming fields are
// merged over the existing entry (server id and createdAt are authoritative
// once present), otherwise the row is appended. The list is then re-sorted
// ascending by createdAt, keeping insertion order for ties and for entries
// without a timestamp.
func (s *Store) Merge(incoming []models.Message) {
	if len(incoming) == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, in := range incoming {
		if i, ok := s.locate(in); ok {
			mergeMessage(&s.entries[i].msg, in)
			continue
		}
		s.entries = append(s.entries, entry{msg: in, seq: s.nextSeq})
		s.nextSeq++
	}

	sort.SliceStable(s.entries, func(i, j int) bool {
		a, b := s.entries[i], s.entries[j]
		if a.msg.CreatedAt.IsZero() || b.msg.CreatedAt.IsZero() {
			return a.seq < b.seq
		}
		if a.msg.CreatedAt.Equal(b.msg.CreatedAt) {
			return a.seq < b.seq
		}
		return a.msg.CreatedAt.Before(b.msg.CreatedAt)
	})
}

func (s *Store) locate(in models.Message) (int, bool) {
	if in.ID != "" {
		for i := range s.entries {
			if s.entries[i].msg.ID == in.ID {
				return i, true
			}
		}
	}
	if in.ClientMessageID != "" {
		for i := range s.entries {
			if s.entries[i].msg.ClientMessageID == in.ClientMessageID {
				return i, true
			}
		}
	}
	return 0, false
}

// Snapshot returns a copy of the current ordered message list.
func (s *Store) Snapshot() []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Message, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.msg
	}
	return out
}

// Find returns a copy of the message matching either identifier.
func (s *Store) Find(id string) (models.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.entries {
		if e.msg.ID == id || e.msg.ClientMessageID == id {
			return e.msg, true
		}
	}
	return models.Message{}, false
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// mergeMessage applies last-write-wins field overwrite, with two
// authoritative exceptions: once a server id or server createdAt is present
// it is never replaced by a placeholder value. A confirmed row also upgrades
// a still-sending placeholder to sent.
func mergeMessage(dst *models.Message, in models.Message) {
	if in.ID != "" {
		dst.ID = in.ID
		if dst.DeliveryState == models.DeliverySending || dst.DeliveryState == models.DeliveryFailed {
			dst.DeliveryState = models.DeliverySent
			dst.ErrorMessage = ""
		}
	}
	if in.ClientMessageID != "" {
		dst.ClientMessageID = in.ClientMessageID
	}
	if !in.CreatedAt.IsZero() {
		dst.CreatedAt = in.CreatedAt
	}
	if in.EventID != "" {
		dst.EventID = in.EventID
	}
	if in.AuthorUserID != "" {
		dst.AuthorUserID = in.AuthorUserID
	}
	if in.AuthorName != "" {
		dst.AuthorName = in.AuthorName
	}
	if in.BodyText != "" {
		dst.BodyText = in.BodyText
	}
	if in.Type != "" {
		dst.Type = in.Type
	}
	if in.LanguageHint != "" {
		dst.LanguageHint = in.LanguageHint
	}
	if in.Attachments != nil {
		dst.Attachments = in.Attachments
	}
	if in.Mentions != nil {
		dst.Mentions = in.Mentions
	}
	if in.Reactions != nil {
		dst.Reactions = in.Reactions
	}
	if in.ReactionSummary != nil {
		dst.ReactionSummary = in.ReactionSummary
	}
	if in.DeliveryState != "" {
		dst.DeliveryState = in.DeliveryState
		dst.ErrorMessage = in.ErrorMessage
	}
}
