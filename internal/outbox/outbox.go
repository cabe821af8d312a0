// Package outbox tracks delivery state for locally authored messages, keyed
// by clientMessageId. Entries accumulate for the lifetime of the session; a
// show channel lives for hours, not weeks, so nothing is evicted.
package outbox

import (
	"sync"

	"showdesk/internal/models"
)

// Entry is the retained send state for one composed message. It carries
// everything needed to resend under the same clientMessageId.
type Entry struct {
	ClientMessageID string
	BodyText        string
	Attachments     []models.Attachment
	LanguageHint    string
	State           models.DeliveryState
	ErrorMessage    string
}

type Queue struct {
	mu      sync.Mutex
	entries []Entry
	index   map[string]int
}

func NewQueue() *Queue {
	return &Queue{index: make(map[string]int)}
}

// Upsert replaces fields on the entry sharing the clientMessageId, or appends
// when none exists. The merge is field-level: zero-valued incoming fields
// leave the stored value alone, except ErrorMessage which follows State.
func (q *Queue) Upsert(e Entry) {
	if e.ClientMessageID == "" {
		return
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	i, ok := q.index[e.ClientMessageID]
	if !ok {
		q.index[e.ClientMessageID] = len(q.entries)
		q.entries = append(q.entries, e)
		return
	}

	existing := &q.entries[i]
	if e.BodyText != "" {
		existing.BodyText = e.BodyText
	}
	if e.Attachments != nil {
		existing.Attachments = e.Attachments
	}
	if e.LanguageHint != "" {
		existing.LanguageHint = e.LanguageHint
	}
	if e.State != "" {
		existing.State = e.State
		existing.ErrorMessage = e.ErrorMessage
	}
}

// MarkSending moves an entry back into flight, clearing any prior error.
func (q *Queue) MarkSending(clientMessageID string) {
	q.Upsert(Entry{ClientMessageID: clientMessageID, State: models.DeliverySending})
}

func (q *Queue) MarkSent(clientMessageID string) {
	q.Upsert(Entry{ClientMessageID: clientMessageID, State: models.DeliverySent})
}

func (q *Queue) MarkFailed(clientMessageID, errorMessage string) {
	q.Upsert(Entry{ClientMessageID: clientMessageID, State: models.DeliveryFailed, ErrorMessage: errorMessage})
}

// Get returns a copy of the entry for the given clientMessageId.
func (q *Queue) Get(clientMessageID string) (Entry, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	i, ok := q.index[clientMessageID]
	if !ok {
		return Entry{}, false
	}
	return q.entries[i], true
}

// Failed returns copies of every entry currently in the failed state, in
// insertion order. Used by the reconnect sweep and the manual retry UI.
func (q *Queue) Failed() []Entry {
	q.mu.Lock()
	defer q.mu.Unlock()

	failed := make([]Entry, 0)
	for _, e := range q.entries {
		if e.State == models.DeliveryFailed {
			failed = append(failed, e)
		}
	}
	return failed
}

// Snapshot returns copies of all entries in insertion order.
func (q *Queue) Snapshot() []Entry {
	q.mu.Lock()
	defer q.mu.Unlock()

	return append([]Entry(nil), q.entries...)
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}
