package outbox

import (
	"testing"

	"showdesk/internal/models"
)

func TestUpsertDeduplicatesByClientMessageID(t *testing.T) {
	q := NewQueue()

	q.Upsert(Entry{ClientMessageID: "a", BodyText: "standby", State: models.DeliverySending})
	q.Upsert(Entry{ClientMessageID: "a", State: models.DeliverySent})

	if q.Len() != 1 {
		t.Fatalf("queue length = %d, want 1", q.Len())
	}

	e, ok := q.Get("a")
	if !ok {
		t.Fatal("entry not found")
	}
	if e.State != models.DeliverySent {
		t.Fatalf("state = %q, want %q", e.State, models.DeliverySent)
	}
	if e.BodyText != "standby" {
		t.Fatalf("bodyText = %q, want retained %q", e.BodyText, "standby")
	}
}

func TestUpsertAppendsNewEntries(t *testing.T) {
	q := NewQueue()

	q.Upsert(Entry{ClientMessageID: "a", State: models.DeliverySending})
	q.Upsert(Entry{ClientMessageID: "b", State: models.DeliverySending})

	if q.Len() != 2 {
		t.Fatalf("queue length = %d, want 2", q.Len())
	}
}

func TestRetryCycleKeepsSameID(t *testing.T) {
	q := NewQueue()

	q.Upsert(Entry{ClientMessageID: "a", BodyText: "cue 12", LanguageHint: "en", State: models.DeliverySending})
	q.MarkFailed("a", "network unreachable")

	e, _ := q.Get("a")
	if e.State != models.DeliveryFailed || e.ErrorMessage != "network unreachable" {
		t.Fatalf("after MarkFailed entry = %+v", e)
	}

	q.MarkSending("a")
	e, _ = q.Get("a")
	if e.State != models.DeliverySending {
		t.Fatalf("state = %q, want %q", e.State, models.DeliverySending)
	}
	if e.ErrorMessage != "" {
		t.Fatalf("errorMessage = %q, want cleared on re-send", e.ErrorMessage)
	}
	if e.BodyText != "cue 12" || e.LanguageHint != "en" {
		t.Fatalf("resend payload lost: %+v", e)
	}
	if q.Len() != 1 {
		t.Fatalf("retry created a new entry, length = %d", q.Len())
	}
}

func TestFailedSnapshot(t *testing.T) {
	q := NewQueue()

	q.Upsert(Entry{ClientMessageID: "a", State: models.DeliverySent})
	q.Upsert(Entry{ClientMessageID: "b", State: models.DeliveryFailed, ErrorMessage: "timeout"})
	q.Upsert(Entry{ClientMessageID: "c", State: models.DeliveryFailed, ErrorMessage: "refused"})

	failed := q.Failed()
	if len(failed) != 2 {
		t.Fatalf("failed length = %d, want 2", len(failed))
	}
	if failed[0].ClientMessageID != "b" || failed[1].ClientMessageID != "c" {
		t.Fatalf("failed order = %+v, want insertion order", failed)
	}
}

func TestEveryEntryCategorizedExactlyOnce(t *testing.T) {
	q := NewQueue()
	q.Upsert(Entry{ClientMessageID: "a", State: models.DeliverySending})
	q.Upsert(Entry{ClientMessageID: "b", State: models.DeliverySent})
	q.Upsert(Entry{ClientMessageID: "c", State: models.DeliveryFailed})

	counts := map[models.DeliveryState]int{}
	for _, e := range q.Snapshot() {
		counts[e.State]++
	}

	total := counts[models.DeliverySending] + counts[models.DeliverySent] + counts[models.DeliveryFailed]
	if total != q.Len() {
		t.Fatalf("categorized %d entries, queue has %d", total, q.Len())
	}
}

func TestUpsertIgnoresEmptyID(t *testing.T) {
	q := NewQueue()
	q.Upsert(Entry{BodyText: "orphan"})
	if q.Len() != 0 {
		t.Fatalf("queue length = %d, want 0", q.Len())
	}
}
