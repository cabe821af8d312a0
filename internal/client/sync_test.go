package client

import (
	"context"
	"testing"
	"time"

	"showdesk/internal/convo"
	"showdesk/internal/models"
	"showdesk/internal/store"
)

func TestSyncOnceMergesMessagesAndConversation(t *testing.T) {
	base := time.Date(2026, 6, 14, 21, 0, 0, 0, time.UTC)
	api := newFakeAPI()
	api.listResults = []*ListResult{{
		Messages: []models.Message{
			{ID: "msg_1", ClientMessageID: "c1", BodyText: "doors", CreatedAt: base},
			{ID: "msg_2", ClientMessageID: "c2", BodyText: "cue 1", CreatedAt: base.Add(time.Second)},
		},
		Conversation: &models.Conversation{EventID: "evt_1", MuteNonCritical: true},
	}}

	msgStore := store.New()
	convos := convo.NewManager(api, "evt_1")
	s := NewSyncer(api, msgStore, convos, "evt_1")

	if err := s.SyncOnce(context.Background()); err != nil {
		t.Fatalf("SyncOnce: %v", err)
	}

	if msgStore.Len() != 2 {
		t.Fatalf("store length = %d, want 2", msgStore.Len())
	}
	if !convos.Current().MuteNonCritical {
		t.Fatal("conversation settings not adopted from list response")
	}
}

func TestSyncCollapsesOptimisticPlaceholder(t *testing.T) {
	base := time.Date(2026, 6, 14, 21, 0, 0, 0, time.UTC)
	api := newFakeAPI()

	msgStore := store.New()
	msgStore.Merge([]models.Message{{
		ClientMessageID: "c1",
		BodyText:        "doors",
		CreatedAt:       base,
		DeliveryState:   models.DeliverySending,
	}})

	api.listResults = []*ListResult{{
		Messages: []models.Message{
			{ID: "msg_1", ClientMessageID: "c1", BodyText: "doors", CreatedAt: base.Add(time.Second)},
		},
	}}

	s := NewSyncer(api, msgStore, nil, "evt_1")
	if err := s.SyncOnce(context.Background()); err != nil {
		t.Fatalf("SyncOnce: %v", err)
	}

	if msgStore.Len() != 1 {
		t.Fatalf("store length = %d, want 1 (placeholder upgraded, not duplicated)", msgStore.Len())
	}
	m, _ := msgStore.Find("c1")
	if m.ID != "msg_1" || m.DeliveryState != models.DeliverySent {
		t.Fatalf("message = %+v, want confirmed and sent", m)
	}
}

func TestRunPollsUntilCancelled(t *testing.T) {
	api := newFakeAPI()
	msgStore := store.New()

	s := NewSyncer(api, msgStore, nil, "evt_1")
	s.SetInterval(10 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for {
		api.mu.Lock()
		calls := api.listCalls
		api.mu.Unlock()
		if calls >= 3 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("poller made %d fetches, want >= 3", calls)
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop on context cancellation")
	}
}
