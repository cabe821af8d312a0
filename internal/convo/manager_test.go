package convo

import (
	"context"
	"errors"
	"testing"

	"showdesk/internal/models"
)

type fakeStore struct {
	stored    *models.Conversation
	saveCalls int
	failNext  error
}

func (f *fakeStore) GetConversation(_ context.Context, eventID string) (*models.Conversation, error) {
	if f.failNext != nil {
		return nil, f.failNext
	}
	if f.stored == nil {
		return &models.Conversation{EventID: eventID}, nil
	}
	conv := *f.stored
	return &conv, nil
}

func (f *fakeStore) SaveConversation(_ context.Context, eventID string, patch models.ConversationPatch) (*models.Conversation, error) {
	f.saveCalls++
	if f.failNext != nil {
		return nil, f.failNext
	}
	base := models.Conversation{EventID: eventID}
	if f.stored != nil {
		base = *f.stored
	}
	updated := base.Apply(patch)
	f.stored = &updated
	conv := updated
	return &conv, nil
}

func TestLoadDefaultsWhenNothingStored(t *testing.T) {
	m := NewManager(&fakeStore{}, "evt_1")
	if err := m.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}

	conv := m.Current()
	if conv.ShowModeEnabled || conv.MuteNonCritical || len(conv.PinnedOpsCommands) != 0 {
		t.Fatalf("defaults = %+v, want everything off", conv)
	}
}

func TestTogglesPersistOnEveryMutation(t *testing.T) {
	api := &fakeStore{}
	m := NewManager(api, "evt_1")

	if err := m.SetShowMode(context.Background(), true); err != nil {
		t.Fatalf("SetShowMode: %v", err)
	}
	if err := m.SetMuteNonCritical(context.Background(), true); err != nil {
		t.Fatalf("SetMuteNonCritical: %v", err)
	}
	if err := m.SetPinnedOpsCommands(context.Background(), []string{"/holdall"}); err != nil {
		t.Fatalf("SetPinnedOpsCommands: %v", err)
	}

	if api.saveCalls != 3 {
		t.Fatalf("saveCalls = %d, want one save per mutation", api.saveCalls)
	}

	conv := m.Current()
	if !conv.ShowModeEnabled || !conv.MuteNonCritical {
		t.Fatalf("conv = %+v, want both toggles on", conv)
	}
	if len(conv.PinnedOpsCommands) != 1 || conv.PinnedOpsCommands[0] != "/holdall" {
		t.Fatalf("pinned = %+v", conv.PinnedOpsCommands)
	}
}

func TestSaveErrorLeavesLocalStateAlone(t *testing.T) {
	api := &fakeStore{}
	m := NewManager(api, "evt_1")

	api.failNext = errors.New("network down")
	if err := m.SetShowMode(context.Background(), true); err == nil {
		t.Fatal("expected error")
	}

	if m.Current().ShowModeEnabled {
		t.Fatal("local state mutated despite failed save")
	}
}

func TestAdoptFillsEventID(t *testing.T) {
	m := NewManager(&fakeStore{}, "evt_1")
	m.Adopt(models.Conversation{MuteNonCritical: true})

	conv := m.Current()
	if conv.EventID != "evt_1" || !conv.MuteNonCritical {
		t.Fatalf("conv = %+v", conv)
	}
}
