// Package convo holds conversation-level settings for one event and the
// visibility filtering applied on top of the message list.
package convo

import (
	"context"
	"fmt"
	"sync"

	"showdesk/internal/models"
)

// Store is the server round-trip the settings need. The HTTP client in
// internal/client satisfies it.
type Store interface {
	GetConversation(ctx context.Context, eventID string) (*models.Conversation, error)
	SaveConversation(ctx context.Context, eventID string, patch models.ConversationPatch) (*models.Conversation, error)
}

// Manager owns the current settings: loaded on mount, mutated by explicit
// toggles, persisted on every mutation. The sync poller refreshes it via
// Adopt when the list response carries conversation state.
type Manager struct {
	mu      sync.Mutex
	api     Store
	eventID string
	current models.Conversation
}

func NewManager(api Store, eventID string) *Manager {
	return &Manager{
		api:     api,
		eventID: eventID,
		current: models.Conversation{EventID: eventID},
	}
}

// Load fetches the stored settings; the server answers defaults when no row
// exists yet.
func (m *Manager) Load(ctx context.Context) error {
	conv, err := m.api.GetConversation(ctx, m.eventID)
	if err != nil {
		return fmt.Errorf("loading conversation state: %w", err)
	}
	m.Adopt(*conv)
	return nil
}

// Current returns a copy of the settings.
func (m *Manager) Current() models.Conversation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Adopt replaces the local settings with a server-confirmed copy.
func (m *Manager) Adopt(conv models.Conversation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if conv.EventID == "" {
		conv.EventID = m.eventID
	}
	m.current = conv
}

func (m *Manager) SetShowMode(ctx context.Context, enabled bool) error {
	return m.save(ctx, models.ConversationPatch{ShowModeEnabled: &enabled})
}

func (m *Manager) SetMuteNonCritical(ctx context.Context, muted bool) error {
	return m.save(ctx, models.ConversationPatch{MuteNonCritical: &muted})
}

func (m *Manager) SetPinnedOpsCommands(ctx context.Context, commands []string) error {
	return m.save(ctx, models.ConversationPatch{PinnedOpsCommands: &commands})
}

func (m *Manager) save(ctx context.Context, patch models.ConversationPatch) error {
	conv, err := m.api.SaveConversation(ctx, m.eventID, patch)
	if err != nil {
		return fmt.Errorf("saving conversation state: %w", err)
	}
	m.Adopt(*conv)
	return nil
}
