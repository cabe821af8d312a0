package client

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"showdesk/internal/convo"
	"showdesk/internal/store"
)

const (
	DefaultSyncInterval = 15 * time.Second
	DefaultSyncLimit    = 200
)

// Syncer refreshes the local store (and conversation settings when the list
// response carries them) on a fixed interval while the conversation view is
// active. Cancel the context on view teardown; that is what stops the timer.
type Syncer struct {
	api      API
	store    *store.Store
	convos   *convo.Manager
	eventID  string
	interval time.Duration
	limit    int
}

func NewSyncer(api API, msgStore *store.Store, convos *convo.Manager, eventID string) *Syncer {
	return &Syncer{
		api:      api,
		store:    msgStore,
		convos:   convos,
		eventID:  eventID,
		interval: DefaultSyncInterval,
		limit:    DefaultSyncLimit,
	}
}

// SetInterval overrides the poll cadence. Values <= 0 keep the default.
func (s *Syncer) SetInterval(interval time.Duration) {
	if interval > 0 {
		s.interval = interval
	}
}

// Run fetches once immediately, then on every tick until the context is
// cancelled. A tick never cancels an in-flight fetch: each fetch runs in its
// own goroutine and merges whenever it completes, relying on the store's
// id-based reconciliation to absorb late or out-of-order responses.
func (s *Syncer) Run(ctx context.Context) {
	slog.Info("starting conversation sync", "component", "sync", "event_id", s.eventID, "interval", s.interval)

	s.spawnSync(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("stopping conversation sync", "component", "sync", "event_id", s.eventID)
			return
		case <-ticker.C:
			s.spawnSync(ctx)
		}
	}
}

func (s *Syncer) spawnSync(ctx context.Context) {
	go func() {
		if err := s.SyncOnce(ctx); err != nil && ctx.Err() == nil {
			slog.Warn("conversation sync failed", "component", "sync", "event_id", s.eventID, "error", err)
		}
	}()
}

// SyncOnce performs a single fetch-and-merge pass.
func (s *Syncer) SyncOnce(ctx context.Context) error {
	result, err := s.api.ListMessages(ctx, s.eventID, ListOptions{Limit: s.limit})
	if err != nil {
		return fmt.Errorf("fetching messages: %w", err)
	}

	s.store.Merge(result.Messages)
	if result.Conversation != nil && s.convos != nil {
		s.convos.Adopt(*result.Conversation)
	}
	return nil
}
