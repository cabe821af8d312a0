package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"showdesk/internal/models"
)

type ConversationRepository struct {
	db *DB
}

func NewConversationRepository(db *DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

// Get returns the conversation settings for an event. Events start with
// default settings, so a missing row is not an error.
func (r *ConversationRepository) Get(ctx context.Context, eventID string) (*models.Conversation, error) {
	var conv models.Conversation
	var pinnedJSON string

	err := r.db.QueryRowContext(ctx,
		`SELECT event_id, show_mode_enabled, mute_non_critical, pinned_ops_commands FROM conversations WHERE event_id = ?`,
		eventID,
	).Scan(&conv.EventID, &conv.ShowModeEnabled, &conv.MuteNonCritical, &pinnedJSON)

	if errors.Is(err, sql.ErrNoRows) {
		return &models.Conversation{EventID: eventID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying conversation: %w", err)
	}

	if err := json.Unmarshal([]byte(pinnedJSON), &conv.PinnedOpsCommands); err != nil {
		return nil, fmt.Errorf("decoding pinned commands: %w", err)
	}
	return &conv, nil
}

// Patch applies the non-nil fields and stores the result.
func (r *ConversationRepository) Patch(ctx context.Context, eventID string, patch models.ConversationPatch) (*models.Conversation, error) {
	stored, err := r.Get(ctx, eventID)
	if err != nil {
		return nil, err
	}
	conv := stored.Apply(patch)

	pinnedJSON, err := json.Marshal(conv.PinnedOpsCommands)
	if err != nil {
		return nil, fmt.Errorf("encoding pinned commands: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO conversations (event_id, show_mode_enabled, mute_non_critical, pinned_ops_commands, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (event_id) DO UPDATE SET
			show_mode_enabled = excluded.show_mode_enabled,
			mute_non_critical = excluded.mute_non_critical,
			pinned_ops_commands = excluded.pinned_ops_commands,
			updated_at = excluded.updated_at`,
		eventID, conv.ShowModeEnabled, conv.MuteNonCritical, string(pinnedJSON), time.Now().UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("storing conversation: %w", err)
	}
	return &conv, nil
}
