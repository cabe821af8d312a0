package db

import (
	"context"
	"fmt"
	"time"

	"showdesk/internal/models"
)

type ReactionRepository struct {
	db *DB
}

func NewReactionRepository(db *DB) *ReactionRepository {
	return &ReactionRepository{db: db}
}

// Toggle removes the user's reaction if present, otherwise adds it.
// Returns true when the reaction exists after the call.
func (r *ReactionRepository) Toggle(ctx context.Context, messageID, userID, emoji string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM reactions WHERE message_id = ? AND user_id = ? AND emoji = ?`,
		messageID, userID, emoji,
	)
	if err != nil {
		return false, fmt.Errorf("removing reaction: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking removed reaction: %w", err)
	}
	if deleted > 0 {
		return false, nil
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO reactions (message_id, user_id, emoji, reacted_at) VALUES (?, ?, ?, ?)`,
		messageID, userID, emoji, time.Now().UTC(),
	)
	if err != nil {
		if IsUniqueConstraintError(err) {
			// Concurrent toggle already added it.
			return true, nil
		}
		return false, fmt.Errorf("adding reaction: %w", err)
	}
	return true, nil
}

// ListByMessage returns the raw reaction rows in reacted_at order.
func (r *ReactionRepository) ListByMessage(ctx context.Context, messageID string) ([]models.Reaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT emoji, user_id FROM reactions WHERE message_id = ? ORDER BY reacted_at`,
		messageID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying reactions: %w", err)
	}
	defer rows.Close()

	reactions := make([]models.Reaction, 0)
	for rows.Next() {
		var reaction models.Reaction
		if err := rows.Scan(&reaction.Emoji, &reaction.UserID); err != nil {
			return nil, fmt.Errorf("scanning reaction: %w", err)
		}
		reactions = append(reactions, reaction)
	}
	return reactions, rows.Err()
}
