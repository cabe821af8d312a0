package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"showdesk/internal/models"
)

type MessageRepository struct {
	db *DB
}

func NewMessageRepository(db *DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// Create stores a message with its mentions and attachments. Posting the
// same (eventID, clientMessageID) pair twice returns the already stored
// message instead of a duplicate, so client retries are safe.
func (r *MessageRepository) Create(ctx context.Context, msg *models.Message) (*models.Message, error) {
	id, err := GenerateID("msg")
	if err != nil {
		return nil, fmt.Errorf("generating message ID: %w", err)
	}
	now := time.Now().UTC()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("starting message insert: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO messages (id, event_id, client_message_id, author_id, body, message_type, language_hint, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, msg.EventID, msg.ClientMessageID, msg.AuthorUserID, msg.BodyText, msg.Type, msg.LanguageHint, now,
	)
	if err != nil {
		if IsUniqueConstraintError(err) {
			// Retry of an already delivered message.
			return r.FindByClientID(ctx, msg.EventID, msg.ClientMessageID)
		}
		return nil, fmt.Errorf("inserting message: %w", err)
	}

	for i, mention := range msg.Mentions {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO message_mentions (message_id, token, mention_type, mentioned_user_id, mentioned_role_key, position)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			id, mention.Token, mention.Type, mention.MentionedUserID, mention.MentionedRoleKey, i,
		)
		if err != nil {
			return nil, fmt.Errorf("inserting mention: %w", err)
		}
	}

	for i, att := range msg.Attachments {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO message_attachments (message_id, url, name, mime_type, size_bytes, position)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			id, att.URL, att.Name, att.MimeType, att.Size, i,
		)
		if err != nil {
			return nil, fmt.Errorf("inserting attachment: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing message insert: %w", err)
	}

	return r.FindByID(ctx, id)
}

func (r *MessageRepository) FindByID(ctx context.Context, id string) (*models.Message, error) {
	return r.findOne(ctx, `m.id = ?`, id)
}

func (r *MessageRepository) FindByClientID(ctx context.Context, eventID, clientMessageID string) (*models.Message, error) {
	msg, err := r.findOne(ctx, `m.event_id = ? AND m.client_message_id = ?`, eventID, clientMessageID)
	if err != nil {
		return nil, err
	}
	return msg, nil
}

func (r *MessageRepository) findOne(ctx context.Context, where string, args ...any) (*models.Message, error) {
	row := r.db.QueryRowContext(ctx, messageSelect+` WHERE `+where, args...)

	msg, err := scanMessage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := r.loadRelated(ctx, []*models.Message{msg}); err != nil {
		return nil, err
	}
	return msg, nil
}

// ListByEvent returns up to limit messages for the event in ascending
// created_at order, oldest of the most recent window first.
func (r *MessageRepository) ListByEvent(ctx context.Context, eventID string, limit int) ([]*models.Message, error) {
	// Window the newest rows, then flip back to chronological order.
	rows, err := r.db.QueryContext(ctx,
		`SELECT * FROM (`+messageSelect+` WHERE m.event_id = ? ORDER BY m.created_at DESC, m.id DESC LIMIT ?)
		 ORDER BY created_at ASC, id ASC`,
		eventID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	messages := make([]*models.Message, 0)
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating messages: %w", err)
	}

	if err := r.loadRelated(ctx, messages); err != nil {
		return nil, err
	}
	return messages, nil
}

const messageSelect = `
	SELECT m.id, m.event_id, m.client_message_id, m.author_id, s.display_name, m.body, m.message_type, m.language_hint, m.created_at
	FROM messages m
	JOIN staff s ON s.id = m.author_id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMessage(row rowScanner) (*models.Message, error) {
	var m models.Message
	err := row.Scan(
		&m.ID, &m.EventID, &m.ClientMessageID, &m.AuthorUserID, &m.AuthorName,
		&m.BodyText, &m.Type, &m.LanguageHint, &m.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scanning message: %w", err)
	}
	m.DeliveryState = models.DeliverySent
	return &m, nil
}

// loadRelated attaches mentions, attachments and reaction rows to the
// messages in one query per table.
func (r *MessageRepository) loadRelated(ctx context.Context, messages []*models.Message) error {
	if len(messages) == 0 {
		return nil
	}

	byID := make(map[string]*models.Message, len(messages))
	ids := make([]any, 0, len(messages))
	for _, m := range messages {
		byID[m.ID] = m
		ids = append(ids, m.ID)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")

	rows, err := r.db.QueryContext(ctx,
		`SELECT message_id, token, mention_type, mentioned_user_id, mentioned_role_key
		 FROM message_mentions WHERE message_id IN (`+placeholders+`) ORDER BY message_id, position`,
		ids...,
	)
	if err != nil {
		return fmt.Errorf("querying mentions: %w", err)
	}
	for rows.Next() {
		var messageID string
		var mention models.Mention
		var userID, roleKey sql.NullString
		if err := rows.Scan(&messageID, &mention.Token, &mention.Type, &userID, &roleKey); err != nil {
			rows.Close()
			return fmt.Errorf("scanning mention: %w", err)
		}
		mention.MentionedUserID = userID.String
		mention.MentionedRoleKey = roleKey.String
		if m := byID[messageID]; m != nil {
			m.Mentions = append(m.Mentions, mention)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating mentions: %w", err)
	}

	rows, err = r.db.QueryContext(ctx,
		`SELECT message_id, url, name, mime_type, size_bytes
		 FROM message_attachments WHERE message_id IN (`+placeholders+`) ORDER BY message_id, position`,
		ids...,
	)
	if err != nil {
		return fmt.Errorf("querying attachments: %w", err)
	}
	for rows.Next() {
		var messageID string
		var att models.Attachment
		if err := rows.Scan(&messageID, &att.URL, &att.Name, &att.MimeType, &att.Size); err != nil {
			rows.Close()
			return fmt.Errorf("scanning attachment: %w", err)
		}
		if m := byID[messageID]; m != nil {
			m.Attachments = append(m.Attachments, att)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating attachments: %w", err)
	}

	rows, err = r.db.QueryContext(ctx,
		`SELECT message_id, emoji, user_id
		 FROM reactions WHERE message_id IN (`+placeholders+`) ORDER BY message_id, reacted_at`,
		ids...,
	)
	if err != nil {
		return fmt.Errorf("querying reactions: %w", err)
	}
	for rows.Next() {
		var messageID string
		var reaction models.Reaction
		if err := rows.Scan(&messageID, &reaction.Emoji, &reaction.UserID); err != nil {
			rows.Close()
			return fmt.Errorf("scanning reaction: %w", err)
		}
		if m := byID[messageID]; m != nil {
			m.Reactions = append(m.Reactions, reaction)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating reactions: %w", err)
	}

	return nil
}
