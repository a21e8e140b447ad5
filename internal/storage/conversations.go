package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/spicewise/internal/common"
	"github.com/Veraticus/spicewise/internal/model"
)

// CreateConversation inserts a new conversation without messages.
func (s *SQLiteStorage) CreateConversation(ctx context.Context, conv *model.Conversation) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateConversation(conv); err != nil {
		return err
	}

	updatedAt := conv.UpdatedAt
	if updatedAt.Before(conv.CreatedAt) {
		updatedAt = conv.CreatedAt
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO conversations (id, title, archived, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`,
		conv.ID, conv.Title, conv.Archived, formatTime(conv.CreatedAt), formatTime(updatedAt))
	if err != nil {
		if isConstraintError(err) {
			return fmt.Errorf("conversation %s: %w", conv.ID, common.ErrDuplicateEntry)
		}
		return fmt.Errorf("failed to create conversation: %w", err)
	}
	return nil
}

// GetConversation returns a conversation with all of its messages in order.
func (s *SQLiteStorage) GetConversation(ctx context.Context, id string) (*model.Conversation, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	conv, err := scanConversation(s.db.QueryRowContext(ctx, `
		SELECT id, title, archived, created_at, updated_at
		FROM conversations
		WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("conversation %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	conv.Messages, err = s.queryMessages(ctx, `
		SELECT id, conversation_id, role, content, input_tokens, output_tokens, created_at
		FROM messages
		WHERE conversation_id = ?
		ORDER BY created_at ASC, id ASC`, id)
	if err != nil {
		return nil, err
	}

	return conv, nil
}

// ListConversations returns conversations, most recently updated first.
func (s *SQLiteStorage) ListConversations(ctx context.Context, includeArchived bool) ([]model.Conversation, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `
		SELECT id, title, archived, created_at, updated_at
		FROM conversations`
	if !includeArchived {
		query += `
		WHERE archived = 0`
	}
	query += `
		ORDER BY updated_at DESC, id ASC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query conversations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var conversations []model.Conversation
	for rows.Next() {
		conv, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		conversations = append(conversations, *conv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating conversations: %w", err)
	}

	return conversations, nil
}

// RecentMessages returns the newest limit messages of a conversation in ascending order.
func (s *SQLiteStorage) RecentMessages(ctx context.Context, conversationID string, limit int) ([]model.Message, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(conversationID, "conversationID"); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, nil
	}

	return s.queryMessages(ctx, `
		SELECT id, conversation_id, role, content, input_tokens, output_tokens, created_at
		FROM (
			SELECT id, conversation_id, role, content, input_tokens, output_tokens, created_at
			FROM messages
			WHERE conversation_id = ?
			ORDER BY created_at DESC, id DESC
			LIMIT ?
		)
		ORDER BY created_at ASC, id ASC`, conversationID, limit)
}

// AppendMessages adds messages to a conversation atomically.
func (s *SQLiteStorage) AppendMessages(ctx context.Context, conversationID string, messages ...model.Message) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(conversationID, "conversationID"); err != nil {
		return err
	}
	for i := range messages {
		if err := validateMessage(&messages[i]); err != nil {
			return fmt.Errorf("message at index %d: %w", i, err)
		}
	}
	if len(messages) == 0 {
		return nil
	}

	return s.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO messages (conversation_id, role, content, input_tokens, output_tokens, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		for _, msg := range messages {
			if _, err := stmt.ExecContext(ctx,
				conversationID, string(msg.Role), msg.Content,
				msg.InputTokens, msg.OutputTokens, formatTime(msg.CreatedAt)); err != nil {
				if isConstraintError(err) {
					return fmt.Errorf("conversation %s: %w", conversationID, common.ErrNotFound)
				}
				return fmt.Errorf("failed to insert message: %w", err)
			}
		}
		return nil
	})
}

// TouchConversation advances updated_at to updatedAt unless it is already
// later, and replaces the title when title is non-empty.
func (s *SQLiteStorage) TouchConversation(ctx context.Context, id, title string, updatedAt time.Time) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE conversations
		SET updated_at = MAX(updated_at, ?),
			title = CASE WHEN ? <> '' THEN ? ELSE title END
		WHERE id = ?`,
		formatTime(updatedAt), title, title, id)
	if err != nil {
		return fmt.Errorf("failed to update conversation: %w", err)
	}
	return expectAffected(result, "conversation", id)
}

// ArchiveConversation hides a conversation from default listings.
func (s *SQLiteStorage) ArchiveConversation(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `UPDATE conversations SET archived = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to archive conversation: %w", err)
	}
	return expectAffected(result, "conversation", id)
}

// DeleteConversation permanently removes a conversation and its messages.
func (s *SQLiteStorage) DeleteConversation(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	return s.inTx(ctx, func(tx *sql.Tx) error {
		messages, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE conversation_id = ?`, id)
		if err != nil {
			return fmt.Errorf("failed to delete messages: %w", err)
		}

		result, err := tx.ExecContext(ctx, `DELETE FROM conversations WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("failed to delete conversation: %w", err)
		}
		if err := expectAffected(result, "conversation", id); err != nil {
			return err
		}

		removed, _ := messages.RowsAffected()
		slog.Debug("deleted conversation", "id", id, "messages", removed)
		return nil
	})
}

func (s *SQLiteStorage) queryMessages(ctx context.Context, query string, args ...any) ([]model.Message, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var messages []model.Message
	for rows.Next() {
		var (
			msg       model.Message
			role      string
			createdAt string
		)
		if err := rows.Scan(&msg.ID, &msg.ConversationID, &role, &msg.Content,
			&msg.InputTokens, &msg.OutputTokens, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		if msg.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		msg.Role = model.Role(role)
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating messages: %w", err)
	}
	return messages, nil
}

func scanConversation(row rowScanner) (*model.Conversation, error) {
	var (
		conv                 model.Conversation
		createdAt, updatedAt string
	)
	if err := row.Scan(&conv.ID, &conv.Title, &conv.Archived, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan conversation: %w", err)
	}

	var err error
	if conv.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if conv.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &conv, nil
}

func expectAffected(result sql.Result, entity, id string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", entity, id, common.ErrNotFound)
	}
	return nil
}
