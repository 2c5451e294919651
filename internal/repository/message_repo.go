package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/research-collab/backend/internal/model"
)

// MessageRepository provides data access for chat messages.
type MessageRepository struct {
	db *sql.DB
}

// NewMessageRepository creates a new MessageRepository.
func NewMessageRepository(db *sql.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// Create inserts a new chat message into the database.
func (r *MessageRepository) Create(ctx context.Context, msg *model.ChatMessage) error {
	query := `
		INSERT INTO chat_messages (id, project_id, user_id, user_name, content, timestamp, edited, deleted)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		msg.ID,
		msg.ProjectID,
		msg.UserID,
		msg.UserName,
		msg.Content,
		msg.Timestamp,
		msg.Edited,
		msg.Deleted,
	)
	if err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}

	return nil
}

// GetByID retrieves a chat message by its ID.
func (r *MessageRepository) GetByID(ctx context.Context, id string) (*model.ChatMessage, error) {
	query := `
		SELECT id, project_id, user_id, user_name, content, timestamp, edited, deleted
		FROM chat_messages
		WHERE id = ?
	`

	msg := &model.ChatMessage{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&msg.ID,
		&msg.ProjectID,
		&msg.UserID,
		&msg.UserName,
		&msg.Content,
		&msg.Timestamp,
		&msg.Edited,
		&msg.Deleted,
	)
	if err == sql.ErrNoRows {
		return nil, model.ErrMessageNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get message: %w", err)
	}

	return msg, nil
}

// ListByProject retrieves up to limit messages for a project, newest first,
// excluding soft-deleted messages. If before is non-zero, only messages older
// than that timestamp are returned. The second return value reports whether
// more messages exist beyond the returned page.
func (r *MessageRepository) ListByProject(ctx context.Context, projectID string, limit int, before time.Time) ([]*model.ChatMessage, bool, error) {
	query := `
		SELECT id, project_id, user_id, user_name, content, timestamp, edited, deleted
		FROM chat_messages
		WHERE project_id = ? AND deleted = 0
	`
	args := []interface{}{projectID}

	if !before.IsZero() {
		query += ` AND timestamp < ?`
		args = append(args, before)
	}

	// Fetch one extra row to detect whether more messages exist.
	query += ` ORDER BY timestamp DESC LIMIT ?`
	args = append(args, limit+1)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, false, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var messages []*model.ChatMessage
	for rows.Next() {
		msg := &model.ChatMessage{}
		err := rows.Scan(
			&msg.ID,
			&msg.ProjectID,
			&msg.UserID,
			&msg.UserName,
			&msg.Content,
			&msg.Timestamp,
			&msg.Edited,
			&msg.Deleted,
		)
		if err != nil {
			return nil, false, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("error iterating messages: %w", err)
	}

	hasMore := len(messages) > limit
	if hasMore {
		messages = messages[:limit]
	}

	return messages, hasMore, nil
}

// SoftDelete marks a chat message as deleted without removing the row.
func (r *MessageRepository) SoftDelete(ctx context.Context, id string) error {
	query := `UPDATE chat_messages SET deleted = 1 WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return model.ErrMessageNotFound
	}

	return nil
}

// Stats returns the total message count and distinct sender count for a project.
func (r *MessageRepository) Stats(ctx context.Context, projectID string) (*model.ChatStats, error) {
	query := `
		SELECT COUNT(*), COUNT(DISTINCT user_id)
		FROM chat_messages
		WHERE project_id = ? AND deleted = 0
	`

	stats := &model.ChatStats{ProjectID: projectID}
	err := r.db.QueryRowContext(ctx, query, projectID).Scan(&stats.TotalMessages, &stats.ActiveUsers)
	if err != nil {
		return nil, fmt.Errorf("failed to get chat stats: %w", err)
	}

	return stats, nil
}
