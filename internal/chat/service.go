// Package chat provides the chat message service: validation, durable
// storage, history pagination, and soft deletion.
package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/research-collab/backend/internal/model"
	"github.com/research-collab/backend/internal/repository"
)

const (
	// DefaultHistoryLimit is the page size used when the caller does not specify one.
	DefaultHistoryLimit = 50

	// MaxHistoryLimit caps the page size a caller may request.
	MaxHistoryLimit = 100
)

// Service manages chat messages for project rooms. It is the durable side
// of the real-time chat: every broadcast chat message is appended here
// first, and the id/timestamp it assigns are what clients reconcile against.
type Service struct {
	repo *repository.MessageRepository
}

// NewService creates a new chat service.
func NewService(repo *repository.MessageRepository) *Service {
	return &Service{repo: repo}
}

// Append validates and durably stores a chat message, assigning its ID and
// server timestamp. The returned message is the authoritative copy to broadcast.
func (s *Service) Append(ctx context.Context, projectID, userID, userName, content string) (*model.ChatMessage, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, model.ErrEmptyMessage
	}
	if len(content) > model.MaxMessageLength {
		return nil, model.ErrMessageTooLong
	}

	msg := &model.ChatMessage{
		ID:        uuid.New().String(),
		ProjectID: projectID,
		UserID:    userID,
		UserName:  userName,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to persist message: %w", err)
	}

	return msg, nil
}

// History returns a page of messages for a project, newest first. limit is
// clamped to [1, MaxHistoryLimit]; zero means DefaultHistoryLimit. If beforeID
// names an existing message, only messages older than it are returned.
func (s *Service) History(ctx context.Context, projectID string, limit int, beforeID string) (*model.ChatHistory, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}

	var before time.Time
	if beforeID != "" {
		beforeMsg, err := s.repo.GetByID(ctx, beforeID)
		if err == nil {
			before = beforeMsg.Timestamp
		}
		// Unknown cursor IDs fall through to an unpaginated query,
		// matching lenient cursor handling on the client side.
	}

	messages, hasMore, err := s.repo.ListByProject(ctx, projectID, limit, before)
	if err != nil {
		return nil, err
	}

	if messages == nil {
		messages = []*model.ChatMessage{}
	}

	return &model.ChatHistory{
		Messages: messages,
		Count:    len(messages),
		HasMore:  hasMore,
	}, nil
}

// Delete soft-deletes a message. Only the message author may delete it;
// anyone else gets model.ErrForbidden. The deleted message is returned so
// the caller can announce the deletion to the live room.
func (s *Service) Delete(ctx context.Context, messageID, requesterID string) (*model.ChatMessage, error) {
	msg, err := s.repo.GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}

	if msg.UserID != requesterID {
		return nil, model.ErrForbidden
	}

	if err := s.repo.SoftDelete(ctx, messageID); err != nil {
		return nil, err
	}

	msg.Deleted = true
	return msg, nil
}

// Stats returns aggregate chat statistics for a project.
func (s *Service) Stats(ctx context.Context, projectID string) (*model.ChatStats, error) {
	return s.repo.Stats(ctx, projectID)
}
