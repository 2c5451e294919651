package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/research-collab/backend/internal/db"
	"github.com/research-collab/backend/internal/model"
)

func newTestRepo(t *testing.T) *MessageRepository {
	t.Helper()
	testDB, err := db.NewTestDB()
	if err != nil {
		t.Fatalf("failed to init test db: %v", err)
	}
	t.Cleanup(func() { testDB.Close() })
	return NewMessageRepository(testDB)
}

func newMessage(projectID, userID, content string, ts time.Time) *model.ChatMessage {
	return &model.ChatMessage{
		ID:        uuid.New().String(),
		ProjectID: projectID,
		UserID:    userID,
		UserName:  "User " + userID,
		Content:   content,
		Timestamp: ts,
	}
}

func TestMessageCreateAndGet(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	msg := newMessage("p1", "user-1", "hello world", time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	if err := repo.Create(ctx, msg); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	got, err := repo.GetByID(ctx, msg.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}

	if got.ProjectID != msg.ProjectID || got.UserID != msg.UserID || got.Content != msg.Content {
		t.Errorf("retrieved message differs: %+v", got)
	}
	if !got.Timestamp.Equal(msg.Timestamp) {
		t.Errorf("timestamp mismatch: got %v, want %v", got.Timestamp, msg.Timestamp)
	}
	if got.Edited || got.Deleted {
		t.Errorf("new message must not be edited or deleted: %+v", got)
	}
}

func TestMessageGetNotFound(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.GetByID(context.Background(), "missing")
	if err != model.ErrMessageNotFound {
		t.Errorf("expected ErrMessageNotFound, got %v", err)
	}
}

func TestListByProjectOrderingAndPagination(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	var ids []string
	for i := 0; i < 5; i++ {
		msg := newMessage("p1", "user-1", fmt.Sprintf("message %d", i), base.Add(time.Duration(i)*time.Minute))
		if err := repo.Create(ctx, msg); err != nil {
			t.Fatalf("create failed: %v", err)
		}
		ids = append(ids, msg.ID)
	}

	// Another project's messages must not leak in.
	other := newMessage("p2", "user-2", "other project", base)
	if err := repo.Create(ctx, other); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	messages, hasMore, err := repo.ListByProject(ctx, "p1", 3, time.Time{})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(messages) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(messages))
	}
	if !hasMore {
		t.Error("expected hasMore with 5 messages and limit 3")
	}

	// Newest first.
	if messages[0].ID != ids[4] || messages[1].ID != ids[3] || messages[2].ID != ids[2] {
		t.Errorf("unexpected ordering: %v %v %v", messages[0].Content, messages[1].Content, messages[2].Content)
	}

	// Page two via the before cursor timestamp.
	messages, hasMore, err = repo.ListByProject(ctx, "p1", 3, messages[2].Timestamp)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(messages) != 2 || hasMore {
		t.Fatalf("expected final page of 2, got %d (hasMore=%v)", len(messages), hasMore)
	}
	if messages[0].ID != ids[1] || messages[1].ID != ids[0] {
		t.Errorf("unexpected second page ordering")
	}
}

func TestSoftDeleteExcludedFromListing(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	msg := newMessage("p1", "user-1", "to be deleted", time.Now().UTC())
	if err := repo.Create(ctx, msg); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if err := repo.SoftDelete(ctx, msg.ID); err != nil {
		t.Fatalf("soft delete failed: %v", err)
	}

	// The row survives but is flagged.
	got, err := repo.GetByID(ctx, msg.ID)
	if err != nil {
		t.Fatalf("get after delete failed: %v", err)
	}
	if !got.Deleted {
		t.Error("expected deleted flag to be set")
	}

	messages, _, err := repo.ListByProject(ctx, "p1", 10, time.Time{})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(messages) != 0 {
		t.Errorf("soft-deleted message leaked into listing: %d messages", len(messages))
	}

	if err := repo.SoftDelete(ctx, "missing"); err != model.ErrMessageNotFound {
		t.Errorf("expected ErrMessageNotFound for missing message, got %v", err)
	}
}

func TestStats(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	base := time.Now().UTC()
	for i := 0; i < 4; i++ {
		user := fmt.Sprintf("user-%d", i%2)
		msg := newMessage("p1", user, fmt.Sprintf("message %d", i), base.Add(time.Duration(i)*time.Second))
		if err := repo.Create(ctx, msg); err != nil {
			t.Fatalf("create failed: %v", err)
		}
	}

	stats, err := repo.Stats(ctx, "p1")
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.TotalMessages != 4 {
		t.Errorf("expected 4 messages, got %d", stats.TotalMessages)
	}
	if stats.ActiveUsers != 2 {
		t.Errorf("expected 2 distinct senders, got %d", stats.ActiveUsers)
	}
}
