package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/research-collab/backend/internal/db"
	"github.com/research-collab/backend/internal/model"
)

// For any stored chat message, retrieval returns an identical record:
// body, sender, and server timestamp survive the round trip unchanged.
func TestMessagePersistenceRoundTripProperty(t *testing.T) {
	testDB, err := db.NewTestDB()
	if err != nil {
		t.Fatalf("failed to init test db: %v", err)
	}
	defer testDB.Close()

	repo := NewMessageRepository(testDB)
	ctx := context.Background()

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	nonEmptyString := gen.AlphaString().SuchThat(func(s string) bool {
		return len(s) > 0 && len(s) <= 100
	})

	properties.Property("stored messages can be retrieved unchanged", prop.ForAll(
		func(projectID, userID, content string) bool {
			msg := &model.ChatMessage{
				ID:        uuid.New().String(),
				ProjectID: projectID,
				UserID:    userID,
				UserName:  "User " + userID,
				Content:   content,
				Timestamp: time.Now().UTC().Truncate(time.Microsecond),
			}

			if err := repo.Create(ctx, msg); err != nil {
				return false
			}

			got, err := repo.GetByID(ctx, msg.ID)
			if err != nil {
				return false
			}

			return got.ProjectID == msg.ProjectID &&
				got.UserID == msg.UserID &&
				got.UserName == msg.UserName &&
				got.Content == msg.Content &&
				got.Timestamp.Equal(msg.Timestamp) &&
				!got.Edited && !got.Deleted
		},
		nonEmptyString,
		nonEmptyString,
		nonEmptyString,
	))

	properties.Property("soft-deleted messages never appear in listings", prop.ForAll(
		func(projectID, content string) bool {
			// Use a per-case project so earlier cases don't interfere.
			projectID = projectID + "-" + uuid.New().String()

			kept := &model.ChatMessage{
				ID:        uuid.New().String(),
				ProjectID: projectID,
				UserID:    "user-1",
				UserName:  "User 1",
				Content:   content,
				Timestamp: time.Now().UTC(),
			}
			deleted := &model.ChatMessage{
				ID:        uuid.New().String(),
				ProjectID: projectID,
				UserID:    "user-1",
				UserName:  "User 1",
				Content:   content,
				Timestamp: time.Now().UTC(),
			}

			if err := repo.Create(ctx, kept); err != nil {
				return false
			}
			if err := repo.Create(ctx, deleted); err != nil {
				return false
			}
			if err := repo.SoftDelete(ctx, deleted.ID); err != nil {
				return false
			}

			messages, _, err := repo.ListByProject(ctx, projectID, 10, time.Time{})
			if err != nil {
				return false
			}
			if len(messages) != 1 {
				return false
			}
			return messages[0].ID == kept.ID
		},
		nonEmptyString,
		nonEmptyString,
	))

	properties.TestingRun(t)
}
