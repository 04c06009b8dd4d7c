package repository_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/asclepius/pkg/domain/interfaces"
	"github.com/secmon-lab/asclepius/pkg/domain/model"
	"github.com/secmon-lab/asclepius/pkg/domain/types"
	"github.com/secmon-lab/asclepius/pkg/repository/firestore"
	"github.com/secmon-lab/asclepius/pkg/repository/memory"
)

type repoFactory func(t *testing.T) interfaces.Repository

func newMemoryRepo(t *testing.T) interfaces.Repository {
	return memory.New()
}

// firestoreFactory returns nil when the emulator or project is not configured
func firestoreFactory(t *testing.T) repoFactory {
	projectID := os.Getenv("TEST_FIRESTORE_PROJECT_ID")
	databaseID := os.Getenv("TEST_FIRESTORE_DATABASE_ID")
	if projectID == "" || databaseID == "" {
		t.Skip("TEST_FIRESTORE_PROJECT_ID and TEST_FIRESTORE_DATABASE_ID are required")
	}

	return func(t *testing.T) interfaces.Repository {
		prefix := "test_" + uuid.NewString()[:8]
		repo, err := firestore.New(context.Background(), projectID, databaseID,
			firestore.WithCollectionPrefix(prefix))
		gt.NoError(t, err).Required()
		t.Cleanup(func() { _ = repo.Close() })
		return repo
	}
}

func newActiveEvent(name string) *model.Event {
	now := time.Now().UTC()
	return &model.Event{
		ID:          model.NewEventID(),
		Code:        model.GenerateEventCode(now),
		Name:        name,
		AlertLevel:  types.AlertLevelOrange,
		Type:        types.EventTypeTransport,
		Status:      types.EventStatusActive,
		ActivatedAt: now,
		ActivatedBy: "U-commander",
	}
}

// closedEvent stores an event and closes it
func closedEvent(t *testing.T, repo interfaces.Repository) *model.Event {
	t.Helper()
	ctx := context.Background()
	created, err := repo.Event().CreateActive(ctx, newActiveEvent("Warehouse fire"))
	gt.NoError(t, err).Required()

	closing := *created
	now := time.Now().UTC()
	closing.Status = types.EventStatusClosed
	closing.ClosedAt = &now
	closing.CloseReason = "stood down"
	closed, err := repo.Event().Update(ctx, &closing, created.Version)
	gt.NoError(t, err).Required()
	return closed
}
