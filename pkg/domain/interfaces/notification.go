package interfaces

import (
	"context"

	"github.com/secmon-lab/asclepius/pkg/domain/model"
)

// NotificationRepository defines the interface for notification intents
type NotificationRepository interface {
	Create(ctx context.Context, n *model.NotificationIntent) (*model.NotificationIntent, error)
	Get(ctx context.Context, id model.NotificationID) (*model.NotificationIntent, error)

	// Modify applies fn to the stored intent atomically and saves the result
	Modify(ctx context.Context, id model.NotificationID, fn func(n *model.NotificationIntent) error) (*model.NotificationIntent, error)

	// ListPending returns queued intents and failed intents with fewer than
	// maxAttempts attempts, oldest first, at most limit
	ListPending(ctx context.Context, maxAttempts, limit int) ([]*model.NotificationIntent, error)

	ListByVictim(ctx context.Context, victimID model.VictimID) ([]*model.NotificationIntent, error)
	ListByEvent(ctx context.Context, eventID model.EventID) ([]*model.NotificationIntent, error)
}
