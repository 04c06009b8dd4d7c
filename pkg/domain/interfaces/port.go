package interfaces

import (
	"context"

	"github.com/secmon-lab/asclepius/pkg/domain/model"
	"github.com/secmon-lab/asclepius/pkg/domain/types"
)

// CapacityProvider returns the hospital capacity used to seed resource pools
type CapacityProvider interface {
	Snapshot(ctx context.Context) (model.CapacitySnapshot, error)
}

// IdentityLookup resolves a scanned identifier. No match is nil, nil.
type IdentityLookup interface {
	Lookup(ctx context.Context, scanID string) (*model.Identity, error)
}

// NotificationSender delivers a notification through one method
type NotificationSender interface {
	Method() types.NotificationMethod
	Send(ctx context.Context, n *model.NotificationIntent) error
}

// ActivityPublisher mirrors appended activity entries to an external stream
type ActivityPublisher interface {
	Publish(ctx context.Context, e *model.ActivityEntry) error
}
