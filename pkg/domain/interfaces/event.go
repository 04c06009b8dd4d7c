package interfaces

import (
	"context"

	"github.com/secmon-lab/asclepius/pkg/domain/model"
)

// EventRepository defines the interface for MCI event data access
type EventRepository interface {
	// CreateActive stores e only if no other event is live. The check and the
	// write are atomic; a live event yields model.ErrConflict.
	CreateActive(ctx context.Context, e *model.Event) (*model.Event, error)

	// Get retrieves an event by ID
	Get(ctx context.Context, id model.EventID) (*model.Event, error)

	// GetActive returns the live event, or nil, nil if there is none
	GetActive(ctx context.Context) (*model.Event, error)

	// List returns all events, newest activation first
	List(ctx context.Context) ([]*model.Event, error)

	// Update replaces e if the stored version equals expectedVersion and
	// returns the stored copy with Version incremented. A mismatch yields
	// model.ErrConcurrentModification. Closing an event frees the live slot.
	Update(ctx context.Context, e *model.Event, expectedVersion int64) (*model.Event, error)
}
