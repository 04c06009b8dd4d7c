package interfaces

import (
	"context"

	"github.com/secmon-lab/asclepius/pkg/domain/model"
)

// VictimRepository defines the interface for victim data access
type VictimRepository interface {
	// NextSeq atomically allocates the next victim sequence number of an event, starting at 1
	NextSeq(ctx context.Context, eventID model.EventID) (int64, error)

	// Create stores a new victim with Version 1
	Create(ctx context.Context, v *model.Victim) (*model.Victim, error)

	// Get retrieves a victim by ID
	Get(ctx context.Context, id model.VictimID) (*model.Victim, error)

	// List returns victims of an event in arrival order
	List(ctx context.Context, eventID model.EventID, filter model.VictimFilter) ([]*model.Victim, error)

	// Update replaces v if the stored version equals expectedVersion.
	// A mismatch yields model.ErrConcurrentModification.
	Update(ctx context.Context, v *model.Victim, expectedVersion int64) (*model.Victim, error)
}
