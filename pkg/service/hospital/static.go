package hospital

import (
	"context"
	"maps"

	"github.com/secmon-lab/asclepius/pkg/domain/interfaces"
	"github.com/secmon-lab/asclepius/pkg/domain/model"
)

// StaticCapacity serves a fixed snapshot from the configuration file. It is
// used when no hospital information system endpoint is configured.
type StaticCapacity struct {
	snapshot model.CapacitySnapshot
}

var _ interfaces.CapacityProvider = &StaticCapacity{}

func NewStaticCapacity(snapshot model.CapacitySnapshot) *StaticCapacity {
	return &StaticCapacity{snapshot: maps.Clone(snapshot)}
}

func (s *StaticCapacity) Snapshot(ctx context.Context) (model.CapacitySnapshot, error) {
	return maps.Clone(s.snapshot), nil
}

// NoIdentity never matches. Registration works without an identity service.
type NoIdentity struct{}

var _ interfaces.IdentityLookup = NoIdentity{}

func (NoIdentity) Lookup(ctx context.Context, scanID string) (*model.Identity, error) {
	return nil, nil
}
