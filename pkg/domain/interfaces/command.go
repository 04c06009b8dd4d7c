package interfaces

import (
	"context"

	"github.com/secmon-lab/asclepius/pkg/domain/model"
)

// CommandRepository defines the interface for command assignments
type CommandRepository interface {
	// Assign stores a and relieves the current holder of the same role in one
	// atomic step. The relieved assignment is returned, or nil if the role was vacant.
	Assign(ctx context.Context, a *model.CommandAssignment) (*model.CommandAssignment, error)

	// List returns all assignments of an event in assignment order
	List(ctx context.Context, eventID model.EventID) ([]*model.CommandAssignment, error)
}
