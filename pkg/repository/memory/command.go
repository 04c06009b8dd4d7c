package memory

import (
	"context"
	"sync"

	"github.com/secmon-lab/asclepius/pkg/domain/model"
)

type commandRepository struct {
	mu          sync.RWMutex
	assignments map[model.EventID][]*model.CommandAssignment
}

func newCommandRepository() *commandRepository {
	return &commandRepository{
		assignments: make(map[model.EventID][]*model.CommandAssignment),
	}
}

func copyAssignment(a *model.CommandAssignment) *model.CommandAssignment {
	c := *a
	c.RelievedAt = copyTimePtr(a.RelievedAt)
	return &c
}

func (r *commandRepository) Assign(ctx context.Context, a *model.CommandAssignment) (*model.CommandAssignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var relieved *model.CommandAssignment
	for _, existing := range r.assignments[a.EventID] {
		if existing.Role == a.Role && existing.IsActive() {
			at := a.AssignedAt
			existing.RelievedAt = &at
			relieved = copyAssignment(existing)
		}
	}

	r.assignments[a.EventID] = append(r.assignments[a.EventID], copyAssignment(a))
	return relieved, nil
}

func (r *commandRepository) List(ctx context.Context, eventID model.EventID) ([]*model.CommandAssignment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*model.CommandAssignment, 0, len(r.assignments[eventID]))
	for _, a := range r.assignments[eventID] {
		out = append(out, copyAssignment(a))
	}
	return out, nil
}

