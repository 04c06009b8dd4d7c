package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/asclepius/pkg/domain/model"
)

type eventRepository struct {
	mu     sync.RWMutex
	events map[model.EventID]*model.Event
	liveID model.EventID
}

func newEventRepository() *eventRepository {
	return &eventRepository{
		events: make(map[model.EventID]*model.Event),
	}
}

func copyTimePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

// copyEvent creates a deep copy of an event
func copyEvent(e *model.Event) *model.Event {
	c := *e
	c.DeactivatingAt = copyTimePtr(e.DeactivatingAt)
	c.ClosedAt = copyTimePtr(e.ClosedAt)
	if e.FinalResources != nil {
		c.FinalResources = append([]model.ResourceSnapshot(nil), e.FinalResources...)
	}
	return &c
}

// ensureOpen fails with model.ErrEventClosed when the event is stored and
// closed. Writers call it while holding their own lock so a close cannot slip
// in between the check and the write.
func (r *eventRepository) ensureOpen(id model.EventID) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if e, exists := r.events[id]; exists && e.IsClosed() {
		return goerr.Wrap(model.ErrEventClosed, "event is closed", goerr.V(model.EventIDKey, id))
	}
	return nil
}

func (r *eventRepository) CreateActive(ctx context.Context, e *model.Event) (*model.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.liveID != "" {
		return nil, goerr.Wrap(model.ErrConflict, "another event is already active",
			goerr.V(model.EventIDKey, r.liveID))
	}
	if _, exists := r.events[e.ID]; exists {
		return nil, goerr.Wrap(model.ErrConflict, "event already exists", goerr.V(model.EventIDKey, e.ID))
	}

	created := copyEvent(e)
	created.Version = 1
	created.UpdatedAt = time.Now().UTC()

	r.events[created.ID] = created
	if created.Status.IsLive() {
		r.liveID = created.ID
	}
	return copyEvent(created), nil
}

func (r *eventRepository) Get(ctx context.Context, id model.EventID) (*model.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, exists := r.events[id]
	if !exists {
		return nil, goerr.Wrap(ErrNotFound, "event not found", goerr.V(model.EventIDKey, id))
	}
	return copyEvent(e), nil
}

func (r *eventRepository) GetActive(ctx context.Context) (*model.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.liveID == "" {
		return nil, nil
	}
	return copyEvent(r.events[r.liveID]), nil
}

func (r *eventRepository) List(ctx context.Context) ([]*model.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	events := make([]*model.Event, 0, len(r.events))
	for _, e := range r.events {
		events = append(events, copyEvent(e))
	}
	sort.Slice(events, func(i, j int) bool {
		return events[i].ActivatedAt.After(events[j].ActivatedAt)
	})
	return events, nil
}

func (r *eventRepository) Update(ctx context.Context, e *model.Event, expectedVersion int64) (*model.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, exists := r.events[e.ID]
	if !exists {
		return nil, goerr.Wrap(ErrNotFound, "event not found", goerr.V(model.EventIDKey, e.ID))
	}
	if existing.Version != expectedVersion {
		return nil, goerr.Wrap(model.ErrConcurrentModification, "event was modified concurrently",
			goerr.V(model.EventIDKey, e.ID),
			goerr.V(model.ExpectedKey, expectedVersion),
			goerr.V(model.ActualKey, existing.Version))
	}

	updated := copyEvent(e)
	updated.Version = existing.Version + 1
	updated.UpdatedAt = time.Now().UTC()
	r.events[updated.ID] = updated

	if r.liveID == updated.ID && !updated.Status.IsLive() {
		r.liveID = ""
	}
	return copyEvent(updated), nil
}
