package memory

import (
	"context"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/asclepius/pkg/domain/model"
)

type victimRepository struct {
	mu      sync.RWMutex
	events  *eventRepository
	victims map[model.VictimID]*model.Victim
	byEvent map[model.EventID][]model.VictimID
	seq     map[model.EventID]int64
}

func newVictimRepository(events *eventRepository) *victimRepository {
	return &victimRepository{
		events:  events,
		victims: make(map[model.VictimID]*model.Victim),
		byEvent: make(map[model.EventID][]model.VictimID),
		seq:     make(map[model.EventID]int64),
	}
}

func (r *victimRepository) NextSeq(ctx context.Context, eventID model.EventID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq[eventID]++
	return r.seq[eventID], nil
}

func (r *victimRepository) Create(ctx context.Context, v *model.Victim) (*model.Victim, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.victims[v.ID]; exists {
		return nil, goerr.Wrap(model.ErrConflict, "victim already exists", goerr.V(model.VictimIDKey, v.ID))
	}

	created := model.CopyVictim(v)
	created.Version = 1
	created.UpdatedAt = time.Now().UTC()

	r.victims[created.ID] = created
	r.byEvent[created.EventID] = append(r.byEvent[created.EventID], created.ID)
	return model.CopyVictim(created), nil
}

func (r *victimRepository) Get(ctx context.Context, id model.VictimID) (*model.Victim, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	v, exists := r.victims[id]
	if !exists {
		return nil, goerr.Wrap(ErrNotFound, "victim not found", goerr.V(model.VictimIDKey, id))
	}
	return model.CopyVictim(v), nil
}

func (r *victimRepository) List(ctx context.Context, eventID model.EventID, filter model.VictimFilter) ([]*model.Victim, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := r.byEvent[eventID]
	victims := make([]*model.Victim, 0, len(ids))
	for _, id := range ids {
		v := r.victims[id]
		if filter.Match(v) {
			victims = append(victims, model.CopyVictim(v))
		}
	}
	return victims, nil
}

func (r *victimRepository) Update(ctx context.Context, v *model.Victim, expectedVersion int64) (*model.Victim, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, exists := r.victims[v.ID]
	if !exists {
		return nil, goerr.Wrap(ErrNotFound, "victim not found", goerr.V(model.VictimIDKey, v.ID))
	}
	if existing.Version != expectedVersion {
		return nil, goerr.Wrap(model.ErrConcurrentModification, "victim was modified concurrently",
			goerr.V(model.VictimIDKey, v.ID),
			goerr.V(model.ExpectedKey, expectedVersion),
			goerr.V(model.ActualKey, existing.Version))
	}
	if err := r.events.ensureOpen(existing.EventID); err != nil {
		return nil, goerr.Wrap(err, "victim belongs to a closed event", goerr.V(model.VictimIDKey, v.ID))
	}

	updated := model.CopyVictim(v)
	updated.EventID = existing.EventID
	updated.Seq = existing.Seq
	updated.TempID = existing.TempID
	updated.ArrivedAt = existing.ArrivedAt
	updated.Version = existing.Version + 1
	updated.UpdatedAt = time.Now().UTC()

	r.victims[updated.ID] = updated
	return model.CopyVictim(updated), nil
}
