package resource

import (
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/asclepius/pkg/domain/model"
	"github.com/secmon-lab/asclepius/pkg/domain/types"
)

// Pool tracks one countable resource of one event. Every mutator holds the
// pool mutex for its whole read-check-write, so two reservations can never
// observe the same available count. Pool never blocks waiting for capacity.
type Pool struct {
	mu sync.Mutex

	eventID  model.EventID
	category types.ResourceCategory
	total    int
	reserved int
	inUse    int
	frozen   bool

	tokens map[model.ReservationID]*model.Reservation
	live   map[string]model.ReservationID // dedup key -> unreleased token
	now    func() time.Time
}

func newPool(eventID model.EventID, category types.ResourceCategory, entry model.CapacityEntry, now func() time.Time) *Pool {
	inUse := entry.Total - entry.Available
	if inUse < 0 {
		inUse = 0
	}
	return &Pool{
		eventID:  eventID,
		category: category,
		total:    entry.Total,
		inUse:    inUse,
		tokens:   make(map[model.ReservationID]*model.Reservation),
		live:     make(map[string]model.ReservationID),
		now:      now,
	}
}

// Category returns the resource category of the pool
func (p *Pool) Category() types.ResourceCategory {
	return p.category
}

func (p *Pool) snapshot() model.ResourceSnapshot {
	return model.ResourceSnapshot{
		Category: p.category,
		Total:    p.total,
		Reserved: p.reserved,
		InUse:    p.inUse,
	}
}

func (p *Pool) available() int {
	return p.total - p.reserved - p.inUse
}

func (p *Pool) closedError() error {
	return goerr.Wrap(model.ErrEventClosed, "resource pool is frozen",
		goerr.V(model.EventIDKey, p.eventID),
		goerr.V(model.CategoryKey, p.category))
}

// Snapshot returns a consistent copy of the counters
func (p *Pool) Snapshot() model.ResourceSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshot()
}

// Reserve takes count units. When dedupKey is not empty and a live
// reservation already holds it, that reservation is returned with
// existing=true and nothing else changes.
func (p *Pool) Reserve(count int, dedupKey string) (rsv *model.Reservation, existing bool, err error) {
	if count < 1 {
		return nil, false, goerr.Wrap(model.ErrValidation, "reservation count must be positive", goerr.V("count", count))
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.frozen {
		return nil, false, p.closedError()
	}

	if dedupKey != "" {
		if id, ok := p.live[dedupKey]; ok {
			c := *p.tokens[id]
			return &c, true, nil
		}
	}

	if p.available() < count {
		return nil, false, goerr.Wrap(model.ErrInsufficientCapacity, "not enough units available",
			goerr.V(model.CategoryKey, p.category),
			goerr.V("requested", count),
			goerr.V("available", p.available()))
	}

	p.reserved += count
	r := &model.Reservation{
		ID:        model.NewReservationID(),
		EventID:   p.eventID,
		Category:  p.category,
		Count:     count,
		DedupKey:  dedupKey,
		State:     model.ReservationReserved,
		CreatedAt: p.now(),
	}
	p.tokens[r.ID] = r
	if dedupKey != "" {
		p.live[dedupKey] = r.ID
	}

	c := *r
	return &c, false, nil
}

// Occupy moves a reservation from reserved to in use. Occupying an
// in-use reservation again is a no-op.
func (p *Pool) Occupy(id model.ReservationID) (*model.Reservation, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.frozen {
		return nil, p.closedError()
	}

	r, ok := p.tokens[id]
	if !ok {
		return nil, goerr.Wrap(model.ErrNotFound, "reservation not found", goerr.V(model.ReservationIDKey, id))
	}

	switch r.State {
	case model.ReservationInUse:
	case model.ReservationReserved:
		p.reserved -= r.Count
		p.inUse += r.Count
		r.State = model.ReservationInUse
	default:
		return nil, goerr.Wrap(model.ErrInvalidTransition, "reservation already released", goerr.V(model.ReservationIDKey, id))
	}

	c := *r
	return &c, nil
}

// Release returns the units of a reservation to the pool. Releasing an
// already released reservation is a no-op and reports released=false.
func (p *Pool) Release(id model.ReservationID) (rsv *model.Reservation, released bool, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.frozen {
		return nil, false, p.closedError()
	}

	r, ok := p.tokens[id]
	if !ok {
		return nil, false, goerr.Wrap(model.ErrNotFound, "reservation not found", goerr.V(model.ReservationIDKey, id))
	}

	switch r.State {
	case model.ReservationReleased:
		c := *r
		return &c, false, nil
	case model.ReservationReserved:
		p.reserved -= r.Count
	case model.ReservationInUse:
		p.inUse -= r.Count
	}

	now := p.now()
	r.State = model.ReservationReleased
	r.ReleasedAt = &now
	if r.DedupKey != "" && p.live[r.DedupKey] == r.ID {
		delete(p.live, r.DedupKey)
	}

	c := *r
	return &c, true, nil
}

// AdjustCapacity changes total by delta. Shrinking below the units
// already reserved or in use fails with model.ErrInsufficientCapacity.
func (p *Pool) AdjustCapacity(delta int) (model.ResourceSnapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.frozen {
		return model.ResourceSnapshot{}, p.closedError()
	}
	if delta == 0 {
		return model.ResourceSnapshot{}, goerr.Wrap(model.ErrValidation, "capacity delta must not be zero")
	}
	if p.total+delta < p.reserved+p.inUse {
		return model.ResourceSnapshot{}, goerr.Wrap(model.ErrInsufficientCapacity, "capacity cannot drop below committed units",
			goerr.V(model.CategoryKey, p.category),
			goerr.V("delta", delta),
			goerr.V("available", p.available()))
	}

	p.total += delta
	return p.snapshot(), nil
}

// Reservation returns a copy of a reservation token
func (p *Pool) Reservation(id model.ReservationID) (*model.Reservation, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	r, ok := p.tokens[id]
	if !ok {
		return nil, false
	}
	c := *r
	return &c, true
}

// Freeze makes every later mutator fail with model.ErrEventClosed and
// returns the final counters.
func (p *Pool) Freeze() model.ResourceSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.frozen = true
	return p.snapshot()
}

// Thaw reverts Freeze
func (p *Pool) Thaw() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.frozen = false
}
