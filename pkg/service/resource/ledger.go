package resource

import (
	"sort"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/asclepius/pkg/domain/model"
	"github.com/secmon-lab/asclepius/pkg/domain/types"
)

type eventPools struct {
	mu     sync.RWMutex
	pools  map[types.ResourceCategory]*Pool
	frozen bool
}

// Ledger owns the resource pools of every opened event. The ledger lock only
// guards the pool maps; counters are guarded by each pool's own mutex, so
// reservations on different pools never contend.
type Ledger struct {
	mu     sync.RWMutex
	events map[model.EventID]*eventPools
	now    func() time.Time
}

// Option configures a Ledger
type Option func(*Ledger)

// WithClock replaces the time source used for reservation timestamps
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		l.now = now
	}
}

// NewLedger creates an empty ledger
func NewLedger(opts ...Option) *Ledger {
	l := &Ledger{
		events: make(map[model.EventID]*eventPools),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Open seeds the pools of an event from a capacity snapshot
func (l *Ledger) Open(eventID model.EventID, snapshot model.CapacitySnapshot) error {
	for category, entry := range snapshot {
		if err := category.Validate(); err != nil {
			return goerr.Wrap(model.ErrValidation, "invalid capacity category", goerr.V(model.CategoryKey, category))
		}
		if entry.Total < 0 || entry.Available < 0 || entry.Available > entry.Total {
			return goerr.Wrap(model.ErrValidation, "invalid capacity entry",
				goerr.V(model.CategoryKey, category),
				goerr.V("total", entry.Total),
				goerr.V("available", entry.Available))
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.events[eventID]; ok {
		return goerr.Wrap(model.ErrConflict, "resource pools already opened", goerr.V(model.EventIDKey, eventID))
	}

	ep := &eventPools{pools: make(map[types.ResourceCategory]*Pool, len(snapshot))}
	for category, entry := range snapshot {
		ep.pools[category] = newPool(eventID, category, entry, l.now)
	}
	l.events[eventID] = ep
	return nil
}

// IsOpen reports whether pools exist for the event
func (l *Ledger) IsOpen(eventID model.EventID) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.events[eventID]
	return ok
}

func (l *Ledger) event(eventID model.EventID) (*eventPools, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	ep, ok := l.events[eventID]
	if !ok {
		return nil, goerr.Wrap(model.ErrNotFound, "no resource pools for event", goerr.V(model.EventIDKey, eventID))
	}
	return ep, nil
}

// Pool returns the pool of one category
func (l *Ledger) Pool(eventID model.EventID, category types.ResourceCategory) (*Pool, error) {
	ep, err := l.event(eventID)
	if err != nil {
		return nil, err
	}

	ep.mu.RLock()
	defer ep.mu.RUnlock()

	p, ok := ep.pools[category]
	if !ok {
		if ep.frozen {
			return nil, goerr.Wrap(model.ErrEventClosed, "resource pools are frozen", goerr.V(model.EventIDKey, eventID))
		}
		return nil, goerr.Wrap(model.ErrNotFound, "unknown resource category",
			goerr.V(model.EventIDKey, eventID),
			goerr.V(model.CategoryKey, category))
	}
	return p, nil
}

// Reserve takes count units from a pool
func (l *Ledger) Reserve(eventID model.EventID, category types.ResourceCategory, count int, dedupKey string) (*model.Reservation, bool, error) {
	p, err := l.Pool(eventID, category)
	if err != nil {
		return nil, false, err
	}
	return p.Reserve(count, dedupKey)
}

// Lookup finds a reservation token in any pool of the event
func (l *Ledger) Lookup(eventID model.EventID, id model.ReservationID) (*Pool, *model.Reservation, error) {
	ep, err := l.event(eventID)
	if err != nil {
		return nil, nil, err
	}

	ep.mu.RLock()
	defer ep.mu.RUnlock()

	for _, p := range ep.pools {
		if r, ok := p.Reservation(id); ok {
			return p, r, nil
		}
	}
	return nil, nil, goerr.Wrap(model.ErrNotFound, "reservation not found",
		goerr.V(model.EventIDKey, eventID),
		goerr.V(model.ReservationIDKey, id))
}

// Release returns a reservation's units. Double release is a no-op.
func (l *Ledger) Release(eventID model.EventID, id model.ReservationID) (*model.Reservation, bool, error) {
	p, _, err := l.Lookup(eventID, id)
	if err != nil {
		if l.isFrozen(eventID) {
			return nil, false, goerr.Wrap(model.ErrEventClosed, "resource pools are frozen", goerr.V(model.EventIDKey, eventID))
		}
		return nil, false, err
	}
	return p.Release(id)
}

// Occupy marks a reservation as in use
func (l *Ledger) Occupy(eventID model.EventID, id model.ReservationID) (*model.Reservation, error) {
	p, _, err := l.Lookup(eventID, id)
	if err != nil {
		return nil, err
	}
	return p.Occupy(id)
}

// AdjustCapacity changes the total of a pool. A positive delta on a
// category the event has no pool for opens a new, empty pool first.
func (l *Ledger) AdjustCapacity(eventID model.EventID, category types.ResourceCategory, delta int) (model.ResourceSnapshot, error) {
	if err := category.Validate(); err != nil {
		return model.ResourceSnapshot{}, goerr.Wrap(model.ErrValidation, "invalid resource category", goerr.V(model.CategoryKey, category))
	}

	ep, err := l.event(eventID)
	if err != nil {
		return model.ResourceSnapshot{}, err
	}

	ep.mu.Lock()
	if ep.frozen {
		ep.mu.Unlock()
		return model.ResourceSnapshot{}, goerr.Wrap(model.ErrEventClosed, "resource pools are frozen", goerr.V(model.EventIDKey, eventID))
	}
	p, ok := ep.pools[category]
	if !ok {
		if delta < 0 {
			ep.mu.Unlock()
			return model.ResourceSnapshot{}, goerr.Wrap(model.ErrNotFound, "unknown resource category",
				goerr.V(model.EventIDKey, eventID),
				goerr.V(model.CategoryKey, category))
		}
		p = newPool(eventID, category, model.CapacityEntry{}, l.now)
		ep.pools[category] = p
	}
	ep.mu.Unlock()

	return p.AdjustCapacity(delta)
}

// Snapshots returns every pool of the event sorted by category
func (l *Ledger) Snapshots(eventID model.EventID) ([]model.ResourceSnapshot, error) {
	ep, err := l.event(eventID)
	if err != nil {
		return nil, err
	}

	ep.mu.RLock()
	defer ep.mu.RUnlock()

	out := make([]model.ResourceSnapshot, 0, len(ep.pools))
	for _, p := range ep.pools {
		out = append(out, p.Snapshot())
	}
	sortSnapshots(out)
	return out, nil
}

// Freeze makes every pool of the event read-only and returns final counters
func (l *Ledger) Freeze(eventID model.EventID) ([]model.ResourceSnapshot, error) {
	ep, err := l.event(eventID)
	if err != nil {
		return nil, err
	}

	ep.mu.Lock()
	defer ep.mu.Unlock()

	ep.frozen = true
	out := make([]model.ResourceSnapshot, 0, len(ep.pools))
	for _, p := range ep.pools {
		out = append(out, p.Freeze())
	}
	sortSnapshots(out)
	return out, nil
}

// Thaw reopens pools frozen by Freeze when closing the event did not commit
func (l *Ledger) Thaw(eventID model.EventID) error {
	ep, err := l.event(eventID)
	if err != nil {
		return err
	}

	ep.mu.Lock()
	defer ep.mu.Unlock()

	ep.frozen = false
	for _, p := range ep.pools {
		p.Thaw()
	}
	return nil
}

func (l *Ledger) isFrozen(eventID model.EventID) bool {
	ep, err := l.event(eventID)
	if err != nil {
		return false
	}
	ep.mu.RLock()
	defer ep.mu.RUnlock()
	return ep.frozen
}

func sortSnapshots(s []model.ResourceSnapshot) {
	sort.Slice(s, func(i, j int) bool {
		return s[i].Category < s[j].Category
	})
}
