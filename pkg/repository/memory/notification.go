package memory

import (
	"context"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/asclepius/pkg/domain/model"
	"github.com/secmon-lab/asclepius/pkg/domain/types"
)

type notificationRepository struct {
	mu      sync.RWMutex
	events  *eventRepository
	intents map[model.NotificationID]*model.NotificationIntent
	order   []model.NotificationID
}

func newNotificationRepository(events *eventRepository) *notificationRepository {
	return &notificationRepository{
		events:  events,
		intents: make(map[model.NotificationID]*model.NotificationIntent),
	}
}

func copyNotification(n *model.NotificationIntent) *model.NotificationIntent {
	c := *n
	c.DeliveredAt = copyTimePtr(n.DeliveredAt)
	return &c
}

func (r *notificationRepository) Create(ctx context.Context, n *model.NotificationIntent) (*model.NotificationIntent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.intents[n.ID]; exists {
		return nil, goerr.Wrap(model.ErrConflict, "notification already exists", goerr.V(model.NotificationIDKey, n.ID))
	}

	now := time.Now().UTC()
	created := copyNotification(n)
	created.CreatedAt = now
	created.UpdatedAt = now

	r.intents[created.ID] = created
	r.order = append(r.order, created.ID)
	return copyNotification(created), nil
}

func (r *notificationRepository) Get(ctx context.Context, id model.NotificationID) (*model.NotificationIntent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n, exists := r.intents[id]
	if !exists {
		return nil, goerr.Wrap(ErrNotFound, "notification not found", goerr.V(model.NotificationIDKey, id))
	}
	return copyNotification(n), nil
}

func (r *notificationRepository) Modify(ctx context.Context, id model.NotificationID, fn func(n *model.NotificationIntent) error) (*model.NotificationIntent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, exists := r.intents[id]
	if !exists {
		return nil, goerr.Wrap(ErrNotFound, "notification not found", goerr.V(model.NotificationIDKey, id))
	}
	if err := r.events.ensureOpen(existing.EventID); err != nil {
		return nil, goerr.Wrap(err, "notification belongs to a closed event", goerr.V(model.NotificationIDKey, id))
	}

	working := copyNotification(existing)
	if err := fn(working); err != nil {
		return nil, err
	}
	working.ID = existing.ID
	working.CreatedAt = existing.CreatedAt
	working.UpdatedAt = time.Now().UTC()

	r.intents[id] = working
	return copyNotification(working), nil
}

func (r *notificationRepository) ListPending(ctx context.Context, maxAttempts, limit int) ([]*model.NotificationIntent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*model.NotificationIntent
	for _, id := range r.order {
		n := r.intents[id]
		pending := n.Status == types.NotificationQueued ||
			(n.Status == types.NotificationFailed && n.Attempts < maxAttempts)
		if !pending {
			continue
		}
		out = append(out, copyNotification(n))
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (r *notificationRepository) ListByVictim(ctx context.Context, victimID model.VictimID) ([]*model.NotificationIntent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []*model.NotificationIntent{}
	for _, id := range r.order {
		if n := r.intents[id]; n.VictimID == victimID {
			out = append(out, copyNotification(n))
		}
	}
	return out, nil
}

func (r *notificationRepository) ListByEvent(ctx context.Context, eventID model.EventID) ([]*model.NotificationIntent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []*model.NotificationIntent{}
	for _, id := range r.order {
		if n := r.intents[id]; n.EventID == eventID {
			out = append(out, copyNotification(n))
		}
	}
	return out, nil
}
