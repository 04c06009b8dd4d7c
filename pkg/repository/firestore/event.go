package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/asclepius/pkg/domain/model"
	"github.com/secmon-lab/asclepius/pkg/domain/types"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type eventDoc struct {
	ID                  string                `firestore:"ID"`
	Code                string                `firestore:"Code"`
	Name                string                `firestore:"Name"`
	AlertLevel          string                `firestore:"AlertLevel"`
	Type                string                `firestore:"Type"`
	Description         string                `firestore:"Description"`
	Location            string                `firestore:"Location"`
	EstimatedCasualties int64                 `firestore:"EstimatedCasualties"`
	Status              string                `firestore:"Status"`
	ActivatedAt         time.Time             `firestore:"ActivatedAt"`
	ActivatedBy         string                `firestore:"ActivatedBy"`
	DeactivatingAt      *time.Time            `firestore:"DeactivatingAt"`
	ClosedAt            *time.Time            `firestore:"ClosedAt"`
	ClosedBy            string                `firestore:"ClosedBy"`
	CloseReason         string                `firestore:"CloseReason"`
	FinalResources      []resourceSnapshotDoc `firestore:"FinalResources"`
	Version             int64                 `firestore:"Version"`
	UpdatedAt           time.Time             `firestore:"UpdatedAt"`
}

type resourceSnapshotDoc struct {
	Category string `firestore:"Category"`
	Total    int64  `firestore:"Total"`
	Reserved int64  `firestore:"Reserved"`
	InUse    int64  `firestore:"InUse"`
}

// activeLockDoc holds the ID of the live event. An empty EventID means the slot is free.
type activeLockDoc struct {
	EventID string `firestore:"EventID"`
}

func toEventDoc(e *model.Event) *eventDoc {
	d := &eventDoc{
		ID:                  string(e.ID),
		Code:                e.Code,
		Name:                e.Name,
		AlertLevel:          string(e.AlertLevel),
		Type:                string(e.Type),
		Description:         e.Description,
		Location:            e.Location,
		EstimatedCasualties: int64(e.EstimatedCasualties),
		Status:              string(e.Status),
		ActivatedAt:         e.ActivatedAt,
		ActivatedBy:         e.ActivatedBy,
		DeactivatingAt:      e.DeactivatingAt,
		ClosedAt:            e.ClosedAt,
		ClosedBy:            e.ClosedBy,
		CloseReason:         e.CloseReason,
		Version:             e.Version,
		UpdatedAt:           e.UpdatedAt,
	}
	for _, s := range e.FinalResources {
		d.FinalResources = append(d.FinalResources, resourceSnapshotDoc{
			Category: string(s.Category),
			Total:    int64(s.Total),
			Reserved: int64(s.Reserved),
			InUse:    int64(s.InUse),
		})
	}
	return d
}

func fromEventDoc(d *eventDoc) *model.Event {
	e := &model.Event{
		ID:                  model.EventID(d.ID),
		Code:                d.Code,
		Name:                d.Name,
		AlertLevel:          types.AlertLevel(d.AlertLevel),
		Type:                types.EventType(d.Type),
		Description:         d.Description,
		Location:            d.Location,
		EstimatedCasualties: int(d.EstimatedCasualties),
		Status:              types.EventStatus(d.Status),
		ActivatedAt:         d.ActivatedAt,
		ActivatedBy:         d.ActivatedBy,
		DeactivatingAt:      d.DeactivatingAt,
		ClosedAt:            d.ClosedAt,
		ClosedBy:            d.ClosedBy,
		CloseReason:         d.CloseReason,
		Version:             d.Version,
		UpdatedAt:           d.UpdatedAt,
	}
	for _, s := range d.FinalResources {
		e.FinalResources = append(e.FinalResources, model.ResourceSnapshot{
			Category: types.ResourceCategory(s.Category),
			Total:    int(s.Total),
			Reserved: int(s.Reserved),
			InUse:    int(s.InUse),
		})
	}
	return e
}

type eventRepository struct {
	client           *firestore.Client
	collectionPrefix string
}

func (r *eventRepository) eventsCollection() string {
	return collectionName(r.collectionPrefix, "events")
}

func (r *eventRepository) lockRef() *firestore.DocumentRef {
	return r.client.Collection(collectionName(r.collectionPrefix, "locks")).Doc("active_event")
}

func readLock(tx *firestore.Transaction, ref *firestore.DocumentRef) (*activeLockDoc, error) {
	snap, err := tx.Get(ref)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return &activeLockDoc{}, nil
		}
		return nil, goerr.Wrap(err, "failed to get active event lock")
	}
	var lock activeLockDoc
	if err := snap.DataTo(&lock); err != nil {
		return nil, goerr.Wrap(err, "failed to decode active event lock")
	}
	return &lock, nil
}

// ensureEventOpen reads the event inside tx and fails with
// model.ErrEventClosed when it is closed. A missing event counts as open.
func ensureEventOpen(tx *firestore.Transaction, ref *firestore.DocumentRef) error {
	if ref == nil {
		return nil
	}
	snap, err := tx.Get(ref)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil
		}
		return goerr.Wrap(err, "failed to get event", goerr.V(model.EventIDKey, ref.ID))
	}

	var d eventDoc
	if err := snap.DataTo(&d); err != nil {
		return goerr.Wrap(err, "failed to decode event", goerr.V(model.EventIDKey, ref.ID))
	}
	if types.EventStatus(d.Status) == types.EventStatusClosed {
		return goerr.Wrap(model.ErrEventClosed, "event is closed", goerr.V(model.EventIDKey, ref.ID))
	}
	return nil
}

func (r *eventRepository) CreateActive(ctx context.Context, e *model.Event) (*model.Event, error) {
	created := *e
	created.Version = 1
	created.UpdatedAt = time.Now().UTC()

	eventRef := r.client.Collection(r.eventsCollection()).Doc(string(e.ID))
	lockRef := r.lockRef()

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		lock, err := readLock(tx, lockRef)
		if err != nil {
			return err
		}
		if lock.EventID != "" {
			return goerr.Wrap(model.ErrConflict, "another event is already active",
				goerr.V(model.EventIDKey, lock.EventID))
		}

		if err := tx.Create(eventRef, toEventDoc(&created)); err != nil {
			return goerr.Wrap(err, "failed to create event")
		}
		if created.Status.IsLive() {
			return tx.Set(lockRef, &activeLockDoc{EventID: string(created.ID)})
		}
		return nil
	})
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return nil, goerr.Wrap(model.ErrConflict, "event already exists", goerr.V(model.EventIDKey, e.ID))
		}
		return nil, goerr.Wrap(err, "failed to activate event", goerr.V(model.EventIDKey, e.ID))
	}

	return &created, nil
}

func (r *eventRepository) Get(ctx context.Context, id model.EventID) (*model.Event, error) {
	snap, err := r.client.Collection(r.eventsCollection()).Doc(string(id)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(ErrNotFound, "event not found", goerr.V(model.EventIDKey, id))
		}
		return nil, goerr.Wrap(err, "failed to get event", goerr.V(model.EventIDKey, id))
	}

	var d eventDoc
	if err := snap.DataTo(&d); err != nil {
		return nil, goerr.Wrap(err, "failed to decode event", goerr.V(model.EventIDKey, id))
	}
	return fromEventDoc(&d), nil
}

func (r *eventRepository) GetActive(ctx context.Context) (*model.Event, error) {
	snap, err := r.lockRef().Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, goerr.Wrap(err, "failed to get active event lock")
	}

	var lock activeLockDoc
	if err := snap.DataTo(&lock); err != nil {
		return nil, goerr.Wrap(err, "failed to decode active event lock")
	}
	if lock.EventID == "" {
		return nil, nil
	}
	return r.Get(ctx, model.EventID(lock.EventID))
}

func (r *eventRepository) List(ctx context.Context) ([]*model.Event, error) {
	iter := r.client.Collection(r.eventsCollection()).
		OrderBy("ActivatedAt", firestore.Desc).
		Documents(ctx)
	defer iter.Stop()

	events := []*model.Event{}
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate events")
		}

		var d eventDoc
		if err := snap.DataTo(&d); err != nil {
			return nil, goerr.Wrap(err, "failed to decode event", goerr.V("doc_id", snap.Ref.ID))
		}
		events = append(events, fromEventDoc(&d))
	}
	return events, nil
}

func (r *eventRepository) Update(ctx context.Context, e *model.Event, expectedVersion int64) (*model.Event, error) {
	eventRef := r.client.Collection(r.eventsCollection()).Doc(string(e.ID))
	lockRef := r.lockRef()

	var updated model.Event
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(eventRef)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return goerr.Wrap(ErrNotFound, "event not found", goerr.V(model.EventIDKey, e.ID))
			}
			return goerr.Wrap(err, "failed to get event")
		}
		lock, err := readLock(tx, lockRef)
		if err != nil {
			return err
		}

		var current eventDoc
		if err := snap.DataTo(&current); err != nil {
			return goerr.Wrap(err, "failed to decode event")
		}
		if current.Version != expectedVersion {
			return goerr.Wrap(model.ErrConcurrentModification, "event was modified concurrently",
				goerr.V(model.EventIDKey, e.ID),
				goerr.V(model.ExpectedKey, expectedVersion),
				goerr.V(model.ActualKey, current.Version))
		}

		updated = *e
		updated.Version = current.Version + 1
		updated.UpdatedAt = time.Now().UTC()
		if err := tx.Set(eventRef, toEventDoc(&updated)); err != nil {
			return goerr.Wrap(err, "failed to save event")
		}

		if lock.EventID == string(e.ID) && !updated.Status.IsLive() {
			return tx.Set(lockRef, &activeLockDoc{})
		}
		return nil
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to update event", goerr.V(model.EventIDKey, e.ID))
	}

	return &updated, nil
}
