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

type notificationDoc struct {
	ID          string     `firestore:"ID"`
	EventID     string     `firestore:"EventID"`
	VictimID    string     `firestore:"VictimID"`
	Purpose     string     `firestore:"Purpose"`
	Recipient   string     `firestore:"Recipient"`
	Contact     string     `firestore:"Contact"`
	Type        string     `firestore:"Type"`
	Method      string     `firestore:"Method"`
	Message     string     `firestore:"Message"`
	Status      string     `firestore:"Status"`
	Attempts    int64      `firestore:"Attempts"`
	LastError   string     `firestore:"LastError"`
	CreatedAt   time.Time  `firestore:"CreatedAt"`
	UpdatedAt   time.Time  `firestore:"UpdatedAt"`
	DeliveredAt *time.Time `firestore:"DeliveredAt"`
}

func toNotificationDoc(n *model.NotificationIntent) *notificationDoc {
	return &notificationDoc{
		ID:          string(n.ID),
		EventID:     string(n.EventID),
		VictimID:    string(n.VictimID),
		Purpose:     string(n.Purpose),
		Recipient:   n.Recipient,
		Contact:     n.Contact,
		Type:        string(n.Type),
		Method:      string(n.Method),
		Message:     n.Message,
		Status:      string(n.Status),
		Attempts:    int64(n.Attempts),
		LastError:   n.LastError,
		CreatedAt:   n.CreatedAt,
		UpdatedAt:   n.UpdatedAt,
		DeliveredAt: n.DeliveredAt,
	}
}

func fromNotificationDoc(d *notificationDoc) *model.NotificationIntent {
	return &model.NotificationIntent{
		ID:          model.NotificationID(d.ID),
		EventID:     model.EventID(d.EventID),
		VictimID:    model.VictimID(d.VictimID),
		Purpose:     types.NotificationPurpose(d.Purpose),
		Recipient:   d.Recipient,
		Contact:     d.Contact,
		Type:        types.NotificationType(d.Type),
		Method:      types.NotificationMethod(d.Method),
		Message:     d.Message,
		Status:      types.NotificationStatus(d.Status),
		Attempts:    int(d.Attempts),
		LastError:   d.LastError,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
		DeliveredAt: d.DeliveredAt,
	}
}

type notificationRepository struct {
	client           *firestore.Client
	collectionPrefix string
}

func (r *notificationRepository) notificationsCollection() *firestore.CollectionRef {
	return r.client.Collection(collectionName(r.collectionPrefix, "notifications"))
}

func (r *notificationRepository) Create(ctx context.Context, n *model.NotificationIntent) (*model.NotificationIntent, error) {
	now := time.Now().UTC()
	created := *n
	created.CreatedAt = now
	created.UpdatedAt = now

	if _, err := r.notificationsCollection().Doc(string(n.ID)).Create(ctx, toNotificationDoc(&created)); err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return nil, goerr.Wrap(model.ErrConflict, "notification already exists", goerr.V(model.NotificationIDKey, n.ID))
		}
		return nil, goerr.Wrap(err, "failed to create notification", goerr.V(model.NotificationIDKey, n.ID))
	}
	return &created, nil
}

func (r *notificationRepository) Get(ctx context.Context, id model.NotificationID) (*model.NotificationIntent, error) {
	snap, err := r.notificationsCollection().Doc(string(id)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(ErrNotFound, "notification not found", goerr.V(model.NotificationIDKey, id))
		}
		return nil, goerr.Wrap(err, "failed to get notification", goerr.V(model.NotificationIDKey, id))
	}

	var d notificationDoc
	if err := snap.DataTo(&d); err != nil {
		return nil, goerr.Wrap(err, "failed to decode notification", goerr.V(model.NotificationIDKey, id))
	}
	return fromNotificationDoc(&d), nil
}

func (r *notificationRepository) Modify(ctx context.Context, id model.NotificationID, fn func(n *model.NotificationIntent) error) (*model.NotificationIntent, error) {
	ref := r.notificationsCollection().Doc(string(id))

	var modified *model.NotificationIntent
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return goerr.Wrap(ErrNotFound, "notification not found", goerr.V(model.NotificationIDKey, id))
			}
			return goerr.Wrap(err, "failed to get notification")
		}

		var d notificationDoc
		if err := snap.DataTo(&d); err != nil {
			return goerr.Wrap(err, "failed to decode notification")
		}
		eventRef := r.client.Collection(collectionName(r.collectionPrefix, "events")).Doc(d.EventID)
		if err := ensureEventOpen(tx, eventRef); err != nil {
			return err
		}

		modified = fromNotificationDoc(&d)
		if err := fn(modified); err != nil {
			return err
		}
		modified.ID = id
		modified.CreatedAt = d.CreatedAt
		modified.UpdatedAt = time.Now().UTC()
		return tx.Set(ref, toNotificationDoc(modified))
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to modify notification", goerr.V(model.NotificationIDKey, id))
	}

	return modified, nil
}

func (r *notificationRepository) collect(iter *firestore.DocumentIterator, keep func(*model.NotificationIntent) bool, limit int) ([]*model.NotificationIntent, error) {
	defer iter.Stop()

	out := []*model.NotificationIntent{}
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate notifications")
		}

		var d notificationDoc
		if err := snap.DataTo(&d); err != nil {
			return nil, goerr.Wrap(err, "failed to decode notification", goerr.V("doc_id", snap.Ref.ID))
		}
		n := fromNotificationDoc(&d)
		if keep != nil && !keep(n) {
			continue
		}
		out = append(out, n)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (r *notificationRepository) ListPending(ctx context.Context, maxAttempts, limit int) ([]*model.NotificationIntent, error) {
	iter := r.notificationsCollection().
		Where("Status", "in", []string{string(types.NotificationQueued), string(types.NotificationFailed)}).
		OrderBy("CreatedAt", firestore.Asc).
		Documents(ctx)

	return r.collect(iter, func(n *model.NotificationIntent) bool {
		return n.Status == types.NotificationQueued || n.Attempts < maxAttempts
	}, limit)
}

func (r *notificationRepository) ListByVictim(ctx context.Context, victimID model.VictimID) ([]*model.NotificationIntent, error) {
	iter := r.notificationsCollection().
		Where("VictimID", "==", string(victimID)).
		OrderBy("CreatedAt", firestore.Asc).
		Documents(ctx)
	return r.collect(iter, nil, 0)
}

func (r *notificationRepository) ListByEvent(ctx context.Context, eventID model.EventID) ([]*model.NotificationIntent, error) {
	iter := r.notificationsCollection().
		Where("EventID", "==", string(eventID)).
		OrderBy("CreatedAt", firestore.Asc).
		Documents(ctx)
	return r.collect(iter, nil, 0)
}
