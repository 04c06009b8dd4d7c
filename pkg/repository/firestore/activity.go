package firestore

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/asclepius/pkg/domain/model"
	"github.com/secmon-lab/asclepius/pkg/domain/types"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type activityDoc struct {
	EventID     string         `firestore:"EventID"`
	Seq         int64          `firestore:"Seq"`
	Timestamp   time.Time      `firestore:"Timestamp"`
	Actor       string         `firestore:"Actor"`
	Type        string         `firestore:"Type"`
	Description string         `firestore:"Description"`
	Details     map[string]any `firestore:"Details"`
}

// activityHeadDoc tracks the last appended entry of one event log
type activityHeadDoc struct {
	Seq       int64     `firestore:"Seq"`
	Timestamp time.Time `firestore:"Timestamp"`
}

func fromActivityDoc(d *activityDoc) *model.ActivityEntry {
	return &model.ActivityEntry{
		EventID:     model.EventID(d.EventID),
		Seq:         d.Seq,
		Timestamp:   d.Timestamp,
		Actor:       d.Actor,
		Type:        types.ActivityType(d.Type),
		Description: d.Description,
		Details:     d.Details,
	}
}

type activityRepository struct {
	client           *firestore.Client
	collectionPrefix string
}

func (r *activityRepository) activityCollection() string {
	return collectionName(r.collectionPrefix, "activity")
}

func (r *activityRepository) headRef(eventID model.EventID) *firestore.DocumentRef {
	return r.client.Collection(collectionName(r.collectionPrefix, "counters")).
		Doc(fmt.Sprintf("activity_head_%s", eventID))
}

func (r *activityRepository) Append(ctx context.Context, e *model.ActivityEntry) (*model.ActivityEntry, error) {
	headRef := r.headRef(e.EventID)

	var appended *model.ActivityEntry
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		var head activityHeadDoc
		snap, err := tx.Get(headRef)
		if err != nil && status.Code(err) != codes.NotFound {
			return goerr.Wrap(err, "failed to get activity head")
		}
		if err == nil {
			if err := snap.DataTo(&head); err != nil {
				return goerr.Wrap(err, "failed to decode activity head")
			}
		}

		appended = model.CopyActivityEntry(e)
		appended.Seq = head.Seq + 1
		appended.Timestamp = time.Now().UTC()
		if appended.Timestamp.Before(head.Timestamp) {
			appended.Timestamp = head.Timestamp
		}

		entryRef := r.client.Collection(r.activityCollection()).
			Doc(fmt.Sprintf("%s_%012d", e.EventID, appended.Seq))
		if err := tx.Create(entryRef, &activityDoc{
			EventID:     string(appended.EventID),
			Seq:         appended.Seq,
			Timestamp:   appended.Timestamp,
			Actor:       appended.Actor,
			Type:        string(appended.Type),
			Description: appended.Description,
			Details:     appended.Details,
		}); err != nil {
			return goerr.Wrap(err, "failed to create activity entry")
		}
		return tx.Set(headRef, &activityHeadDoc{Seq: appended.Seq, Timestamp: appended.Timestamp})
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to append activity", goerr.V(model.EventIDKey, e.EventID))
	}

	return appended, nil
}

func (r *activityRepository) collect(iter *firestore.DocumentIterator) ([]*model.ActivityEntry, error) {
	defer iter.Stop()

	entries := []*model.ActivityEntry{}
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate activity")
		}

		var d activityDoc
		if err := snap.DataTo(&d); err != nil {
			return nil, goerr.Wrap(err, "failed to decode activity", goerr.V("doc_id", snap.Ref.ID))
		}
		entries = append(entries, fromActivityDoc(&d))
	}
	return entries, nil
}

func (r *activityRepository) ListSince(ctx context.Context, eventID model.EventID, afterSeq int64) ([]*model.ActivityEntry, error) {
	iter := r.client.Collection(r.activityCollection()).
		Where("EventID", "==", string(eventID)).
		Where("Seq", ">", afterSeq).
		OrderBy("Seq", firestore.Asc).
		Documents(ctx)
	return r.collect(iter)
}

func (r *activityRepository) ListRecent(ctx context.Context, eventID model.EventID, limit int) ([]*model.ActivityEntry, error) {
	q := r.client.Collection(r.activityCollection()).
		Where("EventID", "==", string(eventID)).
		OrderBy("Seq", firestore.Desc)
	if limit > 0 {
		q = q.Limit(limit)
	}
	return r.collect(q.Documents(ctx))
}
