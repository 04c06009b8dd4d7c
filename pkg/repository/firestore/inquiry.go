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

type inquiryDoc struct {
	ID              string     `firestore:"ID"`
	EventID         string     `firestore:"EventID"`
	InquirerName    string     `firestore:"InquirerName"`
	InquirerPhone   string     `firestore:"InquirerPhone"`
	Relationship    string     `firestore:"Relationship"`
	Description     string     `firestore:"Description"`
	Status          string     `firestore:"Status"`
	MatchedVictimID string     `firestore:"MatchedVictimID"`
	Notes           string     `firestore:"Notes"`
	CreatedAt       time.Time  `firestore:"CreatedAt"`
	ResolvedAt      *time.Time `firestore:"ResolvedAt"`
	ResolvedBy      string     `firestore:"ResolvedBy"`
}

func toInquiryDoc(q *model.Inquiry) *inquiryDoc {
	return &inquiryDoc{
		ID:              string(q.ID),
		EventID:         string(q.EventID),
		InquirerName:    q.InquirerName,
		InquirerPhone:   q.InquirerPhone,
		Relationship:    q.Relationship,
		Description:     q.Description,
		Status:          string(q.Status),
		MatchedVictimID: string(q.MatchedVictimID),
		Notes:           q.Notes,
		CreatedAt:       q.CreatedAt,
		ResolvedAt:      q.ResolvedAt,
		ResolvedBy:      q.ResolvedBy,
	}
}

func fromInquiryDoc(d *inquiryDoc) *model.Inquiry {
	return &model.Inquiry{
		ID:              model.InquiryID(d.ID),
		EventID:         model.EventID(d.EventID),
		InquirerName:    d.InquirerName,
		InquirerPhone:   d.InquirerPhone,
		Relationship:    d.Relationship,
		Description:     d.Description,
		Status:          types.InquiryStatus(d.Status),
		MatchedVictimID: model.VictimID(d.MatchedVictimID),
		Notes:           d.Notes,
		CreatedAt:       d.CreatedAt,
		ResolvedAt:      d.ResolvedAt,
		ResolvedBy:      d.ResolvedBy,
	}
}

type inquiryRepository struct {
	client           *firestore.Client
	collectionPrefix string
}

func (r *inquiryRepository) inquiriesCollection() *firestore.CollectionRef {
	return r.client.Collection(collectionName(r.collectionPrefix, "inquiries"))
}

func (r *inquiryRepository) Create(ctx context.Context, q *model.Inquiry) (*model.Inquiry, error) {
	if _, err := r.inquiriesCollection().Doc(string(q.ID)).Create(ctx, toInquiryDoc(q)); err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return nil, goerr.Wrap(model.ErrConflict, "inquiry already exists", goerr.V(model.InquiryIDKey, q.ID))
		}
		return nil, goerr.Wrap(err, "failed to create inquiry", goerr.V(model.InquiryIDKey, q.ID))
	}
	created := *q
	return &created, nil
}

func (r *inquiryRepository) Get(ctx context.Context, id model.InquiryID) (*model.Inquiry, error) {
	snap, err := r.inquiriesCollection().Doc(string(id)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(ErrNotFound, "inquiry not found", goerr.V(model.InquiryIDKey, id))
		}
		return nil, goerr.Wrap(err, "failed to get inquiry", goerr.V(model.InquiryIDKey, id))
	}

	var d inquiryDoc
	if err := snap.DataTo(&d); err != nil {
		return nil, goerr.Wrap(err, "failed to decode inquiry", goerr.V(model.InquiryIDKey, id))
	}
	return fromInquiryDoc(&d), nil
}

func (r *inquiryRepository) Update(ctx context.Context, q *model.Inquiry) (*model.Inquiry, error) {
	ref := r.inquiriesCollection().Doc(string(q.ID))

	var updated *model.Inquiry
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return goerr.Wrap(ErrNotFound, "inquiry not found", goerr.V(model.InquiryIDKey, q.ID))
			}
			return goerr.Wrap(err, "failed to get inquiry")
		}

		var current inquiryDoc
		if err := snap.DataTo(&current); err != nil {
			return goerr.Wrap(err, "failed to decode inquiry")
		}

		c := *q
		updated = &c
		updated.EventID = model.EventID(current.EventID)
		updated.CreatedAt = current.CreatedAt
		return tx.Set(ref, toInquiryDoc(updated))
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to update inquiry", goerr.V(model.InquiryIDKey, q.ID))
	}

	return updated, nil
}

func (r *inquiryRepository) List(ctx context.Context, eventID model.EventID) ([]*model.Inquiry, error) {
	iter := r.inquiriesCollection().
		Where("EventID", "==", string(eventID)).
		OrderBy("CreatedAt", firestore.Asc).
		Documents(ctx)
	defer iter.Stop()

	out := []*model.Inquiry{}
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate inquiries", goerr.V(model.EventIDKey, eventID))
		}

		var d inquiryDoc
		if err := snap.DataTo(&d); err != nil {
			return nil, goerr.Wrap(err, "failed to decode inquiry", goerr.V("doc_id", snap.Ref.ID))
		}
		out = append(out, fromInquiryDoc(&d))
	}
	return out, nil
}
