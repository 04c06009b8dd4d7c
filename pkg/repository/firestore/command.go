package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/asclepius/pkg/domain/model"
	"github.com/secmon-lab/asclepius/pkg/domain/types"
	"google.golang.org/api/iterator"
)

type assignmentDoc struct {
	ID         string     `firestore:"ID"`
	EventID    string     `firestore:"EventID"`
	Role       string     `firestore:"Role"`
	StaffID    string     `firestore:"StaffID"`
	StaffName  string     `firestore:"StaffName"`
	Contact    string     `firestore:"Contact"`
	AssignedAt time.Time  `firestore:"AssignedAt"`
	AssignedBy string     `firestore:"AssignedBy"`
	RelievedAt *time.Time `firestore:"RelievedAt"`
	Active     bool       `firestore:"Active"`
}

func toAssignmentDoc(a *model.CommandAssignment) *assignmentDoc {
	return &assignmentDoc{
		ID:         string(a.ID),
		EventID:    string(a.EventID),
		Role:       string(a.Role),
		StaffID:    a.StaffID,
		StaffName:  a.StaffName,
		Contact:    a.Contact,
		AssignedAt: a.AssignedAt,
		AssignedBy: a.AssignedBy,
		RelievedAt: a.RelievedAt,
		Active:     a.IsActive(),
	}
}

func fromAssignmentDoc(d *assignmentDoc) *model.CommandAssignment {
	return &model.CommandAssignment{
		ID:         model.AssignmentID(d.ID),
		EventID:    model.EventID(d.EventID),
		Role:       types.CommandRole(d.Role),
		StaffID:    d.StaffID,
		StaffName:  d.StaffName,
		Contact:    d.Contact,
		AssignedAt: d.AssignedAt,
		AssignedBy: d.AssignedBy,
		RelievedAt: d.RelievedAt,
	}
}

type commandRepository struct {
	client           *firestore.Client
	collectionPrefix string
}

func (r *commandRepository) assignmentsCollection() *firestore.CollectionRef {
	return r.client.Collection(collectionName(r.collectionPrefix, "command_assignments"))
}

func (r *commandRepository) Assign(ctx context.Context, a *model.CommandAssignment) (*model.CommandAssignment, error) {
	current := r.assignmentsCollection().
		Where("EventID", "==", string(a.EventID)).
		Where("Role", "==", string(a.Role)).
		Where("Active", "==", true)

	var relieved *model.CommandAssignment
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		relieved = nil
		snaps, err := tx.Documents(current).GetAll()
		if err != nil {
			return goerr.Wrap(err, "failed to query current role holder")
		}

		for _, snap := range snaps {
			var d assignmentDoc
			if err := snap.DataTo(&d); err != nil {
				return goerr.Wrap(err, "failed to decode assignment", goerr.V("doc_id", snap.Ref.ID))
			}
			prev := fromAssignmentDoc(&d)
			at := a.AssignedAt
			prev.RelievedAt = &at
			if err := tx.Set(snap.Ref, toAssignmentDoc(prev)); err != nil {
				return goerr.Wrap(err, "failed to relieve assignment")
			}
			relieved = prev
		}

		return tx.Create(r.assignmentsCollection().Doc(string(a.ID)), toAssignmentDoc(a))
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to assign command role",
			goerr.V(model.EventIDKey, a.EventID),
			goerr.V("role", a.Role))
	}

	return relieved, nil
}

func (r *commandRepository) List(ctx context.Context, eventID model.EventID) ([]*model.CommandAssignment, error) {
	iter := r.assignmentsCollection().
		Where("EventID", "==", string(eventID)).
		OrderBy("AssignedAt", firestore.Asc).
		Documents(ctx)
	defer iter.Stop()

	out := []*model.CommandAssignment{}
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate assignments", goerr.V(model.EventIDKey, eventID))
		}

		var d assignmentDoc
		if err := snap.DataTo(&d); err != nil {
			return nil, goerr.Wrap(err, "failed to decode assignment", goerr.V("doc_id", snap.Ref.ID))
		}
		out = append(out, fromAssignmentDoc(&d))
	}
	return out, nil
}
