package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/asclepius/pkg/domain/model"
	"github.com/secmon-lab/asclepius/pkg/domain/types"
)

func runInquiryRepositoryTest(t *testing.T, newRepo repoFactory) {
	t.Helper()

	t.Run("Create, Update and List", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		eventID := model.NewEventID()

		q := &model.Inquiry{
			ID:            model.NewInquiryID(),
			EventID:       eventID,
			InquirerName:  "Tanaka",
			InquirerPhone: "+81-80-1111-2222",
			Relationship:  "parent",
			Description:   "son, 17, blue jacket",
			Status:        types.InquiryPending,
			CreatedAt:     time.Now().UTC(),
		}
		_, err := repo.Inquiry().Create(ctx, q)
		gt.NoError(t, err).Required()

		matched := *q
		now := time.Now().UTC()
		matched.Status = types.InquiryMatched
		matched.MatchedVictimID = model.NewVictimID()
		matched.ResolvedAt = &now
		matched.EventID = model.NewEventID()
		updated, err := repo.Inquiry().Update(ctx, &matched)
		gt.NoError(t, err).Required()
		gt.Value(t, updated.Status).Equal(types.InquiryMatched)
		gt.Value(t, updated.EventID).Equal(eventID)

		list, err := repo.Inquiry().List(ctx, eventID)
		gt.NoError(t, err).Required()
		gt.Array(t, list).Length(1)
		gt.Value(t, list[0].MatchedVictimID).Equal(matched.MatchedVictimID)
	})

	t.Run("Get and Update return not found", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		_, err := repo.Inquiry().Get(ctx, model.NewInquiryID())
		gt.Error(t, err).Is(model.ErrNotFound)

		_, err = repo.Inquiry().Update(ctx, &model.Inquiry{ID: model.NewInquiryID()})
		gt.Error(t, err).Is(model.ErrNotFound)
	})
}

func TestInquiryRepository_Memory(t *testing.T) {
	runInquiryRepositoryTest(t, newMemoryRepo)
}

func TestInquiryRepository_Firestore(t *testing.T) {
	runInquiryRepositoryTest(t, firestoreFactory(t))
}
