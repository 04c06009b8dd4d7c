package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/asclepius/pkg/domain/model"
	"github.com/secmon-lab/asclepius/pkg/domain/types"
	"github.com/secmon-lab/asclepius/pkg/repository/memory"
	"github.com/secmon-lab/asclepius/pkg/service/hospital"
	"github.com/secmon-lab/asclepius/pkg/usecase"
)

func TestPostUpdate(t *testing.T) {
	ctx := context.Background()
	uc, _ := newUseCases(t)
	e := activate(t, uc, types.AlertLevelYellow)

	entry, warnings, err := uc.Activity.PostUpdate(ctx, e.ID, "", "triage area moved to lobby", testActor)
	gt.NoError(t, err).Required()
	gt.Array(t, warnings).Length(0)
	gt.Value(t, entry.Type).Equal(types.ActivityCommand)
	gt.Value(t, entry.Seq).Equal(int64(2))

	_, _, err = uc.Activity.PostUpdate(ctx, e.ID, types.ActivityClosure, "closing", testActor)
	gt.Error(t, err).Is(model.ErrValidation)

	_, _, err = uc.Activity.PostUpdate(ctx, e.ID, types.ActivityCommand, "", testActor)
	gt.Error(t, err).Is(model.ErrValidation)
}

func TestListActivity(t *testing.T) {
	ctx := context.Background()
	uc, _ := newUseCases(t)
	e := activate(t, uc, types.AlertLevelYellow)
	for i := 0; i < 4; i++ {
		register(t, uc, e.ID, nil)
	}

	since, err := uc.Activity.ListSince(ctx, e.ID, 3)
	gt.NoError(t, err).Required()
	gt.Array(t, since).Length(2).Required()
	gt.Value(t, since[0].Seq).Equal(int64(4))

	recent, err := uc.Activity.ListRecent(ctx, e.ID, 2)
	gt.NoError(t, err).Required()
	gt.Array(t, recent).Length(2).Required()
	gt.Value(t, recent[0].Seq).Equal(int64(5))

	_, err = uc.Activity.ListSince(ctx, e.ID, -1)
	gt.Error(t, err).Is(model.ErrValidation)
}

func TestActivityFailureIsAWarning(t *testing.T) {
	ctx := context.Background()
	repo := brokenActivityRepo{Memory: memory.New()}
	uc := usecase.New(repo, usecase.WithCapacityProvider(hospital.NewStaticCapacity(defaultCapacity)))

	res, err := uc.Coordinator.Activate(ctx, usecase.ActivateInput{
		AlertLevel: types.AlertLevelYellow,
		EventType:  types.EventTypeNatural,
		Actor:      testActor,
	})
	gt.NoError(t, err).Required()
	gt.Bool(t, res.Warnings.Has(model.WarningActivityLogFailed)).True()

	reg, err := uc.Victim.Register(ctx, res.Event.ID, usecase.RegisterInput{}, testActor)
	gt.NoError(t, err).Required()
	gt.Bool(t, reg.Warnings.Has(model.WarningActivityLogFailed)).True()

	got, err := uc.Victim.Get(ctx, reg.Victim.ID)
	gt.NoError(t, err).Required()
	gt.Value(t, got.TempID).Equal(reg.Victim.TempID)
}

func TestActivityIsPublished(t *testing.T) {
	ctx := context.Background()

	t.Run("entries are mirrored", func(t *testing.T) {
		pub := &fakePublisher{}
		uc, _ := newUseCases(t, usecase.WithActivityPublisher(pub))
		e := activate(t, uc, types.AlertLevelYellow)
		register(t, uc, e.ID, nil)

		gt.Array(t, pub.entries).Length(2).Required()
		gt.Value(t, pub.entries[1].Type).Equal(types.ActivityVictim)
		gt.Value(t, pub.entries[1].Seq).Equal(int64(2))
	})

	t.Run("publisher failure is a warning", func(t *testing.T) {
		pub := &fakePublisher{err: errors.New("broker unavailable")}
		uc, _ := newUseCases(t, usecase.WithActivityPublisher(pub))

		res, err := uc.Coordinator.Activate(ctx, usecase.ActivateInput{
			AlertLevel: types.AlertLevelYellow,
			EventType:  types.EventTypeNatural,
			Actor:      testActor,
		})
		gt.NoError(t, err).Required()
		gt.Bool(t, res.Warnings.Has(model.WarningStreamPublishFailed)).True()

		entries := listActivity(t, uc, res.Event.ID)
		gt.Array(t, entries).Length(1)
	})
}
