package repository_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/asclepius/pkg/domain/model"
	"github.com/secmon-lab/asclepius/pkg/domain/types"
)

func newVictim(t *testing.T, repo interface {
	NextSeq(context.Context, model.EventID) (int64, error)
}, eventID model.EventID) *model.Victim {
	t.Helper()
	seq, err := repo.NextSeq(context.Background(), eventID)
	gt.NoError(t, err).Required()
	return &model.Victim{
		ID:        model.NewVictimID(),
		EventID:   eventID,
		Seq:       seq,
		TempID:    model.FormatTempID("MCI-TEST", seq),
		Status:    types.WorkflowRegistered,
		ArrivedAt: time.Now().UTC(),
	}
}

func runVictimRepositoryTest(t *testing.T, newRepo repoFactory) {
	t.Helper()

	t.Run("NextSeq is per event and gap free under concurrency", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		eventID := model.NewEventID()

		var mu sync.Mutex
		var wg sync.WaitGroup
		seen := map[int64]bool{}
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				seq, err := repo.Victim().NextSeq(ctx, eventID)
				if err != nil {
					return
				}
				mu.Lock()
				seen[seq] = true
				mu.Unlock()
			}()
		}
		wg.Wait()

		gt.Value(t, len(seen)).Equal(10)
		for i := int64(1); i <= 10; i++ {
			gt.Bool(t, seen[i]).True()
		}

		other, err := repo.Victim().NextSeq(ctx, model.NewEventID())
		gt.NoError(t, err).Required()
		gt.Value(t, other).Equal(int64(1))
	})

	t.Run("Create and Get round trip nested fields", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		eventID := model.NewEventID()

		age := 42
		v := newVictim(t, repo.Victim(), eventID)
		v.EstimatedAge = &age
		v.Injuries = []string{"open femur fracture"}
		v.FamilyContact = &model.FamilyContact{Name: "Kim", Relationship: "spouse", Phone: "+81-90-0000-0000"}
		result := model.Classify(model.STARTAnswers{Breathing: true, RadialPulse: true, FollowsCommands: true})
		v.Triage = &result
		v.Status = types.WorkflowTriaged
		v.Notes = []model.Note{{Text: "arrived by ambulance", Author: "U1", CreatedAt: time.Now().UTC()}}

		created, err := repo.Victim().Create(ctx, v)
		gt.NoError(t, err).Required()
		gt.Value(t, created.Version).Equal(int64(1))

		got, err := repo.Victim().Get(ctx, v.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, got.Category()).Equal(types.TriageDelayed)
		gt.Value(t, *got.EstimatedAge).Equal(42)
		gt.Value(t, got.FamilyContact.Phone).Equal("+81-90-0000-0000")
		gt.Array(t, got.Injuries).Length(1)
		gt.Array(t, got.Notes).Length(1)
		gt.Value(t, got.TempID).Equal(v.TempID)
	})

	t.Run("Get returns not found", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.Victim().Get(context.Background(), model.NewVictimID())
		gt.Error(t, err).Is(model.ErrNotFound)
	})

	t.Run("Update enforces expected version", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		created, err := repo.Victim().Create(ctx, newVictim(t, repo.Victim(), model.NewEventID()))
		gt.NoError(t, err).Required()

		first := model.CopyVictim(created)
		first.AreaID = "RED-1"
		updated, err := repo.Victim().Update(ctx, first, created.Version)
		gt.NoError(t, err).Required()
		gt.Value(t, updated.Version).Equal(int64(2))

		second := model.CopyVictim(created)
		second.AreaID = "YELLOW-2"
		_, err = repo.Victim().Update(ctx, second, created.Version)
		gt.Error(t, err).Is(model.ErrConcurrentModification)

		got, err := repo.Victim().Get(ctx, created.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, got.AreaID).Equal("RED-1")
	})

	t.Run("Update rejects victims of a closed event", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		created, err := repo.Event().CreateActive(ctx, newActiveEvent("Stadium collapse"))
		gt.NoError(t, err).Required()
		v, err := repo.Victim().Create(ctx, newVictim(t, repo.Victim(), created.ID))
		gt.NoError(t, err).Required()

		closing := *created
		closing.Status = types.EventStatusClosed
		_, err = repo.Event().Update(ctx, &closing, created.Version)
		gt.NoError(t, err).Required()

		late := model.CopyVictim(v)
		late.StaffID = "dr.ito"
		_, err = repo.Victim().Update(ctx, late, v.Version)
		gt.Error(t, err).Is(model.ErrEventClosed)

		got, err := repo.Victim().Get(ctx, v.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, got.StaffID).Equal("")
		gt.Value(t, got.Version).Equal(v.Version)
	})

	t.Run("Update keeps identity fields", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		created, err := repo.Victim().Create(ctx, newVictim(t, repo.Victim(), model.NewEventID()))
		gt.NoError(t, err).Required()

		tampered := model.CopyVictim(created)
		tampered.TempID = "forged"
		tampered.Seq = 999
		updated, err := repo.Victim().Update(ctx, tampered, created.Version)
		gt.NoError(t, err).Required()
		gt.Value(t, updated.TempID).Equal(created.TempID)
		gt.Value(t, updated.Seq).Equal(created.Seq)
	})

	t.Run("List filters and keeps arrival order", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		eventID := model.NewEventID()

		categories := []types.TriageCategory{types.TriageImmediate, types.TriageMinor, types.TriageImmediate}
		for _, c := range categories {
			v := newVictim(t, repo.Victim(), eventID)
			result := model.TriageResult{Category: c, Color: c.Color(), Label: c.Label()}
			v.Triage = &result
			v.Status = types.WorkflowTriaged
			_, err := repo.Victim().Create(ctx, v)
			gt.NoError(t, err).Required()
		}
		_, err := repo.Victim().Create(ctx, newVictim(t, repo.Victim(), model.NewEventID()))
		gt.NoError(t, err).Required()

		all, err := repo.Victim().List(ctx, eventID, model.VictimFilter{})
		gt.NoError(t, err).Required()
		gt.Array(t, all).Length(3)
		gt.Value(t, all[0].Seq).Equal(int64(1))
		gt.Value(t, all[2].Seq).Equal(int64(3))

		red, err := repo.Victim().List(ctx, eventID, model.VictimFilter{Category: types.TriageImmediate})
		gt.NoError(t, err).Required()
		gt.Array(t, red).Length(2)
	})
}

func TestVictimRepository_Memory(t *testing.T) {
	runVictimRepositoryTest(t, newMemoryRepo)
}

func TestVictimRepository_Firestore(t *testing.T) {
	runVictimRepositoryTest(t, firestoreFactory(t))
}
