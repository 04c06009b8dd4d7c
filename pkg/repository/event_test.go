package repository_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/asclepius/pkg/domain/model"
	"github.com/secmon-lab/asclepius/pkg/domain/types"
)

func runEventRepositoryTest(t *testing.T, newRepo repoFactory) {
	t.Helper()

	t.Run("CreateActive stores event with version 1", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		e := newActiveEvent("Highway pileup")
		created, err := repo.Event().CreateActive(ctx, e)
		gt.NoError(t, err).Required()
		gt.Value(t, created.ID).Equal(e.ID)
		gt.Value(t, created.Version).Equal(int64(1))

		got, err := repo.Event().Get(ctx, e.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, got.Name).Equal("Highway pileup")
		gt.Value(t, got.Status).Equal(types.EventStatusActive)

		active, err := repo.Event().GetActive(ctx)
		gt.NoError(t, err).Required()
		gt.Value(t, active).NotNil()
		gt.Value(t, active.ID).Equal(e.ID)
	})

	t.Run("CreateActive rejects a second live event", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		_, err := repo.Event().CreateActive(ctx, newActiveEvent("first"))
		gt.NoError(t, err).Required()

		_, err = repo.Event().CreateActive(ctx, newActiveEvent("second"))
		gt.Error(t, err).Is(model.ErrConflict)
	})

	t.Run("concurrent CreateActive admits exactly one", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		var wg sync.WaitGroup
		var ok, failed atomic.Int32
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := repo.Event().CreateActive(ctx, newActiveEvent("race"))
				switch {
				case err == nil:
					ok.Add(1)
				default:
					failed.Add(1)
				}
			}()
		}
		wg.Wait()

		gt.Value(t, ok.Load()).Equal(int32(1))
		gt.Value(t, failed.Load()).Equal(int32(7))
	})

	t.Run("GetActive returns nil when no event is live", func(t *testing.T) {
		repo := newRepo(t)
		active, err := repo.Event().GetActive(context.Background())
		gt.NoError(t, err).Required()
		gt.Value(t, active).Nil()
	})

	t.Run("Get returns not found", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.Event().Get(context.Background(), model.NewEventID())
		gt.Error(t, err).Is(model.ErrNotFound)
	})

	t.Run("Update checks version and frees slot on close", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		created, err := repo.Event().CreateActive(ctx, newActiveEvent("flood"))
		gt.NoError(t, err).Required()

		escalated := *created
		escalated.Status = types.EventStatusEscalated
		updated, err := repo.Event().Update(ctx, &escalated, created.Version)
		gt.NoError(t, err).Required()
		gt.Value(t, updated.Version).Equal(int64(2))

		stale := *created
		stale.Status = types.EventStatusClosed
		_, err = repo.Event().Update(ctx, &stale, created.Version)
		gt.Error(t, err).Is(model.ErrConcurrentModification)

		closed := *updated
		now := time.Now().UTC()
		closed.Status = types.EventStatusClosed
		closed.ClosedAt = &now
		closed.FinalResources = []model.ResourceSnapshot{
			{Category: types.ResourceBed, Total: 10, Reserved: 0, InUse: 4},
		}
		_, err = repo.Event().Update(ctx, &closed, updated.Version)
		gt.NoError(t, err).Required()

		active, err := repo.Event().GetActive(ctx)
		gt.NoError(t, err).Required()
		gt.Value(t, active).Nil()

		got, err := repo.Event().Get(ctx, created.ID)
		gt.NoError(t, err).Required()
		gt.Bool(t, got.IsClosed()).True()
		gt.Array(t, got.FinalResources).Length(1)
		gt.Value(t, got.FinalResources[0].InUse).Equal(4)

		_, err = repo.Event().CreateActive(ctx, newActiveEvent("next"))
		gt.NoError(t, err)
	})

	t.Run("List returns newest first", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		first := newActiveEvent("older")
		first.ActivatedAt = time.Now().UTC().Add(-time.Hour)
		created, err := repo.Event().CreateActive(ctx, first)
		gt.NoError(t, err).Required()

		closed := *created
		closed.Status = types.EventStatusClosed
		_, err = repo.Event().Update(ctx, &closed, created.Version)
		gt.NoError(t, err).Required()

		_, err = repo.Event().CreateActive(ctx, newActiveEvent("newer"))
		gt.NoError(t, err).Required()

		events, err := repo.Event().List(ctx)
		gt.NoError(t, err).Required()
		gt.Array(t, events).Length(2)
		gt.Value(t, events[0].Name).Equal("newer")
		gt.Value(t, events[1].Name).Equal("older")
	})
}

func TestEventRepository_Memory(t *testing.T) {
	runEventRepositoryTest(t, newMemoryRepo)
}

func TestEventRepository_Firestore(t *testing.T) {
	runEventRepositoryTest(t, firestoreFactory(t))
}
