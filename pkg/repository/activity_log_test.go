package repository_test

import (
	"context"
	"sync"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/asclepius/pkg/domain/model"
	"github.com/secmon-lab/asclepius/pkg/domain/types"
)

func runActivityRepositoryTest(t *testing.T, newRepo repoFactory) {
	t.Helper()

	t.Run("Append assigns increasing seq and timestamps", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		eventID := model.NewEventID()

		var last *model.ActivityEntry
		for i := 0; i < 3; i++ {
			e, err := repo.Activity().Append(ctx, &model.ActivityEntry{
				EventID:     eventID,
				Actor:       "U1",
				Type:        types.ActivityVictim,
				Description: "registered",
				Details:     map[string]any{"n": int64(i)},
			})
			gt.NoError(t, err).Required()
			gt.Value(t, e.Seq).Equal(int64(i + 1))
			if last != nil {
				gt.Bool(t, e.Timestamp.Before(last.Timestamp)).False()
			}
			last = e
		}

		since, err := repo.Activity().ListSince(ctx, eventID, 1)
		gt.NoError(t, err).Required()
		gt.Array(t, since).Length(2)
		gt.Value(t, since[0].Seq).Equal(int64(2))
		gt.Value(t, since[1].Seq).Equal(int64(3))

		recent, err := repo.Activity().ListRecent(ctx, eventID, 2)
		gt.NoError(t, err).Required()
		gt.Array(t, recent).Length(2)
		gt.Value(t, recent[0].Seq).Equal(int64(3))
	})

	t.Run("concurrent Append never duplicates seq", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		eventID := model.NewEventID()

		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _ = repo.Activity().Append(ctx, &model.ActivityEntry{
					EventID: eventID, Actor: "U1", Type: types.ActivityTriage, Description: "x",
				})
			}()
		}
		wg.Wait()

		all, err := repo.Activity().ListSince(ctx, eventID, 0)
		gt.NoError(t, err).Required()
		seen := map[int64]bool{}
		for i, e := range all {
			gt.Bool(t, seen[e.Seq]).False()
			seen[e.Seq] = true
			gt.Value(t, e.Seq).Equal(int64(i + 1))
		}
	})

	t.Run("logs of different events are independent", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		a, err := repo.Activity().Append(ctx, &model.ActivityEntry{EventID: model.NewEventID(), Type: types.ActivityAlert})
		gt.NoError(t, err).Required()
		b, err := repo.Activity().Append(ctx, &model.ActivityEntry{EventID: model.NewEventID(), Type: types.ActivityAlert})
		gt.NoError(t, err).Required()
		gt.Value(t, a.Seq).Equal(int64(1))
		gt.Value(t, b.Seq).Equal(int64(1))
	})
}

func TestActivityRepository_Memory(t *testing.T) {
	runActivityRepositoryTest(t, newMemoryRepo)
}

func TestActivityRepository_Firestore(t *testing.T) {
	runActivityRepositoryTest(t, firestoreFactory(t))
}
