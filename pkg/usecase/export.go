package usecase

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/asclepius/pkg/domain/interfaces"
	"github.com/secmon-lab/asclepius/pkg/domain/model"
	"golang.org/x/sync/errgroup"
)

type ExportUseCase struct {
	repo interfaces.Repository
	now  func() time.Time
}

func NewExportUseCase(repo interfaces.Repository, now func() time.Time) *ExportUseCase {
	return &ExportUseCase{
		repo: repo,
		now:  now,
	}
}

// Export assembles the after-action record of a closed event. Open events
// are still changing and cannot be exported.
func (uc *ExportUseCase) Export(ctx context.Context, eventID model.EventID) (*model.AfterActionRecord, error) {
	e, err := getEvent(ctx, uc.repo, eventID)
	if err != nil {
		return nil, err
	}
	if !e.IsClosed() {
		return nil, goerr.Wrap(model.ErrInvalidTransition, "only closed events can be exported",
			goerr.V(model.EventIDKey, eventID),
			goerr.V(model.StatusKey, e.Status))
	}

	rec := &model.AfterActionRecord{
		Event:      e,
		Resources:  e.FinalResources,
		ExportedAt: uc.now(),
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		victims, err := uc.repo.Victim().List(ctx, eventID, model.VictimFilter{})
		if err != nil {
			return goerr.Wrap(err, "failed to list victims")
		}
		rec.Victims = victims
		rec.Summary = model.CountVictims(victims)
		return nil
	})
	eg.Go(func() error {
		entries, err := uc.repo.Activity().ListSince(ctx, eventID, 0)
		if err != nil {
			return goerr.Wrap(err, "failed to list activity")
		}
		rec.Activity = entries
		return nil
	})
	eg.Go(func() error {
		assignments, err := uc.repo.Command().List(ctx, eventID)
		if err != nil {
			return goerr.Wrap(err, "failed to list command assignments")
		}
		rec.Command = assignments
		return nil
	})
	eg.Go(func() error {
		intents, err := uc.repo.Notification().ListByEvent(ctx, eventID)
		if err != nil {
			return goerr.Wrap(err, "failed to list notifications")
		}
		rec.Notifications = intents
		return nil
	})
	eg.Go(func() error {
		inquiries, err := uc.repo.Inquiry().List(ctx, eventID)
		if err != nil {
			return goerr.Wrap(err, "failed to list inquiries")
		}
		rec.Inquiries = inquiries
		return nil
	})

	if err := eg.Wait(); err != nil {
		return nil, goerr.Wrap(err, "failed to export event", goerr.V(model.EventIDKey, eventID))
	}
	return rec, nil
}
