package usecase

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/asclepius/pkg/domain/interfaces"
	"github.com/secmon-lab/asclepius/pkg/domain/model"
	"github.com/secmon-lab/asclepius/pkg/domain/types"
	"github.com/secmon-lab/asclepius/pkg/utils/errutil"
	"github.com/secmon-lab/asclepius/pkg/utils/logging"
)

const (
	publishTimeout     = 2 * time.Second
	defaultRecentLimit = 50
	maxRecentLimit     = 500
)

type ActivityUseCase struct {
	repo      interfaces.Repository
	publisher interfaces.ActivityPublisher
}

func NewActivityUseCase(repo interfaces.Repository, publisher interfaces.ActivityPublisher) *ActivityUseCase {
	return &ActivityUseCase{
		repo:      repo,
		publisher: publisher,
	}
}

func newEntry(eventID model.EventID, actor string, typ types.ActivityType, description string, details map[string]any) *model.ActivityEntry {
	return &model.ActivityEntry{
		EventID:     eventID,
		Actor:       actor,
		Type:        typ,
		Description: description,
		Details:     details,
	}
}

// record appends e after the state change it describes has been committed.
// A failure never undoes that change; it comes back as a warning.
func (uc *ActivityUseCase) record(ctx context.Context, e *model.ActivityEntry) model.Warnings {
	var warnings model.Warnings

	appended, err := uc.repo.Activity().Append(ctx, e)
	if err != nil {
		err = goerr.Wrap(err, "failed to append activity entry",
			goerr.V(model.EventIDKey, e.EventID),
			goerr.V("type", e.Type))
		_ = errutil.Handle(ctx, err, "activity log degraded")
		warnings.Add(model.WarningActivityLogFailed, err)
		return warnings
	}

	warnings.Merge(uc.publish(ctx, appended))
	return warnings
}

func (uc *ActivityUseCase) publish(ctx context.Context, e *model.ActivityEntry) model.Warnings {
	if uc.publisher == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	var warnings model.Warnings
	if err := uc.publisher.Publish(ctx, e); err != nil {
		logging.From(ctx).Warn("failed to mirror activity entry",
			"event_id", e.EventID,
			"seq", e.Seq,
			"error", err.Error())
		warnings.Add(model.WarningStreamPublishFailed, err)
	}
	return warnings
}

// PostUpdate appends a free-form update from the command staff
func (uc *ActivityUseCase) PostUpdate(ctx context.Context, eventID model.EventID, typ types.ActivityType, message, actor string) (*model.ActivityEntry, model.Warnings, error) {
	if err := requireActor(actor); err != nil {
		return nil, nil, err
	}
	if message == "" {
		return nil, nil, goerr.Wrap(model.ErrValidation, "message is required")
	}
	if typ == "" {
		typ = types.ActivityCommand
	}
	if !typ.IsValid() || typ == types.ActivityClosure {
		return nil, nil, goerr.Wrap(model.ErrValidation, "invalid activity type for an update", goerr.V("type", typ))
	}

	if _, err := getOpenEvent(ctx, uc.repo, eventID); err != nil {
		return nil, nil, err
	}

	appended, err := uc.repo.Activity().Append(ctx, newEntry(eventID, actor, typ, message, nil))
	if err != nil {
		return nil, nil, goerr.Wrap(err, "failed to post update", goerr.V(model.EventIDKey, eventID))
	}

	return appended, uc.publish(ctx, appended), nil
}

// ListSince returns entries after seq in replay order
func (uc *ActivityUseCase) ListSince(ctx context.Context, eventID model.EventID, afterSeq int64) ([]*model.ActivityEntry, error) {
	if afterSeq < 0 {
		return nil, goerr.Wrap(model.ErrValidation, "sequence must not be negative", goerr.V("seq", afterSeq))
	}
	if _, err := getEvent(ctx, uc.repo, eventID); err != nil {
		return nil, err
	}

	entries, err := uc.repo.Activity().ListSince(ctx, eventID, afterSeq)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list activity", goerr.V(model.EventIDKey, eventID))
	}
	return entries, nil
}

// ListRecent returns the newest entries first
func (uc *ActivityUseCase) ListRecent(ctx context.Context, eventID model.EventID, limit int) ([]*model.ActivityEntry, error) {
	switch {
	case limit <= 0:
		limit = defaultRecentLimit
	case limit > maxRecentLimit:
		limit = maxRecentLimit
	}
	if _, err := getEvent(ctx, uc.repo, eventID); err != nil {
		return nil, err
	}

	entries, err := uc.repo.Activity().ListRecent(ctx, eventID, limit)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list recent activity", goerr.V(model.EventIDKey, eventID))
	}
	return entries, nil
}
