package usecase

import (
	"context"
	"errors"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/asclepius/pkg/domain/interfaces"
	"github.com/secmon-lab/asclepius/pkg/domain/model"
	"github.com/secmon-lab/asclepius/pkg/domain/types"
	"github.com/secmon-lab/asclepius/pkg/service/resource"
)

// ResourceUseCase exposes the resource ledger of an event and logs every
// counter change.
type ResourceUseCase struct {
	repo     interfaces.Repository
	ledger   *resource.Ledger
	activity *ActivityUseCase
}

func NewResourceUseCase(repo interfaces.Repository, ledger *resource.Ledger, activity *ActivityUseCase) *ResourceUseCase {
	return &ResourceUseCase{
		repo:     repo,
		ledger:   ledger,
		activity: activity,
	}
}

// ReservationResult is a reservation token with the pool state after the change
type ReservationResult struct {
	Reservation *model.Reservation
	Snapshot    model.ResourceSnapshot
	Warnings    model.Warnings
}

// Reserve takes count units of a category. It never waits for capacity.
func (uc *ResourceUseCase) Reserve(ctx context.Context, eventID model.EventID, category types.ResourceCategory, count int, actor string) (*ReservationResult, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if err := category.Validate(); err != nil {
		return nil, goerr.Wrap(model.ErrValidation, err.Error(), goerr.V(model.CategoryKey, category))
	}
	if _, err := getOpenEvent(ctx, uc.repo, eventID); err != nil {
		return nil, err
	}

	rsv, _, err := uc.ledger.Reserve(eventID, category, count, "")
	if err != nil {
		return nil, goerr.Wrap(err, "failed to reserve resource",
			goerr.V(model.EventIDKey, eventID),
			goerr.V(model.CategoryKey, category))
	}

	result := &ReservationResult{Reservation: rsv, Snapshot: uc.snapshotOf(eventID, rsv.ID)}
	result.Warnings = uc.activity.record(ctx, newEntry(eventID, actor, types.ActivityResource,
		"resource reserved", reservationDetails(rsv, result.Snapshot)))
	return result, nil
}

// Release returns a reservation to its pool. Releasing twice is a no-op.
func (uc *ResourceUseCase) Release(ctx context.Context, eventID model.EventID, id model.ReservationID, actor string) (*ReservationResult, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if _, err := getOpenEvent(ctx, uc.repo, eventID); err != nil {
		return nil, err
	}

	rsv, released, err := uc.ledger.Release(eventID, id)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to release resource",
			goerr.V(model.EventIDKey, eventID),
			goerr.V(model.ReservationIDKey, id))
	}

	result := &ReservationResult{Reservation: rsv, Snapshot: uc.snapshotOf(eventID, rsv.ID)}
	if released {
		result.Warnings = uc.activity.record(ctx, newEntry(eventID, actor, types.ActivityResource,
			"resource released", reservationDetails(rsv, result.Snapshot)))
	}
	return result, nil
}

// Occupy moves a reservation from reserved to in use
func (uc *ResourceUseCase) Occupy(ctx context.Context, eventID model.EventID, id model.ReservationID, actor string) (*ReservationResult, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if _, err := getOpenEvent(ctx, uc.repo, eventID); err != nil {
		return nil, err
	}

	before, err := uc.reservation(eventID, id)
	if err != nil {
		return nil, err
	}

	rsv, err := uc.ledger.Occupy(eventID, id)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to occupy resource",
			goerr.V(model.EventIDKey, eventID),
			goerr.V(model.ReservationIDKey, id))
	}

	result := &ReservationResult{Reservation: rsv, Snapshot: uc.snapshotOf(eventID, rsv.ID)}
	if before.State != rsv.State {
		result.Warnings = uc.activity.record(ctx, newEntry(eventID, actor, types.ActivityResource,
			"resource occupied", reservationDetails(rsv, result.Snapshot)))
	}
	return result, nil
}

// AdjustResult is the pool state after a capacity change
type AdjustResult struct {
	Snapshot model.ResourceSnapshot
	Warnings model.Warnings
}

// Adjust changes the total capacity of a pool. It is the only way capacity
// changes and always names who authorized it and why.
func (uc *ResourceUseCase) Adjust(ctx context.Context, eventID model.EventID, category types.ResourceCategory, delta int, reason, actor string) (*AdjustResult, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if reason == "" {
		return nil, goerr.Wrap(model.ErrValidation, "capacity adjustment requires a reason")
	}
	if _, err := getOpenEvent(ctx, uc.repo, eventID); err != nil {
		return nil, err
	}

	snap, err := uc.ledger.AdjustCapacity(eventID, category, delta)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to adjust capacity",
			goerr.V(model.EventIDKey, eventID),
			goerr.V(model.CategoryKey, category),
			goerr.V("delta", delta))
	}

	result := &AdjustResult{Snapshot: snap}
	result.Warnings = uc.activity.record(ctx, newEntry(eventID, actor, types.ActivityResource,
		"capacity adjusted", map[string]any{
			"category":  string(category),
			"delta":     delta,
			"reason":    reason,
			"total":     snap.Total,
			"available": snap.Available(),
		}))
	return result, nil
}

// Snapshots returns the pools of an event. Closed events return their final state.
func (uc *ResourceUseCase) Snapshots(ctx context.Context, eventID model.EventID) ([]model.ResourceSnapshot, error) {
	e, err := getEvent(ctx, uc.repo, eventID)
	if err != nil {
		return nil, err
	}
	return currentResources(uc.ledger, e)
}

func currentResources(ledger *resource.Ledger, e *model.Event) ([]model.ResourceSnapshot, error) {
	if e.IsClosed() {
		return e.FinalResources, nil
	}
	snaps, err := ledger.Snapshots(e.ID)
	if errors.Is(err, model.ErrNotFound) {
		return []model.ResourceSnapshot{}, nil
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read resource pools", goerr.V(model.EventIDKey, e.ID))
	}
	return snaps, nil
}

func (uc *ResourceUseCase) reservation(eventID model.EventID, id model.ReservationID) (*model.Reservation, error) {
	_, rsv, err := uc.ledger.Lookup(eventID, id)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to find reservation",
			goerr.V(model.EventIDKey, eventID),
			goerr.V(model.ReservationIDKey, id))
	}
	return rsv, nil
}

func (uc *ResourceUseCase) snapshotOf(eventID model.EventID, id model.ReservationID) model.ResourceSnapshot {
	pool, _, err := uc.ledger.Lookup(eventID, id)
	if err != nil {
		return model.ResourceSnapshot{}
	}
	return pool.Snapshot()
}

func reservationDetails(rsv *model.Reservation, snap model.ResourceSnapshot) map[string]any {
	return map[string]any{
		"reservation_id": string(rsv.ID),
		"category":       string(rsv.Category),
		"count":          rsv.Count,
		"state":          string(rsv.State),
		"available":      snap.Available(),
	}
}
