package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/asclepius/pkg/domain/interfaces"
	"github.com/secmon-lab/asclepius/pkg/domain/model"
	"github.com/secmon-lab/asclepius/pkg/domain/types"
	"github.com/secmon-lab/asclepius/pkg/service/resource"
	"github.com/secmon-lab/asclepius/pkg/utils/async"
	"github.com/secmon-lab/asclepius/pkg/utils/logging"
	"golang.org/x/sync/errgroup"
)

const dashboardActivityLimit = 20

// CoordinatorUseCase owns the event lifecycle. At most one event is live at
// a time; the repository enforces that atomically on creation.
type CoordinatorUseCase struct {
	repo         interfaces.Repository
	ledger       *resource.Ledger
	activity     *ActivityUseCase
	notification *NotificationUseCase
	capacity     interfaces.CapacityProvider
	callouts     []model.CalloutTarget
	trigger      func(ctx context.Context) error
	now          func() time.Time
}

func NewCoordinatorUseCase(repo interfaces.Repository, ledger *resource.Ledger, activity *ActivityUseCase, notification *NotificationUseCase, capacity interfaces.CapacityProvider, callouts []model.CalloutTarget, trigger func(ctx context.Context) error, now func() time.Time) *CoordinatorUseCase {
	return &CoordinatorUseCase{
		repo:         repo,
		ledger:       ledger,
		activity:     activity,
		notification: notification,
		capacity:     capacity,
		callouts:     callouts,
		trigger:      trigger,
		now:          now,
	}
}

// EventResult is a committed lifecycle change and its warnings
type EventResult struct {
	Event    *model.Event
	Warnings model.Warnings
}

type ActivateInput struct {
	AlertLevel          types.AlertLevel
	EventType           types.EventType
	Name                string
	Description         string
	Location            string
	EstimatedCasualties int
	Actor               string
}

func (in ActivateInput) validate() error {
	if err := requireActor(in.Actor); err != nil {
		return err
	}
	if !in.AlertLevel.IsValid() {
		return goerr.Wrap(model.ErrValidation, "invalid alert level", goerr.V(AlertLevelKey, in.AlertLevel))
	}
	if !in.EventType.IsValid() {
		return goerr.Wrap(model.ErrValidation, "invalid event type", goerr.V("type", in.EventType))
	}
	if in.EstimatedCasualties < 0 {
		return goerr.Wrap(model.ErrValidation, "estimated casualties must not be negative",
			goerr.V("estimated_casualties", in.EstimatedCasualties))
	}
	return nil
}

// Activate opens a new event. The capacity snapshot is fetched before the
// event is created so a slow hospital system never holds up the
// single-active check. Activation fails with model.ErrConflict while
// another event is live.
func (uc *CoordinatorUseCase) Activate(ctx context.Context, in ActivateInput) (*EventResult, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	active, err := uc.repo.Event().GetActive(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get active event")
	}
	if active != nil {
		return nil, goerr.Wrap(model.ErrConflict, "another event is already active",
			goerr.V(model.EventIDKey, active.ID))
	}

	var warnings model.Warnings
	snapshot, snapWarnings := uc.fetchCapacity(ctx)
	warnings.Merge(snapWarnings)

	now := uc.now()
	e := &model.Event{
		ID:                  model.NewEventID(),
		Code:                model.GenerateEventCode(now),
		Name:                in.Name,
		AlertLevel:          in.AlertLevel,
		Type:                in.EventType,
		Description:         in.Description,
		Location:            in.Location,
		EstimatedCasualties: in.EstimatedCasualties,
		Status:              types.EventStatusActive,
		ActivatedAt:         now,
		ActivatedBy:         in.Actor,
		UpdatedAt:           now,
	}
	created, err := uc.repo.Event().CreateActive(ctx, e)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to activate event")
	}

	if err := uc.ledger.Open(created.ID, snapshot); err != nil {
		return nil, goerr.Wrap(err, "failed to open resource pools", goerr.V(model.EventIDKey, created.ID))
	}

	resources, _ := uc.ledger.Snapshots(created.ID)
	warnings.Merge(uc.activity.record(ctx, newEntry(created.ID, in.Actor, types.ActivityAlert,
		fmt.Sprintf("%s activated at %s alert", created.Code, created.AlertLevel), map[string]any{
			"code":                 created.Code,
			"alert_level":          string(created.AlertLevel),
			"type":                 string(created.Type),
			"location":             created.Location,
			"estimated_casualties": created.EstimatedCasualties,
			"resources":            snapshotDetails(resources),
		})))

	warnings.Merge(uc.callout(ctx, created, "", created.AlertLevel))

	return &EventResult{Event: created, Warnings: warnings}, nil
}

// fetchCapacity returns the seed for the resource pools. Without a provider,
// or when the provider fails, pools start empty and grow via capacity adjustment.
func (uc *CoordinatorUseCase) fetchCapacity(ctx context.Context) (model.CapacitySnapshot, model.Warnings) {
	var warnings model.Warnings
	if uc.capacity == nil {
		return model.CapacitySnapshot{}, nil
	}

	snapshot, err := uc.capacity.Snapshot(ctx)
	if err != nil {
		logging.From(ctx).Warn("capacity snapshot unavailable, opening empty pools", "error", err.Error())
		warnings.Add(model.WarningResourceShortfall, goerr.Wrap(err, "capacity snapshot unavailable"))
		return model.CapacitySnapshot{}, warnings
	}

	valid := make(model.CapacitySnapshot, len(snapshot))
	for category, entry := range snapshot {
		if err := category.Validate(); err != nil || entry.Total < 0 || entry.Available < 0 || entry.Available > entry.Total {
			warnings.Add(model.WarningResourceShortfall, goerr.New("ignored invalid capacity entry",
				goerr.V(model.CategoryKey, category),
				goerr.V("total", entry.Total),
				goerr.V("available", entry.Available)))
			continue
		}
		valid[category] = entry
	}
	return valid, warnings
}

// callout queues one staff callout per roster entry reached by level but not by from
func (uc *CoordinatorUseCase) callout(ctx context.Context, e *model.Event, from, level types.AlertLevel) model.Warnings {
	var warnings model.Warnings
	typ := types.NotificationInitial
	if from != "" {
		typ = types.NotificationUpdate
	}

	queued := 0
	for _, target := range uc.callouts {
		if !target.ReachedBy(level) || (from != "" && target.ReachedBy(from)) {
			continue
		}
		_, err := uc.notification.enqueue(ctx, EnqueueInput{
			EventID:   e.ID,
			Purpose:   types.NotificationPurposeStaffCallout,
			Recipient: target.Name,
			Contact:   target.Contact,
			Type:      typ,
			Method:    target.Method,
			Message:   calloutMessage(e, level),
		})
		if err != nil {
			warnings.Add(model.WarningNotificationFailed, goerr.Wrap(err, "failed to queue staff callout",
				goerr.V("recipient", target.Name)))
			continue
		}
		queued++
	}

	if queued > 0 && uc.trigger != nil {
		async.Dispatch(ctx, uc.trigger)
	}
	return warnings
}

func calloutMessage(e *model.Event, level types.AlertLevel) string {
	msg := fmt.Sprintf("MCI %s: %s alert", e.Code, level)
	if e.Name != "" {
		msg += " - " + e.Name
	}
	if e.Location != "" {
		msg += " at " + e.Location
	}
	if e.EstimatedCasualties > 0 {
		msg += fmt.Sprintf(", about %d casualties expected", e.EstimatedCasualties)
	}
	return msg + ". Report to the emergency department."
}

// transition re-reads the event and applies fn until the version check
// passes. fn validates the transition against the freshly read event.
func (uc *CoordinatorUseCase) transition(ctx context.Context, eventID model.EventID, fn func(e *model.Event) error) (before, after *model.Event, err error) {
	err = retryOnConflict(func() error {
		e, err := getOpenEvent(ctx, uc.repo, eventID)
		if err != nil {
			return err
		}
		prior := *e
		if err := fn(e); err != nil {
			return err
		}
		e.UpdatedAt = uc.now()
		updated, err := uc.repo.Event().Update(ctx, e, prior.Version)
		if err != nil {
			return goerr.Wrap(err, "failed to update event", goerr.V(model.EventIDKey, eventID))
		}
		before, after = &prior, updated
		return nil
	})
	return before, after, err
}

func invalidTransition(e *model.Event, next types.EventStatus) error {
	return goerr.Wrap(model.ErrInvalidTransition, "event cannot change to "+string(next),
		goerr.V(model.EventIDKey, e.ID),
		goerr.V(model.StatusKey, e.Status))
}

// Escalate raises the alert level. Lowering it is not possible here.
func (uc *CoordinatorUseCase) Escalate(ctx context.Context, eventID model.EventID, level types.AlertLevel, reason, actor string) (*EventResult, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if !level.IsValid() {
		return nil, goerr.Wrap(model.ErrValidation, "invalid alert level", goerr.V(AlertLevelKey, level))
	}

	before, e, err := uc.transition(ctx, eventID, func(e *model.Event) error {
		if !e.Status.CanTransitionTo(types.EventStatusEscalated) {
			return invalidTransition(e, types.EventStatusEscalated)
		}
		if !level.Exceeds(e.AlertLevel) {
			return goerr.Wrap(model.ErrInvalidTransition, "alert level can only be raised",
				goerr.V(model.EventIDKey, e.ID),
				goerr.V("current", e.AlertLevel),
				goerr.V("requested", level))
		}
		e.AlertLevel = level
		e.Status = types.EventStatusEscalated
		return nil
	})
	if err != nil {
		return nil, err
	}

	warnings := uc.activity.record(ctx, newEntry(e.ID, actor, types.ActivityAlert,
		fmt.Sprintf("alert escalated %s -> %s", before.AlertLevel, level), map[string]any{
			"from":   string(before.AlertLevel),
			"to":     string(level),
			"reason": reason,
		}))
	warnings.Merge(uc.callout(ctx, e, before.AlertLevel, level))

	return &EventResult{Event: e, Warnings: warnings}, nil
}

// Stabilize returns an escalated event to active. The alert level stays.
func (uc *CoordinatorUseCase) Stabilize(ctx context.Context, eventID model.EventID, actor string) (*EventResult, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}

	_, e, err := uc.transition(ctx, eventID, func(e *model.Event) error {
		if e.Status != types.EventStatusEscalated {
			return invalidTransition(e, types.EventStatusActive)
		}
		e.Status = types.EventStatusActive
		return nil
	})
	if err != nil {
		return nil, err
	}

	warnings := uc.activity.record(ctx, newEntry(e.ID, actor, types.ActivityAlert,
		"event stabilized", map[string]any{"alert_level": string(e.AlertLevel)}))
	return &EventResult{Event: e, Warnings: warnings}, nil
}

// BeginDeactivation stops new registrations while victims already in the
// system are worked off.
func (uc *CoordinatorUseCase) BeginDeactivation(ctx context.Context, eventID model.EventID, reason, actor string) (*EventResult, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}

	_, e, err := uc.transition(ctx, eventID, func(e *model.Event) error {
		if !e.Status.CanTransitionTo(types.EventStatusDeactivating) {
			return invalidTransition(e, types.EventStatusDeactivating)
		}
		now := uc.now()
		e.Status = types.EventStatusDeactivating
		e.DeactivatingAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}

	warnings := uc.activity.record(ctx, newEntry(e.ID, actor, types.ActivityAlert,
		"deactivation started", map[string]any{"reason": reason}))
	return &EventResult{Event: e, Warnings: warnings}, nil
}

// Close ends the event for good. Pools are frozen and their final state is
// stored on the event; the closure entry summarizes the victims.
func (uc *CoordinatorUseCase) Close(ctx context.Context, eventID model.EventID, reason, actor string) (*EventResult, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if reason == "" {
		return nil, goerr.Wrap(model.ErrValidation, "close reason is required")
	}

	_, e, err := uc.transition(ctx, eventID, func(e *model.Event) error {
		if !e.Status.CanTransitionTo(types.EventStatusClosed) {
			return invalidTransition(e, types.EventStatusClosed)
		}
		final, err := uc.ledger.Freeze(e.ID)
		switch {
		case errors.Is(err, model.ErrNotFound):
			final = []model.ResourceSnapshot{}
		case err != nil:
			return goerr.Wrap(err, "failed to freeze resource pools", goerr.V(model.EventIDKey, e.ID))
		}

		now := uc.now()
		e.Status = types.EventStatusClosed
		e.ClosedAt = &now
		e.ClosedBy = actor
		e.CloseReason = reason
		e.FinalResources = final
		return nil
	})
	if err != nil {
		uc.thawUnlessClosed(ctx, eventID)
		return nil, err
	}

	var warnings model.Warnings
	details := map[string]any{
		"reason":    reason,
		"resources": snapshotDetails(e.FinalResources),
	}
	victims, err := uc.repo.Victim().List(ctx, eventID, model.VictimFilter{})
	if err != nil {
		warnings.Add(model.WarningActivityLogFailed, goerr.Wrap(err, "closure summary has no victim counts"))
	} else {
		counts := model.CountVictims(victims)
		details["victims_total"] = counts.Total
		details["untriaged"] = counts.Untriaged
		details["family_notified"] = counts.FamilyNotified
		details["by_category"] = stringKeys(counts.ByCategory)
		details["by_disposition"] = stringKeys(counts.ByDisposition)
	}

	warnings.Merge(uc.activity.record(ctx, newEntry(e.ID, actor, types.ActivityClosure,
		fmt.Sprintf("%s closed: %s", e.Code, reason), details)))
	return &EventResult{Event: e, Warnings: warnings}, nil
}

// thawUnlessClosed undoes the freeze of a close that did not commit
func (uc *CoordinatorUseCase) thawUnlessClosed(ctx context.Context, eventID model.EventID) {
	if !uc.ledger.IsOpen(eventID) {
		return
	}
	e, err := uc.repo.Event().Get(ctx, eventID)
	if err != nil || e.IsClosed() {
		return
	}
	if err := uc.ledger.Thaw(eventID); err != nil {
		logging.From(ctx).Warn("failed to thaw resource pools", "event_id", eventID, "error", err.Error())
	}
}

// Recover re-opens the resource pools of the live event after a restart.
// Pools are re-seeded from a fresh snapshot, which already counts the
// units occupied before the restart as unavailable.
func (uc *CoordinatorUseCase) Recover(ctx context.Context) error {
	e, err := uc.repo.Event().GetActive(ctx)
	if err != nil {
		return goerr.Wrap(err, "failed to get active event")
	}
	if e == nil || uc.ledger.IsOpen(e.ID) {
		return nil
	}

	snapshot, warnings := uc.fetchCapacity(ctx)
	if err := uc.ledger.Open(e.ID, snapshot); err != nil {
		return goerr.Wrap(err, "failed to re-open resource pools", goerr.V(model.EventIDKey, e.ID))
	}
	resources, _ := uc.ledger.Snapshots(e.ID)
	warnings.Merge(uc.activity.record(ctx, newEntry(e.ID, "system", types.ActivityResource,
		"resource pools re-seeded after restart", map[string]any{"resources": snapshotDetails(resources)})))

	for _, w := range warnings {
		logging.From(ctx).Warn("event recovery degraded", "event_id", e.ID, "code", w.Code, "message", w.Message)
	}
	logging.From(ctx).Info("recovered live event", "event_id", e.ID, "code", e.Code)
	return nil
}

func (uc *CoordinatorUseCase) Get(ctx context.Context, eventID model.EventID) (*model.Event, error) {
	return getEvent(ctx, uc.repo, eventID)
}

// GetActive returns the live event, or model.ErrNotFound if there is none
func (uc *CoordinatorUseCase) GetActive(ctx context.Context) (*model.Event, error) {
	e, err := uc.repo.Event().GetActive(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get active event")
	}
	if e == nil {
		return nil, goerr.Wrap(model.ErrNotFound, "no active event")
	}
	return e, nil
}

// ListHistory returns every event, newest first
func (uc *CoordinatorUseCase) ListHistory(ctx context.Context) ([]*model.Event, error) {
	events, err := uc.repo.Event().List(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list events")
	}
	return events, nil
}

// GetDashboard derives every count from victim records and pools directly.
// The reads run concurrently and take no write lock.
func (uc *CoordinatorUseCase) GetDashboard(ctx context.Context, eventID model.EventID) (*model.Dashboard, error) {
	e, err := getEvent(ctx, uc.repo, eventID)
	if err != nil {
		return nil, err
	}

	d := &model.Dashboard{Event: e, GeneratedAt: uc.now()}
	eg, ctx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		victims, err := uc.repo.Victim().List(ctx, eventID, model.VictimFilter{})
		if err != nil {
			return goerr.Wrap(err, "failed to list victims")
		}
		d.Victims = model.CountVictims(victims)
		return nil
	})
	eg.Go(func() error {
		assignments, err := uc.repo.Command().List(ctx, eventID)
		if err != nil {
			return goerr.Wrap(err, "failed to list command assignments")
		}
		roster := buildRoster(assignments)
		d.Command = make([]*model.CommandAssignment, 0, len(roster.Current))
		for _, role := range types.AllCommandRoles() {
			if a := roster.Current[role]; a != nil {
				d.Command = append(d.Command, a)
			}
		}
		return nil
	})
	eg.Go(func() error {
		entries, err := uc.repo.Activity().ListRecent(ctx, eventID, dashboardActivityLimit)
		if err != nil {
			return goerr.Wrap(err, "failed to list recent activity")
		}
		d.RecentActivity = entries
		return nil
	})
	eg.Go(func() error {
		intents, err := uc.repo.Notification().ListByEvent(ctx, eventID)
		if err != nil {
			return goerr.Wrap(err, "failed to list notifications")
		}
		d.PendingNotifications = uc.notification.countPending(intents)
		return nil
	})
	eg.Go(func() error {
		inquiries, err := uc.repo.Inquiry().List(ctx, eventID)
		if err != nil {
			return goerr.Wrap(err, "failed to list inquiries")
		}
		for _, q := range inquiries {
			if q.Status == types.InquiryPending {
				d.OpenInquiries++
			}
		}
		return nil
	})
	eg.Go(func() error {
		resources, err := currentResources(uc.ledger, e)
		if err != nil {
			return err
		}
		d.Resources = resources
		return nil
	})

	if err := eg.Wait(); err != nil {
		return nil, goerr.Wrap(err, "failed to build dashboard", goerr.V(model.EventIDKey, eventID))
	}
	return d, nil
}

func snapshotDetails(snaps []model.ResourceSnapshot) map[string]any {
	out := make(map[string]any, len(snaps))
	for _, s := range snaps {
		out[string(s.Category)] = map[string]any{
			"total":     s.Total,
			"reserved":  s.Reserved,
			"in_use":    s.InUse,
			"available": s.Available(),
		}
	}
	return out
}

func stringKeys[K ~string](m map[K]int) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[string(k)] = v
	}
	return out
}
