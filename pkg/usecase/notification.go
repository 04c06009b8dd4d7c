package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/asclepius/pkg/domain/interfaces"
	"github.com/secmon-lab/asclepius/pkg/domain/model"
	"github.com/secmon-lab/asclepius/pkg/domain/types"
)

// NotificationUseCase queues outbound notification intents and records the
// delivery attempts reported back by a worker. It never delivers or retries
// anything itself.
type NotificationUseCase struct {
	repo        interfaces.Repository
	activity    *ActivityUseCase
	maxAttempts int
	now         func() time.Time
}

func NewNotificationUseCase(repo interfaces.Repository, activity *ActivityUseCase, maxAttempts int, now func() time.Time) *NotificationUseCase {
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	return &NotificationUseCase{
		repo:        repo,
		activity:    activity,
		maxAttempts: maxAttempts,
		now:         now,
	}
}

// EnqueueInput describes one notification. Family notifications name a
// victim; staff callouts name an event and no victim.
type EnqueueInput struct {
	EventID   model.EventID
	VictimID  model.VictimID
	Purpose   types.NotificationPurpose
	Recipient string
	Contact   string `masq:"secret"`
	Type      types.NotificationType
	Method    types.NotificationMethod
	Message   string
}

// Enqueue creates a queued intent and logs it
func (uc *NotificationUseCase) Enqueue(ctx context.Context, in EnqueueInput, actor string) (*model.NotificationIntent, model.Warnings, error) {
	if err := requireActor(actor); err != nil {
		return nil, nil, err
	}

	n, err := uc.enqueue(ctx, in)
	if err != nil {
		return nil, nil, err
	}

	warnings := uc.activity.record(ctx, newEntry(n.EventID, actor, types.ActivityNotification,
		"notification queued", notificationDetails(n)))
	return n, warnings, nil
}

// enqueue stores an intent without logging it; callers fold it into their own entry
func (uc *NotificationUseCase) enqueue(ctx context.Context, in EnqueueInput) (*model.NotificationIntent, error) {
	if in.Purpose == "" {
		in.Purpose = types.NotificationPurposeFamily
	}
	if !in.Purpose.IsValid() {
		return nil, goerr.Wrap(model.ErrValidation, "invalid notification purpose", goerr.V("purpose", in.Purpose))
	}
	if !in.Type.IsValid() {
		return nil, goerr.Wrap(model.ErrValidation, "invalid notification type", goerr.V("type", in.Type))
	}
	if !in.Method.IsValid() {
		return nil, goerr.Wrap(model.ErrValidation, "invalid notification method", goerr.V("method", in.Method))
	}
	if in.Contact == "" {
		return nil, goerr.Wrap(model.ErrValidation, "notification contact is required")
	}
	if in.Message == "" {
		return nil, goerr.Wrap(model.ErrValidation, "notification message is required")
	}

	switch in.Purpose {
	case types.NotificationPurposeFamily:
		if in.VictimID == "" {
			return nil, goerr.Wrap(model.ErrValidation, "family notification requires a victim")
		}
		v, err := uc.repo.Victim().Get(ctx, in.VictimID)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to get victim", goerr.V(model.VictimIDKey, in.VictimID))
		}
		if in.EventID != "" && in.EventID != v.EventID {
			return nil, goerr.Wrap(model.ErrValidation, "victim belongs to another event",
				goerr.V(model.VictimIDKey, in.VictimID),
				goerr.V(model.EventIDKey, in.EventID))
		}
		in.EventID = v.EventID

	case types.NotificationPurposeStaffCallout:
		if in.VictimID != "" {
			return nil, goerr.Wrap(model.ErrValidation, "staff callout must not name a victim")
		}
	}

	if _, err := getOpenEvent(ctx, uc.repo, in.EventID); err != nil {
		return nil, err
	}

	n := &model.NotificationIntent{
		ID:        model.NewNotificationID(),
		EventID:   in.EventID,
		VictimID:  in.VictimID,
		Purpose:   in.Purpose,
		Recipient: in.Recipient,
		Contact:   in.Contact,
		Type:      in.Type,
		Method:    in.Method,
		Message:   in.Message,
		Status:    types.NotificationQueued,
	}

	created, err := uc.repo.Notification().Create(ctx, n)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create notification", goerr.V(model.NotificationIDKey, n.ID))
	}
	return created, nil
}

// MarkSent records a successful delivery. For a family notification the
// victim is flagged as notified; failing to set that flag is a warning.
func (uc *NotificationUseCase) MarkSent(ctx context.Context, id model.NotificationID, actor string) (*model.NotificationIntent, model.Warnings, error) {
	if err := requireActor(actor); err != nil {
		return nil, nil, err
	}
	if err := uc.checkOpen(ctx, id); err != nil {
		return nil, nil, err
	}

	now := uc.now()
	n, err := uc.repo.Notification().Modify(ctx, id, func(n *model.NotificationIntent) error {
		if n.Status == types.NotificationSent {
			return errUnchanged
		}
		n.Status = types.NotificationSent
		n.Attempts++
		n.LastError = ""
		n.DeliveredAt = &now
		return nil
	})
	if errors.Is(err, errUnchanged) {
		current, err := uc.repo.Notification().Get(ctx, id)
		if err != nil {
			return nil, nil, goerr.Wrap(err, "failed to get notification", goerr.V(model.NotificationIDKey, id))
		}
		return current, nil, nil
	}
	if err != nil {
		return nil, nil, goerr.Wrap(err, "failed to mark notification sent", goerr.V(model.NotificationIDKey, id))
	}

	var warnings model.Warnings
	if n.Purpose == types.NotificationPurposeFamily && n.VictimID != "" {
		if err := uc.flagFamilyNotified(ctx, n.VictimID); err != nil {
			warnings.Add(model.WarningNotificationFailed, err)
		}
	}

	warnings.Merge(uc.activity.record(ctx, newEntry(n.EventID, actor, types.ActivityNotification,
		"notification delivered", notificationDetails(n))))
	return n, warnings, nil
}

func (uc *NotificationUseCase) flagFamilyNotified(ctx context.Context, victimID model.VictimID) error {
	return retryOnConflict(func() error {
		v, err := uc.repo.Victim().Get(ctx, victimID)
		if err != nil {
			return goerr.Wrap(err, "failed to get victim", goerr.V(model.VictimIDKey, victimID))
		}
		if v.FamilyNotified {
			return nil
		}
		v.FamilyNotified = true
		v.UpdatedAt = uc.now()
		if _, err := uc.repo.Victim().Update(ctx, v, v.Version); err != nil {
			return goerr.Wrap(err, "failed to flag family notified", goerr.V(model.VictimIDKey, victimID))
		}
		return nil
	})
}

// MarkFailed records a failed delivery attempt
func (uc *NotificationUseCase) MarkFailed(ctx context.Context, id model.NotificationID, reason, actor string) (*model.NotificationIntent, model.Warnings, error) {
	if err := requireActor(actor); err != nil {
		return nil, nil, err
	}
	if reason == "" {
		return nil, nil, goerr.Wrap(model.ErrValidation, "failure reason is required")
	}
	if err := uc.checkOpen(ctx, id); err != nil {
		return nil, nil, err
	}

	n, err := uc.repo.Notification().Modify(ctx, id, func(n *model.NotificationIntent) error {
		if n.Status == types.NotificationSent {
			return goerr.Wrap(model.ErrInvalidTransition, "notification was already delivered",
				goerr.V(model.NotificationIDKey, id))
		}
		n.Status = types.NotificationFailed
		n.Attempts++
		n.LastError = reason
		return nil
	})
	if err != nil {
		return nil, nil, goerr.Wrap(err, "failed to mark notification failed", goerr.V(model.NotificationIDKey, id))
	}

	details := notificationDetails(n)
	details["reason"] = reason
	warnings := uc.activity.record(ctx, newEntry(n.EventID, actor, types.ActivityNotification,
		"notification delivery failed", details))
	return n, warnings, nil
}

// CalloutAnswer is a staff member's reply to a callout. An empty Response
// counts as a confirmation. ETAMinutes only goes with a confirmation.
type CalloutAnswer struct {
	Response   types.CalloutResponse
	ETAMinutes *int
}

func (a *CalloutAnswer) normalize() error {
	if a.Response == "" {
		a.Response = types.CalloutConfirmed
	}
	if !a.Response.IsValid() {
		return goerr.Wrap(model.ErrValidation, "invalid callout response", goerr.V("response", a.Response))
	}
	if a.ETAMinutes == nil {
		return nil
	}
	if *a.ETAMinutes < 0 {
		return goerr.Wrap(model.ErrValidation, "eta must not be negative", goerr.V("eta_minutes", *a.ETAMinutes))
	}
	if a.Response == types.CalloutDeclined {
		return goerr.Wrap(model.ErrValidation, "a declined callout has no eta")
	}
	return nil
}

// AcknowledgeCallout records a staff member's answer to a callout. The
// intent itself does not change; every answer is one log entry.
func (uc *NotificationUseCase) AcknowledgeCallout(ctx context.Context, id model.NotificationID, answer CalloutAnswer, actor string) (*model.ActivityEntry, model.Warnings, error) {
	if err := requireActor(actor); err != nil {
		return nil, nil, err
	}
	if err := answer.normalize(); err != nil {
		return nil, nil, err
	}

	n, err := uc.repo.Notification().Get(ctx, id)
	if err != nil {
		return nil, nil, goerr.Wrap(err, "failed to get notification", goerr.V(model.NotificationIDKey, id))
	}
	if n.Purpose != types.NotificationPurposeStaffCallout {
		return nil, nil, goerr.Wrap(model.ErrValidation, "only staff callouts can be acknowledged",
			goerr.V(model.NotificationIDKey, id),
			goerr.V("purpose", n.Purpose))
	}
	if _, err := getOpenEvent(ctx, uc.repo, n.EventID); err != nil {
		return nil, nil, err
	}

	details := notificationDetails(n)
	details["acknowledged_by"] = actor
	details["response"] = string(answer.Response)

	msg := fmt.Sprintf("%s callout acknowledged by %s: %s", n.Recipient, actor, strings.ToLower(string(answer.Response)))
	if answer.ETAMinutes != nil {
		details["eta_minutes"] = *answer.ETAMinutes
		msg += fmt.Sprintf(", ETA %d min", *answer.ETAMinutes)
	}

	appended, err := uc.repo.Activity().Append(ctx, newEntry(n.EventID, actor, types.ActivityNotification, msg, details))
	if err != nil {
		return nil, nil, goerr.Wrap(err, "failed to record acknowledgement", goerr.V(model.NotificationIDKey, id))
	}
	return appended, uc.activity.publish(ctx, appended), nil
}

func (uc *NotificationUseCase) checkOpen(ctx context.Context, id model.NotificationID) error {
	n, err := uc.repo.Notification().Get(ctx, id)
	if err != nil {
		return goerr.Wrap(err, "failed to get notification", goerr.V(model.NotificationIDKey, id))
	}
	_, err = getOpenEvent(ctx, uc.repo, n.EventID)
	return err
}

// HasBeenNotified reports whether a family notification for the victim was delivered
func (uc *NotificationUseCase) HasBeenNotified(ctx context.Context, victimID model.VictimID) (bool, error) {
	intents, err := uc.ListByVictim(ctx, victimID)
	if err != nil {
		return false, err
	}
	for _, n := range intents {
		if n.Purpose == types.NotificationPurposeFamily && n.Status == types.NotificationSent {
			return true, nil
		}
	}
	return false, nil
}

// ListPending returns intents a delivery worker should attempt next. Intents
// of closed events are left alone.
func (uc *NotificationUseCase) ListPending(ctx context.Context, limit int) ([]*model.NotificationIntent, error) {
	if limit <= 0 {
		return nil, goerr.Wrap(model.ErrValidation, "limit must be positive", goerr.V("limit", limit))
	}

	pending, err := uc.repo.Notification().ListPending(ctx, uc.maxAttempts, limit)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list pending notifications")
	}

	closed := make(map[model.EventID]bool)
	out := make([]*model.NotificationIntent, 0, len(pending))
	for _, n := range pending {
		isClosed, seen := closed[n.EventID]
		if !seen {
			e, err := uc.repo.Event().Get(ctx, n.EventID)
			if err != nil {
				return nil, goerr.Wrap(err, "failed to get event", goerr.V(model.EventIDKey, n.EventID))
			}
			isClosed = e.IsClosed()
			closed[n.EventID] = isClosed
		}
		if !isClosed {
			out = append(out, n)
		}
	}
	return out, nil
}

func (uc *NotificationUseCase) ListByVictim(ctx context.Context, victimID model.VictimID) ([]*model.NotificationIntent, error) {
	if _, err := uc.repo.Victim().Get(ctx, victimID); err != nil {
		return nil, goerr.Wrap(err, "failed to get victim", goerr.V(model.VictimIDKey, victimID))
	}
	intents, err := uc.repo.Notification().ListByVictim(ctx, victimID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list notifications", goerr.V(model.VictimIDKey, victimID))
	}
	return intents, nil
}

// countPending counts intents of an event still awaiting delivery
func (uc *NotificationUseCase) countPending(intents []*model.NotificationIntent) int {
	count := 0
	for _, n := range intents {
		switch n.Status {
		case types.NotificationQueued:
			count++
		case types.NotificationFailed:
			if n.Attempts < uc.maxAttempts {
				count++
			}
		}
	}
	return count
}

func notificationDetails(n *model.NotificationIntent) map[string]any {
	details := map[string]any{
		"notification_id": string(n.ID),
		"purpose":         string(n.Purpose),
		"type":            string(n.Type),
		"method":          string(n.Method),
		"recipient":       n.Recipient,
		"attempts":        n.Attempts,
	}
	if n.VictimID != "" {
		details["victim_id"] = string(n.VictimID)
	}
	return details
}
