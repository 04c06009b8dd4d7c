package usecase

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/asclepius/pkg/domain/interfaces"
	"github.com/secmon-lab/asclepius/pkg/domain/model"
	"github.com/secmon-lab/asclepius/pkg/domain/types"
)

// InquiryUseCase handles the family hotline: people asking whether a
// relative was brought in.
type InquiryUseCase struct {
	repo     interfaces.Repository
	activity *ActivityUseCase
	now      func() time.Time
}

func NewInquiryUseCase(repo interfaces.Repository, activity *ActivityUseCase, now func() time.Time) *InquiryUseCase {
	return &InquiryUseCase{
		repo:     repo,
		activity: activity,
		now:      now,
	}
}

type InquiryInput struct {
	InquirerName  string
	InquirerPhone string `masq:"secret"`
	Relationship  string
	Description   string
}

type InquiryResult struct {
	Inquiry  *model.Inquiry
	Warnings model.Warnings
}

func (uc *InquiryUseCase) RegisterInquiry(ctx context.Context, eventID model.EventID, in InquiryInput, actor string) (*InquiryResult, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if in.InquirerName == "" || in.InquirerPhone == "" {
		return nil, goerr.Wrap(model.ErrValidation, "inquirer name and phone are required")
	}
	if in.Description == "" {
		return nil, goerr.Wrap(model.ErrValidation, "description of the missing person is required")
	}
	if _, err := getOpenEvent(ctx, uc.repo, eventID); err != nil {
		return nil, err
	}

	q := &model.Inquiry{
		ID:            model.NewInquiryID(),
		EventID:       eventID,
		InquirerName:  in.InquirerName,
		InquirerPhone: in.InquirerPhone,
		Relationship:  in.Relationship,
		Description:   in.Description,
		Status:        types.InquiryPending,
		CreatedAt:     uc.now(),
	}
	created, err := uc.repo.Inquiry().Create(ctx, q)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create inquiry", goerr.V(model.EventIDKey, eventID))
	}

	warnings := uc.activity.record(ctx, newEntry(eventID, actor, types.ActivityInquiry,
		"family inquiry registered", map[string]any{
			"inquiry_id":   string(created.ID),
			"relationship": created.Relationship,
		}))
	return &InquiryResult{Inquiry: created, Warnings: warnings}, nil
}

// ResolveInquiry closes a pending inquiry. A victim ID marks it matched; an
// empty one records that nobody matching was found.
func (uc *InquiryUseCase) ResolveInquiry(ctx context.Context, id model.InquiryID, matched model.VictimID, notes, actor string) (*InquiryResult, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}

	q, err := uc.repo.Inquiry().Get(ctx, id)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get inquiry", goerr.V(model.InquiryIDKey, id))
	}
	if _, err := getOpenEvent(ctx, uc.repo, q.EventID); err != nil {
		return nil, err
	}
	if q.Status != types.InquiryPending {
		return nil, goerr.Wrap(model.ErrInvalidTransition, "inquiry is already resolved",
			goerr.V(model.InquiryIDKey, id),
			goerr.V(model.StatusKey, q.Status))
	}

	q.Status = types.InquiryNotFound
	if matched != "" {
		v, err := uc.repo.Victim().Get(ctx, matched)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to get matched victim", goerr.V(model.VictimIDKey, matched))
		}
		if v.EventID != q.EventID {
			return nil, goerr.Wrap(model.ErrValidation, "matched victim belongs to another event",
				goerr.V(model.VictimIDKey, matched))
		}
		q.Status = types.InquiryMatched
		q.MatchedVictimID = matched
	}

	now := uc.now()
	q.Notes = notes
	q.ResolvedAt = &now
	q.ResolvedBy = actor

	updated, err := uc.repo.Inquiry().Update(ctx, q)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to update inquiry", goerr.V(model.InquiryIDKey, id))
	}

	details := map[string]any{
		"inquiry_id": string(updated.ID),
		"status":     string(updated.Status),
	}
	if matched != "" {
		details["victim_id"] = string(matched)
	}
	warnings := uc.activity.record(ctx, newEntry(updated.EventID, actor, types.ActivityInquiry,
		"family inquiry resolved", details))
	return &InquiryResult{Inquiry: updated, Warnings: warnings}, nil
}

func (uc *InquiryUseCase) List(ctx context.Context, eventID model.EventID) ([]*model.Inquiry, error) {
	if _, err := getEvent(ctx, uc.repo, eventID); err != nil {
		return nil, err
	}
	inquiries, err := uc.repo.Inquiry().List(ctx, eventID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list inquiries", goerr.V(model.EventIDKey, eventID))
	}
	return inquiries, nil
}
