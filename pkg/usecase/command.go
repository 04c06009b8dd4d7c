package usecase

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/asclepius/pkg/domain/interfaces"
	"github.com/secmon-lab/asclepius/pkg/domain/model"
	"github.com/secmon-lab/asclepius/pkg/domain/types"
)

type CommandUseCase struct {
	repo     interfaces.Repository
	activity *ActivityUseCase
	now      func() time.Time
}

func NewCommandUseCase(repo interfaces.Repository, activity *ActivityUseCase, now func() time.Time) *CommandUseCase {
	return &CommandUseCase{
		repo:     repo,
		activity: activity,
		now:      now,
	}
}

// AssignRoleInput names the staff member taking a command role
type AssignRoleInput struct {
	Role      types.CommandRole
	StaffID   string
	StaffName string
	Contact   string
}

// AssignmentResult is a new role holder and the holder it relieved, if any
type AssignmentResult struct {
	Assignment *model.CommandAssignment
	Relieved   *model.CommandAssignment
	Warnings   model.Warnings
}

// AssignRole makes the staff member the active holder of the role. The prior
// holder is relieved, never removed, so the history stays complete.
// Assigning the current holder again changes nothing.
func (uc *CommandUseCase) AssignRole(ctx context.Context, eventID model.EventID, in AssignRoleInput, actor string) (*AssignmentResult, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if !in.Role.IsValid() {
		return nil, goerr.Wrap(model.ErrValidation, "invalid command role", goerr.V(RoleKey, in.Role))
	}
	if in.StaffID == "" {
		return nil, goerr.Wrap(model.ErrValidation, "staff is required")
	}
	if _, err := getOpenEvent(ctx, uc.repo, eventID); err != nil {
		return nil, err
	}

	roster, err := uc.Roster(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if current := roster.Current[in.Role]; current != nil && current.StaffID == in.StaffID {
		return &AssignmentResult{Assignment: current}, nil
	}

	a := &model.CommandAssignment{
		ID:         model.NewAssignmentID(),
		EventID:    eventID,
		Role:       in.Role,
		StaffID:    in.StaffID,
		StaffName:  in.StaffName,
		Contact:    in.Contact,
		AssignedAt: uc.now(),
		AssignedBy: actor,
	}
	relieved, err := uc.repo.Command().Assign(ctx, a)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to assign command role",
			goerr.V(model.EventIDKey, eventID),
			goerr.V(RoleKey, in.Role))
	}

	details := map[string]any{
		"role":     string(in.Role),
		"staff_id": in.StaffID,
	}
	if relieved != nil {
		details["relieved_staff_id"] = relieved.StaffID
	}

	result := &AssignmentResult{Assignment: a, Relieved: relieved}
	result.Warnings = uc.activity.record(ctx, newEntry(eventID, actor, types.ActivityCommand,
		"command role "+string(in.Role)+" assigned to "+in.StaffID, details))
	return result, nil
}

// Roster returns the current holder of every filled role plus the full history
func (uc *CommandUseCase) Roster(ctx context.Context, eventID model.EventID) (*model.Roster, error) {
	if _, err := getEvent(ctx, uc.repo, eventID); err != nil {
		return nil, err
	}

	assignments, err := uc.repo.Command().List(ctx, eventID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list command assignments", goerr.V(model.EventIDKey, eventID))
	}
	return buildRoster(assignments), nil
}

func buildRoster(assignments []*model.CommandAssignment) *model.Roster {
	roster := &model.Roster{
		Current: make(map[types.CommandRole]*model.CommandAssignment),
		History: assignments,
	}
	for _, a := range assignments {
		if a.IsActive() {
			roster.Current[a.Role] = a
		}
	}
	return roster
}
