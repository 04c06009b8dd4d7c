package model

import (
	"time"

	"github.com/secmon-lab/asclepius/pkg/domain/types"
)

// CommandAssignment is a staff member holding a command role.
// A relieved assignment keeps its record with RelievedAt set.
type CommandAssignment struct {
	ID         AssignmentID      `json:"id"`
	EventID    EventID           `json:"event_id"`
	Role       types.CommandRole `json:"role"`
	StaffID    string            `json:"staff_id,omitempty"`
	StaffName  string            `json:"staff_name,omitempty"`
	Contact    string            `json:"contact,omitempty"`
	AssignedAt time.Time         `json:"assigned_at"`
	AssignedBy string            `json:"assigned_by"`
	RelievedAt *time.Time        `json:"relieved_at,omitempty"`
}

// IsActive reports whether the assignment is the current holder
func (a *CommandAssignment) IsActive() bool {
	return a.RelievedAt == nil
}

// Roster is the command structure of an event
type Roster struct {
	Current map[types.CommandRole]*CommandAssignment `json:"current"`
	History []*CommandAssignment                     `json:"history"`
}
