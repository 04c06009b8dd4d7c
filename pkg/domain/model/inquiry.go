package model

import (
	"time"

	"github.com/secmon-lab/asclepius/pkg/domain/types"
)

// Inquiry is a family hotline request looking for a missing person
type Inquiry struct {
	ID              InquiryID           `json:"id"`
	EventID         EventID             `json:"event_id"`
	InquirerName    string              `json:"inquirer_name"`
	InquirerPhone   string              `json:"inquirer_phone" masq:"secret"`
	Relationship    string              `json:"relationship,omitempty"`
	Description     string              `json:"description"`
	Status          types.InquiryStatus `json:"status"`
	MatchedVictimID VictimID            `json:"matched_victim_id,omitempty"`
	Notes           string              `json:"notes,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
	ResolvedAt      *time.Time          `json:"resolved_at,omitempty"`
	ResolvedBy      string              `json:"resolved_by,omitempty"`
}
