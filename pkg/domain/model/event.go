package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/secmon-lab/asclepius/pkg/domain/types"
)

// Event is one mass-casualty incident episode. Closed events are immutable.
type Event struct {
	ID                  EventID           `json:"id"`
	Code                string            `json:"code"`
	Name                string            `json:"name,omitempty"`
	AlertLevel          types.AlertLevel  `json:"alert_level"`
	Type                types.EventType   `json:"type"`
	Description         string            `json:"description,omitempty"`
	Location            string            `json:"location,omitempty"`
	EstimatedCasualties int               `json:"estimated_casualties"`
	Status              types.EventStatus `json:"status"`
	ActivatedAt         time.Time         `json:"activated_at"`
	ActivatedBy         string            `json:"activated_by"`
	DeactivatingAt      *time.Time        `json:"deactivating_at,omitempty"`
	ClosedAt            *time.Time        `json:"closed_at,omitempty"`
	ClosedBy            string            `json:"closed_by,omitempty"`
	CloseReason         string            `json:"close_reason,omitempty"`

	// FinalResources is the frozen pool state stored when the event closes
	FinalResources []ResourceSnapshot `json:"final_resources"`

	Version   int64     `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsClosed reports whether the event has been closed
func (e *Event) IsClosed() bool {
	return e.Status == types.EventStatusClosed
}

// GenerateEventCode returns a human-readable code such as MCI-202610171405-3fa9
func GenerateEventCode(at time.Time) string {
	suffix := strings.ReplaceAll(uuid.New().String(), "-", "")[:4]
	return "MCI-" + at.Format("200601021504") + "-" + suffix
}
