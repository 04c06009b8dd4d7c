package model

import (
	"time"

	"github.com/secmon-lab/asclepius/pkg/domain/types"
)

// NotificationIntent is one outbound message waiting for an external worker
type NotificationIntent struct {
	ID          NotificationID            `json:"id"`
	EventID     EventID                   `json:"event_id"`
	VictimID    VictimID                  `json:"victim_id,omitempty"`
	Purpose     types.NotificationPurpose `json:"purpose"`
	Recipient   string                    `json:"recipient,omitempty"`
	Contact     string                    `json:"contact" masq:"secret"`
	Type        types.NotificationType    `json:"type"`
	Method      types.NotificationMethod  `json:"method"`
	Message     string                    `json:"message"`
	Status      types.NotificationStatus  `json:"status"`
	Attempts    int                       `json:"attempts"`
	LastError   string                    `json:"last_error,omitempty"`
	CreatedAt   time.Time                 `json:"created_at"`
	UpdatedAt   time.Time                 `json:"updated_at"`
	DeliveredAt *time.Time                `json:"delivered_at,omitempty"`
}
