package model

import (
	"time"

	"github.com/secmon-lab/asclepius/pkg/domain/types"
)

// VictimCounts aggregates victims of one event
type VictimCounts struct {
	Total          int                          `json:"total"`
	Untriaged      int                          `json:"untriaged"`
	FamilyNotified int                          `json:"family_notified"`
	ByCategory     map[types.TriageCategory]int `json:"by_category"`
	ByStatus       map[types.WorkflowStatus]int `json:"by_status"`
	ByDisposition  map[types.Disposition]int    `json:"by_disposition"`
}

// CountVictims derives counts directly from victim records
func CountVictims(victims []*Victim) VictimCounts {
	c := VictimCounts{
		ByCategory:    make(map[types.TriageCategory]int),
		ByStatus:      make(map[types.WorkflowStatus]int),
		ByDisposition: make(map[types.Disposition]int),
	}
	for _, v := range victims {
		c.Total++
		if cat := v.Category(); cat != "" {
			c.ByCategory[cat]++
		} else {
			c.Untriaged++
		}
		c.ByStatus[v.Status]++
		if v.Disposition != "" {
			c.ByDisposition[v.Disposition]++
		}
		if v.FamilyNotified {
			c.FamilyNotified++
		}
	}
	return c
}

// Dashboard is a read-only view of one event
type Dashboard struct {
	Event                *Event               `json:"event"`
	Victims              VictimCounts         `json:"victims"`
	Resources            []ResourceSnapshot   `json:"resources"`
	Command              []*CommandAssignment `json:"command"`
	RecentActivity       []*ActivityEntry     `json:"recent_activity"`
	PendingNotifications int                  `json:"pending_notifications"`
	OpenInquiries        int                  `json:"open_inquiries"`
	GeneratedAt          time.Time            `json:"generated_at"`
}

// AfterActionRecord is the immutable export of a closed event
type AfterActionRecord struct {
	Event         *Event                `json:"event"`
	Victims       []*Victim             `json:"victims"`
	Resources     []ResourceSnapshot    `json:"resources"`
	Activity      []*ActivityEntry      `json:"activity"`
	Command       []*CommandAssignment  `json:"command"`
	Notifications []*NotificationIntent `json:"notifications"`
	Inquiries     []*Inquiry            `json:"inquiries"`
	Summary       VictimCounts          `json:"summary"`
	ExportedAt    time.Time             `json:"exported_at"`
}
