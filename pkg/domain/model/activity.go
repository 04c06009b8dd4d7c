package model

import (
	"time"

	"github.com/secmon-lab/asclepius/pkg/domain/types"
)

// ActivityEntry is an immutable audit record. Seq is assigned by the
// repository on append and is strictly increasing per event.
type ActivityEntry struct {
	EventID     EventID            `json:"event_id"`
	Seq         int64              `json:"seq"`
	Timestamp   time.Time          `json:"timestamp"`
	Actor       string             `json:"actor"`
	Type        types.ActivityType `json:"type"`
	Description string             `json:"description"`
	Details     map[string]any     `json:"details,omitempty"`
}

// CopyActivityEntry returns a copy of e with its own details map
func CopyActivityEntry(e *ActivityEntry) *ActivityEntry {
	c := *e
	if e.Details != nil {
		c.Details = make(map[string]any, len(e.Details))
		for k, v := range e.Details {
			c.Details[k] = v
		}
	}
	return &c
}
