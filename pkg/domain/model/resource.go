package model

import (
	"encoding/json"
	"time"

	"github.com/secmon-lab/asclepius/pkg/domain/types"
)

// ResourceSnapshot is a consistent read of one pool.
// Available is always derived from the other three counts.
type ResourceSnapshot struct {
	Category types.ResourceCategory `json:"category"`
	Total    int                    `json:"total"`
	Reserved int                    `json:"reserved"`
	InUse    int                    `json:"in_use"`
}

// Available returns total - reserved - inUse
func (s ResourceSnapshot) Available() int {
	return s.Total - s.Reserved - s.InUse
}

// MarshalJSON adds the derived available count to the encoded counters
func (s ResourceSnapshot) MarshalJSON() ([]byte, error) {
	type counters ResourceSnapshot
	return json.Marshal(struct {
		counters
		Available int `json:"available"`
	}{counters(s), s.Available()})
}

// ReservationState is the lifecycle of a reservation token
type ReservationState string

const (
	ReservationReserved ReservationState = "RESERVED"
	ReservationInUse    ReservationState = "IN_USE"
	ReservationReleased ReservationState = "RELEASED"
)

// Reservation is the token returned by a successful Reserve
type Reservation struct {
	ID         ReservationID          `json:"id"`
	EventID    EventID                `json:"event_id"`
	Category   types.ResourceCategory `json:"category"`
	Count      int                    `json:"count"`
	DedupKey   string                 `json:"dedup_key,omitempty"`
	State      ReservationState       `json:"state"`
	CreatedAt  time.Time              `json:"created_at"`
	ReleasedAt *time.Time             `json:"released_at,omitempty"`
}

// ReservationDedupKey builds the idempotency key of a victim's reservation
func ReservationDedupKey(victimID VictimID, category types.ResourceCategory) string {
	return string(victimID) + "/" + string(category)
}

// CapacityEntry is the seed for one pool taken from the hospital snapshot.
// Units that are not available are seeded as already in use.
type CapacityEntry struct {
	Total     int `json:"total"`
	Available int `json:"available"`
}

// CapacitySnapshot is the hospital capacity at activation time
type CapacitySnapshot map[types.ResourceCategory]CapacityEntry
