package types

import "fmt"

// EventType classifies the cause of an MCI event
type EventType string

const (
	EventTypeNatural    EventType = "NATURAL"
	EventTypeIndustrial EventType = "INDUSTRIAL"
	EventTypeTransport  EventType = "TRANSPORT"
	EventTypeViolence   EventType = "VIOLENCE"
	EventTypeOther      EventType = "OTHER"
)

// AllEventTypes returns all valid event types
func AllEventTypes() []EventType {
	return []EventType{
		EventTypeNatural,
		EventTypeIndustrial,
		EventTypeTransport,
		EventTypeViolence,
		EventTypeOther,
	}
}

// IsValid checks if the event type is valid
func (t EventType) IsValid() bool {
	switch t {
	case EventTypeNatural,
		EventTypeIndustrial,
		EventTypeTransport,
		EventTypeViolence,
		EventTypeOther:
		return true
	default:
		return false
	}
}

// String returns the string representation of the event type
func (t EventType) String() string {
	return string(t)
}

// ParseEventType parses a string into an EventType
func ParseEventType(s string) (EventType, error) {
	t := EventType(s)
	if !t.IsValid() {
		return "", fmt.Errorf("invalid event type: %s", s)
	}
	return t, nil
}

// EventStatus is the lifecycle state of an MCI event
type EventStatus string

const (
	EventStatusInactive     EventStatus = "INACTIVE"
	EventStatusActive       EventStatus = "ACTIVE"
	EventStatusEscalated    EventStatus = "ESCALATED"
	EventStatusDeactivating EventStatus = "DEACTIVATING"
	EventStatusClosed       EventStatus = "CLOSED"
)

// AllEventStatuses returns all valid event statuses
func AllEventStatuses() []EventStatus {
	return []EventStatus{
		EventStatusInactive,
		EventStatusActive,
		EventStatusEscalated,
		EventStatusDeactivating,
		EventStatusClosed,
	}
}

// IsValid checks if the event status is valid
func (s EventStatus) IsValid() bool {
	switch s {
	case EventStatusInactive,
		EventStatusActive,
		EventStatusEscalated,
		EventStatusDeactivating,
		EventStatusClosed:
		return true
	default:
		return false
	}
}

// IsLive reports whether the event counts against the single-active-event rule.
// A deactivating event still holds the slot until it is closed.
func (s EventStatus) IsLive() bool {
	return s == EventStatusActive || s == EventStatusEscalated || s == EventStatusDeactivating
}

// AcceptsVictims reports whether new victims may be registered
func (s EventStatus) AcceptsVictims() bool {
	return s == EventStatusActive || s == EventStatusEscalated
}

// CanTransitionTo reports whether the lifecycle allows moving from s to next.
//
//	INACTIVE -> ACTIVE -> ESCALATED <-> ACTIVE -> DEACTIVATING -> CLOSED
//
// ACTIVE and ESCALATED may also close directly. ESCALATED -> ESCALATED is a
// further raise of the alert level.
func (s EventStatus) CanTransitionTo(next EventStatus) bool {
	switch s {
	case EventStatusInactive:
		return next == EventStatusActive
	case EventStatusActive:
		return next == EventStatusEscalated || next == EventStatusDeactivating || next == EventStatusClosed
	case EventStatusEscalated:
		return next == EventStatusEscalated || next == EventStatusActive || next == EventStatusDeactivating || next == EventStatusClosed
	case EventStatusDeactivating:
		return next == EventStatusClosed
	default:
		return false
	}
}

// String returns the string representation of the event status
func (s EventStatus) String() string {
	return string(s)
}

// ParseEventStatus parses a string into an EventStatus
func ParseEventStatus(s string) (EventStatus, error) {
	status := EventStatus(s)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid event status: %s", s)
	}
	return status, nil
}
