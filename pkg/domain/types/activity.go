package types

import "fmt"

// ActivityType classifies an activity log entry
type ActivityType string

const (
	ActivityAlert        ActivityType = "ALERT"
	ActivityResource     ActivityType = "RESOURCE"
	ActivityTriage       ActivityType = "TRIAGE"
	ActivityVictim       ActivityType = "VICTIM"
	ActivityNotification ActivityType = "NOTIFICATION"
	ActivityCommand      ActivityType = "COMMAND"
	ActivityInquiry      ActivityType = "INQUIRY"
	ActivityClosure      ActivityType = "CLOSURE"
)

// AllActivityTypes returns all valid activity types
func AllActivityTypes() []ActivityType {
	return []ActivityType{
		ActivityAlert,
		ActivityResource,
		ActivityTriage,
		ActivityVictim,
		ActivityNotification,
		ActivityCommand,
		ActivityInquiry,
		ActivityClosure,
	}
}

// IsValid checks if the activity type is valid
func (t ActivityType) IsValid() bool {
	switch t {
	case ActivityAlert,
		ActivityResource,
		ActivityTriage,
		ActivityVictim,
		ActivityNotification,
		ActivityCommand,
		ActivityInquiry,
		ActivityClosure:
		return true
	default:
		return false
	}
}

// String returns the string representation of the activity type
func (t ActivityType) String() string {
	return string(t)
}

// ParseActivityType parses a string into an ActivityType
func ParseActivityType(s string) (ActivityType, error) {
	t := ActivityType(s)
	if !t.IsValid() {
		return "", fmt.Errorf("invalid activity type: %s", s)
	}
	return t, nil
}
