package types

import "fmt"

// AlertLevel is the ordered alert level of an MCI event
type AlertLevel string

const (
	AlertLevelGreen  AlertLevel = "GREEN"
	AlertLevelYellow AlertLevel = "YELLOW"
	AlertLevelOrange AlertLevel = "ORANGE"
	AlertLevelRed    AlertLevel = "RED"
)

// AllAlertLevels returns all alert levels from lowest to highest
func AllAlertLevels() []AlertLevel {
	return []AlertLevel{
		AlertLevelGreen,
		AlertLevelYellow,
		AlertLevelOrange,
		AlertLevelRed,
	}
}

// Rank returns 1 (Green) to 4 (Red), or 0 for an invalid level
func (l AlertLevel) Rank() int {
	switch l {
	case AlertLevelGreen:
		return 1
	case AlertLevelYellow:
		return 2
	case AlertLevelOrange:
		return 3
	case AlertLevelRed:
		return 4
	default:
		return 0
	}
}

// IsValid checks if the alert level is valid
func (l AlertLevel) IsValid() bool {
	return l.Rank() > 0
}

// Exceeds reports whether l is strictly higher than other
func (l AlertLevel) Exceeds(other AlertLevel) bool {
	return l.Rank() > other.Rank()
}

// String returns the string representation of the alert level
func (l AlertLevel) String() string {
	return string(l)
}

// ParseAlertLevel parses a string into an AlertLevel
func ParseAlertLevel(s string) (AlertLevel, error) {
	level := AlertLevel(s)
	if !level.IsValid() {
		return "", fmt.Errorf("invalid alert level: %s", s)
	}
	return level, nil
}
