package types

import "fmt"

// TriageCategory is the START severity class of a victim
type TriageCategory string

const (
	TriageImmediate TriageCategory = "IMMEDIATE"
	TriageDelayed   TriageCategory = "DELAYED"
	TriageMinor     TriageCategory = "MINOR"
	TriageExpectant TriageCategory = "EXPECTANT"
)

// AllTriageCategories returns all categories from most to least urgent
func AllTriageCategories() []TriageCategory {
	return []TriageCategory{
		TriageImmediate,
		TriageDelayed,
		TriageMinor,
		TriageExpectant,
	}
}

// Severity orders categories: Immediate (4) > Delayed (3) > Minor (2) > Expectant (1).
// Invalid categories return 0.
func (c TriageCategory) Severity() int {
	switch c {
	case TriageImmediate:
		return 4
	case TriageDelayed:
		return 3
	case TriageMinor:
		return 2
	case TriageExpectant:
		return 1
	default:
		return 0
	}
}

// IsValid checks if the triage category is valid
func (c TriageCategory) IsValid() bool {
	return c.Severity() > 0
}

// Color returns the tag color of the category
func (c TriageCategory) Color() TriageColor {
	switch c {
	case TriageImmediate:
		return TriageColorRed
	case TriageDelayed:
		return TriageColorYellow
	case TriageMinor:
		return TriageColorGreen
	case TriageExpectant:
		return TriageColorBlack
	default:
		return ""
	}
}

// Code returns the short tag code (T1..T4)
func (c TriageCategory) Code() string {
	switch c {
	case TriageImmediate:
		return "T1"
	case TriageDelayed:
		return "T2"
	case TriageMinor:
		return "T3"
	case TriageExpectant:
		return "T4"
	default:
		return ""
	}
}

// Label returns the human-readable label shown on tags
func (c TriageCategory) Label() string {
	switch c {
	case TriageImmediate:
		return "Immediate"
	case TriageDelayed:
		return "Delayed"
	case TriageMinor:
		return "Minor"
	case TriageExpectant:
		return "Expectant/Deceased"
	default:
		return ""
	}
}

// DefaultArea returns the treatment area a newly triaged victim is sent to
func (c TriageCategory) DefaultArea() string {
	switch c {
	case TriageImmediate:
		return "IMMEDIATE_TREATMENT"
	case TriageDelayed:
		return "DELAYED_TREATMENT"
	case TriageMinor:
		return "MINOR_TREATMENT"
	case TriageExpectant:
		return "EXPECTANT"
	default:
		return ""
	}
}

// String returns the string representation of the triage category
func (c TriageCategory) String() string {
	return string(c)
}

// ParseTriageCategory parses a string into a TriageCategory
func ParseTriageCategory(s string) (TriageCategory, error) {
	c := TriageCategory(s)
	if !c.IsValid() {
		return "", fmt.Errorf("invalid triage category: %s", s)
	}
	return c, nil
}

// TriageColor is the tag color attached to a triage category
type TriageColor string

const (
	TriageColorRed    TriageColor = "RED"
	TriageColorYellow TriageColor = "YELLOW"
	TriageColorGreen  TriageColor = "GREEN"
	TriageColorBlack  TriageColor = "BLACK"
)

// IsValid checks if the triage color is valid
func (c TriageColor) IsValid() bool {
	switch c {
	case TriageColorRed,
		TriageColorYellow,
		TriageColorGreen,
		TriageColorBlack:
		return true
	default:
		return false
	}
}

// String returns the string representation of the triage color
func (c TriageColor) String() string {
	return string(c)
}
