package types

import "fmt"

// WorkflowStatus is the ordered processing state of a victim
type WorkflowStatus string

const (
	WorkflowRegistered  WorkflowStatus = "REGISTERED"
	WorkflowTriaged     WorkflowStatus = "TRIAGED"
	WorkflowInTreatment WorkflowStatus = "IN_TREATMENT"
	WorkflowResolved    WorkflowStatus = "RESOLVED"
)

// Rank returns the position of the status in the workflow, starting at 1
func (s WorkflowStatus) Rank() int {
	switch s {
	case WorkflowRegistered:
		return 1
	case WorkflowTriaged:
		return 2
	case WorkflowInTreatment:
		return 3
	case WorkflowResolved:
		return 4
	default:
		return 0
	}
}

// IsValid checks if the workflow status is valid
func (s WorkflowStatus) IsValid() bool {
	return s.Rank() > 0
}

// AtLeast reports whether s is at or beyond other in the workflow
func (s WorkflowStatus) AtLeast(other WorkflowStatus) bool {
	return s.Rank() >= other.Rank()
}

// String returns the string representation of the workflow status
func (s WorkflowStatus) String() string {
	return string(s)
}

// ParseWorkflowStatus parses a string into a WorkflowStatus
func ParseWorkflowStatus(s string) (WorkflowStatus, error) {
	status := WorkflowStatus(s)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid workflow status: %s", s)
	}
	return status, nil
}

// Disposition is the outcome or destination of a victim
type Disposition string

const (
	DispositionAdmitted    Disposition = "ADMITTED"
	DispositionOR          Disposition = "OR"
	DispositionICU         Disposition = "ICU"
	DispositionDischarged  Disposition = "DISCHARGED"
	DispositionTransferred Disposition = "TRANSFERRED"
	DispositionDeceased    Disposition = "DECEASED"
)

// AllDispositions returns all valid dispositions
func AllDispositions() []Disposition {
	return []Disposition{
		DispositionAdmitted,
		DispositionOR,
		DispositionICU,
		DispositionDischarged,
		DispositionTransferred,
		DispositionDeceased,
	}
}

// IsValid checks if the disposition is valid
func (d Disposition) IsValid() bool {
	switch d {
	case DispositionAdmitted,
		DispositionOR,
		DispositionICU,
		DispositionDischarged,
		DispositionTransferred,
		DispositionDeceased:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether the victim leaves the event with this disposition
func (d Disposition) IsTerminal() bool {
	return d == DispositionDischarged || d == DispositionTransferred || d == DispositionDeceased
}

// ResourceCategory returns the pool a disposition consumes, if any
func (d Disposition) ResourceCategory() (ResourceCategory, bool) {
	switch d {
	case DispositionAdmitted:
		return ResourceBed, true
	case DispositionOR:
		return ResourceOperatingRoom, true
	case DispositionICU:
		return ResourceICUBed, true
	default:
		return "", false
	}
}

// String returns the string representation of the disposition
func (d Disposition) String() string {
	return string(d)
}

// ParseDisposition parses a string into a Disposition
func ParseDisposition(s string) (Disposition, error) {
	d := Disposition(s)
	if !d.IsValid() {
		return "", fmt.Errorf("invalid disposition: %s", s)
	}
	return d, nil
}
