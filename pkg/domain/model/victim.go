package model

import (
	"fmt"
	"time"

	"github.com/secmon-lab/asclepius/pkg/domain/types"
)

// FamilyContact is the person to notify about a victim
type FamilyContact struct {
	Name         string `json:"name"`
	Relationship string `json:"relationship"`
	Phone        string `json:"phone" masq:"secret"`
}

// Demographics is whatever is known about a victim at registration.
// Every field may be empty; unknown victims are normal.
type Demographics struct {
	FullName       string         `json:"full_name,omitempty" masq:"secret"`
	EstimatedAge   *int           `json:"estimated_age,omitempty"`
	Gender         string         `json:"gender,omitempty"`
	ChiefComplaint string         `json:"chief_complaint,omitempty"`
	Injuries       []string       `json:"injuries,omitempty"`
	ScanID         string         `json:"scan_id,omitempty"`
	FamilyContact  *FamilyContact `json:"family_contact,omitempty"`
}

// VitalSigns is the latest observed vitals of a victim
type VitalSigns struct {
	RespiratoryRate int       `json:"respiratory_rate,omitempty"`
	PulseRate       int       `json:"pulse_rate,omitempty"`
	SystolicBP      int       `json:"systolic_bp,omitempty"`
	SpO2            int       `json:"spo2,omitempty"`
	GCS             int       `json:"gcs,omitempty"`
	RecordedAt      time.Time `json:"recorded_at"`
	RecordedBy      string    `json:"recorded_by"`
}

// Note is a free-text annotation. Notes are allowed on any victim of an open event.
type Note struct {
	Text      string    `json:"text"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"created_at"`
}

// Victim is one casualty tracked within an event.
// Version is bumped on every committed change and drives optimistic concurrency.
type Victim struct {
	ID             VictimID             `json:"id"`
	EventID        EventID              `json:"event_id"`
	Seq            int64                `json:"seq"`
	TempID         string               `json:"temp_id"`
	TagCode        string               `json:"tag_code,omitempty"`
	Triage         *TriageResult        `json:"triage,omitempty"`
	Status         types.WorkflowStatus `json:"status"`
	FullName       string               `json:"full_name,omitempty"`
	EstimatedAge   *int                 `json:"estimated_age,omitempty"`
	Gender         string               `json:"gender,omitempty"`
	ChiefComplaint string               `json:"chief_complaint,omitempty"`
	Injuries       []string             `json:"injuries,omitempty"`
	PatientRef     string               `json:"patient_ref,omitempty"`
	AreaID         string               `json:"area_id,omitempty"`
	StaffID        string               `json:"staff_id,omitempty"`
	Disposition    types.Disposition    `json:"disposition,omitempty"`
	ReservationID  ReservationID        `json:"reservation_id,omitempty"`
	FamilyContact  *FamilyContact       `json:"family_contact,omitempty"`
	FamilyNotified bool                 `json:"family_notified"`
	Vitals         *VitalSigns          `json:"vitals,omitempty"`
	Notes          []Note               `json:"notes,omitempty"`
	ArrivedAt      time.Time            `json:"arrived_at"`
	UpdatedAt      time.Time            `json:"updated_at"`
	Version        int64                `json:"version"`
}

// Category returns the current triage category, or empty before triage
func (v *Victim) Category() types.TriageCategory {
	if v.Triage == nil {
		return ""
	}
	return v.Triage.Category
}

// IsResolved reports whether the victim has a disposition
func (v *Victim) IsResolved() bool {
	return v.Status == types.WorkflowResolved
}

// IsTerminal reports whether only notes may still change
func (v *Victim) IsTerminal() bool {
	return v.Disposition.IsTerminal()
}

// FormatTempID renders the per-event sequence as a temporary identifier
func FormatTempID(eventCode string, seq int64) string {
	return fmt.Sprintf("%s-%04d", eventCode, seq)
}

// FormatTagCode renders the physical tag code: color initial plus sequence
func FormatTagCode(color types.TriageColor, seq int64) string {
	initial := "X"
	if color != "" {
		initial = string(color)[:1]
	}
	return fmt.Sprintf("%s%04d", initial, seq)
}

// CopyVictim returns a deep copy of v
func CopyVictim(v *Victim) *Victim {
	if v == nil {
		return nil
	}
	c := *v
	if v.Triage != nil {
		t := *v.Triage
		c.Triage = &t
	}
	if v.EstimatedAge != nil {
		age := *v.EstimatedAge
		c.EstimatedAge = &age
	}
	if v.Injuries != nil {
		c.Injuries = append([]string(nil), v.Injuries...)
	}
	if v.FamilyContact != nil {
		fc := *v.FamilyContact
		c.FamilyContact = &fc
	}
	if v.Vitals != nil {
		vs := *v.Vitals
		c.Vitals = &vs
	}
	if v.Notes != nil {
		c.Notes = append([]Note(nil), v.Notes...)
	}
	return &c
}

// VictimFilter narrows victim listings. Empty fields match everything.
type VictimFilter struct {
	Category types.TriageCategory
	Status   types.WorkflowStatus
}

// Match reports whether v passes the filter
func (f VictimFilter) Match(v *Victim) bool {
	if f.Category != "" && v.Category() != f.Category {
		return false
	}
	if f.Status != "" && v.Status != f.Status {
		return false
	}
	return true
}
