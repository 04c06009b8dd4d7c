package types

import "fmt"

// CommandRole is a position in the incident command structure
type CommandRole string

const (
	RoleIncidentCommander     CommandRole = "INCIDENT_COMMANDER"
	RoleMedicalDirector       CommandRole = "MEDICAL_DIRECTOR"
	RoleTriageOfficer         CommandRole = "TRIAGE_OFFICER"
	RoleOperationsChief       CommandRole = "OPERATIONS_CHIEF"
	RolePlanningChief         CommandRole = "PLANNING_CHIEF"
	RoleLogisticsChief        CommandRole = "LOGISTICS_CHIEF"
	RoleFinanceChief          CommandRole = "FINANCE_CHIEF"
	RoleCommunicationsOfficer CommandRole = "COMMUNICATIONS_OFFICER"
)

// AllCommandRoles returns all valid command roles
func AllCommandRoles() []CommandRole {
	return []CommandRole{
		RoleIncidentCommander,
		RoleMedicalDirector,
		RoleTriageOfficer,
		RoleOperationsChief,
		RolePlanningChief,
		RoleLogisticsChief,
		RoleFinanceChief,
		RoleCommunicationsOfficer,
	}
}

// IsValid checks if the command role is valid
func (r CommandRole) IsValid() bool {
	for _, v := range AllCommandRoles() {
		if v == r {
			return true
		}
	}
	return false
}

// String returns the string representation of the command role
func (r CommandRole) String() string {
	return string(r)
}

// ParseCommandRole parses a string into a CommandRole
func ParseCommandRole(s string) (CommandRole, error) {
	r := CommandRole(s)
	if !r.IsValid() {
		return "", fmt.Errorf("invalid command role: %s", s)
	}
	return r, nil
}

// InquiryStatus is the state of a family inquiry
type InquiryStatus string

const (
	InquiryPending  InquiryStatus = "PENDING"
	InquiryMatched  InquiryStatus = "MATCHED"
	InquiryNotFound InquiryStatus = "NOT_FOUND"
)

// IsValid checks if the inquiry status is valid
func (s InquiryStatus) IsValid() bool {
	switch s {
	case InquiryPending,
		InquiryMatched,
		InquiryNotFound:
		return true
	default:
		return false
	}
}

// String returns the string representation of the inquiry status
func (s InquiryStatus) String() string {
	return string(s)
}
