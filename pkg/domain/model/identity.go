package model

// Identity is a confirmed patient identity returned by the hospital
// identity service for a scanned identifier.
type Identity struct {
	PatientRef string `json:"patient_ref"`
	FullName   string `json:"full_name" masq:"secret"`
	Gender     string `json:"gender"`
	BirthYear  int    `json:"birth_year"`
}
