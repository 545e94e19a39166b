package models

import "time"

// Gender of a resident as recorded at admission.
type Gender string

const (
	GenderMale   Gender = "MALE"
	GenderFemale Gender = "FEMALE"
	GenderOther  Gender = "OTHER"
)

// Valid reports whether g is one of the known genders.
func (g Gender) Valid() bool {
	switch g {
	case GenderMale, GenderFemale, GenderOther:
		return true
	}
	return false
}

// Resident is a monitored individual in care.
type Resident struct {
	ID                int64     `json:"id" example:"7"`
	FirstName         string    `json:"first_name" example:"Margaret"`
	LastName          string    `json:"last_name" example:"Hale"`
	DateOfBirth       time.Time `json:"date_of_birth"`
	Gender            Gender    `json:"gender" example:"FEMALE"`
	Address           string    `json:"address,omitempty"`
	EmergencyContact  string    `json:"emergency_contact,omitempty"`
	EmergencyPhone    string    `json:"emergency_phone,omitempty"`
	MedicalConditions string    `json:"medical_conditions,omitempty"`
	Medications       string    `json:"medications,omitempty"`
	Allergies         string    `json:"allergies,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// FullName returns the display name used in alert messages.
func (r Resident) FullName() string {
	return r.FirstName + " " + r.LastName
}

// Validate checks the fields required to store a resident.
func (r Resident) Validate() error {
	if r.FirstName == "" || r.LastName == "" {
		return Invalid("first and last name are required")
	}
	if r.DateOfBirth.IsZero() {
		return Invalid("date of birth is required")
	}
	if r.DateOfBirth.After(time.Now()) {
		return Invalid("date of birth is in the future")
	}
	if !r.Gender.Valid() {
		return Invalid("unknown gender %q", r.Gender)
	}
	return nil
}
