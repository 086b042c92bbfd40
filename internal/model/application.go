package model

import "time"

// Address is a practitioner mailing address.
type Address struct {
	Line1 string `json:"line1,omitempty"`
	Line2 string `json:"line2,omitempty"`
	City  string `json:"city,omitempty"`
	State string `json:"state,omitempty"`
	Zip   string `json:"zip,omitempty"`
}

// String renders the address as a single comma-joined line.
func (a Address) String() string {
	out := a.Line1
	if a.Line2 != "" {
		out += ", " + a.Line2
	}
	if a.City != "" {
		out += ", " + a.City
	}
	if a.State != "" {
		out += ", " + a.State
	}
	if a.Zip != "" {
		out += " " + a.Zip
	}
	return out
}

// Application is a read-only snapshot of a credentialing application.
// It is loaded once per job and never mutated while steps run.
type Application struct {
	ID        int64     `json:"id"`
	CreatedAt time.Time `json:"created_at"`

	FirstName   string  `json:"first_name"`
	MiddleName  string  `json:"middle_name,omitempty"`
	LastName    string  `json:"last_name"`
	SSN         string  `json:"ssn,omitempty"`
	DateOfBirth string  `json:"date_of_birth,omitempty"`
	Email       string  `json:"email,omitempty"`
	Phone       string  `json:"phone,omitempty"`
	Address     Address `json:"address,omitempty"`

	NPINumber     string `json:"npi_number,omitempty"`
	DEANumber     string `json:"dea_number,omitempty"`
	LicenseNumber string `json:"license_number,omitempty"`

	// CredentialType classifies the practitioner (e.g. "MD", "DO", "NP").
	CredentialType string `json:"credential_type,omitempty"`
}

// FullName joins first, middle and last name.
func (a Application) FullName() string {
	name := a.FirstName
	if a.MiddleName != "" {
		name += " " + a.MiddleName
	}
	if a.LastName != "" {
		name += " " + a.LastName
	}
	return name
}

// ApplicationStatus tracks where an application sits in the credentialing flow.
type ApplicationStatus string

const (
	ApplicationStatusNew            ApplicationStatus = "new"
	ApplicationStatusInProgress     ApplicationStatus = "in_progress"
	ApplicationStatusReadyForReview ApplicationStatus = "ready_for_review"
	ApplicationStatusApproved       ApplicationStatus = "approved"
	ApplicationStatusDenied         ApplicationStatus = "denied"
)
