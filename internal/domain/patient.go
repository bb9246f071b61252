package domain

import (
	"strings"
	"time"
)

// PatientStatus 病人转运状态
type PatientStatus string

const (
	PatientPending        PatientStatus = "pending"
	PatientSentToHospital PatientStatus = "sent_to_hospital"
	PatientAdmitted       PatientStatus = "admitted"
	PatientDeclined       PatientStatus = "declined"
)

// AwaitingStatuses are the states a hospital can still act on.
var AwaitingStatuses = []PatientStatus{PatientPending, PatientSentToHospital}

// Valid reports whether s is one of the four lifecycle states.
func (s PatientStatus) Valid() bool {
	switch s {
	case PatientPending, PatientSentToHospital, PatientAdmitted, PatientDeclined:
		return true
	}
	return false
}

// Terminal reports whether no further transition is allowed from s.
func (s PatientStatus) Terminal() bool {
	return s == PatientAdmitted || s == PatientDeclined
}

// TransitionSources returns the states from which to may be entered.
// pending is the initial state and has no sources.
func TransitionSources(to PatientStatus) []PatientStatus {
	switch to {
	case PatientSentToHospital:
		return []PatientStatus{PatientPending}
	case PatientAdmitted, PatientDeclined:
		return []PatientStatus{PatientPending, PatientSentToHospital}
	}
	return nil
}

// CanTransition reports whether from -> to is an edge of the lifecycle.
func CanTransition(from, to PatientStatus) bool {
	for _, s := range TransitionSources(to) {
		if s == from {
			return true
		}
	}
	return false
}

// Location 地理位置
type Location struct {
	Latitude  float64 `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64 `json:"longitude" validate:"gte=-180,lte=180"`
}

// DriverSnapshot driver display fields captured when the patient was submitted.
type DriverSnapshot struct {
	DriverName    string `json:"driverName"`
	Email         string `json:"email"`
	Phone         string `json:"phone"`
	LicenceNumber string `json:"licenceNumber"`
}

// Patient 病人转运记录（对应 patients 表）
type Patient struct {
	ID               string          `json:"id"`
	PatientName      string          `json:"patientName"`
	Age              *int            `json:"age,omitempty"`
	Gender           string          `json:"gender"`
	MedicalCondition string          `json:"medicalCondition"`
	BloodPressure    string          `json:"bloodPressure"`
	HeartRate        *int            `json:"heartRate,omitempty"`
	OxygenSaturation *int            `json:"oxygenSaturation,omitempty"`
	Allergies        string          `json:"allergies"`
	MedicalNeeds     []string        `json:"medicalNeeds"`
	AdditionalNotes  string          `json:"additionalNotes"`
	SelectedHospital string          `json:"selectedHospital"`
	DriverEmail      string          `json:"driverEmail"`
	Location         *Location       `json:"location,omitempty"`
	Status           PatientStatus   `json:"status"`
	DeclineReason    *string         `json:"declineReason,omitempty"`
	SubmittedBy      *DriverSnapshot `json:"submittedBy,omitempty"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        *time.Time      `json:"updatedAt,omitempty"`
}

// HasDriver reports whether the patient references a driver to notify.
func (p *Patient) HasDriver() bool {
	return strings.TrimSpace(p.DriverEmail) != ""
}

// PatientFilter 病人查询过滤器
type PatientFilter struct {
	Statuses []PatientStatus
}
