// Package visit implements consultations and their vital-sign
// measurements.
package visit

import (
	"time"

	"github.com/google/uuid"
)

const (
	TypeConsultation = "CONSULTATION"
	TypeFollowUp     = "FOLLOW_UP"
)

var validVisitTypes = map[string]bool{
	TypeConsultation: true,
	TypeFollowUp:     true,
}

// Visit is a single consultation. The clinical narrative follows the
// classic SOAP-style sections; empty sections are simply left blank.
type Visit struct {
	ID                uuid.UUID `json:"id"`
	PatientID         uuid.UUID `json:"patient_id"`
	VisitDate         time.Time `json:"visit_date"`
	VisitType         string    `json:"visit_type"`
	ChiefComplaint    string    `json:"chief_complaint"`
	MedicalHistory    string    `json:"medical_history"`
	PresentIllness    string    `json:"present_illness"`
	PhysicalExam      string    `json:"physical_exam"`
	ComplementaryExam string    `json:"complementary_exam"`
	Assessment        string    `json:"assessment"`
	Plan              string    `json:"plan"`
	Treatment         string    `json:"treatment"`
	Notes             string    `json:"notes"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// VitalSign is one measurement set taken during a visit. All
// measurements are optional; only what was actually measured is
// recorded. Head circumference is routinely measured for infants but
// accepted for any patient.
type VitalSign struct {
	ID                  uuid.UUID `json:"id"`
	VisitID             uuid.UUID `json:"visit_id"`
	MeasuredAt          time.Time `json:"measured_at"`
	WeightKG            *float64  `json:"weight_kg"`
	HeightCM            *float64  `json:"height_cm"`
	TemperatureC        *float64  `json:"temperature_c"`
	SystolicBP          *int      `json:"systolic_bp"`
	DiastolicBP         *int      `json:"diastolic_bp"`
	HeartRateBPM        *int      `json:"heart_rate_bpm"`
	RespiratoryRate     *int      `json:"respiratory_rate"`
	OxygenSaturation    *int      `json:"oxygen_saturation"`
	HeadCircumferenceCM *float64  `json:"head_circumference_cm"`
	Notes               string    `json:"notes"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}
