// Package prescription implements the medication catalog, reusable
// prescription templates and the prescriptions themselves, including
// the signed-PDF locking rules.
package prescription

import (
	"time"

	"github.com/google/uuid"
)

// Medication is a catalog entry the doctor prescribes from.
type Medication struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Form      string    `json:"form"`
	Strength  string    `json:"strength"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TemplateItem is one ordered medication line on a template.
// MedicationName is resolved from the catalog on load.
type TemplateItem struct {
	ID             uuid.UUID `json:"id"`
	TemplateID     uuid.UUID `json:"-"`
	MedicationID   uuid.UUID `json:"medication_id"`
	MedicationName string    `json:"medication_name"`
	Position       int       `json:"position"`
	Dosage         string    `json:"dosage"`
	Route          string    `json:"route"`
	Frequency      string    `json:"frequency"`
	Duration       string    `json:"duration"`
	Instructions   string    `json:"instructions"`
}

// Template is a reusable prescription blueprint with bilingual naming.
type Template struct {
	ID            uuid.UUID      `json:"id"`
	Name          string         `json:"name"`
	NameFR        string         `json:"name_fr"`
	Description   string         `json:"description"`
	DescriptionFR string         `json:"description_fr"`
	IsActive      bool           `json:"is_active"`
	Items         []TemplateItem `json:"items"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// Item is one ordered medication line on a prescription.
type Item struct {
	ID                   uuid.UUID `json:"id"`
	PrescriptionID       uuid.UUID `json:"-"`
	MedicationID         uuid.UUID `json:"medication_id"`
	MedicationName       string    `json:"medication_name"`
	Position             int       `json:"position"`
	Dosage               string    `json:"dosage"`
	Route                string    `json:"route"`
	Frequency            string    `json:"frequency"`
	Duration             string    `json:"duration"`
	Instructions         string    `json:"instructions"`
	AllowOutsidePurchase bool      `json:"allow_outside_purchase"`
}

// Prescription belongs to a visit. Once GeneratedAt is set the record
// is signed and can no longer be changed; corrections go through a new
// version that records its predecessor.
type Prescription struct {
	ID                uuid.UUID  `json:"id"`
	VisitID           uuid.UUID  `json:"visit_id"`
	TemplateID        *uuid.UUID `json:"template_id"`
	Number            string     `json:"number"`
	Notes             string     `json:"notes"`
	GeneratedAt       *time.Time `json:"generated_at"`
	PreviousVersionID *uuid.UUID `json:"previous_version_id"`
	Items             []Item     `json:"items"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// Locked reports whether the prescription has been signed.
func (p *Prescription) Locked() bool { return p.GeneratedAt != nil }
