package prescription

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// MedicationRepository persists the medication catalog. The catalog is
// shared practice data, not scoped per doctor.
type MedicationRepository interface {
	Create(ctx context.Context, m *Medication) error
	GetByID(ctx context.Context, id uuid.UUID) (*Medication, error)
	Update(ctx context.Context, m *Medication) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	List(ctx context.Context, query string, includeInactive bool, limit, offset int) ([]*Medication, int, error)
}

// TemplateRepository persists prescription templates with their items.
type TemplateRepository interface {
	Create(ctx context.Context, t *Template) error
	GetByID(ctx context.Context, id uuid.UUID) (*Template, error)
	// Update replaces the template's fields and its full item list.
	Update(ctx context.Context, t *Template) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, includeInactive bool, limit, offset int) ([]*Template, int, error)
}

// ListFilter narrows prescription listings.
type ListFilter struct {
	VisitID   *uuid.UUID
	PatientID *uuid.UUID
}

// Repository persists prescriptions, scoped through the visit's
// patient to the owning doctor.
type Repository interface {
	Create(ctx context.Context, p *Prescription) error
	GetByID(ctx context.Context, doctorID, id uuid.UUID) (*Prescription, error)
	// Update replaces notes and the full item list. The repo does not
	// enforce the lock; the service checks it first.
	Update(ctx context.Context, doctorID uuid.UUID, p *Prescription) error
	Delete(ctx context.Context, doctorID, id uuid.UUID) error
	List(ctx context.Context, doctorID uuid.UUID, filter ListFilter, limit, offset int) ([]*Prescription, int, error)
	// SetGenerated marks the prescription signed. It only fires on
	// unsigned rows so a concurrent render cannot move the timestamp.
	SetGenerated(ctx context.Context, doctorID, id uuid.UUID, at time.Time) error
	// Versions returns the full version chain the prescription belongs
	// to, oldest first.
	Versions(ctx context.Context, doctorID, id uuid.UUID) ([]*Prescription, error)
}
