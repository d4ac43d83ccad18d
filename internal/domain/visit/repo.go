package visit

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists visits. Every query is scoped to the doctor who
// owns the patient; rows belonging to another doctor read as absent.
type Repository interface {
	Create(ctx context.Context, v *Visit) error
	GetByID(ctx context.Context, doctorID, id uuid.UUID) (*Visit, error)
	Update(ctx context.Context, doctorID uuid.UUID, v *Visit) error
	Delete(ctx context.Context, doctorID, id uuid.UUID) error
	List(ctx context.Context, doctorID uuid.UUID, patientID *uuid.UUID, limit, offset int) ([]*Visit, int, error)
}

// VitalRepository persists vital-sign measurement sets, scoped through
// the visit's patient to the owning doctor.
type VitalRepository interface {
	Create(ctx context.Context, vs *VitalSign) error
	GetByID(ctx context.Context, doctorID, id uuid.UUID) (*VitalSign, error)
	Update(ctx context.Context, doctorID uuid.UUID, vs *VitalSign) error
	Delete(ctx context.Context, doctorID, id uuid.UUID) error
	ListByVisit(ctx context.Context, doctorID, visitID uuid.UUID) ([]*VitalSign, error)
}
