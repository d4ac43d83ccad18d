package appointment

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/clinicflow/clinicflow/internal/platform/reminder"
)

// ListFilter narrows appointment listings.
type ListFilter struct {
	PatientID *uuid.UUID
	Status    string
	// Upcoming keeps appointments starting now or later whose status
	// still blocks the slot and is not COMPLETED.
	Upcoming bool
	// Date keeps appointments on one calendar day.
	Date *time.Time
}

// Repository persists appointments, scoped through the patient to the
// owning doctor. Create and Update run the overlap check and the write
// in a single transaction; both return ErrConflict when the slot is
// taken.
type Repository interface {
	Create(ctx context.Context, doctorID uuid.UUID, a *Appointment) error
	GetByID(ctx context.Context, doctorID, id uuid.UUID) (*Appointment, error)
	Update(ctx context.Context, doctorID uuid.UUID, a *Appointment) error
	Delete(ctx context.Context, doctorID, id uuid.UUID) error
	List(ctx context.Context, doctorID uuid.UUID, filter ListFilter, limit, offset int) ([]*Appointment, int, error)

	// ListUnsent and MarkSent feed the reminder sweeper.
	ListUnsent(ctx context.Context, from, to time.Time) ([]*reminder.Upcoming, error)
	MarkSent(ctx context.Context, appointmentID uuid.UUID) error
}
