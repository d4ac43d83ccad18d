package account

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type DoctorRepository interface {
	Create(ctx context.Context, d *Doctor) error
	GetByID(ctx context.Context, id uuid.UUID) (*Doctor, error)
	GetByEmail(ctx context.Context, email string) (*Doctor, error)
	Update(ctx context.Context, d *Doctor) error
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
}

type AvailabilityRepository interface {
	Upsert(ctx context.Context, a *Availability) error
	ListByRange(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]*Availability, error)
	DeleteByDate(ctx context.Context, doctorID uuid.UUID, date time.Time) error
}
