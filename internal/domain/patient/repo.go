package patient

import (
	"context"

	"github.com/google/uuid"
)

// SearchParams filters the patient list. Query matches code, name,
// phone, and address.
type SearchParams struct {
	Query           string
	IncludeArchived bool
	OrderBy         string // name, code, created_at (default)
}

type Repository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, doctorID, id uuid.UUID) (*Patient, error)
	Update(ctx context.Context, p *Patient) error
	SetActive(ctx context.Context, doctorID, id uuid.UUID, active bool) error
	List(ctx context.Context, doctorID uuid.UUID, params SearchParams, limit, offset int) ([]*Patient, int, error)
}
