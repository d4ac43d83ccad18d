package patient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var ErrNotFound = errors.New("patient not found")

type Service struct {
	patients Repository
}

func NewService(patients Repository) *Service {
	return &Service{patients: patients}
}

func (s *Service) validate(p *Patient) error {
	if p.FirstName == "" || p.LastName == "" {
		return fmt.Errorf("first_name and last_name are required")
	}
	if !validSexes[p.Sex] {
		return fmt.Errorf("sex must be M or F")
	}
	if p.DateOfBirth.IsZero() {
		return fmt.Errorf("date_of_birth is required")
	}
	if p.DateOfBirth.After(time.Now()) {
		return fmt.Errorf("date_of_birth cannot be in the future")
	}
	if p.Address == "" {
		return fmt.Errorf("address is required")
	}
	return nil
}

func (s *Service) Create(ctx context.Context, p *Patient) error {
	if err := s.validate(p); err != nil {
		return err
	}
	p.IsActive = true
	return s.patients.Create(ctx, p)
}

func (s *Service) Get(ctx context.Context, doctorID, id uuid.UUID) (*Patient, error) {
	p, err := s.patients.GetByID(ctx, doctorID, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

func (s *Service) Update(ctx context.Context, doctorID uuid.UUID, p *Patient) error {
	if err := s.validate(p); err != nil {
		return err
	}
	p.DoctorID = doctorID
	if err := s.patients.Update(ctx, p); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// Archive soft-deletes a patient. The record and its history stay in
// place but drop out of default lists.
func (s *Service) Archive(ctx context.Context, doctorID, id uuid.UUID) error {
	return s.setActive(ctx, doctorID, id, false)
}

// Restore reverses an archive.
func (s *Service) Restore(ctx context.Context, doctorID, id uuid.UUID) error {
	return s.setActive(ctx, doctorID, id, true)
}

func (s *Service) setActive(ctx context.Context, doctorID, id uuid.UUID, active bool) error {
	if err := s.patients.SetActive(ctx, doctorID, id, active); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

func (s *Service) List(ctx context.Context, doctorID uuid.UUID, params SearchParams, limit, offset int) ([]*Patient, int, error) {
	return s.patients.List(ctx, doctorID, params, limit, offset)
}
