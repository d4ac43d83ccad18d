package appointment

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/clinicflow/clinicflow/internal/domain/patient"
)

var (
	ErrNotFound        = errors.New("appointment not found")
	ErrPatientNotFound = errors.New("patient not found")
	// ErrConflict is returned when the requested slot overlaps another
	// blocking appointment of the same doctor.
	ErrConflict = errors.New("appointment slot is already taken")
)

type PatientDirectory interface {
	Get(ctx context.Context, doctorID, id uuid.UUID) (*patient.Patient, error)
}

const defaultDurationMinutes = 30

type Service struct {
	repo     Repository
	patients PatientDirectory
}

func NewService(repo Repository, patients PatientDirectory) *Service {
	return &Service{repo: repo, patients: patients}
}

func (s *Service) validate(a *Appointment) error {
	if a.PatientID == uuid.Nil {
		return fmt.Errorf("patient_id is required")
	}
	if a.ScheduledAt.IsZero() {
		return fmt.Errorf("scheduled_at is required")
	}
	if a.DurationMinutes == 0 {
		a.DurationMinutes = defaultDurationMinutes
	}
	if a.DurationMinutes < 0 {
		return fmt.Errorf("duration_minutes must be positive")
	}
	if a.Status == "" {
		a.Status = StatusScheduled
	}
	if !validStatuses[a.Status] {
		return fmt.Errorf("invalid status %q", a.Status)
	}
	return nil
}

func (s *Service) Create(ctx context.Context, doctorID uuid.UUID, a *Appointment) error {
	if err := s.validate(a); err != nil {
		return err
	}
	if _, err := s.patients.Get(ctx, doctorID, a.PatientID); err != nil {
		if errors.Is(err, patient.ErrNotFound) {
			return ErrPatientNotFound
		}
		return err
	}
	err := s.repo.Create(ctx, doctorID, a)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrPatientNotFound
	}
	return err
}

func (s *Service) Get(ctx context.Context, doctorID, id uuid.UUID) (*Appointment, error) {
	a, err := s.repo.GetByID(ctx, doctorID, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return a, err
}

func (s *Service) Update(ctx context.Context, doctorID uuid.UUID, a *Appointment) error {
	if err := s.validate(a); err != nil {
		return err
	}
	existing, err := s.Get(ctx, doctorID, a.ID)
	if err != nil {
		return err
	}
	// an appointment cannot move to another patient, and reminder
	// delivery history survives edits
	a.PatientID = existing.PatientID
	a.ReminderSentAt = existing.ReminderSentAt

	err = s.repo.Update(ctx, doctorID, a)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (s *Service) Delete(ctx context.Context, doctorID, id uuid.UUID) error {
	err := s.repo.Delete(ctx, doctorID, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (s *Service) List(ctx context.Context, doctorID uuid.UUID, filter ListFilter, limit, offset int) ([]*Appointment, int, error) {
	if filter.Status != "" && !validStatuses[filter.Status] {
		return nil, 0, fmt.Errorf("invalid status %q", filter.Status)
	}
	return s.repo.List(ctx, doctorID, filter, limit, offset)
}
