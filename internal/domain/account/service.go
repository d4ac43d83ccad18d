package account

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/clinicflow/clinicflow/internal/platform/auth"
)

var (
	ErrNotFound           = errors.New("doctor not found")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email is already registered")
)

type Service struct {
	doctors      DoctorRepository
	availability AvailabilityRepository
	issuer       *auth.TokenIssuer
}

func NewService(doctors DoctorRepository, availability AvailabilityRepository, issuer *auth.TokenIssuer) *Service {
	return &Service{doctors: doctors, availability: availability, issuer: issuer}
}

// -- Account --

// CreateDoctorParams is the bootstrap input used by the doctor create
// CLI command.
type CreateDoctorParams struct {
	Email          string
	Password       string
	FirstName      string
	LastName       string
	Specialization string
	LicenseNumber  string
	Phone          string
	Locale         string
}

func (s *Service) CreateDoctor(ctx context.Context, p CreateDoctorParams) (*Doctor, error) {
	if p.Email == "" {
		return nil, fmt.Errorf("email is required")
	}
	if p.FirstName == "" || p.LastName == "" {
		return nil, fmt.Errorf("first_name and last_name are required")
	}
	if err := auth.ValidatePasswordStrength(p.Password); err != nil {
		return nil, err
	}
	if p.Locale == "" {
		p.Locale = "fr"
	}
	if p.Locale != "en" && p.Locale != "fr" {
		return nil, fmt.Errorf("invalid locale: %s", p.Locale)
	}

	if _, err := s.doctors.GetByEmail(ctx, p.Email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	hash, err := auth.HashPassword(p.Password)
	if err != nil {
		return nil, err
	}

	d := &Doctor{
		Email:        p.Email,
		PasswordHash: hash,
		FirstName:    p.FirstName,
		LastName:     p.LastName,
		Locale:       p.Locale,
	}
	if p.Specialization != "" {
		d.Specialization = &p.Specialization
	}
	if p.LicenseNumber != "" {
		d.LicenseNumber = &p.LicenseNumber
	}
	if p.Phone != "" {
		d.Phone = &p.Phone
	}

	if err := s.doctors.Create(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// Login verifies credentials and issues a token pair. Failures do not
// reveal whether the email exists.
func (s *Service) Login(ctx context.Context, email, password string) (*auth.TokenPair, *Doctor, error) {
	d, err := s.doctors.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, err
	}
	if !auth.CheckPasswordHash(password, d.PasswordHash) {
		return nil, nil, ErrInvalidCredentials
	}

	pair, err := s.issuer.Issue(d.ID, d.Locale)
	if err != nil {
		return nil, nil, err
	}
	return pair, d, nil
}

// Refresh exchanges a valid refresh token for a new access token.
func (s *Service) Refresh(refreshToken string) (*auth.TokenPair, error) {
	return s.issuer.Refresh(refreshToken)
}

func (s *Service) GetDoctor(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	d, err := s.doctors.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return d, nil
}

// UpdateProfileParams carries the mutable profile fields. Nil means
// leave unchanged.
type UpdateProfileParams struct {
	FirstName      *string
	LastName       *string
	Specialization *string
	LicenseNumber  *string
	Phone          *string
	Locale         *string
}

func (s *Service) UpdateProfile(ctx context.Context, doctorID uuid.UUID, p UpdateProfileParams) (*Doctor, error) {
	d, err := s.GetDoctor(ctx, doctorID)
	if err != nil {
		return nil, err
	}

	if p.FirstName != nil {
		if *p.FirstName == "" {
			return nil, fmt.Errorf("first_name cannot be empty")
		}
		d.FirstName = *p.FirstName
	}
	if p.LastName != nil {
		if *p.LastName == "" {
			return nil, fmt.Errorf("last_name cannot be empty")
		}
		d.LastName = *p.LastName
	}
	if p.Specialization != nil {
		d.Specialization = p.Specialization
	}
	if p.LicenseNumber != nil {
		d.LicenseNumber = p.LicenseNumber
	}
	if p.Phone != nil {
		d.Phone = p.Phone
	}
	if p.Locale != nil {
		if *p.Locale != "en" && *p.Locale != "fr" {
			return nil, fmt.Errorf("invalid locale: %s", *p.Locale)
		}
		d.Locale = *p.Locale
	}

	if err := s.doctors.Update(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// ChangePassword verifies the current password before setting a new one.
func (s *Service) ChangePassword(ctx context.Context, doctorID uuid.UUID, current, next string) error {
	d, err := s.GetDoctor(ctx, doctorID)
	if err != nil {
		return err
	}
	if !auth.CheckPasswordHash(current, d.PasswordHash) {
		return ErrInvalidCredentials
	}
	if err := auth.ValidatePasswordStrength(next); err != nil {
		return err
	}
	hash, err := auth.HashPassword(next)
	if err != nil {
		return err
	}
	return s.doctors.UpdatePassword(ctx, doctorID, hash)
}

// -- Availability --

// AvailabilityParams sets the slot for one date.
type AvailabilityParams struct {
	Date      time.Time
	SlotType  string
	StartTime *string
	EndTime   *string
	Notes     *string
}

func (s *Service) SetAvailability(ctx context.Context, doctorID uuid.UUID, p AvailabilityParams) (*Availability, error) {
	if p.Date.IsZero() {
		return nil, fmt.Errorf("date is required")
	}
	if !validSlotTypes[p.SlotType] {
		return nil, fmt.Errorf("invalid slot type: %s", p.SlotType)
	}

	a := &Availability{
		DoctorID:  doctorID,
		Date:      truncateToDate(p.Date),
		SlotType:  p.SlotType,
		StartTime: p.StartTime,
		EndTime:   p.EndTime,
		Notes:     p.Notes,
	}
	if err := s.availability.Upsert(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// SetAvailabilityBulk applies a batch of date slots, validating all of
// them before writing any.
func (s *Service) SetAvailabilityBulk(ctx context.Context, doctorID uuid.UUID, params []AvailabilityParams) ([]*Availability, error) {
	if len(params) == 0 {
		return nil, fmt.Errorf("at least one slot is required")
	}
	for _, p := range params {
		if p.Date.IsZero() {
			return nil, fmt.Errorf("date is required")
		}
		if !validSlotTypes[p.SlotType] {
			return nil, fmt.Errorf("invalid slot type: %s", p.SlotType)
		}
	}

	out := make([]*Availability, 0, len(params))
	for _, p := range params {
		a := &Availability{
			DoctorID:  doctorID,
			Date:      truncateToDate(p.Date),
			SlotType:  p.SlotType,
			StartTime: p.StartTime,
			EndTime:   p.EndTime,
			Notes:     p.Notes,
		}
		if err := s.availability.Upsert(ctx, a); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

// ListAvailability returns the slots in [from, to). A zero range
// defaults to the month containing from, or the current month.
func (s *Service) ListAvailability(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]*Availability, error) {
	if from.IsZero() {
		now := time.Now().UTC()
		from = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	}
	if to.IsZero() || !to.After(from) {
		to = from.AddDate(0, 1, 0)
	}
	return s.availability.ListByRange(ctx, doctorID, from, to)
}

func (s *Service) DeleteAvailability(ctx context.Context, doctorID uuid.UUID, date time.Time) error {
	if err := s.availability.DeleteByDate(ctx, doctorID, truncateToDate(date)); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

func truncateToDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
