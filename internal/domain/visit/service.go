package visit

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/clinicflow/clinicflow/internal/domain/account"
	"github.com/clinicflow/clinicflow/internal/domain/patient"
	"github.com/clinicflow/clinicflow/internal/platform/pdf"
)

var (
	ErrNotFound        = errors.New("visit not found")
	ErrVitalNotFound   = errors.New("vital sign record not found")
	ErrPatientNotFound = errors.New("patient not found")
)

// PatientDirectory is the slice of the patient service the visit
// service needs: ownership checks and the demographics printed on the
// summary PDF.
type PatientDirectory interface {
	Get(ctx context.Context, doctorID, id uuid.UUID) (*patient.Patient, error)
}

// DoctorDirectory resolves the prescribing doctor for PDF rendering.
type DoctorDirectory interface {
	GetDoctor(ctx context.Context, id uuid.UUID) (*account.Doctor, error)
}

type Service struct {
	visits   Repository
	vitals   VitalRepository
	patients PatientDirectory
	doctors  DoctorDirectory
	renderer *pdf.Renderer
}

func NewService(visits Repository, vitals VitalRepository, patients PatientDirectory, doctors DoctorDirectory, renderer *pdf.Renderer) *Service {
	return &Service{
		visits:   visits,
		vitals:   vitals,
		patients: patients,
		doctors:  doctors,
		renderer: renderer,
	}
}

func (s *Service) validate(v *Visit) error {
	if v.PatientID == uuid.Nil {
		return fmt.Errorf("patient_id is required")
	}
	if v.VisitDate.IsZero() {
		return fmt.Errorf("visit_date is required")
	}
	if v.VisitType == "" {
		v.VisitType = TypeConsultation
	}
	if !validVisitTypes[v.VisitType] {
		return fmt.Errorf("invalid visit_type %q", v.VisitType)
	}
	return nil
}

func (s *Service) Create(ctx context.Context, doctorID uuid.UUID, v *Visit) error {
	if err := s.validate(v); err != nil {
		return err
	}
	if _, err := s.patients.Get(ctx, doctorID, v.PatientID); err != nil {
		if errors.Is(err, patient.ErrNotFound) {
			return ErrPatientNotFound
		}
		return err
	}
	return s.visits.Create(ctx, v)
}

func (s *Service) Get(ctx context.Context, doctorID, id uuid.UUID) (*Visit, error) {
	v, err := s.visits.GetByID(ctx, doctorID, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return v, err
}

func (s *Service) Update(ctx context.Context, doctorID uuid.UUID, v *Visit) error {
	if err := s.validate(v); err != nil {
		return err
	}
	existing, err := s.Get(ctx, doctorID, v.ID)
	if err != nil {
		return err
	}
	// a visit cannot move to another patient
	v.PatientID = existing.PatientID
	err = s.visits.Update(ctx, doctorID, v)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (s *Service) Delete(ctx context.Context, doctorID, id uuid.UUID) error {
	err := s.visits.Delete(ctx, doctorID, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (s *Service) List(ctx context.Context, doctorID uuid.UUID, patientID *uuid.UUID, limit, offset int) ([]*Visit, int, error) {
	return s.visits.List(ctx, doctorID, patientID, limit, offset)
}

func (s *Service) AddVitals(ctx context.Context, doctorID uuid.UUID, vs *VitalSign) error {
	if err := s.validateVitals(vs); err != nil {
		return err
	}
	if _, err := s.Get(ctx, doctorID, vs.VisitID); err != nil {
		return err
	}
	return s.vitals.Create(ctx, vs)
}

func (s *Service) GetVitals(ctx context.Context, doctorID, id uuid.UUID) (*VitalSign, error) {
	vs, err := s.vitals.GetByID(ctx, doctorID, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrVitalNotFound
	}
	return vs, err
}

func (s *Service) UpdateVitals(ctx context.Context, doctorID uuid.UUID, vs *VitalSign) error {
	if err := s.validateVitals(vs); err != nil {
		return err
	}
	existing, err := s.GetVitals(ctx, doctorID, vs.ID)
	if err != nil {
		return err
	}
	vs.VisitID = existing.VisitID
	err = s.vitals.Update(ctx, doctorID, vs)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrVitalNotFound
	}
	return err
}

func (s *Service) DeleteVitals(ctx context.Context, doctorID, id uuid.UUID) error {
	err := s.vitals.Delete(ctx, doctorID, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrVitalNotFound
	}
	return err
}

func (s *Service) ListVitals(ctx context.Context, doctorID, visitID uuid.UUID) ([]*VitalSign, error) {
	if _, err := s.Get(ctx, doctorID, visitID); err != nil {
		return nil, err
	}
	return s.vitals.ListByVisit(ctx, doctorID, visitID)
}

func (s *Service) validateVitals(vs *VitalSign) error {
	if vs.VisitID == uuid.Nil {
		return fmt.Errorf("visit_id is required")
	}
	if vs.MeasuredAt.IsZero() {
		return fmt.Errorf("measured_at is required")
	}
	if vs.WeightKG == nil && vs.HeightCM == nil && vs.TemperatureC == nil &&
		vs.SystolicBP == nil && vs.DiastolicBP == nil && vs.HeartRateBPM == nil &&
		vs.RespiratoryRate == nil && vs.OxygenSaturation == nil &&
		vs.HeadCircumferenceCM == nil {
		return fmt.Errorf("at least one measurement is required")
	}
	if (vs.SystolicBP == nil) != (vs.DiastolicBP == nil) {
		return fmt.Errorf("systolic_bp and diastolic_bp must be recorded together")
	}
	return nil
}

// SummaryPDF renders the consultation summary. When locale is empty the
// doctor's preferred locale is used.
func (s *Service) SummaryPDF(ctx context.Context, doctorID, visitID uuid.UUID, locale string) ([]byte, error) {
	v, err := s.Get(ctx, doctorID, visitID)
	if err != nil {
		return nil, err
	}
	p, err := s.patients.Get(ctx, doctorID, v.PatientID)
	if err != nil {
		return nil, err
	}
	d, err := s.doctors.GetDoctor(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	if locale == "" {
		locale = d.Locale
	}

	summary := pdf.VisitSummary{
		VisitDate:         v.VisitDate,
		CreatedAt:         v.CreatedAt,
		PatientName:       p.FullName(),
		PatientAge:        p.AgeAt(v.VisitDate),
		PatientSex:        p.Sex,
		DoctorName:        d.FullName(),
		ChiefComplaint:    v.ChiefComplaint,
		MedicalHistory:    v.MedicalHistory,
		PresentIllness:    v.PresentIllness,
		PhysicalExam:      v.PhysicalExam,
		ComplementaryExam: v.ComplementaryExam,
		Assessment:        v.Assessment,
		Plan:              v.Plan,
		Treatment:         v.Treatment,
		Notes:             v.Notes,
	}

	vitals, err := s.vitals.ListByVisit(ctx, doctorID, visitID)
	if err != nil {
		return nil, err
	}
	if len(vitals) > 0 {
		// the most recent measurement set goes on the document
		summary.Vitals = pdfVitals(vitals[len(vitals)-1])
	}

	return s.renderer.RenderVisitSummary(summary, locale)
}

func pdfVitals(vs *VitalSign) *pdf.Vitals {
	out := &pdf.Vitals{}
	if vs.TemperatureC != nil {
		out.TemperatureC = *vs.TemperatureC
	}
	if vs.SystolicBP != nil && vs.DiastolicBP != nil {
		out.BloodPressure = fmt.Sprintf("%d/%d", *vs.SystolicBP, *vs.DiastolicBP)
	}
	if vs.HeartRateBPM != nil {
		out.HeartRateBPM = *vs.HeartRateBPM
	}
	if vs.RespiratoryRate != nil {
		out.RespiratoryRate = *vs.RespiratoryRate
	}
	if vs.OxygenSaturation != nil {
		out.OxygenSaturation = *vs.OxygenSaturation
	}
	if vs.WeightKG != nil {
		out.WeightKG = *vs.WeightKG
	}
	if vs.HeightCM != nil {
		out.HeightCM = *vs.HeightCM
	}
	if vs.HeadCircumferenceCM != nil {
		out.HeadCircumferenceCM = *vs.HeadCircumferenceCM
	}
	return out
}
