package prescription

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/clinicflow/clinicflow/internal/domain/account"
	"github.com/clinicflow/clinicflow/internal/domain/patient"
	"github.com/clinicflow/clinicflow/internal/domain/visit"
	"github.com/clinicflow/clinicflow/internal/platform/pdf"
)

var (
	ErrNotFound           = errors.New("prescription not found")
	ErrMedicationNotFound = errors.New("medication not found")
	ErrTemplateNotFound   = errors.New("template not found")
	ErrVisitNotFound      = errors.New("visit not found")
	// ErrLocked is returned when a signed prescription is mutated. The
	// caller must create a new version instead.
	ErrLocked = errors.New("prescription is locked")
)

// VisitDirectory resolves the visit a prescription hangs off, scoped to
// the requesting doctor.
type VisitDirectory interface {
	Get(ctx context.Context, doctorID, id uuid.UUID) (*visit.Visit, error)
}

type PatientDirectory interface {
	Get(ctx context.Context, doctorID, id uuid.UUID) (*patient.Patient, error)
}

type DoctorDirectory interface {
	GetDoctor(ctx context.Context, id uuid.UUID) (*account.Doctor, error)
}

type Service struct {
	medications   MedicationRepository
	templates     TemplateRepository
	prescriptions Repository
	visits        VisitDirectory
	patients      PatientDirectory
	doctors       DoctorDirectory
	renderer      *pdf.Renderer

	now func() time.Time
}

func NewService(
	medications MedicationRepository,
	templates TemplateRepository,
	prescriptions Repository,
	visits VisitDirectory,
	patients PatientDirectory,
	doctors DoctorDirectory,
	renderer *pdf.Renderer,
) *Service {
	return &Service{
		medications:   medications,
		templates:     templates,
		prescriptions: prescriptions,
		visits:        visits,
		patients:      patients,
		doctors:       doctors,
		renderer:      renderer,
		now:           time.Now,
	}
}

func (s *Service) CreateMedication(ctx context.Context, m *Medication) error {
	if m.Name == "" {
		return fmt.Errorf("name is required")
	}
	return s.medications.Create(ctx, m)
}

func (s *Service) GetMedication(ctx context.Context, id uuid.UUID) (*Medication, error) {
	m, err := s.medications.GetByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrMedicationNotFound
	}
	return m, err
}

func (s *Service) UpdateMedication(ctx context.Context, m *Medication) error {
	if m.Name == "" {
		return fmt.Errorf("name is required")
	}
	err := s.medications.Update(ctx, m)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrMedicationNotFound
	}
	return err
}

// DeactivateMedication retires a catalog entry. Existing prescriptions
// keep referencing it.
func (s *Service) DeactivateMedication(ctx context.Context, id uuid.UUID) error {
	err := s.medications.SetActive(ctx, id, false)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrMedicationNotFound
	}
	return err
}

func (s *Service) ListMedications(ctx context.Context, query string, includeInactive bool, limit, offset int) ([]*Medication, int, error) {
	return s.medications.List(ctx, query, includeInactive, limit, offset)
}

// resolveMedication checks the catalog reference on an item line.
func (s *Service) resolveMedication(ctx context.Context, id uuid.UUID) (*Medication, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("medication_id is required on every item")
	}
	m, err := s.medications.GetByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrMedicationNotFound
	}
	return m, err
}

func (s *Service) validateTemplate(ctx context.Context, t *Template) error {
	if t.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(t.Items) == 0 {
		return fmt.Errorf("at least one item is required")
	}
	for i := range t.Items {
		m, err := s.resolveMedication(ctx, t.Items[i].MedicationID)
		if err != nil {
			return err
		}
		t.Items[i].MedicationName = m.Name
		if t.Items[i].Dosage == "" {
			return fmt.Errorf("dosage is required on every item")
		}
	}
	return nil
}

func (s *Service) CreateTemplate(ctx context.Context, t *Template) error {
	if err := s.validateTemplate(ctx, t); err != nil {
		return err
	}
	t.IsActive = true
	return s.templates.Create(ctx, t)
}

func (s *Service) GetTemplate(ctx context.Context, id uuid.UUID) (*Template, error) {
	t, err := s.templates.GetByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrTemplateNotFound
	}
	return t, err
}

func (s *Service) UpdateTemplate(ctx context.Context, t *Template) error {
	if err := s.validateTemplate(ctx, t); err != nil {
		return err
	}
	err := s.templates.Update(ctx, t)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrTemplateNotFound
	}
	return err
}

func (s *Service) DeleteTemplate(ctx context.Context, id uuid.UUID) error {
	err := s.templates.Delete(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrTemplateNotFound
	}
	return err
}

func (s *Service) ListTemplates(ctx context.Context, includeInactive bool, limit, offset int) ([]*Template, int, error) {
	return s.templates.List(ctx, includeInactive, limit, offset)
}

func (s *Service) validateItems(ctx context.Context, items []Item) error {
	if len(items) == 0 {
		return fmt.Errorf("at least one item is required")
	}
	for i := range items {
		m, err := s.resolveMedication(ctx, items[i].MedicationID)
		if err != nil {
			return err
		}
		items[i].MedicationName = m.Name
		if items[i].Dosage == "" {
			return fmt.Errorf("dosage is required on every item")
		}
	}
	return nil
}

// Create builds a prescription for a visit. When a template is given
// and no items are provided the template's items are copied; provided
// items override the template wholesale. The template is never touched.
func (s *Service) Create(ctx context.Context, doctorID uuid.UUID, p *Prescription) error {
	if _, err := s.visits.Get(ctx, doctorID, p.VisitID); err != nil {
		if errors.Is(err, visit.ErrNotFound) {
			return ErrVisitNotFound
		}
		return err
	}

	if p.TemplateID != nil {
		t, err := s.GetTemplate(ctx, *p.TemplateID)
		if err != nil {
			return err
		}
		if len(p.Items) == 0 {
			p.Items = itemsFromTemplate(t)
		}
	}

	if err := s.validateItems(ctx, p.Items); err != nil {
		return err
	}
	return s.prescriptions.Create(ctx, p)
}

func itemsFromTemplate(t *Template) []Item {
	items := make([]Item, len(t.Items))
	for i, ti := range t.Items {
		items[i] = Item{
			MedicationID:   ti.MedicationID,
			MedicationName: ti.MedicationName,
			Dosage:         ti.Dosage,
			Route:          ti.Route,
			Frequency:      ti.Frequency,
			Duration:       ti.Duration,
			Instructions:   ti.Instructions,
		}
	}
	return items
}

func (s *Service) Get(ctx context.Context, doctorID, id uuid.UUID) (*Prescription, error) {
	p, err := s.prescriptions.GetByID(ctx, doctorID, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return p, err
}

func (s *Service) Update(ctx context.Context, doctorID uuid.UUID, p *Prescription) error {
	existing, err := s.Get(ctx, doctorID, p.ID)
	if err != nil {
		return err
	}
	if existing.Locked() {
		return ErrLocked
	}
	if err := s.validateItems(ctx, p.Items); err != nil {
		return err
	}
	p.VisitID = existing.VisitID
	err = s.prescriptions.Update(ctx, doctorID, p)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (s *Service) Delete(ctx context.Context, doctorID, id uuid.UUID) error {
	existing, err := s.Get(ctx, doctorID, id)
	if err != nil {
		return err
	}
	if existing.Locked() {
		return ErrLocked
	}
	err = s.prescriptions.Delete(ctx, doctorID, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (s *Service) List(ctx context.Context, doctorID uuid.UUID, filter ListFilter, limit, offset int) ([]*Prescription, int, error) {
	return s.prescriptions.List(ctx, doctorID, filter, limit, offset)
}

// NewVersion copies a prescription into a fresh unlocked record that
// points back at its predecessor.
func (s *Service) NewVersion(ctx context.Context, doctorID, id uuid.UUID) (*Prescription, error) {
	existing, err := s.Get(ctx, doctorID, id)
	if err != nil {
		return nil, err
	}

	next := &Prescription{
		VisitID:           existing.VisitID,
		TemplateID:        existing.TemplateID,
		Notes:             existing.Notes,
		PreviousVersionID: &existing.ID,
		Items:             make([]Item, len(existing.Items)),
	}
	for i, it := range existing.Items {
		next.Items[i] = Item{
			MedicationID:         it.MedicationID,
			MedicationName:       it.MedicationName,
			Dosage:               it.Dosage,
			Route:                it.Route,
			Frequency:            it.Frequency,
			Duration:             it.Duration,
			Instructions:         it.Instructions,
			AllowOutsidePurchase: it.AllowOutsidePurchase,
		}
	}
	if err := s.prescriptions.Create(ctx, next); err != nil {
		return nil, err
	}
	return next, nil
}

func (s *Service) Versions(ctx context.Context, doctorID, id uuid.UUID) ([]*Prescription, error) {
	versions, err := s.prescriptions.Versions(ctx, doctorID, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return versions, err
}

// PDF renders the prescription and locks it on first render. The
// creation date baked into the document is the signing time, so every
// later render is byte-identical. When locale is empty the doctor's
// preferred locale is used.
func (s *Service) PDF(ctx context.Context, doctorID, id uuid.UUID, locale string) ([]byte, error) {
	p, err := s.Get(ctx, doctorID, id)
	if err != nil {
		return nil, err
	}

	if !p.Locked() {
		at := s.now().UTC().Truncate(time.Second)
		err := s.prescriptions.SetGenerated(ctx, doctorID, p.ID, at)
		switch {
		case err == nil:
			p.GeneratedAt = &at
		case errors.Is(err, pgx.ErrNoRows):
			// lost a race with a concurrent render; its timestamp wins
			if p, err = s.Get(ctx, doctorID, id); err != nil {
				return nil, err
			}
		default:
			return nil, err
		}
	}

	v, err := s.visits.Get(ctx, doctorID, p.VisitID)
	if err != nil {
		return nil, err
	}
	pat, err := s.patients.Get(ctx, doctorID, v.PatientID)
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

	doc := pdf.Prescription{
		Number:      p.Number,
		CreatedAt:   *p.GeneratedAt,
		PatientName: pat.FullName(),
		PatientAge:  pat.AgeAt(v.VisitDate),
		PatientSex:  pat.Sex,
		DoctorName:  d.FullName(),
		Diagnosis:   v.Assessment,
		Notes:       p.Notes,
		Items:       make([]pdf.PrescriptionItem, len(p.Items)),
	}
	if d.LicenseNumber != nil {
		doc.DoctorLicense = *d.LicenseNumber
	}
	for i, it := range p.Items {
		doc.Items[i] = pdf.PrescriptionItem{
			Medication:           it.MedicationName,
			Dosage:               it.Dosage,
			Route:                it.Route,
			Frequency:            it.Frequency,
			Duration:             it.Duration,
			Instructions:         it.Instructions,
			AllowOutsidePurchase: it.AllowOutsidePurchase,
		}
	}
	return s.renderer.RenderPrescription(doc, locale)
}
