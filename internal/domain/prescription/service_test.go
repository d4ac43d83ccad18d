package prescription

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/clinicflow/clinicflow/internal/domain/account"
	"github.com/clinicflow/clinicflow/internal/domain/patient"
	"github.com/clinicflow/clinicflow/internal/domain/visit"
	"github.com/clinicflow/clinicflow/internal/platform/i18n"
	"github.com/clinicflow/clinicflow/internal/platform/pdf"
)

type mockMedRepo struct {
	meds map[uuid.UUID]*Medication
}

func (m *mockMedRepo) Create(_ context.Context, med *Medication) error {
	med.ID = uuid.New()
	med.IsActive = true
	m.meds[med.ID] = med
	return nil
}

func (m *mockMedRepo) GetByID(_ context.Context, id uuid.UUID) (*Medication, error) {
	med, ok := m.meds[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return med, nil
}

func (m *mockMedRepo) Update(_ context.Context, med *Medication) error {
	existing, ok := m.meds[med.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	med.IsActive = existing.IsActive
	m.meds[med.ID] = med
	return nil
}

func (m *mockMedRepo) SetActive(_ context.Context, id uuid.UUID, active bool) error {
	med, ok := m.meds[id]
	if !ok {
		return pgx.ErrNoRows
	}
	med.IsActive = active
	return nil
}

func (m *mockMedRepo) List(_ context.Context, _ string, includeInactive bool, _, _ int) ([]*Medication, int, error) {
	var out []*Medication
	for _, med := range m.meds {
		if !includeInactive && !med.IsActive {
			continue
		}
		out = append(out, med)
	}
	return out, len(out), nil
}

type mockTemplateRepo struct {
	templates map[uuid.UUID]*Template
}

func (m *mockTemplateRepo) Create(_ context.Context, t *Template) error {
	t.ID = uuid.New()
	for i := range t.Items {
		t.Items[i].ID = uuid.New()
		t.Items[i].TemplateID = t.ID
		t.Items[i].Position = i + 1
	}
	m.templates[t.ID] = t
	return nil
}

func (m *mockTemplateRepo) GetByID(_ context.Context, id uuid.UUID) (*Template, error) {
	t, ok := m.templates[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *t
	copied.Items = append([]TemplateItem(nil), t.Items...)
	return &copied, nil
}

func (m *mockTemplateRepo) Update(_ context.Context, t *Template) error {
	if _, ok := m.templates[t.ID]; !ok {
		return pgx.ErrNoRows
	}
	m.templates[t.ID] = t
	return nil
}

func (m *mockTemplateRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.templates[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(m.templates, id)
	return nil
}

func (m *mockTemplateRepo) List(_ context.Context, includeInactive bool, _, _ int) ([]*Template, int, error) {
	var out []*Template
	for _, t := range m.templates {
		if !includeInactive && !t.IsActive {
			continue
		}
		out = append(out, t)
	}
	return out, len(out), nil
}

type mockRxRepo struct {
	prescriptions map[uuid.UUID]*Prescription
	owners        map[uuid.UUID]uuid.UUID // visitID -> doctorID
	nextNumber    int
	clock         time.Time
}

func (m *mockRxRepo) owns(doctorID uuid.UUID, p *Prescription) bool {
	return m.owners[p.VisitID] == doctorID
}

func (m *mockRxRepo) Create(_ context.Context, p *Prescription) error {
	p.ID = uuid.New()
	m.nextNumber++
	p.Number = fmt.Sprintf("RX-%06d", m.nextNumber)
	m.clock = m.clock.Add(time.Second)
	p.CreatedAt = m.clock
	p.UpdatedAt = m.clock
	m.prescriptions[p.ID] = p
	return nil
}

func (m *mockRxRepo) GetByID(_ context.Context, doctorID, id uuid.UUID) (*Prescription, error) {
	p, ok := m.prescriptions[id]
	if !ok || !m.owns(doctorID, p) {
		return nil, pgx.ErrNoRows
	}
	copied := *p
	copied.Items = append([]Item(nil), p.Items...)
	return &copied, nil
}

func (m *mockRxRepo) Update(_ context.Context, doctorID uuid.UUID, p *Prescription) error {
	existing, ok := m.prescriptions[p.ID]
	if !ok || !m.owns(doctorID, existing) {
		return pgx.ErrNoRows
	}
	existing.Notes = p.Notes
	existing.Items = p.Items
	return nil
}

func (m *mockRxRepo) Delete(_ context.Context, doctorID, id uuid.UUID) error {
	p, ok := m.prescriptions[id]
	if !ok || !m.owns(doctorID, p) {
		return pgx.ErrNoRows
	}
	delete(m.prescriptions, id)
	return nil
}

func (m *mockRxRepo) List(_ context.Context, doctorID uuid.UUID, filter ListFilter, _, _ int) ([]*Prescription, int, error) {
	var out []*Prescription
	for _, p := range m.prescriptions {
		if !m.owns(doctorID, p) {
			continue
		}
		if filter.VisitID != nil && p.VisitID != *filter.VisitID {
			continue
		}
		out = append(out, p)
	}
	return out, len(out), nil
}

func (m *mockRxRepo) SetGenerated(_ context.Context, doctorID, id uuid.UUID, at time.Time) error {
	p, ok := m.prescriptions[id]
	if !ok || !m.owns(doctorID, p) || p.GeneratedAt != nil {
		return pgx.ErrNoRows
	}
	p.GeneratedAt = &at
	return nil
}

func (m *mockRxRepo) Versions(_ context.Context, doctorID, id uuid.UUID) ([]*Prescription, error) {
	start, ok := m.prescriptions[id]
	if !ok || !m.owns(doctorID, start) {
		return nil, pgx.ErrNoRows
	}
	inChain := map[uuid.UUID]bool{id: true}
	for changed := true; changed; {
		changed = false
		for _, p := range m.prescriptions {
			if inChain[p.ID] {
				continue
			}
			if p.PreviousVersionID != nil && inChain[*p.PreviousVersionID] {
				inChain[p.ID] = true
				changed = true
			}
			for memberID := range inChain {
				member := m.prescriptions[memberID]
				if member.PreviousVersionID != nil && *member.PreviousVersionID == p.ID {
					inChain[p.ID] = true
					changed = true
				}
			}
		}
	}
	var out []*Prescription
	for memberID := range inChain {
		out = append(out, m.prescriptions[memberID])
	}
	return out, nil
}

type mockVisits struct {
	visits map[uuid.UUID]*visit.Visit
	owners map[uuid.UUID]uuid.UUID // visitID -> doctorID
}

func (m *mockVisits) Get(_ context.Context, doctorID, id uuid.UUID) (*visit.Visit, error) {
	v, ok := m.visits[id]
	if !ok || m.owners[id] != doctorID {
		return nil, visit.ErrNotFound
	}
	return v, nil
}

type mockPatients struct {
	patients map[uuid.UUID]*patient.Patient
}

func (m *mockPatients) Get(_ context.Context, doctorID, id uuid.UUID) (*patient.Patient, error) {
	p, ok := m.patients[id]
	if !ok || p.DoctorID != doctorID {
		return nil, patient.ErrNotFound
	}
	return p, nil
}

type mockDoctors struct {
	doctors map[uuid.UUID]*account.Doctor
}

func (m *mockDoctors) GetDoctor(_ context.Context, id uuid.UUID) (*account.Doctor, error) {
	d, ok := m.doctors[id]
	if !ok {
		return nil, account.ErrNotFound
	}
	return d, nil
}

type fixture struct {
	svc      *Service
	rx       *mockRxRepo
	meds     *mockMedRepo
	doctorID uuid.UUID
	visitID  uuid.UUID
	medID    uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	doctorID := uuid.New()
	patientID := uuid.New()
	visitID := uuid.New()

	meds := &mockMedRepo{meds: make(map[uuid.UUID]*Medication)}
	med := &Medication{Name: "Artéméther-Luméfantrine", Form: "comprimé", Strength: "20/120 mg"}
	if err := meds.Create(context.Background(), med); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	templates := &mockTemplateRepo{templates: make(map[uuid.UUID]*Template)}
	rx := &mockRxRepo{
		prescriptions: make(map[uuid.UUID]*Prescription),
		owners:        map[uuid.UUID]uuid.UUID{visitID: doctorID},
		clock:         time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC),
	}

	visits := &mockVisits{
		visits: map[uuid.UUID]*visit.Visit{
			visitID: {
				ID:         visitID,
				PatientID:  patientID,
				VisitDate:  time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
				Assessment: "Paludisme simple",
				CreatedAt:  time.Date(2026, 3, 14, 9, 45, 0, 0, time.UTC),
			},
		},
		owners: map[uuid.UUID]uuid.UUID{visitID: doctorID},
	}
	patients := &mockPatients{patients: map[uuid.UUID]*patient.Patient{
		patientID: {
			ID:          patientID,
			DoctorID:    doctorID,
			FirstName:   "Amina",
			LastName:    "Mbala",
			Sex:         "F",
			DateOfBirth: time.Date(1992, 6, 15, 0, 0, 0, 0, time.UTC),
		},
	}}
	license := "KIN-4521"
	doctors := &mockDoctors{doctors: map[uuid.UUID]*account.Doctor{
		doctorID: {ID: doctorID, FirstName: "Jean", LastName: "Kalonji", Locale: "fr", LicenseNumber: &license},
	}}

	renderer := pdf.NewRenderer(i18n.New("fr"), "Cabinet Médical Kalonji", "Kinshasa, RDC", "+243 810 000 000")
	svc := NewService(meds, templates, rx, visits, patients, doctors, renderer)
	svc.now = func() time.Time { return time.Date(2026, 3, 14, 11, 0, 0, 0, time.UTC) }

	return &fixture{svc: svc, rx: rx, meds: meds, doctorID: doctorID, visitID: visitID, medID: med.ID}
}

func (f *fixture) newPrescription(t *testing.T) *Prescription {
	t.Helper()
	p := &Prescription{
		VisitID: f.visitID,
		Notes:   "Revenir si la fièvre persiste",
		Items: []Item{
			{MedicationID: f.medID, Dosage: "1 comprimé", Frequency: "2x/jour", Duration: "3 jours"},
		},
	}
	if err := f.svc.Create(context.Background(), f.doctorID, p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return p
}

func (f *fixture) newTemplate(t *testing.T) *Template {
	t.Helper()
	tpl := &Template{
		Name:   "Uncomplicated malaria",
		NameFR: "Paludisme simple",
		Items: []TemplateItem{
			{MedicationID: f.medID, Dosage: "1 comprimé", Route: "orale", Frequency: "2x/jour", Duration: "3 jours"},
		},
	}
	if err := f.svc.CreateTemplate(context.Background(), tpl); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return tpl
}

func TestDeactivateMedication(t *testing.T) {
	f := newFixture(t)

	if err := f.svc.DeactivateMedication(context.Background(), f.medID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	meds, total, err := f.svc.ListMedications(context.Background(), "", false, 10, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 0 || len(meds) != 0 {
		t.Errorf("expected retired medication hidden from default list, got total=%d", total)
	}
}

func TestCreateTemplate(t *testing.T) {
	f := newFixture(t)
	tpl := f.newTemplate(t)

	if tpl.Items[0].MedicationName != "Artéméther-Luméfantrine" {
		t.Errorf("expected resolved medication name, got %q", tpl.Items[0].MedicationName)
	}
	if !tpl.IsActive {
		t.Error("expected new template active")
	}
}

func TestCreateTemplate_Validation(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		tpl  *Template
	}{
		{"missing name", &Template{Items: []TemplateItem{{MedicationID: f.medID, Dosage: "1"}}}},
		{"no items", &Template{Name: "Empty"}},
		{"unknown medication", &Template{Name: "X", Items: []TemplateItem{{MedicationID: uuid.New(), Dosage: "1"}}}},
		{"missing dosage", &Template{Name: "X", Items: []TemplateItem{{MedicationID: f.medID}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := f.svc.CreateTemplate(context.Background(), tt.tpl); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestCreatePrescription(t *testing.T) {
	f := newFixture(t)
	p := f.newPrescription(t)

	if p.Number != "RX-000001" {
		t.Errorf("expected RX-000001, got %q", p.Number)
	}
	if p.Locked() {
		t.Error("expected new prescription unlocked")
	}
	if p.Items[0].MedicationName != "Artéméther-Luméfantrine" {
		t.Errorf("expected resolved medication name, got %q", p.Items[0].MedicationName)
	}
}

func TestCreatePrescription_UnknownVisit(t *testing.T) {
	f := newFixture(t)
	p := &Prescription{VisitID: uuid.New(), Items: []Item{{MedicationID: f.medID, Dosage: "1"}}}
	if err := f.svc.Create(context.Background(), f.doctorID, p); !errors.Is(err, ErrVisitNotFound) {
		t.Fatalf("expected ErrVisitNotFound, got %v", err)
	}
}

func TestCreatePrescription_OtherDoctorsVisit(t *testing.T) {
	f := newFixture(t)
	p := &Prescription{VisitID: f.visitID, Items: []Item{{MedicationID: f.medID, Dosage: "1"}}}
	if err := f.svc.Create(context.Background(), uuid.New(), p); !errors.Is(err, ErrVisitNotFound) {
		t.Fatalf("expected ErrVisitNotFound, got %v", err)
	}
}

func TestCreatePrescription_FromTemplate(t *testing.T) {
	f := newFixture(t)
	tpl := f.newTemplate(t)

	p := &Prescription{VisitID: f.visitID, TemplateID: &tpl.ID}
	if err := f.svc.Create(context.Background(), f.doctorID, p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(p.Items) != 1 {
		t.Fatalf("expected 1 copied item, got %d", len(p.Items))
	}
	if p.Items[0].Route != "orale" {
		t.Errorf("expected copied route, got %q", p.Items[0].Route)
	}

	// the template keeps its own items untouched
	fresh, err := f.svc.GetTemplate(context.Background(), tpl.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fresh.Items) != 1 || fresh.Items[0].TemplateID != tpl.ID {
		t.Error("expected template items unchanged")
	}
}

func TestCreatePrescription_TemplateItemOverride(t *testing.T) {
	f := newFixture(t)
	tpl := f.newTemplate(t)

	p := &Prescription{
		VisitID:    f.visitID,
		TemplateID: &tpl.ID,
		Items: []Item{
			{MedicationID: f.medID, Dosage: "2 comprimés", Frequency: "2x/jour", Duration: "3 jours"},
		},
	}
	if err := f.svc.Create(context.Background(), f.doctorID, p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Items[0].Dosage != "2 comprimés" {
		t.Errorf("expected provided items to override the template, got %q", p.Items[0].Dosage)
	}
}

func TestUpdatePrescription_LockedConflict(t *testing.T) {
	f := newFixture(t)
	p := f.newPrescription(t)

	if _, err := f.svc.PDF(context.Background(), f.doctorID, p.ID, "fr"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	update := &Prescription{ID: p.ID, Notes: "changed", Items: p.Items}
	if err := f.svc.Update(context.Background(), f.doctorID, update); !errors.Is(err, ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
	if err := f.svc.Delete(context.Background(), f.doctorID, p.ID); !errors.Is(err, ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
}

func TestPDF_LocksAndIsDeterministic(t *testing.T) {
	f := newFixture(t)
	p := f.newPrescription(t)

	out, err := f.svc.PDF(context.Background(), f.doctorID, p.ID, "fr")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.HasPrefix(out, []byte("%PDF-")) {
		t.Error("output does not start with PDF magic bytes")
	}

	stored := f.rx.prescriptions[p.ID]
	if stored.GeneratedAt == nil {
		t.Fatal("expected generated_at set after first render")
	}

	// even with a different wall clock the second render is identical
	f.svc.now = func() time.Time { return time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC) }
	again, err := f.svc.PDF(context.Background(), f.doctorID, p.ID, "fr")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(out, again) {
		t.Error("expected identical bytes for repeated renders")
	}
}

func TestPDF_OtherDoctorMasked(t *testing.T) {
	f := newFixture(t)
	p := f.newPrescription(t)

	if _, err := f.svc.PDF(context.Background(), uuid.New(), p.ID, "fr"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestNewVersion(t *testing.T) {
	f := newFixture(t)
	p := f.newPrescription(t)

	if _, err := f.svc.PDF(context.Background(), f.doctorID, p.ID, "fr"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	next, err := f.svc.NewVersion(context.Background(), f.doctorID, p.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if next.Locked() {
		t.Error("expected new version unlocked")
	}
	if next.PreviousVersionID == nil || *next.PreviousVersionID != p.ID {
		t.Error("expected new version to record its predecessor")
	}
	if next.Number == p.Number {
		t.Error("expected new version to get its own number")
	}
	if len(next.Items) != len(p.Items) {
		t.Errorf("expected %d copied items, got %d", len(p.Items), len(next.Items))
	}

	versions, err := f.svc.Versions(context.Background(), f.doctorID, p.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(versions) != 2 {
		t.Errorf("expected 2 versions in the chain, got %d", len(versions))
	}
}

func TestVersions_NotFound(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.Versions(context.Background(), f.doctorID, uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
