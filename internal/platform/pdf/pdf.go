// Package pdf renders prescriptions and consultation summaries as A4
// documents in the doctor's locale.
package pdf

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/clinicflow/clinicflow/internal/platform/i18n"
)

// PrescriptionItem is one medication line on a prescription.
type PrescriptionItem struct {
	Medication           string
	Dosage               string
	Route                string
	Frequency            string
	Duration             string
	Instructions         string
	AllowOutsidePurchase bool
}

// Prescription carries everything the prescription renderer needs.
type Prescription struct {
	Number        string
	CreatedAt     time.Time
	PatientName   string
	PatientAge    int
	PatientSex    string
	DoctorName    string
	DoctorLicense string
	Diagnosis     string
	Items         []PrescriptionItem
	Notes         string
}

// Vitals is the optional vital-sign block on a visit summary. Zero
// values are omitted from the document.
type Vitals struct {
	TemperatureC        float64
	BloodPressure       string
	HeartRateBPM        int
	RespiratoryRate     int
	OxygenSaturation    int
	WeightKG            float64
	HeightCM            float64
	HeadCircumferenceCM float64
}

// VisitSummary carries everything the visit summary renderer needs.
type VisitSummary struct {
	VisitDate         time.Time
	CreatedAt         time.Time
	PatientName       string
	PatientAge        int
	PatientSex        string
	DoctorName        string
	ChiefComplaint    string
	MedicalHistory    string
	PresentIllness    string
	PhysicalExam      string
	ComplementaryExam string
	Assessment        string
	Plan              string
	Treatment         string
	Notes             string
	Vitals            *Vitals
}

// Renderer produces clinic-branded PDF documents.
type Renderer struct {
	tr            *i18n.Translator
	clinicName    string
	clinicAddress string
	clinicPhone   string
}

func NewRenderer(tr *i18n.Translator, clinicName, clinicAddress, clinicPhone string) *Renderer {
	return &Renderer{
		tr:            tr,
		clinicName:    clinicName,
		clinicAddress: clinicAddress,
		clinicPhone:   clinicPhone,
	}
}

// newDocument builds a page with the clinic letterhead. The creation
// date is pinned to the source record's timestamp so rendering the same
// record twice yields byte-identical output.
func (r *Renderer) newDocument(createdAt time.Time) (*gofpdf.Fpdf, func(string) string) {
	doc := gofpdf.New("P", "mm", "A4", "")
	doc.SetCreationDate(createdAt.UTC())
	doc.SetModificationDate(createdAt.UTC())
	doc.SetCatalogSort(true)
	translate := doc.UnicodeTranslatorFromDescriptor("")

	doc.SetMargins(20, 15, 20)
	doc.AddPage()

	doc.SetFont("Helvetica", "B", 16)
	doc.CellFormat(0, 8, translate(r.clinicName), "", 1, "C", false, 0, "")
	doc.SetFont("Helvetica", "", 9)
	if r.clinicAddress != "" {
		doc.CellFormat(0, 5, translate(r.clinicAddress), "", 1, "C", false, 0, "")
	}
	if r.clinicPhone != "" {
		doc.CellFormat(0, 5, translate(r.clinicPhone), "", 1, "C", false, 0, "")
	}
	doc.Ln(3)
	doc.SetDrawColor(0, 0, 0)
	doc.Line(20, doc.GetY(), 190, doc.GetY())
	doc.Ln(5)

	return doc, translate
}

func (r *Renderer) labelValue(doc *gofpdf.Fpdf, translate func(string) string, label, value string) {
	doc.SetFont("Helvetica", "B", 10)
	doc.CellFormat(45, 6, translate(label+":"), "", 0, "L", false, 0, "")
	doc.SetFont("Helvetica", "", 10)
	doc.MultiCell(0, 6, translate(value), "", "L", false)
}

// RenderPrescription renders a prescription in the given locale.
func (r *Renderer) RenderPrescription(p Prescription, locale string) ([]byte, error) {
	doc, translate := r.newDocument(p.CreatedAt)

	doc.SetFont("Helvetica", "B", 14)
	doc.CellFormat(0, 10, translate(r.tr.T(locale, "prescription.title")), "", 1, "C", false, 0, "")
	doc.Ln(2)

	r.labelValue(doc, translate, r.tr.T(locale, "prescription.number"), p.Number)
	r.labelValue(doc, translate, r.tr.T(locale, "prescription.date"), p.CreatedAt.Format("02/01/2006"))
	r.labelValue(doc, translate, r.tr.T(locale, "prescription.patient"), p.PatientName)
	if p.PatientAge > 0 {
		age := r.tr.Tf(locale, "prescription.years", map[string]interface{}{"Years": p.PatientAge})
		r.labelValue(doc, translate, r.tr.T(locale, "prescription.age"), age)
	}
	if p.PatientSex != "" {
		r.labelValue(doc, translate, r.tr.T(locale, "prescription.sex"), r.sexLabel(locale, p.PatientSex))
	}
	if p.Diagnosis != "" {
		r.labelValue(doc, translate, r.tr.T(locale, "prescription.diagnosis"), p.Diagnosis)
	}
	doc.Ln(4)

	for i, item := range p.Items {
		doc.SetFont("Helvetica", "B", 11)
		doc.CellFormat(0, 7, translate(fmt.Sprintf("%d. %s", i+1, item.Medication)), "", 1, "L", false, 0, "")
		doc.SetFont("Helvetica", "", 10)
		line := fmt.Sprintf("%s: %s  |  %s: %s  |  %s: %s",
			r.tr.T(locale, "prescription.dosage"), item.Dosage,
			r.tr.T(locale, "prescription.frequency"), item.Frequency,
			r.tr.T(locale, "prescription.duration"), item.Duration,
		)
		if item.Route != "" {
			line += fmt.Sprintf("  |  %s: %s", r.tr.T(locale, "prescription.route"), item.Route)
		}
		doc.SetX(26)
		doc.MultiCell(0, 5, translate(line), "", "L", false)
		if item.Instructions != "" {
			doc.SetX(26)
			doc.MultiCell(0, 5, translate(r.tr.T(locale, "prescription.instructions")+": "+item.Instructions), "", "L", false)
		}
		if item.AllowOutsidePurchase {
			doc.SetX(26)
			doc.MultiCell(0, 5, translate(r.tr.T(locale, "prescription.outside_purchase")), "", "L", false)
		}
		doc.Ln(2)
	}

	if p.Notes != "" {
		doc.Ln(2)
		r.labelValue(doc, translate, r.tr.T(locale, "prescription.notes"), p.Notes)
	}

	doc.Ln(15)
	doc.SetFont("Helvetica", "", 10)
	doc.CellFormat(0, 6, translate(p.DoctorName), "", 1, "R", false, 0, "")
	if p.DoctorLicense != "" {
		doc.SetFont("Helvetica", "", 9)
		doc.CellFormat(0, 5, translate(r.tr.T(locale, "prescription.license")+": "+p.DoctorLicense), "", 1, "R", false, 0, "")
	}
	doc.SetFont("Helvetica", "I", 9)
	doc.CellFormat(0, 6, translate(r.tr.T(locale, "prescription.signature")), "", 1, "R", false, 0, "")

	return output(doc)
}

// RenderVisitSummary renders a consultation summary in the given locale.
func (r *Renderer) RenderVisitSummary(v VisitSummary, locale string) ([]byte, error) {
	doc, translate := r.newDocument(v.CreatedAt)

	doc.SetFont("Helvetica", "B", 14)
	doc.CellFormat(0, 10, translate(r.tr.T(locale, "visit.title")), "", 1, "C", false, 0, "")
	doc.Ln(2)

	r.labelValue(doc, translate, r.tr.T(locale, "visit.date"), v.VisitDate.Format("02/01/2006"))
	r.labelValue(doc, translate, r.tr.T(locale, "prescription.patient"), v.PatientName)
	if v.PatientAge > 0 {
		age := r.tr.Tf(locale, "prescription.years", map[string]interface{}{"Years": v.PatientAge})
		r.labelValue(doc, translate, r.tr.T(locale, "prescription.age"), age)
	}
	if v.PatientSex != "" {
		r.labelValue(doc, translate, r.tr.T(locale, "prescription.sex"), r.sexLabel(locale, v.PatientSex))
	}
	r.labelValue(doc, translate, r.tr.T(locale, "prescription.doctor"), v.DoctorName)
	doc.Ln(3)

	sections := []struct {
		labelID string
		value   string
	}{
		{"visit.chief_complaint", v.ChiefComplaint},
		{"visit.medical_history", v.MedicalHistory},
		{"visit.present_illness", v.PresentIllness},
		{"visit.physical_exam", v.PhysicalExam},
		{"visit.complementary_exam", v.ComplementaryExam},
		{"visit.assessment", v.Assessment},
		{"visit.plan", v.Plan},
		{"visit.treatment", v.Treatment},
		{"visit.notes", v.Notes},
	}
	for _, s := range sections {
		if s.value == "" {
			continue
		}
		doc.SetFont("Helvetica", "B", 11)
		doc.CellFormat(0, 7, translate(r.tr.T(locale, s.labelID)), "", 1, "L", false, 0, "")
		doc.SetFont("Helvetica", "", 10)
		doc.MultiCell(0, 5, translate(s.value), "", "L", false)
		doc.Ln(2)
	}

	if v.Vitals != nil {
		doc.SetFont("Helvetica", "B", 11)
		doc.CellFormat(0, 7, translate(r.tr.T(locale, "visit.vitals")), "", 1, "L", false, 0, "")
		doc.SetFont("Helvetica", "", 10)
		for _, line := range r.vitalLines(locale, v.Vitals) {
			doc.SetX(26)
			doc.CellFormat(0, 5, translate(line), "", 1, "L", false, 0, "")
		}
	}

	return output(doc)
}

func (r *Renderer) vitalLines(locale string, vt *Vitals) []string {
	var lines []string
	if vt.TemperatureC > 0 {
		lines = append(lines, fmt.Sprintf("%s: %.1f C", r.tr.T(locale, "vitals.temperature"), vt.TemperatureC))
	}
	if vt.BloodPressure != "" {
		lines = append(lines, fmt.Sprintf("%s: %s mmHg", r.tr.T(locale, "vitals.blood_pressure"), vt.BloodPressure))
	}
	if vt.HeartRateBPM > 0 {
		lines = append(lines, fmt.Sprintf("%s: %d bpm", r.tr.T(locale, "vitals.heart_rate"), vt.HeartRateBPM))
	}
	if vt.RespiratoryRate > 0 {
		lines = append(lines, fmt.Sprintf("%s: %d /min", r.tr.T(locale, "vitals.respiratory_rate"), vt.RespiratoryRate))
	}
	if vt.OxygenSaturation > 0 {
		lines = append(lines, fmt.Sprintf("%s: %d%%", r.tr.T(locale, "vitals.oxygen_saturation"), vt.OxygenSaturation))
	}
	if vt.WeightKG > 0 {
		lines = append(lines, fmt.Sprintf("%s: %.1f kg", r.tr.T(locale, "vitals.weight"), vt.WeightKG))
	}
	if vt.HeightCM > 0 {
		lines = append(lines, fmt.Sprintf("%s: %.0f cm", r.tr.T(locale, "vitals.height"), vt.HeightCM))
	}
	if vt.HeadCircumferenceCM > 0 {
		lines = append(lines, fmt.Sprintf("%s: %.1f cm", r.tr.T(locale, "vitals.head_circumference"), vt.HeadCircumferenceCM))
	}
	return lines
}

func (r *Renderer) sexLabel(locale, sex string) string {
	switch sex {
	case "M", "male":
		return r.tr.T(locale, "sex.male")
	case "F", "female":
		return r.tr.T(locale, "sex.female")
	default:
		return r.tr.T(locale, "sex.other")
	}
}

func output(doc *gofpdf.Fpdf) ([]byte, error) {
	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
