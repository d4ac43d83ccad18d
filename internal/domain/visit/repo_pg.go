package visit

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicflow/clinicflow/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const visitCols = `v.id, v.patient_id, v.visit_date, v.visit_type, v.chief_complaint,
	v.medical_history, v.present_illness, v.physical_exam, v.complementary_exam,
	v.assessment, v.plan, v.treatment, v.notes, v.created_at, v.updated_at`

func scanVisit(row pgx.Row) (*Visit, error) {
	var v Visit
	err := row.Scan(&v.ID, &v.PatientID, &v.VisitDate, &v.VisitType, &v.ChiefComplaint,
		&v.MedicalHistory, &v.PresentIllness, &v.PhysicalExam, &v.ComplementaryExam,
		&v.Assessment, &v.Plan, &v.Treatment, &v.Notes, &v.CreatedAt, &v.UpdatedAt)
	return &v, err
}

func (r *repoPG) Create(ctx context.Context, v *Visit) error {
	v.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO visit (id, patient_id, visit_date, visit_type, chief_complaint,
			medical_history, present_illness, physical_exam, complementary_exam,
			assessment, plan, treatment, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING created_at, updated_at`,
		v.ID, v.PatientID, v.VisitDate, v.VisitType, v.ChiefComplaint,
		v.MedicalHistory, v.PresentIllness, v.PhysicalExam, v.ComplementaryExam,
		v.Assessment, v.Plan, v.Treatment, v.Notes,
	).Scan(&v.CreatedAt, &v.UpdatedAt)
}

func (r *repoPG) GetByID(ctx context.Context, doctorID, id uuid.UUID) (*Visit, error) {
	return scanVisit(r.conn(ctx).QueryRow(ctx, `
		SELECT `+visitCols+` FROM visit v
		JOIN patient p ON p.id = v.patient_id
		WHERE v.id = $1 AND p.doctor_id = $2`, id, doctorID))
}

func (r *repoPG) Update(ctx context.Context, doctorID uuid.UUID, v *Visit) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE visit SET visit_date=$3, visit_type=$4, chief_complaint=$5,
			medical_history=$6, present_illness=$7, physical_exam=$8,
			complementary_exam=$9, assessment=$10, plan=$11, treatment=$12,
			notes=$13, updated_at=NOW()
		WHERE id = $1
		AND patient_id IN (SELECT id FROM patient WHERE doctor_id = $2)`,
		v.ID, doctorID, v.VisitDate, v.VisitType, v.ChiefComplaint,
		v.MedicalHistory, v.PresentIllness, v.PhysicalExam, v.ComplementaryExam,
		v.Assessment, v.Plan, v.Treatment, v.Notes)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *repoPG) Delete(ctx context.Context, doctorID, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		DELETE FROM visit
		WHERE id = $1
		AND patient_id IN (SELECT id FROM patient WHERE doctor_id = $2)`,
		id, doctorID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *repoPG) List(ctx context.Context, doctorID uuid.UUID, patientID *uuid.UUID, limit, offset int) ([]*Visit, int, error) {
	where := ` FROM visit v
		JOIN patient p ON p.id = v.patient_id
		WHERE p.doctor_id = $1`
	args := []interface{}{doctorID}
	idx := 2

	if patientID != nil {
		where += fmt.Sprintf(` AND v.patient_id = $%d`, idx)
		args = append(args, *patientID)
		idx++
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*)`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s%s ORDER BY v.visit_date DESC, v.created_at DESC LIMIT $%d OFFSET $%d`,
		visitCols, where, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var visits []*Visit
	for rows.Next() {
		v, err := scanVisit(rows)
		if err != nil {
			return nil, 0, err
		}
		visits = append(visits, v)
	}
	return visits, total, rows.Err()
}

type vitalRepoPG struct{ pool *pgxpool.Pool }

func NewVitalRepoPG(pool *pgxpool.Pool) VitalRepository { return &vitalRepoPG{pool: pool} }

func (r *vitalRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const vitalCols = `vs.id, vs.visit_id, vs.measured_at, vs.weight_kg, vs.height_cm,
	vs.temperature_c, vs.systolic_bp, vs.diastolic_bp, vs.heart_rate_bpm,
	vs.respiratory_rate, vs.oxygen_saturation, vs.head_circumference_cm,
	vs.notes, vs.created_at, vs.updated_at`

// ownedVisit restricts vital-sign rows to visits of the doctor's own
// patients.
const ownedVisit = `SELECT v.id FROM visit v
	JOIN patient p ON p.id = v.patient_id
	WHERE p.doctor_id = `

func scanVital(row pgx.Row) (*VitalSign, error) {
	var vs VitalSign
	err := row.Scan(&vs.ID, &vs.VisitID, &vs.MeasuredAt, &vs.WeightKG, &vs.HeightCM,
		&vs.TemperatureC, &vs.SystolicBP, &vs.DiastolicBP, &vs.HeartRateBPM,
		&vs.RespiratoryRate, &vs.OxygenSaturation, &vs.HeadCircumferenceCM,
		&vs.Notes, &vs.CreatedAt, &vs.UpdatedAt)
	return &vs, err
}

func (r *vitalRepoPG) Create(ctx context.Context, vs *VitalSign) error {
	vs.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO vital_sign (id, visit_id, measured_at, weight_kg, height_cm,
			temperature_c, systolic_bp, diastolic_bp, heart_rate_bpm,
			respiratory_rate, oxygen_saturation, head_circumference_cm, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING created_at, updated_at`,
		vs.ID, vs.VisitID, vs.MeasuredAt, vs.WeightKG, vs.HeightCM,
		vs.TemperatureC, vs.SystolicBP, vs.DiastolicBP, vs.HeartRateBPM,
		vs.RespiratoryRate, vs.OxygenSaturation, vs.HeadCircumferenceCM, vs.Notes,
	).Scan(&vs.CreatedAt, &vs.UpdatedAt)
}

func (r *vitalRepoPG) GetByID(ctx context.Context, doctorID, id uuid.UUID) (*VitalSign, error) {
	return scanVital(r.conn(ctx).QueryRow(ctx, `
		SELECT `+vitalCols+` FROM vital_sign vs
		WHERE vs.id = $1 AND vs.visit_id IN (`+ownedVisit+`$2)`, id, doctorID))
}

func (r *vitalRepoPG) Update(ctx context.Context, doctorID uuid.UUID, vs *VitalSign) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE vital_sign SET measured_at=$3, weight_kg=$4, height_cm=$5,
			temperature_c=$6, systolic_bp=$7, diastolic_bp=$8, heart_rate_bpm=$9,
			respiratory_rate=$10, oxygen_saturation=$11, head_circumference_cm=$12,
			notes=$13, updated_at=NOW()
		WHERE id = $1 AND visit_id IN (`+ownedVisit+`$2)`,
		vs.ID, doctorID, vs.MeasuredAt, vs.WeightKG, vs.HeightCM,
		vs.TemperatureC, vs.SystolicBP, vs.DiastolicBP, vs.HeartRateBPM,
		vs.RespiratoryRate, vs.OxygenSaturation, vs.HeadCircumferenceCM, vs.Notes)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *vitalRepoPG) Delete(ctx context.Context, doctorID, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		DELETE FROM vital_sign
		WHERE id = $1 AND visit_id IN (`+ownedVisit+`$2)`, id, doctorID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *vitalRepoPG) ListByVisit(ctx context.Context, doctorID, visitID uuid.UUID) ([]*VitalSign, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+vitalCols+` FROM vital_sign vs
		WHERE vs.visit_id = $1 AND vs.visit_id IN (`+ownedVisit+`$2)
		ORDER BY vs.measured_at ASC, vs.created_at ASC`, visitID, doctorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var vitals []*VitalSign
	for rows.Next() {
		vs, err := scanVital(rows)
		if err != nil {
			return nil, err
		}
		vitals = append(vitals, vs)
	}
	return vitals, rows.Err()
}
