package patient

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

const patientCols = `p.id, p.doctor_id, p.code, p.first_name, p.last_name, p.sex,
	p.date_of_birth, p.phone, p.email, p.address, p.is_active, p.created_at, p.updated_at`

// Annotation subqueries: the most recent past consultation and the next
// upcoming non-cancelled appointment.
const annotationCols = `,
	(SELECT MAX(v.visit_date) FROM visit v
		WHERE v.patient_id = p.id AND v.visit_date <= NOW()) AS last_visit_at,
	(SELECT MIN(a.scheduled_at) FROM appointment a
		WHERE a.patient_id = p.id AND a.scheduled_at > NOW()
		AND a.status NOT IN ('CANCELLED', 'NO_SHOW')) AS next_visit_at`

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.DoctorID, &p.Code, &p.FirstName, &p.LastName, &p.Sex,
		&p.DateOfBirth, &p.Phone, &p.Email, &p.Address, &p.IsActive, &p.CreatedAt, &p.UpdatedAt,
		&p.LastVisitAt, &p.NextVisitAt)
	return &p, err
}

func (r *repoPG) Create(ctx context.Context, p *Patient) error {
	p.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO patient (id, doctor_id, code, first_name, last_name, sex,
			date_of_birth, phone, email, address, is_active)
		VALUES ($1, $2, 'PT-' || lpad(nextval('patient_code_seq')::text, 6, '0'),
			$3, $4, $5, $6, $7, $8, $9, TRUE)
		RETURNING code, created_at, updated_at`,
		p.ID, p.DoctorID, p.FirstName, p.LastName, p.Sex,
		p.DateOfBirth, p.Phone, p.Email, p.Address,
	).Scan(&p.Code, &p.CreatedAt, &p.UpdatedAt)
}

func (r *repoPG) GetByID(ctx context.Context, doctorID, id uuid.UUID) (*Patient, error) {
	return scanPatient(r.conn(ctx).QueryRow(ctx, `
		SELECT `+patientCols+annotationCols+` FROM patient p
		WHERE p.id = $1 AND p.doctor_id = $2`, id, doctorID))
}

func (r *repoPG) Update(ctx context.Context, p *Patient) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE patient SET first_name=$3, last_name=$4, sex=$5, date_of_birth=$6,
			phone=$7, email=$8, address=$9, updated_at=NOW()
		WHERE id = $1 AND doctor_id = $2`,
		p.ID, p.DoctorID, p.FirstName, p.LastName, p.Sex, p.DateOfBirth,
		p.Phone, p.Email, p.Address)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *repoPG) SetActive(ctx context.Context, doctorID, id uuid.UUID, active bool) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE patient SET is_active=$3, updated_at=NOW()
		WHERE id = $1 AND doctor_id = $2`, id, doctorID, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *repoPG) List(ctx context.Context, doctorID uuid.UUID, params SearchParams, limit, offset int) ([]*Patient, int, error) {
	where := ` FROM patient p WHERE p.doctor_id = $1`
	args := []interface{}{doctorID}
	idx := 2

	if !params.IncludeArchived {
		where += ` AND p.is_active = TRUE`
	}
	if params.Query != "" {
		where += fmt.Sprintf(` AND (p.code ILIKE $%d OR p.first_name ILIKE $%d OR p.last_name ILIKE $%d
			OR p.phone ILIKE $%d OR p.address ILIKE $%d)`, idx, idx, idx, idx, idx)
		args = append(args, "%"+params.Query+"%")
		idx++
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*)`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	orderBy := `p.created_at DESC`
	switch params.OrderBy {
	case "name":
		orderBy = `p.last_name, p.first_name`
	case "code":
		orderBy = `p.code`
	}

	query := fmt.Sprintf(`SELECT %s%s%s ORDER BY %s LIMIT $%d OFFSET $%d`,
		patientCols, annotationCols, where, orderBy, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}
