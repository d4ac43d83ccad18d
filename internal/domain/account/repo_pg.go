package account

import (
	"context"
	"time"

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

// =========== Doctor Repository ===========

type doctorRepoPG struct{ pool *pgxpool.Pool }

func NewDoctorRepoPG(pool *pgxpool.Pool) DoctorRepository { return &doctorRepoPG{pool: pool} }

func (r *doctorRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const doctorCols = `id, email, password_hash, first_name, last_name,
	specialization, license_number, phone, locale, created_at, updated_at`

func (r *doctorRepoPG) scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor
	err := row.Scan(&d.ID, &d.Email, &d.PasswordHash, &d.FirstName, &d.LastName,
		&d.Specialization, &d.LicenseNumber, &d.Phone, &d.Locale, &d.CreatedAt, &d.UpdatedAt)
	return &d, err
}

func (r *doctorRepoPG) Create(ctx context.Context, d *Doctor) error {
	d.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO doctor (id, email, password_hash, first_name, last_name,
			specialization, license_number, phone, locale)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		d.ID, d.Email, d.PasswordHash, d.FirstName, d.LastName,
		d.Specialization, d.LicenseNumber, d.Phone, d.Locale)
	return err
}

func (r *doctorRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	return r.scanDoctor(r.conn(ctx).QueryRow(ctx, `SELECT `+doctorCols+` FROM doctor WHERE id = $1`, id))
}

func (r *doctorRepoPG) GetByEmail(ctx context.Context, email string) (*Doctor, error) {
	return r.scanDoctor(r.conn(ctx).QueryRow(ctx, `SELECT `+doctorCols+` FROM doctor WHERE lower(email) = lower($1)`, email))
}

func (r *doctorRepoPG) Update(ctx context.Context, d *Doctor) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE doctor SET first_name=$2, last_name=$3, specialization=$4,
			license_number=$5, phone=$6, locale=$7, updated_at=NOW()
		WHERE id = $1`,
		d.ID, d.FirstName, d.LastName, d.Specialization, d.LicenseNumber, d.Phone, d.Locale)
	return err
}

func (r *doctorRepoPG) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE doctor SET password_hash=$2, updated_at=NOW() WHERE id = $1`, id, passwordHash)
	return err
}

// =========== Availability Repository ===========

type availabilityRepoPG struct{ pool *pgxpool.Pool }

func NewAvailabilityRepoPG(pool *pgxpool.Pool) AvailabilityRepository {
	return &availabilityRepoPG{pool: pool}
}

func (r *availabilityRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const availCols = `id, doctor_id, date, slot_type, start_time, end_time, notes, created_at, updated_at`

func (r *availabilityRepoPG) scanAvailability(row pgx.Row) (*Availability, error) {
	var a Availability
	err := row.Scan(&a.ID, &a.DoctorID, &a.Date, &a.SlotType, &a.StartTime,
		&a.EndTime, &a.Notes, &a.CreatedAt, &a.UpdatedAt)
	return &a, err
}

func (r *availabilityRepoPG) Upsert(ctx context.Context, a *Availability) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO doctor_availability (id, doctor_id, date, slot_type, start_time, end_time, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (doctor_id, date) DO UPDATE SET
			slot_type=EXCLUDED.slot_type, start_time=EXCLUDED.start_time,
			end_time=EXCLUDED.end_time, notes=EXCLUDED.notes, updated_at=NOW()`,
		a.ID, a.DoctorID, a.Date, a.SlotType, a.StartTime, a.EndTime, a.Notes)
	return err
}

func (r *availabilityRepoPG) ListByRange(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]*Availability, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+availCols+` FROM doctor_availability
		WHERE doctor_id = $1 AND date >= $2 AND date < $3
		ORDER BY date`, doctorID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Availability
	for rows.Next() {
		a, err := r.scanAvailability(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

func (r *availabilityRepoPG) DeleteByDate(ctx context.Context, doctorID uuid.UUID, date time.Time) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`DELETE FROM doctor_availability WHERE doctor_id = $1 AND date = $2`, doctorID, date)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
