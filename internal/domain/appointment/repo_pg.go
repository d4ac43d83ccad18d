package appointment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicflow/clinicflow/internal/platform/db"
	"github.com/clinicflow/clinicflow/internal/platform/reminder"
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

const appointmentCols = `a.id, a.patient_id, a.visit_id, a.scheduled_at, a.duration_minutes,
	a.reason, a.status, a.notes, a.reminders_enabled, a.reminder_sent_at,
	a.created_at, a.updated_at`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(&a.ID, &a.PatientID, &a.VisitID, &a.ScheduledAt, &a.DurationMinutes,
		&a.Reason, &a.Status, &a.Notes, &a.RemindersEnabled, &a.ReminderSentAt,
		&a.CreatedAt, &a.UpdatedAt)
	return &a, err
}

// checkOverlap counts blocking appointments of the doctor that
// intersect [start, start+duration). Both intervals are half-open, so a
// booking that starts exactly when another ends is allowed. The caller
// must hold the doctor's advisory lock.
func (r *repoPG) checkOverlap(ctx context.Context, doctorID uuid.UUID, a *Appointment, excludeID uuid.UUID) error {
	var count int
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT COUNT(*) FROM appointment a
		JOIN patient p ON p.id = a.patient_id
		WHERE p.doctor_id = $1
		AND a.id <> $2
		AND a.status NOT IN ('CANCELLED', 'NO_SHOW')
		AND a.scheduled_at < $4
		AND a.scheduled_at + make_interval(mins => a.duration_minutes) > $3`,
		doctorID, excludeID, a.ScheduledAt, a.EndsAt(),
	).Scan(&count)
	if err != nil {
		return err
	}
	if count > 0 {
		return ErrConflict
	}
	return nil
}

// lockDoctor serializes bookings per doctor for the rest of the
// transaction, closing the race between the overlap check and the
// write.
func (r *repoPG) lockDoctor(ctx context.Context, doctorID uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx,
		`SELECT pg_advisory_xact_lock(hashtext($1::text))`, doctorID)
	return err
}

func (r *repoPG) Create(ctx context.Context, doctorID uuid.UUID, a *Appointment) error {
	return db.WithTx(ctx, r.pool, func(ctx context.Context) error {
		if a.Blocking() {
			if err := r.lockDoctor(ctx, doctorID); err != nil {
				return err
			}
			if err := r.checkOverlap(ctx, doctorID, a, uuid.Nil); err != nil {
				return err
			}
		}
		a.ID = uuid.New()
		return r.conn(ctx).QueryRow(ctx, `
			INSERT INTO appointment (id, patient_id, visit_id, scheduled_at,
				duration_minutes, reason, status, notes, reminders_enabled)
			SELECT $1, $2, $3, $4, $5, $6, $7, $8, $9
			WHERE EXISTS (SELECT 1 FROM patient WHERE id = $2 AND doctor_id = $10)
			RETURNING created_at, updated_at`,
			a.ID, a.PatientID, a.VisitID, a.ScheduledAt, a.DurationMinutes,
			a.Reason, a.Status, a.Notes, a.RemindersEnabled, doctorID,
		).Scan(&a.CreatedAt, &a.UpdatedAt)
	})
}

func (r *repoPG) GetByID(ctx context.Context, doctorID, id uuid.UUID) (*Appointment, error) {
	return scanAppointment(r.conn(ctx).QueryRow(ctx, `
		SELECT `+appointmentCols+` FROM appointment a
		JOIN patient p ON p.id = a.patient_id
		WHERE a.id = $1 AND p.doctor_id = $2`, id, doctorID))
}

func (r *repoPG) Update(ctx context.Context, doctorID uuid.UUID, a *Appointment) error {
	return db.WithTx(ctx, r.pool, func(ctx context.Context) error {
		if a.Blocking() {
			if err := r.lockDoctor(ctx, doctorID); err != nil {
				return err
			}
			if err := r.checkOverlap(ctx, doctorID, a, a.ID); err != nil {
				return err
			}
		}
		tag, err := r.conn(ctx).Exec(ctx, `
			UPDATE appointment SET visit_id=$3, scheduled_at=$4, duration_minutes=$5,
				reason=$6, status=$7, notes=$8, reminders_enabled=$9, updated_at=NOW()
			WHERE id = $1
			AND patient_id IN (SELECT id FROM patient WHERE doctor_id = $2)`,
			a.ID, doctorID, a.VisitID, a.ScheduledAt, a.DurationMinutes,
			a.Reason, a.Status, a.Notes, a.RemindersEnabled)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return pgx.ErrNoRows
		}
		return nil
	})
}

func (r *repoPG) Delete(ctx context.Context, doctorID, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		DELETE FROM appointment
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

func (r *repoPG) List(ctx context.Context, doctorID uuid.UUID, filter ListFilter, limit, offset int) ([]*Appointment, int, error) {
	where := ` FROM appointment a
		JOIN patient p ON p.id = a.patient_id
		WHERE p.doctor_id = $1`
	args := []interface{}{doctorID}
	idx := 2

	if filter.PatientID != nil {
		where += fmt.Sprintf(` AND a.patient_id = $%d`, idx)
		args = append(args, *filter.PatientID)
		idx++
	}
	if filter.Status != "" {
		where += fmt.Sprintf(` AND a.status = $%d`, idx)
		args = append(args, filter.Status)
		idx++
	}
	if filter.Upcoming {
		where += ` AND a.scheduled_at >= NOW()
			AND a.status NOT IN ('CANCELLED', 'COMPLETED', 'NO_SHOW')`
	}
	if filter.Date != nil {
		where += fmt.Sprintf(` AND a.scheduled_at >= $%d AND a.scheduled_at < $%d`, idx, idx+1)
		day := filter.Date.Truncate(24 * time.Hour)
		args = append(args, day, day.AddDate(0, 0, 1))
		idx += 2
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*)`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	sql := fmt.Sprintf(`SELECT %s%s ORDER BY a.scheduled_at ASC LIMIT $%d OFFSET $%d`,
		appointmentCols, where, idx, idx+1)
	rows, err := r.conn(ctx).Query(ctx, sql, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var appointments []*Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, 0, err
		}
		appointments = append(appointments, a)
	}
	return appointments, total, rows.Err()
}

func (r *repoPG) ListUnsent(ctx context.Context, from, to time.Time) ([]*reminder.Upcoming, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT a.id, p.first_name || ' ' || p.last_name, COALESCE(p.phone, ''),
			'Dr. ' || d.first_name || ' ' || d.last_name, a.scheduled_at, d.locale
		FROM appointment a
		JOIN patient p ON p.id = a.patient_id
		JOIN doctor d ON d.id = p.doctor_id
		WHERE a.reminders_enabled
		AND a.reminder_sent_at IS NULL
		AND a.status = 'SCHEDULED'
		AND a.scheduled_at >= $1 AND a.scheduled_at < $2
		ORDER BY a.scheduled_at`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var due []*reminder.Upcoming
	for rows.Next() {
		var u reminder.Upcoming
		if err := rows.Scan(&u.AppointmentID, &u.PatientName, &u.PatientPhone,
			&u.DoctorName, &u.ScheduledAt, &u.Locale); err != nil {
			return nil, err
		}
		due = append(due, &u)
	}
	return due, rows.Err()
}

func (r *repoPG) MarkSent(ctx context.Context, appointmentID uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE appointment SET reminder_sent_at = NOW()
		WHERE id = $1 AND reminder_sent_at IS NULL`, appointmentID)
	return err
}
