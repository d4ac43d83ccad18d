package prescription

import (
	"context"
	"fmt"
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

func connFor(ctx context.Context, pool *pgxpool.Pool) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return pool
}

type medicationRepoPG struct{ pool *pgxpool.Pool }

func NewMedicationRepoPG(pool *pgxpool.Pool) MedicationRepository {
	return &medicationRepoPG{pool: pool}
}

const medicationCols = `id, name, form, strength, is_active, created_at, updated_at`

func scanMedication(row pgx.Row) (*Medication, error) {
	var m Medication
	err := row.Scan(&m.ID, &m.Name, &m.Form, &m.Strength, &m.IsActive, &m.CreatedAt, &m.UpdatedAt)
	return &m, err
}

func (r *medicationRepoPG) Create(ctx context.Context, m *Medication) error {
	m.ID = uuid.New()
	return connFor(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO medication (id, name, form, strength, is_active)
		VALUES ($1, $2, $3, $4, TRUE)
		RETURNING created_at, updated_at`,
		m.ID, m.Name, m.Form, m.Strength,
	).Scan(&m.CreatedAt, &m.UpdatedAt)
}

func (r *medicationRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Medication, error) {
	return scanMedication(connFor(ctx, r.pool).QueryRow(ctx, `
		SELECT `+medicationCols+` FROM medication WHERE id = $1`, id))
}

func (r *medicationRepoPG) Update(ctx context.Context, m *Medication) error {
	tag, err := connFor(ctx, r.pool).Exec(ctx, `
		UPDATE medication SET name=$2, form=$3, strength=$4, updated_at=NOW()
		WHERE id = $1`, m.ID, m.Name, m.Form, m.Strength)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *medicationRepoPG) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	tag, err := connFor(ctx, r.pool).Exec(ctx, `
		UPDATE medication SET is_active=$2, updated_at=NOW() WHERE id = $1`, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *medicationRepoPG) List(ctx context.Context, query string, includeInactive bool, limit, offset int) ([]*Medication, int, error) {
	where := ` FROM medication WHERE TRUE`
	args := []interface{}{}
	idx := 1

	if !includeInactive {
		where += ` AND is_active = TRUE`
	}
	if query != "" {
		where += fmt.Sprintf(` AND (name ILIKE $%d OR strength ILIKE $%d)`, idx, idx)
		args = append(args, "%"+query+"%")
		idx++
	}

	var total int
	if err := connFor(ctx, r.pool).QueryRow(ctx, `SELECT COUNT(*)`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	sql := fmt.Sprintf(`SELECT %s%s ORDER BY name, strength LIMIT $%d OFFSET $%d`,
		medicationCols, where, idx, idx+1)
	rows, err := connFor(ctx, r.pool).Query(ctx, sql, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var meds []*Medication
	for rows.Next() {
		m, err := scanMedication(rows)
		if err != nil {
			return nil, 0, err
		}
		meds = append(meds, m)
	}
	return meds, total, rows.Err()
}

type templateRepoPG struct{ pool *pgxpool.Pool }

func NewTemplateRepoPG(pool *pgxpool.Pool) TemplateRepository {
	return &templateRepoPG{pool: pool}
}

const templateCols = `id, name, name_fr, description, description_fr, is_active, created_at, updated_at`

func scanTemplate(row pgx.Row) (*Template, error) {
	var t Template
	err := row.Scan(&t.ID, &t.Name, &t.NameFR, &t.Description, &t.DescriptionFR,
		&t.IsActive, &t.CreatedAt, &t.UpdatedAt)
	return &t, err
}

func (r *templateRepoPG) insertItems(ctx context.Context, t *Template) error {
	for i := range t.Items {
		item := &t.Items[i]
		item.ID = uuid.New()
		item.TemplateID = t.ID
		item.Position = i + 1
		_, err := connFor(ctx, r.pool).Exec(ctx, `
			INSERT INTO prescription_template_item (id, template_id, medication_id,
				position, dosage, route, frequency, duration, instructions)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			item.ID, t.ID, item.MedicationID, item.Position,
			item.Dosage, item.Route, item.Frequency, item.Duration, item.Instructions)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *templateRepoPG) loadItems(ctx context.Context, templateIDs []uuid.UUID) (map[uuid.UUID][]TemplateItem, error) {
	rows, err := connFor(ctx, r.pool).Query(ctx, `
		SELECT i.id, i.template_id, i.medication_id, m.name, i.position,
			i.dosage, i.route, i.frequency, i.duration, i.instructions
		FROM prescription_template_item i
		JOIN medication m ON m.id = i.medication_id
		WHERE i.template_id = ANY($1)
		ORDER BY i.position`, templateIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make(map[uuid.UUID][]TemplateItem)
	for rows.Next() {
		var it TemplateItem
		if err := rows.Scan(&it.ID, &it.TemplateID, &it.MedicationID, &it.MedicationName,
			&it.Position, &it.Dosage, &it.Route, &it.Frequency, &it.Duration, &it.Instructions); err != nil {
			return nil, err
		}
		items[it.TemplateID] = append(items[it.TemplateID], it)
	}
	return items, rows.Err()
}

func (r *templateRepoPG) Create(ctx context.Context, t *Template) error {
	return db.WithTx(ctx, r.pool, func(ctx context.Context) error {
		t.ID = uuid.New()
		err := connFor(ctx, r.pool).QueryRow(ctx, `
			INSERT INTO prescription_template (id, name, name_fr, description, description_fr, is_active)
			VALUES ($1, $2, $3, $4, $5, TRUE)
			RETURNING created_at, updated_at`,
			t.ID, t.Name, t.NameFR, t.Description, t.DescriptionFR,
		).Scan(&t.CreatedAt, &t.UpdatedAt)
		if err != nil {
			return err
		}
		return r.insertItems(ctx, t)
	})
}

func (r *templateRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Template, error) {
	t, err := scanTemplate(connFor(ctx, r.pool).QueryRow(ctx, `
		SELECT `+templateCols+` FROM prescription_template WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	items, err := r.loadItems(ctx, []uuid.UUID{t.ID})
	if err != nil {
		return nil, err
	}
	t.Items = items[t.ID]
	return t, nil
}

// Update rewrites the header and replaces the full item list. The delete
// and reinsert ride the same transaction so a failed item insert cannot
// leave the template stripped of its items.
func (r *templateRepoPG) Update(ctx context.Context, t *Template) error {
	return db.WithTx(ctx, r.pool, func(ctx context.Context) error {
		tag, err := connFor(ctx, r.pool).Exec(ctx, `
			UPDATE prescription_template
			SET name=$2, name_fr=$3, description=$4, description_fr=$5, is_active=$6, updated_at=NOW()
			WHERE id = $1`,
			t.ID, t.Name, t.NameFR, t.Description, t.DescriptionFR, t.IsActive)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return pgx.ErrNoRows
		}
		if _, err := connFor(ctx, r.pool).Exec(ctx,
			`DELETE FROM prescription_template_item WHERE template_id = $1`, t.ID); err != nil {
			return err
		}
		return r.insertItems(ctx, t)
	})
}

func (r *templateRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := connFor(ctx, r.pool).Exec(ctx,
		`DELETE FROM prescription_template WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *templateRepoPG) List(ctx context.Context, includeInactive bool, limit, offset int) ([]*Template, int, error) {
	where := ` FROM prescription_template WHERE TRUE`
	if !includeInactive {
		where += ` AND is_active = TRUE`
	}

	var total int
	if err := connFor(ctx, r.pool).QueryRow(ctx, `SELECT COUNT(*)`+where).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := connFor(ctx, r.pool).Query(ctx,
		`SELECT `+templateCols+where+` ORDER BY name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var templates []*Template
	var ids []uuid.UUID
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, 0, err
		}
		templates = append(templates, t)
		ids = append(ids, t.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	if len(ids) > 0 {
		items, err := r.loadItems(ctx, ids)
		if err != nil {
			return nil, 0, err
		}
		for _, t := range templates {
			t.Items = items[t.ID]
		}
	}
	return templates, total, nil
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

const prescriptionCols = `pr.id, pr.visit_id, pr.template_id, pr.number, pr.notes,
	pr.generated_at, pr.previous_version_id, pr.created_at, pr.updated_at`

// ownedVisit restricts prescription rows to visits of the doctor's own
// patients.
const ownedVisit = `SELECT v.id FROM visit v
	JOIN patient p ON p.id = v.patient_id
	WHERE p.doctor_id = `

func scanPrescription(row pgx.Row) (*Prescription, error) {
	var p Prescription
	err := row.Scan(&p.ID, &p.VisitID, &p.TemplateID, &p.Number, &p.Notes,
		&p.GeneratedAt, &p.PreviousVersionID, &p.CreatedAt, &p.UpdatedAt)
	return &p, err
}

func (r *repoPG) insertItems(ctx context.Context, p *Prescription) error {
	for i := range p.Items {
		item := &p.Items[i]
		item.ID = uuid.New()
		item.PrescriptionID = p.ID
		item.Position = i + 1
		_, err := connFor(ctx, r.pool).Exec(ctx, `
			INSERT INTO prescription_item (id, prescription_id, medication_id, position,
				dosage, route, frequency, duration, instructions, allow_outside_purchase)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			item.ID, p.ID, item.MedicationID, item.Position,
			item.Dosage, item.Route, item.Frequency, item.Duration,
			item.Instructions, item.AllowOutsidePurchase)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *repoPG) loadItems(ctx context.Context, prescriptionIDs []uuid.UUID) (map[uuid.UUID][]Item, error) {
	rows, err := connFor(ctx, r.pool).Query(ctx, `
		SELECT i.id, i.prescription_id, i.medication_id, m.name, i.position,
			i.dosage, i.route, i.frequency, i.duration, i.instructions, i.allow_outside_purchase
		FROM prescription_item i
		JOIN medication m ON m.id = i.medication_id
		WHERE i.prescription_id = ANY($1)
		ORDER BY i.position`, prescriptionIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make(map[uuid.UUID][]Item)
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.PrescriptionID, &it.MedicationID, &it.MedicationName,
			&it.Position, &it.Dosage, &it.Route, &it.Frequency, &it.Duration,
			&it.Instructions, &it.AllowOutsidePurchase); err != nil {
			return nil, err
		}
		items[it.PrescriptionID] = append(items[it.PrescriptionID], it)
	}
	return items, rows.Err()
}

func (r *repoPG) Create(ctx context.Context, p *Prescription) error {
	return db.WithTx(ctx, r.pool, func(ctx context.Context) error {
		p.ID = uuid.New()
		err := connFor(ctx, r.pool).QueryRow(ctx, `
			INSERT INTO prescription (id, visit_id, template_id, number, notes, previous_version_id)
			VALUES ($1, $2, $3, 'RX-' || lpad(nextval('prescription_number_seq')::text, 6, '0'), $4, $5)
			RETURNING number, created_at, updated_at`,
			p.ID, p.VisitID, p.TemplateID, p.Notes, p.PreviousVersionID,
		).Scan(&p.Number, &p.CreatedAt, &p.UpdatedAt)
		if err != nil {
			return err
		}
		return r.insertItems(ctx, p)
	})
}

func (r *repoPG) GetByID(ctx context.Context, doctorID, id uuid.UUID) (*Prescription, error) {
	p, err := scanPrescription(connFor(ctx, r.pool).QueryRow(ctx, `
		SELECT `+prescriptionCols+` FROM prescription pr
		WHERE pr.id = $1 AND pr.visit_id IN (`+ownedVisit+`$2)`, id, doctorID))
	if err != nil {
		return nil, err
	}
	items, err := r.loadItems(ctx, []uuid.UUID{p.ID})
	if err != nil {
		return nil, err
	}
	p.Items = items[p.ID]
	return p, nil
}

func (r *repoPG) Update(ctx context.Context, doctorID uuid.UUID, p *Prescription) error {
	return db.WithTx(ctx, r.pool, func(ctx context.Context) error {
		tag, err := connFor(ctx, r.pool).Exec(ctx, `
			UPDATE prescription SET notes=$3, updated_at=NOW()
			WHERE id = $1 AND visit_id IN (`+ownedVisit+`$2)`,
			p.ID, doctorID, p.Notes)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return pgx.ErrNoRows
		}
		if _, err := connFor(ctx, r.pool).Exec(ctx,
			`DELETE FROM prescription_item WHERE prescription_id = $1`, p.ID); err != nil {
			return err
		}
		return r.insertItems(ctx, p)
	})
}

func (r *repoPG) Delete(ctx context.Context, doctorID, id uuid.UUID) error {
	tag, err := connFor(ctx, r.pool).Exec(ctx, `
		DELETE FROM prescription
		WHERE id = $1 AND visit_id IN (`+ownedVisit+`$2)`, id, doctorID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *repoPG) List(ctx context.Context, doctorID uuid.UUID, filter ListFilter, limit, offset int) ([]*Prescription, int, error) {
	where := ` FROM prescription pr
		JOIN visit v ON v.id = pr.visit_id
		JOIN patient p ON p.id = v.patient_id
		WHERE p.doctor_id = $1`
	args := []interface{}{doctorID}
	idx := 2

	if filter.VisitID != nil {
		where += fmt.Sprintf(` AND pr.visit_id = $%d`, idx)
		args = append(args, *filter.VisitID)
		idx++
	}
	if filter.PatientID != nil {
		where += fmt.Sprintf(` AND v.patient_id = $%d`, idx)
		args = append(args, *filter.PatientID)
		idx++
	}

	var total int
	if err := connFor(ctx, r.pool).QueryRow(ctx, `SELECT COUNT(*)`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	sql := fmt.Sprintf(`SELECT %s%s ORDER BY pr.created_at DESC LIMIT $%d OFFSET $%d`,
		prescriptionCols, where, idx, idx+1)
	rows, err := connFor(ctx, r.pool).Query(ctx, sql, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var prescriptions []*Prescription
	var ids []uuid.UUID
	for rows.Next() {
		p, err := scanPrescription(rows)
		if err != nil {
			return nil, 0, err
		}
		prescriptions = append(prescriptions, p)
		ids = append(ids, p.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	if len(ids) > 0 {
		items, err := r.loadItems(ctx, ids)
		if err != nil {
			return nil, 0, err
		}
		for _, p := range prescriptions {
			p.Items = items[p.ID]
		}
	}
	return prescriptions, total, nil
}

func (r *repoPG) SetGenerated(ctx context.Context, doctorID, id uuid.UUID, at time.Time) error {
	tag, err := connFor(ctx, r.pool).Exec(ctx, `
		UPDATE prescription SET generated_at=$3, updated_at=NOW()
		WHERE id = $1 AND generated_at IS NULL
		AND visit_id IN (`+ownedVisit+`$2)`, id, doctorID, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *repoPG) Versions(ctx context.Context, doctorID, id uuid.UUID) ([]*Prescription, error) {
	rows, err := connFor(ctx, r.pool).Query(ctx, `
		WITH RECURSIVE chain AS (
			SELECT `+prescriptionCols+` FROM prescription pr
			WHERE pr.id = $1 AND pr.visit_id IN (`+ownedVisit+`$2)
			UNION
			SELECT `+prescriptionCols+` FROM prescription pr
			JOIN chain c ON pr.id = c.previous_version_id
				OR pr.previous_version_id = c.id
		)
		SELECT * FROM chain ORDER BY created_at ASC`, id, doctorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []*Prescription
	var ids []uuid.UUID
	for rows.Next() {
		p, err := scanPrescription(rows)
		if err != nil {
			return nil, err
		}
		versions = append(versions, p)
		ids = append(ids, p.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(versions) == 0 {
		return nil, pgx.ErrNoRows
	}

	items, err := r.loadItems(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, p := range versions {
		p.Items = items[p.ID]
	}
	return versions, nil
}
