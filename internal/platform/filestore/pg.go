package filestore

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const fileCols = `id, patient_id, doctor_id, file_name, content_type, size, category, description, hash, created_at`

// PGStore persists patient files in Postgres, with the content held in a
// bytea column alongside the metadata.
type PGStore struct {
	pool    *pgxpool.Pool
	maxSize int64
}

func NewPGStore(pool *pgxpool.Pool, maxSize int64) *PGStore {
	return &PGStore{pool: pool, maxSize: maxSize}
}

func scanFileMeta(row pgx.Row) (*FileMetadata, error) {
	var m FileMetadata
	err := row.Scan(&m.ID, &m.PatientID, &m.DoctorID, &m.FileName, &m.ContentType,
		&m.Size, &m.Category, &m.Description, &m.Hash, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *PGStore) Save(ctx context.Context, meta FileMetadata, content io.Reader) (*FileMetadata, error) {
	data, err := validate(&meta, content, s.maxSize)
	if err != nil {
		return nil, err
	}

	h := sha256.Sum256(data)
	meta.ID = uuid.New()
	meta.Size = int64(len(data))
	meta.Hash = fmt.Sprintf("%x", h)
	meta.CreatedAt = time.Now().UTC()

	_, err = s.pool.Exec(ctx, `
		INSERT INTO patient_file (id, patient_id, doctor_id, file_name, content_type, size, category, description, hash, content, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		meta.ID, meta.PatientID, meta.DoctorID, meta.FileName, meta.ContentType,
		meta.Size, meta.Category, meta.Description, meta.Hash, data, meta.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert patient file: %w", err)
	}

	out := meta
	return &out, nil
}

func (s *PGStore) Open(ctx context.Context, doctorID, id uuid.UUID) (io.ReadCloser, *FileMetadata, error) {
	var m FileMetadata
	var content []byte
	err := s.pool.QueryRow(ctx, `
		SELECT `+fileCols+`, content FROM patient_file
		WHERE id = $1 AND doctor_id = $2`, id, doctorID,
	).Scan(&m.ID, &m.PatientID, &m.DoctorID, &m.FileName, &m.ContentType,
		&m.Size, &m.Category, &m.Description, &m.Hash, &m.CreatedAt, &content)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, ErrFileNotFound
		}
		return nil, nil, fmt.Errorf("get patient file: %w", err)
	}

	return io.NopCloser(bytes.NewReader(content)), &m, nil
}

func (s *PGStore) Delete(ctx context.Context, doctorID, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM patient_file WHERE id = $1 AND doctor_id = $2`, id, doctorID)
	if err != nil {
		return fmt.Errorf("delete patient file: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrFileNotFound
	}
	return nil
}

func (s *PGStore) ListByPatient(ctx context.Context, doctorID, patientID uuid.UUID, category string, limit, offset int) ([]*FileMetadata, int, error) {
	if limit <= 0 {
		limit = 10
	}

	where := `WHERE doctor_id = $1 AND patient_id = $2`
	args := []interface{}{doctorID, patientID}
	if category != "" {
		where += ` AND category = $3`
		args = append(args, category)
	}

	var total int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM patient_file `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count patient files: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM patient_file %s ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d`,
		fileCols, where, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list patient files: %w", err)
	}
	defer rows.Close()

	var files []*FileMetadata
	for rows.Next() {
		m, err := scanFileMeta(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan patient file: %w", err)
		}
		files = append(files, m)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return files, total, nil
}
