// Package filestore stores documents attached to patient records: lab
// results, imaging, scanned prescriptions, consent forms, and insurance
// paperwork. It defines the Store interface, an in-memory implementation
// for tests and development, and a Postgres-backed implementation.
package filestore

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrFileNotFound    = errors.New("file not found")
	ErrFileTooLarge    = errors.New("file exceeds maximum allowed size")
	ErrInvalidCategory = errors.New("file category is not allowed")
	ErrMissingFileName = errors.New("file name is required")
)

// AllowedCategories lists valid file category values.
var AllowedCategories = map[string]bool{
	"lab_result":   true,
	"imaging":      true,
	"prescription": true,
	"consent":      true,
	"insurance":    true,
	"other":        true,
}

// FileMetadata describes a stored patient file.
type FileMetadata struct {
	ID          uuid.UUID `json:"id"`
	PatientID   uuid.UUID `json:"patient_id"`
	DoctorID    uuid.UUID `json:"doctor_id"`
	FileName    string    `json:"file_name"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	Category    string    `json:"category"`
	Description string    `json:"description,omitempty"`
	Hash        string    `json:"hash"`
	CreatedAt   time.Time `json:"created_at"`
}

// Store is the contract for patient file storage backends. All reads are
// scoped by doctor so one account can never reach another's files.
type Store interface {
	Save(ctx context.Context, meta FileMetadata, content io.Reader) (*FileMetadata, error)
	Open(ctx context.Context, doctorID, id uuid.UUID) (io.ReadCloser, *FileMetadata, error)
	Delete(ctx context.Context, doctorID, id uuid.UUID) error
	ListByPatient(ctx context.Context, doctorID, patientID uuid.UUID, category string, limit, offset int) ([]*FileMetadata, int, error)
}

// validate checks metadata and reads the content up to maxSize bytes.
func validate(meta *FileMetadata, content io.Reader, maxSize int64) ([]byte, error) {
	if meta.FileName == "" {
		return nil, ErrMissingFileName
	}
	if meta.Category == "" {
		meta.Category = "other"
	}
	if !AllowedCategories[meta.Category] {
		return nil, ErrInvalidCategory
	}

	data, err := io.ReadAll(io.LimitReader(content, maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading content: %w", err)
	}
	if int64(len(data)) > maxSize {
		return nil, ErrFileTooLarge
	}
	return data, nil
}

type storedFile struct {
	metadata FileMetadata
	content  []byte
}

// InMemoryStore is a thread-safe, in-memory Store for testing and dev.
type InMemoryStore struct {
	mu      sync.RWMutex
	files   map[uuid.UUID]*storedFile
	maxSize int64
	now     func() time.Time
}

// NewInMemoryStore returns a ready-to-use InMemoryStore holding at most
// maxSize bytes per file.
func NewInMemoryStore(maxSize int64) *InMemoryStore {
	return &InMemoryStore{
		files:   make(map[uuid.UUID]*storedFile),
		maxSize: maxSize,
		now:     time.Now,
	}
}

func (s *InMemoryStore) Save(_ context.Context, meta FileMetadata, content io.Reader) (*FileMetadata, error) {
	data, err := validate(&meta, content, s.maxSize)
	if err != nil {
		return nil, err
	}

	h := sha256.Sum256(data)
	meta.ID = uuid.New()
	meta.Size = int64(len(data))
	meta.Hash = fmt.Sprintf("%x", h)
	meta.CreatedAt = s.now().UTC()

	s.mu.Lock()
	s.files[meta.ID] = &storedFile{metadata: meta, content: data}
	s.mu.Unlock()

	out := meta
	return &out, nil
}

func (s *InMemoryStore) Open(_ context.Context, doctorID, id uuid.UUID) (io.ReadCloser, *FileMetadata, error) {
	s.mu.RLock()
	f, ok := s.files[id]
	s.mu.RUnlock()

	if !ok || f.metadata.DoctorID != doctorID {
		return nil, nil, ErrFileNotFound
	}

	meta := f.metadata
	return io.NopCloser(bytes.NewReader(f.content)), &meta, nil
}

func (s *InMemoryStore) Delete(_ context.Context, doctorID, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.files[id]
	if !ok || f.metadata.DoctorID != doctorID {
		return ErrFileNotFound
	}
	delete(s.files, id)
	return nil
}

func (s *InMemoryStore) ListByPatient(_ context.Context, doctorID, patientID uuid.UUID, category string, limit, offset int) ([]*FileMetadata, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*FileMetadata
	for _, f := range s.files {
		if f.metadata.DoctorID != doctorID || f.metadata.PatientID != patientID {
			continue
		}
		if category != "" && f.metadata.Category != category {
			continue
		}
		m := f.metadata
		matched = append(matched, &m)
	}

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID.String() < matched[j].ID.String()
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	if limit <= 0 {
		limit = 10
	}
	if offset > len(matched) {
		offset = len(matched)
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}

	return matched[offset:end], total, nil
}
