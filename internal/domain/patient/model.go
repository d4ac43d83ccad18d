package patient

import (
	"time"

	"github.com/google/uuid"
)

// Patient is a person in the practice's register. The code is a stable
// human-facing identifier (PT-000042) assigned at creation and never
// reused.
type Patient struct {
	ID          uuid.UUID `db:"id" json:"id"`
	DoctorID    uuid.UUID `db:"doctor_id" json:"-"`
	Code        string    `db:"code" json:"code"`
	FirstName   string    `db:"first_name" json:"first_name"`
	LastName    string    `db:"last_name" json:"last_name"`
	Sex         string    `db:"sex" json:"sex"`
	DateOfBirth time.Time `db:"date_of_birth" json:"date_of_birth"`
	Phone       *string   `db:"phone" json:"phone,omitempty"`
	Email       *string   `db:"email" json:"email,omitempty"`
	Address     string    `db:"address" json:"address"`
	IsActive    bool      `db:"is_active" json:"is_active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`

	// List annotations, not stored columns.
	LastVisitAt *time.Time `db:"-" json:"last_visit_at,omitempty"`
	NextVisitAt *time.Time `db:"-" json:"next_visit_at,omitempty"`
}

func (p *Patient) FullName() string {
	return p.FirstName + " " + p.LastName
}

// AgeAt returns the patient's age in whole years at the given time.
func (p *Patient) AgeAt(at time.Time) int {
	years := at.Year() - p.DateOfBirth.Year()
	if at.YearDay() < p.DateOfBirth.YearDay() {
		years--
	}
	if years < 0 {
		return 0
	}
	return years
}

var validSexes = map[string]bool{"M": true, "F": true}
