package account

import (
	"time"

	"github.com/google/uuid"
)

// Doctor is the practice owner. All clinical records hang off a doctor
// account and are invisible to every other account.
type Doctor struct {
	ID             uuid.UUID `db:"id" json:"id"`
	Email          string    `db:"email" json:"email"`
	PasswordHash   string    `db:"password_hash" json:"-"`
	FirstName      string    `db:"first_name" json:"first_name"`
	LastName       string    `db:"last_name" json:"last_name"`
	Specialization *string   `db:"specialization" json:"specialization,omitempty"`
	LicenseNumber  *string   `db:"license_number" json:"license_number,omitempty"`
	Phone          *string   `db:"phone" json:"phone,omitempty"`
	Locale         string    `db:"locale" json:"locale"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// FullName returns the doctor's display name for documents and SMS.
func (d *Doctor) FullName() string {
	return "Dr. " + d.FirstName + " " + d.LastName
}

// Availability slot types.
const (
	SlotMorning     = "morning"
	SlotAfternoon   = "afternoon"
	SlotFullDay     = "full_day"
	SlotUnavailable = "unavailable"
)

var validSlotTypes = map[string]bool{
	SlotMorning:     true,
	SlotAfternoon:   true,
	SlotFullDay:     true,
	SlotUnavailable: true,
}

// Availability is the doctor's working pattern for a single date. One
// row per (doctor, date); setting a date again replaces the slot.
type Availability struct {
	ID        uuid.UUID `db:"id" json:"id"`
	DoctorID  uuid.UUID `db:"doctor_id" json:"-"`
	Date      time.Time `db:"date" json:"date"`
	SlotType  string    `db:"slot_type" json:"slot_type"`
	StartTime *string   `db:"start_time" json:"start_time,omitempty"`
	EndTime   *string   `db:"end_time" json:"end_time,omitempty"`
	Notes     *string   `db:"notes" json:"notes,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
