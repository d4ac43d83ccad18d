// Package appointment implements bookings with transactional overlap
// checking and SMS reminder tracking.
package appointment

import (
	"time"

	"github.com/google/uuid"
)

const (
	StatusScheduled = "SCHEDULED"
	StatusCheckedIn = "CHECKED_IN"
	StatusCompleted = "COMPLETED"
	StatusCancelled = "CANCELLED"
	StatusNoShow    = "NO_SHOW"
)

var validStatuses = map[string]bool{
	StatusScheduled: true,
	StatusCheckedIn: true,
	StatusCompleted: true,
	StatusCancelled: true,
	StatusNoShow:    true,
}

// Appointment is a booked slot for one patient. VisitID links the
// consultation created when the patient is seen.
type Appointment struct {
	ID               uuid.UUID  `json:"id"`
	PatientID        uuid.UUID  `json:"patient_id"`
	VisitID          *uuid.UUID `json:"visit_id"`
	ScheduledAt      time.Time  `json:"scheduled_at"`
	DurationMinutes  int        `json:"duration_minutes"`
	Reason           string     `json:"reason"`
	Status           string     `json:"status"`
	Notes            string     `json:"notes"`
	RemindersEnabled bool       `json:"reminders_enabled"`
	ReminderSentAt   *time.Time `json:"reminder_sent_at"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// EndsAt is the exclusive end of the booked slot.
func (a *Appointment) EndsAt() time.Time {
	return a.ScheduledAt.Add(time.Duration(a.DurationMinutes) * time.Minute)
}

// Blocking reports whether the appointment occupies its slot.
// Cancelled and no-show appointments do not block new bookings.
func (a *Appointment) Blocking() bool {
	return a.Status != StatusCancelled && a.Status != StatusNoShow
}

// Overlaps tests the half-open intervals [start, end) of both
// appointments. Back-to-back bookings do not overlap.
func (a *Appointment) Overlaps(other *Appointment) bool {
	return a.ScheduledAt.Before(other.EndsAt()) && other.ScheduledAt.Before(a.EndsAt())
}
