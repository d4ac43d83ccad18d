package reminder

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinicflow/clinicflow/internal/platform/i18n"
)

type mockSource struct {
	upcoming []*Upcoming
	sent     map[uuid.UUID]bool
	listErr  error
}

func (m *mockSource) ListUnsent(_ context.Context, from, to time.Time) ([]*Upcoming, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var due []*Upcoming
	for _, u := range m.upcoming {
		if !u.ScheduledAt.Before(from) && u.ScheduledAt.Before(to) && !m.sent[u.AppointmentID] {
			due = append(due, u)
		}
	}
	return due, nil
}

func (m *mockSource) MarkSent(_ context.Context, id uuid.UUID) error {
	if m.sent == nil {
		m.sent = make(map[uuid.UUID]bool)
	}
	m.sent[id] = true
	return nil
}

type mockSender struct {
	messages map[string]string // phone -> message
	failFor  string
}

func (m *mockSender) Send(_ context.Context, to, message string) error {
	if to == m.failFor {
		return fmt.Errorf("gateway rejected %s", to)
	}
	if m.messages == nil {
		m.messages = make(map[string]string)
	}
	m.messages[to] = message
	return nil
}

func newTestSweeper(source Source, sender *mockSender) *Sweeper {
	tr := i18n.New("fr")
	s := NewSweeper(source, sender, tr, "Cabinet Dr. Kalonji", time.UTC, zerolog.New(os.Stderr))
	s.now = func() time.Time {
		return time.Date(2026, 3, 14, 17, 0, 0, 0, time.UTC)
	}
	return s
}

func TestRun_SendsDayBeforeReminders(t *testing.T) {
	tomorrow := time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC)
	appt := &Upcoming{
		AppointmentID: uuid.New(),
		PatientName:   "Amina Mbala",
		PatientPhone:  "0812345678",
		DoctorName:    "Dr. Kalonji",
		ScheduledAt:   tomorrow,
		Locale:        "fr",
	}
	source := &mockSource{upcoming: []*Upcoming{appt}, sent: map[uuid.UUID]bool{}}
	sender := &mockSender{}

	if err := newTestSweeper(source, sender).Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	msg, ok := sender.messages["+243812345678"]
	if !ok {
		t.Fatal("expected reminder sent to normalized number")
	}
	if !strings.Contains(msg, "Dr. Kalonji") || !strings.Contains(msg, "15/03/2026") || !strings.Contains(msg, "10:30") {
		t.Errorf("unexpected message: %q", msg)
	}
	if !source.sent[appt.AppointmentID] {
		t.Error("expected appointment marked as reminded")
	}
}

func TestRun_SkipsAppointmentsOutsideWindow(t *testing.T) {
	today := time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC)
	nextWeek := time.Date(2026, 3, 21, 9, 0, 0, 0, time.UTC)
	source := &mockSource{
		upcoming: []*Upcoming{
			{AppointmentID: uuid.New(), PatientPhone: "0812345678", ScheduledAt: today},
			{AppointmentID: uuid.New(), PatientPhone: "0812345679", ScheduledAt: nextWeek},
		},
		sent: map[uuid.UUID]bool{},
	}
	sender := &mockSender{}

	if err := newTestSweeper(source, sender).Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sender.messages) != 0 {
		t.Errorf("expected no reminders outside the day-before window, got %d", len(sender.messages))
	}
}

func TestRun_SkipsInvalidPhone(t *testing.T) {
	tomorrow := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	bad := &Upcoming{AppointmentID: uuid.New(), PatientPhone: "not-a-number", ScheduledAt: tomorrow}
	good := &Upcoming{AppointmentID: uuid.New(), PatientPhone: "0812345678", ScheduledAt: tomorrow}
	source := &mockSource{upcoming: []*Upcoming{bad, good}, sent: map[uuid.UUID]bool{}}
	sender := &mockSender{}

	if err := newTestSweeper(source, sender).Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(sender.messages) != 1 {
		t.Fatalf("expected exactly 1 reminder, got %d", len(sender.messages))
	}
	if source.sent[bad.AppointmentID] {
		t.Error("appointment with bad phone must not be marked sent")
	}
	if !source.sent[good.AppointmentID] {
		t.Error("expected valid appointment marked sent")
	}
}

func TestRun_SendFailureDoesNotMarkSent(t *testing.T) {
	tomorrow := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	appt := &Upcoming{AppointmentID: uuid.New(), PatientPhone: "0812345678", ScheduledAt: tomorrow}
	source := &mockSource{upcoming: []*Upcoming{appt}, sent: map[uuid.UUID]bool{}}
	sender := &mockSender{failFor: "+243812345678"}

	if err := newTestSweeper(source, sender).Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if source.sent[appt.AppointmentID] {
		t.Error("failed delivery must leave the appointment eligible for retry")
	}
}

func TestRun_PropagatesListError(t *testing.T) {
	source := &mockSource{listErr: fmt.Errorf("db down")}
	if err := newTestSweeper(source, &mockSender{}).Run(context.Background()); err == nil {
		t.Fatal("expected error from source")
	}
}
