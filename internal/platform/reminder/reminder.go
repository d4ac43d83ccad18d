// Package reminder sends day-before SMS reminders for upcoming
// appointments on a fixed evening schedule.
package reminder

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinicflow/clinicflow/internal/platform/i18n"
	"github.com/clinicflow/clinicflow/internal/platform/sms"
)

// Upcoming is an appointment due for a reminder.
type Upcoming struct {
	AppointmentID uuid.UUID
	PatientName   string
	PatientPhone  string
	DoctorName    string
	ScheduledAt   time.Time
	Locale        string
}

// Source lists appointments needing reminders and records delivery, so
// the same appointment is never texted twice.
type Source interface {
	ListUnsent(ctx context.Context, from, to time.Time) ([]*Upcoming, error)
	MarkSent(ctx context.Context, appointmentID uuid.UUID) error
}

// Sweeper runs the daily reminder pass.
type Sweeper struct {
	source     Source
	sender     sms.Sender
	tr         *i18n.Translator
	clinicName string
	loc        *time.Location
	logger     zerolog.Logger
	now        func() time.Time
}

func NewSweeper(source Source, sender sms.Sender, tr *i18n.Translator, clinicName string, loc *time.Location, logger zerolog.Logger) *Sweeper {
	return &Sweeper{
		source:     source,
		sender:     sender,
		tr:         tr,
		clinicName: clinicName,
		loc:        loc,
		logger:     logger,
		now:        time.Now,
	}
}

// Start schedules the sweep at 17:00 clinic time every day and returns
// the scheduler so the caller can stop it on shutdown.
func (s *Sweeper) Start() *gocron.Scheduler {
	scheduler := gocron.NewScheduler(s.loc)

	_, err := scheduler.Every(1).Day().At("17:00").Do(func() {
		if err := s.Run(context.Background()); err != nil {
			s.logger.Error().Err(err).Msg("reminder sweep failed")
		}
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to schedule reminder sweep")
		return scheduler
	}

	scheduler.StartAsync()
	s.logger.Info().Str("at", "17:00").Msg("reminder sweep scheduled")
	return scheduler
}

// Run sends reminders for every appointment scheduled tomorrow that has
// not been reminded yet. Failures on individual messages are logged and
// skipped so one bad number never blocks the rest of the batch.
func (s *Sweeper) Run(ctx context.Context) error {
	now := s.now().In(s.loc)
	tomorrow := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc).AddDate(0, 0, 1)
	dayAfter := tomorrow.AddDate(0, 0, 1)

	due, err := s.source.ListUnsent(ctx, tomorrow, dayAfter)
	if err != nil {
		return err
	}

	sent := 0
	for _, appt := range due {
		phone, err := sms.NormalizeDRC(appt.PatientPhone)
		if err != nil {
			s.logger.Warn().
				Str("appointment_id", appt.AppointmentID.String()).
				Msg("skipping reminder: patient has no usable phone number")
			continue
		}

		locale := appt.Locale
		if locale == "" {
			locale = s.tr.DefaultLocale()
		}
		at := appt.ScheduledAt.In(s.loc)
		message := s.tr.Tf(locale, "sms.reminder", map[string]interface{}{
			"Doctor": appt.DoctorName,
			"Date":   at.Format("02/01/2006"),
			"Time":   at.Format("15:04"),
			"Clinic": s.clinicName,
		})

		if err := s.sender.Send(ctx, phone, message); err != nil {
			s.logger.Error().Err(err).
				Str("appointment_id", appt.AppointmentID.String()).
				Str("to", sms.Mask(phone)).
				Msg("failed to send reminder")
			continue
		}

		if err := s.source.MarkSent(ctx, appt.AppointmentID); err != nil {
			s.logger.Error().Err(err).
				Str("appointment_id", appt.AppointmentID.String()).
				Msg("failed to mark reminder as sent")
			continue
		}
		sent++
	}

	s.logger.Info().
		Int("due", len(due)).
		Int("sent", sent).
		Time("window_start", tomorrow).
		Msg("reminder sweep complete")
	return nil
}
