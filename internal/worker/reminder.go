package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/lifelink/donor-api/internal/email"
	"github.com/lifelink/donor-api/internal/model"
	"github.com/lifelink/donor-api/internal/repository"
	"github.com/lifelink/donor-api/internal/service/audit"
	"github.com/lifelink/donor-api/pkg/logger"
	"github.com/lifelink/donor-api/pkg/messaging"
	"github.com/lifelink/donor-api/pkg/metrics"
)

type ReminderSchedulerConfig struct {
	Window        time.Duration
	SweepInterval time.Duration
}

// ReminderScheduler sweeps donors eligible for a follow-up reminder.
// Eligibility is re-derived from the database on every run; nothing is
// cached between sweeps. Delivery is at-least-once: the reminder is
// sent before last_reminder_sent is recorded, so a crash between the
// two can produce a duplicate reminder on the next run.
type ReminderScheduler struct {
	donors  repository.DonorRepository
	router  *email.Router
	broker  messaging.Broker
	auditor audit.Recorder
	config  ReminderSchedulerConfig
	logger  *logger.Logger
	metrics *metrics.Metrics
}

func NewReminderScheduler(
	donors repository.DonorRepository,
	router *email.Router,
	broker messaging.Broker,
	auditor audit.Recorder,
	config ReminderSchedulerConfig,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) *ReminderScheduler {
	if config.Window <= 0 {
		config.Window = 90 * 24 * time.Hour
	}
	if config.SweepInterval <= 0 {
		config.SweepInterval = 24 * time.Hour
	}

	return &ReminderScheduler{
		donors:  donors,
		router:  router,
		broker:  broker,
		auditor: auditor,
		config:  config,
		logger:  logger,
		metrics: metrics,
	}
}

func (s *ReminderScheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(s.config.SweepInterval)
	defer ticker.Stop()

	s.logger.Info("starting reminder scheduler",
		"window_days", int(s.config.Window.Hours()/24),
		"sweep_interval", s.config.SweepInterval.String())

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("shutting down reminder scheduler")
			return
		case <-ticker.C:
			if _, err := s.RunOnce(ctx, time.Now()); err != nil {
				s.logger.Error(err, "reminder sweep failed")
			}
		}
	}
}

// RunOnce performs one sweep as of today and returns the number of
// reminders delivered. A failed send leaves the donor's reminder state
// untouched, so the donor remains eligible on the next sweep.
func (s *ReminderScheduler) RunOnce(ctx context.Context, today time.Time) (int, error) {
	var timer *prometheus.Timer
	if s.metrics != nil {
		timer = prometheus.NewTimer(s.metrics.SweepDuration)
		defer timer.ObserveDuration()
	}

	targetDate := today.Add(-s.config.Window)
	due, err := s.donors.ListReminderDue(ctx, targetDate)
	if err != nil {
		return 0, fmt.Errorf("failed to select reminder-due donors: %w", err)
	}
	if len(due) == 0 {
		return 0, nil
	}

	s.logger.Info("reminder sweep selected donors",
		"count", len(due),
		"target_date", targetDate.Format("2006-01-02"))

	sent := 0
	for _, d := range due {
		if ctx.Err() != nil {
			break
		}
		if s.sendReminder(ctx, d, today) {
			sent++
		}
	}

	s.logger.Info("reminder sweep finished", "eligible", len(due), "sent", sent)
	return sent, nil
}

func (s *ReminderScheduler) sendReminder(ctx context.Context, d *model.Donor, today time.Time) bool {
	body, err := email.RenderReminder(d.Name, *d.LastDonationDate, d.ReferenceCode, d.BloodType)
	if err != nil {
		s.logger.Error(err, "failed to render reminder", "donor_id", d.ID.String())
		return false
	}

	msg := &email.Message{
		To:      d.Email,
		ToName:  d.Name,
		Subject: "You are eligible to donate blood again",
		HTML:    body,
	}

	provider, err := s.router.Send(ctx, msg)
	if err != nil {
		if s.metrics != nil {
			s.metrics.RemindersFailed.Inc()
		}
		s.logger.Warn(err, "reminder delivery failed; donor stays eligible",
			"donor_id", d.ID.String())
		return false
	}

	if err := s.donors.MarkReminderSent(ctx, d.ID, today); err != nil {
		// The reminder went out but the state write failed: the donor
		// stays eligible and may receive a duplicate next sweep.
		s.logger.Error(err, "failed to record reminder state after send",
			"donor_id", d.ID.String())
		return false
	}

	if s.metrics != nil {
		s.metrics.RemindersSent.Inc()
	}

	if err := s.auditor.Record(ctx, "reminder-scheduler", model.AuditActionSend,
		model.AuditEntityReminder, d.ID.String(),
		map[string]interface{}{"provider": provider, "sent_on": today.Format("2006-01-02")}); err != nil {
		s.logger.Error(err, "failed to record reminder audit", "donor_id", d.ID.String())
	}

	if s.broker != nil {
		event := messaging.Event{
			Type: "reminder.sent",
			Payload: map[string]interface{}{
				"donor_id": d.ID.String(),
				"provider": provider,
			},
			Timestamp: time.Now().Unix(),
		}
		if err := s.broker.Publish(ctx, messaging.ChannelReminderEvents, event); err != nil {
			s.logger.Warn(err, "failed to publish reminder event", "donor_id", d.ID.String())
		}
	}

	return true
}
