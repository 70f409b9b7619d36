package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jinjinmory/wuwa-tracker-go/internal/alerts"
)

const reminderAlarmName = "activity-reminder"

// ReminderScheduler arms the daily activity reminder at the configured
// hour:minute, rolling over to tomorrow when that time has already passed.
// An invalid or disabled config cancels the alarm.
type ReminderScheduler struct {
	alarms *Alarms
	clock  Clock
	config func() (alerts.ReminderConfig, error)
	task   func(ctx context.Context)

	wg sync.WaitGroup
}

func NewReminderScheduler(alarms *Alarms, clock Clock, config func() (alerts.ReminderConfig, error), task func(ctx context.Context)) *ReminderScheduler {
	return &ReminderScheduler{
		alarms: alarms,
		clock:  clock,
		config: config,
		task:   task,
	}
}

// NextDaily computes the next occurrence of hour:minute strictly after now.
func NextDaily(now time.Time, hour, minute int) time.Time {
	at := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !at.After(now) {
		at = at.AddDate(0, 0, 1)
	}
	return at
}

// Reschedule re-reads the stored config and arms or cancels accordingly.
func (s *ReminderScheduler) Reschedule() {
	cfg, err := s.config()
	if err != nil {
		slog.Error("Failed to read reminder config", "error", err)
		return
	}
	if !cfg.Valid() {
		s.alarms.Cancel(reminderAlarmName)
		return
	}

	at := NextDaily(s.clock.Now(), cfg.Hour, cfg.Minute)
	if err := s.alarms.ScheduleAt(reminderAlarmName, at, s.fire); err != nil {
		slog.Error("Failed to schedule activity reminder", "error", err)
		return
	}
	slog.Debug("Activity reminder scheduled", "at", at)
}

func (s *ReminderScheduler) fire() {
	s.wg.Add(1)
	go func() {
		defer func() {
			s.Reschedule()
			s.wg.Done()
		}()
		s.task(context.Background())
	}()
}

func (s *ReminderScheduler) Stop() {
	s.alarms.Cancel(reminderAlarmName)
	s.wg.Wait()
}
