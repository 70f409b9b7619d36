package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const refreshAlarmName = "profile-refresh"

// RefreshScheduler drives the fixed-cadence fetch-and-evaluate cycle.
// Trigger times are aligned to a fixed-width slot grid anchored at the epoch,
// not "now + interval", so repeated rescheduling never drifts.
type RefreshScheduler struct {
	alarms   *Alarms
	clock    Clock
	interval time.Duration
	cycle    func(ctx context.Context)

	// wg keeps the process alive until an in-flight cycle finishes; the
	// release happens in the same cleanup step as the reschedule.
	wg sync.WaitGroup
}

func NewRefreshScheduler(alarms *Alarms, clock Clock, slotMinutes int, cycle func(ctx context.Context)) *RefreshScheduler {
	return &RefreshScheduler{
		alarms:   alarms,
		clock:    clock,
		interval: time.Duration(slotMinutes) * time.Minute,
		cycle:    cycle,
	}
}

// NextSlot computes the start of the next slot strictly after now.
func NextSlot(now time.Time, interval time.Duration) time.Time {
	intervalMs := interval.Milliseconds()
	slotIndex := now.UnixMilli()/intervalMs + 1
	return time.UnixMilli(slotIndex * intervalMs)
}

// ScheduleNext arms the wake for the next slot boundary. Called on startup
// (the boot-recovery re-arm, since registrations do not survive the process)
// and again after every fire.
func (s *RefreshScheduler) ScheduleNext() {
	at := NextSlot(s.clock.Now(), s.interval)
	if err := s.alarms.ScheduleAt(refreshAlarmName, at, s.fire); err != nil {
		slog.Error("Failed to schedule profile refresh", "error", err)
		return
	}
	slog.Debug("Profile refresh scheduled", "at", at)
}

// fire runs one cycle off the alarm goroutine. The reschedule is
// unconditional: a failed fetch must not break the cadence.
func (s *RefreshScheduler) fire() {
	s.wg.Add(1)
	go func() {
		defer func() {
			s.ScheduleNext()
			s.wg.Done()
		}()
		s.cycle(context.Background())
	}()
}

// Stop cancels the pending wake and waits for any in-flight cycle.
func (s *RefreshScheduler) Stop() {
	s.alarms.Cancel(refreshAlarmName)
	s.wg.Wait()
}
