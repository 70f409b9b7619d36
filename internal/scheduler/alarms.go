package scheduler

import (
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
)

// Alarms is the platform alarm surface: named one-shot wake registrations
// with schedule-at, fire-once, cancel semantics. Scheduling a name that is
// already armed replaces the previous registration.
type Alarms struct {
	scheduler gocron.Scheduler

	mu   sync.Mutex
	jobs map[string]uuid.UUID
}

func NewAlarms() (*Alarms, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}
	s.Start()

	return &Alarms{
		scheduler: s,
		jobs:      make(map[string]uuid.UUID),
	}, nil
}

func (a *Alarms) ScheduleAt(name string, at time.Time, fn func()) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if id, ok := a.jobs[name]; ok {
		_ = a.scheduler.RemoveJob(id)
		delete(a.jobs, name)
	}

	job, err := a.scheduler.NewJob(
		gocron.OneTimeJob(gocron.OneTimeJobStartDateTime(at)),
		gocron.NewTask(fn),
		gocron.WithName(name),
	)
	if err != nil {
		return fmt.Errorf("failed to arm alarm %s: %w", name, err)
	}

	a.jobs[name] = job.ID()
	return nil
}

func (a *Alarms) Cancel(name string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if id, ok := a.jobs[name]; ok {
		_ = a.scheduler.RemoveJob(id)
		delete(a.jobs, name)
	}
}

func (a *Alarms) Shutdown() error {
	return a.scheduler.Shutdown()
}
