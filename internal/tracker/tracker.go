package tracker

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jinjinmory/wuwa-tracker-go/internal/alerts"
	"github.com/jinjinmory/wuwa-tracker-go/internal/config"
	"github.com/jinjinmory/wuwa-tracker-go/internal/database"
	"github.com/jinjinmory/wuwa-tracker-go/internal/kuro"
	"github.com/jinjinmory/wuwa-tracker-go/internal/notify"
	"github.com/jinjinmory/wuwa-tracker-go/internal/profile"
	"github.com/jinjinmory/wuwa-tracker-go/internal/scheduler"
	"github.com/jinjinmory/wuwa-tracker-go/internal/snapshot"
	"github.com/jinjinmory/wuwa-tracker-go/internal/web"
)

// Fetcher is the slice of the kuro client the tracker needs; tests swap in
// a stub.
type Fetcher interface {
	FetchProfile(ctx context.Context, authKey, uid, region string) (*kuro.Snapshot, error)
}

// Tracker wires the stores, fetch client, alert engine, schedulers and web
// surface together and owns their lifecycle.
type Tracker struct {
	config *config.Config

	db        *database.DB
	profiles  *profile.Store
	snapshots *snapshot.Store
	alerts    *alerts.Store
	engine    *alerts.Engine
	notifier  *notify.Manager
	client    Fetcher

	alarms    *scheduler.Alarms
	refresh   *scheduler.RefreshScheduler
	reminder  *scheduler.ReminderScheduler
	webServer *web.Server

	stopChan chan struct{}
}

func New(cfg *config.Config) *Tracker {
	return &Tracker{
		config:   cfg,
		stopChan: make(chan struct{}),
	}
}

func (t *Tracker) Run() error {
	if err := t.initialize(); err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	t.notifier.Start(context.Background())

	if t.webServer != nil {
		t.webServer.Start()
	}

	// Boot recovery: any wake registration from a previous process is
	// gone, so re-arm both schedules from now.
	t.refresh.ScheduleNext()
	t.reminder.Reschedule()

	slog.Info("Tracker running",
		"slotMinutes", t.config.Refresh.SlotMinutes,
		"endpoint", t.config.Endpoint,
	)

	// One immediate cycle so the UI has data before the first slot fires.
	go func() {
		if err := t.RunCycle(context.Background()); err != nil {
			slog.Warn("Initial refresh failed", "error", err)
		}
	}()

	t.waitForShutdown()
	return nil
}

func (t *Tracker) initialize() error {
	slog.Info("Initializing Wuwa tracker")

	db, err := database.Open(t.config.DataDir)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	t.db = db

	t.profiles, err = profile.NewStore(db, t.config.DataDir)
	if err != nil {
		return err
	}

	t.snapshots, err = snapshot.NewStore(db)
	if err != nil {
		return err
	}

	t.alerts, err = alerts.NewStore(db)
	if err != nil {
		return err
	}

	// Removing a profile cascades into alert state and the cached snapshot.
	t.profiles.OnRemove(t.alerts.RemoveProfileState)
	t.profiles.OnRemove(t.snapshots.Clear)

	if err := t.profiles.MigrateLegacy(t.config.DataDir); err != nil {
		slog.Warn("Legacy settings migration had errors", "error", err)
	}

	t.notifier = notify.NewManager(t.config.Discord)
	t.engine = alerts.NewEngine(t.alerts, t.notifier)
	t.client = kuro.NewClient(t.config.Endpoint, t.config.Refresh)

	t.alarms, err = scheduler.NewAlarms()
	if err != nil {
		return err
	}
	clock := scheduler.NewClock()
	t.refresh = scheduler.NewRefreshScheduler(t.alarms, clock, t.config.Refresh.SlotMinutes, func(ctx context.Context) {
		if err := t.RunCycle(ctx); err != nil {
			slog.Debug("Background refresh cycle skipped", "error", err)
		}
	})
	t.reminder = scheduler.NewReminderScheduler(t.alarms, clock, t.alerts.Reminder, t.runReminder)

	if t.config.Web.Enabled {
		t.webServer = web.NewServer(t.config.Web, web.Deps{
			Profiles:        t.profiles,
			Snapshots:       t.snapshots,
			Alerts:          t.alerts,
			RunCycle:        t.RunCycle,
			RescheduleDaily: t.reminder.Reschedule,
			SlotMinutes:     t.config.Refresh.SlotMinutes,
		})
	}

	return nil
}

func (t *Tracker) waitForShutdown() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received shutdown signal", "signal", sig)
	case <-t.stopChan:
	}

	t.shutdown()
}

// Stop triggers a shutdown from outside the signal path.
func (t *Tracker) Stop() {
	close(t.stopChan)
}

func (t *Tracker) shutdown() {
	slog.Info("Shutting down")

	t.refresh.Stop()
	t.reminder.Stop()
	if err := t.alarms.Shutdown(); err != nil {
		slog.Error("Failed to shut down alarms", "error", err)
	}

	if t.webServer != nil {
		t.webServer.Stop()
	}

	t.notifier.Stop()

	if err := t.db.Close(); err != nil {
		slog.Error("Failed to close database", "error", err)
	}
}
