package tracker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jinjinmory/wuwa-tracker-go/internal/alerts"
	"github.com/jinjinmory/wuwa-tracker-go/internal/kuro"
)

// reminderThreshold is the activity-point level below which the daily
// reminder still nags.
const reminderThreshold = 100

// RunCycle performs one fetch-and-evaluate pass for the active profile.
// Both the background wake and foreground triggers (web refresh, credential
// change) call it, possibly concurrently; the stores make that safe. A
// failure leaves cached state untouched.
func (t *Tracker) RunCycle(ctx context.Context) error {
	profileID, authKey, uid, region, err := t.resolveActiveCredentials()
	if err != nil {
		return err
	}

	snap, err := t.client.FetchProfile(ctx, authKey, uid, region)
	if err != nil {
		slog.Warn("Profile fetch failed", "profileID", profileID, "error", err)
		return err
	}

	if err := t.snapshots.Save(profileID, snap); err != nil {
		return fmt.Errorf("failed to cache snapshot: %w", err)
	}

	if err := t.engine.Evaluate(profileID, snap.Profile); err != nil {
		slog.Error("Alert evaluation failed", "profileID", profileID, "error", err)
	}

	if t.webServer != nil {
		t.webServer.PublishSnapshot(profileID, snap)
	}

	slog.Debug("Refresh cycle complete",
		"profileID", profileID,
		"waveplates", snap.Profile.WaveplatesCurrent,
	)
	return nil
}

// runReminder is the daily liveness check: a fresh fetch, then a nag when
// the activity points have not been finished for the day. It does not touch
// the snapshot cache.
func (t *Tracker) runReminder(ctx context.Context) {
	_, authKey, uid, region, err := t.resolveActiveCredentials()
	if err != nil {
		slog.Debug("Skipping activity reminder", "error", err)
		return
	}

	snap, err := t.client.FetchProfile(ctx, authKey, uid, region)
	if err != nil {
		slog.Warn("Activity reminder fetch failed", "error", err)
		return
	}

	p := snap.Profile
	if p.ActivityPointsCurrent >= reminderThreshold {
		return
	}
	if !t.notifier.CanNotify() {
		return
	}

	t.notifier.Notify(alerts.Notification{
		ID:    alerts.ReminderNotificationID,
		Title: "Activity Points reminder",
		Message: fmt.Sprintf("%s has %d Activity Points today. Don't forget your dailies!",
			p.Name, p.ActivityPointsCurrent),
	})
}

// resolveActiveCredentials is the local pre-check that runs before any
// network call; a missing uid, region or credential surfaces as
// ErrMissingCredentials so callers can prompt for configuration instead of
// showing a generic fetch error.
func (t *Tracker) resolveActiveCredentials() (profileID, authKey, uid, region string, err error) {
	profileID, err = t.profiles.EnsureActiveProfileID()
	if err != nil {
		return "", "", "", "", fmt.Errorf("failed to resolve active profile: %w", err)
	}

	profiles, err := t.profiles.ListProfiles()
	if err != nil {
		return "", "", "", "", err
	}
	for _, p := range profiles {
		if p.ID == profileID {
			uid = p.UID
			region = p.Region
			break
		}
	}

	authKey, err = t.profiles.Credential(profileID)
	if err != nil {
		return "", "", "", "", err
	}

	if authKey == "" || uid == "" || region == "" {
		return profileID, "", "", "", kuro.ErrMissingCredentials
	}
	return profileID, authKey, uid, region, nil
}
