package alerts

import (
	"fmt"
	"log/slog"

	"github.com/jinjinmory/wuwa-tracker-go/internal/kuro"
)

// Notification identity layout: the full-capacity ids sit in a small block,
// threshold ids are base + resource stride + threshold, so concurrently
// active alerts never collide.
const (
	fullAlertBase      = 1001
	thresholdAlertBase = 2000
	resourceStride     = 10000

	// ReminderNotificationID identifies the daily activity reminder.
	ReminderNotificationID = 3001
)

// Notification is one outbound alert with its deterministic identity.
type Notification struct {
	ID      int
	Title   string
	Message string
}

// Notifier is the delivery channel the engine emits through. CanNotify
// reports whether delivery is currently possible; the engine uses it the way
// the original checked notification permission.
type Notifier interface {
	CanNotify() bool
	Notify(n Notification)
}

// Engine decides, per (profile, resource), which thresholds get a one-time
// notification for the current rising excursion.
type Engine struct {
	store    *Store
	notifier Notifier
}

func NewEngine(store *Store, notifier Notifier) *Engine {
	return &Engine{store: store, notifier: notifier}
}

// Evaluate runs once per successful fetch. Each resource is evaluated
// independently; multiple thresholds crossed at once fire ascending, each
// with its own notification identity. When delivery is not possible the
// engine keeps already-sent state but defers newly-crossed thresholds, so a
// real notification is never silently swallowed.
func (e *Engine) Evaluate(profileID string, profile kuro.Profile) error {
	canNotify := e.notifier.CanNotify()

	for _, resource := range Resources() {
		if err := e.evaluateResource(profileID, resource, profile, canNotify); err != nil {
			return fmt.Errorf("failed to evaluate %s: %w", resource.Key(), err)
		}
	}

	return e.evaluateFullCapacity(profileID, profile, canNotify)
}

func (e *Engine) evaluateResource(profileID string, resource Resource, profile kuro.Profile, canNotify bool) error {
	thresholds, err := e.store.Thresholds(profileID, resource)
	if err != nil {
		return err
	}

	fired, err := e.store.FiredThresholds(profileID, resource)
	if err != nil {
		return err
	}
	firedSet := make(map[int]bool, len(fired))
	for _, t := range fired {
		firedSet[t] = true
	}

	current := resource.CurrentValue(profile)

	// The new fired set is rebuilt from the live threshold set only, which
	// lazily prunes entries left behind by removed thresholds. Thresholds
	// the value has dropped below fall out here, re-arming them.
	var nextFired []int
	for _, threshold := range thresholds {
		if current < threshold {
			continue
		}
		if firedSet[threshold] {
			nextFired = append(nextFired, threshold)
			continue
		}
		if !canNotify {
			slog.Debug("Deferring threshold alert, delivery unavailable",
				"resource", resource.Key(), "threshold", threshold)
			continue
		}

		e.notifier.Notify(Notification{
			ID:    thresholdNotificationID(resource, threshold),
			Title: fmt.Sprintf("%s reached %d", resource.Title(), threshold),
			Message: fmt.Sprintf("%s has %d %s (threshold %d).",
				profile.Name, current, resource.Title(), threshold),
		})
		nextFired = append(nextFired, threshold)
	}

	return e.store.SetFiredThresholds(profileID, resource, nextFired)
}

func (e *Engine) evaluateFullCapacity(profileID string, profile kuro.Profile, canNotify bool) error {
	current := profile.WaveplatesCurrent
	if current < WaveplateCapacity {
		return e.store.ClearFullAlert(profileID)
	}

	_, latched, err := e.store.FullAlertLevel(profileID)
	if err != nil {
		return err
	}
	if latched || !canNotify {
		return nil
	}

	max := profile.WaveplatesMax
	if max <= 0 {
		max = WaveplateCapacity
	}
	e.notifier.Notify(Notification{
		ID:    fullAlertBase + int(Waveplates),
		Title: "Waveplates full",
		Message: fmt.Sprintf("%s has %d/%d Waveplates. Time to spend them!",
			profile.Name, current, max),
	})
	return e.store.MarkFullAlertSent(profileID, current)
}

func thresholdNotificationID(resource Resource, threshold int) int {
	return thresholdAlertBase + int(resource)*resourceStride + threshold
}
