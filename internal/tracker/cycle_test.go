package tracker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jinjinmory/wuwa-tracker-go/internal/alerts"
	"github.com/jinjinmory/wuwa-tracker-go/internal/config"
	"github.com/jinjinmory/wuwa-tracker-go/internal/database"
	"github.com/jinjinmory/wuwa-tracker-go/internal/kuro"
	"github.com/jinjinmory/wuwa-tracker-go/internal/notify"
	"github.com/jinjinmory/wuwa-tracker-go/internal/profile"
	"github.com/jinjinmory/wuwa-tracker-go/internal/snapshot"
)

type stubFetcher struct {
	snap  *kuro.Snapshot
	err   error
	calls int
}

func (f *stubFetcher) FetchProfile(ctx context.Context, authKey, uid, region string) (*kuro.Snapshot, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.snap, nil
}

func newTestTracker(t *testing.T, fetcher Fetcher) *Tracker {
	t.Helper()
	dir := t.TempDir()

	db, err := database.Open(dir)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	profiles, err := profile.NewStore(db, dir)
	if err != nil {
		t.Fatalf("failed to create profile store: %v", err)
	}
	snapshots, err := snapshot.NewStore(db)
	if err != nil {
		t.Fatalf("failed to create snapshot store: %v", err)
	}
	alertStore, err := alerts.NewStore(db)
	if err != nil {
		t.Fatalf("failed to create alert store: %v", err)
	}

	notifier := notify.NewManager(config.DiscordSettings{})

	return &Tracker{
		config:    &config.Config{},
		db:        db,
		profiles:  profiles,
		snapshots: snapshots,
		alerts:    alertStore,
		engine:    alerts.NewEngine(alertStore, notifier),
		notifier:  notifier,
		client:    fetcher,
	}
}

func configureProfile(t *testing.T, tr *Tracker) string {
	t.Helper()
	p := profile.Profile{ID: profile.NewProfileID(), UID: "500123456", Region: "Asia"}
	if err := tr.profiles.UpsertProfile(p); err != nil {
		t.Fatalf("UpsertProfile failed: %v", err)
	}
	if err := tr.profiles.SaveCredential(p.ID, "auth-key"); err != nil {
		t.Fatalf("SaveCredential failed: %v", err)
	}
	if err := tr.profiles.SetActiveProfileID(p.ID); err != nil {
		t.Fatalf("SetActiveProfileID failed: %v", err)
	}
	return p.ID
}

func TestRunCycleCachesSnapshot(t *testing.T) {
	snap := &kuro.Snapshot{
		Profile: kuro.Profile{
			Name:              "Rover",
			UID:               "500123456",
			WaveplatesCurrent: 180,
			WaveplatesMax:     240,
		},
		RawPayload: `{}`,
		FetchedAt:  time.Now(),
	}
	fetcher := &stubFetcher{snap: snap}
	tr := newTestTracker(t, fetcher)
	profileID := configureProfile(t, tr)

	if err := tr.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle failed: %v", err)
	}
	if fetcher.calls != 1 {
		t.Errorf("expected one fetch, got %d", fetcher.calls)
	}

	cached, err := tr.snapshots.Get(profileID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if cached == nil || cached.Profile.WaveplatesCurrent != 180 {
		t.Errorf("snapshot not cached: %+v", cached)
	}
}

func TestRunCycleMissingCredentials(t *testing.T) {
	fetcher := &stubFetcher{}
	tr := newTestTracker(t, fetcher)

	err := tr.RunCycle(context.Background())
	if !errors.Is(err, kuro.ErrMissingCredentials) {
		t.Fatalf("expected ErrMissingCredentials, got %v", err)
	}
	if fetcher.calls != 0 {
		t.Errorf("no network call expected without credentials, got %d", fetcher.calls)
	}
}

func TestRunCycleFetchFailureKeepsCache(t *testing.T) {
	good := &kuro.Snapshot{
		Profile:    kuro.Profile{Name: "Rover", UID: "u", WaveplatesCurrent: 150},
		RawPayload: `{}`,
		FetchedAt:  time.Now(),
	}
	fetcher := &stubFetcher{snap: good}
	tr := newTestTracker(t, fetcher)
	profileID := configureProfile(t, tr)

	if err := tr.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle failed: %v", err)
	}

	fetcher.err = &kuro.UpstreamError{Code: 500, Message: "upstream down"}
	if err := tr.RunCycle(context.Background()); err == nil {
		t.Fatal("expected fetch failure to surface")
	}

	cached, err := tr.snapshots.Get(profileID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if cached == nil || cached.Profile.WaveplatesCurrent != 150 {
		t.Errorf("failed fetch must keep last-known-good snapshot, got %+v", cached)
	}
}
