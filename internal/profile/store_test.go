package profile

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/jinjinmory/wuwa-tracker-go/internal/database"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	dir := t.TempDir()

	db, err := database.Open(dir)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	store, err := NewStore(db, dir)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return store, dir
}

func TestUpsertAndListProfiles(t *testing.T) {
	store, _ := newTestStore(t)

	p1 := Profile{ID: NewProfileID(), UID: "500111111", Region: "Asia"}
	p2 := Profile{ID: NewProfileID(), UID: "600222222", Region: "Europe"}

	if err := store.UpsertProfile(p1); err != nil {
		t.Fatalf("UpsertProfile failed: %v", err)
	}
	if err := store.UpsertProfile(p2); err != nil {
		t.Fatalf("UpsertProfile failed: %v", err)
	}

	profiles, err := store.ListProfiles()
	if err != nil {
		t.Fatalf("ListProfiles failed: %v", err)
	}
	if len(profiles) != 2 {
		t.Fatalf("expected 2 profiles, got %d", len(profiles))
	}
	if profiles[0].ID != p1.ID || profiles[1].ID != p2.ID {
		t.Error("profiles should list in insertion order")
	}

	// Update in place keeps the position.
	p1.Region = "America"
	if err := store.UpsertProfile(p1); err != nil {
		t.Fatalf("UpsertProfile failed: %v", err)
	}
	profiles, _ = store.ListProfiles()
	if len(profiles) != 2 || profiles[0].Region != "America" {
		t.Errorf("update should replace fields in place, got %+v", profiles)
	}
}

func TestUpsertProfileBlankIDNoop(t *testing.T) {
	store, _ := newTestStore(t)

	if err := store.UpsertProfile(Profile{UID: "123"}); err != nil {
		t.Fatalf("UpsertProfile failed: %v", err)
	}
	profiles, _ := store.ListProfiles()
	if len(profiles) != 0 {
		t.Errorf("blank id must not insert, got %v", profiles)
	}
}

func TestRemoveProfileReassignsActive(t *testing.T) {
	store, _ := newTestStore(t)

	p1 := Profile{ID: NewProfileID(), UID: "1", Region: "Asia"}
	p2 := Profile{ID: NewProfileID(), UID: "2", Region: "Asia"}
	store.UpsertProfile(p1)
	store.UpsertProfile(p2)
	store.SetActiveProfileID(p1.ID)

	if err := store.RemoveProfile(p1.ID); err != nil {
		t.Fatalf("RemoveProfile failed: %v", err)
	}

	active, err := store.ActiveProfileID()
	if err != nil {
		t.Fatalf("ActiveProfileID failed: %v", err)
	}
	if active != p2.ID {
		t.Errorf("active should move to the first remaining profile, got %q", active)
	}

	if err := store.RemoveProfile(p2.ID); err != nil {
		t.Fatalf("RemoveProfile failed: %v", err)
	}
	active, _ = store.ActiveProfileID()
	if active != "" {
		t.Errorf("active should clear when no profiles remain, got %q", active)
	}
}

func TestRemoveProfileKeepsActiveWhenOtherRemoved(t *testing.T) {
	store, _ := newTestStore(t)

	p1 := Profile{ID: NewProfileID(), UID: "1", Region: "Asia"}
	p2 := Profile{ID: NewProfileID(), UID: "2", Region: "Asia"}
	store.UpsertProfile(p1)
	store.UpsertProfile(p2)
	store.SetActiveProfileID(p2.ID)

	if err := store.RemoveProfile(p1.ID); err != nil {
		t.Fatalf("RemoveProfile failed: %v", err)
	}
	active, _ := store.ActiveProfileID()
	if active != p2.ID {
		t.Errorf("removing an inactive profile must not change the active one, got %q", active)
	}
}

func TestRemoveProfileRunsCascadeHooks(t *testing.T) {
	store, _ := newTestStore(t)

	var removed []string
	store.OnRemove(func(id string) error {
		removed = append(removed, id)
		return nil
	})

	p := Profile{ID: NewProfileID(), UID: "1", Region: "Asia"}
	store.UpsertProfile(p)
	store.SaveCredential(p.ID, "secret")

	if err := store.RemoveProfile(p.ID); err != nil {
		t.Fatalf("RemoveProfile failed: %v", err)
	}
	if len(removed) != 1 || removed[0] != p.ID {
		t.Errorf("cascade hook should run once with the profile id, got %v", removed)
	}

	cred, err := store.Credential(p.ID)
	if err != nil {
		t.Fatalf("Credential failed: %v", err)
	}
	if cred != "" {
		t.Error("credential should be deleted with the profile")
	}
}

func TestEnsureActiveProfileID(t *testing.T) {
	store, _ := newTestStore(t)

	// Empty list: a placeholder profile is created and made active.
	id, err := store.EnsureActiveProfileID()
	if err != nil {
		t.Fatalf("EnsureActiveProfileID failed: %v", err)
	}
	if id == "" {
		t.Fatal("expected a placeholder profile id")
	}
	profiles, _ := store.ListProfiles()
	if len(profiles) != 1 || profiles[0].ID != id {
		t.Errorf("placeholder should appear in the list, got %v", profiles)
	}

	// Stable across calls.
	again, err := store.EnsureActiveProfileID()
	if err != nil {
		t.Fatalf("EnsureActiveProfileID failed: %v", err)
	}
	if again != id {
		t.Errorf("expected stable active id, got %q then %q", id, again)
	}

	// A dangling pointer falls back to the first existing profile.
	p := Profile{ID: NewProfileID(), UID: "1", Region: "Asia"}
	store.UpsertProfile(p)
	store.SetActiveProfileID("no-such-profile")
	resolved, err := store.EnsureActiveProfileID()
	if err != nil {
		t.Fatalf("EnsureActiveProfileID failed: %v", err)
	}
	if resolved != id {
		t.Errorf("dangling active should resolve to the first profile %q, got %q", id, resolved)
	}
}

func TestCredentialRoundTrip(t *testing.T) {
	store, _ := newTestStore(t)

	p := Profile{ID: NewProfileID(), UID: "1", Region: "Asia"}
	store.UpsertProfile(p)

	if err := store.SaveCredential(p.ID, "oauth-code-123"); err != nil {
		t.Fatalf("SaveCredential failed: %v", err)
	}

	got, err := store.Credential(p.ID)
	if err != nil {
		t.Fatalf("Credential failed: %v", err)
	}
	if got != "oauth-code-123" {
		t.Errorf("expected round-tripped secret, got %q", got)
	}

	// Overwrite, then delete via empty secret.
	if err := store.SaveCredential(p.ID, "rotated"); err != nil {
		t.Fatalf("SaveCredential failed: %v", err)
	}
	if got, _ := store.Credential(p.ID); got != "rotated" {
		t.Errorf("expected rotated secret, got %q", got)
	}
	if err := store.SaveCredential(p.ID, ""); err != nil {
		t.Fatalf("SaveCredential failed: %v", err)
	}
	if got, _ := store.Credential(p.ID); got != "" {
		t.Errorf("empty secret should delete the credential, got %q", got)
	}
}

func TestCredentialMissingIsEmpty(t *testing.T) {
	store, _ := newTestStore(t)

	got, err := store.Credential("nobody")
	if err != nil {
		t.Fatalf("Credential failed: %v", err)
	}
	if got != "" {
		t.Errorf("missing credential should be empty, got %q", got)
	}
}

func TestCredentialsAreNotPlaintextAtRest(t *testing.T) {
	store, dir := newTestStore(t)

	p := Profile{ID: NewProfileID(), UID: "1", Region: "Asia"}
	store.UpsertProfile(p)
	if err := store.SaveCredential(p.ID, "super-secret-auth-key"); err != nil {
		t.Fatalf("SaveCredential failed: %v", err)
	}

	var sealed []byte
	err := store.db.QueryRow(`SELECT secret FROM credentials WHERE profile_id = ?`, p.ID).Scan(&sealed)
	if err != nil {
		t.Fatalf("failed to read sealed credential: %v", err)
	}
	if string(sealed) == "super-secret-auth-key" {
		t.Error("credential must not be stored in plaintext")
	}

	info, err := os.Stat(filepath.Join(dir, "credential.key"))
	if err != nil {
		t.Fatalf("credential key file missing: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("key file should be mode 0600, got %v", info.Mode().Perm())
	}
}

func TestAdvisoryAcknowledged(t *testing.T) {
	store, _ := newTestStore(t)

	acked, err := store.AdvisoryAcknowledged()
	if err != nil {
		t.Fatalf("AdvisoryAcknowledged failed: %v", err)
	}
	if acked {
		t.Error("advisory should start unacknowledged")
	}

	if err := store.MarkAdvisoryAcknowledged(); err != nil {
		t.Fatalf("MarkAdvisoryAcknowledged failed: %v", err)
	}
	acked, _ = store.AdvisoryAcknowledged()
	if !acked {
		t.Error("advisory should stay acknowledged")
	}
}

func TestIsValidRegion(t *testing.T) {
	for _, region := range Regions {
		if !IsValidRegion(region) {
			t.Errorf("%q should be a valid region", region)
		}
	}
	if IsValidRegion("Moon") {
		t.Error("unknown region should be invalid")
	}
}

func TestMigrateLegacy(t *testing.T) {
	store, dir := newTestStore(t)

	legacy := map[string]string{
		"uid":     "500999999",
		"region":  "SEA",
		"authKey": "legacy-key",
	}
	data, _ := json.Marshal(legacy)
	legacyPath := filepath.Join(dir, "settings.json")
	if err := os.WriteFile(legacyPath, data, 0644); err != nil {
		t.Fatalf("failed to write legacy file: %v", err)
	}

	if err := store.MigrateLegacy(dir); err != nil {
		t.Fatalf("MigrateLegacy failed: %v", err)
	}

	profiles, err := store.ListProfiles()
	if err != nil {
		t.Fatalf("ListProfiles failed: %v", err)
	}
	if len(profiles) != 1 {
		t.Fatalf("expected one synthesized profile, got %d", len(profiles))
	}
	if profiles[0].UID != "500999999" || profiles[0].Region != "SEA" {
		t.Errorf("legacy fields not carried over: %+v", profiles[0])
	}

	active, _ := store.ActiveProfileID()
	if active != profiles[0].ID {
		t.Error("synthesized profile should be active")
	}

	cred, err := store.Credential(profiles[0].ID)
	if err != nil {
		t.Fatalf("Credential failed: %v", err)
	}
	if cred != "legacy-key" {
		t.Errorf("legacy credential not carried over, got %q", cred)
	}

	if _, err := os.Stat(legacyPath); !os.IsNotExist(err) {
		t.Error("legacy settings file should be removed after migration")
	}

	// Second run is a no-op.
	if err := store.MigrateLegacy(dir); err != nil {
		t.Fatalf("second MigrateLegacy failed: %v", err)
	}
	profiles, _ = store.ListProfiles()
	if len(profiles) != 1 {
		t.Errorf("migration must be idempotent, got %d profiles", len(profiles))
	}
}

func TestMigrateLegacySkipsSynthesisWhenProfilesExist(t *testing.T) {
	store, dir := newTestStore(t)

	existing := Profile{ID: NewProfileID(), UID: "1", Region: "Asia"}
	store.UpsertProfile(existing)

	data, _ := json.Marshal(map[string]string{"uid": "9", "region": "SEA", "authKey": "k"})
	legacyPath := filepath.Join(dir, "settings.json")
	os.WriteFile(legacyPath, data, 0644)

	if err := store.MigrateLegacy(dir); err != nil {
		t.Fatalf("MigrateLegacy failed: %v", err)
	}

	profiles, _ := store.ListProfiles()
	if len(profiles) != 1 || profiles[0].ID != existing.ID {
		t.Errorf("existing profiles must win over the legacy file, got %v", profiles)
	}
	if _, err := os.Stat(legacyPath); !os.IsNotExist(err) {
		t.Error("legacy file should still be removed")
	}
}

func TestMigrateLegacyCorruptFile(t *testing.T) {
	store, dir := newTestStore(t)

	legacyPath := filepath.Join(dir, "settings.json")
	os.WriteFile(legacyPath, []byte("{not json"), 0644)

	if err := store.MigrateLegacy(dir); err != nil {
		t.Fatalf("MigrateLegacy should tolerate a corrupt file: %v", err)
	}
	if _, err := os.Stat(legacyPath); !os.IsNotExist(err) {
		t.Error("corrupt legacy file should be removed")
	}
	profiles, _ := store.ListProfiles()
	if len(profiles) != 0 {
		t.Errorf("no profile should be synthesized from a corrupt file, got %v", profiles)
	}
}
