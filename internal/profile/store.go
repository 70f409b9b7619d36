package profile

import (
	"database/sql"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jinjinmory/wuwa-tracker-go/internal/database"
)

// Store owns profile metadata, the active-profile pointer, and the encrypted
// credential map. Credentials are stored in their own table so wiping one
// profile's secret never touches the others.
type Store struct {
	db      *database.DB
	keyring *keyring

	// onRemove hooks let other stores drop their per-profile state when a
	// profile is deleted. Each hook is a separate atomic write; an orphan
	// left by a crash between writes is harmless.
	onRemove []func(profileID string) error

	mu sync.RWMutex
}

type profilesModule struct{}

func (m *profilesModule) Name() string {
	return "profiles"
}

func (m *profilesModule) Migrations() []database.Migration {
	return []database.Migration{
		{
			Version:     1,
			Description: "Create profiles, credentials and app_state tables",
			SQL: `
				CREATE TABLE IF NOT EXISTS profiles (
					id TEXT PRIMARY KEY,
					uid TEXT NOT NULL DEFAULT '',
					region TEXT NOT NULL DEFAULT '',
					position INTEGER NOT NULL
				);

				CREATE TABLE IF NOT EXISTS credentials (
					profile_id TEXT PRIMARY KEY,
					secret BLOB NOT NULL
				);

				CREATE TABLE IF NOT EXISTS app_state (
					key TEXT PRIMARY KEY,
					value TEXT NOT NULL
				);
			`,
		},
	}
}

const (
	activeProfileKey = "active_profile_id"
	advisoryKey      = "advisory_acknowledged"
)

func NewStore(db *database.DB, basePath string) (*Store, error) {
	if err := db.RegisterModule(&profilesModule{}); err != nil {
		return nil, fmt.Errorf("failed to register profiles module: %w", err)
	}

	return &Store{
		db:      db,
		keyring: newKeyring(basePath),
	}, nil
}

// OnRemove registers a cascade hook invoked after a profile row is deleted.
func (s *Store) OnRemove(hook func(profileID string) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onRemove = append(s.onRemove, hook)
}

// ListProfiles returns all profiles in insertion order.
func (s *Store) ListProfiles() ([]Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listProfilesLocked()
}

func (s *Store) listProfilesLocked() ([]Profile, error) {
	rows, err := s.db.Query(`SELECT id, uid, region FROM profiles ORDER BY position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var profiles []Profile
	for rows.Next() {
		var p Profile
		if err := rows.Scan(&p.ID, &p.UID, &p.Region); err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

// UpsertProfile inserts or replaces by id. A blank id is a no-op; callers
// always supply a generated id.
func (s *Store) UpsertProfile(p Profile) error {
	if p.ID == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO profiles (id, uid, region, position)
		VALUES (?, ?, ?, (SELECT COALESCE(MAX(position), 0) + 1 FROM profiles))
		ON CONFLICT(id) DO UPDATE SET uid = excluded.uid, region = excluded.region
	`, p.ID, p.UID, p.Region)
	return err
}

// RemoveProfile deletes the profile, its credential, and any per-profile
// state registered through OnRemove. If it was active, the first remaining
// profile becomes active, or none when the list is empty.
func (s *Store) RemoveProfile(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec(`DELETE FROM profiles WHERE id = ?`, id); err != nil {
		return err
	}
	if _, err := s.db.Exec(`DELETE FROM credentials WHERE profile_id = ?`, id); err != nil {
		return err
	}

	for _, hook := range s.onRemove {
		if err := hook(id); err != nil {
			slog.Warn("Profile removal cascade failed", "profileID", id, "error", err)
		}
	}

	active, err := s.activeProfileIDLocked()
	if err != nil {
		return err
	}
	if active != id {
		return nil
	}

	remaining, err := s.listProfilesLocked()
	if err != nil {
		return err
	}
	if len(remaining) == 0 {
		return s.setActiveProfileIDLocked("")
	}
	return s.setActiveProfileIDLocked(remaining[0].ID)
}

func (s *Store) ActiveProfileID() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeProfileIDLocked()
}

func (s *Store) activeProfileIDLocked() (string, error) {
	var id string
	err := s.db.QueryRow(`SELECT value FROM app_state WHERE key = ?`, activeProfileKey).Scan(&id)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return id, err
}

func (s *Store) SetActiveProfileID(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setActiveProfileIDLocked(id)
}

func (s *Store) setActiveProfileIDLocked(id string) error {
	if id == "" {
		_, err := s.db.Exec(`DELETE FROM app_state WHERE key = ?`, activeProfileKey)
		return err
	}
	_, err := s.db.Exec(`
		INSERT INTO app_state (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, activeProfileKey, id)
	return err
}

// EnsureActiveProfileID guarantees some profile id exists to key per-profile
// state against, creating a blank placeholder when the list is empty.
func (s *Store) EnsureActiveProfileID() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	active, err := s.activeProfileIDLocked()
	if err != nil {
		return "", err
	}
	if active != "" {
		var exists int
		err := s.db.QueryRow(`SELECT 1 FROM profiles WHERE id = ?`, active).Scan(&exists)
		if err == nil {
			return active, nil
		}
		if err != sql.ErrNoRows {
			return "", err
		}
	}

	profiles, err := s.listProfilesLocked()
	if err != nil {
		return "", err
	}
	if len(profiles) > 0 {
		if err := s.setActiveProfileIDLocked(profiles[0].ID); err != nil {
			return "", err
		}
		return profiles[0].ID, nil
	}

	placeholder := NewProfileID()
	_, err = s.db.Exec(`
		INSERT INTO profiles (id, uid, region, position)
		VALUES (?, '', '', (SELECT COALESCE(MAX(position), 0) + 1 FROM profiles))
	`, placeholder)
	if err != nil {
		return "", err
	}
	if err := s.setActiveProfileIDLocked(placeholder); err != nil {
		return "", err
	}
	return placeholder, nil
}

// SaveCredential seals and stores the secret for one profile. An empty
// secret removes the stored credential.
func (s *Store) SaveCredential(profileID, secret string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if secret == "" {
		_, err := s.db.Exec(`DELETE FROM credentials WHERE profile_id = ?`, profileID)
		return err
	}

	sealed, err := s.keyring.seal(secret)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(`
		INSERT INTO credentials (profile_id, secret) VALUES (?, ?)
		ON CONFLICT(profile_id) DO UPDATE SET secret = excluded.secret
	`, profileID, sealed)
	return err
}

// Credential returns the plaintext secret for one profile, or "" when none
// is stored.
func (s *Store) Credential(profileID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sealed []byte
	err := s.db.QueryRow(`SELECT secret FROM credentials WHERE profile_id = ?`, profileID).Scan(&sealed)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return s.keyring.open(sealed)
}

func (s *Store) RemoveCredential(profileID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`DELETE FROM credentials WHERE profile_id = ?`, profileID)
	return err
}

// AdvisoryAcknowledged reports whether the one-time scheduling advisory has
// been dismissed.
func (s *Store) AdvisoryAcknowledged() (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var value string
	err := s.db.QueryRow(`SELECT value FROM app_state WHERE key = ?`, advisoryKey).Scan(&value)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return value == "1", nil
}

func (s *Store) MarkAdvisoryAcknowledged() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO app_state (key, value) VALUES (?, '1')
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, advisoryKey)
	return err
}
