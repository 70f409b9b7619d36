package snapshot

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/jinjinmory/wuwa-tracker-go/internal/database"
	"github.com/jinjinmory/wuwa-tracker-go/internal/kuro"
)

// Store caches the latest successful fetch per profile. Each save replaces
// the previous snapshot wholesale; fetch failures never touch it, so the UI
// and widgets always see last-known-good data.
type Store struct {
	db *database.DB
	mu sync.RWMutex
}

type snapshotsModule struct{}

func (m *snapshotsModule) Name() string {
	return "snapshots"
}

func (m *snapshotsModule) Migrations() []database.Migration {
	return []database.Migration{
		{
			Version:     1,
			Description: "Create snapshots table",
			SQL: `
				CREATE TABLE IF NOT EXISTS snapshots (
					profile_id TEXT PRIMARY KEY,
					raw_payload TEXT NOT NULL,
					profile_json TEXT NOT NULL,
					fetched_at INTEGER NOT NULL
				);
			`,
		},
	}
}

func NewStore(db *database.DB) (*Store, error) {
	if err := db.RegisterModule(&snapshotsModule{}); err != nil {
		return nil, fmt.Errorf("failed to register snapshots module: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Save(profileID string, snap *kuro.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	profileJSON, err := json.Marshal(snap.Profile)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(`
		INSERT INTO snapshots (profile_id, raw_payload, profile_json, fetched_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(profile_id) DO UPDATE SET
			raw_payload = excluded.raw_payload,
			profile_json = excluded.profile_json,
			fetched_at = excluded.fetched_at
	`, profileID, snap.RawPayload, string(profileJSON), snap.FetchedAt.UnixMilli())
	return err
}

// Get returns the cached snapshot for a profile, or nil when none exists.
func (s *Store) Get(profileID string) (*kuro.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var rawPayload, profileJSON string
	var fetchedAt int64
	err := s.db.QueryRow(`
		SELECT raw_payload, profile_json, fetched_at FROM snapshots WHERE profile_id = ?
	`, profileID).Scan(&rawPayload, &profileJSON, &fetchedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var profile kuro.Profile
	if err := json.Unmarshal([]byte(profileJSON), &profile); err != nil {
		return nil, err
	}

	return &kuro.Snapshot{
		Profile:    profile,
		RawPayload: rawPayload,
		FetchedAt:  time.UnixMilli(fetchedAt),
	}, nil
}

func (s *Store) Clear(profileID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`DELETE FROM snapshots WHERE profile_id = ?`, profileID)
	return err
}
