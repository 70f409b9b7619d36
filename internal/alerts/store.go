package alerts

import (
	"database/sql"
	"fmt"
	"sort"
	"sync"

	"github.com/jinjinmory/wuwa-tracker-go/internal/database"
)

// ReminderConfig is the daily activity-reminder alarm, independent of the
// polling cadence.
type ReminderConfig struct {
	Enabled bool `json:"enabled"`
	Hour    int  `json:"hour"`
	Minute  int  `json:"minute"`
}

func (c ReminderConfig) Valid() bool {
	return c.Enabled && c.Hour >= 0 && c.Hour <= 23 && c.Minute >= 0 && c.Minute <= 59
}

// Store persists per-(profile, resource) threshold sets and fired sets, the
// per-profile full-capacity latch, and the reminder config.
type Store struct {
	db *database.DB
	mu sync.RWMutex
}

type alertsModule struct{}

func (m *alertsModule) Name() string {
	return "alerts"
}

func (m *alertsModule) Migrations() []database.Migration {
	return []database.Migration{
		{
			Version:     1,
			Description: "Create threshold, fired, full-alert and reminder tables",
			SQL: `
				CREATE TABLE IF NOT EXISTS alert_thresholds (
					profile_id TEXT NOT NULL,
					resource TEXT NOT NULL,
					threshold INTEGER NOT NULL,
					PRIMARY KEY (profile_id, resource, threshold)
				);

				CREATE TABLE IF NOT EXISTS alert_fired (
					profile_id TEXT NOT NULL,
					resource TEXT NOT NULL,
					threshold INTEGER NOT NULL,
					PRIMARY KEY (profile_id, resource, threshold)
				);

				CREATE TABLE IF NOT EXISTS full_alerts (
					profile_id TEXT PRIMARY KEY,
					level INTEGER NOT NULL
				);

				CREATE TABLE IF NOT EXISTS reminder_config (
					id INTEGER PRIMARY KEY CHECK (id = 1),
					enabled INTEGER NOT NULL DEFAULT 0,
					hour INTEGER NOT NULL DEFAULT -1,
					minute INTEGER NOT NULL DEFAULT -1
				);

				INSERT OR IGNORE INTO reminder_config (id) VALUES (1);
			`,
		},
	}
}

func NewStore(db *database.DB) (*Store, error) {
	if err := db.RegisterModule(&alertsModule{}); err != nil {
		return nil, fmt.Errorf("failed to register alerts module: %w", err)
	}
	return &Store{db: db}, nil
}

// Thresholds returns the threshold set for one profile/resource, ascending.
func (s *Store) Thresholds(profileID string, resource Resource) ([]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.readSet(`SELECT threshold FROM alert_thresholds WHERE profile_id = ? AND resource = ? ORDER BY threshold`, profileID, resource)
}

// SetThresholds replaces the threshold set. Values are deduplicated, clamped
// to positive integers within the resource's max input, and stored sorted.
func (s *Store) SetThresholds(profileID string, resource Resource, thresholds []int) error {
	sanitized := sanitizeThresholds(thresholds, resource.MaxInput())

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.replaceSet("alert_thresholds", profileID, resource, sanitized)
}

// FiredThresholds returns the set already notified for the current rising
// excursion, ascending.
func (s *Store) FiredThresholds(profileID string, resource Resource) ([]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.readSet(`SELECT threshold FROM alert_fired WHERE profile_id = ? AND resource = ? ORDER BY threshold`, profileID, resource)
}

// SetFiredThresholds replaces the fired set wholesale. The engine always
// writes the full post-evaluation set, which also prunes stale entries for
// thresholds that no longer exist.
func (s *Store) SetFiredThresholds(profileID string, resource Resource, thresholds []int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.replaceSet("alert_fired", profileID, resource, thresholds)
}

// FullAlertLevel returns the latched level of the last full-capacity
// notification, or ok=false when the latch is clear.
func (s *Store) FullAlertLevel(profileID string) (int, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var level int
	err := s.db.QueryRow(`SELECT level FROM full_alerts WHERE profile_id = ?`, profileID).Scan(&level)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return level, true, nil
}

func (s *Store) MarkFullAlertSent(profileID string, level int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO full_alerts (profile_id, level) VALUES (?, ?)
		ON CONFLICT(profile_id) DO UPDATE SET level = excluded.level
	`, profileID, level)
	return err
}

func (s *Store) ClearFullAlert(profileID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`DELETE FROM full_alerts WHERE profile_id = ?`, profileID)
	return err
}

func (s *Store) Reminder() (ReminderConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var cfg ReminderConfig
	err := s.db.QueryRow(`SELECT enabled, hour, minute FROM reminder_config WHERE id = 1`).
		Scan(&cfg.Enabled, &cfg.Hour, &cfg.Minute)
	if err == sql.ErrNoRows {
		return ReminderConfig{Hour: -1, Minute: -1}, nil
	}
	return cfg, err
}

func (s *Store) SetReminder(cfg ReminderConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		UPDATE reminder_config SET enabled = ?, hour = ?, minute = ? WHERE id = 1
	`, cfg.Enabled, cfg.Hour, cfg.Minute)
	return err
}

// RemoveProfileState drops all per-profile alert state. Registered as a
// cascade hook on the profile store.
func (s *Store) RemoveProfileState(profileID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec(`DELETE FROM alert_thresholds WHERE profile_id = ?`, profileID); err != nil {
		return err
	}
	if _, err := s.db.Exec(`DELETE FROM alert_fired WHERE profile_id = ?`, profileID); err != nil {
		return err
	}
	_, err := s.db.Exec(`DELETE FROM full_alerts WHERE profile_id = ?`, profileID)
	return err
}

func (s *Store) readSet(query, profileID string, resource Resource) ([]int, error) {
	rows, err := s.db.Query(query, profileID, resource.Key())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var values []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

func (s *Store) replaceSet(table, profileID string, resource Resource, values []int) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		fmt.Sprintf(`DELETE FROM %s WHERE profile_id = ? AND resource = ?`, table),
		profileID, resource.Key(),
	); err != nil {
		return err
	}
	for _, v := range values {
		if _, err := tx.Exec(
			fmt.Sprintf(`INSERT INTO %s (profile_id, resource, threshold) VALUES (?, ?, ?)`, table),
			profileID, resource.Key(), v,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func sanitizeThresholds(thresholds []int, maxInput int) []int {
	seen := make(map[int]bool, len(thresholds))
	var sanitized []int
	for _, t := range thresholds {
		if t <= 0 || t > maxInput || seen[t] {
			continue
		}
		seen[t] = true
		sanitized = append(sanitized, t)
	}
	sort.Ints(sanitized)
	return sanitized
}
