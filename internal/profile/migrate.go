package profile

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// legacySettings is the pre-multi-profile layout: one uid/region pair and one
// credential in a plain JSON file.
type legacySettings struct {
	UID     string `json:"uid"`
	Region  string `json:"region"`
	AuthKey string `json:"authKey"`
}

// MigrateLegacy carries a legacy single-profile settings file forward into
// the multi-profile layout, then removes it. Safe to call on every startup:
// a second run finds no file and no empty profile list, so nothing is
// synthesized twice.
func (s *Store) MigrateLegacy(basePath string) error {
	legacyPath := filepath.Join(basePath, "settings.json")
	data, err := os.ReadFile(legacyPath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read legacy settings: %w", err)
	}

	slog.Info("Migrating legacy single-profile settings")

	var legacy legacySettings
	if err := json.Unmarshal(data, &legacy); err != nil {
		slog.Warn("Legacy settings file is corrupt, removing it", "error", err)
		return os.Remove(legacyPath)
	}

	profiles, err := s.ListProfiles()
	if err != nil {
		return err
	}

	if len(profiles) == 0 {
		p := Profile{
			ID:     NewProfileID(),
			UID:    legacy.UID,
			Region: legacy.Region,
		}
		if err := s.UpsertProfile(p); err != nil {
			return fmt.Errorf("failed to synthesize legacy profile: %w", err)
		}
		if legacy.AuthKey != "" {
			if err := s.SaveCredential(p.ID, legacy.AuthKey); err != nil {
				return fmt.Errorf("failed to carry legacy credential forward: %w", err)
			}
		}
		if err := s.SetActiveProfileID(p.ID); err != nil {
			return err
		}
		slog.Info("Synthesized profile from legacy settings", "uid", legacy.UID, "region", legacy.Region)
	}

	if err := os.Remove(legacyPath); err != nil {
		slog.Warn("Failed to delete legacy settings file", "error", err)
		return nil
	}
	slog.Info("Deleted legacy settings file after migration")
	return nil
}
