// Package profile persists browser login state (Playwright storage
// state JSON) per durable session id, so a recreated automation session
// can short-circuit the login form.
package profile

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/courtbot-app/courtbot/pkg/models"
)

// Store manages persisted profiles on disk.
type Store struct {
	profiles  sync.Map // sessionID -> *models.Profile
	storePath string
}

// NewStore creates the storage directory and indexes any profiles that
// survived a previous run.
func NewStore(storePath string) (*Store, error) {
	if err := os.MkdirAll(storePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	s := &Store{storePath: storePath}

	entries, err := os.ReadDir(storePath)
	if err != nil {
		return nil, fmt.Errorf("failed to scan storage directory: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		id := entry.Name()[:len(entry.Name())-len(".json")]
		info, err := entry.Info()
		if err != nil {
			continue
		}
		s.profiles.Store(id, &models.Profile{
			ID:        id,
			CreatedAt: info.ModTime(),
			UpdatedAt: info.ModTime(),
		})
	}

	return s, nil
}

// StatePath returns the storage-state file path for a session id and
// whether a saved state currently exists.
func (s *Store) StatePath(sessionID string) (string, bool) {
	path := filepath.Join(s.storePath, sessionID+".json")
	_, err := os.Stat(path)
	return path, err == nil
}

// Touch records that the state file for a session id was just written.
func (s *Store) Touch(sessionID string) {
	now := time.Now()
	if value, ok := s.profiles.Load(sessionID); ok {
		p := value.(*models.Profile)
		p.UpdatedAt = now
		s.profiles.Store(sessionID, p)
		return
	}
	s.profiles.Store(sessionID, &models.Profile{
		ID:        sessionID,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

// Get retrieves profile metadata by session id.
func (s *Store) Get(sessionID string) (*models.Profile, error) {
	value, ok := s.profiles.Load(sessionID)
	if !ok {
		return nil, fmt.Errorf("profile not found")
	}
	return value.(*models.Profile), nil
}

// Delete removes a profile and its saved state.
func (s *Store) Delete(sessionID string) error {
	if _, err := s.Get(sessionID); err != nil {
		return err
	}

	path := filepath.Join(s.storePath, sessionID+".json")
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete profile state: %w", err)
	}

	s.profiles.Delete(sessionID)
	return nil
}
