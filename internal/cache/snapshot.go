// Package cache owns the client's state directory (~/.bud): the login session
// and the last server-confirmed snapshot. The snapshot is write-only from the
// client's point of view: it is overwritten wholesale after every successful
// sync and is never pushed back to the server or treated as spendable balance.
package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"budgarden/internal/game"
)

type Snapshot struct {
	SavedAt time.Time       `json:"saved_at"`
	Garden  game.GardenView `json:"garden"`
}

type Store struct {
	dir string
}

func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// DefaultStore keeps the session and snapshot together under ~/.bud.
func DefaultStore() (*Store, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	return NewStore(filepath.Join(home, ".bud")), nil
}

func (s *Store) path() string {
	return filepath.Join(s.dir, "snapshot.json")
}

func (s *Store) Save(garden game.GardenView) error {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return err
	}
	raw, err := json.MarshalIndent(Snapshot{SavedAt: time.Now().UTC(), Garden: garden}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path(), raw, 0o600)
}

// Load returns the last snapshot. A missing or corrupt file is reported as an
// error; callers fall back to an empty view, never to a guess.
func (s *Store) Load() (Snapshot, error) {
	raw, err := os.ReadFile(s.path())
	if err != nil {
		return Snapshot{}, err
	}
	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("corrupt snapshot: %w", err)
	}
	return snap, nil
}

func (s *Store) Clear() error {
	err := os.Remove(s.path())
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
