package cache

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// ErrNoSession is returned when no usable login token is on disk.
var ErrNoSession = errors.New("no saved session")

// Session is the login state kept alongside the snapshot. Only the access
// token is required; the rest is display metadata.
type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	Email        string `json:"email"`
	UserID       string `json:"user_id"`
}

func (s *Store) sessionPath() string {
	return filepath.Join(s.dir, "session.json")
}

func (s *Store) SaveSession(sess Session) error {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return err
	}
	raw, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.sessionPath(), raw, 0o600)
}

// LoadSession reads the saved login. A missing file, unreadable JSON, or an
// empty access token all report ErrNoSession so callers can prompt for login.
func (s *Store) LoadSession() (Session, error) {
	raw, err := os.ReadFile(s.sessionPath())
	if err != nil {
		return Session{}, ErrNoSession
	}
	var sess Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return Session{}, ErrNoSession
	}
	if strings.TrimSpace(sess.AccessToken) == "" {
		return Session{}, ErrNoSession
	}
	return sess, nil
}

func (s *Store) ClearSession() error {
	err := os.Remove(s.sessionPath())
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
