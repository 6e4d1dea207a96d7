package cache

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestSessionSaveLoadRoundTrip(t *testing.T) {
	store := NewStore(t.TempDir())

	in := Session{
		AccessToken:  "tok-abc",
		RefreshToken: "refresh-xyz",
		Email:        "gardener@example.com",
		UserID:       "u-1",
	}
	if err := store.SaveSession(in); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	out, err := store.LoadSession()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if out != in {
		t.Fatalf("session mismatch: %+v", out)
	}
}

func TestSessionLoadMissing(t *testing.T) {
	store := NewStore(t.TempDir())
	if _, err := store.LoadSession(); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
}

func TestSessionLoadEmptyToken(t *testing.T) {
	store := NewStore(t.TempDir())
	if err := store.SaveSession(Session{Email: "gardener@example.com"}); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if _, err := store.LoadSession(); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession for empty token, got %v", err)
	}
}

func TestSessionLoadCorrupt(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "session.json"), []byte("{not json"), 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if _, err := NewStore(dir).LoadSession(); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession for corrupt file, got %v", err)
	}
}

func TestSessionClear(t *testing.T) {
	store := NewStore(t.TempDir())
	if err := store.ClearSession(); err != nil {
		t.Fatalf("clear without session failed: %v", err)
	}
	if err := store.SaveSession(Session{AccessToken: "tok"}); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if err := store.ClearSession(); err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	if _, err := store.LoadSession(); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession after clear, got %v", err)
	}
}
