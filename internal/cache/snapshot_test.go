package cache

import (
	"os"
	"path/filepath"
	"testing"

	"budgarden/internal/game"
)

func TestStoreSaveLoadRoundTrip(t *testing.T) {
	store := NewStore(t.TempDir())

	garden := game.GardenView{
		Balance: game.BalanceView{TotalBudMicros: 42 * game.MicrosPerBud},
		PlacedItems: []game.PlacedItemView{
			{ID: 1, ItemKind: "sprout", GridRow: 4, GridCol: 4, RateMicrosPerMin: 1_000 * game.MicrosPerBud},
		},
	}
	if err := store.Save(garden); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	snap, err := store.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if snap.SavedAt.IsZero() {
		t.Fatalf("expected saved_at to be set")
	}
	if snap.Garden.Balance.TotalBudMicros != garden.Balance.TotalBudMicros {
		t.Fatalf("balance mismatch: got %d", snap.Garden.Balance.TotalBudMicros)
	}
	if len(snap.Garden.PlacedItems) != 1 || snap.Garden.PlacedItems[0].ItemKind != "sprout" {
		t.Fatalf("placed items mismatch: %+v", snap.Garden.PlacedItems)
	}
}

func TestStoreLoadMissing(t *testing.T) {
	store := NewStore(t.TempDir())
	if _, err := store.Load(); err == nil {
		t.Fatalf("expected error for missing snapshot")
	}
}

func TestStoreLoadCorrupt(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "snapshot.json"), []byte("{not json"), 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	store := NewStore(dir)
	if _, err := store.Load(); err == nil {
		t.Fatalf("expected error for corrupt snapshot")
	}
}

func TestStoreSaveOverwrites(t *testing.T) {
	store := NewStore(t.TempDir())

	if err := store.Save(game.GardenView{Balance: game.BalanceView{TotalBudMicros: 1}}); err != nil {
		t.Fatalf("first save failed: %v", err)
	}
	if err := store.Save(game.GardenView{Balance: game.BalanceView{TotalBudMicros: 2}}); err != nil {
		t.Fatalf("second save failed: %v", err)
	}

	snap, err := store.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if snap.Garden.Balance.TotalBudMicros != 2 {
		t.Fatalf("expected latest snapshot to win, got %d", snap.Garden.Balance.TotalBudMicros)
	}
}

func TestStoreClear(t *testing.T) {
	store := NewStore(t.TempDir())
	if err := store.Clear(); err != nil {
		t.Fatalf("clear on empty store failed: %v", err)
	}
	if err := store.Save(game.GardenView{}); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if err := store.Clear(); err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	if _, err := store.Load(); err == nil {
		t.Fatalf("expected load to fail after clear")
	}
}
