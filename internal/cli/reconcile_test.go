package cli

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"budgarden/internal/cache"
	"budgarden/internal/game"

	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	claimErr  error
	garden    game.GardenView
	gardenErr error
	claims    int
	fetches   int
}

func (f *fakeFetcher) Claim(ctx context.Context, accessToken string) (game.ClaimResult, error) {
	f.claims++
	return game.ClaimResult{}, f.claimErr
}

func (f *fakeFetcher) Garden(ctx context.Context, accessToken string) (game.GardenView, error) {
	f.fetches++
	return f.garden, f.gardenErr
}

func serverView(total int64, items ...game.PlacedItemView) game.GardenView {
	return game.GardenView{
		Balance:     game.BalanceView{TotalBudMicros: total},
		PlacedItems: items,
	}
}

func TestReconcilerStart_ClaimsThenAdoptsServerState(t *testing.T) {
	store := cache.NewStore(t.TempDir())
	fetcher := &fakeFetcher{garden: serverView(7 * game.MicrosPerBud)}
	rec := NewReconciler(fetcher, store, "tok")

	state, err := rec.Start(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, fetcher.claims)
	require.False(t, state.Offline)
	require.Equal(t, int64(7*game.MicrosPerBud), state.Garden.Balance.TotalBudMicros)

	// The snapshot is rewritten on every successful sync.
	snap, err := store.Load()
	require.NoError(t, err)
	require.Equal(t, int64(7*game.MicrosPerBud), snap.Garden.Balance.TotalBudMicros)
}

func TestReconcilerStart_FallsBackToSnapshotWhenOffline(t *testing.T) {
	store := cache.NewStore(t.TempDir())
	require.NoError(t, store.Save(serverView(3*game.MicrosPerBud)))

	fetcher := &fakeFetcher{claimErr: errors.New("connection refused")}
	rec := NewReconciler(fetcher, store, "tok")

	state, err := rec.Start(context.Background())
	require.Error(t, err)
	require.True(t, state.Offline)
	require.Equal(t, int64(3*game.MicrosPerBud), state.Garden.Balance.TotalBudMicros)
}

func TestReconcilerStart_TamperedSnapshotDiscarded(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "snapshot.json"), []byte(`{"garden": {"balance": {"total_bud_micros":`), 0o600))

	fetcher := &fakeFetcher{claimErr: errors.New("connection refused")}
	rec := NewReconciler(fetcher, cache.NewStore(dir), "tok")

	// A corrupt cache is never trusted: the client starts from an empty view.
	state, err := rec.Start(context.Background())
	require.Error(t, err)
	require.True(t, state.Offline)
	require.Equal(t, int64(0), state.Garden.Balance.TotalBudMicros)
	require.Empty(t, state.Garden.PlacedItems)
}

func TestReconcilerTick_ReplacesStateNeverMerges(t *testing.T) {
	store := cache.NewStore(t.TempDir())
	fetcher := &fakeFetcher{garden: serverView(10*game.MicrosPerBud,
		game.PlacedItemView{ID: 1, ItemKind: "sprout"},
		game.PlacedItemView{ID: 2, ItemKind: "radio"},
	)}
	rec := NewReconciler(fetcher, store, "tok")

	_, err := rec.Tick(context.Background())
	require.NoError(t, err)
	require.Len(t, rec.State().Garden.PlacedItems, 2)

	// Server now reports fewer items and a lower balance; the local view
	// must match it exactly instead of keeping the richer local copy.
	fetcher.garden = serverView(4*game.MicrosPerBud, game.PlacedItemView{ID: 1, ItemKind: "sprout"})
	state, err := rec.Tick(context.Background())
	require.NoError(t, err)
	require.Len(t, state.Garden.PlacedItems, 1)
	require.Equal(t, int64(4*game.MicrosPerBud), state.Garden.Balance.TotalBudMicros)
}

func TestReconcilerTick_OfflineKeepsLastViewAndRecovers(t *testing.T) {
	store := cache.NewStore(t.TempDir())
	fetcher := &fakeFetcher{garden: serverView(5 * game.MicrosPerBud)}
	rec := NewReconciler(fetcher, store, "tok")

	_, err := rec.Tick(context.Background())
	require.NoError(t, err)

	fetcher.gardenErr = errors.New("timeout")
	state, err := rec.Tick(context.Background())
	require.Error(t, err)
	require.True(t, state.Offline)
	require.Equal(t, int64(5*game.MicrosPerBud), state.Garden.Balance.TotalBudMicros)

	fetcher.gardenErr = nil
	fetcher.garden = serverView(6 * game.MicrosPerBud)
	state, err = rec.Tick(context.Background())
	require.NoError(t, err)
	require.False(t, state.Offline)
	require.Equal(t, int64(6*game.MicrosPerBud), state.Garden.Balance.TotalBudMicros)
}
