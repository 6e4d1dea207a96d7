package cli

import (
	"context"
	"sync"
	"time"

	"budgarden/internal/cache"
	"budgarden/internal/game"
)

// Fetcher is the server surface the reconciler needs. *Client satisfies it.
type Fetcher interface {
	Claim(ctx context.Context, accessToken string) (game.ClaimResult, error)
	Garden(ctx context.Context, accessToken string) (game.GardenView, error)
}

// SyncState is what the reconciler knows right now. When Offline is true the
// garden view is stale display data from the cache, never spendable state.
type SyncState struct {
	Garden   game.GardenView
	Offline  bool
	LastSync time.Time
}

// Reconciler keeps the local display state pinned to the server. Every
// successful poll replaces the in-memory view wholesale; local state is never
// merged into or trusted over the server's answer.
type Reconciler struct {
	fetcher Fetcher
	store   *cache.Store
	token   string

	mu    sync.Mutex
	state SyncState
}

func NewReconciler(fetcher Fetcher, store *cache.Store, accessToken string) *Reconciler {
	return &Reconciler{
		fetcher: fetcher,
		store:   store,
		token:   accessToken,
	}
}

// Start settles accrual earned while the client was away, then primes the
// display state. If the server is unreachable it falls back to the last
// snapshot for display only and reports the offline state.
func (r *Reconciler) Start(ctx context.Context) (SyncState, error) {
	if _, err := r.fetcher.Claim(ctx, r.token); err != nil {
		return r.degrade(), err
	}
	view, err := r.fetcher.Garden(ctx, r.token)
	if err != nil {
		return r.degrade(), err
	}
	return r.adopt(view), nil
}

// Tick polls the server once. On success the view is replaced and the
// snapshot rewritten; on failure the last view is kept and the state is
// flagged offline so the next tick can recover.
func (r *Reconciler) Tick(ctx context.Context) (SyncState, error) {
	view, err := r.fetcher.Garden(ctx, r.token)
	if err != nil {
		r.mu.Lock()
		r.state.Offline = true
		out := r.state
		r.mu.Unlock()
		return out, err
	}
	return r.adopt(view), nil
}

// Run polls until the context is cancelled, invoking onUpdate after every
// tick. Poll errors are absorbed; they surface as Offline in the state.
func (r *Reconciler) Run(ctx context.Context, every time.Duration, onUpdate func(SyncState)) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			state, _ := r.Tick(ctx)
			if onUpdate != nil {
				onUpdate(state)
			}
		}
	}
}

func (r *Reconciler) State() SyncState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Reconciler) adopt(view game.GardenView) SyncState {
	r.mu.Lock()
	r.state = SyncState{Garden: view, Offline: false, LastSync: time.Now()}
	out := r.state
	r.mu.Unlock()
	if r.store != nil {
		// Snapshot write failures never block the sync itself.
		_ = r.store.Save(view)
	}
	return out
}

func (r *Reconciler) degrade() SyncState {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.Offline = true
	if r.state.LastSync.IsZero() && r.store != nil {
		if snap, err := r.store.Load(); err == nil {
			r.state.Garden = snap.Garden
			r.state.LastSync = snap.SavedAt
		}
	}
	return r.state
}
