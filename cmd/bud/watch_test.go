package main

import (
	"context"
	"testing"

	cl "budgarden/internal/cli"
	"budgarden/internal/game"

	"github.com/stretchr/testify/require"
)

// ctxEchoFetcher reports whatever state the request context is in, so tests
// can observe which context the watch commands dial out with.
type ctxEchoFetcher struct{}

func (ctxEchoFetcher) Claim(ctx context.Context, _ string) (game.ClaimResult, error) {
	return game.ClaimResult{}, ctx.Err()
}

func (ctxEchoFetcher) Garden(ctx context.Context, _ string) (game.GardenView, error) {
	return game.GardenView{}, ctx.Err()
}

func TestWatchCommands_HonorProgramContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m := watchModel{
		ctx: ctx,
		rec: cl.NewReconciler(ctxEchoFetcher{}, nil, "tok"),
	}

	msg, ok := m.startCmd()().(syncDoneMsg)
	require.True(t, ok)
	require.ErrorIs(t, msg.err, context.Canceled)
	require.True(t, msg.state.Offline)

	msg, ok = m.tickCmd()().(syncDoneMsg)
	require.True(t, ok)
	require.ErrorIs(t, msg.err, context.Canceled)
}
