package main

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/lox/holdemtable/internal/game"
	"github.com/lox/holdemtable/internal/phh"
	"github.com/lox/holdemtable/internal/randutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietNarrator() *log.Logger {
	return log.New(io.Discard)
}

func TestSimulationConservesChips(t *testing.T) {
	t.Parallel()

	for _, strat := range []string{"call", "random", "raise", "mixed"} {
		t.Run(strat, func(t *testing.T) {
			t.Parallel()

			sim := simulation{
				Tables:   3,
				Seats:    4,
				Hands:    40,
				Strategy: strat,
				Seed:     7,
				Options: []game.TableOption{
					game.WithBlinds(10, 20),
					game.WithStartingStack(500),
					game.WithShowdownPolicy(game.RankedShowdown{}),
				},
			}
			results, err := sim.Run(context.Background(), quietNarrator())
			require.NoError(t, err)
			require.Len(t, results, 3)

			for _, r := range results {
				assert.Equal(t, 4*500, r.TotalChips, r.Table)
				assert.Len(t, r.Seats, 4)
				assert.Greater(t, r.Hands, 0)
				if !r.SessionOver {
					assert.Equal(t, 40, r.Hands)
				}
				wins := 0
				for _, n := range r.Wins {
					wins += n
				}
				assert.Equal(t, r.Hands, wins+r.Aborted, "every hand has one outcome")
			}
		})
	}
}

func TestSimulationIsReproducible(t *testing.T) {
	t.Parallel()

	sim := simulation{Tables: 2, Seats: 3, Hands: 25, Strategy: "random", Seed: 42}
	first, err := sim.Run(context.Background(), quietNarrator())
	require.NoError(t, err)
	second, err := sim.Run(context.Background(), quietNarrator())
	require.NoError(t, err)

	for i := range first {
		assert.Equal(t, first[i].Seats, second[i].Seats)
		assert.Equal(t, first[i].Wins, second[i].Wins)
	}
}

func TestSimulationRejectsBadShape(t *testing.T) {
	t.Parallel()

	_, err := simulation{Tables: 0, Seats: 3, Hands: 1}.Run(context.Background(), quietNarrator())
	assert.Error(t, err)

	_, err = simulation{Tables: 1, Seats: game.MaxSeats + 1, Hands: 1}.Run(context.Background(), quietNarrator())
	assert.Error(t, err)
}

func TestSimulationStopsOnCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := simulation{Tables: 2, Seats: 2, Hands: 10, Strategy: "call"}.Run(ctx, quietNarrator())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSimulationRecordsHandHistories(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	recorder, err := phh.NewRecorder(dir)
	require.NoError(t, err)

	sim := simulation{
		Tables:      2,
		Seats:       3,
		Hands:       5,
		Strategy:    "call",
		Seed:        3,
		Subscribers: []game.EventSubscriber{recorder},
	}
	results, err := sim.Run(context.Background(), quietNarrator())
	require.NoError(t, err)
	require.NoError(t, recorder.Close())
	assert.Equal(t, results[0].Hands+results[1].Hands, recorder.Written())

	var out bytes.Buffer
	require.NoError(t, listHands(&out, dir))
	assert.Contains(t, out.String(), "sim-1")
	assert.Contains(t, out.String(), "sim-2")
}

func TestStrategies(t *testing.T) {
	t.Parallel()

	facingBet := []game.ValidAction{
		{Kind: game.Fold},
		{Kind: game.Call, Min: 20, Max: 20},
		{Kind: game.Raise, Min: 20, Max: 480},
		{Kind: game.AllIn, Min: 500, Max: 500},
	}
	unopened := []game.ValidAction{
		{Kind: game.Fold},
		{Kind: game.Check},
		{Kind: game.Bet, Min: 20, Max: 500},
		{Kind: game.AllIn, Min: 500, Max: 500},
	}
	shortStack := []game.ValidAction{
		{Kind: game.Fold},
		{Kind: game.AllIn, Min: 5, Max: 5},
	}

	tests := []struct {
		name     string
		strategy strategy
		actions  []game.ValidAction
		kind     game.ActionKind
		amount   int
	}{
		{"station calls", callingStation{}, facingBet, game.Call, 0},
		{"station checks", callingStation{}, unopened, game.Check, 0},
		{"station shoves when it cannot call", callingStation{}, shortStack, game.AllIn, 0},
		{"raiser raises the minimum", minRaiser{}, facingBet, game.Raise, 20},
		{"raiser bets the minimum", minRaiser{}, unopened, game.Bet, 20},
		{"raiser falls back to calling", minRaiser{}, shortStack, game.AllIn, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, amount := tt.strategy.Choose(tt.actions)
			assert.Equal(t, tt.kind, kind)
			assert.Equal(t, tt.amount, amount)
		})
	}
}

func TestRandomPlayerStaysInRange(t *testing.T) {
	t.Parallel()

	p := randomPlayer{rng: randutil.New(1)}
	actions := []game.ValidAction{
		{Kind: game.Fold},
		{Kind: game.Call, Min: 20, Max: 20},
		{Kind: game.Raise, Min: 20, Max: 100},
	}
	for i := 0; i < 500; i++ {
		kind, amount := p.Choose(actions)
		a, ok := findAction(actions, kind)
		require.True(t, ok)
		assert.GreaterOrEqual(t, amount, a.Min)
		if a.Max > 0 {
			assert.LessOrEqual(t, amount, a.Max)
		}
	}
}

func TestNewStrategyMixesBySeat(t *testing.T) {
	t.Parallel()

	rng := randutil.New(1)
	assert.Equal(t, "call", newStrategy("mixed", 0, rng).Name())
	assert.Equal(t, "random", newStrategy("mixed", 1, rng).Name())
	assert.Equal(t, "raise", newStrategy("mixed", 2, rng).Name())
	assert.Equal(t, "call", newStrategy("mixed", 3, rng).Name())
	assert.Equal(t, "raise", newStrategy("raise", 0, rng).Name())
}

func TestPrintResults(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	printResults(&out, []tableResult{{
		Table:      "sim-1",
		Hands:      12,
		Showdowns:  4,
		TotalChips: 1000,
		Wins:       map[string]int{"p1": 9, "p2": 3},
		Seats: []game.SeatView{
			{Index: 0, PlayerID: "p1", Chips: 1000},
			{Index: 1, PlayerID: "p2", Chips: 0},
		},
		SessionOver: true,
	}}, 1500*time.Millisecond)

	s := out.String()
	assert.Contains(t, s, "12 hands on 1 tables")
	assert.Contains(t, s, "sim-1")
	assert.Contains(t, s, "session over")
	assert.Contains(t, s, "p1")
	assert.Contains(t, s, "9 wins")
}
