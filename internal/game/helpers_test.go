package game

import (
	"fmt"
	"sync"
	"testing"

	"github.com/lox/holdemtable/internal/randutil"
	"github.com/stretchr/testify/require"
)

// newTestTable seats len(stacks) players named p0, p1, ... with the given
// chips. Hands do not auto-continue unless an option says otherwise.
func newTestTable(t *testing.T, stacks []int, opts ...TableOption) *Table {
	t.Helper()

	opts = append([]TableOption{WithRNG(randutil.New(1)), WithAutoContinue(false)}, opts...)
	tbl := NewTable("test", opts...)
	for i := range stacks {
		require.NoError(t, tbl.AddSeat(fmt.Sprintf("p%d", i)))
	}

	tbl.seeded = true
	for i, chips := range stacks {
		tbl.hand.Seats[i].Chips = chips
	}
	return tbl
}

func uniformStacks(n, chips int) []int {
	stacks := make([]int, n)
	for i := range stacks {
		stacks[i] = chips
	}
	return stacks
}

func act(t *testing.T, tbl *Table, player string, kind ActionKind, amount int) {
	t.Helper()
	require.NoError(t, tbl.HandleAction(player, kind, amount), "%s %s %d", player, kind, amount)
}

func actor(t *testing.T, tbl *Table) string {
	t.Helper()
	player, _, ok := tbl.CurrentActor()
	require.True(t, ok, "expected someone to act")
	return player
}

// eventRecorder collects every event published on a table
type eventRecorder struct {
	mu     sync.Mutex
	events []GameEvent
}

func (r *eventRecorder) OnEvent(e GameEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *eventRecorder) types() []EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	types := make([]EventType, len(r.events))
	for i, e := range r.events {
		types[i] = e.EventType()
	}
	return types
}

func (r *eventRecorder) last(et EventType) GameEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].EventType() == et {
			return r.events[i]
		}
	}
	return nil
}

func (r *eventRecorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
