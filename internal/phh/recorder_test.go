package phh

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lox/holdemtable/internal/deck"
	"github.com/lox/holdemtable/internal/game"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRecordedTable(t *testing.T, rec *Recorder, cards string) *game.Table {
	t.Helper()

	opts := []game.TableOption{game.WithAutoContinue(false)}
	if cards != "" {
		parsed, err := deck.ParseCards(cards)
		require.NoError(t, err)
		opts = append(opts, game.WithDeck(deck.NewOrdered(parsed)))
	}
	tbl := game.NewTable("main", opts...)
	for _, p := range []string{"p0", "p1", "p2"} {
		require.NoError(t, tbl.AddSeat(p))
	}
	tbl.Subscribe(rec)
	return tbl
}

func TestRecorderWritesShowdownHand(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	var written []string
	rec, err := NewRecorder(dir, WithWriteHook(func(path string, _ *HandHistory) {
		written = append(written, path)
	}))
	require.NoError(t, err)

	// p1 7c8h, p2 2d3s, p0 AsAh; board KdQc9s 4c 5d
	tbl := newRecordedTable(t, rec, "7c2dAs"+"8h3sAh"+"KdQc9s"+"4c"+"5d")
	require.NoError(t, tbl.StartHand())
	handID := tbl.HandID()

	steps := []struct {
		player string
		kind   game.ActionKind
		amount int
	}{
		{"p0", game.Raise, 40},
		{"p1", game.Call, 0},
		{"p2", game.Fold, 0},
		{"p1", game.Check, 0},
		{"p0", game.Bet, 20},
		{"p1", game.Call, 0},
		{"p1", game.Check, 0},
		{"p0", game.Check, 0},
		{"p1", game.Check, 0},
		{"p0", game.Check, 0},
	}
	for _, s := range steps {
		require.NoError(t, tbl.HandleAction(s.player, s.kind, s.amount), "%s %s", s.player, s.kind)
	}
	require.Equal(t, game.HandComplete, tbl.Phase())
	require.NoError(t, rec.Close())

	path := filepath.Join(dir, "main", handID+".phh")
	require.Equal(t, []string{path}, written)
	assert.Equal(t, 1, rec.Written())

	hand, err := DecodeFile(path)
	require.NoError(t, err)
	assert.Equal(t, "NT", hand.Variant)
	assert.Equal(t, "main", hand.Table)
	assert.Equal(t, handID, hand.HandID)
	assert.Equal(t, 1, hand.HandNumber)
	assert.Equal(t, []string{"p1", "p2", "p0"}, hand.Players)
	assert.Equal(t, []int{2, 3, 1}, hand.Seats)
	assert.Equal(t, []int{10, 20, 0}, hand.BlindsOrStraddles)
	assert.Equal(t, 20, hand.MinBet)
	assert.Equal(t, []int{1000, 1000, 1000}, hand.StartingStacks)
	assert.Equal(t, []int{1100, 980, 920}, hand.FinishingStacks)
	assert.Equal(t, []int{180, 0, 0}, hand.Winnings)
	assert.Equal(t, []string{
		"d dh p1 ????",
		"d dh p2 ????",
		"d dh p3 ????",
		"p3 cbr 60",
		"p1 cc",
		"p2 f",
		"d db KdQc9s",
		"p1 cc",
		"p3 cbr 20",
		"p1 cc",
		"d db 4c",
		"p1 cc",
		"p3 cc",
		"d db 5d",
		"p1 cc",
		"p3 cc",
		"p1 sm 7c8h",
		"p3 sm AsAh",
	}, hand.Actions)
	assert.Equal(t, "showdown", hand.Metadata["win_reason"])
	assert.Equal(t, "first-after-dealer", hand.Metadata["showdown_policy"])
	assert.Equal(t, "p0", hand.Metadata["dealer"])

	name, amount, ok := hand.Winner()
	require.True(t, ok)
	assert.Equal(t, "p1", name)
	assert.Equal(t, 180, amount)
}

func TestRecorderWritesFoldedHand(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	rec, err := NewRecorder(dir)
	require.NoError(t, err)
	tbl := newRecordedTable(t, rec, "")
	require.NoError(t, tbl.StartHand())
	handID := tbl.HandID()

	require.NoError(t, tbl.HandleAction("p0", game.Fold, 0))
	require.NoError(t, tbl.HandleAction("p1", game.Fold, 0))
	require.NoError(t, rec.Close())

	hand, err := DecodeFile(rec.Path("main", handID))
	require.NoError(t, err)
	assert.Equal(t, []string{"d dh p1 ????", "d dh p2 ????", "d dh p3 ????", "p3 f", "p1 f"}, hand.Actions)
	assert.Equal(t, []int{0, 30, 0}, hand.Winnings)
	assert.Equal(t, "fold", hand.Metadata["win_reason"])
	assert.NotContains(t, hand.Metadata, "showdown_policy")
}

func TestRecorderSkipsAbortedHands(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	rec, err := NewRecorder(dir)
	require.NoError(t, err)
	tbl := newRecordedTable(t, rec, "")
	require.NoError(t, tbl.StartHand())
	require.NoError(t, tbl.EndHand())
	require.NoError(t, rec.Close())

	assert.Zero(t, rec.Written())
	_, err = os.Stat(filepath.Join(dir, "main"))
	assert.True(t, os.IsNotExist(err))
}

func TestSlowDiskDoesNotBlockTable(t *testing.T) {
	t.Parallel()

	gate := make(chan struct{})
	rec, err := NewRecorder(t.TempDir(), WithWriteHook(func(string, *HandHistory) { <-gate }))
	require.NoError(t, err)
	tbl := newRecordedTable(t, rec, "")

	played := make(chan error, 1)
	go func() {
		for range 2 {
			if err := tbl.StartHand(); err != nil {
				played <- err
				return
			}
			for tbl.Phase() == game.HandInProgress {
				player, _, _ := tbl.CurrentActor()
				if err := tbl.HandleAction(player, game.Fold, 0); err != nil {
					played <- err
					return
				}
			}
		}
		played <- nil
	}()
	select {
	case err := <-played:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("table blocked on a slow hand history write")
	}

	close(gate)
	require.NoError(t, rec.Close())
	assert.Equal(t, 2, rec.Written())
	assert.Zero(t, rec.Dropped())
}

func TestRecorderDropsHandsAfterClose(t *testing.T) {
	t.Parallel()

	rec, err := NewRecorder(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, rec.Close())
	require.NoError(t, rec.Close())

	tbl := newRecordedTable(t, rec, "")
	require.NoError(t, tbl.StartHand())
	require.NoError(t, tbl.HandleAction("p0", game.Fold, 0))
	require.NoError(t, tbl.HandleAction("p1", game.Fold, 0))

	assert.Zero(t, rec.Written())
	assert.Equal(t, 1, rec.Dropped())
}

func TestRecorderRequiresDir(t *testing.T) {
	t.Parallel()

	_, err := NewRecorder("")
	assert.Error(t, err)
}

func TestSafeName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "a_b", safeName("a/b"))
	assert.Equal(t, "_", safeName(".."))
	assert.Equal(t, "main", safeName("main"))
}
