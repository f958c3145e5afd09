package main

import (
	"bytes"
	"testing"

	"github.com/lox/holdemtable/internal/config"
	"github.com/lox/holdemtable/internal/phh"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func foldedHand() *phh.HandHistory {
	return &phh.HandHistory{
		Variant:           phh.Variant,
		Table:             "main",
		HandID:            "hand-1",
		HandNumber:        3,
		Seats:             []int{2, 3, 1},
		BlindsOrStraddles: []int{10, 20, 0},
		StartingStacks:    []int{1000, 1000, 1000},
		FinishingStacks:   []int{990, 980, 1030},
		Winnings:          []int{0, 0, 30},
		Players:           []string{"bob", "carol", "alice"},
		Actions: []string{
			"d dh p1 ????",
			"d dh p2 ????",
			"d dh p3 ????",
			"p3 cbr 60",
			"p1 f",
			"p2 f",
		},
		Metadata: map[string]any{"win_reason": "fold"},
	}
}

func TestRenderHand(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	require.NoError(t, renderHand(&out, foldedHand()))

	s := out.String()
	assert.Contains(t, s, "hand #3")
	assert.Contains(t, s, "Blinds 10/20")
	assert.Contains(t, s, "alice bets to 60")
	assert.Contains(t, s, "bob folds")
	assert.Contains(t, s, "carol folds")
	assert.Contains(t, s, "alice wins 30 by fold")
}

func TestRenderHandShowsBoardAndShowdown(t *testing.T) {
	t.Parallel()

	hand := foldedHand()
	hand.Actions = []string{"p3 cc", "p1 cc", "p2 cc", "d db KdQc9s", "p1 sm 7c8h", "p2 sm ????"}

	var out bytes.Buffer
	require.NoError(t, renderHand(&out, hand))
	assert.Contains(t, out.String(), "*** K")
	assert.Contains(t, out.String(), "bob shows 7")
	assert.Contains(t, out.String(), "carol shows ????")
}

func TestRenderHandRejectsBadActions(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"unknown actor":  "p9 f",
		"unknown verb":   "p1 sd",
		"missing amount": "p1 cbr",
	}
	for name, line := range tests {
		t.Run(name, func(t *testing.T) {
			hand := foldedHand()
			hand.Actions = []string{line}
			var out bytes.Buffer
			assert.Error(t, renderHand(&out, hand))
		})
	}

	var out bytes.Buffer
	assert.Error(t, renderHand(&out, &phh.HandHistory{Variant: phh.Variant}))
}

func TestListHandsEmptyDir(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	assert.Error(t, listHands(&out, t.TempDir()))
}

func TestPositionLabel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "SB ", positionLabel(0, 3))
	assert.Equal(t, "BB ", positionLabel(1, 3))
	assert.Equal(t, "BTN", positionLabel(2, 3))
	assert.Equal(t, "   ", positionLabel(2, 5))
}

func TestServerOverrides(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cmd := ServerCmd{Addr: "127.0.0.1:0", LogLevel: "debug", HandHistoryDir: "hands", AMQPURL: "amqp://localhost"}
	cmd.applyOverrides(cfg)

	assert.Equal(t, "127.0.0.1:0", cfg.Server.Address)
	assert.Equal(t, "debug", cfg.Server.LogLevel)
	assert.Equal(t, "hands", cfg.Server.HandHistoryDir)
	assert.Equal(t, "amqp://localhost", cfg.Server.AMQPURL)
	assert.Equal(t, config.DefaultAMQPExchange, cfg.Server.AMQPExchange)

	untouched := config.Default()
	(&ServerCmd{}).applyOverrides(untouched)
	assert.Equal(t, config.DefaultAddress, untouched.Server.Address)
}
