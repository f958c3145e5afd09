package server

import (
	"errors"
	"sync"
	"time"

	"github.com/coder/quartz"
	"github.com/lox/holdemtable/internal/game"
	"github.com/rs/zerolog"
)

// TurnTimer folds a player who does not act within the timeout. It arms on
// every TurnStartedEvent and submits the fold for that exact turn, so a fold
// that races a real decision is rejected by the table as stale.
type TurnTimer struct {
	table   *game.Table
	timeout time.Duration
	clock   quartz.Clock
	logger  zerolog.Logger

	mu        sync.Mutex
	timer     *quartz.Timer
	autoFolds uint64
	stopped   bool
}

// NewTurnTimer creates a timer for tbl. It does nothing until subscribed to
// the table's events.
func NewTurnTimer(tbl *game.Table, timeout time.Duration, clock quartz.Clock, logger zerolog.Logger) *TurnTimer {
	return &TurnTimer{
		table:   tbl,
		timeout: timeout,
		clock:   clock,
		logger:  logger.With().Str("component", "turn_timer").Str("table", tbl.ID()).Logger(),
	}
}

// OnEvent implements game.EventSubscriber
func (tt *TurnTimer) OnEvent(e game.GameEvent) {
	if e.TableID() != tt.table.ID() {
		return
	}
	switch ev := e.(type) {
	case game.TurnStartedEvent:
		tt.arm(ev.Turn, ev.PlayerID)
	case game.HandWonEvent, game.HandAbortedEvent, game.SessionOverEvent:
		tt.disarm()
	}
}

func (tt *TurnTimer) arm(turn uint64, player string) {
	tt.mu.Lock()
	defer tt.mu.Unlock()
	if tt.stopped {
		return
	}
	if tt.timer != nil {
		tt.timer.Stop()
	}
	tt.timer = tt.clock.AfterFunc(tt.timeout, func() { tt.expire(turn, player) }, "turn")
}

func (tt *TurnTimer) disarm() {
	tt.mu.Lock()
	defer tt.mu.Unlock()
	if tt.timer != nil {
		tt.timer.Stop()
		tt.timer = nil
	}
}

func (tt *TurnTimer) expire(turn uint64, player string) {
	err := tt.table.HandleActionAt(turn, player, game.Fold, 0)
	switch {
	case err == nil:
		tt.mu.Lock()
		tt.autoFolds++
		tt.mu.Unlock()
		tt.logger.Info().Str("player", player).Uint64("turn", turn).Msg("Player timed out, folding")
	case errors.Is(err, game.ErrInvalidAction):
		tt.logger.Debug().Err(err).Str("player", player).Msg("Timeout fold rejected")
	default:
		tt.logger.Error().Err(err).Str("player", player).Msg("Timeout fold failed")
	}
}

// AutoFolds returns how many players were folded for running out of time
func (tt *TurnTimer) AutoFolds() uint64 {
	tt.mu.Lock()
	defer tt.mu.Unlock()
	return tt.autoFolds
}

// Stop disarms the timer for good
func (tt *TurnTimer) Stop() {
	tt.mu.Lock()
	defer tt.mu.Unlock()
	tt.stopped = true
	if tt.timer != nil {
		tt.timer.Stop()
		tt.timer = nil
	}
}
