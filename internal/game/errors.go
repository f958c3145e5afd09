package game

import (
	"errors"
	"fmt"
)

// ErrInvalidAction is the root of every recoverable action rejection. A rejected
// action never mutates table state and never moves the turn.
var ErrInvalidAction = errors.New("invalid action")

var (
	ErrRoundInactive     = fmt.Errorf("%w: no betting round in progress", ErrInvalidAction)
	ErrNotYourTurn       = fmt.Errorf("%w: not your turn", ErrInvalidAction)
	ErrStaleTurn         = fmt.Errorf("%w: turn has already moved on", ErrInvalidAction)
	ErrSeatFolded        = fmt.Errorf("%w: seat has folded", ErrInvalidAction)
	ErrIllegalAction     = fmt.Errorf("%w: action not allowed facing the current bet", ErrInvalidAction)
	ErrBelowMinimum      = fmt.Errorf("%w: amount below the minimum", ErrInvalidAction)
	ErrInsufficientChips = fmt.Errorf("%w: not enough chips", ErrInvalidAction)
	ErrUnknownPlayer     = fmt.Errorf("%w: player is not seated", ErrInvalidAction)
)

// ErrStructural is the root of table-shape errors (seating and hand lifecycle).
var ErrStructural = errors.New("structural error")

var (
	ErrTooFewSeats      = fmt.Errorf("%w: not enough funded seats to start a hand", ErrStructural)
	ErrTableFull        = fmt.Errorf("%w: table is full", ErrStructural)
	ErrHandInProgress   = fmt.Errorf("%w: hand in progress", ErrStructural)
	ErrNoHandInProgress = fmt.Errorf("%w: no hand in progress", ErrStructural)
	ErrDuplicatePlayer  = fmt.Errorf("%w: player already seated", ErrStructural)
	ErrInvalidPlayer    = fmt.Errorf("%w: invalid player id", ErrStructural)
	ErrInvalidAmount    = fmt.Errorf("%w: amount must be positive", ErrStructural)
)

// ActionError describes a rejected action. It unwraps to one of the ErrInvalidAction sentinels.
type ActionError struct {
	PlayerID string
	Kind     ActionKind
	Amount   int
	Reason   error
}

func (e *ActionError) Error() string {
	if e.Kind == Bet || e.Kind == Raise {
		return fmt.Sprintf("%s %s %d rejected: %v", e.PlayerID, e.Kind, e.Amount, e.Reason)
	}
	return fmt.Sprintf("%s %s rejected: %v", e.PlayerID, e.Kind, e.Reason)
}

func (e *ActionError) Unwrap() error {
	return e.Reason
}
