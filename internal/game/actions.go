package game

import (
	"fmt"
	"strings"
)

// ActionKind is a decision a seat can make on its turn
type ActionKind int

const (
	Fold ActionKind = iota
	Check
	Call
	Bet
	Raise
	AllIn
)

func (a ActionKind) String() string {
	return [...]string{"fold", "check", "call", "bet", "raise", "allin"}[a]
}

// ParseActionKind converts an action name (case-insensitive) into an ActionKind
func ParseActionKind(s string) (ActionKind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "all-in" || s == "all_in" {
		s = "allin"
	}
	for a := Fold; a <= AllIn; a++ {
		if a.String() == s {
			return a, nil
		}
	}
	return Fold, fmt.Errorf("unknown action %q", s)
}

// ActionResult is the effect of an accepted action on the acting seat
type ActionResult struct {
	NewSeatBet  int // the seat's street bet after the action
	PotIncrease int // chips moved from the stack into the pot
	AllIn       bool
}

// ValidAction describes one legal choice for the current actor. For Bet and
// Raise the amounts are the increment over the current bet.
type ValidAction struct {
	Kind ActionKind `json:"kind"`
	Min  int        `json:"min,omitempty"`
	Max  int        `json:"max,omitempty"`
}

// ActionManager validates and applies a single seat's decision. Amounts for Bet
// and Raise must be at least MinBet.
type ActionManager struct {
	MinBet int
}

// HandleAction validates kind/amount for the seat at index and applies it to
// the seat. The caller credits the pot and records any raise on the round.
// A rejected action leaves the seat untouched.
func (m ActionManager) HandleAction(br *BettingRound, index int, seat *Seat, kind ActionKind, amount int) (ActionResult, error) {
	if err := m.validate(br, index, seat, kind, amount); err != nil {
		return ActionResult{}, err
	}

	var paid int
	switch kind {
	case Fold:
		seat.Folded = true
	case Check:
	case Call:
		paid = seat.commit(br.CurrentBet - seat.CurrentBet)
	case Bet:
		paid = seat.commit(amount)
	case Raise:
		paid = seat.commit(br.CurrentBet - seat.CurrentBet + amount)
	case AllIn:
		paid = seat.commit(seat.Chips)
	}

	return ActionResult{
		NewSeatBet:  seat.CurrentBet,
		PotIncrease: paid,
		AllIn:       paid > 0 && seat.Chips == 0,
	}, nil
}

func (m ActionManager) validate(br *BettingRound, index int, seat *Seat, kind ActionKind, amount int) error {
	if !br.Active {
		return ErrRoundInactive
	}
	if index != br.CurrentPlayer {
		return ErrNotYourTurn
	}
	if seat.Folded {
		return ErrSeatFolded
	}

	toCall := br.CurrentBet - seat.CurrentBet
	switch kind {
	case Fold:
		return nil
	case Check:
		if br.CurrentBet != 0 && toCall != 0 {
			return ErrIllegalAction
		}
	case Call:
		if toCall <= 0 {
			return ErrIllegalAction
		}
	case Bet:
		if br.CurrentBet != 0 {
			return ErrIllegalAction
		}
		if amount < m.MinBet {
			return ErrBelowMinimum
		}
		if seat.Chips < amount {
			return ErrInsufficientChips
		}
	case Raise:
		if br.CurrentBet == 0 {
			return ErrIllegalAction
		}
		if amount < m.MinBet {
			return ErrBelowMinimum
		}
		if seat.Chips < toCall+amount {
			return ErrInsufficientChips
		}
	case AllIn:
		if seat.Chips == 0 {
			return ErrInsufficientChips
		}
	default:
		return ErrIllegalAction
	}
	return nil
}

// ValidActions lists the legal choices for the seat at index. It is empty when
// the seat is not the current actor.
func (m ActionManager) ValidActions(br *BettingRound, index int, seat *Seat) []ValidAction {
	if !br.Active || index != br.CurrentPlayer || !seat.CanAct() {
		return nil
	}

	toCall := br.CurrentBet - seat.CurrentBet
	actions := []ValidAction{{Kind: Fold}}
	if br.CurrentBet == 0 || toCall == 0 {
		actions = append(actions, ValidAction{Kind: Check})
	}
	if toCall > 0 {
		call := min(toCall, seat.Chips)
		actions = append(actions, ValidAction{Kind: Call, Min: call, Max: call})
	}
	if br.CurrentBet == 0 && seat.Chips >= m.MinBet {
		actions = append(actions, ValidAction{Kind: Bet, Min: m.MinBet, Max: seat.Chips})
	}
	if br.CurrentBet > 0 && seat.Chips >= toCall+m.MinBet {
		actions = append(actions, ValidAction{Kind: Raise, Min: m.MinBet, Max: seat.Chips - toCall})
	}
	actions = append(actions, ValidAction{Kind: AllIn, Min: seat.Chips, Max: seat.Chips})
	return actions
}

func (a ActionKind) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *ActionKind) UnmarshalText(text []byte) error {
	kind, err := ParseActionKind(string(text))
	if err != nil {
		return err
	}
	*a = kind
	return nil
}
