package game

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/lox/holdemtable/internal/deck"
)

// Phase is the table's position in the hand lifecycle
type Phase int

const (
	NotStarted Phase = iota
	HandInProgress
	HandComplete
	SessionComplete // fewer than two seats have chips
)

func (p Phase) String() string {
	return [...]string{"not_started", "hand_in_progress", "hand_complete", "session_complete"}[p]
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Phase) UnmarshalText(text []byte) error {
	for ph := NotStarted; ph <= SessionComplete; ph++ {
		if ph.String() == string(text) {
			*p = ph
			return nil
		}
	}
	return fmt.Errorf("unknown phase %q", text)
}

// Hand is the single canonical state of the current hand. The table owns it
// and lends it to the blind, betting, reveal and showdown components.
type Hand struct {
	ID              string
	Number          int
	Seats           []*Seat
	Pot             int
	Dealer          int
	SmallBlindIndex int
	BigBlindIndex   int
	Board           []deck.Card
	Street          Street
}

// newHandID returns a time-ordered id so hand histories sort by start time
func newHandID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// dealHoleCards gives every seat in the hand two cards, one at a time starting
// left of the dealer.
func (h *Hand) dealHoleCards(d *deck.Deck) error {
	n := len(h.Seats)
	for round := 0; round < 2; round++ {
		for i := 1; i <= n; i++ {
			s := h.Seats[(h.Dealer+i)%n]
			if !s.InHand() {
				continue
			}
			c, err := d.Draw()
			if err != nil {
				return fmt.Errorf("dealing hole cards: %w", err)
			}
			s.HoleCards = append(s.HoleCards, c)
		}
	}
	return nil
}

// committed returns the sum of every seat's commitment this hand. While a hand
// is in progress it always equals the pot.
func (h *Hand) committed() int {
	total := 0
	for _, s := range h.Seats {
		total += s.TotalBet
	}
	return total
}
