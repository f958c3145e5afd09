package game

import (
	"github.com/lox/holdemtable/internal/deck"
)

// Seat is a player's position at the table. The table owns every seat; the
// player's identity persists across hands while the rest is reset per hand or street.
type Seat struct {
	PlayerID   string
	Chips      int
	CurrentBet int // chips committed on the current street
	TotalBet   int // chips committed during the whole hand
	Folded     bool
	SittingOut bool // busted when the hand started, not dealt in
	HoleCards  []deck.Card
}

// InHand returns true if the seat still contests the pot
func (s *Seat) InHand() bool {
	return !s.Folded && !s.SittingOut
}

// CanAct returns true if the seat can still be prompted for a decision
func (s *Seat) CanAct() bool {
	return s.InHand() && s.Chips > 0
}

// IsAllIn returns true if the seat is in the hand with nothing left behind
func (s *Seat) IsAllIn() bool {
	return s.InHand() && s.Chips == 0
}

// commit moves up to amount chips from the stack into the current bet and
// returns how much actually moved.
func (s *Seat) commit(amount int) int {
	paid := min(amount, s.Chips)
	s.Chips -= paid
	s.CurrentBet += paid
	s.TotalBet += paid
	return paid
}

func (s *Seat) resetForHand() {
	s.CurrentBet = 0
	s.TotalBet = 0
	s.Folded = false
	s.HoleCards = nil
	s.SittingOut = s.Chips == 0
}

// SeatView is a read-only copy of a seat
type SeatView struct {
	Index      int         `json:"index"`
	PlayerID   string      `json:"player_id"`
	Chips      int         `json:"chips"`
	CurrentBet int         `json:"current_bet"`
	TotalBet   int         `json:"total_bet"`
	Folded     bool        `json:"folded"`
	SittingOut bool        `json:"sitting_out,omitempty"`
	AllIn      bool        `json:"all_in,omitempty"`
	HoleCards  []deck.Card `json:"hole_cards,omitempty"`
}

func (s *Seat) view(index int, showCards bool) SeatView {
	v := SeatView{
		Index:      index,
		PlayerID:   s.PlayerID,
		Chips:      s.Chips,
		CurrentBet: s.CurrentBet,
		TotalBet:   s.TotalBet,
		Folded:     s.Folded,
		SittingOut: s.SittingOut,
		AllIn:      s.IsAllIn(),
	}
	if showCards && len(s.HoleCards) > 0 {
		v.HoleCards = append([]deck.Card(nil), s.HoleCards...)
	}
	return v
}

// nextSeat scans clockwise from start+1 and returns the first seat index that
// satisfies pred, or -1. The start seat itself is checked last.
func nextSeat(seats []*Seat, start int, pred func(*Seat) bool) int {
	n := len(seats)
	for i := 1; i <= n; i++ {
		idx := (start + i) % n
		if pred(seats[idx]) {
			return idx
		}
	}
	return -1
}

func countSeats(seats []*Seat, pred func(*Seat) bool) int {
	count := 0
	for _, s := range seats {
		if pred(s) {
			count++
		}
	}
	return count
}

func isFunded(s *Seat) bool { return s.Chips > 0 }
