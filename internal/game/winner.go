package game

import (
	"fmt"

	"github.com/lox/holdemtable/internal/deck"
	"github.com/paulhankin/poker"
)

// WinReason says how a hand was decided
type WinReason string

const (
	WinByFold     WinReason = "fold"
	WinByShowdown WinReason = "showdown"
)

// ShowdownPolicy picks the single seat that takes the pot when two or more
// seats reach showdown. It returns -1 if no seat is eligible.
type ShowdownPolicy interface {
	Name() string
	Winner(seats []*Seat, board []deck.Card, dealer int) int
}

// FirstAfterDealer awards the pot to the first seat still in the hand
// clockwise from the dealer. Cards are ignored.
type FirstAfterDealer struct{}

func (FirstAfterDealer) Name() string { return "first-after-dealer" }

func (FirstAfterDealer) Winner(seats []*Seat, _ []deck.Card, dealer int) int {
	return nextSeat(seats, dealer, (*Seat).InHand)
}

// RankedShowdown awards the pot to the best seven-card hand. Ties go to the
// first tied seat clockwise from the dealer, so the pot is never split.
type RankedShowdown struct{}

func (RankedShowdown) Name() string { return "ranked" }

func (RankedShowdown) Winner(seats []*Seat, board []deck.Card, dealer int) int {
	best, bestScore := -1, int16(0)
	n := len(seats)
	for i := 1; i <= n; i++ {
		idx := (dealer + i) % n
		s := seats[idx]
		if !s.InHand() {
			continue
		}
		score, err := scoreHand(s.HoleCards, board)
		if err != nil {
			continue
		}
		if best == -1 || score > bestScore {
			best, bestScore = idx, score
		}
	}
	if best == -1 {
		return FirstAfterDealer{}.Winner(seats, board, dealer)
	}
	return best
}

// ParseShowdownPolicy resolves a policy by name
func ParseShowdownPolicy(name string) (ShowdownPolicy, error) {
	switch name {
	case "", FirstAfterDealer{}.Name():
		return FirstAfterDealer{}, nil
	case RankedShowdown{}.Name():
		return RankedShowdown{}, nil
	}
	return nil, fmt.Errorf("unknown showdown policy %q", name)
}

// scoreHand evaluates two hole cards plus a five-card board. Higher is better.
func scoreHand(hole, board []deck.Card) (int16, error) {
	if len(hole) != 2 || len(board) != 5 {
		return 0, fmt.Errorf("need 2 hole cards and 5 board cards, got %d and %d", len(hole), len(board))
	}

	var cards [7]poker.Card
	for i, c := range append(append([]deck.Card(nil), board...), hole...) {
		pc, err := toPokerCard(c)
		if err != nil {
			return 0, err
		}
		cards[i] = pc
	}
	return poker.Eval7(&cards), nil
}

// DescribeHand names the best hand a seat makes with the board, e.g. "two pair".
func DescribeHand(hole, board []deck.Card) (string, error) {
	cards := make([]poker.Card, 0, len(hole)+len(board))
	for _, c := range append(append([]deck.Card(nil), board...), hole...) {
		pc, err := toPokerCard(c)
		if err != nil {
			return "", err
		}
		cards = append(cards, pc)
	}
	return poker.Describe(cards)
}

// toPokerCard converts to the evaluator's encoding, where the ace is rank 1
func toPokerCard(c deck.Card) (poker.Card, error) {
	rank := int(c.Rank)
	if c.Rank == deck.Ace {
		rank = 1
	}
	return poker.MakeCard(poker.Suit(c.Suit), poker.Rank(rank))
}
