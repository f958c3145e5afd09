package game

import (
	"fmt"

	"github.com/lox/holdemtable/internal/deck"
)

// CardRevealer deals the community cards as the hand moves from street to street
type CardRevealer struct{}

// cardsFor returns how many community cards open the given street
func cardsFor(s Street) int {
	switch s {
	case Flop:
		return 3
	case Turn, River:
		return 1
	}
	return 0
}

// RevealNext advances h by one street and returns the new cards. Each street
// reveals its cards exactly once; after the river the hand moves to showdown
// and nothing is drawn.
func (CardRevealer) RevealNext(h *Hand, d *deck.Deck) ([]deck.Card, error) {
	if h.Street >= Showdown {
		return nil, fmt.Errorf("no street after %s", h.Street)
	}

	next := h.Street + 1
	cards := make([]deck.Card, 0, cardsFor(next))
	for range cardsFor(next) {
		c, err := d.Draw()
		if err != nil {
			return nil, fmt.Errorf("revealing %s: %w", next, err)
		}
		cards = append(cards, c)
	}

	h.Street = next
	h.Board = append(h.Board, cards...)
	return cards, nil
}
