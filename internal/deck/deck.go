package deck

import (
	"errors"
	rand "math/rand/v2"
)

// Size is the number of cards in a full deck
const Size = 52

// ErrDeckEmpty is returned when drawing from a deck with no cards left
var ErrDeckEmpty = errors.New("deck is empty")

// Deck is an owned, shuffled sequence of the 52 unique cards
type Deck struct {
	cards   []Card
	rng     *rand.Rand
	ordered []Card // fixed deal order, nil for shuffled decks
}

// New creates a full deck shuffled with the provided RNG. A nil RNG falls back
// to the runtime's random source.
func New(rng *rand.Rand) *Deck {
	d := &Deck{
		cards: make([]Card, 0, Size),
		rng:   rng,
	}
	d.Reset()
	return d
}

// NewOrdered creates a deck that deals the given cards in order without shuffling.
// Reset refills it with the same sequence, which keeps scripted hands repeatable.
func NewOrdered(cards []Card) *Deck {
	ordered := append([]Card(nil), cards...)
	return &Deck{cards: append([]Card(nil), ordered...), ordered: ordered}
}

// Reset restores all 52 cards and shuffles them
func (d *Deck) Reset() {
	if d.ordered != nil {
		d.cards = append(d.cards[:0], d.ordered...)
		return
	}

	d.cards = d.cards[:0]
	for suit := Clubs; suit <= Spades; suit++ {
		for rank := Two; rank <= Ace; rank++ {
			d.cards = append(d.cards, NewCard(suit, rank))
		}
	}
	d.shuffle()
}

// shuffle randomizes the order of cards in the deck (Fisher-Yates)
func (d *Deck) shuffle() {
	for i := len(d.cards) - 1; i > 0; i-- {
		var j int
		if d.rng != nil {
			j = d.rng.IntN(i + 1)
		} else {
			j = rand.IntN(i + 1)
		}
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	}
}

// Draw removes and returns the top card
func (d *Deck) Draw() (Card, error) {
	if len(d.cards) == 0 {
		return Card{}, ErrDeckEmpty
	}

	card := d.cards[0]
	d.cards = d.cards[1:]
	return card, nil
}

// DrawN draws up to n cards, returning fewer if the deck runs out
func (d *Deck) DrawN(n int) []Card {
	n = max(0, min(n, len(d.cards)))

	cards := make([]Card, n)
	copy(cards, d.cards[:n])
	d.cards = d.cards[n:]
	return cards
}

// Remaining returns the number of cards left in the deck
func (d *Deck) Remaining() int {
	return len(d.cards)
}
