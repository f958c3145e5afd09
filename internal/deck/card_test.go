package deck

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCards(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected []Card
		wantErr  bool
	}{
		{
			name:  "royal flush",
			input: "AsKsQsJsTs",
			expected: []Card{
				{Suit: Spades, Rank: Ace},
				{Suit: Spades, Rank: King},
				{Suit: Spades, Rank: Queen},
				{Suit: Spades, Rank: Jack},
				{Suit: Spades, Rank: Ten},
			},
		},
		{
			name:  "mixed suits",
			input: "AhKdQcJs9s",
			expected: []Card{
				{Suit: Hearts, Rank: Ace},
				{Suit: Diamonds, Rank: King},
				{Suit: Clubs, Rank: Queen},
				{Suit: Spades, Rank: Jack},
				{Suit: Spades, Rank: Nine},
			},
		},
		{
			name:  "case insensitive",
			input: "asKHqDjc",
			expected: []Card{
				{Suit: Spades, Rank: Ace},
				{Suit: Hearts, Rank: King},
				{Suit: Diamonds, Rank: Queen},
				{Suit: Clubs, Rank: Jack},
			},
		},
		{name: "invalid rank", input: "XsKs", wantErr: true},
		{name: "invalid suit", input: "AxKs", wantErr: true},
		{name: "odd length", input: "AsK", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCards(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestCardValueAndString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 14, NewCard(Spades, Ace).Value())
	assert.Equal(t, 2, NewCard(Clubs, Two).Value())
	assert.Equal(t, "Td", NewCard(Diamonds, Ten).String())
	assert.Equal(t, "Q♥", NewCard(Hearts, Queen).Pretty())
	assert.True(t, NewCard(Hearts, Queen).IsRed())
	assert.False(t, NewCard(Clubs, Queen).IsRed())
	assert.Equal(t, NewCard(Hearts, Four), Card{Suit: Hearts, Rank: Four})
	assert.False(t, Card{}.Valid())
}

func TestFormatCards(t *testing.T) {
	t.Parallel()

	cards, err := ParseCards("2c3dAh")
	require.NoError(t, err)
	assert.Equal(t, "2c 3d Ah", FormatCards(cards))
	assert.Equal(t, "", FormatCards(nil))
}

func TestCardTextRoundTrip(t *testing.T) {
	t.Parallel()

	card := NewCard(Hearts, Ten)
	text, err := card.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "Th", string(text))

	var back Card
	require.NoError(t, back.UnmarshalText(text))
	assert.Equal(t, card, back)

	_, err = Card{}.MarshalText()
	assert.Error(t, err)
}
