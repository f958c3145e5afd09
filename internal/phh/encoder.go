package phh

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/lox/holdemtable/internal/deck"
	"github.com/lox/holdemtable/internal/game"
)

// Encode writes the hand history to the provided writer in PHH TOML format.
func Encode(w io.Writer, hand *HandHistory) error {
	if hand == nil {
		return fmt.Errorf("phh: hand history is nil")
	}

	enc := toml.NewEncoder(w)
	enc.Indent = "\t"
	return enc.Encode(hand)
}

// EncodeToBytes encodes and returns the result as bytes.
func EncodeToBytes(hand *HandHistory) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, hand); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode reads one hand history. Keys this package does not model are ignored.
func Decode(r io.Reader) (*HandHistory, error) {
	var hand HandHistory
	if _, err := toml.NewDecoder(r).Decode(&hand); err != nil {
		return nil, fmt.Errorf("phh: %w", err)
	}
	if hand.Variant != Variant {
		return nil, fmt.Errorf("phh: unsupported variant %q", hand.Variant)
	}
	return &hand, nil
}

// DecodeFile reads a hand history from disk
func DecodeFile(path string) (*HandHistory, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f)
}

// FormatAction renders a player decision. streetBet is the highest bet on
// the street before the action and seatBet the player's bet after it; PHH
// records bets and raises by the total they raise to.
func FormatAction(player int, kind game.ActionKind, seatBet, streetBet int) string {
	p := fmt.Sprintf("p%d", player+1)
	switch kind {
	case game.Fold:
		return p + " f"
	case game.Check, game.Call:
		return p + " cc"
	case game.Bet, game.Raise:
		return fmt.Sprintf("%s cbr %d", p, seatBet)
	case game.AllIn:
		if seatBet > streetBet {
			return fmt.Sprintf("%s cbr %d", p, seatBet)
		}
		return p + " cc"
	default:
		return fmt.Sprintf("# %s %s %d", p, kind, seatBet)
	}
}

// FormatCards renders cards without separators, e.g. "AhKd". Unknown cards
// render as "????".
func FormatCards(cards []deck.Card) string {
	if len(cards) == 0 {
		return "????"
	}
	var b strings.Builder
	for _, c := range cards {
		b.WriteString(c.String())
	}
	return b.String()
}

// ParseAction splits an action line into actor ("d" or "p1".."pN"), verb and arguments
func ParseAction(line string) (actor, verb string, args []string) {
	fields := strings.Fields(line)
	switch len(fields) {
	case 0:
		return "", "", nil
	case 1:
		return fields[0], "", nil
	default:
		return fields[0], fields[1], fields[2:]
	}
}
