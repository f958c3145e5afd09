package game

import "fmt"

// Street represents the betting round
type Street int

const (
	Preflop Street = iota
	Flop
	Turn
	River
	Showdown
)

func (s Street) String() string {
	return [...]string{"preflop", "flop", "turn", "river", "showdown"}[s]
}

// ParseStreet converts a street name back into a Street
func ParseStreet(s string) (Street, bool) {
	for st := Preflop; st <= Showdown; st++ {
		if st.String() == s {
			return st, true
		}
	}
	return Preflop, false
}

// BettingRound tracks whose turn it is on the current street and when the street is closed.
type BettingRound struct {
	Street            Street
	CurrentBet        int  // highest per-seat bet on this street
	CurrentPlayer     int  // -1 when nobody is to act
	FirstToAct        int  // the circle closes when the turn passes this seat
	BigBlindIndex     int  // preflop only
	BigBlindHasOption bool // preflop only, cleared once the big blind acts or anyone raises
	Active            bool

	circled bool
}

// StartBettingRound opens a street with firstActor to move. A first actor of -1
// means no seat can act and the circle counts as complete.
func (br *BettingRound) StartBettingRound(street Street, currentBet, firstActor int) {
	br.Street = street
	br.CurrentBet = currentBet
	br.CurrentPlayer = firstActor
	br.FirstToAct = firstActor
	br.Active = true
	br.circled = firstActor == -1
	if street != Preflop {
		br.BigBlindHasOption = false
	}
}

// closesImmediately reports whether a freshly opened street needs no decisions:
// nobody can act, or a single actor already matches the current bet.
func (br *BettingRound) closesImmediately(seats []*Seat) bool {
	if countSeats(seats, (*Seat).InHand) <= 1 {
		return true
	}
	switch countSeats(seats, (*Seat).CanAct) {
	case 0:
		return true
	case 1:
		actor := seats[nextSeat(seats, -1, (*Seat).CanAct)]
		return actor.CurrentBet >= br.CurrentBet
	}
	return false
}

// raise records a new highest bet. Action reopens to every other seat and the
// circle restarts from the raiser.
func (br *BettingRound) raise(index, newBet int) {
	br.CurrentBet = newBet
	br.FirstToAct = index
	br.circled = false
	br.BigBlindHasOption = false
}

// IsFullCircleCompleted reports whether passing the turn on from previous
// reaches or skips past FirstToAct. Seats that cannot act are skipped.
func (br *BettingRound) IsFullCircleCompleted(seats []*Seat, previous int) bool {
	next := nextSeat(seats, previous, (*Seat).CanAct)
	if next == -1 || br.FirstToAct == -1 {
		return true
	}

	n := len(seats)
	for i := (previous + 1) % n; ; i = (i + 1) % n {
		if i == br.FirstToAct {
			return true
		}
		if i == next {
			return false
		}
	}
}

// IsBettingRoundComplete reports whether the street is closed: one seat remains,
// or every seat has matched the bet (or is all-in), the circle is done and the
// big blind has used its option.
func (br *BettingRound) IsBettingRoundComplete(seats []*Seat) bool {
	if countSeats(seats, (*Seat).InHand) <= 1 {
		return true
	}
	for _, s := range seats {
		if s.CanAct() && s.CurrentBet != br.CurrentBet {
			return false
		}
	}
	if !br.circled {
		return false
	}
	return !(br.Street == Preflop && br.BigBlindHasOption)
}

// Advance passes the turn on from the seat that just acted. It returns true
// when the street is closed, in which case nobody is left to act.
func (br *BettingRound) Advance(seats []*Seat, previous int) bool {
	if br.IsFullCircleCompleted(seats, previous) {
		br.circled = true
	}

	if br.IsBettingRoundComplete(seats) {
		br.close()
		return true
	}

	br.CurrentPlayer = nextSeat(seats, previous, (*Seat).CanAct)
	return false
}

func (br *BettingRound) close() {
	br.Active = false
	br.CurrentPlayer = -1
}

// collectBets ends the street's accounting. The pot already holds every
// committed chip, so only the per-street bets are cleared.
func collectBets(seats []*Seat) {
	for _, s := range seats {
		s.CurrentBet = 0
	}
}

func (s Street) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Street) UnmarshalText(text []byte) error {
	st, ok := ParseStreet(string(text))
	if !ok {
		return fmt.Errorf("unknown street %q", text)
	}
	*s = st
	return nil
}
