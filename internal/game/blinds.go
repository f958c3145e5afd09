package game

// BlindManager posts the forced bets at the start of a hand
type BlindManager struct {
	SmallBlind int
	BigBlind   int
}

// PostBlinds moves the blinds from the two seats' stacks into their bets and
// returns the total posted. A short stack posts what it has and is all-in.
func (b BlindManager) PostBlinds(small, big *Seat) int {
	return small.commit(b.SmallBlind) + big.commit(b.BigBlind)
}

// blindSeats returns the small and big blind positions for a dealer. Busted
// seats are skipped, so with every seat funded this is (dealer+1, dealer+2) mod n.
func blindSeats(seats []*Seat, dealer int) (small, big int) {
	small = nextSeat(seats, dealer, (*Seat).InHand)
	big = nextSeat(seats, small, (*Seat).InHand)
	return small, big
}
