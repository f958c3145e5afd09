package game

import (
	"github.com/lox/holdemtable/internal/deck"
)

// TableView is a consistent copy of the table at one instant. Hole cards are
// only present for the viewer's own seat.
type TableView struct {
	TableID        string        `json:"table_id"`
	HandID         string        `json:"hand_id,omitempty"`
	HandNumber     int           `json:"hand_number"`
	Phase          Phase         `json:"phase"`
	Street         Street        `json:"street"`
	Pot            int           `json:"pot"`
	CurrentBet     int           `json:"current_bet"`
	Dealer         int           `json:"dealer"`
	SmallBlindSeat int           `json:"small_blind_seat"`
	BigBlindSeat   int           `json:"big_blind_seat"`
	Board          []deck.Card   `json:"board"`
	Seats          []SeatView    `json:"seats"`
	CurrentActor   int           `json:"current_actor"` // -1 when nobody is to act
	Turn           uint64        `json:"turn"`
	Viewer         string        `json:"viewer,omitempty"`
	ValidActions   []ValidAction `json:"valid_actions,omitempty"`
}

func (t *Table) ID() string {
	return t.id
}

// Blinds returns the configured small and big blind
func (t *Table) Blinds() (small, big int) {
	return t.cfg.smallBlind, t.cfg.bigBlind
}

func (t *Table) Phase() Phase {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.phase
}

func (t *Table) Pot() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.hand.Pot
}

func (t *Table) Street() Street {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.hand.Street
}

func (t *Table) CurrentBet() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.betting.CurrentBet
}

func (t *Table) DealerIndex() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.hand.Dealer
}

func (t *Table) HandID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.hand.ID
}

// CommunityCards returns a copy of the board
func (t *Table) CommunityCards() []deck.Card {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]deck.Card(nil), t.hand.Board...)
}

// CurrentActor returns the player to act and the turn number, or ok=false
// when no decision is pending.
func (t *Table) CurrentActor() (playerID string, turn uint64, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.phase != HandInProgress || t.betting.CurrentPlayer < 0 {
		return "", t.turn, false
	}
	return t.hand.Seats[t.betting.CurrentPlayer].PlayerID, t.turn, true
}

// Seats returns a copy of every seat without hole cards
func (t *Table) Seats() []SeatView {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.seatViews(false)
}

// Seat returns one player's seat including their hole cards
func (t *Table) Seat(playerID string) (SeatView, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	idx, ok := t.index[playerID]
	if !ok {
		return SeatView{}, false
	}
	return t.hand.Seats[idx].view(idx, true), true
}

// TotalChips returns every chip on the table: stacks plus the pot. It only
// changes through seating, rebuys and removals.
func (t *Table) TotalChips() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	total := t.hand.Pot
	for _, s := range t.hand.Seats {
		total += s.Chips
	}
	return total
}

// ValidActions lists what the player may do now. It is empty unless it is their turn.
func (t *Table) ValidActions(playerID string) []ValidAction {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.validActions(playerID)
}

func (t *Table) validActions(playerID string) []ValidAction {
	idx, ok := t.index[playerID]
	if !ok || t.phase != HandInProgress {
		return nil
	}
	return t.actions.ValidActions(&t.betting, idx, t.hand.Seats[idx])
}

// Snapshot returns the public view of the table
func (t *Table) Snapshot() TableView {
	return t.ViewFor("")
}

// ViewFor returns the table as playerID sees it: their own hole cards and,
// on their turn, the actions available to them.
func (t *Table) ViewFor(playerID string) TableView {
	t.mu.Lock()
	defer t.mu.Unlock()

	h := &t.hand
	v := TableView{
		TableID:        t.id,
		HandID:         h.ID,
		HandNumber:     h.Number,
		Phase:          t.phase,
		Street:         h.Street,
		Pot:            h.Pot,
		CurrentBet:     t.betting.CurrentBet,
		Dealer:         h.Dealer,
		SmallBlindSeat: h.SmallBlindIndex,
		BigBlindSeat:   h.BigBlindIndex,
		Board:          append([]deck.Card(nil), h.Board...),
		Seats:          make([]SeatView, len(h.Seats)),
		CurrentActor:   -1,
		Turn:           t.turn,
		Viewer:         playerID,
	}
	if t.phase == HandInProgress {
		v.CurrentActor = t.betting.CurrentPlayer
	}
	for i, s := range h.Seats {
		v.Seats[i] = s.view(i, playerID != "" && s.PlayerID == playerID)
	}
	v.ValidActions = t.validActions(playerID)
	return v
}

func (t *Table) seatViews(showCards bool) []SeatView {
	views := make([]SeatView, len(t.hand.Seats))
	for i, s := range t.hand.Seats {
		views[i] = s.view(i, showCards)
	}
	return views
}
